package demand

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

var (
	ErrModelNotLoaded   = errors.New("demand model not loaded")
	ErrEmptyTrainingSet = errors.New("no rows in sku_features_daily for training")
)

// Predictor maps feature rows to expected daily units, one per row in input
// order. Implementations must be safe for concurrent use.
type Predictor interface {
	Predict(ctx context.Context, rows []FeatureVector) ([]float64, error)
}

// PredictorFunc adapts a plain function to Predictor.
type PredictorFunc func(ctx context.Context, rows []FeatureVector) ([]float64, error)

func (f PredictorFunc) Predict(ctx context.Context, rows []FeatureVector) ([]float64, error) {
	return f(ctx, rows)
}

// NonNegative clamps every prediction of next at zero.
func NonNegative(next Predictor) Predictor {
	return PredictorFunc(func(ctx context.Context, rows []FeatureVector) ([]float64, error) {
		if next == nil {
			return nil, ErrModelNotLoaded
		}
		out, err := next.Predict(ctx, rows)
		if err != nil {
			return nil, err
		}
		if len(out) != len(rows) {
			return nil, fmt.Errorf("predictor returned %d values for %d rows", len(out), len(rows))
		}
		for i, v := range out {
			if v < 0 || math.IsNaN(v) {
				out[i] = 0
			}
		}
		return out, nil
	})
}

// ModelPredictor serves an in-process Model. The model is swapped atomically
// so readers never see a partially loaded artifact.
type ModelPredictor struct {
	model atomic.Pointer[Model]
}

func NewModelPredictor(m *Model) *ModelPredictor {
	p := &ModelPredictor{}
	if m != nil {
		p.model.Store(m)
	}
	return p
}

func (p *ModelPredictor) Swap(m *Model) {
	if p == nil {
		return
	}
	p.model.Store(m)
}

func (p *ModelPredictor) Loaded() bool {
	return p != nil && p.model.Load() != nil
}

func (p *ModelPredictor) Model() *Model {
	if p == nil {
		return nil
	}
	return p.model.Load()
}

func (p *ModelPredictor) Predict(ctx context.Context, rows []FeatureVector) ([]float64, error) {
	m := p.Model()
	if m == nil {
		return nil, ErrModelNotLoaded
	}
	out := make([]float64, len(rows))
	for i, r := range rows {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		out[i] = m.Predict(r.Values())
	}
	return out, nil
}
