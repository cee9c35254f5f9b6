package demand

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// RemotePredictor calls an external model server:
//
//	POST {URL} {"features": [...names], "rows": [[...], ...]}
//	-> {"predictions": [...]}
type RemotePredictor struct {
	URL    string
	client *resty.Client
}

func NewRemotePredictor(url string, timeout time.Duration) *RemotePredictor {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Content-Type", "application/json")
	return &RemotePredictor{URL: url, client: client}
}

type remoteRequest struct {
	Features []string    `json:"features"`
	Rows     [][]float64 `json:"rows"`
}

type remoteResponse struct {
	Predictions []float64 `json:"predictions"`
}

func (p *RemotePredictor) Predict(ctx context.Context, rows []FeatureVector) ([]float64, error) {
	if p == nil || p.client == nil || p.URL == "" {
		return nil, ErrModelNotLoaded
	}
	var out remoteResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(remoteRequest{Features: FeatureNames, Rows: Matrix(rows)}).
		SetResult(&out).
		Post(p.URL)
	if err != nil {
		return nil, fmt.Errorf("remote predict: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("remote predict: http %d", resp.StatusCode())
	}
	if len(out.Predictions) != len(rows) {
		return nil, fmt.Errorf("remote predict returned %d values for %d rows", len(out.Predictions), len(rows))
	}
	return out.Predictions, nil
}
