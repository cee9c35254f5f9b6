package demand

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pricing/internal/models"
)

func linearData(n int) ([][]float64, []float64) {
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, len(FeatureNames))
		row[2] = float64(50 + i) // current_price
		row[3] = float64(i % 7)  // inventory noise
		x[i] = row
		y[i] = 200 - row[2]
	}
	return x, y
}

func TestNonNegativeClampsAdversarialOutput(t *testing.T) {
	raw := PredictorFunc(func(ctx context.Context, rows []FeatureVector) ([]float64, error) {
		return []float64{-5, 0, 3.5, math.NaN(), -1e9}, nil
	})
	out, err := NonNegative(raw).Predict(context.Background(), make([]FeatureVector, 5))
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	want := []float64{0, 0, 3.5, 0, 0}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("out[%d]=%v want=%v", i, out[i], want[i])
		}
	}
}

func TestNonNegativeRejectsLengthMismatch(t *testing.T) {
	raw := PredictorFunc(func(ctx context.Context, rows []FeatureVector) ([]float64, error) {
		return []float64{1}, nil
	})
	if _, err := NonNegative(raw).Predict(context.Background(), make([]FeatureVector, 2)); err == nil {
		t.Fatalf("expected error for mismatched output length")
	}
}

func TestModelPredictorNotLoaded(t *testing.T) {
	p := NewModelPredictor(nil)
	if p.Loaded() {
		t.Fatalf("loaded=true want=false")
	}
	_, err := p.Predict(context.Background(), []FeatureVector{{}})
	if !errors.Is(err, ErrModelNotLoaded) {
		t.Fatalf("err=%v want=%v", err, ErrModelNotLoaded)
	}
}

func TestTrainFitsLinearDemand(t *testing.T) {
	x, y := linearData(120)
	m, err := Train(x, y, TrainParams{Trees: 150, LearningRate: 0.1, MaxDepth: 3, MinLeaf: 2, Subsample: 0.8, Colsample: 1, Seed: 7})
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	var ssRes, ssTot, mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))
	for i := range x {
		d := y[i] - m.Predict(x[i])
		ssRes += d * d
		ssTot += (y[i] - mean) * (y[i] - mean)
	}
	if r2 := 1 - ssRes/ssTot; r2 < 0.95 {
		t.Fatalf("in-sample r2=%v want>=0.95", r2)
	}
}

func TestTrainIsDeterministicForSeed(t *testing.T) {
	x, y := linearData(60)
	p := TrainParams{Trees: 20, Seed: 3, MinLeaf: 2}
	a, _ := Train(x, y, p)
	b, _ := Train(x, y, p)
	for i := range x {
		if a.Predict(x[i]) != b.Predict(x[i]) {
			t.Fatalf("row %d differs between identical seeded runs", i)
		}
	}
}

func TestTrainEmpty(t *testing.T) {
	if _, err := Train(nil, nil, TrainParams{}); !errors.Is(err, ErrEmptyTrainingSet) {
		t.Fatalf("err=%v want=%v", err, ErrEmptyTrainingSet)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	x, y := linearData(40)
	m, err := Train(x, y, TrainParams{Trees: 10, MinLeaf: 2})
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	fs := &FileStore{Path: filepath.Join(t.TempDir(), "demand", "model.json")}
	if fs.Exists() {
		t.Fatalf("artifact should not exist yet")
	}
	if err := fs.Save(m, "v1", time.Now()); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := fs.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for i := range x {
		if got, want := loaded.Predict(x[i]), m.Predict(x[i]); got != want {
			t.Fatalf("row %d predict=%v want=%v", i, got, want)
		}
	}
}

func TestFileStoreLoadMissing(t *testing.T) {
	fs := &FileStore{Path: filepath.Join(t.TempDir(), "nope.json")}
	if _, err := fs.Load(); !errors.Is(err, ErrModelNotLoaded) {
		t.Fatalf("err=%v want=%v", err, ErrModelNotLoaded)
	}
}

func TestTrainerPersistsAndLogsMetrics(t *testing.T) {
	repo := &stubRepo{}
	for i := 0; i < 30; i++ {
		price := decimal.NewFromInt(int64(20 + i))
		repo.features = append(repo.features, models.FeatureSnapshot{
			SKU:             "sku-1",
			VendorID:        "v1",
			AvgDailySales7d: float64(60 - i),
			CurrentPrice:    price,
			LastPrice:       price,
			BasePrice:       price,
			Inventory:       10,
		})
	}
	fs := &FileStore{Path: filepath.Join(t.TempDir(), "model.json")}
	day := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
	tr := &Trainer{Repo: repo, Files: fs, Params: TrainParams{Trees: 20, MinLeaf: 2}, Now: func() time.Time { return day }}

	model, report, err := tr.Train(context.Background())
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if model == nil || report.Rows != 30 {
		t.Fatalf("report=%+v", report)
	}
	if !fs.Exists() {
		t.Fatalf("artifact file missing")
	}
	if len(repo.artifacts) != 1 || repo.artifacts[0].Name != ArtifactName || repo.artifacts[0].Version != report.Version {
		t.Fatalf("artifacts=%+v", repo.artifacts)
	}
	if len(repo.metrics) != 3 {
		t.Fatalf("metrics=%d want=3", len(repo.metrics))
	}
	for _, m := range repo.metrics {
		if m.SKU != models.GlobalKey || m.ModelType != models.ModelTypeDemand || !m.Date.Equal(models.Day(day)) {
			t.Fatalf("unexpected metric row %+v", m)
		}
	}
}

func TestTrainerEmptyFeatureTable(t *testing.T) {
	tr := &Trainer{Repo: &stubRepo{}}
	if _, _, err := tr.Train(context.Background()); !errors.Is(err, ErrEmptyTrainingSet) {
		t.Fatalf("err=%v want=%v", err, ErrEmptyTrainingSet)
	}
}

func TestRemotePredictor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req remoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		out := remoteResponse{}
		for _, row := range req.Rows {
			out.Predictions = append(out.Predictions, 200-row[2])
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	p := NewRemotePredictor(srv.URL, time.Second)
	got, err := p.Predict(context.Background(), []FeatureVector{{CurrentPrice: 50}, {CurrentPrice: 120}})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(got) != 2 || got[0] != 150 || got[1] != 80 {
		t.Fatalf("got=%v want=[150 80]", got)
	}
}

func TestRemotePredictorHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewRemotePredictor(srv.URL, time.Second)
	if _, err := p.Predict(context.Background(), []FeatureVector{{}}); err == nil {
		t.Fatalf("expected error on 500")
	}
}
