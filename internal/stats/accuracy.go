// Package stats holds the forecast accuracy metrics shared by demand
// training and daily monitoring.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Eps guards the MAPE and R2 denominators.
const Eps = 1e-6

type Accuracy struct {
	MAPE float64 `json:"MAPE"`
	RMSE float64 `json:"RMSE"`
	R2   float64 `json:"R2"`
}

// Map returns the metrics keyed by their persisted metric names.
func (a Accuracy) Map() map[string]float64 {
	return map[string]float64{
		"MAPE": a.MAPE,
		"RMSE": a.RMSE,
		"R2":   a.R2,
	}
}

// Evaluate compares predictions against actuals. The slices must be equal
// length; an empty input yields the zero value.
func Evaluate(actual, predicted []float64) Accuracy {
	n := len(actual)
	if n == 0 || len(predicted) != n {
		return Accuracy{}
	}
	mean := stat.Mean(actual, nil)

	var absPct, ssRes, ssTot float64
	for i := 0; i < n; i++ {
		d := actual[i] - predicted[i]
		absPct += math.Abs(d / (actual[i] + Eps))
		ssRes += d * d
		c := actual[i] - mean
		ssTot += c * c
	}
	return Accuracy{
		MAPE: absPct / float64(n),
		RMSE: math.Sqrt(ssRes / float64(n)),
		R2:   1 - ssRes/(ssTot+Eps),
	}
}
