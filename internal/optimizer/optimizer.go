// Package optimizer searches a bounded price grid for the profit-maximizing,
// rule-satisfying price of one (sku, vendor_id).
package optimizer

import (
	"context"
	"fmt"
	"math"
	"sort"

	"pricing/internal/demand"
	"pricing/internal/elasticity"
)

// SkipReason explains an unavailable result. It is a normal outcome, not an error.
type SkipReason string

const (
	SkipNone         SkipReason = ""
	SkipNoFeatures   SkipReason = "no_features"
	SkipOutOfStock   SkipReason = "out_of_stock"
	SkipNoCandidates SkipReason = "no_candidates"
)

const (
	ReasonDefault   = "Optimized for profit given inventory and vendor rules."
	ReasonClearance = "High stock + low demand: lowering price to stimulate sales."
	ReasonThrottle  = "Low stock: increasing price slightly to throttle demand."
)

// Rules are vendor constraints in percent (10 = 10%).
type Rules struct {
	MinMarginPct    float64 `json:"min_margin_pct"`
	MaxDiscountPct  float64 `json:"max_discount_pct"`
	MaxDailyMovePct float64 `json:"max_daily_price_move_pct"`
}

var DefaultRules = Rules{MinMarginPct: 10, MaxDiscountPct: 50, MaxDailyMovePct: 20}

type Config struct {
	RangeLower float64
	RangeUpper float64
	GridSteps  int
	Defaults   Rules
}

func (c Config) normalized() Config {
	if c.RangeLower <= 0 {
		c.RangeLower = 0.7
	}
	if c.RangeUpper <= 0 {
		c.RangeUpper = 1.3
	}
	if c.GridSteps <= 0 {
		c.GridSteps = 21
	}
	if c.Defaults == (Rules{}) {
		c.Defaults = DefaultRules
	}
	return c
}

type Band struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// PriceBand derives the feasible band. The floor is the tightest of the daily
// move cap, the max discount off base and the margin floor off cost; the
// ceiling is the daily move cap only.
func PriceBand(current, base, cost float64, r Rules) Band {
	minMargin := r.MinMarginPct / 100
	maxDiscount := r.MaxDiscountPct / 100
	maxMove := r.MaxDailyMovePct / 100

	marginFloor := cost
	if minMargin < 1 {
		marginFloor = cost / (1 - minMargin)
	}
	lower := math.Max(current*(1-maxMove), math.Max(base*(1-maxDiscount), marginFloor))
	upper := current * (1 + maxMove)
	lower = math.Max(lower, 0.01)
	return Band{Lower: lower, Upper: upper}
}

// Grid spreads GridSteps points over [lower*RangeLower, upper*RangeUpper],
// rounds them to cents and drops duplicates. The result is ascending.
func Grid(b Band, cfg Config) []float64 {
	cfg = cfg.normalized()
	start := b.Lower * cfg.RangeLower
	stop := b.Upper * cfg.RangeUpper
	n := cfg.GridSteps

	out := make([]float64, 0, n)
	step := 0.0
	if n > 1 {
		step = (stop - start) / float64(n-1)
	}
	for i := 0; i < n; i++ {
		v := start + float64(i)*step
		if i == n-1 && n > 1 {
			v = stop
		}
		out = append(out, roundCents(v))
	}
	sort.Float64s(out)
	return dedupe(out)
}

type Candidate struct {
	Price    float64
	Features demand.FeatureVector
}

// Candidates keeps grid prices above cost with at least the minimum margin and
// builds their model rows. Stock-based promo overrides nudge the model without
// touching the price.
func Candidates(grid []float64, base demand.FeatureVector, stock int, cost float64, r Rules) []Candidate {
	minMargin := r.MinMarginPct / 100
	out := make([]Candidate, 0, len(grid))
	for _, p := range grid {
		if p <= cost {
			continue
		}
		if (p-cost)/p < minMargin {
			continue
		}
		row := base
		row.CurrentPrice = p
		switch {
		case stock < 5:
			row.PromoFlag = 0
		case stock > 100 && base.AvgDailySales30d < 1:
			row.PromoFlag = 1
		}
		row.Inventory = float64(stock)
		out = append(out, Candidate{Price: p, Features: row})
	}
	return out
}

// Confidence derives a [0.1, 1] score from the elasticity fit quality.
func Confidence(m elasticity.Metrics) float64 {
	c := m.R2 + math.Min(0.5, float64(m.NObs)/1000)
	return math.Min(1, math.Max(0.1, c))
}

// Reason labels the decision for humans. It never feeds back into the price.
func Reason(stock int, optimal, current, profit float64) string {
	switch {
	case stock > 100 && profit > 0 && optimal < current:
		return ReasonClearance
	case stock < 5 && optimal > current:
		return ReasonThrottle
	default:
		return ReasonDefault
	}
}

// Input is everything one decision needs, already loaded.
type Input struct {
	SKU          string
	VendorID     string
	Features     demand.FeatureVector
	Inventory    int
	CurrentPrice float64
	CostPrice    float64
	BasePrice    float64
	Rules        Rules
	Elasticity   elasticity.Coefficient
}

type Result struct {
	SKU             string  `json:"sku"`
	VendorID        string  `json:"vendor_id"`
	CurrentPrice    float64 `json:"current_price"`
	OptimalPrice    float64 `json:"optimal_price"`
	ExpectedRevenue float64 `json:"expected_revenue"`
	ExpectedProfit  float64 `json:"expected_profit"`
	Elasticity      float64 `json:"elasticity"`
	Confidence      float64 `json:"confidence"`
	Reason          string  `json:"reason"`
	Band            Band    `json:"band"`
	Candidates      int     `json:"candidates"`
}

// Decide is the side-effect free price selection. A nil result comes with a
// SkipReason; an error only means the predictor failed.
func Decide(ctx context.Context, in Input, cfg Config, predictor demand.Predictor) (*Result, SkipReason, error) {
	if in.Inventory <= 0 {
		return nil, SkipOutOfStock, nil
	}
	cfg = cfg.normalized()

	band := PriceBand(in.CurrentPrice, in.BasePrice, in.CostPrice, in.Rules)
	cands := Candidates(Grid(band, cfg), in.Features, in.Inventory, in.CostPrice, in.Rules)
	if len(cands) == 0 {
		return nil, SkipNoCandidates, nil
	}

	rows := make([]demand.FeatureVector, len(cands))
	for i, c := range cands {
		rows[i] = c.Features
	}
	q, err := demand.NonNegative(predictor).Predict(ctx, rows)
	if err != nil {
		return nil, SkipNone, fmt.Errorf("predict demand: %w", err)
	}

	best := 0
	bestProfit := math.Inf(-1)
	for i, c := range cands {
		profit := (c.Price - in.CostPrice) * q[i]
		if profit > bestProfit {
			best, bestProfit = i, profit
		}
	}
	price := cands[best].Price

	return &Result{
		SKU:             in.SKU,
		VendorID:        in.VendorID,
		CurrentPrice:    in.CurrentPrice,
		OptimalPrice:    price,
		ExpectedRevenue: price * q[best],
		ExpectedProfit:  bestProfit,
		Elasticity:      in.Elasticity.Elasticity,
		Confidence:      Confidence(in.Elasticity.Metrics),
		Reason:          Reason(in.Inventory, price, in.CurrentPrice, bestProfit),
		Band:            band,
		Candidates:      len(cands),
	}, SkipNone, nil
}

// roundCents rounds half to even, matching the usual numeric library behaviour.
func roundCents(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

func dedupe(xs []float64) []float64 {
	if len(xs) == 0 {
		return xs
	}
	out := xs[:1]
	for _, v := range xs[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
