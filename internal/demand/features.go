package demand

import "pricing/internal/models"

// FeatureNames is the model input schema, in column order.
var FeatureNames = []string{
	"avg_daily_sales_30d",
	"last_price",
	"current_price",
	"inventory",
	"views_7d",
	"views_30d",
	"add_to_cart_7d",
	"conv_rate_7d",
	"promo_flag",
	"ageing_days",
	"restock_eta_days",
	"cost_price",
	"base_price",
}

// FeatureVector is one model input row.
type FeatureVector struct {
	AvgDailySales30d float64 `json:"avg_daily_sales_30d"`
	LastPrice        float64 `json:"last_price"`
	CurrentPrice     float64 `json:"current_price"`
	Inventory        float64 `json:"inventory"`
	Views7d          float64 `json:"views_7d"`
	Views30d         float64 `json:"views_30d"`
	AddToCart7d      float64 `json:"add_to_cart_7d"`
	ConvRate7d       float64 `json:"conv_rate_7d"`
	PromoFlag        float64 `json:"promo_flag"`
	AgeingDays       float64 `json:"ageing_days"`
	RestockEtaDays   float64 `json:"restock_eta_days"`
	CostPrice        float64 `json:"cost_price"`
	BasePrice        float64 `json:"base_price"`
}

// Values returns the vector in FeatureNames order.
func (v FeatureVector) Values() []float64 {
	return []float64{
		v.AvgDailySales30d,
		v.LastPrice,
		v.CurrentPrice,
		v.Inventory,
		v.Views7d,
		v.Views30d,
		v.AddToCart7d,
		v.ConvRate7d,
		v.PromoFlag,
		v.AgeingDays,
		v.RestockEtaDays,
		v.CostPrice,
		v.BasePrice,
	}
}

func FromSnapshot(s *models.FeatureSnapshot) FeatureVector {
	if s == nil {
		return FeatureVector{}
	}
	return FeatureVector{
		AvgDailySales30d: s.AvgDailySales30d,
		LastPrice:        s.LastPrice.InexactFloat64(),
		CurrentPrice:     s.CurrentPrice.InexactFloat64(),
		Inventory:        float64(s.Inventory),
		Views7d:          float64(s.Views7d),
		Views30d:         float64(s.Views30d),
		AddToCart7d:      float64(s.AddToCart7d),
		ConvRate7d:       s.ConvRate7d,
		PromoFlag:        float64(s.PromoFlag),
		AgeingDays:       float64(s.AgeingDays),
		RestockEtaDays:   float64(s.RestockEtaDays),
		CostPrice:        s.CostPrice.InexactFloat64(),
		BasePrice:        s.BasePrice.InexactFloat64(),
	}
}

// Matrix flattens rows for a model call.
func Matrix(rows []FeatureVector) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = r.Values()
	}
	return out
}
