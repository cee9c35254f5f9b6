package elasticity

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"pricing/internal/repository"
)

const logEps = 1e-6

var (
	ErrNoData                = errors.New("no_data")
	ErrInsufficientVariation = errors.New("insufficient_variation")
	errSingularDesign        = errors.New("singular design matrix")
)

type FitOptions struct {
	MinObs          int
	MinUniquePrices int
}

func (o FitOptions) normalized() FitOptions {
	if o.MinObs <= 0 {
		o.MinObs = 10
	}
	if o.MinUniquePrices <= 0 {
		o.MinUniquePrices = 3
	}
	return o
}

type Metrics struct {
	R2          float64 `json:"r2"`
	PValuePrice float64 `json:"p_value_price"`
	NObs        int     `json:"n_obs"`
}

type Result struct {
	Elasticity float64 `json:"elasticity"`
	Metrics    Metrics `json:"metrics"`
}

// Fit regresses log(units) on log(price) and the promo flag. Points with a
// non-positive price or units are dropped before the sufficiency check.
func Fit(points []repository.PricePoint, opts FitOptions) (Result, error) {
	if len(points) == 0 {
		return Result{}, ErrNoData
	}
	opts = opts.normalized()

	prices := make([]float64, 0, len(points))
	units := make([]float64, 0, len(points))
	promo := make([]float64, 0, len(points))
	unique := map[float64]struct{}{}
	for _, p := range points {
		if p.Price <= 0 || p.Units <= 0 {
			continue
		}
		prices = append(prices, p.Price)
		units = append(units, p.Units)
		promo = append(promo, p.PromoFlag)
		unique[p.Price] = struct{}{}
	}
	if len(prices) < opts.MinObs || len(unique) < opts.MinUniquePrices {
		return Result{}, ErrInsufficientVariation
	}
	return FitLogLog(prices, units, promo)
}

// FitLogLog runs the OLS without any sufficiency gate. promo may be nil.
func FitLogLog(prices, units, promo []float64) (Result, error) {
	n := len(prices)
	if n == 0 || len(units) != n {
		return Result{}, ErrNoData
	}

	y := mat.NewVecDense(n, nil)
	logPrice := make([]float64, n)
	for i := 0; i < n; i++ {
		logPrice[i] = math.Log(prices[i] + logEps)
		y.SetVec(i, math.Log(units[i]+logEps))
	}

	// A constant promo column is collinear with the intercept and carries no
	// information; leave it out so the design stays full rank.
	withPromo := len(promo) == n && varies(promo)
	beta, se, dfResid, err := ols(logPrice, promo, withPromo, y)
	if err != nil && withPromo {
		beta, se, dfResid, err = ols(logPrice, nil, false, y)
	}
	if err != nil {
		return Result{}, err
	}

	elasticity := beta[1]
	return Result{
		Elasticity: elasticity,
		Metrics: Metrics{
			R2:          rSquared(logPrice, promo, withPromo && len(beta) == 3, beta, y),
			PValuePrice: pValue(elasticity, se[1], dfResid),
			NObs:        n,
		},
	}, nil
}

func design(logPrice, promo []float64, withPromo bool) *mat.Dense {
	n := len(logPrice)
	k := 2
	if withPromo {
		k = 3
	}
	x := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, 1)
		x.Set(i, 1, logPrice[i])
		if withPromo {
			x.Set(i, 2, promo[i])
		}
	}
	return x
}

// ols returns coefficients, their standard errors and residual degrees of freedom.
func ols(logPrice, promo []float64, withPromo bool, y *mat.VecDense) ([]float64, []float64, int, error) {
	x := design(logPrice, promo, withPromo)
	n, k := x.Dims()
	if n <= k {
		return nil, nil, 0, ErrInsufficientVariation
	}

	var qr mat.QR
	qr.Factorize(x)
	var b mat.VecDense
	if err := qr.SolveVecTo(&b, false, y); err != nil {
		return nil, nil, 0, errSingularDesign
	}

	var fitted mat.VecDense
	fitted.MulVec(x, &b)
	var resid mat.VecDense
	resid.SubVec(y, &fitted)
	dfResid := n - k
	sigma2 := mat.Dot(&resid, &resid) / float64(dfResid)

	var xtx, inv mat.Dense
	xtx.Mul(x.T(), x)
	if err := inv.Inverse(&xtx); err != nil {
		return nil, nil, 0, errSingularDesign
	}

	beta := make([]float64, k)
	se := make([]float64, k)
	for j := 0; j < k; j++ {
		beta[j] = b.AtVec(j)
		se[j] = math.Sqrt(math.Max(sigma2*inv.At(j, j), 0))
	}
	return beta, se, dfResid, nil
}

func rSquared(logPrice, promo []float64, withPromo bool, beta []float64, y *mat.VecDense) float64 {
	n := y.Len()
	mean := 0.0
	for i := 0; i < n; i++ {
		mean += y.AtVec(i)
	}
	mean /= float64(n)

	var ssRes, ssTot float64
	for i := 0; i < n; i++ {
		pred := beta[0] + beta[1]*logPrice[i]
		if withPromo {
			pred += beta[2] * promo[i]
		}
		d := y.AtVec(i) - pred
		ssRes += d * d
		c := y.AtVec(i) - mean
		ssTot += c * c
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}

// pValue is the two-sided Student-t p-value of coef against zero.
func pValue(coef, se float64, df int) float64 {
	if df <= 0 {
		return 1
	}
	if se == 0 {
		if coef == 0 {
			return 1
		}
		return 0
	}
	t := math.Abs(coef / se)
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
	return 2 * (1 - dist.CDF(t))
}

func varies(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return true
		}
	}
	return false
}
