package whiteness

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"neurovar/tensor"
)

// QSeries holds the three Portmanteau statistic variants, cumulative over
// lags: index l is the statistic including lags 1..l, index 0 is zero.
type QSeries struct {
	BoxPierce []float64
	LjungBox  []float64
	LiMcLeod  []float64
}

// CalcQ computes the multivariate Portmanteau statistics of a residual
// tensor up to lag h, scaled by the effective sample count nt.
//
// Per lag l it evaluates tr(cl' c0^-1 cl c0^-1) with cl the lag-l pooled
// autocovariance, factorizing c0 once with LU. Box-Pierce is nt times the
// cumulative sum, Ljung-Box weights each lag by nt*(nt+2)/(nt-l), and
// Li-McLeod adds the bias correction m^2*l*(l+1)/(2*nt) to Box-Pierce.
func CalcQ(x *tensor.Tensor, h, nt int) (*QSeries, error) {
	if h < 1 {
		return nil, fmt.Errorf("whiteness: max lag %d, want >= 1", h)
	}
	if nt < 1 {
		return nil, fmt.Errorf("whiteness: effective sample count %d, want >= 1", nt)
	}
	m := x.Channels()

	c0 := tensor.ACM(x, 0)
	var lu mat.LU
	lu.Factorize(c0)

	solve := func(b mat.Matrix) (*mat.Dense, error) {
		var out mat.Dense
		if err := lu.SolveTo(&out, false, b); err != nil {
			var cond mat.Condition
			if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
				return nil, fmt.Errorf("whiteness: zero-lag covariance is singular: %v", err)
			}
		}
		return &out, nil
	}

	q := &QSeries{
		BoxPierce: make([]float64, h+1),
		LjungBox:  make([]float64, h+1),
		LiMcLeod:  make([]float64, h+1),
	}
	fnt := float64(nt)
	for l := 1; l <= h; l++ {
		cl := tensor.ACM(x, l)
		a, err := solve(cl)
		if err != nil {
			return nil, err
		}
		b, err := solve(cl.T())
		if err != nil {
			return nil, err
		}
		var ab mat.Dense
		ab.Mul(a, b)
		tmp := mat.Trace(&ab)

		q.BoxPierce[l] = q.BoxPierce[l-1] + fnt*tmp
		q.LjungBox[l] = q.LjungBox[l-1] + fnt*(fnt+2)*tmp/(fnt-float64(l))
		q.LiMcLeod[l] = q.BoxPierce[l] + float64(m*m*l*(l+1))/(2*fnt)
	}
	return q, nil
}
