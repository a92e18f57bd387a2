package varmodel

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"neurovar/tensor"
)

// BuildEquations constructs the least-squares design matrix X and response
// matrix Y for a VAR model of order p from trial data.
//
// With t trials of l samples over m channels, X is (t*(l-p)) x (m*p) and Y is
// (t*(l-p)) x m. Column i*p + (k-1) of X holds the lag-k samples of channel i
// flattened across trials, and column i of Y the corresponding unlagged
// samples. This is the system solved by least-squares estimators; the
// Yule-Walker path does not use it.
func BuildEquations(x *tensor.Tensor, p int) (*mat.Dense, *mat.Dense, error) {
	return buildEquations(x, p, 0, false)
}

// BuildEquationsRidge is BuildEquations with m*p extra rows carrying delta on
// the diagonal of the trailing block, implementing Tikhonov regularization.
func BuildEquationsRidge(x *tensor.Tensor, p int, delta float64) (*mat.Dense, *mat.Dense, error) {
	return buildEquations(x, p, delta, true)
}

func buildEquations(x *tensor.Tensor, p int, delta float64, ridge bool) (*mat.Dense, *mat.Dense, error) {
	t := x.NumTrials()
	m := x.Channels()
	l := x.Samples()
	if p < 1 {
		return nil, nil, fmt.Errorf("%w: model order %d, want >= 1", ErrDimension, p)
	}
	if l <= p {
		return nil, nil, fmt.Errorf("%w: %d samples per trial, want > model order %d",
			ErrDimension, l, p)
	}

	n := (l - p) * t
	rows := n
	if ridge {
		rows += m * p
	}

	bigX := mat.NewDense(rows, m*p, nil)
	bigY := mat.NewDense(rows, m, nil)
	for i := 0; i < m; i++ {
		for k := 1; k <= p; k++ {
			col := i*p + k - 1
			for s := 0; s < t; s++ {
				for j := 0; j < l-p; j++ {
					bigX.Set(s*(l-p)+j, col, x.Trials[s].At(i, p-k+j))
				}
			}
		}
		for s := 0; s < t; s++ {
			for j := 0; j < l-p; j++ {
				bigY.Set(s*(l-p)+j, i, x.Trials[s].At(i, p+j))
			}
		}
	}
	if ridge {
		for i := 0; i < m*p; i++ {
			bigX.Set(n+i, i, delta)
		}
	}
	return bigX, bigY, nil
}

// LeastSquares estimates VAR coefficients by solving the stacked lag
// regression with QR least squares. A positive RidgeDelta switches to the
// regularized system.
type LeastSquares struct {
	RidgeDelta float64
}

// Estimate fits the model coefficients and refreshes its residuals and
// residual covariance.
func (ls LeastSquares) Estimate(x *tensor.Tensor, m *Model) error {
	var (
		bigX, bigY *mat.Dense
		err        error
	)
	if ls.RidgeDelta > 0 {
		bigX, bigY, err = BuildEquationsRidge(x, m.p, ls.RidgeDelta)
	} else {
		bigX, bigY, err = BuildEquations(x, m.p)
	}
	if err != nil {
		return err
	}

	var b mat.Dense
	var qr mat.QR
	qr.Factorize(bigX)
	if err := qr.SolveTo(&b, false, bigY); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			// Rank-deficient system: fall back to the SVD minimum-norm
			// solution.
			var svd mat.SVD
			if ok := svd.Factorize(bigX, mat.SVDThin); !ok {
				return fmt.Errorf("varmodel: least squares failed: %v", err)
			}
			rank := svd.Rank(1e-12)
			b.Reset()
			if rank == 0 {
				// All-zero regressors: the minimum-norm solution is zero.
				b.ReuseAs(x.Channels()*m.p, x.Channels())
			} else {
				svd.SolveTo(&b, bigY, rank)
			}
		}
	}

	coef := mat.NewDense(x.Channels(), x.Channels()*m.p, nil)
	coef.CloneFrom(b.T())
	m.Coef = coef

	res, err := m.ResidualsOf(x)
	if err != nil {
		return err
	}
	m.Residuals = res
	m.ResCov = pooledCovariance(res.TrimSamples(m.p))
	return nil
}
