package varmodel

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// FromYW determines the model coefficients from autocovariance matrices by
// solving the multivariate Yule-Walker equations in their block-Toeplitz
// normal-equations form.
//
// acms must hold the p+1 autocovariance matrices for lags 0..p, each of them
// channels x channels; lag 0 is symmetric and negative lags are taken as
// transposes. The residual covariance is set as a byproduct. Returns the
// model to allow chaining.
func (m *Model) FromYW(acms []*mat.Dense) (*Model, error) {
	p := m.p
	if len(acms) != p+1 {
		return nil, fmt.Errorf("%w: got %d autocovariance matrices, want model order + 1 = %d",
			ErrDimension, len(acms), p+1)
	}
	ch, c := acms[0].Dims()
	if ch != c {
		return nil, fmt.Errorf("%w: autocovariance matrix is %dx%d, want square", ErrDimension, ch, c)
	}
	for l, a := range acms {
		r, c := a.Dims()
		if r != ch || c != ch {
			return nil, fmt.Errorf("%w: autocovariance matrix at lag %d is %dx%d, want %dx%d",
				ErrDimension, l, r, c, ch, ch)
		}
	}

	// acm(l) for signed lags, with acm(-l) = acm(l)'.
	acm := func(l int) mat.Matrix {
		if l >= 0 {
			return acms[l]
		}
		return acms[-l].T()
	}

	// Block-Toeplitz matrix R with block (a, b) = acm(a-b), and right-hand
	// side r stacking acms[1..p].
	rr := mat.NewDense(ch*p, ch*p, nil)
	for a := 0; a < p; a++ {
		for b := 0; b < p; b++ {
			block := acm(a - b)
			for i := 0; i < ch; i++ {
				for j := 0; j < ch; j++ {
					rr.Set(a*ch+i, b*ch+j, block.At(i, j))
				}
			}
		}
	}
	rhs := mat.NewDense(ch*p, ch, nil)
	for k := 1; k <= p; k++ {
		for i := 0; i < ch; i++ {
			for j := 0; j < ch; j++ {
				rhs.Set((k-1)*ch+i, j, acms[k].At(i, j))
			}
		}
	}

	// Solve R * C = r with partial-pivoting LU.
	var lu mat.LU
	lu.Factorize(rr)
	var cc mat.Dense
	if err := lu.SolveTo(&cc, false, rhs); err != nil {
		// An exactly singular system surfaces as an infinite condition
		// number; finite ill-conditioning still yields a solution.
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return nil, fmt.Errorf("%w: %v", ErrSingular, err)
		}
		m.log.Warn("yule-walker system is ill-conditioned",
			zap.Float64("condition", float64(cond)))
	}

	// Residual covariance: acm(0) - sum_k C_k' * acm(k).
	rescov := mat.NewDense(ch, ch, nil)
	rescov.CloneFrom(acms[0])
	for k := 0; k < p; k++ {
		var prod mat.Dense
		prod.Mul(cc.Slice(k*ch, (k+1)*ch, 0, ch).T(), acm(k+1))
		rescov.Sub(rescov, &prod)
	}

	// Re-interleave the stacked solution into the strided coefficient
	// layout: row k*ch+j of C holds the lag k+1 coefficients from source
	// channel j, which belong in column j*p+k of coef.
	coef := mat.NewDense(ch, ch*p, nil)
	for j := 0; j < ch; j++ {
		for k := 0; k < p; k++ {
			for i := 0; i < ch; i++ {
				coef.Set(i, j*p+k, cc.At(k*ch+j, i))
			}
		}
	}

	m.Coef = coef
	m.ResCov = symmetrized(rescov)
	return m, nil
}

// symmetrized converts a nearly-symmetric matrix to SymDense by averaging
// off-diagonal pairs.
func symmetrized(a *mat.Dense) *mat.SymDense {
	n, _ := a.Dims()
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, 0.5*(a.At(i, j)+a.At(j, i)))
		}
	}
	return out
}
