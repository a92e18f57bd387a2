package varmodel

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"neurovar/tensor"
	"neurovar/whiteness"
)

// Estimator fits model coefficients from trial data. Implementations mutate
// the supplied model's Coef, Residuals and ResCov.
type Estimator interface {
	Estimate(x *tensor.Tensor, m *Model) error
}

// OrderSelector chooses fitting hyperparameters (e.g. the model order) from
// data. No selector ships with this package; Optimize fails with
// ErrNotImplemented unless one is attached.
type OrderSelector interface {
	Optimize(x *tensor.Tensor, m *Model) error
}

// Model is a vector autoregressive model of fixed order p.
//
// Coef is channels x (channels*p) with the interleaved lag-block layout
// described at LagBlock. Residuals holds the one-step prediction residuals of
// the most recent Fit or Simulate call (same shape as the data), and ResCov
// their pooled covariance.
//
// A Model is owned by a single writer: concurrent calls to Fit, FromYW or
// Simulate on the same instance must be serialized by the caller.
type Model struct {
	Coef      *mat.Dense
	Residuals *tensor.Tensor
	ResCov    *mat.SymDense

	p         int
	estimator Estimator
	selector  OrderSelector
	log       *zap.Logger
	workers   int
}

// New creates an unfitted model of the given order. The model logs nothing
// and uses all CPUs for whiteness testing until configured otherwise.
func New(p int) *Model {
	return &Model{
		p:       p,
		log:     zap.NewNop(),
		workers: runtime.NumCPU(),
	}
}

// WithLogger attaches a logger for progress output. Nil restores the no-op
// logger.
func (m *Model) WithLogger(log *zap.Logger) *Model {
	if log == nil {
		log = zap.NewNop()
	}
	m.log = log
	return m
}

// WithEstimator attaches the strategy used by Fit.
func (m *Model) WithEstimator(e Estimator) *Model {
	m.estimator = e
	return m
}

// WithOrderSelector attaches the strategy used by Optimize.
func (m *Model) WithOrderSelector(s OrderSelector) *Model {
	m.selector = s
	return m
}

// WithWorkers sets the number of parallel workers for whiteness testing.
func (m *Model) WithWorkers(n int) *Model {
	if n > 0 {
		m.workers = n
	}
	return m
}

// P returns the model order.
func (m *Model) P() int { return m.p }

// Channels returns the channel count of the fitted coefficients.
func (m *Model) Channels() (int, error) {
	if m.Coef == nil {
		return 0, fmt.Errorf("%w: no coefficients", ErrNotFitted)
	}
	r, _ := m.Coef.Dims()
	return r, nil
}

// Copy duplicates the model state. It fails with ErrNotFitted if the model
// has not been fitted (coefficients, residuals and residual covariance must
// all be present).
func (m *Model) Copy() (*Model, error) {
	if m.Coef == nil || m.Residuals == nil || m.ResCov == nil {
		return nil, fmt.Errorf("%w: cannot copy unfitted model", ErrNotFitted)
	}
	other := New(m.p).WithLogger(m.log).WithWorkers(m.workers)
	other.estimator = m.estimator
	other.selector = m.selector
	other.Coef = mat.DenseCopyOf(m.Coef)
	other.Residuals = m.Residuals.Clone()
	other.ResCov = mat.NewSymDense(m.ResCov.SymmetricDim(), nil)
	other.ResCov.CopySym(m.ResCov)
	return other, nil
}

// Fit estimates the model from trial data using the attached estimator and
// returns the model to allow chaining. Without an estimator it fails with
// ErrNotImplemented.
func (m *Model) Fit(x *tensor.Tensor) (*Model, error) {
	if m.estimator == nil {
		return nil, fmt.Errorf("%w: no estimator attached", ErrNotImplemented)
	}
	if err := m.estimator.Estimate(x, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Optimize tunes fitting hyperparameters using the attached selector.
// Without a selector it fails with ErrNotImplemented.
func (m *Model) Optimize(x *tensor.Tensor) error {
	if m.selector == nil {
		return fmt.Errorf("%w: no order selector attached", ErrNotImplemented)
	}
	return m.selector.Optimize(x, m)
}

// TestWhiteness runs the Li-McLeod permutation test on the stored residuals
// up to lag h with the given number of permutation draws. A seed of 0 draws a
// time-based seed.
func (m *Model) TestWhiteness(h, repeats int, seed int64) (*whiteness.Result, error) {
	if m.Residuals == nil {
		return nil, fmt.Errorf("%w: no residuals to test", ErrNotFitted)
	}
	return whiteness.Test(m.Residuals, whiteness.Options{
		MaxLag:  h,
		Order:   m.p,
		Repeats: repeats,
		Seed:    seed,
		Workers: m.workers,
		Logger:  m.log,
	})
}

// LagBlock extracts the channels x channels coefficient block for lag k
// (1-based) from a coefficient matrix in interleaved layout.
//
// The layout contract: coef is m x (m*p) and the coefficient from source
// channel j to sink channel i at lag k sits in column j*p + (k-1). LagBlock
// is the single seam through which all consumers address lag blocks.
func LagBlock(coef *mat.Dense, k int) *mat.Dense {
	m, mp := coef.Dims()
	p := mp / m
	out := mat.NewDense(m, m, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			out.Set(i, j, coef.At(i, j*p+k-1))
		}
	}
	return out
}

// lagBlocks returns the p lag blocks of the fitted coefficients.
func (m *Model) lagBlocks() ([]*mat.Dense, error) {
	if m.Coef == nil {
		return nil, fmt.Errorf("%w: no coefficients", ErrNotFitted)
	}
	ch, mp := m.Coef.Dims()
	if m.p <= 0 || mp != ch*m.p {
		return nil, fmt.Errorf("%w: coefficients are %dx%d, want %dx%d for order %d",
			ErrDimension, ch, mp, ch, ch*m.p, m.p)
	}
	blocks := make([]*mat.Dense, m.p)
	for k := 1; k <= m.p; k++ {
		blocks[k-1] = LagBlock(m.Coef, k)
	}
	return blocks, nil
}
