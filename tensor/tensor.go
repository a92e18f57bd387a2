package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Tensor holds trial-structured multichannel time series data.
// Each trial is a channels x samples matrix; all trials in a batch share the
// same channel and sample counts.
type Tensor struct {
	Trials []*mat.Dense
}

// New allocates a zero-filled tensor with the given dimensions.
func New(trials, channels, samples int) *Tensor {
	ts := make([]*mat.Dense, trials)
	for s := range ts {
		ts[s] = mat.NewDense(channels, samples, nil)
	}
	return &Tensor{Trials: ts}
}

// AtLeast3D promotes a single channels x samples matrix to a one-trial tensor.
func AtLeast3D(y *mat.Dense) *Tensor {
	return &Tensor{Trials: []*mat.Dense{y}}
}

// FromTrials wraps existing trial matrices in a tensor. The matrices must all
// have the same dimensions.
func FromTrials(trials ...*mat.Dense) (*Tensor, error) {
	if len(trials) == 0 {
		return nil, fmt.Errorf("tensor: no trials given")
	}
	m, n := trials[0].Dims()
	for s, y := range trials[1:] {
		r, c := y.Dims()
		if r != m || c != n {
			return nil, fmt.Errorf("tensor: trial %d is %dx%d, want %dx%d", s+1, r, c, m, n)
		}
	}
	return &Tensor{Trials: trials}, nil
}

// NumTrials returns the number of trials in the batch.
func (x *Tensor) NumTrials() int { return len(x.Trials) }

// Channels returns the number of channels per trial.
func (x *Tensor) Channels() int {
	if len(x.Trials) == 0 {
		return 0
	}
	m, _ := x.Trials[0].Dims()
	return m
}

// Samples returns the number of samples per trial.
func (x *Tensor) Samples() int {
	if len(x.Trials) == 0 {
		return 0
	}
	_, n := x.Trials[0].Dims()
	return n
}

// Clone returns a deep copy of the tensor.
func (x *Tensor) Clone() *Tensor {
	ts := make([]*mat.Dense, len(x.Trials))
	for s, y := range x.Trials {
		ts[s] = mat.DenseCopyOf(y)
	}
	return &Tensor{Trials: ts}
}

// TrimSamples returns a view-free copy of the tensor with the first n samples
// of every trial removed.
func (x *Tensor) TrimSamples(n int) *Tensor {
	m := x.Channels()
	l := x.Samples()
	if n <= 0 {
		return x.Clone()
	}
	if n >= l {
		return New(x.NumTrials(), m, 0)
	}
	ts := make([]*mat.Dense, len(x.Trials))
	for s, y := range x.Trials {
		ts[s] = mat.DenseCopyOf(y.Slice(0, m, n, l))
	}
	return &Tensor{Trials: ts}
}

// CatTrials concatenates all trials along the time axis into a single
// channels x (trials*samples) matrix.
func CatTrials(x *Tensor) *mat.Dense {
	m := x.Channels()
	n := x.Samples()
	out := mat.NewDense(m, n*x.NumTrials(), nil)
	for s, y := range x.Trials {
		for i := 0; i < m; i++ {
			for j := 0; j < n; j++ {
				out.Set(i, s*n+j, y.At(i, j))
			}
		}
	}
	return out
}

// PermuteSamples returns a copy of the tensor with the time axis reordered by
// perm: column j of every trial of the result is column perm[j] of the input.
// The same permutation is applied to all trials and channels, so each
// time-sample's full channel vector moves as a unit.
func (x *Tensor) PermuteSamples(perm []int) (*Tensor, error) {
	m := x.Channels()
	n := x.Samples()
	if len(perm) != n {
		return nil, fmt.Errorf("tensor: permutation length %d does not match sample count %d", len(perm), n)
	}
	out := New(x.NumTrials(), m, n)
	for s, y := range x.Trials {
		for j, pj := range perm {
			for i := 0; i < m; i++ {
				out.Trials[s].Set(i, j, y.At(i, pj))
			}
		}
	}
	return out, nil
}

// ACM computes the pooled autocovariance matrix of x at the given lag.
// Entry (i, j) is the average over all trials and valid sample indices n of
// x_i(n-lag) * x_j(n), so the lagged sample indexes rows. Negative lags
// satisfy ACM(x, -l) = ACM(x, l) transposed.
func ACM(x *Tensor, lag int) *mat.Dense {
	if lag < 0 {
		out := mat.NewDense(x.Channels(), x.Channels(), nil)
		out.CloneFrom(ACM(x, -lag).T())
		return out
	}
	m := x.Channels()
	n := x.Samples()
	out := mat.NewDense(m, m, nil)
	if lag >= n {
		return out
	}
	count := float64(x.NumTrials() * (n - lag))
	for _, y := range x.Trials {
		for t := lag; t < n; t++ {
			for i := 0; i < m; i++ {
				yi := y.At(i, t-lag)
				for j := 0; j < m; j++ {
					out.Set(i, j, out.At(i, j)+yi*y.At(j, t))
				}
			}
		}
	}
	out.Scale(1/count, out)
	return out
}
