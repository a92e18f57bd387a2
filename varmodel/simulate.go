package varmodel

import (
	"fmt"

	"neurovar/tensor"
)

// NoiseFunc produces one innovation vector per call, with one entry per
// channel.
type NoiseFunc func() []float64

// Simulate generates trial data from the fitted model by forward recursion.
//
// Each trial starts from 10*p burn-in samples that are discarded, so every
// returned trial has exactly the requested number of samples. The first p
// samples of the recursion are pure noise draws; every later sample adds the
// lag-block contributions of the preceding p samples. When noise is nil,
// standard Gaussian noise from a source seeded with seed is used (seed 0
// draws a time-based seed).
//
// As a byproduct the model's Residuals are replaced with the post-burn-in
// noise draws and ResCov with their pooled sample covariance.
func (m *Model) Simulate(samples, trials int, noise NoiseFunc, seed int64) (*tensor.Tensor, error) {
	blocks, err := m.lagBlocks()
	if err != nil {
		return nil, err
	}
	ch, _ := m.Coef.Dims()
	if samples < 1 || trials < 1 {
		return nil, fmt.Errorf("%w: requested %d samples x %d trials", ErrDimension, samples, trials)
	}

	if noise == nil {
		rng := tensor.NewRand(seed)
		noise = func() []float64 {
			e := make([]float64, ch)
			for i := range e {
				e[i] = rng.NormFloat64()
			}
			return e
		}
	}

	burn := 10 * m.p
	n := samples + burn
	out := tensor.New(trials, ch, samples)
	res := tensor.New(trials, ch, samples)

	for s := 0; s < trials; s++ {
		y := make([][]float64, n)
		for i := 0; i < n; i++ {
			e := noise()
			if len(e) != ch {
				return nil, fmt.Errorf("%w: noise vector has %d entries, want %d",
					ErrDimension, len(e), ch)
			}
			y[i] = append([]float64(nil), e...)
			if i >= burn {
				for j := 0; j < ch; j++ {
					res.Trials[s].Set(j, i-burn, e[j])
				}
			}
			if i < m.p {
				continue
			}
			for k := 1; k <= m.p; k++ {
				block := blocks[k-1]
				for row := 0; row < ch; row++ {
					acc := y[i][row]
					for col := 0; col < ch; col++ {
						acc += block.At(row, col) * y[i-k][col]
					}
					y[i][row] = acc
				}
			}
		}
		for i := burn; i < n; i++ {
			for j := 0; j < ch; j++ {
				out.Trials[s].Set(j, i-burn, y[i][j])
			}
		}
	}

	m.Residuals = res
	m.ResCov = pooledCovariance(res)
	return out, nil
}
