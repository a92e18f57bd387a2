package varmodel

import (
	"fmt"

	"neurovar/tensor"
)

// Predict computes one-step predictions for every sample of x from the
// fitted coefficients. The output has the shape of x; the first p samples of
// each trial are zero because no full lag window exists for them.
//
// Residuals are obtained as x - Predict(x).
func (m *Model) Predict(x *tensor.Tensor) (*tensor.Tensor, error) {
	blocks, err := m.lagBlocks()
	if err != nil {
		return nil, err
	}
	ch, _ := m.Coef.Dims()
	if x.Channels() != ch {
		return nil, fmt.Errorf("%w: data has %d channels, model has %d",
			ErrDimension, x.Channels(), ch)
	}

	t := x.NumTrials()
	l := x.Samples()
	y := tensor.New(t, ch, l)
	for s := 0; s < t; s++ {
		src := x.Trials[s]
		dst := y.Trials[s]
		for n := m.p; n < l; n++ {
			for k := 1; k <= m.p; k++ {
				block := blocks[k-1]
				for i := 0; i < ch; i++ {
					acc := dst.At(i, n)
					for j := 0; j < ch; j++ {
						acc += block.At(i, j) * src.At(j, n-k)
					}
					dst.Set(i, n, acc)
				}
			}
		}
	}
	return y, nil
}

// ResidualsOf returns the one-step prediction residuals x - Predict(x),
// keeping the shape of x. The first p samples per trial equal the data
// itself since no prediction is made during warm-up.
func (m *Model) ResidualsOf(x *tensor.Tensor) (*tensor.Tensor, error) {
	pred, err := m.Predict(x)
	if err != nil {
		return nil, err
	}
	res := x.Clone()
	for s, y := range res.Trials {
		y.Sub(y, pred.Trials[s])
	}
	return res, nil
}
