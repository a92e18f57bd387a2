package varmodel

import (
	"gonum.org/v1/gonum/mat"

	"neurovar/tensor"
)

// pooledCovariance computes the sample covariance of the channel vectors of
// x with all trials concatenated along time.
func pooledCovariance(x *tensor.Tensor) *mat.SymDense {
	cat := tensor.CatTrials(x)
	m, n := cat.Dims()
	out := mat.NewSymDense(m, nil)
	if n < 2 {
		return out
	}

	means := make([]float64, m)
	for i := 0; i < m; i++ {
		sum := 0.0
		for j := 0; j < n; j++ {
			sum += cat.At(i, j)
		}
		means[i] = sum / float64(n)
	}
	for i := 0; i < m; i++ {
		for j := i; j < m; j++ {
			sum := 0.0
			for k := 0; k < n; k++ {
				sum += (cat.At(i, k) - means[i]) * (cat.At(j, k) - means[j])
			}
			out.SetSym(i, j, sum/float64(n-1))
		}
	}
	return out
}
