package varmodel

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// IsStable reports whether the fitted model describes a stationary process.
//
// The model is stable iff every eigenvalue of its companion matrix lies
// strictly inside the unit circle (Luetkepohl, "New Introduction to Multiple
// Time Series Analysis", 2005).
func (m *Model) IsStable() (bool, error) {
	blocks, err := m.lagBlocks()
	if err != nil {
		return false, err
	}
	ch, _ := m.Coef.Dims()

	// Companion matrix: top block row holds the lag blocks, the rest is a
	// block-shifted identity. For p = 1 the coefficients are the companion
	// matrix already.
	dim := ch * m.p
	comp := mat.NewDense(dim, dim, nil)
	for k, block := range blocks {
		for i := 0; i < ch; i++ {
			for j := 0; j < ch; j++ {
				comp.Set(i, k*ch+j, block.At(i, j))
			}
		}
	}
	for i := 0; i < ch*(m.p-1); i++ {
		comp.Set(ch+i, i, 1)
	}

	var eig mat.Eigen
	if ok := eig.Factorize(comp, mat.EigenNone); !ok {
		return false, fmt.Errorf("varmodel: companion matrix eigendecomposition failed")
	}
	for _, v := range eig.Values(nil) {
		if cmplx.Abs(v) >= 1 {
			return false, nil
		}
	}
	return true, nil
}
