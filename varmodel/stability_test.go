package varmodel

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// Diagonal AR(1) with both coefficients 0.5: eigenvalues 0.5, 0.5.
func TestIsStable_DiagonalAR1(t *testing.T) {
	m := New(1)
	m.Coef = mat.NewDense(2, 2, []float64{
		0.5, 0,
		0, 0.5,
	})

	stable, err := m.IsStable()
	require.NoError(t, err)
	if !stable {
		t.Error("IsStable = false for eigenvalues {0.5, 0.5}, want true")
	}
}

// Unit root in the first channel: eigenvalue modulus 1 is not stable.
func TestIsStable_UnitRoot(t *testing.T) {
	m := New(1)
	m.Coef = mat.NewDense(2, 2, []float64{
		1.0, 0,
		0, 0.5,
	})

	stable, err := m.IsStable()
	require.NoError(t, err)
	if stable {
		t.Error("IsStable = true for a unit-root model, want false")
	}
}

// Scalar AR(2) cases exercise the companion matrix with the identity block:
// y_t = 0.5 y_{t-1} + 0.4 y_{t-2} has roots 0.93 and -0.43 (stable), while
// y_t = 0.9 y_{t-1} + 0.4 y_{t-2} has a root at 1.23 (explosive).
func TestIsStable_Order2Companion(t *testing.T) {
	stable := New(2)
	stable.Coef = mat.NewDense(1, 2, []float64{0.5, 0.4})
	got, err := stable.IsStable()
	require.NoError(t, err)
	if !got {
		t.Error("IsStable = false for stable AR(2), want true")
	}

	explosive := New(2)
	explosive.Coef = mat.NewDense(1, 2, []float64{0.9, 0.4})
	got, err = explosive.IsStable()
	require.NoError(t, err)
	if got {
		t.Error("IsStable = true for explosive AR(2), want false")
	}
}

func TestIsStable_Unfitted(t *testing.T) {
	_, err := New(1).IsStable()
	require.ErrorIs(t, err, ErrNotFitted)
}
