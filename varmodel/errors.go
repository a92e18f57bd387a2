package varmodel

import "errors"

var (
	// ErrNotFitted is returned when an operation needs fitted coefficients
	// but the model has none yet.
	ErrNotFitted = errors.New("varmodel: model not fitted")

	// ErrDimension is returned when input dimensions are inconsistent with
	// the model order or the stored coefficients.
	ErrDimension = errors.New("varmodel: dimension mismatch")

	// ErrSingular is returned when the Yule-Walker normal equations matrix
	// cannot be inverted.
	ErrSingular = errors.New("varmodel: singular normal equations matrix")

	// ErrNotImplemented is returned when Fit or Optimize is called on a
	// model that has no concrete estimation strategy attached.
	ErrNotImplemented = errors.New("varmodel: operation not implemented")
)
