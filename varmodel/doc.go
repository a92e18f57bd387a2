// Package varmodel implements multivariate vector autoregressive (VAR)
// models for multi-trial time series data.
//
// A VAR model of order p expresses each sample as a linear combination of the
// p preceding samples plus noise. The package covers parameter estimation
// (Yule-Walker equations from autocovariance matrices, or least squares with
// optional ridge regularization), stability analysis via the companion-matrix
// eigenvalues, data simulation from fitted coefficients, and one-step
// prediction. Residual whiteness testing lives in the whiteness package and
// is reachable through Model.TestWhiteness.
//
// Coefficients are stored as a single channels x (channels*p) matrix with
// lag blocks interleaved column-wise; see LagBlock for the layout contract.
package varmodel
