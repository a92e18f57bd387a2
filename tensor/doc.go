// Package tensor provides the trial-structured data primitives shared by the
// VAR estimation and whiteness-testing packages.
//
// Multichannel recordings are organized as a trial tensor: a batch of trials,
// each a channels x samples matrix. Continuous (single-trial) data is promoted
// to a one-trial tensor with AtLeast3D. The package also provides pooled
// autocovariance matrices (ACM) and a seeded random source used for noise
// generation and permutation resampling.
package tensor
