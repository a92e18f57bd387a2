// Package whiteness tests whether multichannel residuals are serially
// uncorrelated (white) up to a maximum lag.
//
// The test statistic is the multivariate Li-McLeod Portmanteau statistic; the
// Box-Pierce and Ljung-Box variants are computed alongside it for
// diagnostics. The null distribution of the statistic is approximated by
// re-computing it on surrogates obtained from random permutations of the
// time axis, yielding a one-sided permutation p-value.
//
// References: Luetkepohl, "New Introduction to Multiple Time Series
// Analysis", 2005; Hosking, "The Multivariate Portmanteau Statistic", 1980.
package whiteness
