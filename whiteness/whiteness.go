package whiteness

import (
	"fmt"
	"math/rand"
	"runtime"
	"sync"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat/distuv"

	"neurovar/tensor"
)

// Options configures a whiteness test. Zero values select the defaults
// noted per field.
type Options struct {
	// MaxLag is the highest lag included in the statistic. Required.
	MaxLag int

	// Order is the order of the VAR model the residuals came from. The
	// first Order samples of each trial are discarded before testing.
	Order int

	// Repeats is the number of permutation draws under the null
	// hypothesis (default 100). The smallest resolvable p-value is
	// 1/Repeats.
	Repeats int

	// Seed for the permutation source; 0 draws a time-based seed.
	Seed int64

	// Workers caps the parallel draw evaluation (default all CPUs).
	Workers int

	// Logger for progress output; nil logs nothing.
	Logger *zap.Logger
}

// Result of a whiteness test.
type Result struct {
	// PValue is the one-sided permutation p-value: the fraction of null
	// draws with a statistic at least as extreme as the observed one.
	PValue float64

	// Q is the observed Li-McLeod statistic at MaxLag.
	Q float64

	// Null holds the surrogate statistics in submission order, one per
	// permutation draw.
	Null []float64

	// AsymptoticP is the chi-squared tail probability of Q with
	// m^2*(MaxLag-Order) degrees of freedom, for cross-checking the
	// permutation result. Floored at zero against round-off.
	AsymptoticP float64

	MaxLag  int
	Repeats int
}

// NullQuantile returns the pct-th percentile of the null distribution.
func (r *Result) NullQuantile(pct float64) float64 {
	q, err := stats.Percentile(r.Null, pct)
	if err != nil {
		return 0
	}
	return q
}

// Test checks residuals for whiteness up to opts.MaxLag.
//
// The observed Li-McLeod statistic is compared against a null distribution
// obtained by permuting the time axis of the residuals opts.Repeats times,
// each draw using its own seeded random source so draws stay independent
// across workers. The null hypothesis (residuals are white) is rejected for
// small p-values, indicating the VAR model does not describe the data
// adequately.
func Test(res *tensor.Tensor, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Repeats <= 0 {
		opts.Repeats = 100
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Order < 0 {
		return nil, fmt.Errorf("whiteness: model order %d, want >= 0", opts.Order)
	}
	if opts.Order >= res.Samples() {
		return nil, fmt.Errorf("whiteness: %d samples per trial leave no effective samples for order %d",
			res.Samples(), opts.Order)
	}

	// The first Order samples are warm-up output, not genuine residuals.
	x := res.TrimSamples(opts.Order)
	t := x.NumTrials()
	n := x.Samples()
	nt := (n - opts.Order) * t
	if opts.MaxLag < 1 || opts.MaxLag >= n {
		return nil, fmt.Errorf("whiteness: max lag %d, want in [1, %d)", opts.MaxLag, n)
	}
	if nt < 1 {
		return nil, fmt.Errorf("whiteness: %d samples per trial leave no effective samples for order %d",
			res.Samples(), opts.Order)
	}

	obs, err := CalcQ(x, opts.MaxLag, nt)
	if err != nil {
		return nil, err
	}
	q := obs.LiMcLeod[opts.MaxLag]

	log.Debug("whiteness test",
		zap.Int("max_lag", opts.MaxLag),
		zap.Int("repeats", opts.Repeats),
		zap.Int("effective_samples", nt),
		zap.Float64("q_observed", q))

	null, err := calcQNull(x, opts, nt)
	if err != nil {
		return nil, err
	}

	exceed := 0
	for _, q0 := range null {
		if q0 >= q {
			exceed++
		}
	}

	dof := x.Channels() * x.Channels() * (opts.MaxLag - opts.Order)
	asymP := 1.0
	if dof > 0 {
		chi2 := distuv.ChiSquared{K: float64(dof)}
		asymP = 1 - chi2.CDF(q)
		if asymP < 0 {
			asymP = 0
		}
	}

	return &Result{
		PValue:      float64(exceed) / float64(opts.Repeats),
		Q:           q,
		Null:        null,
		AsymptoticP: asymP,
		MaxLag:      opts.MaxLag,
		Repeats:     opts.Repeats,
	}, nil
}

// qDraw carries one surrogate statistic back to the aggregator.
type qDraw struct {
	idx int
	q   float64
	err error
}

// calcQNull evaluates the Li-McLeod statistic on opts.Repeats permutation
// surrogates of x. Draws are distributed over a worker pool; each draw gets
// its own seed from a master source so no RNG state is shared. The returned
// slice preserves submission order.
func calcQNull(x *tensor.Tensor, opts Options, nt int) ([]float64, error) {
	master := tensor.NewRand(opts.Seed)
	seeds := make([]int64, opts.Repeats)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	workers := opts.Workers
	if workers > opts.Repeats {
		workers = opts.Repeats
	}

	jobs := make(chan int)
	draws := make(chan qDraw, opts.Repeats)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for b := range jobs {
				rng := rand.New(rand.NewSource(seeds[b]))
				perm, err := x.PermuteSamples(rng.Perm(x.Samples()))
				if err != nil {
					draws <- qDraw{idx: b, err: err}
					continue
				}
				qs, err := CalcQ(perm, opts.MaxLag, nt)
				if err != nil {
					draws <- qDraw{idx: b, err: err}
					continue
				}
				draws <- qDraw{idx: b, q: qs.LiMcLeod[opts.MaxLag]}
			}
		}()
	}

	go func() {
		for b := 0; b < opts.Repeats; b++ {
			jobs <- b
		}
		close(jobs)
	}()

	null := make([]float64, opts.Repeats)
	var firstErr error
	for i := 0; i < opts.Repeats; i++ {
		d := <-draws
		if d.err != nil && firstErr == nil {
			firstErr = fmt.Errorf("whiteness: permutation draw %d: %w", d.idx, d.err)
		}
		null[d.idx] = d.q
	}
	wg.Wait()
	close(draws)

	if firstErr != nil {
		return nil, firstErr
	}
	return null, nil
}
