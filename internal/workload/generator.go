// Package workload synthesizes keys, value sizes, key sizes, and
// inter-arrival times for a single connection's request stream.
//
// Each generator is a pure function of an internal, per-connection RNG
// state (spec.md §9: "per-connection determinism requires threading an RNG
// into the connection rather than using a process-wide PRNG"). Nothing here
// is shared across connections.
package workload

import (
	"math"
	"math/rand"

	"github.com/dgryski/go-pcgr"

	"github.com/andrewbartolo/mutilate/internal/options"
)

// KeyGenerator renders an integer key index into its wire-level key string.
type KeyGenerator interface {
	Render(index int) string
}

// SizeGenerator samples an integer size (key length or value length).
type SizeGenerator interface {
	Sample() int
}

// IAGenerator samples an inter-arrival delay, in seconds.
type IAGenerator interface {
	Sample() float64
}

// Rand is the per-connection random source. It wraps a pcgr.Rand (a small,
// fast PCG generator well suited to being reseeded independently per
// connection) with the sampling methods the generators need.
type Rand struct {
	src  pcgr.Rand
	rand *rand.Rand
}

// NewRand seeds a per-connection RNG. Two connections seeded with different
// seed values produce statistically independent streams.
func NewRand(seed int64) *Rand {
	src := pcgr.New(seed, 0)
	return &Rand{src: src, rand: rand.New(&src)}
}

// Intn returns a uniform integer in [0, n).
func (r *Rand) Intn(n int) int { return r.rand.Intn(n) }

// Float64 returns a uniform float in [0, 1).
func (r *Rand) Float64() float64 { return r.rand.Float64() }

// NormFloat64 returns a standard-normal sample (mean 0, stddev 1).
func (r *Rand) NormFloat64() float64 { return r.rand.NormFloat64() }

// ExpFloat64 returns a standard-exponential sample (rate 1).
func (r *Rand) ExpFloat64() float64 { return r.rand.ExpFloat64() }

// sizeGenerator adapts an options.Distribution into a SizeGenerator.
type sizeGenerator struct {
	dist options.Distribution
	r    *Rand
}

// NewSizeGenerator builds the SizeGenerator described by dist, sampling from r.
func NewSizeGenerator(dist options.Distribution, r *Rand) SizeGenerator {
	return &sizeGenerator{dist: dist, r: r}
}

func (g *sizeGenerator) Sample() int {
	var v float64
	switch g.dist.Kind {
	case options.DistNormal:
		v = g.dist.Mean + g.r.NormFloat64()*g.dist.StdDev
	case options.DistExponential:
		mean := g.dist.Mean
		if mean <= 0 {
			mean = 1
		}
		v = g.r.ExpFloat64() * mean
	default: // DistFixed and anything else
		v = g.dist.Mean
	}
	n := int(math.Round(v))
	if n < 1 {
		n = 1
	}
	return n
}

// iaGenerator adapts an options.Distribution (or a bare lambda) into an
// IAGenerator producing a Poisson arrival process: inter-arrival times are
// exponentially distributed with mean 1/lambda.
type iaGenerator struct {
	mean float64 // seconds; 0 means "no pacing" (best effort)
	r    *Rand
}

// NewIAGenerator builds the inter-arrival generator for a connection. If
// dist carries a non-zero Mean it takes precedence (spec.md §3 `ia`);
// otherwise lambda (spec.md §3 `lambda`) is used directly. lambda <= 0
// reduces to d = 0, i.e. issue as fast as depth allows (spec.md §4.4).
// Only dist.Mean is read: dist.Kind and dist.StdDev are ignored, so a
// fixed or normal descriptor also yields exponential inter-arrival times.
func NewIAGenerator(dist options.Distribution, lambda float64, r *Rand) IAGenerator {
	mean := dist.Mean
	if mean == 0 && lambda > 0 {
		mean = 1 / lambda
	}
	return &iaGenerator{mean: mean, r: r}
}

func (g *iaGenerator) Sample() float64 {
	if g.mean <= 0 {
		return 0
	}
	return g.r.ExpFloat64() * g.mean
}
