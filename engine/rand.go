package engine

import (
	"errors"
	"math"
	"math/rand"
	"sync"
)

// The engine keeps one process-wide generator, mirroring the global random
// state of the underlying statistics machinery. Every task must call Reseed
// before drawing; workers never inherit a meaningfully seeded state from
// their parent. The mutex only makes concurrent in-process use safe, it does
// not make it reproducible: reproducible streams need one task per process.
var global struct {
	mu  sync.Mutex
	src *rand.Rand
}

// seedBurnIn is the number of initial draws discarded after reseeding. The
// first outputs of a freshly seeded generator are poorly mixed and must not
// reach a toy.
const seedBurnIn = 3

// ErrZeroSeed rejects seed 0, which the generator would treat as "derive a
// seed from the clock" and silently break reproducibility.
var ErrZeroSeed = errors.New("seed 0 reseeds from the clock and is not reproducible")

// Reseed resets the global generator to a fixed state derived from seed and
// burns in the first draws. Only the low 32 bits of the seed are
// significant: wider values are truncated exactly the way the generator
// itself truncates, so callers may reserve the high bits for their own
// bookkeeping and two seeds differing only above bit 32 produce identical
// streams.
func Reseed(seed uint64) error {
	if seed == 0 {
		return ErrZeroSeed
	}
	global.mu.Lock()
	defer global.mu.Unlock()
	global.src = rand.New(rand.NewSource(int64(uint32(seed))))
	for i := 0; i < seedBurnIn; i++ {
		global.src.Float64()
	}
	return nil
}

// uniform draws from [0, 1). It panics if Reseed was never called, which is
// a programming error: seeding is a mandatory part of task setup.
func uniform() float64 {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.src.Float64()
}

// normal draws from a Gaussian with the given mean and width.
func normal(mean, sigma float64) float64 {
	global.mu.Lock()
	defer global.mu.Unlock()
	return mean + sigma*global.src.NormFloat64()
}

// poisson draws an event count with the given expectation. Small
// expectations use inversion by sequential search; large ones use the
// Gaussian approximation rounded to the nearest non-negative count.
func poisson(lambda float64) float64 {
	if lambda <= 0 {
		return 0
	}
	if lambda < 30 {
		limit := math.Exp(-lambda)
		product := uniform()
		count := 0.0
		for product > limit {
			count++
			product *= uniform()
		}
		return count
	}
	n := math.Round(normal(lambda, math.Sqrt(lambda)))
	if n < 0 {
		return 0
	}
	return n
}
