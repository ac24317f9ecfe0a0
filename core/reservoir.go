package core

import "math/rand"

// reservoir is a fixed-capacity uniformly-drawn subset of a stream,
// maintained with Algorithm R (§3, GLOSSARY). After count ≥ R the sample
// is drawn uniformly without replacement from the observed values.
type reservoir struct {
	capacity int
	seen     int64
	values   []float64
	rng      *rand.Rand
}

func newReservoir(capacity int, seed int64) *reservoir {
	return &reservoir{
		capacity: capacity,
		values:   make([]float64, 0, capacity),
		rng:      rand.New(rand.NewSource(seed)),
	}
}

func (r *reservoir) observe(x float64) {
	r.seen++
	if len(r.values) < r.capacity {
		r.values = append(r.values, x)
		return
	}
	j := r.rng.Int63n(r.seen)
	if j < int64(r.capacity) {
		r.values[j] = x
	}
}

// sample returns the current reservoir contents. Callers that need a
// stable ordering (e.g. for a second-pass median) must sort a copy.
func (r *reservoir) sample() []float64 {
	return r.values
}

func (r *reservoir) len() int { return len(r.values) }
