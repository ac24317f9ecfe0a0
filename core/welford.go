package core

import "math"

// welfordMoments is the numerically stable one-pass recurrence for running
// mean and central moments M2, M3, M4 (§3, §4.F), generalized over the
// teacher's per-width numeric dispatch style (scm/alu.go) into a single
// implementation used for every numerical column.
type welfordMoments struct {
	n          int64
	mean       float64
	m2, m3, m4 float64
	min, max   float64
	haveMinMax bool
}

func (w *welfordMoments) observe(x float64) {
	n1 := float64(w.n)
	w.n++
	n := float64(w.n)
	delta := x - w.mean
	deltaN := delta / n
	deltaN2 := deltaN * deltaN
	term1 := delta * deltaN * n1
	w.mean += deltaN
	w.m4 += term1*deltaN2*(n*n-3*n+3) + 6*deltaN2*w.m2 - 4*deltaN*w.m3
	w.m3 += term1*deltaN*(n-2) - 3*deltaN*w.m2
	w.m2 += term1

	if !w.haveMinMax || x < w.min {
		w.min = x
	}
	if !w.haveMinMax || x > w.max {
		w.max = x
	}
	w.haveMinMax = true
}

func (w *welfordMoments) variance() float64 {
	if w.n < 2 {
		return math.NaN()
	}
	return w.m2 / float64(w.n-1)
}

func (w *welfordMoments) std() float64 {
	v := w.variance()
	if math.IsNaN(v) || v < 0 {
		return math.NaN()
	}
	return math.Sqrt(v)
}

func (w *welfordMoments) cv() float64 {
	if w.mean == 0 {
		return math.NaN()
	}
	return w.std() / w.mean
}

// skewness returns the bias-corrected (sample) skewness, or NaN when n<3
// per the §4.F edge-case policy.
func (w *welfordMoments) skewness() float64 {
	n := float64(w.n)
	if w.n < 3 || w.m2 == 0 {
		return math.NaN()
	}
	g1 := (math.Sqrt(n) * w.m3) / math.Pow(w.m2, 1.5)
	return math.Sqrt(n*(n-1)) / (n - 2) * g1
}

// kurtosis returns the excess kurtosis (i.e. kurtosis − 3), or NaN when
// n<3 or n==3 (division by (n-2)(n-3)).
func (w *welfordMoments) kurtosis() float64 {
	n := float64(w.n)
	if w.n < 4 || w.m2 == 0 {
		return math.NaN()
	}
	g2 := (n * w.m4) / (w.m2 * w.m2)
	return ((n - 1) / ((n - 2) * (n - 3))) * ((n+1)*g2 - 3*(n-1))
}

// welfordCovariance is the paired accumulator used by the bivariate
// covariance/Pearson statistics (§3, §4.F "Pair Estimator State").
type welfordCovariance struct {
	n          int64
	meanX      float64
	meanY      float64
	c          float64 // running sum of (x-meanXprev)(y-meanY)
}

func (w *welfordCovariance) observe(x, y float64) {
	w.n++
	n := float64(w.n)
	dx := x - w.meanX
	w.meanX += dx / n
	w.meanY += (y - w.meanY) / n
	w.c += dx * (y - w.meanY)
}

func (w *welfordCovariance) covariance() float64 {
	if w.n < 2 {
		return math.NaN()
	}
	return w.c / float64(w.n-1)
}
