package core

import "math"

// pairEstimator is the "Pair Estimator State" from §3: a Welford
// covariance accumulator, paired-count, and a Spearman-rank accumulator.
// The Spearman accumulator is a small paired reservoir (same Algorithm R
// discipline as the per-column reservoir) over which ranks are computed
// at finalize — the "rank sketch" the spec names, sized the same as the
// column reservoirs so it stays O(R) regardless of N.
type pairEstimator struct {
	i, j  int
	cov   welfordCovariance
	pairs int64
	resX  *reservoir
	resY  *reservoir
}

func newPairEstimator(i, j int, capacity int, seed int64) *pairEstimator {
	return &pairEstimator{
		i: i, j: j,
		resX: newReservoir(capacity, seed+int64(i)),
		resY: newReservoir(capacity, seed+int64(j)+1),
	}
}

func (p *pairEstimator) observe(x, y float64) {
	p.cov.observe(x, y)
	p.pairs++
	// Algorithm R is applied identically (same index stream) to both
	// reservoirs so resX[k] and resY[k] stay paired.
	if p.resX.len() < p.resX.capacity {
		p.resX.values = append(p.resX.values, x)
		p.resY.values = append(p.resY.values, y)
		p.resX.seen++
		p.resY.seen++
		return
	}
	p.resX.seen++
	j := p.resX.rng.Int63n(p.resX.seen)
	if j < int64(p.resX.capacity) {
		p.resX.values[j] = x
		p.resY.values[j] = y
	}
}

// PairStats is the `pairs[]` contract entry (§6).
type PairStats struct {
	I, J    int
	Pearson float64
	Spearman float64
	N        int64
}

func (p *pairEstimator) finalize(stdX, stdY float64) PairStats {
	stats := PairStats{I: p.i, J: p.j, N: p.pairs}
	if p.pairs < 2 || stdX == 0 || stdY == 0 || math.IsNaN(stdX) || math.IsNaN(stdY) {
		stats.Pearson = math.NaN()
	} else {
		stats.Pearson = p.cov.covariance() / (stdX * stdY)
	}
	stats.Spearman = spearmanFromReservoir(p.resX.sample(), p.resY.sample())
	return stats
}

func spearmanFromReservoir(x, y []float64) float64 {
	n := len(x)
	if n < 2 || n != len(y) {
		return math.NaN()
	}
	rx := rankOf(x)
	ry := rankOf(y)
	var cov welfordCovariance
	for i := 0; i < n; i++ {
		cov.observe(rx[i], ry[i])
	}
	var wx, wy welfordMoments
	for i := 0; i < n; i++ {
		wx.observe(rx[i])
		wy.observe(ry[i])
	}
	sx, sy := wx.std(), wy.std()
	if sx == 0 || sy == 0 {
		return math.NaN()
	}
	return cov.covariance() / (sx * sy)
}

// rankOf returns the average (fractional, tie-aware) rank of each element.
func rankOf(values []float64) []float64 {
	n := len(values)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	// insertion sort by value: n is bounded by the reservoir capacity, so
	// this stays cheap without pulling in sort.Slice's closures here.
	for i := 1; i < n; i++ {
		for j := i; j > 0 && values[idx[j]] < values[idx[j-1]]; j-- {
			idx[j], idx[j-1] = idx[j-1], idx[j]
		}
	}
	ranks := make([]float64, n)
	i := 0
	for i < n {
		j := i
		for j+1 < n && values[idx[j+1]] == values[idx[i]] {
			j++
		}
		avgRank := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avgRank
		}
		i = j + 1
	}
	return ranks
}

// selectPairColumns picks up to k numerical columns with the highest
// variance (ties broken by column index), per §4.F's pair-selection policy.
func selectPairColumns(variances map[int]float64, k int) []int {
	type vc struct {
		idx int
		v   float64
	}
	list := make([]vc, 0, len(variances))
	for idx, v := range variances {
		list = append(list, vc{idx, v})
	}
	for i := 1; i < len(list); i++ {
		for j := i; j > 0; j-- {
			a, b := list[j], list[j-1]
			if a.v > b.v || (a.v == b.v && a.idx < b.idx) {
				list[j], list[j-1] = list[j-1], list[j]
			} else {
				break
			}
		}
	}
	if k > 0 && k < len(list) {
		list = list[:k]
	}
	out := make([]int, len(list))
	for i, e := range list {
		out[i] = e.idx
	}
	return out
}
