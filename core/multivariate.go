package core

import (
	"math"
	"math/rand"
)

// jointReservoir samples whole numerical-row vectors with Algorithm R,
// the same discipline the per-column reservoir and pairEstimator use, just
// generalized from a scalar stream to a fixed-width vector stream. This is
// the multivariate section's only raw-value buffer, bounded to R vectors
// of len(cols) floats regardless of row count (§4.A's bounded-memory rule
// extends to the derived multivariate inputs, not just per-column state).
type jointReservoir struct {
	cols     []int
	capacity int
	seen     int64
	rows     [][]float64
	rng      *rand.Rand
}

func newJointReservoir(cols []int, capacity int, seed int64) *jointReservoir {
	return &jointReservoir{
		cols: cols, capacity: capacity,
		rows: make([][]float64, 0, capacity),
		rng:  rand.New(rand.NewSource(seed)),
	}
}

func (j *jointReservoir) observe(vec []float64) {
	j.seen++
	if len(j.rows) < j.capacity {
		cp := append([]float64(nil), vec...)
		j.rows = append(j.rows, cp)
		return
	}
	idx := j.rng.Int63n(j.seen)
	if idx < int64(j.capacity) {
		copy(j.rows[idx], vec)
	}
}

// PCAResult is the `multivariate.pca` Report entry (§6, §12): explained
// variance ratio per retained component and each component's loading
// vector over the selected numerical columns.
type PCAResult struct {
	Columns           []int       `json:"columns"`
	ExplainedVariance []float64   `json:"explained_variance"`
	Loadings          [][]float64 `json:"loadings"`
}

// ClusterResult is the `multivariate.clusters` Report entry (§6, §12): a
// k-means summary over the same selected-column sample PCA uses.
type ClusterResult struct {
	K           int         `json:"k"`
	Centers     [][]float64 `json:"centers"`
	Sizes       []int       `json:"sizes"`
	Silhouette  float64     `json:"silhouette"`
}

// computeMultivariate runs PCA and/or k-means over the joint reservoir,
// standardizing each column (zero mean, unit variance) first so that
// columns on different scales don't dominate either analysis.
func computeMultivariate(jr *jointReservoir, cfg Config) *MultivariateReport {
	if jr == nil || len(jr.rows) < 3 || len(jr.cols) < 2 {
		return nil
	}
	standardized, ok := standardizeRows(jr.rows)
	if !ok {
		return nil
	}
	var out MultivariateReport
	if cfg.EnablePCA {
		if pca := computePCA(standardized, jr.cols); pca != nil {
			out.PCA = pca
		}
	}
	if cfg.EnableClusters != 0 {
		k := cfg.EnableClusters
		if k < 0 {
			k = elbowK(standardized)
		}
		if clusters := computeKMeans(standardized, k); clusters != nil {
			out.Clusters = clusters
		}
	}
	if out.PCA == nil && out.Clusters == nil {
		return nil
	}
	return &out
}

// standardizeRows rescales every column to zero mean, unit variance.
// Returns ok=false if any column has zero variance (standardization is
// then undefined, and a variance-dominated PCA/k-means would be
// meaningless for that column anyway).
func standardizeRows(rows [][]float64) ([][]float64, bool) {
	n := len(rows)
	d := len(rows[0])
	means := make([]float64, d)
	for _, r := range rows {
		for j, v := range r {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(n)
	}
	stds := make([]float64, d)
	for _, r := range rows {
		for j, v := range r {
			dv := v - means[j]
			stds[j] += dv * dv
		}
	}
	for j := range stds {
		stds[j] = math.Sqrt(stds[j] / float64(n))
		if stds[j] == 0 {
			return nil, false
		}
	}
	out := make([][]float64, n)
	for i, r := range rows {
		row := make([]float64, d)
		for j, v := range r {
			row[j] = (v - means[j]) / stds[j]
		}
		out[i] = row
	}
	return out, true
}

// computePCA extracts up to min(3, d) principal components via power
// iteration with deflation over the sample covariance matrix — no matrix
// library is available in the corpus (no example repo imports gonum or an
// equivalent), so this stays in plain slices-of-slices rather than pulling
// one in unjustified.
func computePCA(rows [][]float64, cols []int) *PCAResult {
	d := len(cols)
	cov := covarianceMatrix(rows)
	nComponents := 3
	if d < nComponents {
		nComponents = d
	}
	var totalVar float64
	for i := 0; i < d; i++ {
		totalVar += cov[i][i]
	}
	if totalVar == 0 {
		return nil
	}

	loadings := make([][]float64, 0, nComponents)
	explained := make([]float64, 0, nComponents)
	working := cloneMatrix(cov)
	for c := 0; c < nComponents; c++ {
		vec, eigenvalue := powerIteration(working, d)
		if vec == nil {
			break
		}
		loadings = append(loadings, vec)
		explained = append(explained, eigenvalue/totalVar)
		deflate(working, vec, eigenvalue, d)
	}
	if len(loadings) == 0 {
		return nil
	}
	return &PCAResult{Columns: append([]int(nil), cols...), ExplainedVariance: explained, Loadings: loadings}
}

func covarianceMatrix(rows [][]float64) [][]float64 {
	n := len(rows)
	d := len(rows[0])
	cov := make([][]float64, d)
	for i := range cov {
		cov[i] = make([]float64, d)
	}
	for a := 0; a < d; a++ {
		for b := a; b < d; b++ {
			var sum float64
			for _, r := range rows {
				sum += r[a] * r[b]
			}
			v := sum / float64(n-1)
			cov[a][b] = v
			cov[b][a] = v
		}
	}
	return cov
}

func cloneMatrix(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// powerIteration finds the dominant eigenvector/eigenvalue of a symmetric
// matrix, iterating until convergence or a fixed cap.
func powerIteration(m [][]float64, d int) ([]float64, float64) {
	vec := make([]float64, d)
	for i := range vec {
		vec[i] = 1.0 / math.Sqrt(float64(d))
	}
	var eigenvalue float64
	for iter := 0; iter < 200; iter++ {
		next := matVec(m, vec)
		norm := vectorNorm(next)
		if norm == 0 {
			return nil, 0
		}
		for i := range next {
			next[i] /= norm
		}
		diff := 0.0
		for i := range next {
			diff += math.Abs(next[i] - vec[i])
		}
		vec = next
		eigenvalue = norm
		if diff < 1e-9 {
			break
		}
	}
	return vec, eigenvalue
}

func matVec(m [][]float64, v []float64) []float64 {
	out := make([]float64, len(m))
	for i, row := range m {
		var sum float64
		for j, x := range row {
			sum += x * v[j]
		}
		out[i] = sum
	}
	return out
}

func vectorNorm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// deflate subtracts the found component's contribution from the working
// matrix (Hotelling's deflation) so the next power iteration converges to
// the next-largest eigenvalue.
func deflate(m [][]float64, vec []float64, eigenvalue float64, d int) {
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			m[i][j] -= eigenvalue * vec[i] * vec[j]
		}
	}
}

// computeKMeans runs Lloyd's algorithm with a deterministic init (k rows
// evenly spaced through the sample) and reports the mean silhouette
// coefficient.
func computeKMeans(rows [][]float64, k int) *ClusterResult {
	n := len(rows)
	if k < 2 || k >= n {
		return nil
	}
	centers := make([][]float64, k)
	for i := 0; i < k; i++ {
		centers[i] = append([]float64(nil), rows[i*n/k]...)
	}
	assignments := make([]int, n)
	for iter := 0; iter < 100; iter++ {
		changed := false
		for i, r := range rows {
			best, bestDist := 0, math.Inf(1)
			for c, center := range centers {
				dist := squaredDist(r, center)
				if dist < bestDist {
					best, bestDist = c, dist
				}
			}
			if assignments[i] != best {
				changed = true
			}
			assignments[i] = best
		}
		centers = recomputeCenters(rows, assignments, k, len(rows[0]))
		if !changed {
			break
		}
	}
	sizes := make([]int, k)
	for _, a := range assignments {
		sizes[a]++
	}
	return &ClusterResult{
		K: k, Centers: centers, Sizes: sizes,
		Silhouette: meanSilhouette(rows, assignments, k),
	}
}

func recomputeCenters(rows [][]float64, assignments []int, k, d int) [][]float64 {
	sums := make([][]float64, k)
	counts := make([]int, k)
	for i := range sums {
		sums[i] = make([]float64, d)
	}
	for i, r := range rows {
		a := assignments[i]
		counts[a]++
		for j, v := range r {
			sums[a][j] += v
		}
	}
	for c := 0; c < k; c++ {
		if counts[c] == 0 {
			continue
		}
		for j := range sums[c] {
			sums[c][j] /= float64(counts[c])
		}
	}
	return sums
}

func squaredDist(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// meanSilhouette computes the standard silhouette coefficient, capped to a
// sample of 500 rows to keep the O(n^2) pairwise distance cost bounded.
func meanSilhouette(rows [][]float64, assignments []int, k int) float64 {
	n := len(rows)
	if n > 500 {
		n = 500
	}
	if n < 2 {
		return 0
	}
	var total float64
	var counted int
	for i := 0; i < n; i++ {
		own := assignments[i]
		var aSum float64
		var aCount int
		bBest := math.Inf(1)
		otherSums := make([]float64, k)
		otherCounts := make([]int, k)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			d := math.Sqrt(squaredDist(rows[i], rows[j]))
			if assignments[j] == own {
				aSum += d
				aCount++
			} else {
				otherSums[assignments[j]] += d
				otherCounts[assignments[j]]++
			}
		}
		if aCount == 0 {
			continue
		}
		a := aSum / float64(aCount)
		for c := 0; c < k; c++ {
			if c == own || otherCounts[c] == 0 {
				continue
			}
			avg := otherSums[c] / float64(otherCounts[c])
			if avg < bBest {
				bBest = avg
			}
		}
		if math.IsInf(bBest, 1) {
			continue
		}
		s := (bBest - a) / math.Max(a, bBest)
		total += s
		counted++
	}
	if counted == 0 {
		return 0
	}
	return total / float64(counted)
}

// elbowK picks a small k via a coarse elbow heuristic over 2..6 clusters,
// used when Config.EnableClusters requests automatic selection (-1).
func elbowK(rows [][]float64) int {
	const maxK = 6
	n := len(rows)
	if n < 4 {
		return 0
	}
	bestK, bestRatio := 2, -1.0
	var prevInertia float64
	for k := 2; k <= maxK && k < n; k++ {
		res := computeKMeans(rows, k)
		if res == nil {
			continue
		}
		inertia := inertiaOf(rows, res)
		if k > 2 && prevInertia > 0 {
			drop := (prevInertia - inertia) / prevInertia
			if drop > bestRatio {
				bestRatio, bestK = drop, k
			}
		}
		prevInertia = inertia
	}
	return bestK
}

func inertiaOf(rows [][]float64, res *ClusterResult) float64 {
	var sum float64
	for _, r := range rows {
		best := math.Inf(1)
		for _, c := range res.Centers {
			d := squaredDist(r, c)
			if d < best {
				best = d
			}
		}
		sum += best
	}
	return sum
}
