package core

import (
	"math"

	"github.com/google/btree"
)

// quantileEntry is one GK01 summary tuple (v, g, Δ), ordered by value with
// a monotonic sequence number as a tie-breaker so repeated values remain
// distinct btree items. Grounded on storage/index.go's
// `btree.BTreeG[indexPair]` delta index, which plays the same "ordered
// summary of observed values" role for range scans there.
type quantileEntry struct {
	v     float64
	g     int64
	delta int64
	seq   int64
}

func quantileLess(a, b quantileEntry) bool {
	if a.v != b.v {
		return a.v < b.v
	}
	return a.seq < b.seq
}

// quantileSketch is a GK01 rank-error-bounded quantile sketch: it answers
// rank queries within guaranteed error ε (§3, GLOSSARY).
type quantileSketch struct {
	eps    float64
	n      int64
	seq    int64
	tree   *btree.BTreeG[quantileEntry]
	sinceCompress int64
}

func newQuantileSketch(eps float64) *quantileSketch {
	return &quantileSketch{
		eps:  eps,
		tree: btree.NewG(32, quantileLess),
	}
}

func (q *quantileSketch) observe(v float64) {
	q.seq++
	entry := quantileEntry{v: v, g: 1, seq: q.seq}

	if q.n == 0 {
		entry.delta = 0
	} else {
		// Scan the summary for its smallest and largest entries to decide
		// whether v falls at an extreme (delta=0) or mid-distribution
		// (delta = floor(2*eps*n)).
		isExtreme := false
		var smallest, largest quantileEntry
		has := false
		q.tree.Ascend(func(e quantileEntry) bool {
			if !has {
				smallest = e
				has = true
			}
			largest = e
			return true
		})
		if has && (v <= smallest.v || v >= largest.v) {
			isExtreme = true
		}
		if isExtreme {
			entry.delta = 0
		} else {
			entry.delta = int64(math.Floor(2 * q.eps * float64(q.n)))
		}
	}

	q.tree.ReplaceOrInsert(entry)
	q.n++
	q.sinceCompress++

	compressPeriod := int64(1)
	if q.eps > 0 {
		compressPeriod = int64(1 / (2 * q.eps))
	}
	if compressPeriod < 1 {
		compressPeriod = 1
	}
	if q.sinceCompress >= compressPeriod {
		q.compress()
		q.sinceCompress = 0
	}
}

// compress merges adjacent tuples whose combined band still fits the
// error budget, bounding the summary to O((1/ε) log(εn)) entries.
func (q *quantileSketch) compress() {
	if q.tree.Len() < 3 {
		return
	}
	threshold := int64(math.Floor(2 * q.eps * float64(q.n)))
	entries := make([]quantileEntry, 0, q.tree.Len())
	q.tree.Ascend(func(e quantileEntry) bool {
		entries = append(entries, e)
		return true
	})

	merged := make([]quantileEntry, 0, len(entries))
	merged = append(merged, entries[0])
	for i := 1; i < len(entries)-1; i++ {
		prev := merged[len(merged)-1]
		cur := entries[i]
		if prev.g+cur.g+cur.delta <= threshold {
			prev.g += cur.g
			merged[len(merged)-1] = prev
		} else {
			merged = append(merged, cur)
		}
	}
	merged = append(merged, entries[len(entries)-1])

	newTree := btree.NewG(32, quantileLess)
	for _, e := range merged {
		newTree.ReplaceOrInsert(e)
	}
	q.tree = newTree
}

// quantile returns an estimate of the value at quantile phi (in [0,1])
// within the sketch's guaranteed rank error ε.
func (q *quantileSketch) quantile(phi float64) float64 {
	if q.n == 0 {
		return math.NaN()
	}
	targetRank := phi * float64(q.n)
	errBound := q.eps * float64(q.n)

	var rank int64
	var result float64
	found := false
	q.tree.Ascend(func(e quantileEntry) bool {
		rank += e.g
		if float64(rank)+float64(e.delta) > targetRank+errBound {
			result = e.v
			found = true
			return false
		}
		result = e.v
		return true
	})
	if !found {
		return result
	}
	return result
}

// maxRankError reports the sketch's configured rank error ε as a fraction
// of n (multiply by n for a rank count), used to validate the "sketch
// bounds" testable property (§8).
func (q *quantileSketch) maxRankError() float64 {
	return q.eps
}
