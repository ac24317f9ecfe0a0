package core

import (
	"sort"
	"strings"
)

// Phase is one of the kernel's three linear phases (§4.F): Profiling,
// Streaming, Finalized. Transitions are one-way; no re-entry.
type Phase int

const (
	PhaseProfiling Phase = iota
	PhaseStreaming
	PhaseFinalized
)

// Kernel is the single-pass online estimator bank (§4.F): one
// ColumnEstimator per column, plus one pairEstimator per selected
// numerical column pair, finalizing derived statistics at EOS.
type Kernel struct {
	cfg           Config
	descs         []ColumnDescriptor
	estimators    []ColumnEstimator
	numericIdx    []int
	pairs         map[[2]int]*pairEstimator
	rowsProcessed int64
	rowsMalformed int64
	rowHash       *heavyHitters
	phase         Phase
	diag          *diagnosticLog
	cachedOutput  KernelOutput
	mvCols        []int
	mv            *jointReservoir
}

// NewKernel constructs the estimator bank from the fixed descriptor set
// produced by the Type Inferencer (§3: "Descriptor set is fixed after
// first N_PROFILE rows").
func NewKernel(cfg Config, descs []ColumnDescriptor, diag *diagnosticLog) *Kernel {
	k := &Kernel{
		cfg: cfg, descs: descs, phase: PhaseStreaming,
		rowHash: newHeavyHitters(4096), diag: diag,
		pairs: make(map[[2]int]*pairEstimator),
	}
	k.estimators = make([]ColumnEstimator, len(descs))
	for i, d := range descs {
		switch d.Type {
		case TypeInteger, TypeFloat:
			k.estimators[i] = newNumericEstimator(d, cfg)
			k.numericIdx = append(k.numericIdx, i)
		case TypeDateTime:
			k.estimators[i] = newDateTimeEstimator(d, cfg)
		default:
			k.estimators[i] = newCategoricalEstimator(d, cfg)
		}
	}
	k.initPairs()
	return k
}

// initPairs instantiates a Welford covariance accumulator for every
// (i, j) with i<j among numerical columns, bounded to at most P pairs
// (§3's Pair Estimator State invariant).
func (k *Kernel) initPairs() {
	cols := k.numericIdx
	maxCols := k.cfg.TopVarianceColumns
	if maxCols < 64 {
		maxCols = 64 // default policy: cover all pairs up to 64 numerical columns
	}
	if len(cols) > maxCols {
		cols = cols[:maxCols]
	}
	cap := k.cfg.ReservoirCapacity
	seed := k.cfg.ReservoirSeed
	count := 0
	for a := 0; a < len(cols); a++ {
		for b := a + 1; b < len(cols); b++ {
			if k.cfg.MaxNumericalPairs > 0 && count >= k.cfg.MaxNumericalPairs {
				return
			}
			i, j := cols[a], cols[b]
			k.pairs[[2]int{i, j}] = newPairEstimator(i, j, cap, seed)
			count++
		}
	}

	if len(cols) >= 2 {
		k.mvCols = cols
		k.mv = newJointReservoir(cols, cap, seed+9973)
	}
}

// Update admits one record to the kernel (§4.F: "invoked once per
// non-malformed record after the profiling prefix is complete"; here it
// is also the single entry point used during streaming regardless of
// phase, since the Type Inferencer owns the profiling buffer upstream).
func (k *Kernel) Update(rec *Record) {
	if rec.Malformed {
		k.rowsMalformed++
		return
	}
	k.rowsProcessed++

	values := make([]string, len(k.descs))
	for i := range k.descs {
		var v string
		if i < rec.NumFields() {
			v = rec.Field(i)
		}
		values[i] = v
		missing := isMissingToken(v)
		if !missing && !k.estimators[i].conforms(v) && k.diag != nil {
			k.diag.add(Diagnostic{Kind: DiagParseNonConformance, Message: "value did not parse under the decided column type", RowIdx: rec.RowIndex, Column: i})
		}
		k.estimators[i].observe(v, missing)
	}

	cache := k.numericCache(values)
	k.updatePairs(cache)
	k.updateMultivariate(cache)
	k.rowHash.observe(strings.Join(values, "\x1f"))
}

// numericCache parses every candidate numerical column's raw value once
// per row, shared by updatePairs and updateMultivariate so a row's
// columns aren't re-parsed for each downstream consumer.
func (k *Kernel) numericCache(values []string) map[int]float64 {
	cache := make(map[int]float64, len(k.numericIdx))
	for _, idx := range k.numericIdx {
		if v, ok := k.estimators[idx].numericValue(values[idx]); ok {
			cache[idx] = v
		}
	}
	return cache
}

func (k *Kernel) updatePairs(cache map[int]float64) {
	for pair, est := range k.pairs {
		x, ok1 := cache[pair[0]]
		y, ok2 := cache[pair[1]]
		if ok1 && ok2 {
			est.observe(x, y)
		}
	}
}

// updateMultivariate feeds one joint vector into the multivariate
// reservoir, skipping the row entirely if any selected column's value is
// missing/non-conforming — PCA and k-means both need a complete vector,
// unlike the pairwise estimators which tolerate missing values per pair.
func (k *Kernel) updateMultivariate(cache map[int]float64) {
	if k.mv == nil {
		return
	}
	vec := make([]float64, len(k.mvCols))
	for i, idx := range k.mvCols {
		v, ok := cache[idx]
		if !ok {
			return
		}
		vec[i] = v
	}
	k.mv.observe(vec)
}

// KernelOutput bundles everything the aggregator (§4.H) needs: the
// finalized per-column stats, the selected pair stats, and structural
// counters.
type KernelOutput struct {
	Columns       []ColumnStats
	Pairs         []PairStats
	Multivariate  *MultivariateReport
	RowsProcessed int64
	RowsMalformed int64
	DuplicateRows int64
}

// Finalize transitions the kernel to Finalized and derives every
// statistic named in §4.F. One-way: calling Finalize twice is a caller
// bug, not a recoverable condition, so it simply returns the same
// snapshot computed once.
func (k *Kernel) Finalize() KernelOutput {
	if k.phase == PhaseFinalized {
		return k.cachedOutput
	}
	k.phase = PhaseFinalized
	out := k.snapshot()
	k.cachedOutput = out
	return out
}

// Snapshot derives the same statistics as Finalize without transitioning
// the kernel's phase, for mid-stream checkpointing (§12): a caller can
// take a Snapshot at any point during Streaming and keep feeding Update
// afterward.
func (k *Kernel) Snapshot() KernelOutput {
	if k.phase == PhaseFinalized {
		return k.cachedOutput
	}
	return k.snapshot()
}

func (k *Kernel) snapshot() KernelOutput {
	cols := make([]ColumnStats, len(k.estimators))
	variances := make(map[int]float64, len(k.numericIdx))
	for i, est := range k.estimators {
		cols[i] = est.finalize(k.cfg)
		if v := est.variance(); v == v { // not NaN
			variances[i] = v
		}
	}

	selected := selectPairColumns(variances, k.cfg.TopVarianceColumns)

	var pairStats []PairStats
	// stable order: iterate selected columns in ascending index for i<j pairs
	sortedSelected := append([]int(nil), selected...)
	sort.Ints(sortedSelected)
	for a := 0; a < len(sortedSelected); a++ {
		for b := a + 1; b < len(sortedSelected); b++ {
			i, j := sortedSelected[a], sortedSelected[b]
			key := [2]int{i, j}
			pe, ok := k.pairs[key]
			if !ok {
				continue
			}
			stdI, stdJ := stdOf(cols, i), stdOf(cols, j)
			pairStats = append(pairStats, pe.finalize(stdI, stdJ))
		}
	}

	dup := k.estimateDuplicateRows()
	mv := computeMultivariate(k.mv, k.cfg)

	return KernelOutput{
		Columns: cols, Pairs: pairStats, Multivariate: mv,
		RowsProcessed: k.rowsProcessed, RowsMalformed: k.rowsMalformed,
		DuplicateRows: dup,
	}
}

func stdOf(cols []ColumnStats, idx int) float64 {
	if idx < 0 || idx >= len(cols) {
		return 0
	}
	return cols[idx].Std
}

// estimateDuplicateRows approximates duplicate-row count from the
// row-hash heavy-hitter sketch's retained counts (§4.G Uniqueness
// dimension): for every tracked hash with count>1, count-1 rows beyond
// the first are "duplicates".
func (k *Kernel) estimateDuplicateRows() int64 {
	var dup int64
	for _, c := range k.rowHash.counts {
		if c > 1 {
			dup += c - 1
		}
	}
	return dup
}
