package core

import (
	"math"
	"strconv"
	"strings"
)

// LabelLengthStats is the categorical/text `label_length_stats` entry.
type LabelLengthStats struct {
	Min        int     `json:"min"`
	Max        int     `json:"max"`
	Mean       float64 `json:"mean"`
	EmptyCount int64   `json:"empty_count"`
}

// DateTimeStats is the `datetime_stats` entry.
type DateTimeStats struct {
	Min         int64    `json:"min"` // unix seconds
	Max         int64    `json:"max"`
	Granularity string   `json:"granularity"`
	DayOfWeek   [7]int64 `json:"day_of_week_histogram"`
	Month       [12]int64 `json:"month_histogram"`
	Hour        [24]int64 `json:"hour_histogram"`
}

// Quantiles is the fixed rank set the contract requires (§6).
type Quantiles struct {
	Q01 float64 `json:"p01"`
	Q05 float64 `json:"p05"`
	Q10 float64 `json:"p10"`
	Q25 float64 `json:"p25"`
	Q50 float64 `json:"p50"`
	Q75 float64 `json:"p75"`
	Q90 float64 `json:"p90"`
	Q95 float64 `json:"p95"`
	Q99 float64 `json:"p99"`
}

// ColumnStats is one `columns[]` entry of the Report contract (§6). Mean,
// Std, Skewness, Kurtosis, MAD and IQR are tagged "-" here: ColumnStats's
// custom MarshalJSON (report.go) re-emits them under their lowercase names
// as nullable floats, since encoding/json refuses to serialize a bare NaN.
type ColumnStats struct {
	Index                 int     `json:"index"`
	Name                  string  `json:"name"`
	PrimaryType           string  `json:"primary_type"`
	PrimaryTypeConfidence float64 `json:"primary_type_confidence"`
	SemanticTag           string  `json:"semantic_tag"`

	Count            int64   `json:"count"`
	Missing          int64   `json:"missing"`
	DistinctEstimate float64 `json:"distinct_estimate"`

	Min, Max      *float64   `json:"-"`
	Quantiles     *Quantiles `json:"quantiles,omitempty"`
	Mean          float64    `json:"-"`
	Std           float64    `json:"-"`
	Skewness      float64    `json:"-"`
	Kurtosis      float64    `json:"-"`
	MAD           float64    `json:"-"`
	IQR           float64    `json:"-"`
	ZeroCount     int64      `json:"zero_count"`
	NegativeCount int64      `json:"negative_count"`

	TopValues []freqEntry     `json:"top_values,omitempty"`
	Outliers  *OutlierReport  `json:"outliers,omitempty"`
	Normality *NormalityTriad `json:"normality,omitempty"`

	LabelLengthStats *LabelLengthStats `json:"label_length_stats,omitempty"`
	DateTimeStats    *DateTimeStats    `json:"datetime_stats,omitempty"`

	ParseConformance float64 `json:"parse_conformance"` // fraction of non-missing values that parsed under PrimaryType
	ReservoirSize    int     `json:"reservoir_size"`
	ZeroVariance     bool    `json:"zero_variance"`
}

// ColumnEstimator is the small dispatch interface every per-column engine
// implements, mirroring the teacher's ColumnStorage
// (prepare/scan/proposeCompression/init/build/finish) shape collapsed to
// the two verbs this kernel actually needs: feed a value in, read a
// finalized statistic out.
type ColumnEstimator interface {
	observe(raw string, missing bool)
	finalize(cfg Config) ColumnStats
	variance() float64 // NaN for non-numeric estimators; used for pair selection
	numericValue(raw string) (float64, bool)
	conforms(raw string) bool // whether raw parses under this column's decided type
}

// baseCounters are shared by every estimator kind.
type baseCounters struct {
	desc    ColumnDescriptor
	count   int64
	missing int64
	conform int64 // values that parsed under the decided type
	nonConform int64
	hll     *hyperLogLog
	promoted PrimaryType // widened type under streaming evidence (§4.E promotion lattice)
}

func (b *baseCounters) observeCommon(raw string, missing bool, conforms bool) {
	if missing {
		b.missing++
		return
	}
	b.count++
	if conforms {
		b.conform++
	} else {
		b.nonConform++
	}
	if b.hll != nil {
		b.hll.observe(raw)
	}
}

func (b *baseCounters) conformance() float64 {
	n := b.conform + b.nonConform
	if n == 0 {
		return 1
	}
	return float64(b.conform) / float64(n)
}

// NumericEstimator covers integer and float columns (§3, §4.F numerical
// online updates).
type NumericEstimator struct {
	baseCounters
	w         welfordMoments
	res       *reservoir
	q         *quantileSketch
	zero, neg int64
}

func newNumericEstimator(desc ColumnDescriptor, cfg Config) *NumericEstimator {
	return &NumericEstimator{
		baseCounters: baseCounters{desc: desc, promoted: desc.Type, hll: newHyperLogLog(cfg.DistinctSketchError)},
		res:          newReservoir(cfg.ReservoirCapacity, cfg.ReservoirSeed+int64(desc.Index)),
		q:            newQuantileSketch(cfg.QuantileEpsilon),
	}
}

func (e *NumericEstimator) numericValue(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func (e *NumericEstimator) observe(raw string, missing bool) {
	if missing {
		e.observeCommon(raw, true, false)
		return
	}
	// widen the reported type under streaming evidence (§4.E): integer may
	// widen to float, either may widen to text; never narrows back.
	e.promoted = PromoteType(e.promoted, raw)
	v, ok := e.numericValue(raw)
	if !ok {
		e.observeCommon(raw, false, false)
		return
	}
	e.observeCommon(raw, false, true)
	e.w.observe(v)
	e.res.observe(v)
	e.q.observe(v)
	if v == 0 {
		e.zero++
	}
	if v < 0 {
		e.neg++
	}
}

func (e *NumericEstimator) variance() float64 {
	return e.w.variance()
}

func (e *NumericEstimator) conforms(raw string) bool {
	_, ok := e.numericValue(raw)
	return ok
}

func (e *NumericEstimator) finalize(cfg Config) ColumnStats {
	cs := ColumnStats{
		Index: e.desc.Index, Name: e.desc.Name,
		PrimaryType: e.promoted.String(), PrimaryTypeConfidence: e.desc.Confidence,
		SemanticTag: e.desc.Semantic.String(),
		Count: e.count, Missing: e.missing,
		ZeroCount: e.zero, NegativeCount: e.neg,
		ParseConformance: e.conformance(),
		ReservoirSize:    e.res.len(),
	}
	if e.hll != nil {
		cs.DistinctEstimate = e.hll.estimate()
	}
	if e.count == 0 {
		// all-missing column: suppress all derived stats (§4.F edge case).
		cs.Mean, cs.Std, cs.Skewness, cs.Kurtosis = math.NaN(), math.NaN(), math.NaN(), math.NaN()
		return cs
	}
	mn, mx := e.w.min, e.w.max
	cs.Min, cs.Max = &mn, &mx
	cs.Mean = e.w.mean
	cs.Std = e.w.std()
	cs.ZeroVariance = e.w.variance() == 0
	if e.count < 3 {
		cs.Skewness, cs.Kurtosis = math.NaN(), math.NaN()
	} else {
		cs.Skewness = e.w.skewness()
		cs.Kurtosis = e.w.kurtosis()
	}

	sorted := sortedCopy(e.res.sample())
	cs.MAD = medianAbsoluteDeviation(sorted)
	q1 := percentileSorted(sorted, 0.25)
	q3 := percentileSorted(sorted, 0.75)
	cs.IQR = q3 - q1
	cs.Quantiles = &Quantiles{
		Q01: e.q.quantile(0.01), Q05: e.q.quantile(0.05), Q10: e.q.quantile(0.10),
		Q25: e.q.quantile(0.25), Q50: e.q.quantile(0.50), Q75: e.q.quantile(0.75),
		Q90: e.q.quantile(0.90), Q95: e.q.quantile(0.95), Q99: e.q.quantile(0.99),
	}

	if len(sorted) > 0 {
		out := computeOutliers(sorted, cs.Mean, cs.Std, cs.MAD)
		cs.Outliers = &out
	}
	if e.count >= 3 {
		triad := computeNormalityTriad(sorted, e.count, cs.Mean, cs.Std, cs.Skewness, cs.Kurtosis)
		cs.Normality = &triad
	}
	return cs
}

func sortedCopy(vals []float64) []float64 {
	out := append([]float64(nil), vals...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// CategoricalEstimator covers categorical, boolean, and text columns
// (§3, §4.F categorical/boolean online updates).
type CategoricalEstimator struct {
	baseCounters
	hh           *heavyHitters
	minLen, maxLen int
	totalLen     int64
	emptyCount   int64
}

func newCategoricalEstimator(desc ColumnDescriptor, cfg Config) *CategoricalEstimator {
	capacity := cfg.HeavyHitterCapacityFactor * 32
	if capacity < 64 {
		capacity = 64
	}
	return &CategoricalEstimator{
		baseCounters: baseCounters{desc: desc, promoted: desc.Type, hll: newHyperLogLog(cfg.DistinctSketchError)},
		hh:           newHeavyHitters(capacity),
		minLen:       -1,
	}
}

func (e *CategoricalEstimator) numericValue(string) (float64, bool) { return 0, false }

func (e *CategoricalEstimator) observe(raw string, missing bool) {
	if missing {
		e.observeCommon(raw, true, false)
		return
	}
	// boolean is the only categorical-dispatched subtype with its own
	// conformance check; a non-boolean-looking value widens it to text
	// (§4.E). Plain categorical/text have no narrower check to fail.
	if e.desc.Type == TypeBoolean && !looksBoolean(raw) {
		e.promoted = PromoteType(e.promoted, raw)
	}
	e.observeCommon(raw, false, true)
	e.hh.observe(raw)
	l := len(raw)
	if l == 0 {
		e.emptyCount++
	}
	if e.minLen < 0 || l < e.minLen {
		e.minLen = l
	}
	if l > e.maxLen {
		e.maxLen = l
	}
	e.totalLen += int64(l)
}

func (e *CategoricalEstimator) variance() float64 { return math.NaN() }

func (e *CategoricalEstimator) conforms(string) bool { return true }

func (e *CategoricalEstimator) finalize(cfg Config) ColumnStats {
	cs := ColumnStats{
		Index: e.desc.Index, Name: e.desc.Name,
		PrimaryType: e.promoted.String(), PrimaryTypeConfidence: e.desc.Confidence,
		SemanticTag: e.desc.Semantic.String(),
		Count: e.count, Missing: e.missing,
		ParseConformance: e.conformance(),
	}
	if e.hll != nil {
		cs.DistinctEstimate = e.hll.estimate()
	}
	if e.count == 0 {
		return cs
	}
	cs.TopValues = e.hh.topK(16)
	minLen := e.minLen
	if minLen < 0 {
		minLen = 0
	}
	cs.LabelLengthStats = &LabelLengthStats{
		Min: minLen, Max: e.maxLen,
		Mean:       float64(e.totalLen) / float64(e.count),
		EmptyCount: e.emptyCount,
	}
	return cs
}

// DateTimeEstimator covers date-time columns (§3, §4.F date-time online
// updates).
type DateTimeEstimator struct {
	baseCounters
	minTS, maxTS int64
	haveRange    bool
	dow          [7]int64
	month        [12]int64
	hour         [24]int64
	intervals    []int64
	lastTS       int64
	haveLast     bool
}

func newDateTimeEstimator(desc ColumnDescriptor, cfg Config) *DateTimeEstimator {
	return &DateTimeEstimator{baseCounters: baseCounters{desc: desc, promoted: desc.Type, hll: newHyperLogLog(cfg.DistinctSketchError)}}
}

func (e *DateTimeEstimator) numericValue(raw string) (float64, bool) {
	t, ok := parseDateTime(raw)
	if !ok {
		return 0, false
	}
	return float64(t), true
}

func (e *DateTimeEstimator) observe(raw string, missing bool) {
	if missing {
		e.observeCommon(raw, true, false)
		return
	}
	ts, ok := parseDateTime(raw)
	if !ok {
		e.promoted = PromoteType(e.promoted, raw)
		e.observeCommon(raw, false, false)
		return
	}
	e.observeCommon(raw, false, true)
	if !e.haveRange || ts < e.minTS {
		e.minTS = ts
	}
	if !e.haveRange || ts > e.maxTS {
		e.maxTS = ts
	}
	e.haveRange = true

	dow, month, hour := civilComponents(ts)
	e.dow[dow]++
	e.month[month]++
	e.hour[hour]++

	if e.haveLast {
		if len(e.intervals) < 4096 {
			e.intervals = append(e.intervals, absInt64(ts-e.lastTS))
		}
	}
	e.lastTS = ts
	e.haveLast = true
}

func (e *DateTimeEstimator) variance() float64 { return math.NaN() }

func (e *DateTimeEstimator) conforms(raw string) bool {
	_, ok := e.numericValue(raw)
	return ok
}

func (e *DateTimeEstimator) finalize(cfg Config) ColumnStats {
	cs := ColumnStats{
		Index: e.desc.Index, Name: e.desc.Name,
		PrimaryType: e.promoted.String(), PrimaryTypeConfidence: e.desc.Confidence,
		SemanticTag: e.desc.Semantic.String(),
		Count: e.count, Missing: e.missing,
		ParseConformance: e.conformance(),
	}
	if e.hll != nil {
		cs.DistinctEstimate = e.hll.estimate()
	}
	if e.count == 0 || !e.haveRange {
		return cs
	}
	mn, mx := float64(e.minTS), float64(e.maxTS)
	cs.Min, cs.Max = &mn, &mx
	dt := &DateTimeStats{
		Min: e.minTS, Max: e.maxTS,
		Granularity: granularityFromIntervals(e.intervals),
		DayOfWeek:   e.dow, Month: e.month, Hour: e.hour,
	}
	cs.DateTimeStats = dt
	return cs
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func granularityFromIntervals(intervals []int64) string {
	if len(intervals) == 0 {
		return "unknown"
	}
	g := intervals[0]
	for _, iv := range intervals[1:] {
		g = gcdInt64(g, iv)
	}
	switch {
	case g == 0:
		return "sub-second"
	case g < 60:
		return "second"
	case g < 3600:
		return "minute"
	case g < 86400:
		return "hour"
	case g < 86400*28:
		return "day"
	case g < 86400*300:
		return "month"
	default:
		return "year"
	}
}

func gcdInt64(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}
