package core

import "math"

// QualityScore is the `quality` Report section (§6): ten named dimensions
// in [0,1] plus their weighted composite (§4.G).
type QualityScore struct {
	Completeness     float64 `json:"completeness"`
	Uniqueness       float64 `json:"uniqueness"`
	Validity         float64 `json:"validity"`
	Consistency      float64 `json:"consistency"`
	Accuracy         float64 `json:"accuracy"`
	Timeliness       float64 `json:"timeliness"`
	Integrity        float64 `json:"integrity"`
	Reasonableness   float64 `json:"reasonableness"`
	Precision        float64 `json:"precision"`
	Representational float64 `json:"representational"`
	Composite        float64 `json:"composite"`
}

// qualityWeights are the fixed weights from §4.G's table; they sum to 1.0.
var qualityWeights = map[string]float64{
	"completeness":     0.15,
	"uniqueness":       0.10,
	"validity":         0.12,
	"consistency":      0.10,
	"accuracy":         0.08,
	"timeliness":       0.07,
	"integrity":        0.10,
	"reasonableness":   0.08,
	"precision":        0.10,
	"representational": 0.10,
}

// computeQuality derives the ten dimensions from the finalized kernel
// output, following the scoring rules in §4.G. A dimension with no
// applicable signal degrades to its spec-mandated default (1.0 for most
// dimensions, 0.5/0.85/0.80 for timeliness/integrity/reasonableness)
// rather than being excluded from the composite.
func computeQuality(out KernelOutput, descs []ColumnDescriptor) QualityScore {
	q := QualityScore{
		Completeness:     dimCompleteness(out),
		Uniqueness:       dimUniqueness(out),
		Validity:         dimValidity(out),
		Consistency:      dimConsistency(out),
		Accuracy:         dimAccuracy(out),
		Timeliness:       dimTimeliness(out),
		Integrity:        dimIntegrity(out, descs),
		Reasonableness:   dimReasonableness(out),
		Precision:        dimPrecision(out),
		Representational: dimRepresentational(out),
	}
	q.Composite = qualityWeights["completeness"]*q.Completeness +
		qualityWeights["uniqueness"]*q.Uniqueness +
		qualityWeights["validity"]*q.Validity +
		qualityWeights["consistency"]*q.Consistency +
		qualityWeights["accuracy"]*q.Accuracy +
		qualityWeights["timeliness"]*q.Timeliness +
		qualityWeights["integrity"]*q.Integrity +
		qualityWeights["reasonableness"]*q.Reasonableness +
		qualityWeights["precision"]*q.Precision +
		qualityWeights["representational"]*q.Representational
	return q
}

// dimCompleteness: 1 - (total missing / total cells), averaged across
// columns so a single sparse column doesn't dominate a wide table.
func dimCompleteness(out KernelOutput) float64 {
	if len(out.Columns) == 0 {
		return 1
	}
	var sum float64
	for _, c := range out.Columns {
		total := c.Count + c.Missing
		if total == 0 {
			sum += 1
			continue
		}
		sum += float64(c.Count) / float64(total)
	}
	return sum / float64(len(out.Columns))
}

// dimUniqueness: 1 - (duplicate rows / rows processed). Per-column
// distinctness of identifier columns is not part of this dimension.
func dimUniqueness(out KernelOutput) float64 {
	if out.RowsProcessed == 0 {
		return 1
	}
	rowScore := 1 - float64(out.DuplicateRows)/float64(out.RowsProcessed)
	return clamp01(rowScore)
}

// dimValidity averages each column's ParseConformance (the fraction of
// non-missing values that actually parsed under the decided type).
func dimValidity(out KernelOutput) float64 {
	if len(out.Columns) == 0 {
		return 1
	}
	var sum float64
	for _, c := range out.Columns {
		sum += c.ParseConformance
	}
	return sum / float64(len(out.Columns))
}

// dimConsistency penalizes columns whose type confidence from the Type
// Inferencer's decision rule is weak, a proxy for "this column doesn't
// consistently conform to one shape".
func dimConsistency(out KernelOutput) float64 {
	if len(out.Columns) == 0 {
		return 1
	}
	var sum float64
	for _, c := range out.Columns {
		conf := c.PrimaryTypeConfidence
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		sum += conf
	}
	return sum / float64(len(out.Columns))
}

// dimAccuracy penalizes numerical columns by the fraction of reservoir
// values flagged as outliers by the union of detection methods, the
// nearest proxy for accuracy the core can compute without ground truth.
func dimAccuracy(out KernelOutput) float64 {
	var total, numeric int
	var sum float64
	for _, c := range out.Columns {
		if c.Outliers == nil || c.ReservoirSize == 0 {
			continue
		}
		numeric++
		ratio := float64(c.Outliers.UnionCount) / float64(c.ReservoirSize)
		sum += 1 - clamp01(ratio)
		total++
	}
	if total == 0 {
		return 1
	}
	return sum / float64(numeric)
}

// dimTimeliness scores date-time columns by how close their max timestamp
// sits to the overall max across all date-time columns — a file where
// every date column's range ends at roughly the same point reads as
// internally timely; one with a column stuck far in the past does not.
func dimTimeliness(out KernelOutput) float64 {
	var maxTS int64
	have := false
	for _, c := range out.Columns {
		if c.DateTimeStats == nil {
			continue
		}
		if !have || c.DateTimeStats.Max > maxTS {
			maxTS = c.DateTimeStats.Max
			have = true
		}
	}
	if !have {
		return 0.5 // spec §4.G: timeliness absent -> 50
	}
	var sum float64
	var n int
	for _, c := range out.Columns {
		if c.DateTimeStats == nil {
			continue
		}
		span := maxTS - c.DateTimeStats.Min
		if span <= 0 {
			sum += 1
		} else {
			lag := float64(maxTS-c.DateTimeStats.Max) / float64(span)
			sum += 1 - clamp01(lag)
		}
		n++
	}
	return sum / float64(n)
}

// dimIntegrity scores identifier columns for the near-uniqueness a key is
// expected to have: distinct estimate close to non-missing count.
func dimIntegrity(out KernelOutput, descs []ColumnDescriptor) float64 {
	var sum float64
	var n int
	for i, c := range out.Columns {
		if i >= len(descs) || descs[i].Semantic != SemanticIdentifier {
			continue
		}
		if c.Count == 0 {
			sum += 1
		} else {
			ratio := c.DistinctEstimate / float64(c.Count)
			sum += clamp01(ratio)
		}
		n++
	}
	if n == 0 {
		return 0.85 // spec §4.G: integrity default 85 when no identifier rules apply
	}
	return sum / float64(n)
}

// dimReasonableness penalizes numerical columns whose skewness or
// kurtosis is extreme enough to suggest an implausible distribution shape.
func dimReasonableness(out KernelOutput) float64 {
	var sum float64
	var n int
	for _, c := range out.Columns {
		if c.Normality == nil {
			continue
		}
		n++
		score := 1.0
		if !math.IsNaN(c.Skewness) && math.Abs(c.Skewness) > 3 {
			score -= 0.3
		}
		if !math.IsNaN(c.Kurtosis) && math.Abs(c.Kurtosis) > 10 {
			score -= 0.3
		}
		sum += clamp01(score)
	}
	if n == 0 {
		return 0.80 // spec §4.G: reasonableness defaults to 80 with no normality signal
	}
	return sum / float64(n)
}

// dimPrecision scores each numerical column by how close its IQR/std ratio
// is to the normal-distribution value 1.349 (a shape signal), averaged over
// the numerical columns. Decimal-place depth is not counted anywhere, so
// decimal-place consistency plays no part in this score.
func dimPrecision(out KernelOutput) float64 {
	var sum float64
	var n int
	for _, c := range out.Columns {
		if c.Quantiles == nil {
			continue
		}
		n++
		if c.ZeroVariance {
			sum += 1
			continue
		}
		if math.IsNaN(c.Std) || c.Std == 0 {
			sum += 1
			continue
		}
		ratio := c.IQR / (c.Std * 1.349) // IQR/std ≈ 1.349 for normal data
		deviation := math.Abs(1 - ratio)
		sum += clamp01(1 - math.Min(deviation, 1))
	}
	if n == 0 {
		return 1
	}
	return sum / float64(n)
}

// dimRepresentational scores categorical/text columns by how concentrated
// their top values are: a column where the single most frequent value
// covers almost everything carries little representational information,
// while one spread across many distinct values looks more informative.
func dimRepresentational(out KernelOutput) float64 {
	var sum float64
	var n int
	for _, c := range out.Columns {
		if len(c.TopValues) == 0 || c.Count == 0 {
			continue
		}
		n++
		top := c.TopValues[0].Count
		share := float64(top) / float64(c.Count)
		sum += clamp01(1 - share)
	}
	if n == 0 {
		return 1
	}
	return sum / float64(n)
}
