package core

import "testing"

func TestDimCompletenessNoMissing(t *testing.T) {
	out := KernelOutput{Columns: []ColumnStats{{Count: 10, Missing: 0}, {Count: 8, Missing: 2}}}
	got := dimCompleteness(out)
	want := (1.0 + 0.8) / 2
	if got != want {
		t.Errorf("completeness = %v, want %v", got, want)
	}
}

func TestDimCompletenessEmptyReport(t *testing.T) {
	out := KernelOutput{}
	if dimCompleteness(out) != 1 {
		t.Error("completeness of an empty report should default to 1")
	}
}

func TestDimUniquenessNoDuplicates(t *testing.T) {
	out := KernelOutput{RowsProcessed: 100, DuplicateRows: 0}
	if got := dimUniqueness(out); got != 1 {
		t.Errorf("uniqueness = %v, want 1 with no duplicates", got)
	}
}

func TestDimUniquenessWithDuplicates(t *testing.T) {
	out := KernelOutput{RowsProcessed: 100, DuplicateRows: 20}
	if got := dimUniqueness(out); got != 0.8 {
		t.Errorf("uniqueness = %v, want 0.8", got)
	}
}

func TestDimValidityAveragesConformance(t *testing.T) {
	out := KernelOutput{Columns: []ColumnStats{{ParseConformance: 1.0}, {ParseConformance: 0.5}}}
	if got := dimValidity(out); got != 0.75 {
		t.Errorf("validity = %v, want 0.75", got)
	}
}

func TestDimAccuracyNoNumericColumnsDefaultsToOne(t *testing.T) {
	out := KernelOutput{Columns: []ColumnStats{{}}}
	if got := dimAccuracy(out); got != 1 {
		t.Errorf("accuracy = %v, want 1 with no numeric signal", got)
	}
}

func TestDimAccuracyPenalizesOutlierHeavyColumn(t *testing.T) {
	out := KernelOutput{Columns: []ColumnStats{
		{Outliers: &OutlierReport{UnionCount: 50}, ReservoirSize: 100},
	}}
	got := dimAccuracy(out)
	if got != 0.5 {
		t.Errorf("accuracy = %v, want 0.5 for a column half-flagged as outliers", got)
	}
}

func TestDimIntegrityIdentifierNearUnique(t *testing.T) {
	out := KernelOutput{Columns: []ColumnStats{{Count: 100, DistinctEstimate: 98}}}
	descs := []ColumnDescriptor{{Semantic: SemanticIdentifier}}
	got := dimIntegrity(out, descs)
	if got != 0.98 {
		t.Errorf("integrity = %v, want 0.98", got)
	}
}

func TestDimIntegrityNoIdentifierColumnsDefaultsToEightyFive(t *testing.T) {
	out := KernelOutput{Columns: []ColumnStats{{Count: 100, DistinctEstimate: 5}}}
	descs := []ColumnDescriptor{{Semantic: SemanticCategory}}
	if got := dimIntegrity(out, descs); got != 0.85 {
		t.Errorf("integrity = %v, want 0.85 (spec default when no identifier rules apply)", got)
	}
}

func TestDimTimelinessNoDateColumnsDefaultsToFifty(t *testing.T) {
	out := KernelOutput{Columns: []ColumnStats{{}}}
	if got := dimTimeliness(out); got != 0.5 {
		t.Errorf("timeliness = %v, want 0.5 (spec default when absent)", got)
	}
}

func TestDimReasonablenessNoNormalityDefaultsToEighty(t *testing.T) {
	out := KernelOutput{Columns: []ColumnStats{{}}}
	if got := dimReasonableness(out); got != 0.80 {
		t.Errorf("reasonableness = %v, want 0.80 (spec default when absent)", got)
	}
}

func TestDimRepresentationalPenalizesDominantValue(t *testing.T) {
	out := KernelOutput{Columns: []ColumnStats{
		{Count: 100, TopValues: []freqEntry{{Value: "x", Count: 95}}},
	}}
	got := dimRepresentational(out)
	if got != 0.05 {
		t.Errorf("representational = %v, want 0.05 for a 95%% dominant value", got)
	}
}

func TestComputeQualityCompositeWithinBounds(t *testing.T) {
	out := KernelOutput{
		RowsProcessed: 100,
		Columns: []ColumnStats{
			{Count: 90, Missing: 10, ParseConformance: 1, PrimaryTypeConfidence: 1},
		},
	}
	q := computeQuality(out, []ColumnDescriptor{{}})
	if q.Composite < 0 || q.Composite > 1 {
		t.Errorf("composite = %v, want within [0,1]", q.Composite)
	}
}

func TestQualityWeightsSumToOne(t *testing.T) {
	var sum float64
	for _, w := range qualityWeights {
		sum += w
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("quality weights sum to %v, want 1.0", sum)
	}
}
