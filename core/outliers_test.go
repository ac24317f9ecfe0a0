package core

import (
	"sort"
	"testing"
)

func TestComputeOutliersFlagsObviousOutlier(t *testing.T) {
	vals := []float64{10, 11, 9, 10, 12, 11, 10, 9, 1000}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	var w welfordMoments
	for _, v := range vals {
		w.observe(v)
	}
	mad := medianAbsoluteDeviation(sorted)

	out := computeOutliers(sorted, w.mean, w.std(), mad)
	if out.UnionCount == 0 {
		t.Error("expected at least one outlier to be flagged for the value 1000")
	}
	if out.IQRHigh == 0 && out.ZHigh == 0 && out.ModifiedZ == 0 {
		t.Error("1000 should be flagged by at least one detection method")
	}
}

func TestComputeOutliersNoOutliersInUniformData(t *testing.T) {
	vals := []float64{10, 10, 10, 10, 10}
	sorted := append([]float64(nil), vals...)
	var w welfordMoments
	for _, v := range vals {
		w.observe(v)
	}
	mad := medianAbsoluteDeviation(sorted)
	out := computeOutliers(sorted, w.mean, w.std(), mad)
	if out.UnionCount != 0 {
		t.Errorf("constant data should have zero outliers, got %d", out.UnionCount)
	}
	if out.Impact != "low" {
		t.Errorf("impact = %s, want low", out.Impact)
	}
}

func TestComputeOutliersEmpty(t *testing.T) {
	out := computeOutliers(nil, 0, 0, 0)
	if out.UnionCount != 0 || out.Impact != "low" {
		t.Errorf("empty input should yield zero outliers and low impact, got %+v", out)
	}
}

func TestPercentileSortedBounds(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}
	if v := percentileSorted(sorted, 0); v != 1 {
		t.Errorf("p0 = %v, want 1", v)
	}
	if v := percentileSorted(sorted, 1); v != 5 {
		t.Errorf("p100 = %v, want 5", v)
	}
	if v := percentileSorted(sorted, 0.5); v != 3 {
		t.Errorf("p50 = %v, want 3", v)
	}
}

func TestMedianAbsoluteDeviationConstant(t *testing.T) {
	if mad := medianAbsoluteDeviation([]float64{5, 5, 5, 5}); mad != 0 {
		t.Errorf("MAD of a constant series should be 0, got %v", mad)
	}
}
