package core

import (
	"math"
	"testing"
)

func TestReservoirCapacityHonored(t *testing.T) {
	r := newReservoir(10, 1)
	for i := 0; i < 1000; i++ {
		r.observe(float64(i))
	}
	if r.len() != 10 {
		t.Fatalf("len = %d, want 10", r.len())
	}
}

func TestReservoirRetainsAllBelowCapacity(t *testing.T) {
	r := newReservoir(100, 1)
	for i := 0; i < 7; i++ {
		r.observe(float64(i))
	}
	if r.len() != 7 {
		t.Fatalf("len = %d, want 7 (below capacity, nothing should be dropped)", r.len())
	}
}

// TestReservoirUniformity checks Algorithm R's defining property: each
// observed element is equally likely to land in the sample, approximated
// here by confirming the sample mean tracks the true stream mean for one
// seeded stream (property test, not exact-distribution proof).
func TestReservoirUniformity(t *testing.T) {
	const n = 2000
	const capacity = 200
	r := newReservoir(capacity, 99)
	var trueSum float64
	for i := 1; i <= n; i++ {
		r.observe(float64(i))
		trueSum += float64(i)
	}
	trueMean := trueSum / n

	var sampleSum float64
	for _, v := range r.sample() {
		sampleSum += v
	}
	sampleMean := sampleSum / float64(r.len())

	if math.Abs(sampleMean-trueMean) > trueMean*0.15 {
		t.Errorf("reservoir sample mean %v deviates too far from true mean %v", sampleMean, trueMean)
	}
}

func TestJointReservoirCapacityAndPairing(t *testing.T) {
	jr := newJointReservoir([]int{0, 1}, 5, 3)
	for i := 0; i < 50; i++ {
		jr.observe([]float64{float64(i), float64(i) * 2})
	}
	if len(jr.rows) != 5 {
		t.Fatalf("rows = %d, want 5", len(jr.rows))
	}
	for _, row := range jr.rows {
		if row[1] != row[0]*2 {
			t.Errorf("row pairing broken: got %v, want second = 2*first", row)
		}
	}
}
