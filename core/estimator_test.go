package core

import (
	"math"
	"testing"
)

func intDesc(idx int) ColumnDescriptor {
	return ColumnDescriptor{Index: idx, Name: "n", Type: TypeInteger, Confidence: 1}
}

func TestNumericEstimatorBasicStats(t *testing.T) {
	cfg := DefaultConfig()
	e := newNumericEstimator(intDesc(0), cfg)
	for _, v := range []string{"1", "2", "3", "4", "5"} {
		e.observe(v, false)
	}
	cs := e.finalize(cfg)
	if cs.Count != 5 {
		t.Errorf("count = %d, want 5", cs.Count)
	}
	if *cs.Min != 1 || *cs.Max != 5 {
		t.Errorf("min/max = %v/%v, want 1/5", *cs.Min, *cs.Max)
	}
	if cs.Mean != 3 {
		t.Errorf("mean = %v, want 3", cs.Mean)
	}
}

func TestNumericEstimatorAllMissingColumn(t *testing.T) {
	cfg := DefaultConfig()
	e := newNumericEstimator(intDesc(0), cfg)
	for i := 0; i < 5; i++ {
		e.observe("", true)
	}
	cs := e.finalize(cfg)
	if cs.Count != 0 || cs.Missing != 5 {
		t.Errorf("count/missing = %d/%d, want 0/5", cs.Count, cs.Missing)
	}
	if !math.IsNaN(cs.Mean) {
		t.Errorf("mean of all-missing column should be NaN, got %v", cs.Mean)
	}
	if cs.Min != nil {
		t.Errorf("min of all-missing column should be nil, got %v", *cs.Min)
	}
}

func TestNumericEstimatorSmallNSuppressesMoments(t *testing.T) {
	cfg := DefaultConfig()
	e := newNumericEstimator(intDesc(0), cfg)
	e.observe("1", false)
	e.observe("2", false)
	cs := e.finalize(cfg)
	if !math.IsNaN(cs.Skewness) || !math.IsNaN(cs.Kurtosis) {
		t.Errorf("n=2 should suppress skewness/kurtosis as NaN, got skew=%v kurt=%v", cs.Skewness, cs.Kurtosis)
	}
}

func TestNumericEstimatorPromotesIntegerToFloat(t *testing.T) {
	cfg := DefaultConfig()
	e := newNumericEstimator(intDesc(0), cfg)
	e.observe("1", false)
	e.observe("2", false)
	e.observe("3.5", false)
	cs := e.finalize(cfg)
	if cs.PrimaryType != "float" {
		t.Errorf("PrimaryType = %q, want float after a non-integer value streamed in", cs.PrimaryType)
	}
}

func TestNumericEstimatorPromotesToTextOnGarbage(t *testing.T) {
	cfg := DefaultConfig()
	e := newNumericEstimator(intDesc(0), cfg)
	e.observe("1", false)
	e.observe("not-a-number", false)
	cs := e.finalize(cfg)
	if cs.PrimaryType != "text" {
		t.Errorf("PrimaryType = %q, want text after an unparseable value streamed in", cs.PrimaryType)
	}
}

func TestNumericEstimatorConforms(t *testing.T) {
	cfg := DefaultConfig()
	e := newNumericEstimator(intDesc(0), cfg)
	if !e.conforms("3.14") {
		t.Error("3.14 should conform to a numeric estimator")
	}
	if e.conforms("abc") {
		t.Error("abc should not conform to a numeric estimator")
	}
}

func TestNumericEstimatorZeroAndNegativeCounts(t *testing.T) {
	cfg := DefaultConfig()
	e := newNumericEstimator(intDesc(0), cfg)
	for _, v := range []string{"0", "-1", "5", "0", "-3"} {
		e.observe(v, false)
	}
	cs := e.finalize(cfg)
	if cs.ZeroCount != 2 {
		t.Errorf("zero count = %d, want 2", cs.ZeroCount)
	}
	if cs.NegativeCount != 2 {
		t.Errorf("negative count = %d, want 2", cs.NegativeCount)
	}
}

func catDesc() ColumnDescriptor {
	return ColumnDescriptor{Index: 0, Name: "status", Type: TypeBoolean, Confidence: 1}
}

func TestCategoricalEstimatorBooleanPromotesToText(t *testing.T) {
	cfg := DefaultConfig()
	e := newCategoricalEstimator(catDesc(), cfg)
	e.observe("true", false)
	e.observe("false", false)
	e.observe("maybe", false)
	cs := e.finalize(cfg)
	if cs.PrimaryType != "text" {
		t.Errorf("PrimaryType = %q, want text after a non-boolean value streamed in", cs.PrimaryType)
	}
}

func TestCategoricalEstimatorLabelLengthStats(t *testing.T) {
	cfg := DefaultConfig()
	desc := ColumnDescriptor{Index: 0, Name: "name", Type: TypeCategorical, Confidence: 1}
	e := newCategoricalEstimator(desc, cfg)
	for _, v := range []string{"ab", "abcd", "", "abc"} {
		e.observe(v, false)
	}
	cs := e.finalize(cfg)
	if cs.LabelLengthStats == nil {
		t.Fatal("expected label length stats")
	}
	if cs.LabelLengthStats.Min != 0 || cs.LabelLengthStats.Max != 4 {
		t.Errorf("min/max label len = %d/%d, want 0/4", cs.LabelLengthStats.Min, cs.LabelLengthStats.Max)
	}
	if cs.LabelLengthStats.EmptyCount != 1 {
		t.Errorf("empty count = %d, want 1", cs.LabelLengthStats.EmptyCount)
	}
}

func dtDesc() ColumnDescriptor {
	return ColumnDescriptor{Index: 0, Name: "ts", Type: TypeDateTime, Confidence: 1}
}

func TestDateTimeEstimatorRangeAndGranularity(t *testing.T) {
	cfg := DefaultConfig()
	e := newDateTimeEstimator(dtDesc(), cfg)
	for _, v := range []string{"2024-01-01", "2024-01-02", "2024-01-03"} {
		e.observe(v, false)
	}
	cs := e.finalize(cfg)
	if cs.DateTimeStats == nil {
		t.Fatal("expected datetime stats")
	}
	if cs.DateTimeStats.Granularity != "day" {
		t.Errorf("granularity = %q, want day", cs.DateTimeStats.Granularity)
	}
	if cs.PrimaryType != "date-time" {
		t.Errorf("PrimaryType = %q, want date-time", cs.PrimaryType)
	}
}

func TestDateTimeEstimatorPromotesToTextOnUnparseable(t *testing.T) {
	cfg := DefaultConfig()
	e := newDateTimeEstimator(dtDesc(), cfg)
	e.observe("2024-01-01", false)
	e.observe("not-a-date", false)
	cs := e.finalize(cfg)
	if cs.PrimaryType != "text" {
		t.Errorf("PrimaryType = %q, want text after an unparseable value streamed in", cs.PrimaryType)
	}
}
