package core

import "testing"

func mkRecord(fields ...string) *Record {
	var buf string
	var toks []FieldToken
	for _, f := range fields {
		toks = append(toks, FieldToken{Start: len(buf), Length: len(f)})
		buf += f
	}
	return &Record{buf: buf, fields: toks}
}

func TestTypeInferencerDecidesInteger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NProfile = 5
	ti := NewTypeInferencer(cfg, []string{"a"})
	for _, v := range []string{"1", "2", "3", "4", "5"} {
		ti.Observe(mkRecord(v))
	}
	descs := ti.Finalize()
	if descs[0].Type != TypeInteger {
		t.Errorf("type = %v, want integer", descs[0].Type)
	}
}

func TestTypeInferencerPromotesToTextBelowThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NProfile = 20
	ti := NewTypeInferencer(cfg, []string{"a"})
	// 10 of 20 are non-numeric: no candidate type clears the 95% bar, and
	// with this many distinct non-numeric values it should not qualify as
	// categorical either, so it falls through to text.
	for i := 0; i < 10; i++ {
		ti.Observe(mkRecord("1"))
	}
	for i := 0; i < 10; i++ {
		ti.Observe(mkRecord(randomWord(i)))
	}
	descs := ti.Finalize()
	if descs[0].Type != TypeText {
		t.Errorf("type = %v, want text", descs[0].Type)
	}
}

func randomWord(i int) string {
	words := []string{"apple", "banana", "cherry", "date", "egg", "fig", "grape", "honeydew", "ivy", "jackfruit"}
	return words[i%len(words)]
}

func TestTypeInferencerCategoricalForLowCardinality(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NProfile = 100
	ti := NewTypeInferencer(cfg, []string{"status"})
	vals := []string{"active", "inactive"}
	for i := 0; i < 100; i++ {
		ti.Observe(mkRecord(vals[i%2]))
	}
	descs := ti.Finalize()
	if descs[0].Type != TypeCategorical {
		t.Errorf("type = %v, want categorical", descs[0].Type)
	}
	if descs[0].Semantic != SemanticStatus {
		t.Errorf("semantic = %v, want status (exactly 2 distinct values)", descs[0].Semantic)
	}
}

func TestTypeInferencerIdentifierSemanticTag(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NProfile = 10
	ti := NewTypeInferencer(cfg, []string{"user_id"})
	for i := 0; i < 10; i++ {
		ti.Observe(mkRecord(string(rune('a' + i))))
	}
	descs := ti.Finalize()
	if descs[0].Semantic != SemanticIdentifier {
		t.Errorf("semantic = %v, want identifier for a column named user_id with all-distinct values", descs[0].Semantic)
	}
}

func TestTypeInferencerObserveStopsAtNProfile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NProfile = 3
	ti := NewTypeInferencer(cfg, []string{"a"})
	done := false
	for i := 0; i < 5; i++ {
		done = ti.Observe(mkRecord("1"))
	}
	if !done {
		t.Error("expected profiling to be done after NProfile rows")
	}
	if ti.rows != 3 {
		t.Errorf("rows observed = %d, want 3 (profiling should stop accepting further rows)", ti.rows)
	}
}

func TestPromoteTypeLattice(t *testing.T) {
	cases := []struct {
		current PrimaryType
		raw     string
		want    PrimaryType
	}{
		{TypeInteger, "5", TypeInteger},
		{TypeInteger, "5.5", TypeFloat},
		{TypeInteger, "abc", TypeText},
		{TypeFloat, "5.5", TypeFloat},
		{TypeFloat, "abc", TypeText},
		{TypeText, "5", TypeText}, // never narrows back
	}
	for _, c := range cases {
		got := PromoteType(c.current, c.raw)
		if got != c.want {
			t.Errorf("PromoteType(%v, %q) = %v, want %v", c.current, c.raw, got, c.want)
		}
	}
}

func TestMissingTokenRecognition(t *testing.T) {
	for _, v := range []string{"", "NULL", "null", "N/A", "n/a", "NaN", "undefined"} {
		if !isMissingToken(v) {
			t.Errorf("isMissingToken(%q) = false, want true", v)
		}
	}
	if isMissingToken("0") {
		t.Error("\"0\" should not be treated as a missing token")
	}
}
