package core

import "testing"

func TestHeavyHittersTracksFrequentKey(t *testing.T) {
	hh := newHeavyHitters(8)
	for i := 0; i < 100; i++ {
		hh.observe("common")
	}
	for i := 0; i < 5; i++ {
		hh.observe("rare")
	}
	top := hh.topK(1)
	if len(top) != 1 || top[0].Value != "common" {
		t.Fatalf("top-1 = %+v, want [common]", top)
	}
	if top[0].Count < 100 {
		t.Errorf("common's count = %d, want >= 100", top[0].Count)
	}
}

func TestHeavyHittersBoundedMemory(t *testing.T) {
	hh := newHeavyHitters(16)
	for i := 0; i < 10000; i++ {
		hh.observe(randKey(i))
	}
	if len(hh.counts) > 16 {
		t.Errorf("table grew to %d entries, capacity was 16", len(hh.counts))
	}
}

func randKey(i int) string {
	return string(rune('a' + i%26))
}

func TestHeavyHittersTopKOrdering(t *testing.T) {
	hh := newHeavyHitters(10)
	hh.observe("a")
	for i := 0; i < 3; i++ {
		hh.observe("b")
	}
	for i := 0; i < 5; i++ {
		hh.observe("c")
	}
	top := hh.topK(3)
	if len(top) != 3 {
		t.Fatalf("len(top) = %d, want 3", len(top))
	}
	for i := 1; i < len(top); i++ {
		if top[i].Count > top[i-1].Count {
			t.Errorf("topK not sorted descending: %+v", top)
		}
	}
	if top[0].Value != "c" {
		t.Errorf("most frequent should be c, got %s", top[0].Value)
	}
}
