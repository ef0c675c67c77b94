package huffz

import (
	"bytes"
	"testing"
)

func TestTreeCacheReusesTrees(t *testing.T) {
	cache, err := newTreeCache(2)
	if err != nil {
		t.Fatalf("newTreeCache failed: %v", err)
	}
	f := Analyze([]byte("abracadabra"))
	first := cache.get(&f)
	again := Analyze([]byte("cadabraabra"))
	if second := cache.get(&again); second != first {
		t.Errorf("same frequency table should return the cached tree")
	}
	if cache.len() != 1 {
		t.Errorf("len() = %d, want 1", cache.len())
	}

	for _, s := range []string{"xyz", "xxyz", "xxxyz"} {
		f := Analyze([]byte(s))
		cache.get(&f)
	}
	if cache.len() != 2 {
		t.Errorf("len() = %d, want 2 after eviction", cache.len())
	}
}

func TestTreeCacheEmptyTable(t *testing.T) {
	cache, err := newTreeCache(1)
	if err != nil {
		t.Fatal(err)
	}
	var f FrequencyTable
	if root := cache.get(&f); root != nil {
		t.Errorf("empty table should map to a nil tree")
	}
}

func TestNewDecoderRejectsBadCacheSize(t *testing.T) {
	if _, err := NewDecoder(WithTreeCache(0)); err != nil {
		t.Errorf("zero cache size should disable caching, got %v", err)
	}
	if _, err := newTreeCache(-1); err == nil {
		t.Errorf("expected error for negative cache size")
	}
}

func TestDecoderWithCacheSharedStatistics(t *testing.T) {
	dec := mustDecoder(t, WithTreeCache(8))
	enc := NewEncoder()
	inputs := [][]byte{
		[]byte("abracadabra"),
		[]byte("cadabraabra"),
		[]byte("abraabracad"),
	}
	for _, input := range inputs {
		got, err := dec.Decode(mustEncode(t, enc, input))
		if err != nil {
			t.Fatalf("Decode(%q) failed: %v", input, err)
		}
		if !bytes.Equal(got, input) {
			t.Errorf("got %q, want %q", got, input)
		}
	}
	if dec.cache.len() != 1 {
		t.Errorf("cache holds %d trees, want 1", dec.cache.len())
	}
}
