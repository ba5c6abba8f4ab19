package ring

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"testing"
)

func TestPJWHash(t *testing.T) {
	tests := []struct {
		key  string
		want uint32
	}{
		{"", 0},
		{"A", 0x41},
		{"abc", 0x6783},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := PJWHash(tt.key); got != tt.want {
				t.Errorf("PJWHash(%q) = %#x, want %#x", tt.key, got, tt.want)
			}
		})
	}
}

func TestPJWHash_SimilarStrings(t *testing.T) {
	if PJWHash("a1") == PJWHash("b1") {
		t.Error("Expected different hashes for a1 and b1")
	}
}

func TestPJWHash_Fits24Bits(t *testing.T) {
	prefix := strings.Repeat("resource-", 20)
	for i := 0; i < 1000; i++ {
		if h := PJWHash(prefix + strconv.Itoa(i)); h >= 1<<24 {
			t.Fatalf("Hash %#x exceeds 24 bits", h)
		}
	}
}

// Correlated keys like "a1111" should still spread across bins.
func TestPJWHash_Spread(t *testing.T) {
	bins := make([]int, 20)
	for i := 0; i < 10000; i++ {
		s := strconv.Itoa(i)
		bins[PJWHash("a"+s+s+s+s)%uint32(len(bins))]++
	}
	slices.Sort(bins)

	if bins[0]*2 < bins[len(bins)-1] {
		t.Errorf("Hash distribution not within 2x: min=%d max=%d", bins[0], bins[len(bins)-1])
	}
}

func TestXXHash(t *testing.T) {
	if XXHash("key-1") != XXHash("key-1") {
		t.Error("XXHash should be deterministic")
	}
	if XXHash("key-1") == XXHash("key-2") {
		t.Error("Expected different hashes for key-1 and key-2")
	}
}

func TestPosition(t *testing.T) {
	if got := position(0x41, DefaultRange); got != 2080 {
		t.Errorf("position(0x41) = %d, want 2080", got)
	}
	for i := 0; i < 1000; i++ {
		p := position(XXHash(fmt.Sprint(i)), 97)
		if p < 0 || p >= 97 {
			t.Fatalf("position %d outside [0, 97)", p)
		}
	}
}

func TestRing_CustomHasher(t *testing.T) {
	r := New(Options[string]{Hash: XXHash})
	r.AddPoints("only", 500)

	node, found := r.Get("anything")
	if !found || node != "only" {
		t.Errorf("Expected only, got %q (found=%v)", node, found)
	}
}
