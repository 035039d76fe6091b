package textutil

import (
	"math"
	"testing"
)

func TestNormalizedHashIgnoresCaseAndSpacing(t *testing.T) {
	a := NormalizedHash("Bitcoin   Surges Past $50,000")
	b := NormalizedHash("bitcoin surges past $50,000")
	if a != b {
		t.Fatalf("expected equal hashes, got %s and %s", a, b)
	}

	c := NormalizedHash("bitcoin drops past $50,000")
	if a == c {
		t.Fatalf("different content produced the same hash %s", a)
	}
}

func TestJaccard(t *testing.T) {
	set := func(words ...string) map[string]struct{} {
		s := make(map[string]struct{}, len(words))
		for _, w := range words {
			s[w] = struct{}{}
		}
		return s
	}

	tests := []struct {
		name string
		a, b map[string]struct{}
		want float64
	}{
		{"identical", set("a", "b", "c"), set("a", "b", "c"), 1},
		{"disjoint", set("a", "b"), set("c", "d"), 0},
		{"both empty", set(), set(), 1},
		{"one empty", set("a"), set(), 0},
		{"half overlap", set("a", "b"), set("b", "c"), 1.0 / 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Jaccard(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Jaccard() = %v, want %v", got, tt.want)
			}
			if sym := Jaccard(tt.b, tt.a); sym != got {
				t.Errorf("Jaccard is not symmetric: %v vs %v", got, sym)
			}
		})
	}
}

func TestTitleSimilarity(t *testing.T) {
	if got := TitleSimilarity("Bitcoin Surges", "bitcoin surges"); got != 1 {
		t.Fatalf("case-only difference should be 1, got %v", got)
	}
	if got := TitleSimilarity("", ""); got != 1 {
		t.Fatalf("two empty titles should be 1, got %v", got)
	}
	if got := TitleSimilarity("bitcoin", ""); got != 0 {
		t.Fatalf("empty vs non-empty should be 0, got %v", got)
	}

	got := TitleSimilarity("bitcoin surges", "bitcoin surge")
	if got <= 0.9 || got >= 1 {
		t.Fatalf("near-identical titles should land just below 1, got %v", got)
	}

	a := TitleSimilarity("fed raises rates", "bitcoin etf approved")
	b := TitleSimilarity("bitcoin etf approved", "fed raises rates")
	if a != b {
		t.Fatalf("TitleSimilarity is not symmetric: %v vs %v", a, b)
	}
}

func TestCosine(t *testing.T) {
	v := []float32{1, 2, 3, 0}
	if got := Cosine(v, v); math.Abs(got-1) > 1e-6 {
		t.Fatalf("self similarity should be 1, got %v", got)
	}

	zero := make([]float32, 4)
	if got := Cosine(v, zero); got != 0 {
		t.Fatalf("zero vector should give 0, got %v", got)
	}
	if got := Cosine([]float32{1, 0}, []float32{0, 1}); math.Abs(got) > 1e-6 {
		t.Fatalf("orthogonal vectors should give 0, got %v", got)
	}
	if got := Cosine(v, []float32{1, 2}); got != 0 {
		t.Fatalf("mismatched lengths should give 0, got %v", got)
	}
}

func TestVector(t *testing.T) {
	text := "Bitcoin climbed sharply as institutional investors increased their holdings."

	a := Vector(text, 64)
	b := Vector(text, 64)
	if len(a) != 64 {
		t.Fatalf("expected 64 dims, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vectorization is not deterministic at dim %d", i)
		}
	}
	if IsZero(a) {
		t.Fatal("real text produced a zero vector")
	}
	if !IsZero(Vector("", 64)) {
		t.Fatal("empty text should produce a zero vector")
	}

	if got := Vector(text, 0); len(got) != DefaultVectorDims {
		t.Fatalf("dims<=0 should fall back to %d, got %d", DefaultVectorDims, len(got))
	}
}

func TestTokensDropStopWords(t *testing.T) {
	tokens := Tokens("The price of the asset is rising")
	for _, tok := range tokens {
		if tok == "the" || tok == "of" || tok == "is" {
			t.Fatalf("stop word %q survived analysis: %v", tok, tokens)
		}
	}
	if len(tokens) == 0 {
		t.Fatal("expected some content tokens")
	}
}
