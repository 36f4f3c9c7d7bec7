package ai

import (
	"context"
	"math"
	"testing"
)

func TestLocalEmbedderDeterministic(t *testing.T) {
	e := NewLocalEmbedder(64)

	a, err := e.Embed(context.Background(), "the quick brown fox")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := e.Embed(context.Background(), "the quick brown fox")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(a) != 64 {
		t.Fatalf("expected 64 dims, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding not deterministic at dim %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestLocalEmbedderDistinguishesTexts(t *testing.T) {
	e := NewLocalEmbedder(64)

	a, _ := e.Embed(context.Background(), "databases and indexes")
	b, _ := e.Embed(context.Background(), "cooking with garlic")

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different texts produced identical embeddings")
	}
}

func TestLocalEmbedderUnitNorm(t *testing.T) {
	e := NewLocalEmbedder(128)

	vec, err := e.Embed(context.Background(), "normalize me please")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)

	if math.Abs(norm-1.0) > 1e-5 {
		t.Errorf("expected unit norm, got %f", norm)
	}
}

func TestLocalEmbedderBatch(t *testing.T) {
	e := NewLocalEmbedder(32)

	texts := []string{"one", "two", "three"}
	vecs, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vecs))
	}

	single, _ := e.Embed(context.Background(), "two")
	for i := range single {
		if vecs[1][i] != single[i] {
			t.Fatal("batch embedding differs from single embedding")
		}
	}
}

func TestLocalEmbedderDefaultDimensions(t *testing.T) {
	e := NewLocalEmbedder(0)
	if e.Dimensions() != 384 {
		t.Errorf("expected default of 384 dims, got %d", e.Dimensions())
	}
}
