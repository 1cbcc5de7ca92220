package records_test

import (
	"context"
	"math"
	"slices"
	"testing"

	"github.com/PadsterH2012/rpger-content-extractor-sub000/internal/records"
)

func TestHashEmbeddingDeterministic(t *testing.T) {
	embed := records.NewHashEmbedding(256)

	first, err := embed(context.Background(), "Goblin warband in the misty hills")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	second, err := embed(context.Background(), "Goblin warband in the misty hills")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}

	if !slices.Equal(first, second) {
		t.Error("expected identical text to embed to identical vectors")
	}
}

func TestHashEmbeddingCaseInsensitive(t *testing.T) {
	embed := records.NewHashEmbedding(256)

	upper, _ := embed(context.Background(), "FIREBALL SPELL")
	lower, _ := embed(context.Background(), "fireball spell")

	if !slices.Equal(upper, lower) {
		t.Error("expected case-folded tokens")
	}
}

func TestHashEmbeddingUnitNorm(t *testing.T) {
	embed := records.NewHashEmbedding(128)

	vec, err := embed(context.Background(), "the quick brown fox jumps over the lazy dog")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 128 {
		t.Fatalf("expected 128 dimensions, got %d", len(vec))
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if math.Abs(sum-1) > 1e-5 {
		t.Errorf("expected unit vector, got squared norm %f", sum)
	}
}

func TestHashEmbeddingEmptyText(t *testing.T) {
	embed := records.NewHashEmbedding(64)

	vec, err := embed(context.Background(), "")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if vec[0] != 1 {
		t.Error("expected empty text to produce a fixed unit vector")
	}
	for i, v := range vec[1:] {
		if v != 0 {
			t.Fatalf("expected zero at dimension %d, got %f", i+1, v)
		}
	}
}

func TestHashEmbeddingDistinguishesText(t *testing.T) {
	embed := records.NewHashEmbedding(256)

	a, _ := embed(context.Background(), "fireball spell radius damage")
	b, _ := embed(context.Background(), "goblin caravan ambush night")

	if slices.Equal(a, b) {
		t.Error("expected unrelated text to embed differently")
	}
}

func TestNewEmbeddingFallsBackToLocal(t *testing.T) {
	cfg := records.Config{Embedding: "openai", EmbeddingDim: 256}

	// No API key means the remote embedder cannot be built.
	embed := records.NewEmbedding(cfg, "")
	local := records.NewHashEmbedding(256)

	got, err := embed(context.Background(), "dragon hoard")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	want, _ := local(context.Background(), "dragon hoard")

	if !slices.Equal(got, want) {
		t.Error("expected keyless config to use the local embedder")
	}
}
