package records

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	chromem "github.com/philippgille/chromem-go"
)

// NewEmbedding selects the embedding function for the semantic store.
// The local embedder is the default so that commits and repairs work
// with no network and no credentials.
func NewEmbedding(cfg Config, openAIKey string) chromem.EmbeddingFunc {
	if cfg.Embedding == "openai" && openAIKey != "" {
		return chromem.NewEmbeddingFuncOpenAI(openAIKey, chromem.EmbeddingModelOpenAI3Small)
	}
	return NewHashEmbedding(cfg.EmbeddingDim)
}

// NewHashEmbedding builds a deterministic feature-hash embedder. Tokens
// are folded into dim buckets by FNV-1a and the vector is L2-normalized,
// so equal text always embeds to equal vectors. The point is not
// state-of-the-art recall; it is that the repair pass can rebuild the
// semantic store from the document store alone.
func NewHashEmbedding(dim int) chromem.EmbeddingFunc {
	if dim <= 0 {
		dim = 256
	}
	return func(_ context.Context, text string) ([]float32, error) {
		vec := make([]float32, dim)
		for _, token := range tokenize(text) {
			h := fnv.New32a()
			h.Write([]byte(token))
			vec[int(h.Sum32())%dim]++
		}
		return normalize(vec), nil
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		// Empty text still needs a valid unit vector.
		vec[0] = 1
		return vec
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
