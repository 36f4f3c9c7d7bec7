package ai

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// LocalEmbedder is a deterministic feature-hashing embedder. It needs no
// model weights or network access, which makes it the default for
// development and for tests. Texts sharing many tokens map to nearby
// vectors under cosine distance; distinct texts rarely collide.
type LocalEmbedder struct {
	dimensions int
}

// NewLocalEmbedder creates an embedder emitting vectors of the given
// dimension (e.g. 384 to mirror sentence-transformer models).
func NewLocalEmbedder(dimensions int) *LocalEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &LocalEmbedder{dimensions: dimensions}
}

// Dimensions returns the output vector size.
func (e *LocalEmbedder) Dimensions() int { return e.dimensions }

func (e *LocalEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimensions)

	tokens := tokenize(text)
	for i, tok := range tokens {
		bump(vec, tok, 1.0)
		// Bigrams keep some word order in the signal.
		if i+1 < len(tokens) {
			bump(vec, tok+" "+tokens[i+1], 0.5)
		}
	}

	normalize(vec)
	return vec, nil
}

func (e *LocalEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	return fields
}

func bump(vec []float32, token string, weight float32) {
	h := fnv.New64a()
	h.Write([]byte(token))
	sum := h.Sum64()

	idx := int(sum % uint64(len(vec)))
	// Second hash bit picks the sign so buckets cancel rather than pile up.
	sign := float32(1)
	if (sum>>63)&1 == 1 {
		sign = -1
	}
	vec[idx] += sign * weight
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
