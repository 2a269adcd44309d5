package topic

import (
	"context"
	"math"
	"strings"
	"sync"

	"github.com/antzucaro/matchr"

	"github.com/auricle-ai/auricle/pkg/provider/embeddings"
)

// Similarity scores how close two topic texts are, in [0,1]. Conforming
// implementations are symmetric and score identical strings as 1. Quality
// of the implementation affects matching quality only, never pipeline
// correctness.
type Similarity interface {
	Score(ctx context.Context, a, b string) (float64, error)
}

// EmbeddingSimilarity implements Similarity as cosine similarity over an
// embeddings provider. Vectors are cached per normalized string for the
// lifetime of the value, so repeated comparisons against the same topics
// cost one provider call per distinct string.
//
// Safe for concurrent use.
type EmbeddingSimilarity struct {
	provider embeddings.Provider

	mu    sync.Mutex
	cache map[string][]float32
}

// NewEmbeddingSimilarity returns an EmbeddingSimilarity backed by provider.
func NewEmbeddingSimilarity(provider embeddings.Provider) *EmbeddingSimilarity {
	return &EmbeddingSimilarity{
		provider: provider,
		cache:    make(map[string][]float32),
	}
}

// Score implements Similarity. Cosine values below zero are clamped to 0
// so the result stays in [0,1].
func (e *EmbeddingSimilarity) Score(ctx context.Context, a, b string) (float64, error) {
	na, nb := normalize(a), normalize(b)
	if na == nb {
		return 1, nil
	}

	va, err := e.vector(ctx, na)
	if err != nil {
		return 0, err
	}
	vb, err := e.vector(ctx, nb)
	if err != nil {
		return 0, err
	}

	cos := cosine(va, vb)
	if cos < 0 {
		cos = 0
	}
	return cos, nil
}

// vector returns the cached embedding for text, fetching it on first use.
func (e *EmbeddingSimilarity) vector(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	if v, ok := e.cache[text]; ok {
		e.mu.Unlock()
		return v, nil
	}
	e.mu.Unlock()

	v, err := e.provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[text] = v
	e.mu.Unlock()
	return v, nil
}

// cosine computes the cosine similarity of two vectors. Mismatched lengths
// or zero norms score 0.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// LexicalSimilarity implements Similarity with Jaro-Winkler string
// similarity, no network calls. It is the fallback when no embeddings
// provider is configured.
//
// The score is the best of three comparisons: the full strings, the
// strings with spaces removed, and the best pairwise token score. This
// keeps multi-word topic titles ("Solar Energy" vs "Solar Power
// Generation") from scoring artificially low.
type LexicalSimilarity struct{}

// Score implements Similarity. The error result is always nil.
func (LexicalSimilarity) Score(_ context.Context, a, b string) (float64, error) {
	na, nb := normalize(a), normalize(b)
	if na == nb {
		return 1, nil
	}
	if na == "" || nb == "" {
		return 0, nil
	}

	score := matchr.JaroWinkler(na, nb, false)

	aTokens := strings.Fields(na)
	bTokens := strings.Fields(nb)

	if len(aTokens) > 1 || len(bTokens) > 1 {
		concatA := strings.Join(aTokens, "")
		concatB := strings.Join(bTokens, "")
		if s := matchr.JaroWinkler(concatA, concatB, false); s > score {
			score = s
		}
	}

	for _, at := range aTokens {
		for _, bt := range bTokens {
			if s := matchr.JaroWinkler(at, bt, false); s > score {
				score = s
			}
		}
	}

	return score, nil
}

// normalize lowercases and trims topic text for comparison.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
