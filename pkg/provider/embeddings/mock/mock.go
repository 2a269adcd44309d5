// Package mock provides a test double for the embeddings.Provider interface.
//
// The default behavior maps each distinct input string to a deterministic
// unit vector, so tests get stable, reproducible similarity scores without
// a live backend. Set Vectors to pin exact outputs per input.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"sync"

	"github.com/auricle-ai/auricle/pkg/provider/embeddings"
)

// Ensure Provider implements embeddings.Provider at compile time.
var _ embeddings.Provider = (*Provider)(nil)

// Provider is a mock implementation of embeddings.Provider.
type Provider struct {
	mu sync.Mutex

	// Vectors maps input text to the vector to return. Inputs absent from
	// the map fall back to a deterministic hash-derived unit vector.
	Vectors map[string][]float32

	// Err, if non-nil, is returned from Embed and EmbedBatch.
	Err error

	// Dim is the vector length for generated vectors. Defaults to 8.
	Dim int

	// EmbedCalls records every input passed to Embed, in order.
	EmbedCalls []string

	// EmbedBatchCalls records every slice passed to EmbedBatch, in order.
	EmbedBatchCalls [][]string
}

// Embed records the call and returns the configured or generated vector.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	p.EmbedCalls = append(p.EmbedCalls, text)
	p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}
	return p.vectorFor(text), nil
}

// EmbedBatch records the call and returns one vector per input.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	batch := make([]string, len(texts))
	copy(batch, texts)
	p.EmbedBatchCalls = append(p.EmbedBatchCalls, batch)
	p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = p.vectorFor(t)
	}
	return out, nil
}

// Dimensions returns Dim, or 8 when unset.
func (p *Provider) Dimensions() int {
	if p.Dim == 0 {
		return 8
	}
	return p.Dim
}

// ModelID identifies this double in logs.
func (p *Provider) ModelID() string {
	return "mock-embed"
}

// EmbedCallCount returns the number of recorded Embed calls. Thread-safe.
func (p *Provider) EmbedCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.EmbedCalls)
}

// vectorFor returns the pinned vector for text, or a deterministic
// hash-derived unit vector.
func (p *Provider) vectorFor(text string) []float32 {
	if v, ok := p.Vectors[text]; ok {
		out := make([]float32, len(v))
		copy(out, v)
		return out
	}

	dim := p.Dimensions()
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, dim)
	var norm float64
	for i := range vec {
		// xorshift over the seed for per-component values
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		vec[i] = float32(int64(seed%2000)-1000) / 1000
		norm += float64(vec[i]) * float64(vec[i])
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}
