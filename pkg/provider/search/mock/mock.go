// Package mock provides a test double for the search.Provider interface.
//
// Configure fixed results or error injections per capability, and use the
// Func hooks when a test needs timing control (e.g., a deliberately slow
// image search).
package mock

import (
	"context"
	"sync"

	"github.com/auricle-ai/auricle/pkg/provider/search"
)

// Ensure Provider implements search.Provider at compile time.
var _ search.Provider = (*Provider)(nil)

// TextCall records a single invocation of SearchText.
type TextCall struct {
	Query string
	Opts  search.Options
}

// ImageCall records a single invocation of SearchImages.
type ImageCall struct {
	Query string
	Opts  search.Options
}

// Provider is a mock implementation of search.Provider.
type Provider struct {
	mu sync.Mutex

	// ─── Configurable responses ───

	// TextResults is returned by SearchText when TextFunc is unset.
	TextResults []search.TextResult

	// TextErr, if non-nil, is returned as the error from SearchText.
	TextErr error

	// TextFunc, if non-nil, overrides TextResults/TextErr.
	TextFunc func(ctx context.Context, query string, opts search.Options) ([]search.TextResult, error)

	// ImageResults is returned by SearchImages when ImageFunc is unset.
	ImageResults []search.ImageResult

	// ImageErr, if non-nil, is returned as the error from SearchImages.
	ImageErr error

	// ImageFunc, if non-nil, overrides ImageResults/ImageErr.
	ImageFunc func(ctx context.Context, query string, opts search.Options) ([]search.ImageResult, error)

	// ─── Call records (read after test) ───

	// TextCalls records every invocation of SearchText in order.
	TextCalls []TextCall

	// ImageCalls records every invocation of SearchImages in order.
	ImageCalls []ImageCall
}

// SearchText records the call and returns the configured results.
func (p *Provider) SearchText(ctx context.Context, query string, opts search.Options) ([]search.TextResult, error) {
	p.mu.Lock()
	p.TextCalls = append(p.TextCalls, TextCall{Query: query, Opts: opts})
	fn := p.TextFunc
	results := make([]search.TextResult, len(p.TextResults))
	copy(results, p.TextResults)
	err := p.TextErr
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, query, opts)
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

// SearchImages records the call and returns the configured results.
func (p *Provider) SearchImages(ctx context.Context, query string, opts search.Options) ([]search.ImageResult, error) {
	p.mu.Lock()
	p.ImageCalls = append(p.ImageCalls, ImageCall{Query: query, Opts: opts})
	fn := p.ImageFunc
	results := make([]search.ImageResult, len(p.ImageResults))
	copy(results, p.ImageResults)
	err := p.ImageErr
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, query, opts)
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

// TextCallCount returns the number of recorded SearchText calls. Thread-safe.
func (p *Provider) TextCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.TextCalls)
}

// ImageCallCount returns the number of recorded SearchImages calls. Thread-safe.
func (p *Provider) ImageCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ImageCalls)
}
