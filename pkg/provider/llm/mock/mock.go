// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to verify the prompts the engines send and to
// feed controlled responses without a live LLM backend. Responses can be a
// fixed value, a scripted sequence, or a function of the request.
//
// Example:
//
//	p := &mock.Provider{
//	    Responses: []string{`{"topic": "Solar Energy", "keywords": ["panels"]}`},
//	}
//	resp, err := p.Complete(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/auricle-ai/auricle/pkg/provider/llm"
)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context
	// Req is the CompletionRequest passed to Complete.
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider.
// Zero values cause methods to return empty responses and nil errors.
type Provider struct {
	mu sync.Mutex

	// ─── Configurable responses ───

	// Response is the content returned by every Complete call when
	// Responses and CompleteFunc are unset.
	Response string

	// Responses, when non-empty, is consumed one entry per Complete call.
	// After the sequence is exhausted the last entry repeats.
	Responses []string

	// Err, if non-nil, is returned as the error from Complete.
	Err error

	// CompleteFunc, if non-nil, overrides all other response fields.
	CompleteFunc func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)

	// Model is returned by ModelID. Defaults to "mock" when empty.
	Model string

	// ─── Call records (read after test) ───

	// CompleteCalls records every invocation of Complete in order.
	CompleteCalls []CompleteCall

	next int
}

// Complete records the call and returns the configured response.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Ctx: ctx, Req: req})
	fn := p.CompleteFunc
	err := p.Err
	content := p.Response
	if len(p.Responses) > 0 {
		idx := p.next
		if idx >= len(p.Responses) {
			idx = len(p.Responses) - 1
		}
		content = p.Responses[idx]
		p.next++
	}
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	return &llm.CompletionResponse{Content: content}, nil
}

// ModelID returns the configured model name.
func (p *Provider) ModelID() string {
	if p.Model == "" {
		return "mock"
	}
	return p.Model
}

// Calls returns a copy of the recorded Complete calls. Thread-safe.
func (p *Provider) Calls() []CompleteCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]CompleteCall, len(p.CompleteCalls))
	copy(out, p.CompleteCalls)
	return out
}

// Reset clears all recorded calls and the response cursor. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CompleteCalls = nil
	p.next = 0
}

// Ensure Provider implements llm.Provider at compile time.
var _ llm.Provider = (*Provider)(nil)
