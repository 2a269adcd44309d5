// Package fact runs the verification half of the pipeline: batched claim
// selection, and a single rate-limited worker that searches the web for
// evidence and asks the model for a verdict.
package fact

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/auricle-ai/auricle/internal/llmjson"
	"github.com/auricle-ai/auricle/internal/notify"
	"github.com/auricle-ai/auricle/internal/observe"
	"github.com/auricle-ai/auricle/internal/state"
	"github.com/auricle-ai/auricle/pkg/fault"
	"github.com/auricle-ai/auricle/pkg/provider/llm"
)

const claimSelectionSystem = "You are a claim selection assistant. Always respond in valid JSON format."

// claimSelectionPrompt takes the batched transcript text and the maximum
// number of claims to select.
const claimSelectionPrompt = `You are analyzing a conversation transcript to find statements worth fact-checking.

Text: "%s"

Select at most %d statements that contain FACTUAL CLAIMS worth verifying.

A factual claim is:
- A statement about objective reality (dates, numbers, events, scientific facts)
- Something that can be verified as true or false
- NOT an opinion, feeling, or subjective statement

Rewrite each selected claim as a standalone sentence carrying enough context to verify on its own.

Respond in JSON format:
{
    "selected_claims": [
        {"claim": "extracted claim with full context", "reason": "brief explanation"}
    ]
}

Return an empty list when nothing is worth checking.

Examples:
- "The Eiffel Tower is 324 meters tall" → select
- "I think Paris is beautiful" → skip
- "Studies show coffee reduces heart disease risk" → select
- "We should meet tomorrow" → skip`

// Defaults for Selector construction.
const (
	DefaultMaxClaimsPerBatch = 2
	selectorTemperature      = 0.2
	selectorMaxTokens        = 400
)

// Selector picks the most check-worthy claims out of a sentence batch and
// enqueues them for the Worker. Owned by the ingest dispatcher; Select is
// never called concurrently with itself.
type Selector struct {
	llm     llm.Provider
	store   *state.Store
	pub     notify.Publisher
	metrics *observe.Metrics

	maxClaims   int
	temperature float64
	maxTokens   int
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithMaxClaims caps how many claims one batch may enqueue.
func WithMaxClaims(n int) SelectorOption {
	return func(s *Selector) { s.maxClaims = n }
}

// WithSelectorSampling overrides the LLM sampling parameters. Zero values
// keep the defaults.
func WithSelectorSampling(temperature float64, maxTokens int) SelectorOption {
	return func(s *Selector) {
		if temperature != 0 {
			s.temperature = temperature
		}
		if maxTokens != 0 {
			s.maxTokens = maxTokens
		}
	}
}

// WithSelectorMetrics overrides the metrics instance, mainly for tests.
func WithSelectorMetrics(m *observe.Metrics) SelectorOption {
	return func(s *Selector) { s.metrics = m }
}

// NewSelector creates a Selector enqueueing into store and publishing to pub.
func NewSelector(provider llm.Provider, store *state.Store, pub notify.Publisher, opts ...SelectorOption) *Selector {
	s := &Selector{
		llm:         provider,
		store:       store,
		pub:         pub,
		maxClaims:   DefaultMaxClaimsPerBatch,
		temperature: selectorTemperature,
		maxTokens:   selectorMaxTokens,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// selection is the model's JSON answer.
type selection struct {
	SelectedClaims []struct {
		Claim  string `json:"claim"`
		Reason string `json:"reason"`
	} `json:"selected_claims"`
}

// Select runs one claim-selection pass over a drained sentence batch. An
// empty selection is a valid outcome; model or parse failures are published
// as error events and returned, and enqueue nothing.
func (s *Selector) Select(ctx context.Context, sentences []string) error {
	text := strings.TrimSpace(strings.Join(sentences, " "))
	if text == "" {
		return nil
	}

	start := time.Now()
	resp, err := s.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: claimSelectionSystem,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: fmt.Sprintf(claimSelectionPrompt, text, s.maxClaims)},
		},
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	s.metrics.RecordLLMCall(ctx, "claim_selection", time.Since(start).Seconds())
	s.metrics.RecordProviderRequest(ctx, "llm", "claim_selection", observe.RequestStatus(err))
	if err != nil {
		s.fail(ctx, err)
		return err
	}

	var out selection
	if err := llmjson.Decode("fact.select", resp.Content, &out); err != nil {
		s.fail(ctx, err)
		return err
	}

	enqueued := 0
	for _, c := range out.SelectedClaims {
		claim := strings.TrimSpace(c.Claim)
		if claim == "" {
			continue
		}
		if enqueued >= s.maxClaims {
			break
		}
		queueSize := s.store.EnqueueClaim(claim)
		enqueued++

		s.metrics.ClaimsSelected.Add(ctx, 1)
		s.metrics.ClaimQueueDepth.Add(ctx, 1)
		observe.Logger(ctx).Info("claim selected", "claim", claim, "queue_size", queueSize)
		s.pub.Publish(notify.NewClaimSelected(notify.ClaimSelected{
			Claim:     claim,
			QueueSize: queueSize,
		}))
	}
	return nil
}

// fail publishes a classified error event.
func (s *Selector) fail(ctx context.Context, err error) {
	kind := fault.Transport
	if k, ok := fault.KindOf(err); ok {
		kind = k
	}
	observe.Logger(ctx).Error("claim selection failed", "kind", string(kind), "err", err)
	s.pub.Publish(notify.NewError(string(kind), err.Error()))
}
