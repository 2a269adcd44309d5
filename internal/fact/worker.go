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
	"github.com/auricle-ai/auricle/pkg/provider/search"
)

const queryOptimizationSystem = "You are a search query optimization assistant."

// queryOptimizationPrompt takes the raw claim text.
const queryOptimizationPrompt = `Convert this claim into an optimized web search query.

Claim: %s

Instructions:
1. Extract the CORE FACTUAL ASSERTION (remove filler, opinions, context)
2. Identify KEY ENTITIES (names, organizations, places, numbers, dates)
3. Create a concise search query (3-8 words) that will find relevant evidence

Examples:
- Claim: "eighty percent not maybe ninety percent of the funding goes to the democrats"
  Query: "political funding distribution democrats republicans percentage"

- Claim: "ninety percent of the money is going to your opponents"
  Query: "campaign finance political party funding distribution"

Output ONLY the search query, nothing else.`

const verificationSystem = "You are a fact-checking assistant. Always respond in valid JSON format."

// verificationPrompt takes the claim and the formatted evidence block.
const verificationPrompt = `You are a fact-checking assistant verifying claims against evidence.

CLAIM: "%s"

EVIDENCE FROM WEB SEARCH:
%s

Your task: Determine if the claim is supported, refuted, or uncertain based on the evidence.

Respond in JSON format:
{
    "verdict": "SUPPORTED" | "REFUTED" | "UNCERTAIN",
    "confidence": 0.0-1.0,
    "explanation": "brief explanation citing specific evidence",
    "key_facts": ["fact1", "fact2"]
}

Guidelines:
- SUPPORTED: Evidence clearly confirms the claim
- REFUTED: Evidence clearly refutes the claim
- UNCERTAIN: Insufficient or conflicting evidence
- Be conservative: prefer UNCERTAIN over hasty conclusions
- Cite specific snippets from evidence in explanation`

// Defaults for Worker construction.
const (
	DefaultCheckInterval = 10 * time.Second

	queryTemperature = 0.1
	queryMaxTokens   = 50

	verifyTemperature = 0.2
	verifyMaxTokens   = 500
)

// Worker is the single consumer of the claim queue. It verifies one claim
// at a time: optimize the search query, gather evidence, ask the model for
// a verdict, record the result. Consecutive check starts are spaced by the
// configured interval; a slow check eats into the wait for the next one.
//
// A failed check publishes an error event and moves on. Claims are never
// retried.
type Worker struct {
	llm      llm.Provider
	searcher search.TextSearcher
	store    *state.Store
	pub      notify.Publisher
	metrics  *observe.Metrics

	blocklist  *Blocklist
	interval   time.Duration
	searchOpts search.Options

	queryTemperature  float64
	queryMaxTokens    int
	verifyTemperature float64
	verifyMaxTokens   int

	lastStart time.Time
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithCheckInterval sets the minimum spacing between verification starts.
func WithCheckInterval(d time.Duration) WorkerOption {
	return func(w *Worker) { w.interval = d }
}

// WithSearchOptions overrides the evidence search options.
func WithSearchOptions(opts search.Options) WorkerOption {
	return func(w *Worker) { w.searchOpts = opts }
}

// WithBlocklist replaces the default evidence URL blocklist.
func WithBlocklist(b *Blocklist) WorkerOption {
	return func(w *Worker) { w.blocklist = b }
}

// WithQuerySampling overrides the query-optimization sampling parameters.
// Zero values keep the defaults.
func WithQuerySampling(temperature float64, maxTokens int) WorkerOption {
	return func(w *Worker) {
		if temperature != 0 {
			w.queryTemperature = temperature
		}
		if maxTokens != 0 {
			w.queryMaxTokens = maxTokens
		}
	}
}

// WithVerificationSampling overrides the verification sampling parameters.
// Zero values keep the defaults.
func WithVerificationSampling(temperature float64, maxTokens int) WorkerOption {
	return func(w *Worker) {
		if temperature != 0 {
			w.verifyTemperature = temperature
		}
		if maxTokens != 0 {
			w.verifyMaxTokens = maxTokens
		}
	}
}

// WithWorkerMetrics overrides the metrics instance, mainly for tests.
func WithWorkerMetrics(m *observe.Metrics) WorkerOption {
	return func(w *Worker) { w.metrics = m }
}

// NewWorker creates a verification Worker draining store's claim queue.
func NewWorker(provider llm.Provider, searcher search.TextSearcher, store *state.Store, pub notify.Publisher, opts ...WorkerOption) *Worker {
	w := &Worker{
		llm:      provider,
		searcher: searcher,
		store:    store,
		pub:      pub,
		interval: DefaultCheckInterval,
		searchOpts: search.Options{
			MaxResults: 5,
			SafeSearch: search.SafeSearchStrict,
			Region:     "wt-wt",
		},
		queryTemperature:  queryTemperature,
		queryMaxTokens:    queryMaxTokens,
		verifyTemperature: verifyTemperature,
		verifyMaxTokens:   verifyMaxTokens,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.blocklist == nil {
		w.blocklist = NewBlocklist()
	}
	if w.metrics == nil {
		w.metrics = observe.DefaultMetrics()
	}
	return w
}

// Run consumes the claim queue until ctx is done. It always returns ctx's
// error; run it under an errgroup.
func (w *Worker) Run(ctx context.Context) error {
	for {
		claim, err := w.store.DequeueClaim(ctx)
		if err != nil {
			return err
		}
		w.metrics.ClaimQueueDepth.Add(ctx, -1)

		// Spacing is measured start to start, so verification time counts
		// against the interval.
		if !w.lastStart.IsZero() {
			if wait := w.interval - time.Since(w.lastStart); wait > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(wait):
				}
			}
		}
		w.lastStart = time.Now()

		w.check(ctx, claim)
	}
}

// check verifies a single claim and records the outcome. Failures publish
// an error event and drop the claim.
func (w *Worker) check(ctx context.Context, claim string) {
	start := time.Now()
	result, err := w.verify(ctx, claim)
	w.metrics.FactCheckDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		w.fail(ctx, claim, err)
		return
	}

	if err := w.store.AppendFactResult(result); err != nil {
		w.fail(ctx, claim, err)
		return
	}
	w.metrics.RecordFactVerdict(ctx, string(result.Verdict))
	observe.Logger(ctx).Info("fact checked",
		"claim", claim,
		"verdict", string(result.Verdict),
		"confidence", result.Confidence,
		"sources", len(result.EvidenceSources))

	w.pub.Publish(notify.NewFactResult(notify.FactResult{
		Claim:       result.Claim,
		Verdict:     string(result.Verdict),
		Confidence:  result.Confidence,
		Explanation: result.Explanation,
		KeyFacts:    result.KeyFacts,
		Sources:     result.EvidenceSources,
	}))
}

// verdictAnswer is the model's JSON answer to the verification prompt.
type verdictAnswer struct {
	Verdict     string   `json:"verdict"`
	Confidence  float64  `json:"confidence"`
	Explanation string   `json:"explanation"`
	KeyFacts    []string `json:"key_facts"`
}

// verify runs the three verification steps for one claim.
func (w *Worker) verify(ctx context.Context, claim string) (state.FactResult, error) {
	query := w.optimizeQuery(ctx, claim)

	evidence, err := w.searchEvidence(ctx, query)
	if err != nil {
		return state.FactResult{}, err
	}

	// No usable evidence short-circuits to an uncertain verdict without an
	// LLM round trip.
	if len(evidence) == 0 {
		return state.FactResult{
			Claim:       claim,
			Verdict:     state.VerdictUncertain,
			Confidence:  0,
			Explanation: "No evidence found to verify this claim",
			Timestamp:   time.Now(),
		}, nil
	}

	start := time.Now()
	resp, err := w.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: verificationSystem,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: fmt.Sprintf(verificationPrompt, claim, formatEvidence(evidence))},
		},
		Temperature: w.verifyTemperature,
		MaxTokens:   w.verifyMaxTokens,
	})
	w.metrics.RecordLLMCall(ctx, "verification", time.Since(start).Seconds())
	w.metrics.RecordProviderRequest(ctx, "llm", "verification", observe.RequestStatus(err))
	if err != nil {
		return state.FactResult{}, err
	}

	var answer verdictAnswer
	if err := llmjson.Decode("fact.verify", resp.Content, &answer); err != nil {
		return state.FactResult{}, err
	}

	verdict := state.Verdict(strings.ToUpper(strings.TrimSpace(answer.Verdict)))
	if !verdict.IsValid() {
		return state.FactResult{}, fault.New(fault.Policy, "fact.verify", "model returned verdict %q outside enumerated set", answer.Verdict)
	}
	if answer.Confidence < 0 || answer.Confidence > 1 {
		return state.FactResult{}, fault.New(fault.Policy, "fact.verify", "model returned confidence %v outside [0,1]", answer.Confidence)
	}

	sources := make([]string, 0, len(evidence))
	for _, e := range evidence {
		sources = append(sources, e.URL)
	}

	return state.FactResult{
		Claim:           claim,
		Verdict:         verdict,
		Confidence:      answer.Confidence,
		Explanation:     answer.Explanation,
		KeyFacts:        answer.KeyFacts,
		EvidenceSources: sources,
		Timestamp:       time.Now(),
	}, nil
}

// optimizeQuery turns a conversational claim into a short search query. On
// failure the claim itself is the query; verification quality degrades but
// the check proceeds.
func (w *Worker) optimizeQuery(ctx context.Context, claim string) string {
	start := time.Now()
	resp, err := w.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: queryOptimizationSystem,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: fmt.Sprintf(queryOptimizationPrompt, claim)},
		},
		Temperature: w.queryTemperature,
		MaxTokens:   w.queryMaxTokens,
	})
	w.metrics.RecordLLMCall(ctx, "query_optimization", time.Since(start).Seconds())
	w.metrics.RecordProviderRequest(ctx, "llm", "query_optimization", observe.RequestStatus(err))
	if err != nil {
		observe.Logger(ctx).Warn("query optimization failed, using claim as query", "err", err)
		return claim
	}

	query := strings.TrimSpace(strings.Trim(strings.TrimSpace(resp.Content), `"'`))
	if query == "" {
		return claim
	}
	return query
}

// searchEvidence gathers text search results for the query, dropping
// blocklisted URLs.
func (w *Worker) searchEvidence(ctx context.Context, query string) ([]search.TextResult, error) {
	start := time.Now()
	results, err := w.searcher.SearchText(ctx, query, w.searchOpts)
	w.metrics.RecordSearch(ctx, "text", time.Since(start).Seconds())
	w.metrics.RecordProviderRequest(ctx, "search", "text", observe.RequestStatus(err))
	if err != nil {
		w.metrics.RecordProviderError(ctx, "search", "text")
		return nil, err
	}

	evidence := make([]search.TextResult, 0, len(results))
	for _, r := range results {
		if w.blocklist.Blocked(r.URL) {
			observe.Logger(ctx).Debug("blocked evidence source", "url", r.URL)
			continue
		}
		evidence = append(evidence, r)
	}
	return evidence, nil
}

// formatEvidence renders search results into the numbered block the
// verification prompt expects.
func formatEvidence(evidence []search.TextResult) string {
	var b strings.Builder
	for i, e := range evidence {
		fmt.Fprintf(&b, "\n[Source %d] %s\n%s\nURL: %s\n", i+1, e.Title, e.Snippet, e.URL)
	}
	return b.String()
}

// fail publishes a classified error event for a dropped claim.
func (w *Worker) fail(ctx context.Context, claim string, err error) {
	kind := fault.Transport
	if k, ok := fault.KindOf(err); ok {
		kind = k
	}
	observe.Logger(ctx).Error("fact check failed", "claim", claim, "kind", string(kind), "err", err)
	w.pub.Publish(notify.NewError(string(kind), err.Error()))
}
