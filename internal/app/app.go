// Package app wires all Auricle subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the long-lived pipeline loops, and Shutdown
// drains in-flight work and tears everything down in order.
//
// For testing, inject mock providers through the Providers struct and tune
// behaviour via functional options. When an option is not provided, New
// derives everything from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/auricle-ai/auricle/internal/config"
	"github.com/auricle-ai/auricle/internal/fact"
	"github.com/auricle-ai/auricle/internal/health"
	"github.com/auricle-ai/auricle/internal/ingest"
	"github.com/auricle-ai/auricle/internal/notify"
	"github.com/auricle-ai/auricle/internal/observe"
	"github.com/auricle-ai/auricle/internal/state"
	"github.com/auricle-ai/auricle/internal/topic"
	"github.com/auricle-ai/auricle/pkg/provider/embeddings"
	"github.com/auricle-ai/auricle/pkg/provider/llm"
	"github.com/auricle-ai/auricle/pkg/provider/search"
	"github.com/auricle-ai/auricle/pkg/provider/stt"
)

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	LLM        llm.Provider
	STT        stt.Provider
	Embeddings embeddings.Provider
	Search     search.Provider
}

// App owns all subsystem lifetimes and orchestrates the Auricle pipeline.
type App struct {
	cfg       *config.Config
	providers *Providers

	// Subsystems — initialised in New, drained in Shutdown.
	store       *state.Store
	broadcaster *notify.Broadcaster
	topics      *topic.Engine
	selector    *fact.Selector
	worker      *fact.Worker
	ingest      *ingest.Ingest
	stream      *Stream

	similarity topic.Similarity
	metrics    *observe.Metrics

	// closers are called in order during Shutdown.
	closers []func() error

	// running is true while Run's loops are live; readiness keys off it.
	running atomic.Bool

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithSimilarity injects a topic similarity scorer instead of deriving one
// from the configured providers.
func WithSimilarity(s topic.Similarity) Option {
	return func(a *App) { a.similarity = s }
}

// WithAppMetrics overrides the metrics instance, mainly for tests.
func WithAppMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry). An LLM provider is
// mandatory; every other slot degrades gracefully when nil.
func New(cfg *config.Config, providers *Providers, observers []notify.Observer, opts ...Option) (*App, error) {
	if providers == nil || providers.LLM == nil {
		return nil, fmt.Errorf("app: an LLM provider is required")
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	// ── 1. State core + notifications ────────────────────────────────────
	a.store = state.New(cfg.Pipeline.TranscriptBufferSize, cfg.Pipeline.ClaimSelectionBatchSize)
	a.broadcaster = notify.NewBroadcaster()
	for _, o := range observers {
		a.broadcaster.Subscribe(o)
	}

	// ── 2. Topic engine ──────────────────────────────────────────────────
	if a.similarity == nil {
		if providers.Embeddings != nil {
			a.similarity = topic.NewEmbeddingSimilarity(providers.Embeddings)
		} else {
			a.similarity = topic.LexicalSimilarity{}
		}
	}
	a.topics = topic.New(providers.LLM, a.similarity, a.store, a.broadcaster, a.topicOptions()...)

	// ── 3. Fact engine ───────────────────────────────────────────────────
	a.selector = fact.NewSelector(providers.LLM, a.store, a.broadcaster,
		fact.WithMaxClaims(cfg.Pipeline.MaxClaimsPerBatch),
		fact.WithSelectorSampling(cfg.LLMCalls.ClaimSelection.Temperature, cfg.LLMCalls.ClaimSelection.MaxTokens),
		fact.WithSelectorMetrics(a.metrics),
	)

	// A missing search provider still lets claims resolve: every check sees
	// zero evidence and lands on UNCERTAIN.
	var evidence search.TextSearcher = noEvidence{}
	if providers.Search != nil {
		evidence = providers.Search
	}
	a.worker = fact.NewWorker(providers.LLM, evidence, a.store, a.broadcaster,
		fact.WithCheckInterval(time.Duration(cfg.Pipeline.FactCheckRateLimitSeconds)*time.Second),
		fact.WithSearchOptions(search.Options{
			MaxResults: cfg.Search.MaxResults,
			SafeSearch: cfg.Search.SafeSearch,
			Region:     cfg.Search.Region,
		}),
		fact.WithBlocklist(fact.NewBlocklist(cfg.Search.URLBlocklist...)),
		fact.WithQuerySampling(cfg.LLMCalls.QueryOptimization.Temperature, cfg.LLMCalls.QueryOptimization.MaxTokens),
		fact.WithVerificationSampling(cfg.LLMCalls.Verification.Temperature, cfg.LLMCalls.Verification.MaxTokens),
		fact.WithWorkerMetrics(a.metrics),
	)

	// ── 4. Ingest dispatcher ─────────────────────────────────────────────
	a.ingest = ingest.New(a.store, a.broadcaster,
		a.topicTask, a.claimTask,
		ingest.WithTopicThreshold(cfg.Pipeline.TopicUpdateThreshold),
		ingest.WithMetrics(a.metrics),
	)

	// ── 5. STT stream ────────────────────────────────────────────────────
	if providers.STT != nil {
		a.stream = NewStream(providers.STT, a.ingest.HandleTranscript)
		a.closers = append(a.closers, a.stream.Close)
	}

	return a, nil
}

// topicOptions derives the topic engine options from config and providers.
func (a *App) topicOptions() []topic.Option {
	opts := []topic.Option{
		topic.WithSimilarityThreshold(a.cfg.Pipeline.SimilarityThreshold),
		topic.WithMetrics(a.metrics),
	}
	if t := a.cfg.LLMCalls.TopicExtraction.Temperature; t != 0 {
		opts = append(opts, topic.WithTemperature(t))
	}
	if n := a.cfg.LLMCalls.TopicExtraction.MaxTokens; n != 0 {
		opts = append(opts, topic.WithMaxTokens(n))
	}
	if a.providers.Search != nil {
		opts = append(opts,
			topic.WithImageSearcher(a.providers.Search),
			topic.WithImageOptions(search.Options{
				MaxResults: a.cfg.Search.MaxResults,
				SafeSearch: a.cfg.Search.SafeSearch,
				Region:     a.cfg.Search.Region,
			}),
		)
	}
	return opts
}

// topicTask is the ingest dispatch target for topic updates. Update publishes
// its own error events; the dispatcher only needs a log line.
func (a *App) topicTask(ctx context.Context, sentences []string) {
	if err := a.topics.Update(ctx, sentences); err != nil {
		slog.Warn("topic update failed", "err", err)
	}
}

// claimTask is the ingest dispatch target for claim selection.
func (a *App) claimTask(ctx context.Context, sentences []string) {
	if err := a.selector.Select(ctx, sentences); err != nil {
		slog.Warn("claim selection failed", "err", err)
	}
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run starts the long-lived pipeline loops and blocks until ctx is cancelled
// or a loop fails. The fact worker and, when an STT provider is configured,
// the transcript stream run under one errgroup.
func (a *App) Run(ctx context.Context) error {
	a.metrics.ActiveSessions.Add(ctx, 1)
	defer a.metrics.ActiveSessions.Add(ctx, -1)
	a.running.Store(true)
	defer a.running.Store(false)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.worker.Run(ctx)
	})

	if a.stream != nil {
		g.Go(func() error {
			return a.stream.Run(ctx, stt.StreamConfig{
				SampleRate: 16000,
				Channels:   1,
				Language:   "en-US",
			})
		})
	}

	slog.Info("pipeline running",
		"session_id", a.store.SessionID(),
		"stt", a.stream != nil,
		"search", a.providers.Search != nil,
		"embeddings", a.providers.Embeddings != nil,
	)

	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// ProcessTranscript feeds one transcript segment directly into the pipeline,
// bypassing the STT stream. Used by tests and by callers that source
// transcripts themselves.
func (a *App) ProcessTranscript(ctx context.Context, tr stt.Transcript) {
	a.ingest.HandleTranscript(ctx, tr)
}

// SendAudio forwards raw PCM audio to the STT stream. Returns an error when
// no STT provider is configured or no session is open.
func (a *App) SendAudio(chunk []byte) error {
	if a.stream == nil {
		return fmt.Errorf("app: no STT provider configured")
	}
	return a.stream.SendAudio(chunk)
}

// Export returns a point-in-time snapshot of the session state.
func (a *App) Export() state.Snapshot {
	return a.store.Export()
}

// Store exposes the state core, mainly for tests and the export path.
func (a *App) Store() *state.Store {
	return a.store
}

// Broadcaster exposes the event fan-out so callers can attach observers
// after construction.
func (a *App) Broadcaster() *notify.Broadcaster {
	return a.broadcaster
}

// ReadyChecks returns the readiness probes for this application: the
// pipeline loops must be running, and when an STT provider is configured
// its session must be open.
func (a *App) ReadyChecks() []health.Check {
	checks := []health.Check{
		{Name: "pipeline", Probe: func(context.Context) error {
			if !a.running.Load() {
				return errors.New("pipeline is not running")
			}
			return nil
		}},
	}
	if a.stream != nil {
		checks = append(checks, health.Check{Name: "stt_stream", Probe: func(context.Context) error {
			if !a.stream.Connected() {
				return errors.New("no open STT session")
			}
			return nil
		}})
	}
	return checks
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown drains in-flight pipeline tasks and tears down subsystems. It
// respects the context deadline: dispatched tasks that do not finish in time
// are abandoned and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		// Drain dispatched topic and selection tasks first so the final
		// export sees their results.
		if err := a.ingest.Wait(ctx); err != nil {
			slog.Warn("ingest drain incomplete", "err", err)
			shutdownErr = err
		}
		waitBounded(ctx, a.topics.Wait)

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete", "session_id", a.store.SessionID())
	})
	return shutdownErr
}

// waitBounded runs the blocking wait fn but gives up when ctx is done.
func waitBounded(ctx context.Context, fn func()) {
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// noEvidence is the searcher used when no search provider is configured.
type noEvidence struct{}

func (noEvidence) SearchText(context.Context, string, search.Options) ([]search.TextResult, error) {
	return nil, nil
}
