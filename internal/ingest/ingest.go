// Package ingest is the entry point of the pipeline: every transcript
// segment lands here first. Partials update listeners only; final
// sentences accumulate toward the topic window and the claim batch, and
// crossing either threshold dispatches the downstream stage as a tracked
// background task so ingestion never waits on an LLM.
package ingest

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/auricle-ai/auricle/internal/notify"
	"github.com/auricle-ai/auricle/internal/observe"
	"github.com/auricle-ai/auricle/internal/state"
	"github.com/auricle-ai/auricle/pkg/provider/stt"
)

// DefaultTopicThreshold is the number of final sentences that triggers a
// topic update.
const DefaultTopicThreshold = 5

// TaskFunc is a downstream stage invoked with a drained sentence window.
type TaskFunc func(ctx context.Context, sentences []string)

// Ingest routes transcript segments into the store and fires the topic and
// claim-selection stages. HandleTranscript is called from the single STT
// pump goroutine; the dispatched tasks run concurrently with it.
type Ingest struct {
	store   *state.Store
	pub     notify.Publisher
	metrics *observe.Metrics

	topicFn   TaskFunc
	claimsFn  TaskFunc
	threshold int

	wg sync.WaitGroup
}

// Option configures an Ingest.
type Option func(*Ingest)

// WithTopicThreshold sets how many final sentences trigger a topic update.
func WithTopicThreshold(n int) Option {
	return func(i *Ingest) { i.threshold = n }
}

// WithMetrics overrides the metrics instance, mainly for tests.
func WithMetrics(m *observe.Metrics) Option {
	return func(i *Ingest) { i.metrics = m }
}

// New creates an Ingest dispatching to topicFn and claimsFn. The claim
// batch size lives in the store; only the topic threshold is configured
// here.
func New(store *state.Store, pub notify.Publisher, topicFn, claimsFn TaskFunc, opts ...Option) *Ingest {
	i := &Ingest{
		store:     store,
		pub:       pub,
		topicFn:   topicFn,
		claimsFn:  claimsFn,
		threshold: DefaultTopicThreshold,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.threshold <= 0 {
		i.threshold = DefaultTopicThreshold
	}
	if i.metrics == nil {
		i.metrics = observe.DefaultMetrics()
	}
	return i
}

// HandleTranscript processes one transcript segment. It never blocks on
// downstream stages.
func (i *Ingest) HandleTranscript(ctx context.Context, tr stt.Transcript) {
	text := strings.TrimSpace(tr.Text)
	if text == "" {
		return
	}

	i.pub.Publish(notify.NewTranscript(notify.Transcript{
		Text:       text,
		IsFinal:    tr.IsFinal,
		Confidence: tr.Confidence,
	}))

	windowLen := i.store.AppendSegment(state.Segment{
		Text:       text,
		IsFinal:    tr.IsFinal,
		Confidence: tr.Confidence,
		Timestamp:  tr.ReceivedAt,
	})
	i.metrics.SegmentsIngested.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("final", tr.IsFinal)))

	if !tr.IsFinal {
		return
	}

	if windowLen >= i.threshold {
		window := i.store.DrainTopicWindow()
		i.dispatch(ctx, i.topicFn, window)
	}

	if _, full := i.store.AppendSentenceToBatch(text); full {
		batch := i.store.DrainBatch()
		i.dispatch(ctx, i.claimsFn, batch)
	}
}

// dispatch runs fn as a tracked background task. The task context is
// detached from the triggering segment's context so an STT reconnect does
// not abort an in-flight LLM call.
func (i *Ingest) dispatch(ctx context.Context, fn TaskFunc, sentences []string) {
	if fn == nil || len(sentences) == 0 {
		return
	}
	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		fn(context.WithoutCancel(ctx), sentences)
	}()
}

// Wait blocks until all dispatched tasks finish or ctx is done.
func (i *Ingest) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		i.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
