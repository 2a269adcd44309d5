// Package topic maintains the conversation topic graph: it extracts the
// current topic from accumulated final sentences, decides whether the
// speaker drifted to a new topic or returned to an earlier one, and
// resolves a representative image per topic in the background.
package topic

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/auricle-ai/auricle/internal/llmjson"
	"github.com/auricle-ai/auricle/internal/notify"
	"github.com/auricle-ai/auricle/internal/observe"
	"github.com/auricle-ai/auricle/internal/state"
	"github.com/auricle-ai/auricle/pkg/fault"
	"github.com/auricle-ai/auricle/pkg/provider/llm"
	"github.com/auricle-ai/auricle/pkg/provider/search"
)

const topicExtractionSystem = "You are a topic extraction assistant. Always respond in valid JSON format."

// topicExtractionPrompt is the user prompt template for topic extraction.
// The single %s is the accumulated transcript text.
const topicExtractionPrompt = `You are analyzing a conversation transcript to identify the main topic.

Text: "%s"

Extract the primary topic or subject being discussed. Be concise (1-5 words).

Respond in JSON format:
{
    "topic": "main topic",
    "keywords": ["keyword1", "keyword2", "keyword3"]
}

Examples:
- "Let's talk about climate change effects" → topic: "Climate Change"
- "The latest AI models are impressive" → topic: "AI Models"`

// Defaults for Engine construction.
const (
	DefaultSimilarityThreshold = 0.7
	defaultTemperature         = 0.3
	defaultMaxTokens           = 200
	defaultImageTimeout        = 15 * time.Second
	maxImageKeywords           = 3
)

// Engine drives topic updates. It is owned by the ingest dispatcher; Update
// is called once per accumulated sentence window, never concurrently with
// itself.
type Engine struct {
	llm     llm.Provider
	sim     Similarity
	store   *state.Store
	pub     notify.Publisher
	metrics *observe.Metrics

	// images is optional; nil disables topic image resolution.
	images       search.ImageSearcher
	imageOpts    search.Options
	imageTimeout time.Duration

	threshold   float64
	temperature float64
	maxTokens   int

	imageWG sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithSimilarityThreshold sets the reuse threshold: an existing topic
// scoring at or above it absorbs the new extraction instead of creating a
// node.
func WithSimilarityThreshold(v float64) Option {
	return func(e *Engine) { e.threshold = v }
}

// WithTemperature sets the extraction sampling temperature.
func WithTemperature(v float64) Option {
	return func(e *Engine) { e.temperature = v }
}

// WithMaxTokens caps the extraction completion length.
func WithMaxTokens(n int) Option {
	return func(e *Engine) { e.maxTokens = n }
}

// WithImageSearcher enables background topic image resolution.
func WithImageSearcher(s search.ImageSearcher) Option {
	return func(e *Engine) { e.images = s }
}

// WithImageOptions overrides the image search options.
func WithImageOptions(opts search.Options) Option {
	return func(e *Engine) { e.imageOpts = opts }
}

// WithImageTimeout bounds a single image lookup.
func WithImageTimeout(d time.Duration) Option {
	return func(e *Engine) { e.imageTimeout = d }
}

// WithMetrics overrides the metrics instance, mainly for tests.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates a topic Engine writing to store and publishing to pub.
func New(provider llm.Provider, sim Similarity, store *state.Store, pub notify.Publisher, opts ...Option) *Engine {
	e := &Engine{
		llm:   provider,
		sim:   sim,
		store: store,
		pub:   pub,
		imageOpts: search.Options{
			MaxResults: 3,
			SafeSearch: search.SafeSearchStrict,
			Region:     "wt-wt",
		},
		imageTimeout: defaultImageTimeout,
		threshold:    DefaultSimilarityThreshold,
		temperature:  defaultTemperature,
		maxTokens:    defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}
	return e
}

// extraction is the model's JSON answer.
type extraction struct {
	Topic    string   `json:"topic"`
	Keywords []string `json:"keywords"`
}

// Update runs one topic pass over the accumulated sentence window. On
// extraction or similarity failure the graph is left untouched, an error
// event is published, and the error is returned.
func (e *Engine) Update(ctx context.Context, sentences []string) error {
	text := strings.TrimSpace(strings.Join(sentences, " "))
	if text == "" {
		return nil
	}

	ext, err := e.extract(ctx, text)
	if err != nil {
		e.fail(ctx, err)
		return err
	}

	match, found, err := e.findExisting(ctx, ext.Topic)
	if err != nil {
		e.fail(ctx, err)
		return err
	}

	if found {
		if err := e.store.SwitchToTopic(match.ID); err != nil {
			e.fail(ctx, err)
			return err
		}
		e.metrics.RecordTopicDecision(ctx, true)
		observe.Logger(ctx).Info("returning to topic", "topic_id", match.ID, "topic", match.Topic)
		upd := notify.TopicUpdate{
			TopicID:     match.ID,
			Topic:       match.Topic,
			Keywords:    match.Keywords,
			IsNew:       false,
			TotalTopics: e.store.TopicCount(),
		}
		if match.ImageURL != "" {
			upd.ImageURL = &match.ImageURL
		}
		e.pub.Publish(notify.NewTopicUpdate(upd))
		return nil
	}

	id := e.store.AddTopicNode(ext.Topic, ext.Keywords, time.Now())
	e.metrics.RecordTopicDecision(ctx, false)
	observe.Logger(ctx).Info("new topic", "topic_id", id, "topic", ext.Topic)

	// The update event goes out immediately; image resolution catches up
	// whenever the lookup finishes.
	e.pub.Publish(notify.NewTopicUpdate(notify.TopicUpdate{
		TopicID:     id,
		Topic:       ext.Topic,
		Keywords:    ext.Keywords,
		IsNew:       true,
		TotalTopics: e.store.TopicCount(),
	}))

	if e.images != nil {
		e.imageWG.Add(1)
		go e.resolveImage(context.WithoutCancel(ctx), id, ext.Topic, ext.Keywords)
	}
	return nil
}

// Wait blocks until all in-flight image lookups have recorded a result.
func (e *Engine) Wait() {
	e.imageWG.Wait()
}

// extract asks the model for the current topic and keywords.
func (e *Engine) extract(ctx context.Context, text string) (extraction, error) {
	start := time.Now()
	resp, err := e.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: topicExtractionSystem,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: fmt.Sprintf(topicExtractionPrompt, text)},
		},
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
	})
	e.metrics.RecordLLMCall(ctx, "topic_extraction", time.Since(start).Seconds())
	e.metrics.RecordProviderRequest(ctx, "llm", "topic_extraction", observe.RequestStatus(err))
	if err != nil {
		return extraction{}, err
	}

	var out extraction
	if err := llmjson.Decode("topic.extract", resp.Content, &out); err != nil {
		return extraction{}, err
	}
	out.Topic = strings.TrimSpace(out.Topic)
	if out.Topic == "" {
		return extraction{}, fault.New(fault.Parse, "topic.extract", "model returned empty topic")
	}
	return out, nil
}

// findExisting scans existing topics in creation order for the best match
// at or above the threshold. Ties keep the earliest topic.
func (e *Engine) findExisting(ctx context.Context, topic string) (state.TopicNode, bool, error) {
	var (
		best      state.TopicNode
		bestScore = -1.0
		found     bool
	)
	for _, node := range e.store.Topics() {
		score, err := e.sim.Score(ctx, node.Topic, topic)
		if err != nil {
			return state.TopicNode{}, false, err
		}
		if score >= e.threshold && score > bestScore {
			best, bestScore, found = node, score, true
		}
	}
	return best, found, nil
}

// resolveImage looks up a representative image for a freshly created topic
// and records the outcome, resolved or not, exactly once.
func (e *Engine) resolveImage(ctx context.Context, id int, topic string, keywords []string) {
	defer e.imageWG.Done()

	ctx, cancel := context.WithTimeout(ctx, e.imageTimeout)
	defer cancel()

	terms := append([]string{topic}, keywords[:min(maxImageKeywords, len(keywords))]...)
	query := strings.Join(terms, " ")

	start := time.Now()
	results, err := e.images.SearchImages(ctx, query, e.imageOpts)
	e.metrics.RecordSearch(ctx, "images", time.Since(start).Seconds())
	e.metrics.RecordProviderRequest(ctx, "search", "images", observe.RequestStatus(err))

	var url string
	if err != nil {
		e.metrics.RecordProviderError(ctx, "search", "images")
		observe.Logger(ctx).Warn("topic image search failed", "topic_id", id, "topic", topic, "err", err)
	} else {
		for _, r := range results {
			if r.ImageURL != "" {
				url = r.ImageURL
				break
			}
		}
	}

	if recErr := e.store.RecordTopicImage(id, url); recErr != nil {
		observe.Logger(ctx).Warn("record topic image", "topic_id", id, "err", recErr)
	}
}

// fail publishes a classified error event.
func (e *Engine) fail(ctx context.Context, err error) {
	kind := fault.Transport
	if k, ok := fault.KindOf(err); ok {
		kind = k
	}
	observe.Logger(ctx).Error("topic update failed", "kind", string(kind), "err", err)
	e.pub.Publish(notify.NewError(string(kind), err.Error()))
}
