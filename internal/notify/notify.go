// Package notify carries structured pipeline events to downstream
// observers.
//
// The pipeline publishes five event kinds: transcript activity, topic
// updates, claim selections, fact results, and classified errors. A
// Broadcaster fans events out to any number of observers; publishing must
// stay cheap, so observers that do slow work should buffer internally (see
// ChannelObserver).
package notify

import (
	"log/slog"
	"sync"
)

// Kind identifies an event type.
type Kind string

const (
	KindTranscript    Kind = "transcript"
	KindTopicUpdate   Kind = "topic_update"
	KindClaimSelected Kind = "claim_selected"
	KindFactResult    Kind = "fact_result"
	KindError         Kind = "error"
)

// Transcript reports transcript activity, both partial and final.
type Transcript struct {
	Text       string  `json:"text"`
	IsFinal    bool    `json:"is_final"`
	Confidence float64 `json:"confidence"`
}

// TopicUpdate reports a topic creation or reuse decision.
type TopicUpdate struct {
	TopicID     int      `json:"topic_id"`
	Topic       string   `json:"topic"`
	Keywords    []string `json:"keywords"`
	IsNew       bool     `json:"is_new"`
	TotalTopics int      `json:"total_topics"`

	// ImageURL is set on reuse when the topic has already resolved an
	// image. Creation events precede image resolution and omit it.
	ImageURL *string `json:"image_url,omitempty"`
}

// ClaimSelected reports a claim entering the fact queue.
type ClaimSelected struct {
	Claim     string `json:"claim"`
	QueueSize int    `json:"queue_size"`
}

// FactResult reports a completed verification.
type FactResult struct {
	Claim       string   `json:"claim"`
	Verdict     string   `json:"verdict"`
	Confidence  float64  `json:"confidence"`
	Explanation string   `json:"explanation"`
	KeyFacts    []string `json:"key_facts"`
	Sources     []string `json:"sources"`
}

// Error reports a classified pipeline failure.
type Error struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Event is the union of all notification payloads. Exactly one payload
// pointer is non-nil, matching Kind.
type Event struct {
	Kind          Kind           `json:"type"`
	Transcript    *Transcript    `json:"transcript,omitempty"`
	TopicUpdate   *TopicUpdate   `json:"topic_update,omitempty"`
	ClaimSelected *ClaimSelected `json:"claim_selected,omitempty"`
	FactResult    *FactResult    `json:"fact_result,omitempty"`
	Error         *Error         `json:"error,omitempty"`
}

// NewTranscript builds a transcript event.
func NewTranscript(t Transcript) Event {
	return Event{Kind: KindTranscript, Transcript: &t}
}

// NewTopicUpdate builds a topic_update event.
func NewTopicUpdate(t TopicUpdate) Event {
	return Event{Kind: KindTopicUpdate, TopicUpdate: &t}
}

// NewClaimSelected builds a claim_selected event.
func NewClaimSelected(c ClaimSelected) Event {
	return Event{Kind: KindClaimSelected, ClaimSelected: &c}
}

// NewFactResult builds a fact_result event.
func NewFactResult(f FactResult) Event {
	return Event{Kind: KindFactResult, FactResult: &f}
}

// NewError builds an error event.
func NewError(kind, message string) Event {
	return Event{Kind: KindError, Error: &Error{Kind: kind, Message: message}}
}

// Publisher accepts pipeline events. Publish must not block for long; it is
// called from the ingest path.
type Publisher interface {
	Publish(Event)
}

// Observer consumes events delivered by a Broadcaster.
type Observer interface {
	OnEvent(Event)
}

// Broadcaster fans published events out to all subscribed observers, in
// subscription order, synchronously. Safe for concurrent use.
type Broadcaster struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewBroadcaster returns an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// Subscribe registers an observer. Observers cannot be removed
// individually; the Broadcaster's lifetime matches the pipeline's.
func (b *Broadcaster) Subscribe(o Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, o)
}

// Publish implements Publisher.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.RLock()
	obs := b.observers
	b.mu.RUnlock()
	for _, o := range obs {
		o.OnEvent(ev)
	}
}

// ─── bundled observers ───

// LogObserver writes every event to a structured logger.
type LogObserver struct {
	Logger *slog.Logger
}

// OnEvent implements Observer.
func (l *LogObserver) OnEvent(ev Event) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	switch ev.Kind {
	case KindTranscript:
		logger.Debug("transcript", "text", ev.Transcript.Text, "final", ev.Transcript.IsFinal)
	case KindTopicUpdate:
		logger.Info("topic update",
			"topic_id", ev.TopicUpdate.TopicID,
			"topic", ev.TopicUpdate.Topic,
			"is_new", ev.TopicUpdate.IsNew,
			"total_topics", ev.TopicUpdate.TotalTopics)
	case KindClaimSelected:
		logger.Info("claim selected", "claim", ev.ClaimSelected.Claim, "queue_size", ev.ClaimSelected.QueueSize)
	case KindFactResult:
		logger.Info("fact result",
			"claim", ev.FactResult.Claim,
			"verdict", ev.FactResult.Verdict,
			"confidence", ev.FactResult.Confidence)
	case KindError:
		logger.Warn("pipeline error", "kind", ev.Error.Kind, "message", ev.Error.Message)
	}
}

// ChannelObserver buffers events in a channel for a consumer goroutine.
// When the buffer is full the event is dropped rather than blocking the
// publisher; the pipeline never waits for a slow consumer.
type ChannelObserver struct {
	ch chan Event

	mu      sync.Mutex
	dropped int
}

// NewChannelObserver returns an observer buffering up to size events.
func NewChannelObserver(size int) *ChannelObserver {
	if size <= 0 {
		size = 256
	}
	return &ChannelObserver{ch: make(chan Event, size)}
}

// OnEvent implements Observer.
func (c *ChannelObserver) OnEvent(ev Event) {
	select {
	case c.ch <- ev:
	default:
		c.mu.Lock()
		c.dropped++
		c.mu.Unlock()
	}
}

// Events returns the consumer side of the buffer.
func (c *ChannelObserver) Events() <-chan Event {
	return c.ch
}

// Dropped reports how many events were discarded due to a full buffer.
func (c *ChannelObserver) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}
