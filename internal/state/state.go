// Package state is the single owner of all shared mutable pipeline data:
// the transcript buffer, the sentence batch, the topic graph and path, the
// fact queue, and the fact results.
//
// Every mutation goes through a named operation on Store; operations are
// serialized under one mutex so concurrent callers observe a total order.
// Readers receive copies, never internal slices.
package state

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/auricle-ai/auricle/pkg/fault"
)

// Defaults for Store construction.
const (
	DefaultBufferSize = 100
	DefaultBatchSize  = 10
)

// Segment is one transcript event kept in the rolling buffer. Never
// mutated after insertion.
type Segment struct {
	Text       string
	IsFinal    bool
	Confidence float64
	Timestamp  time.Time
}

// Verdict is the outcome of a claim verification.
type Verdict string

const (
	VerdictSupported Verdict = "SUPPORTED"
	VerdictRefuted   Verdict = "REFUTED"
	VerdictUncertain Verdict = "UNCERTAIN"
)

// IsValid reports whether v is one of the enumerated verdicts.
func (v Verdict) IsValid() bool {
	switch v {
	case VerdictSupported, VerdictRefuted, VerdictUncertain:
		return true
	}
	return false
}

// FactResult is one completed verification, appended in worker dequeue
// order.
type FactResult struct {
	Claim           string
	Verdict         Verdict
	Confidence      float64
	Explanation     string
	KeyFacts        []string
	EvidenceSources []string
	Timestamp       time.Time
}

// Stats aggregates session counters for export and monitoring.
type Stats struct {
	Segments       int `json:"segments"`
	FinalSentences int `json:"final_sentences"`
	TopicsCreated  int `json:"topics_created"`
	TopicReuses    int `json:"topic_reuses"`
	ClaimsEnqueued int `json:"claims_enqueued"`
	FactsSupported int `json:"facts_supported"`
	FactsRefuted   int `json:"facts_refuted"`
	FactsUncertain int `json:"facts_uncertain"`
}

// Store holds all mutable pipeline state for one conversation session.
type Store struct {
	mu sync.Mutex

	sessionID  string
	createdAt  time.Time
	bufferSize int
	batchSize  int

	segments    []Segment
	batch       []string
	topicWindow []string

	claimQueue []string
	claimReady chan struct{}

	// topic graph fields live in topicgraph.go
	nodes        map[int]*TopicNode
	order        []int
	edges        []Edge
	path         []int
	images       []TopicImage
	imageByTopic map[int]int
	nextID       int
	currentID    int
	lastTopicTS  time.Time

	results    []FactResult
	lastFactTS time.Time

	stats Stats
}

// New creates an empty Store. Non-positive sizes fall back to the
// defaults (buffer 100, batch 10).
func New(bufferSize, batchSize int) *Store {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Store{
		sessionID:    uuid.NewString(),
		createdAt:    time.Now(),
		bufferSize:   bufferSize,
		batchSize:    batchSize,
		claimReady:   make(chan struct{}, 1),
		nodes:        make(map[int]*TopicNode),
		imageByTopic: make(map[int]int),
		currentID:    -1,
	}
}

// SessionID returns the unique id assigned to this session.
func (s *Store) SessionID() string {
	return s.sessionID
}

// AppendSegment records a transcript segment in the rolling buffer. Final
// segments are also accumulated into the topic window; the returned count
// is the number of final sentences awaiting the next topic dispatch (zero
// for partials).
func (s *Store) AppendSegment(seg Segment) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seg.Timestamp.IsZero() {
		seg.Timestamp = time.Now()
	}

	s.segments = append(s.segments, seg)
	if len(s.segments) > s.bufferSize {
		// Copy survivors to a fresh array so evicted segments can be
		// garbage collected.
		keep := s.segments[len(s.segments)-s.bufferSize:]
		fresh := make([]Segment, len(keep), s.bufferSize+1)
		copy(fresh, keep)
		s.segments = fresh
	}

	s.stats.Segments++
	if !seg.IsFinal {
		return 0
	}
	s.stats.FinalSentences++
	s.topicWindow = append(s.topicWindow, seg.Text)
	return len(s.topicWindow)
}

// DrainTopicWindow returns the accumulated final sentences since the last
// drain and clears the window.
func (s *Store) DrainTopicWindow() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.topicWindow
	s.topicWindow = nil
	return out
}

// AppendSentenceToBatch adds a final sentence to the claim-selection batch
// and reports the new size, plus whether the batch has reached capacity
// and should be drained.
func (s *Store) AppendSentenceToBatch(text string) (size int, full bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.batch = append(s.batch, text)
	return len(s.batch), len(s.batch) >= s.batchSize
}

// DrainBatch returns the batched sentences and clears the batch.
func (s *Store) DrainBatch() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.batch
	s.batch = nil
	return out
}

// BatchLen returns the current batch size.
func (s *Store) BatchLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batch)
}

// EnqueueClaim appends a claim to the fact queue and returns the new queue
// length. Enqueue is never rate-limited and never blocks.
func (s *Store) EnqueueClaim(text string) int {
	s.mu.Lock()
	s.claimQueue = append(s.claimQueue, text)
	s.stats.ClaimsEnqueued++
	n := len(s.claimQueue)
	s.mu.Unlock()

	select {
	case s.claimReady <- struct{}{}:
	default:
	}
	return n
}

// DequeueClaim removes and returns the oldest queued claim, blocking until
// one is available or ctx is done.
func (s *Store) DequeueClaim(ctx context.Context) (string, error) {
	for {
		s.mu.Lock()
		if len(s.claimQueue) > 0 {
			claim := s.claimQueue[0]
			rest := make([]string, len(s.claimQueue)-1)
			copy(rest, s.claimQueue[1:])
			s.claimQueue = rest
			s.mu.Unlock()
			return claim, nil
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-s.claimReady:
		}
	}
}

// QueueLen returns the number of claims awaiting verification.
func (s *Store) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.claimQueue)
}

// AppendFactResult validates and appends a verification result. A verdict
// outside the enumerated set or a confidence outside [0,1] is an invariant
// fault: the worker is responsible for rejecting those before this point.
func (s *Store) AppendFactResult(r FactResult) error {
	if !r.Verdict.IsValid() {
		return fault.New(fault.Invariant, "state.append_fact_result", "verdict %q outside enumerated set", r.Verdict)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fault.New(fault.Invariant, "state.append_fact_result", "confidence %v outside [0,1]", r.Confidence)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	if r.Timestamp.Before(s.lastFactTS) {
		r.Timestamp = s.lastFactTS
	}
	s.lastFactTS = r.Timestamp

	s.results = append(s.results, r)
	switch r.Verdict {
	case VerdictSupported:
		s.stats.FactsSupported++
	case VerdictRefuted:
		s.stats.FactsRefuted++
	case VerdictUncertain:
		s.stats.FactsUncertain++
	}
	return nil
}

// Segments returns a copy of the transcript buffer, oldest first.
func (s *Store) Segments() []Segment {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Segment, len(s.segments))
	copy(out, s.segments)
	return out
}

// Results returns a copy of the fact results, in append order.
func (s *Store) Results() []FactResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]FactResult, len(s.results))
	copy(out, s.results)
	return out
}

// Stats returns a copy of the session counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
