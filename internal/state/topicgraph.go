package state

import (
	"time"

	"github.com/auricle-ai/auricle/pkg/fault"
)

// TopicNode is one topic in the creation DAG.
type TopicNode struct {
	ID       int
	Topic    string
	Keywords []string

	// Timestamp is when the topic was first created.
	Timestamp time.Time

	// SentenceCount counts the topic triggers that landed on this node:
	// one for creation plus one per reuse.
	SentenceCount int

	// ImageURL is filled in by image enrichment and may stay empty.
	ImageURL string
}

// Edge records that To was created while From was the current topic.
// Edges are added only on creation, never on reuse, so the graph stays
// acyclic.
type Edge struct {
	From int
	To   int
}

// TopicImage is the outcome of one image resolution attempt. An empty URL
// means the lookup found nothing usable.
type TopicImage struct {
	TopicID int
	Topic   string
	URL     string
}

// AddTopicNode creates a new topic with a fresh id, links it from the
// previous current topic (if any), makes it current, and appends it to the
// topic path. Returns the new id.
func (s *Store) AddTopicNode(topic string, keywords []string, ts time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ts.IsZero() {
		ts = time.Now()
	}
	if ts.Before(s.lastTopicTS) {
		ts = s.lastTopicTS
	}
	s.lastTopicTS = ts

	id := s.nextID
	s.nextID++

	kw := make([]string, len(keywords))
	copy(kw, keywords)

	s.nodes[id] = &TopicNode{
		ID:            id,
		Topic:         topic,
		Keywords:      kw,
		Timestamp:     ts,
		SentenceCount: 1,
	}
	s.order = append(s.order, id)

	if s.currentID >= 0 {
		s.edges = append(s.edges, Edge{From: s.currentID, To: id})
	}
	s.currentID = id
	s.path = append(s.path, id)
	s.stats.TopicsCreated++

	return id
}

// SwitchToTopic marks an existing topic as current again, increments its
// sentence count, and appends it to the topic path. No edge is created.
func (s *Store) SwitchToTopic(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[id]
	if !ok {
		return fault.New(fault.Invariant, "state.switch_to_topic", "topic %d does not exist", id)
	}

	node.SentenceCount++
	s.currentID = id
	s.path = append(s.path, id)
	s.stats.TopicReuses++
	return nil
}

// RecordTopicImage stores the outcome of an image resolution attempt for
// an existing topic. An empty url records an unresolved attempt. Repeated
// calls with the same (id, url) are idempotent; a later call with a
// different url replaces the entry.
func (s *Store) RecordTopicImage(id int, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[id]
	if !ok {
		return fault.New(fault.Invariant, "state.record_topic_image", "topic %d does not exist", id)
	}

	if idx, ok := s.imageByTopic[id]; ok {
		if s.images[idx].URL == url {
			return nil
		}
		s.images[idx].URL = url
	} else {
		s.imageByTopic[id] = len(s.images)
		s.images = append(s.images, TopicImage{TopicID: id, Topic: node.Topic, URL: url})
	}
	node.ImageURL = url
	return nil
}

// CurrentTopicID returns the id of the current topic. ok is false before
// the first topic is created.
func (s *Store) CurrentTopicID() (id int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentID < 0 {
		return 0, false
	}
	return s.currentID, true
}

// Topics returns copies of all nodes in creation order.
func (s *Store) Topics() []TopicNode {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TopicNode, 0, len(s.order))
	for _, id := range s.order {
		n := *s.nodes[id]
		n.Keywords = append([]string(nil), n.Keywords...)
		out = append(out, n)
	}
	return out
}

// TopicCount returns the number of topic nodes.
func (s *Store) TopicCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes)
}

// Edges returns a copy of the creation edges.
func (s *Store) Edges() []Edge {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Edge, len(s.edges))
	copy(out, s.edges)
	return out
}

// Path returns a copy of the topic path, revisits included.
func (s *Store) Path() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]int, len(s.path))
	copy(out, s.path)
	return out
}

// TopicImages returns a copy of the recorded image resolution attempts.
func (s *Store) TopicImages() []TopicImage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TopicImage, len(s.images))
	copy(out, s.images)
	return out
}
