package state

import (
	"encoding/json"
	"io"
	"time"
)

// ExportNode is the JSON rendering of a TopicNode.
type ExportNode struct {
	ID            int       `json:"id"`
	Topic         string    `json:"topic"`
	Keywords      []string  `json:"keywords"`
	Timestamp     time.Time `json:"timestamp"`
	SentenceCount int       `json:"sentence_count"`
	ImageURL      *string   `json:"image_url"`
}

// ExportEdge is the JSON rendering of an Edge.
type ExportEdge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// ExportImage maps a topic id to its resolved image URL, or null when the
// lookup found nothing.
type ExportImage struct {
	TopicID int     `json:"topic_id"`
	Topic   string  `json:"topic"`
	URL     *string `json:"image_url"`
}

// Metadata describes the exporting session.
type Metadata struct {
	SessionID  string    `json:"session_id"`
	CreatedAt  time.Time `json:"created_at"`
	ExportedAt time.Time `json:"exported_at"`
	Stats      Stats     `json:"stats"`
}

// Snapshot is the exported view of the topic state: the creation DAG, the
// full path with revisits, image resolutions, and session metadata.
type Snapshot struct {
	Nodes       []ExportNode `json:"nodes"`
	Edges       []ExportEdge `json:"edges"`
	TopicPath   []int        `json:"topic_path"`
	TopicImages []ExportImage `json:"topic_images"`
	Metadata    Metadata     `json:"metadata"`
}

// Export builds a consistent snapshot of the topic state. Non-mutating.
func (s *Store) Export() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Nodes:       make([]ExportNode, 0, len(s.order)),
		Edges:       make([]ExportEdge, 0, len(s.edges)),
		TopicPath:   make([]int, len(s.path)),
		TopicImages: make([]ExportImage, 0, len(s.images)),
		Metadata: Metadata{
			SessionID:  s.sessionID,
			CreatedAt:  s.createdAt,
			ExportedAt: time.Now(),
			Stats:      s.stats,
		},
	}

	for _, id := range s.order {
		n := s.nodes[id]
		snap.Nodes = append(snap.Nodes, ExportNode{
			ID:            n.ID,
			Topic:         n.Topic,
			Keywords:      append([]string(nil), n.Keywords...),
			Timestamp:     n.Timestamp,
			SentenceCount: n.SentenceCount,
			ImageURL:      optionalURL(n.ImageURL),
		})
	}
	for _, e := range s.edges {
		snap.Edges = append(snap.Edges, ExportEdge{From: e.From, To: e.To})
	}
	copy(snap.TopicPath, s.path)
	for _, img := range s.images {
		snap.TopicImages = append(snap.TopicImages, ExportImage{
			TopicID: img.TopicID,
			Topic:   img.Topic,
			URL:     optionalURL(img.URL),
		})
	}
	return snap
}

// WriteJSON writes the snapshot to w as indented JSON.
func (sn Snapshot) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sn)
}

// optionalURL renders an empty URL as JSON null.
func optionalURL(u string) *string {
	if u == "" {
		return nil
	}
	return &u
}
