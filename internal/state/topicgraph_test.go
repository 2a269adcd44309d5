package state_test

import (
	"testing"
	"time"

	"github.com/auricle-ai/auricle/internal/state"
	"github.com/auricle-ai/auricle/pkg/fault"
)

func TestAddTopicNode(t *testing.T) {
	t.Parallel()

	st := state.New(100, 10)

	if _, ok := st.CurrentTopicID(); ok {
		t.Error("CurrentTopicID before first topic: ok = true")
	}

	t0 := st.AddTopicNode("Solar Energy", []string{"panels", "grid"}, time.Now())
	t1 := st.AddTopicNode("AI Future", []string{"models"}, time.Now())

	if t0 != 0 || t1 != 1 {
		t.Errorf("ids = %d, %d, want 0, 1", t0, t1)
	}

	cur, ok := st.CurrentTopicID()
	if !ok || cur != t1 {
		t.Errorf("CurrentTopicID = (%d, %v), want (%d, true)", cur, ok, t1)
	}

	edges := st.Edges()
	if len(edges) != 1 || edges[0] != (state.Edge{From: t0, To: t1}) {
		t.Errorf("Edges = %v, want [{0 1}]", edges)
	}

	topics := st.Topics()
	if len(topics) != 2 {
		t.Fatalf("len(Topics) = %d, want 2", len(topics))
	}
	if topics[0].SentenceCount != 1 {
		t.Errorf("new node SentenceCount = %d, want 1", topics[0].SentenceCount)
	}
}

func TestSwitchToTopicAddsNoEdge(t *testing.T) {
	t.Parallel()

	st := state.New(100, 10)
	t0 := st.AddTopicNode("Solar Energy", nil, time.Now())
	t1 := st.AddTopicNode("AI Future", nil, time.Now())

	if err := st.SwitchToTopic(t0); err != nil {
		t.Fatalf("SwitchToTopic: %v", err)
	}

	if len(st.Edges()) != 1 {
		t.Errorf("reuse created an edge: %v", st.Edges())
	}

	wantPath := []int{t0, t1, t0}
	path := st.Path()
	if len(path) != len(wantPath) {
		t.Fatalf("Path = %v, want %v", path, wantPath)
	}
	for i := range wantPath {
		if path[i] != wantPath[i] {
			t.Fatalf("Path = %v, want %v", path, wantPath)
		}
	}

	cur, _ := st.CurrentTopicID()
	if cur != t0 {
		t.Errorf("CurrentTopicID = %d, want %d", cur, t0)
	}
	if path[len(path)-1] != cur {
		t.Error("path tail does not match current topic")
	}

	topics := st.Topics()
	if topics[0].SentenceCount != 2 {
		t.Errorf("reused node SentenceCount = %d, want 2", topics[0].SentenceCount)
	}
	if topics[1].SentenceCount != 1 {
		t.Errorf("untouched node SentenceCount = %d, want 1", topics[1].SentenceCount)
	}
}

func TestSwitchToMissingTopic(t *testing.T) {
	t.Parallel()

	st := state.New(100, 10)
	err := st.SwitchToTopic(42)
	if !fault.IsKind(err, fault.Invariant) {
		t.Errorf("err = %v, want invariant fault", err)
	}
}

func TestGraphStaysAcyclic(t *testing.T) {
	t.Parallel()

	st := state.New(100, 10)
	// Create a chain, revisit the head repeatedly, then branch again.
	a := st.AddTopicNode("a", nil, time.Now())
	b := st.AddTopicNode("b", nil, time.Now())
	if err := st.SwitchToTopic(a); err != nil {
		t.Fatal(err)
	}
	c := st.AddTopicNode("c", nil, time.Now())
	if err := st.SwitchToTopic(b); err != nil {
		t.Fatal(err)
	}
	d := st.AddTopicNode("d", nil, time.Now())
	_ = c
	_ = d

	if cyclic(st.Topics(), st.Edges()) {
		t.Errorf("graph has a cycle: edges = %v", st.Edges())
	}

	// Edge direction always matches creation order.
	for _, e := range st.Edges() {
		if e.From >= e.To {
			t.Errorf("edge %v against creation order", e)
		}
	}
}

// cyclic runs a DFS cycle check over the exported node/edge copies.
func cyclic(nodes []state.TopicNode, edges []state.Edge) bool {
	adj := make(map[int][]int)
	for _, e := range edges {
		adj[e.From] = append(adj[e.From], e.To)
	}

	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	mark := make(map[int]int, len(nodes))

	var visit func(int) bool
	visit = func(n int) bool {
		mark[n] = inStack
		for _, next := range adj[n] {
			switch mark[next] {
			case inStack:
				return true
			case unvisited:
				if visit(next) {
					return true
				}
			}
		}
		mark[n] = done
		return false
	}

	for _, n := range nodes {
		if mark[n.ID] == unvisited && visit(n.ID) {
			return true
		}
	}
	return false
}

func TestTopicTimestampsMonotonic(t *testing.T) {
	t.Parallel()

	st := state.New(100, 10)
	base := time.Now()
	st.AddTopicNode("a", nil, base)
	st.AddTopicNode("b", nil, base.Add(-time.Hour))

	topics := st.Topics()
	if topics[1].Timestamp.Before(topics[0].Timestamp) {
		t.Errorf("timestamps regressed: %v then %v", topics[0].Timestamp, topics[1].Timestamp)
	}
}

func TestRecordTopicImageIdempotent(t *testing.T) {
	t.Parallel()

	st := state.New(100, 10)
	id := st.AddTopicNode("Solar Energy", nil, time.Now())

	if err := st.RecordTopicImage(id, "https://img.example.org/solar.jpg"); err != nil {
		t.Fatalf("RecordTopicImage: %v", err)
	}
	if err := st.RecordTopicImage(id, "https://img.example.org/solar.jpg"); err != nil {
		t.Fatalf("repeated RecordTopicImage: %v", err)
	}

	images := st.TopicImages()
	if len(images) != 1 {
		t.Fatalf("len(images) = %d, want 1", len(images))
	}
	if images[0].URL != "https://img.example.org/solar.jpg" {
		t.Errorf("URL = %q", images[0].URL)
	}

	topics := st.Topics()
	if topics[0].ImageURL != "https://img.example.org/solar.jpg" {
		t.Errorf("node ImageURL = %q", topics[0].ImageURL)
	}
}

func TestRecordTopicImageUnresolved(t *testing.T) {
	t.Parallel()

	st := state.New(100, 10)
	id := st.AddTopicNode("Obscure Topic", nil, time.Now())

	if err := st.RecordTopicImage(id, ""); err != nil {
		t.Fatalf("RecordTopicImage: %v", err)
	}
	images := st.TopicImages()
	if len(images) != 1 || images[0].URL != "" {
		t.Errorf("images = %v, want one unresolved entry", images)
	}

	if err := st.RecordTopicImage(99, "x"); !fault.IsKind(err, fault.Invariant) {
		t.Errorf("missing topic: err = %v, want invariant fault", err)
	}
}
