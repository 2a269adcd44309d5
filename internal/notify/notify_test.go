package notify_test

import (
	"sync"
	"testing"

	"github.com/auricle-ai/auricle/internal/notify"
)

// recorder collects events for assertions.
type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) OnEvent(ev notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Event, len(r.events))
	copy(out, r.events)
	return out
}

func TestBroadcasterFanout(t *testing.T) {
	t.Parallel()

	b := notify.NewBroadcaster()
	r1 := &recorder{}
	r2 := &recorder{}
	b.Subscribe(r1)
	b.Subscribe(r2)

	b.Publish(notify.NewTranscript(notify.Transcript{Text: "hello", IsFinal: true, Confidence: 0.9}))
	b.Publish(notify.NewError("transport", "search unreachable"))

	for i, r := range []*recorder{r1, r2} {
		events := r.all()
		if len(events) != 2 {
			t.Fatalf("observer %d: len(events) = %d, want 2", i, len(events))
		}
		if events[0].Kind != notify.KindTranscript || events[0].Transcript.Text != "hello" {
			t.Errorf("observer %d: events[0] = %+v", i, events[0])
		}
		if events[1].Kind != notify.KindError || events[1].Error.Kind != "transport" {
			t.Errorf("observer %d: events[1] = %+v", i, events[1])
		}
	}
}

func TestBroadcasterNoObservers(t *testing.T) {
	t.Parallel()

	b := notify.NewBroadcaster()
	// Publishing with no subscribers must not panic.
	b.Publish(notify.NewClaimSelected(notify.ClaimSelected{Claim: "c", QueueSize: 1}))
}

func TestChannelObserverDropsWhenFull(t *testing.T) {
	t.Parallel()

	c := notify.NewChannelObserver(2)
	for i := 0; i < 5; i++ {
		c.OnEvent(notify.NewError("parse", "bad json"))
	}

	if got := len(c.Events()); got != 2 {
		t.Errorf("buffered = %d, want 2", got)
	}
	if got := c.Dropped(); got != 3 {
		t.Errorf("Dropped() = %d, want 3", got)
	}
}

func TestEventConstructorsSetKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ev   notify.Event
		want notify.Kind
	}{
		{"transcript", notify.NewTranscript(notify.Transcript{}), notify.KindTranscript},
		{"topic", notify.NewTopicUpdate(notify.TopicUpdate{}), notify.KindTopicUpdate},
		{"claim", notify.NewClaimSelected(notify.ClaimSelected{}), notify.KindClaimSelected},
		{"fact", notify.NewFactResult(notify.FactResult{}), notify.KindFactResult},
		{"error", notify.NewError("policy", "m"), notify.KindError},
	}
	for _, tt := range tests {
		if tt.ev.Kind != tt.want {
			t.Errorf("%s: Kind = %q, want %q", tt.name, tt.ev.Kind, tt.want)
		}
	}
}
