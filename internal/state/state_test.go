package state_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/auricle-ai/auricle/internal/state"
	"github.com/auricle-ai/auricle/pkg/fault"
)

func TestAppendSegmentBoundedBuffer(t *testing.T) {
	t.Parallel()

	st := state.New(100, 10)
	for i := 0; i < 1000; i++ {
		st.AppendSegment(state.Segment{Text: fmt.Sprintf("sentence %d", i), IsFinal: true})
	}

	segs := st.Segments()
	if len(segs) != 100 {
		t.Fatalf("len(segments) = %d, want 100", len(segs))
	}
	if segs[0].Text != "sentence 900" {
		t.Errorf("oldest retained = %q, want %q", segs[0].Text, "sentence 900")
	}
	if segs[99].Text != "sentence 999" {
		t.Errorf("newest retained = %q, want %q", segs[99].Text, "sentence 999")
	}
	if got := st.Stats().Segments; got != 1000 {
		t.Errorf("Stats().Segments = %d, want 1000", got)
	}
}

func TestAppendSegmentTopicWindow(t *testing.T) {
	t.Parallel()

	st := state.New(100, 10)

	if n := st.AppendSegment(state.Segment{Text: "partial guess", IsFinal: false}); n != 0 {
		t.Errorf("partial advanced window: n = %d, want 0", n)
	}
	if n := st.AppendSegment(state.Segment{Text: "first", IsFinal: true}); n != 1 {
		t.Errorf("window after first final = %d, want 1", n)
	}
	if n := st.AppendSegment(state.Segment{Text: "second", IsFinal: true}); n != 2 {
		t.Errorf("window after second final = %d, want 2", n)
	}

	window := st.DrainTopicWindow()
	if len(window) != 2 || window[0] != "first" || window[1] != "second" {
		t.Errorf("DrainTopicWindow() = %v", window)
	}
	if again := st.DrainTopicWindow(); len(again) != 0 {
		t.Errorf("second drain = %v, want empty", again)
	}
}

func TestBatchThreshold(t *testing.T) {
	t.Parallel()

	st := state.New(100, 3)

	if _, full := st.AppendSentenceToBatch("a"); full {
		t.Error("full after 1 of 3")
	}
	if _, full := st.AppendSentenceToBatch("b"); full {
		t.Error("full after 2 of 3")
	}
	size, full := st.AppendSentenceToBatch("c")
	if size != 3 || !full {
		t.Errorf("AppendSentenceToBatch third = (%d, %v), want (3, true)", size, full)
	}

	batch := st.DrainBatch()
	if len(batch) != 3 || batch[0] != "a" || batch[2] != "c" {
		t.Errorf("DrainBatch() = %v", batch)
	}
	if st.BatchLen() != 0 {
		t.Errorf("BatchLen after drain = %d, want 0", st.BatchLen())
	}
}

func TestClaimQueueFIFO(t *testing.T) {
	t.Parallel()

	st := state.New(100, 10)
	st.EnqueueClaim("first claim")
	st.EnqueueClaim("second claim")
	st.EnqueueClaim("third claim")

	if st.QueueLen() != 3 {
		t.Fatalf("QueueLen = %d, want 3", st.QueueLen())
	}

	ctx := context.Background()
	for _, want := range []string{"first claim", "second claim", "third claim"} {
		got, err := st.DequeueClaim(ctx)
		if err != nil {
			t.Fatalf("DequeueClaim: %v", err)
		}
		if got != want {
			t.Errorf("DequeueClaim = %q, want %q", got, want)
		}
	}
}

func TestDequeueClaimBlocksUntilEnqueue(t *testing.T) {
	t.Parallel()

	st := state.New(100, 10)

	got := make(chan string, 1)
	go func() {
		claim, err := st.DequeueClaim(context.Background())
		if err != nil {
			t.Errorf("DequeueClaim: %v", err)
		}
		got <- claim
	}()

	time.Sleep(20 * time.Millisecond)
	st.EnqueueClaim("late claim")

	select {
	case claim := <-got:
		if claim != "late claim" {
			t.Errorf("claim = %q", claim)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("DequeueClaim did not wake after enqueue")
	}
}

func TestDequeueClaimCancellable(t *testing.T) {
	t.Parallel()

	st := state.New(100, 10)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := st.DequeueClaim(ctx)
		errCh <- err
	}()

	cancel()
	select {
	case err := <-errCh:
		if err == nil {
			t.Error("DequeueClaim after cancel: err = nil, want context error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("DequeueClaim did not return after cancel")
	}
}

func TestAppendFactResultValidation(t *testing.T) {
	t.Parallel()

	st := state.New(100, 10)

	err := st.AppendFactResult(state.FactResult{Claim: "c", Verdict: "MAYBE", Confidence: 0.5})
	if !fault.IsKind(err, fault.Invariant) {
		t.Errorf("invalid verdict: err = %v, want invariant fault", err)
	}

	err = st.AppendFactResult(state.FactResult{Claim: "c", Verdict: state.VerdictSupported, Confidence: 1.5})
	if !fault.IsKind(err, fault.Invariant) {
		t.Errorf("confidence out of range: err = %v, want invariant fault", err)
	}

	if len(st.Results()) != 0 {
		t.Error("rejected results were appended")
	}

	if err := st.AppendFactResult(state.FactResult{Claim: "c", Verdict: state.VerdictRefuted, Confidence: 0.9}); err != nil {
		t.Fatalf("valid result rejected: %v", err)
	}
	if got := st.Stats().FactsRefuted; got != 1 {
		t.Errorf("Stats().FactsRefuted = %d, want 1", got)
	}
}

func TestFactResultTimestampsMonotonic(t *testing.T) {
	t.Parallel()

	st := state.New(100, 10)
	base := time.Now()

	if err := st.AppendFactResult(state.FactResult{Claim: "a", Verdict: state.VerdictSupported, Confidence: 1, Timestamp: base}); err != nil {
		t.Fatal(err)
	}
	// Deliberately out-of-order input timestamp.
	if err := st.AppendFactResult(state.FactResult{Claim: "b", Verdict: state.VerdictUncertain, Confidence: 0, Timestamp: base.Add(-time.Minute)}); err != nil {
		t.Fatal(err)
	}

	results := st.Results()
	if results[1].Timestamp.Before(results[0].Timestamp) {
		t.Errorf("timestamps regressed: %v then %v", results[0].Timestamp, results[1].Timestamp)
	}
}

func TestVerdictIsValid(t *testing.T) {
	t.Parallel()

	for _, v := range []state.Verdict{state.VerdictSupported, state.VerdictRefuted, state.VerdictUncertain} {
		if !v.IsValid() {
			t.Errorf("%q.IsValid() = false", v)
		}
	}
	for _, v := range []state.Verdict{"", "MAYBE", "supported", "CONTRADICTED"} {
		if v.IsValid() {
			t.Errorf("%q.IsValid() = true", v)
		}
	}
}
