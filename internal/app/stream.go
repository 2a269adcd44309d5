package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/auricle-ai/auricle/pkg/provider/stt"
)

// Reconnect backoff bounds for the STT stream.
const (
	reconnectBaseDelay = time.Second
	reconnectMaxDelay  = 30 * time.Second
)

// TranscriptHandler receives every transcript segment emitted by the stream.
type TranscriptHandler func(ctx context.Context, tr stt.Transcript)

// Stream owns the single live STT session. It pumps partial and final
// transcripts into the handler and transparently reopens the session when
// the provider drops it. All exported methods are safe for concurrent use.
type Stream struct {
	provider stt.Provider
	handle   TranscriptHandler

	mu      sync.Mutex
	session stt.SessionHandle
}

// NewStream creates a Stream delivering transcripts to handle.
func NewStream(provider stt.Provider, handle TranscriptHandler) *Stream {
	return &Stream{provider: provider, handle: handle}
}

// SendAudio forwards a chunk of raw PCM audio to the open session.
func (s *Stream) SendAudio(chunk []byte) error {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()
	if sess == nil {
		return fmt.Errorf("app: no open STT session")
	}
	return sess.SendAudio(chunk)
}

// Connected reports whether a live session is open.
func (s *Stream) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil
}

// Close tears down any open session. Safe to call more than once and
// alongside Run's own session cleanup.
func (s *Stream) Close() error {
	s.mu.Lock()
	sess := s.session
	s.session = nil
	s.mu.Unlock()
	if sess == nil {
		return nil
	}
	return sess.Close()
}

// Run opens an STT session and pumps transcripts until ctx is done. A
// dropped session is reopened with exponential backoff; consecutive
// failures never terminate the pipeline.
func (s *Stream) Run(ctx context.Context, cfg stt.StreamConfig) error {
	delay := reconnectBaseDelay
	for {
		sess, err := s.provider.StartStream(ctx, cfg)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("stt session open failed", "err", err, "retry_in", delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = min(delay*2, reconnectMaxDelay)
			continue
		}
		delay = reconnectBaseDelay

		s.mu.Lock()
		s.session = sess
		s.mu.Unlock()

		s.pump(ctx, sess)

		s.mu.Lock()
		s.session = nil
		s.mu.Unlock()
		sess.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("stt session ended, reconnecting")
	}
}

// pump drains both transcript channels until the session ends or ctx is
// done. Finals and partials share one handler; the segment's IsFinal flag
// carries the distinction.
func (s *Stream) pump(ctx context.Context, sess stt.SessionHandle) {
	partials, finals := sess.Partials(), sess.Finals()
	for partials != nil || finals != nil {
		select {
		case <-ctx.Done():
			return
		case tr, ok := <-partials:
			if !ok {
				partials = nil
				continue
			}
			s.handle(ctx, tr)
		case tr, ok := <-finals:
			if !ok {
				finals = nil
				continue
			}
			s.handle(ctx, tr)
		}
	}
}
