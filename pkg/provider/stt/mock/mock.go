// Package mock provides test doubles for the stt.Provider and
// stt.SessionHandle interfaces.
//
// Tests push transcripts through a Session to drive the pipeline without a
// live STT connection:
//
//	sess := mock.NewSession()
//	p := &mock.Provider{Session: sess}
//	...
//	sess.EmitFinal("the moon landing occurred in 1969", 0.95)
//	sess.Close()
package mock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/auricle-ai/auricle/pkg/provider/stt"
)

// Ensure the doubles implement their interfaces at compile time.
var (
	_ stt.Provider      = (*Provider)(nil)
	_ stt.SessionHandle = (*Session)(nil)
)

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Session is returned by StartStream. When nil, a fresh Session is
	// created per call.
	Session *Session

	// StartErr, if non-nil, is returned as the error from StartStream.
	StartErr error

	// StartCalls records the StreamConfig of every StartStream call.
	StartCalls []stt.StreamConfig
}

// StartStream records the call and returns the configured session.
func (p *Provider) StartStream(ctx context.Context, cfg stt.StreamConfig) (stt.SessionHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.StartCalls = append(p.StartCalls, cfg)
	if p.StartErr != nil {
		return nil, p.StartErr
	}
	if p.Session == nil {
		p.Session = NewSession()
	}
	return p.Session, nil
}

// Session is a scriptable stt.SessionHandle.
type Session struct {
	partials chan stt.Transcript
	finals   chan stt.Transcript

	mu     sync.Mutex
	closed bool

	// AudioChunks records every chunk passed to SendAudio.
	AudioChunks [][]byte
}

// NewSession returns a Session ready to emit transcripts.
func NewSession() *Session {
	return &Session{
		partials: make(chan stt.Transcript, 64),
		finals:   make(chan stt.Transcript, 64),
	}
}

// SendAudio records the chunk. Returns an error after Close.
func (s *Session) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("mock stt: session is closed")
	}
	c := make([]byte, len(chunk))
	copy(c, chunk)
	s.AudioChunks = append(s.AudioChunks, c)
	return nil
}

// Partials implements stt.SessionHandle.
func (s *Session) Partials() <-chan stt.Transcript { return s.partials }

// Finals implements stt.SessionHandle.
func (s *Session) Finals() <-chan stt.Transcript { return s.finals }

// Close closes both transcript channels. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.partials)
		close(s.finals)
	}
	return nil
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// EmitPartial pushes an interim transcript into the partials channel.
func (s *Session) EmitPartial(text string, confidence float64) {
	s.partials <- stt.Transcript{
		Text:       text,
		Confidence: confidence,
		ReceivedAt: time.Now(),
	}
}

// EmitFinal pushes a final transcript into the finals channel.
func (s *Session) EmitFinal(text string, confidence float64) {
	s.finals <- stt.Transcript{
		Text:       text,
		IsFinal:    true,
		Confidence: confidence,
		ReceivedAt: time.Now(),
	}
}
