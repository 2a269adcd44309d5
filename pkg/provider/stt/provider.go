// Package stt defines the Provider interface for speech-to-text backends.
//
// An STT provider wraps a real-time transcription service and exposes a
// uniform streaming interface. The central abstraction is SessionHandle:
// once opened, a session accepts raw PCM audio frames and emits two streams
// of Transcript values — low-latency partials for display and authoritative
// finals that drive the pipeline's counters.
//
// Implementations must be safe for concurrent use.
package stt

import "context"

// StreamConfig describes the audio format and recognition hints for a new
// STT session.
type StreamConfig struct {
	// SampleRate is the audio sample rate in Hz. Common value: 16000.
	SampleRate int

	// Channels is the number of audio channels. 1 = mono (required by most
	// STT providers).
	Channels int

	// Language is the BCP-47 language tag for recognition (e.g., "en-US").
	// An empty string lets the provider auto-detect, if supported.
	Language string
}

// SessionHandle represents an open STT streaming session. It is an
// interface so test code can provide mock implementations without a live
// provider connection.
//
// Callers must call Close when the session is no longer needed; failing to
// do so may leak goroutines and connections. All methods must be safe for
// concurrent use.
type SessionHandle interface {
	// SendAudio delivers a chunk of raw PCM audio bytes for transcription.
	// The chunk must match the format agreed in StreamConfig. Calling
	// SendAudio after Close returns an error.
	SendAudio(chunk []byte) error

	// Partials returns a read-only channel emitting interim Transcript
	// values. Partials never advance pipeline counters. The channel is
	// closed when the session ends.
	Partials() <-chan Transcript

	// Finals returns a read-only channel emitting committed Transcript
	// values, the only events that advance the topic and claim counters.
	// The channel is closed when the session ends.
	Finals() <-chan Transcript

	// Close terminates the session, flushes pending audio, and releases
	// resources. After Close returns, both channels are closed. Calling
	// Close more than once is safe and returns nil.
	Close() error
}

// Provider is the abstraction over any STT backend.
type Provider interface {
	// StartStream opens a new streaming transcription session. The
	// returned SessionHandle is ready to accept audio immediately; the
	// caller owns it and must call Close when done.
	StartStream(ctx context.Context, cfg StreamConfig) (SessionHandle, error)
}
