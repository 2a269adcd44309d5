package stt

import "time"

// Transcript represents a speech-to-text result. Both partial (interim)
// and final transcripts use this type.
type Transcript struct {
	// Text is the transcribed speech content.
	Text string

	// IsFinal indicates a final (authoritative) rather than partial result.
	IsFinal bool

	// Confidence is the overall confidence score (0.0–1.0). May be zero if
	// the provider does not report confidence.
	Confidence float64

	// Words contains per-word detail when the provider supports it.
	Words []WordDetail

	// ReceivedAt marks when the event was received from the provider.
	ReceivedAt time.Time
}

// WordDetail holds per-word metadata from STT providers that support it.
type WordDetail struct {
	Word       string
	Start      time.Duration
	End        time.Duration
	Confidence float64
}
