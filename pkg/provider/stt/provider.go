// Package stt defines the Provider interface for Speech-to-Text backends.
//
// An STT provider wraps a batch transcription service (e.g., a local Whisper
// server) behind a uniform interface: hand it a recorded audio file, get back
// the full transcript with optional per-segment timing and confidence.
//
// Implementations must be safe for concurrent use; multiple transcriptions may
// be in flight simultaneously.
package stt

import "context"

// Request describes one batch transcription job.
type Request struct {
	// FilePath is the path of the audio file on local disk. The file must
	// remain readable until Transcribe returns.
	FilePath string

	// Language is the language code for recognition (e.g., "en", "de"). An
	// empty string lets the provider use its configured default or
	// auto-detect, if supported.
	Language string
}

// Segment is a time-aligned portion of the transcript. Start and End are
// offsets in seconds from the beginning of the recording. Confidence may be
// zero when the backend does not report per-segment confidence.
type Segment struct {
	Text       string
	Start      float64
	End        float64
	Confidence float64
}

// Result is the outcome of a successful transcription.
type Result struct {
	// Text is the full transcript.
	Text string

	// Confidence is the overall recognition confidence in [0, 1], or zero
	// when the backend does not report one.
	Confidence float64

	// Language is the language the backend recognised, or the requested
	// language when the backend does not report detection.
	Language string

	// Duration is the audio duration in seconds, or zero when unknown.
	Duration float64

	// Segments holds the time-aligned transcript portions, if the backend
	// provides them. May be empty.
	Segments []Segment
}

// Provider is the abstraction over any batch STT backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Transcribe runs one transcription job and blocks until the backend
	// returns. The context bounds the whole operation; implementations must
	// honour cancellation.
	Transcribe(ctx context.Context, req Request) (*Result, error)

	// Languages returns the language codes the provider accepts. An empty
	// slice means any language is accepted.
	Languages() []string
}
