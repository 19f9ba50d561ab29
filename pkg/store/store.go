// Package store defines the persistence interfaces for the call-coaching
// pipeline: audio files, transcripts, analyses, and coaching plans.
//
// The canonical implementation lives in the postgres sub-package; the mock
// sub-package provides an in-memory implementation for tests. Each pipeline
// stage owns at most one downstream record per upstream record — the
// implementations enforce this with a uniqueness constraint on the upstream
// reference and surface violations as [ErrConflict].
package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
)

// ErrNotFound is returned when a record with the requested id (or upstream
// reference) does not exist.
var ErrNotFound = errors.New("store: record not found")

// ErrConflict is returned when creating a downstream record whose upstream
// reference is already claimed by another record.
var ErrConflict = errors.New("store: record already exists")

// NewID returns a fresh 24-character lowercase hexadecimal identifier.
// All four entity kinds share this id shape.
func NewID() string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms.
		panic("store: read random bytes: " + err.Error())
	}
	return hex.EncodeToString(b[:])
}

// AudioFiles persists uploaded audio file records.
//
// Implementations must be safe for concurrent use.
type AudioFiles interface {
	// Create inserts f. If f.ID is empty a new id is assigned; if
	// f.UploadedAt is zero the current time is used.
	Create(ctx context.Context, f *AudioFile) error

	// Get returns the audio file with the given id, or [ErrNotFound].
	Get(ctx context.Context, id string) (*AudioFile, error)

	// List returns one page of audio files plus the total match count.
	List(ctx context.Context, q AudioFileQuery) ([]AudioFile, int, error)

	// UpdateStatus forces the lifecycle status. No transition guard is
	// applied; any status may be set from any other.
	UpdateStatus(ctx context.Context, id string, status AudioStatus) error

	// Complete marks the file completed and records its discovered duration
	// in seconds. Used by the transcription stage only.
	Complete(ctx context.Context, id string, durationSec float64) error

	// Delete removes the record, or returns [ErrNotFound].
	Delete(ctx context.Context, id string) error

	// Stats computes aggregate statistics over all audio files.
	Stats(ctx context.Context) (*AudioFileStats, error)
}

// Transcripts persists speech-to-text results.
type Transcripts interface {
	// Create inserts t. Returns [ErrConflict] when a transcript already
	// exists for t.AudioFileID.
	Create(ctx context.Context, t *Transcript) error

	// Get returns the transcript with the given id, or [ErrNotFound].
	Get(ctx context.Context, id string) (*Transcript, error)

	// GetByAudioFile returns the transcript owned by the given audio file,
	// or [ErrNotFound].
	GetByAudioFile(ctx context.Context, audioFileID string) (*Transcript, error)

	// List returns one page of transcripts plus the total match count.
	List(ctx context.Context, q TranscriptQuery) ([]Transcript, int, error)

	// Update replaces the text and segments of an existing transcript and
	// returns the updated record.
	Update(ctx context.Context, id string, text string, segments []Segment) (*Transcript, error)

	// Delete removes the record, or returns [ErrNotFound]. The owning audio
	// file and any downstream analysis are untouched.
	Delete(ctx context.Context, id string) error

	// Stats computes aggregate statistics over all transcripts.
	Stats(ctx context.Context) (*TranscriptStats, error)
}

// Analyses persists sentiment/behaviour analyses.
type Analyses interface {
	// Create inserts a. Returns [ErrConflict] when an analysis already
	// exists for a.TranscriptID.
	Create(ctx context.Context, a *Analysis) error

	// Get returns the analysis with the given id, or [ErrNotFound].
	Get(ctx context.Context, id string) (*Analysis, error)

	// GetByTranscript returns the analysis owned by the given transcript,
	// or [ErrNotFound].
	GetByTranscript(ctx context.Context, transcriptID string) (*Analysis, error)

	// List returns one page of analyses plus the total match count.
	List(ctx context.Context, q AnalysisQuery) ([]Analysis, int, error)

	// Delete removes the record, or returns [ErrNotFound].
	Delete(ctx context.Context, id string) error

	// Stats computes aggregate statistics over all analyses.
	Stats(ctx context.Context) (*AnalysisStats, error)

	// SentimentSummary computes the per-label sentiment breakdown.
	SentimentSummary(ctx context.Context) (*SentimentSummary, error)
}

// PlanUpdate carries the mutable subset of a coaching plan. Nil fields are
// left unchanged.
type PlanUpdate struct {
	Notes       *string
	FollowUp    *FollowUpPlan
	ActionItems []ActionItem
}

// CoachingPlans persists generated coaching plans.
type CoachingPlans interface {
	// Create inserts p. Returns [ErrConflict] when a plan already exists
	// for p.AnalysisID.
	Create(ctx context.Context, p *CoachingPlan) error

	// Get returns the plan with the given id, or [ErrNotFound].
	Get(ctx context.Context, id string) (*CoachingPlan, error)

	// GetByAnalysis returns the plan owned by the given analysis, or
	// [ErrNotFound].
	GetByAnalysis(ctx context.Context, analysisID string) (*CoachingPlan, error)

	// List returns one page of plans plus the total match count.
	List(ctx context.Context, q PlanQuery) ([]CoachingPlan, int, error)

	// Update applies u to an existing plan and returns the updated record.
	Update(ctx context.Context, id string, u PlanUpdate) (*CoachingPlan, error)

	// Delete removes the record, or returns [ErrNotFound].
	Delete(ctx context.Context, id string) error

	// Stats computes aggregate statistics over all plans.
	Stats(ctx context.Context) (*PlanStats, error)

	// AgentSummary computes per-agent statistics, or [ErrNotFound] when the
	// agent has no plans.
	AgentSummary(ctx context.Context, agentID string) (*AgentSummary, error)
}
