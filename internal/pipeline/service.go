// Package pipeline implements the four-stage call-coaching pipeline:
// uploaded audio is transcribed, the transcript is analyzed, and the analysis
// is turned into a coaching plan. Every transition is triggered by an
// explicit API call; nothing runs in the background.
//
// Each stage enforces the at-most-one-downstream-per-upstream invariant
// twice: a friendly existence pre-check that returns the existing record's
// id, and the store's unique constraint underneath, which catches the
// concurrent case and maps to the same conflict.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/voxmetrics/callcoach/internal/observe"
	"github.com/voxmetrics/callcoach/pkg/provider/llm"
	"github.com/voxmetrics/callcoach/pkg/provider/stt"
	"github.com/voxmetrics/callcoach/pkg/store"
)

// defaultSegmentConfidence is assumed for segments whose backend did not
// report a confidence, rather than failing the transcription.
const defaultSegmentConfidence = 0.8

// DefaultAgentID is assigned to coaching plans whose caller did not name an
// agent.
const DefaultAgentID = "unassigned_agent"

// Config wires a Service. STT and LLM may be nil when no provider is
// configured; the corresponding stages then fail with an UpstreamError until
// the deployment is completed.
type Config struct {
	AudioFiles    store.AudioFiles
	Transcripts   store.Transcripts
	Analyses      store.Analyses
	CoachingPlans store.CoachingPlans

	STT     stt.Provider
	STTName string // provider name for metrics, e.g. "whisper"
	LLM     llm.Provider
	LLMName string // provider name for metrics, e.g. "openai"

	// Metrics defaults to observe.DefaultMetrics when nil.
	Metrics *observe.Metrics
}

// Service runs the pipeline stages. Safe for concurrent use.
type Service struct {
	audio       store.AudioFiles
	transcripts store.Transcripts
	analyses    store.Analyses
	plans       store.CoachingPlans

	stt     stt.Provider
	sttName string
	llm     llm.Provider
	llmName string

	metrics *observe.Metrics
}

// New creates a Service from cfg.
func New(cfg Config) *Service {
	m := cfg.Metrics
	if m == nil {
		m = observe.DefaultMetrics()
	}
	sttName := cfg.STTName
	if sttName == "" {
		sttName = "stt"
	}
	llmName := cfg.LLMName
	if llmName == "" {
		llmName = "llm"
	}
	return &Service{
		audio:       cfg.AudioFiles,
		transcripts: cfg.Transcripts,
		analyses:    cfg.Analyses,
		plans:       cfg.CoachingPlans,
		stt:         cfg.STT,
		sttName:     sttName,
		llm:         cfg.LLM,
		llmName:     llmName,
		metrics:     m,
	}
}

// STTConfigured reports whether a speech-to-text provider is wired.
func (s *Service) STTConfigured() bool { return s.stt != nil }

// LLMConfigured reports whether an LLM provider is wired.
func (s *Service) LLMConfigured() bool { return s.llm != nil }

// Transcribe runs the transcription stage for the given audio file. An empty
// language uses the provider default; a non-empty one must be in the
// provider's supported list.
//
// The audio file moves to "processing" before the provider call and to
// "completed" (with its discovered duration) or "failed" afterwards.
func (s *Service) Transcribe(ctx context.Context, audioFileID, language string) (*store.Transcript, error) {
	ctx, span := observe.StartSpan(ctx, "pipeline.transcribe")
	defer span.End()

	if s.stt == nil {
		return nil, &UpstreamError{Provider: "stt", Err: errors.New("no speech-to-text provider configured")}
	}

	audio, err := s.audio.Get(ctx, audioFileID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &NotFoundError{Resource: "audio file", ID: audioFileID}
	}
	if err != nil {
		return nil, fmt.Errorf("pipeline: load audio file: %w", err)
	}

	if existing, err := s.transcripts.GetByAudioFile(ctx, audioFileID); err == nil {
		return nil, &ConflictError{Resource: "transcript", UpstreamID: audioFileID, ExistingID: existing.ID}
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("pipeline: check existing transcript: %w", err)
	}

	if language != "" {
		supported := s.stt.Languages()
		if len(supported) > 0 && !slices.Contains(supported, language) {
			return nil, &ValidationError{
				Code:    "UNSUPPORTED_LANGUAGE",
				Message: fmt.Sprintf("language %q is not supported by the transcription provider", language),
			}
		}
	}

	if err := s.audio.UpdateStatus(ctx, audioFileID, store.StatusProcessing); err != nil {
		return nil, fmt.Errorf("pipeline: mark audio file processing: %w", err)
	}

	start := time.Now()
	result, err := s.stt.Transcribe(ctx, stt.Request{FilePath: audio.StoragePath, Language: language})
	elapsed := time.Since(start)
	s.metrics.STTDuration.Record(ctx, elapsed.Seconds())
	if err != nil {
		s.metrics.RecordProviderRequest(ctx, s.sttName, "stt", "error")
		s.metrics.RecordProviderError(ctx, s.sttName, "stt")
		s.metrics.RecordPipelineRun(ctx, "transcription", "error")
		if stErr := s.audio.UpdateStatus(ctx, audioFileID, store.StatusFailed); stErr != nil {
			observe.Logger(ctx).Warn("failed to mark audio file failed",
				slog.String("audio_file_id", audioFileID), slog.Any("error", stErr))
		}
		return nil, &UpstreamError{Provider: "stt", Err: err}
	}
	s.metrics.RecordProviderRequest(ctx, s.sttName, "stt", "ok")

	segments := make([]store.Segment, 0, len(result.Segments))
	for _, seg := range result.Segments {
		conf := seg.Confidence
		if conf == 0 {
			conf = defaultSegmentConfidence
		}
		segments = append(segments, store.Segment{
			Text:       seg.Text,
			Start:      seg.Start,
			End:        seg.End,
			Confidence: conf,
		})
	}

	confidence := result.Confidence
	if len(segments) > 0 {
		confidence = weightedConfidence(segments)
	} else if confidence == 0 {
		confidence = defaultSegmentConfidence
	}

	transcript := &store.Transcript{
		AudioFileID:  audioFileID,
		Text:         result.Text,
		Confidence:   confidence,
		Segments:     segments,
		Language:     result.Language,
		ProcessingMS: elapsed.Milliseconds(),
	}
	if err := s.transcripts.Create(ctx, transcript); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// Lost the race to a concurrent request; surface its record.
			existingID := ""
			if existing, gerr := s.transcripts.GetByAudioFile(ctx, audioFileID); gerr == nil {
				existingID = existing.ID
			}
			return nil, &ConflictError{Resource: "transcript", UpstreamID: audioFileID, ExistingID: existingID}
		}
		return nil, fmt.Errorf("pipeline: persist transcript: %w", err)
	}

	if err := s.audio.Complete(ctx, audioFileID, result.Duration); err != nil {
		observe.Logger(ctx).Warn("failed to mark audio file completed",
			slog.String("audio_file_id", audioFileID), slog.Any("error", err))
	}
	s.metrics.RecordPipelineRun(ctx, "transcription", "ok")
	return transcript, nil
}

// Analyze runs the analysis stage for the given transcript.
func (s *Service) Analyze(ctx context.Context, transcriptID string) (*store.Analysis, error) {
	ctx, span := observe.StartSpan(ctx, "pipeline.analyze")
	defer span.End()

	if s.llm == nil {
		return nil, &UpstreamError{Provider: "llm", Err: errors.New("no LLM provider configured")}
	}

	transcript, err := s.transcripts.Get(ctx, transcriptID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &NotFoundError{Resource: "transcript", ID: transcriptID}
	}
	if err != nil {
		return nil, fmt.Errorf("pipeline: load transcript: %w", err)
	}

	if existing, err := s.analyses.GetByTranscript(ctx, transcriptID); err == nil {
		return nil, &ConflictError{Resource: "analysis", UpstreamID: transcriptID, ExistingID: existing.ID}
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("pipeline: check existing analysis: %w", err)
	}

	content, elapsed, err := s.complete(ctx, "analysis", llm.CompletionRequest{
		SystemPrompt: analysisSystemPrompt,
		Prompt:       analysisPrompt(transcript.Text),
	})
	if err != nil {
		s.metrics.RecordPipelineRun(ctx, "analysis", "error")
		return nil, err
	}

	analysis, err := parseAnalysisOutput(content)
	if err != nil {
		s.metrics.RecordProviderError(ctx, s.llmName, "llm")
		s.metrics.RecordPipelineRun(ctx, "analysis", "error")
		return nil, &UpstreamError{Provider: "llm", Err: err}
	}

	analysis.TranscriptID = transcriptID
	analysis.AudioFileID = transcript.AudioFileID
	analysis.ProcessingMS = elapsed.Milliseconds()

	if err := s.analyses.Create(ctx, analysis); err != nil {
		if errors.Is(err, store.ErrConflict) {
			existingID := ""
			if existing, gerr := s.analyses.GetByTranscript(ctx, transcriptID); gerr == nil {
				existingID = existing.ID
			}
			return nil, &ConflictError{Resource: "analysis", UpstreamID: transcriptID, ExistingID: existingID}
		}
		return nil, fmt.Errorf("pipeline: persist analysis: %w", err)
	}
	s.metrics.RecordPipelineRun(ctx, "analysis", "ok")
	return analysis, nil
}

// Coach runs the coaching stage for the given analysis. An empty agentID is
// replaced by DefaultAgentID.
func (s *Service) Coach(ctx context.Context, analysisID, agentID string) (*store.CoachingPlan, error) {
	ctx, span := observe.StartSpan(ctx, "pipeline.coach")
	defer span.End()

	if s.llm == nil {
		return nil, &UpstreamError{Provider: "llm", Err: errors.New("no LLM provider configured")}
	}
	if agentID == "" {
		agentID = DefaultAgentID
	}

	analysis, err := s.analyses.Get(ctx, analysisID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &NotFoundError{Resource: "analysis", ID: analysisID}
	}
	if err != nil {
		return nil, fmt.Errorf("pipeline: load analysis: %w", err)
	}

	if existing, err := s.plans.GetByAnalysis(ctx, analysisID); err == nil {
		return nil, &ConflictError{Resource: "coaching plan", UpstreamID: analysisID, ExistingID: existing.ID}
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("pipeline: check existing coaching plan: %w", err)
	}

	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return nil, fmt.Errorf("pipeline: marshal analysis: %w", err)
	}

	content, _, err := s.complete(ctx, "coaching", llm.CompletionRequest{
		SystemPrompt: coachingSystemPrompt,
		Prompt:       coachingPrompt(agentID, string(analysisJSON)),
	})
	if err != nil {
		s.metrics.RecordPipelineRun(ctx, "coaching", "error")
		return nil, err
	}

	plan, err := parseCoachingOutput(content)
	if err != nil {
		s.metrics.RecordProviderError(ctx, s.llmName, "llm")
		s.metrics.RecordPipelineRun(ctx, "coaching", "error")
		return nil, &UpstreamError{Provider: "llm", Err: err}
	}

	plan.AnalysisID = analysisID
	plan.AudioFileID = analysis.AudioFileID

	if err := s.plans.Create(ctx, plan); err != nil {
		if errors.Is(err, store.ErrConflict) {
			existingID := ""
			if existing, gerr := s.plans.GetByAnalysis(ctx, analysisID); gerr == nil {
				existingID = existing.ID
			}
			return nil, &ConflictError{Resource: "coaching plan", UpstreamID: analysisID, ExistingID: existingID}
		}
		return nil, fmt.Errorf("pipeline: persist coaching plan: %w", err)
	}
	s.metrics.RecordPipelineRun(ctx, "coaching", "ok")
	return plan, nil
}

// complete runs one LLM completion with latency and outcome metrics for the
// given stage.
func (s *Service) complete(ctx context.Context, stage string, req llm.CompletionRequest) (string, time.Duration, error) {
	start := time.Now()
	resp, err := s.llm.Complete(ctx, req)
	elapsed := time.Since(start)
	s.metrics.LLMDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(observe.Attr("stage", stage)))
	if err != nil {
		s.metrics.RecordProviderRequest(ctx, s.llmName, "llm", "error")
		s.metrics.RecordProviderError(ctx, s.llmName, "llm")
		return "", elapsed, &UpstreamError{Provider: "llm", Err: err}
	}
	s.metrics.RecordProviderRequest(ctx, s.llmName, "llm", "ok")
	return resp.Content, elapsed, nil
}

// weightedConfidence averages segment confidences weighted by segment
// duration. Zero-length segments fall back to a plain average.
func weightedConfidence(segments []store.Segment) float64 {
	var weighted, total float64
	for _, seg := range segments {
		d := seg.End - seg.Start
		if d < 0 {
			d = 0
		}
		weighted += seg.Confidence * d
		total += d
	}
	if total == 0 {
		var sum float64
		for _, seg := range segments {
			sum += seg.Confidence
		}
		return sum / float64(len(segments))
	}
	return weighted / total
}
