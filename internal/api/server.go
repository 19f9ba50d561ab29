// Package api exposes the call-coaching pipeline as a JSON HTTP API under
// /api. Every response uses the same envelope: successes carry
// {"success": true, "data": ...} plus pagination metadata on lists, errors
// carry {"success": false, "message": ..., "error": CODE}.
//
// All record ids are 24-character lowercase hex strings; a malformed id is
// rejected with 400 before any store lookup.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"

	"github.com/voxmetrics/callcoach/internal/health"
	"github.com/voxmetrics/callcoach/internal/observe"
	"github.com/voxmetrics/callcoach/internal/pipeline"
	"github.com/voxmetrics/callcoach/internal/storage"
	"github.com/voxmetrics/callcoach/pkg/store"
)

// idPattern is the shape shared by all record ids.
var idPattern = regexp.MustCompile(`^[0-9a-f]{24}$`)

// Config wires a Server. The reachability checkers are optional; with a zero
// [health.Checker] the status endpoint reports configuration only.
type Config struct {
	AudioFiles    store.AudioFiles
	Transcripts   store.Transcripts
	Analyses      store.Analyses
	CoachingPlans store.CoachingPlans

	Pipeline *pipeline.Service
	Files    *storage.Disk

	// MaxUploadBytes caps a single audio upload. Zero disables the cap.
	MaxUploadBytes int64

	// STTName and LLMName are the configured provider names reported by the
	// status endpoint, e.g. "whisper" and "openai".
	STTName string
	LLMName string

	// STTCheck and LLMCheck report provider reachability for the status
	// endpoint, using the same named-check type the readiness endpoint runs.
	STTCheck health.Checker
	LLMCheck health.Checker

	// Metrics defaults to observe.DefaultMetrics when nil.
	Metrics *observe.Metrics
}

// Server holds the HTTP handlers for the /api surface.
type Server struct {
	audio       store.AudioFiles
	transcripts store.Transcripts
	analyses    store.Analyses
	plans       store.CoachingPlans

	pipeline *pipeline.Service
	files    *storage.Disk

	maxUploadBytes int64

	sttName  string
	llmName  string
	sttCheck health.Checker
	llmCheck health.Checker

	metrics *observe.Metrics
}

// New creates a Server from cfg.
func New(cfg Config) *Server {
	m := cfg.Metrics
	if m == nil {
		m = observe.DefaultMetrics()
	}
	return &Server{
		audio:          cfg.AudioFiles,
		transcripts:    cfg.Transcripts,
		analyses:       cfg.Analyses,
		plans:          cfg.CoachingPlans,
		pipeline:       cfg.Pipeline,
		files:          cfg.Files,
		maxUploadBytes: cfg.MaxUploadBytes,
		sttName:        cfg.STTName,
		llmName:        cfg.LLMName,
		sttCheck:       cfg.STTCheck,
		llmCheck:       cfg.LLMCheck,
		metrics:        m,
	}
}

// Register adds all /api routes to mux. Literal segments (stats, audio,
// transcript, analysis, agent) take precedence over the {id} wildcards under
// Go's ServeMux precedence rules.
func (s *Server) Register(mux *http.ServeMux) {
	// Audio files.
	mux.HandleFunc("POST /api/audio", s.uploadAudio)
	mux.HandleFunc("GET /api/audio", s.listAudio)
	mux.HandleFunc("GET /api/audio/stats/overview", s.audioStats)
	mux.HandleFunc("GET /api/audio/{id}", s.getAudio)
	mux.HandleFunc("PATCH /api/audio/{id}/status", s.updateAudioStatus)
	mux.HandleFunc("DELETE /api/audio/{id}", s.deleteAudio)

	// Transcripts.
	mux.HandleFunc("POST /api/transcripts/{audioFileID}", s.createTranscript)
	mux.HandleFunc("GET /api/transcripts", s.listTranscripts)
	mux.HandleFunc("GET /api/transcripts/stats/overview", s.transcriptStats)
	mux.HandleFunc("GET /api/transcripts/audio/{audioFileID}", s.getTranscriptByAudio)
	mux.HandleFunc("GET /api/transcripts/{id}", s.getTranscript)
	mux.HandleFunc("PUT /api/transcripts/{id}", s.updateTranscript)
	mux.HandleFunc("DELETE /api/transcripts/{id}", s.deleteTranscript)

	// Analyses.
	mux.HandleFunc("POST /api/analyses/{transcriptID}", s.createAnalysis)
	mux.HandleFunc("GET /api/analyses", s.listAnalyses)
	mux.HandleFunc("GET /api/analyses/stats/overview", s.analysisStats)
	mux.HandleFunc("GET /api/analyses/stats/sentiment-summary", s.sentimentSummary)
	mux.HandleFunc("GET /api/analyses/stats/export", s.exportAnalysisStats)
	mux.HandleFunc("GET /api/analyses/transcript/{transcriptID}", s.getAnalysisByTranscript)
	mux.HandleFunc("GET /api/analyses/{id}", s.getAnalysis)
	mux.HandleFunc("DELETE /api/analyses/{id}", s.deleteAnalysis)

	// Coaching plans.
	mux.HandleFunc("POST /api/coaching/{analysisID}", s.createCoachingPlan)
	mux.HandleFunc("GET /api/coaching", s.listCoachingPlans)
	mux.HandleFunc("GET /api/coaching/stats/overview", s.planStats)
	mux.HandleFunc("GET /api/coaching/stats/agent-summary/{agentID}", s.agentSummary)
	mux.HandleFunc("GET /api/coaching/analysis/{analysisID}", s.getPlanByAnalysis)
	mux.HandleFunc("GET /api/coaching/agent/{agentID}", s.listPlansByAgent)
	mux.HandleFunc("GET /api/coaching/{id}", s.getCoachingPlan)
	mux.HandleFunc("PUT /api/coaching/{id}", s.updateCoachingPlan)
	mux.HandleFunc("DELETE /api/coaching/{id}", s.deleteCoachingPlan)

	// Service status.
	mux.HandleFunc("GET /api/status", s.status)
}

// pathID extracts and validates the named 24-hex path id. On failure it
// writes a 400 response and returns ok = false.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := r.PathValue(name)
	if !idPattern.MatchString(id) {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("invalid id %q: must be a 24-character hex string", id), "INVALID_ID")
		return "", false
	}
	return id, true
}

// pageQuery reads the page and limit query parameters. Missing or malformed
// values fall back to the defaults via normalization.
func pageQuery(r *http.Request) store.Page {
	var p store.Page
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		p.Page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		p.Limit = v
	}
	return p.Normalize()
}

// sortQuery reads the sortBy and order query parameters. An empty sortBy
// means the store's newest-first default.
func sortQuery(r *http.Request) store.Sort {
	return store.Sort{
		Field: r.URL.Query().Get("sortBy"),
		Asc:   r.URL.Query().Get("order") == "asc",
	}
}

// decodeBody decodes a JSON request body into v. An entirely empty body is
// allowed and leaves v untouched; malformed JSON or unknown fields are a
// validation error.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &pipeline.ValidationError{
			Code:    "INVALID_BODY",
			Message: "invalid request body: " + err.Error(),
		}
	}
	return nil
}
