package api

import (
	"net/http"
	"strconv"

	"github.com/voxmetrics/callcoach/internal/pipeline"
	"github.com/voxmetrics/callcoach/pkg/store"
)

// createTranscript handles POST /api/transcripts/{audioFileID}: it runs the
// transcription stage synchronously and returns the new transcript. An
// optional JSON body may carry a language hint.
func (s *Server) createTranscript(w http.ResponseWriter, r *http.Request) {
	audioFileID, ok := pathID(w, r, "audioFileID")
	if !ok {
		return
	}

	var body struct {
		Language string `json:"language"`
	}
	if err := decodeBody(r, &body); err != nil {
		serviceError(w, r, err)
		return
	}

	transcript, err := s.pipeline.Transcribe(r.Context(), audioFileID, body.Language)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, transcript)
}

// getTranscript handles GET /api/transcripts/{id}.
func (s *Server) getTranscript(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	t, err := s.transcripts.Get(r.Context(), id)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, t)
}

// getTranscriptByAudio handles GET /api/transcripts/audio/{audioFileID}.
func (s *Server) getTranscriptByAudio(w http.ResponseWriter, r *http.Request) {
	audioFileID, ok := pathID(w, r, "audioFileID")
	if !ok {
		return
	}
	t, err := s.transcripts.GetByAudioFile(r.Context(), audioFileID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, t)
}

// listTranscripts handles GET /api/transcripts with optional language and
// minConfidence filters.
func (s *Server) listTranscripts(w http.ResponseWriter, r *http.Request) {
	q := store.TranscriptQuery{
		Page:     pageQuery(r),
		Sort:     sortQuery(r),
		Language: r.URL.Query().Get("language"),
	}
	if v := r.URL.Query().Get("minConfidence"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest,
				"minConfidence must be a number", "INVALID_FILTER")
			return
		}
		q.MinConfidence = f
	}

	recs, total, err := s.transcripts.List(r.Context(), q)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writePage(w, recs, q.Page, total)
}

// updateTranscript handles PUT /api/transcripts/{id}: it replaces the text
// and segments of an existing transcript, e.g. after a manual correction.
func (s *Server) updateTranscript(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var body struct {
		Text     string          `json:"text"`
		Segments []store.Segment `json:"segments"`
	}
	if err := decodeBody(r, &body); err != nil {
		serviceError(w, r, err)
		return
	}
	if body.Text == "" {
		serviceError(w, r, &pipeline.ValidationError{
			Code:    "INVALID_BODY",
			Message: "text is required",
		})
		return
	}

	t, err := s.transcripts.Update(r.Context(), id, body.Text, body.Segments)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, t)
}

// deleteTranscript handles DELETE /api/transcripts/{id}. The owning audio
// file and any downstream analysis are untouched.
func (s *Server) deleteTranscript(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.transcripts.Delete(r.Context(), id); err != nil {
		serviceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"id": id})
}

// transcriptStats handles GET /api/transcripts/stats/overview.
func (s *Server) transcriptStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.transcripts.Stats(r.Context())
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}
