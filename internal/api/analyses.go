package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/voxmetrics/callcoach/internal/observe"
	"github.com/voxmetrics/callcoach/internal/report"
	"github.com/voxmetrics/callcoach/pkg/store"
)

// createAnalysis handles POST /api/analyses/{transcriptID}: it runs the
// analysis stage synchronously and returns the new analysis.
func (s *Server) createAnalysis(w http.ResponseWriter, r *http.Request) {
	transcriptID, ok := pathID(w, r, "transcriptID")
	if !ok {
		return
	}
	analysis, err := s.pipeline.Analyze(r.Context(), transcriptID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, analysis)
}

// getAnalysis handles GET /api/analyses/{id}.
func (s *Server) getAnalysis(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	a, err := s.analyses.Get(r.Context(), id)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, a)
}

// getAnalysisByTranscript handles GET /api/analyses/transcript/{transcriptID}.
func (s *Server) getAnalysisByTranscript(w http.ResponseWriter, r *http.Request) {
	transcriptID, ok := pathID(w, r, "transcriptID")
	if !ok {
		return
	}
	a, err := s.analyses.GetByTranscript(r.Context(), transcriptID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, a)
}

// listAnalyses handles GET /api/analyses with optional sentiment,
// minSatisfaction, and resolved filters.
func (s *Server) listAnalyses(w http.ResponseWriter, r *http.Request) {
	q := store.AnalysisQuery{
		Page:      pageQuery(r),
		Sort:      sortQuery(r),
		Sentiment: r.URL.Query().Get("sentiment"),
	}
	if v := r.URL.Query().Get("minSatisfaction"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest,
				"minSatisfaction must be a number", "INVALID_FILTER")
			return
		}
		q.MinSatisfaction = f
	}
	if v := r.URL.Query().Get("resolved"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest,
				"resolved must be true or false", "INVALID_FILTER")
			return
		}
		q.Resolved = &b
	}

	recs, total, err := s.analyses.List(r.Context(), q)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writePage(w, recs, q.Page, total)
}

// deleteAnalysis handles DELETE /api/analyses/{id}.
func (s *Server) deleteAnalysis(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.analyses.Delete(r.Context(), id); err != nil {
		serviceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"id": id})
}

// analysisStats handles GET /api/analyses/stats/overview.
func (s *Server) analysisStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.analyses.Stats(r.Context())
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}

// sentimentSummary handles GET /api/analyses/stats/sentiment-summary.
func (s *Server) sentimentSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.analyses.SentimentSummary(r.Context())
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, summary)
}

// exportAnalysisStats handles GET /api/analyses/stats/export: it streams the
// aggregate analysis statistics as an Excel workbook.
func (s *Server) exportAnalysisStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.analyses.Stats(r.Context())
	if err != nil {
		serviceError(w, r, err)
		return
	}
	summary, err := s.analyses.SentimentSummary(r.Context())
	if err != nil {
		serviceError(w, r, err)
		return
	}

	f, err := report.AnalysisWorkbook(stats, summary)
	if err != nil {
		serviceError(w, r, fmt.Errorf("api: build export workbook: %w", err))
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("analysis-stats-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := f.Write(w); err != nil {
		// Headers are already out; nothing sensible left to send.
		observe.Logger(r.Context()).Error("failed to write export workbook",
			slog.Any("error", err))
	}
}
