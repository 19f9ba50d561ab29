package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/voxmetrics/callcoach/internal/observe"
	"github.com/voxmetrics/callcoach/internal/pipeline"
	"github.com/voxmetrics/callcoach/pkg/store"
)

// successBody is the envelope for all successful responses.
type successBody struct {
	Success    bool      `json:"success"`
	Data       any       `json:"data"`
	Pagination *pageMeta `json:"pagination,omitempty"`
}

// errorBody is the envelope for all error responses. Message is human
// readable; Error is a stable machine-readable code. Data carries optional
// structured detail, currently only the existing record's id on conflicts.
type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Data    any    `json:"data,omitempty"`
}

// pageMeta describes the page of a list response.
type pageMeta struct {
	Current    int `json:"current"`
	Limit      int `json:"limit"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.Any("error", err))
	}
}

// writeData writes a successful single-record (or aggregate) response.
func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, successBody{Success: true, Data: data})
}

// writePage writes a successful list response with pagination metadata.
// p must already be normalized.
func writePage(w http.ResponseWriter, data any, p store.Page, total int) {
	totalPages := total / p.Limit
	if total%p.Limit != 0 {
		totalPages++
	}
	writeJSON(w, http.StatusOK, successBody{
		Success: true,
		Data:    data,
		Pagination: &pageMeta{
			Current:    p.Page,
			Limit:      p.Limit,
			TotalItems: total,
			TotalPages: totalPages,
		},
	})
}

// writeError writes an error response with the standard envelope.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, errorBody{Success: false, Message: message, Error: code})
}

// errorResponse maps a service-layer error to an HTTP status, a human-readable
// message, and a stable error code.
func errorResponse(err error) (status int, message, code string) {
	var (
		ve *pipeline.ValidationError
		nf *pipeline.NotFoundError
		ce *pipeline.ConflictError
		ue *pipeline.UpstreamError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Message, ve.Code
	case errors.As(err, &nf):
		return http.StatusNotFound, nf.Error(), "NOT_FOUND"
	case errors.As(err, &ce):
		return http.StatusConflict, ce.Error(), "CONFLICT"
	case errors.As(err, &ue):
		return http.StatusInternalServerError, ue.Error(), "UPSTREAM_PROVIDER_ERROR"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "record not found", "NOT_FOUND"
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, "record already exists", "CONFLICT"
	}
	return http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR"
}

// serviceError writes err using the taxonomy mapping and logs unexpected
// internals at Error level; expected domain errors are the caller's problem
// and stay out of the server log.
func serviceError(w http.ResponseWriter, r *http.Request, err error) {
	status, message, code := errorResponse(err)
	if code == "INTERNAL_ERROR" {
		observe.Logger(r.Context()).Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}

	body := errorBody{Success: false, Message: message, Error: code}
	// On a conflict the caller can proceed with the existing record instead
	// of re-running the stage, so its id is surfaced as structured data, not
	// just embedded in the message text.
	var ce *pipeline.ConflictError
	if errors.As(err, &ce) && ce.ExistingID != "" {
		body.Data = map[string]string{"existingId": ce.ExistingID}
	}
	writeJSON(w, status, body)
}
