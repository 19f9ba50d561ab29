package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/voxmetrics/callcoach/internal/observe"
	"github.com/voxmetrics/callcoach/pkg/store"
)

// allowedMimeTypes is the upload MIME allow-list. audio/mp3 is non-standard
// but common enough in the wild to accept alongside audio/mpeg.
var allowedMimeTypes = []string{"audio/wav", "audio/mpeg", "audio/mp3"}

// allowedExtensions is the upload extension allow-list, checked on the
// original filename independently of the declared MIME type.
var allowedExtensions = []string{".wav", ".mp3", ".mpeg", ".mp4", ".flac"}

// uploadAudio handles POST /api/audio: a multipart upload with the audio in
// the "audioFile" field. The file is written to disk first and the record
// created second; if the record insert fails the file is removed again so no
// orphans accumulate.
func (s *Server) uploadAudio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}

	file, header, err := r.FormFile("audioFile")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file exceeds the %d MB upload limit", s.maxUploadBytes>>20),
				"FILE_TOO_LARGE")
			return
		}
		writeError(w, http.StatusBadRequest,
			`multipart form field "audioFile" is required`, "MISSING_FILE")
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if !slices.Contains(allowedMimeTypes, mimeType) {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("unsupported file type %q: allowed types are %s",
				mimeType, strings.Join(allowedMimeTypes, ", ")),
			"INVALID_FILE_TYPE")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !slices.Contains(allowedExtensions, ext) {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("unsupported file extension %q: allowed extensions are %s",
				ext, strings.Join(allowedExtensions, ", ")),
			"INVALID_FILE_EXTENSION")
		return
	}

	name, path, size, err := s.files.Save(ext, file)
	if err != nil {
		serviceError(w, r, fmt.Errorf("api: save upload: %w", err))
		return
	}

	rec := &store.AudioFile{
		OriginalName: header.Filename,
		StorageName:  name,
		StoragePath:  path,
		MimeType:     mimeType,
		Size:         size,
		Status:       store.StatusUploaded,
	}
	if err := s.audio.Create(ctx, rec); err != nil {
		// Compensate: the file on disk is an orphan without its record.
		if rmErr := s.files.Remove(name); rmErr != nil {
			observe.Logger(ctx).Warn("failed to remove orphaned upload",
				slog.String("file", name), slog.Any("error", rmErr))
		}
		serviceError(w, r, fmt.Errorf("api: create audio file record: %w", err))
		return
	}

	s.metrics.UploadBytes.Add(ctx, size)
	writeData(w, http.StatusCreated, rec)
}

// getAudio handles GET /api/audio/{id}.
func (s *Server) getAudio(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	rec, err := s.audio.Get(r.Context(), id)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, rec)
}

// listAudio handles GET /api/audio with optional status and mimeType filters.
func (s *Server) listAudio(w http.ResponseWriter, r *http.Request) {
	q := store.AudioFileQuery{
		Page:     pageQuery(r),
		Sort:     sortQuery(r),
		MimeType: r.URL.Query().Get("mimeType"),
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := store.AudioStatus(v)
		if !status.IsValid() {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("invalid status filter %q", v), "INVALID_STATUS")
			return
		}
		q.Status = status
	}

	recs, total, err := s.audio.List(r.Context(), q)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writePage(w, recs, q.Page, total)
}

// updateAudioStatus handles PATCH /api/audio/{id}/status. The transition is
// deliberately unguarded: operators use it to reset stuck files, so any valid
// status may be forced from any other.
func (s *Server) updateAudioStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var body struct {
		Status store.AudioStatus `json:"status"`
	}
	if err := decodeBody(r, &body); err != nil {
		serviceError(w, r, err)
		return
	}
	if !body.Status.IsValid() {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("invalid status %q: must be one of uploaded, processing, completed, failed", body.Status),
			"INVALID_STATUS")
		return
	}

	if err := s.audio.UpdateStatus(r.Context(), id, body.Status); err != nil {
		serviceError(w, r, err)
		return
	}
	rec, err := s.audio.Get(r.Context(), id)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, rec)
}

// deleteAudio handles DELETE /api/audio/{id}. The record is removed first;
// the file on disk is best-effort cleanup afterwards. Downstream transcripts
// are untouched.
func (s *Server) deleteAudio(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	rec, err := s.audio.Get(r.Context(), id)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	if err := s.audio.Delete(r.Context(), id); err != nil {
		serviceError(w, r, err)
		return
	}
	if err := s.files.Remove(rec.StorageName); err != nil {
		observe.Logger(r.Context()).Warn("failed to remove audio file from disk",
			slog.String("file", rec.StorageName), slog.Any("error", err))
	}
	writeData(w, http.StatusOK, map[string]string{"id": id})
}

// audioStats handles GET /api/audio/stats/overview.
func (s *Server) audioStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.audio.Stats(r.Context())
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}
