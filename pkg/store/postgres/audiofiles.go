package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxmetrics/callcoach/pkg/store"
)

// AudioFileStore implements [store.AudioFiles] on top of the audio_files
// table. Obtain one via [Store.AudioFiles] rather than constructing directly.
type AudioFileStore struct {
	pool *pgxpool.Pool
}

const audioFileColumns = `id, original_name, storage_name, storage_path, mime_type, size_bytes, duration_sec, status, uploaded_at`

// Create implements [store.AudioFiles].
func (s *AudioFileStore) Create(ctx context.Context, f *store.AudioFile) error {
	if f.ID == "" {
		f.ID = store.NewID()
	}
	if f.UploadedAt.IsZero() {
		f.UploadedAt = time.Now().UTC()
	}
	if f.Status == "" {
		f.Status = store.StatusUploaded
	}

	const q = `
		INSERT INTO audio_files
		    (id, original_name, storage_name, storage_path, mime_type, size_bytes, duration_sec, status, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, q,
		f.ID, f.OriginalName, f.StorageName, f.StoragePath,
		f.MimeType, f.Size, f.Duration, f.Status, f.UploadedAt,
	)
	if err != nil {
		return translateError("audio files: create", err)
	}
	return nil
}

// Get implements [store.AudioFiles].
func (s *AudioFileStore) Get(ctx context.Context, id string) (*store.AudioFile, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+audioFileColumns+` FROM audio_files WHERE id = $1`, id)
	f, err := scanAudioFile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("audio files: get: %w", err)
	}
	return f, nil
}

// List implements [store.AudioFiles].
func (s *AudioFileStore) List(ctx context.Context, q store.AudioFileQuery) ([]store.AudioFile, int, error) {
	b := &condBuilder{}
	if q.Status != "" {
		b.add("status = %s", string(q.Status))
	}
	if q.MimeType != "" {
		b.add("mime_type = %s", q.MimeType)
	}
	where := b.where()

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM audio_files`+where, b.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("audio files: count: %w", err)
	}

	order := orderClause(q.Sort, map[string]string{
		"uploadedAt":   "uploaded_at",
		"originalName": "original_name",
		"size":         "size_bytes",
		"status":       "status",
	}, "uploaded_at")

	query := `SELECT ` + audioFileColumns + ` FROM audio_files` + where + order + limitClause(b, q.Page)
	rows, err := s.pool.Query(ctx, query, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("audio files: list: %w", err)
	}

	files, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.AudioFile, error) {
		f, err := scanAudioFile(row)
		if err != nil {
			return store.AudioFile{}, err
		}
		return *f, nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("audio files: scan rows: %w", err)
	}
	if files == nil {
		files = []store.AudioFile{}
	}
	return files, total, nil
}

// UpdateStatus implements [store.AudioFiles]. Any status may be forced from
// any other; no transition guard is applied.
func (s *AudioFileStore) UpdateStatus(ctx context.Context, id string, status store.AudioStatus) error {
	tag, err := s.pool.Exec(ctx, `UPDATE audio_files SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("audio files: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Complete implements [store.AudioFiles].
func (s *AudioFileStore) Complete(ctx context.Context, id string, durationSec float64) error {
	const q = `UPDATE audio_files SET status = $2, duration_sec = $3 WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, id, string(store.StatusCompleted), durationSec)
	if err != nil {
		return fmt.Errorf("audio files: complete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Delete implements [store.AudioFiles]. Downstream transcripts are not
// cascade-deleted; their audio_file_id becomes a dangling lookup key.
func (s *AudioFileStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM audio_files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("audio files: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Stats implements [store.AudioFiles].
func (s *AudioFileStore) Stats(ctx context.Context) (*store.AudioFileStats, error) {
	stats := &store.AudioFileStats{
		ByStatus:   map[string]int{},
		ByMimeType: map[string]int{},
	}

	const totals = `
		SELECT count(*),
		       coalesce(sum(size_bytes), 0),
		       coalesce(avg(duration_sec), 0)
		FROM   audio_files`
	if err := s.pool.QueryRow(ctx, totals).Scan(&stats.Total, &stats.TotalBytes, &stats.AvgDuration); err != nil {
		return nil, fmt.Errorf("audio files: stats totals: %w", err)
	}

	if err := groupCount(ctx, s.pool, `SELECT status, count(*) FROM audio_files GROUP BY status`, stats.ByStatus); err != nil {
		return nil, fmt.Errorf("audio files: stats by status: %w", err)
	}
	if err := groupCount(ctx, s.pool, `SELECT mime_type, count(*) FROM audio_files GROUP BY mime_type`, stats.ByMimeType); err != nil {
		return nil, fmt.Errorf("audio files: stats by mime type: %w", err)
	}
	return stats, nil
}

// scanAudioFile scans one audio_files row.
func scanAudioFile(row pgx.Row) (*store.AudioFile, error) {
	var (
		f      store.AudioFile
		status string
	)
	if err := row.Scan(
		&f.ID, &f.OriginalName, &f.StorageName, &f.StoragePath,
		&f.MimeType, &f.Size, &f.Duration, &status, &f.UploadedAt,
	); err != nil {
		return nil, err
	}
	f.ID = trimID(f.ID)
	f.Status = store.AudioStatus(status)
	return &f, nil
}

// groupCount runs a two-column (key, count) aggregate query into dst.
func groupCount(ctx context.Context, pool *pgxpool.Pool, query string, dst map[string]int) error {
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key   string
			count int
		)
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		dst[key] = count
	}
	return rows.Err()
}
