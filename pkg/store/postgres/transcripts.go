package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxmetrics/callcoach/pkg/store"
)

// TranscriptStore implements [store.Transcripts] on top of the transcripts
// table. Obtain one via [Store.Transcripts].
type TranscriptStore struct {
	pool *pgxpool.Pool
}

const transcriptColumns = `id, audio_file_id, text, confidence, segments, language, processing_ms, created_at`

// Create implements [store.Transcripts]. The UNIQUE constraint on
// audio_file_id turns a duplicate into [store.ErrConflict].
func (s *TranscriptStore) Create(ctx context.Context, t *store.Transcript) error {
	if t.ID == "" {
		t.ID = store.NewID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	segments, err := json.Marshal(segmentsOrEmpty(t.Segments))
	if err != nil {
		return fmt.Errorf("transcripts: marshal segments: %w", err)
	}

	const q = `
		INSERT INTO transcripts
		    (id, audio_file_id, text, confidence, segments, language, processing_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = s.pool.Exec(ctx, q,
		t.ID, t.AudioFileID, t.Text, t.Confidence,
		segments, t.Language, t.ProcessingMS, t.CreatedAt,
	)
	if err != nil {
		return translateError("transcripts: create", err)
	}
	return nil
}

// Get implements [store.Transcripts].
func (s *TranscriptStore) Get(ctx context.Context, id string) (*store.Transcript, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+transcriptColumns+` FROM transcripts WHERE id = $1`, id)
	return scanTranscriptRow(row, "get")
}

// GetByAudioFile implements [store.Transcripts].
func (s *TranscriptStore) GetByAudioFile(ctx context.Context, audioFileID string) (*store.Transcript, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+transcriptColumns+` FROM transcripts WHERE audio_file_id = $1`, audioFileID)
	return scanTranscriptRow(row, "get by audio file")
}

// List implements [store.Transcripts].
func (s *TranscriptStore) List(ctx context.Context, q store.TranscriptQuery) ([]store.Transcript, int, error) {
	b := &condBuilder{}
	if q.Language != "" {
		b.add("language = %s", q.Language)
	}
	if q.MinConfidence > 0 {
		b.add("confidence >= %s", q.MinConfidence)
	}
	where := b.where()

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM transcripts`+where, b.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("transcripts: count: %w", err)
	}

	order := orderClause(q.Sort, map[string]string{
		"createdAt":  "created_at",
		"confidence": "confidence",
		"language":   "language",
	}, "created_at")

	query := `SELECT ` + transcriptColumns + ` FROM transcripts` + where + order + limitClause(b, q.Page)
	rows, err := s.pool.Query(ctx, query, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("transcripts: list: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Transcript, error) {
		t, err := scanTranscript(row)
		if err != nil {
			return store.Transcript{}, err
		}
		return *t, nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("transcripts: scan rows: %w", err)
	}
	if out == nil {
		out = []store.Transcript{}
	}
	return out, total, nil
}

// Update implements [store.Transcripts].
func (s *TranscriptStore) Update(ctx context.Context, id string, text string, segments []store.Segment) (*store.Transcript, error) {
	data, err := json.Marshal(segmentsOrEmpty(segments))
	if err != nil {
		return nil, fmt.Errorf("transcripts: marshal segments: %w", err)
	}

	const q = `
		UPDATE transcripts SET text = $2, segments = $3
		WHERE  id = $1
		RETURNING ` + transcriptColumns

	row := s.pool.QueryRow(ctx, q, id, text, data)
	return scanTranscriptRow(row, "update")
}

// Delete implements [store.Transcripts]. The owning audio file and any
// downstream analysis are untouched.
func (s *TranscriptStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM transcripts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("transcripts: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Stats implements [store.Transcripts].
func (s *TranscriptStore) Stats(ctx context.Context) (*store.TranscriptStats, error) {
	stats := &store.TranscriptStats{ByLanguage: map[string]int{}}

	const totals = `
		SELECT count(*),
		       coalesce(avg(confidence), 0),
		       coalesce(avg(processing_ms), 0)
		FROM   transcripts`
	if err := s.pool.QueryRow(ctx, totals).Scan(&stats.Total, &stats.AvgConfidence, &stats.AvgProcessingMS); err != nil {
		return nil, fmt.Errorf("transcripts: stats totals: %w", err)
	}

	if err := groupCount(ctx, s.pool, `SELECT language, count(*) FROM transcripts GROUP BY language`, stats.ByLanguage); err != nil {
		return nil, fmt.Errorf("transcripts: stats by language: %w", err)
	}
	return stats, nil
}

// scanTranscriptRow wraps scanTranscript with ErrNoRows translation.
func scanTranscriptRow(row pgx.Row, op string) (*store.Transcript, error) {
	t, err := scanTranscript(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("transcripts: %s: %w", op, err)
	}
	return t, nil
}

// scanTranscript scans one transcripts row, decoding the segments JSONB.
func scanTranscript(row pgx.Row) (*store.Transcript, error) {
	var (
		t        store.Transcript
		segments []byte
	)
	if err := row.Scan(
		&t.ID, &t.AudioFileID, &t.Text, &t.Confidence,
		&segments, &t.Language, &t.ProcessingMS, &t.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(segments, &t.Segments); err != nil {
		return nil, fmt.Errorf("decode segments: %w", err)
	}
	t.ID = trimID(t.ID)
	t.AudioFileID = trimID(t.AudioFileID)
	return &t, nil
}

// segmentsOrEmpty normalises a nil slice to an empty one so the JSONB column
// always holds an array.
func segmentsOrEmpty(segments []store.Segment) []store.Segment {
	if segments == nil {
		return []store.Segment{}
	}
	return segments
}
