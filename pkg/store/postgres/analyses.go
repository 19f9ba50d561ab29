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

// AnalysisStore implements [store.Analyses] on top of the analyses table.
// Obtain one via [Store.Analyses].
type AnalysisStore struct {
	pool *pgxpool.Pool
}

const analysisColumns = `id, transcript_id, audio_file_id,
	sentiment_overall, sentiment_score, sentiment_conf,
	emotions, topics, communication,
	satisfaction_score, satisfaction, resolved, resolution, compliance,
	summary, processing_ms, created_at`

// Create implements [store.Analyses]. The UNIQUE constraint on transcript_id
// turns a duplicate into [store.ErrConflict].
func (s *AnalysisStore) Create(ctx context.Context, a *store.Analysis) error {
	if a.ID == "" {
		a.ID = store.NewID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	emotions, err := json.Marshal(a.Emotions)
	if err != nil {
		return fmt.Errorf("analyses: marshal emotions: %w", err)
	}
	topics, err := json.Marshal(a.Topics)
	if err != nil {
		return fmt.Errorf("analyses: marshal topics: %w", err)
	}
	communication, err := json.Marshal(a.Communication)
	if err != nil {
		return fmt.Errorf("analyses: marshal communication: %w", err)
	}
	satisfaction, err := json.Marshal(a.Satisfaction)
	if err != nil {
		return fmt.Errorf("analyses: marshal satisfaction: %w", err)
	}
	resolution, err := json.Marshal(a.Resolution)
	if err != nil {
		return fmt.Errorf("analyses: marshal resolution: %w", err)
	}
	compliance, err := json.Marshal(a.Compliance)
	if err != nil {
		return fmt.Errorf("analyses: marshal compliance: %w", err)
	}

	const q = `
		INSERT INTO analyses
		    (id, transcript_id, audio_file_id,
		     sentiment_overall, sentiment_score, sentiment_conf,
		     emotions, topics, communication,
		     satisfaction_score, satisfaction, resolved, resolution, compliance,
		     summary, processing_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err = s.pool.Exec(ctx, q,
		a.ID, a.TranscriptID, a.AudioFileID,
		a.Sentiment.Overall, a.Sentiment.Score, a.Sentiment.Confidence,
		emotions, topics, communication,
		a.Satisfaction.Score, satisfaction, a.Resolution.Resolved, resolution, compliance,
		a.Summary, a.ProcessingMS, a.CreatedAt,
	)
	if err != nil {
		return translateError("analyses: create", err)
	}
	return nil
}

// Get implements [store.Analyses].
func (s *AnalysisStore) Get(ctx context.Context, id string) (*store.Analysis, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+analysisColumns+` FROM analyses WHERE id = $1`, id)
	return scanAnalysisRow(row, "get")
}

// GetByTranscript implements [store.Analyses].
func (s *AnalysisStore) GetByTranscript(ctx context.Context, transcriptID string) (*store.Analysis, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+analysisColumns+` FROM analyses WHERE transcript_id = $1`, transcriptID)
	return scanAnalysisRow(row, "get by transcript")
}

// List implements [store.Analyses].
func (s *AnalysisStore) List(ctx context.Context, q store.AnalysisQuery) ([]store.Analysis, int, error) {
	b := &condBuilder{}
	if q.Sentiment != "" {
		b.add("sentiment_overall = %s", q.Sentiment)
	}
	if q.MinSatisfaction > 0 {
		b.add("satisfaction_score >= %s", q.MinSatisfaction)
	}
	if q.Resolved != nil {
		b.add("resolved = %s", *q.Resolved)
	}
	where := b.where()

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM analyses`+where, b.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("analyses: count: %w", err)
	}

	order := orderClause(q.Sort, map[string]string{
		"createdAt":      "created_at",
		"sentimentScore": "sentiment_score",
		"satisfaction":   "satisfaction_score",
	}, "created_at")

	query := `SELECT ` + analysisColumns + ` FROM analyses` + where + order + limitClause(b, q.Page)
	rows, err := s.pool.Query(ctx, query, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("analyses: list: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Analysis, error) {
		a, err := scanAnalysis(row)
		if err != nil {
			return store.Analysis{}, err
		}
		return *a, nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("analyses: scan rows: %w", err)
	}
	if out == nil {
		out = []store.Analysis{}
	}
	return out, total, nil
}

// Delete implements [store.Analyses].
func (s *AnalysisStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM analyses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("analyses: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Stats implements [store.Analyses].
func (s *AnalysisStore) Stats(ctx context.Context) (*store.AnalysisStats, error) {
	stats := &store.AnalysisStats{BySentiment: map[string]int{}}

	const totals = `
		SELECT count(*),
		       coalesce(avg(satisfaction_score), 0),
		       coalesce(avg(sentiment_score), 0),
		       count(*) FILTER (WHERE resolved),
		       count(*) FILTER (WHERE (resolution->>'escalationRequired')::boolean)
		FROM   analyses`
	if err := s.pool.QueryRow(ctx, totals).Scan(
		&stats.Total, &stats.AvgSatisfaction, &stats.AvgSentiment,
		&stats.ResolvedCount, &stats.EscalatedCount,
	); err != nil {
		return nil, fmt.Errorf("analyses: stats totals: %w", err)
	}

	if err := groupCount(ctx, s.pool, `SELECT sentiment_overall, count(*) FROM analyses GROUP BY sentiment_overall`, stats.BySentiment); err != nil {
		return nil, fmt.Errorf("analyses: stats by sentiment: %w", err)
	}
	return stats, nil
}

// SentimentSummary implements [store.Analyses].
func (s *AnalysisStore) SentimentSummary(ctx context.Context) (*store.SentimentSummary, error) {
	summary := &store.SentimentSummary{Counts: map[string]int{}}

	const q = `
		SELECT coalesce(avg(sentiment_score), 0),
		       coalesce(avg(sentiment_conf), 0)
		FROM   analyses`
	if err := s.pool.QueryRow(ctx, q).Scan(&summary.AvgScore, &summary.AvgConfidence); err != nil {
		return nil, fmt.Errorf("analyses: sentiment summary: %w", err)
	}

	if err := groupCount(ctx, s.pool, `SELECT sentiment_overall, count(*) FROM analyses GROUP BY sentiment_overall`, summary.Counts); err != nil {
		return nil, fmt.Errorf("analyses: sentiment summary counts: %w", err)
	}
	return summary, nil
}

// scanAnalysisRow wraps scanAnalysis with ErrNoRows translation.
func scanAnalysisRow(row pgx.Row, op string) (*store.Analysis, error) {
	a, err := scanAnalysis(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("analyses: %s: %w", op, err)
	}
	return a, nil
}

// scanAnalysis scans one analyses row, decoding all JSONB blocks.
func scanAnalysis(row pgx.Row) (*store.Analysis, error) {
	var (
		a store.Analysis

		emotions, topics, communication []byte
		satisfaction, resolution        []byte
		compliance                      []byte

		satisfactionScore float64
		resolved          bool
	)
	if err := row.Scan(
		&a.ID, &a.TranscriptID, &a.AudioFileID,
		&a.Sentiment.Overall, &a.Sentiment.Score, &a.Sentiment.Confidence,
		&emotions, &topics, &communication,
		&satisfactionScore, &satisfaction, &resolved, &resolution, &compliance,
		&a.Summary, &a.ProcessingMS, &a.CreatedAt,
	); err != nil {
		return nil, err
	}

	for _, field := range []struct {
		name string
		data []byte
		dst  any
	}{
		{"emotions", emotions, &a.Emotions},
		{"topics", topics, &a.Topics},
		{"communication", communication, &a.Communication},
		{"satisfaction", satisfaction, &a.Satisfaction},
		{"resolution", resolution, &a.Resolution},
		{"compliance", compliance, &a.Compliance},
	} {
		if err := json.Unmarshal(field.data, field.dst); err != nil {
			return nil, fmt.Errorf("decode %s: %w", field.name, err)
		}
	}

	a.ID = trimID(a.ID)
	a.TranscriptID = trimID(a.TranscriptID)
	a.AudioFileID = trimID(a.AudioFileID)
	return &a, nil
}
