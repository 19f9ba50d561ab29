// Package postgres provides the PostgreSQL-backed implementation of the
// callcoach store interfaces.
//
// All four collections share a single [pgxpool.Pool]. Nested blocks
// (segments, emotions, action items, …) are stored as JSONB columns while
// every field the API filters or sorts on is a scalar column with an index.
// [Migrate] is idempotent and safe to run on every application start.
//
// The "at most one downstream record per upstream record" pipeline invariant
// is enforced by UNIQUE constraints on the upstream-reference columns
// (transcripts.audio_file_id, analyses.transcript_id,
// coaching_plans.analysis_id). A unique violation is surfaced as
// [store.ErrConflict], so a concurrent duplicate request degrades to a clean
// conflict instead of a silent second record.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlAudioFiles = `
CREATE TABLE IF NOT EXISTS audio_files (
    id             CHAR(24)         PRIMARY KEY,
    original_name  TEXT             NOT NULL,
    storage_name   TEXT             NOT NULL,
    storage_path   TEXT             NOT NULL,
    mime_type      TEXT             NOT NULL,
    size_bytes     BIGINT           NOT NULL,
    duration_sec   DOUBLE PRECISION,
    status         TEXT             NOT NULL DEFAULT 'uploaded',
    uploaded_at    TIMESTAMPTZ      NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_audio_files_status
    ON audio_files (status);

CREATE INDEX IF NOT EXISTS idx_audio_files_mime_type
    ON audio_files (mime_type);

CREATE INDEX IF NOT EXISTS idx_audio_files_uploaded_at
    ON audio_files (uploaded_at);
`

const ddlTranscripts = `
CREATE TABLE IF NOT EXISTS transcripts (
    id             CHAR(24)         PRIMARY KEY,
    audio_file_id  CHAR(24)         NOT NULL UNIQUE,
    text           TEXT             NOT NULL,
    confidence     DOUBLE PRECISION NOT NULL DEFAULT 0,
    segments       JSONB            NOT NULL DEFAULT '[]',
    language       TEXT             NOT NULL DEFAULT '',
    processing_ms  BIGINT           NOT NULL DEFAULT 0,
    created_at     TIMESTAMPTZ      NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_transcripts_language
    ON transcripts (language);

CREATE INDEX IF NOT EXISTS idx_transcripts_created_at
    ON transcripts (created_at);
`

const ddlAnalyses = `
CREATE TABLE IF NOT EXISTS analyses (
    id                  CHAR(24)         PRIMARY KEY,
    transcript_id       CHAR(24)         NOT NULL UNIQUE,
    audio_file_id       CHAR(24)         NOT NULL,
    sentiment_overall   TEXT             NOT NULL,
    sentiment_score     DOUBLE PRECISION NOT NULL,
    sentiment_conf      DOUBLE PRECISION NOT NULL DEFAULT 0,
    emotions            JSONB            NOT NULL DEFAULT '[]',
    topics              JSONB            NOT NULL DEFAULT '[]',
    communication       JSONB            NOT NULL DEFAULT '{}',
    satisfaction_score  DOUBLE PRECISION NOT NULL DEFAULT 0,
    satisfaction        JSONB            NOT NULL DEFAULT '{}',
    resolved            BOOLEAN          NOT NULL DEFAULT false,
    resolution          JSONB            NOT NULL DEFAULT '{}',
    compliance          JSONB            NOT NULL DEFAULT '{}',
    summary             TEXT             NOT NULL,
    processing_ms       BIGINT           NOT NULL DEFAULT 0,
    created_at          TIMESTAMPTZ      NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_analyses_audio_file_id
    ON analyses (audio_file_id);

CREATE INDEX IF NOT EXISTS idx_analyses_sentiment
    ON analyses (sentiment_overall);

CREATE INDEX IF NOT EXISTS idx_analyses_created_at
    ON analyses (created_at);
`

const ddlCoachingPlans = `
CREATE TABLE IF NOT EXISTS coaching_plans (
    id                 CHAR(24)         PRIMARY KEY,
    analysis_id        CHAR(24)         NOT NULL UNIQUE,
    audio_file_id      CHAR(24)         NOT NULL,
    agent_id           TEXT             NOT NULL,
    performance_score  DOUBLE PRECISION NOT NULL,
    performance_level  TEXT             NOT NULL,
    strengths          JSONB            NOT NULL DEFAULT '[]',
    improvement_areas  JSONB            NOT NULL DEFAULT '[]',
    action_items       JSONB            NOT NULL DEFAULT '[]',
    training_recs      JSONB            NOT NULL DEFAULT '[]',
    follow_up          JSONB            NOT NULL DEFAULT '{}',
    notes              TEXT             NOT NULL DEFAULT '',
    generated_at       TIMESTAMPTZ      NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_coaching_plans_agent_id
    ON coaching_plans (agent_id);

CREATE INDEX IF NOT EXISTS idx_coaching_plans_level
    ON coaching_plans (performance_level);

CREATE INDEX IF NOT EXISTS idx_coaching_plans_generated_at
    ON coaching_plans (generated_at);
`

// Migrate creates all required tables and indexes. It is idempotent and safe
// to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		ddlAudioFiles,
		ddlTranscripts,
		ddlAnalyses,
		ddlCoachingPlans,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
