package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxmetrics/callcoach/pkg/store"
)

// Compile-time interface checks.
var (
	_ store.AudioFiles    = (*AudioFileStore)(nil)
	_ store.Transcripts   = (*TranscriptStore)(nil)
	_ store.Analyses      = (*AnalysisStore)(nil)
	_ store.CoachingPlans = (*CoachingPlanStore)(nil)
)

// Store is the central PostgreSQL-backed persistence layer. It holds a single
// [pgxpool.Pool] and exposes one sub-store per entity kind:
//
//   - [Store.AudioFiles] implements [store.AudioFiles]
//   - [Store.Transcripts] implements [store.Transcripts]
//   - [Store.Analyses] implements [store.Analyses]
//   - [Store.CoachingPlans] implements [store.CoachingPlans]
//
// All operations are safe for concurrent use.
type Store struct {
	pool        *pgxpool.Pool
	audioFiles  *AudioFileStore
	transcripts *TranscriptStore
	analyses    *AnalysisStore
	plans       *CoachingPlanStore
}

// New creates a Store, establishes a connection pool to the PostgreSQL
// database at dsn, and runs [Migrate] to ensure all tables exist.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{
		pool:        pool,
		audioFiles:  &AudioFileStore{pool: pool},
		transcripts: &TranscriptStore{pool: pool},
		analyses:    &AnalysisStore{pool: pool},
		plans:       &CoachingPlanStore{pool: pool},
	}, nil
}

// AudioFiles returns the audio file sub-store.
func (s *Store) AudioFiles() *AudioFileStore { return s.audioFiles }

// Transcripts returns the transcript sub-store.
func (s *Store) Transcripts() *TranscriptStore { return s.transcripts }

// Analyses returns the analysis sub-store.
func (s *Store) Analyses() *AnalysisStore { return s.analyses }

// CoachingPlans returns the coaching plan sub-store.
func (s *Store) CoachingPlans() *CoachingPlanStore { return s.plans }

// Ping probes the database connection. Used by readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// uniqueViolation is the PostgreSQL SQLSTATE code for a unique constraint
// violation.
const uniqueViolation = "23505"

// translateError maps driver errors to store sentinel errors: a unique
// violation becomes [store.ErrConflict], everything else passes through
// wrapped with the given operation label.
func translateError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, store.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
