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

// CoachingPlanStore implements [store.CoachingPlans] on top of the
// coaching_plans table. Obtain one via [Store.CoachingPlans].
type CoachingPlanStore struct {
	pool *pgxpool.Pool
}

const planColumns = `id, analysis_id, audio_file_id, agent_id,
	performance_score, performance_level,
	strengths, improvement_areas, action_items, training_recs, follow_up,
	notes, generated_at`

// Create implements [store.CoachingPlans]. The UNIQUE constraint on
// analysis_id turns a duplicate into [store.ErrConflict].
func (s *CoachingPlanStore) Create(ctx context.Context, p *store.CoachingPlan) error {
	if p.ID == "" {
		p.ID = store.NewID()
	}
	if p.GeneratedAt.IsZero() {
		p.GeneratedAt = time.Now().UTC()
	}

	strengths, err := json.Marshal(p.Strengths)
	if err != nil {
		return fmt.Errorf("coaching plans: marshal strengths: %w", err)
	}
	areas, err := json.Marshal(p.ImprovementAreas)
	if err != nil {
		return fmt.Errorf("coaching plans: marshal improvement areas: %w", err)
	}
	actions, err := json.Marshal(p.ActionItems)
	if err != nil {
		return fmt.Errorf("coaching plans: marshal action items: %w", err)
	}
	training, err := json.Marshal(p.Training)
	if err != nil {
		return fmt.Errorf("coaching plans: marshal training recommendations: %w", err)
	}
	followUp, err := json.Marshal(p.FollowUp)
	if err != nil {
		return fmt.Errorf("coaching plans: marshal follow-up plan: %w", err)
	}

	const q = `
		INSERT INTO coaching_plans
		    (id, analysis_id, audio_file_id, agent_id,
		     performance_score, performance_level,
		     strengths, improvement_areas, action_items, training_recs, follow_up,
		     notes, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = s.pool.Exec(ctx, q,
		p.ID, p.AnalysisID, p.AudioFileID, p.AgentID,
		p.Performance.Score, string(p.Performance.Level),
		strengths, areas, actions, training, followUp,
		p.Notes, p.GeneratedAt,
	)
	if err != nil {
		return translateError("coaching plans: create", err)
	}
	return nil
}

// Get implements [store.CoachingPlans].
func (s *CoachingPlanStore) Get(ctx context.Context, id string) (*store.CoachingPlan, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM coaching_plans WHERE id = $1`, id)
	return scanPlanRow(row, "get")
}

// GetByAnalysis implements [store.CoachingPlans].
func (s *CoachingPlanStore) GetByAnalysis(ctx context.Context, analysisID string) (*store.CoachingPlan, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM coaching_plans WHERE analysis_id = $1`, analysisID)
	return scanPlanRow(row, "get by analysis")
}

// List implements [store.CoachingPlans].
func (s *CoachingPlanStore) List(ctx context.Context, q store.PlanQuery) ([]store.CoachingPlan, int, error) {
	b := &condBuilder{}
	if q.AgentID != "" {
		b.add("agent_id = %s", q.AgentID)
	}
	if q.PerformanceLevel != "" {
		b.add("performance_level = %s", q.PerformanceLevel)
	}
	if q.MinScore > 0 {
		b.add("performance_score >= %s", q.MinScore)
	}
	where := b.where()

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM coaching_plans`+where, b.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("coaching plans: count: %w", err)
	}

	order := orderClause(q.Sort, map[string]string{
		"generatedAt": "generated_at",
		"score":       "performance_score",
		"agentId":     "agent_id",
	}, "generated_at")

	query := `SELECT ` + planColumns + ` FROM coaching_plans` + where + order + limitClause(b, q.Page)
	rows, err := s.pool.Query(ctx, query, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("coaching plans: list: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.CoachingPlan, error) {
		p, err := scanPlan(row)
		if err != nil {
			return store.CoachingPlan{}, err
		}
		return *p, nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("coaching plans: scan rows: %w", err)
	}
	if out == nil {
		out = []store.CoachingPlan{}
	}
	return out, total, nil
}

// Update implements [store.CoachingPlans]. Only non-nil fields of u are
// written.
func (s *CoachingPlanStore) Update(ctx context.Context, id string, u store.PlanUpdate) (*store.CoachingPlan, error) {
	b := &condBuilder{}
	var sets []string
	set := func(column string, arg any) {
		b.args = append(b.args, arg)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(b.args)))
	}

	if u.Notes != nil {
		set("notes", *u.Notes)
	}
	if u.FollowUp != nil {
		data, err := json.Marshal(u.FollowUp)
		if err != nil {
			return nil, fmt.Errorf("coaching plans: marshal follow-up plan: %w", err)
		}
		set("follow_up", data)
	}
	if u.ActionItems != nil {
		data, err := json.Marshal(u.ActionItems)
		if err != nil {
			return nil, fmt.Errorf("coaching plans: marshal action items: %w", err)
		}
		set("action_items", data)
	}
	if len(sets) == 0 {
		// Nothing to change; return the current record.
		return s.Get(ctx, id)
	}

	b.args = append(b.args, id)
	q := fmt.Sprintf("UPDATE coaching_plans SET %s WHERE id = $%d RETURNING %s",
		joinSets(sets), len(b.args), planColumns)

	row := s.pool.QueryRow(ctx, q, b.args...)
	return scanPlanRow(row, "update")
}

// Delete implements [store.CoachingPlans].
func (s *CoachingPlanStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM coaching_plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("coaching plans: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Stats implements [store.CoachingPlans]. The independent aggregates run
// concurrently; the first error cancels the rest.
func (s *CoachingPlanStore) Stats(ctx context.Context) (*store.PlanStats, error) {
	return planStats(ctx, s.pool)
}

// AgentSummary implements [store.CoachingPlans].
func (s *CoachingPlanStore) AgentSummary(ctx context.Context, agentID string) (*store.AgentSummary, error) {
	summary := &store.AgentSummary{AgentID: agentID, ByLevel: map[string]int{}}

	const totals = `
		SELECT count(*),
		       coalesce(avg(performance_score), 0),
		       max(generated_at)
		FROM   coaching_plans
		WHERE  agent_id = $1`
	if err := s.pool.QueryRow(ctx, totals, agentID).Scan(
		&summary.Plans, &summary.AvgScore, &summary.LastPlanAt,
	); err != nil {
		return nil, fmt.Errorf("coaching plans: agent summary: %w", err)
	}
	if summary.Plans == 0 {
		return nil, store.ErrNotFound
	}

	rows, err := s.pool.Query(ctx,
		`SELECT performance_level, count(*) FROM coaching_plans WHERE agent_id = $1 GROUP BY performance_level`, agentID)
	if err != nil {
		return nil, fmt.Errorf("coaching plans: agent summary levels: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			level string
			count int
		)
		if err := rows.Scan(&level, &count); err != nil {
			return nil, fmt.Errorf("coaching plans: agent summary levels: %w", err)
		}
		summary.ByLevel[level] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("coaching plans: agent summary levels: %w", err)
	}
	return summary, nil
}

// joinSets joins SET fragments with commas.
func joinSets(sets []string) string {
	out := sets[0]
	for _, s := range sets[1:] {
		out += ", " + s
	}
	return out
}

// scanPlanRow wraps scanPlan with ErrNoRows translation.
func scanPlanRow(row pgx.Row, op string) (*store.CoachingPlan, error) {
	p, err := scanPlan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("coaching plans: %s: %w", op, err)
	}
	return p, nil
}

// scanPlan scans one coaching_plans row, decoding all JSONB blocks.
func scanPlan(row pgx.Row) (*store.CoachingPlan, error) {
	var (
		p     store.CoachingPlan
		level string

		strengths, areas, actions []byte
		training, followUp        []byte
	)
	if err := row.Scan(
		&p.ID, &p.AnalysisID, &p.AudioFileID, &p.AgentID,
		&p.Performance.Score, &level,
		&strengths, &areas, &actions, &training, &followUp,
		&p.Notes, &p.GeneratedAt,
	); err != nil {
		return nil, err
	}
	p.Performance.Level = store.PerformanceLevel(level)

	for _, field := range []struct {
		name string
		data []byte
		dst  any
	}{
		{"strengths", strengths, &p.Strengths},
		{"improvement areas", areas, &p.ImprovementAreas},
		{"action items", actions, &p.ActionItems},
		{"training recommendations", training, &p.Training},
		{"follow-up plan", followUp, &p.FollowUp},
	} {
		if err := json.Unmarshal(field.data, field.dst); err != nil {
			return nil, fmt.Errorf("decode %s: %w", field.name, err)
		}
	}

	p.ID = trimID(p.ID)
	p.AnalysisID = trimID(p.AnalysisID)
	p.AudioFileID = trimID(p.AudioFileID)
	return &p, nil
}
