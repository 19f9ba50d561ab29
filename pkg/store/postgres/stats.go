package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/voxmetrics/callcoach/pkg/store"
)

// topAgentLimit caps the "top agents by plan count" ranking.
const topAgentLimit = 5

// frequentAreaLimit caps the "most frequent improvement areas" ranking.
const frequentAreaLimit = 10

// planStats runs the four independent coaching plan aggregates concurrently.
func planStats(ctx context.Context, pool *pgxpool.Pool) (*store.PlanStats, error) {
	stats := &store.PlanStats{ByLevel: map[string]int{}}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		const q = `
			SELECT count(*), coalesce(avg(performance_score), 0)
			FROM   coaching_plans`
		if err := pool.QueryRow(gctx, q).Scan(&stats.Total, &stats.AvgScore); err != nil {
			return fmt.Errorf("totals: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		const q = `SELECT performance_level, count(*) FROM coaching_plans GROUP BY performance_level`
		if err := groupCount(gctx, pool, q, stats.ByLevel); err != nil {
			return fmt.Errorf("by level: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		const q = `
			SELECT   agent_id, count(*), coalesce(avg(performance_score), 0)
			FROM     coaching_plans
			GROUP BY agent_id
			ORDER BY count(*) DESC, agent_id
			LIMIT    $1`
		rows, err := pool.Query(gctx, q, topAgentLimit)
		if err != nil {
			return fmt.Errorf("top agents: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var a store.AgentPlanCount
			if err := rows.Scan(&a.AgentID, &a.Plans, &a.AvgScore); err != nil {
				return fmt.Errorf("top agents: %w", err)
			}
			stats.TopAgents = append(stats.TopAgents, a)
		}
		return rows.Err()
	})

	g.Go(func() error {
		// Unnest the improvement_areas JSONB arrays and count area labels.
		const q = `
			SELECT   area.value->>'area', count(*)
			FROM     coaching_plans,
			         jsonb_array_elements(improvement_areas) AS area
			GROUP BY area.value->>'area'
			ORDER BY count(*) DESC, area.value->>'area'
			LIMIT    $1`
		rows, err := pool.Query(gctx, q, frequentAreaLimit)
		if err != nil {
			return fmt.Errorf("frequent areas: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var a store.ImprovementAreaCount
			if err := rows.Scan(&a.Area, &a.Count); err != nil {
				return fmt.Errorf("frequent areas: %w", err)
			}
			stats.FrequentAreas = append(stats.FrequentAreas, a)
		}
		return rows.Err()
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("coaching plans: stats: %w", err)
	}
	return stats, nil
}
