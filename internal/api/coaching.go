package api

import (
	"net/http"
	"strconv"

	"github.com/voxmetrics/callcoach/internal/pipeline"
	"github.com/voxmetrics/callcoach/pkg/store"
)

// createCoachingPlan handles POST /api/coaching/{analysisID}: it runs the
// coaching stage synchronously and returns the new plan. The optional JSON
// body carries the agent the plan is for; without it the plan is filed under
// the unassigned placeholder.
func (s *Server) createCoachingPlan(w http.ResponseWriter, r *http.Request) {
	analysisID, ok := pathID(w, r, "analysisID")
	if !ok {
		return
	}

	var body struct {
		AgentID string `json:"agentId"`
	}
	if err := decodeBody(r, &body); err != nil {
		serviceError(w, r, err)
		return
	}

	plan, err := s.pipeline.Coach(r.Context(), analysisID, body.AgentID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, plan)
}

// getCoachingPlan handles GET /api/coaching/{id}.
func (s *Server) getCoachingPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := s.plans.Get(r.Context(), id)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

// getPlanByAnalysis handles GET /api/coaching/analysis/{analysisID}.
func (s *Server) getPlanByAnalysis(w http.ResponseWriter, r *http.Request) {
	analysisID, ok := pathID(w, r, "analysisID")
	if !ok {
		return
	}
	p, err := s.plans.GetByAnalysis(r.Context(), analysisID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

// listPlansByAgent handles GET /api/coaching/agent/{agentID}. Agent ids are
// caller-supplied labels, not record ids, so no shape check applies.
func (s *Server) listPlansByAgent(w http.ResponseWriter, r *http.Request) {
	q := store.PlanQuery{
		Page:    pageQuery(r),
		Sort:    sortQuery(r),
		AgentID: r.PathValue("agentID"),
	}
	recs, total, err := s.plans.List(r.Context(), q)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writePage(w, recs, q.Page, total)
}

// listCoachingPlans handles GET /api/coaching with optional agentId,
// performanceLevel, and minScore filters.
func (s *Server) listCoachingPlans(w http.ResponseWriter, r *http.Request) {
	q := store.PlanQuery{
		Page:    pageQuery(r),
		Sort:    sortQuery(r),
		AgentID: r.URL.Query().Get("agentId"),
	}
	if v := r.URL.Query().Get("performanceLevel"); v != "" {
		level := store.PerformanceLevel(v)
		if !level.IsValid() {
			writeError(w, http.StatusBadRequest,
				"invalid performanceLevel filter", "INVALID_FILTER")
			return
		}
		q.PerformanceLevel = v
	}
	if v := r.URL.Query().Get("minScore"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest,
				"minScore must be a number", "INVALID_FILTER")
			return
		}
		q.MinScore = f
	}

	recs, total, err := s.plans.List(r.Context(), q)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writePage(w, recs, q.Page, total)
}

// updateCoachingPlan handles PUT /api/coaching/{id}: it updates the mutable
// subset of a plan (notes, follow-up plan, action items). Fields absent from
// the body are left unchanged.
func (s *Server) updateCoachingPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var body struct {
		Notes       *string             `json:"customNotes"`
		FollowUp    *store.FollowUpPlan `json:"followUpPlan"`
		ActionItems []store.ActionItem  `json:"actionItems"`
	}
	if err := decodeBody(r, &body); err != nil {
		serviceError(w, r, err)
		return
	}
	if body.Notes == nil && body.FollowUp == nil && body.ActionItems == nil {
		serviceError(w, r, &pipeline.ValidationError{
			Code:    "INVALID_BODY",
			Message: "at least one of customNotes, followUpPlan, actionItems is required",
		})
		return
	}

	p, err := s.plans.Update(r.Context(), id, store.PlanUpdate{
		Notes:       body.Notes,
		FollowUp:    body.FollowUp,
		ActionItems: body.ActionItems,
	})
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

// deleteCoachingPlan handles DELETE /api/coaching/{id}.
func (s *Server) deleteCoachingPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.plans.Delete(r.Context(), id); err != nil {
		serviceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"id": id})
}

// planStats handles GET /api/coaching/stats/overview.
func (s *Server) planStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.plans.Stats(r.Context())
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}

// agentSummary handles GET /api/coaching/stats/agent-summary/{agentID}.
func (s *Server) agentSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.plans.AgentSummary(r.Context(), r.PathValue("agentID"))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, summary)
}
