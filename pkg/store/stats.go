package store

import "time"

// AudioFileStats aggregates the audio file collection.
type AudioFileStats struct {
	Total       int            `json:"total"`
	ByStatus    map[string]int `json:"byStatus"`
	ByMimeType  map[string]int `json:"byMimeType"`
	TotalBytes  int64          `json:"totalBytes"`
	AvgDuration float64        `json:"avgDuration"`
}

// TranscriptStats aggregates the transcript collection.
type TranscriptStats struct {
	Total           int            `json:"total"`
	ByLanguage      map[string]int `json:"byLanguage"`
	AvgConfidence   float64        `json:"avgConfidence"`
	AvgProcessingMS float64        `json:"avgProcessingTimeMs"`
}

// AnalysisStats aggregates the analysis collection.
type AnalysisStats struct {
	Total           int            `json:"total"`
	BySentiment     map[string]int `json:"bySentiment"`
	AvgSatisfaction float64        `json:"avgSatisfaction"`
	AvgSentiment    float64        `json:"avgSentimentScore"`
	ResolvedCount   int            `json:"resolvedCount"`
	EscalatedCount  int            `json:"escalatedCount"`
}

// SentimentSummary is the per-label sentiment breakdown with averages.
type SentimentSummary struct {
	Counts        map[string]int `json:"counts"`
	AvgScore      float64        `json:"avgScore"`
	AvgConfidence float64        `json:"avgConfidence"`
}

// AgentPlanCount ranks an agent by generated plan volume.
type AgentPlanCount struct {
	AgentID  string  `json:"agentId"`
	Plans    int     `json:"plans"`
	AvgScore float64 `json:"avgScore"`
}

// ImprovementAreaCount counts how often an improvement area appears across
// all coaching plans.
type ImprovementAreaCount struct {
	Area  string `json:"area"`
	Count int    `json:"count"`
}

// PlanStats aggregates the coaching plan collection.
type PlanStats struct {
	Total         int                    `json:"total"`
	ByLevel       map[string]int         `json:"byLevel"`
	AvgScore      float64                `json:"avgScore"`
	TopAgents     []AgentPlanCount       `json:"topAgents"`
	FrequentAreas []ImprovementAreaCount `json:"frequentImprovementAreas"`
}

// AgentSummary aggregates all coaching plans generated for one agent.
type AgentSummary struct {
	AgentID    string         `json:"agentId"`
	Plans      int            `json:"plans"`
	AvgScore   float64        `json:"avgScore"`
	ByLevel    map[string]int `json:"byLevel"`
	LastPlanAt *time.Time     `json:"lastPlanAt,omitempty"`
}
