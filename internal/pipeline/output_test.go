package pipeline

import (
	"strings"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{
			name:    "bare object",
			content: `{"a": 1}`,
			want:    `{"a": 1}`,
		},
		{
			name:    "markdown fences",
			content: "```json\n{\"a\": 1}\n```",
			want:    `{"a": 1}`,
		},
		{
			name:    "leading prose",
			content: "Here is the analysis:\n{\"a\": 1}",
			want:    `{"a": 1}`,
		},
		{
			name:    "no object",
			content: "I cannot analyze this call.",
			wantErr: true,
		},
		{
			name:    "empty",
			content: "",
			wantErr: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := extractJSON(tc.content)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("extractJSON(%q) error = nil, want error", tc.content)
				}
				return
			}
			if err != nil {
				t.Fatalf("extractJSON: %v", err)
			}
			if got != tc.want {
				t.Errorf("extractJSON = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseAnalysisOutputMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		missing string
	}{
		{"no sentiment", `{"summary": "ok"}`, "sentiment.overall"},
		{"no score", `{"sentiment": {"overall": "positive"}, "summary": "ok"}`, "sentiment.score"},
		{"no summary", `{"sentiment": {"overall": "positive", "score": 0.5}}`, "summary"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseAnalysisOutput(tc.content)
			if err == nil {
				t.Fatal("error = nil, want missing-field error")
			}
			if !strings.Contains(err.Error(), tc.missing) {
				t.Errorf("error %q does not name missing field %q", err, tc.missing)
			}
		})
	}
}

func TestParseAnalysisOutputZeroValuesAccepted(t *testing.T) {
	// Present-but-zero is valid: a neutral call can legitimately score 0.
	content := `{"sentiment": {"overall": "neutral", "score": 0}, "summary": ""}`
	a, err := parseAnalysisOutput(content)
	if err != nil {
		t.Fatalf("parseAnalysisOutput: %v", err)
	}
	if a.Sentiment.Score != 0 {
		t.Errorf("Score = %v, want 0", a.Sentiment.Score)
	}
}

func TestParseCoachingOutputMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		missing string
	}{
		{"no agent", `{"overallPerformance": {"score": 80, "level": "good"}}`, "agentId"},
		{"no score", `{"agentId": "a1", "overallPerformance": {"level": "good"}}`, "overallPerformance.score"},
		{"no level", `{"agentId": "a1", "overallPerformance": {"score": 80}}`, "overallPerformance.level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseCoachingOutput(tc.content)
			if err == nil {
				t.Fatal("error = nil, want missing-field error")
			}
			if !strings.Contains(err.Error(), tc.missing) {
				t.Errorf("error %q does not name missing field %q", err, tc.missing)
			}
		})
	}
}

func TestParseCoachingOutput(t *testing.T) {
	plan, err := parseCoachingOutput(coachingResponse)
	if err != nil {
		t.Fatalf("parseCoachingOutput: %v", err)
	}
	if plan.AgentID != "agent_007" {
		t.Errorf("AgentID = %q, want agent_007", plan.AgentID)
	}
	if len(plan.ImprovementAreas) != 1 || plan.ImprovementAreas[0].Area != "pacing" {
		t.Errorf("ImprovementAreas = %+v, want one pacing entry", plan.ImprovementAreas)
	}
	if plan.FollowUp.NextReviewDate != "2026-10-01" {
		t.Errorf("NextReviewDate = %q, want 2026-10-01", plan.FollowUp.NextReviewDate)
	}
}
