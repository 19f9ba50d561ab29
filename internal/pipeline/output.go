package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/voxmetrics/callcoach/pkg/store"
)

// The model is instructed to answer with bare JSON, but models wrap output in
// markdown fences or leading prose often enough that parsing is lenient:
// extractJSON cuts the first top-level JSON object out of the response text.
// Field validation afterwards is strict for the handful of fields the stages
// require; everything else is trusted as-is.

// extractJSON returns the substring from the first '{' to the last '}' of
// content, or an error if no object is present.
func extractJSON(content string) (string, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("no JSON object in model output")
	}
	return content[start : end+1], nil
}

// analysisOutput mirrors the analysis prompt's JSON contract. Required fields
// are pointers so that absence is distinguishable from a zero value.
type analysisOutput struct {
	Sentiment *struct {
		Overall    *string  `json:"overall"`
		Score      *float64 `json:"score"`
		Confidence float64  `json:"confidence"`
	} `json:"sentiment"`
	Emotions      []store.Emotion            `json:"emotions"`
	Topics        []store.Topic              `json:"topics"`
	Communication store.CommunicationMetrics `json:"communicationMetrics"`
	Satisfaction  store.Satisfaction         `json:"customerSatisfaction"`
	Resolution    store.Resolution           `json:"issueResolution"`
	Compliance    store.Compliance           `json:"compliance"`
	Summary       *string                    `json:"summary"`
}

// parseAnalysisOutput decodes and validates the analysis stage's model
// output. Only sentiment.overall, sentiment.score, and summary are required;
// all other fields are trusted as-is.
func parseAnalysisOutput(content string) (*store.Analysis, error) {
	raw, err := extractJSON(content)
	if err != nil {
		return nil, err
	}
	var out analysisOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode model output: %w", err)
	}

	var missing []string
	if out.Sentiment == nil || out.Sentiment.Overall == nil {
		missing = append(missing, "sentiment.overall")
	}
	if out.Sentiment == nil || out.Sentiment.Score == nil {
		missing = append(missing, "sentiment.score")
	}
	if out.Summary == nil {
		missing = append(missing, "summary")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("model output missing required fields: %s", strings.Join(missing, ", "))
	}

	return &store.Analysis{
		Sentiment: store.Sentiment{
			Overall:    *out.Sentiment.Overall,
			Score:      *out.Sentiment.Score,
			Confidence: out.Sentiment.Confidence,
		},
		Emotions:      out.Emotions,
		Topics:        out.Topics,
		Communication: out.Communication,
		Satisfaction:  out.Satisfaction,
		Resolution:    out.Resolution,
		Compliance:    out.Compliance,
		Summary:       *out.Summary,
	}, nil
}

// coachingOutput mirrors the coaching prompt's JSON contract.
type coachingOutput struct {
	AgentID     *string `json:"agentId"`
	Performance *struct {
		Score *float64 `json:"score"`
		Level *string  `json:"level"`
	} `json:"overallPerformance"`
	Strengths        []store.Strength               `json:"strengths"`
	ImprovementAreas []store.ImprovementArea        `json:"improvementAreas"`
	ActionItems      []store.ActionItem             `json:"actionItems"`
	Training         []store.TrainingRecommendation `json:"trainingRecommendations"`
	FollowUp         store.FollowUpPlan             `json:"followUpPlan"`
}

// parseCoachingOutput decodes and validates the coaching stage's model
// output. Only agentId, overallPerformance.score, and
// overallPerformance.level are required.
func parseCoachingOutput(content string) (*store.CoachingPlan, error) {
	raw, err := extractJSON(content)
	if err != nil {
		return nil, err
	}
	var out coachingOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode model output: %w", err)
	}

	var missing []string
	if out.AgentID == nil {
		missing = append(missing, "agentId")
	}
	if out.Performance == nil || out.Performance.Score == nil {
		missing = append(missing, "overallPerformance.score")
	}
	if out.Performance == nil || out.Performance.Level == nil {
		missing = append(missing, "overallPerformance.level")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("model output missing required fields: %s", strings.Join(missing, ", "))
	}

	return &store.CoachingPlan{
		AgentID: *out.AgentID,
		Performance: store.OverallPerformance{
			Score: *out.Performance.Score,
			Level: store.PerformanceLevel(*out.Performance.Level),
		},
		Strengths:        out.Strengths,
		ImprovementAreas: out.ImprovementAreas,
		ActionItems:      out.ActionItems,
		Training:         out.Training,
		FollowUp:         out.FollowUp,
	}, nil
}
