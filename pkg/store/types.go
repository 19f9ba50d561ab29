package store

import "time"

// AudioStatus is the lifecycle state of an uploaded audio file.
//
// The transcription stage drives the only automatic transitions:
// uploaded → processing → completed, or uploaded → processing → failed.
// The administrative status update endpoint may force any value.
type AudioStatus string

const (
	StatusUploaded   AudioStatus = "uploaded"
	StatusProcessing AudioStatus = "processing"
	StatusCompleted  AudioStatus = "completed"
	StatusFailed     AudioStatus = "failed"
)

// IsValid reports whether s is a recognised audio status.
func (s AudioStatus) IsValid() bool {
	switch s {
	case StatusUploaded, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// AudioFile is the record created for every uploaded call recording.
// Duration is nil until the transcription stage discovers it.
type AudioFile struct {
	ID           string      `json:"id"`
	OriginalName string      `json:"originalName"`
	StorageName  string      `json:"storageName"`
	StoragePath  string      `json:"storagePath"`
	MimeType     string      `json:"mimetype"`
	Size         int64       `json:"size"`
	Duration     *float64    `json:"duration,omitempty"`
	Status       AudioStatus `json:"status"`
	UploadedAt   time.Time   `json:"uploadedAt"`
}

// Segment is a time-aligned slice of a transcript. Start and End are offsets
// in seconds from the beginning of the recording.
type Segment struct {
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

// Transcript is the speech-to-text result for exactly one audio file.
// At most one transcript may exist per audio file; the store enforces this
// with a unique constraint on AudioFileID.
type Transcript struct {
	ID           string    `json:"id"`
	AudioFileID  string    `json:"audioFileId"`
	Text         string    `json:"text"`
	Confidence   float64   `json:"confidence"`
	Segments     []Segment `json:"segments"`
	Language     string    `json:"language"`
	ProcessingMS int64     `json:"processingTimeMs"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Sentiment is the overall sentiment block of an analysis. Overall is one of
// "positive", "neutral", "negative"; Score is in [-1, 1]; Confidence in [0, 1].
type Sentiment struct {
	Overall    string  `json:"overall"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

// Emotion is a detected emotion with its intensity in [0, 1].
type Emotion struct {
	Emotion   string  `json:"emotion"`
	Intensity float64 `json:"intensity"`
}

// Topic is a discussed topic with its relevance in [0, 1].
type Topic struct {
	Topic     string  `json:"topic"`
	Relevance float64 `json:"relevance"`
}

// CommunicationMetrics quantifies the agent's delivery during the call.
type CommunicationMetrics struct {
	SpeakingRate      float64 `json:"speakingRate"`
	PauseFrequency    float64 `json:"pauseFrequency"`
	InterruptionCount int     `json:"interruptionCount"`
	ClarityScore      float64 `json:"clarityScore"`
}

// Satisfaction holds the inferred customer satisfaction score in [1, 10]
// plus the textual indicators the model based it on.
type Satisfaction struct {
	Score      float64  `json:"score"`
	Indicators []string `json:"indicators"`
}

// Resolution describes whether and how the customer's issue was resolved.
type Resolution struct {
	Resolved              bool    `json:"resolved"`
	ResolutionTimeMinutes float64 `json:"resolutionTimeMinutes"`
	EscalationRequired    bool    `json:"escalationRequired"`
}

// Compliance holds the compliance score in [0, 1] and any detected violations.
type Compliance struct {
	Score           float64  `json:"score"`
	Violations      []string `json:"violations"`
	Recommendations []string `json:"recommendations"`
}

// Analysis is the sentiment/behaviour analysis derived from exactly one
// transcript. AudioFileID is a denormalized lookup key copied from the
// transcript; the owning chain remains transcript → analysis.
// Immutable after creation except full delete.
type Analysis struct {
	ID            string               `json:"id"`
	TranscriptID  string               `json:"transcriptId"`
	AudioFileID   string               `json:"audioFileId"`
	Sentiment     Sentiment            `json:"sentiment"`
	Emotions      []Emotion            `json:"emotions"`
	Topics        []Topic              `json:"topics"`
	Communication CommunicationMetrics `json:"communicationMetrics"`
	Satisfaction  Satisfaction         `json:"customerSatisfaction"`
	Resolution    Resolution           `json:"issueResolution"`
	Compliance    Compliance           `json:"compliance"`
	Summary       string               `json:"summary"`
	ProcessingMS  int64                `json:"processingTimeMs"`
	CreatedAt     time.Time            `json:"createdAt"`
}

// PerformanceLevel is the qualitative band of an overall performance score.
type PerformanceLevel string

const (
	LevelExcellent        PerformanceLevel = "excellent"
	LevelGood             PerformanceLevel = "good"
	LevelAverage          PerformanceLevel = "average"
	LevelNeedsImprovement PerformanceLevel = "needs_improvement"
	LevelPoor             PerformanceLevel = "poor"
)

// IsValid reports whether l is a recognised performance level.
func (l PerformanceLevel) IsValid() bool {
	switch l {
	case LevelExcellent, LevelGood, LevelAverage, LevelNeedsImprovement, LevelPoor:
		return true
	}
	return false
}

// Priority ranks improvement areas, action items, and training
// recommendations.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// OverallPerformance is the headline score of a coaching plan.
// Score is in [0, 100].
type OverallPerformance struct {
	Score float64          `json:"score"`
	Level PerformanceLevel `json:"level"`
}

// Strength is an area where the agent performed well.
type Strength struct {
	Area        string   `json:"area"`
	Description string   `json:"description"`
	Examples    []string `json:"examples"`
}

// ImprovementArea is an area where the agent should improve, with current
// and target performance described in free text.
type ImprovementArea struct {
	Area               string   `json:"area"`
	Priority           Priority `json:"priority"`
	Description        string   `json:"description"`
	CurrentPerformance string   `json:"currentPerformance"`
	TargetPerformance  string   `json:"targetPerformance"`
}

// ActionItem is a concrete task assigned to the agent.
type ActionItem struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	Priority       Priority `json:"priority"`
	EstimatedTime  string   `json:"estimatedTime"`
	Resources      []string `json:"resources"`
	SuccessMetrics []string `json:"successMetrics"`
}

// TrainingRecommendation points the agent at a course, shadowing session, or
// other training resource.
type TrainingRecommendation struct {
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Duration    string   `json:"duration"`
	Priority    Priority `json:"priority"`
}

// Milestone is a checkpoint within a follow-up plan.
type Milestone struct {
	Description string   `json:"description"`
	TargetDate  string   `json:"targetDate"`
	Metrics     []string `json:"metrics"`
}

// FollowUpPlan schedules the next review and its milestones.
type FollowUpPlan struct {
	NextReviewDate string      `json:"nextReviewDate"`
	Milestones     []Milestone `json:"milestones"`
}

// CoachingPlan is the coaching output derived from exactly one analysis.
// Notes, FollowUp, and ActionItems are mutable via an explicit update; the
// rest is fixed at generation time.
type CoachingPlan struct {
	ID               string                   `json:"id"`
	AnalysisID       string                   `json:"analysisId"`
	AudioFileID      string                   `json:"audioFileId"`
	AgentID          string                   `json:"agentId"`
	Performance      OverallPerformance       `json:"overallPerformance"`
	Strengths        []Strength               `json:"strengths"`
	ImprovementAreas []ImprovementArea        `json:"improvementAreas"`
	ActionItems      []ActionItem             `json:"actionItems"`
	Training         []TrainingRecommendation `json:"trainingRecommendations"`
	FollowUp         FollowUpPlan             `json:"followUpPlan"`
	Notes            string                   `json:"customNotes"`
	GeneratedAt      time.Time                `json:"generatedAt"`
}
