package pipeline

import "fmt"

// The two LLM stages use fixed-shape prompts: the model is told exactly which
// JSON object to produce, and the response is parsed and checked for the
// required fields before anything is persisted.

const analysisSystemPrompt = `You are an expert call-center quality analyst.
You receive the transcript of a customer support call and respond with a
single JSON object, no prose and no markdown fences.`

// analysisPrompt builds the user prompt for the analysis stage.
func analysisPrompt(transcript string) string {
	return fmt.Sprintf(`Analyze the following customer support call transcript.

Respond with exactly this JSON structure:
{
  "sentiment": {"overall": "positive|neutral|negative", "score": <number -1..1>, "confidence": <number 0..1>},
  "emotions": [{"emotion": "<string>", "intensity": <number 0..1>}],
  "topics": [{"topic": "<string>", "relevance": <number 0..1>}],
  "communicationMetrics": {"speakingRate": <number>, "pauseFrequency": <number>, "interruptionCount": <integer>, "clarityScore": <number 0..1>},
  "customerSatisfaction": {"score": <number 1..10>, "indicators": ["<string>"]},
  "issueResolution": {"resolved": <boolean>, "resolutionTimeMinutes": <number>, "escalationRequired": <boolean>},
  "compliance": {"score": <number 0..1>, "violations": ["<string>"], "recommendations": ["<string>"]},
  "summary": "<2-3 sentence summary of the call>"
}

Transcript:
%s`, transcript)
}

const coachingSystemPrompt = `You are an expert call-center coach. You receive
the quality analysis of a customer support call and respond with a single JSON
object containing a coaching plan for the agent, no prose and no markdown
fences.`

// coachingPrompt builds the user prompt for the coaching stage. analysisJSON
// is the full analysis document serialized as JSON.
func coachingPrompt(agentID, analysisJSON string) string {
	return fmt.Sprintf(`Create a coaching plan for agent %q based on the call analysis below.

Respond with exactly this JSON structure:
{
  "agentId": %q,
  "overallPerformance": {"score": <number 0..100>, "level": "excellent|good|average|needs_improvement|poor"},
  "strengths": [{"area": "<string>", "description": "<string>", "examples": ["<string>"]}],
  "improvementAreas": [{"area": "<string>", "priority": "high|medium|low", "description": "<string>", "currentPerformance": "<string>", "targetPerformance": "<string>"}],
  "actionItems": [{"title": "<string>", "description": "<string>", "category": "training|practice|process|behavior", "priority": "high|medium|low", "estimatedTime": "<string>", "resources": ["<string>"], "successMetrics": ["<string>"]}],
  "trainingRecommendations": [{"title": "<string>", "type": "course|workshop|shadowing|self_study", "description": "<string>", "duration": "<string>", "priority": "high|medium|low"}],
  "followUpPlan": {"nextReviewDate": "<ISO date>", "milestones": [{"description": "<string>", "targetDate": "<ISO date>", "metrics": ["<string>"]}]}
}

Call analysis:
%s`, agentID, agentID, analysisJSON)
}
