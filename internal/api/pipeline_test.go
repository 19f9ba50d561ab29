package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/voxmetrics/callcoach/pkg/provider/stt"
	"github.com/voxmetrics/callcoach/pkg/store"
)

// seedAudio inserts an uploaded audio file record directly into the store.
func seedAudio(t *testing.T, env *testEnv) *store.AudioFile {
	t.Helper()
	f := &store.AudioFile{
		OriginalName: "call.wav",
		StorageName:  "call-stored.wav",
		StoragePath:  env.files.Path("call-stored.wav"),
		MimeType:     "audio/wav",
		Size:         1024,
	}
	if err := env.audio.Create(context.Background(), f); err != nil {
		t.Fatalf("seed audio file: %v", err)
	}
	return f
}

// seedTranscript inserts a transcript owned by a fresh audio file.
func seedTranscript(t *testing.T, env *testEnv) *store.Transcript {
	t.Helper()
	f := seedAudio(t, env)
	tr := &store.Transcript{
		AudioFileID: f.ID,
		Text:        "Hello, thanks for calling.",
		Confidence:  0.9,
		Language:    "en",
	}
	if err := env.transcripts.Create(context.Background(), tr); err != nil {
		t.Fatalf("seed transcript: %v", err)
	}
	return tr
}

// seedAnalysis inserts an analysis owned by a fresh transcript.
func seedAnalysis(t *testing.T, env *testEnv) *store.Analysis {
	t.Helper()
	tr := seedTranscript(t, env)
	a := &store.Analysis{
		TranscriptID: tr.ID,
		AudioFileID:  tr.AudioFileID,
		Sentiment:    store.Sentiment{Overall: "positive", Score: 0.6, Confidence: 0.9},
		Summary:      "Handled well.",
	}
	if err := env.analyses.Create(context.Background(), a); err != nil {
		t.Fatalf("seed analysis: %v", err)
	}
	return a
}

// TestPipelineEndToEnd runs the full coaching flow over HTTP: upload a
// recording, transcribe it, analyze the transcript, and generate the coaching
// plan, with each stage keyed by the id the previous response returned.
func TestPipelineEndToEnd(t *testing.T) {
	env := newTestEnv(t, 0)
	env.stt.Result = &stt.Result{
		Text:     "Hello, thanks for calling support.",
		Language: "en",
		Duration: 42.0,
		Segments: []stt.Segment{{Text: "Hello, thanks for calling support.", Start: 0, End: 42}},
	}
	// One completion per LLM stage, consumed in order.
	env.llm.Responses = []string{
		analysisJSON,
		`{"agentId": "agent_007", "overallPerformance": {"score": 74, "level": "average"}}`,
	}

	status, body := env.upload(t, "support-call.wav", "audio/wav", []byte("RIFF fake wav payload"))
	if status != http.StatusCreated {
		t.Fatalf("upload status = %d, want 201 (message %q)", status, body.Message)
	}
	audioFile := decodeAudioFile(t, body.Data)

	status, body = env.do(t, http.MethodPost, "/api/transcripts/"+audioFile.ID,
		map[string]string{"language": "en"})
	if status != http.StatusCreated {
		t.Fatalf("transcribe status = %d, want 201 (message %q)", status, body.Message)
	}
	var tr store.Transcript
	if err := json.Unmarshal(body.Data, &tr); err != nil {
		t.Fatalf("decode transcript: %v", err)
	}
	if tr.AudioFileID != audioFile.ID {
		t.Errorf("transcript audioFileId = %q, want %q", tr.AudioFileID, audioFile.ID)
	}

	status, body = env.do(t, http.MethodPost, "/api/analyses/"+tr.ID, nil)
	if status != http.StatusCreated {
		t.Fatalf("analyze status = %d, want 201 (message %q)", status, body.Message)
	}
	var a store.Analysis
	if err := json.Unmarshal(body.Data, &a); err != nil {
		t.Fatalf("decode analysis: %v", err)
	}
	if a.TranscriptID != tr.ID {
		t.Errorf("analysis transcriptId = %q, want %q", a.TranscriptID, tr.ID)
	}

	status, body = env.do(t, http.MethodPost, "/api/coaching/"+a.ID,
		map[string]string{"agentId": "agent_007"})
	if status != http.StatusCreated {
		t.Fatalf("coach status = %d, want 201 (message %q)", status, body.Message)
	}
	var plan store.CoachingPlan
	if err := json.Unmarshal(body.Data, &plan); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if plan.AnalysisID != a.ID {
		t.Errorf("plan analysisId = %q, want %q", plan.AnalysisID, a.ID)
	}
	if plan.AudioFileID != audioFile.ID {
		t.Errorf("plan audioFileId = %q, want %q", plan.AudioFileID, audioFile.ID)
	}
	if plan.AgentID != "agent_007" {
		t.Errorf("plan agentId = %q, want agent_007", plan.AgentID)
	}

	// The source recording ends the flow completed with its measured duration.
	updated, err := env.audio.Get(context.Background(), audioFile.ID)
	if err != nil {
		t.Fatalf("get audio file: %v", err)
	}
	if updated.Status != store.StatusCompleted {
		t.Errorf("audio status = %q, want completed", updated.Status)
	}
	if updated.Duration == nil || *updated.Duration != 42.0 {
		t.Errorf("audio duration = %v, want 42", updated.Duration)
	}
}

func TestCreateTranscript(t *testing.T) {
	env := newTestEnv(t, 0)
	f := seedAudio(t, env)
	env.stt.Result = &stt.Result{
		Text:     "Hello, thanks for calling.",
		Language: "en",
		Duration: 12.5,
		Segments: []stt.Segment{{Text: "Hello, thanks for calling.", Start: 0, End: 12.5}},
	}

	status, body := env.do(t, http.MethodPost, "/api/transcripts/"+f.ID,
		map[string]string{"language": "en"})
	if status != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (message %q)", status, body.Message)
	}

	var tr store.Transcript
	if err := json.Unmarshal(body.Data, &tr); err != nil {
		t.Fatalf("decode transcript: %v", err)
	}
	if tr.AudioFileID != f.ID {
		t.Errorf("audioFileId = %q, want %q", tr.AudioFileID, f.ID)
	}
	if tr.Confidence != 0.8 {
		t.Errorf("confidence = %v, want 0.8 (segment default)", tr.Confidence)
	}

	// The audio file completed and picked up its duration.
	updated, err := env.audio.Get(context.Background(), f.ID)
	if err != nil {
		t.Fatalf("get audio file: %v", err)
	}
	if updated.Status != store.StatusCompleted {
		t.Errorf("audio status = %q, want completed", updated.Status)
	}
	if updated.Duration == nil || *updated.Duration != 12.5 {
		t.Errorf("audio duration = %v, want 12.5", updated.Duration)
	}

	// Re-running the stage conflicts and names the existing transcript, both
	// in the message and as structured data.
	status, body = env.do(t, http.MethodPost, "/api/transcripts/"+f.ID, nil)
	if status != http.StatusConflict {
		t.Fatalf("second run status = %d, want 409", status)
	}
	if body.Error != "CONFLICT" {
		t.Errorf("error = %q, want CONFLICT", body.Error)
	}
	if !strings.Contains(body.Message, tr.ID) {
		t.Errorf("message %q does not name existing transcript %q", body.Message, tr.ID)
	}
	if got := conflictExistingID(t, body); got != tr.ID {
		t.Errorf("data.existingId = %q, want %q", got, tr.ID)
	}
}

// conflictExistingID decodes the structured existing-record id from a 409
// response body.
func conflictExistingID(t *testing.T, body envelope) string {
	t.Helper()
	var data struct {
		ExistingID string `json:"existingId"`
	}
	if err := json.Unmarshal(body.Data, &data); err != nil {
		t.Fatalf("decode conflict data: %v", err)
	}
	return data.ExistingID
}

func TestCreateTranscriptAudioNotFound(t *testing.T) {
	env := newTestEnv(t, 0)

	status, body := env.do(t, http.MethodPost, "/api/transcripts/"+store.NewID(), nil)
	if status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", status)
	}
	if body.Error != "NOT_FOUND" {
		t.Errorf("error = %q, want NOT_FOUND", body.Error)
	}
}

func TestCreateTranscriptUnsupportedLanguage(t *testing.T) {
	env := newTestEnv(t, 0)
	f := seedAudio(t, env)
	env.stt.Langs = []string{"en", "de"}

	status, body := env.do(t, http.MethodPost, "/api/transcripts/"+f.ID,
		map[string]string{"language": "xx"})
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if body.Error != "UNSUPPORTED_LANGUAGE" {
		t.Errorf("error = %q, want UNSUPPORTED_LANGUAGE", body.Error)
	}
}

func TestCreateTranscriptProviderFailure(t *testing.T) {
	env := newTestEnv(t, 0)
	f := seedAudio(t, env)
	env.stt.Err = errors.New("whisper-server: connection refused")

	status, body := env.do(t, http.MethodPost, "/api/transcripts/"+f.ID, nil)
	if status != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", status)
	}
	if body.Error != "UPSTREAM_PROVIDER_ERROR" {
		t.Errorf("error = %q, want UPSTREAM_PROVIDER_ERROR", body.Error)
	}
	if !strings.Contains(body.Message, "connection refused") {
		t.Errorf("message %q does not carry the provider error", body.Message)
	}

	updated, err := env.audio.Get(context.Background(), f.ID)
	if err != nil {
		t.Fatalf("get audio file: %v", err)
	}
	if updated.Status != store.StatusFailed {
		t.Errorf("audio status = %q, want failed", updated.Status)
	}
}

func TestUpdateTranscript(t *testing.T) {
	env := newTestEnv(t, 0)
	tr := seedTranscript(t, env)

	status, body := env.do(t, http.MethodPut, "/api/transcripts/"+tr.ID, map[string]any{
		"text":     "Corrected text.",
		"segments": []store.Segment{{Text: "Corrected text.", Start: 0, End: 3, Confidence: 1}},
	})
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200 (message %q)", status, body.Message)
	}
	var updated store.Transcript
	if err := json.Unmarshal(body.Data, &updated); err != nil {
		t.Fatalf("decode transcript: %v", err)
	}
	if updated.Text != "Corrected text." || len(updated.Segments) != 1 {
		t.Errorf("updated transcript = %+v, want corrected text with one segment", updated)
	}

	status, body = env.do(t, http.MethodPut, "/api/transcripts/"+tr.ID, map[string]any{"text": ""})
	if status != http.StatusBadRequest {
		t.Errorf("empty text status = %d, want 400", status)
	}
	if body.Error != "INVALID_BODY" {
		t.Errorf("error = %q, want INVALID_BODY", body.Error)
	}
}

func TestGetTranscriptByAudio(t *testing.T) {
	env := newTestEnv(t, 0)
	tr := seedTranscript(t, env)

	status, body := env.do(t, http.MethodGet, "/api/transcripts/audio/"+tr.AudioFileID, nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	var got store.Transcript
	if err := json.Unmarshal(body.Data, &got); err != nil {
		t.Fatalf("decode transcript: %v", err)
	}
	if got.ID != tr.ID {
		t.Errorf("id = %q, want %q", got.ID, tr.ID)
	}
}

func TestCreateAnalysis(t *testing.T) {
	env := newTestEnv(t, 0)
	tr := seedTranscript(t, env)
	env.llm.Content = analysisJSON

	status, body := env.do(t, http.MethodPost, "/api/analyses/"+tr.ID, nil)
	if status != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (message %q)", status, body.Message)
	}

	var a store.Analysis
	if err := json.Unmarshal(body.Data, &a); err != nil {
		t.Fatalf("decode analysis: %v", err)
	}
	if a.TranscriptID != tr.ID {
		t.Errorf("transcriptId = %q, want %q", a.TranscriptID, tr.ID)
	}
	if a.AudioFileID != tr.AudioFileID {
		t.Errorf("audioFileId = %q, want %q (denormalized)", a.AudioFileID, tr.AudioFileID)
	}
	if a.Sentiment.Overall != "positive" {
		t.Errorf("sentiment = %q, want positive", a.Sentiment.Overall)
	}
}

func TestCreateAnalysisIncompleteModelOutput(t *testing.T) {
	env := newTestEnv(t, 0)
	tr := seedTranscript(t, env)
	env.llm.Content = `{"summary": "no sentiment block"}`

	// A response missing required fields is the provider's fault, not the
	// caller's: 500, not 400.
	status, body := env.do(t, http.MethodPost, "/api/analyses/"+tr.ID, nil)
	if status != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", status)
	}
	if body.Error != "UPSTREAM_PROVIDER_ERROR" {
		t.Errorf("error = %q, want UPSTREAM_PROVIDER_ERROR", body.Error)
	}
}

func TestCreateCoachingPlan(t *testing.T) {
	env := newTestEnv(t, 0)
	a := seedAnalysis(t, env)
	env.llm.Content = coachingJSON

	status, body := env.do(t, http.MethodPost, "/api/coaching/"+a.ID,
		map[string]string{"agentId": "agent_42"})
	if status != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (message %q)", status, body.Message)
	}

	var plan store.CoachingPlan
	if err := json.Unmarshal(body.Data, &plan); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if plan.AnalysisID != a.ID {
		t.Errorf("analysisId = %q, want %q", plan.AnalysisID, a.ID)
	}
	if plan.AgentID != "agent_42" {
		t.Errorf("agentId = %q, want agent_42", plan.AgentID)
	}
	if plan.Performance.Level != store.LevelGood {
		t.Errorf("level = %q, want good", plan.Performance.Level)
	}

	// Conflict on re-run.
	status, body = env.do(t, http.MethodPost, "/api/coaching/"+a.ID, nil)
	if status != http.StatusConflict {
		t.Fatalf("second run status = %d, want 409", status)
	}
	if !strings.Contains(body.Message, plan.ID) {
		t.Errorf("message %q does not name existing plan %q", body.Message, plan.ID)
	}
	if got := conflictExistingID(t, body); got != plan.ID {
		t.Errorf("data.existingId = %q, want %q", got, plan.ID)
	}
}

func TestUpdateCoachingPlan(t *testing.T) {
	env := newTestEnv(t, 0)
	a := seedAnalysis(t, env)
	plan := &store.CoachingPlan{
		AnalysisID:  a.ID,
		AudioFileID: a.AudioFileID,
		AgentID:     "agent_42",
		Performance: store.OverallPerformance{Score: 82, Level: store.LevelGood},
	}
	if err := env.plans.Create(context.Background(), plan); err != nil {
		t.Fatalf("seed plan: %v", err)
	}

	status, body := env.do(t, http.MethodPut, "/api/coaching/"+plan.ID,
		map[string]string{"customNotes": "Discussed in 1:1."})
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200 (message %q)", status, body.Message)
	}
	var updated store.CoachingPlan
	if err := json.Unmarshal(body.Data, &updated); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if updated.Notes != "Discussed in 1:1." {
		t.Errorf("customNotes = %q, want updated note", updated.Notes)
	}
	if updated.AgentID != "agent_42" {
		t.Errorf("agentId = %q, want untouched agent_42", updated.AgentID)
	}

	status, body = env.do(t, http.MethodPut, "/api/coaching/"+plan.ID, map[string]string{})
	if status != http.StatusBadRequest {
		t.Errorf("empty update status = %d, want 400", status)
	}
	if body.Error != "INVALID_BODY" {
		t.Errorf("error = %q, want INVALID_BODY", body.Error)
	}
}

func TestAgentSummary(t *testing.T) {
	env := newTestEnv(t, 0)
	a := seedAnalysis(t, env)
	if err := env.plans.Create(context.Background(), &store.CoachingPlan{
		AnalysisID:  a.ID,
		AgentID:     "agent_42",
		Performance: store.OverallPerformance{Score: 82, Level: store.LevelGood},
	}); err != nil {
		t.Fatalf("seed plan: %v", err)
	}

	status, body := env.do(t, http.MethodGet, "/api/coaching/stats/agent-summary/agent_42", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	var summary store.AgentSummary
	if err := json.Unmarshal(body.Data, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Plans != 1 || summary.AvgScore != 82 {
		t.Errorf("summary = %+v, want 1 plan with avg 82", summary)
	}

	status, body = env.do(t, http.MethodGet, "/api/coaching/stats/agent-summary/nobody", nil)
	if status != http.StatusNotFound {
		t.Errorf("unknown agent status = %d, want 404", status)
	}
	if body.Error != "NOT_FOUND" {
		t.Errorf("error = %q, want NOT_FOUND", body.Error)
	}
}

func TestExportAnalysisStats(t *testing.T) {
	env := newTestEnv(t, 0)
	seedAnalysis(t, env)

	resp, err := http.Get(env.srv.URL + "/api/analyses/stats/export")
	if err != nil {
		t.Fatalf("GET export: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("content type = %q, want xlsx", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("content disposition = %q, want attachment", cd)
	}
}
