package api

import (
	"context"
	"net/http"
	"time"

	"github.com/voxmetrics/callcoach/internal/health"
)

// providerStatus describes one pipeline provider in the status response.
// Reachable is omitted when no reachability check is wired for the provider.
type providerStatus struct {
	Configured bool   `json:"configured"`
	Name       string `json:"name,omitempty"`
	Reachable  *bool  `json:"reachable,omitempty"`
	Error      string `json:"error,omitempty"`
}

// statusResponse is the body of GET /api/status.
type statusResponse struct {
	Service string         `json:"service"`
	Time    time.Time      `json:"time"`
	STT     providerStatus `json:"stt"`
	LLM     providerStatus `json:"llm"`
}

// status handles GET /api/status: it reports whether the pipeline providers
// are configured and, where a check is wired, whether they answer.
func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Service: "callcoach",
		Time:    time.Now().UTC(),
		STT:     providerState(r.Context(), s.pipeline.STTConfigured(), s.sttName, s.sttCheck),
		LLM:     providerState(r.Context(), s.pipeline.LLMConfigured(), s.llmName, s.llmCheck),
	}
	writeData(w, http.StatusOK, resp)
}

// providerState builds one provider's status entry. Reachability runs through
// [health.Checker.Run], sharing the readiness endpoint's per-check deadline.
// A checker with a nil Check function means nothing is wired, and only the
// configuration flag is reported.
func providerState(ctx context.Context, configured bool, name string, check health.Checker) providerStatus {
	ps := providerStatus{Configured: configured, Name: name}
	if !configured || check.Check == nil {
		return ps
	}

	reachable := true
	if err := check.Run(ctx); err != nil {
		reachable = false
		ps.Error = err.Error()
	}
	ps.Reachable = &reachable
	return ps
}
