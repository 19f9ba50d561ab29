// Package mock provides a configurable in-memory llm.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/voxmetrics/callcoach/pkg/provider/llm"
)

// Compile-time assertion that Provider implements llm.Provider.
var _ llm.Provider = (*Provider)(nil)

// Provider is a mock llm.Provider. Queue responses with Content (reused for
// every call) or Responses (consumed in order); requests are recorded for
// later inspection.
type Provider struct {
	mu       sync.Mutex
	requests []llm.CompletionRequest
	next     int

	// Content is returned by Complete when Responses is empty and Err is nil.
	Content string

	// Responses, when non-empty, are returned in order. After the last one
	// the sequence wraps around.
	Responses []string

	// Err, when non-nil, is returned by Complete.
	Err error
}

// Complete implements llm.Provider.
func (p *Provider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.Err != nil {
		return nil, p.Err
	}
	content := p.Content
	if len(p.Responses) > 0 {
		content = p.Responses[p.next%len(p.Responses)]
		p.next++
	}
	return &llm.CompletionResponse{Content: content}, nil
}

// Requests returns a copy of all requests seen so far.
func (p *Provider) Requests() []llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]llm.CompletionRequest, len(p.requests))
	copy(out, p.requests)
	return out
}
