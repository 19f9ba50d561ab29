// Package mock provides a configurable in-memory stt.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/voxmetrics/callcoach/pkg/provider/stt"
)

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Provider is a mock stt.Provider. Configure Result or Err before use;
// requests are recorded for later inspection.
type Provider struct {
	mu       sync.Mutex
	requests []stt.Request

	// Result is returned by Transcribe when Err is nil.
	Result *stt.Result

	// Err, when non-nil, is returned by Transcribe.
	Err error

	// Langs is returned by Languages.
	Langs []string
}

// Transcribe implements stt.Provider.
func (p *Provider) Transcribe(_ context.Context, req stt.Request) (*stt.Result, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Result != nil {
		return p.Result, nil
	}
	return &stt.Result{Text: "mock transcript", Language: "en"}, nil
}

// Languages implements stt.Provider.
func (p *Provider) Languages() []string {
	return p.Langs
}

// Requests returns a copy of all requests seen so far.
func (p *Provider) Requests() []stt.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]stt.Request, len(p.requests))
	copy(out, p.requests)
	return out
}
