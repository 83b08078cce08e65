// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jonathan/application-agent/internal/llm"
)

// Responder produces the reply for one request.
type Responder func(req llm.Request) (string, error)

// Stub is a concurrency-safe llm.Client that answers from a Responder and
// records every request it receives.
type Stub struct {
	mu       sync.Mutex
	respond  Responder
	requests []llm.Request
	closed   bool
}

// New returns a stub answering with respond.
func New(respond Responder) *Stub {
	return &Stub{respond: respond}
}

// Fixed returns a stub that always replies with text.
func Fixed(text string) *Stub {
	return New(func(llm.Request) (string, error) { return text, nil })
}

// Failing returns a stub whose every call fails with err.
func Failing(err error) *Stub {
	if err == nil {
		err = errors.New("llm unavailable")
	}
	return New(func(llm.Request) (string, error) { return "", err })
}

// Route picks a reply by the first marker contained in the prompt or system
// text. Requests matching no marker get fallback.
func Route(routes map[string]string, fallback string) *Stub {
	return New(func(req llm.Request) (string, error) {
		text := req.System + "\n" + req.Prompt
		best := ""
		for marker := range routes {
			// longest marker wins so overlapping markers stay deterministic
			if strings.Contains(text, marker) && len(marker) > len(best) {
				best = marker
			}
		}
		if best == "" {
			return fallback, nil
		}
		return routes[best], nil
	})
}

// Complete implements llm.Client.
func (s *Stub) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	respond := s.respond
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text, err := respond(req)
	if err != nil {
		return nil, err
	}
	return &llm.Response{Content: text, Model: "stub"}, nil
}

// Close implements llm.Client.
func (s *Stub) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Calls returns how many completions were requested.
func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Requests returns a copy of the recorded requests in arrival order.
func (s *Stub) Requests() []llm.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.Request(nil), s.requests...)
}

// Closed reports whether Close was called.
func (s *Stub) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
