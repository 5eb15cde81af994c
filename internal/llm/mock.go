// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import "context"

// Mock is a configurable Backend for tests. Set CompleteFunc to script
// responses; calls are recorded for verification.
type Mock struct {
	// CompleteFunc is invoked for each Complete call. Nil returns an empty
	// result.
	CompleteFunc func(ctx context.Context, req CompletionRequest) (*CompletionResult, error)

	// Calls holds every request in order.
	Calls []CompletionRequest
}

// Complete implements Backend.
func (m *Mock) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	m.Calls = append(m.Calls, req)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &CompletionResult{}, nil
}
