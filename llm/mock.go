package llm

import (
	"context"
	"sync"

	"github.com/m4xw311/scribe/errors"
)

// MockClient replays scripted responses. When the script runs out the last
// response is repeated. Each response is delivered to onChunk in Chunk-sized
// pieces.
type MockClient struct {
	Responses []string
	// Errors, when set, is consulted before Responses; a non-nil entry at
	// the call's index is returned instead of a response.
	Errors []error
	Chunk  int

	mu      sync.Mutex
	prompts []string
}

func (m *MockClient) Complete(ctx context.Context, prompt string, onChunk func(string)) (string, error) {
	m.mu.Lock()
	call := len(m.prompts)
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", ErrCancelled
	}
	if call < len(m.Errors) && m.Errors[call] != nil {
		return "", m.Errors[call]
	}
	if len(m.Responses) == 0 {
		return "", errors.New("mock client has no responses")
	}
	resp := m.Responses[len(m.Responses)-1]
	if call < len(m.Responses) {
		resp = m.Responses[call]
	}

	if onChunk != nil {
		size := m.Chunk
		if size <= 0 {
			size = len(resp)
		}
		for rest := resp; rest != ""; {
			n := min(size, len(rest))
			onChunk(rest[:n])
			rest = rest[n:]
		}
	}
	return resp, nil
}

// Calls reports how many times Complete was invoked.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Prompts returns every prompt received, in call order.
func (m *MockClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}
