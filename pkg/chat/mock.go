package chat

import (
	"context"
	"sync"
)

// Mock implements Replier for testing.
type Mock struct {
	// AskFunc is called when Ask is invoked.
	// If nil, Ask echoes the message back.
	AskFunc func(ctx context.Context, userMessage string) (string, error)

	mu       sync.Mutex
	messages []string
}

// NewMock returns a mock that always answers reply.
func NewMock(reply string) *Mock {
	return &Mock{
		AskFunc: func(ctx context.Context, userMessage string) (string, error) {
			return reply, nil
		},
	}
}

// FailingMock returns a mock that always fails with err.
func FailingMock(err error) *Mock {
	return &Mock{
		AskFunc: func(ctx context.Context, userMessage string) (string, error) {
			return "", err
		},
	}
}

// Ask records the message and calls AskFunc.
func (m *Mock) Ask(ctx context.Context, userMessage string) (string, error) {
	m.mu.Lock()
	m.messages = append(m.messages, userMessage)
	m.mu.Unlock()

	if m.AskFunc != nil {
		return m.AskFunc(ctx, userMessage)
	}
	return userMessage, nil
}

// Messages returns every message passed to Ask, in order.
func (m *Mock) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.messages))
	copy(out, m.messages)
	return out
}

// CallCount returns how many times Ask was called.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// Verify Mock implements Replier at compile time.
var _ Replier = (*Mock)(nil)
