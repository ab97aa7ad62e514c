package chat

import (
	"context"
	"sync"

	"github.com/go-go-golems/chatbot/pkg/conversation"
	"github.com/go-go-golems/chatbot/pkg/inference/engine"
)

// MockEngine answers with canned replies in a round-robin fashion, or with a
// fixed error, and records every conversation it was sent.
type MockEngine struct {
	replies []conversation.Message
	err     error

	mu    sync.Mutex
	index int
	calls [][]conversation.Message
}

var _ engine.Engine = &MockEngine{}

func NewMockEngine(replies ...conversation.Message) *MockEngine {
	return &MockEngine{replies: replies}
}

func NewFailingMockEngine(err error) *MockEngine {
	return &MockEngine{err: err}
}

func (m *MockEngine) RunInference(ctx context.Context, messages []conversation.Message) (conversation.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, append([]conversation.Message(nil), messages...))

	if err := ctx.Err(); err != nil {
		return conversation.Message{}, engine.NewRemoteCallError(engine.CategoryCanceled, "mock", err)
	}
	if m.err != nil {
		return conversation.Message{}, m.err
	}
	if len(m.replies) == 0 {
		return conversation.NewAssistantMessage("mock reply"), nil
	}

	reply := m.replies[m.index]
	m.index = (m.index + 1) % len(m.replies)
	return reply, nil
}

// Calls returns a copy of the recorded conversations.
func (m *MockEngine) Calls() [][]conversation.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]conversation.Message(nil), m.calls...)
}

func (m *MockEngine) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
