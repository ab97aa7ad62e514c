package engine

import (
	"context"

	"github.com/go-go-golems/chatbot/pkg/conversation"
)

// Engine is the boundary to a hosted completion service.
//
// RunInference submits the full ordered message history in a single blocking
// request and returns exactly one new message with the assistant role.
// Implementations do not retry; any failure is returned to the caller,
// classified as a *RemoteCallError where possible. Cancelling ctx abandons
// the pending request.
type Engine interface {
	RunInference(ctx context.Context, messages []conversation.Message) (conversation.Message, error)
}

// EngineFunc adapts a plain function to the Engine interface.
type EngineFunc func(ctx context.Context, messages []conversation.Message) (conversation.Message, error)

func (f EngineFunc) RunInference(ctx context.Context, messages []conversation.Message) (conversation.Message, error) {
	return f(ctx, messages)
}

var _ Engine = EngineFunc(nil)
