package middleware

import (
	"context"

	"github.com/go-go-golems/chatbot/pkg/conversation"
	"github.com/go-go-golems/chatbot/pkg/inference/engine"
)

// HandlerFunc sends a message history to the completion service and returns
// the reply.
type HandlerFunc func(ctx context.Context, messages []conversation.Message) (conversation.Message, error)

// Middleware wraps a HandlerFunc with additional functionality.
// Chain(h, m1, m2, m3) results in m1(m2(m3(h))).
type Middleware func(HandlerFunc) HandlerFunc

func Chain(handler HandlerFunc, middlewares ...Middleware) HandlerFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

func engineHandlerFunc(e engine.Engine) HandlerFunc {
	return func(ctx context.Context, messages []conversation.Message) (conversation.Message, error) {
		return e.RunInference(ctx, messages)
	}
}

// EngineWithMiddleware wraps an Engine with a middleware chain.
type EngineWithMiddleware struct {
	engine  engine.Engine
	handler HandlerFunc
}

func NewEngineWithMiddleware(e engine.Engine, middlewares ...Middleware) *EngineWithMiddleware {
	return &EngineWithMiddleware{
		engine:  e,
		handler: Chain(engineHandlerFunc(e), middlewares...),
	}
}

func (e *EngineWithMiddleware) RunInference(ctx context.Context, messages []conversation.Message) (conversation.Message, error) {
	return e.handler(ctx, messages)
}

// Unwrap returns the engine underneath the middleware chain.
func (e *EngineWithMiddleware) Unwrap() engine.Engine {
	return e.engine
}

var _ engine.Engine = (*EngineWithMiddleware)(nil)
