package middleware

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/go-go-golems/chatbot/pkg/conversation"
	"github.com/go-go-golems/chatbot/pkg/inference/engine"
	"github.com/go-go-golems/chatbot/pkg/metrics"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockEngine replies with a fixed message and remembers what it was sent.
type MockEngine struct {
	response conversation.Message
	err      error
	received [][]conversation.Message
}

func (m *MockEngine) RunInference(ctx context.Context, messages []conversation.Message) (conversation.Message, error) {
	m.received = append(m.received, messages)
	if m.err != nil {
		return conversation.Message{}, m.err
	}
	return m.response, nil
}

func TestEngineHandler(t *testing.T) {
	mockEngine := &MockEngine{response: conversation.NewAssistantMessage("Hello, world!")}

	handler := engineHandlerFunc(mockEngine)
	result, err := handler(context.Background(), []conversation.Message{conversation.NewUserMessage("Hi there!")})

	require.NoError(t, err)
	assert.Equal(t, "Hello, world!", result.Content)
	require.Len(t, mockEngine.received, 1)
}

func TestMiddlewareChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, messages []conversation.Message) (conversation.Message, error) {
				order = append(order, name)
				res, err := next(ctx, messages)
				if err != nil {
					return res, err
				}
				res.Content = "(" + name + ") " + res.Content
				return res, nil
			}
		}
	}

	mockEngine := &MockEngine{response: conversation.NewAssistantMessage("Hello")}
	e := NewEngineWithMiddleware(mockEngine, tag("outer"), tag("inner"))

	res, err := e.RunInference(context.Background(), []conversation.Message{conversation.NewUserMessage("hi")})

	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, order)
	assert.Equal(t, "(outer) (inner) Hello", res.Content)
	assert.Same(t, mockEngine, e.Unwrap())
}

func TestSystemPromptMiddlewarePrepends(t *testing.T) {
	mockEngine := &MockEngine{response: conversation.NewAssistantMessage("ok")}
	e := NewEngineWithMiddleware(mockEngine, NewSystemPromptMiddleware("Be concise."))
	history := []conversation.Message{conversation.NewUserMessage("hi")}

	_, err := e.RunInference(context.Background(), history)

	require.NoError(t, err)
	sent := mockEngine.received[0]
	require.Len(t, sent, 2)
	assert.Equal(t, conversation.NewSystemMessage("Be concise."), sent[0])
	assert.Len(t, history, 1)
}

func TestSystemPromptMiddlewareAppendsToExisting(t *testing.T) {
	mockEngine := &MockEngine{response: conversation.NewAssistantMessage("ok")}
	e := NewEngineWithMiddleware(mockEngine, NewSystemPromptMiddleware("Be concise."))
	history := []conversation.Message{
		conversation.NewSystemMessage("You are a pirate."),
		conversation.NewUserMessage("hi"),
	}

	_, err := e.RunInference(context.Background(), history)

	require.NoError(t, err)
	sent := mockEngine.received[0]
	require.Len(t, sent, 2)
	assert.Equal(t, "You are a pirate.\n\nBe concise.", sent[0].Content)
	assert.Equal(t, "You are a pirate.", history[0].Content)
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ok := NewEngineWithMiddleware(&MockEngine{response: conversation.NewAssistantMessage("hello")}, NewLoggingMiddleware(logger))
	_, err := ok.RunInference(context.Background(), []conversation.Message{
		conversation.NewSystemMessage("s"),
		conversation.NewUserMessage("u"),
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "inference: completed")
	assert.Contains(t, buf.String(), `"system_messages":1`)

	buf.Reset()
	failing := NewEngineWithMiddleware(
		&MockEngine{err: engine.NewRemoteCallError(engine.CategoryRateLimit, "openai", errors.New("429"))},
		NewLoggingMiddleware(logger),
	)
	_, err = failing.RunInference(context.Background(), []conversation.Message{conversation.NewUserMessage("u")})
	require.Error(t, err)
	assert.True(t, strings.Contains(buf.String(), `"category":"rate-limit"`))
	assert.Contains(t, buf.String(), "inference: failed")
}

func TestMetricsMiddleware(t *testing.T) {
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	e := NewEngineWithMiddleware(
		&MockEngine{err: engine.NewRemoteCallError(engine.CategoryAuthentication, "openai", errors.New("401"))},
		NewMetricsMiddleware(m, "gpt-4"),
	)
	_, err = e.RunInference(context.Background(), []conversation.Message{conversation.NewUserMessage("u")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrAuthentication))
}
