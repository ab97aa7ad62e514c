package chat

import (
	"context"
	"testing"

	"github.com/go-go-golems/chatbot/pkg/conversation"
	"github.com/go-go-golems/chatbot/pkg/inference/engine"
	"github.com/go-go-golems/chatbot/pkg/inference/engine/factory"
	"github.com/go-go-golems/chatbot/pkg/steps/ai/settings"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingFactory hands out e and remembers the settings it was asked for.
type recordingFactory struct {
	e         engine.Engine
	err       error
	requested []settings.ChatSettings
}

func (f *recordingFactory) CreateEngine(chat settings.ChatSettings) (engine.Engine, error) {
	f.requested = append(f.requested, chat)
	if f.err != nil {
		return nil, f.err
	}
	return f.e, nil
}

func TestResponseStepAppendsReply(t *testing.T) {
	mock := NewMockEngine(conversation.NewAssistantMessage("I'm doing well, thanks!"))
	f := &recordingFactory{e: mock}
	input := conversation.NewState(conversation.NewUserMessage("Hi! How are you?"))

	out, err := NewResponseStep(f).Run(context.Background(), input, settings.ChatSettings{ModelIdentifier: "gpt-4"})

	require.NoError(t, err)
	assert.Equal(t, []conversation.Message{
		conversation.NewUserMessage("Hi! How are you?"),
		conversation.NewAssistantMessage("I'm doing well, thanks!"),
	}, out.Messages)
	assert.Equal(t, 1, input.Len())
	assert.True(t, out.HasPrefix(input))
	assert.Equal(t, []settings.ChatSettings{{ModelIdentifier: "gpt-4"}}, f.requested)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, input.Messages, calls[0])
}

func TestResponseStepEmptyStateIsIdentity(t *testing.T) {
	f := &recordingFactory{err: errors.New("must not be called")}

	out, err := NewResponseStep(f).Run(context.Background(), conversation.NewState(), settings.NewChatSettings())

	require.NoError(t, err)
	assert.True(t, out.IsEmpty())
	assert.Empty(t, f.requested)
}

func TestResponseStepSendsFullHistoryInOrder(t *testing.T) {
	mock := NewMockEngine(conversation.NewAssistantMessage("Paris."))
	input := conversation.NewState(
		conversation.NewSystemMessage("You answer geography questions."),
		conversation.NewUserMessage("Capital of Italy?"),
		conversation.NewAssistantMessage("Rome."),
		conversation.NewUserMessage("And France?"),
	)

	out, err := NewResponseStep(factory.NewStaticEngineFactory(mock)).Run(context.Background(), input, settings.NewChatSettings())

	require.NoError(t, err)
	assert.Equal(t, input.Len()+1, out.Len())
	assert.True(t, out.HasPrefix(input))
	last, ok := out.Last()
	require.True(t, ok)
	assert.Equal(t, conversation.RoleAssistant, last.Role)
	assert.Equal(t, [][]conversation.Message{input.Messages}, mock.Calls())
}

func TestResponseStepPropagatesRemoteError(t *testing.T) {
	cause := engine.NewRemoteCallError(engine.CategoryAuthentication, "openai", errors.New("401 invalid api key"))
	mock := NewFailingMockEngine(cause)

	out, err := NewResponseStep(factory.NewStaticEngineFactory(mock)).Run(
		context.Background(),
		conversation.NewState(conversation.NewUserMessage("hi")),
		settings.NewChatSettings(),
	)

	require.Error(t, err)
	assert.Same(t, cause, err)
	assert.True(t, errors.Is(err, engine.ErrAuthentication))
	assert.True(t, out.IsEmpty())
	assert.Equal(t, 1, mock.CallCount())
}

func TestResponseStepFactoryFailureIsConfigurationError(t *testing.T) {
	f := &recordingFactory{err: errors.New("no credentials")}

	_, err := NewResponseStep(f).Run(context.Background(), conversation.NewState(conversation.NewUserMessage("hi")), settings.NewChatSettings())

	assert.True(t, errors.Is(err, engine.ErrConfiguration))
}

func TestResponseStepRejectsNonAssistantReply(t *testing.T) {
	for _, reply := range []conversation.Message{
		conversation.NewUserMessage("echo"),
		conversation.NewAssistantMessage(""),
	} {
		mock := NewMockEngine(reply)

		_, err := NewResponseStep(factory.NewStaticEngineFactory(mock)).Run(
			context.Background(),
			conversation.NewState(conversation.NewUserMessage("hi")),
			settings.NewChatSettings(),
		)

		assert.True(t, errors.Is(err, engine.ErrMalformedResponse))
	}
}

func TestMockEngineRoundRobinAndCancel(t *testing.T) {
	mock := NewMockEngine(conversation.NewAssistantMessage("one"), conversation.NewAssistantMessage("two"))
	msgs := []conversation.Message{conversation.NewUserMessage("hi")}

	var got []string
	for i := 0; i < 3; i++ {
		m, err := mock.RunInference(context.Background(), msgs)
		require.NoError(t, err)
		got = append(got, m.Content)
	}
	assert.Equal(t, []string{"one", "two", "one"}, got)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := mock.RunInference(ctx, msgs)
	assert.True(t, errors.Is(err, engine.ErrCanceled))
	assert.Equal(t, 4, mock.CallCount())
}
