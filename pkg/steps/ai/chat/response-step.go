package chat

import (
	"context"

	"github.com/go-go-golems/chatbot/pkg/conversation"
	"github.com/go-go-golems/chatbot/pkg/inference/engine"
	"github.com/go-go-golems/chatbot/pkg/inference/engine/factory"
	"github.com/go-go-golems/chatbot/pkg/steps/ai/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ResponseStep asks the completion service for the next assistant message of
// a conversation.
type ResponseStep struct {
	factory factory.EngineFactory
}

func NewResponseStep(f factory.EngineFactory) *ResponseStep {
	return &ResponseStep{factory: f}
}

// Run returns a new state holding state's messages followed by the assistant
// reply. An empty state is returned as is, without building an engine.
//
// Errors from the engine are returned unchanged and no state is returned with
// them.
func (s *ResponseStep) Run(ctx context.Context, state conversation.State, cfg settings.ChatSettings) (conversation.State, error) {
	if state.IsEmpty() {
		log.Debug().Msg("empty conversation, skipping response generation")
		return state, nil
	}

	e, err := s.factory.CreateEngine(cfg)
	if err != nil {
		if errors.Is(err, engine.ErrConfiguration) {
			return conversation.State{}, err
		}
		return conversation.State{}, engine.NewConfigurationError(err)
	}

	reply, err := e.RunInference(ctx, state.Messages)
	if err != nil {
		return conversation.State{}, err
	}
	if reply.Role != conversation.RoleAssistant || reply.Content == "" {
		return conversation.State{}, engine.NewRemoteCallError(
			engine.CategoryMalformedResponse, "",
			errors.Errorf("expected a non-empty assistant message, got %q", reply.View()),
		)
	}

	return state.Append(reply), nil
}
