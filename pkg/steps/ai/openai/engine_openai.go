package openai

import (
	"context"
	"time"

	"github.com/go-go-golems/chatbot/pkg/conversation"
	"github.com/go-go-golems/chatbot/pkg/events"
	"github.com/go-go-golems/chatbot/pkg/inference/engine"
	"github.com/go-go-golems/chatbot/pkg/steps/ai/settings"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

// OpenAIEngine sends conversations to an OpenAI compatible chat completion
// endpoint. It is bound to a single model.
type OpenAIEngine struct {
	model  string
	client *go_openai.Client
	config *engine.Config
}

func NewOpenAIEngine(chat settings.ChatSettings, api *settings.APISettings, options ...engine.Option) (*OpenAIEngine, error) {
	if err := chat.Validate(); err != nil {
		return nil, err
	}
	client, err := MakeClient(api)
	if err != nil {
		return nil, err
	}

	config := engine.NewConfig()
	if err := engine.ApplyOptions(config, options...); err != nil {
		return nil, err
	}

	return &OpenAIEngine{
		model:  chat.ModelIdentifier,
		client: client,
		config: config,
	}, nil
}

func (e *OpenAIEngine) Model() string {
	return e.model
}

// RunInference sends messages in a single non-streaming request and returns
// the assistant reply.
func (e *OpenAIEngine) RunInference(ctx context.Context, messages []conversation.Message) (conversation.Message, error) {
	req := MakeCompletionRequest(e.model, messages)

	metadata := events.EventMetadata{
		ID:     uuid.New(),
		RunID:  events.RunIDFromContext(ctx),
		Engine: ProviderName,
		Model:  e.model,
	}

	log.Debug().
		Str("model", e.model).
		Int("num_messages", len(req.Messages)).
		Str("event_id", metadata.ID.String()).
		Msg("OpenAI RunInference started")
	e.publishEvent(ctx, events.NewStartEvent(metadata))

	start := time.Now()
	resp, err := e.client.CreateChatCompletion(ctx, req)
	durationMs := time.Since(start).Milliseconds()
	metadata.DurationMs = &durationMs

	if err != nil {
		rce := classifyError(ctx, err)
		log.Error().Err(err).Str("category", string(rce.Category)).Str("model", e.model).Msg("OpenAI request failed")
		if rce.Category == engine.CategoryCanceled {
			e.publishEvent(ctx, events.NewInterruptEvent(metadata))
		} else {
			e.publishEvent(ctx, events.NewErrorEvent(metadata, err, string(rce.Category)))
		}
		return conversation.Message{}, rce
	}

	if resp.Usage.PromptTokens > 0 || resp.Usage.CompletionTokens > 0 {
		metadata.Usage = &events.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		}
	}
	if len(resp.Choices) > 0 && resp.Choices[0].FinishReason != "" {
		stopReason := string(resp.Choices[0].FinishReason)
		metadata.StopReason = &stopReason
	}

	msg, err := messageFromResponse(&resp)
	if err != nil {
		rce := engine.NewRemoteCallError(engine.CategoryMalformedResponse, ProviderName, err)
		log.Error().Err(err).Str("model", e.model).Msg("OpenAI response could not be interpreted")
		e.publishEvent(ctx, events.NewErrorEvent(metadata, err, string(rce.Category)))
		return conversation.Message{}, rce
	}

	log.Debug().
		Str("model", e.model).
		Int("content_length", len(msg.Content)).
		Int64("duration_ms", durationMs).
		Msg("OpenAI RunInference completed")
	e.publishEvent(ctx, events.NewFinalEvent(metadata, msg.Content))

	return msg, nil
}

func (e *OpenAIEngine) publishEvent(ctx context.Context, event events.Event) {
	for _, sink := range e.config.EventSinks {
		if err := sink.PublishEvent(event); err != nil {
			log.Warn().Err(err).Str("event_type", string(event.Type())).Msg("Failed to publish event to sink")
		}
	}
	events.PublishEventToContext(ctx, event)
}

var _ engine.Engine = (*OpenAIEngine)(nil)
