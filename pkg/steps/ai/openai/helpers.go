package openai

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-go-golems/chatbot/pkg/conversation"
	"github.com/go-go-golems/chatbot/pkg/inference/engine"
	"github.com/go-go-golems/chatbot/pkg/security"
	"github.com/go-go-golems/chatbot/pkg/steps/ai/settings"
	"github.com/pkg/errors"
	go_openai "github.com/sashabaranov/go-openai"
)

const ProviderName = "openai"

var ErrMissingAPIKey = errors.New("no API key for openai")

// MakeClient builds a go-openai client from the API settings. An empty base
// URL keeps the library default; any other base URL must pass
// security.ValidateBaseURL since the API key is sent to it.
func MakeClient(apiSettings *settings.APISettings) (*go_openai.Client, error) {
	if apiSettings == nil || apiSettings.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	config := go_openai.DefaultConfig(apiSettings.APIKey)
	if apiSettings.BaseURL != "" {
		if err := security.ValidateBaseURL(apiSettings.BaseURL); err != nil {
			return nil, errors.Wrap(err, "invalid openai base URL")
		}
		config.BaseURL = apiSettings.BaseURL
	}
	if apiSettings.Organization != "" {
		config.OrgID = apiSettings.Organization
	}
	if apiSettings.Timeout != nil {
		config.HTTPClient = &http.Client{Timeout: *apiSettings.Timeout}
	}
	return go_openai.NewClientWithConfig(config), nil
}

func messagesToOpenAI(messages []conversation.Message) []go_openai.ChatCompletionMessage {
	ret := make([]go_openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		ret = append(ret, go_openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return ret
}

// MakeCompletionRequest builds the chat completion request for model.
func MakeCompletionRequest(model string, messages []conversation.Message) go_openai.ChatCompletionRequest {
	return go_openai.ChatCompletionRequest{
		Model:    model,
		Messages: messagesToOpenAI(messages),
	}
}

// messageFromResponse extracts the single assistant reply. A missing role is
// accepted as assistant since some compatible servers leave it out.
func messageFromResponse(resp *go_openai.ChatCompletionResponse) (conversation.Message, error) {
	if len(resp.Choices) == 0 {
		return conversation.Message{}, errors.New("response contains no choices")
	}
	m := resp.Choices[0].Message
	if m.Role != "" && m.Role != go_openai.ChatMessageRoleAssistant {
		return conversation.Message{}, errors.Errorf("response message has role %q, expected assistant", m.Role)
	}
	if m.Content == "" {
		return conversation.Message{}, errors.New("response message has no content")
	}
	return conversation.NewAssistantMessage(m.Content), nil
}

// classifyError maps a go-openai failure onto the remote call error taxonomy.
func classifyError(ctx context.Context, err error) *engine.RemoteCallError {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return engine.NewRemoteCallError(engine.CategoryCanceled, ProviderName, err)
	}

	var apiErr *go_openai.APIError
	if errors.As(err, &apiErr) {
		return engine.NewRemoteCallError(categoryForStatus(apiErr.HTTPStatusCode), ProviderName, err)
	}
	var reqErr *go_openai.RequestError
	if errors.As(err, &reqErr) {
		return engine.NewRemoteCallError(categoryForStatus(reqErr.HTTPStatusCode), ProviderName, err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return engine.NewRemoteCallError(engine.CategoryMalformedResponse, ProviderName, err)
	}

	return engine.NewRemoteCallError(engine.CategoryNetwork, ProviderName, err)
}

func categoryForStatus(status int) engine.Category {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return engine.CategoryAuthentication
	case status == http.StatusTooManyRequests:
		return engine.CategoryRateLimit
	case status == 0:
		return engine.CategoryNetwork
	default:
		return engine.CategoryService
	}
}
