package middleware

import (
	"context"

	"github.com/go-go-golems/chatbot/pkg/conversation"
	"github.com/rs/zerolog/log"
)

// NewSystemPromptMiddleware makes sure prompt is sent as system instructions.
// If the history already starts with a system message the prompt is appended
// to it, separated by a blank line; otherwise a system message is prepended.
// Only the request is affected, the caller's history is left as is.
func NewSystemPromptMiddleware(prompt string) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, messages []conversation.Message) (conversation.Message, error) {
			if prompt == "" {
				return next(ctx, messages)
			}

			firstSystemIdx := -1
			for i, m := range messages {
				if m.Role == conversation.RoleSystem {
					firstSystemIdx = i
					break
				}
			}

			var req []conversation.Message
			if firstSystemIdx >= 0 {
				req = make([]conversation.Message, len(messages))
				copy(req, messages)
				if req[firstSystemIdx].Content == "" {
					req[firstSystemIdx].Content = prompt
				} else {
					req[firstSystemIdx].Content += "\n\n" + prompt
				}
			} else {
				req = make([]conversation.Message, 0, len(messages)+1)
				req = append(req, conversation.NewSystemMessage(prompt))
				req = append(req, messages...)
			}

			log.Debug().
				Int("prompt_len", len(prompt)).
				Int("system_idx", firstSystemIdx).
				Int("message_count", len(req)).
				Msg("systemprompt: applied")
			return next(ctx, req)
		}
	}
}
