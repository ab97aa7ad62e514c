package middleware

import (
	"context"
	"time"

	"github.com/go-go-golems/chatbot/pkg/conversation"
	"github.com/go-go-golems/chatbot/pkg/events"
	"github.com/go-go-golems/chatbot/pkg/inference/engine"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLoggingMiddleware logs message counts before and after each inference.
func NewLoggingMiddleware(logger zerolog.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, messages []conversation.Message) (conversation.Message, error) {
			lg := logger
			// fall back to global if uninitialized
			if lg.GetLevel() == zerolog.NoLevel {
				lg = log.Logger
			}

			var numUser, numAssistant, numSystem int
			for _, m := range messages {
				switch m.Role {
				case conversation.RoleUser:
					numUser++
				case conversation.RoleAssistant:
					numAssistant++
				case conversation.RoleSystem:
					numSystem++
				}
			}

			lg = lg.With().
				Str("run_id", events.RunIDFromContext(ctx)).
				Int("message_count", len(messages)).
				Int("user_messages", numUser).
				Int("assistant_messages", numAssistant).
				Int("system_messages", numSystem).
				Logger()

			lg.Info().Msg("inference: starting")
			start := time.Now()

			result, err := next(ctx, messages)
			if err != nil {
				ev := lg.Error().Err(err).Dur("duration", time.Since(start))
				if category, ok := engine.CategoryOf(err); ok {
					ev = ev.Str("category", string(category))
				}
				ev.Msg("inference: failed")
				return result, err
			}

			lg.Info().
				Dur("duration", time.Since(start)).
				Int("reply_length", len(result.Content)).
				Msg("inference: completed")
			return result, nil
		}
	}
}
