package events

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
)

// NewLogHandler returns a watermill handler that decodes events and writes
// them to logger. Undecodable messages are logged and acked.
func NewLogHandler(logger zerolog.Logger) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		e, err := NewEventFromJson(msg.Payload)
		if err != nil {
			logger.Warn().Err(err).Str("uuid", msg.UUID).Msg("could not decode event")
			return nil
		}

		var ev *zerolog.Event
		switch e_ := e.(type) {
		case *EventStart:
			ev = logger.Debug().Object("meta", e_.Metadata())
		case *EventFinal:
			ev = logger.Info().Object("meta", e_.Metadata()).Int("text_length", len(e_.Text))
		case *EventError:
			ev = logger.Warn().Object("meta", e_.Metadata()).Str("category", e_.Category).Str("error", e_.ErrorString)
		case *EventInterrupt:
			ev = logger.Info().Object("meta", e_.Metadata())
		default:
			ev = logger.Debug()
		}
		ev.Str("event_type", string(e.Type())).Msg("inference event")
		return nil
	}
}
