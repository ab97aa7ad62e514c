package events

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// WatermillSink publishes events as JSON messages on a watermill topic.
type WatermillSink struct {
	publisher message.Publisher
	topic     string
}

func NewWatermillSink(publisher message.Publisher, topic string) *WatermillSink {
	return &WatermillSink{
		publisher: publisher,
		topic:     topic,
	}
}

func (w *WatermillSink) PublishEvent(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "could not marshal event")
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_type", string(event.Type()))
	if runID := event.Metadata().RunID; runID != "" {
		msg.Metadata.Set("run_id", runID)
	}

	if err := w.publisher.Publish(w.topic, msg); err != nil {
		return errors.Wrapf(err, "could not publish event to topic %s", w.topic)
	}

	log.Trace().Str("topic", w.topic).Str("event_type", string(event.Type())).Msg("published event to watermill")
	return nil
}

var _ EventSink = (*WatermillSink)(nil)
