package events

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	events []Event
	err    error
}

func (r *recordingSink) PublishEvent(event Event) error {
	r.events = append(r.events, event)
	return r.err
}

func TestWatermillSinkRoundTrip(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, watermill.NopLogger{})
	defer func() { _ = pubSub.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msgs, err := pubSub.Subscribe(ctx, "chat")
	require.NoError(t, err)

	sink := NewWatermillSink(pubSub, "chat")
	meta := EventMetadata{ID: uuid.New(), RunID: "run-1", Engine: "openai", Model: "gpt-4"}
	require.NoError(t, sink.PublishEvent(NewFinalEvent(meta, "I'm doing well, thanks!")))

	var msg *message.Message
	select {
	case msg = <-msgs:
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
	msg.Ack()

	assert.Equal(t, "final", msg.Metadata.Get("event_type"))
	assert.Equal(t, "run-1", msg.Metadata.Get("run_id"))

	e, err := NewEventFromJson(msg.Payload)
	require.NoError(t, err)
	final, ok := e.(*EventFinal)
	require.True(t, ok)
	assert.Equal(t, "I'm doing well, thanks!", final.Text)
	assert.Equal(t, meta.ID, final.Metadata().ID)
	assert.Equal(t, "gpt-4", final.Metadata().Model)
	assert.Equal(t, []byte(msg.Payload), final.Payload())
}

func TestNewEventFromJsonError(t *testing.T) {
	meta := EventMetadata{ID: uuid.New()}
	b, err := json.Marshal(NewErrorEvent(meta, errors.New("401"), "authentication"))
	require.NoError(t, err)

	e, err := NewEventFromJson(b)
	require.NoError(t, err)
	ev, ok := e.(*EventError)
	require.True(t, ok)
	assert.Equal(t, EventTypeError, ev.Type())
	assert.Equal(t, "401", ev.ErrorString)
	assert.Equal(t, "authentication", ev.Category)
}

func TestNewEventFromJsonUnknownType(t *testing.T) {
	_, err := NewEventFromJson([]byte(`{"type":"partial"}`))
	assert.Error(t, err)

	_, err = NewEventFromJson([]byte(`not json`))
	assert.Error(t, err)
}

func TestContextSinks(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{err: errors.New("sink down")}

	ctx := WithEventSinks(context.Background(), a)
	ctx = WithEventSinks(ctx, b)
	require.Len(t, GetEventSinks(ctx), 2)

	PublishEventToContext(ctx, NewStartEvent(EventMetadata{ID: uuid.New()}))

	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
	assert.Nil(t, GetEventSinks(context.Background()))
}

func TestLogHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	handler := NewLogHandler(logger)

	pub := publisherFunc(func(topic string, msgs ...*message.Message) error {
		for _, m := range msgs {
			require.NoError(t, handler(m))
		}
		return nil
	})
	require.NoError(t, NewWatermillSink(pub, "chat").PublishEvent(NewFinalEvent(EventMetadata{ID: uuid.New(), Model: "gpt-4"}, "hello")))

	assert.Contains(t, buf.String(), `"event_type":"final"`)
	assert.Contains(t, buf.String(), `"text_length":5`)

	buf.Reset()
	require.NoError(t, handler(message.NewMessage("x", []byte("garbage"))))
	assert.Contains(t, buf.String(), "could not decode event")
}

type publisherFunc func(topic string, msgs ...*message.Message) error

func (p publisherFunc) Publish(topic string, msgs ...*message.Message) error {
	return p(topic, msgs...)
}

func (p publisherFunc) Close() error {
	return nil
}

func TestRunIDContext(t *testing.T) {
	assert.Equal(t, "", RunIDFromContext(context.Background()))
	assert.Equal(t, "run-42", RunIDFromContext(WithRunID(context.Background(), "run-42")))
}
