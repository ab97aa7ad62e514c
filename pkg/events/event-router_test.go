package events

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer guards a bytes.Buffer written by router handlers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestEventRouterDeliversToHandlers(t *testing.T) {
	printed := &syncBuffer{}
	dumped := &syncBuffer{}

	router, err := NewEventRouter(WithOutput(dumped))
	require.NoError(t, err)

	router.AddHandler("printer", "chat", StepPrinterFunc("assistant", printed, false))
	router.AddHandler("dump", "chat", router.DumpRawEvents)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- router.Run(ctx) }()
	select {
	case <-router.Running():
	case <-ctx.Done():
		t.Fatal("router did not start")
	}
	assert.True(t, router.IsRunning())

	sink := router.Sink("chat")
	meta := EventMetadata{ID: uuid.New(), Model: "gpt-4"}
	require.NoError(t, sink.PublishEvent(NewStartEvent(meta)))
	require.NoError(t, sink.PublishEvent(NewFinalEvent(meta, "I'm doing well, thanks!")))
	require.NoError(t, sink.PublishEvent(NewErrorEvent(meta, errors.New("429"), "rate-limit")))

	// publishing blocks until every subscriber acked
	assert.Eventually(t, func() bool {
		return bytes.Contains([]byte(printed.String()), []byte("[error] rate-limit: 429"))
	}, 5*time.Second, 10*time.Millisecond)

	assert.Contains(t, printed.String(), "assistant (gpt-4):")
	assert.Contains(t, printed.String(), "I'm doing well, thanks!\n")
	assert.Contains(t, dumped.String(), `"type": "final"`)
	assert.Contains(t, dumped.String(), meta.ID.String())
	assert.NotContains(t, dumped.String(), `"meta"`)

	require.NoError(t, router.Close())
	cancel()
	<-done
}
