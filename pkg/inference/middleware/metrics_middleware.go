package middleware

import (
	"context"
	"time"

	"github.com/go-go-golems/chatbot/pkg/conversation"
	"github.com/go-go-golems/chatbot/pkg/metrics"
)

// NewMetricsMiddleware records the outcome and latency of every inference
// against model.
func NewMetricsMiddleware(m *metrics.Metrics, model string) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, messages []conversation.Message) (conversation.Message, error) {
			start := time.Now()
			result, err := next(ctx, messages)
			m.ObserveInference(model, time.Since(start), err)
			return result, err
		}
	}
}
