package events

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Usage represents token usage reported by the completion service.
type Usage struct {
	InputTokens  int `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int `json:"output_tokens" yaml:"output_tokens"`
}

// EventMetadata correlates the events of a single inference.
type EventMetadata struct {
	ID         uuid.UUID `json:"message_id" yaml:"message_id"`
	RunID      string    `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Engine     string    `json:"engine,omitempty" yaml:"engine,omitempty"`
	Model      string    `json:"model,omitempty" yaml:"model,omitempty"`
	Usage      *Usage    `json:"usage,omitempty" yaml:"usage,omitempty"`
	StopReason *string   `json:"stop_reason,omitempty" yaml:"stop_reason,omitempty"`
	DurationMs *int64    `json:"duration_ms,omitempty" yaml:"duration_ms,omitempty"`
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("message_id", em.ID.String())
	if em.RunID != "" {
		e.Str("run_id", em.RunID)
	}
	e.Str("engine", em.Engine)
	e.Str("model", em.Model)
	if em.Usage != nil {
		e.Int("input_tokens", em.Usage.InputTokens)
		e.Int("output_tokens", em.Usage.OutputTokens)
	}
	if em.StopReason != nil {
		e.Str("stop_reason", *em.StopReason)
	}
	if em.DurationMs != nil {
		e.Int64("duration_ms", *em.DurationMs)
	}
}
