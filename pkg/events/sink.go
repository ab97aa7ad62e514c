package events

// EventSink is a destination for inference events.
type EventSink interface {
	PublishEvent(event Event) error
}
