package conversation

import (
	"strings"

	"github.com/huandu/go-clone"
	"github.com/pkg/errors"
)

// State is the conversation history threaded through an invocation.
//
// Messages are in chronological order. A State is treated as a value: every
// transition returns a new State and the backing array of an existing State
// is never written to, so two States can safely share a prefix.
type State struct {
	Messages []Message `json:"messages" yaml:"messages"`
}

// NewState copies msgs into a fresh State.
func NewState(msgs ...Message) State {
	messages := make([]Message, len(msgs))
	copy(messages, msgs)
	return State{Messages: messages}
}

// Append returns a new State with msgs added after the existing messages.
func (s State) Append(msgs ...Message) State {
	messages := make([]Message, 0, len(s.Messages)+len(msgs))
	messages = append(messages, s.Messages...)
	messages = append(messages, msgs...)
	return State{Messages: messages}
}

func (s State) Clone() State {
	return clone.Clone(s).(State)
}

func (s State) IsEmpty() bool {
	return len(s.Messages) == 0
}

func (s State) Len() int {
	return len(s.Messages)
}

// Last returns the most recent message, if any.
func (s State) Last() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// Validate checks the role of every message.
func (s State) Validate() error {
	for i, m := range s.Messages {
		if err := m.Validate(); err != nil {
			return errors.Wrapf(err, "message %d", i)
		}
	}
	return nil
}

// HasPrefix reports whether the first messages of s are exactly prefix.
func (s State) HasPrefix(prefix State) bool {
	if len(prefix.Messages) > len(s.Messages) {
		return false
	}
	for i, m := range prefix.Messages {
		if s.Messages[i] != m {
			return false
		}
	}
	return true
}

func (s State) View() string {
	views := make([]string, 0, len(s.Messages))
	for _, m := range s.Messages {
		views = append(views, m.View())
	}
	return strings.Join(views, "\n")
}
