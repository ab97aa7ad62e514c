package conversation

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

var ErrInvalidRole = errors.New("invalid message role")

func (r Role) Validate() error {
	switch r {
	case RoleSystem, RoleAssistant, RoleUser:
		return nil
	default:
		return errors.Wrapf(ErrInvalidRole, "%q", string(r))
	}
}

// ParseRole accepts the role names case-insensitively, plus "human" and "ai"
// as aliases for user and assistant.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "system":
		return RoleSystem, nil
	case "assistant", "ai":
		return RoleAssistant, nil
	case "user", "human":
		return RoleUser, nil
	default:
		return "", errors.Wrapf(ErrInvalidRole, "%q", s)
	}
}

// Message is a single chat message. It is passed by value and never modified
// once it is part of a State.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func (m Message) Validate() error {
	return m.Role.Validate()
}

func (m Message) String() string {
	return m.Content
}

func (m Message) View() string {
	return fmt.Sprintf("[%s]: %s", m.Role, strings.TrimRight(m.Content, "\n"))
}
