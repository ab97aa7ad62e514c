package graph

import (
	"github.com/go-go-golems/chatbot/pkg/inference/engine/factory"
	"github.com/go-go-golems/chatbot/pkg/steps/ai/chat"
)

const (
	ChatbotName          = "SimpleChatbot"
	GenerateResponseNode = "generate_response"
)

// NewChatbotGraph wires Start -> generate_response -> End, where
// generate_response asks an engine created by f for the next reply.
func NewChatbotGraph(f factory.EngineFactory, options ...Option) (*Graph, error) {
	step := chat.NewResponseStep(f)
	return NewBuilder().
		AddNode(GenerateResponseNode, step.Run).
		AddEdge(Start, GenerateResponseNode).
		AddEdge(GenerateResponseNode, End).
		Compile(ChatbotName, options...)
}
