package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/satriahrh/roleplay/domain/repositories"
)

// MockLLM is a placeholder implementation for the persona model
type MockLLM struct{}

// NewMockLLM creates a new mock text generator
func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

// GenerateText implements repositories.TextGenerator
func (m *MockLLM) GenerateText(ctx context.Context, req repositories.GenerationRequest) (string, error) {
	turns := strings.Count(req.Prompt, "Trainee:")

	switch {
	case turns <= 1:
		return `Sure. {"customer_utterance": "Hello. What exactly are you offering?", "customer_emotion": "curious"}`, nil
	case turns%2 == 0:
		return fmt.Sprintf(`{"customer_utterance": "I have heard that %d times already. Why is yours better?", "customer_emotion": "skeptical"}`, turns), nil
	default:
		return `{"customer_utterance": "That actually sounds useful. Tell me more.", "customer_emotion": "interested"}`, nil
	}
}
