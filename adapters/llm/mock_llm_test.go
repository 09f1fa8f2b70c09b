package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/satriahrh/roleplay/domain/repositories"
)

func TestMockLLM_RepliesWithPersonaJSON(t *testing.T) {
	mock := NewMockLLM()

	prompts := []string{
		"--- New Utterance ---\nTrainee: Hi\nCustomer (You): ",
		"Trainee: Hi\nCustomer (You): {}\nTrainee: Our product is great\nCustomer (You): ",
		"Trainee: a\nTrainee: b\nTrainee: c\n",
	}

	for _, prompt := range prompts {
		text, err := mock.GenerateText(context.Background(), repositories.GenerationRequest{Prompt: prompt})
		if err != nil {
			t.Fatalf("GenerateText failed: %v", err)
		}
		if !strings.Contains(text, `"customer_utterance"`) || !strings.Contains(text, `"customer_emotion"`) {
			t.Errorf("reply is missing persona fields: %s", text)
		}
	}
}
