package repositories

import "context"

// TextGenerator abstracts any chat/LLM provider
type TextGenerator interface {
	// GenerateText sends a single-turn prompt and returns the model's raw reply
	GenerateText(ctx context.Context, req GenerationRequest) (string, error)
}

// GenerationRequest carries everything a provider needs for one completion
type GenerationRequest struct {
	SystemPrompt string
	Prompt       string
	Model        string
	Temperature  float32
	MaxTokens    int
}
