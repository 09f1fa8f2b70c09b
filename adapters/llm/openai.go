package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/satriahrh/roleplay/domain/repositories"
)

const defaultGatewayModel = "google/gemini-2.0-flash"

// OpenAIConfig configures any OpenAI-compatible chat completions gateway
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // Optional: empty means api.openai.com
	Model   string
}

// OpenAILLM implements TextGenerator using the chat completions API
type OpenAILLM struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

var _ repositories.TextGenerator = (*OpenAILLM)(nil)

// NewOpenAILLM creates a new chat completions client
func NewOpenAILLM(config OpenAIConfig, logger *zap.Logger) (*OpenAILLM, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("LLM API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	model := config.Model
	if model == "" {
		model = defaultGatewayModel
		logger.Info("Using default model", zap.String("model", model))
	}

	return &OpenAILLM{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger,
	}, nil
}

// GenerateText implements repositories.TextGenerator
func (o *OpenAILLM) GenerateText(ctx context.Context, req repositories.GenerationRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = o.model
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyCompletion
	}

	o.logger.Debug("Chat completion received",
		zap.String("model", model),
		zap.Duration("duration", time.Since(start)))

	return resp.Choices[0].Message.Content, nil
}
