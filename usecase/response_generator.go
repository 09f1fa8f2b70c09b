package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/satriahrh/roleplay/domain/entities"
	"github.com/satriahrh/roleplay/domain/repositories"
	"github.com/satriahrh/roleplay/internal/metrics"
)

const (
	generationTemperature = 0.7
	generationMaxTokens   = 250
)

// ErrNoJSONObject is returned when a model reply contains no {...} span
var ErrNoJSONObject = errors.New("no JSON object found in reply")

// GeneratorConfig holds the persona settings shared by every session
type GeneratorConfig struct {
	SystemPrompt       string
	Model              string
	PromptHistoryTurns int // 0 renders the full history
}

// ResponseGenerator turns a trainee utterance plus history into a structured persona reply
type ResponseGenerator struct {
	llm     repositories.TextGenerator
	config  GeneratorConfig
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewResponseGenerator creates a generator with its own circuit breaker
func NewResponseGenerator(llm repositories.TextGenerator, config GeneratorConfig, logger *zap.Logger) *ResponseGenerator {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "persona-llm",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &ResponseGenerator{
		llm:     llm,
		config:  config,
		breaker: breaker,
		logger:  logger,
	}
}

// Generate never fails: any backend, extraction or validation problem yields the fallback response
func (g *ResponseGenerator) Generate(ctx context.Context, utterance string, history []entities.ConversationTurn) entities.LLMResponse {
	prompt := RenderPrompt(utterance, windowHistory(history, g.config.PromptHistoryTurns))

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.llm.GenerateText(ctx, repositories.GenerationRequest{
			SystemPrompt: g.config.SystemPrompt,
			Prompt:       prompt,
			Model:        g.config.Model,
			Temperature:  generationTemperature,
			MaxTokens:    generationMaxTokens,
		})
	})
	if err != nil {
		reason := metrics.ReasonBackendError
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			reason = metrics.ReasonCircuitOpen
		}
		return g.fallback(reason, err)
	}

	raw := result.(string)
	object, err := ExtractJSONObject(raw)
	if err != nil {
		return g.fallback(metrics.ReasonNoJSON, err, zap.String("reply", raw))
	}

	response, err := entities.ParseLLMResponse(object)
	if err != nil {
		return g.fallback(metrics.ReasonInvalidResponse, err, zap.ByteString("object", object))
	}

	g.logger.Debug("Persona reply generated",
		zap.String("emotion", string(response.CustomerEmotion)),
		zap.Int("historyTurns", len(history)))

	return response
}

func (g *ResponseGenerator) fallback(reason string, err error, fields ...zap.Field) entities.LLMResponse {
	metrics.GenerationFallbacks.WithLabelValues(reason).Inc()
	g.logger.Warn("Using fallback persona reply",
		append(fields, zap.String("reason", reason), zap.Error(err))...)
	return entities.FallbackResponse()
}

// ExtractJSONObject returns the span from the first '{' through the last '}' of a reply
func ExtractJSONObject(reply string) ([]byte, error) {
	start := strings.IndexByte(reply, '{')
	end := strings.LastIndexByte(reply, '}')
	if start < 0 || end < start {
		return nil, ErrNoJSONObject
	}
	return []byte(reply[start : end+1]), nil
}

// RenderPrompt builds the single-turn prompt carrying the whole conversation so far
func RenderPrompt(utterance string, history []entities.ConversationTurn) string {
	var b bytes.Buffer
	b.WriteString("\n--- Conversation History ---\n")
	for _, turn := range history {
		fmt.Fprintf(&b, "Trainee: %s\n", turn.UserUtterance)
		fmt.Fprintf(&b, "Customer (You): %s\n", turn.AIResponse.JSON())
	}
	b.WriteString("--- New Utterance ---\n")
	fmt.Fprintf(&b, "Trainee: %s\n", utterance)
	b.WriteString("Customer (You): ")
	return b.String()
}

func windowHistory(history []entities.ConversationTurn, turns int) []entities.ConversationTurn {
	if turns <= 0 || len(history) <= turns {
		return history
	}
	return history[len(history)-turns:]
}
