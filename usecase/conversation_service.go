package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/roleplay/domain"
	"github.com/satriahrh/roleplay/domain/entities"
	"github.com/satriahrh/roleplay/domain/repositories"
	"github.com/satriahrh/roleplay/internal/metrics"
)

// Emitter delivers an outbound envelope to the session's client
type Emitter func(msg domain.OutboundMessage)

// ConversationService consumes one session's transcript stream and runs its turns
type ConversationService struct {
	speechToText repositories.SpeechToText
	audioConfig  repositories.AudioConfig
	generator    *ResponseGenerator
	speech       *SpeechService
	history      *entities.ConversationHistory
	logger       *zap.Logger
}

// NewConversationService creates a new conversation service bound to one session's history
func NewConversationService(
	stt repositories.SpeechToText,
	audioConfig repositories.AudioConfig,
	generator *ResponseGenerator,
	speech *SpeechService,
	history *entities.ConversationHistory,
	logger *zap.Logger,
) *ConversationService {
	return &ConversationService{
		speechToText: stt,
		audioConfig:  audioConfig,
		generator:    generator,
		speech:       speech,
		history:      history,
		logger:       logger,
	}
}

// Converse streams audio to recognition and answers every final utterance in order.
// Every transcript is relayed as received, but a turn records the trimmed utterance,
// and a final that is blank after trimming starts no turn.
// It returns nil when the transcript stream ends gracefully.
func (s *ConversationService) Converse(ctx context.Context, audio <-chan []byte, emit Emitter) error {
	stream, err := s.speechToText.OpenTranscriptStream(ctx, s.audioConfig, audio)
	if err != nil {
		return fmt.Errorf("failed to open transcript stream: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-stream.Events():
			if !ok {
				return stream.Err()
			}
			if err := s.handleEvent(ctx, event, emit); err != nil {
				return err
			}
		}
	}
}

func (s *ConversationService) handleEvent(ctx context.Context, event repositories.TranscriptEvent, emit Emitter) error {
	metrics.TranscriptEvents.WithLabelValues(strconv.FormatBool(event.IsFinal)).Inc()
	emit(domain.NewTranscriptMessage(event.Text, event.IsFinal))

	if !event.IsFinal {
		return nil
	}

	utterance := strings.TrimSpace(event.Text)
	if utterance == "" {
		s.logger.Debug("Ignoring empty final transcript")
		return nil
	}

	return s.runTurn(ctx, utterance, emit)
}

// runTurn completes one turn; a cancelled turn is abandoned and never recorded
func (s *ConversationService) runTurn(ctx context.Context, utterance string, emit Emitter) error {
	start := time.Now()
	s.logger.Info("Starting turn", zap.String("utterance", utterance), zap.Int("turn", s.history.Len()+1))

	response := s.generator.Generate(ctx, utterance, s.history.Snapshot())
	if err := ctx.Err(); err != nil {
		return err
	}

	audio := s.speech.Synthesize(ctx, response.CustomerUtterance)
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(audio) > 0 {
		emit(domain.NewAudioMessage(audio))
	}

	s.history.Append(entities.NewConversationTurn(utterance, response))
	metrics.TurnsTotal.Inc()
	metrics.TurnDuration.Observe(time.Since(start).Seconds())

	s.logger.Info("Turn completed",
		zap.String("reply", response.CustomerUtterance),
		zap.String("emotion", string(response.CustomerEmotion)),
		zap.Int("audioBytes", len(audio)),
		zap.Duration("duration", time.Since(start)))

	return nil
}
