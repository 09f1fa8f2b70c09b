package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/roleplay/domain/repositories"
	"github.com/satriahrh/roleplay/internal/metrics"
)

// SpeechService turns persona replies into audio for the client
type SpeechService struct {
	tts    repositories.TextToSpeech
	logger *zap.Logger
}

// NewSpeechService creates a new speech service
func NewSpeechService(tts repositories.TextToSpeech, logger *zap.Logger) *SpeechService {
	return &SpeechService{
		tts:    tts,
		logger: logger,
	}
}

// Synthesize never fails; an empty result means there is no audio to send
func (s *SpeechService) Synthesize(ctx context.Context, text string) []byte {
	if strings.TrimSpace(text) == "" {
		s.logger.Warn("Skipping synthesis of empty text")
		metrics.SynthesisFailures.Inc()
		return nil
	}

	audio, err := s.tts.Synthesize(ctx, text)
	if err != nil {
		s.logger.Error("Speech synthesis failed", zap.Error(err))
		metrics.SynthesisFailures.Inc()
		return nil
	}
	if len(audio) == 0 {
		s.logger.Warn("Speech synthesis returned no audio")
		metrics.SynthesisFailures.Inc()
	}

	return audio
}
