package stt

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/roleplay/domain/repositories"
)

var mockWords = []string{"Hi,", "I", "would", "like", "to", "hear", "about", "your", "pricing."}

// MockSpeechToText is a placeholder implementation for speech recognition.
// Every audio chunk grows an interim transcript; closing the audio stream
// finalizes the utterance.
type MockSpeechToText struct {
	logger *zap.Logger
}

// NewMockSpeechToText creates a new mock speech-to-text service
func NewMockSpeechToText(logger *zap.Logger) *MockSpeechToText {
	return &MockSpeechToText{
		logger: logger,
	}
}

// MockTranscriptStream is a mock implementation of a streaming recognition
type MockTranscriptStream struct {
	events chan repositories.TranscriptEvent
	err    error
}

// OpenTranscriptStream creates a new mock streaming session
func (s *MockSpeechToText) OpenTranscriptStream(ctx context.Context, config repositories.AudioConfig, audio <-chan []byte) (repositories.TranscriptStream, error) {
	s.logger.Info("Initializing mock streaming transcription",
		zap.Int("sampleRate", config.SampleRate),
		zap.String("encoding", config.Encoding),
		zap.String("language", config.Language))

	stream := &MockTranscriptStream{
		events: make(chan repositories.TranscriptEvent, eventBufferSize),
	}
	go stream.run(ctx, audio, s.logger)

	return stream, nil
}

func (m *MockTranscriptStream) run(ctx context.Context, audio <-chan []byte, logger *zap.Logger) {
	defer close(m.events)

	words := 0
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-audio:
			if !ok {
				if words > 0 {
					m.emit(ctx, mockTranscript(words), true)
				}
				logger.Info("Ending mock transcription stream", zap.Int("words", words))
				return
			}
			if len(chunk) == 0 {
				continue
			}
			if words < len(mockWords) {
				words++
			}
			m.emit(ctx, mockTranscript(words), false)
		}
	}
}

func (m *MockTranscriptStream) emit(ctx context.Context, text string, isFinal bool) {
	select {
	case m.events <- repositories.TranscriptEvent{Text: text, IsFinal: isFinal}:
	case <-ctx.Done():
	}
}

// Events implements repositories.TranscriptStream
func (m *MockTranscriptStream) Events() <-chan repositories.TranscriptEvent {
	return m.events
}

// Err implements repositories.TranscriptStream
func (m *MockTranscriptStream) Err() error {
	return m.err
}

func mockTranscript(words int) string {
	return strings.Join(mockWords[:words], " ")
}
