package tts

import (
	"context"
	"fmt"
	"strings"
)

// MockTextToSpeech returns a deterministic placeholder clip for development mode
type MockTextToSpeech struct{}

// NewMockTextToSpeech creates a new mock synthesizer
func NewMockTextToSpeech() *MockTextToSpeech {
	return &MockTextToSpeech{}
}

// Synthesize returns 16 bytes of silence per word of input
func (m *MockTextToSpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	words := len(strings.Fields(text))
	if words == 0 {
		return nil, fmt.Errorf("text cannot be empty")
	}
	return make([]byte, words*16), nil
}
