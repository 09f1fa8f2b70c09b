package repositories

import "context"

// TextToSpeech abstracts speech synthesis services
type TextToSpeech interface {
	// Synthesize converts text to a complete audio payload
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
