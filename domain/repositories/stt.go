package repositories

import "context"

// SpeechToText abstracts streaming speech recognition services
type SpeechToText interface {
	// OpenTranscriptStream starts one long-lived recognition stream fed from audio.
	// Closing the audio channel ends the stream once the backend has drained.
	OpenTranscriptStream(ctx context.Context, config AudioConfig, audio <-chan []byte) (TranscriptStream, error)
}

// AudioConfig represents audio configuration for speech recognition
type AudioConfig struct {
	SampleRate           int      `json:"sample_rate"`
	Encoding             string   `json:"encoding"`
	Language             string   `json:"language"`
	AlternativeLanguages []string `json:"alternative_languages,omitempty"`
}

// TranscriptEvent is one recognition result, interim or final
type TranscriptEvent struct {
	Text    string
	IsFinal bool
}

// TranscriptStream is the consumable side of a recognition stream.
// A stream is not restartable.
type TranscriptStream interface {
	// Events is closed when the stream ends
	Events() <-chan TranscriptEvent
	// Err reports why the stream ended; nil for a graceful end. Valid after Events is closed.
	Err() error
}
