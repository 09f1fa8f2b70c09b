package usecase

import (
	"context"
	"sync"

	"github.com/satriahrh/roleplay/domain/repositories"
)

type fakeLLM struct {
	mu       sync.Mutex
	replies  []string
	err      error
	requests []repositories.GenerationRequest
}

func (f *fakeLLM) GenerateText(ctx context.Context, req repositories.GenerationRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return `{"customer_utterance": "Okay.", "customer_emotion": "neutral"}`, nil
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

func (f *fakeLLM) calls() []repositories.GenerationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]repositories.GenerationRequest(nil), f.requests...)
}

type fakeTTS struct {
	audio []byte
	err   error
	texts []string
}

func (f *fakeTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	f.texts = append(f.texts, text)
	return f.audio, f.err
}

// fakeSTT replays scripted events once the audio channel is closed
type fakeSTT struct {
	events  []repositories.TranscriptEvent
	err     error
	openErr error
	chunks  int
}

type fakeTranscriptStream struct {
	events chan repositories.TranscriptEvent
	err    error
}

func (s *fakeTranscriptStream) Events() <-chan repositories.TranscriptEvent { return s.events }
func (s *fakeTranscriptStream) Err() error                                { return s.err }

func (f *fakeSTT) OpenTranscriptStream(ctx context.Context, config repositories.AudioConfig, audio <-chan []byte) (repositories.TranscriptStream, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	stream := &fakeTranscriptStream{events: make(chan repositories.TranscriptEvent)}
	go func() {
		defer close(stream.events)
		for range audio {
			f.chunks++
		}
		for _, event := range f.events {
			select {
			case stream.events <- event:
			case <-ctx.Done():
				return
			}
		}
		stream.err = f.err
	}()
	return stream, nil
}
