package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/roleplay/domain"
	"github.com/satriahrh/roleplay/domain/entities"
	"github.com/satriahrh/roleplay/domain/repositories"
)

type recorder struct {
	messages []domain.OutboundMessage
}

func (r *recorder) emit(msg domain.OutboundMessage) {
	r.messages = append(r.messages, msg)
}

func (r *recorder) ofType(t domain.MessageType) []domain.OutboundMessage {
	var out []domain.OutboundMessage
	for _, msg := range r.messages {
		if msg.Type == t {
			out = append(out, msg)
		}
	}
	return out
}

func newTestService(t *testing.T, stt repositories.SpeechToText, llm repositories.TextGenerator, tts repositories.TextToSpeech) (*ConversationService, *entities.ConversationHistory) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	history := entities.NewConversationHistory()
	service := NewConversationService(
		stt,
		repositories.AudioConfig{SampleRate: 16000, Encoding: "LINEAR16", Language: "en-US"},
		NewResponseGenerator(llm, GeneratorConfig{}, logger),
		NewSpeechService(tts, logger),
		history,
		logger,
	)
	return service, history
}

func closedAudio(chunks int) <-chan []byte {
	audio := make(chan []byte, chunks)
	for i := 0; i < chunks; i++ {
		audio <- []byte{byte(i)}
	}
	close(audio)
	return audio
}

func TestConversationService_TranscriptOrderAndTurns(t *testing.T) {
	stt := &fakeSTT{events: []repositories.TranscriptEvent{
		{Text: "I want", IsFinal: false},
		{Text: "I want a refund", IsFinal: true},
		{Text: "Right", IsFinal: false},
		{Text: "Right now", IsFinal: true},
	}}
	llm := &fakeLLM{replies: []string{
		`{"customer_utterance": "Why?", "customer_emotion": "curious"}`,
		`{"customer_utterance": "Fine.", "customer_emotion": "neutral"}`,
	}}
	tts := &fakeTTS{audio: []byte("audio")}
	service, history := newTestService(t, stt, llm, tts)

	rec := &recorder{}
	if err := service.Converse(context.Background(), closedAudio(3), rec.emit); err != nil {
		t.Fatalf("Converse() error = %v", err)
	}

	if stt.chunks != 3 {
		t.Errorf("expected 3 audio chunks consumed, got %d", stt.chunks)
	}

	transcripts := rec.ofType(domain.MessageTypeTranscript)
	if len(transcripts) != len(stt.events) {
		t.Fatalf("expected %d transcript messages, got %d", len(stt.events), len(transcripts))
	}
	for i, msg := range transcripts {
		data := msg.Data.(domain.TranscriptData)
		if data.Text != stt.events[i].Text || data.IsFinal != stt.events[i].IsFinal {
			t.Errorf("transcript %d = %+v, want %+v", i, data, stt.events[i])
		}
	}

	if audio := rec.ofType(domain.MessageTypeAudio); len(audio) != 2 {
		t.Errorf("expected 2 audio messages, got %d", len(audio))
	}

	turns := history.Snapshot()
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].UserUtterance != "I want a refund" || turns[1].UserUtterance != "Right now" {
		t.Errorf("turns out of order: %+v", turns)
	}
	if turns[0].AIResponse.CustomerUtterance != "Why?" {
		t.Errorf("unexpected first reply %+v", turns[0].AIResponse)
	}

	// The second turn sees the first in its prompt
	calls := llm.calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 generation calls, got %d", len(calls))
	}
	if want := "Trainee: I want a refund\n"; !strings.Contains(calls[1].Prompt, want) {
		t.Errorf("second prompt is missing history:\n%s", calls[1].Prompt)
	}
	if len(tts.texts) != 2 || tts.texts[0] != "Why?" {
		t.Errorf("unexpected synthesized texts %v", tts.texts)
	}
}

func TestConversationService_EmptyAudioStillAppendsTurn(t *testing.T) {
	stt := &fakeSTT{events: []repositories.TranscriptEvent{{Text: "Hello", IsFinal: true}}}
	service, history := newTestService(t, stt, &fakeLLM{}, &fakeTTS{audio: nil})

	rec := &recorder{}
	if err := service.Converse(context.Background(), closedAudio(1), rec.emit); err != nil {
		t.Fatalf("Converse() error = %v", err)
	}

	if audio := rec.ofType(domain.MessageTypeAudio); len(audio) != 0 {
		t.Errorf("expected no audio message, got %d", len(audio))
	}
	if history.Len() != 1 {
		t.Errorf("expected the turn to be appended, history has %d turns", history.Len())
	}
}

func TestConversationService_SynthesisErrorStillAppendsTurn(t *testing.T) {
	stt := &fakeSTT{events: []repositories.TranscriptEvent{{Text: "Hello", IsFinal: true}}}
	service, history := newTestService(t, stt, &fakeLLM{}, &fakeTTS{err: errors.New("quota exceeded")})

	rec := &recorder{}
	if err := service.Converse(context.Background(), closedAudio(1), rec.emit); err != nil {
		t.Fatalf("Converse() error = %v", err)
	}

	if len(rec.ofType(domain.MessageTypeAudio)) != 0 || history.Len() != 1 {
		t.Errorf("expected one turn and no audio, got %d messages and %d turns", len(rec.messages), history.Len())
	}
}

func TestConversationService_BlankFinalDoesNotStartTurn(t *testing.T) {
	stt := &fakeSTT{events: []repositories.TranscriptEvent{{Text: "   ", IsFinal: true}}}
	llm := &fakeLLM{}
	service, history := newTestService(t, stt, llm, &fakeTTS{audio: []byte("x")})

	rec := &recorder{}
	if err := service.Converse(context.Background(), closedAudio(0), rec.emit); err != nil {
		t.Fatalf("Converse() error = %v", err)
	}

	if len(rec.ofType(domain.MessageTypeTranscript)) != 1 {
		t.Error("blank final should still be emitted as a transcript")
	}
	if history.Len() != 0 || len(llm.calls()) != 0 {
		t.Error("blank final must not start a turn")
	}
}

func TestConversationService_TurnRecordsTrimmedUtterance(t *testing.T) {
	stt := &fakeSTT{events: []repositories.TranscriptEvent{{Text: "  Hello there \n", IsFinal: true}}}
	llm := &fakeLLM{}
	service, history := newTestService(t, stt, llm, &fakeTTS{audio: []byte("x")})

	rec := &recorder{}
	if err := service.Converse(context.Background(), closedAudio(0), rec.emit); err != nil {
		t.Fatalf("Converse() error = %v", err)
	}

	transcripts := rec.ofType(domain.MessageTypeTranscript)
	if len(transcripts) != 1 || transcripts[0].Data.(domain.TranscriptData).Text != "  Hello there \n" {
		t.Errorf("transcript should be relayed untrimmed, got %+v", transcripts)
	}
	turns := history.Snapshot()
	if len(turns) != 1 || turns[0].UserUtterance != "Hello there" {
		t.Fatalf("expected one turn with the trimmed utterance, got %+v", turns)
	}
	if calls := llm.calls(); len(calls) != 1 || !strings.Contains(calls[0].Prompt, "Trainee: Hello there\n") {
		t.Errorf("prompt should carry the trimmed utterance, got %+v", calls)
	}
}

func TestConversationService_StreamErrorIsReturned(t *testing.T) {
	streamErr := errors.New("recognizer unavailable")
	stt := &fakeSTT{
		events: []repositories.TranscriptEvent{{Text: "Hel", IsFinal: false}},
		err:    streamErr,
	}
	service, _ := newTestService(t, stt, &fakeLLM{}, &fakeTTS{})

	rec := &recorder{}
	err := service.Converse(context.Background(), closedAudio(1), rec.emit)
	if !errors.Is(err, streamErr) {
		t.Errorf("Converse() error = %v, want %v", err, streamErr)
	}
	if len(rec.messages) != 1 {
		t.Errorf("events before the failure must still be emitted, got %d", len(rec.messages))
	}
}

func TestConversationService_OpenError(t *testing.T) {
	openErr := errors.New("no credentials")
	service, _ := newTestService(t, &fakeSTT{openErr: openErr}, &fakeLLM{}, &fakeTTS{})

	err := service.Converse(context.Background(), closedAudio(0), (&recorder{}).emit)
	if !errors.Is(err, openErr) {
		t.Errorf("Converse() error = %v, want wrapped %v", err, openErr)
	}
}

type cancellingLLM struct {
	cancel context.CancelFunc
}

func (c *cancellingLLM) GenerateText(ctx context.Context, req repositories.GenerationRequest) (string, error) {
	c.cancel()
	return `{"customer_utterance": "Too late.", "customer_emotion": "neutral"}`, nil
}

func TestConversationService_CancelledTurnIsAbandoned(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stt := &fakeSTT{events: []repositories.TranscriptEvent{{Text: "Hello", IsFinal: true}}}
	tts := &fakeTTS{audio: []byte("x")}
	logger := zap.NewNop()
	history := entities.NewConversationHistory()
	service := NewConversationService(
		stt,
		repositories.AudioConfig{},
		NewResponseGenerator(&cancellingLLM{cancel: cancel}, GeneratorConfig{}, logger),
		NewSpeechService(tts, logger),
		history,
		logger,
	)

	rec := &recorder{}
	err := service.Converse(ctx, closedAudio(0), rec.emit)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Converse() error = %v, want context.Canceled", err)
	}
	if history.Len() != 0 {
		t.Error("a cancelled turn must not be appended")
	}
	if len(rec.ofType(domain.MessageTypeAudio)) != 0 || len(tts.texts) != 0 {
		t.Error("a cancelled turn must not reach synthesis")
	}
}
