package entities

import (
	"errors"
	"testing"
)

func TestParseLLMResponse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    LLMResponse
		wantErr error
	}{
		{
			name:  "valid response",
			input: `{"customer_utterance": "Tell me more.", "customer_emotion": "curious"}`,
			want:  LLMResponse{CustomerUtterance: "Tell me more.", CustomerEmotion: EmotionCurious},
		},
		{
			name:  "extra keys are ignored",
			input: `{"customer_utterance": "Fine.", "customer_emotion": "neutral", "reason": "x"}`,
			want:  LLMResponse{CustomerUtterance: "Fine.", CustomerEmotion: EmotionNeutral},
		},
		{
			name:    "missing utterance",
			input:   `{"customer_emotion": "curious"}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "missing emotion",
			input:   `{"customer_utterance": "Hi"}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "null utterance",
			input:   `{"customer_utterance": null, "customer_emotion": "curious"}`,
			wantErr: ErrMissingField,
		},
		{
			name:    "emotion outside enum",
			input:   `{"customer_utterance": "Hi", "customer_emotion": "happy"}`,
			wantErr: ErrInvalidEmotion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLLMResponse([]byte(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ParseLLMResponse() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLLMResponse() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseLLMResponse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseLLMResponse_SyntaxErrors(t *testing.T) {
	inputs := []string{
		``,
		`{`,
		`{"customer_utterance": 42, "customer_emotion": "curious"}`,
		`["customer_utterance"]`,
	}

	for _, input := range inputs {
		if _, err := ParseLLMResponse([]byte(input)); err == nil {
			t.Errorf("Expected error for input %q, got nil", input)
		}
	}
}

func TestEmotionValid(t *testing.T) {
	for _, e := range []Emotion{
		EmotionCurious, EmotionSkeptical, EmotionInterested,
		EmotionFrustrated, EmotionImpressed, EmotionNeutral,
	} {
		if !e.Valid() {
			t.Errorf("Expected %s to be valid", e)
		}
	}

	if Emotion("angry").Valid() {
		t.Error("Expected angry to be invalid")
	}
}

func TestLLMResponseJSON(t *testing.T) {
	r := LLMResponse{CustomerUtterance: "Price < value & you know it", CustomerEmotion: EmotionImpressed}

	expected := `{"customer_utterance":"Price < value & you know it","customer_emotion":"impressed"}`
	if r.JSON() != expected {
		t.Errorf("Expected %s, got %s", expected, r.JSON())
	}
}

func TestFallbackResponse(t *testing.T) {
	fallback := FallbackResponse()

	if fallback.CustomerEmotion != EmotionFrustrated {
		t.Errorf("Expected fallback emotion frustrated, got %s", fallback.CustomerEmotion)
	}
	if fallback.CustomerUtterance != FallbackUtterance {
		t.Errorf("Expected fallback utterance %q, got %q", FallbackUtterance, fallback.CustomerUtterance)
	}
}
