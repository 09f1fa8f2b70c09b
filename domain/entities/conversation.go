package entities

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Emotion is the customer persona's emotional state attached to every reply
type Emotion string

const (
	EmotionCurious    Emotion = "curious"
	EmotionSkeptical  Emotion = "skeptical"
	EmotionInterested Emotion = "interested"
	EmotionFrustrated Emotion = "frustrated"
	EmotionImpressed  Emotion = "impressed"
	EmotionNeutral    Emotion = "neutral"
)

// FallbackUtterance is spoken whenever the model output cannot be used
const FallbackUtterance = "I'm sorry, I'm having a little trouble right now. Can you repeat that?"

var (
	ErrMissingField   = errors.New("missing required field")
	ErrInvalidEmotion = errors.New("invalid customer emotion")
)

// Valid reports whether e is one of the known emotions
func (e Emotion) Valid() bool {
	switch e {
	case EmotionCurious, EmotionSkeptical, EmotionInterested,
		EmotionFrustrated, EmotionImpressed, EmotionNeutral:
		return true
	}
	return false
}

// LLMResponse is the structured reply of the customer persona
type LLMResponse struct {
	CustomerUtterance string  `json:"customer_utterance"`
	CustomerEmotion   Emotion `json:"customer_emotion"`
}

// FallbackResponse returns the reply used when generation fails for any reason
func FallbackResponse() LLMResponse {
	return LLMResponse{
		CustomerUtterance: FallbackUtterance,
		CustomerEmotion:   EmotionFrustrated,
	}
}

// ParseLLMResponse strictly decodes a model reply. Both fields are required and the
// emotion must be one of the known values. Unknown keys are ignored.
func ParseLLMResponse(data []byte) (LLMResponse, error) {
	var raw struct {
		CustomerUtterance *string  `json:"customer_utterance"`
		CustomerEmotion   *Emotion `json:"customer_emotion"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return LLMResponse{}, fmt.Errorf("failed to decode model response: %w", err)
	}
	if raw.CustomerUtterance == nil {
		return LLMResponse{}, fmt.Errorf("%w: customer_utterance", ErrMissingField)
	}
	if raw.CustomerEmotion == nil {
		return LLMResponse{}, fmt.Errorf("%w: customer_emotion", ErrMissingField)
	}
	if !raw.CustomerEmotion.Valid() {
		return LLMResponse{}, fmt.Errorf("%w: %q", ErrInvalidEmotion, string(*raw.CustomerEmotion))
	}

	return LLMResponse{
		CustomerUtterance: *raw.CustomerUtterance,
		CustomerEmotion:   *raw.CustomerEmotion,
	}, nil
}

// JSON renders the response in compact form, the way it is replayed to the model
func (r LLMResponse) JSON() string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return ""
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// ConversationTurn is one trainee utterance and the persona's answer to it
type ConversationTurn struct {
	UserUtterance string      `json:"user_utterance"`
	AIResponse    LLMResponse `json:"ai_response"`
	Timestamp     time.Time   `json:"timestamp"`
}

// NewConversationTurn stamps a turn with the current time
func NewConversationTurn(userUtterance string, response LLMResponse) ConversationTurn {
	return ConversationTurn{
		UserUtterance: userUtterance,
		AIResponse:    response,
		Timestamp:     time.Now(),
	}
}
