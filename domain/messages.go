package domain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// MessageType identifies the payload carried by an outbound message
type MessageType string

const (
	MessageTypeTranscript MessageType = "transcript"
	MessageTypeAudio      MessageType = "audio"
	MessageTypeError      MessageType = "error"
)

// OutboundMessage is the {type, data} envelope sent to the client as a text frame
type OutboundMessage struct {
	Type MessageType `json:"type"`
	Data interface{} `json:"data"`
}

// TranscriptData is the data of a transcript message
type TranscriptData struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final"`
}

// ErrorData is the data of an error message
type ErrorData struct {
	Message string `json:"message"`
}

// NewTranscriptMessage wraps an interim or final transcript
func NewTranscriptMessage(text string, isFinal bool) OutboundMessage {
	return OutboundMessage{
		Type: MessageTypeTranscript,
		Data: TranscriptData{Text: text, IsFinal: isFinal},
	}
}

// NewAudioMessage wraps synthesized audio; the bytes travel base64 encoded
func NewAudioMessage(audio []byte) OutboundMessage {
	return OutboundMessage{
		Type: MessageTypeAudio,
		Data: base64.StdEncoding.EncodeToString(audio),
	}
}

// NewErrorMessage wraps a session level error
func NewErrorMessage(message string) OutboundMessage {
	return OutboundMessage{
		Type: MessageTypeError,
		Data: ErrorData{Message: message},
	}
}

// Encode renders the envelope as JSON
func (m OutboundMessage) Encode() ([]byte, error) {
	switch m.Type {
	case MessageTypeTranscript, MessageTypeAudio, MessageTypeError:
	default:
		return nil, fmt.Errorf("unsupported message type: %s", m.Type)
	}

	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s message: %w", m.Type, err)
	}
	return payload, nil
}

// DecodeAudio returns the raw bytes of an audio message
func (m OutboundMessage) DecodeAudio() ([]byte, error) {
	if m.Type != MessageTypeAudio {
		return nil, fmt.Errorf("not an audio message: %s", m.Type)
	}
	encoded, ok := m.Data.(string)
	if !ok {
		return nil, fmt.Errorf("audio data must be a base64 string, got %T", m.Data)
	}
	return base64.StdEncoding.DecodeString(encoded)
}
