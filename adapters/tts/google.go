package tts

import (
	"context"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"go.uber.org/zap"

	"github.com/satriahrh/roleplay/domain/repositories"
)

// GoogleTTSConfig selects the voice and output encoding used for every reply
type GoogleTTSConfig struct {
	VoiceName     string
	LanguageCode  string
	AudioEncoding string
}

// GoogleTextToSpeech implements TextToSpeech using Google Cloud Text-to-Speech
type GoogleTextToSpeech struct {
	client   *texttospeech.Client
	voice    *texttospeechpb.VoiceSelectionParams
	encoding texttospeechpb.AudioEncoding
	logger   *zap.Logger
}

var _ repositories.TextToSpeech = (*GoogleTextToSpeech)(nil)

// NewGoogleTextToSpeech creates a new Google Cloud Text-to-Speech client
func NewGoogleTextToSpeech(ctx context.Context, config GoogleTTSConfig, logger *zap.Logger) (*GoogleTextToSpeech, error) {
	encoding, err := getOutputEncoding(config.AudioEncoding)
	if err != nil {
		return nil, err
	}

	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create text-to-speech client: %w", err)
	}

	return &GoogleTextToSpeech{
		client:   client,
		voice:    voiceSelection(config),
		encoding: encoding,
		logger:   logger,
	}, nil
}

// Close closes the underlying client
func (g *GoogleTextToSpeech) Close() error {
	return g.client.Close()
}

// Synthesize implements repositories.TextToSpeech
func (g *GoogleTextToSpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	resp, err := g.client.SynthesizeSpeech(ctx, synthesizeRequest(text, g.voice, g.encoding))
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}

	g.logger.Debug("Speech synthesized",
		zap.String("voice", g.voice.GetName()),
		zap.Int("bytes", len(resp.GetAudioContent())))

	return resp.GetAudioContent(), nil
}

func voiceSelection(config GoogleTTSConfig) *texttospeechpb.VoiceSelectionParams {
	languageCode := config.LanguageCode
	if languageCode == "" {
		languageCode = "en-US"
	}
	return &texttospeechpb.VoiceSelectionParams{
		LanguageCode: languageCode,
		Name:         config.VoiceName,
	}
}

func synthesizeRequest(text string, voice *texttospeechpb.VoiceSelectionParams, encoding texttospeechpb.AudioEncoding) *texttospeechpb.SynthesizeSpeechRequest {
	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: voice,
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: encoding,
		},
	}
}

// getOutputEncoding maps a configured encoding name to the Text-to-Speech enum
func getOutputEncoding(encoding string) (texttospeechpb.AudioEncoding, error) {
	switch strings.ToUpper(strings.TrimSpace(encoding)) {
	case "", "MP3":
		return texttospeechpb.AudioEncoding_MP3, nil
	case "LINEAR16", "LINEAR_16", "WAV":
		return texttospeechpb.AudioEncoding_LINEAR16, nil
	case "OGG_OPUS":
		return texttospeechpb.AudioEncoding_OGG_OPUS, nil
	case "MULAW":
		return texttospeechpb.AudioEncoding_MULAW, nil
	case "ALAW":
		return texttospeechpb.AudioEncoding_ALAW, nil
	default:
		return texttospeechpb.AudioEncoding_AUDIO_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported TTS audio encoding: %s", encoding)
	}
}
