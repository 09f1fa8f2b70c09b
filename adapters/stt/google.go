package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/satriahrh/roleplay/domain/repositories"
)

const eventBufferSize = 16

// GoogleSpeechToText implements SpeechToText for Google Cloud
type GoogleSpeechToText struct {
	client *speech.Client
	logger *zap.Logger
}

var _ repositories.SpeechToText = (*GoogleSpeechToText)(nil)

// NewGoogleSpeechToText creates the process-wide Google Cloud Speech client.
// Credentials are resolved from GOOGLE_APPLICATION_CREDENTIALS.
func NewGoogleSpeechToText(ctx context.Context, logger *zap.Logger) (*GoogleSpeechToText, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	return &GoogleSpeechToText{
		client: client,
		logger: logger,
	}, nil
}

// Close releases the underlying gRPC connection
func (g *GoogleSpeechToText) Close() error {
	return g.client.Close()
}

// OpenTranscriptStream opens a streaming recognize call for one session
func (g *GoogleSpeechToText) OpenTranscriptStream(ctx context.Context, config repositories.AudioConfig, audio <-chan []byte) (repositories.TranscriptStream, error) {
	encoding, err := getAudioEncoding(config.Encoding)
	if err != nil {
		return nil, err
	}

	stream, err := g.client.StreamingRecognize(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create streaming recognize: %w", err)
	}

	// The configuration frame must precede any audio frame
	if err := stream.Send(streamingConfigRequest(config, encoding)); err != nil {
		stream.CloseSend()
		return nil, fmt.Errorf("failed to send streaming config: %w", err)
	}

	g.logger.Info("Google STT stream opened",
		zap.String("encoding", encoding.String()),
		zap.Int("sampleRate", config.SampleRate),
		zap.String("language", config.Language))

	return newGoogleTranscriptStream(ctx, stream, audio, g.logger), nil
}

func streamingConfigRequest(config repositories.AudioConfig, encoding speechpb.RecognitionConfig_AudioEncoding) *speechpb.StreamingRecognizeRequest {
	return &speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:                   encoding,
					SampleRateHertz:            int32(config.SampleRate),
					LanguageCode:               config.Language,
					AlternativeLanguageCodes:   config.AlternativeLanguages,
					EnableAutomaticPunctuation: true,
				},
				InterimResults: true,
			},
		},
	}
}

// recognizeStream is the subset of speechpb.Speech_StreamingRecognizeClient in use
type recognizeStream interface {
	Send(*speechpb.StreamingRecognizeRequest) error
	Recv() (*speechpb.StreamingRecognizeResponse, error)
	CloseSend() error
}

// GoogleTranscriptStream drives both directions of one recognize call:
// a feeder goroutine writes audio, a receiver goroutine reads results.
type GoogleTranscriptStream struct {
	stream recognizeStream
	events chan repositories.TranscriptEvent
	err    error
	logger *zap.Logger
}

func newGoogleTranscriptStream(ctx context.Context, stream recognizeStream, audio <-chan []byte, logger *zap.Logger) *GoogleTranscriptStream {
	s := &GoogleTranscriptStream{
		stream: stream,
		events: make(chan repositories.TranscriptEvent, eventBufferSize),
		logger: logger,
	}

	go s.feed(ctx, audio)
	go s.receive(ctx)

	return s
}

// Events implements repositories.TranscriptStream
func (s *GoogleTranscriptStream) Events() <-chan repositories.TranscriptEvent {
	return s.events
}

// Err implements repositories.TranscriptStream
func (s *GoogleTranscriptStream) Err() error {
	return s.err
}

func (s *GoogleTranscriptStream) feed(ctx context.Context, audio <-chan []byte) {
	defer func() {
		if err := s.stream.CloseSend(); err != nil {
			s.logger.Debug("Failed to close STT send side", zap.Error(err))
		}
	}()

	chunks := 0
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-audio:
			if !ok {
				s.logger.Info("Audio stream ended, draining STT stream", zap.Int("chunks", chunks))
				return
			}
			if len(chunk) == 0 {
				continue
			}

			err := s.stream.Send(&speechpb.StreamingRecognizeRequest{
				StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
					AudioContent: chunk,
				},
			})
			if err != nil {
				// The actual cause is reported by Recv
				s.logger.Debug("Failed to send audio data", zap.Error(err))
				return
			}
			chunks++
		}
	}
}

func (s *GoogleTranscriptStream) receive(ctx context.Context) {
	defer close(s.events)
	defer s.logger.Info("Google STT stream closed")

	for {
		resp, err := s.stream.Recv()
		if err == io.EOF {
			return
		}
		if err == nil && resp.GetError() != nil {
			err = status.ErrorProto(resp.GetError())
		}
		if err != nil {
			if isGracefulEnd(ctx, err) {
				s.logger.Info("Google STT stream ended", zap.String("reason", status.Code(err).String()))
				return
			}
			s.err = fmt.Errorf("failed to receive response: %w", err)
			return
		}

		// Only the leading result carries the utterance; later results are unstable tails
		results := resp.GetResults()
		if len(results) == 0 || len(results[0].GetAlternatives()) == 0 {
			continue
		}

		event := repositories.TranscriptEvent{
			Text:    results[0].GetAlternatives()[0].GetTranscript(),
			IsFinal: results[0].GetIsFinal(),
		}
		if event.IsFinal {
			s.logger.Info("Final transcript received", zap.String("transcript", event.Text))
		}

		select {
		case s.events <- event:
		case <-ctx.Done():
			return
		}
	}
}

// isGracefulEnd reports upstream terminations that are expected: the silence
// timeout (OutOfRange), upstream cancellation and our own cancellation.
func isGracefulEnd(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return true
	}
	switch status.Code(err) {
	case codes.OutOfRange, codes.Canceled:
		return true
	}
	return false
}

// getAudioEncoding converts string encoding to Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch strings.TrimPrefix(strings.ToUpper(encoding), "AUDIO_ENCODING_") {
	case "WAV", "LINEAR16", "LINEAR_16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "AMR":
		return speechpb.RecognitionConfig_AMR, nil
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
