package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satriahrh/roleplay/domain"
)

type options struct {
	server    string
	sessionID string
	file      string
	chunkSize int
	interval  time.Duration
	outDir    string
	extension string
	wait      time.Duration
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := options{}

	cmd := &cobra.Command{
		Use:   "testclient",
		Short: "Stream an audio file to a conversation session and save the replies",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			logger, err := zap.NewDevelopment()
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer logger.Sync()
			return run(opts, logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.server, "server", "localhost:8080", "server host:port")
	flags.StringVar(&opts.sessionID, "session", fmt.Sprintf("session_%d", time.Now().Unix()), "session ID")
	flags.StringVarP(&opts.file, "file", "f", "sample_audio.wav", "raw PCM or WAV file to stream")
	flags.IntVar(&opts.chunkSize, "chunk-size", 3200, "bytes per audio frame (100ms of 16kHz LINEAR16)")
	flags.DurationVar(&opts.interval, "interval", 100*time.Millisecond, "delay between frames")
	flags.StringVarP(&opts.outDir, "out", "o", ".", "directory for received audio")
	flags.StringVar(&opts.extension, "ext", "mp3", "file extension for received audio")
	flags.DurationVar(&opts.wait, "wait", 15*time.Second, "how long to wait for replies after the last frame")

	return cmd
}

func (o options) validate() error {
	if o.chunkSize <= 0 {
		return fmt.Errorf("chunk-size must be positive, got %d", o.chunkSize)
	}
	if o.interval < 0 {
		return fmt.Errorf("interval must not be negative, got %s", o.interval)
	}
	return nil
}

func run(opts options, logger *zap.Logger) error {
	audio, err := os.ReadFile(opts.file)
	if err != nil {
		return fmt.Errorf("failed to read audio file: %w", err)
	}
	audio = stripWAVHeader(audio)
	logger.Info("Read audio file", zap.String("path", opts.file), zap.Int("bytes", len(audio)))

	u := url.URL{Scheme: "ws", Host: opts.server, Path: "/ws/" + opts.sessionID}
	logger.Info("Connecting", zap.String("url", u.String()))

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		receive(conn, opts, logger)
	}()

	chunks := 0
	for start := 0; start < len(audio); start += opts.chunkSize {
		end := start + opts.chunkSize
		if end > len(audio) {
			end = len(audio)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, audio[start:end]); err != nil {
			return fmt.Errorf("failed to send audio frame: %w", err)
		}
		chunks++
		time.Sleep(opts.interval)
	}
	logger.Info("Finished streaming audio", zap.Int("chunks", chunks))

	select {
	case <-done:
		return nil
	case <-time.After(opts.wait):
	}

	// Hang up and let the server flush what it still has.
	err = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return fmt.Errorf("write close: %w", err)
	}
	select {
	case <-done:
	case <-time.After(opts.wait):
		logger.Warn("Server did not close the connection in time")
	}
	return nil
}

func receive(conn *websocket.Conn, opts options, logger *zap.Logger) {
	replies := 0
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				logger.Warn("Read failed", zap.Error(err))
			}
			return
		}

		var msg struct {
			Type domain.MessageType `json:"type"`
			Data json.RawMessage    `json:"data"`
		}
		if err := json.Unmarshal(payload, &msg); err != nil {
			logger.Warn("Invalid envelope", zap.ByteString("payload", payload), zap.Error(err))
			continue
		}

		switch msg.Type {
		case domain.MessageTypeTranscript:
			var data domain.TranscriptData
			json.Unmarshal(msg.Data, &data)
			logger.Info("Transcript", zap.String("text", data.Text), zap.Bool("isFinal", data.IsFinal))

		case domain.MessageTypeAudio:
			var encoded string
			json.Unmarshal(msg.Data, &encoded)
			reply := domain.OutboundMessage{Type: msg.Type, Data: encoded}
			clip, err := reply.DecodeAudio()
			if err != nil {
				logger.Warn("Invalid audio payload", zap.Error(err))
				continue
			}
			replies++
			path := filepath.Join(opts.outDir, fmt.Sprintf("reply_%s_%d.%s", opts.sessionID, replies, strings.TrimPrefix(opts.extension, ".")))
			if err := os.WriteFile(path, clip, 0o644); err != nil {
				logger.Warn("Failed to save audio", zap.Error(err))
				continue
			}
			logger.Info("Saved reply audio", zap.String("path", path), zap.Int("bytes", len(clip)))

		case domain.MessageTypeError:
			var data domain.ErrorData
			json.Unmarshal(msg.Data, &data)
			logger.Error("Server error", zap.String("message", data.Message))

		default:
			logger.Warn("Unknown message type", zap.String("type", string(msg.Type)))
		}
	}
}

// stripWAVHeader drops a canonical 44-byte RIFF header so only samples are streamed
func stripWAVHeader(audio []byte) []byte {
	if len(audio) > 44 && bytes.HasPrefix(audio, []byte("RIFF")) && bytes.Equal(audio[8:12], []byte("WAVE")) {
		return audio[44:]
	}
	return audio
}
