package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/satriahrh/roleplay/adapters/llm"
	"github.com/satriahrh/roleplay/adapters/stt"
	"github.com/satriahrh/roleplay/adapters/tts"
	"github.com/satriahrh/roleplay/domain/repositories"
	"github.com/satriahrh/roleplay/internal/api"
	"github.com/satriahrh/roleplay/internal/config"
	"github.com/satriahrh/roleplay/internal/websocket"
	"github.com/satriahrh/roleplay/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	for _, warning := range cfg.Warnings() {
		logger.Warn(warning)
	}

	ctx := context.Background()

	// Initialize adapters
	speechToText, closeSTT, err := newSpeechToText(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize speech recognition", zap.Error(err))
	}
	defer closeSTT()

	textGenerator, err := newTextGenerator(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize language model", zap.Error(err))
	}

	textToSpeech, closeTTS, err := newTextToSpeech(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize speech synthesis", zap.Error(err))
	}
	defer closeTTS()

	hub := websocket.NewHub(speechToText, textGenerator, textToSpeech, websocket.HubConfig{
		AudioConfig: repositories.AudioConfig{
			SampleRate:           cfg.Audio.SampleRateHertz,
			Encoding:             cfg.Audio.Encoding,
			Language:             cfg.Audio.LanguageCode,
			AlternativeLanguages: cfg.Audio.AlternativeLanguages,
		},
		Generator: usecase.GeneratorConfig{
			SystemPrompt:       cfg.LLM.SystemPrompt,
			Model:              cfg.LLM.Model,
			PromptHistoryTurns: cfg.LLM.PromptHistoryTurns,
		},
		AudioQueueSize: cfg.Session.AudioQueueSize,
		DrainTimeout:   cfg.Session.DrainTimeout,
	}, logger.Named("hub"))

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	api.InitRoutes(e, hub, logger)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("port", cfg.Port),
		zap.String("sttProvider", cfg.Audio.STTProvider),
		zap.String("llmProvider", cfg.LLM.Provider),
		zap.String("ttsProvider", cfg.TTS.Provider))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Session.DrainTimeout+5*time.Second)
	defer cancel()

	if err := hub.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Sessions did not close cleanly", zap.Error(err))
	}

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if cfg.IsDevelopment() {
		zapConfig = zap.NewDevelopmentConfig()
	}

	if cfg.LogLevel != "" {
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		zapConfig.Level = zap.NewAtomicLevelAt(level)
	}

	return zapConfig.Build()
}

func newSpeechToText(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.SpeechToText, func(), error) {
	if cfg.Audio.STTProvider == config.ProviderMock {
		return stt.NewMockSpeechToText(logger.Named("stt")), func() {}, nil
	}

	client, err := stt.NewGoogleSpeechToText(ctx, logger.Named("stt"))
	if err != nil {
		return nil, nil, err
	}
	return client, func() { client.Close() }, nil
}

func newTextGenerator(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.TextGenerator, error) {
	switch cfg.LLM.Provider {
	case config.ProviderMock:
		return llm.NewMockLLM(), nil
	case config.ProviderGemini:
		return llm.NewGeminiLLM(ctx, cfg.LLM.GeminiAPIKey, cfg.LLM.Model, logger.Named("llm"))
	default:
		return llm.NewOpenAILLM(llm.OpenAIConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
		}, logger.Named("llm"))
	}
}

func newTextToSpeech(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.TextToSpeech, func(), error) {
	switch cfg.TTS.Provider {
	case config.ProviderMock:
		return tts.NewMockTextToSpeech(), func() {}, nil
	case config.ProviderElevenLabs:
		client, err := tts.NewElevenLabsTTS(tts.ElevenLabsConfig{
			APIKey:       cfg.TTS.ElevenLabsAPIKey,
			APIBaseURL:   cfg.TTS.ElevenLabsAPIBaseURL,
			VoiceID:      cfg.TTS.ElevenLabsVoiceID,
			ModelID:      cfg.TTS.ElevenLabsModelID,
			OutputFormat: cfg.TTS.ElevenLabsOutputFormat,
			Stability:    cfg.TTS.ElevenLabsStability,
			Clarity:      cfg.TTS.ElevenLabsClarity,
			LanguageCode: cfg.Audio.LanguageCode,
		}, logger.Named("tts"))
		return client, func() {}, err
	default:
		client, err := tts.NewGoogleTextToSpeech(ctx, tts.GoogleTTSConfig{
			VoiceName:     cfg.TTS.VoiceName,
			LanguageCode:  cfg.Audio.LanguageCode,
			AudioEncoding: cfg.TTS.AudioEncoding,
		}, logger.Named("tts"))
		if err != nil {
			return nil, nil, err
		}
		return client, func() { client.Close() }, nil
	}
}
