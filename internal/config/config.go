package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Provider names accepted by the *_PROVIDER settings
const (
	ProviderGoogle     = "google"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderElevenLabs = "elevenlabs"
	ProviderMock       = "mock"
)

// Config is built once at startup and handed to every component that needs it
type Config struct {
	Env      string
	LogLevel string
	Port     string

	GoogleCredentials string

	Audio   AudioConfig
	LLM     LLMConfig
	TTS     TTSConfig
	Session SessionConfig
}

// AudioConfig describes the audio clients stream to the server
type AudioConfig struct {
	STTProvider          string
	Encoding             string
	SampleRateHertz      int
	LanguageCode         string
	AlternativeLanguages []string
}

// LLMConfig selects and configures the persona model
type LLMConfig struct {
	Provider           string
	APIKey             string
	BaseURL            string
	Model              string
	GeminiAPIKey       string
	SystemPrompt       string
	PromptHistoryTurns int
}

// TTSConfig selects and configures speech synthesis
type TTSConfig struct {
	Provider      string
	VoiceName     string
	AudioEncoding string

	ElevenLabsAPIKey       string
	ElevenLabsAPIBaseURL   string
	ElevenLabsVoiceID      string
	ElevenLabsModelID      string
	ElevenLabsOutputFormat string
	ElevenLabsStability    float64
	ElevenLabsClarity      float64
}

// SessionConfig bounds per-session resources
type SessionConfig struct {
	AudioQueueSize int
	// DrainTimeout is parsed as a Go duration; a bare number means nanoseconds.
	DrainTimeout time.Duration
}

const minDrainTimeout = time.Second

// IsDevelopment reports whether APP_ENV selects development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("PORT", "8080")
	v.SetDefault("STT_PROVIDER", ProviderGoogle)
	v.SetDefault("AUDIO_ENCODING", "LINEAR16")
	v.SetDefault("SAMPLE_RATE_HERTZ", 16000)
	v.SetDefault("LANGUAGE_CODE", "en-US")
	v.SetDefault("ALTERNATIVE_LANGUAGE_CODES", "")
	v.SetDefault("LLM_PROVIDER", ProviderOpenAI)
	v.SetDefault("PROMPT_HISTORY_TURNS", 0)
	v.SetDefault("TTS_PROVIDER", ProviderGoogle)
	v.SetDefault("TTS_VOICE_NAME", "en-US-Wavenet-D")
	v.SetDefault("TTS_AUDIO_ENCODING", "MP3")
	v.SetDefault("AUDIO_QUEUE_SIZE", 64)
	v.SetDefault("SESSION_DRAIN_TIMEOUT", 10*time.Second)
}

// Load reads .env (when present) and the process environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Env:               v.GetString("APP_ENV"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		Port:              v.GetString("PORT"),
		GoogleCredentials: v.GetString("GOOGLE_APPLICATION_CREDENTIALS"),
		Audio: AudioConfig{
			STTProvider:          strings.ToLower(v.GetString("STT_PROVIDER")),
			Encoding:             v.GetString("AUDIO_ENCODING"),
			SampleRateHertz:      v.GetInt("SAMPLE_RATE_HERTZ"),
			LanguageCode:         v.GetString("LANGUAGE_CODE"),
			AlternativeLanguages: splitList(v.GetString("ALTERNATIVE_LANGUAGE_CODES")),
		},
		LLM: LLMConfig{
			Provider:           strings.ToLower(v.GetString("LLM_PROVIDER")),
			APIKey:             v.GetString("LLM_API_KEY"),
			BaseURL:            v.GetString("LLM_BASE_URL"),
			Model:              v.GetString("LLM_MODEL"),
			GeminiAPIKey:       v.GetString("GEMINI_API_KEY"),
			SystemPrompt:       v.GetString("CUSTOMER_SYSTEM_PROMPT"),
			PromptHistoryTurns: v.GetInt("PROMPT_HISTORY_TURNS"),
		},
		TTS: TTSConfig{
			Provider:               strings.ToLower(v.GetString("TTS_PROVIDER")),
			VoiceName:              v.GetString("TTS_VOICE_NAME"),
			AudioEncoding:          v.GetString("TTS_AUDIO_ENCODING"),
			ElevenLabsAPIKey:       v.GetString("ELEVEN_LABS_API_KEY"),
			ElevenLabsAPIBaseURL:   v.GetString("ELEVEN_LABS_API_BASE_URL"),
			ElevenLabsVoiceID:      v.GetString("ELEVEN_LABS_VOICE_ID"),
			ElevenLabsModelID:      v.GetString("ELEVEN_LABS_MODEL_ID"),
			ElevenLabsOutputFormat: v.GetString("ELEVEN_LABS_OUTPUT_FORMAT"),
			ElevenLabsStability:    v.GetFloat64("ELEVEN_LABS_STABILITY"),
			ElevenLabsClarity:      v.GetFloat64("ELEVEN_LABS_CLARITY"),
		},
		Session: SessionConfig{
			AudioQueueSize: v.GetInt("AUDIO_QUEUE_SIZE"),
			DrainTimeout:   v.GetDuration("SESSION_DRAIN_TIMEOUT"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing or inconsistent required setting at once
func (c *Config) Validate() error {
	var errs []error
	required := func(value, name string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}

	required(c.LLM.SystemPrompt, "CUSTOMER_SYSTEM_PROMPT")

	switch c.Audio.STTProvider {
	case ProviderGoogle, ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("unsupported STT_PROVIDER %q", c.Audio.STTProvider))
	}

	switch c.LLM.Provider {
	case ProviderOpenAI:
		required(c.LLM.APIKey, "LLM_API_KEY")
	case ProviderGemini:
		required(c.LLM.GeminiAPIKey, "GEMINI_API_KEY")
	case ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLM.Provider))
	}

	switch c.TTS.Provider {
	case ProviderGoogle, ProviderMock:
	case ProviderElevenLabs:
		required(c.TTS.ElevenLabsAPIKey, "ELEVEN_LABS_API_KEY")
	default:
		errs = append(errs, fmt.Errorf("unsupported TTS_PROVIDER %q", c.TTS.Provider))
	}

	if c.Audio.SampleRateHertz <= 0 {
		errs = append(errs, fmt.Errorf("SAMPLE_RATE_HERTZ must be positive, got %d", c.Audio.SampleRateHertz))
	}
	if c.Session.AudioQueueSize <= 0 {
		errs = append(errs, fmt.Errorf("AUDIO_QUEUE_SIZE must be positive, got %d", c.Session.AudioQueueSize))
	}
	if c.Session.DrainTimeout < minDrainTimeout {
		errs = append(errs, fmt.Errorf("SESSION_DRAIN_TIMEOUT must be at least %s (use a unit, e.g. 10s), got %s", minDrainTimeout, c.Session.DrainTimeout))
	}
	if c.LLM.PromptHistoryTurns < 0 {
		errs = append(errs, fmt.Errorf("PROMPT_HISTORY_TURNS must not be negative, got %d", c.LLM.PromptHistoryTurns))
	}

	return errors.Join(errs...)
}

// Warnings lists settings that are allowed but likely to fail at runtime
func (c *Config) Warnings() []string {
	var warnings []string

	usesGoogle := c.Audio.STTProvider == ProviderGoogle || c.TTS.Provider == ProviderGoogle
	if usesGoogle {
		if c.GoogleCredentials == "" {
			warnings = append(warnings, "GOOGLE_APPLICATION_CREDENTIALS is not set; falling back to application default credentials")
		} else if _, err := os.Stat(c.GoogleCredentials); err != nil {
			warnings = append(warnings, fmt.Sprintf("GOOGLE_APPLICATION_CREDENTIALS file %q is not readable: %v", c.GoogleCredentials, err))
		}
	}

	return warnings
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
