// Package config handles loading and validating the paperwave configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for paperwave.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Audio     AudioConfig     `mapstructure:"audio"`
	ScriptGen ScriptGenConfig `mapstructure:"scriptgen"`
	Extract   ExtractConfig   `mapstructure:"extract"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds the serve-mode HTTP settings.
type ServerConfig struct {
	Port       int    `mapstructure:"port"`
	HealthPort int    `mapstructure:"health_port"`
	OutputDir  string `mapstructure:"output_dir"`
}

// EngineConfig selects and configures the TTS engine backend.
type EngineConfig struct {
	Backend string      `mapstructure:"backend"` // "xtts" or "piper"
	ModelID string      `mapstructure:"model_id"`
	Device  string      `mapstructure:"device"` // "auto", "mps", "cuda", "cpu"
	XTTS    XTTSConfig  `mapstructure:"xtts"`
	Piper   PiperConfig `mapstructure:"piper"`
}

// XTTSConfig holds settings for a Coqui-style TTS HTTP server.
type XTTSConfig struct {
	Endpoint string `mapstructure:"endpoint"` // base URL, e.g. http://localhost:5002
}

// PiperConfig holds Piper TTS settings (Wyoming protocol).
//
// Piper voices are per-language models, so the ordered voice list that
// seeds the role assignment comes from configuration rather than a server
// enumeration call.
type PiperConfig struct {
	Endpoint string       `mapstructure:"endpoint"` // Wyoming TCP endpoint (host:port)
	Voices   []PiperVoice `mapstructure:"voices"`   // ordered voice list
}

// PiperVoice names one Piper voice model and the language it speaks.
type PiperVoice struct {
	Name     string `mapstructure:"name"`
	Language string `mapstructure:"language"`
}

// AudioConfig controls track assembly and export.
type AudioConfig struct {
	SampleRate  int    `mapstructure:"sample_rate"`
	Channels    int    `mapstructure:"channels"`
	LeadInMS    int    `mapstructure:"lead_in_ms"`
	TurnGapMS   int    `mapstructure:"turn_gap_ms"`
	TailMS      int    `mapstructure:"tail_ms"`
	Bitrate     string `mapstructure:"bitrate"`
	FFmpegPath  string `mapstructure:"ffmpeg_path"`
	TurnTimeout int    `mapstructure:"turn_timeout_seconds"` // 0 disables the per-turn timeout
}

// TurnTimeoutDuration returns the per-turn synthesis timeout.
func (a AudioConfig) TurnTimeoutDuration() time.Duration {
	return time.Duration(a.TurnTimeout) * time.Second
}

// ScriptGenConfig selects and configures the script-writing LLM backend.
type ScriptGenConfig struct {
	Backend string             `mapstructure:"backend"` // "openai" or "local"
	OpenAI  OpenAIScriptConfig `mapstructure:"openai"`
	Local   LocalScriptConfig  `mapstructure:"local"`
}

// OpenAIScriptConfig holds OpenAI API settings for script generation.
type OpenAIScriptConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// LocalScriptConfig holds self-hosted LLM settings (Ollama or any
// OpenAI-compatible chat endpoint).
type LocalScriptConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

// ExtractConfig configures document text extraction.
type ExtractConfig struct {
	MaxChars int       `mapstructure:"max_chars"` // document text handed to the LLM is truncated to this
	OCR      OCRConfig `mapstructure:"ocr"`
}

// OCRConfig holds settings for the OCR fallback service.
type OCRConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./paperwave.yaml, ./configs/paperwave.yaml,
// /etc/paperwave/paperwave.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("server.output_dir", "podcasts")
	v.SetDefault("engine.backend", "xtts")
	v.SetDefault("engine.model_id", "tts_models/multilingual/multi-dataset/xtts_v2")
	v.SetDefault("engine.device", "auto")
	v.SetDefault("engine.xtts.endpoint", "http://localhost:5002")
	v.SetDefault("engine.piper.endpoint", "localhost:10200")
	v.SetDefault("audio.sample_rate", 24000)
	v.SetDefault("audio.channels", 1)
	v.SetDefault("audio.lead_in_ms", 500)
	v.SetDefault("audio.turn_gap_ms", 300)
	v.SetDefault("audio.tail_ms", 1000)
	v.SetDefault("audio.bitrate", "192k")
	v.SetDefault("audio.ffmpeg_path", "ffmpeg")
	v.SetDefault("audio.turn_timeout_seconds", 120)
	v.SetDefault("scriptgen.backend", "openai")
	v.SetDefault("scriptgen.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("scriptgen.openai.model", "gpt-4o")
	v.SetDefault("scriptgen.local.endpoint", "http://localhost:11434/v1/chat/completions")
	v.SetDefault("scriptgen.local.model", "llama3")
	v.SetDefault("extract.max_chars", 4000)
	v.SetDefault("extract.ocr.endpoint", "https://api.mistral.ai/v1/ocr")
	v.SetDefault("extract.ocr.model", "mistral-ocr-latest")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("paperwave")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/paperwave")
	}

	// Environment variables: PAPERWAVE_ENGINE_BACKEND, PAPERWAVE_AUDIO_BITRATE, etc.
	v.SetEnvPrefix("PAPERWAVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional; env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${OPENAI_API_KEY}")
	cfg.ScriptGen.OpenAI.APIKey = resolveEnvRef(cfg.ScriptGen.OpenAI.APIKey)
	cfg.Extract.OCR.APIKey = resolveEnvRef(cfg.Extract.OCR.APIKey)

	return &cfg, nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
