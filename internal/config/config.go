package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AppPort  string `yaml:"app_port"`
	LogLevel string `yaml:"log_level"`

	SessionTTL   time.Duration `yaml:"session_ttl"`
	ReapInterval time.Duration `yaml:"reap_interval"`

	MaxPages       int    `yaml:"max_pages"`
	MaxImageBytes  int64  `yaml:"max_image_bytes"`
	OCRConcurrency int    `yaml:"ocr_concurrency"`
	OCRLanguage    string `yaml:"ocr_language"`

	StageTimeout      time.Duration `yaml:"stage_timeout"`
	CorrectionEnabled bool          `yaml:"correction_enabled"`

	ChatProvider  string `yaml:"chat_provider"`
	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	OpenAIModel   string `yaml:"openai_model"`
	OllamaBaseURL string `yaml:"ollama_base_url"`
	OllamaModel   string `yaml:"ollama_model"`

	ElevenLabsAPIKey string `yaml:"elevenlabs_api_key"`
	ElevenLabsVoice  string `yaml:"elevenlabs_voice"`
	ElevenLabsModel  string `yaml:"elevenlabs_model"`

	TelemetryExporter string `yaml:"telemetry_exporter"`

	AllowedOrigin   string        `yaml:"allowed_origin"`
	CookieSecure    bool          `yaml:"cookie_secure"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() Config {
	return Config{
		AppPort:  "8000",
		LogLevel: "info",

		SessionTTL:   time.Hour,
		ReapInterval: 5 * time.Minute,

		MaxPages:       15,
		MaxImageBytes:  10 << 20,
		OCRConcurrency: 4,
		OCRLanguage:    "eng",

		StageTimeout:      90 * time.Second,
		CorrectionEnabled: true,

		ChatProvider:  "openai",
		OpenAIBaseURL: "https://api.openai.com/v1",
		OpenAIModel:   "gpt-4o-mini",
		OllamaBaseURL: "http://localhost:11434",
		OllamaModel:   "qwen2.5:7b",

		ElevenLabsModel: "eleven_multilingual_v2",

		TelemetryExporter: "none",

		AllowedOrigin:   "http://localhost:3000",
		CookieSecure:    true,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load resolves configuration from defaults, an optional YAML file named by
// CONFIG_FILE, an optional .env file and finally the process environment.
func Load() (Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	// .env is optional; existing environment variables win over it.
	_ = godotenv.Load()

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.AppPort = envStr("APP_PORT", cfg.AppPort)
	cfg.LogLevel = envStr("LOG_LEVEL", cfg.LogLevel)

	cfg.SessionTTL = envDuration("SESSION_TTL", cfg.SessionTTL)
	cfg.ReapInterval = envDuration("REAP_INTERVAL", cfg.ReapInterval)

	cfg.MaxPages = envInt("MAX_PAGES", cfg.MaxPages)
	cfg.MaxImageBytes = int64(envInt("MAX_IMAGE_BYTES", int(cfg.MaxImageBytes)))
	cfg.OCRConcurrency = envInt("OCR_CONCURRENCY", cfg.OCRConcurrency)
	cfg.OCRLanguage = envStr("OCR_LANGUAGE", cfg.OCRLanguage)

	cfg.StageTimeout = envDuration("STAGE_TIMEOUT", cfg.StageTimeout)
	cfg.CorrectionEnabled = envBool("CORRECTION_ENABLED", cfg.CorrectionEnabled)

	cfg.ChatProvider = strings.ToLower(envStr("CHAT_PROVIDER", cfg.ChatProvider))
	cfg.OpenAIAPIKey = envStr("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIBaseURL = envStr("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.OpenAIModel = envStr("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.OllamaBaseURL = envStr("OLLAMA_BASE_URL", cfg.OllamaBaseURL)
	cfg.OllamaModel = envStr("OLLAMA_MODEL", cfg.OllamaModel)

	cfg.ElevenLabsAPIKey = envStr("ELEVENLABS_API_KEY", cfg.ElevenLabsAPIKey)
	cfg.ElevenLabsVoice = envStr("ELEVENLABS_VOICE", cfg.ElevenLabsVoice)
	cfg.ElevenLabsModel = envStr("ELEVENLABS_MODEL", cfg.ElevenLabsModel)

	cfg.TelemetryExporter = strings.ToLower(envStr("TELEMETRY_EXPORTER", cfg.TelemetryExporter))

	cfg.AllowedOrigin = envStr("ALLOWED_ORIGIN", cfg.AllowedOrigin)
	cfg.CookieSecure = envBool("COOKIE_SECURE", cfg.CookieSecure)
	cfg.ShutdownTimeout = envDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
}

func (c Config) validate() error {
	if port, err := strconv.Atoi(c.AppPort); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("APP_PORT must be between 1 and 65535, got %q", c.AppPort)
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.ReapInterval <= 0 {
		return errors.New("REAP_INTERVAL must be positive")
	}
	if c.MaxPages < 1 {
		return fmt.Errorf("MAX_PAGES must be positive, got %d", c.MaxPages)
	}
	if c.MaxImageBytes < 1 {
		return fmt.Errorf("MAX_IMAGE_BYTES must be positive, got %d", c.MaxImageBytes)
	}
	if c.OCRConcurrency < 1 {
		return fmt.Errorf("OCR_CONCURRENCY must be positive, got %d", c.OCRConcurrency)
	}
	if c.StageTimeout <= 0 {
		return errors.New("STAGE_TIMEOUT must be positive")
	}
	switch c.ChatProvider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("CHAT_PROVIDER must be openai or ollama, got %q", c.ChatProvider)
	}
	switch c.TelemetryExporter {
	case "none", "stdout":
	default:
		return fmt.Errorf("TELEMETRY_EXPORTER must be none or stdout, got %q", c.TelemetryExporter)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// envDuration accepts Go durations ("90s") or a bare number of seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
