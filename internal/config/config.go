package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds settings read from the environment (and .env, loaded by the root command).
type Config struct {
	Port        string
	LogLevel    string
	LogFormat   string
	MaxUploadMB int

	CaptionProvider      string
	CaptionPrompt        string
	CaptionRatePerMinute int
	CaptionTimeout       time.Duration

	OllamaURL   string
	OllamaModel string

	OpenAIAPIKey string
	OpenAIModel  string

	GeminiAPIKey string
	GeminiModel  string

	SentryDSN         string
	SentryEnvironment string
}

// DefaultCaptionPrompt asks a vision model for a short fine-tuning caption.
const DefaultCaptionPrompt = `Write one caption for this image to be used as a training label for fine-tuning an image generation model.
Describe the subject, setting, lighting and style in a single plain sentence.
Respond with the caption only.`

func Load() Config {
	ollamaURL := getEnv("OLLAMA_URL", "")
	if ollamaURL == "" {
		ollamaURL = getEnv("OLLAMA_HOST", "http://localhost:11434")
	}

	return Config{
		Port:        getEnv("NOCAP_PORT", "8888"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
		MaxUploadMB: getEnvInt("NOCAP_MAX_UPLOAD_MB", 256),

		CaptionProvider:      getEnv("CAPTION_PROVIDER", "ollama"),
		CaptionPrompt:        getEnv("CAPTION_PROMPT", DefaultCaptionPrompt),
		CaptionRatePerMinute: getEnvInt("CAPTION_RATE_PER_MINUTE", 30),
		CaptionTimeout:       time.Duration(getEnvInt("CAPTION_TIMEOUT_SECONDS", 120)) * time.Second,

		OllamaURL:   ollamaURL,
		OllamaModel: getEnv("OLLAMA_MODEL", "llava:13b"),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),

		SentryDSN:         getEnv("SENTRY_DSN", ""),
		SentryEnvironment: getEnv("SENTRY_ENVIRONMENT", "development"),
	}
}

// MaxUploadBytes is the upload size limit in bytes.
func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}

// DefaultModel returns the configured model for provider.
func (c Config) DefaultModel(provider string) string {
	switch provider {
	case "openai":
		return c.OpenAIModel
	case "gemini":
		return c.GeminiModel
	case "ollama":
		return c.OllamaModel
	default:
		return ""
	}
}

func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return defaultValue
	}
	return parsed
}
