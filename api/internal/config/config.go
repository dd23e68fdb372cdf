package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	AppEnv   string
	LogLevel string

	LLMName      string
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string

	DatabaseURL     string
	PromptDir       string
	MarkConcurrency int
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// Load reads the environment, after an optional .env file in the working directory.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:     getEnv("PORT", "8000"),
		AppEnv:   getEnv("APP_ENV", "production"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		LLMName:      strings.ToLower(getEnv("LLM_NAME", "gemini")),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		DatabaseURL:     getEnv("DATABASE_URL", ""),
		PromptDir:       getEnv("PROMPT_DIR", ""),
		MarkConcurrency: getEnvInt("MARK_CONCURRENCY", 4),
	}
}

// Validate checks that the selected model backend has a key.
func (c *Config) Validate() error {
	switch c.LLMName {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("missing required env GEMINI_API_KEY for LLM_NAME=gemini")
		}
	case "gpt", "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("missing required env OPENAI_API_KEY for LLM_NAME=%s", c.LLMName)
		}
	default:
		return fmt.Errorf("unknown LLM_NAME %q; use 'gemini' or 'gpt'", c.LLMName)
	}
	return nil
}

func (c *Config) Development() bool {
	return c.AppEnv == "development" || c.AppEnv == "dev" || c.AppEnv == "local"
}
