// Package config provides configuration for the assessment orchestrator.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the orchestrator configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// LLM settings
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string
	LLMTimeout time.Duration

	// Assessment settings
	MaxReprocessingIterations int

	// Archive database
	ArchiveDSN string

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		HTTPPort:                  getEnvInt("HTTP_PORT", 8080),
		LLMBaseURL:                getEnv("LLM_BASE_URL", "http://localhost:11434"),
		LLMAPIKey:                 getEnv("LLM_API_KEY", ""),
		LLMModel:                  getEnv("LLM_MODEL", "llama3.1"),
		LLMTimeout:                time.Duration(getEnvInt("LLM_TIMEOUT_MS", 120000)) * time.Millisecond,
		MaxReprocessingIterations: getEnvInt("MAX_REPROCESSING_ITERATIONS", 3),
		ArchiveDSN:                getEnv("ARCHIVE_DSN", "file:assessments.db?cache=shared&mode=rwc"),
		LogLevel:                  getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
