package llm

import (
	"log"
	"os"
	"time"
)

const (
	// EnvAssessMode is the environment variable name for mode selection.
	EnvAssessMode = "ASSESS_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// NewClient creates a chat completions client based on the ASSESS_MODE
// environment variable. If ASSESS_MODE=MOCK, returns a MockClient; otherwise
// returns a real HTTPClient.
func NewClient(baseURL, apiKey string, timeout time.Duration) Client {
	if os.Getenv(EnvAssessMode) == ModeMock {
		log.Println("ASSESS_MODE=MOCK detected, using mock LLM client")
		return NewMockClient()
	}

	return NewHTTPClient(baseURL, apiKey, timeout)
}
