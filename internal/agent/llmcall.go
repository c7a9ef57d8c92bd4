package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/medpipe/orchestrator/internal/llm"
)

var errNoClient = errors.New("no LLM client configured")

// complete sends a single-message prompt and returns the assistant text.
func complete(ctx context.Context, client llm.Client, model, prompt string) (string, error) {
	if client == nil {
		return "", errNoClient
	}

	resp, err := client.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
		Model: model,
		Messages: []llm.ChatMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}

	content := resp.Content()
	if content == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return content, nil
}

// unrecoverable reports whether a capability failure must escape stage
// recovery and fail the whole pipeline: a missing client or a cancelled
// context cannot be compensated by a conservative default.
func unrecoverable(ctx context.Context, err error) bool {
	return errors.Is(err, errNoClient) || ctx.Err() != nil
}
