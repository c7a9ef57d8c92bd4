package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MockClient is a canned-response implementation of Client for local runs and
// tests. It inspects the prompt to decide which stage is asking and answers
// with JSON in that stage's expected shape.
type MockClient struct{}

// NewMockClient creates a new mock chat completions client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

var _ Client = (*MockClient)(nil)

// CreateChatCompletion returns a stage-shaped mock response.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content := m.generateMockResponse(req)

	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{
			{
				Index: 0,
				Message: &ChatMessage{
					Role:    "assistant",
					Content: content,
				},
				FinishReason: "stop",
			},
		},
		Usage: &Usage{
			PromptTokens:     m.estimateTokens(req),
			CompletionTokens: len(content) / 4,
			TotalTokens:      m.estimateTokens(req) + len(content)/4,
		},
	}, nil
}

func (m *MockClient) generateMockResponse(req *ChatCompletionRequest) string {
	var prompt string
	for _, msg := range req.Messages {
		prompt += msg.Content
	}

	switch {
	case strings.Contains(prompt, "medical triage agent"):
		return `{
  "riskLevel": "MEDIUM",
  "symptomsSummary": "Mock summary of reported symptoms",
  "recommendations": "Mock triage recommendations",
  "urgent": false
}`
	case strings.Contains(prompt, "pharmacist agent"):
		return `{
  "drugInteractions": ["mock interaction"],
  "contraindications": [],
  "recommendations": "Mock pharmacist recommendations",
  "hasSafetyConcerns": false
}`
	case strings.Contains(prompt, "diagnostic exam recommendation agent"):
		return `{
  "laboratoryExams": ["complete blood count"],
  "imagingExams": ["chest x-ray"],
  "priority": "ROUTINE",
  "rationale": "Mock exam rationale"
}`
	case strings.Contains(prompt, "FHIR documentation"):
		return `{
  "fhirDocument": "{\"resourceType\":\"Bundle\",\"type\":\"document\"}",
  "communicationText": "Mock communication for healthcare providers",
  "documentType": "ASSESSMENT"
}`
	}

	return "{}"
}

func (m *MockClient) estimateTokens(req *ChatCompletionRequest) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Content) / 4
	}
	return total
}
