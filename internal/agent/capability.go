// Package agent implements the four stage capabilities of the assessment
// pipeline. Each capability builds a prompt from the current session state,
// calls the LLM client, and extracts a structured result. LLM failures and
// unparseable output are absorbed locally: the capability returns a
// conservative, safety-biased default instead of failing the pipeline.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/medpipe/orchestrator/internal/domain"
)

// Result is a stage output that knows how to merge itself into the session.
type Result interface {
	Apply(session *domain.Session)
}

// Capability is one stage of the pipeline. Analyze returns an error only for
// unrecoverable failures (missing client, context cancellation); everything
// else is recovered into a conservative default result.
type Capability interface {
	Stage() domain.Stage
	Analyze(ctx context.Context, session *domain.Session) (Result, error)
}

// feedbackSection renders the physician-feedback block injected into a
// stage's prompt on reprocessing passes. Empty when no feedback is present.
func feedbackSection(s *domain.Session, usage string) string {
	if s.PhysicianFeedback == "" {
		return ""
	}
	return fmt.Sprintf(`IMPORTANT - Physician Feedback from Previous Assessment:
%s

Please incorporate this feedback in your %s.
Reprocessing iteration: %d of %d`,
		s.PhysicianFeedback, usage, s.ReprocessingCount, s.MaxReprocessingIterations)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func joinOrDefault(items []string, def string) string {
	if len(items) == 0 {
		return def
	}
	return strings.Join(items, ", ")
}
