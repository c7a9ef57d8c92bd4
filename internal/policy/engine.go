// Package policy decides the review priority of a finished assessment before
// it is surfaced to the human approver.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/medpipe/orchestrator/internal/domain"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.review_policy.priority"),
		rego.Module("review_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// ReviewPriority classifies the pending review for a completed pipeline pass.
// Returns "urgent" or "routine"; unknown policy output falls back to urgent,
// never silently downgrading a review.
func (e *Engine) ReviewPriority(ctx context.Context, session *domain.Session) (string, error) {
	input := map[string]interface{}{
		"risk_level":        session.RiskLevel,
		"exam_priority":     session.ExamPriority,
		"drug_interactions": session.DrugInteractions,
		"contraindications": session.Contraindications,
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return domain.ReviewUrgent, nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return domain.ReviewUrgent, nil
}

// DefaultPolicy is the default review policy content.
const DefaultPolicy = `
package review_policy

default priority := "routine"

priority := "urgent" if {
	input.risk_level == "HIGH"
}

priority := "urgent" if {
	input.risk_level == "CRITICAL"
}

priority := "urgent" if {
	input.exam_priority == "EMERGENCY"
}

priority := "urgent" if {
	count(input.drug_interactions) > 0
}
`
