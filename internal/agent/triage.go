package agent

import (
	"context"
	"fmt"
	"log"

	"github.com/medpipe/orchestrator/internal/domain"
	"github.com/medpipe/orchestrator/internal/llm"
)

const triagePromptTemplate = `You are a medical triage agent. Analyze the patient information and provide a risk assessment.

Patient Information:
- Patient ID: %s
- Symptoms: %s
- Medical History: %s
- Current Medications: %s

%s

Analyze the symptoms carefully and provide:
1. Risk Level (LOW, MEDIUM, HIGH, or CRITICAL)
2. A concise summary of the symptoms
3. Recommended next steps
4. Whether this case requires urgent attention (true/false)

Respond in JSON format with the following structure:
{
  "riskLevel": "LOW|MEDIUM|HIGH|CRITICAL",
  "symptomsSummary": "brief summary",
  "recommendations": "next steps",
  "urgent": true|false
}

Consider:
- Severity and duration of symptoms
- Patient's medical history
- Potential medication interactions
- Red flags requiring immediate attention

Always prioritize patient safety.`

// TriageAgent is the first stage of the pipeline. It assesses patient
// symptoms and assigns a risk level.
type TriageAgent struct {
	client llm.Client
	model  string
}

// NewTriageAgent creates the triage capability.
func NewTriageAgent(client llm.Client, model string) *TriageAgent {
	return &TriageAgent{client: client, model: model}
}

var _ Capability = (*TriageAgent)(nil)

// Stage returns the pipeline stage this capability implements.
func (a *TriageAgent) Stage() domain.Stage { return domain.StageTriage }

// Analyze runs the triage assessment against the current session state.
func (a *TriageAgent) Analyze(ctx context.Context, s *domain.Session) (Result, error) {
	log.Printf("Starting triage assessment for patient: %s", s.PatientID)

	body, err := complete(ctx, a.client, a.model, a.buildPrompt(s))
	if err != nil {
		if unrecoverable(ctx, err) {
			return nil, fmt.Errorf("triage capability unreachable: %w", err)
		}
		log.Printf("WARN: triage model call failed, using safe default: %v", err)
		return riskResult{domain.RiskAssessment{
			RiskLevel:       domain.RiskMedium,
			SymptomsSummary: "Error during assessment: " + err.Error(),
			Recommendations: "Manual review required due to system error",
			Urgent:          true,
		}}, nil
	}

	assessment := parseRiskAssessment(body)
	log.Printf("Triage completed - Risk Level: %s, Urgent: %t", assessment.RiskLevel, assessment.Urgent)
	return riskResult{assessment}, nil
}

func (a *TriageAgent) buildPrompt(s *domain.Session) string {
	return fmt.Sprintf(triagePromptTemplate,
		orDefault(s.PatientID, "UNKNOWN"),
		orDefault(s.Symptoms, "No symptoms provided"),
		orDefault(s.MedicalHistory, "No history available"),
		joinOrDefault(s.CurrentMedications, "None reported"),
		feedbackSection(s, "new assessment"),
	)
}

func parseRiskAssessment(body string) domain.RiskAssessment {
	cleaned := stripCodeFences(body)
	return domain.RiskAssessment{
		RiskLevel:       extractValue(cleaned, "riskLevel", domain.RiskMedium),
		SymptomsSummary: extractValue(cleaned, "symptomsSummary", "Assessment completed"),
		Recommendations: extractValue(cleaned, "recommendations", "Proceed to next evaluation"),
		Urgent:          extractBool(cleaned, "urgent", false),
	}
}

type riskResult struct {
	domain.RiskAssessment
}

func (r riskResult) Apply(s *domain.Session) {
	s.RiskLevel = r.RiskLevel
	s.SymptomsSummary = r.SymptomsSummary
	s.TriageRecommendations = r.Recommendations
}
