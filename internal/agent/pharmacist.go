package agent

import (
	"context"
	"fmt"
	"log"

	"github.com/medpipe/orchestrator/internal/domain"
	"github.com/medpipe/orchestrator/internal/llm"
)

const pharmacyPromptTemplate = `You are a pharmacist agent specialized in medication analysis and drug interactions.

Patient Information:
- Patient ID: %s
- Symptoms: %s
- Medical History: %s
- Current Medications: %s
- Risk Level from Triage: %s
- Triage Recommendations: %s

%s

Analyze the patient's medications and provide:
1. List of potential drug interactions (if any)
2. List of contraindications based on symptoms and history
3. Medication recommendations and adjustments
4. Whether there are critical safety concerns (true/false)

Respond in JSON format with the following structure:
{
  "drugInteractions": ["interaction1", "interaction2"],
  "contraindications": ["contraindication1", "contraindication2"],
  "recommendations": "detailed recommendations",
  "hasSafetyConcerns": true|false
}

Consider:
- Drug-drug interactions
- Drug-disease interactions
- Dosage appropriateness
- Potential side effects related to current symptoms
- Age-related considerations

If no medications are reported, focus on medication recommendations based on symptoms.
Always prioritize patient safety.`

// PharmacistAgent is the second stage of the pipeline. It analyzes current
// medications against the triage outcome.
type PharmacistAgent struct {
	client llm.Client
	model  string
}

// NewPharmacistAgent creates the pharmacist capability.
func NewPharmacistAgent(client llm.Client, model string) *PharmacistAgent {
	return &PharmacistAgent{client: client, model: model}
}

var _ Capability = (*PharmacistAgent)(nil)

// Stage returns the pipeline stage this capability implements.
func (a *PharmacistAgent) Stage() domain.Stage { return domain.StagePharmacist }

// Analyze runs the medication analysis against the current session state.
func (a *PharmacistAgent) Analyze(ctx context.Context, s *domain.Session) (Result, error) {
	log.Printf("Starting pharmacy analysis for patient: %s", s.PatientID)

	body, err := complete(ctx, a.client, a.model, a.buildPrompt(s))
	if err != nil {
		if unrecoverable(ctx, err) {
			return nil, fmt.Errorf("pharmacist capability unreachable: %w", err)
		}
		log.Printf("WARN: pharmacy model call failed, using safe default: %v", err)
		return pharmacyResult{domain.PharmacyAnalysis{
			DrugInteractions:  []string{},
			Contraindications: []string{},
			Recommendations:   "Error during analysis: " + err.Error() + ". Manual pharmacy review required.",
			HasSafetyConcerns: true,
		}}, nil
	}

	analysis := parsePharmacyAnalysis(body)
	log.Printf("Pharmacy analysis completed - Safety Concerns: %t, Interactions: %d",
		analysis.HasSafetyConcerns, len(analysis.DrugInteractions))
	return pharmacyResult{analysis}, nil
}

func (a *PharmacistAgent) buildPrompt(s *domain.Session) string {
	return fmt.Sprintf(pharmacyPromptTemplate,
		orDefault(s.PatientID, "UNKNOWN"),
		orDefault(s.Symptoms, "No symptoms"),
		orDefault(s.MedicalHistory, "No history"),
		joinOrDefault(s.CurrentMedications, "None reported"),
		orDefault(s.RiskLevel, "UNKNOWN"),
		orDefault(s.TriageRecommendations, "No recommendations"),
		feedbackSection(s, "medication analysis"),
	)
}

func parsePharmacyAnalysis(body string) domain.PharmacyAnalysis {
	cleaned := stripCodeFences(body)
	return domain.PharmacyAnalysis{
		DrugInteractions:  extractArray(cleaned, "drugInteractions"),
		Contraindications: extractArray(cleaned, "contraindications"),
		Recommendations:   extractValue(cleaned, "recommendations", "No specific recommendations"),
		HasSafetyConcerns: extractBool(cleaned, "hasSafetyConcerns", false),
	}
}

type pharmacyResult struct {
	domain.PharmacyAnalysis
}

func (r pharmacyResult) Apply(s *domain.Session) {
	s.DrugInteractions = r.DrugInteractions
	s.Contraindications = r.Contraindications
	s.PharmacistRecommendations = r.Recommendations
}
