package agent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/medpipe/orchestrator/internal/domain"
	"github.com/medpipe/orchestrator/internal/llm"
)

const emrPromptTemplate = `You are responsible for generating accurate FHIR documentation and healthcare communications.

Complete Patient Assessment:
- Patient ID: %s
- Symptoms: %s
- Medical History: %s
- Current Medications: %s

Triage Assessment:
- Risk Level: %s
- Summary: %s
- Recommendations: %s

Pharmacy Analysis:
- Drug Interactions: %s
- Contraindications: %s
- Recommendations: %s

Exam Recommendations:
- Laboratory Exams: %s
- Imaging Exams: %s
- Priority: %s
- Rationale: %s

%s
%s

Generate:
1. A FHIR-formatted document (simplified JSON structure)
2. A clear communication text for healthcare providers
3. Document type (ASSESSMENT, REFERRAL, or PRESCRIPTION)

Respond in JSON format with the following structure:
{
  "fhirDocument": {"resourceType": "Bundle", "type": "document", "entry": []},
  "communicationText": "clear summary for the care team",
  "documentType": "ASSESSMENT|REFERRAL|PRESCRIPTION"
}

The documentation will be reviewed by a physician before release.
Be accurate and complete; never invent findings that are not in the assessment.`

// EMRCommsAgent is the fourth and final stage of the pipeline. It
// consolidates all prior stage outputs into FHIR documentation and a
// communication text, which then requires human approval.
type EMRCommsAgent struct {
	client llm.Client
	model  string
}

// NewEMRCommsAgent creates the documentation capability.
func NewEMRCommsAgent(client llm.Client, model string) *EMRCommsAgent {
	return &EMRCommsAgent{client: client, model: model}
}

var _ Capability = (*EMRCommsAgent)(nil)

// Stage returns the pipeline stage this capability implements.
func (a *EMRCommsAgent) Stage() domain.Stage { return domain.StageEMRComms }

// Analyze generates the FHIR documentation from the full session state.
func (a *EMRCommsAgent) Analyze(ctx context.Context, s *domain.Session) (Result, error) {
	log.Printf("Starting FHIR documentation for patient: %s", s.PatientID)

	body, err := complete(ctx, a.client, a.model, a.buildPrompt(s))
	if err != nil {
		if unrecoverable(ctx, err) {
			return nil, fmt.Errorf("EMR/Comms capability unreachable: %w", err)
		}
		log.Printf("WARN: EMR/Comms model call failed, using safe default: %v", err)
		return documentationResult{domain.FHIRDocumentation{
			FHIRDocument:      fmt.Sprintf(`{"error": "Failed to generate FHIR document: %s"}`, err.Error()),
			CommunicationText: "ERROR: Documentation generation failed. Manual review required.",
			DocumentType:      "ASSESSMENT",
		}}, nil
	}

	documentation := parseFHIRDocumentation(body)
	log.Printf("FHIR documentation generated - Type: %s", documentation.DocumentType)
	return documentationResult{documentation}, nil
}

func (a *EMRCommsAgent) buildPrompt(s *domain.Session) string {
	return fmt.Sprintf(emrPromptTemplate,
		orDefault(s.PatientID, "UNKNOWN"),
		orDefault(s.Symptoms, "No symptoms"),
		orDefault(s.MedicalHistory, "No history"),
		joinOrDefault(s.CurrentMedications, "None"),
		orDefault(s.RiskLevel, "UNKNOWN"),
		orDefault(s.SymptomsSummary, "N/A"),
		orDefault(s.TriageRecommendations, "None"),
		joinOrDefault(s.DrugInteractions, "None"),
		joinOrDefault(s.Contraindications, "None"),
		orDefault(s.PharmacistRecommendations, "None"),
		joinOrDefault(s.RecommendedLabExams, "None"),
		joinOrDefault(s.RecommendedImagingExams, "None"),
		orDefault(s.ExamPriority, domain.PriorityRoutine),
		orDefault(s.ExamRecommendations, "N/A"),
		reprocessingInfoSection(s),
		emrFeedbackSection(s),
	)
}

// reprocessingInfoSection summarizes prior iterations so the documentation
// reflects the full review trail.
func reprocessingInfoSection(s *domain.Session) string {
	if s.ReprocessingCount == 0 {
		return ""
	}
	history := "None"
	if len(s.AssessmentHistory) > 0 {
		history = strings.Join(s.AssessmentHistory, "; ")
	}
	return fmt.Sprintf(`Reprocessing Information:
- Current iteration: %d of %d
- Assessment history: %s`,
		s.ReprocessingCount, s.MaxReprocessingIterations, history)
}

func emrFeedbackSection(s *domain.Session) string {
	if s.ReprocessingCount == 0 || s.PhysicianFeedback == "" {
		return ""
	}
	return fmt.Sprintf(`CRITICAL - Physician Feedback that MUST be addressed:
%s

Ensure the new documentation addresses all physician concerns.`,
		s.PhysicianFeedback)
}

func parseFHIRDocumentation(body string) domain.FHIRDocumentation {
	cleaned := stripCodeFences(body)

	fhirDoc := extractNestedObject(cleaned, "fhirDocument")
	if fhirDoc == "" {
		fhirDoc = `{"resourceType": "Bundle", "type": "document"}`
	}

	return domain.FHIRDocumentation{
		FHIRDocument:      fhirDoc,
		CommunicationText: extractValue(cleaned, "communicationText", "Documentation generated"),
		DocumentType:      extractValue(cleaned, "documentType", "ASSESSMENT"),
	}
}

type documentationResult struct {
	domain.FHIRDocumentation
}

func (r documentationResult) Apply(s *domain.Session) {
	s.FHIRDocument = r.FHIRDocument
	s.CommunicationText = r.CommunicationText
}
