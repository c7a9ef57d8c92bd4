package agent

import (
	"context"
	"fmt"
	"log"

	"github.com/medpipe/orchestrator/internal/domain"
	"github.com/medpipe/orchestrator/internal/llm"
)

const examPromptTemplate = `You are a diagnostic exam recommendation agent.

Patient Information:
- Patient ID: %s
- Symptoms: %s
- Medical History: %s
- Risk Level: %s
- Triage Recommendations: %s
- Drug Interactions: %s
- Pharmacy Recommendations: %s

%s

Based on the complete patient assessment, recommend appropriate diagnostic exams.

Provide:
1. List of recommended laboratory exams
2. List of recommended imaging exams
3. Priority level (ROUTINE, URGENT, or EMERGENCY)
4. Rationale explaining why these exams are recommended

Respond in JSON format with the following structure:
{
  "laboratoryExams": ["exam1", "exam2"],
  "imagingExams": ["exam1", "exam2"],
  "priority": "ROUTINE|URGENT|EMERGENCY",
  "rationale": "detailed explanation"
}

Consider:
- Symptoms and their severity
- Risk level from triage
- Medication interactions that may require monitoring
- Differential diagnosis possibilities
- Cost-effectiveness and diagnostic value

Prioritize exams that will provide the most diagnostic value.
If symptoms are mild, recommend only essential exams.`

// ExamAgent is the third stage of the pipeline. It recommends diagnostic
// exams from the triage and pharmacy outcomes.
type ExamAgent struct {
	client llm.Client
	model  string
}

// NewExamAgent creates the exam recommendation capability.
func NewExamAgent(client llm.Client, model string) *ExamAgent {
	return &ExamAgent{client: client, model: model}
}

var _ Capability = (*ExamAgent)(nil)

// Stage returns the pipeline stage this capability implements.
func (a *ExamAgent) Stage() domain.Stage { return domain.StageExam }

// Analyze runs the exam recommendation against the current session state.
func (a *ExamAgent) Analyze(ctx context.Context, s *domain.Session) (Result, error) {
	log.Printf("Starting exam recommendations for patient: %s", s.PatientID)

	body, err := complete(ctx, a.client, a.model, a.buildPrompt(s))
	if err != nil {
		if unrecoverable(ctx, err) {
			return nil, fmt.Errorf("exam capability unreachable: %w", err)
		}
		log.Printf("WARN: exam model call failed, using safe default: %v", err)
		return examResult{domain.ExamRecommendations{
			LaboratoryExams: []string{},
			ImagingExams:    []string{},
			Priority:        domain.PriorityUrgent,
			Rationale:       "Error during exam recommendation: " + err.Error() + ". Manual review required.",
		}}, nil
	}

	recommendations := parseExamRecommendations(body)
	log.Printf("Exam recommendations completed - Priority: %s, Lab exams: %d, Imaging: %d",
		recommendations.Priority, len(recommendations.LaboratoryExams), len(recommendations.ImagingExams))
	return examResult{recommendations}, nil
}

func (a *ExamAgent) buildPrompt(s *domain.Session) string {
	return fmt.Sprintf(examPromptTemplate,
		orDefault(s.PatientID, "UNKNOWN"),
		orDefault(s.Symptoms, "No symptoms"),
		orDefault(s.MedicalHistory, "No history"),
		orDefault(s.RiskLevel, "UNKNOWN"),
		orDefault(s.TriageRecommendations, "None"),
		joinOrDefault(s.DrugInteractions, "None identified"),
		orDefault(s.PharmacistRecommendations, "None"),
		feedbackSection(s, "exam recommendations"),
	)
}

func parseExamRecommendations(body string) domain.ExamRecommendations {
	cleaned := stripCodeFences(body)
	return domain.ExamRecommendations{
		LaboratoryExams: extractArray(cleaned, "laboratoryExams"),
		ImagingExams:    extractArray(cleaned, "imagingExams"),
		Priority:        extractValue(cleaned, "priority", domain.PriorityRoutine),
		Rationale:       extractValue(cleaned, "rationale", "Standard diagnostic workup"),
	}
}

type examResult struct {
	domain.ExamRecommendations
}

func (r examResult) Apply(s *domain.Session) {
	s.RecommendedLabExams = r.LaboratoryExams
	s.RecommendedImagingExams = r.ImagingExams
	s.ExamPriority = r.Priority
	s.ExamRecommendations = r.Rationale
}
