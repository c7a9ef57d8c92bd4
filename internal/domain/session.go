package domain

import "time"

// Session is the shared state of one patient assessment run. It is mutated in
// place by the workflow engine across the pipeline stages and any
// reprocessing iterations; patient inputs are never rewritten after creation.
type Session struct {
	// Identity
	SessionID string    `json:"sessionId"`
	StartTime time.Time `json:"startTime"`

	// Initial patient data, immutable after creation
	PatientID          string   `json:"patientId"`
	Symptoms           string   `json:"symptoms"`
	MedicalHistory     string   `json:"medicalHistory"`
	CurrentMedications []string `json:"currentMedications"`

	// Triage stage results
	RiskLevel             string `json:"riskLevel,omitempty"`
	SymptomsSummary       string `json:"symptomsSummary,omitempty"`
	TriageRecommendations string `json:"triageRecommendations,omitempty"`

	// Pharmacist stage results
	DrugInteractions          []string `json:"drugInteractions"`
	Contraindications         []string `json:"contraindications"`
	PharmacistRecommendations string   `json:"pharmacistRecommendations,omitempty"`

	// Exam stage results
	RecommendedLabExams     []string `json:"recommendedLabExams"`
	RecommendedImagingExams []string `json:"recommendedImagingExams"`
	ExamPriority            string   `json:"examPriority,omitempty"`
	ExamRecommendations     string   `json:"examRecommendations,omitempty"`

	// EMR/Comms stage results
	FHIRDocument      string `json:"fhirDocument,omitempty"`
	CommunicationText string `json:"communicationText,omitempty"`

	// Approval control
	ApprovalStatus   ApprovalStatus `json:"approvalStatus,omitempty"`
	ApprovalComments string         `json:"approvalComments,omitempty"`
	ReviewPriority   string         `json:"reviewPriority,omitempty"`

	// Reprocessing control
	ReprocessingCount         int      `json:"reprocessingCount"`
	MaxReprocessingIterations int      `json:"maxReprocessingIterations"`
	PhysicianFeedback         string   `json:"physicianFeedback,omitempty"`
	AssessmentHistory         []string `json:"assessmentHistory"`

	// Flow control
	CurrentAgent Stage  `json:"currentAgent,omitempty"`
	Status       Status `json:"status"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// Clone returns a deep copy of the session. The store hands out clones so
// that no caller can observe or mutate state outside the session lock.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.CurrentMedications = cloneStrings(s.CurrentMedications)
	c.DrugInteractions = cloneStrings(s.DrugInteractions)
	c.Contraindications = cloneStrings(s.Contraindications)
	c.RecommendedLabExams = cloneStrings(s.RecommendedLabExams)
	c.RecommendedImagingExams = cloneStrings(s.RecommendedImagingExams)
	c.AssessmentHistory = cloneStrings(s.AssessmentHistory)
	return &c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
