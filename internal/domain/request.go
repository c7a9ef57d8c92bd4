package domain

// SymptomsRequest is the request to start a new assessment.
type SymptomsRequest struct {
	PatientID          string   `json:"patientId"`
	Symptoms           string   `json:"symptoms"`
	MedicalHistory     string   `json:"medicalHistory,omitempty"`
	CurrentMedications []string `json:"currentMedications,omitempty"`
}

// ApprovalRequest is a human decision on a session awaiting approval.
type ApprovalRequest struct {
	Decision string `json:"decision"` // APPROVED or REJECTED
	Comments string `json:"comments,omitempty"`
}

// InterruptionInfo describes the human-in-the-loop pause surfaced to the
// reviewer while a session awaits approval.
type InterruptionInfo struct {
	NodeID string `json:"nodeId"`
	Label  string `json:"label"`
	Type   string `json:"type"`
}

// AssessmentResponse is the response envelope for all assessment endpoints.
type AssessmentResponse struct {
	SessionID        string            `json:"sessionId,omitempty"`
	Status           Status            `json:"status"`
	CurrentAgent     Stage             `json:"currentAgent,omitempty"`
	Message          string            `json:"message"`
	InterruptionInfo *InterruptionInfo `json:"interruptionInfo,omitempty"`
	Data             *Session          `json:"data,omitempty"`
}
