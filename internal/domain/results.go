package domain

// RiskAssessment is the structured result of the triage stage.
type RiskAssessment struct {
	RiskLevel       string `json:"riskLevel"`
	SymptomsSummary string `json:"symptomsSummary"`
	Recommendations string `json:"recommendations"`
	Urgent          bool   `json:"urgent"`
}

// PharmacyAnalysis is the structured result of the pharmacist stage.
type PharmacyAnalysis struct {
	DrugInteractions  []string `json:"drugInteractions"`
	Contraindications []string `json:"contraindications"`
	Recommendations   string   `json:"recommendations"`
	HasSafetyConcerns bool     `json:"hasSafetyConcerns"`
}

// ExamRecommendations is the structured result of the exam stage.
type ExamRecommendations struct {
	LaboratoryExams []string `json:"laboratoryExams"`
	ImagingExams    []string `json:"imagingExams"`
	Priority        string   `json:"priority"`
	Rationale       string   `json:"rationale"`
}

// FHIRDocumentation is the structured result of the EMR/Comms stage.
type FHIRDocumentation struct {
	FHIRDocument      string `json:"fhirDocument"`
	CommunicationText string `json:"communicationText"`
	DocumentType      string `json:"documentType"`
}
