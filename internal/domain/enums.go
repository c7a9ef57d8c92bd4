// Package domain defines the core domain models for the assessment orchestrator.
package domain

// Status represents the overall status of an assessment session.
type Status string

const (
	StatusProcessing       Status = "PROCESSING"
	StatusReprocessing     Status = "REPROCESSING"
	StatusAwaitingApproval Status = "AWAITING_APPROVAL"
	StatusCompleted        Status = "COMPLETED"
	StatusRejected         Status = "REJECTED"
	StatusError            Status = "ERROR"
)

// IsTerminal reports whether the status allows no further transitions.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusError:
		return true
	}
	return false
}

// ApprovalStatus represents the human review status of a session.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "PENDING"
	ApprovalStatusApproved ApprovalStatus = "APPROVED"
	ApprovalStatusRejected ApprovalStatus = "REJECTED"
)

// Stage identifies one step of the fixed four-stage pipeline.
type Stage string

const (
	StageTriage     Stage = "TRIAGE"
	StagePharmacist Stage = "PHARMACIST"
	StageExam       Stage = "EXAM"
	StageEMRComms   Stage = "EMR_COMMS"
)

// Risk levels produced by the triage stage.
const (
	RiskLow      = "LOW"
	RiskMedium   = "MEDIUM"
	RiskHigh     = "HIGH"
	RiskCritical = "CRITICAL"
)

// Exam priority levels produced by the exam stage.
const (
	PriorityRoutine   = "ROUTINE"
	PriorityUrgent    = "URGENT"
	PriorityEmergency = "EMERGENCY"
)

// Review priorities assigned by the review policy before human approval.
const (
	ReviewRoutine = "routine"
	ReviewUrgent  = "urgent"
)
