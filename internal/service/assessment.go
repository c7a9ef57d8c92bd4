package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/medpipe/orchestrator/internal/domain"
)

// StartAssessment creates a session from the patient inputs and runs the
// first pipeline pass. It returns once the session reaches AWAITING_APPROVAL
// or ERROR.
func (s *Service) StartAssessment(ctx context.Context, req domain.SymptomsRequest) (*domain.Session, error) {
	log.Printf("Starting new patient assessment for patient: %s", req.PatientID)

	maxIterations := s.config.MaxReprocessingIterations
	if maxIterations <= 0 {
		maxIterations = 3
	}

	session := &domain.Session{
		StartTime:                 time.Now(),
		PatientID:                 req.PatientID,
		Symptoms:                  req.Symptoms,
		MedicalHistory:            req.MedicalHistory,
		CurrentMedications:        req.CurrentMedications,
		MaxReprocessingIterations: maxIterations,
		AssessmentHistory:         []string{},
		Status:                    domain.StatusProcessing,
	}

	id, err := s.sessions.Create(session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return s.sessions.Mutate(id, func(sess *domain.Session) error {
		s.runPipeline(ctx, sess)
		return nil
	})
}

// ProcessApproval applies a human decision to a session awaiting approval.
// On rejection with retries remaining it reprocesses the whole pipeline with
// the physician's feedback before returning.
func (s *Service) ProcessApproval(ctx context.Context, sessionID, decision, comments string) (*domain.Session, error) {
	log.Printf("Processing approval for session: %s - Decision: %s", sessionID, decision)

	if decision != string(domain.ApprovalStatusApproved) && decision != string(domain.ApprovalStatusRejected) {
		return nil, ErrInvalidDecision
	}

	return s.sessions.Mutate(sessionID, func(sess *domain.Session) error {
		if sess.Status != domain.StatusAwaitingApproval {
			return ErrNotAwaitingApproval
		}

		sess.ApprovalStatus = domain.ApprovalStatus(decision)
		sess.ApprovalComments = comments

		switch domain.ApprovalStatus(decision) {
		case domain.ApprovalStatusApproved:
			sess.Status = domain.StatusCompleted
			log.Printf("Assessment approved and completed for session: %s", sessionID)

		case domain.ApprovalStatusRejected:
			if sess.ReprocessingCount < sess.MaxReprocessingIterations {
				sess.PhysicianFeedback = comments
				sess.ReprocessingCount++
				snapshotHistory(sess)
				log.Printf("Assessment rejected, initiating reprocessing. Iteration: %d", sess.ReprocessingCount)
				s.reprocessWithFeedback(ctx, sess)
			} else {
				sess.Status = domain.StatusRejected
				log.Printf("WARN: maximum reprocessing iterations reached for session: %s", sessionID)
			}
		}

		if sess.Status.IsTerminal() {
			s.archiveSession(ctx, sess)
		}
		return nil
	})
}

// GetSession returns the last committed state of an active session.
func (s *Service) GetSession(sessionID string) (*domain.Session, error) {
	return s.sessions.Get(sessionID)
}

// RemoveSession evicts a session from the active store. Best effort; no
// error when the identifier is unknown.
func (s *Service) RemoveSession(sessionID string) {
	s.sessions.Remove(sessionID)
	log.Printf("Session removed: %s", sessionID)
}

// GetArchivedSession returns a terminal session from the archive, or nil when
// it was never archived.
func (s *Service) GetArchivedSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	if s.archive == nil {
		return nil, nil
	}
	return s.archive.Get(ctx, sessionID)
}

// ListPatientArchive returns a patient's archived assessments, newest first.
func (s *Service) ListPatientArchive(ctx context.Context, patientID string, limit int) ([]domain.Session, error) {
	if s.archive == nil {
		return []domain.Session{}, nil
	}
	return s.archive.ListByPatient(ctx, patientID, limit)
}

// runPipeline executes the four stages strictly in order, merging each stage
// result into the session before the next stage runs. A stage error here is
// already past the stage's own recovery and fails the whole run.
func (s *Service) runPipeline(ctx context.Context, sess *domain.Session) {
	log.Printf("Executing agent flow for session: %s", sess.SessionID)

	for _, capability := range s.pipeline {
		sess.CurrentAgent = capability.Stage()

		result, err := capability.Analyze(ctx, sess)
		if err != nil {
			log.Printf("ERROR: stage %s failed for session %s: %v", capability.Stage(), sess.SessionID, err)
			sess.Status = domain.StatusError
			sess.ErrorMessage = err.Error()
			s.archiveSession(ctx, sess)
			return
		}
		result.Apply(sess)
	}

	sess.Status = domain.StatusAwaitingApproval
	sess.ApprovalStatus = domain.ApprovalStatusPending
	s.assignReviewPriority(ctx, sess)

	log.Printf("Assessment completed, awaiting human approval")
}

// reprocessWithFeedback clears the previous stage outputs and re-runs the
// pipeline; the physician feedback is already on the session and visible to
// every stage prompt.
func (s *Service) reprocessWithFeedback(ctx context.Context, sess *domain.Session) {
	log.Printf("Reprocessing assessment with physician feedback for session: %s", sess.SessionID)

	clearPreviousResults(sess)
	sess.Status = domain.StatusReprocessing
	s.runPipeline(ctx, sess)
}

// snapshotHistory appends a human-readable record of the rejected iteration
// before its outputs are cleared.
func snapshotHistory(sess *domain.Session) {
	entry := fmt.Sprintf("Iteration %d - Risk: %s, Exams: %d, Physician Feedback: %s",
		sess.ReprocessingCount,
		sess.RiskLevel,
		len(sess.RecommendedLabExams),
		sess.PhysicianFeedback,
	)
	sess.AssessmentHistory = append(sess.AssessmentHistory, entry)
}

// clearPreviousResults wipes every stage output while keeping identity,
// original patient inputs, feedback and history.
func clearPreviousResults(sess *domain.Session) {
	sess.RiskLevel = ""
	sess.SymptomsSummary = ""
	sess.TriageRecommendations = ""
	sess.DrugInteractions = []string{}
	sess.Contraindications = []string{}
	sess.PharmacistRecommendations = ""
	sess.RecommendedLabExams = []string{}
	sess.RecommendedImagingExams = []string{}
	sess.ExamPriority = ""
	sess.ExamRecommendations = ""
	sess.FHIRDocument = ""
	sess.CommunicationText = ""
	sess.ReviewPriority = ""
	sess.ApprovalStatus = domain.ApprovalStatusPending
}

// assignReviewPriority classifies the pending review. Policy failures never
// block the approval gate; the session is flagged urgent instead.
func (s *Service) assignReviewPriority(ctx context.Context, sess *domain.Session) {
	if s.policy == nil {
		return
	}

	priority, err := s.policy.ReviewPriority(ctx, sess)
	if err != nil {
		log.Printf("WARN: review policy evaluation failed for session %s: %v", sess.SessionID, err)
		sess.ReviewPriority = domain.ReviewUrgent
		return
	}
	sess.ReviewPriority = priority
}

// archiveSession copies a terminal session into the audit archive. Best
// effort: a failed archive write is logged, never surfaced.
func (s *Service) archiveSession(ctx context.Context, sess *domain.Session) {
	if s.archive == nil {
		return
	}
	if err := s.archive.Save(ctx, sess); err != nil {
		log.Printf("ERROR: failed to archive session %s: %v", sess.SessionID, err)
	}
}
