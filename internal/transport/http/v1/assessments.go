package v1

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/medpipe/orchestrator/internal/domain"
	"github.com/medpipe/orchestrator/internal/service"
	"github.com/medpipe/orchestrator/internal/store"
)

// StartAssessment submits patient symptoms and runs the assessment pipeline.
// The call is synchronous: it returns once the session is awaiting approval
// or has failed.
// POST /v1/assessments
func (h *Handler) StartAssessment(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.SymptomsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	if req.PatientID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "patientId is required"})
	}
	if req.Symptoms == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "symptoms is required"})
	}

	log.Printf("Received symptoms submission for patient: %s", req.PatientID)

	session, err := h.service.StartAssessment(ctx, req)
	if err != nil {
		log.Printf("ERROR: failed to process symptoms submission: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, buildResponse(session))
}

// SubmitApproval applies a human approval decision to a session.
// POST /v1/assessments/:session_id/approval
func (h *Handler) SubmitApproval(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("session_id")

	var req domain.ApprovalRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	log.Printf("Received approval for session: %s - Decision: %s", sessionID, req.Decision)

	session, err := h.service.ProcessApproval(ctx, sessionID, req.Decision, req.Comments)
	if err != nil {
		return approvalError(c, sessionID, err)
	}

	return c.JSON(http.StatusOK, buildResponse(session))
}

// GetAssessment returns the current state of an active session.
// GET /v1/assessments/:session_id
func (h *Handler) GetAssessment(c echo.Context) error {
	sessionID := c.Param("session_id")

	session, err := h.service.GetSession(sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found: " + sessionID})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, buildResponse(session))
}

// DeleteAssessment evicts a session from the active store.
// DELETE /v1/assessments/:session_id
func (h *Handler) DeleteAssessment(c echo.Context) error {
	sessionID := c.Param("session_id")

	h.service.RemoveSession(sessionID)

	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// GetArchivedAssessment returns a terminal session from the audit archive.
// GET /v1/assessments/:session_id/archive
func (h *Handler) GetArchivedAssessment(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("session_id")

	session, err := h.service.GetArchivedSession(ctx, sessionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if session == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "archived session not found: " + sessionID})
	}

	return c.JSON(http.StatusOK, buildResponse(session))
}

// ListPatientAssessments returns a patient's archived assessments, newest first.
// GET /v1/patients/:patient_id/assessments
func (h *Handler) ListPatientAssessments(c echo.Context) error {
	ctx := c.Request().Context()
	patientID := c.Param("patient_id")

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
		}
		limit = parsed
	}

	sessions, err := h.service.ListPatientArchive(ctx, patientID, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"patientId":   patientID,
		"assessments": sessions,
	})
}

func approvalError(c echo.Context, sessionID string, err error) error {
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found: " + sessionID})
	case errors.Is(err, service.ErrNotAwaitingApproval):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidDecision):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: failed to process approval for session %s: %v", sessionID, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

// buildResponse wraps a session in the response envelope with a
// status-specific message and, while awaiting approval, the interruption
// block for the reviewer.
func buildResponse(session *domain.Session) domain.AssessmentResponse {
	resp := domain.AssessmentResponse{
		SessionID:    session.SessionID,
		Status:       session.Status,
		CurrentAgent: session.CurrentAgent,
		Data:         session,
	}

	switch session.Status {
	case domain.StatusProcessing:
		resp.Message = fmt.Sprintf("Assessment in progress. Current agent: %s", session.CurrentAgent)
	case domain.StatusReprocessing:
		resp.Message = fmt.Sprintf("Reprocessing assessment based on physician feedback. Iteration %d of %d.",
			session.ReprocessingCount, session.MaxReprocessingIterations)
	case domain.StatusAwaitingApproval:
		resp.Message = "Assessment completed. Awaiting human approval for FHIR documentation."
		if session.ReprocessingCount > 0 {
			resp.Message = fmt.Sprintf("Reprocessed assessment ready (iteration %d). Please review and approve or provide additional feedback.",
				session.ReprocessingCount)
		}
		resp.InterruptionInfo = &domain.InterruptionInfo{
			NodeID: "emr_comms_approval",
			Label:  "Approve FHIR documentation and communications?",
			Type:   "fhir_approval",
		}
	case domain.StatusCompleted:
		resp.Message = "Assessment completed and approved."
		if session.ReprocessingCount > 0 {
			resp.Message = fmt.Sprintf("Assessment completed and approved after %d reprocessing iteration(s).",
				session.ReprocessingCount)
		}
	case domain.StatusRejected:
		resp.Message = "Assessment rejected by approver."
		if session.ReprocessingCount >= session.MaxReprocessingIterations {
			resp.Message = fmt.Sprintf("Assessment rejected. Maximum reprocessing iterations (%d) reached.",
				session.MaxReprocessingIterations)
		}
	case domain.StatusError:
		resp.Message = "Error during assessment: " + session.ErrorMessage
	default:
		resp.Message = "Unknown status"
	}

	return resp
}
