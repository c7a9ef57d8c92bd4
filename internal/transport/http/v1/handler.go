// Package v1 provides HTTP handlers for the assessment orchestrator.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medpipe/orchestrator/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Assessment lifecycle
	e.POST("/v1/assessments", h.StartAssessment)
	e.GET("/v1/assessments/:session_id", h.GetAssessment)
	e.POST("/v1/assessments/:session_id/approval", h.SubmitApproval)
	e.DELETE("/v1/assessments/:session_id", h.DeleteAssessment)

	// Audit archive (terminal sessions)
	e.GET("/v1/assessments/:session_id/archive", h.GetArchivedAssessment)
	e.GET("/v1/patients/:patient_id/assessments", h.ListPatientAssessments)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
