// Package service implements the assessment workflow engine: the staged
// pipeline, the human approval gate, and the bounded reprocessing loop.
package service

import (
	"errors"

	"github.com/medpipe/orchestrator/internal/agent"
	"github.com/medpipe/orchestrator/internal/archive"
	"github.com/medpipe/orchestrator/internal/config"
	"github.com/medpipe/orchestrator/internal/policy"
	"github.com/medpipe/orchestrator/internal/store"
)

var (
	// ErrNotAwaitingApproval is returned when an approval decision arrives
	// for a session that is not paused at the approval gate. Guards against
	// double approvals and decisions on in-flight or terminal sessions.
	ErrNotAwaitingApproval = errors.New("session is not awaiting approval")

	// ErrInvalidDecision is returned for a decision outside {APPROVED, REJECTED}.
	ErrInvalidDecision = errors.New("decision must be APPROVED or REJECTED")
)

// Service coordinates the four-stage assessment pipeline over the session
// store. All session mutations go through the store's per-session lock, so a
// pipeline run and an approval decision for the same session never overlap.
type Service struct {
	sessions store.SessionStore
	pipeline []agent.Capability
	policy   *policy.Engine
	archive  *archive.SQLiteArchive
	config   *config.Config
}

// New creates the workflow engine. policyEngine and archv may be nil; the
// corresponding steps are then skipped.
func New(sessions store.SessionStore, pipeline []agent.Capability, policyEngine *policy.Engine, archv *archive.SQLiteArchive, cfg *config.Config) *Service {
	return &Service{
		sessions: sessions,
		pipeline: pipeline,
		policy:   policyEngine,
		archive:  archv,
		config:   cfg,
	}
}
