package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medpipe/orchestrator/internal/agent"
	"github.com/medpipe/orchestrator/internal/archive"
	"github.com/medpipe/orchestrator/internal/config"
	"github.com/medpipe/orchestrator/internal/domain"
	"github.com/medpipe/orchestrator/internal/llm"
	"github.com/medpipe/orchestrator/internal/policy"
	"github.com/medpipe/orchestrator/internal/store"
)

// recordingLLM wraps the mock client and keeps every prompt it was sent.
type recordingLLM struct {
	mu      sync.Mutex
	prompts []string
	inner   llm.Client
}

func newRecordingLLM() *recordingLLM {
	return &recordingLLM{inner: llm.NewMockClient()}
}

func (r *recordingLLM) CreateChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	r.mu.Lock()
	for _, msg := range req.Messages {
		r.prompts = append(r.prompts, msg.Content)
	}
	r.mu.Unlock()
	return r.inner.CreateChatCompletion(ctx, req)
}

func (r *recordingLLM) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.prompts))
	copy(out, r.prompts)
	return out
}

func testPipeline(client llm.Client) []agent.Capability {
	const model = "test-model"
	return []agent.Capability{
		agent.NewTriageAgent(client, model),
		agent.NewPharmacistAgent(client, model),
		agent.NewExamAgent(client, model),
		agent.NewEMRCommsAgent(client, model),
	}
}

func newTestService(t *testing.T, client llm.Client) (*Service, *archive.SQLiteArchive) {
	t.Helper()

	policyEngine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)

	arch, err := archive.NewSQLiteArchive(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = arch.Close()
	})

	cfg := &config.Config{MaxReprocessingIterations: 3}
	return New(store.NewMemoryStore(), testPipeline(client), policyEngine, arch, cfg), arch
}

func startTestAssessment(t *testing.T, svc *Service) *domain.Session {
	t.Helper()

	session, err := svc.StartAssessment(context.Background(), domain.SymptomsRequest{
		PatientID:          "P001",
		Symptoms:           "persistent cough and fever",
		MedicalHistory:     "asthma",
		CurrentMedications: []string{"albuterol"},
	})
	require.NoError(t, err)
	return session
}

func TestStartAssessmentReachesApprovalGate(t *testing.T) {
	svc, _ := newTestService(t, llm.NewMockClient())

	session := startTestAssessment(t, svc)

	assert.NotEmpty(t, session.SessionID)
	assert.False(t, session.StartTime.IsZero())
	assert.Equal(t, domain.StatusAwaitingApproval, session.Status)
	assert.Equal(t, domain.ApprovalStatusPending, session.ApprovalStatus)
	assert.Equal(t, domain.StageEMRComms, session.CurrentAgent)

	// Every stage left its output on the session.
	assert.NotEmpty(t, session.RiskLevel)
	assert.NotEmpty(t, session.DrugInteractions)
	assert.NotEmpty(t, session.ExamPriority)
	assert.NotEmpty(t, session.FHIRDocument)

	// The mock pharmacist reports an interaction, so the review is urgent.
	assert.Equal(t, domain.ReviewUrgent, session.ReviewPriority)
}

func TestApproveCompletesSession(t *testing.T) {
	svc, arch := newTestService(t, llm.NewMockClient())
	session := startTestAssessment(t, svc)

	updated, err := svc.ProcessApproval(context.Background(), session.SessionID, "APPROVED", "looks good")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, updated.Status)
	assert.Equal(t, domain.ApprovalStatusApproved, updated.ApprovalStatus)
	assert.Equal(t, "looks good", updated.ApprovalComments)
	assert.Equal(t, 0, updated.ReprocessingCount)

	// Terminal sessions land in the archive.
	archived, err := arch.Get(context.Background(), session.SessionID)
	require.NoError(t, err)
	require.NotNil(t, archived)
	assert.Equal(t, domain.StatusCompleted, archived.Status)
}

func TestApproveCompletedSessionIsInvalidState(t *testing.T) {
	svc, _ := newTestService(t, llm.NewMockClient())
	session := startTestAssessment(t, svc)

	_, err := svc.ProcessApproval(context.Background(), session.SessionID, "APPROVED", "")
	require.NoError(t, err)

	before, err := svc.GetSession(session.SessionID)
	require.NoError(t, err)

	_, err = svc.ProcessApproval(context.Background(), session.SessionID, "APPROVED", "again")
	assert.ErrorIs(t, err, ErrNotAwaitingApproval)

	after, err := svc.GetSession(session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestApproveInvalidDecision(t *testing.T) {
	svc, _ := newTestService(t, llm.NewMockClient())
	session := startTestAssessment(t, svc)

	_, err := svc.ProcessApproval(context.Background(), session.SessionID, "MAYBE", "")
	assert.ErrorIs(t, err, ErrInvalidDecision)

	got, err := svc.GetSession(session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAwaitingApproval, got.Status)
	assert.Equal(t, domain.ApprovalStatusPending, got.ApprovalStatus)
}

func TestApproveUnknownSession(t *testing.T) {
	svc, _ := newTestService(t, llm.NewMockClient())

	_, err := svc.ProcessApproval(context.Background(), "nope", "APPROVED", "")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestRejectTriggersReprocessingWithFeedback(t *testing.T) {
	client := newRecordingLLM()
	svc, _ := newTestService(t, client)
	session := startTestAssessment(t, svc)

	promptsBefore := len(client.recorded())

	updated, err := svc.ProcessApproval(context.Background(), session.SessionID, "REJECTED", "add imaging")
	require.NoError(t, err)

	// One full pipeline re-run, back at the approval gate.
	assert.Equal(t, domain.StatusAwaitingApproval, updated.Status)
	assert.Equal(t, domain.ApprovalStatusPending, updated.ApprovalStatus)
	assert.Equal(t, 1, updated.ReprocessingCount)
	assert.Equal(t, "add imaging", updated.PhysicianFeedback)

	require.Len(t, updated.AssessmentHistory, 1)
	assert.Contains(t, updated.AssessmentHistory[0], "Iteration 1")
	assert.Contains(t, updated.AssessmentHistory[0], "add imaging")

	// All four stages ran again, each seeing the physician feedback.
	newPrompts := client.recorded()[promptsBefore:]
	require.Len(t, newPrompts, 4)
	for _, prompt := range newPrompts {
		assert.Contains(t, prompt, "add imaging")
	}
}

func TestRejectUntilMaxIterations(t *testing.T) {
	svc, arch := newTestService(t, llm.NewMockClient())
	session := startTestAssessment(t, svc)
	ctx := context.Background()

	// Three rejections with retries remaining: each one re-runs the
	// pipeline and returns to the approval gate.
	for i := 1; i <= 3; i++ {
		updated, err := svc.ProcessApproval(ctx, session.SessionID, "REJECTED", "add imaging")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusAwaitingApproval, updated.Status)
		assert.Equal(t, i, updated.ReprocessingCount)
		assert.Len(t, updated.AssessmentHistory, i)
	}

	// No retries remain: the next rejection is terminal, with no further
	// stage execution.
	final, err := svc.ProcessApproval(ctx, session.SessionID, "REJECTED", "still wrong")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, final.Status)
	assert.Equal(t, domain.ApprovalStatusRejected, final.ApprovalStatus)
	assert.Equal(t, 3, final.ReprocessingCount)

	require.Len(t, final.AssessmentHistory, 3)
	for i, entry := range final.AssessmentHistory {
		assert.Contains(t, entry, fmt.Sprintf("Iteration %d", i+1))
	}

	// Original patient inputs survived every cycle.
	assert.Equal(t, "P001", final.PatientID)
	assert.Equal(t, "persistent cough and fever", final.Symptoms)
	assert.Equal(t, []string{"albuterol"}, final.CurrentMedications)

	// A rejection on a terminal session is invalid-state.
	_, err = svc.ProcessApproval(ctx, session.SessionID, "REJECTED", "")
	assert.ErrorIs(t, err, ErrNotAwaitingApproval)

	archived, err := arch.Get(ctx, session.SessionID)
	require.NoError(t, err)
	require.NotNil(t, archived)
	assert.Equal(t, domain.StatusRejected, archived.Status)
}

func TestReprocessingCountNeverExceedsMax(t *testing.T) {
	svc, _ := newTestService(t, llm.NewMockClient())
	session := startTestAssessment(t, svc)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		updated, err := svc.ProcessApproval(ctx, session.SessionID, "REJECTED", "no")
		if err != nil {
			assert.ErrorIs(t, err, ErrNotAwaitingApproval)
			break
		}
		assert.LessOrEqual(t, updated.ReprocessingCount, updated.MaxReprocessingIterations)
	}

	final, err := svc.GetSession(session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, final.Status)
	assert.Equal(t, final.MaxReprocessingIterations, final.ReprocessingCount)
}

func TestPipelineFatalErrorMovesSessionToError(t *testing.T) {
	// A triage agent without a client fails past stage recovery.
	policyEngine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)

	svc := New(store.NewMemoryStore(), testPipeline(nil), policyEngine, nil, &config.Config{MaxReprocessingIterations: 3})

	session, err := svc.StartAssessment(context.Background(), domain.SymptomsRequest{
		PatientID: "P001",
		Symptoms:  "headache",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, session.Status)
	assert.NotEmpty(t, session.ErrorMessage)

	// The session stays retrievable but cannot be approved.
	got, err := svc.GetSession(session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, got.Status)

	_, err = svc.ProcessApproval(context.Background(), session.SessionID, "APPROVED", "")
	assert.ErrorIs(t, err, ErrNotAwaitingApproval)
}

func TestConcurrentApprovalsExactlyOneWins(t *testing.T) {
	svc, _ := newTestService(t, llm.NewMockClient())
	session := startTestAssessment(t, svc)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.ProcessApproval(context.Background(), session.SessionID, "APPROVED", "ok")
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrNotAwaitingApproval)
		}
	}
	assert.Equal(t, 1, winners)

	got, err := svc.GetSession(session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
}

func TestConcurrentApproveAndRejectAtLimit(t *testing.T) {
	svc, _ := newTestService(t, llm.NewMockClient())
	session := startTestAssessment(t, svc)
	ctx := context.Background()

	// Exhaust the retries so both decisions are terminal.
	for i := 0; i < 3; i++ {
		_, err := svc.ProcessApproval(ctx, session.SessionID, "REJECTED", "add imaging")
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	decisions := []string{"APPROVED", "REJECTED"}
	wg.Add(2)
	for i, decision := range decisions {
		go func(i int, decision string) {
			defer wg.Done()
			_, errs[i] = svc.ProcessApproval(ctx, session.SessionID, decision, "racing")
		}(i, decision)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrNotAwaitingApproval)
		}
	}
	assert.Equal(t, 1, winners)

	// The committed state matches exactly one of the two decisions.
	got, err := svc.GetSession(session.SessionID)
	require.NoError(t, err)
	assert.True(t, got.Status == domain.StatusCompleted || got.Status == domain.StatusRejected)
	assert.Equal(t, 3, got.ReprocessingCount)
}

func TestConcurrentSessionsAreIndependent(t *testing.T) {
	svc, _ := newTestService(t, llm.NewMockClient())

	const n = 8
	var wg sync.WaitGroup
	ids := make([]string, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			session, err := svc.StartAssessment(context.Background(), domain.SymptomsRequest{
				PatientID: "P00" + string(rune('0'+i)),
				Symptoms:  "fatigue",
			})
			assert.NoError(t, err)
			ids[i] = session.SessionID
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, id := range ids {
		require.NotEmpty(t, id)
		assert.False(t, seen[id], "duplicate session id %s", id)
		seen[id] = true

		got, err := svc.GetSession(id)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusAwaitingApproval, got.Status)
	}
}

func TestGetSessionUnknown(t *testing.T) {
	svc, _ := newTestService(t, llm.NewMockClient())

	_, err := svc.GetSession("never-created")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestRemoveSession(t *testing.T) {
	svc, _ := newTestService(t, llm.NewMockClient())
	session := startTestAssessment(t, svc)

	svc.RemoveSession(session.SessionID)
	_, err := svc.GetSession(session.SessionID)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)

	// Best effort: removing again is fine.
	svc.RemoveSession(session.SessionID)
}

func TestArchivedSessionRetrievableAfterEviction(t *testing.T) {
	svc, _ := newTestService(t, llm.NewMockClient())
	session := startTestAssessment(t, svc)
	ctx := context.Background()

	_, err := svc.ProcessApproval(ctx, session.SessionID, "APPROVED", "")
	require.NoError(t, err)
	svc.RemoveSession(session.SessionID)

	archived, err := svc.GetArchivedSession(ctx, session.SessionID)
	require.NoError(t, err)
	require.NotNil(t, archived)
	assert.Equal(t, domain.StatusCompleted, archived.Status)

	list, err := svc.ListPatientArchive(ctx, "P001", 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
