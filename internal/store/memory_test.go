package store

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medpipe/orchestrator/internal/domain"
)

func TestMemoryStoreCreateAndGet(t *testing.T) {
	s := NewMemoryStore()

	id, err := s.Create(&domain.Session{
		PatientID: "P001",
		Symptoms:  "headache",
		Status:    domain.StatusProcessing,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, id, got.SessionID)
	assert.Equal(t, "P001", got.PatientID)
}

func TestMemoryStoreCreateDuplicate(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Create(&domain.Session{SessionID: "s1"})
	require.NoError(t, err)

	_, err = s.Create(&domain.Session{SessionID: "s1"})
	assert.ErrorIs(t, err, ErrSessionExists)
}

func TestMemoryStoreGetUnknown(t *testing.T) {
	s := NewMemoryStore()

	got, err := s.Get("nope")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()

	id, err := s.Create(&domain.Session{
		PatientID:        "P001",
		DrugInteractions: []string{"a+b"},
	})
	require.NoError(t, err)

	first, err := s.Get(id)
	require.NoError(t, err)
	first.PatientID = "tampered"
	first.DrugInteractions[0] = "tampered"

	second, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "P001", second.PatientID)
	assert.Equal(t, []string{"a+b"}, second.DrugInteractions)
}

func TestMemoryStoreMutateCommits(t *testing.T) {
	s := NewMemoryStore()

	id, err := s.Create(&domain.Session{Status: domain.StatusProcessing})
	require.NoError(t, err)

	updated, err := s.Mutate(id, func(sess *domain.Session) error {
		sess.Status = domain.StatusAwaitingApproval
		sess.RiskLevel = domain.RiskHigh
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAwaitingApproval, updated.Status)

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, domain.RiskHigh, got.RiskLevel)
}

func TestMemoryStoreMutateErrorLeavesSessionUnchanged(t *testing.T) {
	s := NewMemoryStore()

	id, err := s.Create(&domain.Session{Status: domain.StatusCompleted, RiskLevel: domain.RiskLow})
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = s.Mutate(id, func(sess *domain.Session) error {
		sess.Status = domain.StatusError
		sess.RiskLevel = domain.RiskCritical
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, domain.RiskLow, got.RiskLevel)
}

func TestMemoryStoreMutateUnknown(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Mutate("nope", func(sess *domain.Session) error { return nil })
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStoreRemove(t *testing.T) {
	s := NewMemoryStore()

	id, err := s.Create(&domain.Session{})
	require.NoError(t, err)

	s.Remove(id)
	_, err = s.Get(id)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Removing again is a no-op.
	s.Remove(id)
}

func TestMemoryStoreMutateSerializedPerSession(t *testing.T) {
	s := NewMemoryStore()

	id, err := s.Create(&domain.Session{})
	require.NoError(t, err)

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := s.Mutate(id, func(sess *domain.Session) error {
				sess.ReprocessingCount++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, workers, got.ReprocessingCount)
}
