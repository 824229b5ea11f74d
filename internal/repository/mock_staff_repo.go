package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/notifyhub/orderpush/internal/domain"
)

// MockStaffRepository is a hand-written, in-memory implementation of
// StaffRepository used in unit tests. No mock-generation library needed.
type MockStaffRepository struct {
	mu    sync.RWMutex
	staff map[string]*domain.StaffRecord

	// Optional error overrides: set in tests to simulate failure paths.
	QueryErr error
	GetErr   error
	ClearErr error

	// Call counters for asserting which collaborators ran.
	QueryCalls int
	ClearCalls int
}

func NewMockStaffRepository() *MockStaffRepository {
	return &MockStaffRepository{staff: make(map[string]*domain.StaffRecord)}
}

func (m *MockStaffRepository) QueryActiveRecipients(_ context.Context, role string, routingKeys []string) ([]domain.Recipient, error) {
	m.mu.Lock()
	m.QueryCalls++
	m.mu.Unlock()
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}

	want := make(map[string]struct{}, len(routingKeys))
	for _, k := range routingKeys {
		want[k] = struct{}{}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []domain.Recipient
	for _, s := range m.staff {
		if s.Role != role || !s.Active || !intersects(s.BranchIDs, want) {
			continue
		}
		rc := domain.Recipient{IdentityID: s.ID, Active: s.Active}
		if s.PushToken != nil {
			rc.Credential = *s.PushToken
		}
		result = append(result, rc)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].IdentityID < result[j].IdentityID })
	return result, nil
}

func (m *MockStaffRepository) GetByID(_ context.Context, id string) (*domain.StaffRecord, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.staff[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *s
	return &clone, nil
}

func (m *MockStaffRepository) ClearCredential(_ context.Context, identityID, credential string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClearCalls++
	if m.ClearErr != nil {
		return false, m.ClearErr
	}
	s, ok := m.staff[identityID]
	if !ok || s.PushToken == nil || *s.PushToken != credential {
		return false, nil
	}
	now := time.Now().UTC()
	s.PushToken = nil
	s.PushTokenInvalidated = &now
	s.UpdatedAt = now
	return true, nil
}

func (m *MockStaffRepository) Upsert(_ context.Context, s *domain.StaffRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *s
	m.staff[s.ID] = &clone
	return nil
}

// Seed adds an active staff member; an empty token stores no credential.
func (m *MockStaffRepository) Seed(id, role, token string, branchIDs ...string) {
	s := &domain.StaffRecord{ID: id, Role: role, Active: true, BranchIDs: branchIDs}
	if token != "" {
		s.PushToken = &token
	}
	_ = m.Upsert(context.Background(), s)
}

// Token returns the stored credential for id, or "" when cleared.
func (m *MockStaffRepository) Token(id string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.staff[id]; ok && s.PushToken != nil {
		return *s.PushToken
	}
	return ""
}

func intersects(have []string, want map[string]struct{}) bool {
	for _, k := range have {
		if _, ok := want[k]; ok {
			return true
		}
	}
	return false
}
