package account

import (
	"context"
	"sync"

	"vatfiler/internal/accounts/models"
	id "vatfiler/pkg/domain"
	"vatfiler/pkg/platform/sentinel"
)

// InMemory keeps accounts in maps keyed by ID and by normalised email.
type InMemory struct {
	mu      sync.RWMutex
	byID    map[id.AccountID]*models.Account
	byEmail map[string]id.AccountID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:    make(map[id.AccountID]*models.Account),
		byEmail: make(map[string]id.AccountID),
	}
}

// CreateIfEmailAvailable stores a when no account holds its email yet. The
// check and the insert happen under one lock.
func (s *InMemory) CreateIfEmailAvailable(_ context.Context, a *models.Account) error {
	key := models.NormalizeEmail(a.Email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[key]; taken {
		return sentinel.ErrConflict
	}
	if _, taken := s.byID[a.ID]; taken {
		return sentinel.ErrConflict
	}
	stored := *a
	s.byID[a.ID] = &stored
	s.byEmail[key] = a.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, accountID id.AccountID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[accountID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	found := *a
	return &found, nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	accountID, ok := s.byEmail[models.NormalizeEmail(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	found := *s.byID[accountID]
	return &found, nil
}

// Count returns the number of stored accounts.
func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}
