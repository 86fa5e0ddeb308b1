package httpapi

import (
	"context"
	"sync"
	"time"

	"binanceTracker/internal/domain"
)

// SnapshotStore keeps the outcome of the most recent poll cycle. It is a
// ports.SnapshotPresenter, so the tracker feeds it like any other view.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshot  *domain.MarketSnapshot
	lastErr   error
	updatedAt time.Time
	now       func() time.Time
}

// NewSnapshotStore creates an empty store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{now: time.Now}
}

// Present records a successful cycle and clears any previous failure.
func (s *SnapshotStore) Present(_ context.Context, snapshot *domain.MarketSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot
	s.lastErr = nil
	s.updatedAt = s.now().UTC()
}

// PresentFailure records a failed cycle. The previous snapshot is kept but no
// longer served as current.
func (s *SnapshotStore) PresentFailure(_ context.Context, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	s.updatedAt = s.now().UTC()
}

// Latest returns the current snapshot and the error of the last cycle.
func (s *SnapshotStore) Latest() (*domain.MarketSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.lastErr
}

// UpdatedAt returns when the last cycle outcome was recorded.
func (s *SnapshotStore) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}
