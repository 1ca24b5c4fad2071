package reminder

import (
	"context"
	"sync"
	"time"

	"github.com/baiirun/leadflow/internal/repository"
)

// DefaultDedupWindow is how long an alerted reminder stays quiet.
const DefaultDedupWindow = 60 * time.Second

// DedupStore remembers when reminders were last alerted. It is best-effort:
// concurrent sessions may both alert the same reminder.
type DedupStore interface {
	WasRecentlyAlerted(ctx context.Context, reminderID string, now time.Time) (bool, error)
	MarkAlerted(ctx context.Context, reminderID string, when time.Time) error
}

func recent(last, now time.Time, window time.Duration) bool {
	return now.Sub(last) < window
}

// MemoryDedup keeps alert times in process memory.
type MemoryDedup struct {
	window time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

// NewMemoryDedup creates an in-memory dedup store. A non-positive window uses
// DefaultDedupWindow.
func NewMemoryDedup(window time.Duration) *MemoryDedup {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &MemoryDedup{window: window, last: make(map[string]time.Time)}
}

func (m *MemoryDedup) WasRecentlyAlerted(_ context.Context, reminderID string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	last, ok := m.last[reminderID]
	return ok && recent(last, now, m.window), nil
}

func (m *MemoryDedup) MarkAlerted(_ context.Context, reminderID string, when time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last[reminderID] = when
	return nil
}

// Forget drops a reminder's alert record.
func (m *MemoryDedup) Forget(reminderID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.last, reminderID)
}

// StoreDedup persists alert times in the record store so they survive restarts
// and are shared between sessions on the same database.
type StoreDedup struct {
	repo   repository.AlertRepository
	window time.Duration
}

// NewStoreDedup creates a persistent dedup store. A non-positive window uses
// DefaultDedupWindow.
func NewStoreDedup(repo repository.AlertRepository, window time.Duration) *StoreDedup {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &StoreDedup{repo: repo, window: window}
}

func (s *StoreDedup) WasRecentlyAlerted(ctx context.Context, reminderID string, now time.Time) (bool, error) {
	last, ok, err := s.repo.LastAlerted(ctx, reminderID)
	if err != nil || !ok {
		return false, err
	}
	return recent(last, now, s.window), nil
}

func (s *StoreDedup) MarkAlerted(ctx context.Context, reminderID string, when time.Time) error {
	return s.repo.MarkAlerted(ctx, reminderID, when)
}
