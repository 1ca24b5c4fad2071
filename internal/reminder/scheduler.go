// Package reminder manages reminders and decides which of them should alert.
//
// A pending reminder alerts while now is inside [dueDate-notifyBefore, dueDate]
// and it has not been alerted within the dedup window. Overdue is always
// computed from the due date, never trusted from stored state.
package reminder

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/baiirun/leadflow/internal/clock"
	"github.com/baiirun/leadflow/internal/model"
)

const defaultParallelism = 8

// Scheduler evaluates alert eligibility.
type Scheduler struct {
	dedup DedupStore
	clock clock.Clock
	limit int
}

// SchedulerOption customizes a Scheduler.
type SchedulerOption func(*Scheduler)

// WithClock overrides the system clock.
func WithClock(c clock.Clock) SchedulerOption {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithParallelism bounds how many reminders Eligibles checks at once.
func WithParallelism(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.limit = n
		}
	}
}

// NewScheduler creates a scheduler. A nil dedup store gets an in-memory one
// with the default window.
func NewScheduler(dedup DedupStore, opts ...SchedulerOption) *Scheduler {
	if dedup == nil {
		dedup = NewMemoryDedup(DefaultDedupWindow)
	}
	s := &Scheduler{dedup: dedup, clock: clock.Real{}, limit: defaultParallelism}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now is the scheduler's current time.
func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}

// Eligible reports whether r should alert now.
func (s *Scheduler) Eligible(ctx context.Context, r model.Reminder) (bool, error) {
	return s.eligibleAt(ctx, r, s.clock.Now())
}

func (s *Scheduler) eligibleAt(ctx context.Context, r model.Reminder, now time.Time) (bool, error) {
	if r.Status != model.ReminderPending || !r.InWindow(now) {
		return false, nil
	}
	recent, err := s.dedup.WasRecentlyAlerted(ctx, r.ID, now)
	if err != nil {
		return false, err
	}
	return !recent, nil
}

// Eligibles returns the eligible subset of rs in input order. Every reminder
// is judged against the same instant.
func (s *Scheduler) Eligibles(ctx context.Context, rs []model.Reminder) ([]model.Reminder, error) {
	now := s.clock.Now()
	keep := make([]bool, len(rs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for i := range rs {
		i := i
		g.Go(func() error {
			ok, err := s.eligibleAt(gctx, rs[i], now)
			if err != nil {
				return err
			}
			keep[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]model.Reminder, 0, len(rs))
	for i, r := range rs {
		if keep[i] {
			out = append(out, r)
		}
	}
	return out, nil
}

// MarkAlerted records that r was alerted at the scheduler's current time.
func (s *Scheduler) MarkAlerted(ctx context.Context, reminderID string) error {
	return s.dedup.MarkAlerted(ctx, reminderID, s.clock.Now())
}
