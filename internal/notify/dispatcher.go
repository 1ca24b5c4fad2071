// Package notify runs the per-session alert loop: every reminder interval it
// alerts the user's eligible reminders, and every badge interval it recounts
// the user's open reminders.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/baiirun/leadflow/internal/clock"
	"github.com/baiirun/leadflow/internal/logging"
	"github.com/baiirun/leadflow/internal/model"
	"github.com/baiirun/leadflow/internal/reminder"
)

const (
	DefaultReminderInterval = 30 * time.Second
	DefaultBadgeInterval    = 60 * time.Second
)

// ErrRunning is returned by Start when the dispatcher is already running.
var ErrRunning = errors.New("dispatcher already running")

// openStatuses are the stored statuses a session watches.
var openStatuses = []model.ReminderStatus{model.ReminderPending, model.ReminderOverdue}

// ReminderLister fetches a user's reminders by stored status.
type ReminderLister interface {
	ListRemindersForAssignee(ctx context.Context, userID string, statuses []model.ReminderStatus) ([]model.Reminder, error)
}

// Dispatcher alerts one user's reminders until stopped.
type Dispatcher struct {
	userID    string
	reminders ReminderLister
	scheduler *reminder.Scheduler
	sink      Sink
	badges    BadgeSink
	clock     clock.Clock
	logger    logging.Printer

	reminderEvery time.Duration
	badgeEvery    time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithClock sets the clock driving the tickers and badge counts.
func WithClock(c clock.Clock) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.clock = c
		}
	}
}

// WithLogger sets where tick failures are reported.
func WithLogger(l logging.Printer) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithBadgeSink receives badge counts on every badge tick.
func WithBadgeSink(b BadgeSink) Option {
	return func(d *Dispatcher) {
		d.badges = b
	}
}

// WithIntervals overrides the reminder and badge tick periods. Non-positive
// values keep the defaults.
func WithIntervals(reminders, badges time.Duration) Option {
	return func(d *Dispatcher) {
		if reminders > 0 {
			d.reminderEvery = reminders
		}
		if badges > 0 {
			d.badgeEvery = badges
		}
	}
}

// New creates a dispatcher for userID.
func New(userID string, reminders ReminderLister, scheduler *reminder.Scheduler, sink Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		userID:        userID,
		reminders:     reminders,
		scheduler:     scheduler,
		sink:          sink,
		clock:         clock.Real{},
		logger:        logging.Nop{},
		reminderEvery: DefaultReminderInterval,
		badgeEvery:    DefaultBadgeInterval,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Tick alerts every eligible reminder once and returns how many were
// delivered. A reminder whose sink call fails is not marked alerted, so the
// next tick retries it.
func (d *Dispatcher) Tick(ctx context.Context) (int, error) {
	rs, err := d.reminders.ListRemindersForAssignee(ctx, d.userID, openStatuses)
	if err != nil {
		return 0, err
	}
	eligible, err := d.scheduler.Eligibles(ctx, rs)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, r := range eligible {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if err := d.sink.Notify(ctx, r); err != nil {
			d.logger.Printf("notify: sink failed for reminder %s: %v", r.ID, err)
			continue
		}
		sent++
		if err := d.scheduler.MarkAlerted(ctx, r.ID); err != nil {
			d.logger.Printf("notify: failed to record alert for reminder %s: %v", r.ID, err)
		}
	}
	return sent, nil
}

// BadgeTick recounts the user's open reminders and hands the result to the
// badge sink, if any.
func (d *Dispatcher) BadgeTick(ctx context.Context) (Badge, error) {
	rs, err := d.reminders.ListRemindersForAssignee(ctx, d.userID, openStatuses)
	if err != nil {
		return Badge{}, err
	}
	badge := CountBadge(d.userID, rs, d.clock.Now())
	if d.badges != nil && ctx.Err() == nil {
		if err := d.badges.Badge(ctx, badge); err != nil {
			d.logger.Printf("notify: badge sink failed: %v", err)
		}
	}
	return badge, nil
}

// Run ticks immediately and then on both intervals until ctx is cancelled.
// Failures are logged and the next tick retries.
func (d *Dispatcher) Run(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		d.loop(ctx, d.reminderEvery, func(ctx context.Context) error {
			_, err := d.Tick(ctx)
			return err
		})
		return nil
	})
	g.Go(func() error {
		d.loop(ctx, d.badgeEvery, func(ctx context.Context) error {
			_, err := d.BadgeTick(ctx)
			return err
		})
		return nil
	})
	return g.Wait()
}

func (d *Dispatcher) loop(ctx context.Context, every time.Duration, tick func(context.Context) error) {
	ticker := d.clock.NewTicker(every)
	defer ticker.Stop()

	run := func() {
		if err := tick(ctx); err != nil && ctx.Err() == nil {
			d.logger.Printf("notify: tick skipped for user %s: %v", d.userID, err)
		}
	}

	run()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if ctx.Err() != nil {
				return
			}
			run()
		}
	}
}

// Start runs the dispatcher in the background until Stop or until ctx is
// cancelled.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return ErrRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	d.cancel = cancel
	d.done = done

	go func() {
		defer close(done)
		_ = d.Run(ctx)
	}()
	return nil
}

// Stop cancels a running dispatcher and waits for its loops to exit. No sink
// is called after Stop returns. Stop is a no-op if the dispatcher is not
// running.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel, d.done = nil, nil
	d.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
