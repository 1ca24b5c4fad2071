package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/baiirun/leadflow/internal/logging"
	"github.com/baiirun/leadflow/internal/model"
)

// Sink delivers a reminder alert to the user.
type Sink interface {
	Notify(ctx context.Context, r model.Reminder) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, r model.Reminder) error

func (f SinkFunc) Notify(ctx context.Context, r model.Reminder) error { return f(ctx, r) }

// BadgeSink receives badge counts.
type BadgeSink interface {
	Badge(ctx context.Context, b Badge) error
}

// BadgeFunc adapts a function to BadgeSink.
type BadgeFunc func(ctx context.Context, b Badge) error

func (f BadgeFunc) Badge(ctx context.Context, b Badge) error { return f(ctx, b) }

// MultiSink fans an alert out to every sink. All sinks are called even if
// some fail; the failures are joined.
type MultiSink []Sink

func (m MultiSink) Notify(ctx context.Context, r model.Reminder) error {
	var errs []error
	for _, s := range m {
		if err := s.Notify(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes alerts to a logger.
type LogSink struct {
	Logger logging.Printer
}

func (s LogSink) Notify(_ context.Context, r model.Reminder) error {
	s.Logger.Printf("reminder %s due %s for %s: %s", r.ID, r.DueDate.Format(time.RFC3339), r.AssignedTo, r.Title)
	return nil
}

func (s LogSink) Badge(_ context.Context, b Badge) error {
	s.Logger.Printf("badge for %s: %d pending, %d due now, %d overdue", b.UserID, b.Pending, b.DueNow, b.Overdue)
	return nil
}

var (
	bellStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	titleStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	badgeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	alarmStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))

	priorityStyles = map[model.Priority]lipgloss.Style{
		model.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		model.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		model.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
)

// TerminalSink prints styled alert lines to a terminal.
type TerminalSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTerminalSink writes to w.
func NewTerminalSink(w io.Writer) *TerminalSink {
	return &TerminalSink{w: w}
}

func (s *TerminalSink) Notify(_ context.Context, r model.Reminder) error {
	line := fmt.Sprintf("%s %s %s %s",
		bellStyle.Render("🔔"),
		priorityStyles[r.Priority].Render(fmt.Sprintf("[%s]", r.Priority)),
		titleStyle.Render(r.Title),
		mutedStyle.Render(fmt.Sprintf("lead %s, due %s", r.LeadID, r.DueDate.Local().Format("Jan 2 15:04"))),
	)
	return s.writeLine(line)
}

func (s *TerminalSink) Badge(_ context.Context, b Badge) error {
	overdue := fmt.Sprintf("%d overdue", b.Overdue)
	if b.Overdue > 0 {
		overdue = alarmStyle.Render(overdue)
	}
	line := badgeStyle.Render(fmt.Sprintf("● %d pending, %d due now, ", b.Pending, b.DueNow)) + overdue
	return s.writeLine(line)
}

func (s *TerminalSink) writeLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintln(s.w, line); err != nil {
		return fmt.Errorf("failed to write alert: %w", err)
	}
	return nil
}
