package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/baiirun/leadflow/internal/logging"
	"github.com/baiirun/leadflow/internal/model"
)

func TestMultiSink(t *testing.T) {
	var calls []string
	ok := SinkFunc(func(_ context.Context, r model.Reminder) error {
		calls = append(calls, "ok:"+r.ID)
		return nil
	})
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	failA := SinkFunc(func(context.Context, model.Reminder) error { return errA })
	failB := SinkFunc(func(context.Context, model.Reminder) error { return errB })

	err := MultiSink{failA, ok, failB}.Notify(context.Background(), model.Reminder{ID: "rm-1"})
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("expected both failures joined, got %v", err)
	}
	if len(calls) != 1 || calls[0] != "ok:rm-1" {
		t.Errorf("healthy sink calls = %v", calls)
	}

	if err := (MultiSink{ok}).Notify(context.Background(), model.Reminder{ID: "rm-2"}); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestTerminalSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewTerminalSink(&buf)

	r := model.Reminder{ID: "rm-1", LeadID: "lead-9", Title: "Call Dana", Priority: model.PriorityHigh, DueDate: due}
	if err := s.Notify(context.Background(), r); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if err := s.Badge(context.Background(), Badge{Pending: 3, DueNow: 1, Overdue: 2}); err != nil {
		t.Fatalf("badge: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Call Dana", "high", "lead-9", "3 pending", "1 due now", "2 overdue"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if lines := strings.Count(out, "\n"); lines != 2 {
		t.Errorf("expected 2 lines, got %d", lines)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestTerminalSink_WriteError(t *testing.T) {
	s := NewTerminalSink(failingWriter{})
	if err := s.Notify(context.Background(), model.Reminder{Title: "x"}); err == nil {
		t.Error("expected write error")
	}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	s := LogSink{Logger: logging.NewWriter(&buf)}

	_ = s.Notify(context.Background(), model.Reminder{ID: "rm-7", Title: "Renewal", AssignedTo: "us-1", DueDate: due})
	_ = s.Badge(context.Background(), Badge{UserID: "us-1", Pending: 1})

	out := buf.String()
	if !strings.Contains(out, "reminder rm-7") || !strings.Contains(out, "Renewal") {
		t.Errorf("unexpected reminder log: %q", out)
	}
	if !strings.Contains(out, "badge for us-1: 1 pending") {
		t.Errorf("unexpected badge log: %q", out)
	}
}

func TestCountBadge(t *testing.T) {
	now := due.Add(-10 * time.Minute)
	rs := []model.Reminder{
		{Status: model.ReminderPending, DueDate: due, NotifyBefore: 30},
		{Status: model.ReminderPending, DueDate: due, NotifyBefore: 5},
		{Status: model.ReminderPending, DueDate: now.Add(-time.Second)},
		{Status: model.ReminderOverdue, DueDate: now.Add(-time.Hour)},
		{Status: model.ReminderCompleted, DueDate: now.Add(-time.Hour)},
	}

	b := CountBadge("us-1", rs, now)
	want := Badge{UserID: "us-1", Pending: 2, DueNow: 1, Overdue: 2, At: now}
	if b != want {
		t.Errorf("CountBadge = %+v, want %+v", b, want)
	}
	if b.Total() != 4 {
		t.Errorf("Total = %d, want 4", b.Total())
	}
}
