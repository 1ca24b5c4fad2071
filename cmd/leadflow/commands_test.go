package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/baiirun/leadflow/internal/config"
	"github.com/baiirun/leadflow/internal/model"
	"github.com/baiirun/leadflow/internal/notify"
	"github.com/baiirun/leadflow/internal/reminder"
)

func TestParseDue(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"+90m", now.Add(90 * time.Minute)},
		{"+1h30m", now.Add(90 * time.Minute)},
		{"2026-04-02T09:00:00Z", time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)},
		{"2026-04-02 09:00", time.Date(2026, 4, 2, 9, 0, 0, 0, time.Local)},
		{"2026-04-02", time.Date(2026, 4, 2, 0, 0, 0, 0, time.Local)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDue(tt.in, now)
			if err != nil {
				t.Fatalf("parseDue(%q): %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("parseDue(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	for _, bad := range []string{"", "tomorrow", "+soon", "04/02/2026"} {
		if _, err := parseDue(bad, now); err == nil {
			t.Errorf("parseDue(%q) should fail", bad)
		}
	}
}

// setFlags assigns reminder flags for one test and restores them after.
func setFlags(t *testing.T, due, assign, priority string, notifyBefore int) {
	t.Helper()
	flagDue, flagAssign, flagPriority, flagNotifyBefore = due, assign, priority, notifyBefore
	t.Cleanup(func() {
		flagDue, flagAssign, flagPriority, flagNotifyBefore = "", "", "", 0
	})
}

func TestAddReminder_DefaultsToCurrentUser(t *testing.T) {
	a, _ := setupApp(t)
	setFlags(t, "+2h", "", "HIGH", 30)

	r, err := addReminder(context.Background(), a, "lead-1", "Send contract")
	if err != nil {
		t.Fatalf("addReminder: %v", err)
	}
	if r.AssignedTo != "us-1" || r.CreatedBy != "us-1" {
		t.Errorf("assigned = %q created = %q, want us-1", r.AssignedTo, r.CreatedBy)
	}
	if r.Priority != model.PriorityHigh {
		t.Errorf("priority = %q, want high", r.Priority)
	}
	if !r.DueDate.Equal(testNow.Add(2 * time.Hour)) {
		t.Errorf("due = %v, want %v", r.DueDate, testNow.Add(2*time.Hour))
	}
	if r.NotifyBefore != 30 {
		t.Errorf("notifyBefore = %d, want 30", r.NotifyBefore)
	}
}

func TestAddReminder_Errors(t *testing.T) {
	t.Run("missing due", func(t *testing.T) {
		a, _ := setupApp(t)
		setFlags(t, "", "", "", 0)
		if _, err := addReminder(context.Background(), a, "lead-1", "x"); err == nil {
			t.Error("expected --due error")
		}
	})

	t.Run("no user", func(t *testing.T) {
		a, _ := setupApp(t, func(c *config.Config) { c.User = "" })
		setFlags(t, "+1h", "", "", 0)
		_, err := addReminder(context.Background(), a, "lead-1", "x")
		if err == nil || !strings.Contains(err.Error(), "no user set") {
			t.Errorf("err = %v, want no user set", err)
		}
	})

	t.Run("bad priority", func(t *testing.T) {
		a, _ := setupApp(t)
		setFlags(t, "+1h", "us-2", "urgent", 0)
		_, err := addReminder(context.Background(), a, "lead-1", "x")
		if err == nil || !strings.Contains(err.Error(), "invalid priority") {
			t.Errorf("err = %v, want invalid priority", err)
		}
	})
}

func TestListReminders_PlainOutput(t *testing.T) {
	a, _ := setupApp(t)
	ctx := context.Background()

	output := captureOutput(func() { _ = listReminders(ctx, a) })
	if !strings.Contains(output, "No reminders") {
		t.Errorf("output = %q, want empty-state text", output)
	}

	if _, err := a.reminders.Create(ctx, reminder.Input{
		LeadID: "lead-7", Title: "Chase payslip", AssignedTo: "us-1", DueDate: testNow.Add(-time.Minute),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	output = captureOutput(func() { _ = listReminders(ctx, a) })
	for _, want := range []string{"overdue", "Chase payslip", "lead lead-7, us-1"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestShowLead(t *testing.T) {
	a, _ := setupApp(t)
	ctx := context.Background()
	p, err := a.engine.EnsureDefaultProcessExists(ctx)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	stages, err := a.engine.ListStages(ctx, p.ID)
	if err != nil {
		t.Fatalf("stages: %v", err)
	}
	if _, err := a.engine.MoveLead(ctx, "lead-1", stages[1].ID); err != nil {
		t.Fatalf("move: %v", err)
	}

	output := captureOutput(func() { _ = showLead(ctx, a, "lead-1") })
	want := "lead-1: " + model.DefaultProcessName + " / " + stages[1].Name
	if !strings.Contains(output, want) {
		t.Errorf("output = %q, want %q", output, want)
	}
}

func TestNewApp_CatalogRequirements(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	catalog := "default:\n  - name: Photo ID\n    required: true\n"
	if err := os.WriteFile(path, []byte(catalog), 0644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	a, _ := setupApp(t, func(c *config.Config) { c.Documents.Catalog = path })

	docs, err := a.resolver.ResolveForLead(context.Background(), "lead-1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(docs) != 1 || docs[0].Name != "Photo ID" || docs[0].Status != model.DocNotSubmitted {
		t.Errorf("docs = %+v, want the catalog's Photo ID", docs)
	}
}

func TestNewApp_MissingCatalog(t *testing.T) {
	cfg := config.Default()
	cfg.Documents.Catalog = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := newApp(cfg, setupTestDB(t), nil, nil); err == nil {
		t.Error("expected error for a missing catalog")
	}
}

func TestWatch_StopsOnCancel(t *testing.T) {
	for _, dedup := range []string{config.DedupStore, config.DedupMemory} {
		t.Run(dedup, func(t *testing.T) {
			a, _ := setupApp(t, func(c *config.Config) { c.Notifications.Dedup = dedup })
			ctx := context.Background()
			if _, err := a.reminders.Create(ctx, reminder.Input{
				LeadID: "lead-1", Title: "Due now", AssignedTo: "us-1",
				DueDate: testNow.Add(5 * time.Minute), NotifyBefore: 10,
			}); err != nil {
				t.Fatalf("create: %v", err)
			}

			alerts := make(chan model.Reminder, 4)
			sink := notify.SinkFunc(func(_ context.Context, r model.Reminder) error {
				alerts <- r
				return nil
			})
			d := a.dispatcher("us-1", sink, notify.BadgeFunc(func(context.Context, notify.Badge) error { return nil }))

			ctx, cancel := context.WithCancel(ctx)
			errc := make(chan error, 1)
			go func() { errc <- watch(ctx, d) }()

			select {
			case r := <-alerts:
				if r.Title != "Due now" {
					t.Errorf("alerted %q", r.Title)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("no alert delivered")
			}

			cancel()
			select {
			case err := <-errc:
				if err != nil {
					t.Errorf("watch: %v", err)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("watch did not return after cancel")
			}
		})
	}
}

func TestShowReminder_ResolvesAssigneeName(t *testing.T) {
	a, _ := setupApp(t)
	ctx := context.Background()
	u, err := a.users.Create(ctx, "Dana", "dana@example.com")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	r, err := a.reminders.Create(ctx, reminder.Input{
		LeadID: "lead-1", Title: "Call back", AssignedTo: u.ID, DueDate: testNow.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	output := captureOutput(func() { _ = showReminder(ctx, a, r.ID) })
	if !strings.Contains(output, "Assigned: Dana ("+u.ID+")") {
		t.Errorf("output = %q, want assignee name", output)
	}

	// a rename through the service is visible right away despite the cache
	if _, err := a.users.Update(ctx, u.ID, "Dana Scully", ""); err != nil {
		t.Fatalf("update user: %v", err)
	}
	output = captureOutput(func() { _ = showReminder(ctx, a, r.ID) })
	if !strings.Contains(output, "Assigned: Dana Scully") {
		t.Errorf("output = %q, want renamed assignee", output)
	}
}

func TestSetReminderStatus(t *testing.T) {
	a, _ := setupApp(t)
	ctx := context.Background()
	r, err := a.reminders.Create(ctx, reminder.Input{
		LeadID: "lead-1", Title: "Chase ID", AssignedTo: "us-1", DueDate: testNow.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := setReminderStatus(ctx, a, r.ID, "Overdue")
	if err != nil {
		t.Fatalf("set overdue: %v", err)
	}
	if got.Status != model.ReminderOverdue {
		t.Errorf("status = %q, want overdue", got.Status)
	}

	// moving the due date forward shows pending even though overdue is stored
	later := testNow.Add(24 * time.Hour)
	got, err = a.reminders.Update(ctx, r.ID, reminder.Patch{DueDate: &later})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if rj := reminderJSON(*got, testNow); rj.DisplayStatus != model.ReminderPending || rj.IsOverdue {
		t.Errorf("display = %q overdue = %v, want pending", rj.DisplayStatus, rj.IsOverdue)
	}

	got, err = setReminderStatus(ctx, a, r.ID, "completed")
	if err != nil {
		t.Fatalf("set completed: %v", err)
	}
	if got.CompletedBy == nil || *got.CompletedBy != "us-1" {
		t.Errorf("completedBy = %v, want us-1", got.CompletedBy)
	}

	if _, err := setReminderStatus(ctx, a, r.ID, "snoozed"); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestNewApp_MemoryDedupForgetsDeletedReminders(t *testing.T) {
	a, _ := setupApp(t, func(c *config.Config) { c.Notifications.Dedup = config.DedupMemory })
	ctx := context.Background()
	r, err := a.reminders.Create(ctx, reminder.Input{
		LeadID: "lead-1", Title: "Due now", AssignedTo: "us-1",
		DueDate: testNow.Add(5 * time.Minute), NotifyBefore: 10,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := a.scheduler.MarkAlerted(ctx, r.ID); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := a.reminders.Delete(ctx, r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	r.Status = model.ReminderPending
	ok, err := a.scheduler.Eligible(ctx, *r)
	if err != nil {
		t.Fatalf("eligible: %v", err)
	}
	if !ok {
		t.Error("the scheduler should have forgotten the deleted reminder's alert")
	}
}
