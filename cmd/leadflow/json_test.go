package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/baiirun/leadflow/internal/clock"
	"github.com/baiirun/leadflow/internal/config"
	"github.com/baiirun/leadflow/internal/db"
	"github.com/baiirun/leadflow/internal/documents"
	"github.com/baiirun/leadflow/internal/logging"
	"github.com/baiirun/leadflow/internal/model"
	"github.com/baiirun/leadflow/internal/notify"
	"github.com/baiirun/leadflow/internal/pipeline"
	"github.com/baiirun/leadflow/internal/reminder"
)

var testNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

// captureOutput returns everything fn writes to stdout.
func captureOutput(fn func()) string {
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		panic(err)
	}
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	fn()
	_ = w.Close()
	os.Stdout = old
	return <-done
}

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(db.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := database.Init(); err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

// setupApp wires a test app for user us-1 on a manual clock.
func setupApp(t *testing.T, mutate ...func(*config.Config)) (*app, *clock.Manual) {
	t.Helper()
	cfg := config.Default()
	cfg.User = "us-1"
	for _, m := range mutate {
		m(cfg)
	}
	clk := clock.NewManual(testNow)
	a, err := newApp(cfg, setupTestDB(t), logging.NewWriter(io.Discard), clk)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	return a, clk
}

// jsonMode turns on --json for the rest of the test.
func jsonMode(t *testing.T) {
	t.Helper()
	flagJSON = true
	t.Cleanup(func() { flagJSON = false })
}

func TestListProcessesJSON_IncludesStages(t *testing.T) {
	a, _ := setupApp(t)
	ctx := context.Background()
	if _, err := a.engine.EnsureDefaultProcessExists(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	jsonMode(t)

	var runErr error
	output := captureOutput(func() { runErr = listProcesses(ctx, a) })
	if runErr != nil {
		t.Fatalf("listProcesses: %v", runErr)
	}

	var result []ProcessJSON
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, output)
	}
	if len(result) != 1 {
		t.Fatalf("expected 1 process, got %d", len(result))
	}
	p := result[0]
	if p.Name != model.DefaultProcessName || p.Order != 1 {
		t.Errorf("process = %q order %d", p.Name, p.Order)
	}
	if len(p.Stages) != len(model.DefaultStages) {
		t.Fatalf("stages = %d, want %d", len(p.Stages), len(model.DefaultStages))
	}
	for i, s := range p.Stages {
		if s.Name != model.DefaultStages[i].Name || s.Order != i+1 {
			t.Errorf("stage %d = %q order %d", i, s.Name, s.Order)
		}
	}
}

func TestListProcessesJSON_EmptyArray(t *testing.T) {
	a, _ := setupApp(t)
	jsonMode(t)

	output := captureOutput(func() { _ = listProcesses(context.Background(), a) })

	var result []ProcessJSON
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, output)
	}
	if result == nil || len(result) != 0 {
		t.Errorf("expected empty array, got %v", result)
	}
}

func TestShowProcessJSON_EmptyStages(t *testing.T) {
	a, _ := setupApp(t)
	ctx := context.Background()
	p, err := a.engine.CreateProcess(ctx, pipeline.ProcessInput{Name: "Renewals"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	jsonMode(t)

	output := captureOutput(func() { _ = showProcess(ctx, a, p.ID) })

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(output), &raw); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, output)
	}
	if string(raw["stages"]) != "[]" {
		t.Errorf("stages = %s, want []", raw["stages"])
	}
	if _, ok := raw["order"]; !ok {
		t.Error("process fields should be inlined")
	}
}

func TestShowChecklistJSON(t *testing.T) {
	a, clk := setupApp(t)
	ctx := context.Background()

	for _, in := range []documents.RequirementInput{
		{ProcessID: model.DefaultBucket, Name: "Photo ID", Required: true},
		{ProcessID: model.DefaultBucket, Name: "Payslip", Required: true},
		{ProcessID: model.DefaultBucket, Name: "Reference"},
	} {
		if _, err := a.documents.CreateRequirement(ctx, in); err != nil {
			t.Fatalf("create requirement %s: %v", in.Name, err)
		}
	}
	clk.Advance(time.Minute)
	sub, err := a.documents.Submit(ctx, "lead-1", documents.SubmissionInput{Name: "photo id", FileType: "PDF"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	jsonMode(t)

	output := captureOutput(func() { _ = showChecklist(ctx, a, "lead-1", "", "") })

	var result ChecklistJSON
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, output)
	}
	if result.LeadID != "lead-1" || len(result.Documents) != 3 {
		t.Fatalf("checklist = %+v", result)
	}
	// requirements list by name
	photo := result.Documents[1]
	if photo.Name != "Photo ID" || photo.DocumentID != sub.ID || photo.Status != model.DocPending {
		t.Errorf("photo id not matched: %+v", photo)
	}
	if result.Summary.Submitted != 1 || result.Summary.Required != 2 {
		t.Errorf("summary = %+v", result.Summary)
	}
	if len(result.Summary.MissingRequired) != 1 || result.Summary.MissingRequired[0] != "Payslip" {
		t.Errorf("missing = %v, want [Payslip]", result.Summary.MissingRequired)
	}
}

func TestShowChecklistJSON_NoRequirements(t *testing.T) {
	a, _ := setupApp(t)
	jsonMode(t)

	output := captureOutput(func() { _ = showChecklist(context.Background(), a, "lead-1", "", "") })

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(output), &raw); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, output)
	}
	if string(raw["documents"]) != "[]" {
		t.Errorf("documents = %s, want []", raw["documents"])
	}
}

func TestListRemindersJSON_DerivesOverdue(t *testing.T) {
	a, _ := setupApp(t)
	ctx := context.Background()

	if _, err := a.reminders.Create(ctx, reminder.Input{
		LeadID: "lead-1", Title: "Call back", AssignedTo: "us-1", DueDate: testNow.Add(-time.Hour),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	jsonMode(t)

	output := captureOutput(func() { _ = listReminders(ctx, a) })

	var result []ReminderJSON
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, output)
	}
	if len(result) != 1 {
		t.Fatalf("expected 1 reminder, got %d", len(result))
	}
	r := result[0]
	if r.Status != model.ReminderPending {
		t.Errorf("stored status = %q, want pending", r.Status)
	}
	if r.DisplayStatus != model.ReminderOverdue || !r.IsOverdue {
		t.Errorf("display = %q overdue = %v, want overdue", r.DisplayStatus, r.IsOverdue)
	}
}

func TestShowBadgeJSON(t *testing.T) {
	a, _ := setupApp(t)
	ctx := context.Background()

	inputs := []reminder.Input{
		{LeadID: "l1", Title: "overdue", DueDate: testNow.Add(-time.Minute)},
		{LeadID: "l2", Title: "due now", DueDate: testNow.Add(10 * time.Minute), NotifyBefore: 15},
		{LeadID: "l3", Title: "later", DueDate: testNow.Add(24 * time.Hour), NotifyBefore: 15},
		{LeadID: "l4", Title: "someone else", DueDate: testNow.Add(-time.Minute), AssignedTo: "us-2"},
	}
	for _, in := range inputs {
		if in.AssignedTo == "" {
			in.AssignedTo = "us-1"
		}
		if _, err := a.reminders.Create(ctx, in); err != nil {
			t.Fatalf("create %s: %v", in.Title, err)
		}
	}
	jsonMode(t)

	output := captureOutput(func() { _ = showBadge(ctx, a) })

	var b notify.Badge
	if err := json.Unmarshal([]byte(output), &b); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, output)
	}
	if b.UserID != "us-1" || b.Pending != 2 || b.DueNow != 1 || b.Overdue != 1 {
		t.Errorf("badge = %+v, want 2 pending, 1 due now, 1 overdue", b)
	}
}
