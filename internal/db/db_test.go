package db

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/baiirun/leadflow/internal/model"
	"github.com/baiirun/leadflow/internal/repository"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	db, err := Open(DriverSQLite, path)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}

	if err := db.Init(); err != nil {
		t.Fatalf("failed to init db: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createTestProcess(t *testing.T, db *DB, name string, order int) *model.Process {
	t.Helper()
	now := time.Now().UTC()
	p := &model.Process{
		ID:        model.GenerateID(model.PrefixProcess),
		Name:      name,
		IsActive:  true,
		Order:     order,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.InsertProcess(context.Background(), p); err != nil {
		t.Fatalf("failed to create process: %v", err)
	}
	return p
}

func createTestStage(t *testing.T, db *DB, processID, name string, order int) *model.Stage {
	t.Helper()
	now := time.Now().UTC()
	s := &model.Stage{
		ID:        model.GenerateID(model.PrefixStage),
		ProcessID: processID,
		Name:      name,
		IsActive:  true,
		Order:     order,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.InsertStage(context.Background(), s); err != nil {
		t.Fatalf("failed to create stage: %v", err)
	}
	return s
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "test.db")

	db, err := Open(DriverSQLite, path)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	// Should create parent directories
	if _, err := os.Stat(filepath.Dir(path)); os.IsNotExist(err) {
		t.Error("expected directory to be created")
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open("oracle", "x"); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestDefaultPath(t *testing.T) {
	path, err := DefaultPath()
	if err != nil {
		t.Fatalf("failed to get default path: %v", err)
	}

	if !filepath.IsAbs(path) {
		t.Errorf("expected absolute path, got %q", path)
	}

	if !strings.HasSuffix(path, filepath.Join(".leadflow", "leadflow.db")) {
		t.Errorf("expected path to end with .leadflow/leadflow.db, got %q", path)
	}
}

func TestInit_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	if err := db.Init(); err != nil {
		t.Fatalf("second Init failed: %v", err)
	}
}

func TestProcessCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	p := createTestProcess(t, db, "Sales", 1)

	got, err := db.GetProcess(ctx, p.ID)
	if err != nil {
		t.Fatalf("failed to get process: %v", err)
	}
	if got.Name != "Sales" {
		t.Errorf("name = %q, want %q", got.Name, "Sales")
	}
	if !got.IsActive {
		t.Error("expected process to be active")
	}
	if got.Order != 1 {
		t.Errorf("order = %d, want 1", got.Order)
	}

	got.Name = "Sales Pipeline"
	got.IsActive = false
	got.UpdatedAt = time.Now().UTC()
	if err := db.UpdateProcess(ctx, got); err != nil {
		t.Fatalf("failed to update process: %v", err)
	}

	byName, err := db.FindProcessByName(ctx, "Sales Pipeline")
	if err != nil {
		t.Fatalf("failed to find process: %v", err)
	}
	if byName.ID != p.ID || byName.IsActive {
		t.Errorf("unexpected process after update: %+v", byName)
	}

	if err := db.DeleteProcess(ctx, p.ID); err != nil {
		t.Fatalf("failed to delete process: %v", err)
	}
	if _, err := db.GetProcess(ctx, p.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestProcess_NotFound(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.GetProcess(ctx, "nonexistent"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("GetProcess: expected ErrNotFound, got %v", err)
	}
	if _, err := db.FindProcessByName(ctx, "nope"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("FindProcessByName: expected ErrNotFound, got %v", err)
	}
	if err := db.UpdateProcess(ctx, &model.Process{ID: "nonexistent"}); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("UpdateProcess: expected ErrNotFound, got %v", err)
	}
	if err := db.SetProcessOrder(ctx, "nonexistent", 1, time.Now()); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("SetProcessOrder: expected ErrNotFound, got %v", err)
	}
	if err := db.DeleteProcess(ctx, "nonexistent"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("DeleteProcess: expected ErrNotFound, got %v", err)
	}
}

func TestListProcesses_Ordered(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	c := createTestProcess(t, db, "C", 3)
	a := createTestProcess(t, db, "A", 1)
	b := createTestProcess(t, db, "B", 2)

	processes, err := db.ListProcesses(ctx)
	if err != nil {
		t.Fatalf("failed to list processes: %v", err)
	}
	if len(processes) != 3 {
		t.Fatalf("expected 3 processes, got %d", len(processes))
	}
	want := []string{a.ID, b.ID, c.ID}
	for i, p := range processes {
		if p.ID != want[i] {
			t.Errorf("processes[%d] = %s, want %s", i, p.ID, want[i])
		}
	}
}

func TestStages_ScopedToProcess(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	p1 := createTestProcess(t, db, "One", 1)
	p2 := createTestProcess(t, db, "Two", 2)
	s1 := createTestStage(t, db, p1.ID, "First", 1)
	createTestStage(t, db, p1.ID, "Second", 2)
	createTestStage(t, db, p2.ID, "Other", 1)

	stages, err := db.ListStages(ctx, p1.ID)
	if err != nil {
		t.Fatalf("failed to list stages: %v", err)
	}
	if len(stages) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(stages))
	}
	if stages[0].ID != s1.ID {
		t.Errorf("first stage = %s, want %s", stages[0].ID, s1.ID)
	}

	if err := db.SetStageOrder(ctx, s1.ID, 5, time.Now().UTC()); err != nil {
		t.Fatalf("failed to set order: %v", err)
	}
	got, err := db.GetStage(ctx, s1.ID)
	if err != nil {
		t.Fatalf("failed to get stage: %v", err)
	}
	if got.Order != 5 {
		t.Errorf("order = %d, want 5", got.Order)
	}
}

func TestInsertStage_RequiresProcess(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now().UTC()

	err := db.InsertStage(context.Background(), &model.Stage{
		ID: "st-orphan", ProcessID: "nonexistent", Name: "Orphan", Order: 1,
		CreatedAt: now, UpdatedAt: now,
	})
	if err == nil {
		t.Fatal("expected foreign key error")
	}
	if !errors.Is(err, model.ErrTransientStore) {
		t.Errorf("expected store error, got %v", err)
	}
}

func TestAtomic_RollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	p := createTestProcess(t, db, "Keep", 1)
	createTestStage(t, db, p.ID, "Stage", 1)

	boom := errors.New("boom")
	err := db.Atomic(ctx, func(tx repository.Records) error {
		stages, err := tx.ListStages(ctx, p.ID)
		if err != nil {
			return err
		}
		for _, s := range stages {
			if err := tx.DeleteStage(ctx, s.ID); err != nil {
				return err
			}
		}
		if err := tx.DeleteProcess(ctx, p.ID); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := db.GetProcess(ctx, p.ID); err != nil {
		t.Errorf("process should survive rollback: %v", err)
	}
	stages, _ := db.ListStages(ctx, p.ID)
	if len(stages) != 1 {
		t.Errorf("expected 1 stage after rollback, got %d", len(stages))
	}
}

func TestAtomic_Commits(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	p := createTestProcess(t, db, "Gone", 1)

	err := db.Atomic(ctx, func(tx repository.Records) error {
		return tx.DeleteProcess(ctx, p.ID)
	})
	if err != nil {
		t.Fatalf("atomic failed: %v", err)
	}
	if _, err := db.GetProcess(ctx, p.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected process deleted, got %v", err)
	}
}

func TestPlacements(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.GetPlacement(ctx, "lead-1"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	now := time.Now().UTC()
	if err := db.UpsertPlacement(ctx, &model.LeadPlacement{LeadID: "lead-1", ProcessID: "pr-1", StageID: "st-1", UpdatedAt: now}); err != nil {
		t.Fatalf("failed to place lead: %v", err)
	}
	if err := db.UpsertPlacement(ctx, &model.LeadPlacement{LeadID: "lead-1", ProcessID: "pr-1", StageID: "st-2", UpdatedAt: now}); err != nil {
		t.Fatalf("failed to move lead: %v", err)
	}

	got, err := db.GetPlacement(ctx, "lead-1")
	if err != nil {
		t.Fatalf("failed to get placement: %v", err)
	}
	if got.StageID != "st-2" {
		t.Errorf("stage = %q, want %q", got.StageID, "st-2")
	}

	if err := db.ClearPlacementsForStage(ctx, "st-2"); err != nil {
		t.Fatalf("failed to clear: %v", err)
	}
	if _, err := db.GetPlacement(ctx, "lead-1"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected placement cleared, got %v", err)
	}
}

func TestAtomicLockQuery(t *testing.T) {
	query, args := atomicLockQuery(DriverPostgres)
	if !strings.Contains(query, "pg_advisory_xact_lock") || len(args) != 1 {
		t.Errorf("postgres lock = %q %v, want a transaction-scoped advisory lock", query, args)
	}

	query, args = atomicLockQuery(DriverSQLite)
	if !strings.HasPrefix(query, "UPDATE") || len(args) != 0 {
		t.Errorf("sqlite lock = %q %v, want a no-op write", query, args)
	}

	// the no-op write must run cleanly and change nothing
	db := setupTestDB(t)
	p := createTestProcess(t, db, "Untouched", 1)
	if err := db.Atomic(context.Background(), func(repository.Records) error { return nil }); err != nil {
		t.Fatalf("atomic: %v", err)
	}
	got, err := db.GetProcess(context.Background(), p.ID)
	if err != nil || got.Order != 1 {
		t.Errorf("process after lock = %+v, %v", got, err)
	}
}
