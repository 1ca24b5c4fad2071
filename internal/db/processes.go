package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/baiirun/leadflow/internal/model"
)

const processColumns = `id, name, description, is_active, position, created_at, updated_at`

const stageColumns = `id, process_id, name, description, color, is_active, position, created_at, updated_at`

// ListProcesses returns all processes in traversal order.
func (db *DB) ListProcesses(ctx context.Context) ([]model.Process, error) {
	var processes []model.Process
	err := db.selectAll(ctx, &processes,
		`SELECT `+processColumns+` FROM processes ORDER BY position ASC, created_at ASC`)
	if err != nil {
		return nil, model.StoreFailure("list processes", err)
	}
	return processes, nil
}

// GetProcess retrieves a process by ID.
func (db *DB) GetProcess(ctx context.Context, id string) (*model.Process, error) {
	var p model.Process
	err := db.get(ctx, &p, `SELECT `+processColumns+` FROM processes WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("process", id)
	}
	if err != nil {
		return nil, model.StoreFailure("get process", err)
	}
	return &p, nil
}

// FindProcessByName returns the first process with the exact name.
func (db *DB) FindProcessByName(ctx context.Context, name string) (*model.Process, error) {
	var p model.Process
	err := db.get(ctx, &p,
		`SELECT `+processColumns+` FROM processes WHERE name = ? ORDER BY position ASC LIMIT 1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("process", name)
	}
	if err != nil {
		return nil, model.StoreFailure("find process", err)
	}
	return &p, nil
}

// InsertProcess stores a new process as given.
func (db *DB) InsertProcess(ctx context.Context, p *model.Process) error {
	_, err := db.exec(ctx, `
		INSERT INTO processes (id, name, description, is_active, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.IsActive, p.Order, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return model.StoreFailure("create process", err)
	}
	return nil
}

// UpdateProcess writes name, description, active flag and updated_at.
func (db *DB) UpdateProcess(ctx context.Context, p *model.Process) error {
	rows, err := db.exec(ctx, `
		UPDATE processes SET name = ?, description = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Description, p.IsActive, p.UpdatedAt, p.ID)
	if err != nil {
		return model.StoreFailure("update process", err)
	}
	if rows == 0 {
		return model.NotFound("process", p.ID)
	}
	return nil
}

// SetProcessOrder changes a process's position.
func (db *DB) SetProcessOrder(ctx context.Context, id string, order int, at time.Time) error {
	rows, err := db.exec(ctx,
		`UPDATE processes SET position = ?, updated_at = ? WHERE id = ?`, order, at, id)
	if err != nil {
		return model.StoreFailure("reorder process", err)
	}
	if rows == 0 {
		return model.NotFound("process", id)
	}
	return nil
}

// DeleteProcess removes a process row. Stages must be removed first.
func (db *DB) DeleteProcess(ctx context.Context, id string) error {
	rows, err := db.exec(ctx, `DELETE FROM processes WHERE id = ?`, id)
	if err != nil {
		return model.StoreFailure("delete process", err)
	}
	if rows == 0 {
		return model.NotFound("process", id)
	}
	return nil
}

// ListStages returns a process's stages in order.
func (db *DB) ListStages(ctx context.Context, processID string) ([]model.Stage, error) {
	var stages []model.Stage
	err := db.selectAll(ctx, &stages,
		`SELECT `+stageColumns+` FROM stages WHERE process_id = ? ORDER BY position ASC, created_at ASC`,
		processID)
	if err != nil {
		return nil, model.StoreFailure("list stages", err)
	}
	return stages, nil
}

// GetStage retrieves a stage by ID.
func (db *DB) GetStage(ctx context.Context, id string) (*model.Stage, error) {
	var s model.Stage
	err := db.get(ctx, &s, `SELECT `+stageColumns+` FROM stages WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("stage", id)
	}
	if err != nil {
		return nil, model.StoreFailure("get stage", err)
	}
	return &s, nil
}

// InsertStage stores a new stage as given.
func (db *DB) InsertStage(ctx context.Context, s *model.Stage) error {
	_, err := db.exec(ctx, `
		INSERT INTO stages (id, process_id, name, description, color, is_active, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.ProcessID, s.Name, s.Description, s.Color, s.IsActive, s.Order, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return model.StoreFailure("create stage", err)
	}
	return nil
}

// UpdateStage writes the mutable stage fields.
func (db *DB) UpdateStage(ctx context.Context, s *model.Stage) error {
	rows, err := db.exec(ctx, `
		UPDATE stages SET name = ?, description = ?, color = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		s.Name, s.Description, s.Color, s.IsActive, s.UpdatedAt, s.ID)
	if err != nil {
		return model.StoreFailure("update stage", err)
	}
	if rows == 0 {
		return model.NotFound("stage", s.ID)
	}
	return nil
}

// SetStageOrder changes a stage's position.
func (db *DB) SetStageOrder(ctx context.Context, id string, order int, at time.Time) error {
	rows, err := db.exec(ctx,
		`UPDATE stages SET position = ?, updated_at = ? WHERE id = ?`, order, at, id)
	if err != nil {
		return model.StoreFailure("reorder stage", err)
	}
	if rows == 0 {
		return model.NotFound("stage", id)
	}
	return nil
}

// DeleteStage removes a stage row.
func (db *DB) DeleteStage(ctx context.Context, id string) error {
	rows, err := db.exec(ctx, `DELETE FROM stages WHERE id = ?`, id)
	if err != nil {
		return model.StoreFailure("delete stage", err)
	}
	if rows == 0 {
		return model.NotFound("stage", id)
	}
	return nil
}
