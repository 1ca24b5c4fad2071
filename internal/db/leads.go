package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/baiirun/leadflow/internal/model"
)

// GetPlacement returns where a lead currently sits.
func (db *DB) GetPlacement(ctx context.Context, leadID string) (*model.LeadPlacement, error) {
	var p model.LeadPlacement
	err := db.get(ctx, &p,
		`SELECT lead_id, process_id, stage_id, updated_at FROM lead_placements WHERE lead_id = ?`, leadID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("lead placement", leadID)
	}
	if err != nil {
		return nil, model.StoreFailure("get lead placement", err)
	}
	return &p, nil
}

// UpsertPlacement moves a lead, creating its placement row on first use.
func (db *DB) UpsertPlacement(ctx context.Context, p *model.LeadPlacement) error {
	_, err := db.exec(ctx, `
		INSERT INTO lead_placements (lead_id, process_id, stage_id, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (lead_id) DO UPDATE SET
			process_id = excluded.process_id,
			stage_id = excluded.stage_id,
			updated_at = excluded.updated_at`,
		p.LeadID, p.ProcessID, p.StageID, p.UpdatedAt)
	if err != nil {
		return model.StoreFailure("move lead", err)
	}
	return nil
}

// ClearPlacementsForProcess drops placements that point into a process.
func (db *DB) ClearPlacementsForProcess(ctx context.Context, processID string) error {
	if _, err := db.exec(ctx, `DELETE FROM lead_placements WHERE process_id = ?`, processID); err != nil {
		return model.StoreFailure("clear lead placements", err)
	}
	return nil
}

// ClearPlacementsForStage drops placements that point at a stage.
func (db *DB) ClearPlacementsForStage(ctx context.Context, stageID string) error {
	if _, err := db.exec(ctx, `DELETE FROM lead_placements WHERE stage_id = ?`, stageID); err != nil {
		return model.StoreFailure("clear lead placements", err)
	}
	return nil
}
