package pipeline

import (
	"context"
	"strings"

	"github.com/baiirun/leadflow/internal/model"
	"github.com/baiirun/leadflow/internal/repository"
)

// StageInput describes a new stage. Order is 1-based within the process; nil appends.
type StageInput struct {
	Name        string
	Description string
	Color       string
	IsActive    *bool
	Order       *int
}

// StagePatch is a partial update; nil fields are left unchanged.
type StagePatch struct {
	Name        *string
	Description *string
	Color       *string
	IsActive    *bool
}

// ListStages returns a process's stages in order.
func (e *Engine) ListStages(ctx context.Context, processID string) ([]model.Stage, error) {
	if _, err := e.store.GetProcess(ctx, processID); err != nil {
		return nil, err
	}
	return e.store.ListStages(ctx, processID)
}

// GetStage returns a stage or a NotFound error.
func (e *Engine) GetStage(ctx context.Context, id string) (*model.Stage, error) {
	return e.store.GetStage(ctx, id)
}

// CreateStage adds a stage to a process.
func (e *Engine) CreateStage(ctx context.Context, processID string, input StageInput) (*model.Stage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var created *model.Stage
	err := e.store.Atomic(ctx, func(tx repository.Records) error {
		s, err := e.createStage(ctx, tx, processID, input)
		created = s
		return err
	})
	if err != nil {
		return nil, err
	}
	e.logger.Printf("pipeline: created stage %s %q in %s at position %d", created.ID, created.Name, processID, created.Order)
	return created, nil
}

func (e *Engine) createStage(ctx context.Context, tx repository.Records, processID string, input StageInput) (*model.Stage, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, model.Invalid("stage name is required")
	}
	if _, err := tx.GetProcess(ctx, processID); err != nil {
		return nil, err
	}
	existing, err := tx.ListStages(ctx, processID)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	s := &model.Stage{
		ID:          model.GenerateID(model.PrefixStage),
		ProcessID:   processID,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Color:       strings.TrimSpace(input.Color),
		IsActive:    boolOr(input.IsActive, true),
		Order:       insertPosition(len(existing), input.Order),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for i, es := range existing {
		want := i + 1
		if want >= s.Order {
			want++
		}
		if es.Order != want {
			if err := tx.SetStageOrder(ctx, es.ID, want, now); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.InsertStage(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// UpdateStage applies a partial update and stamps UpdatedAt.
func (e *Engine) UpdateStage(ctx context.Context, id string, patch StagePatch) (*model.Stage, error) {
	s, err := e.store.GetStage(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, model.Invalid("stage name cannot be empty")
		}
		s.Name = name
	}
	if patch.Description != nil {
		s.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Color != nil {
		s.Color = strings.TrimSpace(*patch.Color)
	}
	if patch.IsActive != nil {
		s.IsActive = *patch.IsActive
	}
	s.UpdatedAt = e.clock.Now()

	if err := e.store.UpdateStage(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// DeleteStage removes a stage and its lead placements, then closes the gap in
// the process's stage order.
func (e *Engine) DeleteStage(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.store.Atomic(ctx, func(tx repository.Records) error {
		s, err := tx.GetStage(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.ClearPlacementsForStage(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteStage(ctx, id); err != nil {
			return err
		}

		remaining, err := tx.ListStages(ctx, s.ProcessID)
		if err != nil {
			return err
		}
		now := e.clock.Now()
		for i, rs := range remaining {
			if rs.Order != i+1 {
				if err := tx.SetStageOrder(ctx, rs.ID, i+1, now); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// ReorderStages sets order = index+1 for each id. ids must be exactly the
// process's current stage ids.
func (e *Engine) ReorderStages(ctx context.Context, processID string, ids []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.store.Atomic(ctx, func(tx repository.Records) error {
		if _, err := tx.GetProcess(ctx, processID); err != nil {
			return err
		}
		current, err := tx.ListStages(ctx, processID)
		if err != nil {
			return err
		}
		known := make([]string, len(current))
		for i, s := range current {
			known[i] = s.ID
		}
		if err := validateOrdering("stage", known, ids); err != nil {
			return err
		}
		now := e.clock.Now()
		for i, id := range ids {
			if err := tx.SetStageOrder(ctx, id, i+1, now); err != nil {
				return err
			}
		}
		return nil
	})
}
