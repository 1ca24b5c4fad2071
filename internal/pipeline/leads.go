package pipeline

import (
	"context"
	"strings"

	"github.com/baiirun/leadflow/internal/model"
)

// MoveLead places a lead in a stage, and so in that stage's process.
func (e *Engine) MoveLead(ctx context.Context, leadID, stageID string) (*model.LeadPlacement, error) {
	leadID = strings.TrimSpace(leadID)
	if leadID == "" {
		return nil, model.Invalid("lead id is required")
	}
	s, err := e.store.GetStage(ctx, stageID)
	if err != nil {
		return nil, err
	}
	if !s.IsActive {
		return nil, model.Invalid("stage %s is inactive", stageID)
	}

	p := &model.LeadPlacement{
		LeadID:    leadID,
		ProcessID: s.ProcessID,
		StageID:   s.ID,
		UpdatedAt: e.clock.Now(),
	}
	if err := e.store.UpsertPlacement(ctx, p); err != nil {
		return nil, err
	}
	e.logger.Printf("pipeline: moved lead %s to stage %s (%s)", leadID, s.ID, s.Name)
	return p, nil
}

// Placement returns where a lead sits, or a NotFound error if it was never placed.
func (e *Engine) Placement(ctx context.Context, leadID string) (*model.LeadPlacement, error) {
	return e.store.GetPlacement(ctx, leadID)
}
