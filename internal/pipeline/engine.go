// Package pipeline implements the lead Process/Stage engine: ordered pipeline
// definitions with dense per-scope ordering, cascading deletes, atomic
// reorders and the default pipeline bootstrap.
//
// Structural mutations are serialized by the engine and applied through
// repository.Store.Atomic, so readers see either the state before or after a
// change, never a partial one.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/baiirun/leadflow/internal/clock"
	"github.com/baiirun/leadflow/internal/logging"
	"github.com/baiirun/leadflow/internal/model"
	"github.com/baiirun/leadflow/internal/repository"
)

// Engine is the process/stage service.
type Engine struct {
	store  repository.Store
	clock  clock.Clock
	logger logging.Printer

	// mu serializes order assignment and every structural batch.
	mu sync.Mutex
}

// Option customizes engine construction.
type Option func(*Engine)

// WithClock overrides the system clock.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithLogger overrides the default no-op logger.
func WithLogger(l logging.Printer) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an engine over store.
func New(store repository.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		clock:  clock.Real{},
		logger: logging.Nop{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// ProcessInput describes a new process. Order is 1-based; nil appends.
type ProcessInput struct {
	Name        string
	Description string
	IsActive    *bool
	Order       *int
}

// ProcessPatch is a partial update; nil fields are left unchanged.
type ProcessPatch struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// ListProcesses returns all processes in order.
func (e *Engine) ListProcesses(ctx context.Context) ([]model.Process, error) {
	return e.store.ListProcesses(ctx)
}

// GetProcess returns a process or a NotFound error.
func (e *Engine) GetProcess(ctx context.Context, id string) (*model.Process, error) {
	return e.store.GetProcess(ctx, id)
}

// CreateProcess stores a new process at the end of the pipeline list, or at
// input.Order shifting later processes down.
func (e *Engine) CreateProcess(ctx context.Context, input ProcessInput) (*model.Process, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, model.Invalid("process name is required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var created *model.Process
	err := e.store.Atomic(ctx, func(tx repository.Records) error {
		p, err := e.createProcess(ctx, tx, name, input)
		created = p
		return err
	})
	if err != nil {
		return nil, err
	}
	e.logger.Printf("pipeline: created process %s %q at position %d", created.ID, created.Name, created.Order)
	return created, nil
}

func (e *Engine) createProcess(ctx context.Context, tx repository.Records, name string, input ProcessInput) (*model.Process, error) {
	existing, err := tx.ListProcesses(ctx)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	p := &model.Process{
		ID:          model.GenerateID(model.PrefixProcess),
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		IsActive:    boolOr(input.IsActive, true),
		Order:       insertPosition(len(existing), input.Order),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ids := make([]string, 0, len(existing)+1)
	orders := make([]int, 0, len(existing)+1)
	for _, ep := range existing {
		ids = append(ids, ep.ID)
		orders = append(orders, ep.Order)
	}
	// Make room: every existing process from the insertion point moves down one.
	for i := range ids {
		want := i + 1
		if want >= p.Order {
			want++
		}
		if orders[i] != want {
			if err := tx.SetProcessOrder(ctx, ids[i], want, now); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.InsertProcess(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProcess applies a partial update and stamps UpdatedAt.
func (e *Engine) UpdateProcess(ctx context.Context, id string, patch ProcessPatch) (*model.Process, error) {
	p, err := e.store.GetProcess(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, model.Invalid("process name cannot be empty")
		}
		p.Name = name
	}
	if patch.Description != nil {
		p.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}
	p.UpdatedAt = e.clock.Now()

	if err := e.store.UpdateProcess(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteProcess removes a process together with all of its stages and lead
// placements in one transaction, then closes the gap in process order.
func (e *Engine) DeleteProcess(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var removed int
	err := e.store.Atomic(ctx, func(tx repository.Records) error {
		if _, err := tx.GetProcess(ctx, id); err != nil {
			return err
		}
		stages, err := tx.ListStages(ctx, id)
		if err != nil {
			return err
		}
		for _, s := range stages {
			if err := tx.DeleteStage(ctx, s.ID); err != nil {
				return err
			}
		}
		removed = len(stages)
		if err := tx.ClearPlacementsForProcess(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteProcess(ctx, id); err != nil {
			return err
		}
		return e.compactProcesses(ctx, tx)
	})
	if err != nil {
		return err
	}
	e.logger.Printf("pipeline: deleted process %s with %d stages", id, removed)
	return nil
}

// ReorderProcesses sets order = index+1 for each id. ids must be exactly the
// current set of process ids.
func (e *Engine) ReorderProcesses(ctx context.Context, ids []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.store.Atomic(ctx, func(tx repository.Records) error {
		current, err := tx.ListProcesses(ctx)
		if err != nil {
			return err
		}
		known := make([]string, len(current))
		for i, p := range current {
			known[i] = p.ID
		}
		if err := validateOrdering("process", known, ids); err != nil {
			return err
		}
		now := e.clock.Now()
		for i, id := range ids {
			if err := tx.SetProcessOrder(ctx, id, i+1, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *Engine) compactProcesses(ctx context.Context, tx repository.Records) error {
	remaining, err := tx.ListProcesses(ctx)
	if err != nil {
		return err
	}
	now := e.clock.Now()
	for i, p := range remaining {
		if p.Order != i+1 {
			if err := tx.SetProcessOrder(ctx, p.ID, i+1, now); err != nil {
				return err
			}
		}
	}
	return nil
}

// EnsureDefaultProcessExists creates the default lead pipeline and its four
// stages on first call, in order, in one transaction. Later calls return the
// existing process. A default process without stages is an
// ErrInconsistentState failure.
func (e *Engine) EnsureDefaultProcessExists(ctx context.Context) (*model.Process, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	existing, err := e.store.FindProcessByName(ctx, model.DefaultProcessName)
	if err == nil {
		stages, err := e.store.ListStages(ctx, existing.ID)
		if err != nil {
			return nil, err
		}
		if len(stages) == 0 {
			return nil, model.Inconsistent("process %q (%s) exists but has no stages", existing.Name, existing.ID)
		}
		return existing, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	var created *model.Process
	err = e.store.Atomic(ctx, func(tx repository.Records) error {
		p, err := e.createProcess(ctx, tx, model.DefaultProcessName, ProcessInput{
			Description: "Default pipeline for incoming leads",
		})
		if err != nil {
			return err
		}
		for _, ds := range model.DefaultStages {
			if _, err := e.createStage(ctx, tx, p.ID, StageInput{Name: ds.Name, Color: ds.Color}); err != nil {
				return err
			}
		}
		created = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Printf("pipeline: bootstrapped %q (%s) with %d stages", created.Name, created.ID, len(model.DefaultStages))
	return created, nil
}

// validateOrdering checks ids is a permutation of known.
func validateOrdering(kind string, known, ids []string) error {
	if len(ids) != len(known) {
		return model.Invalid("%s order must list all %d ids, got %d", kind, len(known), len(ids))
	}
	want := make(map[string]bool, len(known))
	for _, id := range known {
		want[id] = true
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return model.Invalid("%s %s listed twice", kind, id)
		}
		if !want[id] {
			return model.Invalid("unknown %s %s", kind, id)
		}
		seen[id] = true
	}
	return nil
}

// insertPosition clamps a requested 1-based position into [1, n+1].
func insertPosition(n int, requested *int) int {
	if requested == nil || *requested > n+1 {
		return n + 1
	}
	if *requested < 1 {
		return 1
	}
	return *requested
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
