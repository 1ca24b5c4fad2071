package reminder

import (
	"context"
	"strings"
	"time"

	"github.com/baiirun/leadflow/internal/clock"
	"github.com/baiirun/leadflow/internal/model"
	"github.com/baiirun/leadflow/internal/repository"
)

// Service is reminder CRUD over the record store.
type Service struct {
	store  repository.ReminderRepository
	clock  clock.Clock
	forget Forgetter
}

// Forgetter drops alert history kept outside the record store.
type Forgetter interface {
	Forget(reminderID string)
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithForgetter makes Delete also clear f's record of the reminder.
func WithForgetter(f Forgetter) ServiceOption {
	return func(s *Service) { s.forget = f }
}

// NewService creates a reminder service. A nil clock uses the system clock.
func NewService(store repository.ReminderRepository, clk clock.Clock, opts ...ServiceOption) *Service {
	if clk == nil {
		clk = clock.Real{}
	}
	s := &Service{store: store, clock: clk}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Input describes a new reminder. NotifyBefore is in minutes. An empty
// Priority means medium.
type Input struct {
	LeadID       string
	Title        string
	Description  string
	DueDate      time.Time
	Priority     model.Priority
	AssignedTo   string
	CreatedBy    string
	NotifyBefore int
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	Title        *string
	Description  *string
	DueDate      *time.Time
	Priority     *model.Priority
	AssignedTo   *string
	NotifyBefore *int
}

// Create validates and stores a pending reminder.
func (s *Service) Create(ctx context.Context, input Input) (*model.Reminder, error) {
	r := &model.Reminder{
		LeadID:       strings.TrimSpace(input.LeadID),
		Title:        strings.TrimSpace(input.Title),
		Description:  strings.TrimSpace(input.Description),
		DueDate:      input.DueDate.UTC(),
		Status:       model.ReminderPending,
		Priority:     input.Priority,
		AssignedTo:   strings.TrimSpace(input.AssignedTo),
		CreatedBy:    strings.TrimSpace(input.CreatedBy),
		NotifyBefore: input.NotifyBefore,
	}
	if r.Priority == "" {
		r.Priority = model.PriorityMedium
	}
	if err := validate(r); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	r.ID = model.GenerateID(model.PrefixReminder)
	r.CreatedAt = now
	r.UpdatedAt = now
	if err := s.store.InsertReminder(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func validate(r *model.Reminder) error {
	switch {
	case r.LeadID == "":
		return model.Invalid("lead id is required")
	case r.Title == "":
		return model.Invalid("title is required")
	case r.AssignedTo == "":
		return model.Invalid("assignee is required")
	case r.DueDate.IsZero():
		return model.Invalid("due date is required")
	case !r.Priority.IsValid():
		return model.Invalid("invalid priority: %s (must be low, medium, or high)", r.Priority)
	case r.NotifyBefore < 0:
		return model.Invalid("notify-before must not be negative")
	}
	return nil
}

// Get returns a reminder by id.
func (s *Service) Get(ctx context.Context, id string) (*model.Reminder, error) {
	return s.store.GetReminder(ctx, id)
}

// Update applies a patch.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*model.Reminder, error) {
	r, err := s.store.GetReminder(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		r.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		r.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.DueDate != nil {
		r.DueDate = patch.DueDate.UTC()
	}
	if patch.Priority != nil {
		r.Priority = *patch.Priority
	}
	if patch.AssignedTo != nil {
		r.AssignedTo = strings.TrimSpace(*patch.AssignedTo)
	}
	if patch.NotifyBefore != nil {
		r.NotifyBefore = *patch.NotifyBefore
	}
	if err := validate(r); err != nil {
		return nil, err
	}

	return s.save(ctx, r)
}

// Complete marks a pending or overdue reminder completed by the given user.
func (s *Service) Complete(ctx context.Context, id, by string) (*model.Reminder, error) {
	r, err := s.store.GetReminder(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status == model.ReminderCompleted {
		return nil, model.Invalid("reminder %s is already completed", id)
	}

	now := s.clock.Now()
	r.Status = model.ReminderCompleted
	r.CompletedAt = &now
	if by = strings.TrimSpace(by); by != "" {
		r.CompletedBy = &by
	} else {
		r.CompletedBy = nil
	}
	return s.save(ctx, r)
}

// Reopen returns a completed reminder to pending.
func (s *Service) Reopen(ctx context.Context, id string) (*model.Reminder, error) {
	r, err := s.store.GetReminder(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != model.ReminderCompleted {
		return nil, model.Invalid("reminder %s is not completed", id)
	}

	r.Status = model.ReminderPending
	r.CompletedAt = nil
	r.CompletedBy = nil
	return s.save(ctx, r)
}

// SetStatus stores a status chosen by the caller. Completing goes through
// Complete and pending through Reopen semantics; overdue is persisted as is.
func (s *Service) SetStatus(ctx context.Context, id string, status model.ReminderStatus, by string) (*model.Reminder, error) {
	switch status {
	case model.ReminderCompleted:
		return s.Complete(ctx, id, by)
	case model.ReminderPending, model.ReminderOverdue:
	default:
		return nil, model.Invalid("invalid status: %s (must be pending, completed, or overdue)", status)
	}

	r, err := s.store.GetReminder(ctx, id)
	if err != nil {
		return nil, err
	}
	r.Status = status
	r.CompletedAt = nil
	r.CompletedBy = nil
	return s.save(ctx, r)
}

// Delete removes a reminder and its alert record.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteReminder(ctx, id); err != nil {
		return err
	}
	if s.forget != nil {
		s.forget.Forget(id)
	}
	return nil
}

// ListForLead returns a lead's reminders by due date.
func (s *Service) ListForLead(ctx context.Context, leadID string) ([]model.Reminder, error) {
	return s.store.ListRemindersForLead(ctx, leadID)
}

// ListForAssignee returns a user's reminders with any of the given stored
// statuses, or all of them when none are given.
func (s *Service) ListForAssignee(ctx context.Context, userID string, statuses ...model.ReminderStatus) ([]model.Reminder, error) {
	return s.store.ListRemindersForAssignee(ctx, userID, statuses)
}

func (s *Service) save(ctx context.Context, r *model.Reminder) (*model.Reminder, error) {
	r.UpdatedAt = s.clock.Now()
	if err := s.store.UpdateReminder(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}
