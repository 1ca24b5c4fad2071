// Package repository declares the record-store contracts the leadflow core
// depends on. internal/db provides the SQL implementation.
package repository

import (
	"context"
	"time"

	"github.com/baiirun/leadflow/internal/model"
)

type ProcessRepository interface {
	ListProcesses(ctx context.Context) ([]model.Process, error)
	GetProcess(ctx context.Context, id string) (*model.Process, error)
	FindProcessByName(ctx context.Context, name string) (*model.Process, error)
	InsertProcess(ctx context.Context, p *model.Process) error
	UpdateProcess(ctx context.Context, p *model.Process) error
	SetProcessOrder(ctx context.Context, id string, order int, at time.Time) error
	DeleteProcess(ctx context.Context, id string) error
}

type StageRepository interface {
	ListStages(ctx context.Context, processID string) ([]model.Stage, error)
	GetStage(ctx context.Context, id string) (*model.Stage, error)
	InsertStage(ctx context.Context, s *model.Stage) error
	UpdateStage(ctx context.Context, s *model.Stage) error
	SetStageOrder(ctx context.Context, id string, order int, at time.Time) error
	DeleteStage(ctx context.Context, id string) error
}

type LeadRepository interface {
	GetPlacement(ctx context.Context, leadID string) (*model.LeadPlacement, error)
	UpsertPlacement(ctx context.Context, p *model.LeadPlacement) error
	ClearPlacementsForProcess(ctx context.Context, processID string) error
	ClearPlacementsForStage(ctx context.Context, stageID string) error
}

type RequirementRepository interface {
	ListRequirements(ctx context.Context, processID, stageID string) ([]model.DocumentRequirement, error)
	ListDefaultRequirements(ctx context.Context) ([]model.DocumentRequirement, error)
	GetRequirement(ctx context.Context, id string) (*model.DocumentRequirement, error)
	InsertRequirement(ctx context.Context, r *model.DocumentRequirement) error
	UpdateRequirement(ctx context.Context, r *model.DocumentRequirement) error
	DeleteRequirement(ctx context.Context, id string) error
}

type SubmissionRepository interface {
	ListSubmissions(ctx context.Context, leadID string) ([]model.SubmittedDocument, error)
	GetSubmission(ctx context.Context, id string) (*model.SubmittedDocument, error)
	InsertSubmission(ctx context.Context, d *model.SubmittedDocument) error
	UpdateSubmissionStatus(ctx context.Context, id string, status model.DocumentStatus, notes string) error
}

type ReminderRepository interface {
	GetReminder(ctx context.Context, id string) (*model.Reminder, error)
	InsertReminder(ctx context.Context, r *model.Reminder) error
	UpdateReminder(ctx context.Context, r *model.Reminder) error
	DeleteReminder(ctx context.Context, id string) error
	ListRemindersForLead(ctx context.Context, leadID string) ([]model.Reminder, error)
	ListRemindersForAssignee(ctx context.Context, userID string, statuses []model.ReminderStatus) ([]model.Reminder, error)
}

type AlertRepository interface {
	LastAlerted(ctx context.Context, reminderID string) (time.Time, bool, error)
	MarkAlerted(ctx context.Context, reminderID string, at time.Time) error
}

type UserRepository interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	InsertUser(ctx context.Context, u *model.User) error
	UpdateUser(ctx context.Context, u *model.User) error
}

// Records is every repository the core reads and writes.
type Records interface {
	ProcessRepository
	StageRepository
	LeadRepository
	RequirementRepository
	SubmissionRepository
	ReminderRepository
	AlertRepository
	UserRepository
}

// Store is Records plus an atomic multi-record write. Everything fn does through
// the Records it receives commits together or not at all.
type Store interface {
	Records
	Atomic(ctx context.Context, fn func(Records) error) error
}
