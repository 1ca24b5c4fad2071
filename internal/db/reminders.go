package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/baiirun/leadflow/internal/model"
)

const reminderColumns = `id, lead_id, title, description, due_date, status, priority, assigned_to,
	created_by, notify_before, completed_at, completed_by, created_at, updated_at`

// GetReminder retrieves a reminder by ID.
func (db *DB) GetReminder(ctx context.Context, id string) (*model.Reminder, error) {
	var r model.Reminder
	err := db.get(ctx, &r, `SELECT `+reminderColumns+` FROM reminders WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("reminder", id)
	}
	if err != nil {
		return nil, model.StoreFailure("get reminder", err)
	}
	return &r, nil
}

// InsertReminder stores a new reminder.
func (db *DB) InsertReminder(ctx context.Context, r *model.Reminder) error {
	_, err := db.exec(ctx, `
		INSERT INTO reminders (id, lead_id, title, description, due_date, status, priority, assigned_to,
			created_by, notify_before, completed_at, completed_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.LeadID, r.Title, r.Description, r.DueDate, r.Status, r.Priority, r.AssignedTo,
		r.CreatedBy, r.NotifyBefore, r.CompletedAt, r.CompletedBy, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return model.StoreFailure("create reminder", err)
	}
	return nil
}

// UpdateReminder rewrites every mutable reminder field.
func (db *DB) UpdateReminder(ctx context.Context, r *model.Reminder) error {
	rows, err := db.exec(ctx, `
		UPDATE reminders
		SET title = ?, description = ?, due_date = ?, status = ?, priority = ?, assigned_to = ?,
			notify_before = ?, completed_at = ?, completed_by = ?, updated_at = ?
		WHERE id = ?`,
		r.Title, r.Description, r.DueDate, r.Status, r.Priority, r.AssignedTo,
		r.NotifyBefore, r.CompletedAt, r.CompletedBy, r.UpdatedAt, r.ID)
	if err != nil {
		return model.StoreFailure("update reminder", err)
	}
	if rows == 0 {
		return model.NotFound("reminder", r.ID)
	}
	return nil
}

// DeleteReminder removes a reminder and its alert record.
func (db *DB) DeleteReminder(ctx context.Context, id string) error {
	return db.withTx(ctx, func(tx *DB) error {
		if _, err := tx.exec(ctx, `DELETE FROM reminder_alerts WHERE reminder_id = ?`, id); err != nil {
			return model.StoreFailure("delete reminder alerts", err)
		}
		rows, err := tx.exec(ctx, `DELETE FROM reminders WHERE id = ?`, id)
		if err != nil {
			return model.StoreFailure("delete reminder", err)
		}
		if rows == 0 {
			return model.NotFound("reminder", id)
		}
		return nil
	})
}

// ListRemindersForLead returns a lead's reminders by due date.
func (db *DB) ListRemindersForLead(ctx context.Context, leadID string) ([]model.Reminder, error) {
	var reminders []model.Reminder
	err := db.selectAll(ctx, &reminders,
		`SELECT `+reminderColumns+` FROM reminders WHERE lead_id = ? ORDER BY due_date ASC, created_at ASC`,
		leadID)
	if err != nil {
		return nil, model.StoreFailure("list reminders", err)
	}
	return reminders, nil
}

// ListRemindersForAssignee returns a user's reminders, optionally filtered by
// stored status, by due date.
func (db *DB) ListRemindersForAssignee(ctx context.Context, userID string, statuses []model.ReminderStatus) ([]model.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE assigned_to = ?`
	args := []any{userID}

	if len(statuses) > 0 {
		names := make([]string, 0, len(statuses))
		for _, s := range statuses {
			if !s.IsValid() {
				return nil, model.Invalid("invalid status: %s", s)
			}
			names = append(names, string(s))
		}
		expanded, inArgs, err := sqlx.In(` AND status IN (?)`, names)
		if err != nil {
			return nil, fmt.Errorf("failed to build status filter: %w", err)
		}
		query += expanded
		args = append(args, inArgs...)
	}
	query += ` ORDER BY due_date ASC, created_at ASC`

	var reminders []model.Reminder
	if err := db.selectAll(ctx, &reminders, query, args...); err != nil {
		return nil, model.StoreFailure("list reminders", err)
	}
	return reminders, nil
}
