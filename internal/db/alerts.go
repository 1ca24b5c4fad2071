package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/baiirun/leadflow/internal/model"
)

// LastAlerted returns when a reminder was last alerted, if ever.
func (db *DB) LastAlerted(ctx context.Context, reminderID string) (time.Time, bool, error) {
	var at time.Time
	err := db.get(ctx, &at, `SELECT alerted_at FROM reminder_alerts WHERE reminder_id = ?`, reminderID)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, model.StoreFailure("get last alert", err)
	}
	return at, true, nil
}

// MarkAlerted records an alert time, replacing any previous one.
func (db *DB) MarkAlerted(ctx context.Context, reminderID string, at time.Time) error {
	_, err := db.exec(ctx, `
		INSERT INTO reminder_alerts (reminder_id, alerted_at) VALUES (?, ?)
		ON CONFLICT (reminder_id) DO UPDATE SET alerted_at = excluded.alerted_at`,
		reminderID, at)
	if err != nil {
		return model.StoreFailure("record alert", err)
	}
	return nil
}
