package notify

import (
	"time"

	"github.com/baiirun/leadflow/internal/model"
)

// Badge is the count of a user's open reminders at a point in time.
type Badge struct {
	UserID  string    `json:"userId"`
	Pending int       `json:"pending"`
	DueNow  int       `json:"dueNow"`
	Overdue int       `json:"overdue"`
	At      time.Time `json:"at"`
}

// Total is every open reminder counted.
func (b Badge) Total() int {
	return b.Pending + b.Overdue
}

// CountBadge counts rs at now. Overdue is derived from each due date; a
// reminder is counted as either pending or overdue, never both. DueNow is the
// pending subset whose alert window is open.
func CountBadge(userID string, rs []model.Reminder, now time.Time) Badge {
	b := Badge{UserID: userID, At: now}
	for _, r := range rs {
		switch {
		case r.Status == model.ReminderCompleted:
		case r.IsOverdue(now):
			b.Overdue++
		default:
			b.Pending++
			if r.InWindow(now) {
				b.DueNow++
			}
		}
	}
	return b
}
