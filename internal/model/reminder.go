package model

import "time"

// ReminderStatus is the stored state of a reminder.
type ReminderStatus string

const (
	ReminderPending   ReminderStatus = "pending"
	ReminderCompleted ReminderStatus = "completed"
	ReminderOverdue   ReminderStatus = "overdue"
)

func (s ReminderStatus) IsValid() bool {
	switch s {
	case ReminderPending, ReminderCompleted, ReminderOverdue:
		return true
	}
	return false
}

// Priority of a reminder.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Reminder is a due-dated task tied to a lead and an assignee.
type Reminder struct {
	ID           string         `db:"id" json:"id"`
	LeadID       string         `db:"lead_id" json:"leadId"`
	Title        string         `db:"title" json:"title"`
	Description  string         `db:"description" json:"description,omitempty"`
	DueDate      time.Time      `db:"due_date" json:"dueDate"`
	Status       ReminderStatus `db:"status" json:"status"`
	Priority     Priority       `db:"priority" json:"priority"`
	AssignedTo   string         `db:"assigned_to" json:"assignedTo"`
	CreatedBy    string         `db:"created_by" json:"createdBy"`
	NotifyBefore int            `db:"notify_before" json:"notifyBefore"`
	CompletedAt  *time.Time     `db:"completed_at" json:"completedAt,omitempty"`
	CompletedBy  *string        `db:"completed_by" json:"completedBy,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updatedAt"`
}

// NotificationTime is when the alert window opens: dueDate minus NotifyBefore minutes.
func (r Reminder) NotificationTime() time.Time {
	if r.NotifyBefore <= 0 {
		return r.DueDate
	}
	return r.DueDate.Add(-time.Duration(r.NotifyBefore) * time.Minute)
}

// InWindow reports notificationTime <= now <= dueDate.
func (r Reminder) InWindow(now time.Time) bool {
	return !now.Before(r.NotificationTime()) && !now.After(r.DueDate)
}

// IsOverdue is derived from the due date on every call; it never reads a
// stored overdue flag.
func (r Reminder) IsOverdue(now time.Time) bool {
	return r.Status != ReminderCompleted && now.After(r.DueDate)
}

// DisplayStatus is the status a viewer should see at now. It depends only on
// completion and the due date, so a stored overdue status never leaks through.
func (r Reminder) DisplayStatus(now time.Time) ReminderStatus {
	switch {
	case r.Status == ReminderCompleted:
		return ReminderCompleted
	case r.IsOverdue(now):
		return ReminderOverdue
	default:
		return ReminderPending
	}
}

// User is an assignee or creator of reminders.
type User struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
