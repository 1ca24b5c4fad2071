package server

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/baiirun/leadflow/internal/model"
	"github.com/baiirun/leadflow/internal/notify"
	"github.com/baiirun/leadflow/internal/reminder"
)

type reminderRequest struct {
	LeadID       *string         `json:"leadId"`
	Title        *string         `json:"title"`
	Description  *string         `json:"description"`
	DueDate      *time.Time      `json:"dueDate"`
	Priority     *model.Priority `json:"priority"`
	AssignedTo   *string         `json:"assignedTo"`
	CreatedBy    *string         `json:"createdBy"`
	NotifyBefore *int            `json:"notifyBefore"`

	// PATCH only. By is recorded as the completer when Status is completed.
	Status *model.ReminderStatus `json:"status"`
	By     string                `json:"by"`
}

func (r reminderRequest) patch() (reminder.Patch, bool) {
	p := reminder.Patch{
		Title:        r.Title,
		Description:  r.Description,
		DueDate:      r.DueDate,
		Priority:     r.Priority,
		AssignedTo:   r.AssignedTo,
		NotifyBefore: r.NotifyBefore,
	}
	changed := p.Title != nil || p.Description != nil || p.DueDate != nil ||
		p.Priority != nil || p.AssignedTo != nil || p.NotifyBefore != nil
	return p, changed
}

type completeRequest struct {
	By string `json:"by"`
}

// reminderView adds the status computed at request time and the assignee's name.
type reminderView struct {
	model.Reminder
	DisplayStatus model.ReminderStatus `json:"displayStatus"`
	IsOverdue     bool                 `json:"isOverdue"`
	AssigneeName  string               `json:"assigneeName"`
}

func (s *Server) view(ctx context.Context, r *model.Reminder) (reminderView, error) {
	now := s.deps.Clock.Now()
	v := reminderView{Reminder: *r, DisplayStatus: r.DisplayStatus(now), IsOverdue: r.IsOverdue(now), AssigneeName: r.AssignedTo}
	if s.deps.Users != nil {
		name, err := s.deps.Users.DisplayName(ctx, r.AssignedTo)
		if err != nil {
			return reminderView{}, err
		}
		v.AssigneeName = name
	}
	return v, nil
}

func (s *Server) views(ctx context.Context, rs []model.Reminder) ([]reminderView, error) {
	out := make([]reminderView, 0, len(rs))
	for i := range rs {
		v, err := s.view(ctx, &rs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Server) sendView(c *fiber.Ctx, status int, r *model.Reminder) error {
	v, err := s.view(c.UserContext(), r)
	if err != nil {
		return err
	}
	return c.Status(status).JSON(v)
}

func (s *Server) sendViews(c *fiber.Ctx, rs []model.Reminder) error {
	vs, err := s.views(c.UserContext(), rs)
	if err != nil {
		return err
	}
	return c.JSON(vs)
}

// listReminders filters by ?leadId= or by ?assignee= with an optional
// comma-separated ?status= list.
func (s *Server) listReminders(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if leadID := c.Query("leadId"); leadID != "" {
		rs, err := s.deps.Reminders.ListForLead(ctx, leadID)
		if err != nil {
			return err
		}
		return s.sendViews(c, rs)
	}

	assignee := c.Query("assignee")
	if assignee == "" {
		return fiber.NewError(fiber.StatusBadRequest, "leadId or assignee query parameter is required")
	}
	var statuses []model.ReminderStatus
	if raw := c.Query("status"); raw != "" {
		for _, st := range strings.Split(raw, ",") {
			statuses = append(statuses, model.ReminderStatus(strings.TrimSpace(st)))
		}
	}
	rs, err := s.deps.Reminders.ListForAssignee(ctx, assignee, statuses...)
	if err != nil {
		return err
	}
	return s.sendViews(c, rs)
}

func (s *Server) createReminder(c *fiber.Ctx) error {
	var req reminderRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	input := reminder.Input{
		LeadID:      deref(req.LeadID),
		Title:       deref(req.Title),
		Description: deref(req.Description),
		AssignedTo:  deref(req.AssignedTo),
		CreatedBy:   deref(req.CreatedBy),
	}
	if req.DueDate != nil {
		input.DueDate = *req.DueDate
	}
	if req.Priority != nil {
		input.Priority = *req.Priority
	}
	if req.NotifyBefore != nil {
		input.NotifyBefore = *req.NotifyBefore
	}
	r, err := s.deps.Reminders.Create(c.UserContext(), input)
	if err != nil {
		return err
	}
	return s.sendView(c, fiber.StatusCreated, r)
}

func (s *Server) getReminder(c *fiber.Ctx) error {
	r, err := s.deps.Reminders.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return s.sendView(c, fiber.StatusOK, r)
}

func (s *Server) updateReminder(c *fiber.Ctx) error {
	var req reminderRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	id := c.Params("id")

	patch, changed := req.patch()
	if !changed && req.Status == nil {
		return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
	}
	var r *model.Reminder
	var err error
	if changed {
		if r, err = s.deps.Reminders.Update(ctx, id, patch); err != nil {
			return err
		}
	}
	if req.Status != nil {
		if r, err = s.deps.Reminders.SetStatus(ctx, id, *req.Status, req.By); err != nil {
			return err
		}
	}
	return s.sendView(c, fiber.StatusOK, r)
}

func (s *Server) deleteReminder(c *fiber.Ctx) error {
	if err := s.deps.Reminders.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) completeReminder(c *fiber.Ctx) error {
	var req completeRequest
	if len(c.Body()) > 0 {
		if err := bind(c, &req); err != nil {
			return err
		}
	}
	r, err := s.deps.Reminders.Complete(c.UserContext(), c.Params("id"), req.By)
	if err != nil {
		return err
	}
	return s.sendView(c, fiber.StatusOK, r)
}

func (s *Server) reopenReminder(c *fiber.Ctx) error {
	r, err := s.deps.Reminders.Reopen(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return s.sendView(c, fiber.StatusOK, r)
}

func (s *Server) badge(c *fiber.Ctx) error {
	userID := c.Params("id")
	rs, err := s.deps.Reminders.ListForAssignee(c.UserContext(), userID, model.ReminderPending, model.ReminderOverdue)
	if err != nil {
		return err
	}
	return c.JSON(notify.CountBadge(userID, rs, s.deps.Clock.Now()))
}
