package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/baiirun/leadflow/internal/model"
	"github.com/baiirun/leadflow/internal/notify"
	"github.com/baiirun/leadflow/internal/reminder"
)

var (
	flagDue          string
	flagAssign       string
	flagPriority     string
	flagNotifyBefore int
	flagLead         string
	flagStatus       string
	flagEmail        string
	flagUserName     string
)

// dueLayouts are the absolute formats --due accepts, in local time.
var dueLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseDue accepts an absolute time or a "+duration" offset from now.
func parseDue(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "+") {
		d, err := time.ParseDuration(s[1:])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid due offset %q: %w", s, err)
		}
		return now.Add(d), nil
	}
	for _, layout := range dueLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid due date %q (use RFC3339, \"2006-01-02 15:04\" or +1h30m)", s)
}

// ReminderJSON adds the time-derived fields to a stored reminder.
type ReminderJSON struct {
	model.Reminder
	DisplayStatus model.ReminderStatus `json:"displayStatus"`
	IsOverdue     bool                 `json:"isOverdue"`
}

func reminderJSON(r model.Reminder, now time.Time) ReminderJSON {
	return ReminderJSON{Reminder: r, DisplayStatus: r.DisplayStatus(now), IsOverdue: r.IsOverdue(now)}
}

var remindCmd = &cobra.Command{
	Use:     "remind",
	Aliases: []string{"reminder", "reminders"},
	Short:   "Manage lead reminders",
}

var remindAddCmd = &cobra.Command{
	Use:   "add <lead-id> <title>",
	Short: "Create a reminder",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			r, err := addReminder(cmd.Context(), a, args[0], args[1])
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(reminderJSON(*r, a.clock.Now()))
			}
			fmt.Printf("Created reminder %s due %s\n", r.ID, r.DueDate.Local().Format("Mon Jan 2 15:04"))
			return nil
		})
	},
}

func addReminder(ctx context.Context, a *app, leadID, title string) (*model.Reminder, error) {
	if flagDue == "" {
		return nil, fmt.Errorf("--due is required")
	}
	due, err := parseDue(flagDue, a.clock.Now())
	if err != nil {
		return nil, err
	}
	assignee := flagAssign
	if assignee == "" {
		if assignee, err = a.currentUser(); err != nil {
			return nil, err
		}
	}
	return a.reminders.Create(ctx, reminder.Input{
		LeadID:       leadID,
		Title:        title,
		Description:  flagDescription,
		DueDate:      due,
		Priority:     model.Priority(strings.ToLower(flagPriority)),
		AssignedTo:   assignee,
		CreatedBy:    a.cfg.User,
		NotifyBefore: flagNotifyBefore,
	})
}

var remindListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reminders for a lead (--lead) or for the current user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error { return listReminders(cmd.Context(), a) })
	},
}

func listReminders(ctx context.Context, a *app) error {
	var rs []model.Reminder
	var err error
	if flagLead != "" {
		rs, err = a.reminders.ListForLead(ctx, flagLead)
	} else {
		user, uerr := a.currentUser()
		if uerr != nil {
			return uerr
		}
		var statuses []model.ReminderStatus
		for _, s := range splitList(flagStatus) {
			statuses = append(statuses, model.ReminderStatus(strings.ToLower(s)))
		}
		rs, err = a.reminders.ListForAssignee(ctx, user, statuses...)
	}
	if err != nil {
		return err
	}

	now := a.clock.Now()
	if flagJSON {
		out := make([]ReminderJSON, 0, len(rs))
		for _, r := range rs {
			out = append(out, reminderJSON(r, now))
		}
		return printJSON(out)
	}
	if len(rs) == 0 {
		fmt.Println("No reminders")
		return nil
	}
	for _, r := range rs {
		fmt.Printf("%s  %-9s %-6s %s  %s (lead %s, %s)\n",
			r.ID, r.DisplayStatus(now), r.Priority,
			r.DueDate.Local().Format("Jan 02 15:04"), r.Title, r.LeadID,
			a.assigneeName(ctx, r.AssignedTo))
	}
	return nil
}

var remindShowCmd = &cobra.Command{
	Use:   "show <reminder-id>",
	Short: "Show a reminder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error { return showReminder(cmd.Context(), a, args[0]) })
	},
}

func showReminder(ctx context.Context, a *app, id string) error {
	r, err := a.reminders.Get(ctx, id)
	if err != nil {
		return err
	}
	now := a.clock.Now()
	if flagJSON {
		return printJSON(reminderJSON(*r, now))
	}
	fmt.Printf("%s  %s\n", r.ID, r.Title)
	fmt.Printf("  Lead:     %s\n", r.LeadID)
	fmt.Printf("  Status:   %s\n", r.DisplayStatus(now))
	fmt.Printf("  Priority: %s\n", r.Priority)
	fmt.Printf("  Due:      %s\n", r.DueDate.Local().Format("Mon Jan 2 15:04"))
	fmt.Printf("  Assigned: %s (%s)\n", a.assigneeName(ctx, r.AssignedTo), r.AssignedTo)
	if r.NotifyBefore > 0 {
		fmt.Printf("  Alert:    %d minutes before\n", r.NotifyBefore)
	}
	if r.CompletedAt != nil && r.CompletedBy != nil {
		fmt.Printf("  Done:     %s by %s\n", r.CompletedAt.Local().Format("Mon Jan 2 15:04"), a.assigneeName(ctx, *r.CompletedBy))
	}
	if r.Description != "" {
		fmt.Printf("\n%s\n", r.Description)
	}
	return nil
}

var remindDoneCmd = &cobra.Command{
	Use:   "done <reminder-id>",
	Short: "Complete a reminder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			user, err := a.currentUser()
			if err != nil {
				return err
			}
			r, err := a.reminders.Complete(cmd.Context(), args[0], user)
			if err != nil {
				return err
			}
			fmt.Printf("Completed %s\n", r.ID)
			return nil
		})
	},
}

var remindReopenCmd = &cobra.Command{
	Use:   "reopen <reminder-id>",
	Short: "Reopen a completed reminder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			r, err := a.reminders.Reopen(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Reopened %s\n", r.ID)
			return nil
		})
	},
}

var remindStatusCmd = &cobra.Command{
	Use:   "status <reminder-id> <pending|overdue|completed>",
	Short: "Set a reminder's stored status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			r, err := setReminderStatus(cmd.Context(), a, args[0], args[1])
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(reminderJSON(*r, a.clock.Now()))
			}
			fmt.Printf("Reminder %s is %s\n", r.ID, r.Status)
			return nil
		})
	},
}

// setReminderStatus records the current user as completer when completing.
func setReminderStatus(ctx context.Context, a *app, id, status string) (*model.Reminder, error) {
	st := model.ReminderStatus(strings.ToLower(strings.TrimSpace(status)))
	var by string
	if st == model.ReminderCompleted {
		user, err := a.currentUser()
		if err != nil {
			return nil, err
		}
		by = user
	}
	return a.reminders.SetStatus(ctx, id, st, by)
}

var remindEditCmd = &cobra.Command{
	Use:   "edit <reminder-id>",
	Short: "Change a reminder's title, due date, priority, assignee or alert lead time",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			var patch reminder.Patch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &flagName
			}
			if flags.Changed("desc") {
				patch.Description = &flagDescription
			}
			if flags.Changed("due") {
				due, err := parseDue(flagDue, a.clock.Now())
				if err != nil {
					return err
				}
				patch.DueDate = &due
			}
			if flags.Changed("priority") {
				p := model.Priority(strings.ToLower(flagPriority))
				patch.Priority = &p
			}
			if flags.Changed("assign") {
				patch.AssignedTo = &flagAssign
			}
			if flags.Changed("notify-before") {
				patch.NotifyBefore = &flagNotifyBefore
			}
			r, err := a.reminders.Update(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(reminderJSON(*r, a.clock.Now()))
			}
			fmt.Printf("Updated reminder %s\n", r.ID)
			return nil
		})
	},
}

var remindRmCmd = &cobra.Command{
	Use:   "rm <reminder-id>",
	Short: "Delete a reminder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			if err := a.reminders.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted reminder %s\n", args[0])
			return nil
		})
	},
}

var badgeCmd = &cobra.Command{
	Use:   "badge",
	Short: "Count the current user's pending, due and overdue reminders",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error { return showBadge(cmd.Context(), a) })
	},
}

func showBadge(ctx context.Context, a *app) error {
	user, err := a.currentUser()
	if err != nil {
		return err
	}
	rs, err := a.reminders.ListForAssignee(ctx, user, model.ReminderPending, model.ReminderOverdue)
	if err != nil {
		return err
	}
	b := notify.CountBadge(user, rs, a.clock.Now())
	if flagJSON {
		return printJSON(b)
	}
	fmt.Printf("%d pending, %d due now, %d overdue\n", b.Pending, b.DueNow, b.Overdue)
	return nil
}

var userCmd = &cobra.Command{
	Use:     "user",
	Aliases: []string{"users"},
	Short:   "Manage users",
}

var userAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			u, err := a.users.Create(cmd.Context(), args[0], flagEmail)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(u)
			}
			fmt.Printf("Created user %s\n", u.ID)
			return nil
		})
	},
}

var userEditCmd = &cobra.Command{
	Use:   "edit <user-id>",
	Short: "Rename a user or change their email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			flags := cmd.Flags()
			if !flags.Changed("name") && !flags.Changed("email") {
				return fmt.Errorf("nothing to change: pass --name or --email")
			}
			u, err := a.users.Update(cmd.Context(), args[0], flagUserName, flagEmail)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(u)
			}
			fmt.Printf("Updated user %s\n", u.ID)
			return nil
		})
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			us, err := a.users.List(cmd.Context())
			if err != nil {
				return err
			}
			if flagJSON {
				if us == nil {
					us = []model.User{}
				}
				return printJSON(us)
			}
			if len(us) == 0 {
				fmt.Println("No users")
				return nil
			}
			for _, u := range us {
				fmt.Printf("%s  %s <%s>\n", u.ID, u.Name, u.Email)
			}
			return nil
		})
	},
}

func init() {
	remindAddCmd.Flags().StringVar(&flagDue, "due", "", "Due date: RFC3339, \"2006-01-02 15:04\" or +duration")
	remindAddCmd.Flags().StringVar(&flagAssign, "assign", "", "Assignee user id (default: current user)")
	remindAddCmd.Flags().StringVarP(&flagPriority, "priority", "p", "", "low, medium or high (default medium)")
	remindAddCmd.Flags().IntVar(&flagNotifyBefore, "notify-before", 0, "Minutes before the due date to start alerting")
	remindAddCmd.Flags().StringVarP(&flagDescription, "desc", "d", "", "Description")

	remindListCmd.Flags().StringVar(&flagLead, "lead", "", "List a lead's reminders instead of your own")
	remindListCmd.Flags().StringVar(&flagStatus, "status", "", "Stored statuses to include, comma-separated (default: all)")

	remindEditCmd.Flags().StringVar(&flagName, "title", "", "New title")
	remindEditCmd.Flags().StringVarP(&flagDescription, "desc", "d", "", "New description")
	remindEditCmd.Flags().StringVar(&flagDue, "due", "", "New due date")
	remindEditCmd.Flags().StringVarP(&flagPriority, "priority", "p", "", "New priority")
	remindEditCmd.Flags().StringVar(&flagAssign, "assign", "", "New assignee")
	remindEditCmd.Flags().IntVar(&flagNotifyBefore, "notify-before", 0, "New alert lead time in minutes")

	userAddCmd.Flags().StringVar(&flagEmail, "email", "", "Email address")
	userEditCmd.Flags().StringVar(&flagUserName, "name", "", "New name")
	userEditCmd.Flags().StringVar(&flagEmail, "email", "", "New email address")

	remindCmd.AddCommand(remindAddCmd, remindListCmd, remindShowCmd, remindEditCmd, remindStatusCmd, remindDoneCmd, remindReopenCmd, remindRmCmd)
	userCmd.AddCommand(userAddCmd, userEditCmd, userListCmd)
	rootCmd.AddCommand(remindCmd, badgeCmd, userCmd)
}
