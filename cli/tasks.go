// ABOUTME: Task CLI commands
// ABOUTME: Commands for adding tasks against deals or contacts, listing them and changing status
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/harperreed/salesdesk/crm"
	"github.com/harperreed/salesdesk/models"
)

// AddTaskCommand adds a task, optionally linked to a deal or contact.
func AddTaskCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("task add")
	title := fs.String("title", "", "Task title (required)")
	due := fs.String("due", "", "Due date (YYYY-MM-DD)")
	priority := fs.String("priority", "", "Priority (Low, Medium, High)")
	deal := fs.String("deal", "", "Related deal ID")
	contact := fs.String("contact", "", "Related contact ID")
	notes := fs.String("notes", "", "Notes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	set := setFlags(fs)
	if *deal != "" && *contact != "" {
		return fmt.Errorf("a task relates to a deal or a contact, not both")
	}

	in := crm.TaskInput{
		Title:    title,
		Priority: ifSet(set, "priority", models.Priority(*priority)),
		Notes:    ifSet(set, "notes", *notes),
	}
	if *due != "" {
		d, err := parseDate(*due)
		if err != nil {
			return err
		}
		in.DueDate = &d
	}
	if *deal != "" {
		kind := "deal"
		in.RelatedType, in.RelatedID = &kind, deal
	} else if *contact != "" {
		kind := "contact"
		in.RelatedType, in.RelatedID = &kind, contact
	}

	task, err := svc.CreateTask(ctx, in)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "✓ Task created: %s (ID: %s)\n", task.Title, task.ID)
	if task.DueDate != nil {
		_, _ = fmt.Fprintf(stdout, "  Due: %s\n", task.DueDate.Format("2006-01-02"))
	}
	return nil
}

// ListTasksCommand lists tasks, overdue ones flagged.
func ListTasksCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("task list")
	deal := fs.String("deal", "", "Only tasks for this deal ID")
	contact := fs.String("contact", "", "Only tasks for this contact ID")
	openOnly := fs.Bool("open", false, "Hide done and archived tasks")
	overdueOnly := fs.Bool("overdue", false, "Only overdue tasks")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		tasks []models.Task
		err   error
	)
	switch {
	case *deal != "":
		tasks, err = tasksFor(ctx, svc, "deal", *deal)
	case *contact != "":
		tasks, err = tasksFor(ctx, svc, "contact", *contact)
	default:
		tasks, err = svc.ListTasks(ctx)
	}
	if err != nil {
		return err
	}

	now := time.Now()
	w := newTable()
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tPRIORITY\tDUE\tRELATED")
	_, _ = fmt.Fprintln(w, "--\t-----\t------\t--------\t---\t-------")
	shown := 0
	for _, t := range tasks {
		open := t.Status == models.TaskTodo || t.Status == models.TaskInProgress
		overdue := open && t.DueDate != nil && t.DueDate.Before(now)
		if *openOnly && !open {
			continue
		}
		if *overdueOnly && !overdue {
			continue
		}
		indicator := "🟢"
		if overdue {
			indicator = "🔴"
		} else if !open {
			indicator = "⚪"
		}
		related := "-"
		if t.Related != nil {
			related = fmt.Sprintf("%s %s", t.Related.RelatedType(), shortID(t.Related.RelatedID()))
		}
		_, _ = fmt.Fprintf(w, "%s\t%s %s\t%s\t%s\t%s\t%s\n",
			shortID(t.ID), indicator, t.Title, t.Status.Label(), t.Priority, dateOrDash(t.DueDate), related)
		shown++
	}
	_ = w.Flush()
	_, _ = fmt.Fprintf(stdout, "\n%d task(s)\n", shown)
	return nil
}

// TaskStatusCommand changes a task's status: task status <id> <status>.
func TaskStatusCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("task status")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("usage: task status <id> <todo|in_progress|done|archived>")
	}
	id, err := parseID("task", fs.Arg(0))
	if err != nil {
		return err
	}
	task, err := svc.UpdateTaskStatus(ctx, id, fs.Arg(1))
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "✓ %s is now %s\n", task.Title, task.Status.Label())
	return nil
}

func tasksFor(ctx context.Context, svc *crm.Service, kind, rawID string) ([]models.Task, error) {
	rel, err := models.ParseRelation(kind, rawID)
	if err != nil {
		return nil, err
	}
	return svc.TasksFor(ctx, rel)
}
