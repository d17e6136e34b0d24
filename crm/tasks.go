// ABOUTME: Task creation, status transitions and lookup by related deal or contact
// ABOUTME: The related record is not required to exist when the task is written
package crm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/salesdesk/models"
)

type TaskInput struct {
	Title       *string          `json:"title,omitempty"`
	DueDate     *time.Time       `json:"dueDate,omitempty"`
	Status      *string          `json:"status,omitempty"`
	Priority    *models.Priority `json:"priority,omitempty"`
	AssigneeID  *string          `json:"assigneeId,omitempty"`
	RelatedType *string          `json:"relatedType,omitempty"`
	RelatedID   *string          `json:"relatedId,omitempty"`
	Notes       *string          `json:"notes,omitempty"`
}

type taskChanges struct {
	status   models.TaskStatus
	relation models.Relation
}

func (in TaskInput) validate(creating bool) (taskChanges, error) {
	var ch taskChanges
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return ch, models.Invalid("title", "must not be blank")
	}
	if creating && in.Title == nil {
		return ch, models.Invalid("title", "is required")
	}
	if in.Status != nil {
		status, err := models.ParseTaskStatus(*in.Status)
		if err != nil {
			return ch, err
		}
		ch.status = status
	}
	if in.Priority != nil && !models.ValidPriority(*in.Priority) {
		return ch, models.Invalid("priority", "unknown priority %q", *in.Priority)
	}
	if (in.RelatedType == nil) != (in.RelatedID == nil) {
		return ch, models.Invalid("relatedType", "relatedType and relatedId must be given together")
	}
	if in.RelatedType != nil {
		rel, err := models.ParseRelation(*in.RelatedType, *in.RelatedID)
		if err != nil {
			return ch, err
		}
		ch.relation = rel
	}
	return ch, nil
}

func (in TaskInput) apply(t *models.Task, ch taskChanges) {
	if in.Title != nil {
		t.Title = strings.TrimSpace(*in.Title)
	}
	if in.DueDate != nil {
		due := in.DueDate.UTC()
		t.DueDate = &due
	}
	if ch.status != "" {
		t.Status = ch.status
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.AssigneeID != nil {
		t.AssigneeID = *in.AssigneeID
	}
	if ch.relation != nil {
		t.Related = ch.relation
	}
	if in.Notes != nil {
		t.Notes = *in.Notes
	}
}

func (s *Service) CreateTask(ctx context.Context, in TaskInput) (models.Task, error) {
	ch, err := in.validate(true)
	if err != nil {
		return models.Task{}, err
	}
	task := &models.Task{Status: models.TaskTodo, Priority: models.PriorityMedium}
	in.apply(task, ch)
	if err := s.store.CreateTask(ctx, task); err != nil {
		return models.Task{}, fmt.Errorf("failed to create task: %w", err)
	}
	return *task, nil
}

func (s *Service) UpdateTask(ctx context.Context, id uuid.UUID, in TaskInput) (models.Task, error) {
	ch, err := in.validate(false)
	if err != nil {
		return models.Task{}, err
	}
	return s.store.UpdateTask(ctx, id, func(t *models.Task) error {
		in.apply(t, ch)
		return nil
	})
}

// UpdateTaskStatus moves a task to any status, e.g. "In Progress" or "done".
func (s *Service) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status string) (models.Task, error) {
	return s.UpdateTask(ctx, id, TaskInput{Status: &status})
}

// TasksFor lists the tasks attached to a deal or contact.
func (s *Service) TasksFor(ctx context.Context, rel models.Relation) ([]models.Task, error) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	out := []models.Task{}
	for _, t := range tasks {
		if t.Related != nil && t.Related.RelatedType() == rel.RelatedType() && t.Related.RelatedID() == rel.RelatedID() {
			out = append(out, t)
		}
	}
	return out, nil
}
