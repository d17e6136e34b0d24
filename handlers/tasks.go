// ABOUTME: Task MCP tool handlers
// ABOUTME: Implements add_task, list_tasks and set_task_status tools
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/salesdesk/crm"
	"github.com/harperreed/salesdesk/models"
)

type TaskHandlers struct {
	svc *crm.Service
}

func NewTaskHandlers(svc *crm.Service) *TaskHandlers {
	return &TaskHandlers{svc: svc}
}

type AddTaskInput struct {
	Title       string `json:"title" jsonschema:"Task title (required)"`
	DueDate     string `json:"due_date,omitempty" jsonschema:"Due date (ISO 8601)"`
	Priority    string `json:"priority,omitempty" jsonschema:"Low, Medium or High"`
	RelatedType string `json:"related_type" jsonschema:"Deal or Contact (required)"`
	RelatedID   string `json:"related_id" jsonschema:"ID of the deal or contact (required)"`
	Notes       string `json:"notes,omitempty" jsonschema:"Task notes"`
}

type TaskOutput struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	DueDate     string `json:"due_date,omitempty"`
	Overdue     bool   `json:"overdue"`
	RelatedType string `json:"related_type"`
	RelatedID   string `json:"related_id"`
	Notes       string `json:"notes,omitempty"`
}

func (h *TaskHandlers) AddTask(ctx context.Context, request *mcp.CallToolRequest, input AddTaskInput) (*mcp.CallToolResult, TaskOutput, error) {
	due, err := parseDate("due_date", input.DueDate)
	if err != nil {
		return nil, TaskOutput{}, err
	}
	in := crm.TaskInput{
		Title:       &input.Title,
		DueDate:     due,
		RelatedType: &input.RelatedType,
		RelatedID:   &input.RelatedID,
		Notes:       optional(input.Notes),
	}
	if input.Priority != "" {
		p := models.Priority(input.Priority)
		in.Priority = &p
	}

	task, err := h.svc.CreateTask(ctx, in)
	if err != nil {
		return nil, TaskOutput{}, toolError("create task", err)
	}
	return nil, taskToOutput(task, time.Now()), nil
}

type ListTasksInput struct {
	RelatedType string `json:"related_type,omitempty" jsonschema:"Deal or Contact; with related_id limits tasks to one record"`
	RelatedID   string `json:"related_id,omitempty" jsonschema:"ID of the deal or contact"`
	OpenOnly    bool   `json:"open_only,omitempty" jsonschema:"Skip Done and Archived tasks"`
}

type ListTasksOutput struct {
	Tasks []TaskOutput `json:"tasks"`
}

func (h *TaskHandlers) ListTasks(ctx context.Context, request *mcp.CallToolRequest, input ListTasksInput) (*mcp.CallToolResult, ListTasksOutput, error) {
	var (
		tasks []models.Task
		err   error
	)
	if input.RelatedType != "" || input.RelatedID != "" {
		rel, perr := models.ParseRelation(input.RelatedType, input.RelatedID)
		if perr != nil {
			return nil, ListTasksOutput{}, perr
		}
		tasks, err = h.svc.TasksFor(ctx, rel)
	} else {
		tasks, err = h.svc.ListTasks(ctx)
	}
	if err != nil {
		return nil, ListTasksOutput{}, fmt.Errorf("failed to list tasks: %w", err)
	}

	now := time.Now()
	out := ListTasksOutput{Tasks: []TaskOutput{}}
	for _, t := range tasks {
		if input.OpenOnly && !taskOpen(t) {
			continue
		}
		out.Tasks = append(out.Tasks, taskToOutput(t, now))
	}
	return nil, out, nil
}

type SetTaskStatusInput struct {
	ID     string `json:"id" jsonschema:"Task ID (required)"`
	Status string `json:"status" jsonschema:"To Do, In Progress, Done or Archived"`
}

func (h *TaskHandlers) SetTaskStatus(ctx context.Context, request *mcp.CallToolRequest, input SetTaskStatusInput) (*mcp.CallToolResult, TaskOutput, error) {
	id, err := parseID("id", input.ID)
	if err != nil {
		return nil, TaskOutput{}, err
	}
	task, err := h.svc.UpdateTaskStatus(ctx, id, input.Status)
	if err != nil {
		return nil, TaskOutput{}, toolError("update task", err)
	}
	return nil, taskToOutput(task, time.Now()), nil
}

func taskOpen(t models.Task) bool {
	return t.Status != models.TaskDone && t.Status != models.TaskArchived
}

func taskToOutput(t models.Task, now time.Time) TaskOutput {
	out := TaskOutput{
		ID:       t.ID.String(),
		Title:    t.Title,
		Status:   t.Status.Label(),
		Priority: string(t.Priority),
		Notes:    t.Notes,
	}
	if t.Related != nil {
		out.RelatedType = string(t.Related.RelatedType())
		out.RelatedID = t.Related.RelatedID().String()
	}
	if t.DueDate != nil {
		out.DueDate = t.DueDate.Format("2006-01-02")
		out.Overdue = taskOpen(t) && t.DueDate.Before(now)
	}
	return out
}
