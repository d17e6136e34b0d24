// ABOUTME: Task model with a deal-or-contact relation and status transitions
// ABOUTME: Relation is a closed variant serialized as relatedType and relatedId
package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
	TaskArchived   TaskStatus = "archived"
)

var taskStatusLabels = map[TaskStatus]string{
	TaskTodo:       "To Do",
	TaskInProgress: "In Progress",
	TaskDone:       "Done",
	TaskArchived:   "Archived",
}

func (s TaskStatus) Label() string {
	if label, ok := taskStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

// ParseTaskStatus accepts ids ("in_progress") and labels ("In Progress").
func ParseTaskStatus(s string) (TaskStatus, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if key == "to_do" {
		key = string(TaskTodo)
	}
	status := TaskStatus(key)
	if _, ok := taskStatusLabels[status]; !ok {
		return "", Invalid("status", "invalid task status: %s", s)
	}
	return status, nil
}

type RelatedType string

const (
	RelatedDeal    RelatedType = "Deal"
	RelatedContact RelatedType = "Contact"
)

// Relation points a task at exactly one deal or contact.
type Relation interface {
	RelatedType() RelatedType
	RelatedID() uuid.UUID
	sealed()
}

type DealRef struct{ ID uuid.UUID }

func (r DealRef) RelatedType() RelatedType { return RelatedDeal }
func (r DealRef) RelatedID() uuid.UUID     { return r.ID }
func (DealRef) sealed()                    {}

type ContactRef struct{ ID uuid.UUID }

func (r ContactRef) RelatedType() RelatedType { return RelatedContact }
func (r ContactRef) RelatedID() uuid.UUID     { return r.ID }
func (ContactRef) sealed()                    {}

// ParseRelation builds a Relation from its wire form. The target is not
// checked for existence.
func ParseRelation(relatedType, relatedID string) (Relation, error) {
	id, err := uuid.Parse(strings.TrimSpace(relatedID))
	if err != nil {
		return nil, Invalid("relatedId", "%q is not a valid id", relatedID)
	}
	switch strings.ToLower(strings.TrimSpace(relatedType)) {
	case "deal":
		return DealRef{ID: id}, nil
	case "contact":
		return ContactRef{ID: id}, nil
	default:
		return nil, Invalid("relatedType", "must be Deal or Contact, got %q", relatedType)
	}
}

type Task struct {
	Meta
	Title      string     `json:"title"`
	DueDate    *time.Time `json:"dueDate,omitempty"`
	Status     TaskStatus `json:"status"`
	Priority   Priority   `json:"priority"`
	AssigneeID string     `json:"assigneeId,omitempty"`
	Related    Relation   `json:"-"`
	Notes      string     `json:"notes,omitempty"`
}

type taskFields Task

type taskWire struct {
	taskFields
	RelatedType RelatedType `json:"relatedType,omitempty"`
	RelatedID   string      `json:"relatedId,omitempty"`
}

func (t Task) MarshalJSON() ([]byte, error) {
	w := taskWire{taskFields: taskFields(t)}
	if t.Related != nil {
		w.RelatedType = t.Related.RelatedType()
		w.RelatedID = t.Related.RelatedID().String()
	}
	return json.Marshal(w)
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var w taskWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*t = Task(w.taskFields)
	t.Related = nil
	if w.RelatedType == "" && w.RelatedID == "" {
		return nil
	}
	rel, err := ParseRelation(string(w.RelatedType), w.RelatedID)
	if err != nil {
		return err
	}
	t.Related = rel
	return nil
}
