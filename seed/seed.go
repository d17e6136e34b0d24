// ABOUTME: YAML fixtures for populating a fresh CRM with demo or test data
// ABOUTME: Contacts go through the resolver so email dedup applies to seeded data too
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/harperreed/salesdesk/crm"
	"github.com/harperreed/salesdesk/models"
)

//go:embed demo.yaml
var demoYAML []byte

type Fixtures struct {
	Contacts  []Contact `yaml:"contacts"`
	Deals     []Deal    `yaml:"deals"`
	Tasks     []Task    `yaml:"tasks"`
	Inquiries []Inquiry `yaml:"inquiries"`
}

// Contact fixtures are referenced by Key from deals and tasks.
type Contact struct {
	Key       string   `yaml:"key"`
	FirstName string   `yaml:"first_name"`
	LastName  string   `yaml:"last_name"`
	Email     string   `yaml:"email"`
	Phone     string   `yaml:"phone,omitempty"`
	Company   string   `yaml:"company,omitempty"`
	Title     string   `yaml:"title,omitempty"`
	Source    string   `yaml:"source,omitempty"`
	Status    string   `yaml:"status,omitempty"`
	Owner     string   `yaml:"owner,omitempty"`
	Tags      []string `yaml:"tags,omitempty"`
	Notes     string   `yaml:"notes,omitempty"`
}

type Deal struct {
	Key      string `yaml:"key"`
	Name     string `yaml:"name"`
	Company  string `yaml:"company,omitempty"`
	Amount   int64  `yaml:"amount"` // whole currency units
	Currency string `yaml:"currency,omitempty"`
	Stage    string `yaml:"stage,omitempty"`
	// Probability is left to the deal default when omitted.
	Probability *int     `yaml:"probability,omitempty"`
	CloseInDays *int     `yaml:"close_in_days,omitempty"`
	Contacts    []string `yaml:"contacts,omitempty"`
	Owner       string   `yaml:"owner,omitempty"`
	Priority    string   `yaml:"priority,omitempty"`
}

// Task fixtures relate to at most one of Deal or Contact, by key.
type Task struct {
	Title     string `yaml:"title"`
	Status    string `yaml:"status,omitempty"`
	Priority  string `yaml:"priority,omitempty"`
	DueInDays *int   `yaml:"due_in_days,omitempty"`
	Deal      string `yaml:"deal,omitempty"`
	Contact   string `yaml:"contact,omitempty"`
	Assignee  string `yaml:"assignee,omitempty"`
	Notes     string `yaml:"notes,omitempty"`
}

type Inquiry struct {
	Ref             string `yaml:"ref"`
	Name            string `yaml:"name"`
	Email           string `yaml:"email"`
	Phone           string `yaml:"phone,omitempty"`
	Subject         string `yaml:"subject"`
	Message         string `yaml:"message"`
	ServiceInterest string `yaml:"service_interest,omitempty"`
	Language        string `yaml:"language,omitempty"`
	Status          string `yaml:"status,omitempty"`
}

// Summary counts what Apply wrote. Reused counts contacts whose email was
// already present and inquiries whose ref was already imported.
type Summary struct {
	Contacts  int `json:"contacts"`
	Deals     int `json:"deals"`
	Tasks     int `json:"tasks"`
	Inquiries int `json:"inquiries"`
	Reused    int `json:"reused"`
}

func Load(r io.Reader) (*Fixtures, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var fx Fixtures
	if err := dec.Decode(&fx); err != nil {
		if errors.Is(err, io.EOF) {
			return &fx, nil
		}
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	return &fx, nil
}

// Demo returns the bundled demo data set.
func Demo() (*Fixtures, error) {
	return Load(bytes.NewReader(demoYAML))
}

// Apply writes fixtures through svc. Relative dates are resolved against now.
func Apply(ctx context.Context, svc *crm.Service, fx *Fixtures, now time.Time) (Summary, error) {
	var sum Summary
	contacts := make(map[string]uuid.UUID, len(fx.Contacts))
	deals := make(map[string]uuid.UUID, len(fx.Deals))

	for _, c := range fx.Contacts {
		saved, err := svc.SaveContact(ctx, contactInput(c), uuid.Nil)
		var conflict *models.ConflictError
		switch {
		case errors.As(err, &conflict):
			saved = conflict.Existing
			sum.Reused++
		case err != nil:
			return sum, fmt.Errorf("contact %q: %w", c.Key, err)
		default:
			sum.Contacts++
		}
		if c.Key != "" {
			contacts[c.Key] = saved.ID
		}
	}

	for _, d := range fx.Deals {
		in, err := dealInput(d, contacts, now)
		if err != nil {
			return sum, err
		}
		saved, err := svc.CreateDeal(ctx, in)
		if err != nil {
			return sum, fmt.Errorf("deal %q: %w", d.Name, err)
		}
		if d.Key != "" {
			deals[d.Key] = saved.ID
		}
		sum.Deals++
	}

	for _, t := range fx.Tasks {
		in, err := taskInput(t, deals, contacts, now)
		if err != nil {
			return sum, err
		}
		if _, err := svc.CreateTask(ctx, in); err != nil {
			return sum, fmt.Errorf("task %q: %w", t.Title, err)
		}
		sum.Tasks++
	}

	for _, q := range fx.Inquiries {
		ref := ""
		if q.Ref != "" {
			ref = "seed:" + q.Ref
		}
		_, created, err := svc.ImportInquiry(ctx, models.Inquiry{
			Name:            q.Name,
			Email:           q.Email,
			Phone:           q.Phone,
			Subject:         q.Subject,
			Message:         q.Message,
			ServiceInterest: q.ServiceInterest,
			Language:        models.Language(q.Language),
			Status:          models.InquiryStatus(q.Status),
			SourceRef:       ref,
		})
		if err != nil {
			return sum, fmt.Errorf("inquiry %q: %w", q.Ref, err)
		}
		if created {
			sum.Inquiries++
		} else {
			sum.Reused++
		}
	}
	return sum, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func contactInput(c Contact) crm.ContactInput {
	in := crm.ContactInput{
		FirstName: &c.FirstName,
		LastName:  &c.LastName,
		Email:     &c.Email,
		Phone:     optional(c.Phone),
		Company:   optional(c.Company),
		Title:     optional(c.Title),
		OwnerID:   optional(c.Owner),
		Notes:     optional(c.Notes),
	}
	if c.Source != "" {
		src := models.ContactSource(c.Source)
		in.Source = &src
	}
	if c.Status != "" {
		st := models.ContactStatus(c.Status)
		in.Status = &st
	}
	if c.Tags != nil {
		in.Tags = &c.Tags
	}
	return in
}

func dealInput(d Deal, contacts map[string]uuid.UUID, now time.Time) (crm.DealInput, error) {
	cents := d.Amount * 100
	in := crm.DealInput{
		Name:        &d.Name,
		Company:     optional(d.Company),
		Amount:      &cents,
		Currency:    optional(d.Currency),
		Stage:       optional(d.Stage),
		Probability: d.Probability,
		OwnerID:     optional(d.Owner),
	}
	if d.Priority != "" {
		p := models.Priority(d.Priority)
		in.Priority = &p
	}
	if d.CloseInDays != nil {
		closeDate := now.AddDate(0, 0, *d.CloseInDays).UTC()
		in.ExpectedCloseDate = &closeDate
	}
	if len(d.Contacts) > 0 {
		ids := make([]uuid.UUID, 0, len(d.Contacts))
		for _, key := range d.Contacts {
			id, ok := contacts[key]
			if !ok {
				return in, fmt.Errorf("deal %q references unknown contact %q", d.Name, key)
			}
			ids = append(ids, id)
		}
		in.ContactIDs = &ids
	}
	return in, nil
}

func taskInput(t Task, deals, contacts map[string]uuid.UUID, now time.Time) (crm.TaskInput, error) {
	in := crm.TaskInput{
		Title:      &t.Title,
		Status:     optional(t.Status),
		AssigneeID: optional(t.Assignee),
		Notes:      optional(t.Notes),
	}
	if t.Priority != "" {
		p := models.Priority(t.Priority)
		in.Priority = &p
	}
	if t.DueInDays != nil {
		due := now.AddDate(0, 0, *t.DueInDays).UTC()
		in.DueDate = &due
	}

	var relType string
	var relID uuid.UUID
	var ok bool
	switch {
	case t.Deal != "" && t.Contact != "":
		return in, fmt.Errorf("task %q relates to both a deal and a contact", t.Title)
	case t.Deal != "":
		relType = string(models.RelatedDeal)
		relID, ok = deals[t.Deal]
	case t.Contact != "":
		relType = string(models.RelatedContact)
		relID, ok = contacts[t.Contact]
	default:
		return in, nil
	}
	if !ok {
		return in, fmt.Errorf("task %q references unknown %s", t.Title, relType)
	}
	id := relID.String()
	in.RelatedType = &relType
	in.RelatedID = &id
	return in, nil
}
