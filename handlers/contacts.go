// ABOUTME: Contact MCP tool handlers
// ABOUTME: Implements add_contact, find_contacts, update_contact and log_contact_interaction tools
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/salesdesk/crm"
	"github.com/harperreed/salesdesk/models"
)

type ContactHandlers struct {
	svc *crm.Service
}

func NewContactHandlers(svc *crm.Service) *ContactHandlers {
	return &ContactHandlers{svc: svc}
}

type AddContactInput struct {
	FirstName string   `json:"first_name" jsonschema:"First name (required)"`
	LastName  string   `json:"last_name" jsonschema:"Last name (required)"`
	Email     string   `json:"email" jsonschema:"Email address (required, unique ignoring case)"`
	Phone     string   `json:"phone,omitempty" jsonschema:"Phone number"`
	Company   string   `json:"company,omitempty" jsonschema:"Company name"`
	Title     string   `json:"title,omitempty" jsonschema:"Job title"`
	Source    string   `json:"source,omitempty" jsonschema:"Lead source: Inbound, Outbound, Referral, Ad or Other"`
	Tags      []string `json:"tags,omitempty" jsonschema:"Free-form tags"`
	Notes     string   `json:"notes,omitempty" jsonschema:"Additional notes about the contact"`
}

type ContactOutput struct {
	ID        string   `json:"id"`
	FullName  string   `json:"full_name"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone,omitempty"`
	Company   string   `json:"company,omitempty"`
	Title     string   `json:"title,omitempty"`
	Source    string   `json:"source"`
	Status    string   `json:"status"`
	Tags      []string `json:"tags,omitempty"`
	Notes     string   `json:"notes,omitempty"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

func (h *ContactHandlers) AddContact(ctx context.Context, request *mcp.CallToolRequest, input AddContactInput) (*mcp.CallToolResult, ContactOutput, error) {
	in := crm.ContactInput{
		FirstName: &input.FirstName,
		LastName:  &input.LastName,
		Email:     &input.Email,
		Phone:     optional(input.Phone),
		Company:   optional(input.Company),
		Title:     optional(input.Title),
		Notes:     optional(input.Notes),
	}
	if input.Source != "" {
		src := models.ContactSource(input.Source)
		in.Source = &src
	}
	if input.Tags != nil {
		in.Tags = &input.Tags
	}

	contact, err := h.svc.SaveContact(ctx, in, uuid.Nil)
	if err != nil {
		return nil, ContactOutput{}, toolError("create contact", err)
	}
	return nil, contactToOutput(contact), nil
}

type FindContactsInput struct {
	Query string `json:"query,omitempty" jsonschema:"Search query (matches name, email and company)"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 10)"`
}

type FindContactsOutput struct {
	Contacts []ContactOutput `json:"contacts"`
}

func (h *ContactHandlers) FindContacts(ctx context.Context, request *mcp.CallToolRequest, input FindContactsInput) (*mcp.CallToolResult, FindContactsOutput, error) {
	limit := input.Limit
	if limit == 0 {
		limit = 10
	}

	contacts, err := h.svc.ListContacts(ctx)
	if err != nil {
		return nil, FindContactsOutput{}, fmt.Errorf("failed to find contacts: %w", err)
	}

	result := []ContactOutput{}
	for _, c := range contacts {
		if !contactMatches(c, input.Query) {
			continue
		}
		result = append(result, contactToOutput(c))
		if len(result) == limit {
			break
		}
	}
	return nil, FindContactsOutput{Contacts: result}, nil
}

type UpdateContactInput struct {
	ID      string `json:"id" jsonschema:"Contact ID (required)"`
	Email   string `json:"email,omitempty" jsonschema:"Updated email address"`
	Phone   string `json:"phone,omitempty" jsonschema:"Updated phone number"`
	Company string `json:"company,omitempty" jsonschema:"Updated company"`
	Title   string `json:"title,omitempty" jsonschema:"Updated job title"`
	Status  string `json:"status,omitempty" jsonschema:"Updated status: New, Active or Inactive"`
	Notes   string `json:"notes,omitempty" jsonschema:"Updated notes"`
}

func (h *ContactHandlers) UpdateContact(ctx context.Context, request *mcp.CallToolRequest, input UpdateContactInput) (*mcp.CallToolResult, ContactOutput, error) {
	id, err := parseID("id", input.ID)
	if err != nil {
		return nil, ContactOutput{}, err
	}

	in := crm.ContactInput{
		Email:   optional(input.Email),
		Phone:   optional(input.Phone),
		Company: optional(input.Company),
		Title:   optional(input.Title),
		Notes:   optional(input.Notes),
	}
	if input.Status != "" {
		st := models.ContactStatus(input.Status)
		in.Status = &st
	}

	contact, err := h.svc.SaveContact(ctx, in, id)
	if err != nil {
		return nil, ContactOutput{}, toolError("update contact", err)
	}
	return nil, contactToOutput(contact), nil
}

type LogContactInteractionInput struct {
	ContactID       string `json:"contact_id" jsonschema:"Contact ID (required)"`
	Note            string `json:"note" jsonschema:"Note about the interaction (required)"`
	InteractionDate string `json:"interaction_date,omitempty" jsonschema:"Date of interaction (ISO 8601 format, defaults to now)"`
}

// LogContactInteraction appends a timestamped line to the contact's notes.
func (h *ContactHandlers) LogContactInteraction(ctx context.Context, request *mcp.CallToolRequest, input LogContactInteractionInput) (*mcp.CallToolResult, ContactOutput, error) {
	id, err := parseID("contact_id", input.ContactID)
	if err != nil {
		return nil, ContactOutput{}, err
	}
	if strings.TrimSpace(input.Note) == "" {
		return nil, ContactOutput{}, fmt.Errorf("note is required")
	}

	when := time.Now()
	if input.InteractionDate != "" {
		when, err = time.Parse(time.RFC3339, input.InteractionDate)
		if err != nil {
			return nil, ContactOutput{}, fmt.Errorf("invalid interaction_date format (use ISO 8601/RFC3339): %w", err)
		}
	}

	contact, err := h.svc.GetContact(ctx, id)
	if err != nil {
		return nil, ContactOutput{}, toolError("get contact", err)
	}

	entry := fmt.Sprintf("[%s] %s", when.Format("2006-01-02 15:04"), input.Note)
	notes := entry
	if contact.Notes != "" {
		notes = contact.Notes + "\n" + entry
	}

	contact, err = h.svc.SaveContact(ctx, crm.ContactInput{Notes: &notes}, id)
	if err != nil {
		return nil, ContactOutput{}, toolError("update notes", err)
	}
	return nil, contactToOutput(contact), nil
}

func contactMatches(c models.Contact, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, field := range []string{c.FullName, c.Email, c.Company} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func contactToOutput(c models.Contact) ContactOutput {
	return ContactOutput{
		ID:        c.ID.String(),
		FullName:  c.FullName,
		Email:     c.Email,
		Phone:     c.Phone,
		Company:   c.Company,
		Title:     c.Title,
		Source:    string(c.Source),
		Status:    string(c.Status),
		Tags:      c.Tags,
		Notes:     c.Notes,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.Format(time.RFC3339),
	}
}

// optional maps an empty tool argument to "not provided".
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func parseID(field, raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%s is required", field)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", field, err)
	}
	return id, nil
}

func toolError(action string, err error) error {
	return fmt.Errorf("failed to %s: %w", action, err)
}
