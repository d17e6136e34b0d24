// ABOUTME: Tests for contact MCP tool handlers
// ABOUTME: Validates tool input/output and error handling
package handlers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/harperreed/salesdesk/classify"
	"github.com/harperreed/salesdesk/crm"
	"github.com/harperreed/salesdesk/models"
	"github.com/harperreed/salesdesk/store"
)

func setupTestService(t *testing.T, gw classify.Gateway) *crm.Service {
	t.Helper()
	opts := []crm.Option{}
	if gw != nil {
		opts = append(opts, crm.WithGateway(gw))
	}
	svc := crm.New(store.New(store.NewMemoryBackend()), opts...)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func addContact(t *testing.T, h *ContactHandlers, first, last, email string) ContactOutput {
	t.Helper()
	_, out, err := h.AddContact(context.Background(), nil, AddContactInput{FirstName: first, LastName: last, Email: email})
	if err != nil {
		t.Fatalf("AddContact failed: %v", err)
	}
	return out
}

func TestAddContactHandler(t *testing.T) {
	handler := NewContactHandlers(setupTestService(t, nil))

	_, out, err := handler.AddContact(context.Background(), nil, AddContactInput{
		FirstName: "John",
		LastName:  "Doe",
		Email:     "john@example.com",
		Phone:     "555-1234",
		Source:    "Referral",
		Tags:      []string{"vip", "vip"},
	})
	if err != nil {
		t.Fatalf("AddContact failed: %v", err)
	}

	if out.FullName != "John Doe" {
		t.Errorf("Expected full name 'John Doe', got %q", out.FullName)
	}
	if out.Source != "Referral" {
		t.Errorf("Expected source Referral, got %q", out.Source)
	}
	if out.Status != string(models.ContactNew) {
		t.Errorf("Expected status New, got %q", out.Status)
	}
	if len(out.Tags) != 1 {
		t.Errorf("Expected duplicate tags collapsed, got %v", out.Tags)
	}
	if out.ID == "" {
		t.Error("ID was not set")
	}
}

func TestAddContactDuplicateEmail(t *testing.T) {
	handler := NewContactHandlers(setupTestService(t, nil))
	first := addContact(t, handler, "Jane", "Smith", "jane@acme.com")

	_, _, err := handler.AddContact(context.Background(), nil, AddContactInput{FirstName: "J", LastName: "S", Email: "JANE@acme.com"})
	if err == nil {
		t.Fatal("Expected conflict for duplicate email")
	}
	var conflict *models.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Expected ConflictError, got %v", err)
	}
	if conflict.Existing.ID.String() != first.ID {
		t.Errorf("Expected existing contact %s, got %s", first.ID, conflict.Existing.ID)
	}
}

func TestAddContactValidation(t *testing.T) {
	handler := NewContactHandlers(setupTestService(t, nil))

	_, _, err := handler.AddContact(context.Background(), nil, AddContactInput{FirstName: "No", LastName: "Email"})
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestFindContacts(t *testing.T) {
	handler := NewContactHandlers(setupTestService(t, nil))
	addContact(t, handler, "Alice", "Smith", "alice@example.com")
	addContact(t, handler, "Bob", "Jones", "bob@example.com")

	_, out, err := handler.FindContacts(context.Background(), nil, FindContactsInput{Query: "smith"})
	if err != nil {
		t.Fatalf("FindContacts failed: %v", err)
	}
	if len(out.Contacts) != 1 || out.Contacts[0].FullName != "Alice Smith" {
		t.Errorf("Expected only Alice Smith, got %+v", out.Contacts)
	}

	_, out, err = handler.FindContacts(context.Background(), nil, FindContactsInput{Limit: 1})
	if err != nil {
		t.Fatalf("FindContacts failed: %v", err)
	}
	if len(out.Contacts) != 1 {
		t.Errorf("Expected limit to cap results at 1, got %d", len(out.Contacts))
	}
}

func TestUpdateContactHandler(t *testing.T) {
	handler := NewContactHandlers(setupTestService(t, nil))
	c := addContact(t, handler, "Alice", "Smith", "alice@example.com")

	_, out, err := handler.UpdateContact(context.Background(), nil, UpdateContactInput{ID: c.ID, Phone: "555-0000", Status: "Active"})
	if err != nil {
		t.Fatalf("UpdateContact failed: %v", err)
	}
	if out.Phone != "555-0000" || out.Status != "Active" {
		t.Errorf("Update not applied: %+v", out)
	}
	if out.Email != "alice@example.com" {
		t.Errorf("Email should be untouched, got %q", out.Email)
	}

	if _, _, err := handler.UpdateContact(context.Background(), nil, UpdateContactInput{ID: "not-a-uuid"}); err == nil {
		t.Error("Expected error for invalid id")
	}
}

func TestLogContactInteraction(t *testing.T) {
	handler := NewContactHandlers(setupTestService(t, nil))
	c := addContact(t, handler, "Alice", "Smith", "alice@example.com")

	for _, note := range []string{"Intro call", "Sent proposal"} {
		_, _, err := handler.LogContactInteraction(context.Background(), nil, LogContactInteractionInput{
			ContactID:       c.ID,
			Note:            note,
			InteractionDate: "2024-05-01T10:00:00Z",
		})
		if err != nil {
			t.Fatalf("LogContactInteraction failed: %v", err)
		}
	}

	_, out, err := handler.FindContacts(context.Background(), nil, FindContactsInput{Query: "alice"})
	if err != nil {
		t.Fatalf("FindContacts failed: %v", err)
	}
	notes := out.Contacts[0].Notes
	if !strings.Contains(notes, "[2024-05-01 10:00] Intro call\n[2024-05-01 10:00] Sent proposal") {
		t.Errorf("Unexpected notes: %q", notes)
	}

	if _, _, err := handler.LogContactInteraction(context.Background(), nil, LogContactInteractionInput{ContactID: c.ID}); err == nil {
		t.Error("Expected error for empty note")
	}
}
