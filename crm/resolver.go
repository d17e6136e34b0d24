// ABOUTME: Contact identity resolution on create and edit
// ABOUTME: Rejects writes whose email already belongs to another contact, ignoring case
package crm

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harperreed/salesdesk/models"
)

// ContactInput carries the fields of a contact form. A nil field is left
// unchanged on edit.
type ContactInput struct {
	FirstName *string               `json:"firstName,omitempty"`
	LastName  *string               `json:"lastName,omitempty"`
	Email     *string               `json:"email,omitempty"`
	Phone     *string               `json:"phone,omitempty"`
	Company   *string               `json:"company,omitempty"`
	Title     *string               `json:"title,omitempty"`
	Source    *models.ContactSource `json:"source,omitempty"`
	Status    *models.ContactStatus `json:"status,omitempty"`
	OwnerID   *string               `json:"ownerId,omitempty"`
	Tags      *[]string             `json:"tags,omitempty"`
	Notes     *string               `json:"notes,omitempty"`
}

func (in ContactInput) validate(creating bool) error {
	required := []struct {
		field string
		value *string
	}{
		{"firstName", in.FirstName},
		{"lastName", in.LastName},
		{"email", in.Email},
	}
	for _, r := range required {
		if r.value == nil {
			if creating {
				return models.Invalid(r.field, "is required")
			}
			continue
		}
		if strings.TrimSpace(*r.value) == "" {
			return models.Invalid(r.field, "must not be blank")
		}
	}

	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		addr, err := mail.ParseAddress(email)
		if err != nil || addr.Address != email {
			return models.Invalid("email", "%q is not a valid email address", email)
		}
	}
	if in.Source != nil && !models.ValidContactSource(*in.Source) {
		return models.Invalid("source", "unknown source %q", *in.Source)
	}
	if in.Status != nil && !models.ValidContactStatus(*in.Status) {
		return models.Invalid("status", "unknown status %q", *in.Status)
	}
	return nil
}

func (in ContactInput) apply(c *models.Contact) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&c.FirstName, in.FirstName)
	set(&c.LastName, in.LastName)
	set(&c.Email, in.Email)
	set(&c.Phone, in.Phone)
	set(&c.Company, in.Company)
	set(&c.Title, in.Title)
	set(&c.OwnerID, in.OwnerID)
	if in.Notes != nil {
		c.Notes = *in.Notes
	}
	if in.Source != nil {
		c.Source = *in.Source
	}
	if in.Status != nil {
		c.Status = *in.Status
	}
	if in.Tags != nil {
		c.Tags = models.NormalizeTags(*in.Tags)
	}
	c.FullName = models.ComposeFullName(c.FirstName, c.LastName)
}

// SaveContact creates a contact when existingID is uuid.Nil, otherwise edits
// it. If the resulting email (compared case-insensitively) belongs to another
// contact, nothing is written and a *models.ConflictError naming that contact
// is returned.
func (s *Service) SaveContact(ctx context.Context, in ContactInput, existingID uuid.UUID) (models.Contact, error) {
	creating := existingID == uuid.Nil
	if err := in.validate(creating); err != nil {
		return models.Contact{}, err
	}

	s.contactsMu.Lock()
	defer s.contactsMu.Unlock()

	if !creating {
		if _, err := s.store.GetContact(ctx, existingID); err != nil {
			return models.Contact{}, err
		}
	}

	if in.Email != nil {
		existing, found, err := s.findByEmail(ctx, *in.Email, existingID)
		if err != nil {
			return models.Contact{}, err
		}
		if found {
			s.logger.Info("contact email conflict",
				zap.String("email", models.NormalizeEmail(*in.Email)),
				zap.String("existing", existing.ID.String()))
			return models.Contact{}, &models.ConflictError{Existing: existing}
		}
	}

	if creating {
		contact := &models.Contact{
			Source: models.SourceOther,
			Status: models.ContactNew,
			Tags:   []string{},
		}
		in.apply(contact)
		if err := s.store.CreateContact(ctx, contact); err != nil {
			return models.Contact{}, fmt.Errorf("failed to create contact: %w", err)
		}
		s.logger.Debug("contact created", zap.String("id", contact.ID.String()))
		return *contact, nil
	}

	return s.store.UpdateContact(ctx, existingID, func(c *models.Contact) error {
		in.apply(c)
		return nil
	})
}

// findByEmail scans for a contact other than exclude holding email.
func (s *Service) findByEmail(ctx context.Context, email string, exclude uuid.UUID) (models.Contact, bool, error) {
	want := models.NormalizeEmail(email)
	contacts, err := s.store.ListContacts(ctx)
	if err != nil {
		return models.Contact{}, false, err
	}
	for _, c := range contacts {
		if c.ID != exclude && models.NormalizeEmail(c.Email) == want {
			return c, true, nil
		}
	}
	return models.Contact{}, false, nil
}

// FindContactByEmail looks a contact up by email, ignoring case.
func (s *Service) FindContactByEmail(ctx context.Context, email string) (models.Contact, bool, error) {
	return s.findByEmail(ctx, email, uuid.Nil)
}

// ContactsForDeal returns the deal's contacts that still exist.
func (s *Service) ContactsForDeal(ctx context.Context, deal models.Deal) ([]models.Contact, error) {
	contacts := make([]models.Contact, 0, len(deal.ContactIDs))
	for _, id := range deal.ContactIDs {
		c, err := s.store.GetContact(ctx, id)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, nil
}
