// ABOUTME: Contact CLI commands
// ABOUTME: Human-friendly commands for adding, listing and updating contacts
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/harperreed/salesdesk/crm"
	"github.com/harperreed/salesdesk/models"
)

type contactFlags struct {
	first, last, email, phone, company, title, source, status, tags, notes *string
}

func bindContactFlags(fs *flag.FlagSet) contactFlags {
	return contactFlags{
		first:   fs.String("first", "", "First name"),
		last:    fs.String("last", "", "Last name"),
		email:   fs.String("email", "", "Email address"),
		phone:   fs.String("phone", "", "Phone number"),
		company: fs.String("company", "", "Company name"),
		title:   fs.String("title", "", "Job title"),
		source:  fs.String("source", "", "Source (Inbound, Outbound, Referral, Ad, Other)"),
		status:  fs.String("status", "", "Status (New, Active, Inactive)"),
		tags:    fs.String("tags", "", "Comma-separated tags"),
		notes:   fs.String("notes", "", "Notes about the contact"),
	}
}

func (f contactFlags) input(set map[string]bool) crm.ContactInput {
	in := crm.ContactInput{
		FirstName: ifSet(set, "first", *f.first),
		LastName:  ifSet(set, "last", *f.last),
		Email:     ifSet(set, "email", *f.email),
		Phone:     ifSet(set, "phone", *f.phone),
		Company:   ifSet(set, "company", *f.company),
		Title:     ifSet(set, "title", *f.title),
		Notes:     ifSet(set, "notes", *f.notes),
		Source:    ifSet(set, "source", models.ContactSource(*f.source)),
		Status:    ifSet(set, "status", models.ContactStatus(*f.status)),
	}
	if set["tags"] {
		tags := splitList(*f.tags)
		in.Tags = &tags
	}
	return in
}

// AddContactCommand adds a new contact.
func AddContactCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("contact add")
	flags := bindContactFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	contact, err := svc.SaveContact(ctx, flags.input(setFlags(fs)), uuid.Nil)
	if err != nil {
		return explainContactError(err)
	}

	_, _ = fmt.Fprintf(stdout, "✓ Contact created: %s (ID: %s)\n", contact.FullName, contact.ID)
	_, _ = fmt.Fprintf(stdout, "  Email: %s\n", contact.Email)
	if contact.Company != "" {
		_, _ = fmt.Fprintf(stdout, "  Company: %s\n", contact.Company)
	}
	return nil
}

// UpdateContactCommand changes only the fields given as flags.
func UpdateContactCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("contact update")
	flags := bindContactFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := idArg(fs, "contact")
	if err != nil {
		return err
	}

	contact, err := svc.SaveContact(ctx, flags.input(setFlags(fs)), id)
	if err != nil {
		return explainContactError(err)
	}
	_, _ = fmt.Fprintf(stdout, "✓ Contact updated: %s\n", contact.FullName)
	return nil
}

// ListContactsCommand lists contacts, optionally filtered by a search term.
func ListContactsCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("contact list")
	query := fs.String("query", "", "Search by name, email or company")
	tag := fs.String("tag", "", "Only contacts with this tag")
	limit := fs.Int("limit", 50, "Maximum results")
	if err := fs.Parse(args); err != nil {
		return err
	}

	contacts, err := svc.ListContacts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list contacts: %w", err)
	}

	var shown []models.Contact
	for _, c := range contacts {
		if *query != "" && !matchesContact(c, *query) {
			continue
		}
		if *tag != "" && !hasTag(c, *tag) {
			continue
		}
		shown = append(shown, c)
		if *limit > 0 && len(shown) >= *limit {
			break
		}
	}

	if len(shown) == 0 {
		_, _ = fmt.Fprintln(stdout, "No contacts found")
		return nil
	}

	w := newTable()
	_, _ = fmt.Fprintln(w, "ID\tNAME\tEMAIL\tCOMPANY\tSTATUS\tTAGS")
	_, _ = fmt.Fprintln(w, "--\t----\t-----\t-------\t------\t----")
	for _, c := range shown {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(c.ID), c.FullName, c.Email, c.Company, c.Status, strings.Join(c.Tags, ","))
	}
	_ = w.Flush()
	_, _ = fmt.Fprintf(stdout, "\n%d contact(s)\n", len(shown))
	return nil
}

func explainContactError(err error) error {
	var conflict *models.ConflictError
	if errors.As(err, &conflict) {
		return fmt.Errorf("%w (use 'contact update %s' to change it)", err, conflict.Existing.ID)
	}
	return err
}

func matchesContact(c models.Contact, query string) bool {
	q := strings.ToLower(query)
	for _, field := range []string{c.FullName, c.Email, c.Company} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func hasTag(c models.Contact, tag string) bool {
	for _, t := range c.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
