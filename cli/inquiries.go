// ABOUTME: Inquiry CLI commands
// ABOUTME: List inquiries, run triage, apply or dismiss suggestions and open the review inbox
package cli

import (
	"context"
	"fmt"

	"github.com/harperreed/salesdesk/crm"
	"github.com/harperreed/salesdesk/models"
	"github.com/harperreed/salesdesk/tui"
)

// ListInquiriesCommand lists inquiries and marks those with a pending suggestion.
func ListInquiriesCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("inquiry list")
	status := fs.String("status", "", "Filter by status (new, in_progress, done)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	inquiries, err := svc.ListInquiries(ctx)
	if err != nil {
		return err
	}

	w := newTable()
	_, _ = fmt.Fprintln(w, "ID\tNAME\tEMAIL\tSUBJECT\tLANG\tSTATUS\tSUGGESTED")
	_, _ = fmt.Fprintln(w, "--\t----\t-----\t-------\t----\t------\t---------")
	shown := 0
	for _, q := range inquiries {
		if *status != "" && string(q.Status) != *status {
			continue
		}
		suggested := "-"
		if sg, ok := svc.PendingSuggestion(q.ID); ok {
			suggested = fmt.Sprintf("%s (%s)", sg.Analysis.SuggestedStatus, sg.Analysis.PotentialScore)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(q.ID), q.Name, q.Email, q.Subject, q.Language, q.Status, suggested)
		shown++
	}
	_ = w.Flush()
	_, _ = fmt.Fprintf(stdout, "\n%d inquiry(s)\n", shown)
	return nil
}

// TriageCommand triages the given inquiries, or every new one. Statuses are
// left alone; results wait in the suggestion inbox.
func TriageCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("inquiry triage")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ids, err := parseIDs("inquiry", fs.Args())
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		inquiries, err := svc.ListInquiries(ctx)
		if err != nil {
			return err
		}
		for _, q := range inquiries {
			if q.Status == models.InquiryNew {
				ids = append(ids, q.ID)
			}
		}
	}
	if len(ids) == 0 {
		_, _ = fmt.Fprintln(stdout, "No new inquiries to triage")
		return nil
	}

	_, _ = fmt.Fprintf(stdout, "Triaging %d inquiry(s)...\n", len(ids))
	printOutcomes(svc.TriageInquiries(ctx, ids), func(o crm.Outcome) string {
		return fmt.Sprintf("%s → %s (%s)", o.Analysis.Name, o.Analysis.SuggestedStatus, o.Analysis.PotentialScore)
	})
	_, _ = fmt.Fprintln(stdout, "Review with 'salesdesk inquiry review' or 'salesdesk inquiry apply <id>'.")
	return nil
}

// ApplyCommand applies a pending suggestion: inquiry apply <id> [--status s].
func ApplyCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("inquiry apply")
	status := fs.String("status", "", "Override the suggested status (in_progress or done)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := idArg(fs, "inquiry")
	if err != nil {
		return err
	}

	sg, ok := svc.PendingSuggestion(id)
	if !ok {
		return fmt.Errorf("no pending suggestion for inquiry %s", id)
	}
	target := sg.Analysis.SuggestedStatus
	if *status != "" {
		target = models.InquiryStatus(*status)
	}

	q, err := svc.ApplyInquirySuggestion(ctx, id, target)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "✓ %s is now %s\n", q.Name, q.Status)
	if sg.Analysis.AutoReply != "" {
		_, _ = fmt.Fprintf(stdout, "\nSuggested reply:\n%s\n", sg.Analysis.AutoReply)
	}
	return nil
}

// DismissCommand drops a pending suggestion without changing the inquiry.
func DismissCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("inquiry dismiss")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := idArg(fs, "inquiry")
	if err != nil {
		return err
	}
	if !svc.DismissSuggestion(id) {
		return fmt.Errorf("no pending suggestion for inquiry %s", id)
	}
	_, _ = fmt.Fprintln(stdout, "✓ Suggestion dismissed")
	return nil
}

// SetInquiryStatusCommand sets a status directly: inquiry set-status <id> <status>.
func SetInquiryStatusCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("inquiry set-status")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("usage: inquiry set-status <id> <new|in_progress|done>")
	}
	id, err := parseID("inquiry", fs.Arg(0))
	if err != nil {
		return err
	}
	q, err := svc.SetInquiryStatus(ctx, id, models.InquiryStatus(fs.Arg(1)))
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "✓ %s is now %s\n", q.Name, q.Status)
	return nil
}

// ReviewCommand opens the interactive suggestion inbox.
func ReviewCommand(ctx context.Context, svc *crm.Service, args []string) error {
	return tui.Review(ctx, svc)
}
