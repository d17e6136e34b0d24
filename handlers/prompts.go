// ABOUTME: MCP prompt handlers for reusable CRM workflow templates
// ABOUTME: Provides prompts for contact summaries, pipeline reviews, deal analysis and inquiry replies
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/salesdesk/crm"
	"github.com/harperreed/salesdesk/models"
)

type PromptHandlers struct {
	svc *crm.Service
}

func NewPromptHandlers(svc *crm.Service) *PromptHandlers {
	return &PromptHandlers{svc: svc}
}

// Prompts lists every template GetPrompt can render.
func Prompts() []*mcp.Prompt {
	return []*mcp.Prompt{
		{
			Name:        "contact-summary",
			Description: "Summarize a contact with their deals and open tasks",
			Arguments:   []*mcp.PromptArgument{{Name: "contact_id", Description: "Contact ID", Required: true}},
		},
		{
			Name:        "pipeline-review",
			Description: "Review the pipeline by stage with weighted value and win rate",
		},
		{
			Name:        "deal-analysis",
			Description: "Analyze one deal and recommend next steps",
			Arguments:   []*mcp.PromptArgument{{Name: "deal_id", Description: "Deal ID", Required: true}},
		},
		{
			Name:        "inquiry-reply",
			Description: "Draft a reply to an inquiry in its own language",
			Arguments:   []*mcp.PromptArgument{{Name: "inquiry_id", Description: "Inquiry ID", Required: true}},
		},
	}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := request.Params.Arguments
	switch request.Params.Name {
	case "contact-summary":
		return h.contactSummary(ctx, args)
	case "pipeline-review":
		return h.pipelineReview(ctx)
	case "deal-analysis":
		return h.dealAnalysis(ctx, args)
	case "inquiry-reply":
		return h.inquiryReply(ctx, args)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func (h *PromptHandlers) contactSummary(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	id, err := parseID("contact_id", args["contact_id"])
	if err != nil {
		return nil, err
	}
	contact, err := h.svc.GetContact(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contact: %w", err)
	}
	deals, err := h.svc.ListDeals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}
	tasks, err := h.svc.TasksFor(ctx, models.ContactRef{ID: id})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}

	var b strings.Builder
	b.WriteString("Please provide a comprehensive summary of this contact:\n\n")
	fmt.Fprintf(&b, "Name: %s\n", contact.FullName)
	fmt.Fprintf(&b, "Email: %s\n", contact.Email)
	if contact.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", contact.Phone)
	}
	if contact.Company != "" {
		fmt.Fprintf(&b, "Company: %s\n", contact.Company)
	}
	fmt.Fprintf(&b, "Status: %s (source: %s)\n", contact.Status, contact.Source)
	if len(contact.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(contact.Tags, ", "))
	}

	b.WriteString("\nDeals:\n")
	for _, d := range deals {
		if hasContact(d, id) {
			fmt.Fprintf(&b, "  - %s: %s, %s\n", d.Name, d.Stage.Label(), models.FormatMoney(d.Amount, d.Currency))
		}
	}
	if len(tasks) > 0 {
		b.WriteString("\nTasks:\n")
		for _, t := range tasks {
			fmt.Fprintf(&b, "  - %s [%s]\n", t.Title, t.Status.Label())
		}
	}
	if contact.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", contact.Notes)
	}

	b.WriteString("\nPlease analyze this contact and provide:")
	b.WriteString("\n1. A brief summary of their role and relationship with us")
	b.WriteString("\n2. Recommendations for next steps or follow-up actions")

	return userPrompt(fmt.Sprintf("Summary for contact: %s", contact.FullName), b.String()), nil
}

func (h *PromptHandlers) pipelineReview(ctx context.Context) (*mcp.GetPromptResult, error) {
	report, err := h.svc.Report(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build report: %w", err)
	}

	var b strings.Builder
	b.WriteString("Please analyze the current deal pipeline:\n\n")
	for _, s := range report.Stages {
		fmt.Fprintf(&b, "  - %s: %d deals, %s\n", s.Label, s.Count, models.FormatMoney(s.Amount, models.DefaultCurrency))
	}
	fmt.Fprintf(&b, "\nOpen pipeline: %s\n", models.FormatMoney(report.OpenPipelineValue, models.DefaultCurrency))
	fmt.Fprintf(&b, "Weighted pipeline: %s\n", models.FormatMoney(report.WeightedPipelineValue, models.DefaultCurrency))
	fmt.Fprintf(&b, "Won: %d, lost: %d, win rate %.1f%%\n", report.WonCount, report.LostCount, report.WinRate)

	b.WriteString("\nPlease provide:")
	b.WriteString("\n1. Analysis of pipeline health and distribution")
	b.WriteString("\n2. Recommendations for deals that may need attention")

	return userPrompt("Deal pipeline review", b.String()), nil
}

func (h *PromptHandlers) dealAnalysis(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	id, err := parseID("deal_id", args["deal_id"])
	if err != nil {
		return nil, err
	}
	deal, err := h.svc.GetDeal(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deal: %w", err)
	}
	contacts, err := h.svc.ContactsForDeal(ctx, deal)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contacts: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Please analyze this deal: %s\n\n", deal.Name)
	fmt.Fprintf(&b, "Stage: %s (probability %d%%)\n", deal.Stage.Label(), deal.Probability)
	fmt.Fprintf(&b, "Amount: %s\n", models.FormatMoney(deal.Amount, deal.Currency))
	if deal.HealthScore != nil {
		fmt.Fprintf(&b, "Health score: %d (%s)\n", *deal.HealthScore, models.HealthBand(*deal.HealthScore))
	}
	if deal.ExpectedCloseDate != nil {
		fmt.Fprintf(&b, "Expected close: %s\n", deal.ExpectedCloseDate.Format("2006-01-02"))
	}
	for _, c := range contacts {
		fmt.Fprintf(&b, "Contact: %s <%s>\n", c.FullName, c.Email)
	}
	b.WriteString("\nWhat are the risks, and what should happen next to move it forward?")

	return userPrompt(fmt.Sprintf("Analysis for deal: %s", deal.Name), b.String()), nil
}

func (h *PromptHandlers) inquiryReply(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	id, err := parseID("inquiry_id", args["inquiry_id"])
	if err != nil {
		return nil, err
	}
	q, err := h.svc.GetInquiry(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch inquiry: %w", err)
	}

	lang := "English"
	if q.Language == models.LanguageHebrew {
		lang = "Hebrew"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Draft a short, polite reply in %s to this inquiry.\n\n", lang)
	fmt.Fprintf(&b, "From: %s <%s>\n", q.Name, q.Email)
	fmt.Fprintf(&b, "Subject: %s\n", q.Subject)
	if q.ServiceInterest != "" {
		fmt.Fprintf(&b, "Interested in: %s\n", q.ServiceInterest)
	}
	fmt.Fprintf(&b, "\n%s\n", q.Message)
	if sg, ok := h.svc.PendingSuggestion(id); ok && sg.Analysis.AutoReply != "" {
		fmt.Fprintf(&b, "\nA suggested reply to start from:\n%s\n", sg.Analysis.AutoReply)
	}

	return userPrompt(fmt.Sprintf("Reply to inquiry from %s", q.Name), b.String()), nil
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: text},
			},
		},
	}
}

func hasContact(d models.Deal, id uuid.UUID) bool {
	for _, cid := range d.ContactIDs {
		if cid == id {
			return true
		}
	}
	return false
}
