// ABOUTME: Deal MCP tool handlers
// ABOUTME: Implements create_deal, update_deal, move_deal and score_deals tools
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/salesdesk/crm"
	"github.com/harperreed/salesdesk/models"
)

type DealHandlers struct {
	svc *crm.Service
}

func NewDealHandlers(svc *crm.Service) *DealHandlers {
	return &DealHandlers{svc: svc}
}

type CreateDealInput struct {
	Name              string   `json:"name" jsonschema:"Deal name (required)"`
	Company           string   `json:"company,omitempty" jsonschema:"Company name"`
	Amount            int64    `json:"amount,omitempty" jsonschema:"Deal amount in cents"`
	Currency          string   `json:"currency,omitempty" jsonschema:"Currency code (default USD)"`
	Stage             string   `json:"stage,omitempty" jsonschema:"Pipeline stage, e.g. Prospecting, Proposal, Closed - Won"`
	Probability       *int     `json:"probability,omitempty" jsonschema:"Win probability 0-100"`
	ContactEmails     []string `json:"contact_emails,omitempty" jsonschema:"Emails of existing contacts on the deal"`
	ExpectedCloseDate string   `json:"expected_close_date,omitempty" jsonschema:"Expected close date in ISO 8601 format"`
	Priority          string   `json:"priority,omitempty" jsonschema:"Low, Medium or High"`
}

type DealOutput struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Company           string   `json:"company,omitempty"`
	Amount            int64    `json:"amount"`
	Currency          string   `json:"currency"`
	Display           string   `json:"display"`
	Stage             string   `json:"stage"`
	Probability       int      `json:"probability"`
	Priority          string   `json:"priority"`
	HealthScore       *int     `json:"health_score,omitempty"`
	ContactIDs        []string `json:"contact_ids,omitempty"`
	ExpectedCloseDate *string  `json:"expected_close_date,omitempty"`
	CreatedAt         string   `json:"created_at"`
	UpdatedAt         string   `json:"updated_at"`
}

func (h *DealHandlers) CreateDeal(ctx context.Context, request *mcp.CallToolRequest, input CreateDealInput) (*mcp.CallToolResult, DealOutput, error) {
	in := crm.DealInput{
		Name:        &input.Name,
		Company:     optional(input.Company),
		Currency:    optional(input.Currency),
		Stage:       optional(input.Stage),
		Probability: input.Probability,
	}
	if input.Amount != 0 {
		in.Amount = &input.Amount
	}
	if input.Priority != "" {
		p := models.Priority(input.Priority)
		in.Priority = &p
	}

	closeDate, err := parseDate("expected_close_date", input.ExpectedCloseDate)
	if err != nil {
		return nil, DealOutput{}, err
	}
	in.ExpectedCloseDate = closeDate

	if len(input.ContactEmails) > 0 {
		ids, err := h.resolveContacts(ctx, input.ContactEmails)
		if err != nil {
			return nil, DealOutput{}, err
		}
		in.ContactIDs = &ids
	}

	deal, err := h.svc.CreateDeal(ctx, in)
	if err != nil {
		return nil, DealOutput{}, toolError("create deal", err)
	}
	return nil, dealToOutput(deal), nil
}

type UpdateDealInput struct {
	ID                string `json:"id" jsonschema:"Deal ID (required)"`
	Name              string `json:"name,omitempty" jsonschema:"Updated deal name"`
	Amount            *int64 `json:"amount,omitempty" jsonschema:"Updated amount in cents"`
	Stage             string `json:"stage,omitempty" jsonschema:"Updated stage"`
	Probability       *int   `json:"probability,omitempty" jsonschema:"Updated win probability 0-100"`
	ExpectedCloseDate string `json:"expected_close_date,omitempty" jsonschema:"Updated expected close date (ISO 8601)"`
	Priority          string `json:"priority,omitempty" jsonschema:"Low, Medium or High"`
}

func (h *DealHandlers) UpdateDeal(ctx context.Context, request *mcp.CallToolRequest, input UpdateDealInput) (*mcp.CallToolResult, DealOutput, error) {
	id, err := parseID("id", input.ID)
	if err != nil {
		return nil, DealOutput{}, err
	}

	in := crm.DealInput{
		Name:        optional(input.Name),
		Amount:      input.Amount,
		Stage:       optional(input.Stage),
		Probability: input.Probability,
	}
	if input.Priority != "" {
		p := models.Priority(input.Priority)
		in.Priority = &p
	}
	if in.ExpectedCloseDate, err = parseDate("expected_close_date", input.ExpectedCloseDate); err != nil {
		return nil, DealOutput{}, err
	}

	deal, err := h.svc.UpdateDeal(ctx, id, in)
	if err != nil {
		return nil, DealOutput{}, toolError("update deal", err)
	}
	return nil, dealToOutput(deal), nil
}

type MoveDealInput struct {
	ID    string `json:"id" jsonschema:"Deal ID (required)"`
	Stage string `json:"stage" jsonschema:"Target stage (required); any stage may follow any other"`
}

func (h *DealHandlers) MoveDeal(ctx context.Context, request *mcp.CallToolRequest, input MoveDealInput) (*mcp.CallToolResult, DealOutput, error) {
	id, err := parseID("id", input.ID)
	if err != nil {
		return nil, DealOutput{}, err
	}
	deal, err := h.svc.MoveDeal(ctx, id, input.Stage)
	if err != nil {
		return nil, DealOutput{}, toolError("move deal", err)
	}
	return nil, dealToOutput(deal), nil
}

type ScoreDealsInput struct {
	IDs []string `json:"ids,omitempty" jsonschema:"Deal IDs to score (default: every deal)"`
}

type OutcomeOutput struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	HealthScore *int   `json:"health_score,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Error       string `json:"error,omitempty"`
}

type BatchOutput struct {
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Outcomes  []OutcomeOutput `json:"outcomes"`
}

// ScoreDeals asks the classifier for a health score per deal. Failures are
// reported per deal and never fail the whole call.
func (h *DealHandlers) ScoreDeals(ctx context.Context, request *mcp.CallToolRequest, input ScoreDealsInput) (*mcp.CallToolResult, BatchOutput, error) {
	ids, err := parseIDs(input.IDs)
	if err != nil {
		return nil, BatchOutput{}, err
	}
	if len(ids) == 0 {
		deals, err := h.svc.ListDeals(ctx)
		if err != nil {
			return nil, BatchOutput{}, fmt.Errorf("failed to list deals: %w", err)
		}
		for _, d := range deals {
			ids = append(ids, d.ID)
		}
	}
	return nil, batchToOutput(h.svc.ScoreDeals(ctx, ids)), nil
}

func (h *DealHandlers) resolveContacts(ctx context.Context, emails []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(emails))
	for _, email := range emails {
		c, ok, err := h.svc.FindContactByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to lookup contact: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("no contact with email %s", email)
		}
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func parseDate(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		if t, err = time.Parse("2006-01-02", raw); err != nil {
			return nil, fmt.Errorf("invalid %s format (use ISO 8601): %w", field, err)
		}
	}
	return &t, nil
}

func parseIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", r, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func batchToOutput(outcomes []crm.Outcome) BatchOutput {
	out := BatchOutput{Outcomes: make([]OutcomeOutput, len(outcomes))}
	for i, o := range outcomes {
		if o.Succeeded() {
			out.Succeeded++
		} else {
			out.Failed++
		}
		out.Outcomes[i] = OutcomeOutput{
			ID:          o.ID.String(),
			Status:      string(o.Status),
			HealthScore: o.HealthScore,
			Reason:      o.Reason,
			Error:       o.Error,
		}
	}
	return out
}

func dealToOutput(d models.Deal) DealOutput {
	out := DealOutput{
		ID:          d.ID.String(),
		Name:        d.Name,
		Company:     d.Company,
		Amount:      d.Amount,
		Currency:    d.Currency,
		Display:     models.FormatMoney(d.Amount, d.Currency),
		Stage:       d.Stage.Label(),
		Probability: d.Probability,
		Priority:    string(d.Priority),
		HealthScore: d.HealthScore,
		CreatedAt:   d.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   d.UpdatedAt.Format(time.RFC3339),
	}
	for _, id := range d.ContactIDs {
		out.ContactIDs = append(out.ContactIDs, id.String())
	}
	if d.ExpectedCloseDate != nil {
		ecd := d.ExpectedCloseDate.Format("2006-01-02")
		out.ExpectedCloseDate = &ecd
	}
	return out
}
