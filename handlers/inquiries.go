// ABOUTME: Inquiry MCP tool handlers
// ABOUTME: Implements triage_inquiries, list_suggestions, apply_suggestion and dismiss_suggestion tools
package handlers

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/salesdesk/crm"
	"github.com/harperreed/salesdesk/models"
)

type InquiryHandlers struct {
	svc *crm.Service
}

func NewInquiryHandlers(svc *crm.Service) *InquiryHandlers {
	return &InquiryHandlers{svc: svc}
}

type TriageInquiriesInput struct {
	IDs []string `json:"ids,omitempty" jsonschema:"Inquiry IDs to triage (default: every inquiry with status new)"`
}

// TriageInquiries classifies inquiries and holds the results as suggestions.
// No inquiry status changes until a suggestion is applied.
func (h *InquiryHandlers) TriageInquiries(ctx context.Context, request *mcp.CallToolRequest, input TriageInquiriesInput) (*mcp.CallToolResult, BatchOutput, error) {
	ids, err := parseIDs(input.IDs)
	if err != nil {
		return nil, BatchOutput{}, err
	}
	if len(ids) == 0 {
		inquiries, err := h.svc.ListInquiries(ctx)
		if err != nil {
			return nil, BatchOutput{}, fmt.Errorf("failed to list inquiries: %w", err)
		}
		for _, q := range inquiries {
			if q.Status == models.InquiryNew {
				ids = append(ids, q.ID)
			}
		}
	}
	return nil, batchToOutput(h.svc.TriageInquiries(ctx, ids)), nil
}

type SuggestionOutput struct {
	InquiryID       string `json:"inquiry_id"`
	Name            string `json:"name"`
	Potential       string `json:"potential"`
	SuggestedStatus string `json:"suggested_status"`
	Category        string `json:"category"`
	AutoReply       string `json:"auto_reply"`
	HumanRequired   bool   `json:"human_required"`
}

type ListSuggestionsOutput struct {
	Suggestions []SuggestionOutput `json:"suggestions"`
}

func (h *InquiryHandlers) ListSuggestions(ctx context.Context, request *mcp.CallToolRequest, input struct{}) (*mcp.CallToolResult, ListSuggestionsOutput, error) {
	out := ListSuggestionsOutput{Suggestions: []SuggestionOutput{}}
	for _, sg := range h.svc.PendingSuggestions() {
		a := sg.Analysis
		out.Suggestions = append(out.Suggestions, SuggestionOutput{
			InquiryID:       sg.InquiryID.String(),
			Name:            a.Name,
			Potential:       string(a.PotentialScore),
			SuggestedStatus: string(a.SuggestedStatus),
			Category:        a.SuggestedCategory,
			AutoReply:       a.AutoReply,
			HumanRequired:   a.HumanRequired,
		})
	}
	return nil, out, nil
}

type ApplySuggestionInput struct {
	InquiryID string `json:"inquiry_id" jsonschema:"Inquiry ID (required)"`
	Status    string `json:"status,omitempty" jsonschema:"in_progress or done; defaults to the suggested status"`
}

type InquiryOutput struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Subject  string `json:"subject"`
	Language string `json:"language"`
	Status   string `json:"status"`
}

func (h *InquiryHandlers) ApplySuggestion(ctx context.Context, request *mcp.CallToolRequest, input ApplySuggestionInput) (*mcp.CallToolResult, InquiryOutput, error) {
	id, err := parseID("inquiry_id", input.InquiryID)
	if err != nil {
		return nil, InquiryOutput{}, err
	}
	status := models.InquiryStatus(input.Status)
	if status == "" {
		sg, ok := h.svc.PendingSuggestion(id)
		if !ok {
			return nil, InquiryOutput{}, fmt.Errorf("no pending suggestion for inquiry %s", id)
		}
		status = sg.Analysis.SuggestedStatus
	}
	q, err := h.svc.ApplyInquirySuggestion(ctx, id, status)
	if err != nil {
		return nil, InquiryOutput{}, toolError("apply suggestion", err)
	}
	return nil, inquiryToOutput(q), nil
}

type DismissSuggestionInput struct {
	InquiryID string `json:"inquiry_id" jsonschema:"Inquiry ID (required)"`
}

type DismissSuggestionOutput struct {
	Dismissed bool `json:"dismissed"`
}

func (h *InquiryHandlers) DismissSuggestion(ctx context.Context, request *mcp.CallToolRequest, input DismissSuggestionInput) (*mcp.CallToolResult, DismissSuggestionOutput, error) {
	id, err := parseID("inquiry_id", input.InquiryID)
	if err != nil {
		return nil, DismissSuggestionOutput{}, err
	}
	return nil, DismissSuggestionOutput{Dismissed: h.svc.DismissSuggestion(id)}, nil
}

func inquiryToOutput(q models.Inquiry) InquiryOutput {
	return InquiryOutput{
		ID:       q.ID.String(),
		Name:     q.Name,
		Email:    q.Email,
		Subject:  q.Subject,
		Language: string(q.Language),
		Status:   string(q.Status),
	}
}
