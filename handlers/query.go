// ABOUTME: Universal query tool handler
// ABOUTME: Implements flexible filtering across contacts, deals, tasks and inquiries
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/salesdesk/crm"
	"github.com/harperreed/salesdesk/models"
)

type QueryHandlers struct {
	svc *crm.Service
}

func NewQueryHandlers(svc *crm.Service) *QueryHandlers {
	return &QueryHandlers{svc: svc}
}

type QueryCRMInput struct {
	EntityType string            `json:"entity_type" jsonschema:"Type of entity to query (contact, deal, task, inquiry)"`
	Query      string            `json:"query,omitempty" jsonschema:"Search text (names, emails, companies, titles, subjects)"`
	Filters    map[string]string `json:"filters,omitempty" jsonschema:"Filters: stage (deal), status (contact, task, inquiry), language (inquiry), health (deal: healthy, attention, at_risk)"`
	Limit      int               `json:"limit,omitempty" jsonschema:"Maximum results to return (default 10)"`
}

type QueryCRMOutput struct {
	EntityType string `json:"entity_type"`
	Results    []any  `json:"results"`
	Count      int    `json:"count"`
}

func (h *QueryHandlers) QueryCRM(ctx context.Context, req *mcp.CallToolRequest, input QueryCRMInput) (*mcp.CallToolResult, QueryCRMOutput, error) {
	if input.Limit == 0 {
		input.Limit = 10
	}

	var (
		results []any
		err     error
	)
	switch input.EntityType {
	case "contact":
		results, err = h.queryContacts(ctx, input)
	case "deal":
		results, err = h.queryDeals(ctx, input)
	case "task":
		results, err = h.queryTasks(ctx, input)
	case "inquiry":
		results, err = h.queryInquiries(ctx, input)
	default:
		return nil, QueryCRMOutput{}, fmt.Errorf("invalid entity_type: %s (valid: contact, deal, task, inquiry)", input.EntityType)
	}
	if err != nil {
		return nil, QueryCRMOutput{}, err
	}

	return nil, QueryCRMOutput{EntityType: input.EntityType, Results: results, Count: len(results)}, nil
}

func (h *QueryHandlers) queryContacts(ctx context.Context, input QueryCRMInput) ([]any, error) {
	contacts, err := h.svc.ListContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find contacts: %w", err)
	}
	status := input.Filters["status"]

	results := []any{}
	for _, c := range contacts {
		if status != "" && !strings.EqualFold(string(c.Status), status) {
			continue
		}
		if !contactMatches(c, input.Query) {
			continue
		}
		results = append(results, contactToOutput(c))
		if len(results) == input.Limit {
			break
		}
	}
	return results, nil
}

func (h *QueryHandlers) queryDeals(ctx context.Context, input QueryCRMInput) ([]any, error) {
	var stage models.Stage
	if raw := input.Filters["stage"]; raw != "" {
		var err error
		if stage, err = models.ParseStage(raw); err != nil {
			return nil, err
		}
	}
	health := input.Filters["health"]

	deals, err := h.svc.ListDeals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find deals: %w", err)
	}

	results := []any{}
	for _, d := range deals {
		if stage != "" && d.Stage != stage {
			continue
		}
		if health != "" && (d.HealthScore == nil || models.HealthBand(*d.HealthScore) != health) {
			continue
		}
		if !containsFold(input.Query, d.Name, d.Company) {
			continue
		}
		results = append(results, dealToOutput(d))
		if len(results) == input.Limit {
			break
		}
	}
	return results, nil
}

func (h *QueryHandlers) queryTasks(ctx context.Context, input QueryCRMInput) ([]any, error) {
	var status models.TaskStatus
	if raw := input.Filters["status"]; raw != "" {
		var err error
		if status, err = models.ParseTaskStatus(raw); err != nil {
			return nil, err
		}
	}

	tasks, err := h.svc.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find tasks: %w", err)
	}

	now := time.Now()
	results := []any{}
	for _, t := range tasks {
		if status != "" && t.Status != status {
			continue
		}
		if !containsFold(input.Query, t.Title, t.Notes) {
			continue
		}
		results = append(results, taskToOutput(t, now))
		if len(results) == input.Limit {
			break
		}
	}
	return results, nil
}

func (h *QueryHandlers) queryInquiries(ctx context.Context, input QueryCRMInput) ([]any, error) {
	status := input.Filters["status"]
	language := input.Filters["language"]

	inquiries, err := h.svc.ListInquiries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find inquiries: %w", err)
	}

	results := []any{}
	for _, q := range inquiries {
		if status != "" && string(q.Status) != status {
			continue
		}
		if language != "" && string(q.Language) != language {
			continue
		}
		if !containsFold(input.Query, q.Name, q.Email, q.Subject, q.Message) {
			continue
		}
		results = append(results, inquiryToOutput(q))
		if len(results) == input.Limit {
			break
		}
	}
	return results, nil
}

func containsFold(query string, fields ...string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
