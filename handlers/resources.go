// ABOUTME: MCP resource handlers for exposing CRM data
// ABOUTME: Provides read-only access to contacts, deals, the pipeline and reports via crm:// URIs
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/salesdesk/crm"
)

type ResourceHandlers struct {
	svc *crm.Service
}

func NewResourceHandlers(svc *crm.Service) *ResourceHandlers {
	return &ResourceHandlers{svc: svc}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, "crm://") {
		return nil, fmt.Errorf("invalid URI scheme: expected crm://")
	}

	parts := strings.Split(strings.TrimPrefix(uri, "crm://"), "/")

	var (
		payload any
		err     error
	)
	switch parts[0] {
	case "contacts":
		if len(parts) == 1 {
			payload, err = h.svc.ListContacts(ctx)
		} else {
			payload, err = h.readOne(parts[1], func(id uuid.UUID) (any, error) { return h.svc.GetContact(ctx, id) })
		}
	case "deals":
		if len(parts) == 1 {
			payload, err = h.svc.ListDeals(ctx)
		} else {
			payload, err = h.readOne(parts[1], func(id uuid.UUID) (any, error) { return h.svc.GetDeal(ctx, id) })
		}
	case "inquiries":
		payload, err = h.svc.ListInquiries(ctx)
	case "pipeline":
		payload, err = h.svc.Board(ctx)
	case "report":
		payload, err = h.svc.Report(ctx)
	default:
		return nil, fmt.Errorf("unknown resource: %s", parts[0])
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", uri, err)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", parts[0], err)
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}

func (h *ResourceHandlers) readOne(raw string, get func(uuid.UUID) (any, error)) (any, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid ID: %w", err)
	}
	return get(id)
}
