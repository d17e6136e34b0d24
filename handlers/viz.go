// ABOUTME: GraphViz visualization MCP handlers
// ABOUTME: Provides generate_graph tool for agents
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/salesdesk/crm"
	"github.com/harperreed/salesdesk/viz"
)

type VizHandlers struct {
	generator *viz.GraphGenerator
}

func NewVizHandlers(svc *crm.Service) *VizHandlers {
	return &VizHandlers{generator: viz.NewGraphGenerator(svc)}
}

type GenerateGraphInput struct {
	Type     string `json:"type" jsonschema:"Graph type: pipeline or contact"`
	EntityID string `json:"entity_id,omitempty" jsonschema:"Contact UUID (required for contact graphs)"`
}

type GenerateGraphOutput struct {
	GraphType string `json:"graph_type"`
	DOTSource string `json:"dot_source"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

func (h *VizHandlers) GenerateGraph(ctx context.Context, request *mcp.CallToolRequest, input GenerateGraphInput) (*mcp.CallToolResult, GenerateGraphOutput, error) {
	var (
		dot string
		err error
	)
	switch input.Type {
	case "pipeline":
		dot, err = h.generator.GeneratePipelineGraph(ctx, graphviz.XDOT)
	case "contact":
		if input.EntityID == "" {
			return nil, GenerateGraphOutput{}, fmt.Errorf("entity_id required for contact graph")
		}
		var id uuid.UUID
		if id, err = uuid.Parse(input.EntityID); err != nil {
			return nil, GenerateGraphOutput{}, fmt.Errorf("invalid entity_id: %w", err)
		}
		dot, err = h.generator.GenerateContactGraph(ctx, id, graphviz.XDOT)
	case "":
		return nil, GenerateGraphOutput{}, fmt.Errorf("type is required")
	default:
		return nil, GenerateGraphOutput{}, fmt.Errorf("unknown graph type: %s (valid types: pipeline, contact)", input.Type)
	}
	if err != nil {
		return nil, GenerateGraphOutput{}, fmt.Errorf("failed to generate graph: %w", err)
	}

	return nil, GenerateGraphOutput{
		GraphType: input.Type,
		DOTSource: dot,
		NodeCount: strings.Count(dot, "label="),
		EdgeCount: strings.Count(dot, "->"),
	}, nil
}
