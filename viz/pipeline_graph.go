// ABOUTME: Pipeline graph: stages in order with their deals and each deal's contacts
// ABOUTME: Rendered with graphviz to DOT for the CLI or SVG for the web API
package viz

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/harperreed/salesdesk/crm"
	"github.com/harperreed/salesdesk/models"
)

type GraphGenerator struct {
	svc *crm.Service
}

func NewGraphGenerator(svc *crm.Service) *GraphGenerator {
	return &GraphGenerator{svc: svc}
}

// render is shared by every graph: it builds the graph with fn and renders it in format.
func render(ctx context.Context, format graphviz.Format, fn func(*cgraph.Graph) error) (string, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz: %w", err)
	}
	defer gv.Close()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer graph.Close()

	if err := fn(graph); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, format, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.String(), nil
}

// GeneratePipelineGraph draws every stage as a chain, each deal hanging off its
// stage and each deal's contacts linked to it.
func (g *GraphGenerator) GeneratePipelineGraph(ctx context.Context, format graphviz.Format) (string, error) {
	board, err := g.svc.Board(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to build board: %w", err)
	}
	contacts, err := g.svc.ListContacts(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch contacts: %w", err)
	}
	byID := make(map[string]models.Contact, len(contacts))
	for _, c := range contacts {
		byID[c.ID.String()] = c
	}

	return render(ctx, format, func(graph *cgraph.Graph) error {
		graph.SetLabel("Sales Pipeline")
		graph.SetRankDir(cgraph.LRRank)

		var prev *cgraph.Node
		contactNodes := make(map[string]*cgraph.Node)
		for _, col := range board {
			stageNode, err := graph.CreateNodeByName("stage_" + string(col.Stage))
			if err != nil {
				return fmt.Errorf("failed to create stage node: %w", err)
			}
			stageNode.SetLabel(fmt.Sprintf("%s\n%d deals", col.Label, col.Count))
			stageNode.SetShape("box")
			stageNode.SetStyle("filled")
			stageNode.SetFillColor(stageColor(col.Stage))

			if prev != nil {
				edge, err := graph.CreateEdgeByName("next", prev, stageNode)
				if err != nil {
					return fmt.Errorf("failed to create stage edge: %w", err)
				}
				edge.SetStyle("bold")
			}
			prev = stageNode

			for _, deal := range col.Deals {
				dealNode, err := graph.CreateNodeByName("deal_" + deal.ID.String())
				if err != nil {
					return fmt.Errorf("failed to create deal node: %w", err)
				}
				dealNode.SetLabel(fmt.Sprintf("%s\n%s\n%s", deal.Name, models.FormatMoney(deal.Amount, deal.Currency), healthLabel(deal.HealthScore)))
				dealNode.SetShape("diamond")
				dealNode.SetStyle("filled")
				dealNode.SetFillColor(healthColor(deal.HealthScore))

				if _, err := graph.CreateEdgeByName("in_stage", stageNode, dealNode); err != nil {
					return fmt.Errorf("failed to create edge: %w", err)
				}

				for _, cid := range deal.ContactIDs {
					contact, ok := byID[cid.String()]
					if !ok {
						continue
					}
					node, ok := contactNodes[cid.String()]
					if !ok {
						node, err = graph.CreateNodeByName("contact_" + cid.String())
						if err != nil {
							return fmt.Errorf("failed to create contact node: %w", err)
						}
						node.SetLabel(fmt.Sprintf("%s\n%s", contact.FullName, contact.Email))
						node.SetShape("ellipse")
						node.SetStyle("filled")
						node.SetFillColor("lightgreen")
						contactNodes[cid.String()] = node
					}
					edge, err := graph.CreateEdgeByName("contact_for", node, dealNode)
					if err != nil {
						return fmt.Errorf("failed to create edge: %w", err)
					}
					edge.SetStyle("dotted")
				}
			}
		}
		return nil
	})
}

func stageColor(s models.Stage) string {
	switch s {
	case models.StageClosedWon:
		return "palegreen"
	case models.StageClosedLost:
		return "lightpink"
	case models.StageOnHold:
		return "lightgrey"
	default:
		return "lightblue"
	}
}

func healthLabel(score *int) string {
	if score == nil {
		return "health: --"
	}
	return fmt.Sprintf("health: %d", *score)
}

func healthColor(score *int) string {
	if score == nil {
		return "white"
	}
	switch models.HealthBand(*score) {
	case models.HealthHealthy:
		return "palegreen"
	case models.HealthAttention:
		return "lightyellow"
	default:
		return "lightpink"
	}
}
