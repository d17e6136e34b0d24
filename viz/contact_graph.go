// ABOUTME: Contact graph: one contact with the deals it is on and the tasks around them
// ABOUTME: Rendered with graphviz in any supported format
package viz

import (
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/google/uuid"

	"github.com/harperreed/salesdesk/models"
)

func (g *GraphGenerator) GenerateContactGraph(ctx context.Context, contactID uuid.UUID, format graphviz.Format) (string, error) {
	contact, err := g.svc.GetContact(ctx, contactID)
	if err != nil {
		return "", err
	}
	deals, err := g.svc.ListDeals(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch deals: %w", err)
	}
	contactTasks, err := g.svc.TasksFor(ctx, models.ContactRef{ID: contactID})
	if err != nil {
		return "", fmt.Errorf("failed to fetch tasks: %w", err)
	}

	return render(ctx, format, func(graph *cgraph.Graph) error {
		graph.SetLayout("neato")
		graph.SetRankDir(cgraph.LRRank)

		center, err := graph.CreateNodeByName("contact")
		if err != nil {
			return fmt.Errorf("failed to create contact node: %w", err)
		}
		center.SetLabel(fmt.Sprintf("%s\n%s", contact.FullName, contact.Email))
		center.SetShape("ellipse")
		center.SetStyle("filled")
		center.SetFillColor("lightgreen")

		for _, t := range contactTasks {
			if err := addTask(graph, center, t); err != nil {
				return err
			}
		}

		for _, d := range deals {
			if !hasContact(d, contactID) {
				continue
			}
			node, err := graph.CreateNodeByName("deal_" + d.ID.String())
			if err != nil {
				return fmt.Errorf("failed to create deal node: %w", err)
			}
			node.SetLabel(fmt.Sprintf("%s\n(%s)", d.Name, d.Stage.Label()))
			node.SetShape("diamond")
			node.SetStyle("filled")
			node.SetFillColor(healthColor(d.HealthScore))
			if _, err := graph.CreateEdgeByName("on_deal", center, node); err != nil {
				return fmt.Errorf("failed to create edge: %w", err)
			}

			dealTasks, err := g.svc.TasksFor(ctx, models.DealRef{ID: d.ID})
			if err != nil {
				return fmt.Errorf("failed to fetch tasks: %w", err)
			}
			for _, t := range dealTasks {
				if err := addTask(graph, node, t); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func addTask(graph *cgraph.Graph, parent *cgraph.Node, t models.Task) error {
	node, err := graph.CreateNodeByName("task_" + t.ID.String())
	if err != nil {
		return fmt.Errorf("failed to create task node: %w", err)
	}
	node.SetLabel(fmt.Sprintf("%s\n[%s]", t.Title, t.Status.Label()))
	node.SetShape("note")
	edge, err := graph.CreateEdgeByName("task", parent, node)
	if err != nil {
		return fmt.Errorf("failed to create edge: %w", err)
	}
	edge.SetStyle("dashed")
	return nil
}

func hasContact(d models.Deal, id uuid.UUID) bool {
	for _, cid := range d.ContactIDs {
		if cid == id {
			return true
		}
	}
	return false
}
