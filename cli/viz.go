// ABOUTME: Visualization CLI commands
// ABOUTME: Handles the dashboard and pipeline and contact graph generation
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-graphviz"

	"github.com/harperreed/salesdesk/crm"
	"github.com/harperreed/salesdesk/viz"
)

func graphFormat(name string) (graphviz.Format, error) {
	switch strings.ToLower(name) {
	case "dot", "xdot":
		return graphviz.XDOT, nil
	case "svg":
		return graphviz.SVG, nil
	case "png":
		return graphviz.PNG, nil
	default:
		return "", fmt.Errorf("unknown format %q (use dot, svg or png)", name)
	}
}

func writeGraph(output, data string) error {
	if output != "" {
		return os.WriteFile(output, []byte(data), 0644)
	}
	_, _ = fmt.Fprintln(stdout, data)
	return nil
}

// VizPipelineCommand generates a stage → deal graph.
func VizPipelineCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("viz pipeline")
	output := fs.String("output", "", "Output file (default: stdout)")
	format := fs.String("format", "dot", "Output format: dot, svg or png")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f, err := graphFormat(*format)
	if err != nil {
		return err
	}

	graph, err := viz.NewGraphGenerator(svc).GeneratePipelineGraph(ctx, f)
	if err != nil {
		return err
	}
	return writeGraph(*output, graph)
}

// VizContactCommand graphs one contact with its deals and tasks.
func VizContactCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("viz contact")
	output := fs.String("output", "", "Output file (default: stdout)")
	format := fs.String("format", "dot", "Output format: dot, svg or png")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := idArg(fs, "contact")
	if err != nil {
		return err
	}
	f, err := graphFormat(*format)
	if err != nil {
		return err
	}

	graph, err := viz.NewGraphGenerator(svc).GenerateContactGraph(ctx, id, f)
	if err != nil {
		return err
	}
	return writeGraph(*output, graph)
}

func VizDashboardCommand(ctx context.Context, svc *crm.Service, args []string) error {
	stats, err := viz.GenerateDashboardStats(ctx, svc, time.Now())
	if err != nil {
		return fmt.Errorf("failed to generate dashboard stats: %w", err)
	}

	_, _ = fmt.Fprint(stdout, viz.RenderDashboard(stats))
	return nil
}
