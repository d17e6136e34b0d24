// ABOUTME: Seed subcommand
// ABOUTME: Loads the bundled demo data or a YAML fixtures file
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/harperreed/salesdesk/crm"
	"github.com/harperreed/salesdesk/seed"
)

// SeedCommand writes fixtures through the service so dedup rules apply.
func SeedCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("seed")
	file := fs.String("file", "", "YAML fixtures file (default: bundled demo data)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		fx  *seed.Fixtures
		err error
	)
	if *file == "" {
		fx, err = seed.Demo()
	} else {
		var f *os.File
		f, err = os.Open(*file)
		if err != nil {
			return fmt.Errorf("failed to open fixtures: %w", err)
		}
		defer func() { _ = f.Close() }()
		fx, err = seed.Load(f)
	}
	if err != nil {
		return err
	}

	sum, err := seed.Apply(ctx, svc, fx, time.Now())
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "✓ Seeded %d contacts, %d deals, %d tasks, %d inquiries", sum.Contacts, sum.Deals, sum.Tasks, sum.Inquiries)
	if sum.Reused > 0 {
		_, _ = fmt.Fprintf(stdout, " (%d already present)", sum.Reused)
	}
	_, _ = fmt.Fprintln(stdout)
	return nil
}
