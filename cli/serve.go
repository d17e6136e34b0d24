// ABOUTME: Web server subcommand
// ABOUTME: Serves the JSON API until interrupted, optionally preloaded with demo data
package cli

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/harperreed/salesdesk/crm"
	"github.com/harperreed/salesdesk/seed"
	"github.com/harperreed/salesdesk/web"
)

// ServeCommand runs the web API. The server shuts down when ctx is cancelled.
// With -demo the bundled demo data is loaded first; main pairs it with the
// memory backend.
func ServeCommand(ctx context.Context, svc *crm.Service, addr string, logger *zap.Logger, args []string) error {
	fs := newFlagSet("serve")
	listen := fs.String("addr", addr, "Listen address")
	demo := fs.Bool("demo", false, "Load demo data before serving")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *demo {
		fx, err := seed.Demo()
		if err != nil {
			return err
		}
		sum, err := seed.Apply(ctx, svc, fx, time.Now())
		if err != nil {
			return err
		}
		logger.Info("loaded demo data",
			zap.Int("contacts", sum.Contacts),
			zap.Int("deals", sum.Deals),
			zap.Int("inquiries", sum.Inquiries))
	}
	return web.NewServer(svc, logger).Start(ctx, *listen)
}
