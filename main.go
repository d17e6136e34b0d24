// ABOUTME: Entry point for the salesdesk CLI, web dashboard and MCP server
// ABOUTME: Loads config, opens the storage backend and routes to subcommands
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/harperreed/salesdesk/classify"
	"github.com/harperreed/salesdesk/cli"
	"github.com/harperreed/salesdesk/config"
	"github.com/harperreed/salesdesk/crm"
	"github.com/harperreed/salesdesk/db"
	"github.com/harperreed/salesdesk/store"
	"github.com/harperreed/salesdesk/sync"
)

const version = "0.2.0"

var errUsage = errors.New("usage")

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	backend := flag.String("backend", "", "Storage backend: sqlite, badger or memory")
	dataDir := flag.String("data-dir", "", "Data directory (default: ~/.local/share/salesdesk)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn or error")
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Printf("salesdesk version %s\n", version)
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *backend != "" {
		cfg.Storage.Backend = *backend
	}
	if *dataDir != "" {
		cfg.Storage.DataDir = *dataDir
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if len(args) > 0 && args[0] == "serve" && hasFlag(args[1:], "demo") {
		cfg.Storage.Backend = config.BackendMemory
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, args); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		if errors.Is(err, errUsage) {
			printUsage()
		}
		stop()
		os.Exit(1)
	}
}

// app is the opened service plus what the Gmail commands need alongside it.
type app struct {
	svc     *crm.Service
	tracker sync.Tracker
}

func openApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{}

	var backend store.Backend
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		database, err := db.OpenDatabase(cfg.DatabasePath())
		if err != nil {
			return nil, err
		}
		backend = db.NewRecordBackend(database)
		a.tracker = db.NewImportLog(database)
		logger.Debug("opened sqlite store", zap.String("path", cfg.DatabasePath()))
	case config.BackendBadger:
		b, err := store.OpenBadgerBackend(cfg.BadgerDir())
		if err != nil {
			return nil, err
		}
		backend = b
		logger.Debug("opened badger store", zap.String("dir", cfg.BadgerDir()))
	default:
		backend = store.NewMemoryBackend()
		logger.Warn("using in-memory store; records are lost on exit")
	}

	opts := []crm.Option{
		crm.WithLogger(logger),
		crm.WithCallTimeout(cfg.Classifier.CallTimeout),
	}
	gw, err := newGateway(ctx, cfg.Classifier)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	if gw != nil {
		opts = append(opts, crm.WithGateway(gw))
	}

	a.svc = crm.New(store.New(backend), opts...)
	return a, nil
}

// newGateway builds the configured classifier behind a circuit breaker and a
// rate limiter. It returns nil when no classifier is configured.
func newGateway(ctx context.Context, cc config.ClassifierConfig) (classify.Gateway, error) {
	var gw classify.Gateway
	switch cc.Provider {
	case config.ProviderGemini:
		g, err := classify.NewGeminiGateway(ctx, cc.GeminiAPIKey, cc.GeminiModel)
		if err != nil {
			return nil, err
		}
		gw = g
	case config.ProviderHTTP:
		g, err := classify.NewHTTPGateway(classify.HTTPConfig{
			Endpoint: cc.HTTPEndpoint,
			APIKey:   cc.HTTPAPIKey,
			Timeout:  cc.CallTimeout,
		})
		if err != nil {
			return nil, err
		}
		gw = g
	default:
		return nil, nil
	}

	gw = classify.WithCircuitBreaker(gw, classify.BreakerConfig{
		MaxFailures: cc.BreakerFailures,
		Timeout:     cc.BreakerCooldown,
	})
	if cc.RateLimit > 0 {
		gw = classify.WithRateLimit(gw, cc.RateLimit, cc.RateBurst)
	}
	return gw, nil
}

type command func(ctx context.Context, svc *crm.Service, args []string) error

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string) error {
	group, rest := args[0], args[1:]

	gmail := cli.GmailSetup{
		CredentialsPath: cfg.CredentialsPath(),
		TokenPath:       cfg.TokenPath(),
		Query:           cfg.Gmail.Query,
		MaxResults:      cfg.Gmail.MaxResults,
		Logger:          logger,
	}

	// gmail-auth only talks to Google; it needs no store.
	if group == "inquiry" && len(rest) > 0 && rest[0] == "gmail-auth" {
		return cli.GmailAuthCommand(ctx, gmail, rest[1:])
	}

	var cmd command
	switch group {
	case "contact":
		cmd = sub(rest, map[string]command{
			"add":    cli.AddContactCommand,
			"update": cli.UpdateContactCommand,
			"list":   cli.ListContactsCommand,
		})
	case "deal":
		cmd = sub(rest, map[string]command{
			"add":    cli.AddDealCommand,
			"update": cli.UpdateDealCommand,
			"move":   cli.MoveDealCommand,
			"list":   cli.ListDealsCommand,
		})
	case "task":
		cmd = sub(rest, map[string]command{
			"add":    cli.AddTaskCommand,
			"list":   cli.ListTasksCommand,
			"status": cli.TaskStatusCommand,
		})
	case "inquiry":
		cmd = sub(rest, map[string]command{
			"list":       cli.ListInquiriesCommand,
			"triage":     cli.TriageCommand,
			"apply":      cli.ApplyCommand,
			"dismiss":    cli.DismissCommand,
			"set-status": cli.SetInquiryStatusCommand,
			"review":     cli.ReviewCommand,
			"import-gmail": func(ctx context.Context, svc *crm.Service, args []string) error {
				return cli.ImportGmailCommand(ctx, svc, gmail, args)
			},
		})
	case "enrich":
		cmd = sub(rest, map[string]command{
			"deals":     cli.EnrichDealsCommand,
			"inquiries": cli.TriageCommand,
		})
	case "viz":
		cmd = sub(rest, map[string]command{
			"pipeline":  cli.VizPipelineCommand,
			"contact":   cli.VizContactCommand,
			"dashboard": cli.VizDashboardCommand,
		})
	case "pipeline":
		cmd, rest = cli.PipelineCommand, append([]string{group}, rest...)
	case "report":
		cmd, rest = cli.ReportCommand, append([]string{group}, rest...)
	case "seed":
		cmd, rest = cli.SeedCommand, append([]string{group}, rest...)
	case "serve":
		cmd, rest = func(ctx context.Context, svc *crm.Service, args []string) error {
			return cli.ServeCommand(ctx, svc, cfg.Web.Addr, logger, args)
		}, append([]string{group}, rest...)
	case "mcp":
		cmd, rest = func(ctx context.Context, svc *crm.Service, args []string) error {
			return cli.MCPCommand(ctx, svc, version, logger)
		}, append([]string{group}, rest...)
	}
	if cmd == nil {
		return fmt.Errorf("%w: unknown command %q", errUsage, strings.Join(args[:min(len(args), 2)], " "))
	}

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.svc.Close() }()
	gmail.Tracker = a.tracker

	return cmd(ctx, a.svc, rest[1:])
}

// hasFlag reports whether -name or --name appears in args.
func hasFlag(args []string, name string) bool {
	for _, a := range args {
		if a == "-"+name || a == "--"+name {
			return true
		}
	}
	return false
}

// sub picks the subcommand named by args[0].
func sub(args []string, table map[string]command) command {
	if len(args) == 0 {
		return nil
	}
	return table[args[0]]
}

func printUsage() {
	fmt.Printf(`salesdesk v%s - contacts, deals, tasks and inquiry triage

USAGE:
  salesdesk [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --backend <name>       Storage backend: sqlite (default), badger or memory
  --data-dir <path>      Data directory (default: ~/.local/share/salesdesk)
  --log-level <level>    debug, info, warn or error (logs go to stderr)

CONTACTS:
  salesdesk contact add --first <name> --last <name> --email <email> [--company, --tags a,b, ...]
  salesdesk contact update [flags] <id>     Only the given flags change
  salesdesk contact list [--query text] [--tag tag] [--limit n]

DEALS:
  salesdesk deal add --name <name> [--amount 1250.50] [--stage proposal] [--contacts email,...]
  salesdesk deal update [flags] <id>
  salesdesk deal move <id> <stage>          e.g. deal move <id> "Closed - Won"
  salesdesk deal list [--stage s] [--open]
  salesdesk pipeline                        Deal count and value per stage
  salesdesk report                          Pipeline value, win rate, won by month

TASKS:
  salesdesk task add --title <title> [--due YYYY-MM-DD] [--deal id | --contact id]
  salesdesk task list [--deal id | --contact id] [--open] [--overdue]
  salesdesk task status <id> <todo|in_progress|done|archived>

INQUIRIES:
  salesdesk inquiry list [--status new]
  salesdesk inquiry triage [ids...]         Suggest a status for new inquiries
  salesdesk inquiry review                  Interactive suggestion inbox
  salesdesk inquiry apply <id> [--status s] Apply a pending suggestion
  salesdesk inquiry dismiss <id>            Drop a pending suggestion
  salesdesk inquiry set-status <id> <status>
  salesdesk inquiry gmail-auth              Authorize Gmail access
  salesdesk inquiry import-gmail [--days n] [--limit n]

ENRICHMENT:
  salesdesk enrich deals [ids...] [--all]   Score deal health
  salesdesk enrich inquiries [ids...]       Same as inquiry triage

OTHER:
  salesdesk viz pipeline|contact <id>|dashboard [--format svg] [--output file]
  salesdesk seed [--file fixtures.yaml]     Load demo or fixture data
  salesdesk serve [--addr host:port] [--demo]  JSON API; --demo serves demo data from memory
  salesdesk mcp                             MCP server on stdio

CONFIGURATION:
  ~/.config/salesdesk/config.json, a local .env file and SALESDESK_* variables.
  Set SALESDESK_CLASSIFIER=gemini and GEMINI_API_KEY to enable enrichment.

`, version)
}
