// ABOUTME: Deal and pipeline CLI commands
// ABOUTME: Add, list, update and move deals; print the pipeline, report and run health scoring
package cli

import (
	"context"
	"flag"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/harperreed/salesdesk/crm"
	"github.com/harperreed/salesdesk/models"
	"github.com/harperreed/salesdesk/viz"
)

type dealFlags struct {
	name, company, currency, stage, closeDate, contacts, owner, priority *string
	amount                                                              *float64
	probability                                                         *int
}

func bindDealFlags(fs *flag.FlagSet) dealFlags {
	return dealFlags{
		name:        fs.String("name", "", "Deal name"),
		company:     fs.String("company", "", "Company name"),
		amount:      fs.Float64("amount", 0, "Deal amount, e.g. 12500.50"),
		currency:    fs.String("currency", "", "Currency code (default USD)"),
		stage:       fs.String("stage", "", "Stage, e.g. prospecting or \"Closed - Won\""),
		probability: fs.Int("probability", 0, "Win probability 0-100"),
		closeDate:   fs.String("close", "", "Expected close date (YYYY-MM-DD)"),
		contacts:    fs.String("contacts", "", "Comma-separated contact emails or IDs"),
		owner:       fs.String("owner", "", "Owner ID"),
		priority:    fs.String("priority", "", "Priority (Low, Medium, High)"),
	}
}

func (f dealFlags) input(ctx context.Context, svc *crm.Service, set map[string]bool) (crm.DealInput, error) {
	in := crm.DealInput{
		Name:        ifSet(set, "name", *f.name),
		Company:     ifSet(set, "company", *f.company),
		Currency:    ifSet(set, "currency", *f.currency),
		Stage:       ifSet(set, "stage", *f.stage),
		Probability: ifSet(set, "probability", *f.probability),
		OwnerID:     ifSet(set, "owner", *f.owner),
		Priority:    ifSet(set, "priority", models.Priority(*f.priority)),
		Amount:      ifSet(set, "amount", int64(math.Round(*f.amount*100))),
	}
	if set["close"] {
		d, err := parseDate(*f.closeDate)
		if err != nil {
			return in, err
		}
		in.ExpectedCloseDate = &d
	}
	if set["contacts"] {
		ids, err := resolveContacts(ctx, svc, splitList(*f.contacts))
		if err != nil {
			return in, err
		}
		in.ContactIDs = &ids
	}
	return in, nil
}

// resolveContacts accepts contact IDs or emails of existing contacts.
func resolveContacts(ctx context.Context, svc *crm.Service, refs []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(refs))
	for _, ref := range refs {
		if id, err := uuid.Parse(ref); err == nil {
			ids = append(ids, id)
			continue
		}
		c, ok, err := svc.FindContactByEmail(ctx, ref)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("no contact with email %s", ref)
		}
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// AddDealCommand adds a new deal.
func AddDealCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("deal add")
	flags := bindDealFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	in, err := flags.input(ctx, svc, setFlags(fs))
	if err != nil {
		return err
	}
	deal, err := svc.CreateDeal(ctx, in)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(stdout, "✓ Deal created: %s (ID: %s)\n", deal.Name, deal.ID)
	_, _ = fmt.Fprintf(stdout, "  Stage: %s\n", deal.Stage.Label())
	_, _ = fmt.Fprintf(stdout, "  Amount: %s\n", models.FormatMoney(deal.Amount, deal.Currency))
	return nil
}

// UpdateDealCommand changes only the fields given as flags.
func UpdateDealCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("deal update")
	flags := bindDealFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := idArg(fs, "deal")
	if err != nil {
		return err
	}

	in, err := flags.input(ctx, svc, setFlags(fs))
	if err != nil {
		return err
	}
	deal, err := svc.UpdateDeal(ctx, id, in)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "✓ Deal updated: %s\n", deal.Name)
	return nil
}

// MoveDealCommand moves a deal to another stage: deal move <id> <stage>.
func MoveDealCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("deal move")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("usage: deal move <id> <stage>")
	}
	id, err := parseID("deal", fs.Arg(0))
	if err != nil {
		return err
	}

	deal, err := svc.MoveDeal(ctx, id, strings.Join(fs.Args()[1:], " "))
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "✓ %s moved to %s\n", deal.Name, deal.Stage.Label())
	return nil
}

// ListDealsCommand lists deals, optionally in one stage.
func ListDealsCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("deal list")
	stage := fs.String("stage", "", "Filter by stage")
	openOnly := fs.Bool("open", false, "Hide closed deals")
	limit := fs.Int("limit", 50, "Maximum results")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var want models.Stage
	if *stage != "" {
		s, err := models.ParseStage(*stage)
		if err != nil {
			return err
		}
		want = s
	}

	deals, err := svc.ListDeals(ctx)
	if err != nil {
		return fmt.Errorf("failed to list deals: %w", err)
	}

	w := newTable()
	_, _ = fmt.Fprintln(w, "ID\tNAME\tCOMPANY\tSTAGE\tAMOUNT\tPROB\tCLOSE\tHEALTH")
	_, _ = fmt.Fprintln(w, "--\t----\t-------\t-----\t------\t----\t-----\t------")
	shown := 0
	for _, d := range deals {
		if want != "" && d.Stage != want {
			continue
		}
		if *openOnly && d.Stage.Closed() {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d%%\t%s\t%s\n",
			shortID(d.ID), d.Name, d.Company, d.Stage.Label(),
			models.FormatMoney(d.Amount, d.Currency), d.Probability,
			dateOrDash(d.ExpectedCloseDate), viz.HealthBadge(d.HealthScore))
		shown++
		if *limit > 0 && shown >= *limit {
			break
		}
	}
	_ = w.Flush()
	_, _ = fmt.Fprintf(stdout, "\n%d deal(s)\n", shown)
	return nil
}

// PipelineCommand prints deal count and value per stage.
func PipelineCommand(ctx context.Context, svc *crm.Service, args []string) error {
	stages, err := svc.PipelineSummary(ctx)
	if err != nil {
		return err
	}

	w := newTable()
	_, _ = fmt.Fprintln(w, "STAGE\tDEALS\tVALUE")
	_, _ = fmt.Fprintln(w, "-----\t-----\t-----")
	for _, s := range stages {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", s.Label, s.Count, models.FormatMoney(s.Amount, models.DefaultCurrency))
	}
	_ = w.Flush()
	return nil
}

// ReportCommand prints pipeline value, win rate and won value by month.
func ReportCommand(ctx context.Context, svc *crm.Service, args []string) error {
	r, err := svc.Report(ctx)
	if err != nil {
		return err
	}

	money := func(v int64) string { return models.FormatMoney(v, models.DefaultCurrency) }
	_, _ = fmt.Fprintf(stdout, "Open pipeline:      %s\n", money(r.OpenPipelineValue))
	_, _ = fmt.Fprintf(stdout, "Weighted pipeline:  %s\n", money(r.WeightedPipelineValue))
	_, _ = fmt.Fprintf(stdout, "Won:                %s (%d deals)\n", money(r.WonValue), r.WonCount)
	_, _ = fmt.Fprintf(stdout, "Lost:               %d deals\n", r.LostCount)
	_, _ = fmt.Fprintf(stdout, "Win rate:           %.1f%%\n", r.WinRate)
	_, _ = fmt.Fprintf(stdout, "Average won deal:   %s\n", money(r.AverageWonDeal))

	if len(r.WonByMonth) > 0 {
		_, _ = fmt.Fprintln(stdout, "\nWon by month:")
		for _, m := range r.WonByMonth {
			_, _ = fmt.Fprintf(stdout, "  %s  %s\n", m.Month, money(m.Amount))
		}
	}
	return nil
}

// EnrichDealsCommand scores the given deals, or every open deal.
func EnrichDealsCommand(ctx context.Context, svc *crm.Service, args []string) error {
	fs := newFlagSet("enrich deals")
	all := fs.Bool("all", false, "Include closed deals")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ids, err := parseIDs("deal", fs.Args())
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		deals, err := svc.ListDeals(ctx)
		if err != nil {
			return err
		}
		for _, d := range deals {
			if *all || !d.Stage.Closed() {
				ids = append(ids, d.ID)
			}
		}
	}
	if len(ids) == 0 {
		_, _ = fmt.Fprintln(stdout, "No deals to score")
		return nil
	}

	_, _ = fmt.Fprintf(stdout, "Scoring %d deal(s)...\n", len(ids))
	printOutcomes(svc.ScoreDeals(ctx, ids), func(o crm.Outcome) string {
		return viz.HealthBadge(o.HealthScore)
	})
	return nil
}

func printOutcomes(outcomes []crm.Outcome, describe func(crm.Outcome) string) {
	succeeded := 0
	for _, o := range outcomes {
		if o.Succeeded() {
			succeeded++
			_, _ = fmt.Fprintf(stdout, "  ✓ %s  %s\n", shortID(o.ID), describe(o))
			continue
		}
		_, _ = fmt.Fprintf(stdout, "  ✗ %s  %s: %s\n", shortID(o.ID), o.Reason, o.Error)
	}
	_, _ = fmt.Fprintf(stdout, "\n%d succeeded, %d failed\n", succeeded, len(outcomes)-succeeded)
}
