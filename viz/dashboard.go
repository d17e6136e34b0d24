// ABOUTME: Terminal dashboard statistics and rendering
// ABOUTME: Pipeline bars per stage, headline report figures and deals needing attention
package viz

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/salesdesk/crm"
	"github.com/harperreed/salesdesk/models"
)

type DashboardStats struct {
	Stages []crm.StageAggregate
	Report crm.PipelineReport

	TotalContacts  int
	TotalDeals     int
	OpenTasks      int
	OverdueTasks   int
	NewInquiries   int
	PendingReviews int

	// Currency used when printing amounts; deals in other currencies are summed as-is.
	Currency string

	AtRiskDeals []AttentionDeal
	StaleDeals  []AttentionDeal
}

type AttentionDeal struct {
	Name        string
	Stage       models.Stage
	HealthScore *int
	DaysSince   int
}

// staleAfter is how long an open deal can go without an update before it is flagged.
const staleAfter = 14 * 24 * time.Hour

func GenerateDashboardStats(ctx context.Context, svc *crm.Service, now time.Time) (*DashboardStats, error) {
	report, err := svc.Report(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build report: %w", err)
	}
	deals, err := svc.ListDeals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}
	contacts, err := svc.ListContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contacts: %w", err)
	}
	tasks, err := svc.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}
	inquiries, err := svc.ListInquiries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch inquiries: %w", err)
	}

	stats := &DashboardStats{
		Stages:         report.Stages,
		Report:         report,
		TotalContacts:  len(contacts),
		TotalDeals:     len(deals),
		PendingReviews: len(svc.PendingSuggestions()),
		Currency:       models.DefaultCurrency,
	}
	if len(deals) > 0 {
		stats.Currency = deals[0].Currency
	}

	for _, t := range tasks {
		if t.Status == models.TaskDone || t.Status == models.TaskArchived {
			continue
		}
		stats.OpenTasks++
		if t.DueDate != nil && t.DueDate.Before(now) {
			stats.OverdueTasks++
		}
	}
	for _, q := range inquiries {
		if q.Status == models.InquiryNew {
			stats.NewInquiries++
		}
	}

	for _, d := range deals {
		if d.Stage.Closed() {
			continue
		}
		days := int(now.Sub(d.UpdatedAt).Hours() / 24)
		item := AttentionDeal{Name: d.Name, Stage: d.Stage, HealthScore: d.HealthScore, DaysSince: days}
		if d.HealthScore != nil && models.HealthBand(*d.HealthScore) == models.HealthAtRisk {
			stats.AtRiskDeals = append(stats.AtRiskDeals, item)
		}
		if now.Sub(d.UpdatedAt) > staleAfter {
			stats.StaleDeals = append(stats.StaleDeals, item)
		}
	}
	sort.Slice(stats.AtRiskDeals, func(i, j int) bool {
		return *stats.AtRiskDeals[i].HealthScore < *stats.AtRiskDeals[j].HealthScore
	})
	sort.Slice(stats.StaleDeals, func(i, j int) bool {
		return stats.StaleDeals[i].DaysSince > stats.StaleDeals[j].DaysSince
	})

	return stats, nil
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	sectionStyle = lipgloss.NewStyle().Bold(true)

	healthyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	attentionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	atRiskStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	unscoredStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// HealthBadge renders a deal's health score colored by band, e.g. "● 82".
func HealthBadge(score *int) string {
	if score == nil {
		return unscoredStyle.Render("○ --")
	}
	label := fmt.Sprintf("● %d", *score)
	switch models.HealthBand(*score) {
	case models.HealthHealthy:
		return healthyStyle.Render(label)
	case models.HealthAttention:
		return attentionStyle.Render(label)
	default:
		return atRiskStyle.Render(label)
	}
}

func RenderDashboard(stats *DashboardStats) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  " + headerStyle.Render("SALESDESK DASHBOARD") + "\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString(sectionStyle.Render("PIPELINE") + "\n")
	renderPipeline(&out, stats.Stages)
	out.WriteString("\n")

	r := stats.Report
	out.WriteString(sectionStyle.Render("REPORT") + "\n")
	out.WriteString(fmt.Sprintf("  Open pipeline     %s\n", models.FormatMoney(r.OpenPipelineValue, stats.Currency)))
	out.WriteString(fmt.Sprintf("  Weighted pipeline %s\n", models.FormatMoney(r.WeightedPipelineValue, stats.Currency)))
	out.WriteString(fmt.Sprintf("  Win rate          %.1f%% (%d won, %d lost)\n", r.WinRate, r.WonCount, r.LostCount))
	out.WriteString(fmt.Sprintf("  Average won deal  %s\n\n", models.FormatMoney(r.AverageWonDeal, stats.Currency)))

	out.WriteString(sectionStyle.Render("STATS") + "\n")
	out.WriteString(fmt.Sprintf("  📇 %d contacts  💼 %d deals  ✅ %d open tasks  📥 %d new inquiries\n\n",
		stats.TotalContacts, stats.TotalDeals, stats.OpenTasks, stats.NewInquiries))

	if len(stats.AtRiskDeals) > 0 || len(stats.StaleDeals) > 0 || stats.OverdueTasks > 0 || stats.PendingReviews > 0 {
		out.WriteString(sectionStyle.Render("NEEDS ATTENTION") + "\n")
		for _, d := range stats.AtRiskDeals {
			out.WriteString(fmt.Sprintf("  %s  %s (%s)\n", HealthBadge(d.HealthScore), d.Name, d.Stage.Label()))
		}
		if len(stats.StaleDeals) > 0 {
			out.WriteString(fmt.Sprintf("  ⚠️  %d deals - stale (no update in 14+ days)\n", len(stats.StaleDeals)))
		}
		if stats.OverdueTasks > 0 {
			out.WriteString(fmt.Sprintf("  ⚠️  %d tasks overdue\n", stats.OverdueTasks))
		}
		if stats.PendingReviews > 0 {
			out.WriteString(fmt.Sprintf("  📝 %d triage suggestions awaiting review\n", stats.PendingReviews))
		}
	}

	return out.String()
}

func renderPipeline(out *strings.Builder, stages []crm.StageAggregate) {
	maxCount := 0
	for _, s := range stages {
		if s.Count > maxCount {
			maxCount = s.Count
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	for _, s := range stages {
		// 0-10 blocks
		barLength := (s.Count * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)

		amountK := s.Amount / 100000
		out.WriteString(fmt.Sprintf("  %-14s %s  %2d (%dK)\n", s.Label, bar, s.Count, amountK))
	}
}
