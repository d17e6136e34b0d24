// ABOUTME: Terminal inbox for reviewing triage suggestions using bubbletea
// ABOUTME: Lists inquiries with a pending suggestion; a applies, d dismisses, t triages new ones
package tui

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/harperreed/salesdesk/crm"
	"github.com/harperreed/salesdesk/models"
	"github.com/harperreed/salesdesk/viz"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewInbox ViewMode = iota
	ViewDetail
	ViewPipeline
)

// reviewItem is one inquiry awaiting a decision.
type reviewItem struct {
	inquiry    models.Inquiry
	suggestion crm.Suggestion
}

// Model is the main bubbletea model
type Model struct {
	ctx      context.Context
	svc      *crm.Service
	viewMode ViewMode

	items []reviewItem
	table table.Model

	dashboard string
	busy      bool
	status    string

	width  int
	height int
	err    error
}

type itemsLoadedMsg struct {
	items []reviewItem
	err   error
}

type actionDoneMsg struct {
	text string
	err  error
}

type dashboardMsg struct {
	text string
	err  error
}

// NewModel creates a new review model
func NewModel(ctx context.Context, svc *crm.Service) Model {
	return Model{
		ctx:      ctx,
		svc:      svc,
		viewMode: ViewInbox,
		table:    newInboxTable(nil, 14),
		width:    80,
		height:   24,
	}
}

// Review runs the inbox until the user quits.
func Review(ctx context.Context, svc *crm.Service) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("review needs an interactive terminal; use 'inquiry list' and 'inquiry apply' instead")
	}
	_, err := tea.NewProgram(NewModel(ctx, svc), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return m.loadItems()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(max(msg.Height-10, 3))
		return m, nil
	case itemsLoadedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.items = msg.items
			m.table.SetRows(inboxRows(msg.items))
			if m.table.Cursor() >= len(msg.items) && len(msg.items) > 0 {
				m.table.SetCursor(len(msg.items) - 1)
			}
		}
		return m, nil
	case actionDoneMsg:
		m.busy = false
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.text
		}
		if m.viewMode == ViewDetail {
			m.viewMode = ViewInbox
		}
		return m, m.loadItems()
	case dashboardMsg:
		m.err = msg.err
		m.dashboard = msg.text
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewDetail:
		return m.renderDetailView()
	case ViewPipeline:
		return m.renderPipelineView()
	}
	return m.renderInboxView()
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	}

	switch m.viewMode {
	case ViewInbox:
		return m.handleInboxKeys(msg)
	case ViewDetail:
		return m.handleDetailKeys(msg)
	case ViewPipeline:
		if msg.String() == "esc" {
			m.viewMode = ViewInbox
		}
	}
	return m, nil
}

// selected returns the item under the cursor.
func (m Model) selected() (reviewItem, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.items) {
		return reviewItem{}, false
	}
	return m.items[i], true
}

func (m Model) loadItems() tea.Cmd {
	return func() tea.Msg {
		var items []reviewItem
		for _, sg := range m.svc.PendingSuggestions() {
			q, err := m.svc.GetInquiry(m.ctx, sg.InquiryID)
			if err != nil {
				// the inquiry is gone; drop its stale suggestion
				m.svc.DismissSuggestion(sg.InquiryID)
				continue
			}
			items = append(items, reviewItem{inquiry: q, suggestion: sg})
		}
		return itemsLoadedMsg{items: items}
	}
}

func (m Model) apply(id uuid.UUID, status models.InquiryStatus) tea.Cmd {
	return func() tea.Msg {
		q, err := m.svc.ApplyInquirySuggestion(m.ctx, id, status)
		if err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{text: fmt.Sprintf("✓ %s marked %s", q.Name, q.Status)}
	}
}

func (m Model) dismiss(id uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		if !m.svc.DismissSuggestion(id) {
			return actionDoneMsg{err: fmt.Errorf("suggestion already gone")}
		}
		return actionDoneMsg{text: "✓ Suggestion dismissed"}
	}
}

// triageNew triages every inquiry still in status new.
func (m Model) triageNew() tea.Cmd {
	return func() tea.Msg {
		inquiries, err := m.svc.ListInquiries(m.ctx)
		if err != nil {
			return actionDoneMsg{err: err}
		}
		var ids []uuid.UUID
		for _, q := range inquiries {
			if _, pending := m.svc.PendingSuggestion(q.ID); q.Status == models.InquiryNew && !pending {
				ids = append(ids, q.ID)
			}
		}
		if len(ids) == 0 {
			return actionDoneMsg{text: "No new inquiries to triage"}
		}
		succeeded := 0
		for _, o := range m.svc.TriageInquiries(m.ctx, ids) {
			if o.Succeeded() {
				succeeded++
			}
		}
		return actionDoneMsg{text: fmt.Sprintf("Triaged %d of %d inquiries", succeeded, len(ids))}
	}
}

func (m Model) loadDashboard() tea.Cmd {
	return func() tea.Msg {
		stats, err := viz.GenerateDashboardStats(m.ctx, m.svc, timeNow())
		if err != nil {
			return dashboardMsg{err: err}
		}
		return dashboardMsg{text: viz.RenderDashboard(stats)}
	}
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))
)
