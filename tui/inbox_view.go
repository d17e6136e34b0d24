// ABOUTME: Inbox view listing inquiries with a pending triage suggestion
// ABOUTME: Renders a bubbles table and handles navigation and quick actions
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

func newInboxTable(rows []table.Row, height int) table.Model {
	columns := []table.Column{
		{Title: "Name", Width: 20},
		{Title: "Email", Width: 28},
		{Title: "Subject", Width: 26},
		{Title: "Lang", Width: 5},
		{Title: "Suggested", Width: 12},
		{Title: "Score", Width: 7},
	}
	return table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)
}

func inboxRows(items []reviewItem) []table.Row {
	rows := make([]table.Row, 0, len(items))
	for _, it := range items {
		rows = append(rows, table.Row{
			it.inquiry.Name,
			it.inquiry.Email,
			it.inquiry.Subject,
			string(it.inquiry.Language),
			string(it.suggestion.Analysis.SuggestedStatus),
			string(it.suggestion.Analysis.PotentialScore),
		})
	}
	return rows
}

func (m Model) renderInboxView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(fmt.Sprintf("SALESDESK - Triage Inbox (%d pending)", len(m.items))))
	s.WriteString("\n")

	if len(m.items) == 0 {
		s.WriteString("No pending suggestions. Press t to triage new inquiries.\n")
	} else {
		s.WriteString(m.table.View())
		s.WriteString("\n")
	}

	s.WriteString(m.renderStatusLine())

	help := []string{"↑/↓: navigate", "enter: details", "a: apply", "d: dismiss", "t: triage new", "p: pipeline", "r: refresh", "q: quit"}
	s.WriteString(helpStyle.Render(strings.Join(help, " • ")))
	return s.String()
}

func (m Model) renderStatusLine() string {
	switch {
	case m.err != nil:
		return errorStyle.Render("Error: "+m.err.Error()) + "\n"
	case m.busy:
		return statusStyle.Render("Working...") + "\n"
	case m.status != "":
		return statusStyle.Render(m.status) + "\n"
	}
	return ""
}

func (m Model) handleInboxKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if _, ok := m.selected(); ok {
			m.viewMode = ViewDetail
		}
		return m, nil
	case "a":
		return m.applySelected()
	case "d":
		return m.dismissSelected()
	case "t":
		if m.busy {
			return m, nil
		}
		m.busy = true
		m.err = nil
		return m, m.triageNew()
	case "r":
		m.status = ""
		m.err = nil
		return m, m.loadItems()
	case "p":
		m.viewMode = ViewPipeline
		m.dashboard = ""
		return m, m.loadDashboard()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) applySelected() (tea.Model, tea.Cmd) {
	it, ok := m.selected()
	if !ok || m.busy {
		return m, nil
	}
	m.busy = true
	m.err = nil
	return m, m.apply(it.inquiry.ID, it.suggestion.Analysis.SuggestedStatus)
}

func (m Model) dismissSelected() (tea.Model, tea.Cmd) {
	it, ok := m.selected()
	if !ok || m.busy {
		return m, nil
	}
	m.busy = true
	m.err = nil
	return m, m.dismiss(it.inquiry.ID)
}
