// ABOUTME: Detail view for one inquiry and its triage suggestion
// ABOUTME: Shows the message, the suggested reply and follow-up actions
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/salesdesk/models"
)

var (
	fieldLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(18)

	fieldValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginTop(1)

	replyStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

func (m Model) renderDetailView() string {
	it, ok := m.selected()
	if !ok {
		return "Suggestion not found"
	}
	q, a := it.inquiry, it.suggestion.Analysis

	var s strings.Builder
	s.WriteString(titleStyle.Render(fmt.Sprintf("Inquiry: %s", q.Name)))
	s.WriteString("\n")

	field := func(label, value string) {
		if value == "" {
			return
		}
		s.WriteString(fieldLabelStyle.Render(label+":") + " " + fieldValueStyle.Render(value) + "\n")
	}
	field("Email", q.Email)
	field("Phone", q.Phone)
	field("Subject", q.Subject)
	field("Service", q.ServiceInterest)
	field("Language", string(q.Language))
	field("Status", string(q.Status))

	if q.Message != "" {
		s.WriteString(sectionStyle.Render("Message"))
		s.WriteString("\n")
		s.WriteString(wrap(q.Message, max(m.width-4, 40)))
		s.WriteString("\n")
	}

	s.WriteString(sectionStyle.Render("Suggestion"))
	s.WriteString("\n")
	field("Status", string(a.SuggestedStatus))
	field("Potential", string(a.PotentialScore))
	field("Category", a.SuggestedCategory)
	field("Human needed", yesNo(a.HumanRequired))

	if actions := googleActions(a.GoogleAction); actions != "" {
		field("Follow-ups", actions)
	}
	field("Notes", a.GoogleAction.Notes)

	if a.AutoReply != "" {
		s.WriteString(sectionStyle.Render("Suggested reply"))
		s.WriteString("\n")
		s.WriteString(replyStyle.Render(wrap(a.AutoReply, max(m.width-8, 40))))
		s.WriteString("\n")
	}

	s.WriteString(m.renderStatusLine())
	help := []string{"a: apply", "i: mark in progress", "x: mark done", "d: dismiss", "esc: back", "q: quit"}
	s.WriteString(helpStyle.Render(strings.Join(help, " • ")))
	return s.String()
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.viewMode = ViewInbox
		return m, nil
	case "a":
		return m.applySelected()
	case "d":
		return m.dismissSelected()
	case "i":
		return m.applySelectedAs(models.InquiryInProgress)
	case "x":
		return m.applySelectedAs(models.InquiryDone)
	}
	return m, nil
}

// applySelectedAs applies the suggestion with a status other than the suggested one.
func (m Model) applySelectedAs(status models.InquiryStatus) (tea.Model, tea.Cmd) {
	it, ok := m.selected()
	if !ok || m.busy {
		return m, nil
	}
	m.busy = true
	m.err = nil
	return m, m.apply(it.inquiry.ID, status)
}

func googleActions(g models.GoogleAction) string {
	var out []string
	for _, a := range []struct{ name, value string }{
		{"calendar event", g.CalendarEvent},
		{"sheet log", g.SheetLog},
		{"doc summary", g.CreateDocSummary},
		{"share drive folder", g.ShareDriveFolder},
	} {
		if strings.EqualFold(a.value, "yes") {
			out = append(out, a.name)
		}
	}
	return strings.Join(out, ", ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// wrap breaks text into lines no wider than width, on word boundaries.
func wrap(text string, width int) string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			if line != "" && len([]rune(line))+1+len([]rune(word)) > width {
				lines = append(lines, line)
				line = word
				continue
			}
			if line == "" {
				line = word
			} else {
				line += " " + word
			}
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
