// ABOUTME: Pipeline view showing the dashboard inside the review inbox
// ABOUTME: Reuses the text dashboard from the viz package
package tui

import (
	"strings"
	"time"
)

var timeNow = time.Now

func (m Model) renderPipelineView() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("SALESDESK - Pipeline"))
	s.WriteString("\n")

	switch {
	case m.err != nil:
		s.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		s.WriteString("\n")
	case m.dashboard == "":
		s.WriteString("Loading...\n")
	default:
		s.WriteString(m.dashboard)
	}

	s.WriteString(helpStyle.Render("esc: back • q: quit"))
	return s.String()
}
