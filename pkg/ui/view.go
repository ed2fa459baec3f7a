package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/go-go-golems/chatwidget/pkg/render"
)

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.styles.Title.Render("🎓 AI Student Assistant") + "  " +
		m.styles.Muted.Render(m.mgr.State().SessionID()+" • "+string(m.theme))

	status := m.styles.Notification.Render(m.status)
	if m.typing {
		status = m.spinner.View() + " " + m.styles.Muted.Render("AI Assistant is typing...")
	}

	body := m.viewport.View()
	if m.width >= minSidebarTotal {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, " ", m.sidebarView())
	}

	input := m.textinput.View()
	if m.confirmClear {
		input = m.styles.Error.Render("Are you sure you want to clear all chat history? (y/n)")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		status,
		body,
		m.styles.Input.Width(m.width).Render(input),
	)
}

func (m Model) renderLines() string {
	var b strings.Builder
	for i, l := range m.lines {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch l.role {
		case roleUser:
			b.WriteString(m.styles.User.Render("You"))
			b.WriteString("\n")
			b.WriteString(l.text)
		case roleBot:
			b.WriteString(m.styles.Bot.Render("AI Assistant"))
			b.WriteString("\n")
			b.WriteString(m.md.Render(l.text))
			if footer := render.Footer(l.confidence, l.category); footer != "" {
				b.WriteString("\n")
				b.WriteString(footer)
			}
		case roleError:
			b.WriteString(m.styles.Error.Render(m.md.Render(l.text)))
		case roleNotice:
			b.WriteString(m.styles.Muted.Render(l.text))
		}
	}
	return b.String()
}

func (m Model) sidebarView() string {
	var b strings.Builder

	b.WriteString(m.styles.SidebarTitle.Render("Quick actions"))
	if m.quickOffline {
		b.WriteString(m.styles.Muted.Render(" (offline)"))
	}
	b.WriteString("\n")
	for i, a := range m.quickActions {
		bar := lipgloss.NewStyle().Foreground(lipgloss.Color(a.Color)).Render("▌")
		fmt.Fprintf(&b, "%s%d. %s %s\n", bar, i+1, a.Icon, a.Text)
	}

	b.WriteString("\n")
	title := "Suggestions"
	if m.suggestLabel != "" {
		title += " · " + m.suggestLabel
	}
	b.WriteString(m.styles.SidebarTitle.Render(title))
	if m.suggestOff {
		b.WriteString(m.styles.Muted.Render(" (offline)"))
	}
	b.WriteString("\n")
	for i, s := range m.suggestions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}

	b.WriteString("\n")
	b.WriteString(m.styles.SidebarTitle.Render("Analytics"))
	if m.statsOffline {
		b.WriteString(m.styles.Muted.Render(" (offline)"))
	}
	b.WriteString("\n")
	if m.metrics != nil {
		b.WriteString(strings.Join(render.MetricsLines(*m.metrics), "\n"))
	} else {
		b.WriteString(m.styles.Muted.Render("loading..."))
	}

	return m.styles.Sidebar.
		Width(sidebarWidth).
		Height(m.viewport.Height).
		Render(strings.TrimRight(b.String(), "\n"))
}
