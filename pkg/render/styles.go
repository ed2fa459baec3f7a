package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/go-go-golems/chatwidget/pkg/analytics"
)

const (
	colorGreen  = lipgloss.Color("#10b981")
	colorYellow = lipgloss.Color("#f59e0b")
	colorRed    = lipgloss.Color("#ef4444")
)

// ConfidenceColor is green from 70%, yellow from 50%, red below.
func ConfidenceColor(percent int) lipgloss.Color {
	switch {
	case percent >= 70:
		return colorGreen
	case percent >= 50:
		return colorYellow
	default:
		return colorRed
	}
}

func levelColor(l analytics.Level) lipgloss.Color {
	switch l {
	case analytics.LevelHigh:
		return colorGreen
	case analytics.LevelMedium:
		return colorYellow
	default:
		return colorRed
	}
}

// Footer is the metadata line under a bot reply. It is empty when neither
// confidence nor category is known.
func Footer(confidence *float64, category string) string {
	var parts []string
	if confidence != nil {
		pct := int(math.Round(*confidence * 100))
		parts = append(parts, lipgloss.NewStyle().
			Foreground(ConfidenceColor(pct)).
			Bold(true).
			Render(fmt.Sprintf("Confidence: %d%%", pct)))
	}
	if category != "" {
		parts = append(parts, "Category: "+category)
	}
	return strings.Join(parts, " • ")
}

// Styles holds the lipgloss styles of the chat screen for one theme.
type Styles struct {
	Title        lipgloss.Style
	User         lipgloss.Style
	Bot          lipgloss.Style
	Error        lipgloss.Style
	Notification lipgloss.Style
	Muted        lipgloss.Style
	Sidebar      lipgloss.Style
	SidebarTitle lipgloss.Style
	Input        lipgloss.Style
}

func NewStyles(theme string) Styles {
	accent := lipgloss.Color("#3B82F6")
	muted := lipgloss.Color("#6b7280")
	border := lipgloss.Color("#d1d5db")
	if theme == "dark" {
		accent = lipgloss.Color("#60a5fa")
		muted = lipgloss.Color("#9ca3af")
		border = lipgloss.Color("#374151")
	}
	return Styles{
		Title:        lipgloss.NewStyle().Bold(true).Foreground(accent),
		User:         lipgloss.NewStyle().Bold(true).Foreground(accent),
		Bot:          lipgloss.NewStyle().Bold(true).Foreground(colorGreen),
		Error:        lipgloss.NewStyle().Foreground(colorRed),
		Notification: lipgloss.NewStyle().Italic(true).Foreground(colorYellow),
		Muted:        lipgloss.NewStyle().Foreground(muted),
		Sidebar: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1),
		SidebarTitle: lipgloss.NewStyle().Bold(true).Underline(true),
		Input: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(border),
	}
}

// MetricsLines formats the analytics dashboard, one stat per line.
func MetricsLines(m analytics.Metrics) []string {
	level := func(l analytics.Level, s string) string {
		return lipgloss.NewStyle().Foreground(levelColor(l)).Render(s)
	}
	return []string{
		fmt.Sprintf("Total queries   %d", m.TotalQueries),
		fmt.Sprintf("Active users    %d", m.UniqueUsers),
		fmt.Sprintf("Accuracy        %d%%", m.Accuracy),
		fmt.Sprintf("Last 24h        %d", m.RecentActivity),
		fmt.Sprintf("Today           %d", m.TodayActivity),
		"Success rate    " + level(m.SuccessLevel, fmt.Sprintf("%.1f%%", m.SuccessRate)),
		"Avg confidence  " + level(m.ConfidenceLevel, fmt.Sprintf("%.1f%%", m.AvgConfidence*100)),
	}
}
