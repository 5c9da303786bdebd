package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/evenway2025/took/internal/config"
)

// renderHeader renders the status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth
	snap := m.snapshot

	parts := []string{bg.Render("took", styles.Logo)}

	if m.config != nil {
		env := statusDevelopment
		if m.config.Env == config.EnvProduction {
			env = statusProduction
		}
		parts = append(parts, styles.StatusStyle(env).Render(strings.ToUpper(env[:3])))
	}

	if snap.LoggedIn {
		parts = append(parts, bg.Render("● Signed in", styles.SuccessText))
	} else {
		parts = append(parts, bg.Render("○ Signed out", styles.MutedText))
	}

	status, label := pushBadge(snap.Push.Token, snap.Push.Status)
	parts = append(parts,
		bg.Render("Push:", styles.MutedText)+bg.Space()+styles.StatusStyle(status).Render(label))

	parts = append(parts,
		bg.Render("Views:", styles.MutedText)+bg.Space()+
			bg.Render(fmt.Sprintf("%d", snap.WebViews), styles.Text))

	if snap.HasCard() {
		parts = append(parts,
			bg.Render("Card:", styles.MutedText)+bg.Space()+
				bg.Render(truncate(snap.CardID, 16), styles.AccentText))
	}

	if !compact && snap.LastError != nil {
		parts = append(parts, bg.Render(truncate(snap.LastError.Error(), 40), styles.DangerText))
	}

	if !compact && !m.lastUpdated.IsZero() {
		parts = append(parts, bg.Render(m.lastUpdated.Format("15:04:05"), styles.FaintText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

// pushBadge maps the published push state to a badge key and label.
func pushBadge(token, status string) (string, string) {
	switch {
	case token != "":
		return statusPushToken, "registered"
	case status == statusPushDenied:
		return statusPushDenied, "denied"
	case status == statusPushError:
		return statusPushError, "error"
	default:
		return statusPushPending, "pending"
	}
}

// renderCommandBar renders the key hints for the current view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.currentView {
	case ViewLogs:
		commands = []cmd{
			{"Space", ternary(m.logState.follow, "Pause", "Follow")},
			{"j/k", "Scroll"},
			{"g/G", "Top/Bottom"},
			{"s", "Screen"},
			{"n", "Notices"},
			{"?", "More"},
		}
	case ViewNotices:
		commands = []cmd{
			{"s", "Screen"},
			{"l", "Logs"},
			{"?", "More"},
		}
	default:
		commands = []cmd{
			{"o", "Open link"},
			{"b", "Back"},
			{"r", "Retry push"},
			{"l", "Logs"},
			{"n", "Notices"},
			{"?", "More"},
		}
	}

	colon := bg.Sep(":")
	segments := make([]string, 0, len(commands))
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	return styles.Header.Width(m.width).Render(bg.Join(segments, "  "))
}

// renderFooter shows the link prompt while editing, otherwise the last
// action result.
func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	if m.editingLink {
		return m.linkInput.View()
	}
	if m.flash != "" {
		return styles.InfoText.Render(m.flash)
	}
	return styles.FaintText.Render(m.footerHint())
}

func (m Model) footerHint() string {
	if m.snapshot.LastLink == "" {
		return "No deep link received yet"
	}
	return "Last link " + truncateMiddle(m.snapshot.LastLink, 60) + " at " + m.snapshot.LastLinkAt.Format("15:04:05")
}

// renderBox draws content in a rounded border with a title on the first line.
func (m Model) renderBox(title, content string, width, height int, focused bool) string {
	border := m.theme.Border
	if focused {
		border = m.theme.BorderFocus
	}
	styles := m.theme.Styles()
	body := styles.AccentText.Bold(true).Render(title) + "\n" + content
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(border)).
		Width(maxWidth(width-2, 1)).
		Height(maxWidth(height-2, 1)).
		Render(body)
}
