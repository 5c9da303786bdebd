package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/evenway2025/took/internal/logtail"
)

// logState holds the log pane state.
type logState struct {
	entries []logtail.Entry
	follow  bool
	err     error
}

type logLinesMsg struct {
	entries []logtail.Entry
	err     error
}

func readLogsCmd(path string) tea.Cmd {
	return func() tea.Msg {
		lines, err := logtail.Read(path, LogTailLines)
		if err != nil {
			return logLinesMsg{err: err}
		}
		return logLinesMsg{entries: logtail.ParseLines(lines)}
	}
}

func (m *Model) refreshLogs() tea.Cmd {
	if m.logPath == "" {
		return nil
	}
	return readLogsCmd(m.logPath)
}

func (m *Model) handleLogLines(msg logLinesMsg) {
	m.logState.err = msg.err
	if msg.err == nil {
		m.logState.entries = msg.entries
	}
	m.updateLogViewport()
}

// updateLogViewport sizes the viewport to the log box and refreshes content.
func (m *Model) updateLogViewport() {
	// Box border takes two rows and columns, the title one more row.
	width := maxWidth(m.width-4, 10)
	height := maxWidth(m.contentHeight()-3, 1)
	if m.logViewport.Width == 0 {
		m.logViewport = viewport.New(width, height)
	}
	m.logViewport.Width = width
	m.logViewport.Height = height
	m.logViewport.SetContent(m.renderLogContent(width))
	if m.logState.follow {
		m.logViewport.GotoBottom()
	}
}

func (m Model) renderLogs() string {
	title := "Log"
	if m.logPath != "" {
		title += " " + truncateMiddle(m.logPath, 50)
	}
	title += ternary(m.logState.follow, " (following)", " (paused)")
	return m.renderBox(title, m.logViewport.View(), m.width, m.contentHeight(), true)
}

func (m Model) renderLogContent(width int) string {
	styles := m.theme.Styles()
	switch {
	case m.logPath == "":
		return styles.MutedText.Render("Logging to file is disabled")
	case m.logState.err != nil:
		return styles.DangerText.Render("Log unavailable: " + m.logState.err.Error())
	case len(m.logState.entries) == 0:
		return styles.MutedText.Render("No log entries")
	}

	lines := make([]string, 0, len(m.logState.entries))
	for _, entry := range m.logState.entries {
		lines = append(lines, lipgloss.NewStyle().MaxWidth(width).Render(m.formatEntry(entry, styles)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) formatEntry(entry logtail.Entry, styles Styles) string {
	if !entry.Parsed() {
		return styles.Text.Render(entry.Raw)
	}
	var b strings.Builder
	if !entry.Time.IsZero() {
		b.WriteString(styles.FaintText.Render(entry.Time.Format("15:04:05")))
		b.WriteString(" ")
	}
	b.WriteString(styles.LevelStyle(entry.Level).Bold(true).Render(fmt.Sprintf("%-5s", entry.Level)))
	b.WriteString(" ")
	b.WriteString(styles.Text.Render(entry.Message))
	for _, attr := range entry.Attrs {
		b.WriteString(" ")
		b.WriteString(styles.MutedText.Render(attr.Key + "="))
		b.WriteString(styles.AccentText.Render(attr.Value))
	}
	return b.String()
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logState.follow = !m.logState.follow
		if m.logState.follow {
			m.logViewport.GotoBottom()
			return m, m.refreshLogs()
		}
	case key.Matches(msg, m.keys.Up):
		m.logState.follow = false
		m.logViewport.ScrollUp(1)
	case key.Matches(msg, m.keys.Down):
		m.logViewport.ScrollDown(1)
	case key.Matches(msg, m.keys.HalfPageUp):
		m.logState.follow = false
		m.logViewport.HalfPageUp()
	case key.Matches(msg, m.keys.HalfPageDown):
		m.logViewport.HalfPageDown()
	case key.Matches(msg, m.keys.Top):
		m.logState.follow = false
		m.logViewport.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
	}
	return m, nil
}
