package ui

import "strings"

// renderNotices lists user-facing notices, newest first.
func (m Model) renderNotices() string {
	styles := m.theme.Styles()
	notices := m.snapshot.Notices

	var lines []string
	if len(notices) == 0 {
		lines = append(lines, styles.MutedText.Render("No notices"))
	}
	for i := len(notices) - 1; i >= 0; i-- {
		n := notices[i]
		titleStyle := styles.AccentText
		if strings.EqualFold(n.Title, "error") {
			titleStyle = styles.DangerText
		}
		lines = append(lines,
			styles.FaintText.Render(n.At.Format("15:04:05"))+" "+
				titleStyle.Render(padRight(n.Title, 14))+" "+
				styles.Text.Render(n.Message))
	}
	return m.renderBox("Notices", strings.Join(lines, "\n"), m.width, m.contentHeight(), true)
}
