package ui

import (
	"fmt"
	"sort"
	"strings"
)

const labelWidth = 12

// renderScreen shows what the shell is displaying and the card context.
func (m Model) renderScreen() string {
	styles := m.theme.Styles()
	snap := m.snapshot
	urlLimit := 60
	if m.width >= LayoutWideWidth {
		urlLimit = 0
	}

	row := func(label, value string) string {
		return styles.MutedText.Render(padRight(label, labelWidth)) + value
	}

	var lines []string
	route := snap.Screen.Route
	if route == "" {
		route = "(starting)"
	}
	lines = append(lines, row("Route", styles.AccentText.Render(route)))
	lines = append(lines, row("Web URL", styles.Text.Render(truncateMiddle(snap.Screen.WebURL, urlLimit))))
	if params := formatParams(snap.Screen.Params); params != "" {
		lines = append(lines, row("Params", styles.Text.Render(params)))
	}
	if !snap.Screen.EnteredAt.IsZero() {
		lines = append(lines, row("Since", styles.FaintText.Render(snap.Screen.EnteredAt.Format("15:04:05"))))
	}

	card := styles.FaintText.Render("none")
	if snap.HasCard() {
		card = styles.AccentText.Render(snap.CardID)
	}
	lines = append(lines, row("Card", card))
	lines = append(lines, row("Web back", styles.Text.Render(ternary(snap.CanGoBack, "yes", "no"))))

	session := ternary(snap.LoggedIn, "signed in", "signed out")
	if !snap.LoggedIn && snap.Onboarded {
		session += ", onboarded"
	}
	lines = append(lines, row("Session", styles.Text.Render(session)))

	if snap.Push.Message != "" {
		lines = append(lines, row("Push", styles.WarningText.Render(snap.Push.Message)))
	} else if snap.Push.Token != "" {
		lines = append(lines, row("Push", styles.Text.Render(truncateMiddle(snap.Push.Token, urlLimit))))
	}

	if snap.LastLink != "" {
		lines = append(lines, row("Last link", styles.Text.Render(truncateMiddle(snap.LastLink, urlLimit))))
	}
	if snap.LastError != nil {
		lines = append(lines, row("Error", styles.DangerText.Render(snap.LastError.Error())))
	}

	lines = append(lines, "")
	lines = append(lines, styles.AccentText.Bold(true).Render(fmt.Sprintf("History (%d)", len(snap.History))))
	if len(snap.History) == 0 {
		lines = append(lines, styles.FaintText.Render("  empty"))
	}
	for i := len(snap.History) - 1; i >= 0 && len(snap.History)-i <= HistoryLines; i-- {
		entry := snap.History[i]
		lines = append(lines, fmt.Sprintf("  %s %s",
			styles.Text.Render(padRight(entry.Route, 24)),
			styles.FaintText.Render(truncateMiddle(entry.WebURL, urlLimit))))
	}

	return m.renderBox("Screen", strings.Join(lines, "\n"), m.width, m.contentHeight(), true)
}

func formatParams(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	return strings.Join(parts, " ")
}
