package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which the header drops detail.
	LayoutCompactWidth = 100

	// LayoutWideWidth is the minimum width to show full web URLs.
	LayoutWideWidth = 140
)

// Display limits.
const (
	// LogTailLines is how many log lines the log view keeps.
	LogTailLines = 500

	// HistoryLines is how many back-stack entries the screen view lists.
	HistoryLines = 8
)

// Timing constants.
const (
	// DefaultUIInterval is the default UI refresh interval.
	DefaultUIInterval = time.Second

	// ActionTimeout bounds a link delivery or push retry started from the UI.
	ActionTimeout = 30 * time.Second

	// FlashDuration is how long a status message stays in the command bar.
	FlashDuration = 4 * time.Second
)
