// Package ui is the terminal face of the shell, built on Bubble Tea.
//
// The screen view shows the route and web page the shell is displaying, the
// card context and the back stack. The log view tails the shell's own log
// file through logtail, and the notices view lists messages raised by
// background work such as card saves. Deep links can be typed in with "o" and
// go through the same router as links from the control API.
//
// The model polls state.Store on a tick rather than subscribing, so the UI
// never blocks the goroutines that mutate state.
package ui
