// Package app is the composition root of the Took shell.
//
// Run loads nothing itself; the caller passes a loaded config.Config. From it
// Run opens the secure store, builds the local platform, the push token
// cache, the web view bridge, the navigator and the Took API client, then
// connects them through the deep link router and the notification handler.
//
// Links reach the router from four places: the -link flag on a cold start,
// POST /api/v1/links on the control API, notification taps and the terminal
// prompt. All of them go through shell.DeliverLink, which returns at once and
// lets the router decide whether the delivery is acted on or dropped.
//
// Push registration runs in the background at startup. A failed registration
// is retried with exponential backoff capped at 30 seconds; a token or a
// denial ends it.
//
// The terminal UI runs in the foreground unless Options.Headless is set, in
// which case Run blocks until its context is canceled.
package app
