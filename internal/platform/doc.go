// Package platform provides the native capabilities the shell depends on:
// permission prompts, push tokens, the notification channel, location and the
// image picker. Local answers them from the [device] config table.
package platform
