// Package pushtoken acquires the push notification token once per process and
// remembers the outcome.
//
// Denial and failure are cached like a token: asking again returns the same
// answer without prompting the user a second time. Reset is the only way back
// to a fresh attempt. Concurrent first callers share a single acquisition, and
// an acquisition that was in flight when Reset ran never writes its result
// into the cache.
package pushtoken
