// Package tookapi is the HTTP client for the Took backend.
//
// Every request carries the access token kept in the secure store as a
// bearer token. Calls that the user triggers directly (saving a shared card,
// changing notification settings) also report their outcome through a
// Notifier, so callers only have to handle the returned error.
//
// Non-2xx responses are returned as *StatusError with the server's message
// when the body carries one.
package tookapi
