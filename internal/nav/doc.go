// Package nav maps in-app routes to pages of the web application and keeps
// the navigation stack in the state store.
package nav
