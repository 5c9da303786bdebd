// Package control exposes the local HTTP API of a running shell.
//
// A second `took open <url>` invocation posts its link here instead of
// starting another shell. The same router serves the web view bridge
// websocket, push token inspection and a state summary. Client is the
// caller side used by the CLI.
package control
