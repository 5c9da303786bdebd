// Package state provides thread-safe state shared by the shell's components.
//
// # Overview
//
// The Store holds what the terminal UI renders and what the control API
// reports: the current screen and its history, the shared card context, the
// login state, the push registration outcome and recent notices. Writers are
// the navigator, the web view bridge and the notification handler; readers
// take snapshots on their own schedule.
//
//	Writers:                        Readers:
//	┌──────────────────┐            ┌──────────────────┐
//	│ nav.Navigator    │            │ ui (tick)        │
//	│ bridge.Hub       │───────────→│ control /state   │
//	│ notification     │  (mutex)   │                  │
//	└──────────────────┘            └──────────────────┘
//
// # Concurrency Model
//
// The Store uses a readers-writer lock. Every mutation goes through one
// helper that takes the write lock and stamps LastUpdated. Snapshot takes the
// read lock and copies slices and maps, so a snapshot can be kept and read
// without further locking.
//
// # Navigation
//
// Navigate pushes the current screen on a bounded history; Replace swaps the
// current screen in place, matching a replace-style router. Both reset
// CanGoBack, which the bridge sets again once the new page reports its own
// history.
//
// # Testing Considerations
//
// The Store is safe to construct with zero value:
//
//	store := &state.Store{}  // Ready to use immediately
package state
