package state

import (
	"fmt"
	"maps"
	"sync"
	"time"
)

const (
	maxHistory = 32
	maxNotices = 20
)

// Screen is one entry of the navigation stack.
type Screen struct {
	Route     string            `json:"route"`
	WebURL    string            `json:"webUrl"`
	Params    map[string]string `json:"params,omitempty"`
	EnteredAt time.Time         `json:"enteredAt"`
}

// Notice is a user-facing message raised by a background operation.
type Notice struct {
	Title   string    `json:"title"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Push is the last known push registration outcome.
type Push struct {
	Token   string `json:"token,omitempty"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Screen     Screen    `json:"screen"`
	History    []Screen  `json:"history,omitempty"`
	CardID     string    `json:"cardId,omitempty"`
	CanGoBack  bool      `json:"canGoBack"`
	LoggedIn   bool      `json:"loggedIn"`
	Onboarded  bool      `json:"onboarded"`
	WebViews   int       `json:"webViews"`
	Push       Push      `json:"push"`
	Notices    []Notice  `json:"notices,omitempty"`
	LastLink   string    `json:"lastLink,omitempty"`
	LastLinkAt time.Time `json:"lastLinkAt,omitempty"`

	LastUpdated time.Time `json:"lastUpdated"`
	LastError   error     `json:"-"`
}

// HasCard reports whether a card context is set.
func (s Snapshot) HasCard() bool {
	return s.CardID != ""
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// update runs fn under the write lock and stamps LastUpdated.
func (s *Store) update(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.snapshot)
	s.snapshot.LastUpdated = time.Now()
}

// Navigate makes screen current and pushes the previous screen on the history.
func (s *Store) Navigate(screen Screen) {
	screen.Params = maps.Clone(screen.Params)
	if screen.EnteredAt.IsZero() {
		screen.EnteredAt = time.Now()
	}
	s.update(func(snap *Snapshot) {
		if snap.Screen.Route != "" {
			snap.History = append(snap.History, snap.Screen)
			if len(snap.History) > maxHistory {
				snap.History = append([]Screen(nil), snap.History[len(snap.History)-maxHistory:]...)
			}
		}
		snap.Screen = screen
		snap.CanGoBack = false
	})
}

// Replace makes screen current without touching the history.
func (s *Store) Replace(screen Screen) {
	screen.Params = maps.Clone(screen.Params)
	if screen.EnteredAt.IsZero() {
		screen.EnteredAt = time.Now()
	}
	s.update(func(snap *Snapshot) {
		snap.Screen = screen
		snap.CanGoBack = false
	})
}

// Back makes the most recent history entry current. It reports false when the
// history is empty.
func (s *Store) Back() (Screen, bool) {
	var (
		screen Screen
		ok     bool
	)
	s.update(func(snap *Snapshot) {
		n := len(snap.History)
		if n == 0 {
			return
		}
		screen, ok = snap.History[n-1], true
		snap.History = snap.History[:n-1]
		snap.Screen = screen
		snap.CanGoBack = false
	})
	screen.Params = maps.Clone(screen.Params)
	return screen, ok
}

// SetCardID sets the shared card context. An empty id clears it.
func (s *Store) SetCardID(cardID string) {
	s.update(func(snap *Snapshot) { snap.CardID = cardID })
}

// SetCanGoBack records whether the current web view has its own history.
func (s *Store) SetCanGoBack(canGoBack bool) {
	s.update(func(snap *Snapshot) { snap.CanGoBack = canGoBack })
}

// SetLoggedIn records the login state. Logging in also completes onboarding.
func (s *Store) SetLoggedIn(loggedIn bool) {
	s.update(func(snap *Snapshot) {
		snap.LoggedIn = loggedIn
		if loggedIn {
			snap.Onboarded = true
		}
	})
}

// SetOnboarded records that onboarding finished.
func (s *Store) SetOnboarded(done bool) {
	s.update(func(snap *Snapshot) { snap.Onboarded = done })
}

// SetWebViews records how many web views are attached.
func (s *Store) SetWebViews(n int) {
	s.update(func(snap *Snapshot) { snap.WebViews = n })
}

// SetPush records the push registration outcome.
func (s *Store) SetPush(push Push) {
	s.update(func(snap *Snapshot) { snap.Push = push })
}

// RecordLink remembers the last delivered deep link.
func (s *Store) RecordLink(rawURL string) {
	s.update(func(snap *Snapshot) {
		snap.LastLink = rawURL
		snap.LastLinkAt = time.Now()
	})
}

// RecordError keeps err for display. A nil err clears it.
func (s *Store) RecordError(err error) {
	s.update(func(snap *Snapshot) { snap.LastError = err })
}

// Notify appends a notice, dropping the oldest past the limit.
func (s *Store) Notify(title, message string) {
	s.update(func(snap *Snapshot) {
		snap.Notices = append(snap.Notices, Notice{Title: title, Message: message, At: time.Now()})
		if len(snap.Notices) > maxNotices {
			snap.Notices = append([]Notice(nil), snap.Notices[len(snap.Notices)-maxNotices:]...)
		}
	})
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Screen.Params = maps.Clone(s.snapshot.Screen.Params)
	snap.History = cloneHistory(s.snapshot.History)
	snap.Notices = cloneNotices(s.snapshot.Notices)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneHistory(items []Screen) []Screen {
	if len(items) == 0 {
		return nil
	}
	dup := make([]Screen, len(items))
	for i, item := range items {
		item.Params = maps.Clone(item.Params)
		dup[i] = item
	}
	return dup
}

func cloneNotices(items []Notice) []Notice {
	if len(items) == 0 {
		return nil
	}
	dup := make([]Notice, len(items))
	copy(dup, items)
	return dup
}
