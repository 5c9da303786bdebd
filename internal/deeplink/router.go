package deeplink

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
)

// Navigation targets issued by the router.
const (
	RouteAuth        = "/(auth)"
	RouteInteresting = "/received-interesting"
	RouteNotes       = "/card-notes"
	RouteNoteDetail  = "/card-notes/detail"
	RouteCardShare   = "/card-share/"
	RouteCardDetail  = "/card-detail/"
)

// Navigator replaces the current screen. It must not block.
type Navigator interface {
	NavigateReplace(path string)
}

// CardSaver stores a shared card on the server.
type CardSaver interface {
	SaveCard(ctx context.Context, cardID string) error
}

// CardIDSetter publishes the current card to screens that depend on it.
type CardIDSetter func(cardID string)

// Router turns incoming deep links into navigation and makes sure each logical
// link is acted on at most once per Router lifetime.
type Router struct {
	scheme string
	nav    Navigator
	saver  CardSaver

	mu         sync.Mutex
	processing bool
	processed  map[string]struct{}
	savedCards map[string]struct{}
}

// NewRouter builds a Router for links using the given custom scheme.
func NewRouter(scheme string, nav Navigator, saver CardSaver) *Router {
	return &Router{
		scheme:     scheme,
		nav:        nav,
		saver:      saver,
		processed:  make(map[string]struct{}),
		savedCards: make(map[string]struct{}),
	}
}

// HandleDeepLink processes one delivery of rawURL.
//
// A delivery that arrives while another is in flight is dropped, not queued.
// A delivery whose normalized path was seen before is dropped, even when the
// earlier attempt failed. Failures are logged and end on the auth screen;
// nothing is returned to the caller.
func (r *Router) HandleDeepLink(ctx context.Context, rawURL string, setCardID CardIDSetter) {
	if rawURL == "" {
		return
	}
	slog.Info("deep link received", "url", rawURL)

	path, ok := r.claim(rawURL)
	if !ok {
		return
	}
	defer r.release()

	if err := r.dispatch(ctx, rawURL, setCardID); err != nil {
		slog.Error("deep link handling failed", "url", rawURL, "path", path, "error", err)
		r.nav.NavigateReplace(RouteAuth)
	}
}

// claim takes the processing lock and marks the link's path as processed.
// Both happen before any suspension point so a racing delivery cannot pass.
func (r *Router) claim(rawURL string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.processing {
		slog.Info("deep link dropped, another link is being processed", "url", rawURL)
		return "", false
	}
	path := NormalizePath(rawURL, r.scheme)
	if _, seen := r.processed[path]; seen {
		slog.Info("deep link dropped, already processed", "path", path)
		return "", false
	}
	r.processing = true
	r.processed[path] = struct{}{}
	return path, true
}

func (r *Router) release() {
	r.mu.Lock()
	r.processing = false
	r.mu.Unlock()
}

func (r *Router) dispatch(ctx context.Context, rawURL string, setCardID CardIDSetter) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic while handling deep link: %v", p)
		}
	}()

	link, err := Parse(rawURL, r.scheme)
	if err != nil {
		return err
	}

	switch intent := Classify(link).(type) {
	case Interesting:
		slog.Info("navigating to interesting cards")
		r.nav.NavigateReplace(RouteInteresting)
	case Notes:
		r.handleNotes(intent)
	case CardShare:
		r.handleCardShare(ctx, intent, setCardID)
	case CardDetail:
		r.handleCardDetail(intent, setCardID)
	case Unknown:
		slog.Info("no route matches deep link", "path", intent.Path)
		r.nav.NavigateReplace(RouteAuth)
	default:
		return fmt.Errorf("unhandled intent %T", intent)
	}
	return nil
}

func (r *Router) handleNotes(intent Notes) {
	if intent.Detail && intent.NoteID != "" {
		values := url.Values{}
		values.Set(queryNoteID, intent.NoteID)
		if intent.CardID != "" {
			values.Set(queryCardID, intent.CardID)
		}
		slog.Info("navigating to note detail", "note_id", intent.NoteID)
		r.nav.NavigateReplace(RouteNoteDetail + "?" + values.Encode())
		return
	}
	if intent.Detail {
		slog.Info("note detail link without noteId, opening notes list")
	}

	target := RouteNotes
	if intent.CardID != "" {
		target += "?" + queryCardID + "=" + url.QueryEscape(intent.CardID)
	}
	slog.Info("navigating to notes list", "card_id", intent.CardID)
	r.nav.NavigateReplace(target)
}

func (r *Router) handleCardShare(ctx context.Context, intent CardShare, setCardID CardIDSetter) {
	if intent.CardID == "" {
		return
	}
	slog.Info("navigating to card share", "card_id", intent.CardID, "save", intent.ShouldSave)

	if setCardID != nil {
		setCardID(intent.CardID)
	}

	if intent.ShouldSave && r.claimSave(intent.CardID) {
		if err := r.save(ctx, intent.CardID); err != nil {
			slog.Error("card save failed", "card_id", intent.CardID, "error", err)
			r.releaseSave(intent.CardID)
		}
	}

	// The clean URL carries no save flag so re-rendering the screen never saves again.
	r.nav.NavigateReplace(RouteCardShare + url.PathEscape(intent.CardID))
}

func (r *Router) handleCardDetail(intent CardDetail, setCardID CardIDSetter) {
	if intent.CardID == "" {
		return
	}
	slog.Info("navigating to card detail", "card_id", intent.CardID, "type", intent.Type)

	if setCardID != nil {
		setCardID(intent.CardID)
	}
	r.nav.NavigateReplace(RouteCardDetail + url.PathEscape(intent.CardID) + "?" + queryType + "=" + url.QueryEscape(intent.Type))
}

func (r *Router) save(ctx context.Context, cardID string) (err error) {
	if r.saver == nil {
		return fmt.Errorf("no card saver configured")
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("card saver panicked: %v", p)
		}
	}()
	slog.Info("saving shared card", "card_id", cardID)
	return r.saver.SaveCard(ctx, cardID)
}

// claimSave marks cardID as saved this session. It reports false when a save
// for the card was already attempted and has not failed.
func (r *Router) claimSave(cardID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.savedCards[cardID]; ok {
		slog.Info("card already saved this session", "card_id", cardID)
		return false
	}
	r.savedCards[cardID] = struct{}{}
	return true
}

func (r *Router) releaseSave(cardID string) {
	r.mu.Lock()
	delete(r.savedCards, cardID)
	r.mu.Unlock()
}

// Processed reports whether the logical link for rawURL has been handled.
func (r *Router) Processed(rawURL string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.processed[NormalizePath(rawURL, r.scheme)]
	return ok
}
