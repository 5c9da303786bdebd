package nav

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/evenway2025/took/internal/deeplink"
	"github.com/evenway2025/took/internal/state"
)

// Routes that are not deep link targets.
const (
	RouteHome       = "/"
	RouteLogin      = "/login"
	RouteOnboarding = "/onboarding"
)

// ParamDeepLink marks a screen that was opened from a deep link.
const ParamDeepLink = "deepLink"

// Web paths served by the web application.
const (
	webHome        = "/"
	webLogin       = "/login"
	webOnboarding  = "/onboarding"
	webInteresting = "/received/interesting"
	webCardNotes   = "/card-notes"
	webCardShare   = "/card-share/"
	webCardDetail  = "/card-detail/"
)

// ErrUnknownRoute is returned by Resolve for a route outside the table.
var ErrUnknownRoute = errors.New("unknown route")

// WebController drives the history of the attached web views.
type WebController interface {
	GoBack()
}

// Navigator maps in-app routes to web pages and records them in the store.
type Navigator struct {
	webURL string
	store  *state.Store
	web    WebController
}

// New builds a Navigator for the web application at webURL. web may be nil.
func New(webURL string, store *state.Store, web WebController) *Navigator {
	return &Navigator{
		webURL: strings.TrimRight(webURL, "/"),
		store:  store,
		web:    web,
	}
}

// Ensure Navigator can serve the deep link router at compile time.
var _ deeplink.Navigator = (*Navigator)(nil)

// NavigateReplace replaces the current screen. Unknown routes land on the
// auth screen.
func (n *Navigator) NavigateReplace(route string) {
	screen, err := n.Resolve(route)
	if err != nil {
		slog.Warn("navigation target not found, using auth screen", "route", route, "error", err)
		screen, _ = n.Resolve(deeplink.RouteAuth)
	}
	if screen.Params == nil {
		screen.Params = map[string]string{}
	}
	screen.Params[ParamDeepLink] = "true"
	n.leave(screen)
	n.store.Replace(screen)
	slog.Info("navigated", "route", screen.Route, "web_url", screen.WebURL)
}

// Navigate opens route on top of the current screen.
func (n *Navigator) Navigate(route string) error {
	screen, err := n.Resolve(route)
	if err != nil {
		return err
	}
	n.leave(screen)
	n.store.Navigate(screen)
	slog.Info("navigated", "route", screen.Route, "web_url", screen.WebURL)
	return nil
}

// Back handles a back gesture. Web history wins when the page has any. A card
// detail screen goes home, a deep-linked interesting screen goes to the auth
// screen, and anything else pops the history. It reports false when there is
// nowhere to go.
func (n *Navigator) Back() bool {
	snap := n.store.Snapshot()
	if snap.CanGoBack && n.web != nil {
		n.web.GoBack()
		return true
	}

	current := snap.Screen
	switch {
	case strings.HasPrefix(current.Route, deeplink.RouteCardDetail):
		n.replace(RouteHome)
		return true
	case current.Route == deeplink.RouteInteresting && current.Params[ParamDeepLink] == "true":
		n.replace(deeplink.RouteAuth)
		return true
	}

	screen, ok := n.store.Back()
	if !ok {
		return false
	}
	n.leave(screen)
	slog.Info("navigated back", "route", screen.Route)
	return true
}

func (n *Navigator) replace(route string) {
	screen, err := n.Resolve(route)
	if err != nil {
		slog.Warn("navigation target not found", "route", route, "error", err)
		return
	}
	n.leave(screen)
	n.store.Replace(screen)
}

// leave clears the card context when the card share screen that owns it is
// replaced by a different screen.
func (n *Navigator) leave(next state.Screen) {
	snap := n.store.Snapshot()
	if !strings.HasPrefix(snap.Screen.Route, deeplink.RouteCardShare) {
		return
	}
	if next.Route == snap.Screen.Route {
		return
	}
	shown := snap.Screen.Params["cardId"]
	if shown != "" && snap.CardID == shown {
		n.store.SetCardID("")
	}
}

// Resolve maps route to its screen without navigating.
func (n *Navigator) Resolve(route string) (state.Screen, error) {
	u, err := url.Parse(route)
	if err != nil {
		return state.Screen{}, fmt.Errorf("parse route %q: %w", route, err)
	}
	path := u.Path
	query := u.Query()
	params := map[string]string{}
	for key, vals := range query {
		if len(vals) > 0 {
			params[key] = vals[0]
		}
	}
	screen := state.Screen{Route: path, Params: params}

	switch {
	case path == RouteHome:
		screen.WebURL = n.page(webHome, nil)
	case path == deeplink.RouteAuth:
		screen.WebURL = n.authTarget()
	case path == RouteLogin:
		screen.WebURL = n.page(webLogin, nil)
	case path == RouteOnboarding:
		screen.WebURL = n.page(webOnboarding, nil)
	case path == deeplink.RouteInteresting:
		screen.WebURL = n.page(webInteresting, nil)
	case path == deeplink.RouteNotes, path == deeplink.RouteNoteDetail:
		screen.WebURL = n.page(webCardNotes, query)
	case strings.HasPrefix(path, deeplink.RouteCardShare):
		cardID := strings.TrimPrefix(path, deeplink.RouteCardShare)
		if ctxID := n.store.Snapshot().CardID; ctxID != "" {
			cardID = ctxID
		}
		if cardID == "" {
			return state.Screen{}, fmt.Errorf("%w: %s", ErrUnknownRoute, route)
		}
		params["cardId"] = cardID
		screen.WebURL = n.page(webCardShare+url.PathEscape(cardID), nil)
	case strings.HasPrefix(path, deeplink.RouteCardDetail):
		cardID := strings.TrimPrefix(path, deeplink.RouteCardDetail)
		if cardID == "" {
			return state.Screen{}, fmt.Errorf("%w: %s", ErrUnknownRoute, route)
		}
		detailType := params["type"]
		if detailType == "" {
			detailType = deeplink.DefaultDetailType
			params["type"] = detailType
		}
		params["cardId"] = cardID
		screen.WebURL = n.page(webCardDetail+url.PathEscape(cardID), url.Values{"type": {detailType}})
	default:
		return state.Screen{}, fmt.Errorf("%w: %s", ErrUnknownRoute, route)
	}
	return screen, nil
}

// authTarget picks the page behind the auth group from the login state.
func (n *Navigator) authTarget() string {
	snap := n.store.Snapshot()
	switch {
	case snap.LoggedIn:
		return n.page(webHome, nil)
	case snap.Onboarded:
		return n.page(webLogin, nil)
	default:
		return n.page(webOnboarding, nil)
	}
}

func (n *Navigator) page(path string, query url.Values) string {
	target := n.webURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}
