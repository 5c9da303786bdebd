// Package notification handles notification taps and push registration.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/evenway2025/took/internal/prefs"
	"github.com/evenway2025/took/internal/pushtoken"
	"github.com/evenway2025/took/internal/state"
	"github.com/evenway2025/took/internal/tookapi"
)

const (
	dataKeyLink = "link"

	titleNotifications = "Notifications"
	msgPushDenied      = "Push notifications are turned off. You can enable them in settings."
)

// LinkSink receives deep links produced by notification taps.
type LinkSink func(ctx context.Context, rawURL string)

// ExternalOpener opens web URLs outside the app.
type ExternalOpener interface {
	OpenURL(ctx context.Context, rawURL string) error
}

// PreferencesAPI stores notification settings on the server.
type PreferencesAPI interface {
	PatchNotificationAllow(ctx context.Context, allow tookapi.NotificationAllow) (*tookapi.APIResponse, error)
}

// TokenProvider is the push token cache.
type TokenProvider interface {
	AcquireToken(ctx context.Context) pushtoken.Result
}

// Options configure a Handler.
type Options struct {
	Scheme    string
	Links     LinkSink
	Opener    ExternalOpener
	API       PreferencesAPI
	Tokens    TokenProvider
	Store     *state.Store
	PrefsPath string
}

// Handler reacts to notification taps and owns push registration.
type Handler struct {
	scheme    string
	links     LinkSink
	opener    ExternalOpener
	api       PreferencesAPI
	tokens    TokenProvider
	store     *state.Store
	prefsPath string

	deniedOnce sync.Once
}

// NewHandler builds a Handler.
func NewHandler(opts Options) *Handler {
	return &Handler{
		scheme:    opts.Scheme,
		links:     opts.Links,
		opener:    opts.Opener,
		api:       opts.API,
		tokens:    opts.Tokens,
		store:     opts.Store,
		prefsPath: opts.PrefsPath,
	}
}

// HandleTap routes the link carried by a tapped notification. An in-app path
// ("/card-share/42") becomes a deep link; an http(s) URL opens externally.
// Anything else is ignored.
func (h *Handler) HandleTap(ctx context.Context, data map[string]any) {
	link, _ := data[dataKeyLink].(string)
	link = strings.TrimSpace(link)
	if link == "" {
		slog.Info("notification tapped without link")
		return
	}

	switch {
	case strings.HasPrefix(link, "/"):
		rawURL := h.scheme + "://" + strings.TrimPrefix(link, "/")
		slog.Info("notification link delivered", "url", rawURL)
		if h.links != nil {
			h.links(ctx, rawURL)
		}
	case strings.HasPrefix(link, "http"):
		if h.opener == nil {
			slog.Warn("no external opener configured", "url", link)
			return
		}
		if err := h.opener.OpenURL(ctx, link); err != nil {
			slog.Error("open notification link failed", "url", link, "error", err)
		}
	default:
		slog.Info("notification link ignored", "link", link)
	}
}

// UpdatePreferences sends the settings to the server and keeps a local copy
// once the server accepted them.
func (h *Handler) UpdatePreferences(ctx context.Context, allow tookapi.NotificationAllow) error {
	if h.api == nil {
		return fmt.Errorf("notification api not configured")
	}
	if _, err := h.api.PatchNotificationAllow(ctx, allow); err != nil {
		return err
	}

	content := make([]string, 0, len(allow.AllowPushContent))
	for _, c := range allow.AllowPushContent {
		content = append(content, string(c))
	}
	_, err := prefs.Update(h.prefsPath, func(p *prefs.Prefs) {
		p.Notifications = prefs.Notifications{AllowPush: allow.IsAllowPush, Content: content}
	})
	if err != nil {
		return fmt.Errorf("save notification prefs: %w", err)
	}
	return nil
}

// Register acquires the push token and publishes the outcome to the store.
// A denial is shown to the user once per Handler.
func (h *Handler) Register(ctx context.Context) pushtoken.Result {
	res := h.tokens.AcquireToken(ctx)
	h.Publish(res)
	return res
}

// Publish records res in the store.
func (h *Handler) Publish(res pushtoken.Result) {
	if h.store == nil {
		return
	}
	switch r := res.(type) {
	case pushtoken.Token:
		h.store.SetPush(state.Push{Token: r.Value})
	case pushtoken.Denied:
		h.store.SetPush(state.Push{Status: pushtoken.StatusDenied, Message: r.Message})
		h.deniedOnce.Do(func() {
			h.store.Notify(titleNotifications, msgPushDenied)
		})
	case pushtoken.Failed:
		h.store.SetPush(state.Push{Status: pushtoken.StatusError, Message: r.Message})
	}
}
