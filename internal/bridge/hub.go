package bridge

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/evenway2025/took/internal/platform"
	"github.com/evenway2025/took/internal/pushtoken"
	"github.com/evenway2025/took/internal/securestore"
	"github.com/evenway2025/took/internal/state"
)

const (
	writeTimeout   = 5 * time.Second
	imageURLPrefix = "data:image/jpeg;base64,"
	maxFrameBytes  = 8 << 20
)

// Device is the native capability set web content can reach.
type Device interface {
	PickImage(ctx context.Context, source platform.ImageSource) ([]byte, error)
	CurrentLocation(ctx context.Context) (*platform.Location, error)
}

// Tokens provides push tokens.
type Tokens interface {
	TokensWithCache(ctx context.Context) pushtoken.Pair
}

// Secrets stores credentials handed over by web content.
type Secrets interface {
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Options configure a Hub.
type Options struct {
	Device  Device
	Tokens  Tokens
	Secrets Secrets
	Store   *state.Store

	// OriginPatterns lists extra hosts allowed to connect besides localhost.
	OriginPatterns []string
}

// Hub serves the web view websocket and dispatches its messages.
type Hub struct {
	device  Device
	tokens  Tokens
	secrets Secrets
	store   *state.Store
	origins []string

	mu    sync.Mutex
	views map[string]*websocket.Conn
}

// NewHub builds a Hub.
func NewHub(opts Options) *Hub {
	return &Hub{
		device:  opts.Device,
		tokens:  opts.Tokens,
		secrets: opts.Secrets,
		store:   opts.Store,
		origins: append([]string{"localhost:*", "127.0.0.1:*"}, opts.OriginPatterns...),
		views:   make(map[string]*websocket.Conn),
	}
}

// ServeHTTP upgrades the request and serves one web view until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		slog.Warn("web view upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	id := uuid.NewString()
	h.register(id, conn)
	defer h.unregister(id)

	ctx := r.Context()
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				slog.Info("web view disconnected", "view", id, "error", err)
			}
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		}
		if typ != websocket.MessageText {
			slog.Warn("binary frame ignored", "view", id)
			continue
		}
		h.handleFrame(ctx, id, data)
	}
}

func (h *Hub) register(id string, conn *websocket.Conn) {
	h.mu.Lock()
	h.views[id] = conn
	n := len(h.views)
	h.mu.Unlock()
	h.setViews(n)
	slog.Info("web view attached", "view", id, "views", n)
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	delete(h.views, id)
	n := len(h.views)
	h.mu.Unlock()
	h.setViews(n)
	slog.Info("web view detached", "view", id, "views", n)
}

func (h *Hub) setViews(n int) {
	if h.store != nil {
		h.store.SetWebViews(n)
	}
}

// Views returns the number of attached web views.
func (h *Hub) Views() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.views)
}

// handleFrame dispatches one text frame. JSON objects are typed messages;
// anything else is the page's cookie string.
func (h *Hub) handleFrame(ctx context.Context, viewID string, data []byte) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return
	}
	if trimmed[0] != '{' {
		h.handleCookies(ctx, string(trimmed))
		return
	}

	var msg Inbound
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		slog.Warn("malformed web view message", "view", viewID, "error", err)
		return
	}

	switch msg.Type {
	case TypeImagePicker:
		h.handleImagePicker(ctx, viewID, msg)
	case TypeGoogleLogin:
		slog.Info("google login requested", "view", viewID)
	case TypeNavigationState:
		if msg.CanGoBack != nil && h.store != nil {
			h.store.SetCanGoBack(*msg.CanGoBack)
		}
	case TypePushToken:
		pair := h.tokens.TokensWithCache(ctx)
		h.reply(ctx, viewID, Outbound{Type: TypePushToken, RequestID: msg.RequestID, Data: pair})
	case TypeLocation:
		h.handleLocation(ctx, viewID, msg)
	case TypeAuthToken:
		h.handleAuthToken(ctx, viewID, msg)
	case TypeLogout:
		h.handleLogout(ctx)
	default:
		slog.Info("unknown web view message", "view", viewID, "type", msg.Type)
	}
}

func (h *Hub) handleCookies(ctx context.Context, raw string) {
	value, ok := loginCookie(raw)
	if !ok {
		return
	}
	if h.store != nil {
		h.store.SetLoggedIn(true)
	}
	if h.secrets != nil {
		if err := h.secrets.Set(ctx, securestore.KeyLoginCookie, value); err != nil {
			slog.Error("store login cookie failed", "error", err)
		}
	}
	slog.Info("login cookie received")
}

func (h *Hub) handleImagePicker(ctx context.Context, viewID string, msg Inbound) {
	source := platform.SourceLibrary
	if msg.Source == string(platform.SourceCamera) {
		source = platform.SourceCamera
	}
	data, err := h.device.PickImage(ctx, source)
	if err != nil {
		if errors.Is(err, platform.ErrCanceled) {
			slog.Info("image picking canceled", "view", viewID)
			return
		}
		slog.Error("image picking failed", "view", viewID, "source", string(source), "error", err)
		h.reply(ctx, viewID, Outbound{Type: TypeError, RequestID: msg.RequestID, Error: err.Error()})
		return
	}
	encoded := imageURLPrefix + base64.StdEncoding.EncodeToString(data)
	h.Broadcast(ctx, Outbound{Type: TypeImagePicker, RequestID: msg.RequestID, Data: encoded})
}

func (h *Hub) handleLocation(ctx context.Context, viewID string, msg Inbound) {
	loc, err := h.device.CurrentLocation(ctx)
	if err != nil {
		slog.Error("location lookup failed", "view", viewID, "error", err)
		h.reply(ctx, viewID, Outbound{Type: TypeLocation, RequestID: msg.RequestID, Error: err.Error()})
		return
	}
	h.reply(ctx, viewID, Outbound{Type: TypeLocation, RequestID: msg.RequestID, Data: loc})
}

func (h *Hub) handleAuthToken(ctx context.Context, viewID string, msg Inbound) {
	if msg.Token == "" {
		h.reply(ctx, viewID, Outbound{Type: TypeError, RequestID: msg.RequestID, Error: "token is required"})
		return
	}
	if err := h.secrets.Set(ctx, securestore.KeyAccessToken, msg.Token); err != nil {
		slog.Error("store access token failed", "error", err)
		h.reply(ctx, viewID, Outbound{Type: TypeError, RequestID: msg.RequestID, Error: err.Error()})
		return
	}
	slog.Info("access token updated")
}

func (h *Hub) handleLogout(ctx context.Context) {
	if h.store != nil {
		h.store.SetLoggedIn(false)
	}
	if h.secrets != nil {
		for _, key := range []string{securestore.KeyLoginCookie, securestore.KeyAccessToken} {
			if err := h.secrets.Delete(ctx, key); err != nil {
				slog.Error("clear credential failed", "key", key, "error", err)
			}
		}
	}
	slog.Info("logged out")
	h.Broadcast(ctx, Outbound{Type: TypeReload})
}

// GoBack asks the web views to navigate back in their own history.
func (h *Hub) GoBack() {
	h.Broadcast(context.Background(), Outbound{Type: TypeGoBack})
}

// Broadcast sends msg to every attached web view.
func (h *Hub) Broadcast(ctx context.Context, msg Outbound) {
	h.mu.Lock()
	targets := make(map[string]*websocket.Conn, len(h.views))
	for id, conn := range h.views {
		targets[id] = conn
	}
	h.mu.Unlock()

	for id, conn := range targets {
		if err := write(ctx, conn, msg); err != nil {
			slog.Warn("broadcast to web view failed", "view", id, "type", msg.Type, "error", err)
		}
	}
}

func (h *Hub) reply(ctx context.Context, viewID string, msg Outbound) {
	h.mu.Lock()
	conn, ok := h.views[viewID]
	h.mu.Unlock()
	if !ok {
		return
	}
	if err := write(ctx, conn, msg); err != nil {
		slog.Warn("reply to web view failed", "view", viewID, "type", msg.Type, "error", err)
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg Outbound) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		return fmt.Errorf("write %s: %w", msg.Type, err)
	}
	return nil
}
