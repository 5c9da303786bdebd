package pushtoken

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/evenway2025/took/internal/platform"
)

// Status values carried by Pair.
const (
	StatusDenied = "denied"
	StatusError  = "error"
)

const (
	simulatorTokenFormat = "ExponentPushToken[DEV-SIMULATOR-%s]"

	msgSimulator     = "must use a physical device for push notifications"
	msgDenied        = "push notification permission not granted"
	msgNoProjectID   = "project id not found"
	msgEmptyToken    = "push service returned an empty token"
	msgAcquirePanic  = "push token acquisition panicked"
	msgAcquireCancel = "push token acquisition canceled"
)

// Result is the outcome of a token acquisition: Token, Denied or Failed.
type Result interface {
	isResult()
}

// Token is a usable push token.
type Token struct {
	Value string
}

// Denied means the user refused push notifications. It is an expected outcome.
type Denied struct {
	Message string
}

// Failed means the token could not be obtained.
type Failed struct {
	Message string
}

func (Token) isResult()  {}
func (Denied) isResult() {}
func (Failed) isResult() {}

// Pair is what web content receives when it asks for push tokens.
type Pair struct {
	ExpoToken *string `json:"expoToken"`
	FCMToken  *string `json:"fcmToken"`
	Status    string  `json:"status,omitempty"`
	Message   string  `json:"message,omitempty"`
}

// Platform is the subset of native capabilities the cache needs.
type Platform interface {
	IsDevice() bool
	PushPermission(ctx context.Context) (platform.PermissionStatus, error)
	RequestPushPermission(ctx context.Context) (platform.PermissionStatus, error)
	ExpoPushToken(ctx context.Context, projectID string) (string, error)
	DevicePushToken(ctx context.Context) (string, error)
	ConfigureChannel(ctx context.Context) error
}

// Ensure the local platform satisfies Platform at compile time.
var _ Platform = (*platform.Local)(nil)

// Options configure a Cache.
type Options struct {
	Platform   Platform
	ProjectID  string
	Production bool
}

// Cache acquires the push token once and remembers the outcome, including
// denial and failure, until Reset.
type Cache struct {
	platform   Platform
	projectID  string
	production bool

	group singleflight.Group

	mu           sync.Mutex
	generation   uint64
	result       Result
	pair         *Pair
	deniedLogged bool
}

// New builds an empty Cache.
func New(opts Options) *Cache {
	return &Cache{
		platform:   opts.Platform,
		projectID:  strings.TrimSpace(opts.ProjectID),
		production: opts.Production,
	}
}

// AcquireToken returns the cached result or runs the registration flow.
// Concurrent first callers share one run. A caller whose context ends while
// waiting gets a Failed result that is not cached.
func (c *Cache) AcquireToken(ctx context.Context) Result {
	c.mu.Lock()
	if c.result != nil {
		res := c.result
		c.mu.Unlock()
		return res
	}
	gen := c.generation
	c.mu.Unlock()

	ch := c.group.DoChan("token:"+strconv.FormatUint(gen, 10), func() (any, error) {
		res := c.acquire(context.WithoutCancel(ctx))
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generation == gen && c.result == nil {
			c.result = res
		}
		return res, nil
	})

	select {
	case out := <-ch:
		return out.Val.(Result)
	case <-ctx.Done():
		return Failed{Message: msgAcquireCancel + ": " + ctx.Err().Error()}
	}
}

// Reset forgets the cached result so the next AcquireToken starts over. An
// acquisition already in flight finishes but cannot repopulate the cache.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.result = nil
	c.pair = nil
	c.deniedLogged = false
	slog.Info("push token cache reset")
}

// Cached returns the cached result without acquiring.
func (c *Cache) Cached() (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result, c.result != nil
}

// TokensWithCache returns the push token and, when one is available, the
// native device token. The native token is best effort. The composed Pair is
// memoized until Reset, unless ctx ended while it was being composed.
func (c *Cache) TokensWithCache(ctx context.Context) Pair {
	c.mu.Lock()
	if c.pair != nil {
		pair := clonePair(*c.pair)
		c.mu.Unlock()
		return pair
	}
	gen := c.generation
	c.mu.Unlock()

	res := c.AcquireToken(ctx)
	pair := c.compose(ctx, res)

	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil {
		return pair
	}
	if c.generation == gen && c.pair == nil {
		stored := clonePair(pair)
		c.pair = &stored
	}
	return pair
}

func (c *Cache) compose(ctx context.Context, res Result) Pair {
	switch r := res.(type) {
	case Token:
		expo := r.Value
		pair := Pair{ExpoToken: &expo}
		fcm, err := c.platform.DevicePushToken(ctx)
		if err != nil {
			slog.Warn("native push token unavailable", "error", err)
		} else if fcm != "" {
			pair.FCMToken = &fcm
		}
		return pair
	case Denied:
		return Pair{Status: StatusDenied, Message: r.Message}
	case Failed:
		return Pair{Status: StatusError, Message: r.Message}
	default:
		return Pair{Status: StatusError, Message: fmt.Sprintf("unexpected result %T", res)}
	}
}

// acquire runs the registration flow once. It never returns nil.
func (c *Cache) acquire(ctx context.Context) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("push token acquisition panicked", "panic", p)
			res = Failed{Message: fmt.Sprintf("%s: %v", msgAcquirePanic, p)}
		}
	}()

	if err := c.platform.ConfigureChannel(ctx); err != nil {
		slog.Warn("notification channel setup failed", "error", err)
	}

	if !c.platform.IsDevice() {
		if c.production {
			slog.Warn("push token unavailable on a simulator")
			return Failed{Message: msgSimulator}
		}
		token := fmt.Sprintf(simulatorTokenFormat, uuid.NewString())
		slog.Info("using simulator placeholder push token", "token", token)
		return Token{Value: token}
	}

	status, err := c.platform.PushPermission(ctx)
	if err != nil {
		slog.Error("push permission query failed", "error", err)
		return Failed{Message: err.Error()}
	}
	if status != platform.Granted {
		status, err = c.platform.RequestPushPermission(ctx)
		if err != nil {
			slog.Error("push permission request failed", "error", err)
			return Failed{Message: err.Error()}
		}
	}
	if status != platform.Granted {
		c.logDeniedOnce()
		return Denied{Message: msgDenied}
	}

	if c.projectID == "" {
		slog.Error("push token project id missing")
		return Failed{Message: msgNoProjectID}
	}

	token, err := c.platform.ExpoPushToken(ctx, c.projectID)
	if err != nil {
		slog.Error("push token request failed", "error", err)
		return Failed{Message: err.Error()}
	}
	if token == "" {
		return Failed{Message: msgEmptyToken}
	}
	slog.Info("push token acquired")
	return Token{Value: token}
}

func (c *Cache) logDeniedOnce() {
	c.mu.Lock()
	first := !c.deniedLogged
	c.deniedLogged = true
	c.mu.Unlock()
	if first {
		slog.Info("push notification permission denied")
	}
}

func clonePair(p Pair) Pair {
	out := Pair{Status: p.Status, Message: p.Message}
	if p.ExpoToken != nil {
		v := *p.ExpoToken
		out.ExpoToken = &v
	}
	if p.FCMToken != nil {
		v := *p.FCMToken
		out.FCMToken = &v
	}
	return out
}
