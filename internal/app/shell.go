package app

import (
	"context"
	"strings"
	"sync"

	"github.com/evenway2025/took/internal/control"
	"github.com/evenway2025/took/internal/deeplink"
	"github.com/evenway2025/took/internal/pushtoken"
	"github.com/evenway2025/took/internal/state"
	"github.com/evenway2025/took/internal/tookapi"
	"github.com/evenway2025/took/internal/ui"
)

// linkRouter is the deep link router.
type linkRouter interface {
	HandleDeepLink(ctx context.Context, rawURL string, setCardID deeplink.CardIDSetter)
}

type backHandler interface {
	Back() bool
}

type tokenCache interface {
	TokensWithCache(ctx context.Context) pushtoken.Pair
	Reset()
}

type notifications interface {
	HandleTap(ctx context.Context, data map[string]any)
	UpdatePreferences(ctx context.Context, allow tookapi.NotificationAllow) error
	Register(ctx context.Context) pushtoken.Result
}

// shell connects the link origins (cold start, control API, notification
// taps, terminal) to the router, navigator and push machinery.
type shell struct {
	router        linkRouter
	nav           backHandler
	store         *state.Store
	tokens        tokenCache
	notifications notifications

	wg sync.WaitGroup
}

var (
	_ control.Service = (*shell)(nil)
	_ ui.Controller   = (*shell)(nil)
)

// DeliverLink hands rawURL to the router without waiting for it. Deliveries
// outlive the caller's context so a warm link keeps going after the control
// request returns.
func (s *shell) DeliverLink(ctx context.Context, rawURL string) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.deliver(ctx, rawURL)
	}()
}

func (s *shell) deliver(ctx context.Context, rawURL string) {
	s.store.RecordLink(rawURL)
	s.router.HandleDeepLink(ctx, rawURL, s.store.SetCardID)
}

func (s *shell) HandleTap(ctx context.Context, data map[string]any) {
	s.notifications.HandleTap(ctx, data)
}

func (s *shell) PushTokens(ctx context.Context) pushtoken.Pair {
	return s.tokens.TokensWithCache(ctx)
}

func (s *shell) ResetPushToken() {
	s.tokens.Reset()
}

func (s *shell) Snapshot() state.Snapshot {
	return s.store.Snapshot()
}

func (s *shell) UpdatePreferences(ctx context.Context, allow tookapi.NotificationAllow) error {
	return s.notifications.UpdatePreferences(ctx, allow)
}

func (s *shell) Back() bool {
	return s.nav.Back()
}

// RetryPush drops the cached outcome and registers again.
func (s *shell) RetryPush(ctx context.Context) {
	s.tokens.Reset()
	s.notifications.Register(ctx)
}

// wait blocks until in-flight link deliveries finish.
func (s *shell) wait() {
	s.wg.Wait()
}
