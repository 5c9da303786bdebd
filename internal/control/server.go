package control

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/evenway2025/took/internal/pushtoken"
	"github.com/evenway2025/took/internal/state"
	"github.com/evenway2025/took/internal/tookapi"
)

const (
	// BridgePath is where web views attach their websocket.
	BridgePath = "/bridge"

	pathLinks       = "/api/v1/links"
	pathTap         = "/api/v1/notifications/tap"
	pathPreferences = "/api/v1/notifications/preferences"
	pathPushToken   = "/api/v1/push-token"
	pathState       = "/api/v1/state"
	pathHealth      = "/healthz"

	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 5 * time.Second
)

// Service is what the control API drives.
type Service interface {
	DeliverLink(ctx context.Context, rawURL string)
	HandleTap(ctx context.Context, data map[string]any)
	PushTokens(ctx context.Context) pushtoken.Pair
	ResetPushToken()
	Snapshot() state.Snapshot
	UpdatePreferences(ctx context.Context, allow tookapi.NotificationAllow) error
}

type linkInput struct {
	Body struct {
		URL string `json:"url" minLength:"1" doc:"Deep link, e.g. took://card-share/42?save=true"`
	}
}

type tapInput struct {
	Body struct {
		Data map[string]any `json:"data" doc:"Notification payload; the link key carries the target"`
	}
}

type preferencesInput struct {
	Body tookapi.NotificationAllow
}

type statusOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

type pushTokenOutput struct {
	Body pushtoken.Pair
}

type stateOutput struct {
	Body StateView
}

// StateView is the public summary of the shell state.
type StateView struct {
	Route        string            `json:"route"`
	WebURL       string            `json:"webUrl"`
	Params       map[string]string `json:"params,omitempty"`
	HistoryDepth int               `json:"historyDepth"`
	CardID       string            `json:"cardId,omitempty"`
	CanGoBack    bool              `json:"canGoBack"`
	LoggedIn     bool              `json:"loggedIn"`
	Onboarded    bool              `json:"onboarded"`
	WebViews     int               `json:"webViews"`
	Push         state.Push        `json:"push"`
	Notices      []state.Notice    `json:"notices,omitempty"`
	LastLink     string            `json:"lastLink,omitempty"`
	LastError    string            `json:"lastError,omitempty"`
}

func newStateView(s state.Snapshot) StateView {
	view := StateView{
		Route:        s.Screen.Route,
		WebURL:       s.Screen.WebURL,
		Params:       s.Screen.Params,
		HistoryDepth: len(s.History),
		CardID:       s.CardID,
		CanGoBack:    s.CanGoBack,
		LoggedIn:     s.LoggedIn,
		Onboarded:    s.Onboarded,
		WebViews:     s.WebViews,
		Push:         s.Push,
		Notices:      s.Notices,
		LastLink:     s.LastLink,
	}
	if s.LastError != nil {
		view.LastError = s.LastError.Error()
	}
	return view
}

// NewServer builds the control API. A non-nil bridge is mounted at BridgePath.
func NewServer(svc Service, bridge http.Handler) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("Took Control API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	if bridge != nil {
		router.Handle(BridgePath, bridge)
	}

	registerHandlers(api, svc)
	return router
}

func registerHandlers(api huma.API, svc Service) {
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: pathHealth, Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*statusOutput, error) {
			out := &statusOutput{}
			out.Body.Status = "ok"
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "deliver-link", Method: http.MethodPost, Path: pathLinks, Summary: "Deliver a deep link to the running shell", Tags: []string{"Links"}, DefaultStatus: http.StatusAccepted},
		func(ctx context.Context, input *linkInput) (*statusOutput, error) {
			svc.DeliverLink(ctx, input.Body.URL)
			out := &statusOutput{}
			out.Body.Status = "accepted"
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "notification-tap", Method: http.MethodPost, Path: pathTap, Summary: "Simulate a notification tap", Tags: []string{"Notifications"}, DefaultStatus: http.StatusAccepted},
		func(ctx context.Context, input *tapInput) (*statusOutput, error) {
			svc.HandleTap(ctx, input.Body.Data)
			out := &statusOutput{}
			out.Body.Status = "accepted"
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "update-notification-preferences", Method: http.MethodPatch, Path: pathPreferences, Summary: "Update which pushes the user receives", Tags: []string{"Notifications"}},
		func(ctx context.Context, input *preferencesInput) (*statusOutput, error) {
			if err := svc.UpdatePreferences(ctx, input.Body); err != nil {
				return nil, mapErr(err)
			}
			out := &statusOutput{}
			out.Body.Status = "saved"
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "get-push-token", Method: http.MethodGet, Path: pathPushToken, Summary: "Get push tokens, acquiring them if needed", Tags: []string{"Push"}},
		func(ctx context.Context, input *struct{}) (*pushTokenOutput, error) {
			return &pushTokenOutput{Body: svc.PushTokens(ctx)}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "reset-push-token", Method: http.MethodDelete, Path: pathPushToken, Summary: "Forget the cached push token", Tags: []string{"Push"}, DefaultStatus: http.StatusNoContent},
		func(ctx context.Context, input *struct{}) (*struct{}, error) {
			svc.ResetPushToken()
			return nil, nil
		})

	huma.Register(api, huma.Operation{OperationID: "get-state", Method: http.MethodGet, Path: pathState, Summary: "Current screen, card context and push state", Tags: []string{"State"}},
		func(ctx context.Context, input *struct{}) (*stateOutput, error) {
			return &stateOutput{Body: newStateView(svc.Snapshot())}, nil
		})
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, tookapi.ErrUnknownContentType) {
		return huma.Error400BadRequest(err.Error())
	}
	var status *tookapi.StatusError
	if errors.As(err, &status) {
		if status.StatusCode == http.StatusUnauthorized || status.StatusCode == http.StatusForbidden {
			return huma.Error401Unauthorized(status.Error())
		}
		return huma.Error502BadGateway(status.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return huma.Error504GatewayTimeout(err.Error())
	}
	return huma.Error500InternalServerError(err.Error())
}

// Serve serves h on ln until ctx is canceled, then shuts down gracefully.
func Serve(ctx context.Context, ln net.Listener, h http.Handler) error {
	srv := &http.Server{Handler: h, ReadHeaderTimeout: readHeaderTimeout}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("control api listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("control api shutdown failed", "error", err)
		return err
	}
	return nil
}
