package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/evenway2025/took/internal/bridge"
	"github.com/evenway2025/took/internal/config"
	"github.com/evenway2025/took/internal/control"
	"github.com/evenway2025/took/internal/deeplink"
	"github.com/evenway2025/took/internal/nav"
	"github.com/evenway2025/took/internal/notification"
	"github.com/evenway2025/took/internal/platform"
	"github.com/evenway2025/took/internal/prefs"
	"github.com/evenway2025/took/internal/pushtoken"
	"github.com/evenway2025/took/internal/securestore"
	"github.com/evenway2025/took/internal/state"
	"github.com/evenway2025/took/internal/tookapi"
	"github.com/evenway2025/took/internal/ui"
)

// Options configure the Took shell.
type Options struct {
	Config      config.Config
	PrefsPath   string // empty uses Config.PrefsPath()
	InitialLink string // cold start link, may be empty
	Headless    bool   // run without the terminal UI until ctx is canceled
}

// Run boots the shell and blocks until the UI exits or ctx is canceled.
func Run(ctx context.Context, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := opts.Config
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = cfg.PrefsPath()
	}
	userPrefs, err := prefs.Load(prefsPath)
	if err != nil {
		slog.Warn("load preferences failed, using defaults", "path", prefsPath, "error", err)
	}

	secure, err := securestore.Open(cfg.StoragePath(), cfg.StorageSecret)
	if err != nil {
		return fmt.Errorf("open secure store: %w", err)
	}

	store := &state.Store{}
	device := platform.NewLocal(cfg.Device, secure.InstallID())
	tokens := pushtoken.New(pushtoken.Options{
		Platform:   device,
		ProjectID:  cfg.ProjectID,
		Production: cfg.IsProduction(),
	})
	hub := bridge.NewHub(bridge.Options{
		Device:  device,
		Tokens:  tokens,
		Secrets: secure,
		Store:   store,

		OriginPatterns: cfg.BridgeOriginPatterns(),
	})
	navigator := nav.New(cfg.WebURL, store, hub)

	api, err := tookapi.NewClient(cfg.APIURL, secure, store)
	if err != nil {
		return fmt.Errorf("init took api client: %w", err)
	}

	sh := &shell{
		router: deeplink.NewRouter(cfg.Scheme, navigator, api),
		nav:    navigator,
		store:  store,
		tokens: tokens,
	}
	handler := notification.NewHandler(notification.Options{
		Scheme:    cfg.Scheme,
		Links:     sh.DeliverLink,
		Opener:    device,
		API:       api,
		Tokens:    tokens,
		Store:     store,
		PrefsPath: prefsPath,
	})
	sh.notifications = handler
	defer sh.wait()

	restoreSession(ctx, secure, store, navigator)

	ln, err := net.Listen("tcp", cfg.ControlBind)
	if err != nil {
		return fmt.Errorf("listen control api on %s: %w", cfg.ControlBind, err)
	}
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- control.Serve(ctx, ln, control.NewServer(sh, hub))
	}()

	if opts.InitialLink != "" {
		sh.DeliverLink(ctx, opts.InitialLink)
	}
	StartPushRegistration(ctx, handler, tokens, defaultRetryInterval)

	if opts.Headless {
		slog.Info("running headless", "control", cfg.ControlURL())
		select {
		case <-ctx.Done():
		case err := <-serveDone:
			if err != nil {
				return fmt.Errorf("control api: %w", err)
			}
		}
		return nil
	}

	runErr := ui.Run(ui.Options{
		Context:    ctx,
		Store:      store,
		Controller: sh,
		Config:     &cfg,
		LogPath:    cfg.LogFile,
		ThemeName:  userPrefs.Theme,
		PrefsPath:  prefsPath,
	})
	cancel()
	if err := <-serveDone; err != nil {
		slog.Error("control api stopped with error", "error", err)
	}
	return runErr
}

// restoreSession reads the stored login cookie and shows the first screen.
func restoreSession(ctx context.Context, secure *securestore.Store, store *state.Store, navigator *nav.Navigator) {
	_, loggedIn, err := secure.Get(ctx, securestore.KeyLoginCookie)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("read login cookie failed", "error", err)
	}
	store.SetLoggedIn(loggedIn)

	route := deeplink.RouteAuth
	if loggedIn {
		route = nav.RouteHome
	}
	if err := navigator.Navigate(route); err != nil {
		slog.Error("initial navigation failed", "route", route, "error", err)
	}
}
