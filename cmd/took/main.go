package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/evenway2025/took/internal/app"
	"github.com/evenway2025/took/internal/config"
	"github.com/evenway2025/took/internal/control"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("took", flag.ContinueOnError)
	configPath := fs.String("config", "", "override config path (optional)")
	link := fs.String("link", "", "deep link to open at startup (optional)")
	headless := fs.Bool("headless", false, "run without the terminal UI")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: took [-config path] [-link url] [-headless]")
		fmt.Fprintln(fs.Output(), "       took [-config path] open <url>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "took: %v\n", err)
		return 1
	}

	initial := *link
	if fs.Arg(0) == "open" {
		if fs.NArg() != 2 {
			fs.Usage()
			return 2
		}
		delivered, err := openInRunning(ctx, cfg, fs.Arg(1))
		if err != nil {
			fmt.Fprintf(os.Stderr, "took: %v\n", err)
			return 1
		}
		if delivered {
			return 0
		}
		initial = fs.Arg(1)
	} else if fs.NArg() > 0 {
		fs.Usage()
		return 2
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile, *headless); err != nil {
		fmt.Fprintf(os.Stderr, "took: setup logger: %v\n", err)
		return 1
	}

	opts := app.Options{Config: cfg, InitialLink: initial, Headless: *headless}
	if err := app.Run(ctx, opts); err != nil {
		slog.Error("took exited", "error", err)
		fmt.Fprintf(os.Stderr, "took: %v\n", err)
		return 1
	}
	return 0
}

// openInRunning hands rawURL to a running shell. It reports false when no
// shell is listening so the caller can cold start with the link.
func openInRunning(ctx context.Context, cfg config.Config, rawURL string) (bool, error) {
	client, err := control.NewClient(cfg.ControlBind)
	if err != nil {
		return false, err
	}
	if err := client.OpenLink(ctx, rawURL); err != nil {
		if errors.Is(err, control.ErrNotRunning) {
			return false, nil
		}
		return false, fmt.Errorf("open link: %w", err)
	}
	return true, nil
}

// setupLogger writes slog text records to a rotating file. The terminal UI
// owns stdout, so only headless runs echo records there.
func setupLogger(level, filename string, echo bool) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	var w io.Writer = logWriter
	if echo {
		w = io.MultiWriter(os.Stdout, logWriter)
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
