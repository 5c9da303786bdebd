package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/evenway2025/took/internal/pushtoken"
)

const (
	defaultRetryInterval = 2 * time.Second
	maxBackoff           = 30 * time.Second
	maxRegisterAttempts  = 6
)

type registrar interface {
	Register(ctx context.Context) pushtoken.Result
}

type resetter interface {
	Reset()
}

// StartPushRegistration registers for push notifications in the background.
// A token or a denial ends the loop. A failure is retried with exponential
// backoff, resetting the cache first since failures are remembered.
// It returns a channel closed when the loop ends.
func StartPushRegistration(ctx context.Context, reg registrar, cache resetter, interval time.Duration) <-chan struct{} {
	if interval <= 0 {
		interval = defaultRetryInterval
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for failures := 0; ; failures++ {
			res := reg.Register(ctx)
			failed, ok := res.(pushtoken.Failed)
			if !ok {
				slog.Info("push registration finished", "result", resultName(res))
				return
			}
			if failures+1 >= maxRegisterAttempts {
				slog.Warn("push registration gave up", "attempts", failures+1, "message", failed.Message)
				return
			}

			wait := calculateBackoff(failures, interval)
			slog.Warn("push registration failed, retrying",
				"message", failed.Message, "failures", failures+1, "retry_in", wait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			cache.Reset()
		}
	}()
	return done
}

// calculateBackoff doubles base for each consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	backoff := base
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}

func resultName(res pushtoken.Result) string {
	switch res.(type) {
	case pushtoken.Token:
		return "token"
	case pushtoken.Denied:
		return "denied"
	case pushtoken.Failed:
		return "failed"
	default:
		return "unknown"
	}
}
