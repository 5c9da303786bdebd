package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/evenway2025/took/internal/pushtoken"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many failures capped", 10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	// Verify that backoff never exceeds maxBackoff regardless of input
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 20; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
}

type scriptedRegistrar struct {
	mu      sync.Mutex
	results []pushtoken.Result
	calls   int
}

func (r *scriptedRegistrar) Register(context.Context) pushtoken.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := r.results[min(r.calls, len(r.results)-1)]
	r.calls++
	return res
}

type countingResetter struct {
	mu     sync.Mutex
	resets int
}

func (c *countingResetter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resets++
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("push registration did not finish")
	}
}

func TestStartPushRegistration_RetriesFailuresUntilToken(t *testing.T) {
	reg := &scriptedRegistrar{results: []pushtoken.Result{
		pushtoken.Failed{Message: "boom"},
		pushtoken.Failed{Message: "boom"},
		pushtoken.Token{Value: "ExponentPushToken[x]"},
	}}
	cache := &countingResetter{}

	waitDone(t, StartPushRegistration(context.Background(), reg, cache, time.Millisecond))

	if reg.calls != 3 {
		t.Fatalf("Register calls = %d, want 3", reg.calls)
	}
	if cache.resets != 2 {
		t.Fatalf("Reset calls = %d, want 2", cache.resets)
	}
}

func TestStartPushRegistration_DeniedStops(t *testing.T) {
	reg := &scriptedRegistrar{results: []pushtoken.Result{pushtoken.Denied{Message: "no"}}}
	cache := &countingResetter{}

	waitDone(t, StartPushRegistration(context.Background(), reg, cache, time.Millisecond))

	if reg.calls != 1 || cache.resets != 0 {
		t.Fatalf("calls = %d resets = %d, want 1 and 0", reg.calls, cache.resets)
	}
}

func TestStartPushRegistration_GivesUp(t *testing.T) {
	reg := &scriptedRegistrar{results: []pushtoken.Result{pushtoken.Failed{Message: "boom"}}}
	cache := &countingResetter{}

	waitDone(t, StartPushRegistration(context.Background(), reg, cache, time.Millisecond))

	if reg.calls != maxRegisterAttempts {
		t.Fatalf("Register calls = %d, want %d", reg.calls, maxRegisterAttempts)
	}
}

func TestStartPushRegistration_StopsOnCancel(t *testing.T) {
	reg := &scriptedRegistrar{results: []pushtoken.Result{pushtoken.Failed{Message: "boom"}}}
	ctx, cancel := context.WithCancel(context.Background())

	done := StartPushRegistration(ctx, reg, &countingResetter{}, time.Hour)
	cancel()
	waitDone(t, done)

	if reg.calls != 1 {
		t.Fatalf("Register calls = %d, want 1", reg.calls)
	}
}
