package platform

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/evenway2025/took/internal/config"
)

// PermissionStatus mirrors the three states a native permission can be in.
type PermissionStatus string

const (
	Granted      PermissionStatus = "granted"
	Denied       PermissionStatus = "denied"
	Undetermined PermissionStatus = "undetermined"
)

// ParseStatus maps a config string to a status. Unknown values are undetermined.
func ParseStatus(s string) PermissionStatus {
	switch PermissionStatus(strings.ToLower(strings.TrimSpace(s))) {
	case Granted:
		return Granted
	case Denied:
		return Denied
	default:
		return Undetermined
	}
}

// Permission names a capability gated by the user.
type Permission string

const (
	PermissionPush     Permission = "push"
	PermissionLocation Permission = "location"
	PermissionCamera   Permission = "camera"
	PermissionLibrary  Permission = "library"
)

// ImageSource selects where PickImage reads from.
type ImageSource string

const (
	SourceCamera  ImageSource = "camera"
	SourceLibrary ImageSource = "library"
)

// Location is a single position fix.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

// Channel describes a notification channel.
type Channel struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Importance       string `json:"importance"`
	VibrationPattern []int  `json:"vibrationPattern"`
	LightColor       string `json:"lightColor"`
}

// DefaultChannel is the channel every push notification is delivered on.
var DefaultChannel = Channel{
	ID:               "default",
	Name:             "default",
	Importance:       "max",
	VibrationPattern: []int{0, 250, 250, 250},
	LightColor:       "#FF231F7C",
}

var (
	// ErrCanceled is returned when the user dismisses the image picker.
	ErrCanceled = errors.New("image picking canceled")
	// ErrPermissionDenied is returned when a capability needs a permission the
	// user refused.
	ErrPermissionDenied = errors.New("permission denied")
)

const fixAccuracy = 10.0

// Local implements the native capabilities for a desktop process. Permission
// answers, the simulated device kind and the sample media all come from the
// [device] config table; tokens are derived from the install id so they stay
// stable across restarts.
type Local struct {
	device    config.Device
	installID uuid.UUID

	mu       sync.Mutex
	statuses map[Permission]PermissionStatus
	channel  *Channel
	opened   []string
}

// NewLocal builds a Local for the given device settings.
func NewLocal(device config.Device, installID uuid.UUID) *Local {
	return &Local{
		device:    device,
		installID: installID,
		statuses: map[Permission]PermissionStatus{
			PermissionPush:     ParseStatus(device.PushPermission),
			PermissionLocation: ParseStatus(device.LocationPermission),
			PermissionCamera:   ParseStatus(device.CameraPermission),
			PermissionLibrary:  ParseStatus(device.LibraryPermission),
		},
	}
}

// IsDevice reports whether the process stands in for a physical device.
func (l *Local) IsDevice() bool {
	return l.device.Physical
}

// Status returns the current status of p without prompting.
func (l *Local) Status(ctx context.Context, p Permission) (PermissionStatus, error) {
	if err := ctx.Err(); err != nil {
		return Undetermined, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.statusLocked(p), nil
}

// Request prompts for p. Only an undetermined permission is prompted; the
// configured answer is remembered for the rest of the process.
func (l *Local) Request(ctx context.Context, p Permission) (PermissionStatus, error) {
	if err := ctx.Err(); err != nil {
		return Undetermined, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.statusLocked(p)
	if current != Undetermined {
		return current, nil
	}
	answer := ParseStatus(l.device.PromptAnswer)
	if answer == Undetermined {
		answer = Denied
	}
	l.statuses[p] = answer
	slog.Info("permission prompt answered", "permission", string(p), "status", string(answer))
	return answer, nil
}

func (l *Local) statusLocked(p Permission) PermissionStatus {
	if status, ok := l.statuses[p]; ok {
		return status
	}
	return Undetermined
}

// PushPermission returns the push notification permission status.
func (l *Local) PushPermission(ctx context.Context) (PermissionStatus, error) {
	return l.Status(ctx, PermissionPush)
}

// RequestPushPermission prompts for push notifications.
func (l *Local) RequestPushPermission(ctx context.Context) (PermissionStatus, error) {
	return l.Request(ctx, PermissionPush)
}

// ExpoPushToken returns the push service token for projectID.
func (l *Local) ExpoPushToken(ctx context.Context, projectID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(projectID) == "" {
		return "", errors.New("project id is required")
	}
	id := uuid.NewSHA1(l.installID, []byte(projectID))
	return "ExponentPushToken[" + id.String() + "]", nil
}

// DevicePushToken returns the native (FCM) registration token.
func (l *Local) DevicePushToken(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !l.device.Physical {
		return "", errors.New("native push token unavailable on a simulator")
	}
	id := uuid.NewSHA1(l.installID, []byte("fcm"))
	return hex.EncodeToString(id[:]), nil
}

// ConfigureChannel registers DefaultChannel.
func (l *Local) ConfigureChannel(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ch := DefaultChannel
	ch.VibrationPattern = append([]int(nil), DefaultChannel.VibrationPattern...)

	l.mu.Lock()
	l.channel = &ch
	l.mu.Unlock()
	return nil
}

// Channel returns the configured notification channel, if any.
func (l *Local) Channel() (Channel, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.channel == nil {
		return Channel{}, false
	}
	return *l.channel, true
}

// CurrentLocation returns the device position. A nil location with a nil
// error means the user refused location access.
func (l *Local) CurrentLocation(ctx context.Context) (*Location, error) {
	granted, err := l.ensure(ctx, PermissionLocation)
	if err != nil {
		return nil, fmt.Errorf("location permission: %w", err)
	}
	if !granted {
		slog.Info("location permission not granted")
		return nil, nil
	}
	return &Location{
		Latitude:  l.device.Latitude,
		Longitude: l.device.Longitude,
		Accuracy:  fixAccuracy,
	}, nil
}

// PickImage returns JPEG bytes from the given source.
func (l *Local) PickImage(ctx context.Context, source ImageSource) ([]byte, error) {
	perm := PermissionLibrary
	if source == SourceCamera {
		perm = PermissionCamera
	}
	granted, err := l.ensure(ctx, perm)
	if err != nil {
		return nil, fmt.Errorf("%s permission: %w", perm, err)
	}
	if !granted {
		return nil, fmt.Errorf("%s: %w", perm, ErrPermissionDenied)
	}

	path := strings.TrimSpace(l.device.SampleImage)
	if path == "" {
		return nil, ErrCanceled
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}

// ensure queries p and prompts once when it is not granted yet.
func (l *Local) ensure(ctx context.Context, p Permission) (bool, error) {
	status, err := l.Status(ctx, p)
	if err != nil {
		return false, err
	}
	if status != Granted {
		status, err = l.Request(ctx, p)
		if err != nil {
			return false, err
		}
	}
	return status == Granted, nil
}

// OpenURL hands an http(s) URL to the system browser.
func (l *Local) OpenURL(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("refusing to open %q: scheme must be http or https", rawURL)
	}

	l.mu.Lock()
	l.opened = append(l.opened, rawURL)
	l.mu.Unlock()

	opener := browserCommand()
	if _, err := exec.LookPath(opener); err != nil {
		slog.Info("no browser available, url recorded", "url", rawURL)
		return nil
	}
	cmd := exec.CommandContext(ctx, opener, rawURL)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", opener, err)
	}
	go func() { _ = cmd.Wait() }()
	slog.Info("opened url externally", "url", rawURL)
	return nil
}

// Opened returns the URLs passed to OpenURL.
func (l *Local) Opened() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.opened...)
}

func browserCommand() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "windows":
		return "explorer"
	default:
		return "xdg-open"
	}
}
