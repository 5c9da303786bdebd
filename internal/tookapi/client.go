package tookapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/evenway2025/took/internal/securestore"
)

// TokenSource provides the bearer token for API calls.
type TokenSource interface {
	Get(ctx context.Context, key string) (string, bool, error)
}

// Notifier shows a short message to the user.
type Notifier interface {
	Notify(title, message string)
}

// Ensure the secure store can back the client at compile time.
var _ TokenSource = (*securestore.Store)(nil)

// Client talks to the Took HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	tokens    TokenSource
	notifier  Notifier
}

const (
	defaultUserAgent = "took/0.1"
	requestTimeout   = 10 * time.Second
	maxErrorBody     = 4 << 10

	pathCardReceive        = "/api/card/receive"
	pathNotificationAllow  = "/api/user/notification-allow"
	titleNotice            = "Notice"
	titleError             = "Error"
	msgCardSaved           = "Card saved."
	msgCardSaveFailed      = "Failed to save card."
	msgNotificationsFailed = "Failed to save notification settings."
)

// NewClient builds a Client for the API at apiURL. A nil notifier discards
// user-facing messages.
func NewClient(apiURL string, tokens TokenSource, notifier Notifier) (*Client, error) {
	base, err := parseBaseURL(apiURL)
	if err != nil {
		return nil, err
	}
	if notifier == nil {
		notifier = discardNotifier{}
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
		tokens:    tokens,
		notifier:  notifier,
	}, nil
}

// SaveCard stores a shared card in the signed-in user's collection.
func (c *Client) SaveCard(ctx context.Context, cardID string) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(cardID) == "" {
		return fmt.Errorf("card id required")
	}
	var payload APIResponse
	err := c.do(ctx, http.MethodPost, pathCardReceive, cardReceiveRequest{CardID: cardID}, &payload)
	if err != nil {
		slog.Error("card save request failed", "card_id", cardID, "error", err)
		c.notifier.Notify(titleError, msgCardSaveFailed)
		return fmt.Errorf("save card %s: %w", cardID, err)
	}
	slog.Info("card saved", "card_id", cardID, "message", payload.Message)
	c.notifier.Notify(titleNotice, msgCardSaved)
	return nil
}

// PatchNotificationAllow updates which pushes the user receives.
func (c *Client) PatchNotificationAllow(ctx context.Context, allow NotificationAllow) (*APIResponse, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if err := allow.Validate(); err != nil {
		return nil, err
	}
	if allow.AllowPushContent == nil {
		allow.AllowPushContent = []ContentType{}
	}
	var payload APIResponse
	if err := c.do(ctx, http.MethodPatch, pathNotificationAllow, allow, &payload); err != nil {
		slog.Error("notification settings request failed", "error", err)
		c.notifier.Notify(titleError, msgNotificationsFailed)
		return nil, fmt.Errorf("update notification settings: %w", err)
	}
	slog.Info("notification settings saved", "allow_push", allow.IsAllowPush)
	return &payload, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	reqURL := *c.baseURL
	reqURL.Path = c.baseURL.Path + path
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.bearer(ctx))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw),
		}
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// bearer reads the access token. A missing or unreadable token is sent as an
// empty bearer and the server decides.
func (c *Client) bearer(ctx context.Context) string {
	if c.tokens == nil {
		return ""
	}
	token, ok, err := c.tokens.Get(ctx, securestore.KeyAccessToken)
	if err != nil {
		slog.Warn("access token unavailable", "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return token
}

func errorMessage(raw []byte) string {
	var payload APIResponse
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(raw))
}

func parseBaseURL(apiURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiURL)
	if trimmed == "" {
		return nil, fmt.Errorf("api url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", apiURL, err)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

type discardNotifier struct{}

func (discardNotifier) Notify(string, string) {}
