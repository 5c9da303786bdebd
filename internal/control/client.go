package control

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotRunning means no shell answered on the control address.
var ErrNotRunning = errors.New("took is not running")

const (
	defaultUserAgent = "took-cli/0.1"
	requestTimeout   = 3 * time.Second
	maxErrorBody     = 4 << 10
)

// Client talks to the control API of a running shell.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

// NewClient builds a Client for the control API at bind (host:port or URL).
func NewClient(bind string) (*Client, error) {
	trimmed := strings.TrimSpace(bind)
	if trimmed == "" {
		return nil, fmt.Errorf("control address is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	base, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse control address: %w", err)
	}
	return &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: requestTimeout},
		userAgent: defaultUserAgent,
	}, nil
}

// OpenLink hands rawURL to the running shell. It returns ErrNotRunning when
// nothing is listening.
func (c *Client) OpenLink(ctx context.Context, rawURL string) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	body := struct {
		URL string `json:"url"`
	}{URL: rawURL}
	return c.do(ctx, http.MethodPost, pathLinks, body, nil)
}

// State fetches the running shell's state summary.
func (c *Client) State(ctx context.Context) (StateView, error) {
	if c == nil {
		return StateView{}, fmt.Errorf("client is nil")
	}
	var view StateView
	if err := c.do(ctx, http.MethodGet, pathState, nil, &view); err != nil {
		return StateView{}, err
	}
	return view, nil
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

	reqURL := c.baseURL.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrNotRunning, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("control %s %s returned status %d: %s", method, path, resp.StatusCode, problemDetail(raw))
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// problemDetail extracts the detail of an RFC 9457 problem body.
func problemDetail(raw []byte) string {
	var problem struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &problem); err == nil {
		if problem.Detail != "" {
			return problem.Detail
		}
		if problem.Title != "" {
			return problem.Title
		}
	}
	return strings.TrimSpace(string(raw))
}
