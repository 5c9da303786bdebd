package tookapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type mapTokens map[string]string

func (m mapTokens) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

type failingTokens struct{}

func (failingTokens) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, errors.New("keychain locked")
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(title, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, title+": "+message)
}

func (n *recordingNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

func TestParseBaseURL(t *testing.T) {
	u, err := parseBaseURL("api.example.com/took/?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "https" {
		t.Fatalf("scheme = %q, want https", u.Scheme)
	}
	if u.Path != "/took" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}
	if _, err := parseBaseURL("  "); err == nil {
		t.Fatalf("expected error for empty api url")
	}
}

func TestSaveCard_PostsCardWithBearer(t *testing.T) {
	var gotMethod, gotPath, gotAuth, gotContentType string
	var gotBody cardReceiveRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(APIResponse{Success: true, Message: "ok"})
	}))
	defer server.Close()

	notifier := &recordingNotifier{}
	client, err := NewClient(server.URL, mapTokens{"accessToken": "tok"}, notifier)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	if err := client.SaveCard(context.Background(), "42"); err != nil {
		t.Fatalf("SaveCard returned error: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/api/card/receive" {
		t.Fatalf("request = %s %s, want POST /api/card/receive", gotMethod, gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("Authorization = %q, want %q", gotAuth, "Bearer tok")
	}
	if gotContentType != "application/json" {
		t.Fatalf("Content-Type = %q, want application/json", gotContentType)
	}
	if gotBody.CardID != "42" {
		t.Fatalf("cardId = %q, want 42", gotBody.CardID)
	}
	if got := notifier.Messages(); len(got) != 1 || got[0] != "Notice: Card saved." {
		t.Fatalf("notices = %v, want success notice", got)
	}
}

func TestSaveCard_KeepsBasePathPrefix(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(APIResponse{Success: true})
	}))
	defer server.Close()

	client, err := NewClient(server.URL+"/took/", mapTokens{}, &recordingNotifier{})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if err := client.SaveCard(context.Background(), "42"); err != nil {
		t.Fatalf("SaveCard returned error: %v", err)
	}
	if gotPath != "/took/api/card/receive" {
		t.Fatalf("path = %q, want /took/api/card/receive", gotPath)
	}
}

func TestSaveCard_FailureReturnsStatusErrorAndNotifies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(APIResponse{Message: "token expired"})
	}))
	defer server.Close()

	notifier := &recordingNotifier{}
	client, err := NewClient(server.URL, failingTokens{}, notifier)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	err = client.SaveCard(context.Background(), "42")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("SaveCard error = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", statusErr.StatusCode)
	}
	if statusErr.Message != "token expired" {
		t.Fatalf("message = %q, want %q", statusErr.Message, "token expired")
	}
	if got := notifier.Messages(); len(got) != 1 || got[0] != "Error: Failed to save card." {
		t.Fatalf("notices = %v, want failure notice", got)
	}
}

func TestSaveCard_RejectsEmptyID(t *testing.T) {
	client, err := NewClient("http://127.0.0.1:1", nil, nil)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if err := client.SaveCard(context.Background(), " "); err == nil {
		t.Fatalf("expected error for empty card id")
	}
}

func TestPatchNotificationAllow(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(APIResponse{Success: true, Data: json.RawMessage(`{"saved":true}`)})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, mapTokens{}, nil)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	resp, err := client.PatchNotificationAllow(context.Background(), NotificationAllow{
		IsAllowPush:      true,
		AllowPushContent: []ContentType{ContentInteresting, ContentSystem},
	})
	if err != nil {
		t.Fatalf("PatchNotificationAllow returned error: %v", err)
	}
	if !resp.Success {
		t.Fatalf("Success = false, want true")
	}
	if gotMethod != http.MethodPatch || gotPath != "/api/user/notification-allow" {
		t.Fatalf("request = %s %s, want PATCH /api/user/notification-allow", gotMethod, gotPath)
	}
	if gotBody["isAllowPush"] != true {
		t.Fatalf("isAllowPush = %v, want true", gotBody["isAllowPush"])
	}
	content, _ := gotBody["allowPushContent"].([]any)
	if len(content) != 2 || content[0] != "INTERESTING" || content[1] != "SYSTEM" {
		t.Fatalf("allowPushContent = %v, want [INTERESTING SYSTEM]", gotBody["allowPushContent"])
	}
}

func TestPatchNotificationAllow_EmptyContentIsArray(t *testing.T) {
	var raw map[string]json.RawMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_ = json.NewEncoder(w).Encode(APIResponse{Success: true})
	}))
	defer server.Close()

	client, _ := NewClient(server.URL, nil, nil)
	if _, err := client.PatchNotificationAllow(context.Background(), NotificationAllow{}); err != nil {
		t.Fatalf("PatchNotificationAllow returned error: %v", err)
	}
	if got := string(raw["allowPushContent"]); got != "[]" {
		t.Fatalf("allowPushContent = %s, want []", got)
	}
}

func TestPatchNotificationAllow_RejectsUnknownContent(t *testing.T) {
	client, _ := NewClient("http://127.0.0.1:1", nil, nil)
	_, err := client.PatchNotificationAllow(context.Background(), NotificationAllow{
		AllowPushContent: []ContentType{"PROMO"},
	})
	if err == nil {
		t.Fatalf("expected error for unknown content type")
	}
}

func TestStatusErrorMessage(t *testing.T) {
	err := &StatusError{Method: "POST", Path: "/api/card/receive", StatusCode: 500}
	if got, want := err.Error(), "api POST /api/card/receive returned status 500"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	err.Message = "boom"
	if got, want := err.Error(), "api POST /api/card/receive returned status 500: boom"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
