package control

import (
	"context"
	"errors"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func TestClientOpenLink(t *testing.T) {
	svc := &fakeService{}
	server := newTestServer(t, svc)

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if err := client.OpenLink(context.Background(), "took://received-interesting"); err != nil {
		t.Fatalf("OpenLink returned error: %v", err)
	}
	if want := []string{"took://received-interesting"}; !reflect.DeepEqual(svc.links, want) {
		t.Fatalf("links = %v, want %v", svc.links, want)
	}
}

func TestClientOpenLink_RejectedReportsDetail(t *testing.T) {
	server := newTestServer(t, &fakeService{})
	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	err = client.OpenLink(context.Background(), "")
	if err == nil {
		t.Fatalf("expected error for empty url")
	}
	if errors.Is(err, ErrNotRunning) {
		t.Fatalf("rejection reported as not running: %v", err)
	}
	if !strings.Contains(err.Error(), "422") {
		t.Fatalf("error = %q, want status 422", err)
	}
}

func TestClientOpenLink_NotRunning(t *testing.T) {
	server := httptest.NewServer(nil)
	addr := server.Listener.Addr().String()
	server.Close()

	client, err := NewClient(addr)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if err := client.OpenLink(context.Background(), "took://x"); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("OpenLink error = %v, want ErrNotRunning", err)
	}
}

func TestNewClient_RejectsEmpty(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatalf("expected error for empty address")
	}
}

func TestProblemDetail(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`{"title":"Unprocessable Entity","detail":"validation failed"}`, "validation failed"},
		{`{"title":"Bad Gateway"}`, "Bad Gateway"},
		{"plain text\n", "plain text"},
	}
	for _, tt := range tests {
		if got := problemDetail([]byte(tt.raw)); got != tt.want {
			t.Errorf("problemDetail(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
