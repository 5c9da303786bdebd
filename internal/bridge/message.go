package bridge

import (
	"net/http"
	"strings"
)

// Message types exchanged with web content.
const (
	TypeImagePicker     = "IMAGE_PICKER"
	TypeGoogleLogin     = "GOOGLE_LOGIN"
	TypeNavigationState = "navigationState"
	TypePushToken       = "PUSH_TOKEN"
	TypeLocation        = "LOCATION"
	TypeAuthToken       = "AUTH_TOKEN"
	TypeLogout          = "LOGOUT"

	// Sent to web content only.
	TypeReload = "RELOAD"
	TypeGoBack = "GO_BACK"
	TypeError  = "ERROR"
)

// LoginCookie is the session cookie whose presence means the user is signed in.
const LoginCookie = "NID_SES"

// Inbound is a JSON message from web content. Only the fields relevant to
// Type are set.
type Inbound struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
	Source    string `json:"source,omitempty"`
	CanGoBack *bool  `json:"canGoBack,omitempty"`
	Token     string `json:"token,omitempty"`
}

// Outbound is a message to web content.
type Outbound struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
	Data      any    `json:"data"`
	Error     string `json:"error,omitempty"`
}

// loginCookie returns the value of the login cookie in a Cookie header style
// string ("a=1; NID_SES=xyz").
func loginCookie(raw string) (string, bool) {
	cookies, err := http.ParseCookie(strings.TrimSpace(raw))
	if err != nil {
		// A malformed pair elsewhere in the string must not hide the login cookie.
		for _, part := range strings.Split(raw, ";") {
			name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
			if ok && name == LoginCookie && value != "" {
				return value, true
			}
		}
		return "", false
	}
	for _, c := range cookies {
		if c.Name == LoginCookie && c.Value != "" {
			return c.Value, true
		}
	}
	return "", false
}
