package tookapi

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownContentType is returned by Validate for an unrecognized category.
var ErrUnknownContentType = errors.New("unknown push content type")

// ContentType is a category of push notification the user can opt into.
type ContentType string

const (
	ContentInteresting ContentType = "INTERESTING"
	ContentMemo        ContentType = "MEMO"
	ContentSystem      ContentType = "SYSTEM"
)

// AllContentTypes lists every push category in display order.
var AllContentTypes = []ContentType{ContentInteresting, ContentMemo, ContentSystem}

// Valid reports whether t is a known category.
func (t ContentType) Valid() bool {
	switch t {
	case ContentInteresting, ContentMemo, ContentSystem:
		return true
	}
	return false
}

// NotificationAllow is the body of the notification settings update.
type NotificationAllow struct {
	IsAllowPush      bool          `json:"isAllowPush"`
	AllowPushContent []ContentType `json:"allowPushContent"`
}

// Validate rejects unknown content types.
func (n NotificationAllow) Validate() error {
	for _, t := range n.AllowPushContent {
		if !t.Valid() {
			return fmt.Errorf("%w %q", ErrUnknownContentType, t)
		}
	}
	return nil
}

// APIResponse is the envelope the API wraps every response in.
type APIResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type cardReceiveRequest struct {
	CardID string `json:"cardId"`
}

// StatusError is returned for any non-2xx API response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api %s %s returned status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("api %s %s returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}
