// Package ai is the call contract to the external chat-completion service
// that runs the interview. The service is treated as an opaque collaborator:
// one request per turn, no retries, failures surface as a single typed error.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ChatMessage is one role/content pair in the order sent to the model.
// A system entry, when present, is always first.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the payload for one completion call.
type ChatRequest struct {
	UserID   string        `json:"userId"`
	Messages []ChatMessage `json:"messages"`
}

// ChatResponse carries the single assistant reply.
type ChatResponse struct {
	Text string `json:"response"`
}

// Adapter sends a full conversation to the completion service and returns
// one assistant reply.
type Adapter interface {
	Complete(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// StatusError is a gateway failure tied to an upstream HTTP status.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ai gateway status %d: %s", e.Status, e.Message)
}

// IsRateLimited reports whether err is an upstream 429.
func IsRateLimited(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == 429
}

// Config controls adapter construction.
type Config struct {
	Mode string
	URL  string
}

// NewAdapter builds an adapter for the configured mode. "auto" picks the HTTP
// adapter when a URL is set and falls back to the mock otherwise.
func NewAdapter(cfg Config) (Adapter, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.URL) != "" {
			return NewHTTPAdapter(cfg.URL), nil
		}
		return NewMockAdapter(), nil
	case "http":
		if strings.TrimSpace(cfg.URL) == "" {
			return nil, errors.New("ai gateway URL is required for http mode")
		}
		return NewHTTPAdapter(cfg.URL), nil
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported ai adapter mode %q", cfg.Mode)
	}
}
