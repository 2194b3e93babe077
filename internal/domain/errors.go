package domain

import (
	"errors"
	"fmt"
)

// Category sentinels. Wrap with NewDomainError or %w so callers can classify
// with errors.Is.
var (
	ErrNotFound      = fmt.Errorf("not found")
	ErrInvalidInput  = fmt.Errorf("invalid input")
	ErrRateLimit     = fmt.Errorf("rate limit exceeded")
	ErrAuthInvalid   = fmt.Errorf("authentication failed")
	ErrProviderError = fmt.Errorf("provider error")
)

// Sentinel errors for the conversation core.
var (
	ErrCatalogLoad       = fmt.Errorf("persona catalog load failed")
	ErrPersonaNotFound   = fmt.Errorf("persona: %w", ErrNotFound)
	ErrCredentialMissing = fmt.Errorf("no API credential configured for provider")
	ErrMalformedResponse = fmt.Errorf("unexpected provider response format")
	ErrStorageCorrupt    = fmt.Errorf("persisted conversation state corrupt")
	ErrConversationGone  = fmt.Errorf("conversation: %w", ErrNotFound)
	ErrEmptyMessage      = fmt.Errorf("%w: empty message", ErrInvalidInput)
	ErrSendPending       = fmt.Errorf("a send is already in flight for this conversation")
	ErrContextOverflow   = fmt.Errorf("context window exceeded")
)

// HTTPError is a non-success status from a remote provider call. It carries
// the raw error payload for diagnostics and unwraps to a category sentinel
// so callers can classify without inspecting status codes.
type HTTPError struct {
	StatusCode int
	Body       string
	sentinel   error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Body)
}

func (e *HTTPError) Unwrap() error { return e.sentinel }

// NewHTTPError classifies a provider HTTP failure by status code.
func NewHTTPError(statusCode int, body string) *HTTPError {
	var sentinel error
	switch {
	case statusCode == 429:
		sentinel = ErrRateLimit
	case statusCode == 401 || statusCode == 403:
		sentinel = ErrAuthInvalid
	case statusCode == 413:
		sentinel = ErrContextOverflow
	default:
		sentinel = ErrProviderError
	}
	return &HTTPError{StatusCode: statusCode, Body: body, sentinel: sentinel}
}

// DomainError wraps a sentinel error with operation context.
type DomainError struct {
	Op     string // operation name (e.g., "Registry.Start")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error. Returns nil if err is nil,
// enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// UserMessage reduces an error to the short human-readable string shown in
// the UI. Structured details stay in logs.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCatalogLoad):
		return "Failed to load personas"
	case errors.Is(err, ErrCredentialMissing):
		return "Configure an API key for this provider first"
	case errors.Is(err, ErrSendPending):
		return "Still sending the previous message"
	case errors.Is(err, ErrEmptyMessage):
		return ""
	default:
		return "Failed to send message"
	}
}
