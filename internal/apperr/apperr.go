// Package apperr defines the error taxonomy shared by the engine and its adapters.
//
// Validation errors never leave the component that detected them. Network and
// HTTP errors carry enough information for the caller to decide between a status
// badge, a banner or a silent refresh.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrValidation = errors.New("invalid input")
	ErrNetwork    = errors.New("network error")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
)

// HTTPError is a non-2xx response from the backend.
type HTTPError struct {
	StatusCode int
	Detail     string
}

func (e *HTTPError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("http %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Detail)
}

// Unwrap maps the distinguished status codes onto sentinel errors.
func (e *HTTPError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusConflict:
		return ErrConflict
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return nil
	}
}

// Validation builds an ErrValidation with a user-facing message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Network wraps a transport failure.
func Network(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrNetwork, err)
}

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsNetwork(err error) bool    { return errors.Is(err, ErrNetwork) }
func IsConflict(err error) bool   { return errors.Is(err, ErrConflict) }
func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }

// Retryable reports whether repeating the request may succeed: transport
// failures, 408, 429 and the 500-504 range.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if IsNetwork(err) {
		return true
	}
	switch code := StatusCode(err); {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return true
	case code >= http.StatusInternalServerError && code <= http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// ParseDetail extracts the `detail` field of an error body. The field is either a
// string or a list of {msg} objects, which are joined with "; ".
func ParseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return text
	}

	var entries []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &entries); err == nil {
		msgs := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.Msg != "" {
				msgs = append(msgs, e.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	return strings.TrimSpace(string(envelope.Detail))
}

// Message renders err for a status badge or banner.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Detail != "" {
		return httpErr.Detail
	}
	return err.Error()
}
