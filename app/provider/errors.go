package provider

import (
	"errors"
	"fmt"
	"strings"
)

// Error is a classified backend failure.
type Error struct {
	Provider   string
	StatusCode int
	Code       string
	Message    string
	Auth       bool
	Cause      error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 5)
	if e.Provider != "" {
		parts = append(parts, e.Provider)
	}
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if e.Code != "" {
		parts = append(parts, "code="+e.Code)
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	if len(parts) == 0 {
		return "provider error"
	}

	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsAuthFailure reports whether err is a credential or permission problem
// that will not go away by retrying.
func IsAuthFailure(err error) bool {
	if err == nil {
		return false
	}

	var providerErr *Error
	if errors.As(err, &providerErr) && providerErr.Auth {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "unauthorized")
}
