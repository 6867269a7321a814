package sysaid

import (
	"errors"
	"fmt"
)

// login stages reported by AuthenticationError
const (
	StageCredentials = "credentials"
	StageLaunch      = "launch"
	StageNavigate    = "navigate"
	StageFill        = "fill"
	StageSubmit      = "submit"
	StageNavigation  = "navigation"
	StageRejected    = "rejected"
	StageCookies     = "cookies"
)

var (
	ErrMissingCredentials = errors.New("username and password must both be set")
	ErrLoginRejected      = errors.New("login form is still present after submitting credentials")
	ErrNoCookies          = errors.New("no cookies were set after logging in")

	ErrInvalidPageSize   = errors.New("page size must be positive")
	ErrUnexpectedStatus  = errors.New("unexpected status code")
	ErrSessionExpired    = errors.New("session is not authenticated (expired or rejected)")
	ErrMalformedPage     = errors.New("page body is not a json array of records")
	ErrPageLimitExceeded = errors.New("page limit exceeded before an empty page was returned")
)

// AuthenticationError is returned when a session could not be acquired.
type AuthenticationError struct {
	Stage string
	// text shown by the login page when credentials are rejected, if any
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("sysaid login failed at %s: %v (%s)", e.Stage, e.Err, e.Message)
	}
	return fmt.Sprintf("sysaid login failed at %s: %v", e.Stage, e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// FetchError is returned when a page of records could not be fetched.
type FetchError struct {
	Offset int
	// 0 when no response was received
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch page at offset %d (status %d): %v", e.Offset, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch page at offset %d: %v", e.Offset, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
