package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mikey-austin/signage/internal/ports"
)

// Exit codes.
const (
	ExitOK       = 0
	ExitRuntime  = 1
	ExitUsage    = 2
	ExitAuth     = 3
	ExitNotFound = 4
	ExitConflict = 5
)

// CLIError carries a user-visible message and exit code.
type CLIError struct {
	Code int
	Msg  string
	Err  error
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// WrapError creates a CLIError with an underlying error.
func WrapError(code int, msg string, err error) *CLIError {
	return &CLIError{Code: code, Msg: msg, Err: err}
}

// UsageError reports invalid input. It never reaches the backend.
func UsageError(msg string) *CLIError {
	return &CLIError{Code: ExitUsage, Msg: msg}
}

// ErrorForStatus maps backend HTTP statuses to CLI exit codes.
func ErrorForStatus(status int, message string) *CLIError {
	if message == "" {
		message = http.StatusText(status)
	}
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &CLIError{Code: ExitUsage, Msg: message}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &CLIError{Code: ExitAuth, Msg: message}
	case http.StatusNotFound:
		return &CLIError{Code: ExitNotFound, Msg: message}
	case http.StatusConflict:
		return &CLIError{Code: ExitConflict, Msg: message}
	default:
		return &CLIError{Code: ExitRuntime, Msg: message}
	}
}

type statusError interface {
	StatusCode() int
	ServerMessage() string
}

// apiError converts a transport error into a CLIError.
func apiError(action string, err error) error {
	if err == nil {
		return nil
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}
	if errors.Is(err, ports.ErrSessionExpired) {
		return WrapError(ExitAuth, "session expired; run sg login", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return WrapError(ExitRuntime, action+": timed out", err)
	}
	var se statusError
	if errors.As(err, &se) {
		mapped := ErrorForStatus(se.StatusCode(), se.ServerMessage())
		mapped.Msg = action + ": " + mapped.Msg
		return mapped
	}
	return WrapError(ExitRuntime, action, err)
}

// ExitCode returns the CLI exit code from error.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	return ExitRuntime
}
