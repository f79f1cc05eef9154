// Package errors attaches machine-readable codes to flowcraft errors.
//
// Library packages return plain sentinel errors (flow.ErrCycle, catalog.ErrNotFound).
// A code is added where an error crosses into a surface that has to classify it: the
// HTTP server turns it into a status, the CLI into an exit message. Codes survive
// wrapping, so callers test them with [Is] instead of matching strings.
//
// # Error Codes
//
//   - INVALID_*: the request, graph or document is malformed
//   - *_NOT_FOUND: a referenced node, source, file or session is missing
//   - NETWORK_ERROR, TIMEOUT, RATE_LIMITED: the catalog could not be reached
//   - SESSION_EXPIRED, UNSUPPORTED, INTERNAL_ERROR
//
// Types outside this package can carry a code by implementing [Coder]; the
// validation error of package validate does this.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidGraph, "graph has %d errors", n)
//	if errors.Is(err, errors.ErrCodeInvalidGraph) {
//	    // show the validation log
//	}
//
//	err := errors.Wrap(errors.ErrCodeNetwork, cause, "fetch source %s", id)
//	w.WriteHeader(errors.HTTPStatus(err)) // 502
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error classification.
type Code string

const (
	ErrCodeInvalidInput      Code = "INVALID_INPUT"
	ErrCodeInvalidFormat     Code = "INVALID_FORMAT"
	ErrCodeInvalidGraph      Code = "INVALID_GRAPH"
	ErrCodeInvalidDocument   Code = "INVALID_DOCUMENT"
	ErrCodeInvalidConnection Code = "INVALID_CONNECTION"
	ErrCodeInvalidNode       Code = "INVALID_NODE"

	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodeSourceNotFound  Code = "SOURCE_NOT_FOUND"
	ErrCodeNodeNotFound    Code = "NODE_NOT_FOUND"
	ErrCodeFileNotFound    Code = "FILE_NOT_FOUND"
	ErrCodeSessionNotFound Code = "SESSION_NOT_FOUND"

	ErrCodeNetwork     Code = "NETWORK_ERROR"
	ErrCodeTimeout     Code = "TIMEOUT"
	ErrCodeRateLimited Code = "RATE_LIMITED"

	ErrCodeSessionExpired Code = "SESSION_EXPIRED"
	ErrCodeUnsupported    Code = "UNSUPPORTED"
	ErrCodeInternal       Code = "INTERNAL_ERROR"
)

var statuses = map[Code]int{
	ErrCodeInvalidInput:      http.StatusBadRequest,
	ErrCodeInvalidFormat:     http.StatusBadRequest,
	ErrCodeInvalidDocument:   http.StatusBadRequest,
	ErrCodeInvalidNode:       http.StatusBadRequest,
	ErrCodeInvalidGraph:      http.StatusUnprocessableEntity,
	ErrCodeInvalidConnection: http.StatusUnprocessableEntity,
	ErrCodeNotFound:          http.StatusNotFound,
	ErrCodeSourceNotFound:    http.StatusNotFound,
	ErrCodeNodeNotFound:      http.StatusNotFound,
	ErrCodeFileNotFound:      http.StatusNotFound,
	ErrCodeSessionNotFound:   http.StatusNotFound,
	ErrCodeSessionExpired:    http.StatusGone,
	ErrCodeRateLimited:       http.StatusTooManyRequests,
	ErrCodeTimeout:           http.StatusGatewayTimeout,
	ErrCodeNetwork:           http.StatusBadGateway,
	ErrCodeUnsupported:       http.StatusNotImplemented,
}

// Status is the HTTP status the API answers with for c. Unknown codes map to 500.
func (c Code) Status() int {
	if s, ok := statuses[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Error is an error with a code and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an *Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an *Error around cause. The cause stays reachable with errors.Is/As.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Coder is implemented by error types outside this package that carry a Code.
type Coder interface {
	ErrorCode() Code
}

// GetCode returns the first code found in err's chain, from an *Error or a [Coder],
// or "" when there is none.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var c Coder
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return ""
}

// Is reports whether err carries code.
func Is(err error, code Code) bool {
	return code != "" && GetCode(err) == code
}

// HTTPStatus maps err to a status through its code.
func HTTPStatus(err error) int {
	return GetCode(err).Status()
}

// UserMessage renders err without the code prefix. Only an *Error at the top of the
// chain is unpacked; its cause is appended after a colon.
func UserMessage(err error) string {
	e, ok := err.(*Error)
	if !ok {
		return err.Error()
	}
	switch {
	case e.Cause == nil:
		return e.Message
	case e.Message == "":
		return e.Cause.Error()
	default:
		return e.Message + ": " + e.Cause.Error()
	}
}
