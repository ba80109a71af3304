// Package apperr defines the error kinds shared by every MediSync domain
// package and their mapping onto HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Error kinds. Callers test for them with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrNoAvailableResource = errors.New("no available resource")
	ErrUpstream            = errors.New("upstream failure")
	ErrValidation          = errors.New("validation failed")
)

// Error carries a kind, a human readable message and an optional cause.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

func NoAvailableResource(format string, args ...interface{}) error {
	return &Error{Kind: ErrNoAvailableResource, Msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

// Upstream wraps a persistence or LLM failure. A nil cause returns nil.
func Upstream(msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: ErrUpstream, Msg: msg, Err: err}
}

// HTTPStatus returns the response code for err.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNoAvailableResource):
		return http.StatusConflict
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ToHTTP converts err into an echo.HTTPError. Unclassified errors are
// reported as a generic 500 so internal details do not leak.
func ToHTTP(err error) *echo.HTTPError {
	code := HTTPStatus(err)
	if code == http.StatusInternalServerError {
		return echo.NewHTTPError(code, "internal server error").SetInternal(err)
	}
	return echo.NewHTTPError(code, err.Error()).SetInternal(err)
}
