package convert

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnavailable      = errors.New("conversion tooling unavailable")
	ErrConversionFailed = errors.New("document conversion failed")
	ErrRenderFailed     = errors.New("page render failed")
	ErrPageOutOfRange   = errors.New("page number out of range")
)

// MapHTTPStatus maps conversion errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrPageOutOfRange):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// guard runs fn and converts a panic into an error wrapping sentinel.
func guard(sentinel error, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: engine panic: %v", sentinel, r)
		}
	}()
	return fn()
}
