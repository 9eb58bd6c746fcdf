package pages

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/docpages/internal/artifacts"
	"github.com/JaimeStill/docpages/internal/convert"
	"github.com/JaimeStill/docpages/internal/sessions"
)

var (
	ErrNotFound       = errors.New("document not found")
	ErrPageOutOfRange = errors.New("page number out of range")
	ErrInvalidPage    = errors.New("invalid page number")

	// ErrConversionFailed is the conversion engine's failure, so callers can
	// match either package's sentinel.
	ErrConversionFailed = convert.ErrConversionFailed
)

// MapHTTPStatus maps page request errors to HTTP status codes. Errors from the
// layers below fall through to their own mappers.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrPageOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidPage):
		return http.StatusBadRequest
	}

	for _, m := range []func(error) int{
		sessions.MapHTTPStatus,
		convert.MapHTTPStatus,
		artifacts.MapHTTPStatus,
	} {
		if status := m(err); status != http.StatusInternalServerError {
			return status
		}
	}
	return http.StatusInternalServerError
}
