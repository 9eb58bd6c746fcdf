package pipeline

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/docpages/internal/artifacts"
	"github.com/JaimeStill/docpages/internal/convert"
	"github.com/JaimeStill/docpages/internal/documents"
)

var (
	ErrInvalidFile  = errors.New("invalid file")
	ErrFileTooLarge = errors.New("file too large")
	ErrCancelled    = errors.New("conversion cancelled")
)

// MapHTTPStatus maps orchestration errors to HTTP status codes. Errors from
// the conversion, registry and storage layers fall through to their mappers.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidFile):
		return http.StatusBadRequest
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrCancelled):
		return http.StatusServiceUnavailable
	}

	for _, m := range []func(error) int{
		convert.MapHTTPStatus,
		documents.MapHTTPStatus,
		artifacts.MapHTTPStatus,
	} {
		if status := m(err); status != http.StatusInternalServerError {
			return status
		}
	}
	return http.StatusInternalServerError
}
