package artifacts

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound     = errors.New("artifact not found")
	ErrInvalidPage  = errors.New("page number must be at least 1")
	ErrInvalidKind  = errors.New("unsupported artifact kind")
	ErrStorageFault = errors.New("artifact storage fault")
)

// MapHTTPStatus maps artifact errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidPage), errors.Is(err, ErrInvalidKind):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
