package sessions

import (
	"errors"
	"net/http"
)

var (
	// ErrSessionFault wraps any failure of a cached session. The session has
	// already been evicted when it is returned.
	ErrSessionFault = errors.New("conversion session fault")

	// ErrClosed is returned by a Handle whose session was released or evicted.
	ErrClosed = errors.New("session closed")
)

// MapHTTPStatus maps session errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrClosed) {
		return http.StatusGone
	}
	return http.StatusInternalServerError
}
