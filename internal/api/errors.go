package api

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is a failed backend call. Message carries the backend's own
// error text when the response body had one.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Code)
}

// IsUnauthorized reports whether err is a backend rejection of the
// session token. The session guard treats this as an invalid session.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusUnauthorized
}
