package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = fmt.Errorf("message not found")
	ErrUnauthorized = fmt.Errorf("requester is not the author")
	ErrWorkerPanic  = fmt.Errorf("worker panic")
	ErrEmptyWords   = fmt.Errorf("no words have been found")
)

// MapToStatus translates relay errors into HTTP status codes.
// NotFound and Unauthorized stay distinct on purpose, so a caller can tell
// "doesn't exist" from "not yours".
func MapToStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case stderrors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
