package utils

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"rag-platform/internal/logger"
)

// Kind tags an application error with its place in the error taxonomy.
// Each kind maps to exactly one public HTTP status.
type Kind int

const (
	KindValidation Kind = iota
	KindUnprocessable
	KindConflict
	KindTooLarge
	KindUpstream
	KindInternal
)

// AppError is the single error type crossing handler boundaries. Detail is
// user visible; Err carries the wrapped cause for server-side logs only.
type AppError struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Detail, e.Err)
	}
	return e.Detail
}

func (e *AppError) Unwrap() error { return e.Err }

// Status returns the HTTP status for the error kind.
func (e *AppError) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnprocessable:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindUpstream:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func Validation(detail string) *AppError {
	return &AppError{Kind: KindValidation, Detail: detail}
}

func Unprocessable(detail string) *AppError {
	return &AppError{Kind: KindUnprocessable, Detail: detail}
}

func Conflict(detail string) *AppError {
	return &AppError{Kind: KindConflict, Detail: detail}
}

func TooLarge(detail string) *AppError {
	return &AppError{Kind: KindTooLarge, Detail: detail}
}

func Unavailable(detail string, err error) *AppError {
	return &AppError{Kind: KindUpstream, Detail: detail, Err: err}
}

func Internal(detail string, err error) *AppError {
	return &AppError{Kind: KindInternal, Detail: detail, Err: err}
}

// Respond maps any error to the `{"detail": ...}` JSON body the public API
// promises. Causes of internal errors are logged, never echoed.
func Respond(c *gin.Context, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = Internal("An unexpected error occurred.", err)
	}

	if appErr.Kind == KindInternal && appErr.Err != nil {
		logger.Error("internal error", "detail", appErr.Detail, "error", appErr.Err)
	}

	c.JSON(appErr.Status(), gin.H{"detail": appErr.Detail})
}
