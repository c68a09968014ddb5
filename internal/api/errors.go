package api

import (
	"net/http"

	log "github.com/sirupsen/logrus"
)

// Error categories.
const (
	CategoryValidationError      = "VALIDATION_ERROR"
	CategoryObjectNotFound       = "OBJECT_NOT_FOUND"
	CategoryConflict             = "CONFLICT"
	CategoryUnauthorized         = "UNAUTHORIZED"
	CategoryForbidden            = "FORBIDDEN"
	CategoryTransitionNotAllowed = "TRANSITION_NOT_ALLOWED"
	CategoryInternalError        = "INTERNAL_ERROR"
)

// Error is the JSON error envelope returned by every endpoint.
type Error struct {
	Status        string        `json:"status"`
	Message       string        `json:"message"`
	CorrelationID string        `json:"correlationId"`
	Category      string        `json:"category"`
	SubCategory   string        `json:"subCategory,omitempty"`
	Errors        []ErrorDetail `json:"errors,omitempty"`
}

// ErrorDetail represents a single error within an Error.
type ErrorDetail struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	In      string `json:"in,omitempty"`
}

func newError(category, message, correlationID string) *Error {
	return &Error{
		Status:        "error",
		Message:       message,
		CorrelationID: correlationID,
		Category:      category,
	}
}

// NewNotFoundError creates a 404 error with the OBJECT_NOT_FOUND category.
func NewNotFoundError(message, correlationID string) *Error {
	return newError(CategoryObjectNotFound, message, correlationID)
}

// NewValidationError creates a 400 error with the VALIDATION_ERROR category.
func NewValidationError(message, correlationID string, details []ErrorDetail) *Error {
	e := newError(CategoryValidationError, message, correlationID)
	e.Errors = details
	return e
}

// NewConflictError creates a 409 error with the CONFLICT category.
func NewConflictError(message, correlationID string) *Error {
	return newError(CategoryConflict, message, correlationID)
}

// NewForbiddenError creates a 403 error with the FORBIDDEN category.
func NewForbiddenError(message, correlationID string) *Error {
	return newError(CategoryForbidden, message, correlationID)
}

// NewTransitionError creates a 422 error for a stage change that no
// transition permits.
func NewTransitionError(message, correlationID string) *Error {
	return newError(CategoryTransitionNotAllowed, message, correlationID)
}

// NewInternalError creates a 500 error that hides the underlying cause.
func NewInternalError(correlationID string) *Error {
	return newError(CategoryInternalError, "Internal Server Error", correlationID)
}

// WriteError writes an Error as a JSON response with the given HTTP status code.
func WriteError(w http.ResponseWriter, statusCode int, apiErr *Error) {
	WriteJSON(w, statusCode, apiErr)
}

// WriteInternalError logs err against the request and writes a 500 that
// hides it.
func WriteInternalError(w http.ResponseWriter, r *http.Request, err error) {
	corrID := CorrelationID(r.Context())
	log.WithError(err).WithFields(log.Fields{
		"method":        r.Method,
		"path":          r.URL.Path,
		"correlationId": corrID,
	}).Error("request failed")
	WriteError(w, http.StatusInternalServerError, NewInternalError(corrID))
}
