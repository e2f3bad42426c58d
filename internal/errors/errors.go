package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateIdentity is matched by every *DuplicateIdentityError.
	ErrDuplicateIdentity = errors.New("duplicate identity")
	// ErrInvalidAccessLevel is returned when an access level is outside client, moderator, superuser.
	ErrInvalidAccessLevel = errors.New("invalid access level")
	// ErrNotFound is matched by every *NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyBound is returned when a user already holds a service binding.
	ErrAlreadyBound = errors.New("user already bound")
	// ErrReferentialIntegrity is matched by every *ReferentialIntegrityError.
	ErrReferentialIntegrity = errors.New("referential integrity violated")
	// ErrImmutableRecord is returned on an attempt to modify an append-only row.
	ErrImmutableRecord = errors.New("record is immutable")
)

// Entity kinds used by NotFoundError and ReferentialIntegrityError.
const (
	KindUser         = "user"
	KindRole         = "role"
	KindUserService  = "user_service"
	KindLoginHistory = "login_history"
)

// ValidationError reports a field that violates a length or format constraint.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError builds a ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// DuplicateIdentityError reports which unique user field collided.
type DuplicateIdentityError struct {
	Field string // "email" or "login"
}

func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf("duplicate identity: %s already taken", e.Field)
}

func (e *DuplicateIdentityError) Is(target error) bool { return target == ErrDuplicateIdentity }

// NewDuplicateIdentity builds a DuplicateIdentityError for field.
func NewDuplicateIdentity(field string) *DuplicateIdentityError {
	return &DuplicateIdentityError{Field: field}
}

// NotFoundError is parameterized by entity kind and the id (or key) looked up.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFound builds a NotFoundError.
func NewNotFound(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// IsNotFoundKind reports whether err is a NotFoundError for kind.
func IsNotFoundKind(err error, kind string) bool {
	var nf *NotFoundError
	return errors.As(err, &nf) && nf.Kind == kind
}

// ReferentialIntegrityError is raised when the store rejects a reference at commit time.
type ReferentialIntegrityError struct {
	Kind string
}

func (e *ReferentialIntegrityError) Error() string {
	if e.Kind == "" {
		return ErrReferentialIntegrity.Error()
	}
	return fmt.Sprintf("referential integrity violated: %s does not exist", e.Kind)
}

func (e *ReferentialIntegrityError) Is(target error) bool { return target == ErrReferentialIntegrity }

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Field      string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
		Field: e.Field,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	var (
		validation *ValidationError
		duplicate  *DuplicateIdentityError
	)
	switch {
	case errors.As(err, &validation):
		httpErr := NewHTTPError(http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		httpErr.Field = validation.Field
		return httpErr
	case errors.As(err, &duplicate):
		httpErr := NewHTTPError(http.StatusConflict, err.Error(), "DUPLICATE_IDENTITY")
		httpErr.Field = duplicate.Field
		return httpErr
	case errors.Is(err, ErrInvalidAccessLevel):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_ACCESS_LEVEL")
	case errors.Is(err, ErrNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, ErrAlreadyBound):
		return NewHTTPError(http.StatusConflict, err.Error(), "ALREADY_BOUND")
	case errors.Is(err, ErrReferentialIntegrity):
		return NewHTTPError(http.StatusConflict, err.Error(), "REFERENTIAL_INTEGRITY")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
