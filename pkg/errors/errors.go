package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors for common error cases
var (
	// ErrInvalidOid indicates the object identifier is not a 64-char lowercase hex string
	ErrInvalidOid = errors.New("invalid object id")

	// ErrInvalidAction indicates the requested action is not download or upload
	ErrInvalidAction = errors.New("invalid action")

	// ErrInvalidInput indicates the provided input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrBadJSON indicates the request body could not be parsed as JSON
	ErrBadJSON = errors.New("malformed json body")

	// ErrMissingCredentials indicates the request carried no usable credentials
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrInvalidCredentials indicates the provided credentials are invalid
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTokenExpired indicates the bearer token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrNoPrivilege indicates the token does not carry the required privilege
	ErrNoPrivilege = errors.New("privilege not granted")

	// ErrUnknownRepo indicates the repository is not in the configured allowlist
	ErrUnknownRepo = errors.New("unknown repository")

	// ErrObjectNotFound indicates the requested object is not in the store
	ErrObjectNotFound = errors.New("object does not exist")

	// ErrUnsupportedMedia indicates a required LFS media-type header is missing
	ErrUnsupportedMedia = errors.New("unsupported media type")

	// ErrUnknownOperation indicates the batch operation is not implemented
	ErrUnknownOperation = errors.New("unknown batch operation")

	// ErrStorageError indicates a storage operation failed
	ErrStorageError = errors.New("storage error")

	// ErrAccessCheckFailed indicates the access oracle could not be consulted
	ErrAccessCheckFailed = errors.New("access check failed")

	// ErrConfigError indicates a configuration error
	ErrConfigError = errors.New("configuration error")
)

// ErrorCode represents HTTP-like error codes
type ErrorCode int

const (
	CodeBadRequest          ErrorCode = http.StatusBadRequest
	CodeUnauthorized        ErrorCode = http.StatusUnauthorized
	CodeForbidden           ErrorCode = http.StatusForbidden
	CodeNotFound            ErrorCode = http.StatusNotFound
	CodeMethodNotAllowed    ErrorCode = http.StatusMethodNotAllowed
	CodeNotAcceptable       ErrorCode = http.StatusNotAcceptable
	CodeUnprocessableEntity ErrorCode = http.StatusUnprocessableEntity
	CodeInternalServerError ErrorCode = http.StatusInternalServerError
	CodeNotImplemented      ErrorCode = http.StatusNotImplemented
)

// AppError represents an application-level error with additional context
type AppError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Err     error                  `json:"-"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is interface for comparison
func (e *AppError) Is(target error) bool {
	if e.Err != nil {
		return errors.Is(e.Err, target)
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error
func (e *AppError) HTTPStatus() int {
	return int(e.Code)
}

// WithDetails adds additional details to the error
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a new AppError with the given code, message, and underlying error
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Validation creates a new validation error (422 at the HTTP boundary)
func Validation(message string, err error) *AppError {
	if message == "" {
		message = "invalid request"
	}
	return NewAppError(CodeUnprocessableEntity, message, err)
}

// Unauthorized creates a new unauthorized error
func Unauthorized(message string, err error) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return NewAppError(CodeUnauthorized, message, err)
}

// Forbidden creates a new forbidden error
func Forbidden(message string, err error) *AppError {
	if message == "" {
		message = "access denied"
	}
	return NewAppError(CodeForbidden, message, err)
}

// NotFound creates a new not found error
func NotFound(resource string, err error) *AppError {
	return NewAppError(CodeNotFound, fmt.Sprintf("%s not found", resource), err)
}

// MethodNotAllowed creates a new method not allowed error
func MethodNotAllowed(method string) *AppError {
	return NewAppError(CodeMethodNotAllowed, fmt.Sprintf("method %s not allowed", method), nil)
}

// NotAcceptable creates a new not acceptable error for missing LFS media types
func NotAcceptable(message string) *AppError {
	if message == "" {
		message = "git-lfs media type required"
	}
	return NewAppError(CodeNotAcceptable, message, ErrUnsupportedMedia)
}

// NotImplemented creates a new not implemented error
func NotImplemented(message string) *AppError {
	if message == "" {
		message = "operation not implemented"
	}
	return NewAppError(CodeNotImplemented, message, ErrUnknownOperation)
}

// InternalError creates a new internal server error
func InternalError(message string, err error) *AppError {
	if message == "" {
		message = "an internal error occurred"
	}
	return NewAppError(CodeInternalServerError, message, err)
}

// StorageError creates a new storage error
func StorageError(operation string, err error) *AppError {
	return NewAppError(CodeInternalServerError, fmt.Sprintf("storage %s failed", operation), err)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == CodeNotFound
	}
	return errors.Is(err, ErrObjectNotFound) || errors.Is(err, ErrUnknownRepo)
}

// IsUnauthorized checks if an error is an unauthorized error
func IsUnauthorized(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == CodeUnauthorized
	}
	return errors.Is(err, ErrMissingCredentials) || errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrTokenExpired)
}

// IsForbidden checks if an error is a forbidden error
func IsForbidden(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == CodeForbidden
	}
	return errors.Is(err, ErrNoPrivilege)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == CodeUnprocessableEntity
	}
	return errors.Is(err, ErrInvalidOid) || errors.Is(err, ErrInvalidAction) ||
		errors.Is(err, ErrBadJSON) || errors.Is(err, ErrInvalidInput)
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapWithCode wraps an error with a specific error code
func WrapWithCode(err error, code ErrorCode, message string) *AppError {
	return NewAppError(code, message, err)
}
