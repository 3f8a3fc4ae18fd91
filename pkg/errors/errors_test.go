package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		err    *AppError
		status int
	}{
		{Validation("bad pointer", ErrInvalidOid), http.StatusUnprocessableEntity},
		{Unauthorized("", ErrInvalidCredentials), http.StatusUnauthorized},
		{Forbidden("", ErrNoPrivilege), http.StatusForbidden},
		{NotFound("object", ErrObjectNotFound), http.StatusNotFound},
		{MethodNotAllowed("DELETE"), http.StatusMethodNotAllowed},
		{NotAcceptable(""), http.StatusNotAcceptable},
		{NotImplemented(""), http.StatusNotImplemented},
		{InternalError("", nil), http.StatusInternalServerError},
		{StorageError("rename", errors.New("disk full")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, tt.err.HTTPStatus(), tt.err.Message)
	}
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	err := NotFound("object", ErrObjectNotFound)
	assert.ErrorIs(t, err, ErrObjectNotFound)

	wrapped := Wrap(err, "while planning batch")
	assert.ErrorIs(t, wrapped, ErrObjectNotFound)

	var appErr *AppError
	assert.ErrorAs(t, wrapped, &appErr)
	assert.Equal(t, CodeNotFound, appErr.Code)
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsNotFound(NotFound("object", ErrObjectNotFound)))
	assert.True(t, IsNotFound(ErrUnknownRepo))
	assert.False(t, IsNotFound(ErrNoPrivilege))

	assert.True(t, IsUnauthorized(Unauthorized("", ErrTokenExpired)))
	assert.True(t, IsUnauthorized(ErrMissingCredentials))

	assert.True(t, IsForbidden(Forbidden("", ErrNoPrivilege)))
	assert.False(t, IsForbidden(ErrObjectNotFound))

	assert.True(t, IsValidation(Validation("", ErrInvalidOid)))
	assert.True(t, IsValidation(ErrBadJSON))
}

func TestDefaultMessages(t *testing.T) {
	assert.Equal(t, "invalid request", Validation("", nil).Message)
	assert.Equal(t, "authentication required", Unauthorized("", nil).Message)
	assert.Equal(t, "access denied", Forbidden("", nil).Message)
	assert.Equal(t, "object not found", NotFound("object", nil).Message)
}
