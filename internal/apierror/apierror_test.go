package apierror

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIErrorString(t *testing.T) {
	err := NewAPIError(ErrNotFound, "upload job not found", nil)
	assert.Equal(t, "NOT_FOUND: upload job not found", err.Error())
}

func TestIsConflict(t *testing.T) {
	assert.True(t, IsConflict(NewAPIError(ErrConflict, "version is no longer current", nil)))
	assert.False(t, IsConflict(NewAPIError(ErrInternalServer, "boom", nil)))
	assert.False(t, IsConflict(errors.New("plain error")))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(NewAPIError(ErrNotFound, "missing", nil)))
	assert.False(t, IsNotFound(NewAPIError(ErrConflict, "conflict", nil)))
}
