package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsIdentity(t *testing.T) {
	err := Clone(ErrPortalExpired, "portal closed at 10:05")

	assert.True(t, stdErrors.Is(err, ErrPortalExpired))
	assert.False(t, stdErrors.Is(err, ErrPortalClosed))
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, "portal closed at 10:05", err.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)

	wrapped := fmt.Errorf("context: %w", ErrAlreadyCalled)
	assert.Equal(t, ErrAlreadyCalled.Code, FromError(wrapped).Code)
	assert.Nil(t, FromError(nil))
}
