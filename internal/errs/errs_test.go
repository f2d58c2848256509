package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindMatching(t *testing.T) {
	errInvalidSplit := New(ErrValidation, "invalid_split")
	wrapped := fmt.Errorf("pay order: %w", errInvalidSplit)

	assert.True(t, errors.Is(wrapped, errInvalidSplit))
	assert.True(t, errors.Is(wrapped, ErrValidation))
	assert.False(t, errors.Is(wrapped, ErrConflict))
	assert.Equal(t, "validation_error", KindOf(wrapped))
	assert.Equal(t, "invalid_split", Reason(wrapped))
}

func TestKindOfUnknown(t *testing.T) {
	assert.Equal(t, "", KindOf(nil))
	assert.Equal(t, "internal", KindOf(errors.New("boom")))
	assert.Equal(t, "insufficient_resource", KindOf(New(ErrInsufficientResource, "insufficient_points")))
}
