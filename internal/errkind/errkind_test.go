package errkind

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(Storage, cause, "insert division")

	require.Error(t, err)
	assert.True(t, Is(err, Storage))
	assert.False(t, Is(err, Cache))
	assert.ErrorIs(t, err, cause)

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, Storage, kind)
}

func TestNewHasNoCause(t *testing.T) {
	err := New(Validation, "page_size must be positive")
	assert.Nil(t, err.Unwrap())
	assert.Contains(t, err.Error(), "page_size must be positive")
}

func TestKindOfUnrelatedError(t *testing.T) {
	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
}
