package toolerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAndKindOf(t *testing.T) {
	base := errors.New("boom")
	wrapped := Wrap(KindToolExecution, "", base)

	assert.True(t, Is(wrapped, KindToolExecution))
	assert.False(t, Is(wrapped, KindFatal))

	k, ok := KindOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindToolExecution, k)

	assert.ErrorIs(t, wrapped, base)
}

func TestRetryable(t *testing.T) {
	assert.True(t, KindToolExecution.Retryable())
	assert.True(t, KindTimeout.Retryable())
	assert.False(t, KindFatal.Retryable())
	assert.False(t, KindCancelled.Retryable())
	assert.False(t, KindGuardrailBlocked.Retryable())
}

func TestErrorMessage(t *testing.T) {
	e := New(KindValidation, "bad input")
	assert.Equal(t, "validation-error: bad input", e.Error())

	wrapped := Wrap(KindFatal, "", errors.New("credentials invalid"))
	assert.Equal(t, "fatal: credentials invalid", wrapped.Error())
}

func TestNilError(t *testing.T) {
	var e *Error
	assert.Equal(t, "", e.Error())
	assert.Nil(t, e.Unwrap())
}
