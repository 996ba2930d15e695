package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDetailLeavesSharedErrorUntouched(t *testing.T) {
	enriched := ErrInvalidActor.WithDetail("actor", "nobody")

	require.NotSame(t, ErrInvalidActor, enriched)
	assert.Equal(t, "nobody", enriched.Details["actor"])
	assert.NotContains(t, ErrInvalidActor.Details, "actor")
}

func TestWithDetailChainsOnCopies(t *testing.T) {
	first := ErrEventContentTooLong.WithDetail("actual_length", 120)
	second := first.WithDetail("max_length", 100)

	assert.Equal(t, 120, second.Details["actual_length"])
	assert.Equal(t, 100, second.Details["max_length"])
	assert.NotContains(t, first.Details, "max_length")
	assert.NotContains(t, ErrEventContentTooLong.Details, "actual_length")
}

func TestClonedErrorStillMatchesWithIs(t *testing.T) {
	enriched := ErrInvalidEventType.WithDetail("event_type", "telepathy")

	assert.True(t, stderrors.Is(enriched, ErrInvalidEventType))
}

func TestWithCauseAndRetryableCopy(t *testing.T) {
	cause := stderrors.New("dial timeout")
	enriched := ErrStoreUnavailable.WithCause(cause)

	assert.Equal(t, cause, enriched.Cause)
	assert.Nil(t, ErrStoreUnavailable.Cause)
	assert.True(t, enriched.Retryable)
}

func TestWrapKeepsOriginalAppErrorMessage(t *testing.T) {
	original := NewNotFoundError("event")
	wrapped := Wrap(original, "load related")

	require.Error(t, wrapped)
	assert.Contains(t, wrapped.Error(), "load related")
	assert.Equal(t, "event not found", original.Message)
	assert.True(t, IsNotFound(wrapped))
}
