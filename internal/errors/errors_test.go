package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemError_Unwrap_PreservesOriginalError(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(ErrCodeIOError, cause)
	require.NotNil(t, err)
	assert.Same(t, cause, errors.Unwrap(err))
}

func TestSemError_Error_ReturnsFormattedMessage(t *testing.T) {
	err := New(ErrCodeNotFound, "chunk 42 not found", nil)
	assert.Equal(t, "[ERR_101_NOT_FOUND] chunk 42 not found", err.Error())
}

func TestSemError_Is_MatchesByCode(t *testing.T) {
	a := New(ErrCodeLocked, "locked by pid 9", nil)
	b := &SemError{Code: ErrCodeLocked}
	assert.True(t, errors.Is(a, b))
}

func TestSemError_Is_DoesNotMatchDifferentCodes(t *testing.T) {
	a := New(ErrCodeLocked, "locked", nil)
	b := &SemError{Code: ErrCodeNotFound}
	assert.False(t, errors.Is(a, b))
}

func TestDimensionMismatch_CarriesExpectedAndGot(t *testing.T) {
	err := DimensionMismatch(768, 384)
	assert.Equal(t, ErrCodeDimensionMismatch, err.Code)
	assert.Equal(t, "768", err.Details["expected"])
	assert.Equal(t, "384", err.Details["got"])
	assert.True(t, IsFatal(err))
}

func TestMapFull_IsRetryable(t *testing.T) {
	err := MapFull(512)
	assert.True(t, IsRetryable(err))
}

func TestLocked_IsRetryableNotFatal(t *testing.T) {
	err := Locked("/tmp/db/.writer.lock")
	assert.True(t, IsRetryable(err))
	assert.False(t, IsFatal(err))
}

func TestIs_MatchesKind(t *testing.T) {
	err := NotIndexed("internal/foo.go")
	assert.True(t, Is(err, KindNotIndexed))
	assert.False(t, Is(err, KindLocked))
}

func TestGetCode_NonSemError(t *testing.T) {
	assert.Equal(t, "", GetCode(errors.New("plain")))
}
