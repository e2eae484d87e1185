package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	err := New(ErrCodeEmptyQuery, "query must not be empty", nil)

	assert.Equal(t, ErrCodeEmptyQuery, err.Code)
	assert.Equal(t, CategoryInputValidation, err.Category)
	assert.Equal(t, SeverityError, err.Severity)
	assert.False(t, err.Retryable)
}

func TestNew_ProviderUnavailableIsRetryableWarning(t *testing.T) {
	err := New(ErrCodeProviderTimeout, "embedding provider timed out", nil)

	assert.Equal(t, CategoryProviderUnavailable, err.Category)
	assert.Equal(t, SeverityWarning, err.Severity)
	assert.True(t, err.Retryable)
}

func TestNew_CorpusMalformedIsFatal(t *testing.T) {
	err := New(ErrCodeCorpusMissing, "no source rows found", nil)

	assert.Equal(t, CategoryCorpusMalformed, err.Category)
	assert.Equal(t, SeverityFatal, err.Severity)
}

func TestWrap_NilErrReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := stderrors.New("boom")
	se := Wrap(ErrCodeInternal, cause)

	require.NotNil(t, se)
	assert.Equal(t, cause, se.Cause)
	assert.ErrorIs(t, se, se)
}

func TestSearchError_Unwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	se := New(ErrCodeInternal, "failed to save index", cause)

	assert.Equal(t, cause, stderrors.Unwrap(se))
}

func TestSearchError_Is_MatchesByCode(t *testing.T) {
	a := New(ErrCodeEmptyQuery, "query must not be empty", nil)
	b := New(ErrCodeEmptyQuery, "a different message", nil)
	c := New(ErrCodeInvalidTopK, "top_k out of range", nil)

	assert.True(t, a.Is(b))
	assert.False(t, a.Is(c))
}

func TestSearchError_WithDetail(t *testing.T) {
	se := New(ErrCodeInvalidTopK, "top_k out of range", nil).WithDetail("top_k", "0")

	assert.Equal(t, "0", se.Details["top_k"])
}

func TestInputValidation(t *testing.T) {
	se := InputValidation(ErrCodeInvalidMinScore, "min_score must be in [0,1]")

	assert.Equal(t, CategoryInputValidation, se.Category)
	assert.Nil(t, se.Cause)
}

func TestNotReady(t *testing.T) {
	se := NotReady()

	assert.Equal(t, ErrCodeEngineNotReady, se.Code)
	assert.Equal(t, CategoryNotReady, se.Category)
}

func TestIsRetryable(t *testing.T) {
	retryable := New(ErrCodeProviderUnreachable, "cross-encoder unreachable", nil)
	fatal := New(ErrCodeCorpusInvalid, "malformed corpus", nil)
	plain := stderrors.New("not a SearchError")

	assert.True(t, IsRetryable(retryable))
	assert.False(t, IsRetryable(fatal))
	assert.False(t, IsRetryable(plain))
}

func TestIsFatal(t *testing.T) {
	fatal := New(ErrCodeDuplicateEquipmentID, "duplicate equipment id", nil)
	nonFatal := New(ErrCodeEmptyQuery, "query must not be empty", nil)

	assert.True(t, IsFatal(fatal))
	assert.False(t, IsFatal(nonFatal))
	assert.False(t, IsFatal(stderrors.New("plain")))
}

func TestCode(t *testing.T) {
	se := New(ErrCodeChecksumMismatch, "checksum mismatch", nil)

	assert.Equal(t, ErrCodeChecksumMismatch, Code(se))
	assert.Equal(t, "", Code(stderrors.New("plain")))
}

func TestSearchError_Error(t *testing.T) {
	se := New(ErrCodeEmptyQuery, "query must not be empty", nil)
	assert.Equal(t, "[ERR_101_EMPTY_QUERY] query must not be empty", se.Error())
}
