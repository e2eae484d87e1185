package errors

import (
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForUser(t *testing.T) {
	se := New(ErrCodeEmptyQuery, "query must not be empty", nil)
	out := FormatForUser(se)

	assert.Contains(t, out, "query must not be empty")
	assert.Contains(t, out, "ERR_101_EMPTY_QUERY")
}

func TestFormatForUser_Nil(t *testing.T) {
	assert.Equal(t, "", FormatForUser(nil))
}

func TestFormatForUser_PlainError(t *testing.T) {
	out := FormatForUser(stderrors.New("plain failure"))
	assert.Equal(t, "plain failure", out)
}

func TestFormatForCLI_WrapsPlainError(t *testing.T) {
	out := FormatForCLI(stderrors.New("disk full"))

	assert.Contains(t, out, "disk full")
	assert.Contains(t, out, ErrCodeInternal)
}

func TestFormatJSON_RoundTrips(t *testing.T) {
	se := New(ErrCodeInvalidTopK, "top_k out of range", nil).WithDetail("top_k", "0")

	raw, err := FormatJSON(se)
	require.NoError(t, err)

	var je jsonError
	require.NoError(t, json.Unmarshal(raw, &je))

	assert.Equal(t, ErrCodeInvalidTopK, je.Code)
	assert.Equal(t, "top_k out of range", je.Message)
	assert.Equal(t, string(CategoryInputValidation), je.Category)
	assert.Equal(t, "0", je.Details["top_k"])
}

func TestFormatJSON_Nil(t *testing.T) {
	raw, err := FormatJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))
}

func TestFormatForLog(t *testing.T) {
	cause := stderrors.New("root cause")
	se := New(ErrCodeProviderTimeout, "embedding provider timed out", cause)

	attrs := FormatForLog(se)

	assert.Equal(t, ErrCodeProviderTimeout, attrs["error_code"])
	assert.Equal(t, true, attrs["retryable"])
	assert.Equal(t, "root cause", attrs["cause"])
}

func TestFormatForLog_Nil(t *testing.T) {
	assert.Nil(t, FormatForLog(nil))
}

func TestFormatForLog_PlainError(t *testing.T) {
	attrs := FormatForLog(stderrors.New("plain"))
	assert.Equal(t, "plain", attrs["error"])
}
