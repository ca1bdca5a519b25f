package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapKeepsCause(t *testing.T) {
	cause := stdErrors.New("connection reset")
	err := Wrap(CodeStoreUnavailable, cause, "insert like")

	require.Error(t, err)
	assert.True(t, stdErrors.Is(err, cause))
	assert.Equal(t, CodeStoreUnavailable, err.Code())
	assert.Contains(t, err.Error(), "connection reset")
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(CodeInternal, nil, "noop"))
}

func TestCodeOfThroughFmtWrap(t *testing.T) {
	base := New(CodeNotFound, "post not found")
	wrapped := fmt.Errorf("toggle like: %w", base)

	assert.Equal(t, CodeNotFound, CodeOf(wrapped))
	assert.True(t, HasCode(wrapped, CodeNotFound))
	assert.False(t, HasCode(wrapped, CodeInvalidOperation))
	assert.Equal(t, CodeInternal, CodeOf(stdErrors.New("plain")))
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("x: %w", New(CodeInvalidOperation, "cannot follow yourself"))
	assert.True(t, stdErrors.Is(err, New(CodeInvalidOperation, "")))
	assert.False(t, stdErrors.Is(err, New(CodeNotFound, "")))
}

func TestMetadataFor(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, MetadataFor(CodeAuthenticationFailed).HTTPStatus)
	assert.True(t, MetadataFor(CodeStoreUnavailable).Retryable)
	assert.Equal(t, http.StatusInternalServerError, MetadataFor(Code("bogus")).HTTPStatus)
}
