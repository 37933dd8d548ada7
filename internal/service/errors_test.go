package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code int
		want ErrorKind
	}{
		{401, ErrKindAuth},
		{403, ErrKindAuth},
		{429, ErrKindTransient},
		{500, ErrKindTransient},
		{502, ErrKindTransient},
		{503, ErrKindTransient},
		{400, ErrKindFatal},
		{404, ErrKindFatal},
		{422, ErrKindFatal},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, classifyStatus(tt.code))
		})
	}
}

func TestIsTransientAndIsAuth(t *testing.T) {
	transient := newPublishError(503, "upstream unavailable")
	auth := newPublishError(401, "token expired")
	fatal := newPublishError(400, "malformed request")

	assert.True(t, IsTransient(transient))
	assert.False(t, IsAuth(transient))

	assert.True(t, IsAuth(auth))
	assert.False(t, IsTransient(auth))

	assert.False(t, IsTransient(fatal))
	assert.False(t, IsAuth(fatal))
}

func TestKindOf_WrappedAndPlainErrors(t *testing.T) {
	wrapped := fmt.Errorf("posting tweet: %w", newPublishError(429, "rate limited"))
	assert.True(t, IsTransient(wrapped))

	// unknown errors are treated as fatal rather than retried forever
	assert.False(t, IsTransient(errors.New("something odd")))
	assert.False(t, IsAuth(errors.New("something odd")))
}

func TestTransportErrorIsTransient(t *testing.T) {
	err := transportError(errors.New("connection reset by peer"))
	assert.True(t, IsTransient(err))
}

func TestPublishErrorMessage(t *testing.T) {
	withCode := &PublishError{Kind: ErrKindFatal, StatusCode: 403, Message: "duplicate content"}
	assert.Contains(t, withCode.Error(), "403")
	assert.Contains(t, withCode.Error(), "duplicate content")

	plain := &PublishError{Kind: ErrKindTransient, Message: "timeout"}
	assert.Equal(t, "timeout", plain.Error())
}
