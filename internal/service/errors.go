package service

import (
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies a publish/metrics call outcome. Transient errors are
// retried by leaving the item untouched for the next tick; auth errors get one
// refresh-and-retry; fatal errors mark the item failed immediately.
type ErrorKind int

const (
	ErrKindTransient ErrorKind = iota
	ErrKindAuth
	ErrKindFatal
)

type PublishError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
}

func (e *PublishError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("platform error (status %d): %s", e.StatusCode, e.Message)
	}
	return e.Message
}

func classifyStatus(code int) ErrorKind {
	switch {
	case code == 401 || code == 403:
		return ErrKindAuth
	case code == 429 || code >= 500:
		return ErrKindTransient
	default:
		return ErrKindFatal
	}
}

func newPublishError(code int, message string) *PublishError {
	return &PublishError{Kind: classifyStatus(code), StatusCode: code, Message: message}
}

// transportError wraps a client-side failure. Timeouts and connection errors
// are worth retrying; anything else unexpected is still treated as transient
// since nothing was confirmed rejected by the platform.
func transportError(err error) *PublishError {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &PublishError{Kind: ErrKindTransient, Message: "request timed out: " + err.Error()}
	}
	return &PublishError{Kind: ErrKindTransient, Message: err.Error()}
}

func IsTransient(err error) bool { return kindOf(err) == ErrKindTransient }
func IsAuth(err error) bool      { return kindOf(err) == ErrKindAuth }

func kindOf(err error) ErrorKind {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrKindFatal
}
