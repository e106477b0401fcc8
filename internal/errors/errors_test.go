package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("Error returns formatted string", func(t *testing.T) {
		err := New(ErrCodeNotFound, "Session not found")
		assert.Equal(t, "NOT_FOUND: Session not found", err.Error())
	})

	t.Run("Error with cause includes cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(ErrCodeUpstreamUnavailable, "AI service temporarily unavailable", cause)
		assert.Contains(t, err.Error(), "UPSTREAM_UNAVAILABLE")
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("WithCause adds cause to error", func(t *testing.T) {
		cause := errors.New("original error")
		err := New(ErrCodeInternal, "Something went wrong").WithCause(cause)
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("WithDetails adds details to error", func(t *testing.T) {
		err := New(ErrCodeContentBlocked, "Request blocked").WithDetails("profanity")
		assert.Equal(t, "profanity", err.Details)
	})
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name         string
		constructor  func() *AppError
		expectedCode ErrorCode
	}{
		{"Unauthorized", func() *AppError { return Unauthorized("test") }, ErrCodeUnauthorized},
		{"SessionExpired", func() *AppError { return SessionExpired() }, ErrCodeSessionExpired},
		{"NotFound", func() *AppError { return NotFound("Session") }, ErrCodeNotFound},
		{"ValidationError", func() *AppError { return ValidationError("test") }, ErrCodeValidation},
		{"InvalidInput", func() *AppError { return InvalidInput("messages", "empty") }, ErrCodeInvalidInput},
		{"RateLimitExceeded", func() *AppError { return RateLimitExceeded(30) }, ErrCodeRateLimitExceeded},
		{"DailyLimitReached", func() *AppError { return DailyLimitReached() }, ErrCodeDailyLimitReached},
		{"ContentBlocked", func() *AppError { return ContentBlocked("violence") }, ErrCodeContentBlocked},
		{"UpstreamUnavailable", func() *AppError { return UpstreamUnavailable(nil) }, ErrCodeUpstreamUnavailable},
		{"Timeout", func() *AppError { return Timeout(nil) }, ErrCodeTimeout},
		{"Internal", func() *AppError { return Internal("test") }, ErrCodeInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.constructor()
			assert.Equal(t, tc.expectedCode, err.Code)
			assert.NotEmpty(t, err.Message)
		})
	}
}

func TestRateLimitExceeded(t *testing.T) {
	t.Run("carries retryAfter in details", func(t *testing.T) {
		err := RateLimitExceeded(42)
		assert.Equal(t, 42, err.Details)
	})
}

func TestHasCode(t *testing.T) {
	t.Run("matches AppError code", func(t *testing.T) {
		err := DailyLimitReached()
		assert.True(t, HasCode(err, ErrCodeDailyLimitReached))
		assert.False(t, HasCode(err, ErrCodeRateLimitExceeded))
	})

	t.Run("matches wrapped AppError", func(t *testing.T) {
		err := fmt.Errorf("handle chat: %w", ContentBlocked("profanity"))
		assert.True(t, HasCode(err, ErrCodeContentBlocked))
	})

	t.Run("plain error has no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("plain"), ErrCodeInternal))
	})
}

func TestGetCode(t *testing.T) {
	t.Run("returns code for AppError", func(t *testing.T) {
		assert.Equal(t, ErrCodeTimeout, GetCode(Timeout(errors.New("deadline"))))
	})

	t.Run("returns internal for unknown error", func(t *testing.T) {
		assert.Equal(t, ErrCodeInternal, GetCode(errors.New("mystery")))
	})
}
