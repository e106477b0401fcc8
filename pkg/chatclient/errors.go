package chatclient

import (
	"errors"
	"fmt"
)

// Sentinel errors for outcomes callers may want to branch on. HTTP status
// codes never leak out of this package.
var (
	// ErrSessionInit means a session could not be established with the
	// gateway, typically because it is unreachable.
	ErrSessionInit = errors.New("chatclient: session initialization failed")

	// ErrContentBlocked means the gateway's moderation refused the request.
	// Retrying the same content will never succeed.
	ErrContentBlocked = errors.New("chatclient: content blocked by moderation")

	// ErrDailyLimitReached means today's usage quota is exhausted.
	ErrDailyLimitReached = errors.New("chatclient: daily usage limit reached")

	// ErrRetriesExhausted means every attempt failed with a retryable error.
	ErrRetriesExhausted = errors.New("chatclient: retries exhausted")

	// ErrEmptyCompletion means the gateway answered but returned no choices.
	ErrEmptyCompletion = errors.New("chatclient: empty completion")
)

// APIError carries the gateway's error payload for failures that do not map
// to a sentinel, such as validation rejections.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chatclient: gateway error %s: %s", e.Code, e.Message)
}
