package transport

import (
	"errors"
	"fmt"
)

// Sentinel kinds for transport errors.
var (
	ErrRetriesExhausted = errors.New("retries exhausted")
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrBuildRequest     = errors.New("build request failed")
)

// maxErrorBody bounds how much of a failing response is kept on StatusError.
const maxErrorBody = 512

// StatusError carries a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.Code == 429 || e.Code >= 500
}

func newStatusError(code int, body []byte) *StatusError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &StatusError{Code: code, Body: string(body)}
}
