package llm

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/portfolio-bff/backend/pkg/retry"
	"github.com/portfolio-bff/backend/pkg/utils"
)

var (
	ErrMissingAPIKey     = errors.New("API key is missing")
	ErrMalformedResponse = errors.New("unexpected response structure from the provider")

	// ErrRetriesExhausted matches a Send that hit the rate limit on every
	// attempt; errors.As still finds the last *StatusError.
	ErrRetriesExhausted = retry.ErrRetriesExhausted
)

// StatusError is a non-2xx reply from the provider.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("provider returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}

func statusOf(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode, true
	}
	return 0, false
}

func IsRateLimited(err error) bool {
	code, ok := statusOf(err)
	return ok && code == http.StatusTooManyRequests
}

func IsServerError(err error) bool {
	code, ok := statusOf(err)
	return ok && code >= http.StatusInternalServerError
}

// redactedError hides the API key in an error's text while keeping the
// chain intact for errors.Is and errors.As.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }

func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, secret string) error {
	if err == nil || secret == "" {
		return err
	}
	msg := err.Error()
	clean := utils.Redact(msg, secret)
	if clean == msg {
		return err
	}
	return &redactedError{msg: clean, err: err}
}

const maxErrorBody = 512

func truncateBody(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}
