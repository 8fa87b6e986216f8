package executor

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/portfolio-bff/backend/pkg/retry"
)

var (
	ErrInvalidRequest = errors.New("invalid query request")
	ErrNotConnected   = errors.New("database not connected")
	ErrQueryTimeout   = errors.New("query timed out")
	ErrConnectionLost = errors.New("database connection lost")
	ErrQueryFailed    = errors.New("query failed")
	ErrClosed         = errors.New("executor closed")

	// ErrRetriesExhausted matches the error returned once every attempt of
	// Query has failed. errors.Unwrap yields the last attempt's error.
	ErrRetriesExhausted = retry.ErrRetriesExhausted
)

// QueryError wraps a driver error that is not a connection failure.
type QueryError struct {
	Cause error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Cause)
}

func (e *QueryError) Unwrap() error {
	return e.Cause
}

func (e *QueryError) Is(target error) bool {
	return target == ErrQueryFailed
}

// IsConnectionLoss reports whether err means the connection itself is gone:
// lost protocol connection, reset, timed out or refused.
func IsConnectionLoss(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ETIMEDOUT),
		errors.Is(err, syscall.EPIPE):
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
