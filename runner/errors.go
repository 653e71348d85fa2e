package runner

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"
)

// ExecutionError is a failure reported by the warehouse for a generated
// query. It carries the SQL for diagnosis and is never retried.
type ExecutionError struct {
	Scenario  string
	SQL       string
	Message   string
	Retryable bool
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("scenario %q: query failed: %s", e.Scenario, e.Message)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// TimeoutError reports a query that ran past the scenario timeout
type TimeoutError struct {
	Scenario string
	SQL      string
	Timeout  time.Duration
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("scenario %q: query did not finish within %s", e.Scenario, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// retryable reports failures of the connection rather than of the query.
// The runner does not retry; callers may.
func retryable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
