package scenario

import (
	"errors"
	"fmt"
)

// ConfigError reports a malformed scenario. It is raised before any SQL is
// built and the scenario is never executed.
type ConfigError struct {
	Scenario string
	Row      int
	Field    string
	Reason   string
	Err      error
}

func (e *ConfigError) Error() string {
	msg := e.Reason
	if e.Field != "" {
		msg = e.Field + " " + e.Reason
	}
	switch {
	case e.Scenario != "":
		return fmt.Sprintf("scenario %q: %s", e.Scenario, msg)
	case e.Row > 0:
		return fmt.Sprintf("row %d: %s", e.Row, msg)
	default:
		return msg
	}
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is or wraps a *ConfigError
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}
