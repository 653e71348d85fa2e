package sqlgen

import (
	"errors"
	"fmt"
)

// Defaults for Config
const (
	DefaultTolerance   = 0.01
	DefaultWarnPercent = 95.0
	DefaultSampleSize  = 5
)

// Config carries everything the builder needs to know about the target
// warehouse and the comparison rules
type Config struct {
	// Project and Dataset qualify bare table names (BigQuery only)
	Project string
	Dataset string

	Dialect Dialect

	// Tolerance is the absolute difference under which two numeric values
	// are considered equal
	Tolerance float64

	// WarnPercent is the lowest match percentage reported as WARN rather
	// than FAIL
	WarnPercent float64

	// SampleSize bounds the number of mismatching rows returned for
	// inspection; 0 disables the sample
	SampleSize int

	// Strict turns unparseable derivation logic into a configuration error
	// instead of passing it through to the database
	Strict bool
}

// DefaultConfig returns a BigQuery configuration with the standard
// thresholds
func DefaultConfig() Config {
	return Config{
		Dialect:     BigQuery{},
		Tolerance:   DefaultTolerance,
		WarnPercent: DefaultWarnPercent,
		SampleSize:  DefaultSampleSize,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	var errs []error
	if c.Dialect == nil {
		errs = append(errs, errors.New("dialect is required"))
	}
	if c.Tolerance <= 0 {
		errs = append(errs, fmt.Errorf("tolerance must be positive, got %v", c.Tolerance))
	}
	if c.WarnPercent <= 0 || c.WarnPercent > 100 {
		errs = append(errs, fmt.Errorf("warn percent must be in (0, 100], got %v", c.WarnPercent))
	}
	if c.SampleSize < 0 {
		errs = append(errs, fmt.Errorf("sample size cannot be negative, got %d", c.SampleSize))
	}
	return errors.Join(errs...)
}
