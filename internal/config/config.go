// Package config loads mapcheck settings from an optional YAML file,
// MAPCHECK_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vegasq/mapcheck/runner"
	"github.com/vegasq/mapcheck/sqlgen"
)

// EnvPrefix prefixes every environment variable, e.g. MAPCHECK_DSN or
// MAPCHECK_LOG_LEVEL
const EnvPrefix = "MAPCHECK"

// Config holds every setting the CLI needs
type Config struct {
	Project string `mapstructure:"project"`
	Dataset string `mapstructure:"dataset"`
	Dialect string `mapstructure:"dialect"`

	// Driver defaults to the driver matching Dialect
	Driver      string        `mapstructure:"driver"`
	DSN         string        `mapstructure:"dsn"`
	Timeout     time.Duration `mapstructure:"timeout"`
	PingTimeout time.Duration `mapstructure:"ping_timeout"`

	Strict      bool    `mapstructure:"strict"`
	Tolerance   float64 `mapstructure:"tolerance"`
	WarnPercent float64 `mapstructure:"warn_percent"`
	SampleSize  int     `mapstructure:"sample_size"`

	Sheet string `mapstructure:"sheet"`

	Log         Log         `mapstructure:"log"`
	Store       Store       `mapstructure:"store"`
	ObjectStore ObjectStore `mapstructure:"objectstore"`
}

// Log configures the process logger
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Store configures outcome history
type Store struct {
	URL string `mapstructure:"url"`
}

// ObjectStore configures report upload
type ObjectStore struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Prefix    string `mapstructure:"prefix"`
}

// flagKeys maps command-line flag names to configuration keys
var flagKeys = map[string]string{
	"project":      "project",
	"dataset":      "dataset",
	"dialect":      "dialect",
	"driver":       "driver",
	"dsn":          "dsn",
	"timeout":      "timeout",
	"strict":       "strict",
	"tolerance":    "tolerance",
	"warn-percent": "warn_percent",
	"sample-size":  "sample_size",
	"sheet":        "sheet",
	"log-level":    "log.level",
	"log-format":   "log.format",
	"store-url":    "store.url",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("project", "")
	v.SetDefault("dataset", "")
	v.SetDefault("dialect", "bigquery")
	v.SetDefault("driver", "")
	v.SetDefault("dsn", "")
	v.SetDefault("timeout", 5*time.Minute)
	v.SetDefault("ping_timeout", 10*time.Second)
	v.SetDefault("strict", false)
	v.SetDefault("tolerance", sqlgen.DefaultTolerance)
	v.SetDefault("warn_percent", sqlgen.DefaultWarnPercent)
	v.SetDefault("sample_size", sqlgen.DefaultSampleSize)
	v.SetDefault("sheet", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("store.url", "")
	v.SetDefault("objectstore.endpoint", "")
	v.SetDefault("objectstore.access_key", "")
	v.SetDefault("objectstore.secret_key", "")
	v.SetDefault("objectstore.bucket", "")
	v.SetDefault("objectstore.region", "")
	v.SetDefault("objectstore.use_ssl", true)
	v.SetDefault("objectstore.prefix", "reports")
}

// Load reads the configuration. path may be empty; flags may be nil. Only
// flags the user actually set override file and environment values.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return Config{}, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Dialect = strings.ToLower(strings.TrimSpace(cfg.Dialect))
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings that do not depend on the command being run
func (c Config) Validate() error {
	var errs []error
	if _, err := sqlgen.DialectByName(c.Dialect); err != nil {
		errs = append(errs, err)
	}
	if c.Timeout < 0 {
		errs = append(errs, errors.New("timeout must be >= 0"))
	}
	if c.PingTimeout < 0 {
		errs = append(errs, errors.New("ping_timeout must be >= 0"))
	}
	if c.Tolerance <= 0 {
		errs = append(errs, errors.New("tolerance must be positive"))
	}
	if c.WarnPercent < 0 || c.WarnPercent > 100 {
		errs = append(errs, errors.New("warn_percent must be between 0 and 100"))
	}
	if c.SampleSize < 0 {
		errs = append(errs, errors.New("sample_size must be >= 0"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}
	return errors.Join(errs...)
}

// SQL returns the query builder configuration
func (c Config) SQL() (sqlgen.Config, error) {
	dialect, err := sqlgen.DialectByName(c.Dialect)
	if err != nil {
		return sqlgen.Config{}, err
	}
	return sqlgen.Config{
		Project:     c.Project,
		Dataset:     c.Dataset,
		Dialect:     dialect,
		Tolerance:   c.Tolerance,
		WarnPercent: c.WarnPercent,
		SampleSize:  c.SampleSize,
		Strict:      c.Strict,
	}, nil
}

// Warehouse returns the connection configuration. Without an explicit DSN a
// BigQuery DSN is derived from Project and Dataset.
func (c Config) Warehouse() (runner.Config, error) {
	dialect, err := sqlgen.DialectByName(c.Dialect)
	if err != nil {
		return runner.Config{}, err
	}

	driver := c.Driver
	if driver == "" {
		if driver, err = runner.DriverForDialect(dialect.Name()); err != nil {
			return runner.Config{}, err
		}
	}

	dsn := c.DSN
	if dsn == "" && driver == runner.DriverBigQuery && c.Project != "" {
		dsn = "bigquery://" + c.Project
		if c.Dataset != "" {
			dsn += "/" + c.Dataset
		}
	}

	cfg := runner.Config{
		Driver:      driver,
		DSN:         dsn,
		PingTimeout: c.PingTimeout,
	}
	if err := cfg.Validate(); err != nil {
		return runner.Config{}, fmt.Errorf("warehouse: %w", err)
	}
	return cfg, nil
}
