package runner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/viant/bigquery"
	_ "modernc.org/sqlite"
)

// Executor runs one SQL statement and returns its rows keyed by lower-cased
// column name
type Executor interface {
	Query(ctx context.Context, query string) ([]map[string]interface{}, error)
}

// Driver names registered with database/sql
const (
	DriverBigQuery = "bigquery"
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// DriverForDialect returns the database/sql driver matching a SQL dialect
func DriverForDialect(dialect string) (string, error) {
	switch dialect {
	case "bigquery":
		return DriverBigQuery, nil
	case "sqlite":
		return DriverSQLite, nil
	case "postgres":
		return DriverPostgres, nil
	default:
		return "", fmt.Errorf("no driver for dialect %q", dialect)
	}
}

// Config describes the warehouse connection. For BigQuery the DSN is
// bigquery://project/dataset; credentials come from the environment.
type Config struct {
	Driver       string
	DSN          string
	PingTimeout  time.Duration
	MaxOpenConns int
	MaxIdleConns int
}

// Validate checks the connection settings
func (c Config) Validate() error {
	switch c.Driver {
	case DriverBigQuery, DriverSQLite, DriverPostgres:
	case "":
		return errors.New("driver is required")
	default:
		return fmt.Errorf("unsupported driver %q", c.Driver)
	}
	if c.DSN == "" {
		return errors.New("dsn is required")
	}
	if c.PingTimeout < 0 {
		return errors.New("ping timeout must be >= 0")
	}
	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 {
		return errors.New("connection limits must be >= 0")
	}
	return nil
}

// SQLExecutor runs queries through database/sql
type SQLExecutor struct {
	db *sql.DB
}

// NewSQLExecutor wraps an open database handle
func NewSQLExecutor(db *sql.DB) *SQLExecutor {
	return &SQLExecutor{db: db}
}

// Open connects and pings the warehouse
func Open(ctx context.Context, cfg Config) (*SQLExecutor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if cfg.PingTimeout > 0 {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
		}
	}

	return &SQLExecutor{db: db}, nil
}

// DB returns the underlying handle
func (e *SQLExecutor) DB() *sql.DB {
	return e.db
}

// Close closes the underlying handle
func (e *SQLExecutor) Close() error {
	return e.db.Close()
}

// Query runs query and reads every row. Byte slices are returned as strings.
func (e *SQLExecutor) Query(ctx context.Context, query string) ([]map[string]interface{}, error) {
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	for i, col := range columns {
		columns[i] = strings.ToLower(col)
	}

	var result []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
