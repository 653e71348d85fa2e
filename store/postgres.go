package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vegasq/mapcheck/outcome"
)

// Config describes the history database connection
type Config struct {
	URL          string
	PingTimeout  time.Duration
	MaxOpenConns int
	MaxIdleConns int
}

// DefaultConfig returns pool settings suitable for a CLI run
func DefaultConfig(url string) Config {
	return Config{
		URL:          url,
		PingTimeout:  5 * time.Second,
		MaxOpenConns: 4,
		MaxIdleConns: 2,
	}
}

// Validate checks the connection settings
func (c Config) Validate() error {
	if c.URL == "" {
		return errors.New("store url is required")
	}
	if c.PingTimeout <= 0 {
		return errors.New("store ping timeout must be positive")
	}
	if c.MaxOpenConns < 1 {
		return errors.New("store max open conns must be >= 1")
	}
	if c.MaxIdleConns < 0 || c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("store max idle conns must be between 0 and max open conns")
	}
	return nil
}

// Store keeps a history of scenario outcomes in Postgres
type Store struct {
	db *sql.DB
}

// New wraps an open database handle
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects through the pgx driver and pings the server
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return New(db), nil
}

// Close closes the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

const schema = `CREATE TABLE IF NOT EXISTS validation_outcomes (
	id                UUID PRIMARY KEY,
	scenario          TEXT NOT NULL,
	validation_type   TEXT NOT NULL,
	source_table      TEXT NOT NULL,
	target_table      TEXT NOT NULL,
	target_column     TEXT NOT NULL,
	derivation_logic  TEXT NOT NULL,
	status            TEXT NOT NULL,
	total_rows        BIGINT NOT NULL,
	match_count       BIGINT NOT NULL,
	mismatch_count    BIGINT NOT NULL,
	source_null_count BIGINT NOT NULL,
	target_null_count BIGINT NOT NULL,
	both_null_count   BIGINT NOT NULL,
	match_percentage  NUMERIC(5, 2) NOT NULL,
	fallback          BOOLEAN NOT NULL,
	error_kind        TEXT NOT NULL,
	error             TEXT NOT NULL,
	sql               TEXT NOT NULL,
	samples           JSONB NOT NULL,
	duration_ms       BIGINT NOT NULL,
	executed_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS validation_outcomes_scenario_idx
	ON validation_outcomes (scenario, executed_at DESC)`

// Migrate creates the outcome table when it does not exist
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const insertOutcome = `INSERT INTO validation_outcomes (
	id, scenario, validation_type, source_table, target_table, target_column,
	derivation_logic, status, total_rows, match_count, mismatch_count,
	source_null_count, target_null_count, both_null_count, match_percentage,
	fallback, error_kind, error, sql, samples, duration_ms, executed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`

// Save records one outcome
func (s *Store) Save(ctx context.Context, o outcome.Outcome) error {
	samples := o.Samples
	if samples == nil {
		samples = []outcome.Sample{}
	}
	encoded, err := json.Marshal(samples)
	if err != nil {
		return fmt.Errorf("encode samples: %w", err)
	}

	_, err = s.db.ExecContext(ctx, insertOutcome,
		o.ID, o.Scenario, o.ValidationType, o.SourceTable, o.TargetTable, o.TargetColumn,
		o.DerivationLogic, string(o.Status), o.TotalRows, o.MatchCount, o.MismatchCount,
		o.SourceNullCount, o.TargetNullCount, o.BothNullCount, o.MatchPercentage,
		o.Fallback, string(o.ErrorKind), o.Error, o.SQL, string(encoded),
		o.Duration.Milliseconds(), o.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("save outcome %s: %w", o.Scenario, err)
	}
	return nil
}

const selectRecent = `SELECT
	id, scenario, validation_type, source_table, target_table, target_column,
	derivation_logic, status, total_rows, match_count, mismatch_count,
	source_null_count, target_null_count, both_null_count, match_percentage,
	fallback, error_kind, error, sql, samples, duration_ms, executed_at
FROM validation_outcomes`

// Recent returns the latest outcomes, newest first. A non-empty scenario
// restricts the history to that scenario.
func (s *Store) Recent(ctx context.Context, scenario string, limit int) ([]outcome.Outcome, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	query := selectRecent + " ORDER BY executed_at DESC LIMIT $1"
	args := []interface{}{limit}
	if scenario != "" {
		query = selectRecent + " WHERE scenario = $1 ORDER BY executed_at DESC LIMIT $2"
		args = []interface{}{scenario, limit}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []outcome.Outcome
	for rows.Next() {
		var (
			o          outcome.Outcome
			status     string
			errorKind  string
			samples    []byte
			durationMS int64
		)
		if err := rows.Scan(
			&o.ID, &o.Scenario, &o.ValidationType, &o.SourceTable, &o.TargetTable, &o.TargetColumn,
			&o.DerivationLogic, &status, &o.TotalRows, &o.MatchCount, &o.MismatchCount,
			&o.SourceNullCount, &o.TargetNullCount, &o.BothNullCount, &o.MatchPercentage,
			&o.Fallback, &errorKind, &o.Error, &o.SQL, &samples, &durationMS, &o.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Status = outcome.Status(status)
		o.ErrorKind = outcome.ErrorKind(errorKind)
		o.Duration = time.Duration(durationMS) * time.Millisecond
		if len(samples) > 0 {
			if err := json.Unmarshal(samples, &o.Samples); err != nil {
				return nil, fmt.Errorf("decode samples of %s: %w", o.Scenario, err)
			}
			if len(o.Samples) == 0 {
				o.Samples = nil
			}
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read outcomes: %w", err)
	}
	return outcomes, nil
}
