package sqlgen

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/vegasq/mapcheck/scenario"
)

// resultRow is one row of a generated query's result set
type resultRow struct {
	RowType        string
	Total          sql.NullInt64
	Match          sql.NullInt64
	Mismatch       sql.NullInt64
	SourceNull     sql.NullInt64
	TargetNull     sql.NullInt64
	BothNull       sql.NullInt64
	Percentage     sql.NullFloat64
	Status         sql.NullString
	SampleKey      sql.NullString
	Calculated     sql.NullString
	Actual         sql.NullString
	Classification sql.NullString
}

// runSQLite loads the fixture statements into an in-memory database, builds
// spec with the SQLite dialect and returns the summary row and samples
func runSQLite(t *testing.T, spec *scenario.Spec, fixtures ...string) (resultRow, []resultRow) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	for _, stmt := range fixtures {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}

	cfg := DefaultConfig()
	cfg.Dialect = SQLite{}
	b, err := NewBuilder(cfg)
	require.NoError(t, err)

	text, err := b.Build(spec)
	require.NoError(t, err)

	rows, err := db.Query(text)
	require.NoError(t, err, text)
	defer rows.Close()

	var all []resultRow
	for rows.Next() {
		var r resultRow
		require.NoError(t, rows.Scan(&r.RowType, &r.Total, &r.Match, &r.Mismatch, &r.SourceNull,
			&r.TargetNull, &r.BothNull, &r.Percentage, &r.Status, &r.SampleKey, &r.Calculated,
			&r.Actual, &r.Classification))
		all = append(all, r)
	}
	require.NoError(t, rows.Err())
	require.NotEmpty(t, all, text)
	require.Equal(t, RowTypeSummary, all[0].RowType)

	return all[0], all[1:]
}

func customerSpec(logic string, vt scenario.ValidationType) *scenario.Spec {
	return &scenario.Spec{
		Name:            "S001",
		SourceTable:     "customers",
		TargetTable:     "customer_dim",
		SourceJoinKeys:  []string{"customer_id"},
		TargetJoinKeys:  []string{"customer_id"},
		TargetColumn:    "value",
		DerivationLogic: logic,
		ValidationType:  vt,
	}
}

func TestSQLite_ConcatenationPass(t *testing.T) {
	summary, samples := runSQLite(t, customerSpec("CONCAT(first_name, ' ', last_name)", scenario.Concatenation),
		"CREATE TABLE customers (customer_id INTEGER, first_name TEXT, last_name TEXT)",
		"INSERT INTO customers VALUES (1, 'John', 'Smith'), (2, 'Jane', 'Doe'), (3, 'Ana', 'Lima')",
		"CREATE TABLE customer_dim (customer_id INTEGER, value TEXT)",
		"INSERT INTO customer_dim VALUES (1, 'John Smith'), (2, 'Jane Doe'), (3, 'Ana Lima')",
	)

	assert.Equal(t, int64(3), summary.Total.Int64)
	assert.Equal(t, int64(3), summary.Match.Int64)
	assert.Equal(t, 100.0, summary.Percentage.Float64)
	assert.Equal(t, "PASS", summary.Status.String)
	assert.Empty(t, samples)
}

func TestSQLite_ConcatenationMismatch(t *testing.T) {
	summary, samples := runSQLite(t, customerSpec("CONCAT(first_name, ' ', last_name)", scenario.Concatenation),
		"CREATE TABLE customers (customer_id INTEGER, first_name TEXT, last_name TEXT)",
		"INSERT INTO customers VALUES (1, 'John', 'Smith'), (2, 'Jane', 'Doe')",
		"CREATE TABLE customer_dim (customer_id INTEGER, value TEXT)",
		"INSERT INTO customer_dim VALUES (1, 'John Smith'), (2, 'Jane X. Doe')",
	)

	assert.Equal(t, int64(1), summary.Match.Int64)
	assert.Equal(t, int64(1), summary.Mismatch.Int64)
	assert.Equal(t, 50.0, summary.Percentage.Float64)
	assert.Equal(t, "FAIL", summary.Status.String)

	require.Len(t, samples, 1)
	assert.Equal(t, RowTypeSample, samples[0].RowType)
	assert.Equal(t, "2", samples[0].SampleKey.String)
	assert.Equal(t, "Jane Doe", samples[0].Calculated.String)
	assert.Equal(t, "Jane X. Doe", samples[0].Actual.String)
	assert.Equal(t, "MISMATCH", samples[0].Classification.String)
	assert.False(t, samples[0].Total.Valid)
}

func TestSQLite_AggregationGroupBy(t *testing.T) {
	spec := &scenario.Spec{
		Name:            "S010_Balance",
		SourceTable:     "transactions",
		TargetTable:     "account_balance",
		SourceJoinKeys:  []string{"account_id"},
		TargetJoinKeys:  []string{"account_id"},
		TargetColumn:    "balance",
		DerivationLogic: "SUM(amount) GROUP_BY account_id",
		ValidationType:  scenario.Aggregation,
	}

	summary, samples := runSQLite(t, spec,
		"CREATE TABLE transactions (account_id INTEGER, amount REAL)",
		"INSERT INTO transactions VALUES (101, 100), (101, 250), (102, 75.5), (102, 124.5)",
		"CREATE TABLE account_balance (account_id INTEGER, balance REAL)",
		"INSERT INTO account_balance VALUES (101, 350), (102, 150)",
	)

	assert.Equal(t, int64(2), summary.Total.Int64)
	assert.Equal(t, int64(1), summary.Match.Int64)
	assert.Equal(t, int64(1), summary.Mismatch.Int64)
	assert.Equal(t, 50.0, summary.Percentage.Float64)
	assert.Equal(t, "FAIL", summary.Status.String)

	require.Len(t, samples, 1)
	assert.Equal(t, "102", samples[0].SampleKey.String)
}

func TestSQLite_CompositeKey(t *testing.T) {
	spec := customerSpec("balance", scenario.DirectMapping)
	spec.SourceTable = "accounts"
	spec.TargetTable = "account_dim"
	spec.SourceJoinKeys = []string{"customer_id", "account_type"}
	spec.TargetJoinKeys = []string{"cust_id", "acct_type"}

	summary, samples := runSQLite(t, spec,
		"CREATE TABLE accounts (customer_id INTEGER, account_type TEXT, balance REAL)",
		"INSERT INTO accounts VALUES (1, 'A', 10), (1, 'B', 20)",
		"CREATE TABLE account_dim (cust_id INTEGER, acct_type TEXT, value REAL)",
		"INSERT INTO account_dim VALUES (1, 'A', 10), (1, 'B', 25)",
	)

	assert.Equal(t, int64(2), summary.Total.Int64)
	assert.Equal(t, int64(1), summary.Match.Int64)
	require.Len(t, samples, 1)
	assert.Equal(t, "1|B", samples[0].SampleKey.String)
}

func TestSQLite_NullsNeverMatch(t *testing.T) {
	summary, _ := runSQLite(t, customerSpec("amount", scenario.DirectMapping),
		"CREATE TABLE customers (customer_id INTEGER, amount REAL)",
		"INSERT INTO customers VALUES (1, 0), (2, NULL), (3, 5), (5, NULL)",
		"CREATE TABLE customer_dim (customer_id INTEGER, value REAL)",
		"INSERT INTO customer_dim VALUES (1, NULL), (2, 0), (4, 7), (5, NULL)",
	)

	assert.Equal(t, int64(5), summary.Total.Int64)
	assert.Equal(t, int64(0), summary.Match.Int64)
	assert.Equal(t, int64(0), summary.Mismatch.Int64)
	assert.Equal(t, int64(2), summary.SourceNull.Int64)
	assert.Equal(t, int64(2), summary.TargetNull.Int64)
	assert.Equal(t, int64(1), summary.BothNull.Int64)
	assert.Equal(t, 0.0, summary.Percentage.Float64)
	assert.Equal(t, "FAIL", summary.Status.String)
}

func TestSQLite_Tolerance(t *testing.T) {
	summary, samples := runSQLite(t, customerSpec("amount", scenario.DirectMapping),
		"CREATE TABLE customers (customer_id INTEGER, amount REAL)",
		"INSERT INTO customers VALUES (1, 100.005), (2, 100.02), (3, 99.99)",
		"CREATE TABLE customer_dim (customer_id INTEGER, value REAL)",
		"INSERT INTO customer_dim VALUES (1, 100), (2, 100), (3, 100)",
	)

	assert.Equal(t, int64(1), summary.Match.Int64)
	assert.Equal(t, int64(2), summary.Mismatch.Int64)
	require.Len(t, samples, 2)
	assert.Equal(t, "2", samples[0].SampleKey.String)
	assert.Equal(t, "3", samples[1].SampleKey.String)
}

func TestSQLite_Warn(t *testing.T) {
	var source, target []string
	for i := 1; i <= 20; i++ {
		source = append(source, fmt.Sprintf("(%d, 'v%d')", i, i))
		value := fmt.Sprintf("v%d", i)
		if i == 20 {
			value = "other"
		}
		target = append(target, fmt.Sprintf("(%d, '%s')", i, value))
	}

	summary, _ := runSQLite(t, customerSpec("code", scenario.DirectMapping),
		"CREATE TABLE customers (customer_id INTEGER, code TEXT)",
		"INSERT INTO customers VALUES "+strings.Join(source, ", "),
		"CREATE TABLE customer_dim (customer_id INTEGER, value TEXT)",
		"INSERT INTO customer_dim VALUES "+strings.Join(target, ", "),
	)

	assert.Equal(t, int64(19), summary.Match.Int64)
	assert.Equal(t, 95.0, summary.Percentage.Float64)
	assert.Equal(t, "WARN", summary.Status.String)
}

func TestSQLite_ZeroRows(t *testing.T) {
	summary, samples := runSQLite(t, customerSpec("code", scenario.DirectMapping),
		"CREATE TABLE customers (customer_id INTEGER, code TEXT)",
		"CREATE TABLE customer_dim (customer_id INTEGER, value TEXT)",
	)

	assert.Equal(t, int64(0), summary.Total.Int64)
	assert.False(t, summary.Percentage.Valid)
	assert.Equal(t, "INFO", summary.Status.String)
	assert.Empty(t, samples)
}

func TestSQLite_EmptyDerivation(t *testing.T) {
	summary, _ := runSQLite(t, customerSpec("", scenario.DirectMapping))

	assert.Equal(t, int64(0), summary.Total.Int64)
	assert.Equal(t, "INFO", summary.Status.String)
}

func TestSQLite_Lookup(t *testing.T) {
	spec := customerSpec("VLOOKUP(segment_code, segments, segment_name)", scenario.Transformation)
	spec.Reference = &scenario.Reference{
		Table: "segments",
		Keys:  []scenario.KeyPair{{Source: "segment_code", Target: "code"}},
	}

	summary, _ := runSQLite(t, spec,
		"CREATE TABLE customers (customer_id INTEGER, segment_code TEXT)",
		"INSERT INTO customers VALUES (1, 'P'), (2, 'S')",
		"CREATE TABLE segments (code TEXT, segment_name TEXT)",
		"INSERT INTO segments VALUES ('P', 'Premium'), ('S', 'Standard')",
		"CREATE TABLE customer_dim (customer_id INTEGER, value TEXT)",
		"INSERT INTO customer_dim VALUES (1, 'Premium'), (2, 'Standard')",
	)

	assert.Equal(t, "PASS", summary.Status.String)
}

func TestSQLite_ReferenceReturnColumn(t *testing.T) {
	for _, logic := range []string{"segment_code", "Segment name from the segments table", ""} {
		t.Run(logic, func(t *testing.T) {
			spec := customerSpec(logic, scenario.Transformation)
			spec.Reference = &scenario.Reference{
				Table:        "segments",
				Keys:         []scenario.KeyPair{{Source: "segment_code", Target: "code"}},
				ReturnColumn: "segment_name",
			}

			summary, samples := runSQLite(t, spec,
				"CREATE TABLE customers (customer_id INTEGER, segment_code TEXT)",
				"INSERT INTO customers VALUES (1, 'P'), (2, 'S'), (3, 'P')",
				"CREATE TABLE segments (code TEXT, segment_name TEXT)",
				"INSERT INTO segments VALUES ('P', 'Premium'), ('S', 'Standard')",
				"CREATE TABLE customer_dim (customer_id INTEGER, value TEXT)",
				"INSERT INTO customer_dim VALUES (1, 'Premium'), (2, 'Standard'), (3, 'Standard')",
			)

			assert.Equal(t, int64(3), summary.Total.Int64)
			assert.Equal(t, int64(2), summary.Match.Int64)
			assert.Equal(t, 66.66, summary.Percentage.Float64)
			assert.Equal(t, "FAIL", summary.Status.String)
			require.Len(t, samples, 1)
			assert.Equal(t, "3", samples[0].SampleKey.String)
			assert.Equal(t, "Premium", samples[0].Calculated.String)
		})
	}
}

func TestSQLite_Conditional(t *testing.T) {
	summary, _ := runSQLite(t, customerSpec("IF(balance > 50000, 'Premium', 'Standard')", scenario.Transformation),
		"CREATE TABLE customers (customer_id INTEGER, balance REAL)",
		"INSERT INTO customers VALUES (1, 60000), (2, 100)",
		"CREATE TABLE customer_dim (customer_id INTEGER, value TEXT)",
		"INSERT INTO customer_dim VALUES (1, 'Premium'), (2, 'Premium')",
	)

	assert.Equal(t, int64(1), summary.Match.Int64)
	assert.Equal(t, "FAIL", summary.Status.String)
}

func TestSQLite_ProfileCheck(t *testing.T) {
	spec := customerSpec("CHECK_NOT_NULL(email)", scenario.DataCompleteness)
	spec.TargetTable, spec.TargetJoinKeys, spec.TargetColumn = "", nil, ""

	summary, samples := runSQLite(t, spec,
		"CREATE TABLE customers (customer_id INTEGER, email TEXT)",
		"INSERT INTO customers VALUES (1, 'a@x.io'), (2, NULL), (3, 'c@x.io')",
	)

	assert.Equal(t, int64(3), summary.Total.Int64)
	assert.Equal(t, int64(2), summary.Match.Int64)
	assert.Equal(t, int64(1), summary.Mismatch.Int64)
	assert.Equal(t, 66.66, summary.Percentage.Float64)
	require.Len(t, samples, 1)
	assert.Equal(t, "Incomplete", samples[0].Calculated.String)
}
