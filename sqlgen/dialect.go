package sqlgen

import (
	"fmt"
	"regexp"
	"strings"
)

// SQLType is a column type the comparison template needs to spell out
type SQLType int

const (
	TypeInt SQLType = iota
	TypeFloat
	TypeString
)

// Dialect renders the engine-specific parts of the generated SQL
type Dialect interface {
	// Name is the identifier used in configuration ("bigquery", "sqlite")
	Name() string

	// Table qualifies a table name with the configured project and dataset
	Table(project, dataset, name string) string

	// Ident quotes a column name when it is not a plain identifier
	Ident(name string) string

	// String renders a string literal
	String(value string) string

	// Concat concatenates already rendered expressions
	Concat(parts []string) string

	// CountIf counts rows matching a predicate
	CountIf(predicate string) string

	// Cast converts an expression to the given type
	Cast(expr string, to SQLType) string

	// Null renders a typed NULL
	Null(of SQLType) string

	// Divide renders a / b with floating point semantics
	Divide(a, b string) string

	// FormatDate formats a date expression with a strftime-style pattern
	FormatDate(format, expr string) string

	// IsEmail renders a predicate that holds for well-formed email addresses
	IsEmail(expr string) string

	// IsNumber renders a predicate that holds when expr is, or parses as, a
	// number. expr may be of any column type.
	IsNumber(expr string) string

	// Percent renders part * 100 / whole truncated to two decimals, NULL when
	// whole is 0. Both arguments are integer counts.
	Percent(part, whole string) string
}

var plainIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// BigQuery renders GoogleSQL
type BigQuery struct{}

func (BigQuery) Name() string { return "bigquery" }

// Table returns a backticked project.dataset.table reference, filling in the
// parts the name leaves out
func (BigQuery) Table(project, dataset, name string) string {
	parts := strings.Split(strings.ReplaceAll(name, "`", ""), ".")
	if len(parts) == 1 && dataset != "" {
		parts = append([]string{dataset}, parts...)
	}
	if len(parts) == 2 && project != "" {
		parts = append([]string{project}, parts...)
	}
	return "`" + strings.Join(parts, ".") + "`"
}

func (BigQuery) Ident(name string) string {
	if plainIdent.MatchString(name) {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "\\`") + "`"
}

// String renders a double-quoted literal
func (BigQuery) String(value string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`).Replace(value)
	return `"` + escaped + `"`
}

func (BigQuery) Concat(parts []string) string {
	return "CONCAT(" + strings.Join(parts, ", ") + ")"
}

func (BigQuery) CountIf(predicate string) string {
	return "COUNTIF(" + predicate + ")"
}

// Cast uses SAFE_CAST for numbers so that non-numeric text compares as a
// mismatch instead of failing the whole query
func (BigQuery) Cast(expr string, to SQLType) string {
	switch to {
	case TypeInt:
		return "SAFE_CAST(" + expr + " AS INT64)"
	case TypeFloat:
		return "SAFE_CAST(" + expr + " AS FLOAT64)"
	default:
		return "CAST(" + expr + " AS STRING)"
	}
}

func (BigQuery) Null(of SQLType) string {
	switch of {
	case TypeInt:
		return "CAST(NULL AS INT64)"
	case TypeFloat:
		return "CAST(NULL AS FLOAT64)"
	default:
		return "CAST(NULL AS STRING)"
	}
}

func (BigQuery) Divide(a, b string) string {
	return a + " / " + b
}

func (BigQuery) FormatDate(format, expr string) string {
	return "FORMAT_DATE(" + format + ", " + expr + ")"
}

func (BigQuery) IsEmail(expr string) string {
	return `REGEXP_CONTAINS(` + expr + `, r"^[^@\s]+@[^@\s]+\.[^@\s]+$")`
}

// IsNumber goes through STRING: DATE, TIMESTAMP and BOOL cannot be cast to
// FLOAT64 at all, not even with SAFE_CAST.
func (BigQuery) IsNumber(expr string) string {
	return "SAFE_CAST(CAST(" + expr + " AS STRING) AS FLOAT64) IS NOT NULL"
}

func (BigQuery) Percent(part, whole string) string {
	return "DIV(" + part + " * 10000, NULLIF(" + whole + ", 0)) / 100"
}

// SQLite renders SQL for SQLite 3.39+ (FULL OUTER JOIN support)
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

// Table quotes each dotted part; project and dataset do not apply
func (SQLite) Table(_, _ string, name string) string {
	parts := strings.Split(strings.ReplaceAll(name, "`", ""), ".")
	for i, part := range parts {
		parts[i] = `"` + strings.ReplaceAll(part, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

func (SQLite) Ident(name string) string {
	if plainIdent.MatchString(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (SQLite) String(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

func (SQLite) Concat(parts []string) string {
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, " || ") + ")"
}

func (SQLite) CountIf(predicate string) string {
	return "COALESCE(SUM(CASE WHEN " + predicate + " THEN 1 ELSE 0 END), 0)"
}

func (SQLite) Cast(expr string, to SQLType) string {
	switch to {
	case TypeInt:
		return "CAST(" + expr + " AS INTEGER)"
	case TypeFloat:
		return "CAST(" + expr + " AS REAL)"
	default:
		return "CAST(" + expr + " AS TEXT)"
	}
}

func (SQLite) Null(of SQLType) string {
	switch of {
	case TypeInt:
		return "CAST(NULL AS INTEGER)"
	case TypeFloat:
		return "CAST(NULL AS REAL)"
	default:
		return "CAST(NULL AS TEXT)"
	}
}

// Divide forces real division; SQLite truncates integer division
func (SQLite) Divide(a, b string) string {
	return a + " * 1.0 / " + b
}

func (SQLite) FormatDate(format, expr string) string {
	return "strftime(" + format + ", " + expr + ")"
}

func (SQLite) IsEmail(expr string) string {
	return "(" + expr + " LIKE '%_@_%._%' AND " + expr + " NOT LIKE '% %' AND " + expr + " NOT LIKE '%@%@%')"
}

// IsNumber checks the storage class; CAST to REAL turns any text into 0
func (SQLite) IsNumber(expr string) string {
	return "typeof(" + expr + ") IN ('integer', 'real')"
}

func (SQLite) Percent(part, whole string) string {
	return "(" + part + " * 10000 / NULLIF(" + whole + ", 0)) / 100.0"
}

// Postgres renders SQL for PostgreSQL; the dataset acts as the schema
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) Table(_, dataset, name string) string {
	parts := strings.Split(strings.ReplaceAll(name, "`", ""), ".")
	if len(parts) == 1 && dataset != "" {
		parts = append([]string{dataset}, parts...)
	}
	for i, part := range parts {
		parts[i] = `"` + strings.ReplaceAll(part, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

func (Postgres) Ident(name string) string {
	return SQLite{}.Ident(name)
}

func (Postgres) String(value string) string {
	return SQLite{}.String(value)
}

func (Postgres) Concat(parts []string) string {
	return SQLite{}.Concat(parts)
}

func (Postgres) CountIf(predicate string) string {
	return "COUNT(*) FILTER (WHERE " + predicate + ")"
}

// Cast uses NUMERIC for floats because ROUND(x, n) is only defined for it
func (Postgres) Cast(expr string, to SQLType) string {
	switch to {
	case TypeInt:
		return "CAST(" + expr + " AS BIGINT)"
	case TypeFloat:
		return "CAST(" + expr + " AS NUMERIC)"
	default:
		return "CAST(" + expr + " AS TEXT)"
	}
}

func (Postgres) Null(of SQLType) string {
	return Postgres{}.Cast("NULL", of)
}

func (Postgres) Divide(a, b string) string {
	return "CAST(" + a + " AS NUMERIC) / " + b
}

func (Postgres) FormatDate(format, expr string) string {
	return "to_char(" + expr + ", " + format + ")"
}

func (Postgres) IsEmail(expr string) string {
	return expr + ` ~ '^[^@\s]+@[^@\s]+\.[^@\s]+$'`
}

func (Postgres) IsNumber(expr string) string {
	return "CAST(" + expr + ` AS TEXT) ~ '^\s*[-+]?[0-9]+(\.[0-9]+)?\s*$'`
}

func (Postgres) Percent(part, whole string) string {
	return "(" + part + " * 10000 / NULLIF(" + whole + ", 0)) / 100.0"
}

// DialectByName returns the dialect registered under name
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "bigquery", "bq":
		return BigQuery{}, nil
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	case "postgres", "postgresql", "pg":
		return Postgres{}, nil
	default:
		return nil, fmt.Errorf("unsupported SQL dialect %q (expected bigquery, sqlite or postgres)", name)
	}
}
