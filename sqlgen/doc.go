// Package sqlgen renders a validation scenario as one self-contained
// comparison query.
//
// The query recomputes the derivation over the source table, joins the
// result to the target column with a FULL OUTER JOIN on the scenario's key
// pairs and classifies every joined row:
//
//	BOTH_NULL    calculated and actual values are both NULL
//	SOURCE_NULL  the calculated value is NULL
//	TARGET_NULL  the actual value is NULL
//	MATCH        equal as text, or within Config.Tolerance as numbers
//	MISMATCH     anything else
//
// The result set always has the same shape: one SUMMARY row with the counts,
// match_percentage and validation_status, followed by up to
// Config.SampleSize SAMPLE rows describing rows that did not match.
//
// # Basic Usage
//
//	builder, err := sqlgen.NewBuilder(sqlgen.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sql, err := builder.Build(spec)
//	if scenario.IsConfigError(err) {
//	    // the scenario row is wrong; nothing was sent to the warehouse
//	}
//
// # Dialects
//
// BigQuery is the production target. Postgres treats the dataset as a
// schema. SQLite renders the same template for local runs and tests; it
// needs FULL OUTER JOIN (SQLite 3.39 or later).
package sqlgen
