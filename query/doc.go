// Package query parses spreadsheet-authored derivation logic into a small
// tagged AST.
//
// The vocabulary covers what analysts write in a mapping sheet:
//   - bare columns and literals (direct mapping)
//   - CONCAT(a, ' ', b), a & b and a || b
//   - infix arithmetic with + - * / and parentheses
//   - IF(cond, then, else) and CASE WHEN ... THEN ... ELSE ... END
//   - SUM, AVG, COUNT, MIN, MAX with an optional GROUP_BY column list
//   - VLOOKUP / LOOKUP against a reference table
//   - CHECK_NOT_NULL, RANGE_CHECK, VALIDATE_EMAIL_FORMAT, VALIDATE_FORMAT
//   - UPPER, LOWER, TRIM, LENGTH, ROUND, ABS, COALESCE, SUBSTR, FORMAT_DATE
//
// Conditions accept =, >, <, >=, <= and LIKE combined with AND / OR. Any
// other operator is rejected with ErrUnsupportedOperator.
//
// # Basic Usage
//
//	expr := query.Parse("SUM(amount) GROUP_BY account_id")
//	if expr.Fallback {
//	    log.Printf("derivation not understood, passing through: %v", expr.Err)
//	}
//	fmt.Println(expr.Kind, expr.GroupBy) // aggregate [account_id]
//
// Parse never fails: unparseable input becomes a RawExpr that is emitted
// verbatim so the database reports the problem. ParseStrict returns the
// error instead.
//
// # Spreadsheet Side Columns
//
// ParseBusinessConditions turns "balance > 50000 THEN Premium; ELSE Standard"
// into a conditional expression, and ParseHardcodedValues reads the
// "key=value,key=value" lists used to relabel lookup results.
//
// # Limits
//
// Input length, token count and nesting depth are bounded (MaxLogicLength,
// MaxTokens, MaxExpressionDepth).
package query
