package query

import (
	"fmt"
	"strings"
)

// arity bounds for whitelisted scalar functions; max -1 means unbounded
type arity struct {
	min, max int
}

var scalarFunctions = map[string]arity{
	"UPPER":       {1, 1},
	"LOWER":       {1, 1},
	"TRIM":        {1, 1},
	"LENGTH":      {1, 1},
	"ROUND":       {1, 2},
	"ABS":         {1, 1},
	"COALESCE":    {1, -1},
	"SUBSTR":      {2, 3},
	"FORMAT_DATE": {2, 2},
}

// spreadsheet spellings of the same functions
var functionAliases = map[string]string{
	"LEN":       "LENGTH",
	"SUBSTRING": "SUBSTR",
	"MID":       "SUBSTR",
	"IFNULL":    "COALESCE",
}

var aggregateFunctions = map[string]bool{
	"SUM":   true,
	"AVG":   true,
	"COUNT": true,
	"MIN":   true,
	"MAX":   true,
}

// argument is one call argument, optionally named (min_value=100)
type argument struct {
	Name  string
	Value Node
}

// parseCall dispatches a function call by name
func (p *Parser) parseCall(name string) (Node, error) {
	if err := p.depthCounter.Enter(); err != nil {
		return nil, err
	}
	defer p.depthCounter.Exit()

	upper := strings.ToUpper(name)
	if alias, ok := functionAliases[upper]; ok {
		upper = alias
	}

	p.advance() // consume function name

	switch {
	case upper == "IF" || upper == "IIF":
		return p.parseIf()
	case upper == "CONCAT":
		args, err := p.parsePositionalArgs(upper)
		if err != nil {
			return nil, err
		}
		return &ConcatExpr{Parts: args}, nil
	case aggregateFunctions[upper]:
		return p.parseAggregate(upper)
	case upper == "VLOOKUP" || upper == "LOOKUP":
		return p.parseLookup(upper)
	case upper == "CHECK_NOT_NULL" || upper == "RANGE_CHECK" ||
		upper == "VALIDATE_EMAIL_FORMAT" || upper == "VALIDATE_FORMAT":
		return p.parseCheck(upper)
	}

	bounds, ok := scalarFunctions[upper]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}

	args, err := p.parsePositionalArgs(upper)
	if err != nil {
		return nil, err
	}
	if len(args) < bounds.min || (bounds.max >= 0 && len(args) > bounds.max) {
		return nil, fmt.Errorf("%s expects %s, got %d", upper, describeArity(bounds), len(args))
	}

	return &FunctionCall{Name: upper, Args: args}, nil
}

func describeArity(a arity) string {
	switch {
	case a.max < 0:
		return fmt.Sprintf("at least %d arguments", a.min)
	case a.min == a.max && a.min == 1:
		return "1 argument"
	case a.min == a.max:
		return fmt.Sprintf("%d arguments", a.min)
	default:
		return fmt.Sprintf("%d to %d arguments", a.min, a.max)
	}
}

// parseArgs parses a parenthesized, comma-separated argument list
func (p *Parser) parseArgs() ([]argument, error) {
	if err := p.expect(TokenLeftParen); err != nil {
		return nil, err
	}

	var args []argument
	if p.current().Type == TokenRightParen {
		p.advance()
		return args, nil
	}

	for {
		var arg argument
		if p.current().Type == TokenIdent && p.peek().Type == TokenEqual {
			arg.Name = strings.ToLower(p.current().Value)
			p.advance()
			p.advance()
		}

		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		arg.Value = value
		args = append(args, arg)

		if p.current().Type != TokenComma {
			break
		}
		p.advance()
	}

	if err := p.expect(TokenRightParen); err != nil {
		return nil, fmt.Errorf("expected ) to close argument list: %w", err)
	}

	return args, nil
}

// parsePositionalArgs parses an argument list that takes no named arguments
func (p *Parser) parsePositionalArgs(fn string) ([]Node, error) {
	args, err := p.parseArgs()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}

	nodes := make([]Node, 0, len(args))
	for _, arg := range args {
		if arg.Name != "" {
			return nil, fmt.Errorf("%s does not take named argument %q", fn, arg.Name)
		}
		nodes = append(nodes, arg.Value)
	}
	return nodes, nil
}

// parseIf parses IF(cond, then[, else]). A CASE in the else position (a
// nested IF) is flattened into additional WHEN clauses.
func (p *Parser) parseIf() (Node, error) {
	if err := p.expect(TokenLeftParen); err != nil {
		return nil, fmt.Errorf("IF: %w", err)
	}

	cond, err := p.parseCondition()
	if err != nil {
		return nil, fmt.Errorf("IF condition: %w", err)
	}
	if err := p.expect(TokenComma); err != nil {
		return nil, fmt.Errorf("IF expects a value after the condition: %w", err)
	}

	then, err := p.parseExpr()
	if err != nil {
		return nil, fmt.Errorf("IF value: %w", err)
	}

	expr := &CaseExpr{Whens: []WhenClause{{Condition: cond, Result: then}}}

	if p.current().Type == TokenComma {
		p.advance()
		elseExpr, err := p.parseExpr()
		if err != nil {
			return nil, fmt.Errorf("IF else value: %w", err)
		}
		if nested, ok := elseExpr.(*CaseExpr); ok {
			expr.Whens = append(expr.Whens, nested.Whens...)
			expr.Else = nested.Else
		} else {
			expr.Else = elseExpr
		}
	}

	if err := p.expect(TokenRightParen); err != nil {
		return nil, fmt.Errorf("expected ) to close IF: %w", err)
	}

	return expr, nil
}

// parseAggregate parses FUNC(col), FUNC(DISTINCT col) and COUNT(*)
func (p *Parser) parseAggregate(fn string) (Node, error) {
	if err := p.expect(TokenLeftParen); err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}

	call := &AggregateCall{Func: fn}

	switch p.current().Type {
	case TokenStar:
		if fn != "COUNT" {
			return nil, fmt.Errorf("%s(*) is not supported, only COUNT(*)", fn)
		}
		call.Star = true
		p.advance()
	case TokenRightParen:
		return nil, fmt.Errorf("%s requires an argument", fn)
	default:
		if p.current().Type == TokenDistinct {
			call.Distinct = true
			p.advance()
		}
		arg, err := p.parseExpr()
		if err != nil {
			return nil, fmt.Errorf("%s argument: %w", fn, err)
		}
		if containsAggregate(arg) {
			return nil, fmt.Errorf("nested aggregate in %s", fn)
		}
		call.Arg = arg
	}

	if err := p.expect(TokenRightParen); err != nil {
		return nil, fmt.Errorf("expected ) to close %s: %w", fn, err)
	}

	return call, nil
}

// parseLookup parses VLOOKUP(key, ref_table, return_col[, ref_key]).
// A numeric column index or a trailing TRUE/FALSE range flag (spreadsheet
// habits) leave the corresponding field empty so the scenario's reference
// columns can fill it in.
func (p *Parser) parseLookup(fn string) (Node, error) {
	args, err := p.parsePositionalArgs(fn)
	if err != nil {
		return nil, err
	}
	if len(args) < 2 || len(args) > 4 {
		return nil, fmt.Errorf("%s expects 2 to 4 arguments, got %d", fn, len(args))
	}

	key, ok := args[0].(*ColumnRef)
	if !ok {
		return nil, fmt.Errorf("%s key must be a column reference", fn)
	}

	table := nameOf(args[1])
	if table == "" {
		return nil, fmt.Errorf("%s reference table must be a name", fn)
	}

	lookup := &LookupExpr{KeyColumn: key.Column, Table: table}
	if len(args) > 2 {
		lookup.ReturnColumn = nameOf(args[2])
	}
	if len(args) > 3 {
		lookup.ReferenceKey = nameOf(args[3])
	}

	return lookup, nil
}

// nameOf returns the identifier a node spells, or "" for numbers and booleans
func nameOf(n Node) string {
	switch v := n.(type) {
	case *ColumnRef:
		return v.Name()
	case *Literal:
		if v.Kind == LiteralString {
			return v.Value
		}
	}
	return ""
}

// parseCheck parses the completeness, range and format checks
func (p *Parser) parseCheck(fn string) (Node, error) {
	args, err := p.parseArgs()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}

	switch fn {
	case "CHECK_NOT_NULL":
		check := &CheckExpr{Check: CheckNotNull}
		for _, arg := range args {
			ref, ok := arg.Value.(*ColumnRef)
			if !ok || arg.Name != "" {
				return nil, fmt.Errorf("%s accepts column references only", fn)
			}
			check.Columns = append(check.Columns, *ref)
		}
		return check, nil

	case "RANGE_CHECK":
		return rangeCheck(args)

	case "VALIDATE_EMAIL_FORMAT":
		if len(args) != 1 {
			return nil, fmt.Errorf("%s expects 1 argument, got %d", fn, len(args))
		}
		ref, ok := args[0].Value.(*ColumnRef)
		if !ok {
			return nil, fmt.Errorf("%s argument must be a column reference", fn)
		}
		return &CheckExpr{Check: CheckEmail, Columns: []ColumnRef{*ref}}, nil

	default: // VALIDATE_FORMAT
		if len(args) != 2 {
			return nil, fmt.Errorf("%s expects 2 arguments, got %d", fn, len(args))
		}
		ref, ok := args[0].Value.(*ColumnRef)
		if !ok {
			return nil, fmt.Errorf("%s first argument must be a column reference", fn)
		}
		pattern, ok := args[1].Value.(*Literal)
		if !ok || pattern.Kind != LiteralString {
			return nil, fmt.Errorf("%s pattern must be a quoted string", fn)
		}
		return &CheckExpr{Check: CheckPattern, Columns: []ColumnRef{*ref}, Pattern: pattern.Value}, nil
	}
}

// rangeCheck builds RANGE_CHECK(col, min, max) or
// RANGE_CHECK(col, min_value=.., max_value=..); either bound may be omitted
// in the named form
func rangeCheck(args []argument) (Node, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, fmt.Errorf("RANGE_CHECK expects a column and 1 or 2 bounds, got %d arguments", len(args))
	}

	ref, ok := args[0].Value.(*ColumnRef)
	if !ok || args[0].Name != "" {
		return nil, fmt.Errorf("RANGE_CHECK first argument must be a column reference")
	}
	check := &CheckExpr{Check: CheckRange, Columns: []ColumnRef{*ref}}

	for i, arg := range args[1:] {
		lit, ok := arg.Value.(*Literal)
		if !ok || lit.Kind != LiteralNumber {
			return nil, fmt.Errorf("RANGE_CHECK bounds must be numbers")
		}
		switch arg.Name {
		case "min_value", "min":
			check.Min = lit
		case "max_value", "max":
			check.Max = lit
		case "":
			if i == 0 {
				check.Min = lit
			} else {
				check.Max = lit
			}
		default:
			return nil, fmt.Errorf("RANGE_CHECK does not take named argument %q", arg.Name)
		}
	}

	if check.Min == nil && check.Max == nil {
		return nil, fmt.Errorf("RANGE_CHECK requires at least one bound")
	}
	if len(args) == 2 && args[1].Name == "" {
		return nil, fmt.Errorf("RANGE_CHECK expects both bounds unless they are named")
	}

	return check, nil
}
