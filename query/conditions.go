package query

import (
	"fmt"
	"strings"
)

// ParseBusinessConditions parses the Business_Conditions column:
//
//	balance > 50000 THEN Premium; balance > 10000 THEN Gold; ELSE Standard
//
// into a conditional expression. A bare word result is a string literal.
// Operators outside =, >, <, >=, <= and LIKE are rejected with
// ErrUnsupportedOperator.
func ParseBusinessConditions(text string) (*Expression, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return &Expression{Kind: KindCopy, Raw: raw}, nil
	}
	if err := ValidateLogic(raw); err != nil {
		return nil, err
	}

	expr := &CaseExpr{}
	for i, part := range splitOutsideQuotes(raw, ';') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		tokens := Tokenize(part)
		if err := ValidateTokens(tokens); err != nil {
			return nil, err
		}
		p := NewParser(tokens)

		if p.current().Type == TokenElse {
			if expr.Else != nil {
				return nil, fmt.Errorf("condition %d: duplicate ELSE", i+1)
			}
			p.advance()
			value, err := p.parseConditionResult()
			if err != nil {
				return nil, fmt.Errorf("condition %d: %w", i+1, err)
			}
			expr.Else = value
			continue
		}

		if p.current().Type == TokenWhen {
			p.advance()
		}
		cond, err := p.parseCondition()
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i+1, err)
		}
		if err := p.expect(TokenThen); err != nil {
			return nil, fmt.Errorf("condition %d: expected THEN: %w", i+1, err)
		}
		value, err := p.parseConditionResult()
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i+1, err)
		}
		expr.Whens = append(expr.Whens, WhenClause{Condition: cond, Result: value})
	}

	if len(expr.Whens) == 0 {
		return nil, fmt.Errorf("business conditions need at least one \"condition THEN value\" clause")
	}

	return &Expression{
		Kind:     KindConditional,
		Root:     expr,
		Operands: collectOperands(expr),
		Raw:      raw,
	}, nil
}

// parseConditionResult parses a THEN/ELSE value up to the end of input
func (p *Parser) parseConditionResult() (Node, error) {
	tok := p.current()
	if tok.Type == TokenIdent && p.peek().Type == TokenEOF && !strings.Contains(tok.Value, ".") {
		p.advance()
		return &Literal{Kind: LiteralString, Value: tok.Value}, nil
	}

	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.current().Type != TokenEOF {
		return nil, fmt.Errorf("unexpected trailing input: %s", p.describe(p.current()))
	}
	return value, nil
}

// ParseHardcodedValues parses the Hardcoded_Values column, a
// "key=value,key=value" list. Surrounding quotes are stripped and the
// declared order is kept.
func ParseHardcodedValues(text string) ([]Mapping, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return nil, nil
	}

	var mappings []Mapping
	seen := make(map[string]bool)
	for _, pair := range splitOutsideQuotes(raw, ',') {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("hardcoded value %q is not key=value", pair)
		}
		key = unquote(key)
		if key == "" {
			return nil, fmt.Errorf("hardcoded value %q has an empty key", pair)
		}
		if seen[key] {
			return nil, fmt.Errorf("hardcoded value key %q declared twice", key)
		}
		seen[key] = true

		mappings = append(mappings, Mapping{Key: key, Value: unquote(value)})
	}

	return mappings, nil
}

// unquote trims whitespace and one layer of matching quotes
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return strings.Trim(s, `"'`)
}

// splitOutsideQuotes splits s on sep, ignoring separators inside quotes
func splitOutsideQuotes(s string, sep rune) []string {
	var parts []string
	var current strings.Builder
	var quote rune

	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == sep:
			parts = append(parts, current.String())
			current.Reset()
			continue
		}
		current.WriteRune(r)
	}

	return append(parts, current.String())
}
