package query

import (
	"fmt"
	"strings"
)

// Parser parses derivation logic into an Expression
type Parser struct {
	tokens       []Token
	pos          int
	depthCounter *ExpressionDepthCounter
}

// NewParser creates a new parser
func NewParser(tokens []Token) *Parser {
	return &Parser{
		tokens:       tokens,
		pos:          0,
		depthCounter: NewExpressionDepthCounter(),
	}
}

// current returns the current token
func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF, Value: ""}
	}
	return p.tokens[p.pos]
}

// peek returns the next token without advancing
func (p *Parser) peek() Token {
	if p.pos+1 >= len(p.tokens) {
		return Token{Type: TokenEOF, Value: ""}
	}
	return p.tokens[p.pos+1]
}

// advance moves to the next token
func (p *Parser) advance() {
	p.pos++
}

// expect checks if current token matches expected type and advances
func (p *Parser) expect(tokType TokenType) error {
	if p.current().Type != tokType {
		return fmt.Errorf("expected %v, got %v", tokType, p.describe(p.current()))
	}
	p.advance()
	return nil
}

// describe renders a token for error messages
func (p *Parser) describe(tok Token) string {
	switch tok.Type {
	case TokenEOF:
		return "end of input"
	case TokenError:
		return fmt.Sprintf("invalid input %q", tok.Value)
	case TokenString:
		return fmt.Sprintf("string %q", tok.Value)
	default:
		return fmt.Sprintf("%q", tok.Value)
	}
}

// Parse parses derivation logic and never fails. Input that cannot be parsed
// degrades to a pass-through expression: Fallback is set, Err records the
// cause and Root is a RawExpr carrying the original text.
func Parse(logic string) *Expression {
	expr, err := ParseStrict(logic)
	if err == nil {
		return expr
	}
	raw := strings.TrimSpace(logic)
	return &Expression{
		Kind:     KindCopy,
		Root:     &RawExpr{Text: raw},
		Operands: []Operand{{Column: raw}},
		Fallback: true,
		Err:      err,
		Raw:      raw,
	}
}

// ParseStrict parses derivation logic and returns an error for anything
// outside the supported vocabulary. Empty input yields a KindCopy expression
// with no operands.
func ParseStrict(logic string) (*Expression, error) {
	raw := strings.TrimSpace(logic)
	if raw == "" {
		return &Expression{Kind: KindCopy, Raw: raw}, nil
	}

	if err := ValidateLogic(raw); err != nil {
		return nil, err
	}

	tokens := Tokenize(raw)
	if err := ValidateTokens(tokens); err != nil {
		return nil, err
	}

	parser := NewParser(tokens)
	root, groupBy, err := parser.parseDerivation()
	if err != nil {
		return nil, err
	}

	if parser.current().Type == TokenError {
		return nil, fmt.Errorf("invalid character in derivation logic: %s", parser.current().Value)
	}
	if parser.current().Type != TokenEOF {
		return nil, fmt.Errorf("unexpected trailing input: %s", parser.describe(parser.current()))
	}

	expr := &Expression{
		Root:      root,
		Raw:       raw,
		GroupBy:   groupBy,
		Aggregate: containsAggregate(root),
	}
	if len(groupBy) > 0 && !expr.Aggregate {
		return nil, fmt.Errorf("GROUP_BY requires an aggregate function (SUM, AVG, COUNT, MIN, MAX)")
	}
	expr.Kind = classify(root)
	expr.Operands = collectOperands(root)

	return expr, nil
}

// parseDerivation parses: expr [GROUP_BY col[, col...] | GROUP BY col[, col...]]
func (p *Parser) parseDerivation() (Node, []string, error) {
	root, err := p.parseExpr()
	if err != nil {
		return nil, nil, err
	}

	var groupBy []string
	switch p.current().Type {
	case TokenGroupBy:
		p.advance()
		groupBy, err = p.parseGroupBy()
	case TokenGroup:
		p.advance()
		if err := p.expect(TokenBy); err != nil {
			return nil, nil, fmt.Errorf("expected BY after GROUP: %w", err)
		}
		groupBy, err = p.parseGroupBy()
	}
	if err != nil {
		return nil, nil, err
	}

	return root, groupBy, nil
}

// parseGroupBy parses a comma-separated column list
func (p *Parser) parseGroupBy() ([]string, error) {
	var columns []string

	for {
		if p.current().Type != TokenIdent {
			return nil, fmt.Errorf("expected column name in GROUP_BY, got %v", p.describe(p.current()))
		}
		ref := columnRef(p.current().Value)
		if err := ValidateColumnName(ref.Column); err != nil {
			return nil, err
		}
		columns = append(columns, ref.Column)
		p.advance()

		if p.current().Type != TokenComma {
			break
		}
		p.advance()
	}

	return columns, nil
}

// columnRef splits an identifier into its qualifier and column name
func columnRef(ident string) *ColumnRef {
	if i := strings.LastIndex(ident, "."); i > 0 && i < len(ident)-1 {
		return &ColumnRef{Qualifier: ident[:i], Column: ident[i+1:]}
	}
	return &ColumnRef{Column: strings.Trim(ident, ".")}
}

// Name returns the reference as written, qualifier included
func (c *ColumnRef) Name() string {
	if c.Qualifier == "" {
		return c.Column
	}
	return c.Qualifier + "." + c.Column
}

// classify assigns the operation kind from the root node
func classify(root Node) Kind {
	switch n := root.(type) {
	case *ParenExpr:
		return classify(n.Inner)
	case *ConcatExpr:
		return KindConcat
	case *ArithmeticExpr, *NegateExpr:
		if containsAggregate(n) {
			return KindAggregate
		}
		return KindArithmetic
	case *CaseExpr:
		return KindConditional
	case *AggregateCall:
		return KindAggregate
	case *LookupExpr:
		return KindLookup
	case *FunctionCall:
		if containsAggregate(n) {
			return KindAggregate
		}
		return KindFunction
	case *CheckExpr:
		return KindCheck
	default:
		return KindCopy
	}
}

// containsAggregate reports whether an aggregate call appears under node
func containsAggregate(node Node) bool {
	found := false
	Walk(node, func(n Node) bool {
		if _, ok := n.(*AggregateCall); ok {
			found = true
		}
		return !found
	})
	return found
}

// collectOperands lists column references and literals in source order
func collectOperands(root Node) []Operand {
	var operands []Operand
	Walk(root, func(n Node) bool {
		switch v := n.(type) {
		case *ColumnRef:
			operands = append(operands, Operand{Column: v.Name()})
		case *Literal:
			operands = append(operands, Operand{Literal: v})
		case *AggregateCall:
			if v.Star {
				operands = append(operands, Operand{Column: "*"})
			}
		case *LookupExpr:
			if v.KeyColumn != "" {
				operands = append(operands, Operand{Column: v.KeyColumn})
			}
		}
		return true
	})
	return operands
}

// Walk visits node and its descendants depth-first in source order,
// including the operands of CASE conditions. Returning false from fn skips
// the children of the current node.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}

	switch n := node.(type) {
	case *ParenExpr:
		Walk(n.Inner, fn)
	case *NegateExpr:
		Walk(n.Inner, fn)
	case *ConcatExpr:
		for _, part := range n.Parts {
			Walk(part, fn)
		}
	case *ArithmeticExpr:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *CaseExpr:
		for _, when := range n.Whens {
			WalkPredicate(when.Condition, fn)
			Walk(when.Result, fn)
		}
		if n.Else != nil {
			Walk(n.Else, fn)
		}
	case *AggregateCall:
		if n.Arg != nil {
			Walk(n.Arg, fn)
		}
	case *FunctionCall:
		for _, arg := range n.Args {
			Walk(arg, fn)
		}
	case *CheckExpr:
		for i := range n.Columns {
			Walk(&n.Columns[i], fn)
		}
		if n.Min != nil {
			Walk(n.Min, fn)
		}
		if n.Max != nil {
			Walk(n.Max, fn)
		}
	}
}

// WalkPredicate visits the operand nodes of a predicate
func WalkPredicate(pred Predicate, fn func(Node) bool) {
	switch pr := pred.(type) {
	case *Comparison:
		Walk(pr.Left, fn)
		Walk(pr.Right, fn)
	case *LogicalExpr:
		WalkPredicate(pr.Left, fn)
		WalkPredicate(pr.Right, fn)
	case *GroupedPredicate:
		WalkPredicate(pr.Inner, fn)
	}
}
