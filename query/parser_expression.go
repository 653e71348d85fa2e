package query

import (
	"fmt"
	"strings"
)

// parseExpr parses concatenation chains (lowest precedence): a & b || c
func (p *Parser) parseExpr() (Node, error) {
	if err := p.depthCounter.Enter(); err != nil {
		return nil, err
	}
	defer p.depthCounter.Exit()

	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	if !isConcatOperator(p.current().Type) {
		return left, nil
	}

	parts := []Node{left}
	for isConcatOperator(p.current().Type) {
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		parts = append(parts, right)
	}

	return &ConcatExpr{Parts: parts}, nil
}

func isConcatOperator(t TokenType) bool {
	return t == TokenAmpersand || t == TokenConcat
}

// parseAdditive parses + and - (left associative)
func (p *Parser) parseAdditive() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenPlus || p.current().Type == TokenMinus {
		op := p.current().Type
		p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &ArithmeticExpr{Left: left, Operator: op, Right: right}
	}

	return left, nil
}

// parseTerm parses * and / (higher precedence than + and -)
func (p *Parser) parseTerm() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenStar || p.current().Type == TokenSlash {
		op := p.current().Type
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ArithmeticExpr{Left: left, Operator: op, Right: right}
	}

	return left, nil
}

// parseUnary parses a leading sign. Negative number literals are folded.
func (p *Parser) parseUnary() (Node, error) {
	switch p.current().Type {
	case TokenPlus:
		p.advance()
		return p.parseUnary()
	case TokenMinus:
		if err := p.depthCounter.Enter(); err != nil {
			return nil, err
		}
		defer p.depthCounter.Exit()

		p.advance()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if lit, ok := inner.(*Literal); ok && lit.Kind == LiteralNumber {
			if strings.HasPrefix(lit.Value, "-") {
				return &Literal{Kind: LiteralNumber, Value: lit.Value[1:]}, nil
			}
			return &Literal{Kind: LiteralNumber, Value: "-" + lit.Value}, nil
		}
		return &NegateExpr{Inner: inner}, nil
	}
	return p.parsePrimary()
}

// parsePrimary parses literals, column references, calls, CASE and
// parenthesized expressions
func (p *Parser) parsePrimary() (Node, error) {
	tok := p.current()

	switch tok.Type {
	case TokenNumber:
		p.advance()
		return &Literal{Kind: LiteralNumber, Value: tok.Value}, nil
	case TokenString:
		p.advance()
		return &Literal{Kind: LiteralString, Value: tok.Value}, nil
	case TokenBool:
		p.advance()
		return &Literal{Kind: LiteralBool, Value: strings.ToUpper(tok.Value)}, nil
	case TokenNull:
		p.advance()
		return &Literal{Kind: LiteralNull, Value: "NULL"}, nil
	case TokenLeftParen:
		if err := p.depthCounter.Enter(); err != nil {
			return nil, err
		}
		defer p.depthCounter.Exit()

		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRightParen); err != nil {
			return nil, fmt.Errorf("unbalanced parentheses: %w", err)
		}
		return &ParenExpr{Inner: inner}, nil
	case TokenCase:
		return p.parseCase()
	case TokenIdent:
		if p.peek().Type == TokenLeftParen {
			return p.parseCall(tok.Value)
		}
		p.advance()
		ref := columnRef(tok.Value)
		if err := ValidateColumnName(ref.Column); err != nil {
			return nil, err
		}
		return ref, nil
	case TokenError:
		return nil, fmt.Errorf("invalid character in derivation logic: %s", tok.Value)
	case TokenEOF:
		return nil, fmt.Errorf("unexpected end of input")
	default:
		return nil, fmt.Errorf("unexpected %s", p.describe(tok))
	}
}

// parseCase parses:
//
//	CASE WHEN cond THEN expr [WHEN ...] [ELSE expr] END
//	CASE operand WHEN value THEN expr [WHEN ...] [ELSE expr] END
func (p *Parser) parseCase() (Node, error) {
	if err := p.depthCounter.Enter(); err != nil {
		return nil, err
	}
	defer p.depthCounter.Exit()

	p.advance() // consume CASE

	var operand Node
	if p.current().Type != TokenWhen {
		var err error
		operand, err = p.parseExpr()
		if err != nil {
			return nil, fmt.Errorf("failed to parse CASE operand: %w", err)
		}
	}

	expr := &CaseExpr{}
	for p.current().Type == TokenWhen {
		p.advance()

		var cond Predicate
		if operand != nil {
			value, err := p.parseExpr()
			if err != nil {
				return nil, fmt.Errorf("failed to parse WHEN value: %w", err)
			}
			cond = &Comparison{Left: operand, Operator: TokenEqual, Right: value}
		} else {
			var err error
			cond, err = p.parseCondition()
			if err != nil {
				return nil, fmt.Errorf("failed to parse WHEN condition: %w", err)
			}
		}

		if err := p.expect(TokenThen); err != nil {
			return nil, fmt.Errorf("expected THEN after WHEN condition: %w", err)
		}
		result, err := p.parseExpr()
		if err != nil {
			return nil, fmt.Errorf("failed to parse THEN result: %w", err)
		}
		expr.Whens = append(expr.Whens, WhenClause{Condition: cond, Result: result})
	}

	if len(expr.Whens) == 0 {
		return nil, fmt.Errorf("CASE requires at least one WHEN clause")
	}

	if p.current().Type == TokenElse {
		p.advance()
		elseExpr, err := p.parseExpr()
		if err != nil {
			return nil, fmt.Errorf("failed to parse ELSE result: %w", err)
		}
		expr.Else = elseExpr
	}

	if err := p.expect(TokenEnd); err != nil {
		return nil, fmt.Errorf("expected END to close CASE: %w", err)
	}

	return expr, nil
}

// parseCondition parses a boolean condition: OR has the lowest precedence
func (p *Parser) parseCondition() (Predicate, error) {
	if err := p.depthCounter.Enter(); err != nil {
		return nil, err
	}
	defer p.depthCounter.Exit()

	left, err := p.parseAndCondition()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenOr {
		p.advance()
		right, err := p.parseAndCondition()
		if err != nil {
			return nil, err
		}
		left = &LogicalExpr{Left: left, Operator: TokenOr, Right: right}
	}

	return left, nil
}

// parseAndCondition parses AND chains
func (p *Parser) parseAndCondition() (Predicate, error) {
	left, err := p.parseConditionPrimary()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenAnd {
		p.advance()
		right, err := p.parseConditionPrimary()
		if err != nil {
			return nil, err
		}
		left = &LogicalExpr{Left: left, Operator: TokenAnd, Right: right}
	}

	return left, nil
}

// parseConditionPrimary parses a parenthesized condition or a comparison.
// A leading parenthesis is ambiguous, (a > 1) versus (a + b) > 1, so the
// grouped form is tried first and the parser backtracks if it does not fit.
func (p *Parser) parseConditionPrimary() (Predicate, error) {
	if p.current().Type == TokenNot {
		return nil, fmt.Errorf("%w: NOT", ErrUnsupportedOperator)
	}

	if p.current().Type == TokenLeftParen {
		saved := p.pos
		p.advance()
		inner, err := p.parseCondition()
		if err == nil && p.current().Type == TokenRightParen {
			p.advance()
			return &GroupedPredicate{Inner: inner}, nil
		}
		if err != nil && isUnsupported(err) {
			return nil, err
		}
		p.pos = saved
	}

	return p.parseComparison()
}

// parseComparison parses: expr (= | > | < | >= | <= | LIKE) expr
func (p *Parser) parseComparison() (Predicate, error) {
	left, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	op := p.current()
	switch op.Type {
	case TokenEqual, TokenLess, TokenGreater, TokenLessEqual, TokenGreaterEqual, TokenLike:
		p.advance()
	case TokenNotEqual, TokenIs, TokenIn, TokenBetween, TokenNot:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperator, strings.ToUpper(op.Value))
	case TokenError:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperator, op.Value)
	default:
		return nil, fmt.Errorf("expected comparison operator, got %v", p.describe(op))
	}

	right, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	return &Comparison{Left: left, Operator: op.Type, Right: right}, nil
}
