package query

import (
	"errors"
	"fmt"
)

// Validation constants to keep spreadsheet input bounded
const (
	// MaxLogicLength is the maximum allowed derivation-logic length (64KB)
	MaxLogicLength = 64 * 1024

	// MaxTokens is the maximum number of tokens in one derivation
	MaxTokens = 2000

	// MaxExpressionDepth is the maximum nesting depth for expressions
	MaxExpressionDepth = 100

	// MaxColumnNameLength is the maximum length for a column name
	MaxColumnNameLength = 300
)

var (
	// ErrLogicTooLong is returned when input exceeds MaxLogicLength
	ErrLogicTooLong = errors.New("derivation logic too long")

	// ErrTooManyTokens is returned when input has too many tokens
	ErrTooManyTokens = errors.New("too many tokens in derivation logic")

	// ErrExpressionTooDeep is returned when expression nesting exceeds limit
	ErrExpressionTooDeep = errors.New("expression nesting too deep")

	// ErrColumnNameTooLong is returned when a column name is too long
	ErrColumnNameTooLong = errors.New("column name too long")

	// ErrUnsupportedOperator is returned for condition operators outside
	// =, >, <, >=, <= and LIKE
	ErrUnsupportedOperator = errors.New("unsupported condition operator")

	// ErrUnknownFunction is returned for calls outside the supported vocabulary
	ErrUnknownFunction = errors.New("unknown function")
)

// ValidateLogic checks the raw input length
func ValidateLogic(logic string) error {
	if len(logic) > MaxLogicLength {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrLogicTooLong, len(logic), MaxLogicLength)
	}
	return nil
}

// ValidateColumnName validates column name length
func ValidateColumnName(name string) error {
	if len(name) > MaxColumnNameLength {
		return fmt.Errorf("%w: %d chars (max %d)", ErrColumnNameTooLong, len(name), MaxColumnNameLength)
	}
	return nil
}

// ValidateTokens validates token count
func ValidateTokens(tokens []Token) error {
	if len(tokens) > MaxTokens {
		return fmt.Errorf("%w: %d tokens (max %d)", ErrTooManyTokens, len(tokens), MaxTokens)
	}
	return nil
}

// ExpressionDepthCounter tracks expression nesting depth
type ExpressionDepthCounter struct {
	depth    int
	maxDepth int
}

// NewExpressionDepthCounter creates a new depth counter
func NewExpressionDepthCounter() *ExpressionDepthCounter {
	return &ExpressionDepthCounter{depth: 0, maxDepth: MaxExpressionDepth}
}

// Enter increments depth and returns error if limit exceeded
func (c *ExpressionDepthCounter) Enter() error {
	c.depth++
	if c.depth > c.maxDepth {
		return fmt.Errorf("%w: %d (max %d)", ErrExpressionTooDeep, c.depth, c.maxDepth)
	}
	return nil
}

// Exit decrements depth
func (c *ExpressionDepthCounter) Exit() {
	c.depth--
}

// isUnsupported reports whether err stems from an unsupported operator
func isUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupportedOperator)
}
