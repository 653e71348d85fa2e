package query

import "fmt"

// TokenType represents the type of a token
type TokenType int

const (
	// Keywords
	TokenCase TokenType = iota
	TokenWhen
	TokenThen
	TokenElse
	TokenEnd
	TokenAnd
	TokenOr
	TokenNot
	TokenLike
	TokenIs
	TokenIn
	TokenBetween
	TokenGroup
	TokenBy
	TokenGroupBy // GROUP_BY
	TokenDistinct
	TokenNull

	// Comparison operators
	TokenEqual        // =
	TokenNotEqual     // != or <>
	TokenLess         // <
	TokenGreater      // >
	TokenLessEqual    // <=
	TokenGreaterEqual // >=

	// Arithmetic and concatenation operators
	TokenPlus      // +
	TokenMinus     // -
	TokenStar      // *
	TokenSlash     // /
	TokenAmpersand // &
	TokenConcat    // ||

	// Literals
	TokenString
	TokenNumber
	TokenIdent
	TokenBool

	// Delimiters
	TokenComma      // ,
	TokenLeftParen  // (
	TokenRightParen // )

	// Special
	TokenEOF
	TokenError
)

var tokenNames = map[TokenType]string{
	TokenCase:         "CASE",
	TokenWhen:         "WHEN",
	TokenThen:         "THEN",
	TokenElse:         "ELSE",
	TokenEnd:          "END",
	TokenAnd:          "AND",
	TokenOr:           "OR",
	TokenNot:          "NOT",
	TokenLike:         "LIKE",
	TokenIs:           "IS",
	TokenIn:           "IN",
	TokenBetween:      "BETWEEN",
	TokenGroup:        "GROUP",
	TokenBy:           "BY",
	TokenGroupBy:      "GROUP_BY",
	TokenDistinct:     "DISTINCT",
	TokenNull:         "NULL",
	TokenEqual:        "=",
	TokenNotEqual:     "!=",
	TokenLess:         "<",
	TokenGreater:      ">",
	TokenLessEqual:    "<=",
	TokenGreaterEqual: ">=",
	TokenPlus:         "+",
	TokenMinus:        "-",
	TokenStar:         "*",
	TokenSlash:        "/",
	TokenAmpersand:    "&",
	TokenConcat:       "||",
	TokenString:       "string",
	TokenNumber:       "number",
	TokenIdent:        "identifier",
	TokenBool:         "boolean",
	TokenComma:        ",",
	TokenLeftParen:    "(",
	TokenRightParen:   ")",
	TokenEOF:          "end of input",
	TokenError:        "invalid character",
}

// String returns a readable name for the token type
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Value string
}

// Kind classifies a derivation expression by the operation it performs
type Kind int

const (
	KindCopy        Kind = iota // bare column or literal (direct mapping)
	KindConcat                  // CONCAT(...), a & b, a || b
	KindArithmetic              // infix + - * /
	KindConditional             // IF(...) / CASE WHEN ... END
	KindAggregate               // SUM/AVG/COUNT/MIN/MAX with implied GROUP BY
	KindLookup                  // VLOOKUP-style reference join
	KindFunction                // whitelisted scalar function
	KindCheck                   // completeness, range and format checks
)

func (k Kind) String() string {
	switch k {
	case KindCopy:
		return "copy"
	case KindConcat:
		return "concat"
	case KindArithmetic:
		return "arithmetic"
	case KindConditional:
		return "conditional"
	case KindAggregate:
		return "aggregate"
	case KindLookup:
		return "lookup"
	case KindFunction:
		return "function"
	case KindCheck:
		return "check"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Expression is the parsed form of one derivation-logic string.
//
// It is built once by Parse or ParseStrict and never mutated afterwards.
type Expression struct {
	Kind      Kind
	Root      Node
	Operands  []Operand // column references and literals in order of appearance
	Aggregate bool      // an aggregate call appears somewhere in Root
	GroupBy   []string  // explicit GROUP_BY columns (only when Aggregate)
	Fallback  bool      // Root is a pass-through RawExpr
	Err       error     // parse error that caused the fallback
	Raw       string    // original input, trimmed
}

// Empty reports whether the expression carries nothing to compute
func (e *Expression) Empty() bool {
	return e == nil || (e.Root == nil && len(e.Operands) == 0)
}

// Operand is a column reference or literal referenced by an expression
type Operand struct {
	Column  string // set for column references
	Literal *Literal
}

// IsColumn reports whether the operand is a column reference
func (o Operand) IsColumn() bool {
	return o.Literal == nil
}

// Node is one variant of the derivation AST
type Node interface {
	node()
}

// ColumnRef references a column. Qualifier is the optional alias prefix
// written in the input (e.g. "r" in r.segment_name).
type ColumnRef struct {
	Qualifier string
	Column    string
}

// LiteralKind distinguishes literal types
type LiteralKind int

const (
	LiteralString LiteralKind = iota
	LiteralNumber
	LiteralBool
	LiteralNull
)

// Literal is a constant value. Value holds the unquoted text.
type Literal struct {
	Kind  LiteralKind
	Value string
}

// ParenExpr is an explicitly parenthesized expression
type ParenExpr struct {
	Inner Node
}

// ConcatExpr concatenates its parts in order
type ConcatExpr struct {
	Parts []Node
}

// ArithmeticExpr is an infix arithmetic operation
type ArithmeticExpr struct {
	Left     Node
	Operator TokenType // TokenPlus, TokenMinus, TokenStar, TokenSlash
	Right    Node
}

// NegateExpr is a unary minus
type NegateExpr struct {
	Inner Node
}

// CaseExpr represents IF(...) and CASE WHEN ... END
type CaseExpr struct {
	Whens []WhenClause
	Else  Node // nil when no ELSE branch
}

// WhenClause is a single WHEN condition and its result
type WhenClause struct {
	Condition Predicate
	Result    Node
}

// AggregateCall is SUM, AVG, COUNT, MIN or MAX
type AggregateCall struct {
	Func     string // upper case
	Arg      Node   // nil when Star
	Star     bool   // COUNT(*)
	Distinct bool
}

// LookupExpr is a VLOOKUP-style join against a reference table.
// ReferenceKey defaults to KeyColumn when empty.
type LookupExpr struct {
	KeyColumn    string
	Table        string
	ReturnColumn string
	ReferenceKey string
}

// FunctionCall is a whitelisted scalar function
type FunctionCall struct {
	Name string // upper case
	Args []Node
}

// CheckType identifies a built-in validation check
type CheckType int

const (
	CheckNotNull CheckType = iota // CHECK_NOT_NULL(c1, c2, ...)
	CheckRange                    // RANGE_CHECK(col, min, max)
	CheckEmail                    // VALIDATE_EMAIL_FORMAT(col)
	CheckPattern                  // VALIDATE_FORMAT(col, 'pattern')
)

// CheckExpr is a completeness, range or format check producing a label
type CheckExpr struct {
	Check   CheckType
	Columns []ColumnRef
	Min     *Literal // CheckRange
	Max     *Literal // CheckRange
	Pattern string   // CheckPattern
}

// RawExpr is the pass-through form used when parsing fails
type RawExpr struct {
	Text string
}

func (*ColumnRef) node()      {}
func (*Literal) node()        {}
func (*ParenExpr) node()      {}
func (*ConcatExpr) node()     {}
func (*ArithmeticExpr) node() {}
func (*NegateExpr) node()     {}
func (*CaseExpr) node()       {}
func (*AggregateCall) node()  {}
func (*LookupExpr) node()     {}
func (*FunctionCall) node()   {}
func (*CheckExpr) node()      {}
func (*RawExpr) node()        {}

// Predicate is a boolean condition inside CASE/IF
type Predicate interface {
	predicate()
}

// Comparison compares two operands with =, >, <, >=, <= or LIKE
type Comparison struct {
	Left     Node
	Operator TokenType
	Right    Node
}

// LogicalExpr combines two predicates with AND or OR
type LogicalExpr struct {
	Left     Predicate
	Operator TokenType // TokenAnd or TokenOr
	Right    Predicate
}

// GroupedPredicate is a parenthesized predicate
type GroupedPredicate struct {
	Inner Predicate
}

func (*Comparison) predicate()       {}
func (*LogicalExpr) predicate()      {}
func (*GroupedPredicate) predicate() {}

// Mapping is one key=value pair from Hardcoded_Values
type Mapping struct {
	Key   string
	Value string
}
