package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_ArithmeticPrecedence(t *testing.T) {
	expr, err := ParseStrict("a + b * c")
	require.NoError(t, err)

	add, ok := expr.Root.(*ArithmeticExpr)
	require.True(t, ok)
	assert.Equal(t, TokenPlus, add.Operator)
	assert.Equal(t, &ColumnRef{Column: "a"}, add.Left)

	mul, ok := add.Right.(*ArithmeticExpr)
	require.True(t, ok)
	assert.Equal(t, TokenStar, mul.Operator)
}

func TestParser_LeftAssociative(t *testing.T) {
	expr, err := ParseStrict("a - b - c")
	require.NoError(t, err)

	outer, ok := expr.Root.(*ArithmeticExpr)
	require.True(t, ok)
	assert.Equal(t, &ColumnRef{Column: "c"}, outer.Right)

	inner, ok := outer.Left.(*ArithmeticExpr)
	require.True(t, ok)
	assert.Equal(t, &ColumnRef{Column: "a"}, inner.Left)
}

func TestParser_NegativeLiteralFolded(t *testing.T) {
	expr, err := ParseStrict("balance * -1.5")
	require.NoError(t, err)

	mul := expr.Root.(*ArithmeticExpr)
	assert.Equal(t, &Literal{Kind: LiteralNumber, Value: "-1.5"}, mul.Right)
}

func TestParser_QualifiedColumn(t *testing.T) {
	expr, err := ParseStrict("r.segment_name")
	require.NoError(t, err)
	assert.Equal(t, &ColumnRef{Qualifier: "r", Column: "segment_name"}, expr.Root)
}

func TestParser_CaseWhenChain(t *testing.T) {
	expr, err := ParseStrict(`CASE
		WHEN balance > 100000 THEN "Platinum"
		WHEN balance >= 50000 AND status = 'ACTIVE' THEN "Gold"
		ELSE "Standard"
	END`)
	require.NoError(t, err)

	c, ok := expr.Root.(*CaseExpr)
	require.True(t, ok)
	require.Len(t, c.Whens, 2)

	first := c.Whens[0].Condition.(*Comparison)
	assert.Equal(t, TokenGreater, first.Operator)
	assert.Equal(t, &Literal{Kind: LiteralString, Value: "Platinum"}, c.Whens[0].Result)

	second, ok := c.Whens[1].Condition.(*LogicalExpr)
	require.True(t, ok)
	assert.Equal(t, TokenAnd, second.Operator)

	assert.Equal(t, &Literal{Kind: LiteralString, Value: "Standard"}, c.Else)
}

func TestParser_SimpleCase(t *testing.T) {
	expr, err := ParseStrict("CASE status WHEN 'A' THEN 'Active' WHEN 'C' THEN 'Closed' END")
	require.NoError(t, err)

	c := expr.Root.(*CaseExpr)
	require.Len(t, c.Whens, 2)
	cmp := c.Whens[1].Condition.(*Comparison)
	assert.Equal(t, &ColumnRef{Column: "status"}, cmp.Left)
	assert.Equal(t, TokenEqual, cmp.Operator)
	assert.Equal(t, &Literal{Kind: LiteralString, Value: "C"}, cmp.Right)
	assert.Nil(t, c.Else)
}

func TestParser_NestedIfFlattens(t *testing.T) {
	expr, err := ParseStrict("IF(score >= 750, 'LOW', IF(score >= 650, 'MEDIUM', 'HIGH'))")
	require.NoError(t, err)

	c := expr.Root.(*CaseExpr)
	require.Len(t, c.Whens, 2)
	assert.Equal(t, &Literal{Kind: LiteralString, Value: "MEDIUM"}, c.Whens[1].Result)
	assert.Equal(t, &Literal{Kind: LiteralString, Value: "HIGH"}, c.Else)
}

func TestParser_IfWithoutElse(t *testing.T) {
	expr, err := ParseStrict("IF(flag = 1, 'Y')")
	require.NoError(t, err)
	c := expr.Root.(*CaseExpr)
	assert.Nil(t, c.Else)
}

func TestParser_GroupedConditions(t *testing.T) {
	tests := []struct {
		name  string
		logic string
	}{
		{name: "grouped predicate", logic: "IF((a > 1 OR b > 1) AND c = 'x', 1, 0)"},
		{name: "parenthesized operand", logic: "IF((a + b) > 10, 1, 0)"},
		{name: "parenthesized column", logic: "IF((a) > 10, 1, 0)"},
		{name: "like", logic: "IF(email LIKE '%@bank.com', 'internal', 'external')"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStrict(tt.logic)
			assert.NoError(t, err)
		})
	}

	expr, err := ParseStrict("IF((a > 1 OR b > 1) AND c = 'x', 1, 0)")
	require.NoError(t, err)
	and := expr.Root.(*CaseExpr).Whens[0].Condition.(*LogicalExpr)
	_, grouped := and.Left.(*GroupedPredicate)
	assert.True(t, grouped)

	expr, err = ParseStrict("IF((a + b) > 10, 1, 0)")
	require.NoError(t, err)
	cmp := expr.Root.(*CaseExpr).Whens[0].Condition.(*Comparison)
	_, paren := cmp.Left.(*ParenExpr)
	assert.True(t, paren)
}
