package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBusinessConditions(t *testing.T) {
	expr, err := ParseBusinessConditions("balance > 50000 THEN Premium; balance > 10000 then 'Gold'; ELSE Standard")
	require.NoError(t, err)
	assert.Equal(t, KindConditional, expr.Kind)

	c := expr.Root.(*CaseExpr)
	require.Len(t, c.Whens, 2)
	assert.Equal(t, &Literal{Kind: LiteralString, Value: "Premium"}, c.Whens[0].Result)
	assert.Equal(t, &Literal{Kind: LiteralString, Value: "Gold"}, c.Whens[1].Result)
	assert.Equal(t, &Literal{Kind: LiteralString, Value: "Standard"}, c.Else)

	cmp := c.Whens[0].Condition.(*Comparison)
	assert.Equal(t, &ColumnRef{Column: "balance"}, cmp.Left)
	assert.Equal(t, &Literal{Kind: LiteralNumber, Value: "50000"}, cmp.Right)
}

func TestParseBusinessConditions_QuotedSeparator(t *testing.T) {
	expr, err := ParseBusinessConditions("note LIKE '%;%' THEN 'semi'; ELSE 'plain'")
	require.NoError(t, err)
	c := expr.Root.(*CaseExpr)
	require.Len(t, c.Whens, 1)
	assert.Equal(t, "%;%", c.Whens[0].Condition.(*Comparison).Right.(*Literal).Value)
}

func TestParseBusinessConditions_ColumnResult(t *testing.T) {
	expr, err := ParseBusinessConditions("WHEN type = 'X' THEN s.alt_name")
	require.NoError(t, err)
	c := expr.Root.(*CaseExpr)
	assert.Equal(t, &ColumnRef{Qualifier: "s", Column: "alt_name"}, c.Whens[0].Result)
}

func TestParseBusinessConditions_Errors(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		unsupported bool
	}{
		{name: "not equal", text: "status != 'A' THEN x", unsupported: true},
		{name: "in list", text: "status IN ('A','B') THEN x", unsupported: true},
		{name: "missing then", text: "balance > 5 Premium"},
		{name: "only else", text: "ELSE Standard"},
		{name: "two else", text: "a = 1 THEN x; ELSE y; ELSE z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBusinessConditions(tt.text)
			require.Error(t, err)
			if tt.unsupported {
				assert.ErrorIs(t, err, ErrUnsupportedOperator)
			}
		})
	}
}

func TestParseBusinessConditions_Empty(t *testing.T) {
	expr, err := ParseBusinessConditions("  ")
	require.NoError(t, err)
	assert.True(t, expr.Empty())
}

func TestParseHardcodedValues(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    []Mapping
		wantErr bool
	}{
		{
			name: "plain pairs keep order",
			text: "P=Premium, S=Standard,G=Gold",
			want: []Mapping{{Key: "P", Value: "Premium"}, {Key: "S", Value: "Standard"}, {Key: "G", Value: "Gold"}},
		},
		{
			name: "quotes stripped",
			text: `'HV'="High Value", 'LV'='Low, Value'`,
			want: []Mapping{{Key: "HV", Value: "High Value"}, {Key: "LV", Value: "Low, Value"}},
		},
		{
			name: "value may contain equals",
			text: "EQ=a=b",
			want: []Mapping{{Key: "EQ", Value: "a=b"}},
		},
		{name: "empty", text: "", want: nil},
		{name: "missing equals", text: "A=1,B", wantErr: true},
		{name: "empty key", text: "=x", wantErr: true},
		{name: "duplicate key", text: "A=1,A=2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHardcodedValues(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
