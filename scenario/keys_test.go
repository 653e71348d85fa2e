package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveJoinKeys(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		target  string
		want    []KeyPair
		wantErr bool
	}{
		{
			name:   "single key",
			source: "customer_id",
			target: "customer_id",
			want:   []KeyPair{{Source: "customer_id", Target: "customer_id"}},
		},
		{
			name:   "composite key with differing names",
			source: "customer_id, account_type",
			target: " cust_id ,acct_type ",
			want: []KeyPair{
				{Source: "customer_id", Target: "cust_id"},
				{Source: "account_type", Target: "acct_type"},
			},
		},
		{
			name:   "empty tokens dropped",
			source: "a,,b,",
			target: "x, ,y",
			want:   []KeyPair{{Source: "a", Target: "x"}, {Source: "b", Target: "y"}},
		},
		{name: "length mismatch", source: "a,b", target: "x", wantErr: true},
		{name: "empty source", source: " , ", target: "x", wantErr: true},
		{name: "empty target", source: "a", target: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveJoinKeys(tt.source, tt.target)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsConfigError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPredicate_OneEqualityPerPosition(t *testing.T) {
	pairs, err := ResolveJoinKeys("customer_id,account_type", "cust_id,acct_type")
	require.NoError(t, err)

	assert.Equal(t,
		"s.customer_id = t.cust_id AND s.account_type = t.acct_type",
		Predicate(pairs, "s", "t"))
}

func TestParseReferenceKeys(t *testing.T) {
	pairs, err := ParseReferenceKeys("segment_code, region=region_cd")
	require.NoError(t, err)
	assert.Equal(t, []KeyPair{
		{Source: "segment_code", Target: "segment_code"},
		{Source: "region", Target: "region_cd"},
	}, pairs)

	_, err = ParseReferenceKeys("=code")
	assert.Error(t, err)

	pairs, err = ParseReferenceKeys("")
	require.NoError(t, err)
	assert.Empty(t, pairs)
}
