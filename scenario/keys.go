package scenario

import (
	"fmt"
	"strings"
)

// SplitKeys splits a comma-separated key declaration, trimming whitespace
// and dropping empty tokens
func SplitKeys(declared string) []string {
	var keys []string
	for _, key := range strings.Split(declared, ",") {
		key = strings.TrimSpace(key)
		if key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// ResolveJoinKeys pairs the Source_Join_Key and Target_Join_Key declarations
// position by position. Differing lengths are a configuration error; the
// lists are never truncated to fit.
func ResolveJoinKeys(source, target string) ([]KeyPair, error) {
	sourceKeys := SplitKeys(source)
	targetKeys := SplitKeys(target)

	if len(sourceKeys) == 0 {
		return nil, &ConfigError{Field: ColSourceJoinKey, Reason: "at least one join key is required"}
	}
	if len(targetKeys) == 0 {
		return nil, &ConfigError{Field: ColTargetJoinKey, Reason: "at least one join key is required"}
	}
	if len(sourceKeys) != len(targetKeys) {
		reason := fmt.Sprintf("%d source key(s) %v but %d target key(s) %v",
			len(sourceKeys), sourceKeys, len(targetKeys), targetKeys)
		return nil, &ConfigError{Field: ColTargetJoinKey, Reason: reason}
	}

	pairs := make([]KeyPair, len(sourceKeys))
	for i := range sourceKeys {
		pairs[i] = KeyPair{Source: sourceKeys[i], Target: targetKeys[i]}
	}
	return pairs, nil
}

// Predicate renders the join condition as one equality per key position,
// ANDed in declared order:
//
//	s.customer_id = t.cust_id AND s.account_type = t.acct_type
func Predicate(pairs []KeyPair, left, right string) string {
	parts := make([]string, len(pairs))
	for i, pair := range pairs {
		parts[i] = fmt.Sprintf("%s.%s = %s.%s", left, pair.Source, right, pair.Target)
	}
	return strings.Join(parts, " AND ")
}

// ParseReferenceKeys reads a Reference_Join_Key declaration. Each entry is
// either a column present on both sides ("segment_code") or an explicit
// "source_col=reference_col" pair.
func ParseReferenceKeys(declared string) ([]KeyPair, error) {
	var pairs []KeyPair
	for _, entry := range SplitKeys(declared) {
		source, ref, found := strings.Cut(entry, "=")
		source = strings.TrimSpace(source)
		ref = strings.TrimSpace(ref)
		if !found {
			ref = source
		}
		if source == "" || ref == "" {
			return nil, &ConfigError{Field: ColReferenceJoinKey, Reason: fmt.Sprintf("malformed key %q", entry)}
		}
		pairs = append(pairs, KeyPair{Source: source, Target: ref})
	}
	return pairs, nil
}
