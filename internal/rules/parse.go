package rules

import (
	"fmt"
	"strings"
)

// Parse turns one raw rule token vector (as decoded from the layout's
// JSON array-of-strings grammar) into a Rule. Malformed rules are
// rejected here, at load time, per §9's design note — never at
// evaluation time.
func Parse(tokens []string) (Rule, error) {
	if len(tokens) == 0 {
		return Rule{}, fmt.Errorf("rule: empty token vector")
	}

	kind := Kind(strings.ToUpper(tokens[0]))
	switch kind {
	case KindCreate, KindDelete, KindModify, KindAllow, KindDisallow, KindRequire:
		if len(tokens) != 2 {
			return Rule{}, fmt.Errorf("rule: %s expects exactly one pattern argument, got %d", kind, len(tokens)-1)
		}
		return Rule{Kind: kind, Pattern: tokens[1]}, nil

	case KindMatch:
		return parseMatch(tokens)

	default:
		return Rule{}, fmt.Errorf("rule: unknown rule kind %q", tokens[0])
	}
}

// parseMatch parses:
//
//	MATCH <pattern> [IN <src_prefix>] WITH (MATERIALS|PRODUCTS) [IN <dst_prefix>] FROM <step_name>
func parseMatch(tokens []string) (Rule, error) {
	if len(tokens) < 5 {
		return Rule{}, fmt.Errorf("rule: MATCH requires at least pattern, WITH, MATERIALS|PRODUCTS, FROM, step_name")
	}

	r := Rule{Kind: KindMatch, Pattern: tokens[1]}
	i := 2

	if i < len(tokens) && strings.EqualFold(tokens[i], "IN") {
		if i+1 >= len(tokens) {
			return Rule{}, fmt.Errorf("rule: MATCH IN missing src_prefix")
		}
		r.SrcPrefix = normalizePrefix(tokens[i+1])
		i += 2
	}

	if i >= len(tokens) || !strings.EqualFold(tokens[i], "WITH") {
		return Rule{}, fmt.Errorf("rule: MATCH expected WITH at position %d", i)
	}
	i++

	if i >= len(tokens) {
		return Rule{}, fmt.Errorf("rule: MATCH missing MATERIALS|PRODUCTS after WITH")
	}
	switch strings.ToUpper(tokens[i]) {
	case "MATERIALS":
		r.MatchOn = SourceMaterials
	case "PRODUCTS":
		r.MatchOn = SourceProducts
	default:
		return Rule{}, fmt.Errorf("rule: MATCH WITH expects MATERIALS or PRODUCTS, got %q", tokens[i])
	}
	i++

	if i < len(tokens) && strings.EqualFold(tokens[i], "IN") {
		if i+1 >= len(tokens) {
			return Rule{}, fmt.Errorf("rule: MATCH IN (destination) missing dst_prefix")
		}
		r.DstPrefix = normalizePrefix(tokens[i+1])
		i += 2
	}

	if i >= len(tokens) || !strings.EqualFold(tokens[i], "FROM") {
		return Rule{}, fmt.Errorf("rule: MATCH expected FROM at position %d", i)
	}
	i++

	if i >= len(tokens) {
		return Rule{}, fmt.Errorf("rule: MATCH FROM missing step_name")
	}
	r.FromStep = tokens[i]
	i++

	if i != len(tokens) {
		return Rule{}, fmt.Errorf("rule: MATCH has %d trailing unexpected tokens", len(tokens)-i)
	}

	return r, nil
}

// normalizePrefix strips a trailing slash so "dir" and "dir/" compare
// identically, per §4.1's trailing-slash normalization.
func normalizePrefix(p string) string {
	return strings.TrimSuffix(p, "/")
}

// ParseList parses an ordered list of raw rule token vectors.
func ParseList(rawRules [][]string) (List, error) {
	out := make(List, 0, len(rawRules))
	for idx, tokens := range rawRules {
		r, err := Parse(tokens)
		if err != nil {
			return nil, fmt.Errorf("rule #%d: %w", idx, err)
		}
		out = append(out, r)
	}
	return out, nil
}
