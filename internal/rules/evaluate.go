package rules

import (
	"fmt"

	"github.com/gzhole/intoto-verify/internal/artifact"
	"github.com/gzhole/intoto-verify/internal/verifyerr"
)

// ChainLookup resolves a step name to the materials/products of the
// (already threshold-resolved, sublayout-expanded) canonical link for
// that step. Implemented by the Chain Link Dictionary (internal/verify).
type ChainLookup interface {
	Step(name string) (materials, products artifact.Map, ok bool)
}

// Context carries the state C1 needs beyond the rule itself: the full
// materials/products maps of the current item, which side the queue
// being evaluated was seeded from, and (for MATCH) a way to resolve
// other steps.
type Context struct {
	Materials artifact.Map
	Products  artifact.Map
	Source    SourceType
	Chain     ChainLookup
}

// Eval applies one rule to queue and returns the residual queue, or a
// RuleVerificationError if the rule's contract is violated. queue is
// never mutated; the input queue is always a subset of... rather, the
// output queue is always a subset of the input queue (universal
// invariant, §8).
func Eval(rule Rule, queue []string, ctx Context) ([]string, error) {
	switch rule.Kind {
	case KindCreate:
		return evalCreate(rule, queue, ctx)
	case KindDelete:
		return evalDelete(rule, queue, ctx)
	case KindModify:
		return evalModify(rule, queue, ctx)
	case KindAllow:
		return evalAllow(rule, queue), nil
	case KindDisallow:
		return evalDisallow(rule, queue)
	case KindRequire:
		return evalRequire(rule, queue)
	case KindMatch:
		return evalMatch(rule, queue, ctx)
	default:
		return nil, verifyerr.Formatf("rule: unknown kind %q", rule.Kind)
	}
}

// evalCreate removes, from the products queue, paths matching the
// pattern that are NOT also materials of the same item. A matching
// path that is also a material was not created, and is left in the
// queue for a later rule (e.g. a trailing DISALLOW) to catch.
func evalCreate(rule Rule, queue []string, ctx Context) ([]string, error) {
	matched := filterQueue(queue, "", rule.Pattern)
	remove := map[string]bool{}
	for _, p := range matched {
		if _, isMaterial := ctx.Materials[p]; !isMaterial {
			remove[p] = true
		}
	}
	return removeAll(queue, remove), nil
}

// evalDelete removes, from the materials queue, paths matching the
// pattern that are NOT also products of the same item.
func evalDelete(rule Rule, queue []string, ctx Context) ([]string, error) {
	matched := filterQueue(queue, "", rule.Pattern)
	remove := map[string]bool{}
	for _, p := range matched {
		if _, isProduct := ctx.Products[p]; !isProduct {
			remove[p] = true
		}
	}
	return removeAll(queue, remove), nil
}

// evalModify removes, from the queue, every path present in both
// materials and products and matching the pattern whose hashes differ.
// A path present on only one side, or whose hashes are equal, is left
// in the queue for a later rule (e.g. a trailing DISALLOW) to catch —
// MODIFY itself never fails (§4.1).
func evalModify(rule Rule, queue []string, ctx Context) ([]string, error) {
	matched := filterQueue(queue, "", rule.Pattern)
	remove := map[string]bool{}
	for _, p := range matched {
		mh, inMaterials := ctx.Materials[p]
		ph, inProducts := ctx.Products[p]
		if !inMaterials || !inProducts {
			continue
		}
		if !mh.Equal(ph) {
			remove[p] = true
		}
	}
	return removeAll(queue, remove), nil
}

// evalAllow removes matching paths from the queue. Never fails.
func evalAllow(rule Rule, queue []string) []string {
	matched := filterQueue(queue, "", rule.Pattern)
	return removeAll(queue, toSet(matched))
}

// evalDisallow fails if the queue still contains any matching path.
func evalDisallow(rule Rule, queue []string) ([]string, error) {
	matched := filterQueue(queue, "", rule.Pattern)
	if len(matched) > 0 {
		return nil, verifyerr.RuleViolation(fmt.Sprintf("DISALLOW %s: disallowed path(s) present: %v", rule.Pattern, matched))
	}
	return queue, nil
}

// evalRequire fails if the queue does not contain at least one
// matching path.
func evalRequire(rule Rule, queue []string) ([]string, error) {
	matched := filterQueue(queue, "", rule.Pattern)
	if len(matched) == 0 {
		return nil, verifyerr.RuleViolation(fmt.Sprintf("REQUIRE %s: no matching path present", rule.Pattern))
	}
	return queue, nil
}

// evalMatch resolves the FROM step in the Chain Link Dictionary. A
// missing step is NOT an error: the rule matches nothing and the queue
// passes through unchanged (§4.1, §9's design note on MATCH being a
// constraint, not an existence assertion).
func evalMatch(rule Rule, queue []string, ctx Context) ([]string, error) {
	if ctx.Chain == nil {
		return queue, nil
	}
	dstMaterials, dstProducts, ok := ctx.Chain.Step(rule.FromStep)
	if !ok {
		return queue, nil
	}

	var dst artifact.Map
	switch rule.MatchOn {
	case SourceMaterials:
		dst = dstMaterials
	case SourceProducts:
		dst = dstProducts
	default:
		return nil, verifyerr.Formatf("MATCH rule: invalid destination source type %q", rule.MatchOn)
	}

	dstPattern := withPrefix(rule.DstPrefix, rule.Pattern)
	dstBySuffix := map[string]artifact.HashSet{}
	for p, h := range dst {
		if !matchPattern(p, dstPattern) {
			continue
		}
		suffix, ok := stripPrefix(p, rule.DstPrefix)
		if !ok {
			continue
		}
		dstBySuffix[suffix] = h
	}

	srcMatched := filterQueue(queue, rule.SrcPrefix, rule.Pattern)
	remove := map[string]bool{}
	for _, p := range srcMatched {
		suffix, ok := stripPrefix(p, rule.SrcPrefix)
		if !ok {
			continue
		}
		dstHash, ok := dstBySuffix[suffix]
		if !ok {
			continue // unmatched source path: retained
		}
		var srcHash artifact.HashSet
		switch ctx.Source {
		case SourceMaterials:
			srcHash = ctx.Materials[p]
		case SourceProducts:
			srcHash = ctx.Products[p]
		default:
			return nil, verifyerr.Formatf("MATCH rule: unknown source side %q", ctx.Source)
		}
		if srcHash.Equal(dstHash) {
			remove[p] = true
		}
		// mismatched hash: retained (a later DISALLOW catches it)
	}

	return removeAll(queue, remove), nil
}
