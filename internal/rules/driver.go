package rules

import (
	"github.com/gzhole/intoto-verify/internal/artifact"
	"github.com/gzhole/intoto-verify/internal/verifyerr"
)

// RunList is the Item Rule Driver (C2): seed a queue from the selected
// artifact map, run the rule list in order against it, and return the
// residual queue. Callers that want the implicit trailing-DISALLOW
// semantics get it for free because a trailing "DISALLOW *" is itself
// just another rule in the list; RunList does not invent one. A rule
// list with no trailing catch-all does not fail on a leftover queue: it
// is returned as the residual, and the orchestrator ignores it
// (§4.2.3 — absence of a catch-all is permissive).
func RunList(list List, sourceType SourceType, materials, products artifact.Map, chain ChainLookup) ([]string, error) {
	var seed artifact.Map
	switch sourceType {
	case SourceMaterials:
		seed = materials
	case SourceProducts:
		seed = products
	default:
		return nil, verifyerr.Format("rules: source type must be materials or products")
	}

	queue := seed.Paths()
	ctx := Context{Materials: materials, Products: products, Source: sourceType, Chain: chain}

	for _, rule := range list {
		var err error
		queue, err = Eval(rule, queue, ctx)
		if err != nil {
			return nil, err
		}
	}

	return queue, nil
}
