package verify

import (
	"github.com/gzhole/intoto-verify/internal/layoutio"
	"github.com/gzhole/intoto-verify/internal/link"
)

// BuildSummary implements C9: synthesizes one Link standing in for an
// entire successful layout run, for a parent layout's MATCH rules to
// reference when this layout is itself a sublayout. Materials come
// from the first step's recorded materials, products from the last
// step's recorded products, and byproducts.return-value is carried
// from the last step's link (§4.7).
func BuildSummary(name string, steps []layoutio.Step, chain *ChainDict) (*link.Link, error) {
	summary := &link.Link{
		Type: "link",
		Name: name,
	}

	if len(steps) == 0 {
		return summary, nil
	}

	first, ok := chain.Get(steps[0].Name)
	if ok {
		summary.Materials = first.Materials
	}

	last, ok := chain.Get(steps[len(steps)-1].Name)
	if ok {
		summary.Products = last.Products
		summary.Command = last.Command
		if rv, ok := last.ReturnValue(); ok {
			summary.Byproducts = map[string]any{"return-value": rv}
		}
	}

	return summary, nil
}
