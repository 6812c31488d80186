package verify

import (
	"github.com/gzhole/intoto-verify/internal/artifact"
	"github.com/gzhole/intoto-verify/internal/link"
)

// ChainDict is the Chain Link Dictionary: the running map from step
// name to that step's canonical, threshold-resolved (and, for
// sublayout steps, collapsed) Link. It satisfies rules.ChainLookup so
// MATCH rules (C1) can resolve a FROM step while the dictionary is
// still being built. The orchestrator writes to it once per step (the
// link C4 selected, or C6's collapsed sublayout link) and once per
// inspection (C5's synthesized link); rule evaluation only reads.
type ChainDict struct {
	links map[string]*link.Link
}

// NewChainDict returns an empty dictionary.
func NewChainDict() *ChainDict {
	return &ChainDict{links: map[string]*link.Link{}}
}

// Set records the canonical link for a step name, overwriting any
// prior entry (a sublayout's synthesized summary link replaces the
// placeholder a caller may have set earlier).
func (d *ChainDict) Set(stepName string, l *link.Link) {
	d.links[stepName] = l
}

// Get returns the recorded link for a step, if any.
func (d *ChainDict) Get(stepName string) (*link.Link, bool) {
	l, ok := d.links[stepName]
	return l, ok
}

// Step implements rules.ChainLookup.
func (d *ChainDict) Step(name string) (materials, products artifact.Map, ok bool) {
	l, ok := d.links[name]
	if !ok {
		return nil, nil, false
	}
	return l.Materials, l.Products, true
}
