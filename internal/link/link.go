// Package link defines the Link and Metablock wire types: signed
// evidence of one step or inspection execution (spec.md §3, §6).
package link

import (
	"github.com/gzhole/intoto-verify/internal/artifact"
)

// Link is named evidence of a step or inspection execution. Produced
// externally and loaded read-only; the engine never mutates a Link.
type Link struct {
	Type        string         `json:"_type"`
	Name        string         `json:"name"`
	Materials   artifact.Map   `json:"materials"`
	Products    artifact.Map   `json:"products"`
	Command     []string       `json:"command"`
	Byproducts  map[string]any `json:"byproducts"`
	Environment map[string]any `json:"environment"`
}

// Signature is one entry in a Metablock's signatures list.
type Signature struct {
	KeyID string `json:"keyid"`
	Sig   string `json:"sig"` // hex-encoded
}

// Metablock envelopes a signed payload (a Link or a sublayout's
// Layout) with an ordered list of signatures (§6).
type Metablock struct {
	Signed     any         `json:"signed"`
	Signatures []Signature `json:"signatures"`
}

// ReturnValue reads the conventional byproducts["return-value"] field,
// which every Link (real or synthesized by C5/C6) carries.
func (l *Link) ReturnValue() (int, bool) {
	if l.Byproducts == nil {
		return 0, false
	}
	v, ok := l.Byproducts["return-value"]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
