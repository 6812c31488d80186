// Package rules implements the artifact-rule grammar, the single-rule
// evaluator (C1), and the per-item rule-list driver (C2).
package rules

// Kind is one artifact rule verb.
type Kind string

const (
	KindCreate   Kind = "CREATE"
	KindDelete   Kind = "DELETE"
	KindModify   Kind = "MODIFY"
	KindAllow    Kind = "ALLOW"
	KindDisallow Kind = "DISALLOW"
	KindRequire  Kind = "REQUIRE"
	KindMatch    Kind = "MATCH"
)

// SourceType selects which of a Link's maps an item's rule list runs
// against.
type SourceType string

const (
	SourceMaterials SourceType = "materials"
	SourceProducts  SourceType = "products"
)

// Rule is the parsed, tagged-union form of one line of the grammar in
// spec.md §6. Fields outside a rule's Kind are zero.
type Rule struct {
	Kind Kind

	// Pattern is the glob pattern every rule kind carries.
	Pattern string

	// MATCH-only fields.
	SrcPrefix string
	DstPrefix string
	// MatchOn is SourceMaterials or SourceProducts: which of the
	// destination step's maps to compare against.
	MatchOn  SourceType
	FromStep string
}

// List is an ordered rule list, e.g. a Step's expected_materials.
type List []Rule
