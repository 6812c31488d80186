// Package sublayout holds the small set of conventions the Sublayout
// Expander (C6) needs that don't belong to any single step: the
// recursion depth bound, and the scoped link-directory naming
// convention a nested layout's own links are discovered under. The
// recursive invocation itself lives in internal/verify, alongside the
// Orchestrator it recurses through — factoring it out here would just
// be an import cycle with extra steps (verify already needs to call
// back into itself per step).
package sublayout

import "path/filepath"

// MaxDepth bounds layout-in-layout nesting (§9's design note: an
// attacker-controlled link directory must not be able to force
// unbounded recursion).
const MaxDepth = 16

// LinkDir returns the directory a nested layout's own step links are
// discovered under, scoped by the parent step name and the short
// keyid of the functionary whose signed sublayout resolved to it
// (§4.6's "<step_name>.<keyid>/" convention).
func LinkDir(parentLinkDir, stepName, shortKeyID string) string {
	return filepath.Join(parentLinkDir, stepName+"."+shortKeyID)
}
