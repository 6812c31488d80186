package rules

import (
	"path"
	"path/filepath"
	"strings"
)

// matchPattern reports whether p matches glob pattern, tried both
// against the full path and the path's leaf/basename, per §4.1
// ("whose leaf or path string matches the pattern"). "*" does not
// cross "/"; "?" matches a single non-separator rune — both inherited
// from path.Match's semantics.
func matchPattern(p, pattern string) bool {
	if ok, _ := path.Match(pattern, p); ok {
		return true
	}
	if ok, _ := path.Match(pattern, filepath.Base(p)); ok {
		return true
	}
	return false
}

// withPrefix joins a (possibly empty) normalized prefix to a pattern,
// e.g. prefix="dir", pattern="*.tar.gz" -> "dir/*.tar.gz". An empty
// prefix returns the bare pattern.
func withPrefix(prefix, pattern string) string {
	if prefix == "" {
		return pattern
	}
	return strings.TrimSuffix(prefix, "/") + "/" + pattern
}

// stripPrefix removes a leading normalized prefix (and its separator)
// from p, returning the suffix used for cross-step suffix comparison
// in MATCH. If p does not have the prefix, ok is false.
func stripPrefix(p, prefix string) (suffix string, ok bool) {
	if prefix == "" {
		return p, true
	}
	prefix = strings.TrimSuffix(prefix, "/")
	if p == prefix {
		return "", true
	}
	if strings.HasPrefix(p, prefix+"/") {
		return strings.TrimPrefix(p, prefix+"/"), true
	}
	return "", false
}

// filterQueue returns the subset of queue whose entries match pattern
// under the given prefix (prefix may be empty).
func filterQueue(queue []string, prefix, pattern string) []string {
	full := withPrefix(prefix, pattern)
	var out []string
	for _, p := range queue {
		if matchPattern(p, full) {
			out = append(out, p)
		}
	}
	return out
}

// removeAll returns queue with every path in remove excluded,
// preserving order.
func removeAll(queue []string, remove map[string]bool) []string {
	out := make([]string, 0, len(queue))
	for _, p := range queue {
		if !remove[p] {
			out = append(out, p)
		}
	}
	return out
}

func toSet(paths []string) map[string]bool {
	s := make(map[string]bool, len(paths))
	for _, p := range paths {
		s[p] = true
	}
	return s
}
