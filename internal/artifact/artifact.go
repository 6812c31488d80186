// Package artifact models the path+hash-set pairs that flow through a
// build step as materials or products, and the primitives used to
// derive them from the filesystem.
package artifact

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	digest "github.com/opencontainers/go-digest"
)

// HashSet maps a hash algorithm name ("sha256") to the digest recorded
// under that algorithm. Two HashSets are considered equal (see Equal)
// if they share at least one algorithm with an identical digest.
type HashSet map[string]digest.Digest

// Equal reports whether a and b share at least one algorithm whose
// digest is byte-identical. An empty HashSet never equals anything,
// including another empty HashSet.
func (a HashSet) Equal(b HashSet) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	for alg, da := range a {
		if db, ok := b[alg]; ok && da == db {
			return true
		}
	}
	return false
}

// Map is the materials or products map of a Link: path -> recorded hashes.
type Map map[string]HashSet

// Paths returns the map's keys, stably sorted, matching the "stable
// ordered" dedup requirement for seeding an artifact queue (§4.2).
func (m Map) Paths() []string {
	out := make([]string, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// skipHiddenDir reports whether a directory entry should be skipped
// during a recursive hash walk (per-policy: dotfiles and .git are never
// hashed as artifacts).
func skipHiddenDir(name string) bool {
	return name == ".git" || (strings.HasPrefix(name, ".") && name != "." && name != "..")
}

// baseDir resolves the directory artifact hashing is relative to. When
// honorEnv is true and ARTIFACT_BASE_PATH is set, it overrides cwd;
// inspections never honor it (§4.5, §9).
func baseDir(cwd string, honorEnv bool) string {
	if honorEnv {
		if override := os.Getenv("ARTIFACT_BASE_PATH"); override != "" {
			return override
		}
	}
	return cwd
}

// HashDir recursively hashes every regular file under dir (skipping
// dotfiles/.git) and returns a Map keyed by path relative to dir.
func HashDir(dir string) (Map, error) {
	out := Map{}
	err := filepath.Walk(dir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			if rel != "." && skipHiddenDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if skipHiddenDir(info.Name()) {
			return nil
		}
		h, err := HashFile(path)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// HashDirFromCwd is HashDir relative to cwd, honoring ARTIFACT_BASE_PATH
// when honorEnv is set (callers outside inspections pass true).
func HashDirFromCwd(cwd string, honorEnv bool) (Map, error) {
	return HashDir(baseDir(cwd, honorEnv))
}

// HashFile computes the sha256 digest of a single regular file.
func HashFile(path string) (HashSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := digest.SHA256.FromReader(f)
	if err != nil {
		return nil, err
	}
	return HashSet{"sha256": d}, nil
}
