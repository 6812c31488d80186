package layoutio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gzhole/intoto-verify/internal/link"
)

// RawMetablock is a Metablock whose Signed payload hasn't yet been
// discriminated as a Link or a (sub)Layout.
type RawMetablock struct {
	Signed     json.RawMessage  `json:"signed"`
	Signatures []link.Signature `json:"signatures"`
}

type typeDiscriminator struct {
	Type string `json:"_type"`
}

// Type reports the wrapped document's _type ("layout" or "link"),
// which discriminates a sublayout from an ordinary link (§4.6).
func (m *RawMetablock) Type() (string, error) {
	var d typeDiscriminator
	if err := json.Unmarshal(m.Signed, &d); err != nil {
		return "", fmt.Errorf("layoutio: malformed signed payload: %w", err)
	}
	return d.Type, nil
}

// AsLink decodes the Signed payload as a Link.
func (m *RawMetablock) AsLink() (*link.Link, error) {
	var l link.Link
	if err := json.Unmarshal(m.Signed, &l); err != nil {
		return nil, fmt.Errorf("layoutio: malformed link payload: %w", err)
	}
	return &l, nil
}

// AsLayout decodes the Signed payload as a sublayout.
func (m *RawMetablock) AsLayout() (*Layout, error) {
	var raw RawLayout
	if err := json.Unmarshal(m.Signed, &raw); err != nil {
		return nil, fmt.Errorf("layoutio: malformed layout payload: %w", err)
	}
	return Parse(raw)
}

// LoadLayoutMetablock reads and JSON-decodes a layout file.
func LoadLayoutMetablock(path string) (*RawMetablock, error) {
	return loadMetablock(path)
}

func loadMetablock(path string) (*RawMetablock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m RawMetablock
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("layoutio: %s: %w", path, err)
	}
	return &m, nil
}

// DiscoverStepLinks globs <linkDir>/<stepName>.*.link, returning the
// matched paths in a stable order. It does not open or validate them;
// that's the caller's job (C4 filters by signature/authorization).
func DiscoverStepLinks(linkDir, stepName string) ([]string, error) {
	pattern := filepath.Join(linkDir, stepName+".*.link")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// ShortKeyID returns the first 8 hex characters of a full keyid, the
// convention link filenames use (§6).
func ShortKeyID(keyID string) string {
	if len(keyID) <= 8 {
		return keyID
	}
	return keyID[:8]
}

// LoadStepMetablocks loads every discoverable link/sublayout file for a
// step into a keyid -> RawMetablock map. A file is keyed by the keyid
// of its first signature (the convention producers follow: one
// functionary, one file). Corrupt files are skipped (not a hard
// error); LinkNotFoundError is the caller's (C8 orchestration's)
// responsibility once the count of loadable entries is known against
// the step's threshold.
func LoadStepMetablocks(linkDir, stepName string) (map[string]*RawMetablock, error) {
	paths, err := DiscoverStepLinks(linkDir, stepName)
	if err != nil {
		return nil, err
	}

	out := map[string]*RawMetablock{}
	for _, p := range paths {
		m, err := loadMetablock(p)
		if err != nil {
			continue // unreadable/corrupt: skipped, not fatal here
		}
		if len(m.Signatures) == 0 {
			continue
		}
		out[m.Signatures[0].KeyID] = m
	}
	return out, nil
}
