package artifact

import (
	"encoding/json"
	"fmt"

	digest "github.com/opencontainers/go-digest"
)

// MarshalJSON renders a HashSet as the wire form links use:
// {"sha256": "<hex digest>", ...} — the algorithm maps directly to the
// hex string, not to digest.Digest's own "alg:hex" form.
func (a HashSet) MarshalJSON() ([]byte, error) {
	out := make(map[string]string, len(a))
	for alg, d := range a {
		out[alg] = d.Encoded()
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses the {"sha256": "<hex>"} wire form.
func (a *HashSet) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(HashSet, len(raw))
	for alg, hex := range raw {
		d := digest.NewDigestFromEncoded(digest.Algorithm(alg), hex)
		if err := d.Validate(); err != nil {
			return fmt.Errorf("artifact: invalid %s digest %q: %w", alg, hex, err)
		}
		out[alg] = d
	}
	*a = out
	return nil
}
