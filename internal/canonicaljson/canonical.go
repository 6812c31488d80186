// Package canonicaljson produces the stable key-order serialization of
// a Metablock's "signed" payload used as the canonical form for
// signing and signature verification (spec.md §6).
package canonicaljson

import (
	"encoding/json"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
)

// Canonicalize marshals v to JSON and then applies the RFC 8785 (JCS)
// transform, producing the exact byte sequence a signature was (or
// must be) computed over.
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsoncanonicalizer.Transform(raw)
}
