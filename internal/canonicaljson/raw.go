package canonicaljson

import "github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"

// CanonicalizeRaw applies the JCS transform directly to already-encoded
// JSON bytes (e.g. a json.RawMessage), avoiding a marshal round-trip
// that could silently reorder or drop fields the in-memory struct
// doesn't know about.
func CanonicalizeRaw(data []byte) ([]byte, error) {
	return jsoncanonicalizer.Transform(data)
}
