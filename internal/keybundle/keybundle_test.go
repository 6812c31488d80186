package keybundle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	masterID = "master-id"
	subID    = "sub-id"
)

// masterEntry is a KEY-bundle of form "Master": one entry with an
// embedded signing subkey, registered under the master's own id.
func masterEntry() map[string]Entry {
	return map[string]Entry{
		masterID: {
			KeyID:   masterID,
			Subkeys: map[string]SubkeyMaterial{subID: {}},
		},
	}
}

// bareSubEntry is a KEY-bundle of form "Sub": only the subkey itself
// is registered, under its own id; no master entry exists anywhere.
func bareSubEntry() map[string]Entry {
	return map[string]Entry{
		subID: {KeyID: subID},
	}
}

// resolvable reports whether signingKeyID is both authorized for a
// step naming authID, and has key material available to verify
// against — the two checks threshold.Resolve composes in sequence.
func resolvable(t *testing.T, authID, signingKeyID string, keys map[string]Entry) bool {
	t.Helper()
	authorized := ExpandAuthorized([]string{authID}, keys)
	if !authorized[signingKeyID] {
		return false
	}
	_, ok := Resolve(signingKeyID, keys)
	return ok
}

// The eight SIG/AUTH/KEY-bundle scenarios from the spec's signature
// and threshold resolution test matrix.
func TestExpandAuthorizedAndResolve_MSAMatrix(t *testing.T) {
	cases := []struct {
		name     string
		sig      string
		auth     string
		keys     map[string]Entry
		expected bool
	}{
		{"SIG=M AUTH=M KEY=M", masterID, masterID, masterEntry(), true},
		{"SIG=M AUTH=M KEY=S", masterID, masterID, bareSubEntry(), false},
		{"SIG=M AUTH=S KEY=M", masterID, subID, masterEntry(), false},
		{"SIG=M AUTH=S KEY=S", masterID, subID, bareSubEntry(), false},
		{"SIG=S AUTH=M KEY=M", subID, masterID, masterEntry(), true},
		{"SIG=S AUTH=M KEY=S", subID, masterID, bareSubEntry(), false},
		{"SIG=S AUTH=S KEY=M", subID, subID, masterEntry(), true},
		{"SIG=S AUTH=S KEY=S", subID, subID, bareSubEntry(), true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := resolvable(t, c.auth, c.sig, c.keys)
			assert.Equal(t, c.expected, got)
		})
	}
}

func TestResolve_DirectEntry(t *testing.T) {
	keys := bareSubEntry()
	key, ok := Resolve(subID, keys)
	assert.True(t, ok)
	assert.Equal(t, subID, key.KeyID)
}

func TestResolve_EmbeddedSubkey(t *testing.T) {
	keys := masterEntry()
	key, ok := Resolve(subID, keys)
	assert.True(t, ok)
	assert.Equal(t, subID, key.KeyID)
}

func TestResolve_Unknown(t *testing.T) {
	_, ok := Resolve("nobody", masterEntry())
	assert.False(t, ok)
}

func TestParseArmored_RejectsNonPGP(t *testing.T) {
	_, ok := ParseArmored("not a key at all")
	assert.False(t, ok)
}

func TestParseKeyval(t *testing.T) {
	doc := []byte(`{"keyid":"abc123","keytype":"ed25519","scheme":"ed25519","keyval":{"public":"deadbeef"}}`)
	entry, ok := ParseKeyval(doc)
	assert.True(t, ok)
	assert.Equal(t, "abc123", entry.KeyID)
	assert.Equal(t, "ed25519", entry.KeyType)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, entry.Public, "ed25519 keyval.public is hex-encoded on the wire")
}

func TestParseKeyval_RejectsMalformed(t *testing.T) {
	_, ok := ParseKeyval([]byte(`not json`))
	assert.False(t, ok)

	_, ok = ParseKeyval([]byte(`{}`))
	assert.False(t, ok, "missing keyid is not a valid keyval")
}
