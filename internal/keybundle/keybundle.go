// Package keybundle resolves a layout's `keys` map into the
// authorization-relevant structure C4 needs: which keyids are
// "master" entries with embedded signing subkeys, and which are bare
// single keys. It also exposes the public-key material C4 hands to
// internal/signverify.
package keybundle

import (
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/gzhole/intoto-verify/internal/signverify"
)

// SubkeyMaterial is the public-key material of one subkey embedded in
// a master Entry.
type SubkeyMaterial struct {
	KeyType string
	Scheme  string
	Public  []byte
}

// Entry is one `layout.keys` value: either a bare in-toto keyval (no
// Subkeys) or a master key whose Subkeys map lists every signing
// subkey it embeds.
type Entry struct {
	KeyID   string
	KeyType string
	Scheme  string
	Public  []byte
	Subkeys map[string]SubkeyMaterial // subkey id -> material; nil for a bare entry
}

// ParseArmored recognizes an "armored OpenPGP public key block" layout
// key entry and decomposes it into an Entry with one SubkeyMaterial per
// embedded signing subkey. Returns ok=false for anything that isn't a
// parseable armored key block (callers then fall back to treating the
// entry as a bare in-toto keyval).
func ParseArmored(armored string) (Entry, bool) {
	if !strings.Contains(armored, "BEGIN PGP PUBLIC KEY BLOCK") {
		return Entry{}, false
	}

	keyring, err := openpgp.ReadArmoredKeyRing(strings.NewReader(armored))
	if err != nil || len(keyring) == 0 {
		return Entry{}, false
	}

	entity := keyring[0]
	if entity.PrimaryKey == nil {
		return Entry{}, false
	}

	e := Entry{
		KeyID:   entity.PrimaryKey.KeyIdString(),
		KeyType: "openpgp",
		Scheme:  "openpgp",
		Subkeys: map[string]SubkeyMaterial{},
	}

	for _, sub := range entity.Subkeys {
		if sub.PublicKey == nil {
			continue
		}
		if sub.Sig != nil && sub.Sig.FlagsValid && !sub.Sig.FlagSignData {
			continue // an embedded subkey not flagged for signing isn't a signing delegate
		}
		e.Subkeys[sub.PublicKey.KeyIdString()] = SubkeyMaterial{
			KeyType: "openpgp",
			Scheme:  "openpgp",
		}
	}

	return e, true
}

// rawKeyval is the bare in-toto keyval wire shape, duplicated from
// layoutio to avoid an import cycle (layoutio already depends on
// keybundle for armored-key resolution).
type rawKeyval struct {
	KeyID   string `json:"keyid"`
	KeyType string `json:"keytype"`
	Scheme  string `json:"scheme"`
	KeyVal  struct {
		Public string `json:"public"`
	} `json:"keyval"`
}

// ParseKeyval recognizes a bare in-toto keyval JSON document (an
// ed25519 or rsa key with no embedded subkeys), the form a trusted
// root verification key is supplied in when it isn't an armored
// OpenPGP block. Returns ok=false for anything that doesn't parse as
// one.
func ParseKeyval(data []byte) (Entry, bool) {
	var kv rawKeyval
	if err := json.Unmarshal(data, &kv); err != nil || kv.KeyID == "" {
		return Entry{}, false
	}
	return Entry{
		KeyID:   kv.KeyID,
		KeyType: kv.KeyType,
		Scheme:  kv.Scheme,
		Public:  decodeKeyvalPublic(kv.KeyType, kv.KeyVal.Public),
	}, true
}

// decodeKeyvalPublic turns a keyval.public string into the raw bytes
// signverify expects. ed25519 keys are hex-encoded on the wire; RSA
// keys are PEM text and pass through unchanged.
func decodeKeyvalPublic(keyType, public string) []byte {
	if keyType == "ed25519" {
		if decoded, err := hex.DecodeString(public); err == nil {
			return decoded
		}
	}
	return []byte(public)
}

// ExpandAuthorized builds the authorized-keyid set for a step: its
// declared pubkeys, plus every subkey embedded in a master entry that
// is itself named in pubkeys. The expansion is one-directional — naming
// a master authorizes its subkeys, but naming a bare subkey authorizes
// only an exact match against that id (§4.4, and the M/S/A matrix in
// §8; see DESIGN.md for why the directionality is resolved this way).
func ExpandAuthorized(pubkeys []string, keys map[string]Entry) map[string]bool {
	authorized := make(map[string]bool, len(pubkeys))
	for _, id := range pubkeys {
		authorized[id] = true
	}
	for _, id := range pubkeys {
		entry, ok := keys[id]
		if !ok {
			continue
		}
		for subID := range entry.Subkeys {
			authorized[subID] = true
		}
	}
	return authorized
}

// Resolve returns the public-key material to verify a signature that
// claims to have been produced by signingKeyID, searching first for a
// direct (bare or master) entry under that id, then for an embedded
// subkey of the same id under any master entry.
func Resolve(signingKeyID string, keys map[string]Entry) (signverify.Key, bool) {
	if e, ok := keys[signingKeyID]; ok {
		return signverify.Key{
			KeyID:   e.KeyID,
			KeyType: e.KeyType,
			Scheme:  e.Scheme,
			Public:  e.Public,
		}, true
	}
	for _, e := range keys {
		if sub, ok := e.Subkeys[signingKeyID]; ok {
			return signverify.Key{
				KeyID:   signingKeyID,
				KeyType: sub.KeyType,
				Scheme:  sub.Scheme,
				Public:  sub.Public,
			}, true
		}
	}
	return signverify.Key{}, false
}
