// Package layoutio defines the Layout/Step/Inspection wire types,
// loads layout and link documents from disk (C8's discovery half; the
// recursive verification itself lives in internal/verify), and
// resolves the `keys` map into internal/keybundle entries.
package layoutio

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gzhole/intoto-verify/internal/keybundle"
	"github.com/gzhole/intoto-verify/internal/rules"
)

// rawKeyVal is the plain in-toto keyval form of a layout key entry.
type rawKeyVal struct {
	KeyID   string `json:"keyid"`
	KeyType string `json:"keytype"`
	Scheme  string `json:"scheme"`
	KeyVal  struct {
		Public string `json:"public"`
	} `json:"keyval"`
}

// RawLayout mirrors the JSON wire shape of a layout document (§6).
// Rule lists are [][]string (an array of token vectors); Parse turns
// each of them into a rules.List.
type RawLayout struct {
	Type    string                     `json:"_type"`
	Expires string                     `json:"expires"`
	Readme  string                     `json:"readme"`
	Keys    map[string]json.RawMessage `json:"keys"`
	Steps   []RawStep                  `json:"steps"`
	Inspect []RawInspection            `json:"inspect"`
}

type RawStep struct {
	Name             string     `json:"name"`
	ExpectedCommand  []string   `json:"expected_command"`
	ExpectedMaterial [][]string `json:"expected_materials"`
	ExpectedProduct  [][]string `json:"expected_products"`
	PubKeys          []string   `json:"pubkeys"`
	Threshold        int        `json:"threshold"`
}

type RawInspection struct {
	Name             string     `json:"name"`
	Run              []string   `json:"run"`
	ExpectedMaterial [][]string `json:"expected_materials"`
	ExpectedProduct  [][]string `json:"expected_products"`
}

// Step is a resolved, parsed policy item: pubkeys authorized to sign,
// minimum signature threshold, and parsed rule lists.
type Step struct {
	Name             string
	ExpectedCommand  []string
	ExpectedMaterial rules.List
	ExpectedProduct  rules.List
	PubKeys          []string
	Threshold        int
}

// Inspection is like a Step but runs a local command at verify time
// instead of being signed by a functionary.
type Inspection struct {
	Name             string
	Run              []string
	ExpectedMaterial rules.List
	ExpectedProduct  rules.List
}

// Layout is the resolved, parsed policy document.
type Layout struct {
	Expires time.Time
	Readme  string
	Keys    map[string]keybundle.Entry
	Steps   []Step
	Inspect []Inspection
}

// Parse resolves a RawLayout into a Layout, parsing every rule list and
// every key entry. Malformed rules or key entries are rejected here,
// at load time (§9's design note).
func Parse(raw RawLayout) (*Layout, error) {
	if raw.Type != "" && raw.Type != "layout" {
		return nil, fmt.Errorf("layoutio: _type is %q, not \"layout\"", raw.Type)
	}

	expires, err := time.Parse(time.RFC3339, raw.Expires)
	if err != nil {
		return nil, fmt.Errorf("layoutio: invalid expires timestamp %q: %w", raw.Expires, err)
	}

	keys := make(map[string]keybundle.Entry, len(raw.Keys))
	for id, msg := range raw.Keys {
		entry, err := resolveKeyEntry(id, msg)
		if err != nil {
			return nil, err
		}
		keys[id] = entry
	}

	steps := make([]Step, 0, len(raw.Steps))
	for _, rs := range raw.Steps {
		materials, err := rules.ParseList(rs.ExpectedMaterial)
		if err != nil {
			return nil, fmt.Errorf("layoutio: step %s materials: %w", rs.Name, err)
		}
		products, err := rules.ParseList(rs.ExpectedProduct)
		if err != nil {
			return nil, fmt.Errorf("layoutio: step %s products: %w", rs.Name, err)
		}
		threshold := rs.Threshold
		if threshold <= 0 {
			threshold = 1
		}
		if threshold > len(rs.PubKeys) {
			return nil, fmt.Errorf("layoutio: step %s: threshold %d exceeds %d pubkeys", rs.Name, threshold, len(rs.PubKeys))
		}
		steps = append(steps, Step{
			Name:             rs.Name,
			ExpectedCommand:  rs.ExpectedCommand,
			ExpectedMaterial: materials,
			ExpectedProduct:  products,
			PubKeys:          rs.PubKeys,
			Threshold:        threshold,
		})
	}

	inspections := make([]Inspection, 0, len(raw.Inspect))
	for _, ri := range raw.Inspect {
		materials, err := rules.ParseList(ri.ExpectedMaterial)
		if err != nil {
			return nil, fmt.Errorf("layoutio: inspection %s materials: %w", ri.Name, err)
		}
		products, err := rules.ParseList(ri.ExpectedProduct)
		if err != nil {
			return nil, fmt.Errorf("layoutio: inspection %s products: %w", ri.Name, err)
		}
		inspections = append(inspections, Inspection{
			Name:             ri.Name,
			Run:              ri.Run,
			ExpectedMaterial: materials,
			ExpectedProduct:  products,
		})
	}

	return &Layout{
		Expires: expires,
		Readme:  raw.Readme,
		Keys:    keys,
		Steps:   steps,
		Inspect: inspections,
	}, nil
}

// resolveKeyEntry recognizes an armored OpenPGP key block (master +
// embedded subkeys) or falls back to a bare in-toto keyval.
func resolveKeyEntry(id string, msg json.RawMessage) (keybundle.Entry, error) {
	var asString string
	if err := json.Unmarshal(msg, &asString); err == nil {
		if entry, ok := keybundle.ParseArmored(asString); ok {
			return entry, nil
		}
	}

	var kv rawKeyVal
	if err := json.Unmarshal(msg, &kv); err != nil {
		return keybundle.Entry{}, fmt.Errorf("layoutio: key %s: %w", id, err)
	}
	keyID := kv.KeyID
	if keyID == "" {
		keyID = id
	}
	return keybundle.Entry{
		KeyID:   keyID,
		KeyType: kv.KeyType,
		Scheme:  kv.Scheme,
		Public:  decodeKeyvalPublic(kv.KeyType, kv.KeyVal.Public),
	}, nil
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
