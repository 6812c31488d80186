// Package threshold implements C4: filtering a step's loaded links
// down to those signed by authorized, valid functionaries, enforcing
// the signature threshold, and checking that surviving links agree.
package threshold

import (
	"encoding/hex"
	"reflect"
	"sort"

	"github.com/gzhole/intoto-verify/internal/canonicaljson"
	"github.com/gzhole/intoto-verify/internal/keybundle"
	"github.com/gzhole/intoto-verify/internal/layoutio"
	"github.com/gzhole/intoto-verify/internal/link"
	"github.com/gzhole/intoto-verify/internal/signverify"
	"github.com/gzhole/intoto-verify/internal/verifyerr"
)

// candidate pairs a loaded, validly-signed metablock with the keyid
// that authorized it. lnk is nil when the payload is a sublayout
// rather than an ordinary link (§4.6); the materials/products
// agreement check only applies to candidates with a non-nil lnk.
type candidate struct {
	keyID string
	raw   *layoutio.RawMetablock
	lnk   *link.Link
}

// Resolve filters loaded (keyid -> raw metablock) down to valid,
// authorized entries, enforces the threshold, checks agreement among
// surviving links (when they decode as ordinary links), and returns
// one canonical raw metablock for downstream handling: C7 decodes it
// as a Link, or recognizes a sublayout and hands it to C6.
func Resolve(step layoutio.Step, keys map[string]keybundle.Entry, loaded map[string]*layoutio.RawMetablock, verifier signverify.Verifier) (*layoutio.RawMetablock, error) {
	if len(loaded) < step.Threshold {
		return nil, verifyerr.LinkNotFound(step.Name, "fewer link files present than the step's threshold requires")
	}

	authorized := keybundle.ExpandAuthorized(step.PubKeys, keys)

	var survivors []candidate
	for keyID, raw := range loaded {
		if !authorized[keyID] {
			continue
		}
		if len(raw.Signatures) == 0 {
			continue
		}

		keyMat, ok := keybundle.Resolve(keyID, keys)
		if !ok {
			continue
		}

		sigBytes, err := hex.DecodeString(raw.Signatures[0].Sig)
		if err != nil {
			continue
		}

		canonical, err := canonicaljson.CanonicalizeRaw(raw.Signed)
		if err != nil {
			continue
		}

		valid, err := verifier.Verify(keyMat, canonical, sigBytes)
		if err != nil || !valid {
			continue
		}

		// A sublayout payload is not decoded as a Link: lnk stays nil
		// and this candidate sits out the materials/products agreement
		// check below. C7 dispatches on raw.Type() again after selection.
		var lnk *link.Link
		if typ, err := raw.Type(); err == nil && typ != "layout" {
			lnk, _ = raw.AsLink()
		}

		survivors = append(survivors, candidate{keyID: keyID, raw: raw, lnk: lnk})
	}

	if len(survivors) < step.Threshold {
		return nil, verifyerr.Threshold(step.Name, "fewer authorized, validly signed links than the step's threshold requires")
	}

	if step.Threshold >= 2 {
		var first *link.Link
		for _, c := range survivors {
			if c.lnk == nil {
				continue
			}
			if first == nil {
				first = c.lnk
				continue
			}
			if !reflect.DeepEqual(first.Materials, c.lnk.Materials) || !reflect.DeepEqual(first.Products, c.lnk.Products) {
				return nil, verifyerr.Threshold(step.Name, "surviving links disagree on materials or products")
			}
		}
	}

	sortByDeclaredOrder(survivors, step.PubKeys, keys)
	return survivors[0].raw, nil
}

// sortByDeclaredOrder orders survivors by the position of their
// authorizing id in step.PubKeys (a master's position covers its
// subkeys too), breaking ties by keyid. This makes "pick one canonical
// link" deterministic rather than dependent on map iteration order.
func sortByDeclaredOrder(survivors []candidate, pubkeys []string, keys map[string]keybundle.Entry) {
	rank := map[string]int{}
	for i, pk := range pubkeys {
		if _, exists := rank[pk]; !exists {
			rank[pk] = i
		}
		if entry, ok := keys[pk]; ok {
			for subID := range entry.Subkeys {
				if _, exists := rank[subID]; !exists {
					rank[subID] = i
				}
			}
		}
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		ri, iok := rank[survivors[i].keyID]
		rj, jok := rank[survivors[j].keyID]
		if iok && jok && ri != rj {
			return ri < rj
		}
		if iok != jok {
			return iok
		}
		return survivors[i].keyID < survivors[j].keyID
	})
}
