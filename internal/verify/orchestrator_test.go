package verify

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	digest "github.com/opencontainers/go-digest"

	"github.com/gzhole/intoto-verify/internal/artifact"
	"github.com/gzhole/intoto-verify/internal/canonicaljson"
	"github.com/gzhole/intoto-verify/internal/keybundle"
	"github.com/gzhole/intoto-verify/internal/layoutio"
	"github.com/gzhole/intoto-verify/internal/link"
)

// testSigner bundles an ed25519 keypair under a fixed keyid, matching
// the bare-keyval wire form resolveKeyEntry expects.
type testSigner struct {
	keyID string
	pub   ed25519.PublicKey
	priv  ed25519.PrivateKey
}

func newTestSigner(t *testing.T, keyID string) testSigner {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return testSigner{keyID: keyID, pub: pub, priv: priv}
}

func (s testSigner) keysEntry() map[string]any {
	return map[string]any{
		"keyid":   s.keyID,
		"keytype": "ed25519",
		"scheme":  "ed25519",
		"keyval":  map[string]string{"public": hex.EncodeToString(s.pub)},
	}
}

func (s testSigner) trust() map[string]keybundle.Entry {
	return map[string]keybundle.Entry{
		s.keyID: {KeyID: s.keyID, KeyType: "ed25519", Scheme: "ed25519", Public: []byte(s.pub)},
	}
}

// writeMetablock canonicalizes payload, signs it with s, and writes
// the resulting metablock JSON to path.
func writeMetablock(t *testing.T, path string, payload any, s testSigner) {
	t.Helper()
	signed, err := json.Marshal(payload)
	require.NoError(t, err)

	canonical, err := canonicaljson.CanonicalizeRaw(signed)
	require.NoError(t, err)
	sig := ed25519.Sign(s.priv, canonical)

	mb := map[string]any{
		"signed": json.RawMessage(signed),
		"signatures": []map[string]string{
			{"keyid": s.keyID, "sig": hex.EncodeToString(sig)},
		},
	}
	data, err := json.Marshal(mb)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func buildLayout(s testSigner, expires time.Time) map[string]any {
	return map[string]any{
		"_type":   "layout",
		"expires": expires.UTC().Format(time.RFC3339),
		"readme":  "",
		"keys":    map[string]any{s.keyID: s.keysEntry()},
		"steps": []map[string]any{
			{
				"name":               "build",
				"expected_command":   []string{},
				"expected_materials": [][]string{},
				"expected_products":  [][]string{{"CREATE", "*"}},
				"pubkeys":            []string{s.keyID},
				"threshold":          1,
			},
		},
		"inspect": []map[string]any{},
	}
}

func digestOf(s string) digest.Digest { return digest.FromString(s) }

func TestOrchestrator_AcceptsSingleSignedLayout(t *testing.T) {
	dir := t.TempDir()
	signer := newTestSigner(t, "testkey1")

	layoutPath := filepath.Join(dir, "root.layout")
	writeMetablock(t, layoutPath, buildLayout(signer, time.Now().Add(24*time.Hour)), signer)

	buildLink := link.Link{
		Type:      "link",
		Name:      "build",
		Materials: artifact.Map{},
		Products:  artifact.Map{"out.txt": {"sha256": digestOf("out")}},
		Command:   []string{"make"},
		Byproducts: map[string]any{"return-value": 0},
	}
	linkPath := filepath.Join(dir, "build."+layoutio.ShortKeyID(signer.keyID)+".link")
	writeMetablock(t, linkPath, buildLink, signer)

	o := New()
	summary, err := o.VerifyLayoutFile(layoutPath, dir, signer.trust())
	require.NoError(t, err)
	assert.Equal(t, "root.layout", summary.Name)
	assert.Contains(t, summary.Products, "out.txt")
}

func TestOrchestrator_RejectsExpiredLayout(t *testing.T) {
	dir := t.TempDir()
	signer := newTestSigner(t, "testkey1")

	layoutPath := filepath.Join(dir, "root.layout")
	writeMetablock(t, layoutPath, buildLayout(signer, time.Now().Add(-24*time.Hour)), signer)

	o := New()
	_, err := o.VerifyLayoutFile(layoutPath, dir, signer.trust())
	assert.Error(t, err)
}

func TestOrchestrator_RejectsUntrustedSigner(t *testing.T) {
	dir := t.TempDir()
	signer := newTestSigner(t, "testkey1")
	other := newTestSigner(t, "testkey1") // same id, different keypair: signature won't validate against signer's public key

	layoutPath := filepath.Join(dir, "root.layout")
	writeMetablock(t, layoutPath, buildLayout(signer, time.Now().Add(24*time.Hour)), other)

	o := New()
	_, err := o.VerifyLayoutFile(layoutPath, dir, signer.trust())
	assert.Error(t, err)
}

func TestOrchestrator_RejectsMissingLink(t *testing.T) {
	dir := t.TempDir()
	signer := newTestSigner(t, "testkey1")

	layoutPath := filepath.Join(dir, "root.layout")
	writeMetablock(t, layoutPath, buildLayout(signer, time.Now().Add(24*time.Hour)), signer)
	// no build.*.link written

	o := New()
	_, err := o.VerifyLayoutFile(layoutPath, dir, signer.trust())
	assert.Error(t, err)
}

func TestOrchestrator_RejectsStepRuleViolation(t *testing.T) {
	dir := t.TempDir()
	signer := newTestSigner(t, "testkey1")

	layout := buildLayout(signer, time.Now().Add(24*time.Hour))
	layout["steps"] = []map[string]any{
		{
			"name":               "build",
			"expected_command":   []string{},
			"expected_materials": [][]string{},
			"expected_products":  [][]string{{"DISALLOW", "*"}},
			"pubkeys":            []string{signer.keyID},
			"threshold":          1,
		},
	}
	layoutPath := filepath.Join(dir, "root.layout")
	writeMetablock(t, layoutPath, layout, signer)

	buildLink := link.Link{
		Type:       "link",
		Name:       "build",
		Materials:  artifact.Map{},
		Products:   artifact.Map{"out.txt": {"sha256": digestOf("out")}},
		Byproducts: map[string]any{"return-value": 0},
	}
	linkPath := filepath.Join(dir, "build."+layoutio.ShortKeyID(signer.keyID)+".link")
	writeMetablock(t, linkPath, buildLink, signer)

	o := New()
	_, err := o.VerifyLayoutFile(layoutPath, dir, signer.trust())
	assert.Error(t, err, "a DISALLOW-only product rule must reject a step that produced an artifact")
}
