package signverify

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Verify_Ed25519(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	data := []byte("signed payload")
	sig := ed25519.Sign(priv, data)

	key := Key{KeyID: "k1", KeyType: "ed25519", Scheme: "ed25519", Public: []byte(pub)}
	ok, err := Default{}.Verify(key, data, sig)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Default{}.Verify(key, []byte("tampered"), sig)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDefault_Verify_Ed25519_WrongKeyLength(t *testing.T) {
	key := Key{KeyType: "ed25519", Public: []byte("too-short")}
	_, err := Default{}.Verify(key, []byte("x"), []byte("y"))
	assert.Error(t, err)
}

func TestDefault_Verify_RSA_PSS(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	data := []byte("signed payload")
	sum := sha256.Sum256(data)
	sig, err := rsa.SignPSS(rand.Reader, priv, crypto.SHA256, sum[:], nil)
	require.NoError(t, err)

	key := Key{KeyID: "k1", KeyType: "rsa", Scheme: "rsassa-pss-sha256", Public: encodeRSAPub(t, &priv.PublicKey)}
	ok, err := Default{}.Verify(key, data, sig)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDefault_Verify_RSA_PKCS1v15(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	data := []byte("signed payload")
	sum := sha256.Sum256(data)
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, sum[:])
	require.NoError(t, err)

	key := Key{KeyID: "k1", KeyType: "rsa", Scheme: "rsassa-pkcs1v15-sha256", Public: encodeRSAPub(t, &priv.PublicKey)}
	ok, err := Default{}.Verify(key, data, sig)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDefault_Verify_RSA_NotPEM(t *testing.T) {
	key := Key{KeyType: "rsa", Public: []byte("not pem")}
	_, err := Default{}.Verify(key, []byte("x"), []byte("y"))
	assert.Error(t, err)
}

func TestDefault_Verify_UnsupportedKeyType(t *testing.T) {
	key := Key{KeyType: "openpgp"}
	_, err := Default{}.Verify(key, []byte("x"), []byte("y"))
	assert.Error(t, err)
}

func encodeRSAPub(t *testing.T, pub *rsa.PublicKey) []byte {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}
