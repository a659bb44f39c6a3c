package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestCodec(t *testing.T) *SecretCodec {
	codec, err := NewSecretCodec("test-master-secret-32-characters!", bcrypt.MinCost)
	require.NoError(t, err)
	return codec
}

func TestNewSecretCodecValidation(t *testing.T) {
	_, err := NewSecretCodec("", bcrypt.MinCost)
	assert.Error(t, err)

	_, err = NewSecretCodec("secret", 99)
	assert.Error(t, err)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	ciphertext, err := codec.Encrypt("sk-live-xyz", "client-abc")
	require.NoError(t, err)
	assert.NotEqual(t, "sk-live-xyz", ciphertext)

	plaintext, err := codec.Decrypt(ciphertext, "client-abc")
	require.NoError(t, err)
	assert.Equal(t, "sk-live-xyz", plaintext)
}

func TestDecryptWrongClientFails(t *testing.T) {
	codec := newTestCodec(t)

	ciphertext, err := codec.Encrypt("sk-live-xyz", "client-one")
	require.NoError(t, err)

	_, err = codec.Decrypt(ciphertext, "client-two")
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestEncryptNonceUniqueness(t *testing.T) {
	codec := newTestCodec(t)

	first, err := codec.Encrypt("sk-live-xyz", "client-abc")
	require.NoError(t, err)
	second, err := codec.Encrypt("sk-live-xyz", "client-abc")
	require.NoError(t, err)

	// Fresh nonce per call: identical plaintexts must not produce identical
	// ciphertexts
	assert.NotEqual(t, first, second)

	p1, err := codec.Decrypt(first, "client-abc")
	require.NoError(t, err)
	p2, err := codec.Decrypt(second, "client-abc")
	require.NoError(t, err)
	assert.Equal(t, "sk-live-xyz", p1)
	assert.Equal(t, "sk-live-xyz", p2)
}

func TestDecryptTamperedCiphertextFails(t *testing.T) {
	codec := newTestCodec(t)

	ciphertext, err := codec.Encrypt("sk-live-xyz", "client-abc")
	require.NoError(t, err)

	tampered := []byte(ciphertext)
	tampered[len(tampered)-2] ^= 0x01
	_, err = codec.Decrypt(string(tampered), "client-abc")
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecryptMalformedInputFails(t *testing.T) {
	codec := newTestCodec(t)

	_, err := codec.Decrypt("not-base64!!", "client-abc")
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = codec.Decrypt("c2hvcnQ=", "client-abc") // too short for a nonce
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestHashAndVerify(t *testing.T) {
	codec := newTestCodec(t)

	digest, err := codec.Hash("sk-live-xyz")
	require.NoError(t, err)
	assert.NotEqual(t, "sk-live-xyz", digest)

	assert.True(t, codec.Verify("sk-live-xyz", digest))
	assert.False(t, codec.Verify("sk-live-other", digest))
}

func TestVerifyMalformedDigestIsFalse(t *testing.T) {
	codec := newTestCodec(t)

	// A garbage digest is a routine wrong-key outcome, never a fault
	assert.False(t, codec.Verify("sk-live-xyz", "not-a-bcrypt-digest"))
	assert.False(t, codec.Verify("sk-live-xyz", ""))
}
