package util

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encryptForTest(t *testing.T, key []byte, plaintext string) string {
	t.Helper()
	sum := sha256.Sum256(key)
	block, err := aes.NewCipher(sum[:])
	require.NoError(t, err)
	gcm, err := cipher.NewGCM(block)
	require.NoError(t, err)

	nonce := make([]byte, gcm.NonceSize())
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed)
}

func TestDecryptRoundTrips(t *testing.T) {
	key := []byte("test-key")
	encrypted := encryptForTest(t, key, "0xabc123")

	got, err := Decrypt(key, encrypted)
	require.NoError(t, err)
	assert.Equal(t, "0xabc123", got)
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	encrypted := encryptForTest(t, []byte("right-key"), "secret")
	_, err := Decrypt([]byte("wrong-key"), encrypted)
	assert.Error(t, err)
}

func TestHex2BytesTrimsPrefix(t *testing.T) {
	assert.Equal(t, []byte{0xde, 0xad}, Hex2Bytes("0xdead"))
	assert.Equal(t, []byte{0xde, 0xad}, Hex2Bytes("dead"))
}

func TestHex2BytesReturnsNilOnInvalidInput(t *testing.T) {
	assert.Nil(t, Hex2Bytes("zz"))
}
