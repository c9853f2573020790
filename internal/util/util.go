// Package util collects small cross-cutting helpers used by cmd/basearb: hex decoding
// and symmetric decryption of the operator's private key. Grounded on the teacher's
// usage sites (cmd/main.go's util.Decrypt) whose implementation was not present in the
// retrieval pack; rebuilt fresh against the same call signature.
package util

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// Hex2Bytes decodes a hex string, tolerating an optional "0x" prefix.
func Hex2Bytes(s string) []byte {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return b
}

// Decrypt reverses symmetric AES-256-GCM encryption of the operator's private key: key
// is stretched via SHA-256 and encrypted is a base64-encoded (nonce || ciphertext).
// There is no signer-key-management library in the corpus to build on; this uses only
// stdlib crypto primitives, documented in DESIGN.md as a justified stdlib usage.
func Decrypt(key []byte, encrypted string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("util: decode ciphertext: %w", err)
	}

	sum := sha256.Sum256(key)
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return "", fmt.Errorf("util: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("util: new gcm: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(raw) < nonceSize {
		return "", fmt.Errorf("util: ciphertext too short")
	}
	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]

	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("util: decrypt: %w", err)
	}
	return string(plain), nil
}
