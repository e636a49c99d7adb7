package cipher

import (
	"crypto/aes"
	gocipher "crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// Encrypt produces a base64 "Salted__" payload for plaintext under secret with
// a random salt. It is compatible with Open(Passphrase{secret}, ...).
func Encrypt(plaintext, secret string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return EncryptWithSalt(plaintext, secret, salt)
}

// EncryptWithSalt is Encrypt with a caller-chosen 8 byte salt.
func EncryptWithSalt(plaintext, secret string, salt []byte) (string, error) {
	if len(salt) != saltLen {
		return "", fmt.Errorf("salt must be %d bytes, got %d", saltLen, len(salt))
	}
	m := BytesToKey([]byte(secret), salt)
	block, err := aes.NewCipher(m.Key)
	if err != nil {
		return "", err
	}

	body := pad([]byte(plaintext))
	gocipher.NewCBCEncrypter(block, m.IV).CryptBlocks(body, body)

	out := make([]byte, 0, headerLen+len(body))
	out = append(out, Magic...)
	out = append(out, salt...)
	out = append(out, body...)
	return base64.StdEncoding.EncodeToString(out), nil
}
