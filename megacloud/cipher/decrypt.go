package cipher

import (
	"crypto/aes"
	gocipher "crypto/cipher"
	"fmt"
	"unicode/utf8"

	"github.com/shahradelahi/aniwatch/errs"
)

// Decrypt decrypts an AES-256-CBC body, strips PKCS#7 padding and returns the
// plaintext. Any failure, including non UTF-8 output, is ErrDecryptionFailed.
func Decrypt(body []byte, m Material) (string, error) {
	if len(body) == 0 || len(body)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d is not a positive multiple of %d",
			errs.ErrDecryptionFailed, len(body), aes.BlockSize)
	}
	if len(m.IV) != aes.BlockSize {
		return "", fmt.Errorf("%w: iv must be %d bytes", errs.ErrDecryptionFailed, aes.BlockSize)
	}
	block, err := aes.NewCipher(m.Key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrDecryptionFailed, err)
	}

	plain := make([]byte, len(body))
	gocipher.NewCBCDecrypter(block, m.IV).CryptBlocks(plain, body)

	plain, err = unpad(plain)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plain) {
		return "", fmt.Errorf("%w: plaintext is not valid UTF-8", errs.ErrDecryptionFailed)
	}
	return string(plain), nil
}

// Open derives key material for m and decrypts residual in one step.
func Open(m Mode, residual string) (string, error) {
	material, body, err := Derive(m, residual)
	if err != nil {
		return "", err
	}
	return Decrypt(body, material)
}

func unpad(b []byte) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, fmt.Errorf("%w: bad padding", errs.ErrDecryptionFailed)
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, fmt.Errorf("%w: bad padding", errs.ErrDecryptionFailed)
		}
	}
	return b[:len(b)-n], nil
}

func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	out := make([]byte, len(b), len(b)+n)
	copy(out, b)
	for i := 0; i < n; i++ {
		out = append(out, byte(n))
	}
	return out
}
