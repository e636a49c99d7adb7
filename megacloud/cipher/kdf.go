package cipher

import (
	"bytes"
	"crypto/md5"
	"encoding/base64"
	"fmt"

	"github.com/shahradelahi/aniwatch/errs"
)

const (
	// Magic prefixes every passphrase-encrypted payload.
	Magic = "Salted__"

	saltLen   = 8
	headerLen = len(Magic) + saltLen
	keyLen    = 32
	ivLen     = 16
)

// Material is a derived AES-256 key and CBC IV. It must never be logged.
type Material struct {
	Key []byte
	IV  []byte
}

// Mode selects how key material is obtained. It is either DirectKey or Passphrase.
type Mode interface {
	mode()
}

// DirectKey carries an already known key and IV. No derivation takes place.
type DirectKey struct {
	Key []byte
	IV  []byte
}

// Passphrase carries a secret that is expanded with the payload salt.
type Passphrase struct {
	Secret string
}

func (DirectKey) mode()  {}
func (Passphrase) mode() {}

// Derive decodes the base64 residual and returns the key material together
// with the ciphertext body that follows the header, if any.
func Derive(m Mode, residual string) (Material, []byte, error) {
	raw, err := base64.StdEncoding.DecodeString(residual)
	if err != nil || len(residual)%4 != 0 {
		return Material{}, nil, fmt.Errorf("%w: residual is not valid base64", errs.ErrKeyDerivationFailed)
	}

	switch m := m.(type) {
	case DirectKey:
		if len(m.Key) != keyLen || len(m.IV) != ivLen {
			return Material{}, nil, fmt.Errorf("%w: direct key must be %d bytes with a %d byte iv, got %d and %d",
				errs.ErrKeyDerivationFailed, keyLen, ivLen, len(m.Key), len(m.IV))
		}
		return Material{Key: bytes.Clone(m.Key), IV: bytes.Clone(m.IV)}, raw, nil

	case Passphrase:
		if m.Secret == "" {
			return Material{}, nil, fmt.Errorf("%w: empty secret", errs.ErrKeyDerivationFailed)
		}
		if len(raw) < headerLen {
			return Material{}, nil, fmt.Errorf("%w: payload shorter than its %d byte header",
				errs.ErrKeyDerivationFailed, headerLen)
		}
		if string(raw[:len(Magic)]) != Magic {
			return Material{}, nil, fmt.Errorf("%w: missing %q header", errs.ErrKeyDerivationFailed, Magic)
		}
		salt := raw[len(Magic):headerLen]
		return BytesToKey([]byte(m.Secret), salt), raw[headerLen:], nil

	default:
		return Material{}, nil, fmt.Errorf("%w: unknown mode %T", errs.ErrKeyDerivationFailed, m)
	}
}

// BytesToKey implements OpenSSL EVP_BytesToKey with MD5 and one iteration,
// producing a 32 byte key and a 16 byte IV.
func BytesToKey(secret, salt []byte) Material {
	var (
		out  []byte
		prev []byte
	)
	for len(out) < keyLen+ivLen {
		h := md5.New()
		h.Write(prev)
		h.Write(secret)
		h.Write(salt)
		prev = h.Sum(nil)
		out = append(out, prev...)
	}
	return Material{Key: out[:keyLen], IV: out[keyLen : keyLen+ivLen]}
}
