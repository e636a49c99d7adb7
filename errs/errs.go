package errs

import (
	"errors"
)

var (
	// ErrInvalidInput indicates a malformed identifier or URL passed by the caller.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUpstreamUnavailable indicates a transport failure fetching the manifest or the script.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrSchemaMismatch indicates the obfuscated script no longer carries a usable key schedule.
	// It usually means the extractor is outdated.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrKeyDerivationFailed indicates the ciphertext header or the secret cannot yield a key.
	ErrKeyDerivationFailed = errors.New("key derivation failed")
	// ErrDecryptionFailed indicates the ciphertext, its padding or the plaintext encoding is invalid.
	ErrDecryptionFailed = errors.New("decryption failed")
	// ErrManifestParseFailed indicates the manifest content is not well-formed.
	ErrManifestParseFailed = errors.New("manifest parse failed")
)
