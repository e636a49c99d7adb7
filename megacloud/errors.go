package megacloud

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shahradelahi/aniwatch/errs"
)

// Error codes
const (
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeSchemaMismatch      = "SCHEMA_MISMATCH"
	ErrCodeKeyDerivationFailed = "KEY_DERIVATION_FAILED"
	ErrCodeDecryptionFailed    = "DECRYPTION_FAILED"
	ErrCodeManifestParseFailed = "MANIFEST_PARSE_FAILED"
	ErrCodeUnknown             = "UNKNOWN"
)

// Stage names the extraction step that failed.
type Stage string

const (
	StageInput    Stage = "input"
	StageManifest Stage = "manifest"
	StageScript   Stage = "script"
	StageSchedule Stage = "schedule"
	StageDerive   Stage = "derive"
	StageDecrypt  Stage = "decrypt"
	StageParse    Stage = "parse"
)

// Error is the single error type returned by Extractor.Extract.
// It carries the failing stage and wraps the underlying errs sentinel.
type Error struct {
	Code    string `json:"code"`
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("%s at %s: %s", e.Code, e.Stage, e.Message)
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler
func (e *Error) MarshalJSON() ([]byte, error) {
	type Alias Error
	return json.Marshal(&struct {
		*Alias
		Error string `json:"error"`
	}{
		Alias: (*Alias)(e),
		Error: e.Error(),
	})
}

// NewError wraps err as a stage failure. The code is derived from the errs
// sentinel err wraps.
func NewError(stage Stage, err error) *Error {
	return &Error{
		Code:    codeOf(err),
		Stage:   stage,
		Message: err.Error(),
		Err:     err,
	}
}

func codeOf(err error) string {
	switch {
	case errors.Is(err, errs.ErrInvalidInput):
		return ErrCodeInvalidInput
	case errors.Is(err, errs.ErrUpstreamUnavailable):
		return ErrCodeUpstreamUnavailable
	case errors.Is(err, errs.ErrSchemaMismatch):
		return ErrCodeSchemaMismatch
	case errors.Is(err, errs.ErrKeyDerivationFailed):
		return ErrCodeKeyDerivationFailed
	case errors.Is(err, errs.ErrDecryptionFailed):
		return ErrCodeDecryptionFailed
	case errors.Is(err, errs.ErrManifestParseFailed):
		return ErrCodeManifestParseFailed
	default:
		return ErrCodeUnknown
	}
}

// StageOf returns the failing stage of an extraction error.
func StageOf(err error) (Stage, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage, true
	}
	return "", false
}

func hasCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsInvalidInput returns true if the caller passed a malformed identifier
func IsInvalidInput(err error) bool { return hasCode(err, ErrCodeInvalidInput) }

// IsUpstreamUnavailable returns true if a fetch failed
func IsUpstreamUnavailable(err error) bool { return hasCode(err, ErrCodeUpstreamUnavailable) }

// IsSchemaMismatch returns true if the player script is no longer understood
func IsSchemaMismatch(err error) bool { return hasCode(err, ErrCodeSchemaMismatch) }

// IsKeyDerivationFailed returns true if no key could be derived
func IsKeyDerivationFailed(err error) bool { return hasCode(err, ErrCodeKeyDerivationFailed) }

// IsDecryptionFailed returns true if the payload did not decrypt
func IsDecryptionFailed(err error) bool { return hasCode(err, ErrCodeDecryptionFailed) }

// IsManifestParseFailed returns true if the manifest was malformed
func IsManifestParseFailed(err error) bool { return hasCode(err, ErrCodeManifestParseFailed) }
