package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorConstants(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "ErrInvalidInput", err: ErrInvalidInput, expected: "invalid input"},
		{name: "ErrUpstreamUnavailable", err: ErrUpstreamUnavailable, expected: "upstream unavailable"},
		{name: "ErrSchemaMismatch", err: ErrSchemaMismatch, expected: "schema mismatch"},
		{name: "ErrKeyDerivationFailed", err: ErrKeyDerivationFailed, expected: "key derivation failed"},
		{name: "ErrDecryptionFailed", err: ErrDecryptionFailed, expected: "decryption failed"},
		{name: "ErrManifestParseFailed", err: ErrManifestParseFailed, expected: "manifest parse failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.expected {
				t.Errorf("Expected error message '%s', got '%s'", tt.expected, tt.err.Error())
			}
		})
	}
}

func TestErrorWrapping(t *testing.T) {
	wrapped := fmt.Errorf("%w: no offset pairs", ErrSchemaMismatch)
	if !errors.Is(wrapped, ErrSchemaMismatch) {
		t.Error("wrapped error should match ErrSchemaMismatch")
	}
	if errors.Is(wrapped, ErrDecryptionFailed) {
		t.Error("wrapped error should not match ErrDecryptionFailed")
	}
}

func TestErrorUniqueness(t *testing.T) {
	errorList := []error{
		ErrInvalidInput,
		ErrUpstreamUnavailable,
		ErrSchemaMismatch,
		ErrKeyDerivationFailed,
		ErrDecryptionFailed,
		ErrManifestParseFailed,
	}

	for i, err1 := range errorList {
		for j, err2 := range errorList {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("Error %d and %d should not be equal", i, j)
			}
		}
	}
}
