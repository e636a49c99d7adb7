package megacloud

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shahradelahi/aniwatch/errs"
)

func TestNewErrorCodes(t *testing.T) {
	tests := []struct {
		sentinel error
		code     string
		is       func(error) bool
	}{
		{errs.ErrInvalidInput, ErrCodeInvalidInput, IsInvalidInput},
		{errs.ErrUpstreamUnavailable, ErrCodeUpstreamUnavailable, IsUpstreamUnavailable},
		{errs.ErrSchemaMismatch, ErrCodeSchemaMismatch, IsSchemaMismatch},
		{errs.ErrKeyDerivationFailed, ErrCodeKeyDerivationFailed, IsKeyDerivationFailed},
		{errs.ErrDecryptionFailed, ErrCodeDecryptionFailed, IsDecryptionFailed},
		{errs.ErrManifestParseFailed, ErrCodeManifestParseFailed, IsManifestParseFailed},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := NewError(StageManifest, fmt.Errorf("%w: detail", tt.sentinel))
			if err.Code != tt.code {
				t.Errorf("Code = %s, want %s", err.Code, tt.code)
			}
			if !tt.is(err) {
				t.Errorf("predicate false for %v", err)
			}
			if !tt.is(fmt.Errorf("outer: %w", err)) {
				t.Error("predicate should see through wrapping")
			}
			if !errors.Is(err, tt.sentinel) {
				t.Error("errors.Is should reach the sentinel")
			}
			if tt.is(tt.sentinel) {
				t.Error("a bare sentinel is not an extraction error")
			}
		})
	}
}

func TestErrorString(t *testing.T) {
	err := NewError(StageSchedule, fmt.Errorf("%w: none of 3 case assignments resolved", errs.ErrSchemaMismatch))
	want := "SCHEMA_MISMATCH at schedule: schema mismatch: none of 3 case assignments resolved"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	if stage, ok := StageOf(fmt.Errorf("wrapped: %w", err)); !ok || stage != StageSchedule {
		t.Errorf("StageOf() = %q, %v", stage, ok)
	}
	if _, ok := StageOf(errors.New("plain")); ok {
		t.Error("StageOf() should be false for foreign errors")
	}
}
