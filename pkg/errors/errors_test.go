package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestHubError_Error(t *testing.T) {
	err := ErrEmptyExportInput.WithMessage("workout has no steps")
	if got, want := err.Error(), "[EMPTY_EXPORT_INPUT] workout has no steps"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := ErrRoutingUnavailable.WithCause(fmt.Errorf("dial tcp: refused"))
	if got, want := wrapped.Error(), "[ROUTING_PROVIDER_UNAVAILABLE] routing provider unavailable: dial tcp: refused"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestHubError_IsMatchesByCode(t *testing.T) {
	derived := ErrValidation.WithMessage("ftp must be positive").WithMetadata("field", "ftp")
	if !stderrors.Is(derived, ErrValidation) {
		t.Fatal("expected derived error to match sentinel")
	}
	if stderrors.Is(derived, ErrInvalidFieldValue) {
		t.Error("expected no match across codes")
	}

	outer := fmt.Errorf("encode: %w", derived)
	if !stderrors.Is(outer, ErrValidation) {
		t.Error("expected match through fmt wrapping")
	}
	if derived.Metadata["field"] != "ftp" {
		t.Errorf("metadata not kept: %v", derived.Metadata)
	}
	if len(ErrValidation.Metadata) != 0 {
		t.Error("WithMetadata mutated the sentinel")
	}
}

func TestGetCodeAndRetryable(t *testing.T) {
	if GetCode(nil) != "" {
		t.Error("nil error should have empty code")
	}
	if GetCode(fmt.Errorf("plain")) != CodeInternalError {
		t.Error("plain error should map to INTERNAL_ERROR")
	}

	err := fmt.Errorf("fetch: %w", ErrRoutingRateLimited.WithCause(fmt.Errorf("429")))
	if GetCode(err) != CodeRoutingRateLimited {
		t.Errorf("GetCode = %s", GetCode(err))
	}
	if !IsRetryable(err) {
		t.Error("rate limit should be retryable")
	}
	if IsRetryable(ErrEmptyExportInput) {
		t.Error("empty export should not be retryable")
	}
}
