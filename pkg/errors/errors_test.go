package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := New(ErrorTypeRateLimit, 429, "slow down after %d requests", 20)
	want := "rate_limit error (code 429): slow down after 20 requests"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
}

func TestErrorsAsRecoversType(t *testing.T) {
	wrapped := fmt.Errorf("fetch failed: %w", New(ErrorTypeNetwork, 0, "timeout"))

	var typed *Error
	if !errors.As(wrapped, &typed) {
		t.Fatal("Expected errors.As to unwrap the typed error")
	}
	if typed.Type != ErrorTypeNetwork {
		t.Errorf("Expected network type, got %s", typed.Type)
	}
}

func TestIsRetryable(t *testing.T) {
	retryable := []ErrorType{ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError}
	for _, et := range retryable {
		if !IsRetryable(et) {
			t.Errorf("Expected %s to be retryable", et)
		}
	}

	permanent := []ErrorType{ErrorTypeAuth, ErrorTypeParsing, ErrorTypeNotFound, ErrorTypeValidation, ErrorTypeStorage, ErrorTypeUnknown}
	for _, et := range permanent {
		if IsRetryable(et) {
			t.Errorf("Expected %s not to be retryable", et)
		}
	}
}

func TestIsRetryableStatusCode(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{0, true},
		{429, true},
		{500, true},
		{503, true},
		{200, false},
		{401, false},
		{403, false},
		{404, false},
	}

	for _, tt := range tests {
		if got := IsRetryableStatusCode(tt.code); got != tt.want {
			t.Errorf("code %d: expected %v, got %v", tt.code, tt.want, got)
		}
	}
}
