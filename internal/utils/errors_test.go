package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid argument", E(CodeInvalidArgument, "op", "bad", nil), http.StatusBadRequest},
		{"rate limited", E(CodeRateLimited, "op", "slow down", nil), http.StatusTooManyRequests},
		{"conflict", E(CodeConflict, "op", "busy", nil), http.StatusConflict},
		{"unavailable wrapped", fmt.Errorf("outer: %w", E(CodeUnavailable, "op", "down", nil)), http.StatusServiceUnavailable},
		{"not found sentinel", fmt.Errorf("lookup: %w", ErrNotFound), http.StatusNotFound},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestAppErrorFormatting(t *testing.T) {
	inner := errors.New("dial tcp")
	err := E(CodeUnavailable, "SubmissionClient.Submit", "send failed", inner)

	if got := err.Error(); got != "SubmissionClient.Submit: send failed: dial tcp" {
		t.Fatalf("unexpected message %q", got)
	}
	if !errors.Is(err, inner) {
		t.Fatal("expected wrapped error to unwrap")
	}
	if !IsCode(err, CodeUnavailable) || IsCode(err, CodeInternal) {
		t.Fatal("IsCode mismatch")
	}
}

func TestMessageFallback(t *testing.T) {
	if got := Message(E(CodeInternal, "op", "safe", nil), "fallback"); got != "safe" {
		t.Fatalf("expected safe, got %q", got)
	}
	if got := Message(errors.New("raw"), "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
