package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/lifecycle"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "invalid credentials", err: fmt.Errorf("wrap: %w", ErrInvalidCredentials), want: "invalid_credentials"},
		{name: "validation", err: &ValidationError{FieldErrors: map[string]string{"items": "required"}}, want: "validation"},
		{name: "violation", err: lifecycle.Refuse(lifecycle.KindAlreadyCheckedOut, ""), want: "already_checked_out"},
		{name: "not found", err: lifecycle.ErrNotFound, want: "not_found"},
		{name: "cancelled", err: fmt.Errorf("checkout stopped: %w", context.Canceled), want: "cancelled"},
		{name: "other", err: errors.New("boom"), want: "unexpected"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ErrorKind(tt.err); got != tt.want {
				t.Fatalf("ErrorKind() = %q, want %q", got, tt.want)
			}
		})
	}
}
