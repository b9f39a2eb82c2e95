package errors

import (
	"fmt"
	"testing"
)

func TestKindClassifiesWrappedErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "nil", err: nil, want: nil},
		{name: "validation", err: fmt.Errorf("buy: %w", ErrValidation), want: ErrValidation},
		{name: "funds", err: fmt.Errorf("debit 42: %w", ErrInsufficientFunds), want: ErrInsufficientFunds},
		{name: "reason unwraps to eligibility", err: fmt.Errorf("claim: %w", ErrFollowRequired), want: ErrEligibilityDenied},
		{name: "unknown", err: New("boom"), want: ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Kind(tt.err); got != tt.want {
				t.Fatalf("unexpected kind: got %v want %v", got, tt.want)
			}
		})
	}
}

func TestReasonCode(t *testing.T) {
	t.Parallel()

	if got := Reason(fmt.Errorf("wrap: %w", ErrAlreadyEngaged)); got != "already_engaged" {
		t.Fatalf("unexpected reason: %q", got)
	}
	if got := Reason(ErrValidation); got != "" {
		t.Fatalf("expected empty reason, got %q", got)
	}
}
