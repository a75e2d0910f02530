package lifecycle

import (
	"errors"
	"fmt"
)

// Kind classifies why a transition was refused for one asset.
type Kind string

const (
	KindNotFound          Kind = "NotFound"
	KindAlreadyCheckedOut Kind = "AlreadyCheckedOut"
	KindNotAvailable      Kind = "NotAvailable"
	KindNotCheckedOut     Kind = "NotCheckedOut"
	KindNoActiveCheckout  Kind = "NoActiveCheckout"
	KindAlreadyCheckedIn  Kind = "AlreadyCheckedIn"
	KindDuplicateInBatch  Kind = "DuplicateInBatch"
	KindInvalidTarget     Kind = "InvalidTarget"
	KindAlreadyCancelled  Kind = "AlreadyCancelled"
	KindForbidden         Kind = "Forbidden"
	KindConflict          Kind = "Conflict"
	KindInternal          Kind = "Internal"
)

// Retryable reports whether the same request may succeed if submitted again.
// Only a lost compare-and-swap race qualifies.
func (k Kind) Retryable() bool {
	return k == KindConflict
}

// Violation is the typed refusal produced by a guard or by the commit step.
type Violation struct {
	Kind Kind
	// Actual carries the asset status observed when the guard ran. It is set for
	// NotAvailable and NotCheckedOut so callers can show what blocked them.
	Actual Status
	Detail string
}

// Error implements the error interface.
func (v *Violation) Error() string {
	if v == nil {
		return ""
	}
	switch {
	case v.Detail != "":
		return fmt.Sprintf("lifecycle: %s: %s", v.Kind, v.Detail)
	case v.Actual != "":
		return fmt.Sprintf("lifecycle: %s (status %q)", v.Kind, v.Actual)
	default:
		return fmt.Sprintf("lifecycle: %s", v.Kind)
	}
}

// Is matches another violation of the same kind so errors.Is works against the
// sentinel values below.
func (v *Violation) Is(target error) bool {
	var other *Violation
	if !errors.As(target, &other) || other == nil || v == nil {
		return false
	}
	return v.Kind == other.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound          = &Violation{Kind: KindNotFound}
	ErrAlreadyCheckedOut = &Violation{Kind: KindAlreadyCheckedOut}
	ErrNotAvailable      = &Violation{Kind: KindNotAvailable}
	ErrNotCheckedOut     = &Violation{Kind: KindNotCheckedOut}
	ErrNoActiveCheckout  = &Violation{Kind: KindNoActiveCheckout}
	ErrAlreadyCheckedIn  = &Violation{Kind: KindAlreadyCheckedIn}
	ErrDuplicateInBatch  = &Violation{Kind: KindDuplicateInBatch}
	ErrInvalidTarget     = &Violation{Kind: KindInvalidTarget}
	ErrAlreadyCancelled  = &Violation{Kind: KindAlreadyCancelled}
	ErrForbidden         = &Violation{Kind: KindForbidden}
	ErrConflict          = &Violation{Kind: KindConflict}
	ErrInternal          = &Violation{Kind: KindInternal}
)

// Refuse builds a violation of the given kind.
func Refuse(kind Kind, detail string) *Violation {
	return &Violation{Kind: kind, Detail: detail}
}

// KindOf extracts the violation kind from err. Errors that carry no violation
// are reported as Internal; a nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var v *Violation
	if errors.As(err, &v) && v != nil {
		return v.Kind
	}
	return KindInternal
}
