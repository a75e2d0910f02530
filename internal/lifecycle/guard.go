package lifecycle

import (
	"fmt"
	"strings"
)

// CheckoutFacts describes the asset a checkout is requested for.
type CheckoutFacts struct {
	Found     bool
	Status    Status
	Duplicate bool
}

// CheckCheckout evaluates checkout preconditions in order; the first failure wins.
//  1. the asset resolves
//  2. it is not already checked out
//  3. it is Available
//  4. it was not named earlier in the same request
func CheckCheckout(f CheckoutFacts) *Violation {
	if !f.Found {
		return &Violation{Kind: KindNotFound}
	}
	if f.Status == StatusCheckedOut {
		return &Violation{Kind: KindAlreadyCheckedOut, Actual: f.Status}
	}
	if !f.Status.Eligible() {
		return &Violation{Kind: KindNotAvailable, Actual: f.Status}
	}
	if f.Duplicate {
		return &Violation{Kind: KindDuplicateInBatch}
	}
	return nil
}

// CheckinFacts describes the asset and ledger state a checkin is requested against.
type CheckinFacts struct {
	Found  bool
	Status Status
	// OpenCheckouts is the number of checkouts with no checkin recorded.
	OpenCheckouts int
	// LastCheckoutClosed is true when the most recent checkout of the asset
	// already has a checkin. It distinguishes a resubmitted checkin from a
	// checkin of an asset that was never lent out.
	LastCheckoutClosed bool
	// Requested carries the checkout the caller named, if any.
	Requested *RequestedCheckout
	Duplicate bool
}

// RequestedCheckout is the checkout a caller explicitly asked to close.
type RequestedCheckout struct {
	ID     string
	Exists bool
	Closed bool
}

// CheckCheckin evaluates checkin preconditions in order; the first failure wins.
//  1. the asset resolves
//  2. a checkout the caller named is still open
//  3. the asset is checked out
//  4. exactly one checkout is open
//  5. it was not named earlier in the same request
func CheckCheckin(f CheckinFacts) *Violation {
	if !f.Found {
		return &Violation{Kind: KindNotFound}
	}
	if req := f.Requested; req != nil {
		if !req.Exists {
			return Refuse(KindNoActiveCheckout, fmt.Sprintf("checkout %s does not belong to this asset", req.ID))
		}
		if req.Closed {
			return Refuse(KindAlreadyCheckedIn, fmt.Sprintf("checkout %s is already closed", req.ID))
		}
	}
	if f.Status != StatusCheckedOut {
		if f.LastCheckoutClosed && f.Status.Eligible() {
			return &Violation{Kind: KindAlreadyCheckedIn, Actual: f.Status}
		}
		return &Violation{Kind: KindNotCheckedOut, Actual: f.Status}
	}
	if f.OpenCheckouts != 1 {
		return Refuse(KindNoActiveCheckout, fmt.Sprintf("expected one open checkout, found %d", f.OpenCheckouts))
	}
	if f.Duplicate {
		return &Violation{Kind: KindDuplicateInBatch}
	}
	return nil
}

// ReservationFacts describes the asset and target of a reservation request.
type ReservationFacts struct {
	Found      bool
	Status     Status
	Type       ReservationType
	EmployeeID string
	Department string
	// EmployeeKnown reports whether EmployeeID exists in the directory. It is
	// only consulted for employee reservations.
	EmployeeKnown bool
	Duplicate     bool
}

// CheckReservation evaluates reservation preconditions in order; the first failure wins.
//  1. the asset resolves
//  2. it is not checked out
//  3. it is Available
//  4. exactly one of employee or department is set and it matches the type
//  5. it was not named earlier in the same request
func CheckReservation(f ReservationFacts) *Violation {
	if !f.Found {
		return &Violation{Kind: KindNotFound}
	}
	if f.Status == StatusCheckedOut {
		return &Violation{Kind: KindAlreadyCheckedOut, Actual: f.Status}
	}
	if !f.Status.Eligible() {
		return &Violation{Kind: KindNotAvailable, Actual: f.Status}
	}
	if v := checkReservationTarget(f); v != nil {
		return v
	}
	if f.Duplicate {
		return &Violation{Kind: KindDuplicateInBatch}
	}
	return nil
}

func checkReservationTarget(f ReservationFacts) *Violation {
	employee := strings.TrimSpace(f.EmployeeID)
	department := strings.TrimSpace(f.Department)

	if employee != "" && department != "" {
		return Refuse(KindInvalidTarget, "employee and department are mutually exclusive")
	}

	switch f.Type {
	case ReservationEmployee:
		if employee == "" {
			return Refuse(KindInvalidTarget, "employee reservation requires an employee")
		}
		if !f.EmployeeKnown {
			return Refuse(KindInvalidTarget, fmt.Sprintf("employee %s does not exist", employee))
		}
	case ReservationDepartment:
		if department == "" {
			return Refuse(KindInvalidTarget, "department reservation requires a department")
		}
	default:
		return Refuse(KindInvalidTarget, fmt.Sprintf("unknown reservation type %q", f.Type))
	}
	return nil
}
