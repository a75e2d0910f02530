// Package lifecycle holds the asset state machine: the closed set of asset
// statuses, the transitions operators may request, and the guards that decide
// whether a requested transition is legal. The package is pure; callers supply
// the facts they read from storage and receive either nil or a *Violation.
package lifecycle

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the lifecycle status persisted on an asset.
type Status string

const (
	StatusAvailable  Status = "Available"
	StatusCheckedOut Status = "Checked out"
	StatusReserved   Status = "Reserved"
	StatusInAudit    Status = "In audit"
	StatusRetired    Status = "Retired"
)

// ErrUnknownStatus is returned when a persisted status is outside the closed set.
var ErrUnknownStatus = errors.New("lifecycle: unknown status")

var knownStatuses = []Status{
	StatusAvailable,
	StatusCheckedOut,
	StatusReserved,
	StatusInAudit,
	StatusRetired,
}

// Statuses returns every status in display order.
func Statuses() []Status {
	out := make([]Status, len(knownStatuses))
	copy(out, knownStatuses)
	return out
}

// ParseStatus normalises a stored status value. An empty value reads as
// Available; matching is case-insensitive so legacy rows written as
// "checked out" or "AVAILABLE" land on the canonical constant.
func ParseStatus(raw string) (Status, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return StatusAvailable, nil
	}
	for _, status := range knownStatuses {
		if strings.EqualFold(trimmed, string(status)) {
			return status, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
}

// Valid reports whether the status belongs to the closed set.
func (s Status) Valid() bool {
	for _, status := range knownStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Eligible reports whether an asset in this status may be checked out or reserved.
func (s Status) Eligible() bool {
	return s == StatusAvailable || s == ""
}

func (s Status) String() string {
	if s == "" {
		return string(StatusAvailable)
	}
	return string(s)
}

// Transition names an operator-requested lifecycle move.
type Transition string

const (
	TransitionCheckout Transition = "checkout"
	TransitionCheckin  Transition = "checkin"
	TransitionReserve  Transition = "reserve"
)

type transitionRule struct {
	label string
	from  Status
	to    Status
}

var transitionRules = map[Transition]transitionRule{
	TransitionCheckout: {label: "checkout", from: StatusAvailable, to: StatusCheckedOut},
	TransitionCheckin:  {label: "checkin", from: StatusCheckedOut, to: StatusAvailable},
	// Reservations are advisory: the asset stays Available and the write only
	// bumps the row version so a racing checkout is detected.
	TransitionReserve: {label: "reservation", from: StatusAvailable, to: StatusAvailable},
}

// Endpoints returns the status an asset must hold before the transition and the
// status it holds afterwards.
func Endpoints(t Transition) (from, to Status, ok bool) {
	rule, ok := transitionRules[t]
	if !ok {
		return "", "", false
	}
	return rule.from, rule.to, true
}

// Label returns a human readable name for the transition.
func (t Transition) Label() string {
	if rule, ok := transitionRules[t]; ok {
		return rule.label
	}
	return string(t)
}

// ReservationType selects the party a reservation is held for.
type ReservationType string

const (
	ReservationEmployee   ReservationType = "Employee"
	ReservationDepartment ReservationType = "Department"
)

// ParseReservationType accepts the reservation type case-insensitively.
func ParseReservationType(raw string) (ReservationType, bool) {
	switch {
	case strings.EqualFold(strings.TrimSpace(raw), string(ReservationEmployee)):
		return ReservationEmployee, true
	case strings.EqualFold(strings.TrimSpace(raw), string(ReservationDepartment)):
		return ReservationDepartment, true
	default:
		return "", false
	}
}
