package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrConflict is returned when a compare-and-swap finds the row changed since it was read.
	ErrConflict = errors.New("persistence: version conflict")
	// ErrDuplicate is returned when a unique key such as an asset tag is already taken.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrOpenCheckoutExists is returned when an asset already has an open checkout.
	ErrOpenCheckoutExists = errors.New("persistence: asset already has an open checkout")
	// ErrCheckoutClosed is returned when a checkin targets a checkout that already has one.
	ErrCheckoutClosed = errors.New("persistence: checkout already closed")
	// ErrConstraintViolation is returned when a write breaks a foreign key or check constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrReservationCancelled is returned when cancelling a reservation twice.
	ErrReservationCancelled = errors.New("persistence: reservation already cancelled")
)
