package persistence

import (
	"time"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/lifecycle"
)

// Asset is the canonical record for a tracked physical item.
type Asset struct {
	ID          string
	TagID       string
	Description string
	Status      lifecycle.Status
	Category    string
	SubCategory string
	Location    string
	Department  string
	Site        string
	Cost        *float64
	// Version increases on every status write and backs the compare-and-swap.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Checkout lends an asset to an employee until a Checkin closes it.
type Checkout struct {
	ID                 string
	AssetID            string
	EmployeeID         string
	CheckoutDate       time.Time
	ExpectedReturnDate *time.Time
	ActorID            string
	CreatedAt          time.Time
	ClosedAt           *time.Time
}

// Open reports whether no checkin has been recorded for the checkout.
func (c Checkout) Open() bool {
	return c.ClosedAt == nil
}

// Checkin closes exactly one checkout.
type Checkin struct {
	ID             string
	CheckoutID     string
	AssetID        string
	CheckinDate    time.Time
	Condition      *string
	Notes          *string
	ReturnLocation *string
	ActorID        string
	CreatedAt      time.Time
}

// Reservation is an advisory hold on an asset for an employee or a department.
type Reservation struct {
	ID              string
	AssetID         string
	Type            lifecycle.ReservationType
	EmployeeID      *string
	Department      *string
	ReservationDate time.Time
	Purpose         *string
	Notes           *string
	ActorID         string
	CreatedAt       time.Time
	CancelledAt     *time.Time
}

// Active reports whether the reservation still holds on the given day.
func (r Reservation) Active(day time.Time) bool {
	if r.CancelledAt != nil {
		return false
	}
	return !truncateDay(r.ReservationDate).Before(truncateDay(day))
}

// Employee is a directory entry that checkouts and reservations point at.
type Employee struct {
	ID         string
	Name       string
	Email      string
	Department string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Operator is an authenticated actor allowed to call the mutating operations.
type Operator struct {
	ID         string
	Name       string
	Role       string
	APIKeyHash string
	Disabled   bool
	CreatedAt  time.Time
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
