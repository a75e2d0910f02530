package persistence

import (
	"context"
	"time"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/lifecycle"
)

// AssetFilter narrows asset searches used for suggestion lists.
type AssetFilter struct {
	// Query matches the asset tag case-insensitively by prefix or substring.
	Query    string
	Statuses []lifecycle.Status
	// ExcludeReservedOn hides assets holding an active reservation on or after that day.
	ExcludeReservedOn *time.Time
	Limit             int
}

// AssetRegistry reads and registers assets. Status only changes through Tx.
type AssetRegistry interface {
	CreateAsset(ctx context.Context, asset Asset) error
	GetAsset(ctx context.Context, id string) (Asset, error)
	// GetAssetByTag matches the tag exactly, ignoring case.
	GetAssetByTag(ctx context.Context, tag string) (Asset, error)
	SearchAssets(ctx context.Context, filter AssetFilter) ([]Asset, error)
}

// LedgerReader exposes the transaction history of an asset, newest first.
type LedgerReader interface {
	ListCheckouts(ctx context.Context, assetID string) ([]Checkout, error)
	ListCheckins(ctx context.Context, assetID string) ([]Checkin, error)
	ListReservations(ctx context.Context, assetID string) ([]Reservation, error)
	GetReservation(ctx context.Context, id string) (Reservation, error)
}

// EmployeeRepository is the employee directory.
type EmployeeRepository interface {
	UpsertEmployee(ctx context.Context, employee Employee) error
	GetEmployee(ctx context.Context, id string) (Employee, error)
}

// OperatorRepository stores the actors allowed to authenticate.
type OperatorRepository interface {
	CreateOperator(ctx context.Context, operator Operator) error
	GetOperator(ctx context.Context, id string) (Operator, error)
}

// StatusChange is a compare-and-swap on an asset's status.
type StatusChange struct {
	AssetID string
	From    lifecycle.Status
	To      lifecycle.Status
	// ExpectedVersion must equal the stored version for the write to apply.
	ExpectedVersion int64
	At              time.Time
}

// PlacementUpdate rewrites the placement fields that are non-nil.
type PlacementUpdate struct {
	AssetID    string
	Department *string
	Site       *string
	Location   *string
	At         time.Time
}

// Empty reports whether the update would write nothing.
func (p PlacementUpdate) Empty() bool {
	return p.Department == nil && p.Site == nil && p.Location == nil
}

// Tx is one atomic unit of ledger and registry writes. Either every call made
// through a Tx is committed or none is.
type Tx interface {
	// SetAssetStatus applies the change only if the stored status and version
	// still match. It returns ErrConflict when they do not and ErrNotFound when
	// the asset is gone. On success the returned asset carries the new version.
	SetAssetStatus(ctx context.Context, change StatusChange) (Asset, error)
	UpdateAssetPlacement(ctx context.Context, update PlacementUpdate) error
	// CreateCheckout returns ErrOpenCheckoutExists if the asset already has an open checkout.
	CreateCheckout(ctx context.Context, checkout Checkout) error
	// CreateCheckin records the checkin and closes its checkout. It returns
	// ErrCheckoutClosed when the checkout already has a checkin.
	CreateCheckin(ctx context.Context, checkin Checkin) error
	CreateReservation(ctx context.Context, reservation Reservation) error
	CancelReservation(ctx context.Context, id string, at time.Time) (Reservation, error)
}

// Store is the full persistence surface used by the service.
type Store interface {
	AssetRegistry
	LedgerReader
	EmployeeRepository
	OperatorRepository
	// WithinTx runs fn in a single transaction, committing when fn returns nil.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}
