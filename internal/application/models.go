package application

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/lifecycle"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/persistence"
)

// Capability is a permission gate checked before a mutating operation runs.
type Capability string

const (
	CapabilityCheckout Capability = "canCheckout"
	CapabilityCheckin  Capability = "canCheckin"
	CapabilityReserve  Capability = "canReserve"
)

// ParseCapability accepts a capability name case-insensitively.
func ParseCapability(raw string) (Capability, error) {
	for _, c := range []Capability{CapabilityCheckout, CapabilityCheckin, CapabilityReserve} {
		if strings.EqualFold(strings.TrimSpace(raw), string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("application: unknown capability %q", raw)
}

// Principal represents the authenticated operator invoking a service method.
type Principal struct {
	ActorID      string
	Role         string
	Capabilities []Capability
}

// Can reports whether the principal holds the capability.
func (p Principal) Can(c Capability) bool {
	return slices.Contains(p.Capabilities, c)
}

// PlacementInput carries the optional placement fields written with a checkout.
type PlacementInput struct {
	Department *string
	Site       *string
	Location   *string
}

// CheckoutItem names one asset of a checkout batch.
type CheckoutItem struct {
	Identifier string
	Placement  PlacementInput
}

// CheckoutParams wraps the data required to check out a batch of assets.
type CheckoutParams struct {
	Principal          Principal
	Items              []CheckoutItem
	EmployeeID         string
	CheckoutDate       time.Time
	ExpectedReturnDate *time.Time
}

// CheckinItem names one asset of a checkin batch and its return details.
type CheckinItem struct {
	Identifier string
	// CheckoutID optionally pins the checkout being closed.
	CheckoutID     string
	Condition      *string
	Notes          *string
	ReturnLocation *string
}

// CheckinParams wraps the data required to check in a batch of assets.
type CheckinParams struct {
	Principal   Principal
	Items       []CheckinItem
	CheckinDate time.Time
}

// ReserveParams wraps the data required to reserve one or more assets.
type ReserveParams struct {
	Principal       Principal
	Identifiers     []string
	Type            string
	ReservationDate time.Time
	EmployeeID      string
	Department      string
	Purpose         *string
	Notes           *string
}

// CancelReservationParams identifies the reservation to cancel.
type CancelReservationParams struct {
	Principal     Principal
	ReservationID string
}

// OutcomeOK is the outcome reported for an asset whose transition committed.
const OutcomeOK = "ok"

// AssetResult reports what happened to one identifier of a batch.
type AssetResult struct {
	Identifier string
	AssetID    string
	TagID      string
	// Outcome is OutcomeOK or the violation kind.
	Outcome   string
	Kind      lifecycle.Kind
	Detail    string
	Retryable bool
	// Status is the asset status after a success, or the status that blocked a failure.
	Status lifecycle.Status
	// RecordID is the checkout, checkin or reservation written on success.
	RecordID string
}

// OK reports whether the transition committed for this asset.
func (r AssetResult) OK() bool {
	return r.Outcome == OutcomeOK
}

// BatchResult enumerates per-asset outcomes in request order.
type BatchResult struct {
	Transition lifecycle.Transition
	Results    []AssetResult
	Succeeded  int
	Failed     int
}

func (b *BatchResult) add(r AssetResult) {
	b.Results = append(b.Results, r)
	if r.OK() {
		b.Succeeded++
		return
	}
	b.Failed++
}

// CheckoutRecord is a checkout together with the checkin that closed it.
type CheckoutRecord struct {
	Checkout persistence.Checkout
	Checkin  *persistence.Checkin
}

// History is the ledger of a single asset, newest first.
type History struct {
	Asset        persistence.Asset
	Checkouts    []CheckoutRecord
	Reservations []persistence.Reservation
}

// SuggestPurpose selects which statuses a suggestion list offers.
type SuggestPurpose string

const (
	SuggestAny      SuggestPurpose = "any"
	SuggestCheckout SuggestPurpose = "checkout"
	SuggestCheckin  SuggestPurpose = "checkin"
	SuggestReserve  SuggestPurpose = "reserve"
)

// ParseSuggestPurpose maps the request value to a purpose; empty means any.
func ParseSuggestPurpose(raw string) (SuggestPurpose, error) {
	switch SuggestPurpose(strings.ToLower(strings.TrimSpace(raw))) {
	case "", SuggestAny:
		return SuggestAny, nil
	case SuggestCheckout:
		return SuggestCheckout, nil
	case SuggestCheckin:
		return SuggestCheckin, nil
	case SuggestReserve:
		return SuggestReserve, nil
	default:
		return "", fmt.Errorf("application: unknown suggestion purpose %q", raw)
	}
}

// SuggestParams wraps a candidate list query.
type SuggestParams struct {
	Query   string
	Purpose SuggestPurpose
	Limit   int
}

// TransitionEvent describes a committed lifecycle transition.
type TransitionEvent struct {
	Transition lifecycle.Transition `json:"transition"`
	AssetID    string               `json:"asset_id"`
	TagID      string               `json:"asset_tag_id"`
	From       lifecycle.Status     `json:"from"`
	To         lifecycle.Status     `json:"to"`
	RecordID   string               `json:"record_id"`
	ActorID    string               `json:"actor_id"`
	At         time.Time            `json:"at"`
}
