package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/persistence"
)

type transaction struct {
	state *state
}

func (tx *transaction) SetAssetStatus(ctx context.Context, change persistence.StatusChange) (persistence.Asset, error) {
	asset, ok := tx.state.assets[change.AssetID]
	if !ok {
		return persistence.Asset{}, persistence.ErrNotFound
	}
	if asset.Version != change.ExpectedVersion || asset.Status != change.From {
		return persistence.Asset{}, fmt.Errorf("memory: asset %s at version %d: %w", asset.ID, asset.Version, persistence.ErrConflict)
	}

	asset.Status = change.To
	asset.Version++
	asset.UpdatedAt = change.At
	tx.state.assets[asset.ID] = asset
	return cloneAsset(asset), nil
}

func (tx *transaction) UpdateAssetPlacement(ctx context.Context, update persistence.PlacementUpdate) error {
	asset, ok := tx.state.assets[update.AssetID]
	if !ok {
		return persistence.ErrNotFound
	}
	if update.Empty() {
		return nil
	}
	if update.Department != nil {
		asset.Department = *update.Department
	}
	if update.Site != nil {
		asset.Site = *update.Site
	}
	if update.Location != nil {
		asset.Location = *update.Location
	}
	asset.UpdatedAt = update.At
	tx.state.assets[asset.ID] = asset
	return nil
}

func (tx *transaction) CreateCheckout(ctx context.Context, checkout persistence.Checkout) error {
	if _, ok := tx.state.assets[checkout.AssetID]; !ok {
		return persistence.ErrNotFound
	}
	if _, ok := tx.state.checkouts[checkout.ID]; ok {
		return fmt.Errorf("memory: checkout %s: %w", checkout.ID, persistence.ErrDuplicate)
	}
	for _, existing := range tx.state.checkouts {
		if existing.AssetID == checkout.AssetID && existing.Open() {
			return persistence.ErrOpenCheckoutExists
		}
	}
	checkout.ClosedAt = nil
	tx.state.checkouts[checkout.ID] = cloneCheckout(checkout)
	return nil
}

func (tx *transaction) CreateCheckin(ctx context.Context, checkin persistence.Checkin) error {
	checkout, ok := tx.state.checkouts[checkin.CheckoutID]
	if !ok {
		return persistence.ErrNotFound
	}
	if !checkout.Open() {
		return persistence.ErrCheckoutClosed
	}
	for _, existing := range tx.state.checkins {
		if existing.CheckoutID == checkin.CheckoutID {
			return persistence.ErrCheckoutClosed
		}
	}

	closedAt := checkin.CreatedAt
	checkout.ClosedAt = &closedAt
	tx.state.checkouts[checkout.ID] = checkout
	tx.state.checkins[checkin.ID] = cloneCheckin(checkin)
	return nil
}

func (tx *transaction) CreateReservation(ctx context.Context, reservation persistence.Reservation) error {
	if _, ok := tx.state.assets[reservation.AssetID]; !ok {
		return persistence.ErrNotFound
	}
	if _, ok := tx.state.reservations[reservation.ID]; ok {
		return fmt.Errorf("memory: reservation %s: %w", reservation.ID, persistence.ErrDuplicate)
	}
	reservation.CancelledAt = nil
	tx.state.reservations[reservation.ID] = cloneReservation(reservation)
	return nil
}

func (tx *transaction) CancelReservation(ctx context.Context, id string, at time.Time) (persistence.Reservation, error) {
	reservation, ok := tx.state.reservations[id]
	if !ok {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	if reservation.CancelledAt != nil {
		return persistence.Reservation{}, persistence.ErrReservationCancelled
	}
	cancelled := at
	reservation.CancelledAt = &cancelled
	tx.state.reservations[id] = reservation
	return cloneReservation(reservation), nil
}
