package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/lifecycle"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/persistence"
)

type sqlTx struct {
	tx     *sql.Tx
	pool   *ConnectionPool
	mapper *ErrorMapper
}

func (t *sqlTx) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	result, err := t.tx.ExecContext(ctx, t.pool.Rebind(query), args...)
	if err != nil {
		return nil, t.mapper.MapError(err)
	}
	return result, nil
}

func (t *sqlTx) exists(ctx context.Context, table, id string) (bool, error) {
	var one int
	err := t.tx.QueryRowContext(ctx, t.pool.Rebind(`SELECT 1 FROM `+table+` WHERE id = ?`), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, t.mapper.MapError(err)
	}
	return true, nil
}

// SetAssetStatus performs the compare-and-swap on status and version.
func (t *sqlTx) SetAssetStatus(ctx context.Context, change persistence.StatusChange) (persistence.Asset, error) {
	result, err := t.exec(ctx, `
		UPDATE assets
		SET status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ? AND lower(COALESCE(status, 'Available')) = lower(?)
	`,
		string(change.To),
		formatTimestamp(change.At),
		change.AssetID,
		change.ExpectedVersion,
		string(change.From),
	)
	if err != nil {
		return persistence.Asset{}, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return persistence.Asset{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		found, err := t.exists(ctx, "assets", change.AssetID)
		if err != nil {
			return persistence.Asset{}, err
		}
		if !found {
			return persistence.Asset{}, persistence.ErrNotFound
		}
		return persistence.Asset{}, fmt.Errorf("sqlstore: asset %s expected version %d: %w", change.AssetID, change.ExpectedVersion, persistence.ErrConflict)
	}

	row := t.tx.QueryRowContext(ctx, t.pool.Rebind(`SELECT `+assetColumns+` FROM assets WHERE id = ?`), change.AssetID)
	asset, err := scanAsset(row)
	if err != nil {
		return persistence.Asset{}, t.mapper.MapError(err)
	}
	return asset, nil
}

// UpdateAssetPlacement writes only the placement fields that are set.
func (t *sqlTx) UpdateAssetPlacement(ctx context.Context, update persistence.PlacementUpdate) error {
	if update.Empty() {
		return nil
	}

	var (
		sets []string
		args []any
	)
	if update.Department != nil {
		sets = append(sets, "department = ?")
		args = append(args, *update.Department)
	}
	if update.Site != nil {
		sets = append(sets, "site = ?")
		args = append(args, *update.Site)
	}
	if update.Location != nil {
		sets = append(sets, "location = ?")
		args = append(args, *update.Location)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, formatTimestamp(update.At), update.AssetID)

	result, err := t.exec(ctx, `UPDATE assets SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	if rowsAffected, err := result.RowsAffected(); err == nil && rowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// CreateCheckout inserts an open checkout. The partial unique index rejects a
// second open checkout for the same asset.
func (t *sqlTx) CreateCheckout(ctx context.Context, checkout persistence.Checkout) error {
	_, err := t.exec(ctx, `
		INSERT INTO checkouts (id, asset_id, employee_id, checkout_date, expected_return_date, actor_id, created_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL)
	`,
		checkout.ID,
		checkout.AssetID,
		checkout.EmployeeID,
		formatTimestamp(checkout.CheckoutDate),
		nullTimestamp(checkout.ExpectedReturnDate),
		checkout.ActorID,
		formatTimestamp(checkout.CreatedAt),
	)
	return err
}

// CreateCheckin closes the checkout and records the checkin.
func (t *sqlTx) CreateCheckin(ctx context.Context, checkin persistence.Checkin) error {
	result, err := t.exec(ctx, `UPDATE checkouts SET closed_at = ? WHERE id = ? AND closed_at IS NULL`,
		formatTimestamp(checkin.CreatedAt),
		checkin.CheckoutID,
	)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		found, err := t.exists(ctx, "checkouts", checkin.CheckoutID)
		if err != nil {
			return err
		}
		if !found {
			return persistence.ErrNotFound
		}
		return persistence.ErrCheckoutClosed
	}

	_, err = t.exec(ctx, `
		INSERT INTO checkins (id, checkout_id, asset_id, checkin_date, checkin_condition, notes, return_location, actor_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		checkin.ID,
		checkin.CheckoutID,
		checkin.AssetID,
		formatTimestamp(checkin.CheckinDate),
		nullString(checkin.Condition),
		nullString(checkin.Notes),
		nullString(checkin.ReturnLocation),
		checkin.ActorID,
		formatTimestamp(checkin.CreatedAt),
	)
	return err
}

// CreateReservation inserts a reservation.
func (t *sqlTx) CreateReservation(ctx context.Context, reservation persistence.Reservation) error {
	_, err := t.exec(ctx, `
		INSERT INTO reservations (id, asset_id, reservation_type, employee_id, department, reservation_date, purpose, notes, actor_id, created_at, cancelled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`,
		reservation.ID,
		reservation.AssetID,
		string(reservation.Type),
		nullString(reservation.EmployeeID),
		nullString(reservation.Department),
		formatTimestamp(reservation.ReservationDate),
		nullString(reservation.Purpose),
		nullString(reservation.Notes),
		reservation.ActorID,
		formatTimestamp(reservation.CreatedAt),
	)
	return err
}

// CancelReservation stamps cancelled_at once.
func (t *sqlTx) CancelReservation(ctx context.Context, id string, at time.Time) (persistence.Reservation, error) {
	result, err := t.exec(ctx, `UPDATE reservations SET cancelled_at = ? WHERE id = ? AND cancelled_at IS NULL`, formatTimestamp(at), id)
	if err != nil {
		return persistence.Reservation{}, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return persistence.Reservation{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		found, err := t.exists(ctx, "reservations", id)
		if err != nil {
			return persistence.Reservation{}, err
		}
		if !found {
			return persistence.Reservation{}, persistence.ErrNotFound
		}
		return persistence.Reservation{}, persistence.ErrReservationCancelled
	}

	row := t.tx.QueryRowContext(ctx, t.pool.Rebind(`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`), id)
	reservation, err := scanReservation(row)
	if err != nil {
		return persistence.Reservation{}, t.mapper.MapError(err)
	}
	return reservation, nil
}

// --- LedgerReader implementation ---

const (
	checkoutColumns    = `id, asset_id, employee_id, checkout_date, expected_return_date, actor_id, created_at, closed_at`
	checkinColumns     = `id, checkout_id, asset_id, checkin_date, checkin_condition, notes, return_location, actor_id, created_at`
	reservationColumns = `id, asset_id, reservation_type, employee_id, department, reservation_date, purpose, notes, actor_id, created_at, cancelled_at`
)

// ListCheckouts returns the checkouts of an asset, newest first
func (s *Store) ListCheckouts(ctx context.Context, assetID string) ([]persistence.Checkout, error) {
	rows, err := s.pool.DB().QueryContext(ctx, s.pool.Rebind(`
		SELECT `+checkoutColumns+` FROM checkouts
		WHERE asset_id = ?
		ORDER BY created_at DESC, id DESC
	`), assetID)
	if err != nil {
		return nil, s.mapper.MapError(err)
	}
	defer rows.Close()

	checkouts := make([]persistence.Checkout, 0)
	for rows.Next() {
		checkout, err := scanCheckout(rows)
		if err != nil {
			return nil, err
		}
		checkouts = append(checkouts, checkout)
	}
	return checkouts, s.mapper.MapError(rows.Err())
}

// ListCheckins returns the checkins of an asset, newest first
func (s *Store) ListCheckins(ctx context.Context, assetID string) ([]persistence.Checkin, error) {
	rows, err := s.pool.DB().QueryContext(ctx, s.pool.Rebind(`
		SELECT `+checkinColumns+` FROM checkins
		WHERE asset_id = ?
		ORDER BY created_at DESC, id DESC
	`), assetID)
	if err != nil {
		return nil, s.mapper.MapError(err)
	}
	defer rows.Close()

	checkins := make([]persistence.Checkin, 0)
	for rows.Next() {
		checkin, err := scanCheckin(rows)
		if err != nil {
			return nil, err
		}
		checkins = append(checkins, checkin)
	}
	return checkins, s.mapper.MapError(rows.Err())
}

// ListReservations returns the reservations of an asset, newest first
func (s *Store) ListReservations(ctx context.Context, assetID string) ([]persistence.Reservation, error) {
	rows, err := s.pool.DB().QueryContext(ctx, s.pool.Rebind(`
		SELECT `+reservationColumns+` FROM reservations
		WHERE asset_id = ?
		ORDER BY created_at DESC, id DESC
	`), assetID)
	if err != nil {
		return nil, s.mapper.MapError(err)
	}
	defer rows.Close()

	reservations := make([]persistence.Reservation, 0)
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}
	return reservations, s.mapper.MapError(rows.Err())
}

// GetReservation retrieves a reservation by id
func (s *Store) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	row := s.pool.DB().QueryRowContext(ctx, s.pool.Rebind(`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`), id)
	reservation, err := scanReservation(row)
	if err != nil {
		return persistence.Reservation{}, s.mapper.MapError(err)
	}
	return reservation, nil
}

func scanCheckout(row rowScanner) (persistence.Checkout, error) {
	var (
		checkout                 persistence.Checkout
		checkoutDate, createdAt  string
		expectedReturn, closedAt sql.NullString
		err                      error
	)
	if err = row.Scan(
		&checkout.ID,
		&checkout.AssetID,
		&checkout.EmployeeID,
		&checkoutDate,
		&expectedReturn,
		&checkout.ActorID,
		&createdAt,
		&closedAt,
	); err != nil {
		return persistence.Checkout{}, err
	}
	if checkout.CheckoutDate, err = parseTimestamp(checkoutDate); err != nil {
		return persistence.Checkout{}, err
	}
	if checkout.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Checkout{}, err
	}
	if checkout.ExpectedReturnDate, err = parseNullTimestamp(expectedReturn); err != nil {
		return persistence.Checkout{}, err
	}
	if checkout.ClosedAt, err = parseNullTimestamp(closedAt); err != nil {
		return persistence.Checkout{}, err
	}
	return checkout, nil
}

func scanCheckin(row rowScanner) (persistence.Checkin, error) {
	var (
		checkin                      persistence.Checkin
		checkinDate, createdAt       string
		condition, notes, returnedTo sql.NullString
		err                          error
	)
	if err = row.Scan(
		&checkin.ID,
		&checkin.CheckoutID,
		&checkin.AssetID,
		&checkinDate,
		&condition,
		&notes,
		&returnedTo,
		&checkin.ActorID,
		&createdAt,
	); err != nil {
		return persistence.Checkin{}, err
	}
	if checkin.CheckinDate, err = parseTimestamp(checkinDate); err != nil {
		return persistence.Checkin{}, err
	}
	if checkin.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Checkin{}, err
	}
	checkin.Condition = stringPtr(condition)
	checkin.Notes = stringPtr(notes)
	checkin.ReturnLocation = stringPtr(returnedTo)
	return checkin, nil
}

func scanReservation(row rowScanner) (persistence.Reservation, error) {
	var (
		reservation                 persistence.Reservation
		reservationType             string
		reservationDate, createdAt  string
		employeeID, department      sql.NullString
		purpose, notes, cancelledAt sql.NullString
		err                         error
	)
	if err = row.Scan(
		&reservation.ID,
		&reservation.AssetID,
		&reservationType,
		&employeeID,
		&department,
		&reservationDate,
		&purpose,
		&notes,
		&reservation.ActorID,
		&createdAt,
		&cancelledAt,
	); err != nil {
		return persistence.Reservation{}, err
	}
	parsedType, ok := lifecycle.ParseReservationType(reservationType)
	if !ok {
		return persistence.Reservation{}, fmt.Errorf("sqlstore: reservation %s has unknown type %q", reservation.ID, reservationType)
	}
	reservation.Type = parsedType
	if reservation.ReservationDate, err = parseTimestamp(reservationDate); err != nil {
		return persistence.Reservation{}, err
	}
	if reservation.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Reservation{}, err
	}
	if reservation.CancelledAt, err = parseNullTimestamp(cancelledAt); err != nil {
		return persistence.Reservation{}, err
	}
	reservation.EmployeeID = stringPtr(employeeID)
	reservation.Department = stringPtr(department)
	reservation.Purpose = stringPtr(purpose)
	reservation.Notes = stringPtr(notes)
	return reservation, nil
}
