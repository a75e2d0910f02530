// Package memory provides a process-local implementation of persistence.Store.
// Transactions copy the state, apply their writes to the copy and swap it in on
// success, so a failed unit leaves nothing behind.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/lifecycle"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/persistence"
)

var _ persistence.Store = (*Store)(nil)

type state struct {
	assets       map[string]persistence.Asset
	checkouts    map[string]persistence.Checkout
	checkins     map[string]persistence.Checkin
	reservations map[string]persistence.Reservation
	employees    map[string]persistence.Employee
	operators    map[string]persistence.Operator
}

func newState() state {
	return state{
		assets:       make(map[string]persistence.Asset),
		checkouts:    make(map[string]persistence.Checkout),
		checkins:     make(map[string]persistence.Checkin),
		reservations: make(map[string]persistence.Reservation),
		employees:    make(map[string]persistence.Employee),
		operators:    make(map[string]persistence.Operator),
	}
}

func (s state) clone() state {
	out := newState()
	for id, asset := range s.assets {
		out.assets[id] = cloneAsset(asset)
	}
	for id, checkout := range s.checkouts {
		out.checkouts[id] = cloneCheckout(checkout)
	}
	for id, checkin := range s.checkins {
		out.checkins[id] = cloneCheckin(checkin)
	}
	for id, reservation := range s.reservations {
		out.reservations[id] = cloneReservation(reservation)
	}
	for id, employee := range s.employees {
		out.employees[id] = employee
	}
	for id, operator := range s.operators {
		out.operators[id] = operator
	}
	return out
}

// Store keeps all records in memory behind a single lock.
type Store struct {
	mu    sync.RWMutex
	state state
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{state: newState()}
}

// Ping always succeeds for the in-memory implementation.
func (s *Store) Ping(context.Context) error {
	return nil
}

// Close releases resources held by the store. No-op for the in-memory implementation.
func (s *Store) Close() error {
	return nil
}

// WithinTx runs fn against a private copy of the state and publishes the copy
// only when fn succeeds. Store read methods must not be called from fn.
func (s *Store) WithinTx(ctx context.Context, fn func(tx persistence.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.state.clone()
	if err := fn(&transaction{state: &draft}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.state = draft
	return nil
}

// --- AssetRegistry implementation ---

// CreateAsset registers a new asset. Tags are unique ignoring case.
func (s *Store) CreateAsset(ctx context.Context, asset persistence.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.assets[asset.ID]; ok {
		return fmt.Errorf("memory: asset %s: %w", asset.ID, persistence.ErrDuplicate)
	}
	for _, existing := range s.state.assets {
		if strings.EqualFold(existing.TagID, asset.TagID) {
			return fmt.Errorf("memory: asset tag %s: %w", asset.TagID, persistence.ErrDuplicate)
		}
	}
	if asset.Status == "" {
		asset.Status = lifecycle.StatusAvailable
	}

	s.state.assets[asset.ID] = cloneAsset(asset)
	return nil
}

// GetAsset retrieves an asset by id.
func (s *Store) GetAsset(ctx context.Context, id string) (persistence.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	asset, ok := s.state.assets[id]
	if !ok {
		return persistence.Asset{}, persistence.ErrNotFound
	}
	return cloneAsset(asset), nil
}

// GetAssetByTag retrieves an asset by its tag, ignoring case.
func (s *Store) GetAssetByTag(ctx context.Context, tag string) (persistence.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, asset := range s.state.assets {
		if strings.EqualFold(asset.TagID, tag) {
			return cloneAsset(asset), nil
		}
	}
	return persistence.Asset{}, persistence.ErrNotFound
}

// SearchAssets returns assets whose tag contains the query, prefix matches first.
func (s *Store) SearchAssets(ctx context.Context, filter persistence.AssetFilter) ([]persistence.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	statuses := make(map[lifecycle.Status]struct{}, len(filter.Statuses))
	for _, status := range filter.Statuses {
		statuses[status] = struct{}{}
	}

	matches := make([]persistence.Asset, 0)
	for _, asset := range s.state.assets {
		if query != "" && !strings.Contains(strings.ToLower(asset.TagID), query) {
			continue
		}
		if len(statuses) > 0 {
			if _, ok := statuses[asset.Status]; !ok {
				continue
			}
		}
		if filter.ExcludeReservedOn != nil && s.state.reservedOnLocked(asset.ID, *filter.ExcludeReservedOn) {
			continue
		}
		matches = append(matches, cloneAsset(asset))
	}

	sort.Slice(matches, func(i, j int) bool {
		left, right := strings.ToLower(matches[i].TagID), strings.ToLower(matches[j].TagID)
		leftPrefix, rightPrefix := strings.HasPrefix(left, query), strings.HasPrefix(right, query)
		if leftPrefix != rightPrefix {
			return leftPrefix
		}
		return left < right
	})

	if filter.Limit > 0 && len(matches) > filter.Limit {
		matches = matches[:filter.Limit]
	}
	return matches, nil
}

func (s state) reservedOnLocked(assetID string, day time.Time) bool {
	for _, reservation := range s.reservations {
		if reservation.AssetID == assetID && reservation.Active(day) {
			return true
		}
	}
	return false
}

// --- LedgerReader implementation ---

// ListCheckouts returns the checkouts of an asset, newest first.
func (s *Store) ListCheckouts(ctx context.Context, assetID string) ([]persistence.Checkout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]persistence.Checkout, 0)
	for _, checkout := range s.state.checkouts {
		if checkout.AssetID == assetID {
			out = append(out, cloneCheckout(checkout))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ListCheckins returns the checkins of an asset, newest first.
func (s *Store) ListCheckins(ctx context.Context, assetID string) ([]persistence.Checkin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]persistence.Checkin, 0)
	for _, checkin := range s.state.checkins {
		if checkin.AssetID == assetID {
			out = append(out, cloneCheckin(checkin))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ListReservations returns the reservations of an asset, newest first.
func (s *Store) ListReservations(ctx context.Context, assetID string) ([]persistence.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]persistence.Reservation, 0)
	for _, reservation := range s.state.reservations {
		if reservation.AssetID == assetID {
			out = append(out, cloneReservation(reservation))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// GetReservation retrieves a reservation by id.
func (s *Store) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reservation, ok := s.state.reservations[id]
	if !ok {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	return cloneReservation(reservation), nil
}

// --- EmployeeRepository implementation ---

// UpsertEmployee inserts or replaces a directory entry.
func (s *Store) UpsertEmployee(ctx context.Context, employee persistence.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.state.employees[employee.ID]; ok && employee.CreatedAt.IsZero() {
		employee.CreatedAt = existing.CreatedAt
	}
	s.state.employees[employee.ID] = employee
	return nil
}

// GetEmployee retrieves a directory entry by id.
func (s *Store) GetEmployee(ctx context.Context, id string) (persistence.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	employee, ok := s.state.employees[id]
	if !ok {
		return persistence.Employee{}, persistence.ErrNotFound
	}
	return employee, nil
}

// --- OperatorRepository implementation ---

// CreateOperator registers an operator.
func (s *Store) CreateOperator(ctx context.Context, operator persistence.Operator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.operators[operator.ID]; ok {
		return fmt.Errorf("memory: operator %s: %w", operator.ID, persistence.ErrDuplicate)
	}
	s.state.operators[operator.ID] = operator
	return nil
}

// GetOperator retrieves an operator by id.
func (s *Store) GetOperator(ctx context.Context, id string) (persistence.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	operator, ok := s.state.operators[id]
	if !ok {
		return persistence.Operator{}, persistence.ErrNotFound
	}
	return operator, nil
}

func cloneAsset(asset persistence.Asset) persistence.Asset {
	asset.Cost = cloneFloat(asset.Cost)
	return asset
}

func cloneCheckout(checkout persistence.Checkout) persistence.Checkout {
	checkout.ExpectedReturnDate = cloneTime(checkout.ExpectedReturnDate)
	checkout.ClosedAt = cloneTime(checkout.ClosedAt)
	return checkout
}

func cloneCheckin(checkin persistence.Checkin) persistence.Checkin {
	checkin.Condition = cloneString(checkin.Condition)
	checkin.Notes = cloneString(checkin.Notes)
	checkin.ReturnLocation = cloneString(checkin.ReturnLocation)
	return checkin
}

func cloneReservation(reservation persistence.Reservation) persistence.Reservation {
	reservation.EmployeeID = cloneString(reservation.EmployeeID)
	reservation.Department = cloneString(reservation.Department)
	reservation.Purpose = cloneString(reservation.Purpose)
	reservation.Notes = cloneString(reservation.Notes)
	reservation.CancelledAt = cloneTime(reservation.CancelledAt)
	return reservation
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func cloneFloat(value *float64) *float64 {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
