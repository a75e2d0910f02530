package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/lifecycle"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/persistence"
)

const defaultConflictRetries = 2

// EventReservationCancelled labels the event published when a reservation is cancelled.
const EventReservationCancelled lifecycle.Transition = "reservation_cancelled"

// LifecycleStore is the persistence surface the lifecycle service needs.
type LifecycleStore interface {
	persistence.AssetRegistry
	persistence.LedgerReader
	GetEmployee(ctx context.Context, id string) (persistence.Employee, error)
	WithinTx(ctx context.Context, fn func(tx persistence.Tx) error) error
}

// EventPublisher receives transitions after they are committed.
type EventPublisher interface {
	Publish(ctx context.Context, event TransitionEvent)
}

// TransitionRecorder observes the outcome of every per-asset transition.
type TransitionRecorder interface {
	ObserveTransition(transition lifecycle.Transition, outcome string, duration time.Duration)
}

// LifecycleOptions carries the optional collaborators of a LifecycleService.
type LifecycleOptions struct {
	Logger    *slog.Logger
	Publisher EventPublisher
	Recorder  TransitionRecorder
	// ConflictRetries bounds how often a commit that lost a race is retried
	// when the re-read asset still permits the transition. Zero selects the
	// default; a negative value disables retries.
	ConflictRetries int
}

// LifecycleService applies checkout, checkin and reservation transitions.
// Every asset of a batch is guarded and committed on its own.
type LifecycleService struct {
	store           LifecycleStore
	idGenerator     func() string
	now             func() time.Time
	logger          *slog.Logger
	publisher       EventPublisher
	recorder        TransitionRecorder
	conflictRetries int
}

// NewLifecycleService constructs a LifecycleService with default options.
func NewLifecycleService(store LifecycleStore, idGenerator func() string, now func() time.Time) *LifecycleService {
	return NewLifecycleServiceWithOptions(store, idGenerator, now, LifecycleOptions{})
}

// NewLifecycleServiceWithOptions constructs a LifecycleService with the supplied options.
func NewLifecycleServiceWithOptions(store LifecycleStore, idGenerator func() string, now func() time.Time, opts LifecycleOptions) *LifecycleService {
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	retries := opts.ConflictRetries
	switch {
	case retries == 0:
		retries = defaultConflictRetries
	case retries < 0:
		retries = 0
	}
	return &LifecycleService{
		store:           store,
		idGenerator:     idGenerator,
		now:             now,
		logger:          defaultLogger(opts.Logger),
		publisher:       opts.Publisher,
		recorder:        opts.Recorder,
		conflictRetries: retries,
	}
}

func (s *LifecycleService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "LifecycleService", operation, attrs...)
}

// target is an identifier of a batch as it was resolved before any commit.
type target struct {
	identifier string
	asset      persistence.Asset
	found      bool
	// err is a lookup failure other than not found.
	err error
	// checkouts is loaded for checkins only, newest first.
	checkouts []persistence.Checkout
}

func (s *LifecycleService) resolveTargets(ctx context.Context, identifiers []string, withCheckouts bool) []target {
	targets := make([]target, len(identifiers))
	for i, identifier := range identifiers {
		t := target{identifier: identifier}
		asset, err := resolveAsset(ctx, s.store, identifier)
		switch {
		case errors.Is(err, lifecycle.ErrNotFound):
		case err != nil:
			t.err = err
		default:
			t.asset = asset
			t.found = true
		}
		if t.found && withCheckouts {
			t.checkouts, t.err = s.store.ListCheckouts(ctx, asset.ID)
		}
		targets[i] = t
	}
	return targets
}

// Checkout lends every listed asset to one employee.
func (s *LifecycleService) Checkout(ctx context.Context, params CheckoutParams) (result BatchResult, err error) {
	result.Transition = lifecycle.TransitionCheckout
	logger := s.loggerWith(ctx, "Checkout",
		"actor_id", params.Principal.ActorID,
		"employee_id", params.EmployeeID,
		"items", len(params.Items),
	)
	defer func() {
		logBatch(ctx, logger, result, err)
	}()

	if !params.Principal.Can(CapabilityCheckout) {
		err = forbidden(params.Principal, CapabilityCheckout)
		return
	}

	verr := &ValidationError{}
	if len(params.Items) == 0 {
		verr.add("items", "at least one asset is required")
	}
	if strings.TrimSpace(params.EmployeeID) == "" {
		verr.add("employee_id", "required")
	}
	if params.CheckoutDate.IsZero() {
		verr.add("checkout_date", "required")
	}
	if params.ExpectedReturnDate != nil && params.ExpectedReturnDate.Before(params.CheckoutDate) {
		verr.add("expected_return_date", "must not be before the checkout date")
	}
	if verr.HasErrors() {
		err = verr
		return
	}

	employeeID := strings.TrimSpace(params.EmployeeID)
	if _, lookupErr := s.store.GetEmployee(ctx, employeeID); lookupErr != nil {
		if errors.Is(lookupErr, persistence.ErrNotFound) {
			verr.add("employee_id", "unknown employee")
			err = verr
			return
		}
		err = fmt.Errorf("load employee %s: %w", employeeID, lookupErr)
		return
	}

	identifiers := make([]string, len(params.Items))
	for i, item := range params.Items {
		identifiers[i] = item.Identifier
	}
	targets := s.resolveTargets(ctx, identifiers, false)
	batch := lifecycle.NewBatch(len(targets))

	for i, item := range params.Items {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("checkout stopped after %d of %d assets: %w", i, len(params.Items), ctxErr)
			return
		}
		result.add(s.checkoutOne(ctx, logger, params, employeeID, item, targets[i], batch))
	}
	return
}

func (s *LifecycleService) checkoutOne(ctx context.Context, logger *slog.Logger, params CheckoutParams, employeeID string, item CheckoutItem, t target, batch *lifecycle.Batch) (res AssetResult) {
	started := time.Now()
	res = newResult(t)
	defer func() {
		s.observe(lifecycle.TransitionCheckout, res, started)
	}()

	if t.err != nil {
		return s.internal(ctx, logger, res, t.err)
	}
	duplicate := t.found && batch.Mark(t.asset.ID)
	if v := lifecycle.CheckCheckout(lifecycle.CheckoutFacts{Found: t.found, Status: t.asset.Status, Duplicate: duplicate}); v != nil {
		return refused(ctx, logger, res, v)
	}

	from, to, _ := lifecycle.Endpoints(lifecycle.TransitionCheckout)
	var checkout persistence.Checkout
	asset, commitErr := s.commit(ctx, logger, t.asset,
		func(asset persistence.Asset) error {
			now := s.now()
			checkout = persistence.Checkout{
				ID:                 s.idGenerator(),
				AssetID:            asset.ID,
				EmployeeID:         employeeID,
				CheckoutDate:       params.CheckoutDate,
				ExpectedReturnDate: params.ExpectedReturnDate,
				ActorID:            params.Principal.ActorID,
				CreatedAt:          now,
			}
			return s.store.WithinTx(ctx, func(tx persistence.Tx) error {
				if _, err := tx.SetAssetStatus(ctx, persistence.StatusChange{
					AssetID:         asset.ID,
					From:            from,
					To:              to,
					ExpectedVersion: asset.Version,
					At:              now,
				}); err != nil {
					return err
				}
				if err := tx.CreateCheckout(ctx, checkout); err != nil {
					return err
				}
				return tx.UpdateAssetPlacement(ctx, placementChanges(asset, item.Placement, now))
			})
		},
		func(assetID string) (persistence.Asset, error) {
			fresh, err := s.reload(ctx, assetID)
			if err != nil {
				return persistence.Asset{}, err
			}
			if v := lifecycle.CheckCheckout(lifecycle.CheckoutFacts{Found: true, Status: fresh.Status}); v != nil {
				return persistence.Asset{}, v
			}
			return fresh, nil
		},
	)
	if commitErr != nil {
		return s.failed(ctx, logger, res, commitErr)
	}

	s.publish(ctx, TransitionEvent{
		Transition: lifecycle.TransitionCheckout,
		AssetID:    asset.ID,
		TagID:      asset.TagID,
		From:       asset.Status,
		To:         to,
		RecordID:   checkout.ID,
		ActorID:    params.Principal.ActorID,
		At:         checkout.CreatedAt,
	})
	return succeeded(res, to, checkout.ID)
}

// Checkin returns every listed asset and closes its open checkout.
func (s *LifecycleService) Checkin(ctx context.Context, params CheckinParams) (result BatchResult, err error) {
	result.Transition = lifecycle.TransitionCheckin
	logger := s.loggerWith(ctx, "Checkin",
		"actor_id", params.Principal.ActorID,
		"items", len(params.Items),
	)
	defer func() {
		logBatch(ctx, logger, result, err)
	}()

	if !params.Principal.Can(CapabilityCheckin) {
		err = forbidden(params.Principal, CapabilityCheckin)
		return
	}

	verr := &ValidationError{}
	if len(params.Items) == 0 {
		verr.add("items", "at least one asset is required")
	}
	if params.CheckinDate.IsZero() {
		verr.add("checkin_date", "required")
	}
	if verr.HasErrors() {
		err = verr
		return
	}

	identifiers := make([]string, len(params.Items))
	for i, item := range params.Items {
		identifiers[i] = item.Identifier
	}
	targets := s.resolveTargets(ctx, identifiers, true)
	batch := lifecycle.NewBatch(len(targets))

	for i, item := range params.Items {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("checkin stopped after %d of %d assets: %w", i, len(params.Items), ctxErr)
			return
		}
		result.add(s.checkinOne(ctx, logger, params, item, targets[i], batch))
	}
	return
}

func (s *LifecycleService) checkinOne(ctx context.Context, logger *slog.Logger, params CheckinParams, item CheckinItem, t target, batch *lifecycle.Batch) (res AssetResult) {
	started := time.Now()
	res = newResult(t)
	defer func() {
		s.observe(lifecycle.TransitionCheckin, res, started)
	}()

	if t.err != nil {
		return s.internal(ctx, logger, res, t.err)
	}
	requestedID := strings.TrimSpace(item.CheckoutID)
	duplicate := t.found && batch.Mark(t.asset.ID)
	facts, openID := checkinFacts(t.found, t.asset.Status, t.checkouts, requestedID)
	facts.Duplicate = duplicate
	if v := lifecycle.CheckCheckin(facts); v != nil {
		return refused(ctx, logger, res, v)
	}

	from, to, _ := lifecycle.Endpoints(lifecycle.TransitionCheckin)
	var checkin persistence.Checkin
	asset, commitErr := s.commit(ctx, logger, t.asset,
		func(asset persistence.Asset) error {
			now := s.now()
			checkin = persistence.Checkin{
				ID:             s.idGenerator(),
				CheckoutID:     openID,
				AssetID:        asset.ID,
				CheckinDate:    params.CheckinDate,
				Condition:      trimmedOrNil(item.Condition),
				Notes:          trimmedOrNil(item.Notes),
				ReturnLocation: trimmedOrNil(item.ReturnLocation),
				ActorID:        params.Principal.ActorID,
				CreatedAt:      now,
			}
			return s.store.WithinTx(ctx, func(tx persistence.Tx) error {
				if _, err := tx.SetAssetStatus(ctx, persistence.StatusChange{
					AssetID:         asset.ID,
					From:            from,
					To:              to,
					ExpectedVersion: asset.Version,
					At:              now,
				}); err != nil {
					return err
				}
				if err := tx.CreateCheckin(ctx, checkin); err != nil {
					return err
				}
				return tx.UpdateAssetPlacement(ctx, placementChanges(asset, PlacementInput{Location: checkin.ReturnLocation}, now))
			})
		},
		func(assetID string) (persistence.Asset, error) {
			fresh, err := s.reload(ctx, assetID)
			if err != nil {
				return persistence.Asset{}, err
			}
			checkouts, err := s.store.ListCheckouts(ctx, assetID)
			if err != nil {
				return persistence.Asset{}, err
			}
			facts, nextID := checkinFacts(true, fresh.Status, checkouts, requestedID)
			if v := lifecycle.CheckCheckin(facts); v != nil {
				return persistence.Asset{}, v
			}
			openID = nextID
			return fresh, nil
		},
	)
	if commitErr != nil {
		return s.failed(ctx, logger, res, commitErr)
	}

	s.publish(ctx, TransitionEvent{
		Transition: lifecycle.TransitionCheckin,
		AssetID:    asset.ID,
		TagID:      asset.TagID,
		From:       asset.Status,
		To:         to,
		RecordID:   checkin.ID,
		ActorID:    params.Principal.ActorID,
		At:         checkin.CreatedAt,
	})
	return succeeded(res, to, checkin.ID)
}

// checkinFacts derives guard facts from the ledger and returns the checkout a
// checkin would close.
func checkinFacts(found bool, status lifecycle.Status, checkouts []persistence.Checkout, requestedID string) (lifecycle.CheckinFacts, string) {
	facts := lifecycle.CheckinFacts{Found: found, Status: status}
	var openID string
	for _, checkout := range checkouts {
		if checkout.Open() {
			facts.OpenCheckouts++
			openID = checkout.ID
		}
	}
	if len(checkouts) > 0 {
		facts.LastCheckoutClosed = !checkouts[0].Open()
	}
	if requestedID != "" {
		requested := &lifecycle.RequestedCheckout{ID: requestedID}
		for _, checkout := range checkouts {
			if checkout.ID == requestedID {
				requested.Exists = true
				requested.Closed = !checkout.Open()
			}
		}
		facts.Requested = requested
		openID = requestedID
	}
	return facts, openID
}

// Reserve places an advisory reservation on every listed asset. The asset
// status stays Available and further reservations are accepted.
func (s *LifecycleService) Reserve(ctx context.Context, params ReserveParams) (result BatchResult, err error) {
	result.Transition = lifecycle.TransitionReserve
	logger := s.loggerWith(ctx, "Reserve",
		"actor_id", params.Principal.ActorID,
		"reservation_type", params.Type,
		"items", len(params.Identifiers),
	)
	defer func() {
		logBatch(ctx, logger, result, err)
	}()

	if !params.Principal.Can(CapabilityReserve) {
		err = forbidden(params.Principal, CapabilityReserve)
		return
	}

	verr := &ValidationError{}
	if len(params.Identifiers) == 0 {
		verr.add("items", "at least one asset is required")
	}
	if params.ReservationDate.IsZero() {
		verr.add("reservation_date", "required")
	}
	if verr.HasErrors() {
		err = verr
		return
	}

	reservationType, ok := lifecycle.ParseReservationType(params.Type)
	if !ok {
		reservationType = lifecycle.ReservationType(params.Type)
	}
	employeeID := strings.TrimSpace(params.EmployeeID)
	department := strings.TrimSpace(params.Department)
	employeeKnown := false
	if employeeID != "" {
		_, lookupErr := s.store.GetEmployee(ctx, employeeID)
		switch {
		case lookupErr == nil:
			employeeKnown = true
		case !errors.Is(lookupErr, persistence.ErrNotFound):
			err = fmt.Errorf("load employee %s: %w", employeeID, lookupErr)
			return
		}
	}

	targets := s.resolveTargets(ctx, params.Identifiers, false)
	batch := lifecycle.NewBatch(len(targets))

	for i, t := range targets {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("reservation stopped after %d of %d assets: %w", i, len(targets), ctxErr)
			return
		}
		facts := lifecycle.ReservationFacts{
			Type:          reservationType,
			EmployeeID:    employeeID,
			Department:    department,
			EmployeeKnown: employeeKnown,
		}
		result.add(s.reserveOne(ctx, logger, params, facts, t, batch))
	}
	return
}

func (s *LifecycleService) reserveOne(ctx context.Context, logger *slog.Logger, params ReserveParams, facts lifecycle.ReservationFacts, t target, batch *lifecycle.Batch) (res AssetResult) {
	started := time.Now()
	res = newResult(t)
	defer func() {
		s.observe(lifecycle.TransitionReserve, res, started)
	}()

	if t.err != nil {
		return s.internal(ctx, logger, res, t.err)
	}
	facts.Found = t.found
	facts.Status = t.asset.Status
	facts.Duplicate = t.found && batch.Mark(t.asset.ID)
	if v := lifecycle.CheckReservation(facts); v != nil {
		return refused(ctx, logger, res, v)
	}

	from, to, _ := lifecycle.Endpoints(lifecycle.TransitionReserve)
	var reservation persistence.Reservation
	asset, commitErr := s.commit(ctx, logger, t.asset,
		func(asset persistence.Asset) error {
			now := s.now()
			reservation = persistence.Reservation{
				ID:              s.idGenerator(),
				AssetID:         asset.ID,
				Type:            facts.Type,
				EmployeeID:      stringOrNil(facts.EmployeeID),
				Department:      stringOrNil(facts.Department),
				ReservationDate: params.ReservationDate,
				Purpose:         trimmedOrNil(params.Purpose),
				Notes:           trimmedOrNil(params.Notes),
				ActorID:         params.Principal.ActorID,
				CreatedAt:       now,
			}
			return s.store.WithinTx(ctx, func(tx persistence.Tx) error {
				if _, err := tx.SetAssetStatus(ctx, persistence.StatusChange{
					AssetID:         asset.ID,
					From:            from,
					To:              to,
					ExpectedVersion: asset.Version,
					At:              now,
				}); err != nil {
					return err
				}
				return tx.CreateReservation(ctx, reservation)
			})
		},
		func(assetID string) (persistence.Asset, error) {
			fresh, err := s.reload(ctx, assetID)
			if err != nil {
				return persistence.Asset{}, err
			}
			recheck := facts
			recheck.Found = true
			recheck.Status = fresh.Status
			recheck.Duplicate = false
			if v := lifecycle.CheckReservation(recheck); v != nil {
				return persistence.Asset{}, v
			}
			return fresh, nil
		},
	)
	if commitErr != nil {
		return s.failed(ctx, logger, res, commitErr)
	}

	s.publish(ctx, TransitionEvent{
		Transition: lifecycle.TransitionReserve,
		AssetID:    asset.ID,
		TagID:      asset.TagID,
		From:       asset.Status,
		To:         to,
		RecordID:   reservation.ID,
		ActorID:    params.Principal.ActorID,
		At:         reservation.CreatedAt,
	})
	return succeeded(res, to, reservation.ID)
}

// CancelReservation stamps a reservation as cancelled. A second cancel is refused.
func (s *LifecycleService) CancelReservation(ctx context.Context, params CancelReservationParams) (reservation persistence.Reservation, err error) {
	logger := s.loggerWith(ctx, "CancelReservation",
		"actor_id", params.Principal.ActorID,
		"reservation_id", params.ReservationID,
	)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "reservation not cancelled", err)
			return
		}
		logger.InfoContext(ctx, "reservation cancelled", "asset_id", reservation.AssetID)
	}()

	if !params.Principal.Can(CapabilityReserve) {
		err = forbidden(params.Principal, CapabilityReserve)
		return
	}
	id := strings.TrimSpace(params.ReservationID)
	if id == "" {
		verr := &ValidationError{}
		verr.add("reservation_id", "required")
		err = verr
		return
	}

	now := s.now()
	err = s.store.WithinTx(ctx, func(tx persistence.Tx) error {
		var txErr error
		reservation, txErr = tx.CancelReservation(ctx, id, now)
		return txErr
	})
	switch {
	case err == nil:
	case errors.Is(err, persistence.ErrNotFound):
		err = lifecycle.Refuse(lifecycle.KindNotFound, fmt.Sprintf("no reservation %s", id))
		return
	case errors.Is(err, persistence.ErrReservationCancelled):
		err = lifecycle.Refuse(lifecycle.KindAlreadyCancelled, fmt.Sprintf("reservation %s is already cancelled", id))
		return
	default:
		err = fmt.Errorf("cancel reservation %s: %w", id, err)
		return
	}

	s.publish(ctx, TransitionEvent{
		Transition: EventReservationCancelled,
		AssetID:    reservation.AssetID,
		RecordID:   reservation.ID,
		ActorID:    params.Principal.ActorID,
		At:         now,
	})
	return
}

// History returns an asset with its checkouts, checkins and reservations, newest first.
func (s *LifecycleService) History(ctx context.Context, identifier string) (history History, err error) {
	logger := s.loggerWith(ctx, "History", "identifier", identifier)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "history not loaded", err)
		}
	}()

	history.Asset, err = resolveAsset(ctx, s.store, identifier)
	if err != nil {
		return
	}
	checkouts, err := s.store.ListCheckouts(ctx, history.Asset.ID)
	if err != nil {
		err = fmt.Errorf("list checkouts: %w", err)
		return
	}
	checkins, err := s.store.ListCheckins(ctx, history.Asset.ID)
	if err != nil {
		err = fmt.Errorf("list checkins: %w", err)
		return
	}
	history.Reservations, err = s.store.ListReservations(ctx, history.Asset.ID)
	if err != nil {
		err = fmt.Errorf("list reservations: %w", err)
		return
	}

	byCheckout := make(map[string]persistence.Checkin, len(checkins))
	for _, checkin := range checkins {
		byCheckout[checkin.CheckoutID] = checkin
	}
	history.Checkouts = make([]CheckoutRecord, 0, len(checkouts))
	for _, checkout := range checkouts {
		record := CheckoutRecord{Checkout: checkout}
		if checkin, ok := byCheckout[checkout.ID]; ok {
			record.Checkin = &checkin
		}
		history.Checkouts = append(history.Checkouts, record)
	}
	return
}

// commit runs write against the snapshot asset. When the write loses a race the
// asset is re-read and re-guarded by recheck: a refusal is returned as is,
// otherwise the write is retried against the fresh asset until the retry
// budget is spent and Conflict is returned.
func (s *LifecycleService) commit(ctx context.Context, logger *slog.Logger, asset persistence.Asset, write func(asset persistence.Asset) error, recheck func(assetID string) (persistence.Asset, error)) (persistence.Asset, error) {
	for attempt := 0; ; attempt++ {
		err := write(asset)
		if err == nil {
			return asset, nil
		}
		if !lostRace(err) {
			return persistence.Asset{}, err
		}
		fresh, err := recheck(asset.ID)
		if err != nil {
			return persistence.Asset{}, err
		}
		if attempt >= s.conflictRetries {
			return persistence.Asset{}, lifecycle.Refuse(lifecycle.KindConflict,
				fmt.Sprintf("asset changed concurrently %d times; retry the request", attempt+1))
		}
		logger.DebugContext(ctx, "retrying after concurrent update",
			"asset_id", asset.ID,
			"attempt", attempt+1,
			"version", fresh.Version,
		)
		asset = fresh
	}
}

func (s *LifecycleService) reload(ctx context.Context, assetID string) (persistence.Asset, error) {
	fresh, err := s.store.GetAsset(ctx, assetID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Asset{}, lifecycle.Refuse(lifecycle.KindNotFound, "asset no longer exists")
		}
		return persistence.Asset{}, fmt.Errorf("reload asset %s: %w", assetID, err)
	}
	return fresh, nil
}

func lostRace(err error) bool {
	return errors.Is(err, persistence.ErrConflict) ||
		errors.Is(err, persistence.ErrOpenCheckoutExists) ||
		errors.Is(err, persistence.ErrCheckoutClosed)
}

func (s *LifecycleService) publish(ctx context.Context, event TransitionEvent) {
	if s.publisher != nil {
		s.publisher.Publish(ctx, event)
	}
}

func (s *LifecycleService) observe(transition lifecycle.Transition, res AssetResult, started time.Time) {
	if s.recorder == nil {
		return
	}
	outcome := OutcomeOK
	if !res.OK() {
		outcome = kindLabel(res.Kind)
	}
	s.recorder.ObserveTransition(transition, outcome, time.Since(started))
}

func newResult(t target) AssetResult {
	res := AssetResult{Identifier: t.identifier}
	if t.found {
		res.AssetID = t.asset.ID
		res.TagID = t.asset.TagID
	}
	return res
}

func succeeded(res AssetResult, status lifecycle.Status, recordID string) AssetResult {
	res.Outcome = OutcomeOK
	res.Status = status
	res.RecordID = recordID
	return res
}

func refused(ctx context.Context, logger *slog.Logger, res AssetResult, v *lifecycle.Violation) AssetResult {
	res.Outcome = string(v.Kind)
	res.Kind = v.Kind
	res.Detail = v.Detail
	res.Retryable = v.Kind.Retryable()
	res.Status = v.Actual
	logger.InfoContext(ctx, "asset refused",
		"identifier", res.Identifier,
		"asset_id", res.AssetID,
		"error_kind", kindLabel(v.Kind),
		"detail", v.Detail,
	)
	return res
}

// failed maps a commit failure to the asset result.
func (s *LifecycleService) failed(ctx context.Context, logger *slog.Logger, res AssetResult, err error) AssetResult {
	var v *lifecycle.Violation
	if errors.As(err, &v) {
		return refused(ctx, logger, res, v)
	}
	return s.internal(ctx, logger, res, err)
}

func (s *LifecycleService) internal(ctx context.Context, logger *slog.Logger, res AssetResult, err error) AssetResult {
	logger.ErrorContext(ctx, "asset transition failed",
		"identifier", res.Identifier,
		"asset_id", res.AssetID,
		"error", err,
		"error_kind", "internal",
	)
	res.Outcome = string(lifecycle.KindInternal)
	res.Kind = lifecycle.KindInternal
	res.Detail = "the transition could not be recorded"
	return res
}

func logBatch(ctx context.Context, logger *slog.Logger, result BatchResult, err error) {
	if err != nil {
		logFailure(ctx, logger, "batch not processed", err,
			"succeeded", result.Succeeded,
			"failed", result.Failed,
		)
		return
	}
	logger.InfoContext(ctx, "batch processed",
		"transition", result.Transition.Label(),
		"succeeded", result.Succeeded,
		"failed", result.Failed,
	)
}

// logFailure logs request-level refusals as warnings and everything else as errors.
func logFailure(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...any) {
	kind := ErrorKind(err)
	attrs = append(attrs, "error", err, "error_kind", kind)
	if kind == "unexpected" {
		logger.ErrorContext(ctx, msg, attrs...)
		return
	}
	logger.WarnContext(ctx, msg, attrs...)
}

// placementChanges keeps only the supplied fields that differ from the asset.
func placementChanges(asset persistence.Asset, input PlacementInput, at time.Time) persistence.PlacementUpdate {
	update := persistence.PlacementUpdate{AssetID: asset.ID, At: at}
	if v := trimmedOrNil(input.Department); v != nil && *v != asset.Department {
		update.Department = v
	}
	if v := trimmedOrNil(input.Site); v != nil && *v != asset.Site {
		update.Site = v
	}
	if v := trimmedOrNil(input.Location); v != nil && *v != asset.Location {
		update.Location = v
	}
	return update
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	return stringOrNil(*value)
}

func stringOrNil(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
