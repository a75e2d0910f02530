package persistence_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/lifecycle"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/persistence"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/testfixtures"
)

func forEachStore(t *testing.T, fn func(t *testing.T, store persistence.Store)) {
	t.Helper()
	for _, factory := range testfixtures.StoreFactories() {
		factory := factory
		t.Run(factory.Name, func(t *testing.T) {
			t.Parallel()
			fn(t, factory.Open(t))
		})
	}
}

func ptr[T any](v T) *T {
	return &v
}

func TestAssetRegistry(t *testing.T) {
	t.Parallel()

	t.Run("resolves tags ignoring case", func(t *testing.T) {
		t.Parallel()
		forEachStore(t, func(t *testing.T, store persistence.Store) {
			ctx := context.Background()
			asset := testfixtures.NewAssetFixture(testfixtures.WithAssetTag("AT-001"))
			testfixtures.Seed(t, store, nil, []testfixtures.AssetFixture{asset})

			for _, tag := range []string{"AT-001", "at-001", "At-001"} {
				fetched, err := store.GetAssetByTag(ctx, tag)
				if err != nil {
					t.Fatalf("GetAssetByTag(%q) failed: %v", tag, err)
				}
				if fetched.ID != asset.ID {
					t.Fatalf("GetAssetByTag(%q) returned %s, want %s", tag, fetched.ID, asset.ID)
				}
			}

			if _, err := store.GetAssetByTag(ctx, "AT-00"); !errors.Is(err, persistence.ErrNotFound) {
				t.Fatalf("expected prefix lookup to miss, got %v", err)
			}
		})
	})

	t.Run("rejects a tag that differs only in case", func(t *testing.T) {
		t.Parallel()
		forEachStore(t, func(t *testing.T, store persistence.Store) {
			ctx := context.Background()
			first := testfixtures.NewAssetFixture(testfixtures.WithAssetTag("LAP-9"))
			testfixtures.Seed(t, store, nil, []testfixtures.AssetFixture{first})

			second := testfixtures.NewAssetFixture(testfixtures.WithAssetTag("lap-9")).Persistence()
			if err := store.CreateAsset(ctx, second); !errors.Is(err, persistence.ErrDuplicate) {
				t.Fatalf("expected ErrDuplicate, got %v", err)
			}
		})
	})

	t.Run("search puts prefix matches first and filters by status", func(t *testing.T) {
		t.Parallel()
		forEachStore(t, func(t *testing.T, store persistence.Store) {
			ctx := context.Background()
			assets := []testfixtures.AssetFixture{
				testfixtures.NewAssetFixture(testfixtures.WithAssetTag("XLAP-1")),
				testfixtures.NewAssetFixture(testfixtures.WithAssetTag("LAP-2")),
				testfixtures.NewAssetFixture(testfixtures.WithAssetTag("LAP-1"), testfixtures.WithAssetStatus(lifecycle.StatusCheckedOut)),
				testfixtures.NewAssetFixture(testfixtures.WithAssetTag("MON-1")),
			}
			testfixtures.Seed(t, store, nil, assets)

			found, err := store.SearchAssets(ctx, persistence.AssetFilter{Query: "lap"})
			if err != nil {
				t.Fatalf("SearchAssets failed: %v", err)
			}
			got := tags(found)
			want := []string{"LAP-1", "LAP-2", "XLAP-1"}
			if !equalStrings(got, want) {
				t.Fatalf("SearchAssets = %v, want %v", got, want)
			}

			found, err = store.SearchAssets(ctx, persistence.AssetFilter{
				Query:    "LAP",
				Statuses: []lifecycle.Status{lifecycle.StatusAvailable},
				Limit:    1,
			})
			if err != nil {
				t.Fatalf("SearchAssets failed: %v", err)
			}
			if got := tags(found); !equalStrings(got, []string{"LAP-2"}) {
				t.Fatalf("filtered SearchAssets = %v", got)
			}
		})
	})

	t.Run("search hides assets reserved on or after the day", func(t *testing.T) {
		t.Parallel()
		forEachStore(t, func(t *testing.T, store persistence.Store) {
			ctx := context.Background()
			base := testfixtures.ReferenceTime()
			reserved := testfixtures.NewAssetFixture(testfixtures.WithAssetTag("CAM-1"))
			free := testfixtures.NewAssetFixture(testfixtures.WithAssetTag("CAM-2"))
			past := testfixtures.NewAssetFixture(testfixtures.WithAssetTag("CAM-3"))
			testfixtures.Seed(t, store, nil, []testfixtures.AssetFixture{reserved, free, past})

			err := store.WithinTx(ctx, func(tx persistence.Tx) error {
				if err := tx.CreateReservation(ctx, persistence.Reservation{
					ID: "res-1", AssetID: reserved.ID, Type: lifecycle.ReservationDepartment,
					Department: ptr("Finance"), ReservationDate: base.AddDate(0, 0, 3),
					ActorID: "op-1", CreatedAt: base,
				}); err != nil {
					return err
				}
				return tx.CreateReservation(ctx, persistence.Reservation{
					ID: "res-2", AssetID: past.ID, Type: lifecycle.ReservationDepartment,
					Department: ptr("Finance"), ReservationDate: base.AddDate(0, 0, -3),
					ActorID: "op-1", CreatedAt: base,
				})
			})
			if err != nil {
				t.Fatalf("seed reservations: %v", err)
			}

			found, err := store.SearchAssets(ctx, persistence.AssetFilter{Query: "cam", ExcludeReservedOn: &base})
			if err != nil {
				t.Fatalf("SearchAssets failed: %v", err)
			}
			if got := tags(found); !equalStrings(got, []string{"CAM-2", "CAM-3"}) {
				t.Fatalf("SearchAssets = %v", got)
			}
		})
	})
}

func TestTransactionLedger(t *testing.T) {
	t.Parallel()

	t.Run("status compare-and-swap bumps the version once", func(t *testing.T) {
		t.Parallel()
		forEachStore(t, func(t *testing.T, store persistence.Store) {
			ctx := context.Background()
			asset := testfixtures.NewAssetFixture()
			testfixtures.Seed(t, store, nil, []testfixtures.AssetFixture{asset})
			change := persistence.StatusChange{
				AssetID:         asset.ID,
				From:            lifecycle.StatusAvailable,
				To:              lifecycle.StatusCheckedOut,
				ExpectedVersion: 0,
				At:              testfixtures.ReferenceTime().Add(time.Hour),
			}

			var updated persistence.Asset
			err := store.WithinTx(ctx, func(tx persistence.Tx) error {
				var err error
				updated, err = tx.SetAssetStatus(ctx, change)
				return err
			})
			if err != nil {
				t.Fatalf("SetAssetStatus failed: %v", err)
			}
			if updated.Version != 1 || updated.Status != lifecycle.StatusCheckedOut {
				t.Fatalf("unexpected asset after swap: %#v", updated)
			}

			err = store.WithinTx(ctx, func(tx persistence.Tx) error {
				_, err := tx.SetAssetStatus(ctx, change)
				return err
			})
			if !errors.Is(err, persistence.ErrConflict) {
				t.Fatalf("expected ErrConflict for stale version, got %v", err)
			}

			change.AssetID = "missing"
			err = store.WithinTx(ctx, func(tx persistence.Tx) error {
				_, err := tx.SetAssetStatus(ctx, change)
				return err
			})
			if !errors.Is(err, persistence.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	})

	t.Run("a failed unit leaves nothing behind", func(t *testing.T) {
		t.Parallel()
		forEachStore(t, func(t *testing.T, store persistence.Store) {
			ctx := context.Background()
			employee := testfixtures.NewEmployeeFixture()
			asset := testfixtures.NewAssetFixture()
			testfixtures.Seed(t, store, []testfixtures.EmployeeFixture{employee}, []testfixtures.AssetFixture{asset})

			boom := errors.New("boom")
			err := store.WithinTx(ctx, func(tx persistence.Tx) error {
				if _, err := tx.SetAssetStatus(ctx, persistence.StatusChange{
					AssetID: asset.ID, From: lifecycle.StatusAvailable, To: lifecycle.StatusCheckedOut,
					At: testfixtures.ReferenceTime(),
				}); err != nil {
					return err
				}
				if err := tx.CreateCheckout(ctx, newCheckout("co-1", asset.ID, employee.ID)); err != nil {
					return err
				}
				return boom
			})
			if !errors.Is(err, boom) {
				t.Fatalf("expected boom, got %v", err)
			}

			stored, err := store.GetAsset(ctx, asset.ID)
			if err != nil {
				t.Fatalf("GetAsset failed: %v", err)
			}
			if stored.Status != lifecycle.StatusAvailable || stored.Version != 0 {
				t.Fatalf("expected rollback, got %#v", stored)
			}
			checkouts, err := store.ListCheckouts(ctx, asset.ID)
			if err != nil {
				t.Fatalf("ListCheckouts failed: %v", err)
			}
			if len(checkouts) != 0 {
				t.Fatalf("expected no checkouts after rollback, got %d", len(checkouts))
			}
		})
	})

	t.Run("allows one open checkout per asset", func(t *testing.T) {
		t.Parallel()
		forEachStore(t, func(t *testing.T, store persistence.Store) {
			ctx := context.Background()
			employee := testfixtures.NewEmployeeFixture()
			asset := testfixtures.NewAssetFixture()
			testfixtures.Seed(t, store, []testfixtures.EmployeeFixture{employee}, []testfixtures.AssetFixture{asset})

			create := func(id string) error {
				return store.WithinTx(ctx, func(tx persistence.Tx) error {
					return tx.CreateCheckout(ctx, newCheckout(id, asset.ID, employee.ID))
				})
			}
			if err := create("co-1"); err != nil {
				t.Fatalf("first checkout failed: %v", err)
			}
			if err := create("co-2"); !errors.Is(err, persistence.ErrOpenCheckoutExists) {
				t.Fatalf("expected ErrOpenCheckoutExists, got %v", err)
			}
		})
	})

	t.Run("a checkin closes its checkout exactly once", func(t *testing.T) {
		t.Parallel()
		forEachStore(t, func(t *testing.T, store persistence.Store) {
			ctx := context.Background()
			base := testfixtures.ReferenceTime()
			employee := testfixtures.NewEmployeeFixture()
			asset := testfixtures.NewAssetFixture()
			testfixtures.Seed(t, store, []testfixtures.EmployeeFixture{employee}, []testfixtures.AssetFixture{asset})

			if err := store.WithinTx(ctx, func(tx persistence.Tx) error {
				return tx.CreateCheckout(ctx, newCheckout("co-1", asset.ID, employee.ID))
			}); err != nil {
				t.Fatalf("CreateCheckout failed: %v", err)
			}

			checkin := func(id string) error {
				return store.WithinTx(ctx, func(tx persistence.Tx) error {
					return tx.CreateCheckin(ctx, persistence.Checkin{
						ID: id, CheckoutID: "co-1", AssetID: asset.ID,
						CheckinDate: base.AddDate(0, 1, 0), Condition: ptr("Good"),
						ActorID: "op-1", CreatedAt: base.Add(time.Hour),
					})
				})
			}
			if err := checkin("ci-1"); err != nil {
				t.Fatalf("CreateCheckin failed: %v", err)
			}
			if err := checkin("ci-2"); !errors.Is(err, persistence.ErrCheckoutClosed) {
				t.Fatalf("expected ErrCheckoutClosed, got %v", err)
			}

			checkouts, err := store.ListCheckouts(ctx, asset.ID)
			if err != nil {
				t.Fatalf("ListCheckouts failed: %v", err)
			}
			if len(checkouts) != 1 || checkouts[0].Open() || !checkouts[0].ClosedAt.Equal(base.Add(time.Hour)) {
				t.Fatalf("expected closed checkout, got %#v", checkouts)
			}
			checkins, err := store.ListCheckins(ctx, asset.ID)
			if err != nil {
				t.Fatalf("ListCheckins failed: %v", err)
			}
			if len(checkins) != 1 || checkins[0].Condition == nil || *checkins[0].Condition != "Good" {
				t.Fatalf("unexpected checkins: %#v", checkins)
			}
		})
	})

	t.Run("placement update writes only supplied fields", func(t *testing.T) {
		t.Parallel()
		forEachStore(t, func(t *testing.T, store persistence.Store) {
			ctx := context.Background()
			asset := testfixtures.NewAssetFixture(testfixtures.WithAssetDepartment("Facilities"))
			testfixtures.Seed(t, store, nil, []testfixtures.AssetFixture{asset})

			err := store.WithinTx(ctx, func(tx persistence.Tx) error {
				return tx.UpdateAssetPlacement(ctx, persistence.PlacementUpdate{
					AssetID:  asset.ID,
					Location: ptr("Desk 4"),
					At:       testfixtures.ReferenceTime().Add(time.Hour),
				})
			})
			if err != nil {
				t.Fatalf("UpdateAssetPlacement failed: %v", err)
			}
			stored, err := store.GetAsset(ctx, asset.ID)
			if err != nil {
				t.Fatalf("GetAsset failed: %v", err)
			}
			if stored.Location != "Desk 4" || stored.Department != "Facilities" || stored.Site != asset.Site {
				t.Fatalf("unexpected placement: %#v", stored)
			}
		})
	})

	t.Run("cancels a reservation once", func(t *testing.T) {
		t.Parallel()
		forEachStore(t, func(t *testing.T, store persistence.Store) {
			ctx := context.Background()
			base := testfixtures.ReferenceTime()
			employee := testfixtures.NewEmployeeFixture()
			asset := testfixtures.NewAssetFixture()
			testfixtures.Seed(t, store, []testfixtures.EmployeeFixture{employee}, []testfixtures.AssetFixture{asset})

			if err := store.WithinTx(ctx, func(tx persistence.Tx) error {
				return tx.CreateReservation(ctx, persistence.Reservation{
					ID: "res-1", AssetID: asset.ID, Type: lifecycle.ReservationEmployee,
					EmployeeID: ptr(employee.ID), ReservationDate: base.AddDate(0, 0, 1),
					Purpose: ptr("Offsite"), ActorID: "op-1", CreatedAt: base,
				})
			}); err != nil {
				t.Fatalf("CreateReservation failed: %v", err)
			}

			cancel := func(id string) (persistence.Reservation, error) {
				var out persistence.Reservation
				err := store.WithinTx(ctx, func(tx persistence.Tx) error {
					var err error
					out, err = tx.CancelReservation(ctx, id, base.Add(time.Hour))
					return err
				})
				return out, err
			}

			cancelled, err := cancel("res-1")
			if err != nil {
				t.Fatalf("CancelReservation failed: %v", err)
			}
			if cancelled.CancelledAt == nil || cancelled.EmployeeID == nil || *cancelled.EmployeeID != employee.ID {
				t.Fatalf("unexpected cancelled reservation: %#v", cancelled)
			}
			if _, err := cancel("res-1"); !errors.Is(err, persistence.ErrReservationCancelled) {
				t.Fatalf("expected ErrReservationCancelled, got %v", err)
			}
			if _, err := cancel("res-404"); !errors.Is(err, persistence.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			fetched, err := store.GetReservation(ctx, "res-1")
			if err != nil {
				t.Fatalf("GetReservation failed: %v", err)
			}
			if fetched.Type != lifecycle.ReservationEmployee || fetched.CancelledAt == nil {
				t.Fatalf("unexpected reservation: %#v", fetched)
			}
		})
	})

	t.Run("concurrent swaps on one version have a single winner", func(t *testing.T) {
		t.Parallel()
		forEachStore(t, func(t *testing.T, store persistence.Store) {
			ctx := context.Background()
			asset := testfixtures.NewAssetFixture()
			testfixtures.Seed(t, store, nil, []testfixtures.AssetFixture{asset})

			const workers = 8
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				wins      int
				conflicts int
			)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := store.WithinTx(ctx, func(tx persistence.Tx) error {
						_, err := tx.SetAssetStatus(ctx, persistence.StatusChange{
							AssetID: asset.ID, From: lifecycle.StatusAvailable, To: lifecycle.StatusCheckedOut,
							ExpectedVersion: 0, At: testfixtures.ReferenceTime(),
						})
						return err
					})
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						wins++
					case errors.Is(err, persistence.ErrConflict):
						conflicts++
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}()
			}
			wg.Wait()

			if wins != 1 || conflicts != workers-1 {
				t.Fatalf("expected one winner, got %d wins and %d conflicts", wins, conflicts)
			}
		})
	})
}

func TestDirectory(t *testing.T) {
	t.Parallel()

	forEachStore(t, func(t *testing.T, store persistence.Store) {
		ctx := context.Background()
		employee := testfixtures.NewEmployeeFixture(testfixtures.WithEmployeeDepartment("Finance"))
		testfixtures.Seed(t, store, []testfixtures.EmployeeFixture{employee}, nil)

		updated := employee.Persistence()
		updated.Name = "Renamed"
		updated.UpdatedAt = updated.UpdatedAt.Add(time.Hour)
		if err := store.UpsertEmployee(ctx, updated); err != nil {
			t.Fatalf("UpsertEmployee failed: %v", err)
		}
		fetched, err := store.GetEmployee(ctx, employee.ID)
		if err != nil {
			t.Fatalf("GetEmployee failed: %v", err)
		}
		if fetched.Name != "Renamed" || fetched.Department != "Finance" {
			t.Fatalf("unexpected employee: %#v", fetched)
		}
		if _, err := store.GetEmployee(ctx, "nobody"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		operator := testfixtures.NewOperatorFixture(testfixtures.WithOperatorDisabled(true))
		if err := store.CreateOperator(ctx, operator.Persistence()); err != nil {
			t.Fatalf("CreateOperator failed: %v", err)
		}
		if err := store.CreateOperator(ctx, operator.Persistence()); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
		gotOperator, err := store.GetOperator(ctx, operator.ID)
		if err != nil {
			t.Fatalf("GetOperator failed: %v", err)
		}
		if !gotOperator.Disabled || gotOperator.Role != "custodian" || gotOperator.APIKeyHash != operator.APIKeyHash {
			t.Fatalf("unexpected operator: %#v", gotOperator)
		}
	})
}

func newCheckout(id, assetID, employeeID string) persistence.Checkout {
	base := testfixtures.ReferenceTime()
	return persistence.Checkout{
		ID:           id,
		AssetID:      assetID,
		EmployeeID:   employeeID,
		CheckoutDate: base,
		ActorID:      "op-1",
		CreatedAt:    base,
	}
}

func tags(assets []persistence.Asset) []string {
	out := make([]string, len(assets))
	for i, asset := range assets {
		out[i] = asset.TagID
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
