package lifecycle

import (
	"errors"
	"testing"
)

func TestCheckCheckout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		facts  CheckoutFacts
		want   Kind
		actual Status
	}{
		{name: "missing asset", facts: CheckoutFacts{}, want: KindNotFound},
		{name: "available asset", facts: CheckoutFacts{Found: true, Status: StatusAvailable}},
		{name: "null status reads as available", facts: CheckoutFacts{Found: true, Status: ""}},
		{name: "already checked out", facts: CheckoutFacts{Found: true, Status: StatusCheckedOut}, want: KindAlreadyCheckedOut, actual: StatusCheckedOut},
		{name: "in audit reports actual status", facts: CheckoutFacts{Found: true, Status: StatusInAudit}, want: KindNotAvailable, actual: StatusInAudit},
		{name: "retired", facts: CheckoutFacts{Found: true, Status: StatusRetired}, want: KindNotAvailable, actual: StatusRetired},
		{name: "duplicate in batch", facts: CheckoutFacts{Found: true, Status: StatusAvailable, Duplicate: true}, want: KindDuplicateInBatch},
		{name: "status beats duplicate", facts: CheckoutFacts{Found: true, Status: StatusCheckedOut, Duplicate: true}, want: KindAlreadyCheckedOut, actual: StatusCheckedOut},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := CheckCheckout(tc.facts)
			assertViolation(t, got, tc.want, tc.actual)
		})
	}
}

func TestCheckCheckin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		facts CheckinFacts
		want  Kind
	}{
		{name: "missing asset", facts: CheckinFacts{}, want: KindNotFound},
		{name: "checked out with one open checkout", facts: CheckinFacts{Found: true, Status: StatusCheckedOut, OpenCheckouts: 1}},
		{name: "never checked out", facts: CheckinFacts{Found: true, Status: StatusAvailable}, want: KindNotCheckedOut},
		{name: "returned asset checked in again without checkout id", facts: CheckinFacts{Found: true, Status: StatusAvailable, LastCheckoutClosed: true}, want: KindAlreadyCheckedIn},
		{name: "retired asset is not checked out", facts: CheckinFacts{Found: true, Status: StatusRetired, LastCheckoutClosed: true}, want: KindNotCheckedOut},
		{name: "checked out without ledger entry", facts: CheckinFacts{Found: true, Status: StatusCheckedOut}, want: KindNoActiveCheckout},
		{name: "two open checkouts", facts: CheckinFacts{Found: true, Status: StatusCheckedOut, OpenCheckouts: 2}, want: KindNoActiveCheckout},
		{name: "duplicate in batch", facts: CheckinFacts{Found: true, Status: StatusCheckedOut, OpenCheckouts: 1, Duplicate: true}, want: KindDuplicateInBatch},
		{
			name: "named checkout already closed",
			facts: CheckinFacts{
				Found: true, Status: StatusCheckedOut, OpenCheckouts: 1,
				Requested: &RequestedCheckout{ID: "co-1", Exists: true, Closed: true},
			},
			want: KindAlreadyCheckedIn,
		},
		{
			name: "named checkout belongs elsewhere",
			facts: CheckinFacts{
				Found: true, Status: StatusCheckedOut, OpenCheckouts: 1,
				Requested: &RequestedCheckout{ID: "co-9"},
			},
			want: KindNoActiveCheckout,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assertViolation(t, CheckCheckin(tc.facts), tc.want, "")
		})
	}
}

func TestCheckReservation(t *testing.T) {
	t.Parallel()

	base := ReservationFacts{Found: true, Status: StatusAvailable, Type: ReservationDepartment, Department: "Finance"}

	tests := []struct {
		name   string
		mutate func(*ReservationFacts)
		want   Kind
	}{
		{name: "department reservation", mutate: func(*ReservationFacts) {}},
		{name: "missing asset", mutate: func(f *ReservationFacts) { f.Found = false }, want: KindNotFound},
		{name: "checked out", mutate: func(f *ReservationFacts) { f.Status = StatusCheckedOut }, want: KindAlreadyCheckedOut},
		{name: "in audit", mutate: func(f *ReservationFacts) { f.Status = StatusInAudit }, want: KindNotAvailable},
		{name: "both targets", mutate: func(f *ReservationFacts) { f.EmployeeID = "emp-1" }, want: KindInvalidTarget},
		{name: "department missing", mutate: func(f *ReservationFacts) { f.Department = " " }, want: KindInvalidTarget},
		{
			name: "employee reservation",
			mutate: func(f *ReservationFacts) {
				f.Type, f.Department, f.EmployeeID, f.EmployeeKnown = ReservationEmployee, "", "emp-1", true
			},
		},
		{
			name: "unknown employee",
			mutate: func(f *ReservationFacts) {
				f.Type, f.Department, f.EmployeeID = ReservationEmployee, "", "emp-404"
			},
			want: KindInvalidTarget,
		},
		{
			name:   "type mismatch",
			mutate: func(f *ReservationFacts) { f.Type = ReservationEmployee },
			want:   KindInvalidTarget,
		},
		{name: "unknown type", mutate: func(f *ReservationFacts) { f.Type = "Team" }, want: KindInvalidTarget},
		{name: "duplicate in batch", mutate: func(f *ReservationFacts) { f.Duplicate = true }, want: KindDuplicateInBatch},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			facts := base
			tc.mutate(&facts)
			assertViolation(t, CheckReservation(facts), tc.want, "")
		})
	}
}

func TestViolationMatching(t *testing.T) {
	t.Parallel()

	err := error(&Violation{Kind: KindNotAvailable, Actual: StatusInAudit})
	if !errors.Is(err, ErrNotAvailable) {
		t.Fatalf("expected violation to match sentinel of the same kind")
	}
	if errors.Is(err, ErrConflict) {
		t.Fatalf("expected violation not to match a different kind")
	}
	if got := KindOf(errors.New("boom")); got != KindInternal {
		t.Fatalf("expected plain errors to classify as Internal, got %s", got)
	}
	if KindOf(nil) != "" {
		t.Fatalf("expected nil error to have no kind")
	}
	if !KindConflict.Retryable() || KindAlreadyCheckedOut.Retryable() {
		t.Fatalf("only Conflict is retryable")
	}
}

func TestParseStatus(t *testing.T) {
	t.Parallel()

	cases := map[string]Status{
		"":            StatusAvailable,
		"  ":          StatusAvailable,
		"Available":   StatusAvailable,
		"checked out": StatusCheckedOut,
		"IN AUDIT":    StatusInAudit,
		"Retired":     StatusRetired,
		"Reserved":    StatusReserved,
	}
	for raw, want := range cases {
		got, err := ParseStatus(raw)
		if err != nil {
			t.Fatalf("ParseStatus(%q) returned error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseStatus(%q) = %q, want %q", raw, got, want)
		}
	}

	if _, err := ParseStatus("Lost"); !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}

func TestEndpoints(t *testing.T) {
	t.Parallel()

	from, to, ok := Endpoints(TransitionCheckout)
	if !ok || from != StatusAvailable || to != StatusCheckedOut {
		t.Fatalf("unexpected checkout endpoints %q -> %q", from, to)
	}
	from, to, ok = Endpoints(TransitionCheckin)
	if !ok || from != StatusCheckedOut || to != StatusAvailable {
		t.Fatalf("unexpected checkin endpoints %q -> %q", from, to)
	}
	from, to, ok = Endpoints(TransitionReserve)
	if !ok || from != to {
		t.Fatalf("reservation must not change status, got %q -> %q", from, to)
	}
	if _, _, ok := Endpoints("transfer"); ok {
		t.Fatalf("unknown transitions must not resolve")
	}
}

func TestBatchMark(t *testing.T) {
	t.Parallel()

	batch := NewBatch(2)
	if batch.Mark("a") {
		t.Fatalf("first mark must not be a duplicate")
	}
	if !batch.Mark("a") {
		t.Fatalf("second mark must be a duplicate")
	}
	if batch.Mark("") {
		t.Fatalf("empty ids are never duplicates")
	}
	if batch.Len() != 1 {
		t.Fatalf("expected one distinct asset, got %d", batch.Len())
	}
}

func assertViolation(t *testing.T, got *Violation, want Kind, actual Status) {
	t.Helper()
	if want == "" {
		if got != nil {
			t.Fatalf("expected no violation, got %v", got)
		}
		return
	}
	if got == nil {
		t.Fatalf("expected %s, got nil", want)
	}
	if got.Kind != want {
		t.Fatalf("expected %s, got %s (%v)", want, got.Kind, got)
	}
	if actual != "" && got.Actual != actual {
		t.Fatalf("expected actual status %q, got %q", actual, got.Actual)
	}
}
