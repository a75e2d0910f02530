package testfixtures

import (
	"testing"
	"time"
)

func TestClock(t *testing.T) {
	t.Run("defaults to the reference time", func(t *testing.T) {
		clock := NewClock(time.Time{})
		if !clock.Now().Equal(ReferenceTime()) {
			t.Fatalf("expected ReferenceTime, got %v", clock.Now())
		}
	})

	t.Run("days are UTC midnights", func(t *testing.T) {
		clock := NewClock(time.Date(2026, time.March, 14, 22, 30, 0, 0, time.FixedZone("PHT", 8*3600)))
		want := time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)
		if got := clock.Today(); !got.Equal(want) {
			t.Fatalf("Today() = %v, want %v", got, want)
		}
		if got := clock.Day(1); !got.Equal(want.AddDate(0, 0, 1)) {
			t.Fatalf("Day(1) = %v", got)
		}
	})

	t.Run("NowFunc follows Advance", func(t *testing.T) {
		clock := NewClock(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))
		now := clock.NowFunc()
		updated := clock.Advance(13 * time.Hour)
		if got := now(); !got.Equal(updated) {
			t.Fatalf("expected %v from NowFunc, got %v", updated, got)
		}
	})
}
