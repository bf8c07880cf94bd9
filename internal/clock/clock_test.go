package clock

import (
	"testing"
	"time"
)

func TestDayBoundaryIsLocalNotUTC(t *testing.T) {
	// 23:30 UTC on Jan 1 is already Jan 2 in Maputo (UTC+2, no DST).
	p, err := NewDayPolicy("Africa/Maputo", System())
	if err != nil {
		t.Fatalf("NewDayPolicy: %v", err)
	}

	lateEvening := time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC)
	day := p.DayOf(lateEvening)
	if day.Day() != 2 {
		t.Fatalf("expected localized day 2, got %v", day)
	}

	earlyEvening := time.Date(2024, 1, 1, 21, 30, 0, 0, time.UTC)
	if !p.DayOf(earlyEvening).Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, day.Location())) {
		t.Fatalf("21:30 UTC should still be Jan 1 in Maputo, got %v", p.DayOf(earlyEvening))
	}

	if p.SameDay(lateEvening, earlyEvening) {
		t.Fatal("instants on both sides of the Maputo midnight must not be the same day")
	}
	if !p.BeforeDay(earlyEvening, lateEvening) {
		t.Fatal("expected earlyEvening's day to precede lateEvening's")
	}
}

func TestTodayUsesInjectedClock(t *testing.T) {
	at := time.Date(2024, 6, 15, 22, 5, 0, 0, time.UTC) // Jun 16 in Maputo
	p, err := NewDayPolicy("Africa/Maputo", Fixed(at))
	if err != nil {
		t.Fatalf("NewDayPolicy: %v", err)
	}
	if got := p.Today(); got.Day() != 16 || got.Month() != time.June {
		t.Fatalf("expected Jun 16, got %v", got)
	}
}

func TestUnknownTimezone(t *testing.T) {
	if _, err := NewDayPolicy("Not/AZone", System()); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}
