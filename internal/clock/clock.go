package clock

import (
	"fmt"
	"time"
)

// Clock abstracts the current instant so services can be tested against a
// fixed time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System returns a Clock backed by the wall clock.
func System() Clock { return systemClock{} }

// Fixed returns a Clock that always reports t.
func Fixed(t time.Time) Clock { return fixedClock{t} }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// DayPolicy resolves calendar days in a single named timezone. Every daily
// reset and eligibility decision goes through it; raw UTC instants must never
// be compared directly, since the day boundary differs from UTC by the zone
// offset.
type DayPolicy struct {
	loc   *time.Location
	clock Clock
}

// NewDayPolicy loads the named timezone (e.g. "Africa/Maputo").
func NewDayPolicy(tz string, c Clock) (*DayPolicy, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return &DayPolicy{loc: loc, clock: c}, nil
}

// Now returns the current instant from the underlying clock.
func (p *DayPolicy) Now() time.Time { return p.clock.Now() }

// DayOf truncates an instant to midnight of its localized calendar date.
func (p *DayPolicy) DayOf(t time.Time) time.Time {
	lt := t.In(p.loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, p.loc)
}

// Today returns the current localized calendar date.
func (p *DayPolicy) Today() time.Time { return p.DayOf(p.clock.Now()) }

// SameDay reports whether two instants fall on the same localized date.
func (p *DayPolicy) SameDay(a, b time.Time) bool {
	return p.DayOf(a).Equal(p.DayOf(b))
}

// BeforeDay reports whether a's localized date precedes b's.
func (p *DayPolicy) BeforeDay(a, b time.Time) bool {
	return p.DayOf(a).Before(p.DayOf(b))
}
