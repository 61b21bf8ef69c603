// Package clock converts operator-entered wall-clock dates and times in a
// single source time zone into absolute storage instants (UTC).
//
// Daylight-saving policy: a local time that does not exist because clocks
// sprang forward is moved forward by the length of the gap (02:30 on a
// spring-forward night becomes 03:30 daylight time). A local time that occurs
// twice because clocks fell back resolves to its first occurrence, which is
// the daylight-time reading.
package clock

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/jinzhu/now"
)

// DefaultZoneName is the source zone used when none is configured.
const DefaultZoneName = "America/Los_Angeles"

const (
	dateLayout      = "2006-01-02"
	timeOfDayLayout = "15:04"
)

var (
	// ErrInvalidDate indicates a date string is not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("clock: invalid date")
	// ErrInvalidTimeOfDay indicates a time string is not in HH:MM form.
	ErrInvalidTimeOfDay = errors.New("clock: invalid time of day")
)

// Date is a calendar day without a zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(value string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q (expected YYYY-MM-DD)", ErrInvalidDate, value)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return DateOf(d.midnightUTC().AddDate(0, 0, n))
}

// Weekday returns the day of the week of d.
func (d Date) Weekday() time.Weekday {
	return d.midnightUTC().Weekday()
}

// Before reports whether d falls strictly before other.
func (d Date) Before(other Date) bool {
	return d.midnightUTC().Before(other.midnightUTC())
}

func (d Date) String() string {
	return d.midnightUTC().Format(dateLayout)
}

// MarshalText encodes the date as YYYY-MM-DD.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a YYYY-MM-DD date.
func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) midnightUTC() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// TimeOfDay is a local wall-clock time with minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses HH:MM on a 24 hour clock.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	t, err := time.Parse(timeOfDayLayout, strings.TrimSpace(value))
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q (expected HH:MM)", ErrInvalidTimeOfDay, value)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// MarshalText encodes the time as HH:MM.
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes an HH:MM time.
func (t *TimeOfDay) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Zone localizes wall-clock values in a fixed source location.
type Zone struct {
	loc *time.Location
}

// NewZone wraps loc. A nil location falls back to UTC.
func NewZone(loc *time.Location) *Zone {
	if loc == nil {
		loc = time.UTC
	}
	return &Zone{loc: loc}
}

// LoadZone resolves an IANA zone name. An empty name selects DefaultZoneName.
func LoadZone(name string) (*Zone, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultZoneName
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("clock: load zone %q: %w", name, err)
	}
	return NewZone(loc), nil
}

// Location returns the source location.
func (z *Zone) Location() *time.Location {
	if z == nil || z.loc == nil {
		return time.UTC
	}
	return z.loc
}

// Localize combines a local date and time in the source zone and returns the
// corresponding UTC instant, applying the package DST policy.
func (z *Zone) Localize(d Date, t TimeOfDay) time.Time {
	loc := z.Location()
	wall := time.Date(d.Year, d.Month, d.Day, t.Hour, t.Minute, 0, 0, time.UTC)

	_, offBefore := wall.Add(-24 * time.Hour).In(loc).Zone()
	_, offAfter := wall.Add(24 * time.Hour).In(loc).Zone()

	var (
		best  time.Time
		found bool
	)
	for _, off := range []int{offBefore, offAfter} {
		instant := wall.Add(-time.Duration(off) * time.Second)
		if !sameWallClock(instant.In(loc), wall) {
			continue
		}
		if !found || instant.Before(best) {
			best, found = instant, true
		}
	}
	if found {
		return best.UTC()
	}

	// Spring-forward gap: read the wall clock with the pre-transition offset.
	return wall.Add(-time.Duration(offBefore) * time.Second).UTC()
}

// DayRange returns the half-open UTC range [from, to) covering the local
// calendar day d in the source zone.
func (z *Zone) DayRange(d Date) (time.Time, time.Time) {
	loc := z.Location()
	noon := time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, loc)
	from := now.With(noon).BeginningOfDay()
	to := now.With(noon.AddDate(0, 0, 1)).BeginningOfDay()
	return from.UTC(), to.UTC()
}

// LocalDate returns the calendar date of instant in the source zone.
func (z *Zone) LocalDate(instant time.Time) Date {
	return DateOf(instant.In(z.Location()))
}

// In converts instant to the source zone for display.
func (z *Zone) In(instant time.Time) time.Time {
	return instant.In(z.Location())
}

func sameWallClock(local, wall time.Time) bool {
	ly, lm, ld := local.Date()
	wy, wm, wd := wall.Date()
	return ly == wy && lm == wm && ld == wd && local.Hour() == wall.Hour() && local.Minute() == wall.Minute()
}
