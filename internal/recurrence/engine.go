package recurrence

import (
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/example/homevisit/internal/clock"
)

// Weekday enumerates days with Monday=0 through Sunday=6.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"MON", "TUE", "WED", "THU", "FRI", "SAT", "SUN"}

var rruleWeekdays = [...]rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU}

// ParseWeekday accepts MON..SUN in any case.
func ParseWeekday(value string) (Weekday, error) {
	value = strings.ToUpper(strings.TrimSpace(value))
	for i, name := range weekdayNames {
		if name == value {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q (expected one of %s)", ErrInvalidWeekday, value, strings.Join(weekdayNames[:], ", "))
}

// Valid reports whether w is within Monday..Sunday.
func (w Weekday) Valid() bool {
	return w >= Monday && w <= Sunday
}

func (w Weekday) String() string {
	if !w.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(w))
	}
	return weekdayNames[w]
}

// TimeWeekday converts to the standard library's Sunday-first numbering.
func (w Weekday) TimeWeekday() time.Weekday {
	return time.Weekday((int(w) + 1) % 7)
}

// Rule describes a weekly batch of meetings.
type Rule struct {
	Name            string
	BeginDate       clock.Date
	EndDate         clock.Date // exclusive
	DurationMinutes int
	Weekdays        []Weekday
	StartTimes      []clock.TimeOfDay
	// CreateAfter suppresses candidates starting at or before it. The zero
	// value disables the cutoff; services default it to the current time.
	CreateAfter time.Time
}

// Candidate is a generated slot interval in storage time.
type Candidate struct {
	Name  string
	Start time.Time
	End   time.Time
}

var (
	// ErrMissingName indicates the batch label is empty.
	ErrMissingName = errors.New("recurrence: name is required")
	// ErrInvalidWindow indicates the end date does not follow the begin date.
	ErrInvalidWindow = errors.New("recurrence: end date must be after begin date")
	// ErrInvalidDuration indicates the meeting duration is not positive.
	ErrInvalidDuration = errors.New("recurrence: duration must be positive")
	// ErrNoWeekdays indicates the weekday set is empty.
	ErrNoWeekdays = errors.New("recurrence: at least one weekday is required")
	// ErrNoStartTimes indicates the start time list is empty.
	ErrNoStartTimes = errors.New("recurrence: at least one start time is required")
	// ErrInvalidWeekday indicates an unknown weekday value.
	ErrInvalidWeekday = errors.New("recurrence: invalid weekday")
)

// Validate reports every problem with the rule joined into one error.
func (r Rule) Validate() error {
	var errs []error
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, ErrMissingName)
	}
	if r.BeginDate.IsZero() || r.EndDate.IsZero() || !r.BeginDate.Before(r.EndDate) {
		errs = append(errs, ErrInvalidWindow)
	}
	if r.DurationMinutes <= 0 {
		errs = append(errs, ErrInvalidDuration)
	}
	if len(r.Weekdays) == 0 {
		errs = append(errs, ErrNoWeekdays)
	}
	for _, day := range r.Weekdays {
		if !day.Valid() {
			errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidWeekday, int(day)))
			break
		}
	}
	if len(r.StartTimes) == 0 {
		errs = append(errs, ErrNoStartTimes)
	}
	return errors.Join(errs...)
}

// Engine expands rules into candidate intervals.
type Engine struct {
	zone *clock.Zone
}

// NewEngine constructs an Engine that interprets rule dates and times in zone.
// If zone is nil, UTC is used.
func NewEngine(zone *clock.Zone) *Engine {
	if zone == nil {
		zone = clock.NewZone(time.UTC)
	}
	return &Engine{zone: zone}
}

// Zone returns the source zone of the engine.
func (e *Engine) Zone() *clock.Zone {
	return e.zone
}

// Generate returns a lazy, restartable sequence of candidates for rule.
//
// Dates run from BeginDate (inclusive) to EndDate (exclusive) in ascending
// order; within a date candidates follow the order of StartTimes. The rule is
// assumed to be valid: an empty weekday set or window yields nothing.
func (e *Engine) Generate(rule Rule) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		duration := time.Duration(rule.DurationMinutes) * time.Minute
		for day := range e.dates(rule) {
			for _, at := range rule.StartTimes {
				start := e.zone.Localize(day, at)
				if !rule.CreateAfter.IsZero() && !start.After(rule.CreateAfter) {
					continue
				}
				if !yield(Candidate{Name: rule.Name, Start: start, End: start.Add(duration)}) {
					return
				}
			}
		}
	}
}

// dates enumerates the matching calendar days using a weekly rrule anchored at
// UTC midnight, which keeps day arithmetic free of DST effects.
func (e *Engine) dates(rule Rule) iter.Seq[clock.Date] {
	return func(yield func(clock.Date) bool) {
		if len(rule.Weekdays) == 0 || rule.BeginDate.IsZero() || !rule.BeginDate.Before(rule.EndDate) {
			return
		}

		byDay := make([]rrule.Weekday, 0, len(rule.Weekdays))
		seen := make(map[Weekday]struct{}, len(rule.Weekdays))
		for _, day := range rule.Weekdays {
			if !day.Valid() {
				continue
			}
			if _, dup := seen[day]; dup {
				continue
			}
			seen[day] = struct{}{}
			byDay = append(byDay, rruleWeekdays[day])
		}
		if len(byDay) == 0 {
			return
		}

		last := rule.EndDate.AddDays(-1)
		r, err := rrule.NewRRule(rrule.ROption{
			Freq:      rrule.WEEKLY,
			Dtstart:   time.Date(rule.BeginDate.Year, rule.BeginDate.Month, rule.BeginDate.Day, 0, 0, 0, 0, time.UTC),
			Until:     time.Date(last.Year, last.Month, last.Day, 0, 0, 0, 0, time.UTC),
			Byweekday: byDay,
		})
		if err != nil {
			return
		}

		next := r.Iterator()
		for occurrence, ok := next(); ok; occurrence, ok = next() {
			if !yield(clock.DateOf(occurrence)) {
				return
			}
		}
	}
}
