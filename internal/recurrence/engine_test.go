package recurrence

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/example/homevisit/internal/clock"
)

func pacificEngine(t *testing.T) *Engine {
	t.Helper()
	zone, err := clock.LoadZone("America/Los_Angeles")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	return NewEngine(zone)
}

func wednesdayRule() Rule {
	return Rule{
		Name:            "winter",
		BeginDate:       clock.Date{Year: 2019, Month: time.January, Day: 29},
		EndDate:         clock.Date{Year: 2019, Month: time.March, Day: 19},
		DurationMinutes: 60,
		Weekdays:        []Weekday{Wednesday},
		StartTimes:      []clock.TimeOfDay{{Hour: 19}},
	}
}

func TestEngine_Generate(t *testing.T) {
	t.Parallel()

	t.Run("weekly wednesday evenings", func(t *testing.T) {
		t.Parallel()
		engine := pacificEngine(t)

		got := slices.Collect(engine.Generate(wednesdayRule()))

		wantDays := []int{30, 6, 13, 20, 27, 6, 13}
		if len(got) != len(wantDays) {
			t.Fatalf("expected %d candidates, got %d: %v", len(wantDays), len(got), got)
		}
		for i, c := range got {
			local := c.Start.In(engine.Zone().Location())
			if local.Weekday() != time.Wednesday || local.Hour() != 19 || local.Minute() != 0 {
				t.Errorf("candidate %d starts at %s, want Wednesday 19:00 local", i, local)
			}
			if local.Day() != wantDays[i] {
				t.Errorf("candidate %d on day %d, want %d", i, local.Day(), wantDays[i])
			}
			if c.End.Sub(c.Start) != time.Hour {
				t.Errorf("candidate %d has duration %s", i, c.End.Sub(c.Start))
			}
			if c.Name != "winter" {
				t.Errorf("candidate %d has name %q", i, c.Name)
			}
		}

		first := time.Date(2019, time.January, 31, 3, 0, 0, 0, time.UTC)
		if !got[0].Start.Equal(first) {
			t.Fatalf("expected first candidate at %s, got %s", first, got[0].Start)
		}
		// 2019-03-13 falls after the spring-forward change.
		last := time.Date(2019, time.March, 14, 2, 0, 0, 0, time.UTC)
		if !got[len(got)-1].Start.Equal(last) {
			t.Fatalf("expected last candidate at %s, got %s", last, got[len(got)-1].Start)
		}
	})

	t.Run("end date is exclusive", func(t *testing.T) {
		t.Parallel()
		engine := pacificEngine(t)

		rule := wednesdayRule()
		rule.Weekdays = []Weekday{Tuesday}

		got := slices.Collect(engine.Generate(rule))
		for _, c := range got {
			if engine.Zone().LocalDate(c.Start) == rule.EndDate {
				t.Fatalf("candidate generated on exclusive end date: %s", c.Start)
			}
		}
		if engine.Zone().LocalDate(got[0].Start) != rule.BeginDate {
			t.Fatalf("expected begin date to be inclusive, first candidate %s", got[0].Start)
		}
	})

	t.Run("start times keep their given order within a day", func(t *testing.T) {
		t.Parallel()
		engine := pacificEngine(t)

		rule := wednesdayRule()
		rule.EndDate = clock.Date{Year: 2019, Month: time.February, Day: 1}
		rule.StartTimes = []clock.TimeOfDay{{Hour: 19}, {Hour: 9, Minute: 30}}

		got := slices.Collect(engine.Generate(rule))
		if len(got) != 2 {
			t.Fatalf("expected 2 candidates, got %d", len(got))
		}
		if h := got[0].Start.In(engine.Zone().Location()).Hour(); h != 19 {
			t.Fatalf("expected first candidate at 19:00, got hour %d", h)
		}
		if h := got[1].Start.In(engine.Zone().Location()).Hour(); h != 9 {
			t.Fatalf("expected second candidate at 09:30, got hour %d", h)
		}
	})

	t.Run("no matching weekday yields empty sequence", func(t *testing.T) {
		t.Parallel()
		engine := pacificEngine(t)

		rule := wednesdayRule()
		rule.BeginDate = clock.Date{Year: 2019, Month: time.January, Day: 31}
		rule.EndDate = clock.Date{Year: 2019, Month: time.February, Day: 3}

		if got := slices.Collect(engine.Generate(rule)); len(got) != 0 {
			t.Fatalf("expected no candidates, got %v", got)
		}
	})

	t.Run("sequence is restartable and stops early", func(t *testing.T) {
		t.Parallel()
		engine := pacificEngine(t)
		seq := engine.Generate(wednesdayRule())

		first := slices.Collect(seq)
		second := slices.Collect(seq)
		if !slices.Equal(first, second) {
			t.Fatalf("expected identical sequences on reuse")
		}

		count := 0
		for range seq {
			count++
			if count == 2 {
				break
			}
		}
		if count != 2 {
			t.Fatalf("expected early termination after 2 items, got %d", count)
		}
	})
}

func TestEngine_CreateAfterCutoff(t *testing.T) {
	t.Parallel()
	engine := pacificEngine(t)

	rule := wednesdayRule()
	rule.CreateAfter = time.Date(2019, time.February, 14, 0, 0, 0, 0, time.UTC)

	firstRun := slices.Collect(engine.Generate(rule))
	for _, c := range firstRun {
		if !c.Start.After(rule.CreateAfter) {
			t.Fatalf("candidate %s not after cutoff %s", c.Start, rule.CreateAfter)
		}
	}
	if len(firstRun) != 5 {
		t.Fatalf("expected 5 candidates after cutoff, got %d", len(firstRun))
	}

	// A candidate exactly at the cutoff is excluded.
	rule.CreateAfter = firstRun[0].Start
	atCutoff := slices.Collect(engine.Generate(rule))
	if len(atCutoff) != 4 || atCutoff[0].Start.Equal(rule.CreateAfter) {
		t.Fatalf("expected candidate equal to cutoff to be skipped, got %v", atCutoff)
	}

	rule.CreateAfter = firstRun[len(firstRun)-1].Start.Add(time.Nanosecond)
	secondRun := slices.Collect(engine.Generate(rule))
	for _, a := range firstRun {
		for _, b := range secondRun {
			if a.Start.Equal(b.Start) {
				t.Fatalf("re-run produced duplicate candidate %s", a.Start)
			}
		}
	}
}

func TestRule_Validate(t *testing.T) {
	t.Parallel()

	if err := wednesdayRule().Validate(); err != nil {
		t.Fatalf("expected valid rule, got %v", err)
	}

	bad := Rule{
		BeginDate:       clock.Date{Year: 2019, Month: time.March, Day: 1},
		EndDate:         clock.Date{Year: 2019, Month: time.March, Day: 1},
		DurationMinutes: 0,
	}
	err := bad.Validate()
	for _, want := range []error{ErrMissingName, ErrInvalidWindow, ErrInvalidDuration, ErrNoWeekdays, ErrNoStartTimes} {
		if !errors.Is(err, want) {
			t.Errorf("expected %v in %v", want, err)
		}
	}

	bad = wednesdayRule()
	bad.Weekdays = []Weekday{Weekday(9)}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidWeekday) {
		t.Fatalf("expected ErrInvalidWeekday, got %v", err)
	}
}

func TestParseWeekday(t *testing.T) {
	t.Parallel()

	day, err := ParseWeekday("wed")
	if err != nil || day != Wednesday {
		t.Fatalf("ParseWeekday(wed) = %v, %v", day, err)
	}
	if day.TimeWeekday() != time.Wednesday {
		t.Fatalf("expected time.Wednesday, got %s", day.TimeWeekday())
	}
	if Sunday.TimeWeekday() != time.Sunday || Monday.TimeWeekday() != time.Monday {
		t.Fatalf("unexpected weekday conversion")
	}
	if _, err := ParseWeekday("Wednesday"); !errors.Is(err, ErrInvalidWeekday) {
		t.Fatalf("expected ErrInvalidWeekday, got %v", err)
	}
}
