package clock

import (
	"errors"
	"testing"
	"time"
)

func pacific(t *testing.T) *Zone {
	t.Helper()
	zone, err := LoadZone("America/Los_Angeles")
	if err != nil {
		t.Fatalf("LoadZone returned error: %v", err)
	}
	return zone
}

func TestZone_Localize(t *testing.T) {
	t.Parallel()

	zone := pacific(t)

	cases := []struct {
		name string
		date Date
		at   TimeOfDay
		want time.Time
	}{
		{
			name: "standard time",
			date: Date{2019, time.January, 30},
			at:   TimeOfDay{19, 0},
			want: time.Date(2019, time.January, 31, 3, 0, 0, 0, time.UTC),
		},
		{
			name: "daylight time",
			date: Date{2019, time.July, 3},
			at:   TimeOfDay{19, 0},
			want: time.Date(2019, time.July, 4, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "spring forward gap moves later",
			date: Date{2024, time.March, 10},
			at:   TimeOfDay{2, 30},
			want: time.Date(2024, time.March, 10, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "fall back overlap picks first occurrence",
			date: Date{2024, time.November, 3},
			at:   TimeOfDay{1, 30},
			want: time.Date(2024, time.November, 3, 8, 30, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := zone.Localize(tc.date, tc.at)
			if !got.Equal(tc.want) {
				t.Fatalf("Localize(%s %s) = %s, want %s", tc.date, tc.at, got, tc.want)
			}
			if got.Location() != time.UTC {
				t.Fatalf("expected UTC instant, got %s", got.Location())
			}
		})
	}
}

func TestZone_DayRange(t *testing.T) {
	t.Parallel()

	zone := pacific(t)

	from, to := zone.DayRange(Date{2019, time.February, 6})
	if !from.Equal(time.Date(2019, time.February, 6, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected day start %s", from)
	}
	if to.Sub(from) != 24*time.Hour {
		t.Fatalf("expected 24h day, got %s", to.Sub(from))
	}

	from, to = zone.DayRange(Date{2024, time.March, 10})
	if to.Sub(from) != 23*time.Hour {
		t.Fatalf("expected 23h spring-forward day, got %s", to.Sub(from))
	}
}

func TestParseDateAndTime(t *testing.T) {
	t.Parallel()

	d, err := ParseDate("2019-03-19")
	if err != nil {
		t.Fatalf("ParseDate returned error: %v", err)
	}
	if d != (Date{2019, time.March, 19}) || d.Weekday() != time.Tuesday {
		t.Fatalf("unexpected date %v (%s)", d, d.Weekday())
	}
	if d.AddDays(13).String() != "2019-04-01" {
		t.Fatalf("AddDays crossed month incorrectly: %s", d.AddDays(13))
	}

	if _, err := ParseDate("03/19/2019"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}

	tod, err := ParseTimeOfDay("19:05")
	if err != nil {
		t.Fatalf("ParseTimeOfDay returned error: %v", err)
	}
	if tod.String() != "19:05" {
		t.Fatalf("unexpected time of day %s", tod)
	}
	if _, err := ParseTimeOfDay("7pm"); !errors.Is(err, ErrInvalidTimeOfDay) {
		t.Fatalf("expected ErrInvalidTimeOfDay, got %v", err)
	}
}

func TestZone_LocalDate(t *testing.T) {
	t.Parallel()

	zone := pacific(t)
	instant := time.Date(2019, time.January, 31, 3, 0, 0, 0, time.UTC)
	if got := zone.LocalDate(instant); got != (Date{2019, time.January, 30}) {
		t.Fatalf("expected local date 2019-01-30, got %s", got)
	}
}
