package testfixtures

import (
	"testing"
	"time"

	"github.com/example/homevisit/internal/clock"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	c := NewClock(time.Time{})
	if !c.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", c.Now())
	}
}

func TestClockAdvanceAndSet(t *testing.T) {
	start := time.Date(2024, time.March, 14, 9, 26, 0, 0, time.UTC)
	c := NewClock(start)
	nowFn := c.NowFunc()

	if updated := c.Advance(90 * time.Minute); !updated.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("advance returned %v", updated)
	}
	c.Set(start.Add(2 * time.Hour))
	if got := nowFn(); !got.Equal(start.Add(2 * time.Hour)) {
		t.Fatalf("expected NowFunc to follow Set, got %v", got)
	}
}

func TestClockToday(t *testing.T) {
	zone, err := clock.LoadZone("America/Los_Angeles")
	if err != nil {
		t.Fatalf("LoadZone failed: %v", err)
	}
	c := NewClock(time.Date(2024, time.March, 15, 3, 0, 0, 0, time.UTC))

	want := clock.Date{Year: 2024, Month: time.March, Day: 14}
	if got := c.Today(zone); got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
