package testfixtures

import (
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/example/homevisit/internal/persistence"
)

var (
	meetingCounter   uint64
	householdCounter uint64
	personCounter    uint64
	feedbackCounter  uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ---------------------------- Meeting fixtures ----------------------------

// MeetingFixture describes a slot that can be materialised for persistence
// tests. Each new fixture starts one hour after the previous one.
type MeetingFixture struct {
	ID          string
	Name        string
	Start       time.Time
	Duration    time.Duration
	ReservedAt  *time.Time
	HouseholdID *string
	CreatedAt   time.Time
}

// MeetingOption configures the generated meeting fixture.
type MeetingOption func(*MeetingFixture)

// NewMeetingFixture returns a deterministic free meeting with optional overrides.
func NewMeetingFixture(opts ...MeetingOption) MeetingFixture {
	idx := atomic.AddUint64(&meetingCounter, 1)
	fixture := MeetingFixture{
		ID:        fmt.Sprintf("meeting-%03d", idx),
		Name:      "Home visit",
		Start:     referenceTime.Add(time.Duration(idx) * time.Hour).Truncate(time.Hour),
		Duration:  time.Hour,
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithMeetingID overrides the generated meeting ID.
func WithMeetingID(id string) MeetingOption {
	return func(f *MeetingFixture) {
		f.ID = id
	}
}

// WithMeetingName overrides the meeting name.
func WithMeetingName(name string) MeetingOption {
	return func(f *MeetingFixture) {
		f.Name = name
	}
}

// WithMeetingWindow sets the start instant and duration.
func WithMeetingWindow(start time.Time, duration time.Duration) MeetingOption {
	return func(f *MeetingFixture) {
		f.Start = start
		f.Duration = duration
	}
}

// WithMeetingReservation marks the fixture as booked by the household.
func WithMeetingReservation(householdID string, at time.Time) MeetingOption {
	return func(f *MeetingFixture) {
		f.ReservedAt = &at
		f.HouseholdID = &householdID
	}
}

// Persistence converts the fixture into a persistence.Meeting.
func (f MeetingFixture) Persistence() persistence.Meeting {
	return persistence.Meeting{
		ID:          f.ID,
		Name:        f.Name,
		Start:       f.Start,
		End:         f.Start.Add(f.Duration),
		ReservedAt:  f.ReservedAt,
		HouseholdID: f.HouseholdID,
		CreatedAt:   f.CreatedAt,
	}
}

// --------------------------- Household fixtures ---------------------------

// HouseholdFixture describes a household record.
type HouseholdFixture struct {
	ID        string
	Address   string
	Notes     string
	CreatedAt time.Time
}

// HouseholdOption configures the generated household fixture.
type HouseholdOption func(*HouseholdFixture)

// NewHouseholdFixture returns a deterministic household with optional overrides.
func NewHouseholdFixture(opts ...HouseholdOption) HouseholdFixture {
	idx := atomic.AddUint64(&householdCounter, 1)
	fixture := HouseholdFixture{
		ID:        fmt.Sprintf("household-%03d", idx),
		Address:   fmt.Sprintf("%d Main Street", 100+idx),
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithHouseholdID overrides the generated household ID.
func WithHouseholdID(id string) HouseholdOption {
	return func(f *HouseholdFixture) {
		f.ID = id
	}
}

// WithHouseholdAddress overrides the generated address.
func WithHouseholdAddress(address string) HouseholdOption {
	return func(f *HouseholdFixture) {
		f.Address = address
	}
}

// Persistence converts the fixture into a persistence.Household.
func (f HouseholdFixture) Persistence() persistence.Household {
	return persistence.Household{
		ID:        f.ID,
		Address:   f.Address,
		Notes:     f.Notes,
		CreatedAt: f.CreatedAt,
	}
}

// ----------------------------- Person fixtures -----------------------------

// PersonFixture describes a household member.
type PersonFixture struct {
	ID          string
	HouseholdID string
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	CreatedAt   time.Time
}

// PersonOption configures the generated person fixture.
type PersonOption func(*PersonFixture)

// NewPersonFixture returns a deterministic person belonging to householdID.
func NewPersonFixture(householdID string, opts ...PersonOption) PersonFixture {
	idx := atomic.AddUint64(&personCounter, 1)
	fixture := PersonFixture{
		ID:          fmt.Sprintf("person-%03d", idx),
		HouseholdID: householdID,
		FirstName:   fmt.Sprintf("Person%03d", idx),
		LastName:    "Example",
		Email:       fmt.Sprintf("person-%03d@example.com", idx),
		PhoneNumber: "+14155550100",
		CreatedAt:   referenceTime.Add(time.Duration(idx) * time.Second),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithPersonEmail overrides the generated email address.
func WithPersonEmail(email string) PersonOption {
	return func(f *PersonFixture) {
		f.Email = email
	}
}

// Persistence converts the fixture into a persistence.Person.
func (f PersonFixture) Persistence() persistence.Person {
	return persistence.Person{
		ID:          f.ID,
		HouseholdID: f.HouseholdID,
		FirstName:   f.FirstName,
		LastName:    f.LastName,
		Email:       f.Email,
		PhoneNumber: f.PhoneNumber,
		CreatedAt:   f.CreatedAt,
	}
}

// ---------------------------- Feedback fixtures ----------------------------

// NewFeedback returns a deterministic feedback record created at offset from
// the reference time.
func NewFeedback(issue string, offset time.Duration) persistence.Feedback {
	idx := atomic.AddUint64(&feedbackCounter, 1)
	return persistence.Feedback{
		ID:        fmt.Sprintf("feedback-%03d", idx),
		Name:      "Pat Example",
		Email:     "pat@example.com",
		Issue:     issue,
		Comment:   fmt.Sprintf("comment %d", idx),
		CreatedAt: referenceTime.Add(offset),
	}
}
