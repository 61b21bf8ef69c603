package application

import (
	"time"

	"github.com/example/homevisit/internal/clock"
)

// Slot is a meeting offered for booking.
type Slot struct {
	ID          string
	Name        string
	Start       time.Time
	End         time.Time
	ReservedAt  *time.Time
	HouseholdID *string
}

// Reserved reports whether the slot has been booked.
func (s Slot) Reserved() bool {
	return s.ReservedAt != nil
}

// Household is the party that books a slot.
type Household struct {
	ID        string
	Address   string
	Notes     string
	CreatedAt time.Time
}

// Person is the contact submitted with a booking.
type Person struct {
	ID          string
	HouseholdID string
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	Notes       string
	CreatedAt   time.Time
}

// FullName joins first and last name.
func (p Person) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// BookedSlot is the result of a successful reservation.
type BookedSlot struct {
	Slot      Slot
	Household Household
	Person    Person
}

// HouseholdInput captures caller provided household fields.
type HouseholdInput struct {
	Address string `json:"address" validate:"required,max=1000"`
	Notes   string `json:"notes" validate:"max=2000"`
}

// PersonInput captures caller provided contact fields.
type PersonInput struct {
	FirstName   string `json:"first_name" validate:"required,max=30"`
	LastName    string `json:"last_name" validate:"max=30"`
	Email       string `json:"email" validate:"required,email,max=254"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,phone"`
	Notes       string `json:"notes" validate:"max=2000"`
}

// BookingInput is the public booking form.
type BookingInput struct {
	SlotID    string         `json:"slot_id" validate:"required"`
	Household HouseholdInput `json:"household"`
	Person    PersonInput    `json:"person"`
}

// DateOption groups the free slots of one local calendar day.
type DateOption struct {
	Date  clock.Date
	Label string
	Slots []Slot
}

// MeetingInput describes a single ad-hoc slot.
type MeetingInput struct {
	Name  string    `json:"name" validate:"required,max=50"`
	Start time.Time `json:"start" validate:"required"`
	End   time.Time `json:"end" validate:"required"`
}

// BatchResult reports the outcome of a recurrence batch.
type BatchResult struct {
	Inserted int
	Skipped  int
}

// CancelResult reports the outcome of cancelling one date.
type CancelResult struct {
	Date      clock.Date
	Cancelled int
}

// Feedback issue categories.
const (
	IssueScheduling = "scheduling"
	IssueCancel     = "cancel"
	IssueWebsite    = "website"
	IssueOther      = "other"
)

// FeedbackInput is the contact form.
type FeedbackInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email,max=254"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,phone"`
	Issue       string `json:"issue" validate:"required,oneof=scheduling cancel website other"`
	Comment     string `json:"comment" validate:"required,max=4000"`
}

// Feedback is a stored contact form submission.
type Feedback struct {
	ID          string
	Name        string
	Email       string
	PhoneNumber string
	Issue       string
	Comment     string
	CreatedAt   time.Time
}

// Faq is a help page entry.
type Faq struct {
	ShortName string
	Question  string
	Answer    string
	Position  int
}

// AdminToken is a signed bearer token issued to the administrator.
type AdminToken struct {
	Token     string
	ExpiresAt time.Time
}
