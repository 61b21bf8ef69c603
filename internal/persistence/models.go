package persistence

import "time"

// Meeting is a bookable slot occupying [Start, End).
type Meeting struct {
	ID          string
	Name        string
	Start       time.Time
	End         time.Time
	ReservedAt  *time.Time
	HouseholdID *string
	CreatedAt   time.Time
}

// Reserved reports whether the meeting has been booked.
func (m Meeting) Reserved() bool {
	return m.ReservedAt != nil
}

// Household is the party that books a meeting.
type Household struct {
	ID        string
	Address   string
	Notes     string
	CreatedAt time.Time
}

// Person is a contact belonging to a household.
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

// Feedback is a message submitted through the contact form.
type Feedback struct {
	ID          string
	Name        string
	Email       string
	PhoneNumber string
	Issue       string
	Comment     string
	CreatedAt   time.Time
}

// Faq is a question and answer shown on the help page.
type Faq struct {
	ShortName string
	Question  string
	Answer    string
	Position  int
}
