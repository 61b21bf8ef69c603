package persistence

import (
	"context"
	"time"
)

// MeetingRepository stores slots and enforces the no-overlap invariant.
type MeetingRepository interface {
	// InsertMeeting stores a meeting unless its interval overlaps any stored
	// meeting, reserved or not. The check and insert are atomic.
	InsertMeeting(ctx context.Context, meeting Meeting) error
	GetMeeting(ctx context.Context, id string) (Meeting, error)
	// FindFree returns unreserved meetings with after < Start < before,
	// ascending by Start.
	FindFree(ctx context.Context, after, before time.Time) ([]Meeting, error)
	// ListMeetings returns all meetings with from <= Start < to, ascending.
	ListMeetings(ctx context.Context, from, to time.Time) ([]Meeting, error)
	// ReserveMeeting marks a free meeting as booked. It fails with ErrNotFound
	// or ErrAlreadyReserved; the unreserved check and the update are one
	// atomic step.
	ReserveMeeting(ctx context.Context, id, householdID string, reservedAt time.Time) error
	// CancelUnreserved deletes meetings with from <= Start < to. If any of them
	// is reserved nothing is deleted and a *ReservedSlotError is returned.
	CancelUnreserved(ctx context.Context, from, to time.Time) (int, error)
}

// HouseholdRepository stores households.
type HouseholdRepository interface {
	CreateHousehold(ctx context.Context, household Household) error
	GetHousehold(ctx context.Context, id string) (Household, error)
}

// PersonRepository stores household members.
type PersonRepository interface {
	CreatePerson(ctx context.Context, person Person) error
	ListPeopleForHousehold(ctx context.Context, householdID string) ([]Person, error)
}

// FeedbackRepository stores contact form submissions.
type FeedbackRepository interface {
	CreateFeedback(ctx context.Context, feedback Feedback) error
	ListFeedback(ctx context.Context) ([]Feedback, error)
}

// FaqRepository stores help page entries.
type FaqRepository interface {
	UpsertFaq(ctx context.Context, faq Faq) error
	ListFaqs(ctx context.Context) ([]Faq, error)
}

// Repositories groups the repositories bound to one connection or transaction.
type Repositories struct {
	Meetings   MeetingRepository
	Households HouseholdRepository
	People     PersonRepository
	Feedback   FeedbackRepository
	Faqs       FaqRepository
}

// TxFunc runs inside a transaction using the transaction-bound repositories.
// Returning an error rolls every change back.
type TxFunc func(ctx context.Context, tx Repositories) error

// Store is a transactional record store.
type Store interface {
	Repositories() Repositories
	// WithTx runs fn in one transaction. fn must only use the repositories it
	// is handed.
	WithTx(ctx context.Context, fn TxFunc) error
	Ping(ctx context.Context) error
	Close() error
}
