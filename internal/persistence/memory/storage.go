package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/homevisit/internal/persistence"
	"github.com/example/homevisit/internal/scheduler"
)

// Storage is an in-process persistence.Store. Transactions run against a
// copy of the data under an exclusive lock and replace it on success.
type Storage struct {
	mu    sync.Mutex
	state *state
}

type state struct {
	meetings   map[string]persistence.Meeting
	households map[string]persistence.Household
	people     map[string]persistence.Person
	feedback   map[string]persistence.Feedback
	faqs       map[string]persistence.Faq
}

// Open returns an empty Storage.
func Open() *Storage {
	return &Storage{state: newState()}
}

func newState() *state {
	return &state{
		meetings:   make(map[string]persistence.Meeting),
		households: make(map[string]persistence.Household),
		people:     make(map[string]persistence.Person),
		feedback:   make(map[string]persistence.Feedback),
		faqs:       make(map[string]persistence.Faq),
	}
}

func (st *state) clone() *state {
	out := newState()
	for k, v := range st.meetings {
		out.meetings[k] = cloneMeeting(v)
	}
	for k, v := range st.households {
		out.households[k] = v
	}
	for k, v := range st.people {
		out.people[k] = v
	}
	for k, v := range st.feedback {
		out.feedback[k] = v
	}
	for k, v := range st.faqs {
		out.faqs[k] = v
	}
	return out
}

// Close is a no-op.
func (s *Storage) Close() error {
	return nil
}

// Ping always succeeds.
func (s *Storage) Ping(context.Context) error {
	return nil
}

// Repositories returns repositories that lock the storage per call.
func (s *Storage) Repositories() persistence.Repositories {
	return s.repositories(&view{storage: s})
}

// WithTx runs fn against a private copy of the data and publishes the copy
// only when fn succeeds.
func (s *Storage) WithTx(ctx context.Context, fn persistence.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	working := s.state.clone()
	if err := fn(ctx, s.repositories(&view{state: working})); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("memory: transaction aborted: %w", err)
	}
	s.state = working
	return nil
}

func (s *Storage) repositories(v *view) persistence.Repositories {
	return persistence.Repositories{
		Meetings:   v,
		Households: v,
		People:     v,
		Feedback:   v,
		Faqs:       v,
	}
}

// view serves repository calls either directly on a transaction's working
// state or, when state is nil, on the shared state under the storage lock.
type view struct {
	storage *Storage
	state   *state
}

func (v *view) do(fn func(st *state) error) error {
	if v.state != nil {
		return fn(v.state)
	}
	v.storage.mu.Lock()
	defer v.storage.mu.Unlock()
	return fn(v.storage.state)
}

// --- MeetingRepository implementation ---

func (v *view) InsertMeeting(ctx context.Context, meeting persistence.Meeting) error {
	return v.do(func(st *state) error {
		if _, ok := st.meetings[meeting.ID]; ok {
			return fmt.Errorf("memory: meeting %s: %w", meeting.ID, persistence.ErrDuplicate)
		}
		if !meeting.End.After(meeting.Start) {
			return persistence.ErrConstraintViolation
		}

		existing := make([]scheduler.Interval, 0, len(st.meetings))
		for _, m := range st.meetings {
			existing = append(existing, scheduler.Interval{ID: m.ID, Start: m.Start, End: m.End})
		}
		conflicts := scheduler.DetectConflicts(existing, scheduler.Interval{Start: meeting.Start, End: meeting.End})
		if len(conflicts) > 0 {
			return &persistence.OverlapError{ConflictID: conflicts[0].WithID}
		}

		st.meetings[meeting.ID] = cloneMeeting(meeting)
		return nil
	})
}

func (v *view) GetMeeting(ctx context.Context, id string) (persistence.Meeting, error) {
	var out persistence.Meeting
	err := v.do(func(st *state) error {
		m, ok := st.meetings[id]
		if !ok {
			return persistence.ErrNotFound
		}
		out = cloneMeeting(m)
		return nil
	})
	return out, err
}

func (v *view) FindFree(ctx context.Context, after, before time.Time) ([]persistence.Meeting, error) {
	var out []persistence.Meeting
	err := v.do(func(st *state) error {
		for _, m := range st.meetings {
			if m.Reserved() || !m.Start.After(after) || !m.Start.Before(before) {
				continue
			}
			out = append(out, cloneMeeting(m))
		}
		return nil
	})
	sortMeetings(out)
	return out, err
}

func (v *view) ListMeetings(ctx context.Context, from, to time.Time) ([]persistence.Meeting, error) {
	var out []persistence.Meeting
	err := v.do(func(st *state) error {
		for _, m := range st.meetings {
			if m.Start.Before(from) || !m.Start.Before(to) {
				continue
			}
			out = append(out, cloneMeeting(m))
		}
		return nil
	})
	sortMeetings(out)
	return out, err
}

func (v *view) ReserveMeeting(ctx context.Context, id, householdID string, reservedAt time.Time) error {
	return v.do(func(st *state) error {
		m, ok := st.meetings[id]
		if !ok {
			return persistence.ErrNotFound
		}
		if m.Reserved() {
			return persistence.ErrAlreadyReserved
		}
		if _, ok := st.households[householdID]; !ok {
			return fmt.Errorf("memory: household %s: %w", householdID, persistence.ErrConstraintViolation)
		}
		at := reservedAt
		hh := householdID
		m.ReservedAt = &at
		m.HouseholdID = &hh
		st.meetings[id] = m
		return nil
	})
}

func (v *view) CancelUnreserved(ctx context.Context, from, to time.Time) (int, error) {
	var cancelled int
	err := v.do(func(st *state) error {
		var ids []string
		reserved := 0
		for id, m := range st.meetings {
			if m.Start.Before(from) || !m.Start.Before(to) {
				continue
			}
			if m.Reserved() {
				reserved++
				continue
			}
			ids = append(ids, id)
		}
		if reserved > 0 {
			return &persistence.ReservedSlotError{Reserved: reserved}
		}
		for _, id := range ids {
			delete(st.meetings, id)
		}
		cancelled = len(ids)
		return nil
	})
	return cancelled, err
}

// --- HouseholdRepository / PersonRepository implementation ---

func (v *view) CreateHousehold(ctx context.Context, household persistence.Household) error {
	return v.do(func(st *state) error {
		if _, ok := st.households[household.ID]; ok {
			return fmt.Errorf("memory: household %s: %w", household.ID, persistence.ErrDuplicate)
		}
		st.households[household.ID] = household
		return nil
	})
}

func (v *view) GetHousehold(ctx context.Context, id string) (persistence.Household, error) {
	var out persistence.Household
	err := v.do(func(st *state) error {
		h, ok := st.households[id]
		if !ok {
			return persistence.ErrNotFound
		}
		out = h
		return nil
	})
	return out, err
}

func (v *view) CreatePerson(ctx context.Context, person persistence.Person) error {
	return v.do(func(st *state) error {
		if _, ok := st.people[person.ID]; ok {
			return fmt.Errorf("memory: person %s: %w", person.ID, persistence.ErrDuplicate)
		}
		if _, ok := st.households[person.HouseholdID]; !ok {
			return fmt.Errorf("memory: household %s: %w", person.HouseholdID, persistence.ErrConstraintViolation)
		}
		st.people[person.ID] = person
		return nil
	})
}

func (v *view) ListPeopleForHousehold(ctx context.Context, householdID string) ([]persistence.Person, error) {
	var out []persistence.Person
	err := v.do(func(st *state) error {
		for _, p := range st.people {
			if p.HouseholdID == householdID {
				out = append(out, p)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, err
}

// --- FeedbackRepository / FaqRepository implementation ---

func (v *view) CreateFeedback(ctx context.Context, feedback persistence.Feedback) error {
	return v.do(func(st *state) error {
		if _, ok := st.feedback[feedback.ID]; ok {
			return fmt.Errorf("memory: feedback %s: %w", feedback.ID, persistence.ErrDuplicate)
		}
		st.feedback[feedback.ID] = feedback
		return nil
	})
}

func (v *view) ListFeedback(ctx context.Context) ([]persistence.Feedback, error) {
	var out []persistence.Feedback
	err := v.do(func(st *state) error {
		for _, f := range st.feedback {
			out = append(out, f)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, err
}

func (v *view) UpsertFaq(ctx context.Context, faq persistence.Faq) error {
	return v.do(func(st *state) error {
		st.faqs[faq.ShortName] = faq
		return nil
	})
}

func (v *view) ListFaqs(ctx context.Context) ([]persistence.Faq, error) {
	var out []persistence.Faq
	err := v.do(func(st *state) error {
		for _, f := range st.faqs {
			out = append(out, f)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position == out[j].Position {
			return out[i].ShortName < out[j].ShortName
		}
		return out[i].Position < out[j].Position
	})
	return out, err
}

func cloneMeeting(m persistence.Meeting) persistence.Meeting {
	out := m
	if m.ReservedAt != nil {
		at := *m.ReservedAt
		out.ReservedAt = &at
	}
	if m.HouseholdID != nil {
		id := *m.HouseholdID
		out.HouseholdID = &id
	}
	return out
}

func sortMeetings(meetings []persistence.Meeting) {
	sort.Slice(meetings, func(i, j int) bool {
		if meetings[i].Start.Equal(meetings[j].Start) {
			return meetings[i].ID < meetings[j].ID
		}
		return meetings[i].Start.Before(meetings[j].Start)
	})
}

var _ persistence.Store = (*Storage)(nil)
