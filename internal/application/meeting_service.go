package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/homevisit/internal/calendar"
	"github.com/example/homevisit/internal/clock"
	"github.com/example/homevisit/internal/persistence"
	"github.com/example/homevisit/internal/recurrence"
)

// SlotInvalidator is notified whenever slots are added or removed.
type SlotInvalidator interface {
	InvalidateSlots()
}

// MeetingService manages slot availability for operators.
type MeetingService struct {
	store       persistence.Store
	engine      *recurrence.Engine
	validator   *Validator
	invalidator SlotInvalidator
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewMeetingService constructs a meeting service with the provided dependencies.
func NewMeetingService(store persistence.Store, zone *clock.Zone, idGenerator func() string, now func() time.Time) *MeetingService {
	return NewMeetingServiceWithLogger(store, zone, idGenerator, now, nil)
}

// NewMeetingServiceWithLogger constructs a meeting service with a specified logger.
func NewMeetingServiceWithLogger(store persistence.Store, zone *clock.Zone, idGenerator func() string, now func() time.Time, logger *slog.Logger) *MeetingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &MeetingService{
		store:       store,
		engine:      recurrence.NewEngine(zone),
		validator:   NewValidator(""),
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// SetInvalidator registers the listener told about slot changes.
func (s *MeetingService) SetInvalidator(invalidator SlotInvalidator) {
	s.invalidator = invalidator
}

// Zone returns the zone operators enter dates and times in.
func (s *MeetingService) Zone() *clock.Zone {
	return s.engine.Zone()
}

func (s *MeetingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MeetingService", operation, attrs...)
}

func (s *MeetingService) changed() {
	if s.invalidator != nil {
		s.invalidator.InvalidateSlots()
	}
}

// CreateMeeting inserts a single slot. The start must lie in the future and
// the interval must not overlap any stored slot.
func (s *MeetingService) CreateMeeting(ctx context.Context, input MeetingInput) (slot Slot, err error) {
	if s == nil {
		err = fmt.Errorf("MeetingService is nil")
		return
	}
	input.Name = strings.TrimSpace(input.Name)

	logger := s.loggerWith(ctx, "CreateMeeting", "name", input.Name)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create meeting", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("meeting_id", slot.ID, "start", slot.Start).InfoContext(ctx, "meeting created")
	}()

	now := s.now()
	vErr := &ValidationError{}
	vErr.merge(s.validator.Struct(input))
	if !input.End.IsZero() && !input.End.After(input.Start) {
		vErr.add("end", "must be after start")
	}
	if !input.Start.IsZero() && !input.Start.After(now) {
		vErr.add("start", "must be in the future")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	meeting := persistence.Meeting{
		ID:        s.idGenerator(),
		Name:      input.Name,
		Start:     input.Start.UTC(),
		End:       input.End.UTC(),
		CreatedAt: now,
	}
	if err = s.store.Repositories().Meetings.InsertMeeting(ctx, meeting); err != nil {
		err = mapStoreError(err)
		return
	}
	s.changed()
	return toSlot(meeting), nil
}

// RunRecurrenceBatch expands rule and inserts every candidate. Candidates
// overlapping a stored slot are skipped and logged; any other failure stops
// the batch and is returned with the counts so far. A zero CreateAfter, or
// one in the past, is replaced by the current time.
func (s *MeetingService) RunRecurrenceBatch(ctx context.Context, rule recurrence.Rule) (result BatchResult, err error) {
	if s == nil {
		err = fmt.Errorf("MeetingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RunRecurrenceBatch", "name", rule.Name)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "recurrence batch failed",
				"error", err,
				"error_kind", ErrorKind(err),
				"inserted", result.Inserted,
				"skipped", result.Skipped,
			)
			return
		}
		logger.InfoContext(ctx, "recurrence batch completed", "inserted", result.Inserted, "skipped", result.Skipped)
	}()

	if vErr := ruleValidationError(rule.Validate()); vErr != nil {
		err = vErr
		return
	}

	now := s.now()
	if rule.CreateAfter.Before(now) {
		rule.CreateAfter = now
	}

	meetings := s.store.Repositories().Meetings
	for candidate := range s.engine.Generate(rule) {
		if err = ctx.Err(); err != nil {
			break
		}
		meeting := persistence.Meeting{
			ID:        s.idGenerator(),
			Name:      candidate.Name,
			Start:     candidate.Start,
			End:       candidate.End,
			CreatedAt: now,
		}
		insertErr := meetings.InsertMeeting(ctx, meeting)
		if errors.Is(insertErr, persistence.ErrOverlap) {
			result.Skipped++
			logger.WarnContext(ctx, "skipped overlapping candidate",
				"start", candidate.Start,
				"end", candidate.End,
				"error", insertErr,
			)
			continue
		}
		if insertErr != nil {
			err = mapStoreError(insertErr)
			break
		}
		result.Inserted++
		logger.DebugContext(ctx, "meeting created", "meeting_id", meeting.ID, "start", candidate.Start)
	}

	if result.Inserted > 0 {
		s.changed()
	}
	return result, err
}

func ruleValidationError(err error) *ValidationError {
	if err == nil {
		return nil
	}
	vErr := &ValidationError{}
	fields := []struct {
		target error
		field  string
		msg    string
	}{
		{recurrence.ErrMissingName, "name", "is required"},
		{recurrence.ErrInvalidWindow, "end_date", "must be after begin_date"},
		{recurrence.ErrInvalidDuration, "duration_minutes", "must be positive"},
		{recurrence.ErrNoWeekdays, "weekdays", "must not be empty"},
		{recurrence.ErrInvalidWeekday, "weekdays", "must be MON through SUN"},
		{recurrence.ErrNoStartTimes, "start_times", "must not be empty"},
	}
	for _, f := range fields {
		if errors.Is(err, f.target) {
			vErr.add(f.field, f.msg)
		}
	}
	if !vErr.HasErrors() {
		vErr.add("rule", err.Error())
	}
	return vErr
}

// CancelDate deletes every slot starting on date in the operator zone. A date
// holding a reservation is left untouched and ErrReservedSlotCancel returned.
func (s *MeetingService) CancelDate(ctx context.Context, date clock.Date) (cancelled int, err error) {
	if s == nil {
		return 0, fmt.Errorf("MeetingService is nil")
	}
	if date.IsZero() {
		vErr := &ValidationError{}
		vErr.add("date", "is required")
		return 0, vErr
	}

	logger := s.loggerWith(ctx, "CancelDate", "date", date.String())
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel date", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "date cancelled", "cancelled", cancelled)
	}()

	from, to := s.Zone().DayRange(date)
	err = s.store.WithTx(ctx, func(ctx context.Context, tx persistence.Repositories) error {
		var txErr error
		cancelled, txErr = tx.Meetings.CancelUnreserved(ctx, from, to)
		return txErr
	})
	if err != nil {
		return 0, mapStoreError(err)
	}
	if cancelled > 0 {
		s.changed()
	}
	return cancelled, nil
}

// CancelDates cancels each date in order and stops at the first failure.
func (s *MeetingService) CancelDates(ctx context.Context, dates []clock.Date) ([]CancelResult, error) {
	results := make([]CancelResult, 0, len(dates))
	for _, date := range dates {
		n, err := s.CancelDate(ctx, date)
		if err != nil {
			return results, fmt.Errorf("cancel %s: %w", date, err)
		}
		results = append(results, CancelResult{Date: date, Cancelled: n})
	}
	return results, nil
}

// ListMeetings returns every slot, reserved or not, starting in [from, to).
func (s *MeetingService) ListMeetings(ctx context.Context, from, to time.Time) ([]Slot, error) {
	if !to.After(from) {
		vErr := &ValidationError{}
		vErr.add("to", "must be after from")
		return nil, vErr
	}
	meetings, err := s.store.Repositories().Meetings.ListMeetings(ctx, from, to)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return toSlots(meetings), nil
}

// ExportCalendar renders the slots starting in [from, to) as an iCalendar feed.
func (s *MeetingService) ExportCalendar(ctx context.Context, from, to time.Time) ([]byte, error) {
	slots, err := s.ListMeetings(ctx, from, to)
	if err != nil {
		return nil, err
	}
	events := make([]calendar.Event, len(slots))
	for i, slot := range slots {
		events[i] = calendar.Event{
			ID:       slot.ID,
			Summary:  slot.Name,
			Start:    slot.Start,
			End:      slot.End,
			Reserved: slot.Reserved(),
		}
	}
	return calendar.Feed("Home visits", events, s.now()), nil
}
