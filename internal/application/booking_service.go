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
	"github.com/example/homevisit/internal/notify"
	"github.com/example/homevisit/internal/persistence"
)

// DateLabelLayout formats the date picker entries.
const DateLabelLayout = "Monday, January 2 2006"

// Notifier delivers rendered messages. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, msg notify.Message) error
}

// MaxWindowWeeks bounds the booking window accepted by the listing calls.
const MaxWindowWeeks = 520

// DefaultNotifyTimeout bounds the post-commit notification step.
const DefaultNotifyTimeout = 10 * time.Second

// BookingConfig holds the settings of the public booking flow.
type BookingConfig struct {
	Zone *clock.Zone
	// OperatorAddress receives a copy of every booking; empty disables it.
	OperatorAddress string
	// MailFrom organises calendar invitations.
	MailFrom    string
	PhoneRegion string

	// NotifyTimeout caps how long SubmitBooking waits for notifications
	// after commit. Zero means DefaultNotifyTimeout.
	NotifyTimeout time.Duration
}

// BookingService lists free slots and reserves them for households.
type BookingService struct {
	store       persistence.Store
	notifier    Notifier
	validator   *Validator
	zone        *clock.Zone
	operator    string
	mailFrom    string
	notifyWait  time.Duration
	cache       *slotCache
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewBookingService constructs a booking service with the provided dependencies.
func NewBookingService(store persistence.Store, notifier Notifier, cfg BookingConfig, idGenerator func() string, now func() time.Time) *BookingService {
	return NewBookingServiceWithLogger(store, notifier, cfg, idGenerator, now, nil)
}

// NewBookingServiceWithLogger constructs a booking service with a specified logger.
func NewBookingServiceWithLogger(store persistence.Store, notifier Notifier, cfg BookingConfig, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if cfg.Zone == nil {
		cfg.Zone = clock.NewZone(time.UTC)
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = DefaultNotifyTimeout
	}
	return &BookingService{
		store:       store,
		notifier:    notifier,
		validator:   NewValidator(cfg.PhoneRegion),
		zone:        cfg.Zone,
		operator:    strings.TrimSpace(cfg.OperatorAddress),
		mailFrom:    cfg.MailFrom,
		notifyWait:  cfg.NotifyTimeout,
		cache:       newSlotCache(30*time.Second, 16, now),
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// ListUpcomingFreeSlots returns unreserved slots starting after now and before
// now plus windowWeeks, ascending by start.
func (s *BookingService) ListUpcomingFreeSlots(ctx context.Context, windowWeeks int) (slots []Slot, err error) {
	if s == nil {
		return nil, fmt.Errorf("BookingService is nil")
	}
	if windowWeeks <= 0 || windowWeeks > MaxWindowWeeks {
		vErr := &ValidationError{}
		vErr.add("weeks", fmt.Sprintf("must be between 1 and %d", MaxWindowWeeks))
		return nil, vErr
	}

	if cached, ok := s.cache.Get(windowWeeks); ok {
		return cached, nil
	}

	now := s.now()
	meetings, err := s.store.Repositories().Meetings.FindFree(ctx, now, now.AddDate(0, 0, 7*windowWeeks))
	if err != nil {
		s.loggerWith(ctx, "ListUpcomingFreeSlots").ErrorContext(ctx, "failed to list free slots", "error", err)
		return nil, mapStoreError(err)
	}
	slots = toSlots(meetings)
	s.cache.Store(windowWeeks, slots)
	return slots, nil
}

// ListUpcomingDates groups upcoming free slots by their local calendar date.
func (s *BookingService) ListUpcomingDates(ctx context.Context, windowWeeks int) ([]DateOption, error) {
	slots, err := s.ListUpcomingFreeSlots(ctx, windowWeeks)
	if err != nil {
		return nil, err
	}

	var dates []DateOption
	for _, slot := range slots {
		date := s.zone.LocalDate(slot.Start)
		if n := len(dates); n > 0 && dates[n-1].Date == date {
			dates[n-1].Slots = append(dates[n-1].Slots, slot)
			continue
		}
		dates = append(dates, DateOption{
			Date:  date,
			Label: s.zone.In(slot.Start).Format(DateLabelLayout),
			Slots: []Slot{slot},
		})
	}
	return dates, nil
}

// SubmitBooking validates the form and, in one transaction, re-checks the
// slot, stores the household and person and reserves the slot. Notifications
// are sent after commit and never affect the result.
func (s *BookingService) SubmitBooking(ctx context.Context, input BookingInput) (booked BookedSlot, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	input = normalizeBookingInput(input)
	logger := s.loggerWith(ctx, "SubmitBooking", "slot_id", input.SlotID)
	defer func() {
		if err != nil {
			level := slog.LevelWarn
			if ErrorKind(err) == "unexpected" {
				level = slog.LevelError
			}
			logger.Log(ctx, level, "booking failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"household_id", booked.Household.ID,
			"person_id", booked.Person.ID,
		).InfoContext(ctx, "booking confirmed")
	}()

	if vErr := s.validator.Struct(input); vErr != nil {
		err = vErr
		return
	}
	phone, _ := s.validator.NormalizePhone(input.Person.PhoneNumber)

	now := s.now()
	household := persistence.Household{
		ID:        s.idGenerator(),
		Address:   input.Household.Address,
		Notes:     input.Household.Notes,
		CreatedAt: now,
	}
	person := persistence.Person{
		ID:          s.idGenerator(),
		HouseholdID: household.ID,
		FirstName:   input.Person.FirstName,
		LastName:    input.Person.LastName,
		Email:       input.Person.Email,
		PhoneNumber: phone,
		Notes:       input.Person.Notes,
		CreatedAt:   now,
	}

	var meeting persistence.Meeting
	err = s.store.WithTx(ctx, func(ctx context.Context, tx persistence.Repositories) error {
		var txErr error
		meeting, txErr = tx.Meetings.GetMeeting(ctx, input.SlotID)
		if errors.Is(txErr, persistence.ErrNotFound) {
			return ErrSlotNotFound
		}
		if txErr != nil {
			return txErr
		}
		if meeting.Reserved() {
			return ErrAlreadyReserved
		}
		if !meeting.Start.After(now) {
			return fmt.Errorf("%w: slot started at %s", ErrSlotNotFound, meeting.Start.Format(time.RFC3339))
		}

		if txErr = tx.Households.CreateHousehold(ctx, household); txErr != nil {
			return txErr
		}
		if txErr = tx.People.CreatePerson(ctx, person); txErr != nil {
			return txErr
		}
		txErr = tx.Meetings.ReserveMeeting(ctx, meeting.ID, household.ID, now)
		if errors.Is(txErr, persistence.ErrNotFound) {
			return ErrSlotNotFound
		}
		return txErr
	})
	if err != nil {
		err = mapStoreError(err)
		return
	}
	s.cache.Invalidate()

	meeting.ReservedAt = &now
	meeting.HouseholdID = &household.ID
	booked = BookedSlot{
		Slot:      toSlot(meeting),
		Household: Household(household),
		Person:    Person(person),
	}

	s.sendConfirmation(ctx, logger, booked)
	return booked, nil
}

func normalizeBookingInput(input BookingInput) BookingInput {
	input.SlotID = strings.TrimSpace(input.SlotID)
	input.Household.Address = strings.TrimSpace(input.Household.Address)
	input.Household.Notes = strings.TrimSpace(input.Household.Notes)
	input.Person.FirstName = strings.TrimSpace(input.Person.FirstName)
	input.Person.LastName = strings.TrimSpace(input.Person.LastName)
	input.Person.Email = strings.ToLower(strings.TrimSpace(input.Person.Email))
	input.Person.PhoneNumber = strings.TrimSpace(input.Person.PhoneNumber)
	input.Person.Notes = strings.TrimSpace(input.Person.Notes)
	return input
}

func (s *BookingService) sendConfirmation(ctx context.Context, logger *slog.Logger, booked BookedSlot) {
	if s.notifier == nil {
		return
	}

	view := bookingView{BookedSlot: booked, Start: s.zone.In(booked.Slot.Start), End: s.zone.In(booked.Slot.End)}
	metadata := map[string]string{
		"meeting_id":   booked.Slot.ID,
		"household_id": booked.Household.ID,
		"person_id":    booked.Person.ID,
		"start":        booked.Slot.Start.UTC().Format(time.RFC3339),
	}

	body, err := renderMessage("booking_confirmation", view)
	if err != nil {
		logger.ErrorContext(ctx, "failed to render confirmation", "error", err)
		return
	}
	invite := calendar.Invite(calendar.Event{
		ID:       booked.Slot.ID,
		Summary:  booked.Slot.Name,
		Location: booked.Household.Address,
		Start:    booked.Slot.Start,
		End:      booked.Slot.End,
		Attendee: booked.Person.Email,
		Reserved: true,
	}, s.mailFrom, s.now())

	messages := []notify.Message{{
		Kind:    notify.KindBookingConfirmed,
		To:      []string{booked.Person.Email},
		Subject: "Your home visit on " + view.Start.Format(DateLabelLayout),
		Body:    body,
		Attachments: []notify.Attachment{{
			Filename:    "invite.ics",
			ContentType: calendar.InviteContentType,
			Content:     invite,
		}},
		Metadata: metadata,
	}}

	if s.operator != "" {
		copyBody, err := renderMessage("booking_copy", view)
		if err != nil {
			logger.ErrorContext(ctx, "failed to render operator copy", "error", err)
		} else {
			messages = append(messages, notify.Message{
				Kind:     notify.KindBookingCopy,
				To:       []string{s.operator},
				Subject:  "New booking: " + booked.Person.FullName(),
				Body:     copyBody,
				Metadata: metadata,
			})
		}
	}

	ctx, cancel := notifyContext(ctx, s.notifyWait)
	defer cancel()
	for _, msg := range messages {
		if err := s.notifier.Notify(ctx, msg); err != nil {
			logger.WarnContext(ctx, "notification failed", "kind", msg.Kind, "error", err)
		}
	}
}

// notifyContext detaches delivery from the caller's cancellation and bounds
// it by timeout.
func notifyContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

// InvalidateSlots drops cached slot listings.
func (s *BookingService) InvalidateSlots() {
	s.cache.Invalidate()
}
