package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/homevisit/internal/application"
)

type bookingService interface {
	ListUpcomingFreeSlots(ctx context.Context, windowWeeks int) ([]application.Slot, error)
	ListUpcomingDates(ctx context.Context, windowWeeks int) ([]application.DateOption, error)
	SubmitBooking(ctx context.Context, input application.BookingInput) (application.BookedSlot, error)
}

// BookingHandler serves the public booking flow.
type BookingHandler struct {
	service      bookingService
	defaultWeeks int
	responder    responder
	logger       *slog.Logger
}

// NewBookingHandler constructs a BookingHandler. defaultWeeks is used when a
// listing request carries no weeks parameter.
func NewBookingHandler(service bookingService, defaultWeeks int, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, defaultWeeks: defaultWeeks, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) weeks(r *http.Request) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("weeks"))
	if raw == "" {
		return h.defaultWeeks, true
	}
	weeks, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return weeks, true
}

// ListSlots handles GET /slots.
func (h *BookingHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	weeks, ok := h.weeks(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidWeeks)
		return
	}

	slots, err := h.service.ListUpcomingFreeSlots(r.Context(), weeks)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, slotListResponse{Slots: toSlotDTOs(slots)})
}

// ListDates handles GET /slots/dates.
func (h *BookingHandler) ListDates(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	weeks, ok := h.weeks(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidWeeks)
		return
	}

	dates, err := h.service.ListUpcomingDates(r.Context(), weeks)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := dateListResponse{Dates: make([]dateDTO, 0, len(dates))}
	for _, d := range dates {
		resp.Dates = append(resp.Dates, dateDTO{
			Date:  d.Date.String(),
			Label: d.Label,
			Slots: toSlotDTOs(d.Slots),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// Submit handles POST /bookings.
func (h *BookingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req bookingRequest
	if !h.responder.decodeBody(w, r, &req) {
		return
	}

	booked, err := h.service.SubmitBooking(r.Context(), req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, bookingResponse{
		Slot:        toSlotDTO(booked.Slot),
		HouseholdID: booked.Household.ID,
		PersonID:    booked.Person.ID,
	})
}

type bookingRequest struct {
	SlotID    string `json:"slot_id"`
	Household struct {
		Address string `json:"address"`
		Notes   string `json:"notes"`
	} `json:"household"`
	Person struct {
		FirstName   string `json:"first_name"`
		LastName    string `json:"last_name"`
		Email       string `json:"email"`
		PhoneNumber string `json:"phone_number"`
		Notes       string `json:"notes"`
	} `json:"person"`
}

func (r bookingRequest) toInput() application.BookingInput {
	return application.BookingInput{
		SlotID: r.SlotID,
		Household: application.HouseholdInput{
			Address: r.Household.Address,
			Notes:   r.Household.Notes,
		},
		Person: application.PersonInput{
			FirstName:   r.Person.FirstName,
			LastName:    r.Person.LastName,
			Email:       r.Person.Email,
			PhoneNumber: r.Person.PhoneNumber,
			Notes:       r.Person.Notes,
		},
	}
}

type slotDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Reserved bool   `json:"reserved"`
}

func toSlotDTO(slot application.Slot) slotDTO {
	return slotDTO{
		ID:       slot.ID,
		Name:     slot.Name,
		Start:    slot.Start.UTC().Format(time.RFC3339),
		End:      slot.End.UTC().Format(time.RFC3339),
		Reserved: slot.Reserved(),
	}
}

func toSlotDTOs(slots []application.Slot) []slotDTO {
	out := make([]slotDTO, 0, len(slots))
	for _, slot := range slots {
		out = append(out, toSlotDTO(slot))
	}
	return out
}

type slotListResponse struct {
	Slots []slotDTO `json:"slots"`
}

type dateDTO struct {
	Date  string    `json:"date"`
	Label string    `json:"label"`
	Slots []slotDTO `json:"slots"`
}

type dateListResponse struct {
	Dates []dateDTO `json:"dates"`
}

type bookingResponse struct {
	Slot        slotDTO `json:"slot"`
	HouseholdID string  `json:"household_id"`
	PersonID    string  `json:"person_id"`
}
