package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/homevisit/internal/calendar"
	"github.com/example/homevisit/internal/clock"
	"github.com/example/homevisit/internal/persistence"
	"github.com/example/homevisit/internal/testfixtures"
)

type apiHarness struct {
	handler  http.Handler
	services testfixtures.Services
	store    persistence.Store
	factory  *testfixtures.ServiceFactory
}

func newAPIHarness(t *testing.T, now time.Time) *apiHarness {
	t.Helper()
	zone, err := clock.LoadZone("America/Los_Angeles")
	if err != nil {
		t.Fatalf("LoadZone failed: %v", err)
	}
	factory := testfixtures.NewServiceFactory(
		testfixtures.WithClock(testfixtures.NewClock(now)),
		testfixtures.WithZone(zone),
	)
	store := testfixtures.NewMemoryHarness(t).Store
	services := factory.NewServices(t, store, testfixtures.ServicesDeps{})
	logger := testfixtures.DiscardLogger()

	handler := NewRouter(RouterConfig{
		Booking:      NewBookingHandler(services.Booking, 12, logger),
		Help:         NewHelpHandler(services.Faqs, services.Feedback, logger),
		Admin:        NewAdminHandler(services.Admin, services.Meetings, 60, factory.Clock.NowFunc(), logger),
		Health:       NewHealthHandler(store, logger),
		RequireAdmin: RequireAdmin(services.Admin, logger),
		Middleware:   []func(http.Handler) http.Handler{RequestLogger(logger)},
	})
	return &apiHarness{handler: handler, services: services, store: store, factory: factory}
}

func (h *apiHarness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *apiHarness) login(t *testing.T) string {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/admin/sessions", "", map[string]string{"password": testfixtures.AdminPassword})
	if rec.Code != http.StatusCreated {
		t.Fatalf("login returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp loginResponse
	decode(t, rec, &resp)
	return resp.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
}

func bookingBody(slotID string) map[string]any {
	return map[string]any{
		"slot_id":   slotID,
		"household": map[string]any{"address": "1 Main Street"},
		"person": map[string]any{
			"first_name": "Pat",
			"email":      "pat@example.com",
		},
	}
}

func TestBookingFlow(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.May, 1, 16, 0, 0, 0, time.UTC)
	h := newAPIHarness(t, now)
	token := h.login(t)

	start := now.Add(48 * time.Hour)
	rec := h.do(t, http.MethodPost, "/admin/meetings", token, map[string]any{
		"name":  "Home visit",
		"start": start.Format(time.RFC3339),
		"end":   start.Add(time.Hour).Format(time.RFC3339),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create meeting returned %d: %s", rec.Code, rec.Body.String())
	}
	var created slotDTO
	decode(t, rec, &created)

	rec = h.do(t, http.MethodGet, "/slots", "", nil)
	var listed slotListResponse
	decode(t, rec, &listed)
	if len(listed.Slots) != 1 || listed.Slots[0].ID != created.ID || listed.Slots[0].Reserved {
		t.Fatalf("unexpected listing %+v", listed)
	}

	rec = h.do(t, http.MethodGet, "/slots/dates?weeks=1", "", nil)
	var dates dateListResponse
	decode(t, rec, &dates)
	if len(dates.Dates) != 1 || dates.Dates[0].Date != "2024-05-03" || dates.Dates[0].Label != "Friday, May 3 2024" {
		t.Fatalf("unexpected dates %+v", dates)
	}

	rec = h.do(t, http.MethodPost, "/bookings", "", bookingBody(created.ID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("booking returned %d: %s", rec.Code, rec.Body.String())
	}
	var booked bookingResponse
	decode(t, rec, &booked)
	if !booked.Slot.Reserved || booked.HouseholdID == "" || booked.PersonID == "" {
		t.Fatalf("unexpected booking response %+v", booked)
	}

	rec = h.do(t, http.MethodPost, "/bookings", "", bookingBody(created.ID))
	if rec.Code != http.StatusConflict {
		t.Fatalf("second booking returned %d", rec.Code)
	}
	var conflict errorResponse
	decode(t, rec, &conflict)
	if conflict.ErrorCode != "SLOT_ALREADY_RESERVED" {
		t.Fatalf("unexpected error code %q", conflict.ErrorCode)
	}

	rec = h.do(t, http.MethodGet, "/slots", "", nil)
	listed = slotListResponse{}
	decode(t, rec, &listed)
	if len(listed.Slots) != 0 {
		t.Fatalf("booked slot still listed: %+v", listed)
	}
}

func TestBookingErrors(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t, time.Date(2024, time.May, 1, 16, 0, 0, 0, time.UTC))

	tests := []struct {
		name   string
		body   any
		status int
		check  func(t *testing.T, resp errorResponse)
	}{
		{
			name:   "malformed body",
			body:   "{not json",
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown slot",
			body:   bookingBody("missing"),
			status: http.StatusNotFound,
			check: func(t *testing.T, resp errorResponse) {
				if resp.ErrorCode != "SLOT_NOT_FOUND" {
					t.Fatalf("unexpected error code %q", resp.ErrorCode)
				}
			},
		},
		{
			name: "invalid fields",
			body: map[string]any{
				"slot_id":   "missing",
				"household": map[string]any{"address": ""},
				"person":    map[string]any{"first_name": "Pat", "email": "nope"},
			},
			status: http.StatusUnprocessableEntity,
			check: func(t *testing.T, resp errorResponse) {
				if _, ok := resp.Errors["person.email"]; !ok {
					t.Fatalf("expected person.email error, got %v", resp.Errors)
				}
				if _, ok := resp.Errors["household.address"]; !ok {
					t.Fatalf("expected household.address error, got %v", resp.Errors)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := h.do(t, http.MethodPost, "/bookings", "", tc.body)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			if tc.check != nil {
				var resp errorResponse
				decode(t, rec, &resp)
				tc.check(t, resp)
			}
		})
	}

	if rec := h.do(t, http.MethodGet, "/slots?weeks=abc", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric weeks, got %d", rec.Code)
	}
	if rec := h.do(t, http.MethodGet, "/slots?weeks=0", "", nil); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for zero weeks, got %d", rec.Code)
	}
	if rec := h.do(t, http.MethodGet, "/slots?weeks=16000", "", nil); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for an oversized window, got %d", rec.Code)
	}

	oversized := `{"slot_id":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	for _, path := range []string{"/bookings", "/feedback", "/admin/sessions"} {
		rec := h.do(t, http.MethodPost, path, "", oversized)
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("%s: expected 413 for an oversized body, got %d", path, rec.Code)
		}
	}
	if rec := h.do(t, http.MethodGet, "/bookings", "", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestAdminRoutes(t *testing.T) {
	t.Parallel()

	t.Run("require a valid token", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t, time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC))

		if rec := h.do(t, http.MethodPost, "/admin/meetings/batches", "", map[string]any{}); rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 without token, got %d", rec.Code)
		}
		if rec := h.do(t, http.MethodGet, "/admin/calendar.ics", "garbage", nil); rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for bad token, got %d", rec.Code)
		}
		rec := h.do(t, http.MethodPost, "/admin/sessions", "", map[string]string{"password": "wrong"})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for wrong password, got %d", rec.Code)
		}
	})

	t.Run("batch, cancel and export", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t, time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC))
		token := h.login(t)

		rule := map[string]any{
			"name":        "winter",
			"begin_date":  "2019-01-29",
			"end_date":    "2019-03-19",
			"weekdays":    []string{"WED"},
			"start_times": []string{"19:00"},
		}
		rec := h.do(t, http.MethodPost, "/admin/meetings/batches", token, rule)
		if rec.Code != http.StatusOK {
			t.Fatalf("batch returned %d: %s", rec.Code, rec.Body.String())
		}
		var batch batchResponse
		decode(t, rec, &batch)
		if batch != (batchResponse{Inserted: 7}) {
			t.Fatalf("unexpected batch result %+v", batch)
		}

		rule["weekdays"] = []string{"WEDNESDAY"}
		if rec := h.do(t, http.MethodPost, "/admin/meetings/batches", token, rule); rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422 for unknown weekday, got %d", rec.Code)
		}

		rec = h.do(t, http.MethodDelete, "/admin/meetings/dates/2019-02-06", token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("cancel returned %d: %s", rec.Code, rec.Body.String())
		}
		var cancelled cancelResponse
		decode(t, rec, &cancelled)
		if cancelled != (cancelResponse{Date: "2019-02-06", Cancelled: 1}) {
			t.Fatalf("unexpected cancel result %+v", cancelled)
		}

		free, err := h.services.Booking.ListUpcomingFreeSlots(context.Background(), 12)
		if err != nil || len(free) != 6 {
			t.Fatalf("expected 6 remaining slots, got %d (%v)", len(free), err)
		}
		if err := reserve(h.store, free[0].ID); err != nil {
			t.Fatalf("reserve failed: %v", err)
		}

		rec = h.do(t, http.MethodDelete, "/admin/meetings/dates/2019-01-30", token, nil)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409 for reserved date, got %d", rec.Code)
		}
		if rec := h.do(t, http.MethodDelete, "/admin/meetings/dates/30-01-2019", token, nil); rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422 for malformed date, got %d", rec.Code)
		}

		rec = h.do(t, http.MethodGet, "/admin/calendar.ics?from=2019-01-01&to=2019-03-31", token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("calendar returned %d", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != calendar.ContentType {
			t.Fatalf("unexpected content type %q", ct)
		}
		if n := strings.Count(rec.Body.String(), "BEGIN:VEVENT"); n != 6 {
			t.Fatalf("expected 6 events, got %d", n)
		}
	})

	t.Run("single meetings reject overlap", func(t *testing.T) {
		t.Parallel()
		now := time.Date(2024, time.May, 1, 16, 0, 0, 0, time.UTC)
		h := newAPIHarness(t, now)
		token := h.login(t)

		start := now.Add(24 * time.Hour)
		body := map[string]any{"name": "visit", "start": start, "end": start.Add(time.Hour)}
		if rec := h.do(t, http.MethodPost, "/admin/meetings", token, body); rec.Code != http.StatusCreated {
			t.Fatalf("create returned %d", rec.Code)
		}
		body["start"] = start.Add(30 * time.Minute)
		rec := h.do(t, http.MethodPost, "/admin/meetings", token, body)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		var resp errorResponse
		decode(t, rec, &resp)
		if resp.ErrorCode != "SLOT_OVERLAP" {
			t.Fatalf("unexpected error code %q", resp.ErrorCode)
		}
	})
}

func reserve(store persistence.Store, slotID string) error {
	ctx := context.Background()
	return store.WithTx(ctx, func(ctx context.Context, tx persistence.Repositories) error {
		if err := tx.Households.CreateHousehold(ctx, persistence.Household{ID: "h-test", Address: "1 Main Street"}); err != nil {
			return err
		}
		return tx.Meetings.ReserveMeeting(ctx, slotID, "h-test", time.Now())
	})
}

func TestHelpRoutes(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t, time.Date(2024, time.May, 1, 16, 0, 0, 0, time.UTC))
	if _, err := h.services.Faqs.SeedFaqs(context.Background()); err != nil {
		t.Fatalf("SeedFaqs failed: %v", err)
	}

	rec := h.do(t, http.MethodGet, "/faqs", "", nil)
	var faqs faqListResponse
	decode(t, rec, &faqs)
	if len(faqs.Faqs) == 0 || faqs.Faqs[0].ShortName != "cancel" {
		t.Fatalf("unexpected faqs %+v", faqs)
	}

	rec = h.do(t, http.MethodPost, "/feedback", "", map[string]string{
		"name": "Pat", "email": "pat@example.com", "issue": "website", "comment": "Broken link",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("feedback returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = h.do(t, http.MethodPost, "/feedback", "", map[string]string{
		"name": "Pat", "email": "pat@example.com", "issue": "billing", "comment": "?",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unknown issue, got %d", rec.Code)
	}
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "healthy", status: http.StatusOK},
		{name: "database down", err: errors.New("connection refused"), status: http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			NewHealthHandler(stubPinger{err: tc.err}, testfixtures.DiscardLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
		})
	}
}
