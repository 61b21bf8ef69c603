package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/homevisit/internal/application"
	"github.com/example/homevisit/internal/calendar"
	"github.com/example/homevisit/internal/clock"
	"github.com/example/homevisit/internal/recurrence"
)

// defaultFeedDays is the span exported when a feed request gives no end date.
const defaultFeedDays = 90

type adminAuthService interface {
	Authenticate(ctx context.Context, password string) (application.AdminToken, error)
}

type meetingService interface {
	CreateMeeting(ctx context.Context, input application.MeetingInput) (application.Slot, error)
	RunRecurrenceBatch(ctx context.Context, rule recurrence.Rule) (application.BatchResult, error)
	CancelDate(ctx context.Context, date clock.Date) (int, error)
	ExportCalendar(ctx context.Context, from, to time.Time) ([]byte, error)
	Zone() *clock.Zone
}

// AdminHandler serves the operator endpoints.
type AdminHandler struct {
	auth            adminAuthService
	meetings        meetingService
	defaultDuration int
	now             func() time.Time
	responder       responder
	logger          *slog.Logger
}

// NewAdminHandler constructs an AdminHandler. defaultDuration applies to
// batch rules without a duration.
func NewAdminHandler(auth adminAuthService, meetings meetingService, defaultDuration int, now func() time.Time, logger *slog.Logger) *AdminHandler {
	if now == nil {
		now = time.Now
	}
	base := defaultLogger(logger)
	return &AdminHandler{
		auth:            auth,
		meetings:        meetings,
		defaultDuration: defaultDuration,
		now:             now,
		responder:       newResponder(base),
		logger:          base,
	}
}

func (h *AdminHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "AdminHandler", operation, attrs...)
}

// CreateSession handles POST /admin/sessions.
func (h *AdminHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.auth == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req loginRequest
	if !h.responder.decodeBody(w, r, &req) {
		return
	}

	token, err := h.auth.Authenticate(r.Context(), req.Password)
	if err != nil {
		h.log(r.Context(), "CreateSession").WarnContext(r.Context(), "admin login rejected", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, loginResponse{
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// CreateMeeting handles POST /admin/meetings.
func (h *AdminHandler) CreateMeeting(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.meetings == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req meetingRequest
	if !h.responder.decodeBody(w, r, &req) {
		return
	}

	slot, err := h.meetings.CreateMeeting(r.Context(), application.MeetingInput{
		Name:  req.Name,
		Start: req.Start,
		End:   req.End,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toSlotDTO(slot))
}

// RunBatch handles POST /admin/meetings/batches.
func (h *AdminHandler) RunBatch(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.meetings == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var spec recurrence.RuleSpec
	if !h.responder.decodeBody(w, r, &spec) {
		return
	}

	rule, err := spec.Rule(h.defaultDuration)
	if err != nil {
		vErr := &application.ValidationError{FieldErrors: map[string]string{"rule": err.Error()}}
		h.responder.writeValidation(r.Context(), w, vErr)
		return
	}

	result, err := h.meetings.RunRecurrenceBatch(r.Context(), rule)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, batchResponse{
		Inserted: result.Inserted,
		Skipped:  result.Skipped,
	})
}

// CancelDate handles DELETE /admin/meetings/dates/{date}.
func (h *AdminHandler) CancelDate(w http.ResponseWriter, r *http.Request, rawDate string) {
	if h == nil || h.meetings == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	date, err := clock.ParseDate(rawDate)
	if err != nil {
		h.responder.writeValidation(r.Context(), w, &application.ValidationError{
			FieldErrors: map[string]string{"date": "must be YYYY-MM-DD"},
		})
		return
	}

	cancelled, err := h.meetings.CancelDate(r.Context(), date)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, cancelResponse{Date: date.String(), Cancelled: cancelled})
}

// Calendar handles GET /admin/calendar.ics. from and to are inclusive local
// dates; from defaults to today and to to from plus defaultFeedDays.
func (h *AdminHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.meetings == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	zone := h.meetings.Zone()
	query := r.URL.Query()
	vErr := &application.ValidationError{FieldErrors: map[string]string{}}

	fromDate := zone.LocalDate(h.now())
	if raw := strings.TrimSpace(query.Get("from")); raw != "" {
		d, err := clock.ParseDate(raw)
		if err != nil {
			vErr.FieldErrors["from"] = "must be YYYY-MM-DD"
		}
		fromDate = d
	}
	toDate := fromDate.AddDays(defaultFeedDays)
	if raw := strings.TrimSpace(query.Get("to")); raw != "" {
		d, err := clock.ParseDate(raw)
		if err != nil {
			vErr.FieldErrors["to"] = "must be YYYY-MM-DD"
		}
		toDate = d
	}
	if vErr.HasErrors() {
		h.responder.writeValidation(r.Context(), w, vErr)
		return
	}

	from, _ := zone.DayRange(fromDate)
	_, to := zone.DayRange(toDate)
	feed, err := h.meetings.ExportCalendar(r.Context(), from, to)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	w.Header().Set("Content-Type", calendar.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="homevisit.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(feed); err != nil {
		h.log(r.Context(), "Calendar").ErrorContext(r.Context(), "failed to write feed", "error", err)
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

type meetingRequest struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type batchResponse struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

type cancelResponse struct {
	Date      string `json:"date"`
	Cancelled int    `json:"cancelled"`
}
