package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/homevisit/internal/application"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

var (
	errBadRequestBody = errors.New("request body is not valid JSON")
	errBodyTooLarge   = errors.New("request body is too large")
	errMissingToken   = errors.New("a bearer token is required")
	errInvalidWeeks   = errors.New("weeks must be an integer")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// decodeBody reads at most maxBodyBytes of JSON into dst. On failure it
// writes the error response and returns false.
func (r responder) decodeBody(w http.ResponseWriter, req *http.Request, dst any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes)).Decode(dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		r.writeError(req.Context(), w, http.StatusRequestEntityTooLarge, errBodyTooLarge)
		return false
	}
	r.writeError(req.Context(), w, http.StatusBadRequest, errBadRequestBody)
	return false
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) writeValidation(ctx context.Context, w http.ResponseWriter, vErr *application.ValidationError) {
	r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
		ErrorCode: "VALIDATION_FAILED",
		Message:   "the request contains invalid fields",
		Errors:    vErr.FieldErrors,
	})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		r.writeValidation(ctx, w, vErr)
		return
	}

	for _, m := range serviceErrorMappings {
		if errors.Is(err, m.target) {
			r.writeJSON(ctx, w, m.status, errorResponse{ErrorCode: m.code, Message: m.message})
			return
		}
	}

	r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
	r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "internal server error"})
}

var serviceErrorMappings = []struct {
	target  error
	status  int
	code    string
	message string
}{
	{application.ErrSlotNotFound, http.StatusNotFound, "SLOT_NOT_FOUND", "the selected time is no longer offered"},
	{application.ErrAlreadyReserved, http.StatusConflict, "SLOT_ALREADY_RESERVED", "the selected time has just been booked by someone else"},
	{application.ErrOverlap, http.StatusConflict, "SLOT_OVERLAP", "the slot overlaps an existing slot"},
	{application.ErrReservedSlotCancel, http.StatusConflict, "RESERVED_SLOT_CANCEL", "the date holds a reservation and was left unchanged"},
	{application.ErrInvalidCredentials, http.StatusUnauthorized, "AUTH_INVALID_CREDENTIALS", "the password is not correct"},
	{application.ErrUnauthorized, http.StatusForbidden, "AUTH_FORBIDDEN", "you are not allowed to perform this operation"},
	{application.ErrNotFound, http.StatusNotFound, "NOT_FOUND", "the requested resource was not found"},
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
