package application

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrSlotNotFound is returned when a booking targets a slot that does not
	// exist or is no longer offered.
	ErrSlotNotFound = errors.New("application: slot not found")
	// ErrAlreadyReserved is returned when a booking loses the race for a slot.
	ErrAlreadyReserved = errors.New("application: slot already reserved")
	// ErrOverlap is returned when a new slot collides with a stored one.
	ErrOverlap = errors.New("application: slot overlaps an existing slot")
	// ErrReservedSlotCancel is returned when a cancelled date holds a booking.
	ErrReservedSlotCancel = errors.New("application: date contains a reserved slot")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrUnauthorized is returned when the caller lacks a valid admin token.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrInvalidCredentials is returned when the admin password does not match.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message per field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}
