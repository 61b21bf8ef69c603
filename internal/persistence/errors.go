package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrOverlap is returned when a meeting interval collides with a stored one.
	ErrOverlap = errors.New("persistence: meeting overlaps an existing meeting")
	// ErrAlreadyReserved is returned when a reservation targets a booked meeting.
	ErrAlreadyReserved = errors.New("persistence: meeting already reserved")
	// ErrReservedSlot is returned when a cancellation range contains a booked meeting.
	ErrReservedSlot = errors.New("persistence: range contains a reserved meeting")
	// ErrDuplicate is returned when a unique key already exists.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a record violates a schema constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
)

// OverlapError identifies the stored meeting a rejected insert collided with.
type OverlapError struct {
	ConflictID string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("%s (conflicts with %s)", ErrOverlap.Error(), e.ConflictID)
}

// Is makes errors.Is(err, ErrOverlap) hold for *OverlapError.
func (e *OverlapError) Is(target error) bool {
	return target == ErrOverlap
}

// ReservedSlotError reports how many booked meetings blocked a cancellation.
type ReservedSlotError struct {
	Reserved int
}

func (e *ReservedSlotError) Error() string {
	return fmt.Sprintf("%s (%d reserved)", ErrReservedSlot.Error(), e.Reserved)
}

// Is makes errors.Is(err, ErrReservedSlot) hold for *ReservedSlotError.
func (e *ReservedSlotError) Is(target error) bool {
	return target == ErrReservedSlot
}
