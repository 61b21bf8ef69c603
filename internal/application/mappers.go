package application

import (
	"errors"
	"fmt"

	"github.com/example/homevisit/internal/persistence"
)

func toSlot(m persistence.Meeting) Slot {
	return Slot{
		ID:          m.ID,
		Name:        m.Name,
		Start:       m.Start,
		End:         m.End,
		ReservedAt:  m.ReservedAt,
		HouseholdID: m.HouseholdID,
	}
}

func toSlots(meetings []persistence.Meeting) []Slot {
	if len(meetings) == 0 {
		return nil
	}
	out := make([]Slot, len(meetings))
	for i, m := range meetings {
		out[i] = toSlot(m)
	}
	return out
}

// mapStoreError translates persistence sentinels into application errors,
// keeping the original in the chain.
func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrAlreadyReserved):
		return fmt.Errorf("%w: %w", ErrAlreadyReserved, err)
	case errors.Is(err, persistence.ErrOverlap):
		return fmt.Errorf("%w: %w", ErrOverlap, err)
	case errors.Is(err, persistence.ErrReservedSlot):
		return fmt.Errorf("%w: %w", ErrReservedSlotCancel, err)
	case errors.Is(err, persistence.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	default:
		return err
	}
}
