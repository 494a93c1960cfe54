package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AvailableSlots returns the bookable slots of a provider on date: not
// blocked, not started yet, and with capacity left once the cached counter
// is reconciled against live appointments. Ordered by start time.
// facilityID filters; it never binds the slots it materializes.
func (s *Service) AvailableSlots(ctx context.Context, providerID uuid.UUID, date time.Time, facilityID *uuid.UUID) ([]Slot, error) {
	slots, err := s.MaterializeForDate(ctx, providerID, date, nil)
	if err != nil {
		return nil, err
	}
	if err := s.reconcileAll(ctx, providerID, slots); err != nil {
		return nil, err
	}

	now := s.now()
	available := make([]Slot, 0, len(slots))
	for _, slot := range slots {
		switch {
		case slot.IsBlocked:
		case slot.StartTime.Before(now):
		case slot.IsBooked:
		case !facilityMatches(slot, facilityID):
		default:
			available = append(available, slot)
		}
	}
	return available, nil
}

// DaySlots returns every stored slot of the provider's day, including
// blocked and full ones, with reconciled occupancy.
func (s *Service) DaySlots(ctx context.Context, providerID uuid.UUID, date time.Time) ([]Slot, error) {
	if _, err := s.MaterializeForDate(ctx, providerID, date, nil); err != nil {
		return nil, err
	}

	day := DateOf(date)
	slots, err := s.store.ListSlots(ctx, providerID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	if err := s.reconcileAll(ctx, providerID, slots); err != nil {
		return nil, err
	}
	return slots, nil
}

func (s *Service) reconcileAll(ctx context.Context, providerID uuid.UUID, slots []Slot) error {
	if len(slots) == 0 {
		return nil
	}

	from, to := slots[0].StartTime, slots[0].EndTime
	for _, slot := range slots[1:] {
		if slot.StartTime.Before(from) {
			from = slot.StartTime
		}
		if slot.EndTime.After(to) {
			to = slot.EndTime
		}
	}

	times, err := s.store.ListLiveAppointmentTimes(ctx, providerID, from, to)
	if err != nil {
		return fmt.Errorf("count live appointments: %w", err)
	}

	for i := range slots {
		live := 0
		for _, at := range times {
			if slots[i].Covers(at) {
				live++
			}
		}
		slots[i].SetBookedCount(Reconcile(slots[i], live))
	}
	return nil
}

func facilityMatches(slot Slot, facilityID *uuid.UUID) bool {
	if facilityID == nil || slot.FacilityID == nil {
		return true
	}
	return *slot.FacilityID == *facilityID
}

// BlockSlot marks a slot unavailable regardless of its occupancy.
func (s *Service) BlockSlot(ctx context.Context, id uuid.UUID) (*Slot, error) {
	return s.setBlocked(ctx, id, true)
}

// UnblockSlot reverses BlockSlot. Occupancy is untouched either way.
func (s *Service) UnblockSlot(ctx context.Context, id uuid.UUID) (*Slot, error) {
	return s.setBlocked(ctx, id, false)
}

func (s *Service) setBlocked(ctx context.Context, id uuid.UUID, blocked bool) (*Slot, error) {
	slot, err := s.store.SetSlotBlocked(ctx, id, blocked)
	if err != nil {
		return nil, fmt.Errorf("set slot blocked: %w", err)
	}
	s.log.Info().
		Str("slot_id", id.String()).
		Bool("blocked", blocked).
		Msg("slot block state changed")
	return slot, nil
}
