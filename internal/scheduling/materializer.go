package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/provider-slot-scheduling/internal/validation"
)

// ExpandTemplate lays t out on date as consecutive slots of the template
// duration. A trailing remainder shorter than one slot is dropped. The
// returned slots carry no ID; they are candidates until stored.
func ExpandTemplate(t Template, date time.Time) []Slot {
	day := DateOf(date)
	step := t.SlotDuration()
	if day.Weekday() != t.DayOfWeek || step <= 0 {
		return nil
	}

	start := t.StartTime.On(day)
	end := t.EndTime.On(day)

	var slots []Slot
	for cur := start; !cur.Add(step).After(end); cur = cur.Add(step) {
		slots = append(slots, Slot{
			ProviderID:  t.ProviderID,
			Date:        day,
			StartTime:   cur,
			EndTime:     cur.Add(step),
			MaxBookings: t.MaxBookingsPerSlot,
			FacilityID:  t.FacilityID,
		})
	}
	return slots
}

// MaterializeForDate makes sure every slot of the provider's template for
// date exists and returns them ordered by start time. Calling it again for
// the same day returns the same slots: rows are keyed by (provider, start)
// and existing ones are reused. No active template means no slots.
// facilityID only applies to new slots of a template bound to no facility.
func (s *Service) MaterializeForDate(ctx context.Context, providerID uuid.UUID, date time.Time, facilityID *uuid.UUID) ([]Slot, error) {
	if providerID == uuid.Nil {
		return nil, validation.Errorf("provider_id", "is required")
	}
	if date.IsZero() {
		return nil, validation.Errorf("date", "is required")
	}

	day := DateOf(date)
	tmpl, err := s.store.FindActiveTemplate(ctx, providerID, day.Weekday())
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			return []Slot{}, nil
		}
		return nil, fmt.Errorf("load template: %w", err)
	}

	candidates := ExpandTemplate(*tmpl, day)
	if len(candidates) == 0 {
		return []Slot{}, nil
	}
	for i := range candidates {
		candidates[i].ID = uuid.New()
		if tmpl.FacilityID == nil && facilityID != nil {
			candidates[i].FacilityID = facilityID
		}
	}

	var slots []Slot
	ran := false
	ensure := func(ctx context.Context) error {
		ran = true
		var err error
		slots, err = s.store.EnsureSlots(ctx, candidates)
		return err
	}

	if s.locker == nil {
		err = ensure(ctx)
	} else {
		key := fmt.Sprintf("materialize:%s:%s", providerID, FormatDate(day))
		err = s.locker.WithLock(ctx, key, ensure)
		if err != nil && !ran {
			// The unique (provider, start) key keeps this correct without the lock.
			s.log.Debug().Err(err).Str("lock", key).Msg("materializing without day lock")
			err = ensure(ctx)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("materialize slots: %w", err)
	}

	return slots, nil
}
