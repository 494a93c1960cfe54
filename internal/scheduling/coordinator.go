package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/provider-slot-scheduling/internal/validation"
)

type ReservationStatus string

const (
	Reserved          ReservationStatus = "reserved"
	Unavailable       ReservationStatus = "unavailable"
	ReservationFailed ReservationStatus = "failed"
)

// Reservation is the outcome of Reserve. Unavailable is a normal answer
// (no slot, blocked, or full); Failed carries the error that prevented an
// answer.
type Reservation struct {
	Status ReservationStatus
	Slot   *Slot
	Reason string
	Err    error
}

func (r Reservation) OK() bool {
	return r.Status == Reserved && r.Slot != nil
}

type ReserveRequest struct {
	ProviderID uuid.UUID
	At         time.Time
	FacilityID *uuid.UUID
	// AppointmentID is left out of the live count so an appointment never
	// competes with itself. uuid.Nil for booking-only reservations.
	AppointmentID uuid.UUID
}

// Reserve charges one booking to the slot covering req.At. The capacity
// check and the increment run under the slot's row lock, so two callers
// racing for the last seat cannot both win.
func (s *Service) Reserve(ctx context.Context, req ReserveRequest) Reservation {
	if req.ProviderID == uuid.Nil {
		return failed(validation.Errorf("provider_id", "is required"))
	}
	if req.At.IsZero() {
		return failed(validation.Errorf("at", "is required"))
	}

	slot, err := s.findCovering(ctx, req)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return unavailable("no slot covers the requested time")
		}
		return failed(err)
	}

	reserved, err := s.store.UpdateOccupancy(ctx, slot.ID, req.AppointmentID, func(sl *Slot, live int) error {
		if sl.IsBlocked {
			return ErrSlotBlocked
		}
		if Reconcile(*sl, live) >= sl.MaxBookings {
			return ErrSlotFull
		}
		// Only this reservation is charged; live rows stay out of the counter
		// so a later release can return it to where it was.
		sl.SetBookedCount(sl.BookedCount + 1)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSlotFull) || errors.Is(err, ErrSlotBlocked) || errors.Is(err, ErrSlotNotFound) {
			return unavailable(err.Error())
		}
		return failed(fmt.Errorf("reserve slot %s: %w", slot.ID, err))
	}

	s.log.Debug().
		Str("slot_id", reserved.ID.String()).
		Str("provider_id", reserved.ProviderID.String()).
		Int("booked", reserved.BookedCount).
		Int("max", reserved.MaxBookings).
		Msg("slot reserved")

	return Reservation{Status: Reserved, Slot: reserved}
}

func (s *Service) findCovering(ctx context.Context, req ReserveRequest) (*Slot, error) {
	slot, err := s.store.FindSlotCovering(ctx, req.ProviderID, req.At)
	if err == nil {
		return slot, nil
	}
	if !errors.Is(err, ErrSlotNotFound) {
		return nil, fmt.Errorf("find slot: %w", err)
	}

	if _, err := s.MaterializeForDate(ctx, req.ProviderID, req.At, req.FacilityID); err != nil {
		return nil, err
	}

	slot, err = s.store.FindSlotCovering(ctx, req.ProviderID, req.At)
	if err != nil && !errors.Is(err, ErrSlotNotFound) {
		return nil, fmt.Errorf("find slot: %w", err)
	}
	return slot, err
}

// Release gives back one booking on the slot starting exactly at at.
// Unknown slots and empty slots are left alone, so repeated calls are safe.
func (s *Service) Release(ctx context.Context, providerID uuid.UUID, at time.Time) error {
	if providerID == uuid.Nil {
		return validation.Errorf("provider_id", "is required")
	}
	if at.IsZero() {
		return validation.Errorf("at", "is required")
	}

	slot, err := s.store.FindSlotStartingAt(ctx, providerID, at)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return nil
		}
		return fmt.Errorf("find slot: %w", err)
	}
	return s.ReleaseSlot(ctx, slot.ID)
}

// ReleaseSlot is Release addressed by slot ID.
func (s *Service) ReleaseSlot(ctx context.Context, slotID uuid.UUID) error {
	released, err := s.store.UpdateOccupancy(ctx, slotID, uuid.Nil, func(sl *Slot, _ int) error {
		sl.SetBookedCount(sl.BookedCount - 1)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return nil
		}
		return fmt.Errorf("release slot %s: %w", slotID, err)
	}

	s.log.Debug().
		Str("slot_id", released.ID.String()).
		Int("booked", released.BookedCount).
		Msg("slot released")
	return nil
}

func unavailable(reason string) Reservation {
	return Reservation{Status: Unavailable, Reason: reason}
}

func failed(err error) Reservation {
	return Reservation{Status: ReservationFailed, Reason: err.Error(), Err: err}
}
