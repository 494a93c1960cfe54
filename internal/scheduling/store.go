package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTemplateNotFound = errors.New("availability template not found")
	ErrSlotNotFound     = errors.New("slot not found")
	ErrSlotFull         = errors.New("slot is fully booked")
	ErrSlotBlocked      = errors.New("slot is blocked")
)

// OccupancyFunc mutates a locked slot. live is the number of pending or
// confirmed appointments inside the slot window, excluding the appointment
// the caller is acting for. Returning an error aborts the update.
type OccupancyFunc func(slot *Slot, live int) error

// Store contains all persistence needed by the scheduling service.
type Store interface {
	// Templates
	UpsertTemplate(ctx context.Context, t Template) (*Template, error)
	ListTemplates(ctx context.Context, providerID *uuid.UUID) ([]Template, error)
	DeleteTemplate(ctx context.Context, id uuid.UUID) error
	FindActiveTemplate(ctx context.Context, providerID uuid.UUID, day time.Weekday) (*Template, error)

	// EnsureSlots inserts the slots whose (provider, start) is not taken yet
	// and returns the stored row for every input, in input order.
	EnsureSlots(ctx context.Context, slots []Slot) ([]Slot, error)
	GetSlot(ctx context.Context, id uuid.UUID) (*Slot, error)
	ListSlots(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Slot, error)
	FindSlotCovering(ctx context.Context, providerID uuid.UUID, at time.Time) (*Slot, error)
	FindSlotStartingAt(ctx context.Context, providerID uuid.UUID, at time.Time) (*Slot, error)
	SetSlotBlocked(ctx context.Context, id uuid.UUID, blocked bool) (*Slot, error)

	// UpdateOccupancy locks the slot, counts live appointments in its window
	// and persists whatever fn leaves in the slot, all as one atomic step.
	UpdateOccupancy(ctx context.Context, id uuid.UUID, exclude uuid.UUID, fn OccupancyFunc) (*Slot, error)

	// Ground truth for occupancy
	ListLiveAppointmentTimes(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]time.Time, error)
}

// Locker serializes work on a key across processes.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}
