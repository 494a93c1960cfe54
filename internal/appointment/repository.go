package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hackgods/provider-slot-scheduling/internal/scheduling"
)

var (
	ErrAppointmentNotFound     = errors.New("appointment not found")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointments(ctx context.Context, f ListFilter) ([]Appointment, error)

	// InTx runs fn in one transaction, committed when fn returns nil.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the transaction scoped view used by lifecycle transitions.
type Tx interface {
	// LockAppointment loads the appointment and holds its row until commit.
	LockAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	InsertAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	// UpdateAppointment persists a, provided the stored status is still from.
	UpdateAppointment(ctx context.Context, a Appointment, from AppointmentStatus) (*Appointment, error)
	InsertEvent(ctx context.Context, ev EventLog) error

	// Advisory runs fn against a slot store nested in the transaction. An
	// error from fn undoes only fn's writes; the transaction stays usable.
	Advisory(ctx context.Context, fn func(ctx context.Context, slots scheduling.Store) error) error
}
