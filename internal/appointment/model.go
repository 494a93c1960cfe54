package appointment

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Appointment is a patient visit with a provider. SlotID is the slot charged
// for it, nil when no slot could be reserved.
type Appointment struct {
	ID                 uuid.UUID
	ProviderID         uuid.UUID
	PatientID          uuid.UUID
	FacilityID         *uuid.UUID
	PatientName        string
	PatientPhone       string
	VisitReason        string
	ScheduledAt        time.Time
	Status             AppointmentStatus
	SlotID             *uuid.UUID
	CancellationReason *string
	RescheduleReason   *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ListFilter selects appointments by any combination of patient, provider
// and slot. Nil fields are not filtered on.
type ListFilter struct {
	PatientID  *uuid.UUID
	ProviderID *uuid.UUID
	SlotID     *uuid.UUID
	Limit      int
	Offset     int
}

func (f ListFilter) normalize() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
