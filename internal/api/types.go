package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/provider-slot-scheduling/internal/appointment"
	"github.com/hackgods/provider-slot-scheduling/internal/scheduling"
)

type ReserveRequest struct {
	At         time.Time  `json:"at"`
	FacilityID *uuid.UUID `json:"facility_id"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type TemplateResponse struct {
	ID                  uuid.UUID  `json:"id"`
	ProviderID          uuid.UUID  `json:"provider_id"`
	DayOfWeek           int        `json:"day_of_week"`
	DayName             string     `json:"day_name"`
	StartTime           string     `json:"start_time"`
	EndTime             string     `json:"end_time"`
	SlotDurationMinutes int        `json:"slot_duration_minutes"`
	MaxBookingsPerSlot  int        `json:"max_bookings_per_slot"`
	IsActive            bool       `json:"is_active"`
	FacilityID          *uuid.UUID `json:"facility_id,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func toTemplateResponse(t scheduling.Template) TemplateResponse {
	return TemplateResponse{
		ID:                  t.ID,
		ProviderID:          t.ProviderID,
		DayOfWeek:           int(t.DayOfWeek),
		DayName:             t.DayOfWeek.String(),
		StartTime:           t.StartTime.String(),
		EndTime:             t.EndTime.String(),
		SlotDurationMinutes: t.SlotDurationMinutes,
		MaxBookingsPerSlot:  t.MaxBookingsPerSlot,
		IsActive:            t.IsActive,
		FacilityID:          t.FacilityID,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
}

type SlotResponse struct {
	SlotID      uuid.UUID  `json:"slot_id"`
	ProviderID  uuid.UUID  `json:"provider_id"`
	Date        string     `json:"date"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     time.Time  `json:"end_time"`
	IsBlocked   bool       `json:"is_blocked"`
	IsBooked    bool       `json:"is_booked"`
	BookedCount int        `json:"booked_count"`
	MaxBookings int        `json:"max_bookings"`
	Remaining   int        `json:"remaining"`
	FacilityID  *uuid.UUID `json:"facility_id,omitempty"`
}

func toSlotResponse(s scheduling.Slot) SlotResponse {
	return SlotResponse{
		SlotID:      s.ID,
		ProviderID:  s.ProviderID,
		Date:        scheduling.FormatDate(s.Date),
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		IsBlocked:   s.IsBlocked,
		IsBooked:    s.IsBooked,
		BookedCount: s.BookedCount,
		MaxBookings: s.MaxBookings,
		Remaining:   s.Remaining(),
		FacilityID:  s.FacilityID,
	}
}

func toSlotResponses(slots []scheduling.Slot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, toSlotResponse(s))
	}
	return out
}

type AppointmentResponse struct {
	ID                 uuid.UUID  `json:"id"`
	ProviderID         uuid.UUID  `json:"provider_id"`
	PatientID          uuid.UUID  `json:"patient_id"`
	FacilityID         *uuid.UUID `json:"facility_id,omitempty"`
	PatientName        string     `json:"patient_name"`
	PatientPhone       string     `json:"patient_phone"`
	VisitReason        string     `json:"visit_reason,omitempty"`
	ScheduledAt        time.Time  `json:"scheduled_at"`
	Status             string     `json:"status"`
	SlotID             *uuid.UUID `json:"slot_id"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	RescheduleReason   *string    `json:"reschedule_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func toAppointmentResponse(a appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                 a.ID,
		ProviderID:         a.ProviderID,
		PatientID:          a.PatientID,
		FacilityID:         a.FacilityID,
		PatientName:        a.PatientName,
		PatientPhone:       a.PatientPhone,
		VisitReason:        a.VisitReason,
		ScheduledAt:        a.ScheduledAt,
		Status:             string(a.Status),
		SlotID:             a.SlotID,
		CancellationReason: a.CancellationReason,
		RescheduleReason:   a.RescheduleReason,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
