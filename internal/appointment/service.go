package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/provider-slot-scheduling/internal/events"
	"github.com/hackgods/provider-slot-scheduling/internal/scheduling"
	"github.com/hackgods/provider-slot-scheduling/internal/validation"
)

const publishTimeout = 3 * time.Second

type Service struct {
	repo  Repository
	sched *scheduling.Service
	pub   events.Publisher
	log   zerolog.Logger
	now   func() time.Time
}

type Option func(*Service)

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.pub = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, sched *scheduling.Service, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:  repo,
		sched: sched,
		pub:   events.Nop{},
		log:   log.With().Str("component", "appointment").Logger(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateInput struct {
	ProviderID   uuid.UUID  `json:"provider_id" validate:"required"`
	PatientID    uuid.UUID  `json:"patient_id" validate:"required"`
	FacilityID   *uuid.UUID `json:"facility_id"`
	PatientName  string     `json:"patient_name" validate:"required,max=200"`
	PatientPhone string     `json:"patient_phone" validate:"required,max=32"`
	VisitReason  string     `json:"visit_reason" validate:"max=1000"`
	ScheduledAt  time.Time  `json:"scheduled_at" validate:"required"`
}

type RescheduleInput struct {
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Reason      string    `json:"reason" validate:"max=1000"`
}

// CreateAppointment books a pending appointment and tries to charge the slot
// covering its time. A failed or unavailable reservation does not block the
// booking; the appointment is stored without a slot.
func (s *Service) CreateAppointment(ctx context.Context, in CreateInput) (*Appointment, error) {
	in.PatientName = strings.TrimSpace(in.PatientName)
	in.PatientPhone = strings.TrimSpace(in.PatientPhone)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	at := in.ScheduledAt.UTC()
	if err := s.checkNotPast("scheduled_at", at); err != nil {
		return nil, err
	}

	appt := Appointment{
		ID:           uuid.New(),
		ProviderID:   in.ProviderID,
		PatientID:    in.PatientID,
		FacilityID:   in.FacilityID,
		PatientName:  in.PatientName,
		PatientPhone: in.PatientPhone,
		VisitReason:  strings.TrimSpace(in.VisitReason),
		ScheduledAt:  at,
		Status:       StatusPending,
	}

	var created *Appointment
	err := s.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		appt.SlotID = s.reserve(ctx, tx, appt)

		var err error
		created, err = tx.InsertAppointment(ctx, appt)
		if err != nil {
			return err
		}
		return s.logEvent(ctx, tx, created, events.AppointmentCreated, map[string]any{
			"scheduled_at": created.ScheduledAt,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	s.publish(ctx, created, events.AppointmentCreated, nil)
	return created, nil
}

// ConfirmAppointment moves a pending appointment to confirmed. The confirmed
// event is what downstream messaging uses to open the patient conversation.
func (s *Service) ConfirmAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusConfirmed, events.AppointmentConfirmed, nil)
}

// CompleteAppointment moves a confirmed appointment to completed.
func (s *Service) CompleteAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusCompleted, events.AppointmentCompleted, nil)
}

// CancelAppointment cancels a pending or confirmed appointment and gives
// back the slot charged for it, if any.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, validation.Errorf("reason", "is required")
	}

	return s.transition(ctx, id, StatusCancelled, events.AppointmentCancelled, func(ctx context.Context, tx Tx, a *Appointment) {
		s.release(ctx, tx, *a)
		a.CancellationReason = &reason
	})
}

// RescheduleAppointment moves the appointment to a new time, releasing the
// old slot and reserving the one covering the new time. The status is kept.
func (s *Service) RescheduleAppointment(ctx context.Context, id uuid.UUID, in RescheduleInput) (*Appointment, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	at := in.ScheduledAt.UTC()
	if err := s.checkNotPast("scheduled_at", at); err != nil {
		return nil, err
	}

	var (
		updated   *Appointment
		unchanged bool
		from      time.Time
	)
	err := s.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		current, err := tx.LockAppointment(ctx, id)
		if err != nil {
			return err
		}
		if !CanReschedule(current.Status) {
			return ErrInvalidStatusTransition
		}
		if current.ScheduledAt.Equal(at) {
			updated, unchanged = current, true
			return nil
		}

		from = current.ScheduledAt
		next := *current
		s.release(ctx, tx, next)
		next.ScheduledAt = at
		next.SlotID = s.reserve(ctx, tx, next)
		if reason := strings.TrimSpace(in.Reason); reason != "" {
			next.RescheduleReason = &reason
		}

		updated, err = tx.UpdateAppointment(ctx, next, current.Status)
		if err != nil {
			return err
		}
		return s.logEvent(ctx, tx, updated, events.AppointmentRescheduled, map[string]any{
			"from": from,
			"to":   at,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("reschedule appointment %s: %w", id, err)
	}
	if unchanged {
		return updated, nil
	}

	s.publish(ctx, updated, events.AppointmentRescheduled, map[string]any{"from": from, "to": at})
	return updated, nil
}

// UpdateStatus dispatches a generic status change to the matching transition.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status AppointmentStatus, reason string) (*Appointment, error) {
	switch status {
	case StatusConfirmed:
		return s.ConfirmAppointment(ctx, id)
	case StatusCompleted:
		return s.CompleteAppointment(ctx, id)
	case StatusCancelled:
		return s.CancelAppointment(ctx, id, reason)
	default:
		return nil, fmt.Errorf("update status to %q: %w", status, ErrInvalidStatusTransition)
	}
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

func (s *Service) ListAppointments(ctx context.Context, f ListFilter) ([]Appointment, error) {
	appts, err := s.repo.ListAppointments(ctx, f.normalize())
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

// transition locks the appointment, checks the move to status, applies
// mutate and persists the result guarded by the prior status.
func (s *Service) transition(
	ctx context.Context,
	id uuid.UUID,
	status AppointmentStatus,
	eventType string,
	mutate func(ctx context.Context, tx Tx, a *Appointment),
) (*Appointment, error) {
	var updated *Appointment
	err := s.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		current, err := tx.LockAppointment(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(current.Status, status) {
			return ErrInvalidStatusTransition
		}

		next := *current
		next.Status = status
		if mutate != nil {
			mutate(ctx, tx, &next)
		}

		updated, err = tx.UpdateAppointment(ctx, next, current.Status)
		if err != nil {
			return err
		}
		return s.logEvent(ctx, tx, updated, eventType, map[string]any{
			"from": current.Status,
			"to":   status,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("move appointment %s to %s: %w", id, status, err)
	}

	s.publish(ctx, updated, eventType, nil)
	return updated, nil
}

// reserve charges the slot covering a.ScheduledAt and returns its ID, or nil
// when nothing could be reserved.
func (s *Service) reserve(ctx context.Context, tx Tx, a Appointment) *uuid.UUID {
	var slotID *uuid.UUID
	err := tx.Advisory(ctx, func(ctx context.Context, slots scheduling.Store) error {
		res := s.sched.WithStore(slots).Reserve(ctx, scheduling.ReserveRequest{
			ProviderID:    a.ProviderID,
			At:            a.ScheduledAt,
			FacilityID:    a.FacilityID,
			AppointmentID: a.ID,
		})
		if !res.OK() {
			if res.Err != nil {
				return res.Err
			}
			return errors.New(res.Reason)
		}
		id := res.Slot.ID
		slotID = &id
		return nil
	})
	if err != nil {
		s.log.Warn().
			Err(err).
			Str("appointment_id", a.ID.String()).
			Str("provider_id", a.ProviderID.String()).
			Time("scheduled_at", a.ScheduledAt).
			Msg("no slot reserved for appointment")
		return nil
	}
	return slotID
}

// release gives back the slot charged to a. Appointments without a slot
// release nothing.
func (s *Service) release(ctx context.Context, tx Tx, a Appointment) {
	if a.SlotID == nil {
		return
	}
	slotID := *a.SlotID
	err := tx.Advisory(ctx, func(ctx context.Context, slots scheduling.Store) error {
		return s.sched.WithStore(slots).ReleaseSlot(ctx, slotID)
	})
	if err != nil {
		s.log.Warn().
			Err(err).
			Str("appointment_id", a.ID.String()).
			Str("slot_id", slotID.String()).
			Msg("failed to release slot")
	}
}

func (s *Service) checkNotPast(field string, at time.Time) error {
	if scheduling.DateOf(at).Before(scheduling.DateOf(s.now())) {
		return validation.Errorf(field, "must not be in the past")
	}
	return nil
}

func (s *Service) logEvent(ctx context.Context, tx Tx, a *Appointment, eventType string, payload map[string]any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["status"] = a.Status
	if a.SlotID != nil {
		payload["slot_id"] = a.SlotID.String()
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	apptID := a.ID
	return tx.InsertEvent(ctx, EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now().UTC(),
	})
}

func (s *Service) publish(ctx context.Context, a *Appointment, eventType string, payload map[string]any) {
	ev := events.Event{
		Type:          eventType,
		AppointmentID: a.ID,
		ProviderID:    a.ProviderID,
		PatientID:     a.PatientID,
		SlotID:        a.SlotID,
		Payload:       payload,
		OccurredAt:    s.now().UTC(),
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.pub.Publish(pubCtx, ev); err != nil {
		s.log.Error().
			Err(err).
			Str("event", eventType).
			Str("appointment_id", a.ID.String()).
			Msg("failed to publish appointment event")
	}
}
