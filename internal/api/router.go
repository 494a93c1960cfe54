package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/provider-slot-scheduling/internal/appointment"
	"github.com/hackgods/provider-slot-scheduling/internal/scheduling"
)

// SchedulingService is the slice of scheduling.Service the HTTP layer uses.
type SchedulingService interface {
	UpsertTemplate(ctx context.Context, in scheduling.TemplateInput) (*scheduling.Template, error)
	ListTemplates(ctx context.Context, providerID *uuid.UUID) ([]scheduling.Template, error)
	DeleteTemplate(ctx context.Context, id uuid.UUID) error

	AvailableSlots(ctx context.Context, providerID uuid.UUID, date time.Time, facilityID *uuid.UUID) ([]scheduling.Slot, error)
	DaySlots(ctx context.Context, providerID uuid.UUID, date time.Time) ([]scheduling.Slot, error)
	BlockSlot(ctx context.Context, id uuid.UUID) (*scheduling.Slot, error)
	UnblockSlot(ctx context.Context, id uuid.UUID) (*scheduling.Slot, error)

	Reserve(ctx context.Context, req scheduling.ReserveRequest) scheduling.Reservation
	Release(ctx context.Context, providerID uuid.UUID, at time.Time) error
}

type AppointmentService interface {
	CreateAppointment(ctx context.Context, in appointment.CreateInput) (*appointment.Appointment, error)
	ConfirmAppointment(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	CompleteAppointment(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	CancelAppointment(ctx context.Context, id uuid.UUID, reason string) (*appointment.Appointment, error)
	RescheduleAppointment(ctx context.Context, id uuid.UUID, in appointment.RescheduleInput) (*appointment.Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status appointment.AppointmentStatus, reason string) (*appointment.Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	ListAppointments(ctx context.Context, f appointment.ListFilter) ([]appointment.Appointment, error)
}

type RouterConfig struct {
	Scheduling   SchedulingService
	Appointments AppointmentService
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Logger       zerolog.Logger
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(middleware.Recoverer)

	// Health endpoints
	health := NewHealthHandler(cfg.Env, cfg.Version)
	if cfg.PgPool != nil {
		health.Require("postgres", cfg.PgPool.Ping)
	}
	if cfg.Redis != nil {
		health.Optional("redis", func(ctx context.Context) error { return cfg.Redis.Ping(ctx).Err() })
	}
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Availability templates
	r.Post("/templates", upsertTemplateHandler(cfg.Scheduling))
	r.Get("/templates", listTemplatesHandler(cfg.Scheduling))
	r.Delete("/templates/{id}", deleteTemplateHandler(cfg.Scheduling))

	// Slots and booking-only reservations
	r.Route("/providers/{providerID}", func(r chi.Router) {
		r.Get("/slots/available", availableSlotsHandler(cfg.Scheduling))
		r.Get("/slots", daySlotsHandler(cfg.Scheduling))
		r.Post("/reservations", reserveHandler(cfg.Scheduling))
		r.Delete("/reservations", releaseHandler(cfg.Scheduling))
	})
	r.Post("/slots/{id}/block", blockSlotHandler(cfg.Scheduling, true))
	r.Post("/slots/{id}/unblock", blockSlotHandler(cfg.Scheduling, false))

	// Appointment endpoints
	r.Post("/appointments", createAppointmentHandler(cfg.Appointments))
	r.Get("/appointments", listAppointmentsHandler(cfg.Appointments))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Appointments))
	r.Post("/appointments/{id}/confirm", confirmAppointmentHandler(cfg.Appointments))
	r.Post("/appointments/{id}/complete", completeAppointmentHandler(cfg.Appointments))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Appointments))
	r.Post("/appointments/{id}/reschedule", rescheduleAppointmentHandler(cfg.Appointments))
	r.Patch("/appointments/{id}/status", updateStatusHandler(cfg.Appointments))

	return r
}
