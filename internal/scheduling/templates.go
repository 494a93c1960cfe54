package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/provider-slot-scheduling/internal/validation"
)

// TemplateInput is the upsert payload for a weekly availability rule.
type TemplateInput struct {
	ProviderID          uuid.UUID  `json:"provider_id" validate:"required"`
	DayOfWeek           *int       `json:"day_of_week" validate:"required,min=0,max=6"`
	StartTime           string     `json:"start_time" validate:"required,wallclock"`
	EndTime             string     `json:"end_time" validate:"required,wallclock"`
	SlotDurationMinutes int        `json:"slot_duration_minutes" validate:"min=5,max=120"`
	MaxBookingsPerSlot  int        `json:"max_bookings_per_slot" validate:"omitempty,min=1,max=200"`
	IsActive            *bool      `json:"is_active"`
	FacilityID          *uuid.UUID `json:"facility_id"`
}

// DayOfWeek returns d in the form TemplateInput expects.
func DayOfWeek(d time.Weekday) *int {
	n := int(d)
	return &n
}

// UpsertTemplate creates or replaces the rule for (provider, weekday).
func (s *Service) UpsertTemplate(ctx context.Context, in TemplateInput) (*Template, error) {
	t, err := buildTemplate(in)
	if err != nil {
		return nil, err
	}

	saved, err := s.store.UpsertTemplate(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("upsert template: %w", err)
	}

	s.log.Info().
		Str("template_id", saved.ID.String()).
		Str("provider_id", saved.ProviderID.String()).
		Str("day", saved.DayOfWeek.String()).
		Str("window", saved.StartTime.String()+"-"+saved.EndTime.String()).
		Int("duration_min", saved.SlotDurationMinutes).
		Msg("availability template saved")

	return saved, nil
}

func buildTemplate(in TemplateInput) (Template, error) {
	if err := validation.Struct(in); err != nil {
		return Template{}, err
	}

	start, err := ParseWallClock(in.StartTime)
	if err != nil {
		return Template{}, validation.Errorf("start_time", "%v", err)
	}
	end, err := ParseWallClock(in.EndTime)
	if err != nil {
		return Template{}, validation.Errorf("end_time", "%v", err)
	}

	window := end.Minutes() - start.Minutes()
	if window <= 0 {
		return Template{}, validation.Errorf("end_time", "must be after start_time")
	}
	if window < in.SlotDurationMinutes {
		return Template{}, validation.Errorf("slot_duration_minutes", "window %s-%s is shorter than one slot", start, end)
	}

	maxBookings := in.MaxBookingsPerSlot
	if maxBookings == 0 {
		maxBookings = 1
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	return Template{
		ProviderID:          in.ProviderID,
		DayOfWeek:           time.Weekday(*in.DayOfWeek),
		StartTime:           start,
		EndTime:             end,
		SlotDurationMinutes: in.SlotDurationMinutes,
		MaxBookingsPerSlot:  maxBookings,
		IsActive:            active,
		FacilityID:          in.FacilityID,
	}, nil
}

// ListTemplates lists every template, or one provider's when providerID is set.
func (s *Service) ListTemplates(ctx context.Context, providerID *uuid.UUID) ([]Template, error) {
	templates, err := s.store.ListTemplates(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

// DeleteTemplate removes a template. Slots it already produced are kept.
func (s *Service) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteTemplate(ctx, id); err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	s.log.Info().Str("template_id", id.String()).Msg("availability template deleted")
	return nil
}
