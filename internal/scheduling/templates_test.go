package scheduling_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/provider-slot-scheduling/internal/scheduling"
	"github.com/hackgods/provider-slot-scheduling/internal/scheduling/schedulingtest"
	"github.com/hackgods/provider-slot-scheduling/internal/validation"
)

func TestUpsertTemplate_Defaults(t *testing.T) {
	svc := newService(schedulingtest.NewMemoryStore(), testNow)
	provider := uuid.New()

	tmpl, err := svc.UpsertTemplate(context.Background(), templateInput(provider, time.Monday, "09:00", "12:00", 20, 0))
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, tmpl.ID)
	assert.Equal(t, time.Monday, tmpl.DayOfWeek)
	assert.Equal(t, scheduling.WallClock{Hour: 9}, tmpl.StartTime)
	assert.Equal(t, scheduling.WallClock{Hour: 12}, tmpl.EndTime)
	assert.Equal(t, 1, tmpl.MaxBookingsPerSlot)
	assert.True(t, tmpl.IsActive)
}

func withoutDay(in scheduling.TemplateInput) scheduling.TemplateInput {
	in.DayOfWeek = nil
	return in
}

func TestUpsertTemplate_AcceptsSunday(t *testing.T) {
	svc := newService(schedulingtest.NewMemoryStore(), testNow)

	tmpl, err := svc.UpsertTemplate(context.Background(), templateInput(uuid.New(), time.Sunday, "09:00", "10:00", 30, 1))
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, tmpl.DayOfWeek)
}

func TestUpsertTemplate_Rejects(t *testing.T) {
	provider := uuid.New()

	cases := []struct {
		name  string
		in    scheduling.TemplateInput
		field string
	}{
		{"start equals end", templateInput(provider, time.Monday, "09:00", "09:00", 30, 1), "end_time"},
		{"end before start", templateInput(provider, time.Monday, "10:00", "09:00", 30, 1), "end_time"},
		{"duration too short", templateInput(provider, time.Monday, "09:00", "10:00", 4, 1), "slot_duration_minutes"},
		{"duration too long", templateInput(provider, time.Monday, "08:00", "12:00", 121, 1), "slot_duration_minutes"},
		{"malformed start", templateInput(provider, time.Monday, "9am", "10:00", 30, 1), "start_time"},
		{"malformed end", templateInput(provider, time.Monday, "09:00", "25:00", 30, 1), "end_time"},
		{"window shorter than a slot", templateInput(provider, time.Monday, "09:00", "09:20", 30, 1), "slot_duration_minutes"},
		{"negative capacity", templateInput(provider, time.Monday, "09:00", "10:00", 30, -1), "max_bookings_per_slot"},
		{"weekday out of range", templateInput(provider, time.Weekday(7), "09:00", "10:00", 30, 1), "day_of_week"},
		{"missing provider", templateInput(uuid.Nil, time.Monday, "09:00", "10:00", 30, 1), "provider_id"},
		{"missing weekday", withoutDay(templateInput(provider, time.Sunday, "09:00", "10:00", 30, 1)), "day_of_week"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := schedulingtest.NewMemoryStore()
			svc := newService(store, testNow)

			_, err := svc.UpsertTemplate(context.Background(), tc.in)
			require.Error(t, err)

			var vErr *validation.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)

			templates, err := store.ListTemplates(context.Background(), nil)
			require.NoError(t, err)
			assert.Empty(t, templates)
		})
	}
}

func TestUpsertTemplate_ReplacesSameDay(t *testing.T) {
	svc := newService(schedulingtest.NewMemoryStore(), testNow)
	provider := uuid.New()
	ctx := context.Background()

	first, err := svc.UpsertTemplate(ctx, templateInput(provider, time.Monday, "09:00", "10:00", 30, 1))
	require.NoError(t, err)

	inactive := false
	in := templateInput(provider, time.Monday, "13:00", "17:00", 15, 2)
	in.IsActive = &inactive
	second, err := svc.UpsertTemplate(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 15, second.SlotDurationMinutes)
	assert.False(t, second.IsActive)

	templates, err := svc.ListTemplates(ctx, &provider)
	require.NoError(t, err)
	assert.Len(t, templates, 1)
}

func TestListTemplates_FiltersByProvider(t *testing.T) {
	svc := newService(schedulingtest.NewMemoryStore(), testNow)
	ctx := context.Background()
	p1, p2 := uuid.New(), uuid.New()

	for _, day := range []time.Weekday{time.Monday, time.Wednesday} {
		_, err := svc.UpsertTemplate(ctx, templateInput(p1, day, "09:00", "10:00", 30, 1))
		require.NoError(t, err)
	}
	_, err := svc.UpsertTemplate(ctx, templateInput(p2, time.Friday, "09:00", "10:00", 30, 1))
	require.NoError(t, err)

	mine, err := svc.ListTemplates(ctx, &p1)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, time.Monday, mine[0].DayOfWeek)
	assert.Equal(t, time.Wednesday, mine[1].DayOfWeek)

	all, err := svc.ListTemplates(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDeleteTemplate(t *testing.T) {
	svc, _, provider := seeded(t, 1)
	ctx := context.Background()

	slots, err := svc.MaterializeForDate(ctx, provider, monday, nil)
	require.NoError(t, err)
	require.Len(t, slots, 2)

	templates, err := svc.ListTemplates(ctx, &provider)
	require.NoError(t, err)
	require.Len(t, templates, 1)

	require.NoError(t, svc.DeleteTemplate(ctx, templates[0].ID))
	assert.ErrorIs(t, svc.DeleteTemplate(ctx, templates[0].ID), scheduling.ErrTemplateNotFound)

	next, err := svc.MaterializeForDate(ctx, provider, monday.AddDate(0, 0, 7), nil)
	require.NoError(t, err)
	assert.Empty(t, next)

	got, err := svc.DaySlots(ctx, provider, monday)
	require.NoError(t, err)
	assert.Len(t, got, 2, "slots outlive their template")
}
