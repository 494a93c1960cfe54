package scheduling_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/provider-slot-scheduling/internal/scheduling"
	"github.com/hackgods/provider-slot-scheduling/internal/scheduling/schedulingtest"
)

var (
	// 2024-06-03 is a Monday.
	monday  = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	tuesday = monday.AddDate(0, 0, 1)
	// Saturday before, so every slot of the test week is in the future.
	testNow = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
)

func at(day time.Time, hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func newService(store scheduling.Store, now time.Time, opts ...scheduling.Option) *scheduling.Service {
	opts = append([]scheduling.Option{scheduling.WithClock(func() time.Time { return now })}, opts...)
	return scheduling.NewService(store, zerolog.Nop(), opts...)
}

func templateInput(provider uuid.UUID, day time.Weekday, start, end string, duration, maxBookings int) scheduling.TemplateInput {
	return scheduling.TemplateInput{
		ProviderID:          provider,
		DayOfWeek:           scheduling.DayOfWeek(day),
		StartTime:           start,
		EndTime:             end,
		SlotDurationMinutes: duration,
		MaxBookingsPerSlot:  maxBookings,
	}
}

// seeded returns a service with D1's Monday 09:00-10:00 / 30min template.
func seeded(t *testing.T, maxBookings int) (*scheduling.Service, *schedulingtest.MemoryStore, uuid.UUID) {
	t.Helper()

	store := schedulingtest.NewMemoryStore()
	svc := newService(store, testNow)
	provider := uuid.New()

	_, err := svc.UpsertTemplate(context.Background(), templateInput(provider, time.Monday, "09:00", "10:00", 30, maxBookings))
	require.NoError(t, err)

	return svc, store, provider
}

// liveAppointments fakes the appointments table for the store's Live hook.
type liveAppointments struct {
	provider uuid.UUID
	times    []time.Time
	ids      []uuid.UUID
}

func (l *liveAppointments) add(at time.Time) uuid.UUID {
	id := uuid.New()
	l.times = append(l.times, at)
	l.ids = append(l.ids, id)
	return id
}

func (l *liveAppointments) fn(providerID uuid.UUID, from, to time.Time, exclude uuid.UUID) []time.Time {
	var out []time.Time
	for i, ts := range l.times {
		if providerID == l.provider && l.ids[i] != exclude && !ts.Before(from) && ts.Before(to) {
			out = append(out, ts)
		}
	}
	return out
}
