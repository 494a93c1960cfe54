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
)

func startTimes(slots []scheduling.Slot) []time.Time {
	out := make([]time.Time, len(slots))
	for i, s := range slots {
		out[i] = s.StartTime
	}
	return out
}

// Scenario C
func TestAvailableSlots_ReleaseMakesSlotReappear(t *testing.T) {
	svc, _, provider := seeded(t, 1)
	ctx := context.Background()

	res := reserveAt(svc, provider, at(monday, 9, 0))
	require.True(t, res.OK())

	avail, err := svc.AvailableSlots(ctx, provider, monday, nil)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{at(monday, 9, 30)}, startTimes(avail))

	require.NoError(t, svc.Release(ctx, provider, at(monday, 9, 0)))

	avail, err = svc.AvailableSlots(ctx, provider, monday, nil)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{at(monday, 9, 0), at(monday, 9, 30)}, startTimes(avail))
	assert.Equal(t, 0, avail[0].BookedCount)
}

// Scenario E
func TestAvailableSlots_ExcludesBlockedAndPast(t *testing.T) {
	store := schedulingtest.NewMemoryStore()
	ctx := context.Background()
	provider := uuid.New()

	// Monday 09:40: the 09:00 slot has started, 09:30 too.
	now := at(monday, 9, 40)
	svc := newService(store, now)
	_, err := svc.UpsertTemplate(ctx, templateInput(provider, time.Monday, "09:00", "11:00", 30, 1))
	require.NoError(t, err)

	slots, err := svc.MaterializeForDate(ctx, provider, monday, nil)
	require.NoError(t, err)
	require.Len(t, slots, 4)

	_, err = svc.BlockSlot(ctx, slots[2].ID)
	require.NoError(t, err)

	avail, err := svc.AvailableSlots(ctx, provider, monday, nil)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{at(monday, 10, 30)}, startTimes(avail))

	_, err = svc.UnblockSlot(ctx, slots[2].ID)
	require.NoError(t, err)

	avail, err = svc.AvailableSlots(ctx, provider, monday, nil)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{at(monday, 10, 0), at(monday, 10, 30)}, startTimes(avail))
}

func TestBlockSlot_KeepsOccupancy(t *testing.T) {
	svc, _, provider := seeded(t, 2)
	ctx := context.Background()

	res := reserveAt(svc, provider, at(monday, 9, 0))
	require.True(t, res.OK())

	blocked, err := svc.BlockSlot(ctx, res.Slot.ID)
	require.NoError(t, err)
	assert.True(t, blocked.IsBlocked)
	assert.Equal(t, 1, blocked.BookedCount)

	unblocked, err := svc.UnblockSlot(ctx, res.Slot.ID)
	require.NoError(t, err)
	assert.False(t, unblocked.IsBlocked)
	assert.Equal(t, 1, unblocked.BookedCount)

	_, err = svc.BlockSlot(ctx, uuid.New())
	assert.ErrorIs(t, err, scheduling.ErrSlotNotFound)
}

func TestAvailableSlots_ReconcilesLiveAppointments(t *testing.T) {
	svc, store, provider := seeded(t, 1)
	live := &liveAppointments{provider: provider}
	store.Live = live.fn

	// Booked through a path that never touched the counter.
	live.add(at(monday, 9, 30))

	avail, err := svc.AvailableSlots(context.Background(), provider, monday, nil)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{at(monday, 9, 0)}, startTimes(avail))

	// The stored counter is a cache and is not rewritten by a read.
	assert.Equal(t, 0, store.Slots()[1].BookedCount)
}

func TestAvailableSlots_FacilityFilter(t *testing.T) {
	store := schedulingtest.NewMemoryStore()
	svc := newService(store, testNow)
	ctx := context.Background()
	provider, clinicA, clinicB := uuid.New(), uuid.New(), uuid.New()

	in := templateInput(provider, time.Monday, "09:00", "10:00", 30, 1)
	in.FacilityID = &clinicA
	_, err := svc.UpsertTemplate(ctx, in)
	require.NoError(t, err)

	avail, err := svc.AvailableSlots(ctx, provider, monday, &clinicA)
	require.NoError(t, err)
	assert.Len(t, avail, 2)

	avail, err = svc.AvailableSlots(ctx, provider, monday, &clinicB)
	require.NoError(t, err)
	assert.Empty(t, avail, "slots already bound to clinic A")

	avail, err = svc.AvailableSlots(ctx, provider, monday, nil)
	require.NoError(t, err)
	assert.Len(t, avail, 2)
}

func TestAvailableSlots_QueryFacilityDoesNotBindSlots(t *testing.T) {
	store := schedulingtest.NewMemoryStore()
	svc := newService(store, testNow)
	ctx := context.Background()
	provider, home, other := uuid.New(), uuid.New(), uuid.New()

	in := templateInput(provider, time.Monday, "09:00", "10:00", 30, 1)
	in.FacilityID = &home
	_, err := svc.UpsertTemplate(ctx, in)
	require.NoError(t, err)

	// First touch of the day comes from another facility.
	avail, err := svc.AvailableSlots(ctx, provider, monday, &other)
	require.NoError(t, err)
	assert.Empty(t, avail)

	avail, err = svc.AvailableSlots(ctx, provider, monday, &home)
	require.NoError(t, err)
	assert.Len(t, avail, 2)
	for _, sl := range store.Slots() {
		require.NotNil(t, sl.FacilityID)
		assert.Equal(t, home, *sl.FacilityID)
	}
}

func TestAvailableSlots_UnboundTemplateStaysUnbound(t *testing.T) {
	svc, store, provider := seeded(t, 1)
	ctx := context.Background()
	clinicA, clinicB := uuid.New(), uuid.New()

	avail, err := svc.AvailableSlots(ctx, provider, monday, &clinicA)
	require.NoError(t, err)
	assert.Len(t, avail, 2)

	avail, err = svc.AvailableSlots(ctx, provider, monday, &clinicB)
	require.NoError(t, err)
	assert.Len(t, avail, 2)
	for _, sl := range store.Slots() {
		assert.Nil(t, sl.FacilityID)
	}
}

func TestDaySlots_IncludesBlockedAndFull(t *testing.T) {
	svc, _, provider := seeded(t, 1)
	ctx := context.Background()

	res := reserveAt(svc, provider, at(monday, 9, 0))
	require.True(t, res.OK())
	slots, err := svc.MaterializeForDate(ctx, provider, monday, nil)
	require.NoError(t, err)
	_, err = svc.BlockSlot(ctx, slots[1].ID)
	require.NoError(t, err)

	day, err := svc.DaySlots(ctx, provider, monday)
	require.NoError(t, err)
	require.Len(t, day, 2)
	assert.True(t, day[0].IsBooked)
	assert.True(t, day[1].IsBlocked)

	avail, err := svc.AvailableSlots(ctx, provider, monday, nil)
	require.NoError(t, err)
	assert.Empty(t, avail)
}
