// Package schedulingtest provides an in-memory scheduling.Store for tests of
// the scheduling service and the packages built on it.
package schedulingtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/provider-slot-scheduling/internal/scheduling"
)

// LiveFunc reports the scheduled times of live appointments of a provider in
// [from, to), skipping exclude. It stands in for the appointments table.
type LiveFunc func(providerID uuid.UUID, from, to time.Time, exclude uuid.UUID) []time.Time

// MemoryStore is a mutex guarded scheduling.Store. UpdateOccupancy holds the
// mutex across the whole read-check-write, like the row lock in Postgres.
type MemoryStore struct {
	mu        sync.Mutex
	templates map[uuid.UUID]scheduling.Template
	slots     map[uuid.UUID]scheduling.Slot
	byStart   map[slotKey]uuid.UUID

	// Live is consulted for the appointment ground truth; nil means none.
	Live LiveFunc

	// Fail, when set, is returned by every slot operation.
	Fail error
}

type slotKey struct {
	provider uuid.UUID
	start    int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		templates: make(map[uuid.UUID]scheduling.Template),
		slots:     make(map[uuid.UUID]scheduling.Slot),
		byStart:   make(map[slotKey]uuid.UUID),
	}
}

func (m *MemoryStore) UpsertTemplate(_ context.Context, t scheduling.Template) (*scheduling.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	for id, existing := range m.templates {
		if existing.ProviderID == t.ProviderID && existing.DayOfWeek == t.DayOfWeek {
			t.ID = id
			t.CreatedAt = existing.CreatedAt
			t.UpdatedAt = now
			m.templates[id] = t
			return &t, nil
		}
	}

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt, t.UpdatedAt = now, now
	m.templates[t.ID] = t
	return &t, nil
}

func (m *MemoryStore) ListTemplates(_ context.Context, providerID *uuid.UUID) ([]scheduling.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []scheduling.Template
	for _, t := range m.templates {
		if providerID == nil || t.ProviderID == *providerID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProviderID != out[j].ProviderID {
			return out[i].ProviderID.String() < out[j].ProviderID.String()
		}
		return out[i].DayOfWeek < out[j].DayOfWeek
	})
	return out, nil
}

func (m *MemoryStore) DeleteTemplate(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.templates[id]; !ok {
		return scheduling.ErrTemplateNotFound
	}
	delete(m.templates, id)
	return nil
}

func (m *MemoryStore) FindActiveTemplate(_ context.Context, providerID uuid.UUID, day time.Weekday) (*scheduling.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.templates {
		if t.ProviderID == providerID && t.DayOfWeek == day && t.IsActive {
			return &t, nil
		}
	}
	return nil, scheduling.ErrTemplateNotFound
}

func (m *MemoryStore) EnsureSlots(_ context.Context, slots []scheduling.Slot) ([]scheduling.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Fail != nil {
		return nil, m.Fail
	}

	out := make([]scheduling.Slot, 0, len(slots))
	for _, sl := range slots {
		key := slotKey{provider: sl.ProviderID, start: sl.StartTime.UnixNano()}
		if id, ok := m.byStart[key]; ok {
			out = append(out, m.slots[id])
			continue
		}
		if sl.ID == uuid.Nil {
			sl.ID = uuid.New()
		}
		now := time.Now().UTC()
		sl.CreatedAt, sl.UpdatedAt = now, now
		sl.SetBookedCount(0)
		m.slots[sl.ID] = sl
		m.byStart[key] = sl.ID
		out = append(out, sl)
	}
	return out, nil
}

func (m *MemoryStore) GetSlot(_ context.Context, id uuid.UUID) (*scheduling.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sl, ok := m.slots[id]
	if !ok {
		return nil, scheduling.ErrSlotNotFound
	}
	return &sl, nil
}

func (m *MemoryStore) ListSlots(_ context.Context, providerID uuid.UUID, from, to time.Time) ([]scheduling.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []scheduling.Slot
	for _, sl := range m.slots {
		if sl.ProviderID == providerID && !sl.StartTime.Before(from) && sl.StartTime.Before(to) {
			out = append(out, sl)
		}
	}
	sortSlots(out)
	return out, nil
}

func (m *MemoryStore) FindSlotCovering(_ context.Context, providerID uuid.UUID, at time.Time) (*scheduling.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Fail != nil {
		return nil, m.Fail
	}
	for _, sl := range m.slots {
		if sl.ProviderID == providerID && sl.Covers(at) {
			return &sl, nil
		}
	}
	return nil, scheduling.ErrSlotNotFound
}

func (m *MemoryStore) FindSlotStartingAt(_ context.Context, providerID uuid.UUID, at time.Time) (*scheduling.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Fail != nil {
		return nil, m.Fail
	}
	id, ok := m.byStart[slotKey{provider: providerID, start: at.UnixNano()}]
	if !ok {
		return nil, scheduling.ErrSlotNotFound
	}
	sl := m.slots[id]
	return &sl, nil
}

func (m *MemoryStore) SetSlotBlocked(_ context.Context, id uuid.UUID, blocked bool) (*scheduling.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sl, ok := m.slots[id]
	if !ok {
		return nil, scheduling.ErrSlotNotFound
	}
	sl.IsBlocked = blocked
	sl.UpdatedAt = time.Now().UTC()
	m.slots[id] = sl
	return &sl, nil
}

func (m *MemoryStore) UpdateOccupancy(_ context.Context, id uuid.UUID, exclude uuid.UUID, fn scheduling.OccupancyFunc) (*scheduling.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Fail != nil {
		return nil, m.Fail
	}
	sl, ok := m.slots[id]
	if !ok {
		return nil, scheduling.ErrSlotNotFound
	}

	live := len(m.live(sl.ProviderID, sl.StartTime, sl.EndTime, exclude))
	if err := fn(&sl, live); err != nil {
		return nil, err
	}
	sl.UpdatedAt = time.Now().UTC()
	m.slots[id] = sl
	return &sl, nil
}

func (m *MemoryStore) ListLiveAppointmentTimes(_ context.Context, providerID uuid.UUID, from, to time.Time) ([]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.live(providerID, from, to, uuid.Nil), nil
}

func (m *MemoryStore) live(providerID uuid.UUID, from, to time.Time, exclude uuid.UUID) []time.Time {
	if m.Live == nil {
		return nil
	}
	return m.Live(providerID, from, to, exclude)
}

// Slots returns a snapshot of every stored slot ordered by start time.
func (m *MemoryStore) Slots() []scheduling.Slot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]scheduling.Slot, 0, len(m.slots))
	for _, sl := range m.slots {
		out = append(out, sl)
	}
	sortSlots(out)
	return out
}

func sortSlots(slots []scheduling.Slot) {
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].StartTime.Before(slots[j].StartTime)
	})
}

// Locker is an in-process scheduling.Locker keyed like the Redis one.
type Locker struct {
	mu    sync.Mutex
	keys  map[string]*sync.Mutex
	Calls int
}

func NewLocker() *Locker {
	return &Locker{keys: make(map[string]*sync.Mutex)}
}

func (l *Locker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	km, ok := l.keys[key]
	if !ok {
		km = &sync.Mutex{}
		l.keys[key] = km
	}
	l.Calls++
	l.mu.Unlock()

	km.Lock()
	defer km.Unlock()
	return fn(ctx)
}
