package appointment_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/provider-slot-scheduling/internal/appointment"
	"github.com/hackgods/provider-slot-scheduling/internal/events"
	"github.com/hackgods/provider-slot-scheduling/internal/scheduling"
	"github.com/hackgods/provider-slot-scheduling/internal/scheduling/schedulingtest"
)

// fakeRepo keeps appointments in memory and runs one transaction at a time.
// A failed transaction restores the appointments and event log it started
// from; slot writes made through Advisory are kept, as a savepoint would.
type fakeRepo struct {
	txMu sync.Mutex

	mu     sync.Mutex
	appts  map[uuid.UUID]appointment.Appointment
	events []appointment.EventLog

	slots *schedulingtest.MemoryStore

	failInsert  error
	failAdvisor error
}

func newFakeRepo() *fakeRepo {
	r := &fakeRepo{
		appts: make(map[uuid.UUID]appointment.Appointment),
		slots: schedulingtest.NewMemoryStore(),
	}
	r.slots.Live = r.live
	return r
}

func (r *fakeRepo) live(providerID uuid.UUID, from, to time.Time, exclude uuid.UUID) []time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []time.Time
	for _, a := range r.appts {
		if a.ProviderID != providerID || a.ID == exclude {
			continue
		}
		if a.Status != appointment.StatusPending && a.Status != appointment.StatusConfirmed {
			continue
		}
		if !a.ScheduledAt.Before(from) && a.ScheduledAt.Before(to) {
			out = append(out, a.ScheduledAt)
		}
	}
	return out
}

func (r *fakeRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appts[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *fakeRepo) ListAppointments(_ context.Context, f appointment.ListFilter) ([]appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]appointment.Appointment, 0)
	for _, a := range r.appts {
		switch {
		case f.PatientID != nil && a.PatientID != *f.PatientID:
		case f.ProviderID != nil && a.ProviderID != *f.ProviderID:
		case f.SlotID != nil && (a.SlotID == nil || *a.SlotID != *f.SlotID):
		default:
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.After(out[j].ScheduledAt) })

	if f.Offset >= len(out) {
		return []appointment.Appointment{}, nil
	}
	out = out[f.Offset:]
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *fakeRepo) InTx(ctx context.Context, fn func(ctx context.Context, tx appointment.Tx) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.Lock()
	saved := make(map[uuid.UUID]appointment.Appointment, len(r.appts))
	for id, a := range r.appts {
		saved[id] = a
	}
	savedEvents := len(r.events)
	r.mu.Unlock()

	if err := fn(ctx, fakeTx{r}); err != nil {
		r.mu.Lock()
		r.appts = saved
		r.events = r.events[:savedEvents]
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *fakeRepo) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.EventType)
	}
	return out
}

type fakeTx struct {
	r *fakeRepo
}

func (t fakeTx) LockAppointment(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	return t.r.GetAppointmentByID(ctx, id)
}

func (t fakeTx) InsertAppointment(_ context.Context, a appointment.Appointment) (*appointment.Appointment, error) {
	if t.r.failInsert != nil {
		return nil, t.r.failInsert
	}

	t.r.mu.Lock()
	defer t.r.mu.Unlock()

	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	t.r.appts[a.ID] = a
	return &a, nil
}

func (t fakeTx) UpdateAppointment(_ context.Context, a appointment.Appointment, from appointment.AppointmentStatus) (*appointment.Appointment, error) {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()

	current, ok := t.r.appts[a.ID]
	if !ok || current.Status != from {
		return nil, appointment.ErrInvalidStatusTransition
	}
	a.UpdatedAt = time.Now().UTC()
	t.r.appts[a.ID] = a
	return &a, nil
}

func (t fakeTx) InsertEvent(_ context.Context, ev appointment.EventLog) error {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()

	t.r.events = append(t.r.events, ev)
	return nil
}

func (t fakeTx) Advisory(ctx context.Context, fn func(ctx context.Context, slots scheduling.Store) error) error {
	if t.r.failAdvisor != nil {
		return t.r.failAdvisor
	}
	return fn(ctx, t.r.slots)
}

// recorder collects published events.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recorder) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recorder) Close() error { return nil }

func (p *recorder) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

var errBoom = errors.New("boom")
