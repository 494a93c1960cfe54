package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx. Begin on a pgx.Tx opens a
// savepoint, so the store composes with a caller's transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PgStore struct {
	db DBTX
}

func NewPgStore(db DBTX) *PgStore {
	return &PgStore{db: db}
}

const templateColumns = `id, provider_id, day_of_week, start_clock, end_clock, slot_duration_minutes,
	max_bookings_per_slot, is_active, facility_id, created_at, updated_at`

const slotColumns = `id, provider_id, slot_date, start_time, end_time, is_blocked,
	booked_count, max_bookings, is_booked, facility_id, created_at, updated_at`

// live appointments are the ones still holding capacity
const liveStatuses = `('pending', 'confirmed')`

// Helpers

func scanTemplate(row pgx.Row) (*Template, error) {
	var t Template
	var dow int16
	var start, end string

	err := row.Scan(
		&t.ID,
		&t.ProviderID,
		&dow,
		&start,
		&end,
		&t.SlotDurationMinutes,
		&t.MaxBookingsPerSlot,
		&t.IsActive,
		&t.FacilityID,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}

	t.DayOfWeek = time.Weekday(dow)
	if t.StartTime, err = ParseWallClock(start); err != nil {
		return nil, fmt.Errorf("template %s: %w", t.ID, err)
	}
	if t.EndTime, err = ParseWallClock(end); err != nil {
		return nil, fmt.Errorf("template %s: %w", t.ID, err)
	}
	return &t, nil
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot

	err := row.Scan(
		&s.ID,
		&s.ProviderID,
		&s.Date,
		&s.StartTime,
		&s.EndTime,
		&s.IsBlocked,
		&s.BookedCount,
		&s.MaxBookings,
		&s.IsBooked,
		&s.FacilityID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	s.StartTime = s.StartTime.UTC()
	s.EndTime = s.EndTime.UTC()
	return &s, nil
}

func collectSlots(rows pgx.Rows) ([]Slot, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Slot, error) {
		s, err := scanSlot(row)
		if err != nil {
			return Slot{}, err
		}
		return *s, nil
	})
}

// Templates

func (s *PgStore) UpsertTemplate(ctx context.Context, t Template) (*Template, error) {
	id := t.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO availability_templates (`+templateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		ON CONFLICT (provider_id, day_of_week) DO UPDATE
		SET start_clock           = EXCLUDED.start_clock,
		    end_clock             = EXCLUDED.end_clock,
		    slot_duration_minutes = EXCLUDED.slot_duration_minutes,
		    max_bookings_per_slot = EXCLUDED.max_bookings_per_slot,
		    is_active             = EXCLUDED.is_active,
		    facility_id           = EXCLUDED.facility_id,
		    updated_at            = now()
		RETURNING `+templateColumns,
		id, t.ProviderID, int16(t.DayOfWeek), t.StartTime.String(), t.EndTime.String(),
		t.SlotDurationMinutes, t.MaxBookingsPerSlot, t.IsActive, t.FacilityID,
	)
	return scanTemplate(row)
}

func (s *PgStore) ListTemplates(ctx context.Context, providerID *uuid.UUID) ([]Template, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+templateColumns+`
		FROM availability_templates
		WHERE $1::uuid IS NULL OR provider_id = $1
		ORDER BY provider_id, day_of_week
	`, providerID)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Template, error) {
		t, err := scanTemplate(row)
		if err != nil {
			return Template{}, err
		}
		return *t, nil
	})
}

func (s *PgStore) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM availability_templates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

func (s *PgStore) FindActiveTemplate(ctx context.Context, providerID uuid.UUID, day time.Weekday) (*Template, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+templateColumns+`
		FROM availability_templates
		WHERE provider_id = $1
		  AND day_of_week = $2
		  AND is_active
	`, providerID, int16(day))
	return scanTemplate(row)
}

// Slots

func (s *PgStore) EnsureSlots(ctx context.Context, slots []Slot) ([]Slot, error) {
	if len(slots) == 0 {
		return nil, nil
	}
	providerID := slots[0].ProviderID

	batch := &pgx.Batch{}
	starts := make([]time.Time, 0, len(slots))
	for _, sl := range slots {
		if sl.ProviderID != providerID {
			return nil, errors.New("ensure slots: mixed providers in one call")
		}
		batch.Queue(`
			INSERT INTO slots (`+slotColumns+`)
			VALUES ($1, $2, $3, $4, $5, false, 0, $6, false, $7, now(), now())
			ON CONFLICT (provider_id, start_time) DO NOTHING
		`, sl.ID, sl.ProviderID, sl.Date, sl.StartTime, sl.EndTime, sl.MaxBookings, sl.FacilityID)
		starts = append(starts, sl.StartTime)
	}

	br := s.db.SendBatch(ctx, batch)
	for range slots {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return nil, fmt.Errorf("insert slot: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE provider_id = $1
		  AND start_time = ANY($2)
		ORDER BY start_time
	`, providerID, starts)
	if err != nil {
		return nil, err
	}
	stored, err := collectSlots(rows)
	if err != nil {
		return nil, err
	}

	byStart := make(map[int64]Slot, len(stored))
	for _, sl := range stored {
		byStart[sl.StartTime.UnixNano()] = sl
	}

	out := make([]Slot, 0, len(slots))
	for _, sl := range slots {
		got, ok := byStart[sl.StartTime.UnixNano()]
		if !ok {
			return nil, fmt.Errorf("slot %s at %s missing after insert", providerID, sl.StartTime)
		}
		out = append(out, got)
	}
	return out, nil
}

func (s *PgStore) GetSlot(ctx context.Context, id uuid.UUID) (*Slot, error) {
	row := s.db.QueryRow(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = $1`, id)
	return scanSlot(row)
}

func (s *PgStore) ListSlots(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Slot, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE provider_id = $1
		  AND start_time >= $2
		  AND start_time < $3
		ORDER BY start_time
	`, providerID, from, to)
	if err != nil {
		return nil, err
	}
	return collectSlots(rows)
}

func (s *PgStore) FindSlotCovering(ctx context.Context, providerID uuid.UUID, at time.Time) (*Slot, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE provider_id = $1
		  AND start_time <= $2
		  AND end_time > $2
		ORDER BY start_time DESC
		LIMIT 1
	`, providerID, at)
	return scanSlot(row)
}

func (s *PgStore) FindSlotStartingAt(ctx context.Context, providerID uuid.UUID, at time.Time) (*Slot, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE provider_id = $1
		  AND start_time = $2
	`, providerID, at)
	return scanSlot(row)
}

func (s *PgStore) SetSlotBlocked(ctx context.Context, id uuid.UUID, blocked bool) (*Slot, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE slots
		SET is_blocked = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+slotColumns,
		id, blocked,
	)
	return scanSlot(row)
}

func (s *PgStore) UpdateOccupancy(ctx context.Context, id uuid.UUID, exclude uuid.UUID, fn OccupancyFunc) (*Slot, error) {
	var out *Slot

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		slot, err := scanSlot(tx.QueryRow(ctx, `
			SELECT `+slotColumns+`
			FROM slots
			WHERE id = $1
			FOR UPDATE
		`, id))
		if err != nil {
			return err
		}

		// Read after the row lock so every appointment committed by a
		// previous holder is visible.
		var live int
		err = tx.QueryRow(ctx, `
			SELECT count(*)
			FROM appointments
			WHERE provider_id = $1
			  AND status IN `+liveStatuses+`
			  AND scheduled_at >= $2
			  AND scheduled_at < $3
			  AND id <> $4
		`, slot.ProviderID, slot.StartTime, slot.EndTime, exclude).Scan(&live)
		if err != nil {
			return fmt.Errorf("count live appointments: %w", err)
		}

		if err := fn(slot, live); err != nil {
			return err
		}

		out, err = scanSlot(tx.QueryRow(ctx, `
			UPDATE slots
			SET booked_count = $2,
			    is_booked    = $3,
			    updated_at   = now()
			WHERE id = $1
			RETURNING `+slotColumns,
			slot.ID, slot.BookedCount, slot.IsBooked,
		))
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PgStore) ListLiveAppointmentTimes(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]time.Time, error) {
	rows, err := s.db.Query(ctx, `
		SELECT scheduled_at
		FROM appointments
		WHERE provider_id = $1
		  AND status IN `+liveStatuses+`
		  AND scheduled_at >= $2
		  AND scheduled_at < $3
	`, providerID, from, to)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[time.Time])
}
