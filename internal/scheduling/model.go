package scheduling

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MinSlotDuration = 5
	MaxSlotDuration = 120

	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// Template is a recurring weekly availability rule, one per provider and weekday.
type Template struct {
	ID                  uuid.UUID
	ProviderID          uuid.UUID
	DayOfWeek           time.Weekday
	StartTime           WallClock
	EndTime             WallClock
	SlotDurationMinutes int
	MaxBookingsPerSlot  int
	IsActive            bool
	FacilityID          *uuid.UUID
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (t Template) SlotDuration() time.Duration {
	return time.Duration(t.SlotDurationMinutes) * time.Minute
}

// Slot is a concrete, dated reservation unit. BookedCount is a cache of the
// occupancy; live appointments are the ground truth (see Reconcile).
type Slot struct {
	ID          uuid.UUID
	ProviderID  uuid.UUID
	Date        time.Time
	StartTime   time.Time
	EndTime     time.Time
	IsBlocked   bool
	BookedCount int
	MaxBookings int
	IsBooked    bool
	FacilityID  *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Covers reports whether at falls in [StartTime, EndTime).
func (s Slot) Covers(at time.Time) bool {
	return !at.Before(s.StartTime) && at.Before(s.EndTime)
}

// SetBookedCount updates the counter and the derived IsBooked flag together.
func (s *Slot) SetBookedCount(n int) {
	if n < 0 {
		n = 0
	}
	s.BookedCount = n
	s.IsBooked = n >= s.MaxBookings
}

// Remaining is the number of bookings the slot can still take.
func (s Slot) Remaining() int {
	if r := s.MaxBookings - s.BookedCount; r > 0 {
		return r
	}
	return 0
}

// Reconcile returns the occupancy to trust for a capacity decision given the
// cached counter and the number of live appointments inside the slot window.
// Live appointments can only raise the cached value: reservations made by
// booking-only flows have no appointment row behind them, so the counter is
// the only record of them. The result is never written back to the slot.
func Reconcile(slot Slot, live int) int {
	if live > slot.BookedCount {
		return live
	}
	return slot.BookedCount
}

// WallClock is a time of day without date or zone, e.g. 09:30.
type WallClock struct {
	Hour   int
	Minute int
}

// ParseWallClock parses "HH:mm".
func ParseWallClock(s string) (WallClock, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(clockLayout) {
		return WallClock{}, fmt.Errorf("invalid time %q: want HH:mm", s)
	}
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return WallClock{}, fmt.Errorf("invalid time %q: want HH:mm", s)
	}
	return WallClock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c WallClock) Minutes() int {
	return c.Hour*60 + c.Minute
}

// On combines the clock with the calendar day of date.
func (c WallClock) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, time.UTC)
}

func (c WallClock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// DateOf truncates t to its calendar day. All instants are normalized
// wall-clock values, so the day is taken in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar day.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return d, nil
}

func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseWeekday accepts English day names ("monday", "Mon") or 0-6 with
// Sunday as 0.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) == 1 && s[0] >= '0' && s[0] <= '6' {
		return time.Weekday(s[0] - '0'), nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || (len(s) == 3 && s == name[:3]) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid day of week %q", s)
}
