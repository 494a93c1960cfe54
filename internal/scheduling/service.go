package scheduling

import (
	"time"

	"github.com/rs/zerolog"
)

// Service implements templates, slot materialization, the availability
// ledger and the booking coordinator on top of a Store.
type Service struct {
	store  Store
	locker Locker
	log    zerolog.Logger
	now    func() time.Time
}

type Option func(*Service)

// WithLocker serializes materialization of one provider day across processes.
func WithLocker(l Locker) Option {
	return func(s *Service) { s.locker = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store: store,
		log:   log.With().Str("component", "scheduling").Logger(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithStore returns a copy of the service bound to store, typically a
// transaction-scoped store owned by the caller.
func (s *Service) WithStore(store Store) *Service {
	c := *s
	c.store = store
	return &c
}
