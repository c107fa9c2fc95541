package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"court-booking-service/internal/domain"
	"court-booking-service/internal/timeslot"
)

// MemoryStore is an in-process Store. A transaction holds the store's write
// lock for its whole duration, which serialises every partition at once, and
// stages its writes until fn succeeds.
type MemoryStore struct {
	mu       sync.RWMutex
	bookings map[string]domain.Booking
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bookings: make(map[string]domain.Booking)}
}

func (m *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{base: m.bookings, staged: make(map[string]domain.Booking)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for id, b := range tx.staged {
		m.bookings[id] = b
	}
	return nil
}

func (m *MemoryStore) DayBookings(ctx context.Context, academyID, sport string, date timeslot.Date) ([]domain.Booking, error) {
	return m.filter(func(b domain.Booking) bool {
		return b.AcademyID == academyID && b.Sport == sport && b.Date == date
	}), nil
}

func (m *MemoryStore) UserBookings(ctx context.Context, email string) ([]domain.Booking, error) {
	return m.filter(func(b domain.Booking) bool {
		return strings.EqualFold(b.UserEmail, email)
	}), nil
}

func (m *MemoryStore) AcademyBookings(ctx context.Context, academyID string, from, to timeslot.Date, sport string) ([]domain.Booking, error) {
	return m.filter(func(b domain.Booking) bool {
		return b.AcademyID == academyID &&
			(sport == "" || b.Sport == sport) &&
			!b.Date.Before(from) && !to.Before(b.Date)
	}), nil
}

func (m *MemoryStore) filter(keep func(domain.Booking) bool) []domain.Booking {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []domain.Booking{}
	for _, b := range m.bookings {
		if b.Active() && keep(b) {
			out = append(out, b)
		}
	}
	sortBookings(out)
	return out
}

type memTx struct {
	base   map[string]domain.Booking
	staged map[string]domain.Booking
}

func (t *memTx) Lock(ctx context.Context, parts ...Partition) error {
	return ctx.Err()
}

func (t *memTx) lookup(id string) (domain.Booking, bool) {
	if b, ok := t.staged[id]; ok {
		return b, true
	}
	b, ok := t.base[id]
	return b, ok
}

func (t *memTx) Get(ctx context.Context, id string) (domain.Booking, error) {
	b, ok := t.lookup(id)
	if !ok || !b.Active() {
		return domain.Booking{}, fmt.Errorf("%w: booking %s", domain.ErrNotFound, id)
	}
	return b, nil
}

func (t *memTx) CourtBookings(ctx context.Context, p Partition) ([]domain.Booking, error) {
	var out []domain.Booking
	seen := make(map[string]bool, len(t.staged))
	for id, b := range t.staged {
		seen[id] = true
		if b.Active() && partitionOf(b) == p {
			out = append(out, b)
		}
	}
	for id, b := range t.base {
		if !seen[id] && b.Active() && partitionOf(b) == p {
			out = append(out, b)
		}
	}
	return out, nil
}

func (t *memTx) Insert(ctx context.Context, b domain.Booking) error {
	if _, ok := t.lookup(b.ID); ok {
		return fmt.Errorf("booking id %s already used", b.ID)
	}
	t.staged[b.ID] = b
	return nil
}

func (t *memTx) Update(ctx context.Context, b domain.Booking) error {
	if _, ok := t.lookup(b.ID); !ok {
		return fmt.Errorf("%w: booking %s", domain.ErrNotFound, b.ID)
	}
	t.staged[b.ID] = b
	return nil
}
