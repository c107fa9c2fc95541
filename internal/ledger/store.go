package ledger

import (
	"context"
	"fmt"
	"slices"

	"court-booking-service/internal/domain"
	"court-booking-service/internal/timeslot"
)

// Partition is the unit of write serialisation: one court of one sport at one
// academy on one day.
type Partition struct {
	AcademyID string
	Sport     string
	Court     int
	Date      timeslot.Date
}

func (p Partition) Key() string {
	return fmt.Sprintf("%s|%s|%d|%s", p.AcademyID, p.Sport, p.Court, p.Date)
}

func partitionOf(b domain.Booking) Partition {
	return Partition{AcademyID: b.AcademyID, Sport: b.Sport, Court: b.CourtNumber, Date: b.Date}
}

// lockOrder dedupes parts and sorts them by key so that concurrent writers
// always acquire partition locks in the same order.
func lockOrder(parts []Partition) []string {
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		keys = append(keys, p.Key())
	}
	slices.Sort(keys)
	return slices.Compact(keys)
}

// Store is the ledger's storage. Reads outside InTx see a consistent snapshot
// of active bookings and never wait on writers for long.
type Store interface {
	// InTx runs fn in a transaction that commits only if fn returns nil.
	// Every partition fn touches must be locked through Tx.Lock first.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	DayBookings(ctx context.Context, academyID, sport string, date timeslot.Date) ([]domain.Booking, error)
	UserBookings(ctx context.Context, email string) ([]domain.Booking, error)
	AcademyBookings(ctx context.Context, academyID string, from, to timeslot.Date, sport string) ([]domain.Booking, error)
}

type Tx interface {
	// Lock holds parts exclusively until the transaction ends.
	Lock(ctx context.Context, parts ...Partition) error
	// Get returns the active booking id, locked for update.
	Get(ctx context.Context, id string) (domain.Booking, error)
	CourtBookings(ctx context.Context, p Partition) ([]domain.Booking, error)
	Insert(ctx context.Context, b domain.Booking) error
	Update(ctx context.Context, b domain.Booking) error
}

func sortBookings(bs []domain.Booking) {
	slices.SortFunc(bs, func(a, b domain.Booking) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		if a.Start != b.Start {
			return a.Start - b.Start
		}
		return a.CourtNumber - b.CourtNumber
	})
}
