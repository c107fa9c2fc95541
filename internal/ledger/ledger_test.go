package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"court-booking-service/internal/availability"
	"court-booking-service/internal/catalog"
	"court-booking-service/internal/domain"
	"court-booking-service/internal/events"
	"court-booking-service/internal/timeslot"
)

var (
	day   = timeslot.Date{Year: 2024, Month: time.June, Day: 1}
	now   = time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC)
	alice = domain.Identity{Email: "alice@example.com", UserID: "u-alice"}
	bob   = domain.Identity{Email: "bob@example.com", UserID: "u-bob"}
)

func at(hh, mm int) int { return hh*60 + mm }

type recorder struct {
	mu   sync.Mutex
	keys []string
}

func (r *recorder) Publish(ctx context.Context, key string, v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	return nil
}

type fixture struct {
	ledger   *Ledger
	calc     *availability.Calculator
	academy  string
	events   *recorder
	setClock func(time.Time)
}

// newFixture sets up one academy offering badminton on two courts from 08:00
// to 20:00, where court n costs 10*n plus the hour index.
func newFixture(t *testing.T, store Store) *fixture {
	t.Helper()
	ctx := context.Background()

	cat := catalog.NewService(catalog.NewMemoryStore())
	a, err := cat.Onboard(ctx, catalog.OnboardInput{Name: "Smash", Email: "owner@smash.test", City: "Pune"})
	require.NoError(t, err)

	cfg := domain.SportConfig{SportName: "badminton", NumberOfCourts: 2, StartTime: "08:00", EndTime: "20:00"}
	table, err := catalog.RegeneratePricing(cfg, nil)
	require.NoError(t, err)
	for c := range table {
		for s := range table[c].Prices {
			table[c].Prices[s].Price = float64(10*(c+1) + s)
		}
	}
	cfg.Pricing = table
	_, err = cat.Configure(ctx, a.Email, []domain.SportConfig{cfg})
	require.NoError(t, err)

	var mu sync.Mutex
	current := now
	clock := timeslot.ClockFunc(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	})

	rec := &recorder{}
	l := New(store, cat, clock, rec)
	return &fixture{
		ledger:  l,
		calc:    availability.NewCalculator(cat, l, clock),
		academy: a.ID,
		events:  rec,
		setClock: func(t time.Time) {
			mu.Lock()
			current = t
			mu.Unlock()
		},
	}
}

func (f *fixture) request(court, start, duration int) BookingRequest {
	return BookingRequest{
		Request:     availability.Request{AcademyID: f.academy, Sport: "Badminton", Date: day, Start: start, Duration: duration},
		CourtNumber: court,
	}
}

func (f *fixture) courts(t *testing.T, start, duration int) []availability.Court {
	t.Helper()
	courts, err := f.calc.Check(context.Background(), f.request(0, start, duration).Request)
	require.NoError(t, err)
	return courts
}

func TestLedger_CreateModifyCancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, NewMemoryStore())

	b, err := f.ledger.Create(ctx, alice, f.request(1, at(10, 0), 60))
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, "badminton", b.Sport)
	assert.Equal(t, at(11, 0), b.End)
	assert.Equal(t, float64(12), b.Price)
	assert.Equal(t, domain.BookingActive, b.Status)

	courts := f.courts(t, at(10, 0), 60)
	assert.False(t, courts[0].Available)
	assert.True(t, courts[1].Available)

	moved, err := f.ledger.Modify(ctx, alice, b.ID, f.request(1, at(14, 0), 60))
	require.NoError(t, err)
	assert.Equal(t, b.ID, moved.ID)
	assert.Equal(t, at(14, 0), moved.Start)
	assert.Equal(t, float64(16), moved.Price)
	assert.True(t, f.courts(t, at(10, 0), 60)[0].Available)
	assert.False(t, f.courts(t, at(14, 0), 60)[0].Available)

	cancelled, err := f.ledger.Cancel(ctx, alice, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, cancelled.Status)
	assert.True(t, f.courts(t, at(14, 0), 60)[0].Available)

	mine, err := f.ledger.ListForUser(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, mine)

	assert.Equal(t, []string{events.BookingCreated, events.BookingModified, events.BookingCancelled}, f.events.keys)
}

func TestLedger_RejectsOverlap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, NewMemoryStore())

	_, err := f.ledger.Create(ctx, alice, f.request(1, at(10, 0), 60))
	require.NoError(t, err)

	_, err = f.ledger.Create(ctx, bob, f.request(1, at(10, 30), 60))
	require.ErrorIs(t, err, domain.ErrSlotNoLongerAvailable)

	_, err = f.ledger.Create(ctx, bob, f.request(2, at(10, 30), 60))
	require.NoError(t, err)
}

func TestLedger_AdjacentBookingsDoNotConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, NewMemoryStore())

	_, err := f.ledger.Create(ctx, alice, f.request(1, at(9, 0), 60))
	require.NoError(t, err)
	_, err = f.ledger.Create(ctx, bob, f.request(1, at(10, 0), 60))
	require.NoError(t, err)
	_, err = f.ledger.Create(ctx, bob, f.request(1, at(8, 0), 60))
	require.NoError(t, err)
}

func TestLedger_CreateValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, NewMemoryStore())

	cases := []struct {
		name  string
		who   domain.Identity
		req   BookingRequest
		want  error
		field string
	}{
		{name: "no email", who: domain.Identity{}, req: f.request(1, at(10, 0), 60), field: "userEmail"},
		{name: "court zero", who: alice, req: f.request(0, at(10, 0), 60), field: "courtNumber"},
		{name: "court too high", who: alice, req: f.request(3, at(10, 0), 60), field: "courtNumber"},
		{name: "off grid", who: alice, req: f.request(1, at(10, 15), 60), field: "startTime"},
		{name: "bad duration", who: alice, req: f.request(1, at(10, 0), 45), field: "duration"},
		{name: "overflowing duration", who: alice, req: f.request(1, at(10, 0), 9223372036854775800), field: "duration"},
		{name: "past midnight", who: alice, req: f.request(1, at(23, 30), 60), field: "duration"},
		{name: "before opening", who: alice, req: f.request(1, at(7, 0), 60), want: domain.ErrOutOfOperatingHours},
		{name: "past closing", who: alice, req: f.request(1, at(19, 30), 60), want: domain.ErrOutOfOperatingHours},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ledger.Create(ctx, tc.who, tc.req)
			require.Error(t, err)
			if tc.want != nil {
				require.ErrorIs(t, err, tc.want)
				return
			}
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}

	req := f.request(1, at(10, 0), 60)
	req.Sport = "squash"
	_, err := f.ledger.Create(ctx, alice, req)
	require.ErrorIs(t, err, domain.ErrNotFound)

	all, err := f.ledger.ListForAcademy(ctx, f.academy, day, day, "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestLedger_PastSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, NewMemoryStore())

	b, err := f.ledger.Create(ctx, alice, f.request(1, at(10, 0), 60))
	require.NoError(t, err)

	f.setClock(time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC))

	_, err = f.ledger.Create(ctx, alice, f.request(2, at(10, 0), 60))
	require.ErrorIs(t, err, domain.ErrPastTimeSlot)

	_, err = f.ledger.Cancel(ctx, alice, b.ID)
	require.ErrorIs(t, err, domain.ErrPastTimeSlot)

	_, err = f.ledger.Create(ctx, alice, f.request(2, at(11, 0), 60))
	require.NoError(t, err)
}

func TestLedger_OwnershipAndMissing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, NewMemoryStore())

	b, err := f.ledger.Create(ctx, alice, f.request(1, at(10, 0), 60))
	require.NoError(t, err)

	_, err = f.ledger.Modify(ctx, bob, b.ID, f.request(2, at(10, 0), 60))
	require.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.ledger.Cancel(ctx, bob, b.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.ledger.Cancel(ctx, alice, "does-not-exist")
	require.ErrorIs(t, err, domain.ErrNotFound)

	admin := domain.Identity{Email: "ops@smash.test", Role: domain.RoleAdmin}
	moved, err := f.ledger.Modify(ctx, admin, b.ID, f.request(2, at(10, 0), 60))
	require.NoError(t, err)
	assert.Equal(t, alice.Email, moved.UserEmail)

	_, err = f.ledger.Cancel(ctx, alice, b.ID)
	require.NoError(t, err)
	_, err = f.ledger.Cancel(ctx, alice, b.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLedger_ModifyIntoOwnSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, NewMemoryStore())

	b, err := f.ledger.Create(ctx, alice, f.request(1, at(10, 0), 60))
	require.NoError(t, err)

	// Extending over the booking's own time must not conflict with itself.
	moved, err := f.ledger.Modify(ctx, alice, b.ID, f.request(1, at(10, 30), 90))
	require.NoError(t, err)
	assert.Equal(t, at(12, 0), moved.End)

	other, err := f.ledger.Create(ctx, bob, f.request(1, at(12, 0), 60))
	require.NoError(t, err)
	_, err = f.ledger.Modify(ctx, alice, b.ID, f.request(1, at(11, 30), 60))
	require.ErrorIs(t, err, domain.ErrSlotNoLongerAvailable)

	// The failed move leaves the original untouched.
	got, err := f.ledger.DayBookings(ctx, f.academy, "badminton", day)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, at(10, 30), got[0].Start)
	assert.Equal(t, other.ID, got[1].ID)
}

func TestLedger_ModifyToUnknownAcademy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, NewMemoryStore())

	b, err := f.ledger.Create(ctx, alice, f.request(1, at(10, 0), 60))
	require.NoError(t, err)

	req := f.request(1, at(11, 0), 60)
	req.AcademyID = "another"
	_, err = f.ledger.Modify(ctx, alice, b.ID, req)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLedger_ConcurrentCreatesSameSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, NewMemoryStore())

	const n = 32
	var (
		wg       sync.WaitGroup
		ok       atomic.Int32
		conflict atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			who := domain.Identity{Email: fmt.Sprintf("player%d@example.com", i)}
			_, err := f.ledger.Create(ctx, who, f.request(1, at(18, 0), 60))
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrSlotNoLongerAvailable):
				conflict.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, ok.Load())
	assert.EqualValues(t, n-1, conflict.Load())
}

func TestLedger_RandomWritesNeverOverlap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, NewMemoryStore())
	rng := rand.New(rand.NewSource(7))
	users := []domain.Identity{alice, bob}

	var ids []string
	for i := 0; i < 400; i++ {
		who := users[rng.Intn(len(users))]
		court := 1 + rng.Intn(2)
		start := at(8, 0) + 30*rng.Intn(22)
		dur := 30 * (1 + rng.Intn(4))

		switch op := rng.Intn(3); {
		case op == 0 || len(ids) == 0:
			b, err := f.ledger.Create(ctx, who, f.request(court, start, dur))
			if err == nil {
				ids = append(ids, b.ID)
			}
		case op == 1:
			_, _ = f.ledger.Modify(ctx, who, ids[rng.Intn(len(ids))], f.request(court, start, dur))
		default:
			_, _ = f.ledger.Cancel(ctx, who, ids[rng.Intn(len(ids))])
		}

		active, err := f.ledger.DayBookings(ctx, f.academy, "badminton", day)
		require.NoError(t, err)
		for x := range active {
			for y := x + 1; y < len(active); y++ {
				a, b := active[x], active[y]
				if a.CourtNumber == b.CourtNumber {
					require.False(t, a.Overlaps(b.Start, b.End), "overlap between %s and %s", a.ID, b.ID)
				}
			}
		}
	}
}

func TestLedger_ListForAcademy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, NewMemoryStore())

	_, err := f.ledger.Create(ctx, alice, f.request(2, at(9, 0), 60))
	require.NoError(t, err)
	_, err = f.ledger.Create(ctx, bob, f.request(1, at(9, 0), 30))
	require.NoError(t, err)
	next := f.request(1, at(8, 0), 60)
	next.Date = day.AddDays(1)
	_, err = f.ledger.Create(ctx, alice, next)
	require.NoError(t, err)

	got, err := f.ledger.ListForAcademy(ctx, f.academy, day, day.AddDays(1), "BADMINTON")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 1, got[0].CourtNumber)
	assert.Equal(t, 2, got[1].CourtNumber)
	assert.Equal(t, next.Date, got[2].Date)

	got, err = f.ledger.ListForAcademy(ctx, f.academy, day, day, "")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = f.ledger.ListForAcademy(ctx, f.academy, day.AddDays(1), day, "")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "endDate", verr.Field)

	mine, err := f.ledger.ListForUser(ctx, domain.Identity{Email: "ALICE@example.com"})
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

// flakyStore fails the first failures transactions before delegating.
type flakyStore struct {
	Store
	failures atomic.Int32
	calls    atomic.Int32
}

func (s *flakyStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.calls.Add(1)
	if s.failures.Add(-1) >= 0 {
		return errors.New("connection reset by peer")
	}
	return s.Store.InTx(ctx, fn)
}

func TestLedger_RetriesStorageFailureOnce(t *testing.T) {
	ctx := context.Background()

	store := &flakyStore{Store: NewMemoryStore()}
	store.failures.Store(1)
	f := newFixture(t, store)
	_, err := f.ledger.Create(ctx, alice, f.request(1, at(10, 0), 60))
	require.NoError(t, err)
	assert.EqualValues(t, 2, store.calls.Load())

	store.calls.Store(0)
	store.failures.Store(2)
	_, err = f.ledger.Create(ctx, alice, f.request(2, at(10, 0), 60))
	require.ErrorIs(t, err, domain.ErrStorage)
	assert.NotContains(t, err.Error(), "connection reset")
	assert.EqualValues(t, 2, store.calls.Load())

	store.calls.Store(0)
	_, err = f.ledger.Create(ctx, alice, f.request(1, at(10, 0), 60))
	require.ErrorIs(t, err, domain.ErrSlotNoLongerAvailable)
	assert.EqualValues(t, 1, store.calls.Load())
}
