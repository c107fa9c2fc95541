package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"court-booking-service/internal/availability"
	"court-booking-service/internal/catalog"
	"court-booking-service/internal/domain"
	"court-booking-service/internal/events"
	"court-booking-service/internal/timeslot"
)

var (
	tracer = otel.Tracer("court-booking-service/ledger")

	bookingOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_operations_total",
			Help: "Ledger write operations by outcome",
		},
		[]string{"operation", "result"},
	)
)

// BookingRequest names a court and time for create and modify.
type BookingRequest struct {
	availability.Request
	CourtNumber int
}

// Ledger is the authoritative record of bookings. Every write re-checks the
// target court inside the transaction that performs it.
type Ledger struct {
	store   Store
	configs availability.SportConfigs
	clock   timeslot.Clock
	events  events.Publisher
	newID   func() string
}

func New(store Store, configs availability.SportConfigs, clock timeslot.Clock, pub events.Publisher) *Ledger {
	if pub == nil {
		pub = events.Noop{}
	}
	return &Ledger{store: store, configs: configs, clock: clock, events: pub, newID: uuid.NewString}
}

// prepare validates req against its sport configuration and prices it.
func (l *Ledger) prepare(ctx context.Context, req *BookingRequest) (float64, error) {
	req.Sport = domain.NormalizeSport(req.Sport)
	if err := req.Validate(); err != nil {
		return 0, err
	}
	cfg, err := l.configs.SportConfig(ctx, req.AcademyID, req.Sport)
	if err != nil {
		return 0, err
	}
	if req.CourtNumber < 1 || req.CourtNumber > cfg.NumberOfCourts {
		return 0, domain.Invalid("courtNumber", "must be between 1 and %d", cfg.NumberOfCourts)
	}
	if err := availability.CheckWindow(cfg, req.Request, l.clock.Now()); err != nil {
		return 0, err
	}
	return catalog.PriceAt(cfg, req.CourtNumber, req.Start)
}

func (l *Ledger) Create(ctx context.Context, who domain.Identity, req BookingRequest) (domain.Booking, error) {
	ctx, span := tracer.Start(ctx, "ledger.Create", trace.WithAttributes(
		attribute.String("academy_id", req.AcademyID),
		attribute.Int("court", req.CourtNumber),
	))
	defer span.End()

	var created domain.Booking
	err := func() error {
		if strings.TrimSpace(who.Email) == "" {
			return domain.Invalid("userEmail", "required")
		}
		price, err := l.prepare(ctx, &req)
		if err != nil {
			return err
		}
		p := Partition{AcademyID: req.AcademyID, Sport: req.Sport, Court: req.CourtNumber, Date: req.Date}
		return l.transact(ctx, "create", func(ctx context.Context, tx Tx) error {
			if err := tx.Lock(ctx, p); err != nil {
				return err
			}
			existing, err := tx.CourtBookings(ctx, p)
			if err != nil {
				return err
			}
			if !availability.CourtFree(existing, req.CourtNumber, req.Start, req.End()) {
				return fmt.Errorf("%w: court %d on %s at %s", domain.ErrSlotNoLongerAvailable,
					req.CourtNumber, req.Date, timeslot.Format(req.Start))
			}
			now := l.clock.Now().UTC()
			b := domain.Booking{
				ID:          l.newID(),
				AcademyID:   req.AcademyID,
				Sport:       req.Sport,
				CourtNumber: req.CourtNumber,
				Date:        req.Date,
				Start:       req.Start,
				End:         req.End(),
				UserEmail:   strings.ToLower(strings.TrimSpace(who.Email)),
				UserID:      who.UserID,
				Price:       price,
				Status:      domain.BookingActive,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := tx.Insert(ctx, b); err != nil {
				return err
			}
			created = b
			return nil
		})
	}()
	if err != nil {
		return domain.Booking{}, l.fail(ctx, span, "create", err)
	}
	l.succeed(ctx, "create", events.BookingCreated, created)
	return created, nil
}

// Modify moves booking id to the court and time in req. The booking keeps
// its identity, academy and sport; its price is recomputed for the new slot.
func (l *Ledger) Modify(ctx context.Context, who domain.Identity, id string, req BookingRequest) (domain.Booking, error) {
	ctx, span := tracer.Start(ctx, "ledger.Modify", trace.WithAttributes(attribute.String("booking_id", id)))
	defer span.End()

	var updated domain.Booking
	err := func() error {
		if id == "" {
			return domain.Invalid("bookingId", "required")
		}
		price, err := l.prepare(ctx, &req)
		if err != nil {
			return err
		}
		target := Partition{AcademyID: req.AcademyID, Sport: req.Sport, Court: req.CourtNumber, Date: req.Date}
		return l.transact(ctx, "modify", func(ctx context.Context, tx Tx) error {
			cur, err := l.owned(ctx, tx, who, id)
			if err != nil {
				return err
			}
			if cur.AcademyID != req.AcademyID {
				return domain.Invalid("academyId", "a booking cannot move to another academy")
			}
			if cur.Sport != req.Sport {
				return domain.Invalid("sport", "a booking cannot change sport")
			}
			if err := tx.Lock(ctx, partitionOf(cur), target); err != nil {
				return err
			}
			existing, err := tx.CourtBookings(ctx, target)
			if err != nil {
				return err
			}
			others := existing[:0:0]
			for _, b := range existing {
				if b.ID != cur.ID {
					others = append(others, b)
				}
			}
			if !availability.CourtFree(others, req.CourtNumber, req.Start, req.End()) {
				return fmt.Errorf("%w: court %d on %s at %s", domain.ErrSlotNoLongerAvailable,
					req.CourtNumber, req.Date, timeslot.Format(req.Start))
			}
			cur.CourtNumber = req.CourtNumber
			cur.Date = req.Date
			cur.Start = req.Start
			cur.End = req.End()
			cur.Price = price
			cur.UpdatedAt = l.clock.Now().UTC()
			if err := tx.Update(ctx, cur); err != nil {
				return err
			}
			updated = cur
			return nil
		})
	}()
	if err != nil {
		return domain.Booking{}, l.fail(ctx, span, "modify", err)
	}
	l.succeed(ctx, "modify", events.BookingModified, updated)
	return updated, nil
}

// Cancel removes booking id from the active set and returns the cancelled
// record.
func (l *Ledger) Cancel(ctx context.Context, who domain.Identity, id string) (domain.Booking, error) {
	ctx, span := tracer.Start(ctx, "ledger.Cancel", trace.WithAttributes(attribute.String("booking_id", id)))
	defer span.End()

	var cancelled domain.Booking
	err := func() error {
		if id == "" {
			return domain.Invalid("bookingId", "required")
		}
		return l.transact(ctx, "cancel", func(ctx context.Context, tx Tx) error {
			cur, err := l.owned(ctx, tx, who, id)
			if err != nil {
				return err
			}
			if err := tx.Lock(ctx, partitionOf(cur)); err != nil {
				return err
			}
			cur.Status = domain.BookingCancelled
			cur.UpdatedAt = l.clock.Now().UTC()
			if err := tx.Update(ctx, cur); err != nil {
				return err
			}
			cancelled = cur
			return nil
		})
	}()
	if err != nil {
		return domain.Booking{}, l.fail(ctx, span, "cancel", err)
	}
	l.succeed(ctx, "cancel", events.BookingCancelled, cancelled)
	return cancelled, nil
}

// owned loads an active booking for update and checks who may change it.
// Bookings that already started are frozen.
func (l *Ledger) owned(ctx context.Context, tx Tx, who domain.Identity, id string) (domain.Booking, error) {
	cur, err := tx.Get(ctx, id)
	if err != nil {
		return domain.Booking{}, err
	}
	if !cur.OwnedBy(who) && !who.IsAdmin() {
		return domain.Booking{}, fmt.Errorf("%w: booking %s belongs to another user", domain.ErrForbidden, id)
	}
	if timeslot.IsPast(cur.Date, cur.Start, l.clock.Now()) {
		return domain.Booking{}, fmt.Errorf("%w: booking %s already started", domain.ErrPastTimeSlot, id)
	}
	return cur, nil
}

func (l *Ledger) ListForUser(ctx context.Context, who domain.Identity) ([]domain.Booking, error) {
	if strings.TrimSpace(who.Email) == "" {
		return nil, domain.Invalid("userEmail", "required")
	}
	return l.store.UserBookings(ctx, strings.TrimSpace(who.Email))
}

func (l *Ledger) ListForAcademy(ctx context.Context, academyID string, from, to timeslot.Date, sport string) ([]domain.Booking, error) {
	switch {
	case academyID == "":
		return nil, domain.Invalid("academyId", "required")
	case from.IsZero():
		return nil, domain.Invalid("startDate", "required")
	case to.IsZero():
		return nil, domain.Invalid("endDate", "required")
	case to.Before(from):
		return nil, domain.Invalid("endDate", "must not be before startDate")
	}
	return l.store.AcademyBookings(ctx, academyID, from, to, domain.NormalizeSport(sport))
}

// DayBookings is the snapshot the availability calculator reads.
func (l *Ledger) DayBookings(ctx context.Context, academyID, sport string, date timeslot.Date) ([]domain.Booking, error) {
	return l.store.DayBookings(ctx, academyID, domain.NormalizeSport(sport), date)
}

// transact runs fn once more when the store fails for a reason other than a
// business rule. A second failure is reported as ErrStorage without the
// underlying detail.
func (l *Ledger) transact(ctx context.Context, op string, fn func(ctx context.Context, tx Tx) error) error {
	err := l.store.InTx(ctx, fn)
	if err == nil || domain.IsRule(err) {
		return err
	}
	if ctx.Err() == nil {
		slog.WarnContext(ctx, "ledger transaction failed, retrying", "operation", op, "error", err)
		err = l.store.InTx(ctx, fn)
		if err == nil || domain.IsRule(err) {
			return err
		}
	}
	slog.ErrorContext(ctx, "ledger transaction failed", "operation", op, "error", err)
	return fmt.Errorf("%w: %s", domain.ErrStorage, op)
}

func (l *Ledger) fail(ctx context.Context, span trace.Span, op string, err error) error {
	result := "rejected"
	if errors.Is(err, domain.ErrStorage) {
		result = "error"
		span.SetStatus(codes.Error, err.Error())
	}
	span.RecordError(err)
	bookingOpsTotal.WithLabelValues(op, result).Inc()
	return err
}

func (l *Ledger) succeed(ctx context.Context, op, key string, b domain.Booking) {
	bookingOpsTotal.WithLabelValues(op, "ok").Inc()
	slog.InfoContext(ctx, "booking "+op,
		"booking_id", b.ID, "academy_id", b.AcademyID, "sport", b.Sport,
		"court", b.CourtNumber, "date", b.Date.String(), "start", timeslot.Format(b.Start))

	ev := events.BookingEvent{
		Event:      key,
		Version:    1,
		BookingID:  b.ID,
		AcademyID:  b.AcademyID,
		Sport:      b.Sport,
		Court:      b.CourtNumber,
		Date:       b.Date.String(),
		StartTime:  timeslot.Format(b.Start),
		EndTime:    timeslot.Format(b.End),
		UserEmail:  b.UserEmail,
		Price:      b.Price,
		OccurredAt: b.UpdatedAt,
	}
	// The booking is committed; a lost event must not undo it.
	if err := l.events.Publish(context.WithoutCancel(ctx), key, ev); err != nil {
		slog.WarnContext(ctx, "publish booking event failed", "key", key, "booking_id", b.ID, "error", err)
	}
}
