package availability

import (
	"context"
	"fmt"
	"time"

	"court-booking-service/internal/catalog"
	"court-booking-service/internal/domain"
	"court-booking-service/internal/timeslot"
)

// Request asks for a court of Sport at AcademyID on Date from Start for
// Duration minutes.
type Request struct {
	AcademyID string
	Sport     string
	Date      timeslot.Date
	Start     int
	Duration  int
}

func (r Request) End() int { return r.Start + r.Duration }

// Validate checks the request shape: bookings start on the half-hour grid,
// last a positive number of half-hours and end by midnight.
func (r Request) Validate() error {
	switch {
	case r.AcademyID == "":
		return domain.Invalid("academyId", "required")
	case domain.NormalizeSport(r.Sport) == "":
		return domain.Invalid("sport", "required")
	case r.Date.IsZero():
		return domain.Invalid("date", "required")
	case r.Start < 0 || r.Start >= timeslot.MinutesPerDay:
		return domain.Invalid("startTime", "out of range")
	case r.Start%timeslot.BookingStep != 0:
		return domain.Invalid("startTime", "must be on a %d minute boundary", timeslot.BookingStep)
	case r.Duration <= 0 || r.Duration%timeslot.BookingStep != 0:
		return domain.Invalid("duration", "must be a positive multiple of %d minutes", timeslot.BookingStep)
	case r.Duration > timeslot.MinutesPerDay-r.Start:
		return domain.Invalid("duration", "must end by midnight")
	}
	return nil
}

type Court struct {
	CourtNumber int     `json:"courtNumber"`
	Available   bool    `json:"available"`
	Price       float64 `json:"price"`
}

// Evaluate reports, for every court of cfg in ascending order, whether
// [Start, End) is free of the existing bookings and what it costs. existing
// must already be narrowed to the request's academy, sport and date.
func Evaluate(cfg domain.SportConfig, req Request, existing []domain.Booking, now time.Time) ([]Court, error) {
	if err := CheckWindow(cfg, req, now); err != nil {
		return nil, err
	}
	courts := make([]Court, 0, cfg.NumberOfCourts)
	for n := 1; n <= cfg.NumberOfCourts; n++ {
		price, err := catalog.PriceAt(cfg, n, req.Start)
		if err != nil {
			return nil, err
		}
		courts = append(courts, Court{
			CourtNumber: n,
			Available:   CourtFree(existing, n, req.Start, req.End()),
			Price:       price,
		})
	}
	return courts, nil
}

// CheckWindow rejects requests outside cfg's operating hours or before now.
func CheckWindow(cfg domain.SportConfig, req Request, now time.Time) error {
	opens, closes, err := cfg.Window()
	if err != nil {
		return err
	}
	if req.Start < opens || req.End() > closes {
		return fmt.Errorf("%w: %s-%s is outside %s-%s", domain.ErrOutOfOperatingHours,
			timeslot.Format(req.Start), timeslot.Format(req.End()), cfg.StartTime, cfg.EndTime)
	}
	if timeslot.IsPast(req.Date, req.Start, now) {
		return fmt.Errorf("%w: %s %s", domain.ErrPastTimeSlot, req.Date, timeslot.Format(req.Start))
	}
	return nil
}

// CourtFree reports whether no active booking on court intersects
// [start, end).
func CourtFree(existing []domain.Booking, court, start, end int) bool {
	for _, b := range existing {
		if b.Active() && b.CourtNumber == court && b.Overlaps(start, end) {
			return false
		}
	}
	return true
}

type SportConfigs interface {
	SportConfig(ctx context.Context, academyID, sport string) (domain.SportConfig, error)
}

// Bookings gives a consistent snapshot of one day's active bookings.
type Bookings interface {
	DayBookings(ctx context.Context, academyID, sport string, date timeslot.Date) ([]domain.Booking, error)
}

// Calculator answers availability queries. It keeps no state of its own.
type Calculator struct {
	configs  SportConfigs
	bookings Bookings
	clock    timeslot.Clock
}

func NewCalculator(configs SportConfigs, bookings Bookings, clock timeslot.Clock) *Calculator {
	return &Calculator{configs: configs, bookings: bookings, clock: clock}
}

func (c *Calculator) Check(ctx context.Context, req Request) ([]Court, error) {
	req.Sport = domain.NormalizeSport(req.Sport)
	if err := req.Validate(); err != nil {
		return nil, err
	}
	cfg, err := c.configs.SportConfig(ctx, req.AcademyID, req.Sport)
	if err != nil {
		return nil, err
	}
	existing, err := c.bookings.DayBookings(ctx, req.AcademyID, req.Sport, req.Date)
	if err != nil {
		return nil, err
	}
	return Evaluate(cfg, req, existing, c.clock.Now())
}
