package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"court-booking-service/internal/domain"
	"court-booking-service/internal/timeslot"
)

// Service owns academy sport configuration and pricing tables.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

type OnboardInput struct {
	Name    string
	Email   string
	Phone   string
	Address string
	City    string
}

func (s *Service) Onboard(ctx context.Context, in OnboardInput) (*domain.Academy, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, domain.Invalid("name", "required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, domain.Invalid("email", "must be a valid address")
	}
	if strings.TrimSpace(in.City) == "" {
		return nil, domain.Invalid("city", "required")
	}
	a := &domain.Academy{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:     strings.TrimSpace(in.Phone),
		Address:   strings.TrimSpace(in.Address),
		City:      strings.ToLower(strings.TrimSpace(in.City)),
		Sports:    []domain.SportConfig{},
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateAcademy(ctx, a); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "academy onboarded", "academy_id", a.ID, "city", a.City)
	return a, nil
}

func (s *Service) Academy(ctx context.Context, id string) (*domain.Academy, error) {
	return s.store.AcademyByID(ctx, id)
}

func (s *Service) AcademyByEmail(ctx context.Context, email string) (*domain.Academy, error) {
	return s.store.AcademyByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// SportConfig returns the configuration of sport at academyID.
func (s *Service) SportConfig(ctx context.Context, academyID, sport string) (domain.SportConfig, error) {
	a, err := s.store.AcademyByID(ctx, academyID)
	if err != nil {
		return domain.SportConfig{}, err
	}
	cfg, ok := a.Sport(sport)
	if !ok {
		return domain.SportConfig{}, fmt.Errorf("%w: sport %q at academy %s", domain.ErrNotFound, sport, academyID)
	}
	return cfg, nil
}

// UpsertSport validates cfg, regenerates its pricing table and stores it.
// cfg.Pricing is the prior table; when empty the stored table is used so a
// re-submission of unchanged hours keeps every price.
func (s *Service) UpsertSport(ctx context.Context, academyID string, cfg domain.SportConfig) (domain.SportConfig, error) {
	a, err := s.store.AcademyByID(ctx, academyID)
	if err != nil {
		return domain.SportConfig{}, err
	}
	cfg, err = s.prepare(a, cfg)
	if err != nil {
		return domain.SportConfig{}, err
	}
	if err := s.store.SaveSports(ctx, academyID, cfg); err != nil {
		return domain.SportConfig{}, err
	}
	slog.InfoContext(ctx, "sport configured",
		"academy_id", academyID, "sport", cfg.SportName,
		"courts", cfg.NumberOfCourts, "start", cfg.StartTime, "end", cfg.EndTime)
	return cfg, nil
}

// Configure upserts every submitted sport for the academy owned by email.
// Sports the academy already offers but that are not submitted stay as they
// are. Either every sport is written or none is.
func (s *Service) Configure(ctx context.Context, email string, sports []domain.SportConfig) (*domain.Academy, error) {
	if len(sports) == 0 {
		return nil, domain.Invalid("sports", "at least one sport is required")
	}
	a, err := s.AcademyByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(sports))
	prepared := make([]domain.SportConfig, 0, len(sports))
	for _, cfg := range sports {
		cfg, err := s.prepare(a, cfg)
		if err != nil {
			return nil, err
		}
		if seen[cfg.SportName] {
			return nil, domain.Invalid("sportName", "%q submitted twice", cfg.SportName)
		}
		seen[cfg.SportName] = true
		prepared = append(prepared, cfg)
	}
	if err := s.store.SaveSports(ctx, a.ID, prepared...); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "academy configured", "academy_id", a.ID, "sports", len(prepared))
	return s.store.AcademyByID(ctx, a.ID)
}

// Price returns the price of court at the slot containing startTime.
func (s *Service) Price(ctx context.Context, academyID, sport string, court int, startTime string) (float64, error) {
	cfg, err := s.SportConfig(ctx, academyID, sport)
	if err != nil {
		return 0, err
	}
	m, err := timeslot.Parse(startTime)
	if err != nil {
		return 0, domain.Invalid("startTime", "%v", err)
	}
	return PriceAt(cfg, court, m)
}

func (s *Service) Locations(ctx context.Context) ([]string, error) {
	return s.store.Cities(ctx)
}

func (s *Service) Sports(ctx context.Context, city string) ([]string, error) {
	return s.store.SportsInCity(ctx, strings.ToLower(strings.TrimSpace(city)))
}

func (s *Service) Search(ctx context.Context, city, sport string) ([]domain.Academy, error) {
	return s.store.AcademiesInCity(ctx, strings.ToLower(strings.TrimSpace(city)), domain.NormalizeSport(sport))
}

func (s *Service) prepare(a *domain.Academy, cfg domain.SportConfig) (domain.SportConfig, error) {
	cfg.SportName = domain.NormalizeSport(cfg.SportName)
	if cfg.SportName == "" {
		return cfg, domain.Invalid("sportName", "required")
	}
	if cfg.NumberOfCourts < 1 {
		return cfg, domain.Invalid("numberOfCourts", "must be at least 1, got %d", cfg.NumberOfCourts)
	}
	start, err := timeslot.Parse(cfg.StartTime)
	if err != nil {
		return cfg, domain.Invalid("startTime", "%v", err)
	}
	end, err := timeslot.Parse(cfg.EndTime)
	if err != nil {
		return cfg, domain.Invalid("endTime", "%v", err)
	}
	if start%timeslot.HourStep != 0 {
		return cfg, domain.Invalid("startTime", "must be on the hour")
	}
	if end%timeslot.HourStep != 0 {
		return cfg, domain.Invalid("endTime", "must be on the hour")
	}
	if start >= end {
		return cfg, domain.Invalid("endTime", "must be after startTime")
	}
	cfg.StartTime, cfg.EndTime = timeslot.Format(start), timeslot.Format(end)

	for _, c := range cfg.Pricing {
		for _, p := range c.Prices {
			if p.Price < 0 {
				return cfg, domain.Invalid("pricing", "court %d at %s has a negative price", c.CourtNumber, p.Time)
			}
		}
	}

	prior := cfg.Pricing
	if len(prior) == 0 {
		if stored, ok := a.Sport(cfg.SportName); ok {
			prior = stored.Pricing
		}
	}
	cfg.Pricing, err = RegeneratePricing(cfg, prior)
	if err != nil {
		return cfg, domain.Invalid("pricing", "%v", err)
	}
	return cfg, nil
}
