package catalog

import (
	"context"

	"court-booking-service/internal/domain"
)

// Store persists academies and their sport configurations. Lookups of a
// missing academy return an error wrapping domain.ErrNotFound.
type Store interface {
	CreateAcademy(ctx context.Context, a *domain.Academy) error
	AcademyByID(ctx context.Context, id string) (*domain.Academy, error)
	AcademyByEmail(ctx context.Context, email string) (*domain.Academy, error)
	// SaveSports upserts cfgs by sport name in one atomic write.
	SaveSports(ctx context.Context, academyID string, cfgs ...domain.SportConfig) error
	Cities(ctx context.Context) ([]string, error)
	SportsInCity(ctx context.Context, city string) ([]string, error)
	AcademiesInCity(ctx context.Context, city, sport string) ([]domain.Academy, error)
}
