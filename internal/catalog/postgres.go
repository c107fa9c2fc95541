package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"court-booking-service/internal/domain"
)

type PostgresStore struct {
	DB *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{DB: db}
}

func (p *PostgresStore) CreateAcademy(ctx context.Context, a *domain.Academy) error {
	q := `INSERT INTO academies (id, name, email, phone, address, city, created_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := p.DB.Exec(ctx, q, a.ID, a.Name, a.Email, a.Phone, a.Address, a.City, a.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: academy with email %s", domain.ErrAlreadyExists, a.Email)
	}
	return err
}

func (p *PostgresStore) AcademyByID(ctx context.Context, id string) (*domain.Academy, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: academy %s", domain.ErrNotFound, id)
	}
	return p.academy(ctx, `WHERE id=$1`, id)
}

func (p *PostgresStore) AcademyByEmail(ctx context.Context, email string) (*domain.Academy, error) {
	return p.academy(ctx, `WHERE email=$1`, email)
}

func (p *PostgresStore) academy(ctx context.Context, where string, arg string) (*domain.Academy, error) {
	q := `SELECT id, name, email, phone, address, city, created_at FROM academies ` + where
	var a domain.Academy
	err := p.DB.QueryRow(ctx, q, arg).Scan(&a.ID, &a.Name, &a.Email, &a.Phone, &a.Address, &a.City, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: academy %s", domain.ErrNotFound, arg)
	}
	if err != nil {
		return nil, err
	}
	sports, err := p.sports(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	a.Sports = sports
	return &a, nil
}

func (p *PostgresStore) sports(ctx context.Context, academyID string) ([]domain.SportConfig, error) {
	q := `SELECT sport_name, number_of_courts, start_time, end_time, pricing
	      FROM academy_sports WHERE academy_id=$1 ORDER BY created_at, sport_name`
	rows, err := p.DB.Query(ctx, q, academyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.SportConfig{}
	for rows.Next() {
		var s domain.SportConfig
		if err := rows.Scan(&s.SportName, &s.NumberOfCourts, &s.StartTime, &s.EndTime, &s.Pricing); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *PostgresStore) SaveSports(ctx context.Context, academyID string, cfgs ...domain.SportConfig) error {
	tx, err := p.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM academies WHERE id=$1)`, academyID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: academy %s", domain.ErrNotFound, academyID)
	}

	q := `INSERT INTO academy_sports
	      (academy_id, sport_name, number_of_courts, start_time, end_time, pricing, created_at, updated_at)
	      VALUES ($1,$2,$3,$4,$5,$6,now(),now())
	      ON CONFLICT (academy_id, sport_name) DO UPDATE
	      SET number_of_courts=EXCLUDED.number_of_courts, start_time=EXCLUDED.start_time,
	          end_time=EXCLUDED.end_time, pricing=EXCLUDED.pricing, updated_at=now()`
	for _, c := range cfgs {
		if _, err := tx.Exec(ctx, q, academyID, c.SportName, c.NumberOfCourts, c.StartTime, c.EndTime, c.Pricing); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (p *PostgresStore) Cities(ctx context.Context) ([]string, error) {
	return p.strings(ctx, `SELECT DISTINCT city FROM academies ORDER BY city`)
}

func (p *PostgresStore) SportsInCity(ctx context.Context, city string) ([]string, error) {
	return p.strings(ctx, `SELECT DISTINCT s.sport_name
	      FROM academy_sports s JOIN academies a ON a.id = s.academy_id
	      WHERE a.city=$1 ORDER BY s.sport_name`, city)
}

func (p *PostgresStore) AcademiesInCity(ctx context.Context, city, sport string) ([]domain.Academy, error) {
	q := `SELECT a.id FROM academies a
	      WHERE a.city=$1
	        AND ($2 = '' OR EXISTS (SELECT 1 FROM academy_sports s WHERE s.academy_id=a.id AND s.sport_name=$2))
	      ORDER BY a.created_at`
	ids, err := p.strings(ctx, q, city, sport)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Academy, 0, len(ids))
	for _, id := range ids {
		a, err := p.AcademyByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, nil
}

func (p *PostgresStore) strings(ctx context.Context, q string, args ...any) ([]string, error) {
	rows, err := p.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
