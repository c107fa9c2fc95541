package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"court-booking-service/internal/domain"
	"court-booking-service/internal/timeslot"
)

const bookingColumns = `id, academy_id, sport, court_number, booking_date, start_minute, end_minute,
	user_email, user_id, price, status, created_at, updated_at`

// PostgresStore keeps bookings in Postgres. Writers serialise per partition
// with transaction-scoped advisory locks; the bookings_no_overlap exclusion
// constraint rejects anything that slips past them.
type PostgresStore struct {
	DB *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{DB: db}
}

func (p *PostgresStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := p.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	return mapPgError(tx.Commit(ctx))
}

func (p *PostgresStore) DayBookings(ctx context.Context, academyID, sport string, date timeslot.Date) ([]domain.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings
	      WHERE academy_id=$1 AND sport=$2 AND booking_date=$3 AND status='active'
	      ORDER BY court_number, start_minute`
	return p.query(ctx, q, academyID, sport, date.In(time.UTC))
}

func (p *PostgresStore) UserBookings(ctx context.Context, email string) ([]domain.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings
	      WHERE lower(user_email)=lower($1) AND status='active'
	      ORDER BY booking_date, start_minute, court_number`
	return p.query(ctx, q, email)
}

func (p *PostgresStore) AcademyBookings(ctx context.Context, academyID string, from, to timeslot.Date, sport string) ([]domain.Booking, error) {
	if _, err := uuid.Parse(academyID); err != nil {
		return []domain.Booking{}, nil
	}
	q := `SELECT ` + bookingColumns + ` FROM bookings
	      WHERE academy_id=$1 AND booking_date >= $2 AND booking_date <= $3
	        AND ($4 = '' OR sport=$4) AND status='active'
	      ORDER BY booking_date, start_minute, court_number`
	return p.query(ctx, q, academyID, from.In(time.UTC), to.In(time.UTC), sport)
}

func (p *PostgresStore) query(ctx context.Context, q string, args ...any) ([]domain.Booking, error) {
	rows, err := p.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, scanBooking)
	if out == nil && err == nil {
		out = []domain.Booking{}
	}
	return out, err
}

func scanBooking(row pgx.CollectableRow) (domain.Booking, error) {
	var (
		b      domain.Booking
		date   time.Time
		status string
	)
	err := row.Scan(&b.ID, &b.AcademyID, &b.Sport, &b.CourtNumber, &date, &b.Start, &b.End,
		&b.UserEmail, &b.UserID, &b.Price, &status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return domain.Booking{}, err
	}
	b.Date = timeslot.DateOf(date)
	b.Status = domain.BookingStatus(status)
	return b, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Lock(ctx context.Context, parts ...Partition) error {
	for _, key := range lockOrder(parts) {
		if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) Get(ctx context.Context, id string) (domain.Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Booking{}, fmt.Errorf("%w: booking %s", domain.ErrNotFound, id)
	}
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id=$1 AND status='active' FOR UPDATE`
	rows, err := t.tx.Query(ctx, q, id)
	if err != nil {
		return domain.Booking{}, err
	}
	b, err := pgx.CollectExactlyOneRow(rows, scanBooking)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Booking{}, fmt.Errorf("%w: booking %s", domain.ErrNotFound, id)
	}
	return b, err
}

func (t *pgTx) CourtBookings(ctx context.Context, p Partition) ([]domain.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings
	      WHERE academy_id=$1 AND sport=$2 AND court_number=$3 AND booking_date=$4 AND status='active'`
	rows, err := t.tx.Query(ctx, q, p.AcademyID, p.Sport, p.Court, p.Date.In(time.UTC))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanBooking)
}

func (t *pgTx) Insert(ctx context.Context, b domain.Booking) error {
	q := `INSERT INTO bookings (` + bookingColumns + `)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err := t.tx.Exec(ctx, q, b.ID, b.AcademyID, b.Sport, b.CourtNumber, b.Date.In(time.UTC), b.Start, b.End,
		b.UserEmail, b.UserID, b.Price, string(b.Status), b.CreatedAt, b.UpdatedAt)
	return mapPgError(err)
}

func (t *pgTx) Update(ctx context.Context, b domain.Booking) error {
	q := `UPDATE bookings
	      SET court_number=$2, booking_date=$3, start_minute=$4, end_minute=$5,
	          price=$6, status=$7, updated_at=$8
	      WHERE id=$1`
	tag, err := t.tx.Exec(ctx, q, b.ID, b.CourtNumber, b.Date.In(time.UTC), b.Start, b.End,
		b.Price, string(b.Status), b.UpdatedAt)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: booking %s", domain.ErrNotFound, b.ID)
	}
	return nil
}

// mapPgError turns an exclusion violation into the domain conflict and a
// check violation into a validation error, so neither is retried.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23P01":
		return fmt.Errorf("%w: %s", domain.ErrSlotNoLongerAvailable, pgErr.ConstraintName)
	case "23514":
		return domain.Invalid("booking", "violates %s", pgErr.ConstraintName)
	}
	return err
}
