package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateBookingsTable, downCreateBookingsTable)
}

// Active bookings on the same court and day may not intersect. Ranges are
// half-open, so back-to-back bookings do not collide.
func upCreateBookingsTable(ctx context.Context, tx *sql.Tx) error {
	query := `
	CREATE EXTENSION IF NOT EXISTS btree_gist;

	CREATE TABLE bookings (
	  id UUID PRIMARY KEY,
	  academy_id UUID NOT NULL REFERENCES academies(id),
	  sport TEXT NOT NULL,
	  court_number INT NOT NULL CHECK (court_number >= 1),
	  booking_date DATE NOT NULL,
	  start_minute INT NOT NULL CHECK (start_minute >= 0 AND start_minute < 1440),
	  end_minute INT NOT NULL CHECK (end_minute > start_minute AND end_minute <= 1440),
	  user_email TEXT NOT NULL,
	  user_id TEXT NOT NULL DEFAULT '',
	  price DOUBLE PRECISION NOT NULL DEFAULT 0,
	  status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'cancelled')),
	  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
	  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
	  CONSTRAINT bookings_no_overlap EXCLUDE USING gist (
	    academy_id WITH =,
	    sport WITH =,
	    court_number WITH =,
	    booking_date WITH =,
	    int4range(start_minute, end_minute) WITH &&
	  ) WHERE (status = 'active')
	);
	CREATE INDEX bookings_user_email_idx ON bookings (lower(user_email)) WHERE status = 'active';
	CREATE INDEX bookings_academy_date_idx ON bookings (academy_id, booking_date) WHERE status = 'active';
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}

func downCreateBookingsTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS bookings;`)
	return err
}
