package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateAcademiesTable, downCreateAcademiesTable)
}

func upCreateAcademiesTable(ctx context.Context, tx *sql.Tx) error {
	query := `
	CREATE TABLE academies (
	  id UUID PRIMARY KEY,
	  name TEXT NOT NULL,
	  email TEXT UNIQUE NOT NULL,
	  phone TEXT NOT NULL DEFAULT '',
	  address TEXT NOT NULL DEFAULT '',
	  city TEXT NOT NULL,
	  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);
	CREATE INDEX academies_city_idx ON academies (city);
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}

func downCreateAcademiesTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS academies;`)
	return err
}
