package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateAcademySportsTable, downCreateAcademySportsTable)
}

func upCreateAcademySportsTable(ctx context.Context, tx *sql.Tx) error {
	query := `
	CREATE TABLE academy_sports (
	  academy_id UUID NOT NULL REFERENCES academies(id) ON DELETE CASCADE,
	  sport_name TEXT NOT NULL,
	  number_of_courts INT NOT NULL CHECK (number_of_courts >= 1),
	  start_time TEXT NOT NULL,
	  end_time TEXT NOT NULL,
	  pricing JSONB NOT NULL DEFAULT '[]',
	  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
	  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
	  PRIMARY KEY (academy_id, sport_name)
	);
	CREATE INDEX academy_sports_sport_idx ON academy_sports (sport_name);
	`
	_, err := tx.ExecContext(ctx, query)
	return err
}

func downCreateAcademySportsTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS academy_sports;`)
	return err
}
