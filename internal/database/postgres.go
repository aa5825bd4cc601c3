package database

import (
	"database/sql"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type PgDmRepository struct {
	conn *sql.DB
}

func NewPgDmRepository(dsn string) (*PgDmRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PgDmRepository{conn: db}, nil
}

func (db *PgDmRepository) Ping() error {
	return db.conn.Ping()
}

// Migrate applies the embedded schema migrations. Safe to run on every
// startup; a current schema is not an error.
func (db *PgDmRepository) Migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	driver, err := pgmigrate.WithInstance(db.conn, &pgmigrate.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

func (db *PgDmRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
