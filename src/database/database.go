package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	stdlog "log"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/logger"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var DB *sql.DB

// InitDB opens the database at databasePath, applies pending migrations and stores
// the handle in DB. Startup cannot continue without a store, so failures are fatal.
func InitDB(databasePath string) {
	db, err := Open(databasePath)
	if err != nil {
		logger.L.Error("failed to initialize database", "databasePath", databasePath, "error", err)
		stdlog.Fatalf("failed to initialize database at %s: %v", databasePath, err)
	}
	DB = db
	logger.L.Info("Database tables ensured/created.", "databasePath", databasePath)
}

// Open opens a sqlite database and migrates it to the latest schema version.
func Open(databasePath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn(databasePath))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One writer keeps the read-latest / insert pair of the sequence store consistent.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func dsn(path string) string {
	pragmas := "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	if strings.Contains(path, "?") {
		return path + "&" + pragmas
	}
	return "file:" + path + "?" + pragmas
}

func migrateUp(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	logger.L.Info("Checking database migrations")
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	logger.L.Info("Database schema ready", "version", version, "dirty", dirty)
	return nil
}
