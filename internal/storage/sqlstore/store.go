// Package sqlstore holds the queries shared by the SQLite and PostgreSQL backends.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"

	"github.com/seicologia/agenda/internal/logger"
	"github.com/seicologia/agenda/internal/migration"
	"github.com/seicologia/agenda/migrations"
)

// Placeholder is the bind variable style of a driver.
type Placeholder int

const (
	Question Placeholder = iota // ?
	Dollar                      // $1, $2, ...
)

// Dialect describes the differences between backends the shared queries care about.
type Dialect struct {
	Name        string // subdirectory of the embedded migrations
	Placeholder Placeholder
}

var (
	SQLite   = Dialect{Name: "sqlite", Placeholder: Question}
	Postgres = Dialect{Name: "postgres", Placeholder: Dollar}
)

// Rebind rewrites ? placeholders for the dialect. Queries must not contain
// literal question marks.
func (d Dialect) Rebind(query string) string {
	if d.Placeholder != Dollar {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Store implements the data methods of storage.Provider over a *sql.DB.
// Backends embed it and add their own lifecycle.
type Store struct {
	DB      *sql.DB
	Dialect Dialect
}

func (s *Store) q(query string) string {
	return s.Dialect.Rebind(query)
}

func (s *Store) migrationRunner() (*migration.Runner, error) {
	subFS, err := fs.Sub(migrations.FS, s.Dialect.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to access %s migrations: %w", s.Dialect.Name, err)
	}
	return migration.NewRunner(s.DB, subFS), nil
}

// Migrate applies every pending migration of the dialect.
func (s *Store) Migrate(ctx context.Context) (int, error) {
	runner, err := s.migrationRunner()
	if err != nil {
		return 0, err
	}
	return runner.Apply(ctx, func(msg string) {
		logger.Info(msg, "dialect", s.Dialect.Name)
	})
}

// MigrationStatus lists the dialect's migrations and whether each is applied.
func (s *Store) MigrationStatus(ctx context.Context) ([]migration.Status, error) {
	runner, err := s.migrationRunner()
	if err != nil {
		return nil, err
	}
	return runner.Statuses(ctx)
}

// ValidateSchema fails when the database schema does not match the binary.
func (s *Store) ValidateSchema(ctx context.Context) error {
	runner, err := s.migrationRunner()
	if err != nil {
		return err
	}
	return runner.ValidateVersion(ctx)
}

// EnsureDefaultSettings writes the default settings when none are stored yet.
func (s *Store) EnsureDefaultSettings() error {
	var count int
	if err := s.DB.QueryRow("SELECT count(*) FROM settings").Scan(&count); err != nil {
		return fmt.Errorf("failed to count settings: %w", err)
	}
	if count > 0 {
		return nil
	}
	return s.SaveSettings(defaultSettings())
}

// GetDB returns the underlying database connection.
func (s *Store) GetDB() *sql.DB {
	return s.DB
}
