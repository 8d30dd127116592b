package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/seicologia/agenda/internal/constants"
	"github.com/seicologia/agenda/internal/storage"
	"github.com/seicologia/agenda/internal/storage/sqlstore"
)

type Store struct {
	sqlstore.Store
	connStr string
}

var (
	_ storage.Provider      = (*Store)(nil)
	_ storage.SchemaManager = (*Store)(nil)
)

func New(connStr string) *Store {
	return &Store{
		Store:   sqlstore.Store{Dialect: sqlstore.Postgres},
		connStr: withSearchPath(connStr),
	}
}

func (s *Store) connect() error {
	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		if strings.Contains(err.Error(), "SSL is not enabled on the server") && !hasParam(s.connStr, "sslmode") {
			return fmt.Errorf("failed to connect to database: %w (hint: try adding ?sslmode=disable to your connection string)", err)
		}
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	s.DB = db
	return nil
}

func (s *Store) Init() error {
	if s.DB == nil {
		if err := s.connect(); err != nil {
			return err
		}
	}

	if _, err := s.DB.Exec("CREATE SCHEMA IF NOT EXISTS " + constants.AppName); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if _, err := s.Migrate(context.Background()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := s.EnsureDefaultSettings(); err != nil {
		return fmt.Errorf("failed to save default settings: %w", err)
	}

	return nil
}

// Connect opens the pool without checking the schema version.
func (s *Store) Connect() error {
	if s.DB != nil {
		return nil
	}
	return s.connect()
}

func (s *Store) Load() error {
	if err := s.Connect(); err != nil {
		return err
	}
	return s.ValidateSchema(context.Background())
}

func (s *Store) Close() error {
	if s.DB != nil {
		err := s.DB.Close()
		s.DB = nil
		return err
	}
	return nil
}

// GetConfigPath returns a redacted form of the connection string.
func (s *Store) GetConfigPath() string {
	return "postgres:" + constants.AppName
}
