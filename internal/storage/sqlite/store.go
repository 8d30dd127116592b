package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/seicologia/agenda/internal/storage"
	"github.com/seicologia/agenda/internal/storage/sqlstore"
)

type Store struct {
	sqlstore.Store
	path string
}

var (
	_ storage.Provider      = (*Store)(nil)
	_ storage.SchemaManager = (*Store)(nil)
)

func NewStore(path string) *Store {
	return &Store{
		Store: sqlstore.Store{Dialect: sqlstore.SQLite},
		path:  path,
	}
}

func (s *Store) open() error {
	// busy_timeout keeps the debounced writer from failing while a backup holds the file.
	db, err := sql.Open("sqlite", s.path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.DB = db
	return nil
}

func (s *Store) Init() error {
	// Create config directory if it doesn't exist
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if s.DB == nil {
		if err := s.open(); err != nil {
			return err
		}
	}

	if _, err := s.Migrate(context.Background()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := s.EnsureDefaultSettings(); err != nil {
		return fmt.Errorf("failed to save default settings: %w", err)
	}

	return nil
}

// Connect opens an existing database without checking its schema version.
func (s *Store) Connect() error {
	if s.DB != nil {
		return nil
	}
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return storage.ErrNotInitialized
	}
	return s.open()
}

func (s *Store) Load() error {
	if s.DB != nil {
		return nil
	}
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

func (s *Store) GetConfigPath() string {
	return s.path
}
