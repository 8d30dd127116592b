package migration

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"

	"github.com/seicologia/agenda/migrations"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCurrentVersionFreshDatabase(t *testing.T) {
	runner := NewRunner(setupTestDB(t), fstest.MapFS{})

	version, err := runner.CurrentVersion(context.Background())
	if err != nil {
		t.Fatalf("CurrentVersion failed: %v", err)
	}
	if version != 0 {
		t.Errorf("expected version 0, got %d", version)
	}
}

func TestApplyInOrder(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	runner := NewRunner(db, fstest.MapFS{
		"002_add_col.sql": {Data: []byte("ALTER TABLE things ADD COLUMN label TEXT;")},
		"001_init.sql":    {Data: []byte("CREATE TABLE things (id INTEGER PRIMARY KEY);")},
		"README.md":       {Data: []byte("ignored")},
	})

	var logs []string
	applied, err := runner.Apply(ctx, func(s string) { logs = append(logs, s) })
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if applied != 2 {
		t.Errorf("expected 2 migrations applied, got %d", applied)
	}
	if _, err := db.Exec("INSERT INTO things (id, label) VALUES (1, 'x')"); err != nil {
		t.Errorf("schema not migrated: %v", err)
	}
	if !strings.Contains(strings.Join(logs, "\n"), "applied 002_add_col") {
		t.Errorf("missing progress log: %v", logs)
	}

	applied, err = runner.Apply(ctx, nil)
	if err != nil || applied != 0 {
		t.Errorf("second Apply = %d, %v; want 0, nil", applied, err)
	}
	if err := runner.ValidateVersion(ctx); err != nil {
		t.Errorf("ValidateVersion failed: %v", err)
	}
}

func TestApplyRollsBackFailedMigration(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	runner := NewRunner(db, fstest.MapFS{
		"001_init.sql":   {Data: []byte("CREATE TABLE things (id INTEGER PRIMARY KEY);")},
		"002_broken.sql": {Data: []byte("THIS IS NOT SQL;")},
	})

	applied, err := runner.Apply(ctx, nil)
	if err == nil {
		t.Fatal("expected an error from the broken migration")
	}
	if applied != 1 {
		t.Errorf("expected 1 applied migration, got %d", applied)
	}
	version, err := runner.CurrentVersion(ctx)
	if err != nil || version != 1 {
		t.Errorf("CurrentVersion = %d, %v; want 1", version, err)
	}
}

func TestReadMigrationFilesRejectsBadNames(t *testing.T) {
	tests := map[string]fstest.MapFS{
		"missing underscore": {"001.sql": {Data: []byte("")}},
		"non numeric":        {"abc_init.sql": {Data: []byte("")}},
		"zero version":       {"000_init.sql": {Data: []byte("")}},
		"duplicate":          {"001_a.sql": {Data: []byte("")}, "1_b.sql": {Data: []byte("")}},
	}
	for name, files := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := NewRunner(nil, files).ReadMigrationFiles(); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestValidateVersionDetectsDrift(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	files := fstest.MapFS{"001_init.sql": {Data: []byte("CREATE TABLE t (id INTEGER);")}}

	if err := NewRunner(db, files).ValidateVersion(ctx); err == nil {
		t.Error("expected behind-version error on a fresh database")
	}
	if _, err := NewRunner(db, files).Apply(ctx, nil); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if err := NewRunner(db, fstest.MapFS{}).ValidateVersion(ctx); err == nil {
		t.Error("expected newer-than-supported error")
	}
}

func TestEmbeddedSQLiteMigrations(t *testing.T) {
	ctx := context.Background()
	sub, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		t.Fatalf("sub fs: %v", err)
	}
	runner := NewRunner(setupTestDB(t), sub)
	if _, err := runner.Apply(ctx, nil); err != nil {
		t.Fatalf("embedded migrations failed: %v", err)
	}
	statuses, err := runner.Statuses(ctx)
	if err != nil {
		t.Fatalf("Statuses failed: %v", err)
	}
	for _, s := range statuses {
		if !s.Applied {
			t.Errorf("migration %d not applied", s.Version)
		}
	}
}
