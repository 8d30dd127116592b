package system

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/seicologia/agenda/internal/cli"
	"github.com/seicologia/agenda/internal/storage"
	"github.com/seicologia/agenda/internal/storage/postgres"
	"github.com/seicologia/agenda/internal/utils"
)

type InitCmd struct {
	Force  bool   `help:"Force reset by deleting existing database before initialization."`
	Source string `help:"Source database path or connection string to copy data from."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		if err := c.reset(ctx); err != nil {
			return err
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out(), "Initialized agenda storage at: %s\n", ctx.Store.GetConfigPath())

	if c.Source != "" {
		fmt.Fprintf(ctx.Out(), "Copying data from: %s\n", c.Source)
		if err := c.copyData(ctx); err != nil {
			return fmt.Errorf("copy failed: %w", err)
		}
		fmt.Fprintln(ctx.Out(), "Copy completed successfully!")
	}
	return nil
}

// reset removes a file-backed database. PostgreSQL databases are never dropped.
func (c *InitCmd) reset(ctx *cli.Context) error {
	if _, ok := ctx.Store.(*postgres.Store); ok {
		return fmt.Errorf("--force only resets file databases")
	}
	dbPath := ctx.Store.GetConfigPath()
	if abs, err := filepath.Abs(dbPath); err == nil {
		dbPath = abs
	}
	if c.Source != "" {
		if absSource, err := filepath.Abs(c.Source); err == nil && absSource == dbPath {
			return fmt.Errorf("cannot use --force when source and destination are the same: %s", dbPath)
		}
	}

	if _, err := os.Stat(dbPath); err == nil {
		if err := ctx.Store.Close(); err != nil {
			return fmt.Errorf("failed to close existing database: %w", err)
		}
		if err := os.Remove(dbPath); err != nil {
			return fmt.Errorf("failed to delete existing database: %w", err)
		}
		fmt.Fprintf(ctx.Out(), "Deleted existing database at: %s\n", dbPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to access existing database: %w", err)
	}
	return nil
}

func (c *InitCmd) copyData(ctx *cli.Context) error {
	source, err := cli.OpenStore(c.Source, "")
	if err != nil {
		return err
	}
	if err := source.Load(); err != nil {
		return fmt.Errorf("failed to load source database: %w", err)
	}
	defer source.Close()

	return CopyStore(ctx, source, ctx.Store)
}

// CopyStore copies settings, patients, the override state and session notes
// from src to dst.
func CopyStore(ctx *cli.Context, src, dst storage.Provider) error {
	out := ctx.Out()

	fmt.Fprintln(out, "  Copying settings...")
	settings, err := src.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings from source: %w", err)
	}
	if err := dst.SaveSettings(settings); err != nil {
		return fmt.Errorf("failed to save settings to destination: %w", err)
	}

	fmt.Fprintln(out, "  Copying patients...")
	patients, err := src.GetAllPatients()
	if err != nil {
		return fmt.Errorf("failed to get patients from source: %w", err)
	}
	for _, p := range patients {
		if err := dst.AddPatient(p); err != nil {
			return fmt.Errorf("failed to add patient %s: %w", p.ID, err)
		}
	}
	fmt.Fprintf(out, "    Copied %d patients\n", len(patients))

	fmt.Fprintln(out, "  Copying session and payment overrides...")
	loc, err := utils.LoadLocation(settings.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", settings.Timezone, err)
	}
	st, err := src.LoadState(loc)
	if err != nil {
		return fmt.Errorf("failed to load state from source: %w", err)
	}
	if err := dst.SaveState(st); err != nil {
		return fmt.Errorf("failed to save state to destination: %w", err)
	}
	fmt.Fprintf(out, "    Copied %d session overrides, %d extra sessions, %d payment overrides\n",
		len(st.Sessions), len(st.Extras), len(st.Payments))

	fmt.Fprintln(out, "  Copying session notes...")
	notes, err := src.GetNotes()
	if err != nil {
		return fmt.Errorf("failed to get notes from source: %w", err)
	}
	for _, n := range notes {
		if err := dst.UpsertNote(n); err != nil {
			return fmt.Errorf("failed to save note %s: %w", n.Key, err)
		}
	}
	fmt.Fprintf(out, "    Copied %d notes\n", len(notes))
	return nil
}
