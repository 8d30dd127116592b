package system

import (
	"context"
	"fmt"

	"github.com/seicologia/agenda/internal/cli"
	"github.com/seicologia/agenda/internal/storage"
)

type MigrateCmd struct {
	Status bool `help:"List migrations and whether they are applied, without changing anything."`
}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	mgr, ok := ctx.Store.(storage.SchemaManager)
	if !ok {
		return fmt.Errorf("migrate command only supports SQLite and PostgreSQL storage")
	}
	if err := mgr.Connect(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	defer ctx.Store.Close()

	if c.Status {
		statuses, err := mgr.MigrationStatus(context.Background())
		if err != nil {
			return fmt.Errorf("failed to read migration status: %w", err)
		}
		for _, s := range statuses {
			mark := " "
			if s.Applied {
				mark = "✓"
			}
			fmt.Fprintf(ctx.Out(), "  [%s] %03d %s\n", mark, s.Version, s.Name)
		}
		return nil
	}

	count, err := mgr.Migrate(context.Background())
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if count == 0 {
		fmt.Fprintln(ctx.Out(), "No migrations to apply. Database is up to date.")
	} else {
		fmt.Fprintf(ctx.Out(), "Successfully applied %d migration(s).\n", count)
	}
	return nil
}
