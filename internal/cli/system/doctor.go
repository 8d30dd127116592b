package system

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/seicologia/agenda/internal/backup"
	"github.com/seicologia/agenda/internal/cli"
	"github.com/seicologia/agenda/internal/instance"
	"github.com/seicologia/agenda/internal/storage"
	"github.com/seicologia/agenda/internal/storage/sqlite"
	"github.com/seicologia/agenda/internal/utils"
	"github.com/seicologia/agenda/internal/validation"
)

type DoctorCmd struct{}

type checkStatus int

const (
	checkOK checkStatus = iota
	checkFail
	checkWarn
	checkSkip
)

type check struct {
	name    string
	needsDB bool
	run     func(ctx *cli.Context) (checkStatus, error)
}

var doctorChecks = []check{
	{"Database reachable", false, checkDBReachable},
	{"Schema version", true, checkSchemaVersion},
	{"Migrations complete", true, checkMigrationsComplete},
	{"Backups present", true, checkBackupsPresent},
	{"Data validation", true, checkValidation},
	{"Stored settings", true, checkStoredSettings},
	{"Clock/timezone", false, checkClockTimezone},
	{"Server instance", false, checkServerInstance},
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	out := ctx.Out()
	fmt.Fprintln(out, "Running diagnostics...")
	fmt.Fprintln(out)

	hasError := false
	reachable := true
	for _, c := range doctorChecks {
		if !reachable && c.needsDB {
			fmt.Fprintf(out, "⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		status, err := c.run(ctx)
		switch status {
		case checkOK:
			fmt.Fprintf(out, "✓ %s: OK\n", c.name)
		case checkFail:
			fmt.Fprintf(out, "❌ %s: FAIL\n", c.name)
			fmt.Fprintf(out, "   Error: %v\n", err)
			hasError = true
			if c.name == "Database reachable" {
				reachable = false
			}
		case checkWarn:
			fmt.Fprintf(out, "⚠ %s: WARNING\n", c.name)
			fmt.Fprintf(out, "   %v\n", err)
		case checkSkip:
			fmt.Fprintf(out, "⊘ %s: SKIPPED (%v)\n", c.name, err)
		}
	}

	fmt.Fprintln(out)
	if hasError {
		fmt.Fprintln(out, "Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	fmt.Fprintln(out, "All diagnostics passed!")
	return nil
}

func checkDBReachable(ctx *cli.Context) (checkStatus, error) {
	if mgr, ok := ctx.Store.(storage.SchemaManager); ok {
		if err := mgr.Connect(); err != nil {
			return checkFail, fmt.Errorf("failed to connect: %w", err)
		}
	} else if err := ctx.Store.Load(); err != nil {
		return checkFail, fmt.Errorf("failed to load database: %w", err)
	}

	if dbStore, ok := ctx.Store.(interface{ GetDB() *sql.DB }); ok {
		db := dbStore.GetDB()
		if db == nil {
			return checkFail, fmt.Errorf("database connection is nil")
		}
		var result int
		if err := db.QueryRow("SELECT 1").Scan(&result); err != nil {
			return checkFail, fmt.Errorf("failed to query database: %w", err)
		}
	}
	return checkOK, nil
}

func checkSchemaVersion(ctx *cli.Context) (checkStatus, error) {
	mgr, ok := ctx.Store.(storage.SchemaManager)
	if !ok {
		return checkSkip, fmt.Errorf("storage has no schema")
	}
	if err := mgr.ValidateSchema(context.Background()); err != nil {
		return checkFail, err
	}
	return checkOK, nil
}

func checkMigrationsComplete(ctx *cli.Context) (checkStatus, error) {
	mgr, ok := ctx.Store.(storage.SchemaManager)
	if !ok {
		return checkSkip, fmt.Errorf("storage has no migrations")
	}
	statuses, err := mgr.MigrationStatus(context.Background())
	if err != nil {
		return checkFail, fmt.Errorf("failed to read migration status: %w", err)
	}
	pending := 0
	for _, s := range statuses {
		if !s.Applied {
			pending++
		}
	}
	if pending > 0 {
		return checkFail, fmt.Errorf("%d migration(s) pending, run 'agenda migrate'", pending)
	}
	return checkOK, nil
}

func checkBackupsPresent(ctx *cli.Context) (checkStatus, error) {
	if _, ok := ctx.Store.(*sqlite.Store); !ok {
		return checkSkip, fmt.Errorf("backups are only taken for SQLite databases")
	}
	mgr := backup.NewManager(ctx.Store.GetConfigPath())
	backups, err := mgr.List()
	if err != nil {
		return checkWarn, fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return checkWarn, fmt.Errorf("no backups found - consider creating one with 'agenda backup create'")
	}
	return checkOK, nil
}

func checkValidation(ctx *cli.Context) (checkStatus, error) {
	ws, err := ctx.Workspace()
	if err != nil {
		return checkFail, err
	}
	result := validation.Roster(ws.Patients())
	if result.HasIssues() {
		return checkWarn, fmt.Errorf("%d issue(s) found, run 'agenda validate' for details", len(result.Issues))
	}
	return checkOK, nil
}

func checkClockTimezone(ctx *cli.Context) (checkStatus, error) {
	now := time.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return checkFail, fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	if ctx.Timezone != "" && !utils.ValidateTimezone(ctx.Timezone) {
		return checkFail, fmt.Errorf("unknown timezone %q", ctx.Timezone)
	}
	return checkOK, nil
}

func checkStoredSettings(ctx *cli.Context) (checkStatus, error) {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return checkFail, fmt.Errorf("failed to read settings: %w", err)
	}
	if !utils.ValidateTimezone(settings.Timezone) {
		return checkFail, fmt.Errorf("stored timezone %q is unknown", settings.Timezone)
	}
	return checkOK, nil
}

func checkServerInstance(ctx *cli.Context) (checkStatus, error) {
	srv, err := instance.Find(ctx.LockPath())
	if err != nil {
		return checkOK, nil
	}
	return checkWarn, fmt.Errorf("agenda serve is running on this workspace (%s); edit through its API while it runs", srv)
}
