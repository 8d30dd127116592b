package system

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/seicologia/agenda/internal/cli"
	"github.com/seicologia/agenda/internal/storage"
)

type DebugCmd struct {
	DBPath      DebugDBPathCmd      `cmd:"" name:"db-path" help:"Show database path."`
	DumpState   DebugDumpStateCmd   `cmd:"" help:"Dump session and payment overrides as JSON."`
	DumpPatient DebugDumpPatientCmd `cmd:"" help:"Dump patient data as JSON."`
}

type DebugDBPathCmd struct{}

func (cmd *DebugDBPathCmd) Run(ctx *cli.Context) error {
	return writeJSON(ctx.Out(), map[string]string{
		"path": ctx.Store.GetConfigPath(),
	})
}

type DebugDumpStateCmd struct{}

func (cmd *DebugDumpStateCmd) Run(ctx *cli.Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	st, err := ctx.Store.LoadState(ws.Location())
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}
	return writeJSON(ctx.Out(), st)
}

type DebugDumpPatientCmd struct {
	ID string `arg:"" help:"ID or name of the patient to dump."`
}

func (cmd *DebugDumpPatientCmd) Run(ctx *cli.Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	p, err := ws.FindPatient(cmd.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("patient not found: %s", cmd.ID)
		}
		return fmt.Errorf("failed to get patient: %w", err)
	}
	return writeJSON(ctx.Out(), p)
}

func writeJSON(w io.Writer, v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(w, string(jsonBytes))
	return nil
}
