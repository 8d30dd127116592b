package system

import (
	"fmt"

	"github.com/seicologia/agenda/internal/cli"
	"github.com/seicologia/agenda/internal/validation"
)

type ValidateCmd struct{}

func (cmd *ValidateCmd) Run(ctx *cli.Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return fmt.Errorf("failed to load storage: %w", err)
	}

	fmt.Fprintln(ctx.Out(), "Validating patients...")
	result := validation.Roster(ws.Patients())

	fmt.Fprintln(ctx.Out())
	fmt.Fprintln(ctx.Out(), result.FormatReport())

	// Issues are reported, not returned as an error
	return nil
}
