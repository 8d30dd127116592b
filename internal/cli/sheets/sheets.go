package sheets

import (
	"fmt"
	"os"

	"github.com/seicologia/agenda/internal/appointments"
	"github.com/seicologia/agenda/internal/cli"
	"github.com/seicologia/agenda/internal/constants"
	"github.com/seicologia/agenda/internal/spreadsheet"
)

type ImportCmd struct {
	File    string `arg:"" type:"existingfile" help:"Spreadsheet (.xlsx) with a Pacientes column."`
	Replace bool   `help:"Remove patients that are not in the spreadsheet."`
	DryRun  bool   `help:"Parse and report without saving."`
}

func (c *ImportCmd) Run(ctx *cli.Context) error {
	f, err := os.Open(c.File)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", c.File, err)
	}
	defer f.Close()

	res, err := spreadsheet.ImportPatients(f)
	if err != nil {
		return err
	}
	out := ctx.Out()
	fmt.Fprintf(out, "Read %d patients from sheet %q\n", len(res.Patients), res.Sheet)
	for _, skipped := range res.Skipped {
		fmt.Fprintf(out, "  ⚠ row %d skipped: %s\n", skipped.Row, skipped.Err)
	}
	if c.DryRun {
		return nil
	}

	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	ctx.PerformAutomaticBackup()

	report, err := ws.ImportPatients(res.Patients, c.Replace)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	fmt.Fprintf(out, "✓ Imported: %d added, %d updated, %d removed\n", report.Added, report.Updated, report.Removed)
	if report.Issues.HasIssues() {
		fmt.Fprintln(out)
		fmt.Fprint(out, report.Issues.FormatReport())
	}
	return nil
}

type ExportCmd struct {
	File     string `arg:"" help:"Destination .xlsx file."`
	Month    string `short:"m" help:"Month to export (YYYY-MM). Defaults to the current month."`
	Patients bool   `help:"Export only the patient roster."`
}

func (c *ExportCmd) Run(ctx *cli.Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}

	f, err := os.Create(c.File)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", c.File, err)
	}
	defer f.Close()

	patients := ws.Patients()
	if c.Patients {
		if err := spreadsheet.ExportPatients(f, patients); err != nil {
			return err
		}
		fmt.Fprintf(ctx.Out(), "✓ Exported %d patients to %s\n", len(patients), c.File)
		return f.Close()
	}

	month, err := ws.ParseMonth(c.Month)
	if err != nil {
		return err
	}
	events := ws.Agenda(month)
	err = spreadsheet.ExportMonth(f, spreadsheet.MonthReport{
		Month:    month,
		Events:   events,
		Summary:  appointments.Summarize(events, patients, month, ws.Location()),
		Patients: patients,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out(), "✓ Exported %s (%d events) to %s\n", month.Format(constants.MonthFormat), len(events), c.File)
	return f.Close()
}
