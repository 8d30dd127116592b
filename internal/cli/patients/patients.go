package patients

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/seicologia/agenda/internal/cli"
	"github.com/seicologia/agenda/internal/constants"
	apperrors "github.com/seicologia/agenda/internal/errors"
	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/utils"
	"github.com/seicologia/agenda/internal/workspace"
)

type PatientCmd struct {
	Add     PatientAddCmd     `cmd:"" help:"Add a new patient."`
	Edit    PatientEditCmd    `cmd:"" help:"Edit an existing patient."`
	List    PatientListCmd    `cmd:"" help:"List patients."`
	Remove  PatientRemoveCmd  `cmd:"" help:"Remove a patient."`
	Restore PatientRestoreCmd `cmd:"" help:"Restore a removed patient."`
	Check   PatientCheckCmd   `cmd:"" help:"Check a slot for conflicts without saving."`
}

// frequencyLabel expands the short forms accepted on the command line.
func frequencyLabel(s string) string {
	switch utils.NormalizeText(s) {
	case "semanal", "weekly":
		return constants.FrequencyWeekly
	case "impar", "odd":
		return constants.FrequencyBiweeklyOdd
	case "par", "even":
		return constants.FrequencyBiweeklyEven
	}
	return strings.TrimSpace(s)
}

func yesNo(b bool) string {
	if b {
		return constants.ActiveYes
	}
	return constants.ActiveNo
}

type PatientAddCmd struct {
	Name          string `arg:"" help:"Patient name."`
	Rate          string `short:"r" help:"Rate per session (120.50 or 120,50)." required:""`
	Duration      int    `short:"d" help:"Session duration in minutes." default:"50"`
	Frequency     string `short:"f" help:"Frequency: Semanal, 'Quinzenal (Ímpar)', 'Quinzenal (Par)' or the short forms impar/par." default:"Semanal"`
	Day           string `short:"w" help:"Weekday in Portuguese (segunda-feira, terça, ...)." default:"segunda-feira"`
	Time          string `short:"t" help:"Session time (HH:MM)." default:"09:00"`
	Start         string `short:"s" help:"Start date (YYYY-MM-DD)." required:""`
	End           string `short:"e" help:"Exit date (YYYY-MM-DD), sessions stop before it."`
	PayDay        string `help:"Day of month or weekday the payment is due." default:"5"`
	PayRecurrence string `help:"Payment recurrence (Mensal|Semanal)." default:"Mensal"`
	Mode          string `help:"Presencial or Online."`
	Social        bool   `help:"Mark as a social (reduced rate) patient."`
	Inactive      bool   `help:"Store the patient as inactive."`
	Force         bool   `help:"Save even when the slot conflicts with another patient."`
}

func (c *PatientAddCmd) Run(ctx *cli.Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	rate, err := workspace.ParseRate(c.Rate)
	if err != nil {
		return err
	}

	p := models.Patient{
		Name:          c.Name,
		Rate:          rate,
		Duration:      c.Duration,
		Frequency:     frequencyLabel(c.Frequency),
		DayOfWeek:     c.Day,
		Time:          c.Time,
		StartDate:     c.Start,
		EndDate:       c.End,
		Active:        yesNo(!c.Inactive),
		PayDay:        c.PayDay,
		PayRecurrence: c.PayRecurrence,
		Mode:          c.Mode,
	}
	if c.Social {
		p.IsSocial = constants.ActiveYes
	}

	res, err := ws.SavePatient(p, c.Force)
	if err != nil {
		return conflictHint(err)
	}
	fmt.Fprintf(ctx.Out(), "Added patient: %s (ID: %s)\n", res.Patient.Name, res.Patient.ID)
	printSaveNotes(ctx.Out(), res)
	return nil
}

type PatientEditCmd struct {
	ID            string  `arg:"" help:"Patient ID or name."`
	Name          *string `help:"New name."`
	Rate          *string `short:"r" help:"New rate per session."`
	Duration      *int    `short:"d" help:"New session duration in minutes."`
	Frequency     *string `short:"f" help:"New frequency."`
	Day           *string `short:"w" help:"New weekday."`
	Time          *string `short:"t" help:"New session time (HH:MM)."`
	Start         *string `short:"s" help:"New start date (YYYY-MM-DD)."`
	End           *string `short:"e" help:"New exit date (YYYY-MM-DD, empty to clear)."`
	PayDay        *string `help:"New payment day."`
	PayRecurrence *string `help:"New payment recurrence (Mensal|Semanal)."`
	Mode          *string `help:"Presencial or Online."`
	Social        *bool   `help:"Set social status."`
	Active        *bool   `help:"Set active status."`
	Adjusted      *string `help:"Date of the last rate adjustment (YYYY-MM-DD)."`
	Force         bool    `help:"Save even when the slot conflicts with another patient."`
}

func (c *PatientEditCmd) Run(ctx *cli.Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	p, err := ws.FindPatient(c.ID)
	if err != nil {
		return fmt.Errorf("failed to find patient: %w", err)
	}

	if c.Name != nil {
		p.Name = *c.Name
	}
	if c.Rate != nil {
		rate, err := workspace.ParseRate(*c.Rate)
		if err != nil {
			return err
		}
		p.Rate = rate
	}
	if c.Duration != nil {
		if *c.Duration <= 0 {
			return fmt.Errorf("duration must be positive")
		}
		p.Duration = *c.Duration
	}
	if c.Frequency != nil {
		p.Frequency = frequencyLabel(*c.Frequency)
	}
	if c.Day != nil {
		p.DayOfWeek = *c.Day
	}
	if c.Time != nil {
		p.Time = *c.Time
	}
	if c.Start != nil {
		p.StartDate = *c.Start
	}
	if c.End != nil {
		p.EndDate = *c.End
	}
	if c.PayDay != nil {
		p.PayDay = *c.PayDay
	}
	if c.PayRecurrence != nil {
		p.PayRecurrence = *c.PayRecurrence
	}
	if c.Mode != nil {
		p.Mode = *c.Mode
	}
	if c.Social != nil {
		p.IsSocial = yesNo(*c.Social)
	}
	if c.Active != nil {
		p.Active = yesNo(*c.Active)
	}
	if c.Adjusted != nil {
		p.LastAdjustment = *c.Adjusted
	}

	res, err := ws.SavePatient(p, c.Force)
	if err != nil {
		return conflictHint(err)
	}
	fmt.Fprintf(ctx.Out(), "Updated patient: %s (ID: %s)\n", res.Patient.Name, res.Patient.ID)
	printSaveNotes(ctx.Out(), res)
	return nil
}

type PatientListCmd struct {
	ActiveOnly bool `help:"Show only active patients."`
	ShowIDs    bool `help:"Show patient IDs." name:"show-ids"`
}

func (c *PatientListCmd) Run(ctx *cli.Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}

	patients := ws.Patients()
	out := ctx.Out()
	if len(patients) == 0 {
		fmt.Fprintln(out, "No patients found")
		return nil
	}

	fmt.Fprintln(out, "Patients:")
	for _, p := range patients {
		if c.ActiveOnly && !p.IsActive() {
			continue
		}
		status := "active"
		if !p.IsActive() {
			status = "inactive"
		}
		idStr := ""
		if c.ShowIDs {
			idStr = fmt.Sprintf(" (ID: %s)", p.ID)
		}
		fmt.Fprintf(out, "  [%s] %s%s - %s %s %s, %dm, R$ %s\n",
			status, p.Name, idStr, p.Frequency, p.DayOfWeek, p.Time, p.SessionDuration(), p.Rate.StringFixed(2))
		if p.HasPaymentTerms() {
			fmt.Fprintf(out, "      Payment: %s, day %s\n", p.PaymentRecurrence(), p.PayDay)
		}
		if p.EndDate != "" {
			fmt.Fprintf(out, "      Period: %s to %s\n", p.StartDate, p.EndDate)
		}
	}
	return nil
}

type PatientRemoveCmd struct {
	ID string `arg:"" help:"Patient ID or name to remove."`
}

func (c *PatientRemoveCmd) Run(ctx *cli.Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	p, err := ws.FindPatient(c.ID)
	if err != nil {
		return fmt.Errorf("failed to find patient %s: %w", c.ID, err)
	}
	if err := ws.RemovePatient(p.ID); err != nil {
		return fmt.Errorf("failed to remove patient: %w", err)
	}
	fmt.Fprintf(ctx.Out(), "Removed patient: %s (ID: %s)\n", p.Name, p.ID)
	fmt.Fprintf(ctx.Out(), "Undo with: agenda patient restore %s\n", p.ID)
	return nil
}

type PatientRestoreCmd struct {
	ID string `arg:"" help:"ID of the removed patient."`
}

func (c *PatientRestoreCmd) Run(ctx *cli.Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	if err := ws.RestorePatient(c.ID); err != nil {
		return fmt.Errorf("failed to restore patient: %w", err)
	}
	p, err := ws.Patient(c.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out(), "Restored patient: %s (ID: %s)\n", p.Name, p.ID)
	return nil
}

type PatientCheckCmd struct {
	Frequency string `short:"f" help:"Frequency label or short form." default:"Semanal"`
	Day       string `arg:"" help:"Weekday in Portuguese."`
	Time      string `arg:"" help:"Session time (HH:MM)."`
	Duration  int    `short:"d" help:"Session duration in minutes." default:"50"`
	Start     string `short:"s" help:"Start date, needed to place anchored biweekly slots."`
	Ignore    string `help:"Patient ID or name to leave out, when checking a move."`
}

func (c *PatientCheckCmd) Run(ctx *cli.Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	candidate := models.Patient{
		Frequency: frequencyLabel(c.Frequency),
		DayOfWeek: c.Day,
		Time:      c.Time,
		Duration:  c.Duration,
		StartDate: c.Start,
		Active:    constants.ActiveYes,
	}
	if c.Ignore != "" {
		p, err := ws.FindPatient(c.Ignore)
		if err != nil {
			return err
		}
		candidate.ID = p.ID
	}
	fmt.Fprintln(ctx.Out(), ws.CheckPatient(candidate).FormatReport())
	return nil
}

func printSaveNotes(w io.Writer, res workspace.SaveResult) {
	if res.Conflict.Conflict {
		fmt.Fprintf(w, "⚠ Saved despite %s\n", res.Conflict.FormatReport())
	}
	for _, warning := range res.Warnings {
		fmt.Fprintf(w, "⚠ %s\n", warning)
	}
}

func conflictHint(err error) error {
	var ce *workspace.ConflictError
	if errors.As(err, &ce) {
		return apperrors.WithHint(err, "use --force to save anyway")
	}
	return err
}
