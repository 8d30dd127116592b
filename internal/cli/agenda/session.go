package agenda

import (
	"fmt"
	"io"

	"github.com/seicologia/agenda/internal/cli"
	"github.com/seicologia/agenda/internal/constants"
	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/workspace"
)

type SessionCmd struct {
	Status     SessionStatusCmd     `cmd:"" help:"Record what happened to a session."`
	Add        SessionAddCmd        `cmd:"" help:"Book an extra session."`
	Reschedule SessionRescheduleCmd `cmd:"" help:"Move a session to another date or time."`
}

// locate resolves a patient name or ID and the date a session is shown on.
func locate(ws *workspace.Workspace, patient, date string) (models.Session, error) {
	p, err := ws.FindPatient(patient)
	if err != nil {
		return models.Session{}, err
	}
	day, err := ws.ParseDate(date)
	if err != nil {
		return models.Session{}, err
	}
	return ws.SessionOn(p.ID, day)
}

func printSession(w io.Writer, verb string, s models.Session) {
	fmt.Fprintf(w, "%s session on %s at %s [%s]\n",
		verb, s.Date.Format(constants.DateFormat), s.Time, s.EffectiveStatus())
}

type SessionStatusCmd struct {
	Patient string `arg:"" help:"Patient ID or name."`
	Date    string `arg:"" help:"Date the session is shown on (YYYY-MM-DD)."`
	Status  string `arg:"" enum:"scheduled,occurred,cancelled,missed_paid" help:"New status (scheduled, occurred, cancelled or missed_paid)."`
}

func (c *SessionStatusCmd) Run(ctx *cli.Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	s, err := locate(ws, c.Patient, c.Date)
	if err != nil {
		return err
	}
	updated, err := ws.SetSessionStatus(workspace.Ref(s), models.SessionStatus(c.Status))
	if err != nil {
		return err
	}
	printSession(ctx.Out(), "Updated", updated)
	return nil
}

type SessionAddCmd struct {
	Patient  string `arg:"" help:"Patient ID or name."`
	Date     string `arg:"" help:"Date of the extra session (YYYY-MM-DD)."`
	Time     string `short:"t" help:"Session time (HH:MM). Defaults to the patient's slot."`
	Duration int    `short:"d" help:"Duration in minutes. Defaults to the patient's duration."`
	Rate     string `short:"r" help:"Rate. Defaults to the patient's rate."`
}

func (c *SessionAddCmd) Run(ctx *cli.Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	p, err := ws.FindPatient(c.Patient)
	if err != nil {
		return err
	}
	tm := c.Time
	if tm == "" {
		tm = p.Time
	}
	s, err := ws.AddSession(workspace.ExtraInput{
		PatientID: p.ID,
		Date:      c.Date,
		Time:      tm,
		Duration:  c.Duration,
		Rate:      c.Rate,
	})
	if err != nil {
		return err
	}
	printSession(ctx.Out(), "Booked extra", s)
	fmt.Fprintf(ctx.Out(), "  ID: %s\n", s.ID)
	return nil
}

type SessionRescheduleCmd struct {
	Patient string `arg:"" help:"Patient ID or name."`
	Date    string `arg:"" help:"Date the session is shown on (YYYY-MM-DD)."`
	To      string `arg:"" help:"New date (YYYY-MM-DD)."`
	Time    string `short:"t" help:"New time (HH:MM). Defaults to the current time of the session."`
}

func (c *SessionRescheduleCmd) Run(ctx *cli.Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	s, err := locate(ws, c.Patient, c.Date)
	if err != nil {
		return err
	}
	tm := c.Time
	if tm == "" {
		tm = s.Time
	}
	moved, err := ws.Reschedule(workspace.Ref(s), c.To, tm)
	if err != nil {
		return err
	}
	printSession(ctx.Out(), "Rescheduled", moved)
	return nil
}
