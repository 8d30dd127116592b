package agenda

import (
	"fmt"
	"io"

	"github.com/seicologia/agenda/internal/appointments"
	"github.com/seicologia/agenda/internal/cli"
	"github.com/seicologia/agenda/internal/constants"
	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/utils"
)

type AgendaCmd struct {
	Month   string `short:"m" help:"Month to show (YYYY-MM). Defaults to the current month."`
	Patient string `short:"p" help:"Only show events of this patient (ID or name)."`
	NoPay   bool   `help:"Hide payment events." name:"no-payments"`
}

func (c *AgendaCmd) Run(ctx *cli.Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	month, err := ws.ParseMonth(c.Month)
	if err != nil {
		return err
	}
	var patientID string
	if c.Patient != "" {
		p, err := ws.FindPatient(c.Patient)
		if err != nil {
			return err
		}
		patientID = p.ID
	}

	out := ctx.Out()
	events := ws.Agenda(month)
	fmt.Fprintf(out, "Agenda for %s\n", month.Format(constants.MonthFormat))

	var lastDay string
	shown := 0
	for _, e := range events {
		if patientID != "" && e.EventPatientID() != patientID {
			continue
		}
		if c.NoPay && e.Kind() == models.KindPayment {
			continue
		}
		day := e.EventDate().Format(constants.DateFormat)
		if day != lastDay {
			fmt.Fprintf(out, "\n%s (%s)\n", day, utils.WeekdayLabel(e.EventDate().Weekday()))
			lastDay = day
		}
		printEvent(out, e)
		shown++
	}
	if shown == 0 {
		fmt.Fprintln(out, "\nNo events this month.")
	}
	return nil
}

func printEvent(w io.Writer, e models.Event) {
	switch ev := e.(type) {
	case models.SessionEvent:
		label := "Sessão"
		if ev.IsExtra {
			label = "Sessão extra"
		}
		fmt.Fprintf(w, "  %s  %-14s %s  [%s]  R$ %s\n",
			ev.Time, label, ev.PatientName, ev.EffectiveStatus(), ev.Rate.StringFixed(2))
	case models.PaymentEvent:
		fmt.Fprintf(w, "  %s  %-14s %s  [%s]  R$ %s (%d sessões, %s a %s)\n",
			ev.Time, "Pagamento", ev.PatientName, ev.Status, ev.Rate.StringFixed(2), ev.SessionsCount,
			ev.PeriodStart.Format(constants.BRDateFormat), ev.PeriodEnd.Format(constants.BRDateFormat))
	}
}

type SummaryCmd struct {
	Month string `short:"m" help:"Month to summarize (YYYY-MM). Defaults to the current month."`
}

func (c *SummaryCmd) Run(ctx *cli.Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	month, err := ws.ParseMonth(c.Month)
	if err != nil {
		return err
	}
	PrintSummary(ctx.Out(), ws.Summary(month))
	return nil
}

// PrintSummary writes the month totals as aligned label/value lines.
func PrintSummary(w io.Writer, s appointments.Summary) {
	fmt.Fprintf(w, "Summary for %s\n", s.Month)
	fmt.Fprintf(w, "  Sessions:          %d\n", s.Sessions)
	fmt.Fprintf(w, "  Expected:          R$ %s\n", s.Expected.StringFixed(2))
	fmt.Fprintf(w, "  Received:          R$ %s (%d paid)\n", s.Received.StringFixed(2), s.PaidCount)
	fmt.Fprintf(w, "  Outstanding:       R$ %s (%d pending)\n", s.Outstanding.StringFixed(2), s.PendingCount)
	fmt.Fprintf(w, "  Overdue:           R$ %s (%d overdue)\n", s.Overdue.StringFixed(2), s.OverdueCount)
	fmt.Fprintf(w, "  Active patients:   %d\n", s.ActivePatients)
	fmt.Fprintf(w, "  New patients:      %d\n", s.NewPatients)
	fmt.Fprintf(w, "  Exited patients:   %d\n", s.ExitedPatients)
}
