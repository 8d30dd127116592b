package agenda

import (
	"fmt"

	"github.com/seicologia/agenda/internal/cli"
	"github.com/seicologia/agenda/internal/constants"
	"github.com/seicologia/agenda/internal/models"
)

type PaymentCmd struct {
	Mark PaymentMarkCmd `cmd:"" help:"Set the status of a payment."`
	Show PaymentShowCmd `cmd:"" help:"Show a payment and the sessions it covers."`
}

type PaymentMarkCmd struct {
	Patient string `arg:"" help:"Patient ID or name."`
	Date    string `arg:"" help:"Due date of the payment (YYYY-MM-DD)."`
	Status  string `arg:"" enum:"paid,pending,overdue" help:"New status (paid, pending or overdue)."`
}

func (c *PaymentMarkCmd) Run(ctx *cli.Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	p, err := ws.FindPatient(c.Patient)
	if err != nil {
		return err
	}
	if err := ws.SetPaymentStatus(p.ID, c.Date, models.PaymentStatus(c.Status)); err != nil {
		return err
	}
	pay, err := ws.Payment(p.ID, c.Date)
	if err != nil {
		// The override is stored even when no payment is derived for the date.
		fmt.Fprintf(ctx.Out(), "Marked %s's payment of %s as %s\n", p.Name, c.Date, c.Status)
		return nil
	}
	fmt.Fprintf(ctx.Out(), "Payment of %s due %s: R$ %s [%s]\n",
		p.Name, pay.Date.Format(constants.DateFormat), pay.Rate.StringFixed(2), pay.Status)
	return nil
}

type PaymentShowCmd struct {
	Patient string `arg:"" help:"Patient ID or name."`
	Date    string `arg:"" help:"Due date of the payment (YYYY-MM-DD)."`
}

func (c *PaymentShowCmd) Run(ctx *cli.Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	p, err := ws.FindPatient(c.Patient)
	if err != nil {
		return err
	}
	pay, err := ws.Payment(p.ID, c.Date)
	if err != nil {
		return err
	}
	out := ctx.Out()
	fmt.Fprintf(out, "Payment of %s due %s\n", p.Name, pay.Date.Format(constants.DateFormat))
	fmt.Fprintf(out, "  Status:      %s\n", pay.Status)
	fmt.Fprintf(out, "  Amount:      R$ %s (%d sessões)\n", pay.Rate.StringFixed(2), pay.SessionsCount)
	fmt.Fprintf(out, "  Covers:      %s a %s\n", pay.PeriodStart.Format(constants.BRDateFormat), pay.PeriodEnd.Format(constants.BRDateFormat))
	fmt.Fprintf(out, "  Recurrence:  %s\n", pay.PayRecurrence)
	if pay.PaidAt != nil {
		fmt.Fprintf(out, "  Paid at:     %s\n", pay.PaidAt.In(ws.Location()).Format("2006-01-02 15:04"))
	}
	return nil
}
