package appointments

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/utils"
)

// Summary is the month overview shown above the agenda.
type Summary struct {
	Month          string          `json:"month"`
	Sessions       int             `json:"sessions"`
	Expected       decimal.Decimal `json:"expected"`
	Received       decimal.Decimal `json:"received"`
	Overdue        decimal.Decimal `json:"overdue"`
	Outstanding    decimal.Decimal `json:"outstanding"`
	PaidCount      int             `json:"paidCount"`
	PendingCount   int             `json:"pendingCount"`
	OverdueCount   int             `json:"overdueCount"`
	ActivePatients int             `json:"activePatients"`
	NewPatients    int             `json:"newPatients"`
	ExitedPatients int             `json:"exitedPatients"`
}

// Summarize computes totals over an aggregated month.
func Summarize(events []models.Event, patients []models.Patient, month time.Time, loc *time.Location) Summary {
	if loc == nil {
		loc = time.Local
	}
	s := Summary{
		Month:       month.Format("2006-01"),
		Expected:    decimal.Zero,
		Received:    decimal.Zero,
		Overdue:     decimal.Zero,
		Outstanding: decimal.Zero,
	}
	for _, e := range events {
		switch ev := e.(type) {
		case models.SessionEvent:
			s.Sessions++
		case models.PaymentEvent:
			s.Expected = s.Expected.Add(ev.Rate)
			switch ev.Status {
			case models.PaymentPaid:
				s.Received = s.Received.Add(ev.Rate)
				s.PaidCount++
			case models.PaymentOverdue:
				s.Overdue = s.Overdue.Add(ev.Rate)
				s.OverdueCount++
			default:
				s.PendingCount++
			}
		}
	}
	if out := s.Expected.Sub(s.Received); out.IsPositive() {
		s.Outstanding = out
	}

	for _, p := range patients {
		if p.IsActive() {
			s.ActivePatients++
		}
		if d, err := utils.ParseDateInLocation(p.StartDate, loc); err == nil && utils.SameMonth(d, month) {
			s.NewPatients++
		}
		if d, err := utils.ParseDateInLocation(p.EndDate, loc); err == nil && utils.SameMonth(d, month) {
			s.ExitedPatients++
		}
	}
	return s
}
