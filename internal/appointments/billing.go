package appointments

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/seicologia/agenda/internal/constants"
	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/overrides"
	"github.com/seicologia/agenda/internal/utils"
)

// ledger holds the sessions billing looks at, grouped by patient.
type ledger struct {
	rates    map[string]decimal.Decimal
	sessions map[string][]models.Session
}

func newLedger(patients []models.Patient, groups ...[]models.Session) ledger {
	l := ledger{
		rates:    make(map[string]decimal.Decimal, len(patients)),
		sessions: make(map[string][]models.Session),
	}
	for _, p := range patients {
		l.rates[p.ID] = p.Rate
	}
	for _, g := range groups {
		for _, s := range g {
			if s.PatientID == "" {
				continue
			}
			l.sessions[s.PatientID] = append(l.sessions[s.PatientID], s)
		}
	}
	return l
}

// Window is a billing cycle (Prev, Due], compared by calendar day.
// A zero Prev means the window is open on the left.
type Window struct {
	Prev time.Time
	Due  time.Time
}

// Contains reports whether d's calendar day falls inside the window.
func (w Window) Contains(d time.Time) bool {
	x := utils.Civil(d)
	if x.After(utils.Civil(w.Due)) {
		return false
	}
	if w.Prev.IsZero() {
		return true
	}
	return x.After(utils.Civil(w.Prev))
}

// sum adds up the billable sessions of a patient inside w. A session's own
// positive rate wins over the patient's current rate.
func (l ledger) sum(patientID string, w Window) (decimal.Decimal, int) {
	total := decimal.Zero
	count := 0
	for _, s := range l.sessions[patientID] {
		if !s.EffectiveStatus().Billable() || !w.Contains(s.Date) {
			continue
		}
		rate := s.Rate
		if !rate.IsPositive() {
			rate = l.rates[patientID]
		}
		total = total.Add(rate)
		count++
	}
	return total, count
}

// MonthlyDueDate returns the pay date of the month containing month for a
// day-of-month label, clamped into the month.
func MonthlyDueDate(month time.Time, payDay string) time.Time {
	return utils.ClampDay(month, leadingInt(payDay, 1))
}

// leadingInt parses the leading decimal digits of s, returning def when
// there are none or the value is not positive.
func leadingInt(s string, def int) int {
	s = strings.TrimSpace(s)
	n, digits := 0, 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
		digits++
		if n > 1000 {
			break
		}
	}
	if digits == 0 || n <= 0 {
		return def
	}
	return n
}

func paymentEvents(patients []models.Patient, month time.Time, l ledger, ov overrides.PaymentOverrides, today time.Time) []models.PaymentEvent {
	var out []models.PaymentEvent
	for _, p := range patients {
		if !p.IsActive() || !p.HasPaymentTerms() {
			continue
		}
		switch p.PaymentRecurrence() {
		case constants.PayWeekly:
			wd, ok := utils.ParseWeekday(p.PayDay)
			if !ok {
				continue
			}
			for d := month; utils.SameMonth(d, month); d = d.AddDate(0, 0, 1) {
				if d.Weekday() != wd {
					continue
				}
				w := Window{Prev: d.AddDate(0, 0, -7), Due: d}
				out = append(out, paymentEvent(p, w, l, ov, today))
			}
		default:
			due := MonthlyDueDate(month, p.PayDay)
			prev := MonthlyDueDate(month.AddDate(0, -1, 0), p.PayDay)
			out = append(out, paymentEvent(p, Window{Prev: prev, Due: due}, l, ov, today))
		}
	}
	return out
}

func paymentEvent(p models.Patient, w Window, l ledger, ov overrides.PaymentOverrides, today time.Time) models.PaymentEvent {
	total, count := l.sum(p.ID, w)
	key := overrides.NewPaymentKey(p.ID, w.Due)
	ev := models.PaymentEvent{
		ID:            key.String(),
		PatientID:     p.ID,
		PatientName:   p.Name,
		Date:          w.Due,
		Time:          constants.DefaultPaymentTime,
		Duration:      constants.PaymentEventDuration,
		Rate:          total,
		UnitRate:      p.Rate,
		SessionsCount: count,
		PeriodStart:   w.Prev.AddDate(0, 0, 1),
		PeriodEnd:     w.Due,
		PayRecurrence: p.PaymentRecurrence(),
		Status:        models.PaymentPending,
	}
	if utils.Civil(w.Due).Before(utils.Civil(today.In(w.Due.Location()))) {
		ev.Status = models.PaymentOverdue
	}
	if patch, ok := ov[key]; ok {
		ev = ev.Apply(patch)
	}
	return ev
}
