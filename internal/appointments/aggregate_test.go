package appointments

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/overrides"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mondayPatient() models.Patient {
	return models.Patient{
		ID:            "p1",
		Name:          "Ana",
		Rate:          decimal.NewFromInt(100),
		Duration:      50,
		Frequency:     "Semanal",
		DayOfWeek:     "segunda-feira",
		Time:          "09:00",
		StartDate:     "2024-01-01",
		Active:        "Sim",
		PayDay:        "5",
		PayRecurrence: "Mensal",
	}
}

func julyInput(p ...models.Patient) Input {
	return Input{
		Patients: p,
		Month:    day(2024, time.July, 15),
		Today:    day(2024, time.July, 1),
		Location: time.UTC,
	}
}

func sessionDays(events []models.Event) []int {
	var out []int
	for _, s := range Sessions(events) {
		out = append(out, s.Date.Day())
	}
	return out
}

func TestAggregateMondayScenario(t *testing.T) {
	p := mondayPatient()
	p.PayDay, p.PayRecurrence = "", ""

	events := Aggregate(Input{Patients: []models.Patient{p}, Month: day(2024, time.March, 1), Location: time.UTC})

	require.Len(t, events, 4)
	for _, s := range Sessions(events) {
		assert.Equal(t, time.Monday, s.Date.Weekday())
		assert.Equal(t, "09:00", s.Time)
		assert.Equal(t, "Ana", s.PatientName)
		assert.Equal(t, models.KindSession, s.Kind())
	}
	assert.Equal(t, []int{4, 11, 18, 25}, sessionDays(events))
	assert.Empty(t, Payments(events))
}

func TestAggregateMonthlyBillingWindow(t *testing.T) {
	events := Aggregate(julyInput(mondayPatient()))

	payments := Payments(events)
	require.Len(t, payments, 1)
	pay := payments[0]

	assert.Equal(t, day(2024, time.July, 5), pay.Date)
	assert.Equal(t, day(2024, time.June, 6), pay.PeriodStart)
	assert.Equal(t, day(2024, time.July, 5), pay.PeriodEnd)
	assert.Equal(t, 4, pay.SessionsCount) // Jun 10, 17, 24 and Jul 1
	assert.True(t, pay.Rate.Equal(decimal.NewFromInt(400)), pay.Rate.String())
	assert.True(t, pay.UnitRate.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "09:00", pay.Time)
	assert.Equal(t, 30, pay.Duration)
	assert.Equal(t, "pay_p1_2024-07-05", pay.ID)
	assert.Equal(t, models.PaymentPending, pay.Status)
	assert.Equal(t, []int{1, 8, 15, 22, 29}, sessionDays(events))
}

func TestAggregateBillingSkipsCancelledAndUsesSessionRate(t *testing.T) {
	p := mondayPatient()
	now := day(2024, time.June, 1)
	book := NewBook(overrides.State{})

	book, err := book.SetStatus(models.Session{PatientID: "p1", OriginalDate: day(2024, time.June, 17)}, models.StatusCancelled, now)
	require.NoError(t, err)
	rate := decimal.NewFromInt(150)
	book, err = book.UpdateAppointment(models.Session{PatientID: "p1", OriginalDate: day(2024, time.June, 24)}, models.SessionPatch{Rate: &rate})
	require.NoError(t, err)

	pay := Payments(Aggregate(julyInput(p).FromState(book.State())))[0]
	assert.Equal(t, 3, pay.SessionsCount)
	assert.True(t, pay.Rate.Equal(decimal.NewFromInt(350)), pay.Rate.String())
}

func TestAggregateBillingCountsExtrasOutsideMonth(t *testing.T) {
	book, _, err := NewBook(overrides.State{}).AddAppointment(models.Session{
		PatientID: "p1",
		Date:      day(2024, time.June, 28),
		Time:      "15:00",
	})
	require.NoError(t, err)

	events := Aggregate(julyInput(mondayPatient()).FromState(book.State()))
	pay := Payments(events)[0]

	assert.Equal(t, 5, pay.SessionsCount)
	assert.True(t, pay.Rate.Equal(decimal.NewFromInt(500)), "extra without rate falls back to the patient rate")
	assert.NotContains(t, sessionDays(events), 28, "June extra is not part of the July agenda")
}

func TestAggregatePaymentStatus(t *testing.T) {
	in := julyInput(mondayPatient())

	in.Today = day(2024, time.July, 5)
	assert.Equal(t, models.PaymentPending, Payments(Aggregate(in))[0].Status, "due today is not overdue")

	in.Today = day(2024, time.July, 6)
	assert.Equal(t, models.PaymentOverdue, Payments(Aggregate(in))[0].Status)

	paidAt := time.Date(2024, time.July, 7, 14, 0, 0, 0, time.UTC)
	book := NewBook(overrides.State{}).UpdatePayment("p1", day(2024, time.July, 5), models.MarkPaid(paidAt))
	paid := Payments(Aggregate(in.FromState(book.State())))[0]
	assert.Equal(t, models.PaymentPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	assert.True(t, paid.PaidAt.Equal(paidAt))

	book = book.UpdatePayment("p1", day(2024, time.July, 5), models.MarkPending())
	reopened := Payments(Aggregate(in.FromState(book.State())))[0]
	assert.Equal(t, models.PaymentPending, reopened.Status)
	assert.Nil(t, reopened.PaidAt)
}

func TestAggregateWeeklyPayments(t *testing.T) {
	p := mondayPatient()
	p.PayRecurrence, p.PayDay = "Semanal", "sexta-feira"

	payments := Payments(Aggregate(julyInput(p)))
	require.Len(t, payments, 4)

	var due []int
	for _, pay := range payments {
		due = append(due, pay.Date.Day())
		assert.Equal(t, 1, pay.SessionsCount)
		assert.Equal(t, pay.Date.AddDate(0, 0, -6), pay.PeriodStart)
		assert.Equal(t, "Semanal", pay.PayRecurrence)
	}
	assert.Equal(t, []int{5, 12, 19, 26}, due)
}

func TestAggregateMonthlyPayDayClamps(t *testing.T) {
	p := mondayPatient()
	p.PayDay = "31"

	in := julyInput(p)
	in.Month = day(2024, time.February, 1)
	pay := Payments(Aggregate(in))[0]

	assert.Equal(t, day(2024, time.February, 29), pay.Date)
	assert.Equal(t, day(2024, time.February, 1), pay.PeriodStart)
	assert.Equal(t, 4, pay.SessionsCount) // Feb 5, 12, 19, 26
}

func TestAggregatePaymentEligibility(t *testing.T) {
	inactive := mondayPatient()
	inactive.ID, inactive.Active = "p2", "Não"
	noTerms := mondayPatient()
	noTerms.ID, noTerms.PayDay, noTerms.PayRecurrence = "p3", "", ""
	badWeekday := mondayPatient()
	badWeekday.ID, badWeekday.PayRecurrence, badWeekday.PayDay = "p4", "Semanal", "5"
	defaultDay := mondayPatient()
	defaultDay.ID, defaultDay.PayDay = "p5", "dia cinco"

	payments := Payments(Aggregate(julyInput(inactive, noTerms, badWeekday, defaultDay)))
	require.Len(t, payments, 1)
	assert.Equal(t, "p5", payments[0].PatientID)
	assert.Equal(t, 1, payments[0].Date.Day())
}

func TestAggregateOverrideRoundTrip(t *testing.T) {
	occ := models.Session{PatientID: "p1", OriginalDate: day(2024, time.July, 8)}
	book, err := NewBook(overrides.State{}).SetStatus(occ, models.StatusOccurred, day(2024, time.July, 8))
	require.NoError(t, err)

	first := Aggregate(julyInput(mondayPatient()).FromState(book.State()))
	again, err := book.SetStatus(occ, models.StatusOccurred, day(2024, time.July, 8))
	require.NoError(t, err)
	second := Aggregate(julyInput(mondayPatient()).FromState(again.State()))

	assert.Equal(t, first, second)
	for _, s := range Sessions(first) {
		if s.Date.Day() == 8 {
			assert.Equal(t, models.StatusOccurred, s.Status)
		} else {
			assert.Equal(t, models.StatusScheduled, s.Status)
		}
	}
}

func TestAggregateHidesCancelledButKeepsOverride(t *testing.T) {
	occ := models.Session{PatientID: "p1", OriginalDate: day(2024, time.July, 8)}
	book, err := NewBook(overrides.State{}).SetStatus(occ, models.StatusCancelled, day(2024, time.July, 2))
	require.NoError(t, err)

	events := Aggregate(julyInput(mondayPatient()).FromState(book.State()))
	assert.Equal(t, []int{1, 15, 22, 29}, sessionDays(events))
	assert.Len(t, book.State().Sessions, 1)

	book, err = book.SetStatus(occ, models.StatusScheduled, day(2024, time.July, 3))
	require.NoError(t, err)
	events = Aggregate(julyInput(mondayPatient()).FromState(book.State()))
	assert.Equal(t, []int{1, 8, 15, 22, 29}, sessionDays(events))
	for _, s := range Sessions(events) {
		assert.Nil(t, s.CancelledAt)
	}
}

func TestAggregateReschedule(t *testing.T) {
	occ := models.Session{PatientID: "p1", OriginalDate: day(2024, time.July, 8), Date: day(2024, time.July, 8), Time: "09:00", Duration: 50}
	book, moved, err := NewBook(overrides.State{}).Reschedule(occ, day(2024, time.July, 10), "14:00", day(2024, time.July, 2))
	require.NoError(t, err)

	events := Aggregate(julyInput(mondayPatient()).FromState(book.State()))
	assert.Equal(t, []int{1, 10, 15, 22, 29}, sessionDays(events))

	var extra models.SessionEvent
	for _, s := range Sessions(events) {
		if s.IsExtra {
			extra = s
		}
	}
	assert.Equal(t, moved.ID, extra.ID)
	assert.Equal(t, "14:00", extra.Time)
	assert.Equal(t, "Ana", extra.PatientName)
	require.NotNil(t, extra.RescheduledFrom)
	assert.Equal(t, models.SlotRef{PatientID: "p1", Date: "2024-07-08", Time: "09:00"}, *extra.RescheduledFrom)

	patch := book.State().Sessions[overrides.NewSessionKey("p1", day(2024, time.July, 8))]
	require.NotNil(t, patch.Status)
	assert.Equal(t, models.StatusRescheduled, *patch.Status)
	require.NotNil(t, patch.RescheduledTo.Value)
	assert.Equal(t, "2024-07-10", patch.RescheduledTo.Value.Date)
}

func TestAggregateStatusOnlyRescheduleHidesOriginal(t *testing.T) {
	occ := models.Session{PatientID: "p1", OriginalDate: day(2024, time.July, 8)}
	book, err := NewBook(overrides.State{}).SetStatus(occ, models.StatusRescheduled, day(2024, time.July, 2))
	require.NoError(t, err)

	events := Aggregate(julyInput(mondayPatient()).FromState(book.State()))
	assert.Equal(t, []int{1, 15, 22, 29}, sessionDays(events))
}

func TestAggregateMinDate(t *testing.T) {
	in := julyInput(mondayPatient())
	in.MinDate = day(2024, time.July, 10)

	events := Aggregate(in)
	assert.Equal(t, []int{15, 22, 29}, sessionDays(events))
	assert.Empty(t, Payments(events))
}

func TestAggregateOrdering(t *testing.T) {
	early := mondayPatient()
	early.ID, early.Name, early.Time, early.DayOfWeek = "p2", "Bia", "08:00", "sexta-feira"
	early.PayDay, early.PayRecurrence = "", ""

	events := Aggregate(julyInput(mondayPatient(), early))

	for i := 1; i < len(events); i++ {
		prev, cur := events[i-1], events[i]
		assert.False(t, cur.EventDate().Before(prev.EventDate()), "events must be sorted by date")
	}
	// Jul 5: Bia's 08:00 session precedes the 09:00 payment of Ana.
	var jul5 []models.EventKind
	for _, e := range events {
		if e.EventDate().Day() == 5 {
			jul5 = append(jul5, e.Kind())
		}
	}
	assert.Equal(t, []models.EventKind{models.KindSession, models.KindPayment}, jul5)
}

func TestAggregateMigratesLegacyFrequency(t *testing.T) {
	p := mondayPatient()
	p.Frequency = "Quinzenal"
	p.PayDay, p.PayRecurrence = "", ""

	// Mondays of July 2024: Jul 1 (week 27), 8 (28), 15 (29), 22 (30), 29 (31).
	assert.Equal(t, []int{1, 15, 29}, sessionDays(Aggregate(julyInput(p))))
}

func TestAggregateDoesNotMutateInput(t *testing.T) {
	p := mondayPatient()
	p.Frequency = "Quinzenal"
	patients := []models.Patient{p}

	Aggregate(julyInput(patients...))
	assert.Equal(t, "Quinzenal", patients[0].Frequency)
}

func TestSummarize(t *testing.T) {
	other := mondayPatient()
	other.ID, other.StartDate, other.PayDay = "p2", "2024-07-02", "20"

	in := julyInput(mondayPatient(), other)
	in.Today = day(2024, time.July, 10)
	book := NewBook(overrides.State{}).UpdatePayment("p1", day(2024, time.July, 5), models.MarkPaid(day(2024, time.July, 5)))
	events := Aggregate(in.FromState(book.State()))

	s := Summarize(events, in.Patients, in.Month, time.UTC)
	assert.Equal(t, "2024-07", s.Month)
	assert.Equal(t, 9, s.Sessions) // 5 for Ana, Jul 8 to 29 for Bia
	assert.True(t, s.Received.Equal(decimal.NewFromInt(400)))
	assert.True(t, s.Expected.Equal(decimal.NewFromInt(600)), s.Expected.String()) // Bia: Jul 8 and 15
	assert.True(t, s.Outstanding.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, 1, s.PaidCount)
	assert.Equal(t, 1, s.PendingCount)
	assert.Equal(t, 2, s.ActivePatients)
	assert.Equal(t, 1, s.NewPatients)
}
