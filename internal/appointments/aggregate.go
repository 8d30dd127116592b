// Package appointments merges generated occurrences, overrides, extra
// sessions and derived payment events into the agenda of one month.
package appointments

import (
	"sort"
	"time"

	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/overrides"
	"github.com/seicologia/agenda/internal/recurrence"
	"github.com/seicologia/agenda/internal/utils"
)

// Input is everything a month view is derived from.
type Input struct {
	Patients         []models.Patient
	Month            time.Time // any instant inside the month
	Overrides        overrides.SessionOverrides
	Extras           []models.Session
	PaymentOverrides overrides.PaymentOverrides
	MinDate          time.Time // zero for no lower bound
	Today            time.Time // zero for time.Now
	Location         *time.Location
}

func (in Input) location() *time.Location {
	if in.Location != nil {
		return in.Location
	}
	return time.Local
}

// FromState fills the override fields of in from a workspace state.
func (in Input) FromState(st overrides.State) Input {
	in.Overrides = st.Sessions
	in.Extras = st.Extras
	in.PaymentOverrides = st.Payments
	return in
}

// Aggregate returns the visible events of the month: patched occurrences,
// extra sessions and payment events, without cancelled or rescheduled
// sessions, nothing before MinDate, ordered by date then time of day.
func Aggregate(in Input) []models.Event {
	loc := in.location()
	month := time.Date(in.Month.Year(), in.Month.Month(), 1, 0, 0, 0, 0, loc)
	today := in.Today
	if today.IsZero() {
		today = time.Now()
	}

	patients := make([]models.Patient, len(in.Patients))
	names := make(map[string]string, len(in.Patients))
	for i, p := range in.Patients {
		patients[i] = p.Sanitize()
		names[patients[i].ID] = patients[i].Name
	}

	current := patchAll(recurrence.GenerateAll(patients, month, loc), in.Overrides)
	previous := patchAll(recurrence.GenerateAll(patients, month.AddDate(0, -1, 0), loc), in.Overrides)
	extras := normalizeExtras(in.Extras, loc)

	ledger := newLedger(patients, previous, current, extras)
	payments := paymentEvents(patients, month, ledger, in.PaymentOverrides, today)

	var events []models.Event
	appendSessions := func(sessions []models.Session, monthOnly bool) {
		for _, s := range sessions {
			if s.EffectiveStatus().Hidden() {
				continue
			}
			if monthOnly && !utils.SameMonth(s.Date, month) {
				continue
			}
			events = append(events, models.SessionEvent{Session: s, PatientName: names[s.PatientID]})
		}
	}
	appendSessions(current, false)
	appendSessions(extras, true)
	for _, e := range payments {
		events = append(events, e)
	}

	if !in.MinDate.IsZero() {
		events = onOrAfter(events, in.MinDate)
	}
	sortEvents(events)
	return events
}

// Sessions returns the session events of an aggregated agenda.
func Sessions(events []models.Event) []models.SessionEvent {
	var out []models.SessionEvent
	for _, e := range events {
		if s, ok := e.(models.SessionEvent); ok {
			out = append(out, s)
		}
	}
	return out
}

// Payments returns the payment events of an aggregated agenda.
func Payments(events []models.Event) []models.PaymentEvent {
	var out []models.PaymentEvent
	for _, e := range events {
		if p, ok := e.(models.PaymentEvent); ok {
			out = append(out, p)
		}
	}
	return out
}

func patchAll(sessions []models.Session, ov overrides.SessionOverrides) []models.Session {
	if len(ov) == 0 {
		return sessions
	}
	for i, s := range sessions {
		if patch, ok := ov[overrides.NewSessionKey(s.PatientID, s.OriginalDate)]; ok {
			sessions[i] = s.Apply(patch)
		}
	}
	return sessions
}

// normalizeExtras pins extra session dates to midnight in loc and keeps the
// last record for a repeated id.
func normalizeExtras(extras []models.Session, loc *time.Location) []models.Session {
	out := make([]models.Session, 0, len(extras))
	index := make(map[string]int, len(extras))
	for _, s := range extras {
		if s.Date.IsZero() {
			continue
		}
		s.Date = utils.FromCivil(utils.Civil(s.Date.In(loc)), loc)
		if s.OriginalDate.IsZero() {
			s.OriginalDate = s.Date
		} else {
			s.OriginalDate = utils.FromCivil(utils.Civil(s.OriginalDate.In(loc)), loc)
		}
		s.IsExtra = true
		if i, ok := index[s.ID]; ok && s.ID != "" {
			out[i] = s
			continue
		}
		index[s.ID] = len(out)
		out = append(out, s)
	}
	return out
}

func onOrAfter(events []models.Event, minDate time.Time) []models.Event {
	floor := utils.Civil(minDate)
	out := events[:0]
	for _, e := range events {
		if !utils.Civil(e.EventDate()).Before(floor) {
			out = append(out, e)
		}
	}
	return out
}

func sortEvents(events []models.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := utils.Civil(events[i].EventDate()), utils.Civil(events[j].EventDate())
		if !a.Equal(b) {
			return a.Before(b)
		}
		return utils.MinutesOrZero(events[i].EventTime()) < utils.MinutesOrZero(events[j].EventTime())
	})
}
