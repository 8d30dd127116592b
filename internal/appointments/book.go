package appointments

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/seicologia/agenda/internal/constants"
	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/overrides"
	"github.com/seicologia/agenda/internal/utils"
)

var (
	ErrExtraNotFound  = errors.New("extra session not found")
	ErrMissingPatient = errors.New("session has no patient")
)

// Book is an immutable snapshot of the workspace state. Every mutation
// returns a new Book and leaves the receiver, and any map or slice it
// handed out, untouched.
type Book struct {
	state overrides.State
}

// NewBook wraps st. The caller must not modify st afterwards.
func NewBook(st overrides.State) Book {
	if st.Sessions == nil {
		st.Sessions = overrides.SessionOverrides{}
	}
	if st.Payments == nil {
		st.Payments = overrides.PaymentOverrides{}
	}
	return Book{state: st}
}

// State returns a copy of the snapshot suitable for persisting.
func (b Book) State() overrides.State {
	return b.state.Clone()
}

// Extra returns the extra session with id.
func (b Book) Extra(id string) (models.Session, bool) {
	for _, s := range b.state.Extras {
		if s.ID == id {
			return s, true
		}
	}
	return models.Session{}, false
}

// UpdateAppointment patches one session. Extra sessions are patched in
// place by id; generated occurrences get the patch merged into their
// override, keyed by patient and original date.
func (b Book) UpdateAppointment(s models.Session, patch models.SessionPatch) (Book, error) {
	next := b.state
	if s.IsExtra {
		i := slices.IndexFunc(b.state.Extras, func(e models.Session) bool { return e.ID == s.ID })
		if i < 0 {
			return b, fmt.Errorf("%w: %s", ErrExtraNotFound, s.ID)
		}
		next.Extras = slices.Clone(b.state.Extras)
		next.Extras[i] = next.Extras[i].Apply(patch)
		return Book{state: next}, nil
	}
	if s.PatientID == "" {
		return b, ErrMissingPatient
	}
	key := overrides.NewSessionKey(s.PatientID, s.OriginalDate)
	next.Sessions = b.state.Sessions.With(key, patch)
	return Book{state: next}, nil
}

// AddAppointment appends s as a new extra session with a fresh id and
// scheduled status.
func (b Book) AddAppointment(s models.Session) (Book, models.Session, error) {
	s.PatientID = strings.TrimSpace(s.PatientID)
	if s.PatientID == "" {
		return b, models.Session{}, ErrMissingPatient
	}
	s.ID = constants.ExtraIDPrefix + uuid.NewString()
	s.IsExtra = true
	s.Status = models.StatusScheduled
	if s.OriginalDate.IsZero() {
		s.OriginalDate = s.Date
	}
	if s.Duration <= 0 {
		s.Duration = constants.DefaultDurationMin
	}

	next := b.state
	next.Extras = append(slices.Clone(b.state.Extras), s)
	return Book{state: next}, s, nil
}

// UpdatePayment merges patch into the override of the payment due on date.
func (b Book) UpdatePayment(patientID string, date time.Time, patch models.PaymentPatch) Book {
	next := b.state
	next.Payments = b.state.Payments.With(overrides.NewPaymentKey(patientID, date), patch)
	return Book{state: next}
}

// Reschedule moves one session to newDate at newTime: the original is marked
// rescheduled and points at the target, and an extra session pointing back
// at the original is created at the target slot.
func (b Book) Reschedule(s models.Session, newDate time.Time, newTime string, now time.Time) (Book, models.Session, error) {
	if !utils.ValidateTimeFormat(newTime) {
		return b, models.Session{}, fmt.Errorf("invalid time %q (expected HH:MM)", newTime)
	}
	if newDate.IsZero() {
		return b, models.Session{}, fmt.Errorf("missing reschedule date")
	}
	at := now.UTC()
	target := models.SlotRef{Date: newDate.Format(constants.DateFormat), Time: newTime}
	status := models.StatusRescheduled

	marked, err := b.UpdateAppointment(s, models.SessionPatch{
		Status:        &status,
		RescheduledAt: models.Some(at),
		RescheduledTo: models.Some(target),
	})
	if err != nil {
		return b, models.Session{}, err
	}

	from := s.OriginalDate
	if from.IsZero() {
		from = s.Date
	}
	moved := models.Session{
		PatientID:     s.PatientID,
		Date:          newDate,
		OriginalDate:  newDate,
		Time:          newTime,
		Duration:      s.Duration,
		Rate:          s.Rate,
		RescheduledAt: &at,
		RescheduledFrom: &models.SlotRef{
			PatientID: s.PatientID,
			Date:      from.Format(constants.DateFormat),
			Time:      s.Time,
		},
	}
	return marked.AddAppointment(moved)
}

// SetStatus applies the status change a user picks in the agenda.
func (b Book) SetStatus(s models.Session, status models.SessionStatus, now time.Time) (Book, error) {
	if !status.Valid() {
		return b, fmt.Errorf("invalid session status %q", status)
	}
	return b.UpdateAppointment(s, models.StatusPatch(status, now))
}
