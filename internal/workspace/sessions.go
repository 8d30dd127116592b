package workspace

import (
	"fmt"
	"strings"
	"time"

	"github.com/seicologia/agenda/internal/appointments"
	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/overrides"
	"github.com/seicologia/agenda/internal/recurrence"
	"github.com/seicologia/agenda/internal/utils"
)

// SessionRef addresses a session from outside: an extra by its id, a
// generated occurrence by patient and original date.
type SessionRef struct {
	PatientID string `json:"patientId,omitempty"`
	Date      string `json:"date,omitempty"` // original date, YYYY-MM-DD format
	ExtraID   string `json:"extraId,omitempty"`
}

func (r SessionRef) String() string {
	if r.ExtraID != "" {
		return r.ExtraID
	}
	return r.PatientID + "@" + r.Date
}

// Ref returns the reference of s.
func Ref(s models.Session) SessionRef {
	if s.IsExtra {
		return SessionRef{ExtraID: s.ID}
	}
	return SessionRef{PatientID: s.PatientID, Date: s.OriginalDate.Format("2006-01-02")}
}

// Session resolves ref, including cancelled and rescheduled sessions that
// the agenda hides. Caller must hold mu.
func (w *Workspace) sessionLocked(ref SessionRef) (models.Session, error) {
	if ref.ExtraID != "" {
		s, ok := w.book.Extra(ref.ExtraID)
		if !ok {
			return models.Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, ref)
		}
		return s, nil
	}

	p, err := w.patientLocked(ref.PatientID)
	if err != nil {
		return models.Session{}, err
	}
	day, err := utils.ParseDateInLocation(ref.Date, w.loc)
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	for _, s := range recurrence.Generate(p.Sanitize(), day, w.loc) {
		if s.OriginalDate.Equal(day) {
			patch := w.book.State().Sessions[overrides.NewSessionKey(s.PatientID, s.OriginalDate)]
			return s.Apply(patch), nil
		}
	}
	return models.Session{}, fmt.Errorf("%w: %s has no session on %s", ErrSessionNotFound, p.Name, ref.Date)
}

// Session resolves ref.
func (w *Workspace) Session(ref SessionRef) (models.Session, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.sessionLocked(ref)
}

// SetSessionStatus records the status the user picked for a session.
func (w *Workspace) SetSessionStatus(ref SessionRef, status models.SessionStatus) (models.Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, err := w.sessionLocked(ref)
	if err != nil {
		return models.Session{}, err
	}
	next, err := w.book.SetStatus(s, status, w.now())
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	w.commit(next)
	return w.sessionLocked(ref)
}

// PatchSession merges patch into the session's override.
func (w *Workspace) PatchSession(ref SessionRef, patch models.SessionPatch) (models.Session, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return models.Session{}, fmt.Errorf("%w: invalid session status %q", ErrInvalid, *patch.Status)
	}
	if patch.Time != nil && !utils.ValidateTimeFormat(*patch.Time) {
		return models.Session{}, fmt.Errorf("%w: invalid time %q", ErrInvalid, *patch.Time)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	s, err := w.sessionLocked(ref)
	if err != nil {
		return models.Session{}, err
	}
	next, err := w.book.UpdateAppointment(s, patch)
	if err != nil {
		return models.Session{}, err
	}
	w.commit(next)
	return w.sessionLocked(ref)
}

// ExtraInput is a one-off session request.
type ExtraInput struct {
	PatientID string `json:"patientId"`
	Date      string `json:"date"` // YYYY-MM-DD format
	Time      string `json:"time"` // HH:MM format
	Duration  int    `json:"duration,omitempty"`
	Rate      string `json:"rate,omitempty"` // decimal, defaults to the patient rate
}

// AddSession books an extra session for an existing patient.
func (w *Workspace) AddSession(in ExtraInput) (models.Session, error) {
	day, err := w.ParseDate(in.Date)
	if err != nil {
		return models.Session{}, err
	}
	if !utils.ValidateTimeFormat(in.Time) {
		return models.Session{}, fmt.Errorf("%w: invalid time %q (expected HH:MM)", ErrInvalid, in.Time)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	p, err := w.patientLocked(in.PatientID)
	if err != nil {
		return models.Session{}, err
	}
	rate := p.Rate
	if strings.TrimSpace(in.Rate) != "" {
		if rate, err = ParseRate(in.Rate); err != nil {
			return models.Session{}, err
		}
	}
	duration := in.Duration
	if duration <= 0 {
		duration = p.SessionDuration()
	}

	next, s, err := w.book.AddAppointment(models.Session{
		PatientID: p.ID,
		Date:      day,
		Time:      strings.TrimSpace(in.Time),
		Duration:  duration,
		Rate:      rate,
	})
	if err != nil {
		return models.Session{}, err
	}
	w.commit(next)
	return s, nil
}

// Reschedule moves the session at ref to date and time and returns the new
// extra session.
func (w *Workspace) Reschedule(ref SessionRef, date, newTime string) (models.Session, error) {
	day, err := w.ParseDate(date)
	if err != nil {
		return models.Session{}, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	s, err := w.sessionLocked(ref)
	if err != nil {
		return models.Session{}, err
	}
	if s.EffectiveStatus().Hidden() {
		return models.Session{}, fmt.Errorf("%w: session %s is already %s", ErrInvalid, ref, s.EffectiveStatus())
	}
	next, moved, err := w.book.Reschedule(s, day, strings.TrimSpace(newTime), w.now())
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	w.commit(next)
	return moved, nil
}

// SetPaymentStatus marks the payment due on date as paid, pending or overdue.
func (w *Workspace) SetPaymentStatus(patientID, date string, status models.PaymentStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: invalid payment status %q", ErrInvalid, status)
	}
	day, err := w.ParseDate(date)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.patientLocked(patientID); err != nil {
		return err
	}

	var patch models.PaymentPatch
	switch status {
	case models.PaymentPaid:
		patch = models.MarkPaid(w.now())
	case models.PaymentPending:
		patch = models.MarkPending()
	default:
		patch = models.PaymentPatch{Status: &status}
	}
	w.commit(w.book.UpdatePayment(patientID, day, patch))
	return nil
}

// Payment returns the payment event due on date, if the patient has one.
func (w *Workspace) Payment(patientID, date string) (models.PaymentEvent, error) {
	day, err := w.ParseDate(date)
	if err != nil {
		return models.PaymentEvent{}, err
	}
	key := overrides.NewPaymentKey(patientID, day).String()
	for _, pay := range appointments.Payments(w.Agenda(day)) {
		if pay.ID == key {
			return pay, nil
		}
	}
	return models.PaymentEvent{}, fmt.Errorf("no payment for %s on %s: %w", patientID, date, ErrSessionNotFound)
}

// SessionOn finds the visible session of a patient on a date, used by the
// CLI where users type dates rather than references.
func (w *Workspace) SessionOn(patientID string, day time.Time) (models.Session, error) {
	for _, s := range appointments.Sessions(w.Agenda(day)) {
		if s.PatientID == patientID && utils.Civil(s.Date).Equal(utils.Civil(day)) {
			return s.Session, nil
		}
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.sessionLocked(SessionRef{PatientID: patientID, Date: day.Format("2006-01-02")})
}
