package overrides

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/seicologia/agenda/internal/constants"
	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/utils"
)

var ErrMalformedKey = errors.New("malformed override key")

// SessionKey addresses one generated occurrence by patient and original date.
// The date is held as the Unix millisecond of the occurrence's local midnight
// so that keys compare by value regardless of time.Location.
type SessionKey struct {
	PatientID string
	At        int64
}

// NewSessionKey builds the key of an occurrence from its immutable original date.
func NewSessionKey(patientID string, originalDate time.Time) SessionKey {
	return SessionKey{PatientID: patientID, At: originalDate.UnixMilli()}
}

// OriginalDate returns the keyed instant in loc.
func (k SessionKey) OriginalDate(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(k.At).In(loc)
}

// String renders the persisted form: "{patientId}_{2006-01-02T15:04:05.000Z}".
func (k SessionKey) String() string {
	return k.PatientID + "_" + time.UnixMilli(k.At).UTC().Format(constants.InstantFormat)
}

// ParseSessionKey decodes the persisted form. A bare YYYY-MM-DD date part is
// accepted too and read as midnight in loc.
func ParseSessionKey(s string, loc *time.Location) (SessionKey, error) {
	if loc == nil {
		loc = time.Local
	}
	i := strings.LastIndex(s, "_")
	if i <= 0 || i == len(s)-1 {
		return SessionKey{}, fmt.Errorf("%w: %q", ErrMalformedKey, s)
	}
	id, datePart := s[:i], s[i+1:]
	if t, err := time.Parse(time.RFC3339Nano, datePart); err == nil {
		return SessionKey{PatientID: id, At: t.UnixMilli()}, nil
	}
	d, err := time.ParseInLocation(constants.DateFormat, datePart, loc)
	if err != nil {
		return SessionKey{}, fmt.Errorf("%w: %q", ErrMalformedKey, s)
	}
	return SessionKey{PatientID: id, At: d.UnixMilli()}, nil
}

// PaymentKey addresses the payment event of a patient on a calendar date.
// Like session keys, the date is that of local midnight in UTC, so east of
// Greenwich it reads as the previous day.
type PaymentKey struct {
	PatientID string
	Date      string // YYYY-MM-DD format
}

// NewPaymentKey builds the key from the due date at local midnight.
func NewPaymentKey(patientID string, date time.Time) PaymentKey {
	return PaymentKey{PatientID: patientID, Date: date.UTC().Format(constants.DateFormat)}
}

// Day returns the local midnight in loc the key was built from.
func (k PaymentKey) Day(loc *time.Location) (time.Time, error) {
	d, err := utils.ParseDateInLocation(k.Date, loc)
	if err != nil {
		return time.Time{}, err
	}
	if next := d.AddDate(0, 0, 1); next.UTC().Format(constants.DateFormat) == k.Date {
		return next, nil
	}
	return d, nil
}

// String renders the persisted form: "pay_{patientId}_{YYYY-MM-DD}".
func (k PaymentKey) String() string {
	return constants.PaymentKeyPrefix + k.PatientID + "_" + k.Date
}

// ParsePaymentKey decodes the persisted form.
func ParsePaymentKey(s string) (PaymentKey, error) {
	rest, ok := strings.CutPrefix(s, constants.PaymentKeyPrefix)
	if !ok {
		return PaymentKey{}, fmt.Errorf("%w: %q", ErrMalformedKey, s)
	}
	i := strings.LastIndex(rest, "_")
	if i <= 0 || i == len(rest)-1 {
		return PaymentKey{}, fmt.Errorf("%w: %q", ErrMalformedKey, s)
	}
	date := rest[i+1:]
	if _, err := time.Parse(constants.DateFormat, date); err != nil {
		return PaymentKey{}, fmt.Errorf("%w: %q", ErrMalformedKey, s)
	}
	return PaymentKey{PatientID: rest[:i], Date: date}, nil
}

// NoteKey addresses the note of a session: "{patientId}_{YYYY-MM-DD}_{HH:MM}",
// dated by the original date at local midnight in UTC like the other keys.
func NoteKey(s models.Session) string {
	return s.PatientID + "_" + s.OriginalDate.UTC().Format(constants.DateFormat) + "_" + strings.TrimSpace(s.Time)
}
