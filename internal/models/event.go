package models

import "time"

type EventKind string

const (
	KindSession EventKind = "session"
	KindPayment EventKind = "payment"
)

// Event is one entry of the monthly agenda: a session or a payment.
type Event interface {
	Kind() EventKind
	EventDate() time.Time
	EventTime() string
	EventPatientID() string
}

// SessionEvent is a session with the patient name resolved for display.
type SessionEvent struct {
	Session
	PatientName string `json:"patientName"`
}

func (e SessionEvent) Kind() EventKind        { return KindSession }
func (e SessionEvent) EventDate() time.Time   { return e.Date }
func (e SessionEvent) EventTime() string      { return e.Time }
func (e SessionEvent) EventPatientID() string { return e.PatientID }

func (e PaymentEvent) Kind() EventKind        { return KindPayment }
func (e PaymentEvent) EventDate() time.Time   { return e.Date }
func (e PaymentEvent) EventTime() string      { return e.Time }
func (e PaymentEvent) EventPatientID() string { return e.PatientID }
