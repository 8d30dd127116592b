package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentOverdue PaymentStatus = "overdue"
)

// Valid reports whether s can be stored in a payment override.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentOverdue:
		return true
	}
	return false
}

// PaymentEvent is a derived charge for one billing cycle of a patient.
// Rate holds the cycle total; UnitRate is the patient's per-session rate.
type PaymentEvent struct {
	ID            string          `json:"id"`
	PatientID     string          `json:"patientId"`
	PatientName   string          `json:"patientName"`
	Date          time.Time       `json:"date"`
	Time          string          `json:"time"`
	Duration      int             `json:"duration"`
	Rate          decimal.Decimal `json:"rate"`
	UnitRate      decimal.Decimal `json:"unitRate"`
	SessionsCount int             `json:"sessionsCount"`
	PeriodStart   time.Time       `json:"periodStart"`
	PeriodEnd     time.Time       `json:"periodEnd"`
	PayRecurrence string          `json:"payRecurrence"`
	Status        PaymentStatus   `json:"status"`
	PaidAt        *time.Time      `json:"paidAt,omitempty"`
}

// Apply merges a stored override onto the derived event.
func (e PaymentEvent) Apply(p PaymentPatch) PaymentEvent {
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.PaidAt.Set {
		e.PaidAt = p.PaidAt.Value
	}
	return e
}
