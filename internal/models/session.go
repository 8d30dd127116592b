package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SessionStatus string

const (
	StatusScheduled   SessionStatus = "scheduled"
	StatusOccurred    SessionStatus = "occurred"
	StatusCancelled   SessionStatus = "cancelled"
	StatusRescheduled SessionStatus = "rescheduled"
	StatusMissedPaid  SessionStatus = "missed_paid"
	// StatusPaid is the legacy terminal marker, treated like occurred.
	StatusPaid SessionStatus = "paid"
)

// Valid reports whether s is part of the session status vocabulary.
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusOccurred, StatusCancelled, StatusRescheduled, StatusMissedPaid, StatusPaid:
		return true
	}
	return false
}

// Hidden reports whether a session with this status is dropped from the visible agenda.
func (s SessionStatus) Hidden() bool {
	return s == StatusCancelled || s == StatusRescheduled
}

// Billable reports whether a session with this status counts towards a payment cycle.
func (s SessionStatus) Billable() bool {
	return !s.Hidden()
}

// Confirmed reports whether the session no longer needs a decision from the user.
func (s SessionStatus) Confirmed() bool {
	switch s {
	case StatusOccurred, StatusCancelled, StatusRescheduled, StatusMissedPaid, StatusPaid:
		return true
	}
	return false
}

// SlotRef points at a dated slot; used to link both ends of a reschedule.
type SlotRef struct {
	PatientID string `json:"patientId,omitempty"`
	Date      string `json:"date"` // YYYY-MM-DD format
	Time      string `json:"time"` // HH:MM format
}

// Session is one dated session of a patient. Generated occurrences and extra
// sessions share this shape; extras carry IsExtra and their own ID.
type Session struct {
	ID              string          `json:"id,omitempty"`
	PatientID       string          `json:"patientId"`
	Date            time.Time       `json:"date"`
	OriginalDate    time.Time       `json:"originalDate"`
	Time            string          `json:"time"` // HH:MM format
	Duration        int             `json:"duration"`
	Rate            decimal.Decimal `json:"rate"`
	Status          SessionStatus   `json:"status,omitempty"`
	IsExtra         bool            `json:"isExtra,omitempty"`
	CancelledAt     *time.Time      `json:"cancelledAt,omitempty"`
	RescheduledAt   *time.Time      `json:"rescheduledAt,omitempty"`
	RescheduledTo   *SlotRef        `json:"rescheduledTo,omitempty"`
	RescheduledFrom *SlotRef        `json:"rescheduledFrom,omitempty"`
	// NotesDone is derived from the session notes, never persisted in overrides.
	NotesDone bool `json:"notesDone,omitempty"`
}

// EffectiveStatus returns the status, defaulting to scheduled.
func (s Session) EffectiveStatus() SessionStatus {
	if s.Status == "" {
		return StatusScheduled
	}
	return s.Status
}

// Apply merges a patch onto the session. OriginalDate is never touched.
func (s Session) Apply(p SessionPatch) Session {
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.Date != nil {
		s.Date = *p.Date
	}
	if p.Time != nil {
		s.Time = *p.Time
	}
	if p.Rate != nil {
		s.Rate = *p.Rate
	}
	if p.CancelledAt.Set {
		s.CancelledAt = p.CancelledAt.Value
	}
	if p.RescheduledAt.Set {
		s.RescheduledAt = p.RescheduledAt.Value
	}
	if p.RescheduledTo.Set {
		s.RescheduledTo = p.RescheduledTo.Value
	}
	return s
}
