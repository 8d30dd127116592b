package models

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Optional distinguishes "not in the patch" from "explicitly cleared" (JSON null)
// for fields a patch is allowed to remove.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null returns an Optional that clears the field it is applied to.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

func (o Optional[T]) IsZero() bool { return !o.Set }

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// merge returns next when it carries a value or a clear, otherwise base.
func merge[T any](base, next Optional[T]) Optional[T] {
	if next.Set {
		return next
	}
	return base
}

func mergePtr[T any](base, next *T) *T {
	if next != nil {
		return next
	}
	return base
}

// SessionPatch is a partial update stored against a generated occurrence.
type SessionPatch struct {
	Status        *SessionStatus      `json:"status,omitempty"`
	Date          *time.Time          `json:"date,omitempty"`
	Time          *string             `json:"time,omitempty"`
	Rate          *decimal.Decimal    `json:"rate,omitempty"`
	CancelledAt   Optional[time.Time] `json:"cancelledAt,omitzero"`
	RescheduledAt Optional[time.Time] `json:"rescheduledAt,omitzero"`
	RescheduledTo Optional[SlotRef]   `json:"rescheduledTo,omitzero"`
}

// Merge layers next over p; fields absent from next keep p's value.
func (p SessionPatch) Merge(next SessionPatch) SessionPatch {
	return SessionPatch{
		Status:        mergePtr(p.Status, next.Status),
		Date:          mergePtr(p.Date, next.Date),
		Time:          mergePtr(p.Time, next.Time),
		Rate:          mergePtr(p.Rate, next.Rate),
		CancelledAt:   merge(p.CancelledAt, next.CancelledAt),
		RescheduledAt: merge(p.RescheduledAt, next.RescheduledAt),
		RescheduledTo: merge(p.RescheduledTo, next.RescheduledTo),
	}
}

// StatusPatch builds the patch the agenda sends when the user picks a status:
// cancelling stamps CancelledAt, reopening clears every terminal marker.
func StatusPatch(status SessionStatus, now time.Time) SessionPatch {
	p := SessionPatch{Status: &status}
	switch status {
	case StatusCancelled:
		p.CancelledAt = Some(now.UTC())
	case StatusScheduled:
		p.CancelledAt = Null[time.Time]()
		p.RescheduledAt = Null[time.Time]()
		p.RescheduledTo = Null[SlotRef]()
	}
	return p
}

// PaymentPatch is a partial update stored against a payment event.
type PaymentPatch struct {
	Status *PaymentStatus      `json:"status,omitempty"`
	PaidAt Optional[time.Time] `json:"paidAt,omitzero"`
}

// Merge layers next over p.
func (p PaymentPatch) Merge(next PaymentPatch) PaymentPatch {
	return PaymentPatch{
		Status: mergePtr(p.Status, next.Status),
		PaidAt: merge(p.PaidAt, next.PaidAt),
	}
}

// MarkPaid returns the patch for confirming a payment at now.
func MarkPaid(now time.Time) PaymentPatch {
	st := PaymentPaid
	return PaymentPatch{Status: &st, PaidAt: Some(now.UTC())}
}

// MarkPending returns the patch that reopens a payment.
func MarkPending() PaymentPatch {
	st := PaymentPending
	return PaymentPatch{Status: &st, PaidAt: Null[time.Time]()}
}
