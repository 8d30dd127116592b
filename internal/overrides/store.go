package overrides

import (
	"encoding/json"
	"errors"
	"maps"
	"slices"
	"time"

	"github.com/seicologia/agenda/internal/models"
)

// SessionOverrides holds the patches applied to generated occurrences.
type SessionOverrides map[SessionKey]models.SessionPatch

// With returns a copy of o where patch is merged into the existing entry for key.
func (o SessionOverrides) With(key SessionKey, patch models.SessionPatch) SessionOverrides {
	next := make(SessionOverrides, len(o)+1)
	maps.Copy(next, o)
	next[key] = o[key].Merge(patch)
	return next
}

// Encode returns the persisted string-keyed form.
func (o SessionOverrides) Encode() map[string]models.SessionPatch {
	out := make(map[string]models.SessionPatch, len(o))
	for k, v := range o {
		out[k.String()] = v
	}
	return out
}

// DecodeSessions parses persisted overrides. Malformed keys are dropped and
// reported through the joined error; the valid entries are always returned.
func DecodeSessions(raw map[string]models.SessionPatch, loc *time.Location) (SessionOverrides, error) {
	out := make(SessionOverrides, len(raw))
	var errs []error
	for _, s := range slices.Sorted(maps.Keys(raw)) {
		k, err := ParseSessionKey(s, loc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[k] = out[k].Merge(raw[s])
	}
	return out, errors.Join(errs...)
}

func (o SessionOverrides) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Encode())
}

// UnmarshalJSON reads bare-date keys as local midnight; use DecodeSessions
// when a workspace timezone is configured.
func (o *SessionOverrides) UnmarshalJSON(data []byte) error {
	var raw map[string]models.SessionPatch
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := DecodeSessions(raw, time.Local)
	*o = decoded
	return err
}

// PaymentOverrides holds the patches applied to derived payment events.
type PaymentOverrides map[PaymentKey]models.PaymentPatch

// With returns a copy of o where patch is merged into the existing entry for key.
func (o PaymentOverrides) With(key PaymentKey, patch models.PaymentPatch) PaymentOverrides {
	next := make(PaymentOverrides, len(o)+1)
	maps.Copy(next, o)
	next[key] = o[key].Merge(patch)
	return next
}

func (o PaymentOverrides) Encode() map[string]models.PaymentPatch {
	out := make(map[string]models.PaymentPatch, len(o))
	for k, v := range o {
		out[k.String()] = v
	}
	return out
}

func DecodePayments(raw map[string]models.PaymentPatch) (PaymentOverrides, error) {
	out := make(PaymentOverrides, len(raw))
	var errs []error
	for s, v := range raw {
		k, err := ParsePaymentKey(s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[k] = v
	}
	return out, errors.Join(errs...)
}

func (o PaymentOverrides) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Encode())
}

func (o *PaymentOverrides) UnmarshalJSON(data []byte) error {
	var raw map[string]models.PaymentPatch
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := DecodePayments(raw)
	*o = decoded
	return err
}

// State is the mutable part of a workspace: everything the user changed on
// top of what the recurrence rules derive.
type State struct {
	Sessions SessionOverrides `json:"appointment_overrides"`
	Extras   []models.Session `json:"extra_sessions"`
	Payments PaymentOverrides `json:"payment_overrides"`
}

// Clone returns a deep enough copy for copy-on-write updates: maps and the
// extras slice are fresh, patch values are immutable by convention.
func (s State) Clone() State {
	return State{
		Sessions: maps.Clone(s.Sessions),
		Extras:   slices.Clone(s.Extras),
		Payments: maps.Clone(s.Payments),
	}
}

// Empty reports whether nothing has been recorded yet.
func (s State) Empty() bool {
	return len(s.Sessions) == 0 && len(s.Extras) == 0 && len(s.Payments) == 0
}
