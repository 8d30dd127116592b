package models

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/seicologia/agenda/internal/constants"
	"github.com/seicologia/agenda/internal/utils"
)

// Patient is a scheduled client with a recurring slot and payment terms.
// Field names in JSON match the records produced by the web client so that
// exported snapshots can be loaded back without translation.
type Patient struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Rate           decimal.Decimal `json:"rate"`
	Duration       int             `json:"duration"`            // minutes
	Frequency      string          `json:"frequency"`           // Semanal | Quinzenal (Ímpar) | Quinzenal (Par)
	DayOfWeek      string          `json:"dayOfWeek"`           // segunda-feira, terça, ...
	Time           string          `json:"time"`                // HH:MM format
	StartDate      string          `json:"startDate"`           // YYYY-MM-DD format
	EndDate        string          `json:"endDate,omitempty"`   // YYYY-MM-DD format, exclusive
	Active         string          `json:"active"`              // Sim | Não
	PayDay         string          `json:"payDay,omitempty"`    // day of month or weekday label
	PayRecurrence  string          `json:"payRecurrence"`       // Mensal | Semanal
	LastAdjustment string          `json:"lastAdjustment,omitempty"`
	Mode           string          `json:"mode,omitempty"`     // Presencial | Online
	IsSocial       string          `json:"isSocial,omitempty"` // Sim | Não
}

// IsActive reports whether the patient's active flag reads "Sim" (accent and case insensitive).
func (p Patient) IsActive() bool {
	return utils.NormalizeText(p.Active) == "sim"
}

// SessionDuration returns the configured duration or the 50 minute default.
func (p Patient) SessionDuration() int {
	if p.Duration > 0 {
		return p.Duration
	}
	return constants.DefaultDurationMin
}

// PaymentRecurrence returns the pay recurrence, defaulting to monthly.
func (p Patient) PaymentRecurrence() string {
	if utils.NormalizeText(p.PayRecurrence) == utils.NormalizeText(constants.PayWeekly) {
		return constants.PayWeekly
	}
	return constants.PayMonthly
}

// HasPaymentTerms reports whether payment events should be derived for the patient.
func (p Patient) HasPaymentTerms() bool {
	return strings.TrimSpace(p.PayDay) != "" || strings.TrimSpace(p.PayRecurrence) != ""
}

// Sanitize applies the read-time normalization every loaded record goes through:
// a stable trimmed id, the default duration, and the legacy frequency migration.
func (p Patient) Sanitize() Patient {
	p.ID = strings.TrimSpace(p.ID)
	if p.Duration <= 0 {
		p.Duration = constants.DefaultDurationMin
	}
	p.Frequency = strings.TrimSpace(p.Frequency)
	if p.Frequency == "" {
		p.Frequency = constants.FrequencyWeekly
	}
	p.Frequency = MigrateFrequency(p.Frequency)
	p.Time = strings.TrimSpace(p.Time)
	p.DayOfWeek = strings.TrimSpace(p.DayOfWeek)
	return p
}

// MigrateFrequency rewrites the legacy plain "Quinzenal" label to "Quinzenal (Ímpar)".
// Every other label is returned unchanged.
func MigrateFrequency(label string) string {
	if utils.NormalizeText(label) == utils.NormalizeText(constants.FrequencyLegacy) {
		return constants.FrequencyBiweeklyOdd
	}
	return label
}
