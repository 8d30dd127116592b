package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPatientSanitize(t *testing.T) {
	p := Patient{ID: " p1 ", Frequency: "quinzenal", Time: " 09:00", DayOfWeek: "segunda-feira "}.Sanitize()

	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, 50, p.Duration)
	assert.Equal(t, "Quinzenal (Ímpar)", p.Frequency)
	assert.Equal(t, "09:00", p.Time)
	assert.Equal(t, "segunda-feira", p.DayOfWeek)
	assert.Equal(t, "", p.Active)

	assert.Equal(t, "Semanal", Patient{}.Sanitize().Frequency)
	assert.Equal(t, "Quinzenal (Par)", Patient{Frequency: "Quinzenal (Par)"}.Sanitize().Frequency)
}

func TestPatientFlags(t *testing.T) {
	assert.True(t, Patient{Active: "Sim"}.IsActive())
	assert.True(t, Patient{Active: " sim "}.IsActive())
	assert.False(t, Patient{Active: "Não"}.IsActive())
	assert.False(t, Patient{}.IsActive())

	assert.Equal(t, "Mensal", Patient{}.PaymentRecurrence())
	assert.Equal(t, "Semanal", Patient{PayRecurrence: "semanal"}.PaymentRecurrence())
	assert.False(t, Patient{}.HasPaymentTerms())
	assert.True(t, Patient{PayDay: "5"}.HasPaymentTerms())
	assert.Equal(t, 40, Patient{Duration: 40}.SessionDuration())
}
