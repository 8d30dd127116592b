package recurrence

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/utils"
)

func patient(freq, day, start string) models.Patient {
	return models.Patient{
		ID:        "p1",
		Name:      "Ana",
		Rate:      decimal.NewFromInt(150),
		Duration:  50,
		Frequency: freq,
		DayOfWeek: day,
		Time:      "10:00",
		StartDate: start,
		Active:    "Sim",
	}
}

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func days(sessions []models.Session) []int {
	out := make([]int, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Date.Day())
	}
	return out
}

func TestGenerateWeekly(t *testing.T) {
	p := patient("Semanal", "segunda-feira", "2024-01-01")
	got := Generate(p, month(2024, time.March), time.UTC)

	assert.Equal(t, []int{4, 11, 18, 25}, days(got))
	for _, s := range got {
		assert.Equal(t, "p1", s.PatientID)
		assert.Equal(t, s.Date, s.OriginalDate)
		assert.Equal(t, "10:00", s.Time)
		assert.Equal(t, 50, s.Duration)
		assert.True(t, s.Rate.Equal(decimal.NewFromInt(150)))
		assert.Equal(t, models.StatusScheduled, s.Status)
	}
}

func TestGenerateStartIsInclusive(t *testing.T) {
	p := patient("Semanal", "segunda", "2024-03-11")
	assert.Equal(t, []int{11, 18, 25}, days(Generate(p, month(2024, time.March), time.UTC)))
}

func TestGenerateAlignsStartToWeekday(t *testing.T) {
	// 2024-03-06 is a Wednesday.
	p := patient("Semanal", "segunda-feira", "2024-03-06")
	assert.Equal(t, []int{11, 18, 25}, days(Generate(p, month(2024, time.March), time.UTC)))
}

func TestGenerateEndIsExclusive(t *testing.T) {
	p := patient("Semanal", "segunda-feira", "2024-01-01")
	p.EndDate = "2024-03-18"
	assert.Equal(t, []int{4, 11}, days(Generate(p, month(2024, time.March), time.UTC)))
}

func TestGenerateSkipsUnusablePatients(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Patient)
	}{
		{"inactive", func(p *models.Patient) { p.Active = "Não" }},
		{"empty active flag", func(p *models.Patient) { p.Active = "" }},
		{"invalid start", func(p *models.Patient) { p.StartDate = "32/13/2024" }},
		{"missing start", func(p *models.Patient) { p.StartDate = "" }},
		{"invalid end", func(p *models.Patient) { p.EndDate = "soon" }},
		{"unknown weekday", func(p *models.Patient) { p.DayOfWeek = "someday" }},
		{"start after month", func(p *models.Patient) { p.StartDate = "2024-04-01" }},
		{"ended before month", func(p *models.Patient) { p.EndDate = "2024-02-01" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := patient("Semanal", "segunda-feira", "2024-01-01")
			tt.mutate(&p)
			assert.Empty(t, Generate(p, month(2024, time.March), time.UTC))
		})
	}
}

func TestGenerateActiveFlagIsAccentInsensitive(t *testing.T) {
	p := patient("Semanal", "Terça-feira", "2024-01-01")
	p.Active = "SIM"
	assert.Equal(t, []int{5, 12, 19, 26}, days(Generate(p, month(2024, time.March), time.UTC)))
}

func TestGenerateBiweeklyYearParity(t *testing.T) {
	// Mondays of March 2024 fall in ISO weeks 10, 11, 12 and 13.
	odd := patient("Quinzenal (Ímpar)", "segunda-feira", "2024-01-01")
	even := patient("Quinzenal (Par)", "segunda-feira", "2024-01-01")

	assert.Equal(t, []int{11, 25}, days(Generate(odd, month(2024, time.March), time.UTC)))
	assert.Equal(t, []int{4, 18}, days(Generate(even, month(2024, time.March), time.UTC)))
}

func TestGenerateBiweeklyYearStartingInsideMonth(t *testing.T) {
	// Starts on an even week; the first odd week afterwards is the first session.
	p := patient("Quinzenal (Ímpar)", "segunda-feira", "2024-03-04")
	assert.Equal(t, []int{11, 25}, days(Generate(p, month(2024, time.March), time.UTC)))
}

func TestGenerateLegacyLabelMigratesToOdd(t *testing.T) {
	legacy := patient("Quinzenal", "segunda-feira", "2024-01-08")
	odd := patient("Quinzenal (Ímpar)", "segunda-feira", "2024-01-08")

	assert.Equal(t,
		days(Generate(odd, month(2024, time.March), time.UTC)),
		days(Generate(legacy, month(2024, time.March), time.UTC)))
}

func TestGenerateBiweeklyAnchor(t *testing.T) {
	// Jan 1, 15, 29, Feb 12, 26, Mar 11, 25.
	p := patient("biweekly", "segunda-feira", "2024-01-01")
	assert.Equal(t, []int{11, 25}, days(Generate(p, month(2024, time.March), time.UTC)))

	// Jan 8, 22, Feb 5, 19, Mar 4, 18.
	p.StartDate = "2024-01-08"
	assert.Equal(t, []int{4, 18}, days(Generate(p, month(2024, time.March), time.UTC)))
}

func TestGenerateAcrossISOYearBoundary(t *testing.T) {
	// 2020 has 53 ISO weeks: Dec 28 2020 (week 53) and Jan 4 2021 (week 1) are both odd.
	p := patient("Quinzenal (Ímpar)", "segunda-feira", "2020-01-01")

	assert.Equal(t, []int{14, 28}, days(Generate(p, month(2020, time.December), time.UTC)))
	assert.Equal(t, []int{4, 18}, days(Generate(p, month(2021, time.January), time.UTC)))
}

func TestGenerateYearParityProperty(t *testing.T) {
	for _, freq := range []string{"Quinzenal (Ímpar)", "Quinzenal (Par)"} {
		rule := Classify(freq)
		for _, day := range utils.WeekdayLabels {
			p := patient(freq, day, "2023-01-01")
			for m := time.January; m <= time.December; m++ {
				for _, s := range Generate(p, month(2024, m), time.UTC) {
					assert.Equal(t, rule.Parity, utils.ISOWeekParity(s.Date), "%s %s %s", freq, day, s.Date.Format("2006-01-02"))
				}
			}
		}
	}
}

func TestGenerateWeeklyMatchesBruteForce(t *testing.T) {
	start := time.Date(2023, time.March, 15, 0, 0, 0, 0, time.UTC)
	for _, day := range utils.WeekdayLabels {
		wd, ok := utils.ParseWeekday(day)
		require.True(t, ok)
		p := patient("Semanal", day, start.Format("2006-01-02"))

		for i := 0; i < 24; i++ {
			m := month(2023, time.January).AddDate(0, i, 0)
			var want []int
			for d := m; d.Month() == m.Month(); d = d.AddDate(0, 0, 1) {
				if d.Weekday() == wd && !d.Before(start) {
					want = append(want, d.Day())
				}
			}
			got := days(Generate(p, m, time.UTC))
			if len(want) == 0 {
				assert.Empty(t, got, "%s %s", day, m.Format("2006-01"))
				continue
			}
			assert.Equal(t, want, got, "%s %s", day, m.Format("2006-01"))
		}
	}
}

func TestGenerateAnchorKeepsTwoWeekSpacing(t *testing.T) {
	p := patient("biweekly", "quarta-feira", "2023-05-03")
	var prev time.Time
	for i := 0; i < 18; i++ {
		for _, s := range Generate(p, month(2023, time.May).AddDate(0, i, 0), time.UTC) {
			if !prev.IsZero() {
				assert.Equal(t, 14, utils.DaysBetween(prev, s.Date), "after %s", prev.Format("2006-01-02"))
			}
			prev = s.Date
		}
	}
}

func TestGenerateUsesLocationMidnight(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	p := patient("Semanal", "sexta-feira", "2024-02-02")

	got := Generate(p, time.Date(2024, time.February, 10, 12, 0, 0, 0, loc), loc)
	require.Len(t, got, 4)
	for _, s := range got {
		assert.Equal(t, loc, s.Date.Location())
		assert.Equal(t, 0, s.Date.Hour())
		assert.Equal(t, time.Friday, s.Date.Weekday())
	}
}

func TestGenerateRederivesWeekday(t *testing.T) {
	p := patient("Semanal", "segunda-feira", "2024-01-01")
	first := Generate(p, month(2024, time.March), time.UTC)

	p.DayOfWeek = "quinta-feira"
	second := Generate(p, month(2024, time.March), time.UTC)

	require.NotEmpty(t, first)
	require.NotEmpty(t, second)
	assert.Equal(t, time.Monday, first[0].Date.Weekday())
	assert.Equal(t, time.Thursday, second[0].Date.Weekday())
}

func TestGenerateAllOrdering(t *testing.T) {
	a := patient("Semanal", "segunda-feira", "2024-01-01")
	a.ID, a.Time = "b", "14:00"
	b := patient("Semanal", "segunda-feira", "2024-01-01")
	b.ID, b.Time = "a", "08:30"
	c := patient("Semanal", "segunda-feira", "2024-01-01")
	c.ID, c.Time = "c", "08:30"

	got := GenerateAll([]models.Patient{a, b, c}, month(2024, time.March), time.UTC)
	require.Len(t, got, 12)

	var order []string
	for _, s := range got[:3] {
		order = append(order, fmt.Sprintf("%s@%s", s.PatientID, s.Time))
	}
	assert.Equal(t, []string{"a@08:30", "c@08:30", "b@14:00"}, order)
}
