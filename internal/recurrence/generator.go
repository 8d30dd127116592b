package recurrence

import (
	"sort"
	"strings"
	"time"

	"github.com/seicologia/agenda/internal/constants"
	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/utils"
)

// parityGuard bounds the forward snap onto the right ISO week parity.
const parityGuard = 3

// RuleFor classifies the patient's frequency after the legacy label migration.
func RuleFor(p models.Patient) Rule {
	freq := p.Frequency
	if strings.TrimSpace(freq) == "" {
		freq = constants.FrequencyWeekly
	}
	return Classify(models.MigrateFrequency(freq))
}

// Generate returns the patient's occurrences inside the month containing
// month, as midnight instants in loc, sorted ascending.
//
// Inactive patients, unparseable start or end dates and unknown weekday
// labels produce no occurrences.
func Generate(p models.Patient, month time.Time, loc *time.Location) []models.Session {
	if loc == nil {
		loc = time.Local
	}
	if !p.IsActive() {
		return nil
	}
	startDate, err := utils.ParseDateInLocation(p.StartDate, loc)
	if err != nil {
		return nil
	}
	var endDate time.Time
	hasEnd := strings.TrimSpace(p.EndDate) != ""
	if hasEnd {
		e, err := utils.ParseDateInLocation(p.EndDate, loc)
		if err != nil {
			return nil
		}
		endDate = utils.Civil(e)
	}
	// Derived on every call; never stored on the patient.
	weekday, ok := utils.ParseWeekday(p.DayOfWeek)
	if !ok {
		return nil
	}

	rule := RuleFor(p)
	step := 7 * rule.IntervalWeeks()
	start := utils.Civil(startDate)
	monthStart := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)

	cursor := start
	for cursor.Weekday() != weekday {
		cursor = cursor.AddDate(0, 0, 1)
	}

	if cursor.Before(monthStart) {
		weeks := utils.DaysBetween(cursor, monthStart) / 7
		if weeks > 0 {
			if rule.Kind == BiweeklyAnchor {
				cursor = cursor.AddDate(0, 0, 14*(weeks/2))
			} else {
				cursor = cursor.AddDate(0, 0, 7*weeks)
			}
		}
		for cursor.Before(monthStart) {
			cursor = cursor.AddDate(0, 0, step)
		}
		if rule.Kind == BiweeklyYear {
			for guard := 0; guard < parityGuard && utils.ISOWeekParity(cursor) != rule.Parity; guard++ {
				cursor = cursor.AddDate(0, 0, 7)
			}
		}
	}

	var out []models.Session
	for !cursor.After(monthEnd) {
		eligible := !cursor.Before(start) &&
			(!hasEnd || cursor.Before(endDate)) &&
			utils.SameMonth(cursor, monthStart) &&
			(rule.Kind != BiweeklyYear || utils.ISOWeekParity(cursor) == rule.Parity)
		if eligible {
			day := utils.FromCivil(cursor, loc)
			out = append(out, models.Session{
				PatientID:    p.ID,
				Date:         day,
				OriginalDate: day,
				Time:         p.Time,
				Duration:     p.SessionDuration(),
				Rate:         p.Rate,
				Status:       models.StatusScheduled,
			})
		}
		cursor = cursor.AddDate(0, 0, step)
	}
	return out
}

// GenerateAll generates every patient's occurrences for the month, ordered by
// date, then time of day, then patient id.
func GenerateAll(patients []models.Patient, month time.Time, loc *time.Location) []models.Session {
	var out []models.Session
	for _, p := range patients {
		out = append(out, Generate(p, month, loc)...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		am, bm := utils.MinutesOrZero(a.Time), utils.MinutesOrZero(b.Time)
		if am != bm {
			return am < bm
		}
		return a.PatientID < b.PatientID
	})
	return out
}
