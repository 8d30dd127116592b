package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seicologia/agenda/internal/models"
)

func slot(id, freq, day, tm, start string) models.Patient {
	return models.Patient{
		ID:        id,
		Name:      "Patient " + id,
		Duration:  50,
		Frequency: freq,
		DayOfWeek: day,
		Time:      tm,
		StartDate: start,
		Active:    "Sim",
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name      string
		candidate models.Patient
		other     models.Patient
		want      bool
	}{
		{
			name:      "weekly same slot",
			candidate: slot("a", "Semanal", "segunda-feira", "10:00", "2024-01-01"),
			other:     slot("b", "Semanal", "segunda", "10:30", "2023-05-01"),
			want:      true,
		},
		{
			name:      "back to back",
			candidate: slot("a", "Semanal", "segunda-feira", "10:00", "2024-01-01"),
			other:     slot("b", "Semanal", "segunda-feira", "10:50", "2024-01-01"),
			want:      false,
		},
		{
			name:      "different weekday",
			candidate: slot("a", "Semanal", "segunda-feira", "10:00", "2024-01-01"),
			other:     slot("b", "Semanal", "terça-feira", "10:00", "2024-01-01"),
			want:      false,
		},
		{
			name:      "opposite year parity",
			candidate: slot("a", "Quinzenal (Ímpar)", "segunda-feira", "10:00", "2024-01-01"),
			other:     slot("b", "Quinzenal (Par)", "segunda-feira", "10:00", "2024-01-01"),
			want:      false,
		},
		{
			name:      "same year parity",
			candidate: slot("a", "Quinzenal (Ímpar)", "segunda-feira", "10:00", "2024-01-01"),
			other:     slot("b", "quinzenal (impar)", "segunda-feira", "10:20", "2022-01-01"),
			want:      true,
		},
		{
			name:      "legacy label counts as odd",
			candidate: slot("a", "Quinzenal", "segunda-feira", "10:00", "2024-01-08"),
			other:     slot("b", "Quinzenal (Ímpar)", "segunda-feira", "10:00", "2024-01-01"),
			want:      true,
		},
		{
			name:      "legacy label alternates with even",
			candidate: slot("a", "Quinzenal", "segunda-feira", "10:00", "2024-01-08"),
			other:     slot("b", "Quinzenal (Par)", "segunda-feira", "10:00", "2024-01-01"),
			want:      false,
		},
		{
			name:      "year parity against anchor",
			candidate: slot("a", "biweekly", "segunda-feira", "10:00", "2024-01-01"),
			other:     slot("b", "Quinzenal (Par)", "segunda-feira", "10:00", "2024-01-01"),
			want:      true,
		},
		{
			name:      "anchors in opposite phase",
			candidate: slot("a", "biweekly", "segunda-feira", "10:00", "2024-01-01"),
			other:     slot("b", "biweekly", "segunda-feira", "10:00", "2024-01-08"),
			want:      false,
		},
		{
			name:      "anchors in the same phase",
			candidate: slot("a", "biweekly", "segunda-feira", "10:00", "2024-01-01"),
			other:     slot("b", "biweekly", "segunda-feira", "10:00", "2023-12-18"),
			want:      true,
		},
		{
			name:      "anchor with unknown start is conservative",
			candidate: slot("a", "biweekly", "segunda-feira", "10:00", ""),
			other:     slot("b", "biweekly", "segunda-feira", "10:00", "2024-01-08"),
			want:      true,
		},
		{
			name:      "weekly against biweekly",
			candidate: slot("a", "Semanal", "segunda-feira", "10:00", "2024-01-01"),
			other:     slot("b", "Quinzenal (Par)", "segunda-feira", "10:00", "2024-01-01"),
			want:      true,
		},
		{
			name:      "missing time",
			candidate: slot("a", "Semanal", "segunda-feira", "", "2024-01-01"),
			other:     slot("b", "Semanal", "segunda-feira", "10:00", "2024-01-01"),
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.candidate, tt.other))
			assert.Equal(t, tt.want, Overlaps(tt.other, tt.candidate), "symmetry")
		})
	}
}

func TestHasConflictFiltersParticipants(t *testing.T) {
	r := Default()
	candidate := slot("a", "Semanal", "segunda-feira", "10:00", "2024-01-01")
	other := slot("b", "Semanal", "segunda-feira", "10:00", "2024-01-01")

	assert.True(t, r.HasConflict(candidate, []models.Patient{other}, ""))
	assert.False(t, r.HasConflict(candidate, []models.Patient{other}, "b"), "ignored id")
	assert.False(t, r.HasConflict(candidate, []models.Patient{candidate}, ""), "self")

	inactiveOther := other
	inactiveOther.Active = "Não"
	assert.False(t, r.HasConflict(candidate, []models.Patient{inactiveOther}, ""))

	inactiveCandidate := candidate
	inactiveCandidate.Active = "nao"
	assert.False(t, r.HasConflict(inactiveCandidate, []models.Patient{other}, ""))
}

func TestSuggestSlotsNearestFirst(t *testing.T) {
	r := Default()
	existing := []models.Patient{slot("b", "Semanal", "segunda-feira", "10:00", "2024-01-01")}
	candidate := slot("a", "Semanal", "segunda-feira", "10:00", "2024-01-01")

	got := r.SuggestSlots(candidate, existing, "", 0)
	assert.Equal(t, []Slot{
		{DayOfWeek: "segunda-feira", Time: "09:10"},
		{DayOfWeek: "segunda-feira", Time: "10:50"},
		{DayOfWeek: "segunda-feira", Time: "09:00"},
	}, got)
}

func TestSuggestSlotsSkipsRequestedSlot(t *testing.T) {
	r := Default()
	candidate := slot("a", "Semanal", "segunda-feira", "10:00", "2024-01-01")

	got := r.SuggestSlots(candidate, nil, "", 3)
	assert.Equal(t, []Slot{
		{DayOfWeek: "segunda-feira", Time: "09:50"},
		{DayOfWeek: "segunda-feira", Time: "10:10"},
		{DayOfWeek: "segunda-feira", Time: "09:40"},
	}, got)
}

func TestSuggestSlotsFallsBackToOtherDays(t *testing.T) {
	r := Default()
	blocker := slot("b", "Semanal", "segunda-feira", "07:00", "2024-01-01")
	blocker.Duration = 15 * 60
	candidate := slot("a", "Semanal", "segunda-feira", "10:00", "2024-01-01")

	got := r.SuggestSlots(candidate, []models.Patient{blocker}, "", 3)
	assert.Equal(t, []Slot{
		{DayOfWeek: "terça-feira", Time: "10:00"},
		{DayOfWeek: "quarta-feira", Time: "10:00"},
		{DayOfWeek: "quinta-feira", Time: "10:00"},
	}, got)
}

func TestSuggestSlotsDefaultsBaseSlot(t *testing.T) {
	r := Default()
	candidate := slot("a", "Semanal", "", "", "2024-01-01")

	got := r.SuggestSlots(candidate, nil, "", 1)
	require.Len(t, got, 1)
	assert.Equal(t, "segunda-feira", got[0].DayOfWeek)
	assert.Equal(t, "08:50", got[0].Time)
}

func TestCheckReportsConflict(t *testing.T) {
	r := Default()
	existing := []models.Patient{slot("b", "Semanal", "segunda-feira", "10:00", "2024-01-01")}
	existing[0].Name = "Bruna"
	candidate := slot("a", "Semanal", "segunda-feira", "10:20", "2024-01-01")

	res := r.Check(candidate, existing, "")
	require.True(t, res.Conflict)
	assert.Equal(t, "Bruna", res.PatientName)
	assert.Equal(t, "10:20–11:10", res.Window)
	assert.Len(t, res.Suggestions, 3)
	assert.Contains(t, res.FormatReport(), "schedule conflict with Bruna (10:20–11:10)")
	assert.Contains(t, res.FormatReport(), "free slots: segunda-feira 10:50")

	clear := r.Check(candidate, nil, "")
	assert.False(t, clear.Conflict)
	assert.Equal(t, "no schedule conflict", clear.FormatReport())
}

func TestNewResolverValidatesGrid(t *testing.T) {
	_, err := NewResolver(Options{DayStart: "25:00"})
	assert.Error(t, err)

	_, err = NewResolver(Options{DayStart: "18:00", DayEnd: "08:00"})
	assert.Error(t, err)

	r, err := FromSettings(models.Settings{SuggestionStart: "08:00", SuggestionEnd: "08:30", SlotStepMin: 15})
	require.NoError(t, err)
	got := r.SuggestSlots(slot("a", "Semanal", "segunda-feira", "08:00", "2024-01-01"), nil, "", 4)
	assert.Equal(t, []Slot{
		{DayOfWeek: "segunda-feira", Time: "08:15"},
		{DayOfWeek: "segunda-feira", Time: "08:30"},
		{DayOfWeek: "terça-feira", Time: "08:00"},
		{DayOfWeek: "quarta-feira", Time: "08:00"},
	}, got)
}

func TestPhaseShifted(t *testing.T) {
	before := slot("a", "Quinzenal", "segunda-feira", "09:00", "2024-01-01")
	sameWeeks := before
	sameWeeks.StartDate = "2024-01-15"
	oddShift := before
	oddShift.StartDate = "2024-01-08"
	weekly := oddShift
	weekly.Frequency = "Semanal"

	// Legacy "Quinzenal" migrates to the odd ISO-week rule, not the anchor rule.
	if PhaseShifted(before, oddShift) {
		t.Error("year-parity rule has no anchor to shift")
	}

	before.Frequency = "quinzenal alternado"
	sameWeeks.Frequency = before.Frequency
	oddShift.Frequency = before.Frequency
	if PhaseShifted(before, sameWeeks) {
		t.Error("two-week move keeps the phase")
	}
	if !PhaseShifted(before, oddShift) {
		t.Error("one-week move flips the phase")
	}
	if PhaseShifted(before, weekly) {
		t.Error("weekly target has no phase")
	}
}
