package conflict

import (
	"fmt"
	"sort"
	"strings"

	"github.com/seicologia/agenda/internal/constants"
	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/utils"
)

// Slot is a weekday and start time proposal.
type Slot struct {
	DayOfWeek string `json:"dayOfWeek"`
	Time      string `json:"time"`
}

func (s Slot) String() string {
	return s.DayOfWeek + " " + s.Time
}

// Options configures the suggestion grid.
type Options struct {
	DayStart       string // HH:MM format
	DayEnd         string // HH:MM format
	StepMin        int
	MaxSuggestions int
}

// Resolver checks patient slots against each other and proposes free ones.
type Resolver struct {
	dayStart int
	dayEnd   int
	step     int
	max      int
}

// NewResolver validates opts, filling zero values with the defaults.
func NewResolver(opts Options) (*Resolver, error) {
	if opts.DayStart == "" {
		opts.DayStart = constants.DefaultSuggestionStart
	}
	if opts.DayEnd == "" {
		opts.DayEnd = constants.DefaultSuggestionEnd
	}
	if opts.StepMin <= 0 {
		opts.StepMin = constants.DefaultSlotStepMin
	}
	if opts.MaxSuggestions <= 0 {
		opts.MaxSuggestions = constants.DefaultMaxSuggestions
	}
	start, err := utils.ParseTimeToMinutes(opts.DayStart)
	if err != nil {
		return nil, fmt.Errorf("invalid suggestion start %q: %w", opts.DayStart, err)
	}
	end, err := utils.ParseTimeToMinutes(opts.DayEnd)
	if err != nil {
		return nil, fmt.Errorf("invalid suggestion end %q: %w", opts.DayEnd, err)
	}
	if end < start {
		return nil, fmt.Errorf("suggestion end %s is before start %s", opts.DayEnd, opts.DayStart)
	}
	return &Resolver{dayStart: start, dayEnd: end, step: opts.StepMin, max: opts.MaxSuggestions}, nil
}

// FromSettings builds a resolver from the workspace settings.
func FromSettings(s models.Settings) (*Resolver, error) {
	return NewResolver(Options{
		DayStart: s.SuggestionStart,
		DayEnd:   s.SuggestionEnd,
		StepMin:  s.SlotStepMin,
	})
}

// Default returns a resolver over the 07:00-21:00 grid in 10 minute steps.
func Default() *Resolver {
	r, err := NewResolver(Options{})
	if err != nil {
		panic(err)
	}
	return r
}

// Conflicting returns the active patients in existing that collide with candidate,
// skipping ignoreID and the candidate itself. An inactive candidate collides with nobody.
func (r *Resolver) Conflicting(candidate models.Patient, existing []models.Patient, ignoreID string) []models.Patient {
	if !candidate.IsActive() {
		return nil
	}
	var out []models.Patient
	for _, p := range existing {
		if !p.IsActive() {
			continue
		}
		if ignoreID != "" && p.ID == ignoreID {
			continue
		}
		if candidate.ID != "" && p.ID == candidate.ID {
			continue
		}
		if Overlaps(candidate, p) {
			out = append(out, p)
		}
	}
	return out
}

// HasConflict reports whether candidate collides with any active patient.
func (r *Resolver) HasConflict(candidate models.Patient, existing []models.Patient, ignoreID string) bool {
	return len(r.Conflicting(candidate, existing, ignoreID)) > 0
}

type scored struct {
	slot  Slot
	score int
}

// SuggestSlots proposes up to limit free slots, nearest to the requested time
// first, preferring the requested weekday. limit <= 0 uses the resolver default.
func (r *Resolver) SuggestSlots(candidate models.Patient, existing []models.Patient, ignoreID string, limit int) []Slot {
	if limit <= 0 {
		limit = r.max
	}
	baseDay := candidate.DayOfWeek
	if strings.TrimSpace(baseDay) == "" {
		baseDay = constants.DefaultDayOfWeek
	}
	baseTime := candidate.Time
	if strings.TrimSpace(baseTime) == "" {
		baseTime = constants.DefaultSessionTime
	}
	baseMin := utils.MinutesOrZero(baseTime)
	baseWd, baseOK := utils.ParseWeekday(baseDay)

	days := []string{baseDay}
	for _, d := range utils.WeekdayLabels {
		wd, _ := utils.ParseWeekday(d)
		if baseOK && wd == baseWd {
			continue
		}
		days = append(days, d)
	}

	var found []scored
	for i, day := range days {
		sameDay := i == 0
		for t := r.dayStart; t <= r.dayEnd; t += r.step {
			if sameDay && t == baseMin {
				continue
			}
			attempt := candidate
			attempt.DayOfWeek = day
			attempt.Time = utils.FormatMinutes(t)
			if r.HasConflict(attempt, existing, ignoreID) {
				continue
			}
			score := abs(t - baseMin)
			if !sameDay {
				score += 24 * 60
			}
			found = append(found, scored{slot: Slot{DayOfWeek: day, Time: attempt.Time}, score: score})
		}
		if sameDay && len(found) >= constants.SameDayEarlyStop {
			break
		}
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].score < found[j].score })
	seen := make(map[Slot]bool)
	var out []Slot
	for _, c := range found {
		if seen[c.slot] {
			continue
		}
		seen[c.slot] = true
		out = append(out, c.slot)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Result is the outcome of validating a patient's slot.
type Result struct {
	Conflict    bool             `json:"conflict"`
	PatientName string           `json:"patientName,omitempty"`
	Conflicts   []models.Patient `json:"conflicts,omitempty"`
	Window      string           `json:"window,omitempty"`
	Suggestions []Slot           `json:"suggestions,omitempty"`
}

// Check validates candidate against existing and, on conflict, reports the
// first colliding patient, the requested window and alternative slots.
func (r *Resolver) Check(candidate models.Patient, existing []models.Patient, ignoreID string) Result {
	conflicts := r.Conflicting(candidate, existing, ignoreID)
	if len(conflicts) == 0 {
		return Result{}
	}
	start := utils.MinutesOrZero(candidate.Time)
	end := start + candidate.SessionDuration()
	name := conflicts[0].Name
	if strings.TrimSpace(name) == "" {
		name = "another patient"
	}
	return Result{
		Conflict:    true,
		PatientName: name,
		Conflicts:   conflicts,
		Window:      utils.FormatMinutes(start) + "–" + utils.FormatMinutes(end),
		Suggestions: r.SuggestSlots(candidate, existing, ignoreID, r.max),
	}
}

// FormatReport renders the result as a single human-readable line.
func (res Result) FormatReport() string {
	if !res.Conflict {
		return "no schedule conflict"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "schedule conflict with %s (%s)", res.PatientName, res.Window)
	if len(res.Suggestions) > 0 {
		parts := make([]string, len(res.Suggestions))
		for i, s := range res.Suggestions {
			parts[i] = s.String()
		}
		fmt.Fprintf(&b, "; free slots: %s", strings.Join(parts, ", "))
	}
	return b.String()
}
