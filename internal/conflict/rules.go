package conflict

import (
	"time"

	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/recurrence"
	"github.com/seicologia/agenda/internal/utils"
)

// parityEpoch is the Monday week indices for anchored biweekly schedules are counted from.
var parityEpoch = time.Date(2020, time.January, 6, 0, 0, 0, 0, time.UTC)

// interval is a half-open [start, end) range of minutes from midnight.
type interval struct {
	start, end int
}

func (a interval) overlaps(b interval) bool {
	return a.start < b.end && b.start < a.end
}

func slotInterval(p models.Patient) (interval, bool) {
	start, err := utils.ParseTimeToMinutes(p.Time)
	if err != nil {
		return interval{}, false
	}
	return interval{start: start, end: start + p.SessionDuration()}, true
}

// anchorParity returns the alternation phase of an anchored biweekly patient:
// the parity of the week (counted from parityEpoch) holding the first session.
func anchorParity(p models.Patient) (int, bool) {
	wd, ok := utils.ParseWeekday(p.DayOfWeek)
	if !ok {
		return 0, false
	}
	start, err := utils.ParseDateInLocation(p.StartDate, time.UTC)
	if err != nil {
		return 0, false
	}
	anchor := utils.Civil(start)
	for anchor.Weekday() != wd {
		anchor = anchor.AddDate(0, 0, 1)
	}
	offset := (int(anchor.Weekday()) + 6) % 7
	monday := anchor.AddDate(0, 0, -offset)
	weekIndex := floorDiv(utils.DaysBetween(parityEpoch, monday), 7)
	return ((weekIndex % 2) + 2) % 2, true
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func parityOf(p models.Patient, rule recurrence.Rule) (int, bool) {
	if rule.Kind == recurrence.BiweeklyYear {
		return rule.Parity, true
	}
	return anchorParity(p)
}

// Overlaps reports whether two recurring slots can collide on some date.
// Activity flags are not considered here; see Resolver.Conflicting.
func Overlaps(candidate, other models.Patient) bool {
	cd, okC := utils.ParseWeekday(candidate.DayOfWeek)
	od, okO := utils.ParseWeekday(other.DayOfWeek)
	if !okC || !okO || cd != od {
		return false
	}

	ci, okC := slotInterval(candidate)
	oi, okO := slotInterval(other)
	if !okC || !okO || !ci.overlaps(oi) {
		return false
	}

	cr, or := recurrence.RuleFor(candidate), recurrence.RuleFor(other)
	if !cr.Biweekly() || !or.Biweekly() {
		return true
	}
	// Mixed biweekly families cannot be proven to alternate.
	if cr.Kind != or.Kind {
		return true
	}
	cp, okC := parityOf(candidate, cr)
	op, okO := parityOf(other, or)
	if !okC || !okO {
		return true
	}
	return cp == op
}

// PhaseShifted reports whether editing an anchored biweekly patient from
// before to after flips which weeks the sessions fall on. The anchor is
// derived from the start date, so moving it by an odd number of weeks
// silently moves every past and future occurrence.
func PhaseShifted(before, after models.Patient) bool {
	if recurrence.RuleFor(after).Kind != recurrence.BiweeklyAnchor ||
		recurrence.RuleFor(before).Kind != recurrence.BiweeklyAnchor {
		return false
	}
	pb, okB := anchorParity(before)
	pa, okA := anchorParity(after)
	return okB && okA && pb != pa
}
