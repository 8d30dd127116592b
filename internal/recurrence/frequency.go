package recurrence

import (
	"strings"

	"github.com/seicologia/agenda/internal/utils"
)

// Kind is the recurrence rule family a frequency label resolves to.
type Kind int

const (
	Weekly Kind = iota
	// BiweeklyYear alternates on ISO-8601 week parity of the calendar year.
	BiweeklyYear
	// BiweeklyAnchor alternates every two weeks counted from the patient's start date.
	BiweeklyAnchor
)

func (k Kind) String() string {
	switch k {
	case Weekly:
		return "weekly"
	case BiweeklyYear:
		return "biweekly_year"
	case BiweeklyAnchor:
		return "biweekly_anchor"
	}
	return "unknown"
}

// Rule is a classified frequency. Parity is only meaningful for BiweeklyYear:
// 1 for odd ISO weeks, 0 for even ones.
type Rule struct {
	Kind   Kind
	Parity int
}

// IntervalWeeks is the step the generator walks with. Year-parity rules walk
// weekly and filter on parity.
func (r Rule) IntervalWeeks() int {
	if r.Kind == BiweeklyAnchor {
		return 2
	}
	return 1
}

// Biweekly reports whether the rule alternates weeks.
func (r Rule) Biweekly() bool {
	return r.Kind != Weekly
}

func (r Rule) String() string {
	if r.Kind == BiweeklyYear {
		if r.Parity == 1 {
			return "biweekly_year(odd)"
		}
		return "biweekly_year(even)"
	}
	return r.Kind.String()
}

var biweeklyMarkers = []string{"quinzenal", "quincenal", "biweekly"}

// Classify maps a free-text frequency label to a Rule. It never fails:
// anything that does not read as biweekly is weekly.
func Classify(label string) Rule {
	f := utils.NormalizeText(label)

	biweekly := false
	for _, m := range biweeklyMarkers {
		if strings.Contains(f, m) {
			biweekly = true
			break
		}
	}
	if !biweekly {
		return Rule{Kind: Weekly}
	}

	// "impar" must be tested first, "par" is a suffix of it.
	if utils.ContainsWord(f, "impar") || utils.ContainsWord(f, "odd") {
		return Rule{Kind: BiweeklyYear, Parity: 1}
	}
	if utils.ContainsWord(f, "par") || utils.ContainsWord(f, "even") {
		return Rule{Kind: BiweeklyYear, Parity: 0}
	}
	return Rule{Kind: BiweeklyAnchor}
}
