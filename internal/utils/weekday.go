package utils

import (
	"strings"
	"time"
)

// WeekdayLabels lists the long Portuguese weekday labels in the order the
// scheduling UI offers them (Monday first).
var WeekdayLabels = []string{
	"segunda-feira",
	"terça-feira",
	"quarta-feira",
	"quinta-feira",
	"sexta-feira",
	"sábado",
	"domingo",
}

var weekdayPrefixes = []struct {
	prefix  string
	weekday time.Weekday
}{
	{"domingo", time.Sunday},
	{"segunda", time.Monday},
	{"terca", time.Tuesday},
	{"quarta", time.Wednesday},
	{"quinta", time.Thursday},
	{"sexta", time.Friday},
	{"sabado", time.Saturday},
}

// ParseWeekday resolves a Portuguese weekday label ("segunda", "terça-feira",
// "Sábado", ...) to a time.Weekday. ok is false when the label is not recognised.
func ParseWeekday(label string) (wd time.Weekday, ok bool) {
	v := NormalizeText(label)
	if v == "" {
		return 0, false
	}
	for _, p := range weekdayPrefixes {
		if strings.HasPrefix(v, p.prefix) {
			return p.weekday, true
		}
	}
	return 0, false
}

// WeekdayLabel returns the canonical long label for wd.
func WeekdayLabel(wd time.Weekday) string {
	if wd == time.Sunday {
		return WeekdayLabels[6]
	}
	return WeekdayLabels[int(wd)-1]
}
