// Package validation checks patient records before they are stored.
package validation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/seicologia/agenda/internal/conflict"
	"github.com/seicologia/agenda/internal/constants"
	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/utils"
)

// IssueType represents the type of validation issue
type IssueType string

const (
	IssueMissingName     IssueType = "missing_name"
	IssueDuplicateName   IssueType = "duplicate_name"
	IssueInvalidTime     IssueType = "invalid_time"
	IssueInvalidWeekday  IssueType = "invalid_weekday"
	IssueInvalidDate     IssueType = "invalid_date"
	IssueEndBeforeStart  IssueType = "end_before_start"
	IssueNegativeRate    IssueType = "negative_rate"
	IssueInvalidPayDay   IssueType = "invalid_pay_day"
	IssueOverlappingSlot IssueType = "overlapping_slot"
)

// Issue is one problem found in a patient record or between two records.
type Issue struct {
	Type        IssueType `json:"type"`
	Description string    `json:"description"`
	PatientIDs  []string  `json:"patientIds"`
}

// Result collects every issue found.
type Result struct {
	Issues []Issue `json:"issues"`
}

// HasIssues returns true if there are any issues
func (r Result) HasIssues() bool {
	return len(r.Issues) > 0
}

// Has reports whether an issue of type t was found.
func (r Result) Has(t IssueType) bool {
	for _, i := range r.Issues {
		if i.Type == t {
			return true
		}
	}
	return false
}

// Err returns the issues as one error, nil when there are none.
func (r Result) Err() error {
	if !r.HasIssues() {
		return nil
	}
	parts := make([]string, len(r.Issues))
	for i, issue := range r.Issues {
		parts[i] = issue.Description
	}
	return fmt.Errorf("invalid patient: %s", strings.Join(parts, "; "))
}

// FormatReport returns a human-readable report of all issues
func (r Result) FormatReport() string {
	if !r.HasIssues() {
		return "No issues detected."
	}
	var b strings.Builder
	b.WriteString("Issues detected:\n")
	for _, issue := range r.Issues {
		fmt.Fprintf(&b, "- %s\n", issue.Description)
	}
	return b.String()
}

func (r *Result) add(t IssueType, ids []string, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Type: t, Description: fmt.Sprintf(format, args...), PatientIDs: ids})
}

// Patient checks the fields of a single record.
func Patient(p models.Patient) Result {
	var r Result
	ids := []string{p.ID}
	label := p.Name
	if strings.TrimSpace(label) == "" {
		label = p.ID
		r.add(IssueMissingName, ids, "patient %s has no name", p.ID)
	}

	if !utils.ValidateTimeFormat(p.Time) {
		r.add(IssueInvalidTime, ids, "%s: invalid session time %q (expected HH:MM)", label, p.Time)
	}
	if _, ok := utils.ParseWeekday(p.DayOfWeek); !ok {
		r.add(IssueInvalidWeekday, ids, "%s: unknown weekday %q", label, p.DayOfWeek)
	}

	start, startErr := utils.ParseDateInLocation(p.StartDate, time.UTC)
	if startErr != nil {
		r.add(IssueInvalidDate, ids, "%s: invalid start date %q", label, p.StartDate)
	}
	if strings.TrimSpace(p.EndDate) != "" {
		end, err := utils.ParseDateInLocation(p.EndDate, time.UTC)
		switch {
		case err != nil:
			r.add(IssueInvalidDate, ids, "%s: invalid end date %q", label, p.EndDate)
		case startErr == nil && !end.After(start):
			r.add(IssueEndBeforeStart, ids, "%s: end date %s is not after start date %s", label, p.EndDate, p.StartDate)
		}
	}

	if p.Rate.IsNegative() {
		r.add(IssueNegativeRate, ids, "%s: negative session rate %s", label, p.Rate)
	}

	if payDay := strings.TrimSpace(p.PayDay); payDay != "" {
		if p.PaymentRecurrence() == constants.PayWeekly {
			if _, ok := utils.ParseWeekday(payDay); !ok {
				r.add(IssueInvalidPayDay, ids, "%s: weekly pay day %q is not a weekday", label, payDay)
			}
		} else if n, err := strconv.Atoi(payDay); err != nil || n < 1 || n > 31 {
			r.add(IssueInvalidPayDay, ids, "%s: monthly pay day %q must be 1-31", label, payDay)
		}
	}

	return r
}

// Roster checks every record and the records against each other: duplicate
// names and overlapping recurring slots among active patients.
func Roster(patients []models.Patient) Result {
	var r Result
	byName := make(map[string][]string)
	for _, p := range patients {
		r.Issues = append(r.Issues, Patient(p).Issues...)
		if name := utils.NormalizeText(p.Name); name != "" {
			byName[name] = append(byName[name], p.ID)
		}
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if ids := byName[name]; len(ids) > 1 {
			r.add(IssueDuplicateName, ids, "duplicate patient name %q (%d records)", name, len(ids))
		}
	}

	for i := 0; i < len(patients); i++ {
		a := patients[i]
		if !a.IsActive() {
			continue
		}
		for j := i + 1; j < len(patients); j++ {
			b := patients[j]
			if !b.IsActive() || !conflict.Overlaps(a, b) {
				continue
			}
			r.add(IssueOverlappingSlot, []string{a.ID, b.ID},
				"%s and %s overlap on %s at %s", a.Name, b.Name, a.DayOfWeek, a.Time)
		}
	}
	return r
}
