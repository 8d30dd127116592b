package workspace

import (
	"slices"

	"github.com/google/uuid"

	"github.com/seicologia/agenda/internal/logger"
	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/utils"
	"github.com/seicologia/agenda/internal/validation"
)

// ImportReport summarizes ImportPatients.
type ImportReport struct {
	Added   int               `json:"added"`
	Updated int               `json:"updated"`
	Removed int               `json:"removed"`
	Issues  validation.Result `json:"issues"`
}

// ImportPatients merges a roster read from a spreadsheet. Rows are matched to
// existing patients by name, so re-importing the same file updates in place
// and keeps every override. Imported rows are stored even when they collide
// or fail validation; the returned issues list what needs fixing. With
// replace set, patients missing from the import are soft-deleted.
func (w *Workspace) ImportPatients(incoming []models.Patient, replace bool) (ImportReport, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var rep ImportReport
	byName := make(map[string]int, len(w.patients))
	for i, p := range w.patients {
		byName[utils.NormalizeText(p.Name)] = i
	}
	seen := make(map[string]bool, len(incoming))

	for _, p := range incoming {
		p = normalizePatient(p)
		if i, ok := byName[utils.NormalizeText(p.Name)]; ok {
			p.ID = w.patients[i].ID
			if seen[p.ID] {
				logger.Warn("Duplicate row in import", "name", p.Name)
			}
			if err := w.store.UpdatePatient(p); err != nil {
				return rep, err
			}
			w.patients[i] = p
			rep.Updated++
		} else {
			if p.ID == "" {
				p.ID = uuid.NewString()
			}
			if err := w.store.AddPatient(p); err != nil {
				return rep, err
			}
			w.patients = append(w.patients, p)
			byName[utils.NormalizeText(p.Name)] = len(w.patients) - 1
			rep.Added++
		}
		seen[p.ID] = true
	}

	if replace {
		var kept []models.Patient
		for _, p := range w.patients {
			if seen[p.ID] {
				kept = append(kept, p)
				continue
			}
			if err := w.store.DeletePatient(p.ID); err != nil {
				return rep, err
			}
			rep.Removed++
		}
		w.patients = kept
	}

	sortPatients(w.patients)
	rep.Issues = validation.Roster(slices.Clone(w.patients))
	logger.Info("Imported patients", "added", rep.Added, "updated", rep.Updated, "removed", rep.Removed, "issues", len(rep.Issues.Issues))
	return rep, nil
}
