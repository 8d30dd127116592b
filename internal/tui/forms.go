package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/seicologia/agenda/internal/constants"
	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/utils"
	"github.com/seicologia/agenda/internal/workspace"
)

func validateTime(s string) error {
	if !utils.ValidateTimeFormat(s) {
		return fmt.Errorf("use HH:MM")
	}
	return nil
}

func validateDate(s string) error {
	if _, err := time.Parse(constants.DateFormat, strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("use YYYY-MM-DD")
	}
	return nil
}

// NewExtraForm builds the form for booking an extra session.
func NewExtraForm(fm *ExtraFormModel, patients []models.Patient) *huh.Form {
	options := make([]huh.Option[string], 0, len(patients))
	for _, p := range patients {
		options = append(options, huh.NewOption(p.Name, p.ID))
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Patient").
				Options(options...).
				Value(&fm.PatientID),
			huh.NewInput().
				Title("Date").
				Description("YYYY-MM-DD").
				Value(&fm.Date).
				Validate(validateDate),
			huh.NewInput().
				Title("Time").
				Description("HH:MM").
				Value(&fm.Time).
				Validate(validateTime),
			huh.NewInput().
				Title("Rate (R$)").
				Description("Leave empty for the patient's rate").
				Value(&fm.Rate).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}
					_, err := workspace.ParseRate(s)
					return err
				}),
		),
	).WithTheme(huh.ThemeDracula())
}

// NewNoteForm builds the editor for a session's notes.
func NewNoteForm(fm *NoteFormModel, title string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title(title).
				Description("Prontuário da sessão").
				CharLimit(10000).
				Lines(12).
				Value(&fm.Content).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("note is empty")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeDracula())
}

// NewRescheduleForm builds the form for moving a session.
func NewRescheduleForm(fm *RescheduleFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("New date").
				Description("YYYY-MM-DD").
				Value(&fm.Date).
				Validate(validateDate),
			huh.NewInput().
				Title("New time").
				Description("HH:MM").
				Value(&fm.Time).
				Validate(validateTime),
		),
	).WithTheme(huh.ThemeDracula())
}
