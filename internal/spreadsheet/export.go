package spreadsheet

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/seicologia/agenda/internal/appointments"
	"github.com/seicologia/agenda/internal/constants"
	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/utils"
)

const (
	SheetPatients = "Pacientes"
	SheetAgenda   = "Agenda"
	SheetSummary  = "Resumo"
	SheetNotes    = "Prontuarios"
)

var noteHeaders = []string{"Paciente", "Data", "Hora", "Conteudo", "AtualizadoEm"}

var agendaHeaders = []string{"Data", "Dia", "Horario", "Tipo", "Paciente", "Status", "Valor (R$)", "Duração (m)", "Sessões", "Período"}

// MonthReport is everything written by ExportMonth.
type MonthReport struct {
	Month    time.Time
	Events   []models.Event
	Summary  appointments.Summary
	Patients []models.Patient
}

// ExportPatients writes the roster in the same layout ImportPatients reads.
func ExportPatients(w io.Writer, patients []models.Patient) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetPatients); err != nil {
		return err
	}
	if err := writeRoster(f, SheetPatients, patients); err != nil {
		return err
	}
	return writeFile(f, w)
}

// ExportMonth writes a workbook with the month's agenda, its summary and the
// roster.
func ExportMonth(w io.Writer, r MonthReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetAgenda); err != nil {
		return err
	}
	if err := writeAgenda(f, r.Events); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return err
	}
	if err := writeSummary(f, r.Summary); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetPatients); err != nil {
		return err
	}
	if err := writeRoster(f, SheetPatients, r.Patients); err != nil {
		return err
	}
	f.SetActiveSheet(0)
	return writeFile(f, w)
}

// ExportNotes writes one row per session note.
func ExportNotes(w io.Writer, notes []models.Note, loc *time.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetNotes); err != nil {
		return err
	}
	if err := writeHeader(f, SheetNotes, noteHeaders); err != nil {
		return err
	}
	for i, n := range notes {
		updated := n.UpdatedAt.In(loc).Format(constants.BRDateFormat + " 15:04")
		if err := writeRow(f, SheetNotes, i+2, n.PatientName, brDate(n.SessionDate), n.SessionTime, n.Content, updated); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(SheetNotes, "D", "D", 80); err != nil {
		return err
	}
	return writeFile(f, w)
}

func writeFile(f *excelize.File, w io.Writer) error {
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write spreadsheet: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, titles []string) error {
	values := make([]any, len(titles))
	for i, t := range titles {
		values[i] = t
	}
	if err := writeRow(f, sheet, 1, values...); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(titles), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func writeRoster(f *excelize.File, sheet string, patients []models.Patient) error {
	titles := make([]string, len(rosterHeaders))
	for i, h := range rosterHeaders {
		titles[i] = h.title
	}
	if err := writeHeader(f, sheet, titles); err != nil {
		return err
	}
	for i, p := range patients {
		values := make([]any, len(rosterHeaders))
		for j, h := range rosterHeaders {
			values[j] = rosterValue(p, h.field)
		}
		if err := writeRow(f, sheet, i+2, values...); err != nil {
			return err
		}
	}
	return nil
}

func rosterValue(p models.Patient, fld field) any {
	switch fld {
	case fieldName:
		return p.Name
	case fieldRate:
		return p.Rate.InexactFloat64()
	case fieldDuration:
		return p.SessionDuration()
	case fieldFrequency:
		return p.Frequency
	case fieldDayOfWeek:
		return p.DayOfWeek
	case fieldTime:
		return p.Time
	case fieldStartDate:
		return brDate(p.StartDate)
	case fieldActive:
		return p.Active
	case fieldPayDay:
		return p.PayDay
	case fieldPayRecurrence:
		return p.PayRecurrence
	case fieldEndDate:
		return brDate(p.EndDate)
	case fieldIsSocial:
		return p.IsSocial
	case fieldLastAdjustment:
		return brDate(p.LastAdjustment)
	case fieldMode:
		return p.Mode
	}
	return ""
}

// brDate renders a stored YYYY-MM-DD as DD/MM/YYYY; anything else is kept.
func brDate(s string) string {
	t, err := time.Parse(constants.DateFormat, strings.TrimSpace(s))
	if err != nil {
		return s
	}
	return t.Format(constants.BRDateFormat)
}

func writeAgenda(f *excelize.File, events []models.Event) error {
	if err := writeHeader(f, SheetAgenda, agendaHeaders); err != nil {
		return err
	}
	for i, e := range events {
		var values []any
		switch ev := e.(type) {
		case models.SessionEvent:
			tipo := "Sessão"
			if ev.IsExtra {
				tipo = "Sessão extra"
			}
			values = []any{
				ev.Date.Format(constants.BRDateFormat), utils.WeekdayLabel(ev.Date.Weekday()), ev.Time,
				tipo, ev.PatientName, string(ev.EffectiveStatus()), ev.Rate.InexactFloat64(), ev.Duration, "", "",
			}
		case models.PaymentEvent:
			period := fmt.Sprintf("%s a %s", ev.PeriodStart.Format(constants.BRDateFormat), ev.PeriodEnd.Format(constants.BRDateFormat))
			values = []any{
				ev.Date.Format(constants.BRDateFormat), utils.WeekdayLabel(ev.Date.Weekday()), ev.Time,
				"Pagamento", ev.PatientName, string(ev.Status), ev.Rate.InexactFloat64(), ev.Duration, ev.SessionsCount, period,
			}
		default:
			continue
		}
		if err := writeRow(f, SheetAgenda, i+2, values...); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(f *excelize.File, s appointments.Summary) error {
	rows := [][]any{
		{"Mês", s.Month},
		{"Sessões", s.Sessions},
		{"Previsto (R$)", s.Expected.InexactFloat64()},
		{"Recebido (R$)", s.Received.InexactFloat64()},
		{"Em atraso (R$)", s.Overdue.InexactFloat64()},
		{"A receber (R$)", s.Outstanding.InexactFloat64()},
		{"Pagamentos pagos", s.PaidCount},
		{"Pagamentos pendentes", s.PendingCount},
		{"Pagamentos atrasados", s.OverdueCount},
		{"Pacientes ativos", s.ActivePatients},
		{"Novos pacientes", s.NewPatients},
		{"Saídas", s.ExitedPatients},
	}
	for i, r := range rows {
		if err := writeRow(f, SheetSummary, i+1, r...); err != nil {
			return err
		}
	}
	return f.SetColWidth(SheetSummary, "A", "A", 24)
}
