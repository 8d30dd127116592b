package spreadsheet

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/seicologia/agenda/internal/constants"
	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/utils"
)

// RowError reports a row that could not be imported.
type RowError struct {
	Row int    `json:"row"` // 1-based spreadsheet row
	Err string `json:"error"`
}

// ImportResult is the outcome of reading a roster.
type ImportResult struct {
	Sheet    string           `json:"sheet"`
	Patients []models.Patient `json:"patients"`
	Skipped  []RowError       `json:"skipped,omitempty"`
}

// ImportPatients reads the first sheet of an xlsx roster. Unknown columns are
// ignored; rows without a patient name are skipped and reported.
func ImportPatients(r io.Reader) (ImportResult, error) {
	f, err := excelize.OpenReader(r, excelize.Options{RawCellValue: true})
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ImportResult{}, fmt.Errorf("spreadsheet has no sheets")
	}
	res := ImportResult{Sheet: sheets[0]}
	rows, err := f.GetRows(res.Sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return res, fmt.Errorf("failed to read sheet %q: %w", res.Sheet, err)
	}
	if len(rows) == 0 {
		return res, nil
	}

	columns := make(map[int]field)
	for i, title := range rows[0] {
		if fld, ok := lookupHeader(title); ok {
			columns[i] = fld
		}
	}
	if !containsField(columns, fieldName) {
		return res, fmt.Errorf("sheet %q has no %q column", res.Sheet, rosterHeaders[0].title)
	}

	for i, row := range rows[1:] {
		rowNum := i + 2
		if blank(row) {
			continue
		}
		p, err := parseRow(row, columns)
		if err != nil {
			res.Skipped = append(res.Skipped, RowError{Row: rowNum, Err: err.Error()})
			continue
		}
		res.Patients = append(res.Patients, p)
	}
	return res, nil
}

func containsField(columns map[int]field, want field) bool {
	for _, f := range columns {
		if f == want {
			return true
		}
	}
	return false
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseRow(row []string, columns map[int]field) (models.Patient, error) {
	p := models.Patient{ID: uuid.NewString(), Rate: decimal.Zero}
	for i, raw := range row {
		fld, ok := columns[i]
		if !ok {
			continue
		}
		v := strings.TrimSpace(raw)
		if v == "" {
			continue
		}
		var err error
		switch fld {
		case fieldName:
			p.Name = v
		case fieldRate:
			p.Rate, err = parseMoney(v)
		case fieldDuration:
			p.Duration, err = parseMinutes(v)
		case fieldFrequency:
			p.Frequency = v
		case fieldDayOfWeek:
			p.DayOfWeek = v
		case fieldTime:
			p.Time, err = parseClock(v)
		case fieldStartDate:
			p.StartDate, err = parseDate(v)
		case fieldActive:
			p.Active = v
		case fieldPayDay:
			p.PayDay = trimNumber(v)
		case fieldPayRecurrence:
			p.PayRecurrence = v
		case fieldEndDate:
			p.EndDate, err = parseDate(v)
		case fieldIsSocial:
			p.IsSocial = v
		case fieldLastAdjustment:
			p.LastAdjustment, err = parseDate(v)
		case fieldMode:
			p.Mode = v
		}
		if err != nil {
			return models.Patient{}, fmt.Errorf("column %d: %w", i+1, err)
		}
	}
	if strings.TrimSpace(p.Name) == "" {
		return models.Patient{}, fmt.Errorf("missing patient name")
	}
	if p.Duration <= 0 {
		p.Duration = constants.DefaultDurationMin
	}
	return p, nil
}

// parseMoney reads "150", "150.5", "150,50" or "R$ 1.150,50".
func parseMoney(v string) (decimal.Decimal, error) {
	s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(v), "R$"))
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid rate %q", v)
	}
	return d, nil
}

func parseMinutes(v string) (int, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	return int(math.Round(f)), nil
}

// trimNumber turns the raw "5.0" a numeric cell may hold into "5".
func trimNumber(v string) string {
	if f, err := strconv.ParseFloat(v, 64); err == nil && f == math.Trunc(f) {
		return strconv.Itoa(int(f))
	}
	return v
}

// parseClock accepts "HH:MM" text or a spreadsheet time, the fractional
// part of a day (0.625 is 15:00).
func parseClock(v string) (string, error) {
	if strings.Contains(v, ":") {
		parts := strings.SplitN(v, ":", 3)
		h, errH := strconv.Atoi(strings.TrimSpace(parts[0]))
		m, errM := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errH != nil || errM != nil || h < 0 || h > 23 || m < 0 || m > 59 {
			return "", fmt.Errorf("invalid time %q", v)
		}
		return utils.FormatMinutes(h*60 + m), nil
	}
	days, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return "", fmt.Errorf("invalid time %q", v)
	}
	_, frac := math.Modf(days)
	minutes := int(math.Round(frac*24*60)) % (24 * 60)
	return utils.FormatMinutes(minutes), nil
}

// parseDate accepts DD/MM/YYYY, YYYY-MM-DD or a spreadsheet serial date and
// returns YYYY-MM-DD.
func parseDate(v string) (string, error) {
	if t, err := time.Parse(constants.BRDateFormat, v); err == nil {
		return t.Format(constants.DateFormat), nil
	}
	if t, err := time.Parse(constants.DateFormat, v); err == nil {
		return t.Format(constants.DateFormat), nil
	}
	serial, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return "", fmt.Errorf("invalid date %q (expected DD/MM/YYYY)", v)
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", v, err)
	}
	// Serials carry a time of day when the cell was typed with one.
	return t.Add(12 * time.Hour).Truncate(24 * time.Hour).Format(constants.DateFormat), nil
}
