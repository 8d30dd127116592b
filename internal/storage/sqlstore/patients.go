package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/seicologia/agenda/internal/constants"
	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/storage"
)

const patientColumns = `id, name, rate, duration, frequency, day_of_week, time, start_date, end_date,
	active, pay_day, pay_recurrence, last_adjustment, mode, is_social`

type scanner interface {
	Scan(dest ...any) error
}

func scanPatient(row scanner) (models.Patient, error) {
	var p models.Patient
	var active bool
	err := row.Scan(
		&p.ID, &p.Name, &p.Rate, &p.Duration, &p.Frequency, &p.DayOfWeek, &p.Time, &p.StartDate, &p.EndDate,
		&active, &p.PayDay, &p.PayRecurrence, &p.LastAdjustment, &p.Mode, &p.IsSocial,
	)
	if err != nil {
		return models.Patient{}, err
	}
	p.Active = constants.ActiveNo
	if active {
		p.Active = constants.ActiveYes
	}
	return p, nil
}

func patientArgs(p models.Patient) []any {
	return []any{
		p.ID, p.Name, p.Rate, p.Duration, p.Frequency, p.DayOfWeek, p.Time, p.StartDate, p.EndDate,
		p.IsActive(), p.PayDay, p.PayRecurrence, p.LastAdjustment, p.Mode, p.IsSocial,
	}
}

// AddPatient inserts p, replacing (and restoring) any row with the same id.
func (s *Store) AddPatient(p models.Patient) error {
	if p.ID == "" {
		return fmt.Errorf("patient id is required")
	}
	_, err := s.DB.Exec(s.q(`
		INSERT INTO patients (`+patientColumns+`, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, rate = excluded.rate, duration = excluded.duration,
			frequency = excluded.frequency, day_of_week = excluded.day_of_week, time = excluded.time,
			start_date = excluded.start_date, end_date = excluded.end_date, active = excluded.active,
			pay_day = excluded.pay_day, pay_recurrence = excluded.pay_recurrence,
			last_adjustment = excluded.last_adjustment, mode = excluded.mode,
			is_social = excluded.is_social, deleted_at = NULL`), patientArgs(p)...)
	if err != nil {
		return fmt.Errorf("failed to save patient %s: %w", p.ID, err)
	}
	return nil
}

func (s *Store) GetPatient(id string) (models.Patient, error) {
	row := s.DB.QueryRow(s.q("SELECT "+patientColumns+" FROM patients WHERE id = ? AND deleted_at IS NULL"), id)
	p, err := scanPatient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Patient{}, fmt.Errorf("patient %s: %w", id, storage.ErrNotFound)
	}
	return p, err
}

func (s *Store) GetAllPatients() ([]models.Patient, error) {
	if s.DB == nil {
		return nil, storage.ErrNotConnected
	}
	rows, err := s.DB.Query("SELECT " + patientColumns + " FROM patients WHERE deleted_at IS NULL ORDER BY name, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patients []models.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

func (s *Store) UpdatePatient(p models.Patient) error {
	args := append(patientArgs(p)[1:], p.ID)
	res, err := s.DB.Exec(s.q(`
		UPDATE patients SET
			name = ?, rate = ?, duration = ?, frequency = ?, day_of_week = ?, time = ?,
			start_date = ?, end_date = ?, active = ?, pay_day = ?, pay_recurrence = ?,
			last_adjustment = ?, mode = ?, is_social = ?
		WHERE id = ? AND deleted_at IS NULL`), args...)
	if err != nil {
		return fmt.Errorf("failed to update patient %s: %w", p.ID, err)
	}
	return requireRow(res, p.ID)
}

// DeletePatient soft-deletes the patient. Overrides keyed by the patient are kept
// so a restore brings back the full history.
func (s *Store) DeletePatient(id string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.DB.Exec(s.q("UPDATE patients SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL"), now, id)
	if err != nil {
		return fmt.Errorf("failed to delete patient %s: %w", id, err)
	}
	return requireRow(res, id)
}

func (s *Store) RestorePatient(id string) error {
	res, err := s.DB.Exec(s.q("UPDATE patients SET deleted_at = NULL WHERE id = ? AND deleted_at IS NOT NULL"), id)
	if err != nil {
		return fmt.Errorf("failed to restore patient %s: %w", id, err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("patient %s: %w", id, storage.ErrNotFound)
	}
	return nil
}
