package sqlstore

import (
	"fmt"
	"time"

	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/storage"
)

const noteColumns = `appointment_key, patient_id, patient_name, session_date, session_time, content, created_at, updated_at`

func (s *Store) GetNotes() ([]models.Note, error) {
	if s.DB == nil {
		return nil, storage.ErrNotConnected
	}
	rows, err := s.DB.Query("SELECT " + noteColumns + " FROM session_notes")
	if err != nil {
		return nil, fmt.Errorf("failed to read notes: %w", err)
	}
	defer rows.Close()

	var notes []models.Note
	for rows.Next() {
		var n models.Note
		var created, updated string
		if err := rows.Scan(&n.Key, &n.PatientID, &n.PatientName, &n.SessionDate, &n.SessionTime, &n.Content, &created, &updated); err != nil {
			return nil, err
		}
		if n.CreatedAt, err = parseTimestamp(created); err != nil {
			return nil, fmt.Errorf("note %s: %w", n.Key, err)
		}
		if n.UpdatedAt, err = parseTimestamp(updated); err != nil {
			return nil, fmt.Errorf("note %s: %w", n.Key, err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	storage.SortNotes(notes)
	return notes, nil
}

// UpsertNote stores n under its key, keeping the creation time of an existing note.
func (s *Store) UpsertNote(n models.Note) error {
	if n.Key == "" {
		return fmt.Errorf("note key is required")
	}
	_, err := s.DB.Exec(s.q(`
		INSERT INTO session_notes (`+noteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (appointment_key) DO UPDATE SET
			patient_id = excluded.patient_id, patient_name = excluded.patient_name,
			session_date = excluded.session_date, session_time = excluded.session_time,
			content = excluded.content, updated_at = excluded.updated_at`),
		n.Key, n.PatientID, n.PatientName, n.SessionDate, n.SessionTime, n.Content,
		formatTimestamp(n.CreatedAt), formatTimestamp(n.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save note %s: %w", n.Key, err)
	}
	return nil
}

func (s *Store) DeleteNote(key string) error {
	res, err := s.DB.Exec(s.q("DELETE FROM session_notes WHERE appointment_key = ?"), key)
	if err != nil {
		return fmt.Errorf("failed to delete note %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("note %s: %w", key, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteAllNotes() error {
	if _, err := s.DB.Exec("DELETE FROM session_notes"); err != nil {
		return fmt.Errorf("failed to delete notes: %w", err)
	}
	return nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTimestamp reads the text SQLite stores and the RFC 3339 form
// database/sql renders PostgreSQL timestamps into.
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
