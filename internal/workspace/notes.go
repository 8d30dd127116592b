package workspace

import (
	"errors"
	"fmt"
	"strings"

	"github.com/seicologia/agenda/internal/constants"
	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/overrides"
	"github.com/seicologia/agenda/internal/storage"
)

// ErrNoteLimit is returned when a new note would exceed constants.MaxNotes.
var ErrNoteLimit = errors.New("note limit reached")

// Notes returns every stored note, newest session first.
func (w *Workspace) Notes() []models.Note {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]models.Note, 0, len(w.notes))
	for _, n := range w.notes {
		out = append(out, n)
	}
	storage.SortNotes(out)
	return out
}

// Note returns the note of the session ref points at.
func (w *Workspace) Note(ref SessionRef) (models.Note, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, err := w.sessionLocked(ref)
	if err != nil {
		return models.Note{}, err
	}
	n, ok := w.notes[overrides.NoteKey(s)]
	if !ok {
		return models.Note{}, fmt.Errorf("note for %s: %w", ref, storage.ErrNotFound)
	}
	return n, nil
}

// SaveNote writes the notes of an occurred session. Notes are written to the
// store right away rather than through the background writer.
func (w *Workspace) SaveNote(ref SessionRef, content string) (models.Note, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, err := w.sessionLocked(ref)
	if err != nil {
		return models.Note{}, err
	}
	if st := s.EffectiveStatus(); st != models.StatusOccurred && st != models.StatusPaid {
		return models.Note{}, fmt.Errorf("%w: notes can only be written for occurred sessions (session is %s)", ErrInvalid, st)
	}

	key := overrides.NoteKey(s)
	n, exists := w.notes[key]
	if !exists && len(w.notes) >= constants.MaxNotes {
		return models.Note{}, fmt.Errorf("%w: %d notes stored", ErrNoteLimit, len(w.notes))
	}

	now := w.now().UTC()
	if !exists {
		n = models.Note{Key: key, CreatedAt: now}
	}
	n.PatientID = s.PatientID
	if p, err := w.patientLocked(s.PatientID); err == nil {
		n.PatientName = p.Name
	}
	n.SessionDate = s.Date.In(w.loc).Format(constants.DateFormat)
	n.SessionTime = strings.TrimSpace(s.Time)
	n.Content = content
	n.UpdatedAt = now

	if err := w.store.UpsertNote(n); err != nil {
		return models.Note{}, fmt.Errorf("failed to save note: %w", err)
	}
	w.notes[key] = n
	return n, nil
}

// DeleteNote removes the note stored under key.
func (w *Workspace) DeleteNote(key string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.notes[key]; !ok {
		return fmt.Errorf("note %s: %w", key, storage.ErrNotFound)
	}
	if err := w.store.DeleteNote(key); err != nil {
		return err
	}
	delete(w.notes, key)
	return nil
}

// DeleteAllNotes removes every note and returns how many there were.
func (w *Workspace) DeleteAllNotes() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.store.DeleteAllNotes(); err != nil {
		return 0, err
	}
	n := len(w.notes)
	w.notes = map[string]models.Note{}
	return n, nil
}
