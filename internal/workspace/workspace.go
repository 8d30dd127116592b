// Package workspace is the service layer shared by the CLI, the TUI and the
// HTTP server: it holds the roster and the override book in memory, runs the
// engine over them and hands every change to the background writer.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seicologia/agenda/internal/appointments"
	"github.com/seicologia/agenda/internal/conflict"
	"github.com/seicologia/agenda/internal/constants"
	"github.com/seicologia/agenda/internal/logger"
	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/overrides"
	"github.com/seicologia/agenda/internal/persist"
	"github.com/seicologia/agenda/internal/storage"
	"github.com/seicologia/agenda/internal/utils"
	"github.com/seicologia/agenda/internal/validation"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalid         = errors.New("invalid input")
)

// ConflictError is returned when a patient's slot collides with another
// patient and the caller did not force the save.
type ConflictError struct {
	Result conflict.Result
}

func (e *ConflictError) Error() string {
	return e.Result.FormatReport()
}

// Options tunes Open. Zero values use the stored settings.
type Options struct {
	Timezone string
	Metrics  *persist.Metrics
	Now      func() time.Time
}

type Workspace struct {
	store    storage.Provider
	settings models.Settings
	loc      *time.Location
	minDate  time.Time
	resolver *conflict.Resolver
	writer   *persist.Writer
	now      func() time.Time

	mu       sync.RWMutex
	patients []models.Patient
	book     appointments.Book
	notes    map[string]models.Note
}

// Open loads the roster and state from a loaded store.
func Open(store storage.Provider, opts Options) (*Workspace, error) {
	settings, err := store.GetSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	tz := settings.Timezone
	if opts.Timezone != "" {
		tz = opts.Timezone
	}
	loc, err := utils.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	resolver, err := conflict.FromSettings(settings)
	if err != nil {
		return nil, err
	}
	var minDate time.Time
	if strings.TrimSpace(settings.MinDate) != "" {
		if minDate, err = utils.ParseDateInLocation(settings.MinDate, loc); err != nil {
			return nil, fmt.Errorf("invalid min date setting: %w", err)
		}
	}

	patients, err := store.GetAllPatients()
	if err != nil {
		return nil, fmt.Errorf("failed to load patients: %w", err)
	}
	st, err := store.LoadState(loc)
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace state: %w", err)
	}
	stored, err := store.GetNotes()
	if err != nil {
		return nil, fmt.Errorf("failed to load notes: %w", err)
	}
	notes := make(map[string]models.Note, len(stored))
	for _, n := range stored {
		notes[n.Key] = n
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger.Debug("Workspace opened", "patients", len(patients), "timezone", loc.String(), "store", store.GetConfigPath())

	return &Workspace{
		store:    store,
		settings: settings,
		loc:      loc,
		minDate:  minDate,
		resolver: resolver,
		writer:   persist.NewWriter(store, settings.Debounce(), opts.Metrics),
		now:      now,
		patients: patients,
		book:     appointments.NewBook(st),
		notes:    notes,
	}, nil
}

func (w *Workspace) Location() *time.Location { return w.loc }
func (w *Workspace) Settings() models.Settings { return w.settings }
func (w *Workspace) Resolver() *conflict.Resolver { return w.resolver }

// Today returns the current date at midnight in the workspace timezone.
func (w *Workspace) Today() time.Time {
	return utils.StartOfDay(w.now().In(w.loc))
}

// ParseMonth reads YYYY-MM in the workspace timezone; empty means this month.
func (w *Workspace) ParseMonth(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return utils.MonthStart(w.Today()), nil
	}
	m, err := utils.ParseMonth(s, w.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return m, nil
}

// ParseDate reads YYYY-MM-DD in the workspace timezone.
func (w *Workspace) ParseDate(s string) (time.Time, error) {
	d, err := utils.ParseDateInLocation(s, w.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return d, nil
}

// Flush writes pending state now.
func (w *Workspace) Flush(ctx context.Context) error {
	return w.writer.Flush(ctx)
}

// Close flushes pending state and closes the store.
func (w *Workspace) Close(ctx context.Context) error {
	flushErr := w.writer.Close(ctx)
	if flushErr != nil {
		logger.Error("Failed to write pending changes", "error", flushErr)
	}
	return errors.Join(flushErr, w.store.Close())
}

func (w *Workspace) input(month time.Time) appointments.Input {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return appointments.Input{
		Patients: slices.Clone(w.patients),
		Month:    month,
		MinDate:  w.minDate,
		Today:    w.now(),
		Location: w.loc,
	}.FromState(w.book.State())
}

// Agenda returns the visible events of month, sessions marked with whether
// their notes are written.
func (w *Workspace) Agenda(month time.Time) []models.Event {
	events := appointments.Aggregate(w.input(month))
	w.mu.RLock()
	defer w.mu.RUnlock()
	for i, e := range events {
		if se, ok := e.(models.SessionEvent); ok {
			se.NotesDone = w.notes[overrides.NoteKey(se.Session)].Done()
			events[i] = se
		}
	}
	return events
}

// Tasks returns the follow-ups of month as of today.
func (w *Workspace) Tasks(month time.Time) appointments.TaskList {
	return appointments.Tasks(w.Agenda(month), w.Today())
}

// Summary returns the totals of month.
func (w *Workspace) Summary(month time.Time) appointments.Summary {
	events := w.Agenda(month)
	return appointments.Summarize(events, w.Patients(), month, w.loc)
}

func (w *Workspace) commit(next appointments.Book) {
	w.book = next
	w.writer.Schedule(next.State())
}

// Patients returns the active roster (soft-deleted patients excluded).
func (w *Workspace) Patients() []models.Patient {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.patients)
}

// Patient returns the patient with id.
func (w *Workspace) Patient(id string) (models.Patient, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.patientLocked(id)
}

func (w *Workspace) patientLocked(id string) (models.Patient, error) {
	i := slices.IndexFunc(w.patients, func(p models.Patient) bool { return p.ID == id })
	if i < 0 {
		return models.Patient{}, fmt.Errorf("patient %s: %w", id, storage.ErrNotFound)
	}
	return w.patients[i], nil
}

// FindPatient resolves an id or a case and accent insensitive name.
func (w *Workspace) FindPatient(idOrName string) (models.Patient, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if p, err := w.patientLocked(idOrName); err == nil {
		return p, nil
	}
	want := utils.NormalizeText(idOrName)
	var found []models.Patient
	for _, p := range w.patients {
		if utils.NormalizeText(p.Name) == want {
			found = append(found, p)
		}
	}
	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return models.Patient{}, fmt.Errorf("patient %q: %w", idOrName, storage.ErrNotFound)
	default:
		return models.Patient{}, fmt.Errorf("%w: %d patients named %q, use the id", ErrInvalid, len(found), idOrName)
	}
}

// CheckPatient reports p's conflicts against the rest of the roster.
func (w *Workspace) CheckPatient(p models.Patient) conflict.Result {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.resolver.Check(p.Sanitize(), w.patients, p.ID)
}

// SaveResult describes a stored patient.
type SaveResult struct {
	Patient  models.Patient  `json:"patient"`
	Conflict conflict.Result `json:"conflict"`
	Warnings []string        `json:"warnings,omitempty"`
}

// SavePatient validates and stores p, assigning an id to new patients.
// A schedule conflict fails with *ConflictError unless force is set, in
// which case the conflict is stored and reported in the result.
func (w *Workspace) SavePatient(p models.Patient, force bool) (SaveResult, error) {
	p = normalizePatient(p)
	if err := validation.Patient(p).Err(); err != nil {
		return SaveResult{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	res := SaveResult{Patient: p}
	existing, existsErr := w.patientLocked(p.ID)
	isNew := p.ID == "" || existsErr != nil
	if p.ID == "" {
		p.ID = uuid.NewString()
		res.Patient = p
	}

	res.Conflict = w.resolver.Check(p.Sanitize(), w.patients, p.ID)
	if res.Conflict.Conflict && !force {
		return res, &ConflictError{Result: res.Conflict}
	}

	if !isNew && conflict.PhaseShifted(existing, p) {
		msg := fmt.Sprintf("start date change moves %s's biweekly sessions to the alternate weeks", p.Name)
		res.Warnings = append(res.Warnings, msg)
		logger.Warn("Anchor phase shifted", "patient", p.ID, "from", existing.StartDate, "to", p.StartDate)
	}

	if isNew {
		if err := w.store.AddPatient(p); err != nil {
			return res, err
		}
		w.patients = append(w.patients, p)
	} else {
		if err := w.store.UpdatePatient(p); err != nil {
			return res, err
		}
		i := slices.IndexFunc(w.patients, func(x models.Patient) bool { return x.ID == p.ID })
		w.patients[i] = p
	}
	sortPatients(w.patients)
	logger.Info("Saved patient", "id", p.ID, "new", isNew, "forced", res.Conflict.Conflict)
	return res, nil
}

// RemovePatient soft-deletes the patient; its overrides stay in the book.
func (w *Workspace) RemovePatient(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.store.DeletePatient(id); err != nil {
		return err
	}
	w.patients = slices.DeleteFunc(w.patients, func(p models.Patient) bool { return p.ID == id })
	return nil
}

// RestorePatient undoes RemovePatient.
func (w *Workspace) RestorePatient(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.store.RestorePatient(id); err != nil {
		return err
	}
	p, err := w.store.GetPatient(id)
	if err != nil {
		return err
	}
	w.patients = append(w.patients, p)
	sortPatients(w.patients)
	return nil
}

func normalizePatient(p models.Patient) models.Patient {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	if strings.TrimSpace(p.Frequency) == "" {
		p.Frequency = constants.FrequencyWeekly
	}
	if strings.TrimSpace(p.Active) == "" {
		p.Active = constants.ActiveYes
	}
	if strings.TrimSpace(p.PayRecurrence) == "" {
		p.PayRecurrence = constants.PayMonthly
	}
	if strings.TrimSpace(p.PayDay) == "" && p.PaymentRecurrence() == constants.PayMonthly {
		p.PayDay = constants.DefaultPayDay
	}
	if p.Duration <= 0 {
		p.Duration = constants.DefaultDurationMin
	}
	return p
}

func sortPatients(ps []models.Patient) {
	slices.SortStableFunc(ps, func(a, b models.Patient) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
