package storage

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/seicologia/agenda/internal/migration"
	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/overrides"
)

var (
	// ErrNotFound is returned when a patient does not exist or was removed.
	ErrNotFound = errors.New("not found")
	// ErrNotInitialized is returned by Load on a workspace that was never created.
	ErrNotInitialized = errors.New("storage not initialized, run 'agenda init' first")
	// ErrNotConnected is returned by queries on a SQL store that was never opened.
	ErrNotConnected = errors.New("database not connected")
)

// Keys of the workspace_state rows.
const (
	StateSessions = "appointment_overrides"
	StateExtras   = "extra_sessions"
	StatePayments = "payment_overrides"
)

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Settings
	GetSettings() (models.Settings, error)
	SaveSettings(models.Settings) error

	// Patients
	AddPatient(models.Patient) error
	GetPatient(id string) (models.Patient, error)
	GetAllPatients() ([]models.Patient, error)
	UpdatePatient(models.Patient) error
	DeletePatient(id string) error
	RestorePatient(id string) error

	// Overrides and extra sessions. Bare-date session keys are read in loc.
	LoadState(loc *time.Location) (overrides.State, error)
	SaveState(overrides.State) error

	// Session notes, keyed by overrides.NoteKey. GetNotes returns the newest
	// session first; DeleteNote fails with ErrNotFound for an unknown key.
	GetNotes() ([]models.Note, error)
	UpsertNote(models.Note) error
	DeleteNote(key string) error
	DeleteAllNotes() error

	// Utils
	GetConfigPath() string
}

// SchemaManager is implemented by the SQL backends. Connect opens the database
// without validating its schema so that pending migrations can be applied.
type SchemaManager interface {
	Connect() error
	Migrate(ctx context.Context) (int, error)
	MigrationStatus(ctx context.Context) ([]migration.Status, error)
	ValidateSchema(ctx context.Context) error
}

// SortNotes orders notes newest session first, then by time and key.
func SortNotes(notes []models.Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		a, b := notes[i], notes[j]
		if a.SessionDate != b.SessionDate {
			return a.SessionDate > b.SessionDate
		}
		if a.SessionTime != b.SessionTime {
			return a.SessionTime > b.SessionTime
		}
		return a.Key < b.Key
	})
}
