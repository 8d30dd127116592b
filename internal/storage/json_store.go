package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/seicologia/agenda/internal/logger"
	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/overrides"
)

type jsonPatient struct {
	models.Patient
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// jsonDocument is the on-disk layout. The state keys match the snapshot the
// web client exports so either can be loaded by the other.
type jsonDocument struct {
	Version  int                            `json:"version"`
	Settings models.Settings                `json:"settings"`
	Patients map[string]jsonPatient         `json:"patients"`
	Sessions map[string]models.SessionPatch `json:"appointment_overrides"`
	Extras   []models.Session               `json:"extra_sessions"`
	Payments map[string]models.PaymentPatch `json:"payment_overrides"`
	Notes    map[string]models.Note         `json:"notes,omitempty"`
}

// JSONStore keeps the whole workspace in a single JSON file.
type JSONStore struct {
	mu   sync.Mutex
	path string
	doc  *jsonDocument
}

var _ Provider = (*JSONStore)(nil)

func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

func (s *JSONStore) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(s.path); err == nil {
		return s.load()
	}

	s.doc = &jsonDocument{
		Version:  1,
		Settings: models.DefaultSettings(),
		Patients: make(map[string]jsonPatient),
		Sessions: make(map[string]models.SessionPatch),
		Payments: make(map[string]models.PaymentPatch),
		Notes:    make(map[string]models.Note),
	}
	return s.save()
}

func (s *JSONStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *JSONStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotInitialized
		}
		return fmt.Errorf("failed to read storage: %w", err)
	}

	doc := &jsonDocument{}
	if err := json.Unmarshal(data, doc); err != nil {
		return fmt.Errorf("failed to parse storage: %w", err)
	}

	if doc.Patients == nil {
		doc.Patients = make(map[string]jsonPatient)
	}
	if doc.Sessions == nil {
		doc.Sessions = make(map[string]models.SessionPatch)
	}
	if doc.Payments == nil {
		doc.Payments = make(map[string]models.PaymentPatch)
	}
	if doc.Notes == nil {
		doc.Notes = make(map[string]models.Note)
	}
	s.doc = doc
	return nil
}

// save writes through a temp file so a crash never leaves a truncated workspace.
func (s *JSONStore) save() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize storage: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	return nil
}

func (s *JSONStore) loaded() error {
	if s.doc == nil {
		return fmt.Errorf("storage not loaded")
	}
	return nil
}

func (s *JSONStore) Close() error {
	return nil
}

func (s *JSONStore) GetSettings() (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loaded(); err != nil {
		return models.Settings{}, err
	}
	return s.doc.Settings, nil
}

func (s *JSONStore) SaveSettings(settings models.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loaded(); err != nil {
		return err
	}
	s.doc.Settings = settings
	return s.save()
}

func (s *JSONStore) AddPatient(p models.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loaded(); err != nil {
		return err
	}
	if p.ID == "" {
		return fmt.Errorf("patient id is required")
	}
	s.doc.Patients[p.ID] = jsonPatient{Patient: p}
	return s.save()
}

func (s *JSONStore) GetPatient(id string) (models.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loaded(); err != nil {
		return models.Patient{}, err
	}
	p, ok := s.doc.Patients[id]
	if !ok || p.DeletedAt != nil {
		return models.Patient{}, fmt.Errorf("patient %s: %w", id, ErrNotFound)
	}
	return p.Patient, nil
}

func (s *JSONStore) GetAllPatients() ([]models.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loaded(); err != nil {
		return nil, err
	}
	patients := make([]models.Patient, 0, len(s.doc.Patients))
	for _, p := range s.doc.Patients {
		if p.DeletedAt == nil {
			patients = append(patients, p.Patient)
		}
	}
	sort.Slice(patients, func(i, j int) bool {
		if patients[i].Name != patients[j].Name {
			return patients[i].Name < patients[j].Name
		}
		return patients[i].ID < patients[j].ID
	})
	return patients, nil
}

func (s *JSONStore) UpdatePatient(p models.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loaded(); err != nil {
		return err
	}
	existing, ok := s.doc.Patients[p.ID]
	if !ok || existing.DeletedAt != nil {
		return fmt.Errorf("patient %s: %w", p.ID, ErrNotFound)
	}
	s.doc.Patients[p.ID] = jsonPatient{Patient: p}
	return s.save()
}

func (s *JSONStore) DeletePatient(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loaded(); err != nil {
		return err
	}
	p, ok := s.doc.Patients[id]
	if !ok || p.DeletedAt != nil {
		return fmt.Errorf("patient %s: %w", id, ErrNotFound)
	}
	now := time.Now().UTC()
	p.DeletedAt = &now
	s.doc.Patients[id] = p
	return s.save()
}

func (s *JSONStore) RestorePatient(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loaded(); err != nil {
		return err
	}
	p, ok := s.doc.Patients[id]
	if !ok || p.DeletedAt == nil {
		return fmt.Errorf("patient %s: %w", id, ErrNotFound)
	}
	p.DeletedAt = nil
	s.doc.Patients[id] = p
	return s.save()
}

func (s *JSONStore) LoadState(loc *time.Location) (overrides.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loaded(); err != nil {
		return overrides.State{}, err
	}
	sessions, err := overrides.DecodeSessions(s.doc.Sessions, loc)
	if err != nil {
		logger.Warn("Skipped malformed session overrides", "error", err)
	}
	payments, err := overrides.DecodePayments(s.doc.Payments)
	if err != nil {
		logger.Warn("Skipped malformed payment overrides", "error", err)
	}
	return overrides.State{
		Sessions: sessions,
		Extras:   append([]models.Session(nil), s.doc.Extras...),
		Payments: payments,
	}, nil
}

func (s *JSONStore) SaveState(st overrides.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loaded(); err != nil {
		return err
	}
	s.doc.Sessions = st.Sessions.Encode()
	s.doc.Extras = append([]models.Session{}, st.Extras...)
	s.doc.Payments = st.Payments.Encode()
	return s.save()
}

func (s *JSONStore) GetNotes() ([]models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loaded(); err != nil {
		return nil, err
	}
	notes := make([]models.Note, 0, len(s.doc.Notes))
	for _, n := range s.doc.Notes {
		notes = append(notes, n)
	}
	SortNotes(notes)
	return notes, nil
}

// UpsertNote stores n under its key, keeping the creation time of an existing note.
func (s *JSONStore) UpsertNote(n models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loaded(); err != nil {
		return err
	}
	if n.Key == "" {
		return fmt.Errorf("note key is required")
	}
	if existing, ok := s.doc.Notes[n.Key]; ok {
		n.CreatedAt = existing.CreatedAt
	}
	s.doc.Notes[n.Key] = n
	return s.save()
}

func (s *JSONStore) DeleteNote(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loaded(); err != nil {
		return err
	}
	if _, ok := s.doc.Notes[key]; !ok {
		return fmt.Errorf("note %s: %w", key, ErrNotFound)
	}
	delete(s.doc.Notes, key)
	return s.save()
}

func (s *JSONStore) DeleteAllNotes() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loaded(); err != nil {
		return err
	}
	s.doc.Notes = make(map[string]models.Note)
	return s.save()
}

func (s *JSONStore) GetConfigPath() string {
	return s.path
}
