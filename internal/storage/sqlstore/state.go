package sqlstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/seicologia/agenda/internal/logger"
	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/overrides"
	"github.com/seicologia/agenda/internal/storage"
)

func (s *Store) readState(key string) ([]byte, error) {
	if s.DB == nil {
		return nil, storage.ErrNotConnected
	}
	var value string
	err := s.DB.QueryRow(s.q("SELECT value FROM workspace_state WHERE key = ?"), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return []byte(value), nil
}

// LoadState reads the overrides and extras. Entries with malformed keys are
// skipped with a warning rather than failing the whole load.
func (s *Store) LoadState(loc *time.Location) (overrides.State, error) {
	st := overrides.State{
		Sessions: overrides.SessionOverrides{},
		Payments: overrides.PaymentOverrides{},
	}

	raw, err := s.readState(storage.StateSessions)
	if err != nil {
		return st, err
	}
	if raw != nil {
		var encoded map[string]models.SessionPatch
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return st, fmt.Errorf("failed to parse %s: %w", storage.StateSessions, err)
		}
		var decodeErr error
		st.Sessions, decodeErr = overrides.DecodeSessions(encoded, loc)
		if decodeErr != nil {
			logger.Warn("Skipped malformed session overrides", "error", decodeErr)
		}
	}

	raw, err = s.readState(storage.StateExtras)
	if err != nil {
		return st, err
	}
	if raw != nil {
		if err := json.Unmarshal(raw, &st.Extras); err != nil {
			return st, fmt.Errorf("failed to parse %s: %w", storage.StateExtras, err)
		}
	}

	raw, err = s.readState(storage.StatePayments)
	if err != nil {
		return st, err
	}
	if raw != nil {
		var encoded map[string]models.PaymentPatch
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return st, fmt.Errorf("failed to parse %s: %w", storage.StatePayments, err)
		}
		var decodeErr error
		st.Payments, decodeErr = overrides.DecodePayments(encoded)
		if decodeErr != nil {
			logger.Warn("Skipped malformed payment overrides", "error", decodeErr)
		}
	}

	return st, nil
}

// SaveState replaces the three state documents in one transaction.
func (s *Store) SaveState(st overrides.State) error {
	extras := st.Extras
	if extras == nil {
		extras = []models.Session{}
	}
	docs := []struct {
		key   string
		value any
	}{
		{storage.StateSessions, st.Sessions.Encode()},
		{storage.StateExtras, extras},
		{storage.StatePayments, st.Payments.Encode()},
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(s.q(`
		INSERT INTO workspace_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, d := range docs {
		data, err := json.Marshal(d.value)
		if err != nil {
			return fmt.Errorf("failed to serialize %s: %w", d.key, err)
		}
		if _, err := stmt.Exec(d.key, string(data), now); err != nil {
			return fmt.Errorf("failed to save %s: %w", d.key, err)
		}
	}

	return tx.Commit()
}
