package sqlstore

import (
	"fmt"
	"strconv"

	"github.com/seicologia/agenda/internal/constants"
	"github.com/seicologia/agenda/internal/models"
	"github.com/seicologia/agenda/internal/storage"
)

func defaultSettings() models.Settings {
	return models.DefaultSettings()
}

func (s *Store) GetSettings() (models.Settings, error) {
	if s.DB == nil {
		return models.Settings{}, storage.ErrNotConnected
	}
	rows, err := s.DB.Query("SELECT key, value FROM settings")
	if err != nil {
		return models.Settings{}, err
	}
	defer rows.Close()

	settings := models.DefaultSettings()
	count := 0
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return models.Settings{}, err
		}
		switch key {
		case constants.SettingTimezone:
			settings.Timezone = value
		case constants.SettingSuggestionStart:
			settings.SuggestionStart = value
		case constants.SettingSuggestionEnd:
			settings.SuggestionEnd = value
		case constants.SettingSlotStepMin:
			if settings.SlotStepMin, err = strconv.Atoi(value); err != nil {
				return models.Settings{}, fmt.Errorf("parsing %s: %w", key, err)
			}
		case constants.SettingDebounceMs:
			if settings.DebounceMs, err = strconv.Atoi(value); err != nil {
				return models.Settings{}, fmt.Errorf("parsing %s: %w", key, err)
			}
		case constants.SettingMinDate:
			settings.MinDate = value
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return models.Settings{}, err
	}

	if count == 0 {
		return models.Settings{}, fmt.Errorf("settings not found")
	}

	return settings, nil
}

func (s *Store) SaveSettings(settings models.Settings) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(s.q("INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value"))
	if err != nil {
		return err
	}
	defer stmt.Close()

	pairs := [][2]string{
		{constants.SettingTimezone, settings.Timezone},
		{constants.SettingSuggestionStart, settings.SuggestionStart},
		{constants.SettingSuggestionEnd, settings.SuggestionEnd},
		{constants.SettingSlotStepMin, strconv.Itoa(settings.SlotStepMin)},
		{constants.SettingDebounceMs, strconv.Itoa(settings.DebounceMs)},
		{constants.SettingMinDate, settings.MinDate},
	}
	for _, kv := range pairs {
		if _, err := stmt.Exec(kv[0], kv[1]); err != nil {
			return fmt.Errorf("saving %s: %w", kv[0], err)
		}
	}

	return tx.Commit()
}
