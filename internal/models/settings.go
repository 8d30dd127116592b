package models

import (
	"time"

	"github.com/seicologia/agenda/internal/constants"
)

// Settings is the workspace-level configuration stored next to the schedule.
type Settings struct {
	Timezone        string `json:"timezone"`
	SuggestionStart string `json:"suggestion_start"` // HH:MM format
	SuggestionEnd   string `json:"suggestion_end"`   // HH:MM format
	SlotStepMin     int    `json:"slot_step_min"`
	DebounceMs      int    `json:"debounce_ms"`
	MinDate         string `json:"min_date,omitempty"` // YYYY-MM-DD format, empty for no lower bound
}

// DefaultSettings returns the settings a fresh workspace starts with.
func DefaultSettings() Settings {
	return Settings{
		Timezone:        constants.DefaultTimezone,
		SuggestionStart: constants.DefaultSuggestionStart,
		SuggestionEnd:   constants.DefaultSuggestionEnd,
		SlotStepMin:     constants.DefaultSlotStepMin,
		DebounceMs:      int(constants.DefaultDebounce / time.Millisecond),
	}
}

// Debounce returns the configured persistence delay.
func (s Settings) Debounce() time.Duration {
	if s.DebounceMs <= 0 {
		return constants.DefaultDebounce
	}
	return time.Duration(s.DebounceMs) * time.Millisecond
}
