package constants

import "time"

const (
	AppName            = "agenda"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/agenda/agenda.db"
	Version            = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// MonthFormat identifies a calendar month (YYYY-MM)
	MonthFormat = "2006-01"

	// BRDateFormat is the day-first format found in imported spreadsheets (DD/MM/YYYY)
	BRDateFormat = "02/01/2006"

	// InstantFormat renders an instant the way persisted session override keys expect it
	InstantFormat = "2006-01-02T15:04:05.000Z"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "agenda-"
	BackupFileSuffix = ".db"

	// MaxNotes caps stored session notes; users export and delete to free space
	MaxNotes = 50

	// Patient defaults
	DefaultDurationMin   = 50
	DefaultPayDay        = "5"
	DefaultSessionTime   = "09:00"
	DefaultDayOfWeek     = "segunda-feira"
	DefaultPaymentTime   = "09:00"
	PaymentEventDuration = 30

	// Active flag vocabulary
	ActiveYes = "Sim"
	ActiveNo  = "Não"

	// Frequency labels (wire vocabulary, preserved verbatim)
	FrequencyWeekly       = "Semanal"
	FrequencyBiweeklyOdd  = "Quinzenal (Ímpar)"
	FrequencyBiweeklyEven = "Quinzenal (Par)"
	FrequencyLegacy       = "Quinzenal"

	// Pay recurrence labels
	PayMonthly = "Mensal"
	PayWeekly  = "Semanal"

	// Override key prefixes
	PaymentKeyPrefix = "pay_"
	ExtraIDPrefix    = "extra_"

	// Conflict suggestion grid
	DefaultSuggestionStart = "07:00"
	DefaultSuggestionEnd   = "21:00"
	DefaultSlotStepMin     = 10
	DefaultMaxSuggestions  = 3
	SameDayEarlyStop       = 12

	// Persistence
	DefaultDebounce = 600 * time.Millisecond

	// Settings keys
	SettingTimezone        = "timezone"
	SettingSuggestionStart = "suggestion_start"
	SettingSuggestionEnd   = "suggestion_end"
	SettingSlotStepMin     = "slot_step_min"
	SettingDebounceMs      = "debounce_ms"
	SettingMinDate         = "min_date"

	DefaultTimezone = "Local"
)
