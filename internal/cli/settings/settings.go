package settings

import (
	"fmt"

	"github.com/seicologia/agenda/internal/cli"
	"github.com/seicologia/agenda/internal/conflict"
	"github.com/seicologia/agenda/internal/utils"
)

type SettingsCmd struct {
	List bool `help:"List current settings."`

	DefaultTimezone *string `help:"IANA timezone the agenda is computed in."`
	SuggestionStart *string `help:"Earliest suggested slot (HH:MM)."`
	SuggestionEnd   *string `help:"Latest suggested slot (HH:MM)."`
	SlotStep        *int    `help:"Minutes between suggested slots."`
	DebounceMs      *int    `help:"Delay before session and payment changes are written, in milliseconds."`
	MinDate         *string `help:"Earliest date shown in the agenda (YYYY-MM-DD, empty to clear)."`
}

func (c *SettingsCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load storage: %w", err)
	}
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	out := ctx.Out()
	if c.List {
		fmt.Fprintln(out, "Current Settings:")
		fmt.Fprintf(out, "  Timezone:          %s\n", settings.Timezone)
		fmt.Fprintf(out, "  Suggestion Start:  %s\n", settings.SuggestionStart)
		fmt.Fprintf(out, "  Suggestion End:    %s\n", settings.SuggestionEnd)
		fmt.Fprintf(out, "  Slot Step:         %d min\n", settings.SlotStepMin)
		fmt.Fprintf(out, "  Write Delay:       %d ms\n", settings.DebounceMs)
		fmt.Fprintf(out, "  Min Date:          %s\n", settings.MinDate)
		return nil
	}

	updated := false
	if c.DefaultTimezone != nil {
		if !utils.ValidateTimezone(*c.DefaultTimezone) {
			return fmt.Errorf("unknown timezone %q", *c.DefaultTimezone)
		}
		settings.Timezone = *c.DefaultTimezone
		updated = true
	}
	if c.SuggestionStart != nil {
		settings.SuggestionStart = *c.SuggestionStart
		updated = true
	}
	if c.SuggestionEnd != nil {
		settings.SuggestionEnd = *c.SuggestionEnd
		updated = true
	}
	if c.SlotStep != nil {
		if *c.SlotStep <= 0 || 24*60%*c.SlotStep != 0 {
			return fmt.Errorf("slot step must evenly divide a day")
		}
		settings.SlotStepMin = *c.SlotStep
		updated = true
	}
	if c.DebounceMs != nil {
		if *c.DebounceMs < 0 {
			return fmt.Errorf("write delay cannot be negative")
		}
		settings.DebounceMs = *c.DebounceMs
		updated = true
	}
	if c.MinDate != nil {
		if *c.MinDate != "" && !utils.ValidateDateFormat(*c.MinDate) {
			return fmt.Errorf("invalid min date %q (expected YYYY-MM-DD)", *c.MinDate)
		}
		settings.MinDate = *c.MinDate
		updated = true
	}

	if !updated {
		fmt.Fprintln(out, "No settings updated. Use --list to see current settings.")
		return nil
	}
	if _, err := conflict.FromSettings(settings); err != nil {
		return err
	}
	if err := ctx.Store.SaveSettings(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	fmt.Fprintln(out, "Settings updated successfully.")
	return nil
}
