package system

import (
	"errors"
	"fmt"

	"github.com/seicologia/agenda/internal/cli"
	"github.com/seicologia/agenda/internal/keyring"
	"github.com/seicologia/agenda/internal/storage/postgres"
)

type KeyringCmd struct {
	Set    KeyringSetCmd    `cmd:"" help:"Store a PostgreSQL connection string in the OS keyring."`
	Get    KeyringGetCmd    `cmd:"" help:"Show the stored connection string with the password masked."`
	Delete KeyringDeleteCmd `cmd:"" help:"Remove the stored connection string."`
}

// KeyringSetCmd stores database connection credentials in the OS keyring
type KeyringSetCmd struct {
	ConnectionString string `arg:"" help:"PostgreSQL connection string to store in keyring."`
}

func (cmd *KeyringSetCmd) Run(ctx *cli.Context) error {
	if !cli.IsPostgres(cmd.ConnectionString) {
		return errors.New("connection string must be a valid PostgreSQL connection string")
	}

	if err := postgres.ValidateConnString(cmd.ConnectionString); err != nil {
		if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
			return fmt.Errorf("invalid connection string: %w", err)
		}
		// The keyring is encrypted, so an embedded password is accepted here.
		fmt.Fprintln(ctx.Out(), "⚠️  Warning: Connection string contains embedded credentials.")
		fmt.Fprintln(ctx.Out(), "   It will be stored as-is in the encrypted OS keyring.")
	}

	if err := keyring.SetConnectionString(ctx.Profile, cmd.ConnectionString); err != nil {
		return err
	}

	fmt.Fprintln(ctx.Out(), "✓ Connection string stored successfully in OS keyring")
	fmt.Fprintln(ctx.Out(), "  Use it with --config keyring")
	return nil
}

// KeyringGetCmd retrieves database connection credentials from the OS keyring
type KeyringGetCmd struct{}

func (cmd *KeyringGetCmd) Run(ctx *cli.Context) error {
	connStr, err := keyring.GetConnectionString(ctx.Profile)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no connection string found in keyring. Use 'agenda keyring set' to store one")
		}
		return fmt.Errorf("failed to retrieve connection string from keyring: %w", err)
	}

	fmt.Fprintln(ctx.Out(), "Connection string retrieved from keyring:")
	fmt.Fprintln(ctx.Out(), keyring.Redact(connStr))
	return nil
}

// KeyringDeleteCmd removes database connection credentials from the OS keyring
type KeyringDeleteCmd struct{}

func (cmd *KeyringDeleteCmd) Run(ctx *cli.Context) error {
	if err := keyring.DeleteConnectionString(ctx.Profile); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no connection string found in keyring")
		}
		return err
	}

	fmt.Fprintln(ctx.Out(), "✓ Connection string deleted from OS keyring")
	return nil
}
