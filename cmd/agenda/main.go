package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/seicologia/agenda/internal/cli"
	"github.com/seicologia/agenda/internal/cli/agenda"
	"github.com/seicologia/agenda/internal/cli/backups"
	"github.com/seicologia/agenda/internal/cli/patients"
	"github.com/seicologia/agenda/internal/cli/settings"
	"github.com/seicologia/agenda/internal/cli/sheets"
	"github.com/seicologia/agenda/internal/cli/system"
	"github.com/seicologia/agenda/internal/constants"
	"github.com/seicologia/agenda/internal/errors"
	"github.com/seicologia/agenda/internal/logger"
)

type CLI struct {
	Version  kong.VersionFlag
	Config   string `help:"SQLite or JSON file path, PostgreSQL connection string, or 'keyring'. PostgreSQL credentials must NOT be embedded in the connection string; use .pgpass, AGENDA_DB_CONNECTION or the OS keyring instead." type:"string" default:"${config}" env:"AGENDA_CONFIG"`
	Profile  string `help:"Keyring profile used with --config keyring." env:"AGENDA_PROFILE"`
	Timezone string `help:"IANA timezone overriding the stored setting." env:"AGENDA_TIMEZONE"`
	Verbose  bool   `short:"v" help:"Log debug output to stderr." env:"AGENDA_DEBUG"`

	Init     system.InitCmd     `cmd:"" help:"Initialize agenda storage."`
	Migrate  system.MigrateCmd  `cmd:"" help:"Run database migrations."`
	Doctor   system.DoctorCmd   `cmd:"" help:"Run health checks and diagnostics."`
	Tui      system.TuiCmd      `cmd:"" help:"Launch the interactive TUI." default:"1"`
	Serve    system.ServeCmd    `cmd:"" help:"Serve the JSON API and metrics."`
	Debug    system.DebugCmd    `cmd:"" help:"Debug commands for troubleshooting."`
	Validate system.ValidateCmd `cmd:"" help:"Validate the roster for duplicates and overlapping slots."`
	Keyring  system.KeyringCmd  `cmd:"" help:"Manage the PostgreSQL connection string in the OS keyring."`

	Agenda   agenda.AgendaCmd     `cmd:"" help:"Show the month agenda."`
	Summary  agenda.SummaryCmd    `cmd:"" help:"Show month totals."`
	Session  agenda.SessionCmd    `cmd:"" help:"Manage sessions."`
	Payment  agenda.PaymentCmd    `cmd:"" help:"Manage payments."`
	Note     agenda.NoteCmd       `cmd:"" help:"Manage session notes."`
	Tasks    agenda.TasksCmd      `cmd:"" help:"List follow-ups: sessions to confirm, notes to write, payments to collect."`
	Patient  patients.PatientCmd  `cmd:"" help:"Manage patients."`
	Import   sheets.ImportCmd     `cmd:"" help:"Import patients from a spreadsheet."`
	Export   sheets.ExportCmd     `cmd:"" help:"Export the agenda or the roster to a spreadsheet."`
	Backup   backups.BackupCmd    `cmd:"" help:"Manage database backups."`
	Settings settings.SettingsCmd `cmd:"" help:"Manage workspace settings."`
}

func main() {
	// A missing .env file is fine; the environment alone is enough.
	_ = godotenv.Load()

	var c CLI
	parser, err := newParser(&c, kong.UsageOnError())
	if err != nil {
		errors.Fatal(err)
	}
	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if err := run(kctx, &c, os.Stdout, os.Stdin); err != nil {
		errors.Fatal(err)
	}
}

func newParser(c *CLI, options ...kong.Option) (*kong.Kong, error) {
	options = append([]kong.Option{
		kong.Name(constants.AppName),
		kong.Description("Recurring session agenda and billing for a therapy practice"),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": constants.Version,
			"config":  constants.DefaultConfigPath,
		},
	}, options...)
	return kong.New(c, options...)
}

// run executes the parsed command against the configured store.
func run(kctx *kong.Context, c *CLI, stdout io.Writer, stdin io.Reader) error {
	command := kctx.Command()
	if err := logger.Init(logger.Config{
		Debug:     c.Verbose,
		ConfigDir: logDir(c.Config),
		Console:   strings.HasPrefix(command, "serve"),
	}); err != nil {
		return err
	}
	logger.Debug("Starting", "command", command, "version", constants.Version)

	store, err := cli.OpenStore(c.Config, c.Profile)
	if err != nil && !strings.HasPrefix(command, "keyring") {
		return err
	}

	appCtx := &cli.Context{
		Store:    store,
		Profile:  c.Profile,
		Timezone: c.Timezone,
		Stdout:   stdout,
		Stdin:    stdin,
	}

	runErr := kctx.Run(appCtx)
	closeErr := appCtx.Close()
	if runErr != nil {
		return runErr
	}
	return closeErr
}

// logDir keeps logs next to a file database and in the default config
// directory otherwise.
func logDir(config string) string {
	if config != "" && config != cli.KeyringConfig && !cli.IsPostgres(config) {
		if path, err := cli.ExpandPath(config); err == nil {
			return filepath.Dir(path)
		}
	}
	path, err := cli.ExpandPath(constants.DefaultConfigPath)
	if err != nil {
		return os.TempDir()
	}
	return filepath.Dir(path)
}
