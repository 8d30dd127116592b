package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/seicologia/agenda/internal/backup"
	"github.com/seicologia/agenda/internal/constants"
	apperrors "github.com/seicologia/agenda/internal/errors"
	"github.com/seicologia/agenda/internal/instance"
	"github.com/seicologia/agenda/internal/keyring"
	"github.com/seicologia/agenda/internal/logger"
	"github.com/seicologia/agenda/internal/persist"
	"github.com/seicologia/agenda/internal/storage"
	"github.com/seicologia/agenda/internal/storage/postgres"
	"github.com/seicologia/agenda/internal/storage/sqlite"
	"github.com/seicologia/agenda/internal/workspace"
)

// EnvDBConnection holds a PostgreSQL connection string that may carry a password.
const EnvDBConnection = "AGENDA_DB_CONNECTION"

// KeyringConfig selects the connection string stored in the OS keyring.
const KeyringConfig = "keyring"

type Context struct {
	Store    storage.Provider
	Profile  string
	Timezone string
	Metrics  *persist.Metrics
	Now      func() time.Time

	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	// Serving is set by the serve command, which holds the workspace lock itself.
	Serving bool

	ws *workspace.Workspace
}

// Out is where commands print their results.
func (c *Context) Out() io.Writer {
	if c.Stdout == nil {
		return os.Stdout
	}
	return c.Stdout
}

// Err is where warnings that must not mix with results are printed.
func (c *Context) Err() io.Writer {
	if c.Stderr == nil {
		return os.Stderr
	}
	return c.Stderr
}

// LockPath is where a server on this workspace records itself. File stores
// keep it beside the data; PostgreSQL per keyring profile under the config directory.
func (c *Context) LockPath() string {
	if _, ok := c.Store.(*postgres.Store); !ok {
		return c.Store.GetConfigPath() + ".serve.lock"
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	profile := c.Profile
	if profile == "" {
		profile = "default"
	}
	return filepath.Join(dir, constants.AppName, "serve-postgres-"+profile+".lock")
}

// In is where interactive confirmations are read from.
func (c *Context) In() io.Reader {
	if c.Stdin == nil {
		return os.Stdin
	}
	return c.Stdin
}

// Workspace loads the store on first use and opens the service layer over it.
func (c *Context) Workspace() (*workspace.Workspace, error) {
	if c.ws != nil {
		return c.ws, nil
	}
	if err := c.Store.Load(); err != nil {
		return nil, loadHint(err)
	}
	if !c.Serving {
		if srv, err := instance.Find(c.LockPath()); err == nil {
			logger.Warn("Workspace is being served", "pid", srv.PID, "port", srv.Port)
			fmt.Fprintf(c.Err(), "⚠ agenda serve is running on this workspace (%s); it may overwrite changes made here\n", srv)
		}
	}
	ws, err := workspace.Open(c.Store, workspace.Options{
		Timezone: c.Timezone,
		Metrics:  c.Metrics,
		Now:      c.Now,
	})
	if err != nil {
		return nil, err
	}
	c.ws = ws
	return ws, nil
}

// Close flushes pending workspace changes and releases the store.
func (c *Context) Close() error {
	if c.ws != nil {
		ws := c.ws
		c.ws = nil
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return ws.Close(ctx)
	}
	if c.Store == nil {
		return nil
	}
	return c.Store.Close()
}

// PerformAutomaticBackup creates an automatic backup and silently handles errors
func (c *Context) PerformAutomaticBackup() {
	if _, ok := c.Store.(*sqlite.Store); !ok {
		return
	}
	mgr := backup.NewManager(c.Store.GetConfigPath())
	if _, err := mgr.Create(); err != nil {
		// Log warning but don't interrupt user workflow
		logger.Warn("Automatic backup failed", "error", err)
	}
}

func loadHint(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotInitialized):
		return apperrors.WithHint(err, "run 'agenda init' to create the workspace")
	case strings.Contains(err.Error(), "agenda migrate"):
		return apperrors.WithHint(err, "back up the database, then run 'agenda migrate'")
	}
	return err
}

// IsPostgres reports whether config names a PostgreSQL database rather than a file.
func IsPostgres(config string) bool {
	return strings.HasPrefix(config, "postgres://") ||
		strings.HasPrefix(config, "postgresql://") ||
		strings.Contains(config, "host=")
}

// OpenStore picks the backend for config:
//   - "keyring" reads the connection string from AGENDA_DB_CONNECTION or the profile's keyring entry
//   - a postgres:// URL or key=value DSN connects to PostgreSQL; it must not embed a password
//   - a .json path uses the JSON document store
//   - anything else is a SQLite file
func OpenStore(config, profile string) (storage.Provider, error) {
	config = strings.TrimSpace(config)
	switch {
	case config == KeyringConfig:
		connStr, err := keyring.ResolveConnectionString(os.Getenv(EnvDBConnection), profile)
		if err != nil {
			if errors.Is(err, keyring.ErrNotFound) {
				return nil, apperrors.WithHint(err, "store one with 'agenda keyring set' or export "+EnvDBConnection)
			}
			return nil, err
		}
		logger.Debug("Using PostgreSQL from keyring", "profile", profile, "conn", keyring.Redact(connStr))
		return postgres.New(connStr), nil
	case IsPostgres(config):
		if err := postgres.ValidateConnString(config); err != nil {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, apperrors.WithHint(err, "use ~/.pgpass, PGPASSWORD, "+EnvDBConnection+" or 'agenda keyring set'")
			}
			return nil, err
		}
		return postgres.New(config), nil
	case config == "":
		return nil, fmt.Errorf("no database configured")
	}

	path, err := ExpandPath(config)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return storage.NewJSONStore(path), nil
	}
	return sqlite.NewStore(path), nil
}

// ExpandPath resolves a leading ~ against the home directory.
func ExpandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Clean(path), nil
}

// Confirm asks a y/N question on the context's input.
func (c *Context) Confirm(question string) (bool, error) {
	fmt.Fprintf(c.Out(), "%s [y/N]: ", question)
	response, err := bufio.NewReader(c.In()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}
