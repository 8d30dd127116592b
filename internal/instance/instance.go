// Package instance records a running `agenda serve` in a lockfile so other
// processes on the same workspace can find it.
//
// The server keeps the workspace in memory and writes snapshots back, so an
// edit made by another process while it runs can be overwritten.
package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/seicologia/agenda/internal/constants"
)

var (
	findProcessFunc = ps.FindProcess
	getpidFunc      = os.Getpid
)

var (
	ErrNotRunning     = errors.New("agenda serve is not running")
	ErrAlreadyRunning = errors.New("agenda serve is already running on this workspace")
)

// Server describes a running server found through its lockfile.
type Server struct {
	Port int
	PID  int
}

func (s Server) String() string {
	return fmt.Sprintf("pid %d, port %d", s.PID, s.Port)
}

// Lock is held by the serving process until Release.
type Lock struct {
	path string
}

// Acquire writes the lockfile for a server listening on port. It fails with
// ErrAlreadyRunning when the file names another live agenda process; stale
// files are replaced.
func Acquire(path string, port int) (*Lock, error) {
	if running, err := Find(path); err == nil {
		return nil, fmt.Errorf("%w (%s)", ErrAlreadyRunning, running)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	content := fmt.Sprintf("%d|%d", port, getpidFunc())
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return nil, fmt.Errorf("failed to write lockfile: %w", err)
	}
	return &Lock{path: path}, nil
}

// Release removes the lockfile if it still belongs to this process.
func (l *Lock) Release() error {
	s, err := parse(l.path)
	if err != nil || s.PID != getpidFunc() {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lockfile: %w", err)
	}
	return nil
}

// Find reports the server recorded at path, if its process is still alive.
func Find(path string) (Server, error) {
	s, err := parse(path)
	if err != nil {
		return Server{}, err
	}

	process, err := findProcessFunc(s.PID)
	if err != nil || process == nil {
		return Server{}, ErrNotRunning
	}
	if !strings.HasPrefix(process.Executable(), constants.AppName) {
		return Server{}, fmt.Errorf("process with PID %d is not agenda (is %s): %w", s.PID, process.Executable(), ErrNotRunning)
	}
	return s, nil
}

func parse(path string) (Server, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Server{}, ErrNotRunning
	}

	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) != 2 {
		return Server{}, errors.New("lockfile is malformed")
	}

	port, err := strconv.Atoi(parts[0])
	if err != nil {
		return Server{}, errors.New("invalid port number in lockfile")
	}
	if port < 1 || port > 65535 {
		return Server{}, fmt.Errorf("port number %d is outside valid range (1-65535)", port)
	}

	pid, err := strconv.Atoi(parts[1])
	if err != nil || pid <= 0 {
		return Server{}, errors.New("invalid process ID in lockfile")
	}
	return Server{Port: port, PID: pid}, nil
}
