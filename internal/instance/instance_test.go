package instance

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	ps "github.com/mitchellh/go-ps"
)

type mockProcess struct {
	pid        int
	executable string
}

func (m *mockProcess) Pid() int           { return m.pid }
func (m *mockProcess) PPid() int          { return 1 }
func (m *mockProcess) Executable() string { return m.executable }

func withProcesses(t *testing.T, self int, procs map[int]string) {
	t.Helper()
	origFind, origPid := findProcessFunc, getpidFunc
	t.Cleanup(func() {
		findProcessFunc, getpidFunc = origFind, origPid
	})
	getpidFunc = func() int { return self }
	findProcessFunc = func(pid int) (ps.Process, error) {
		exe, ok := procs[pid]
		if !ok {
			return nil, nil
		}
		return &mockProcess{pid: pid, executable: exe}, nil
	}
}

func TestFind(t *testing.T) {
	lockfilePath := filepath.Join(t.TempDir(), "serve.lock")
	withProcesses(t, 100, map[int]string{4242: "agenda", 5151: "postgres"})

	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"missing", "", true},
		{"malformed", "8080", true},
		{"bad port", "http|4242", true},
		{"port out of range", "99999|4242", true},
		{"bad pid", "8080|abc", true},
		{"dead process", "8080|1234", true},
		{"other executable", "8080|5151", true},
		{"running", "8080|4242", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Remove(lockfilePath)
			if tt.content != "" {
				if err := os.WriteFile(lockfilePath, []byte(tt.content), 0600); err != nil {
					t.Fatal(err)
				}
			}
			s, err := Find(lockfilePath)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Find() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && (s.Port != 8080 || s.PID != 4242) {
				t.Errorf("Find() = %+v, want port 8080 pid 4242", s)
			}
		})
	}
}

func TestAcquireAndRelease(t *testing.T) {
	lockfilePath := filepath.Join(t.TempDir(), "nested", "serve.lock")
	withProcesses(t, 4242, map[int]string{4242: "agenda"})

	lock, err := Acquire(lockfilePath, 8080)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	s, err := Find(lockfilePath)
	if err != nil || s.PID != 4242 || s.Port != 8080 {
		t.Fatalf("Find() = %+v, %v", s, err)
	}

	if _, err := Acquire(lockfilePath, 9090); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Acquire() error = %v, want ErrAlreadyRunning", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := os.Stat(lockfilePath); !os.IsNotExist(err) {
		t.Errorf("lockfile still present after Release")
	}
}

func TestAcquireReplacesStaleLock(t *testing.T) {
	lockfilePath := filepath.Join(t.TempDir(), "serve.lock")
	withProcesses(t, 4242, map[int]string{4242: "agenda"})

	if err := os.WriteFile(lockfilePath, []byte("8080|999"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Acquire(lockfilePath, 8081); err != nil {
		t.Fatalf("Acquire() over stale lock error = %v", err)
	}
	s, err := Find(lockfilePath)
	if err != nil || s.Port != 8081 {
		t.Errorf("Find() = %+v, %v; want port 8081", s, err)
	}
}

func TestReleaseKeepsForeignLock(t *testing.T) {
	lockfilePath := filepath.Join(t.TempDir(), "serve.lock")
	withProcesses(t, 4242, map[int]string{4242: "agenda", 5252: "agenda"})

	lock := &Lock{path: lockfilePath}
	if err := os.WriteFile(lockfilePath, []byte("8080|5252"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := os.Stat(lockfilePath); err != nil {
		t.Errorf("Release removed a lock owned by another process: %v", err)
	}
}
