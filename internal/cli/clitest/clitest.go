// Package clitest builds command contexts over temporary stores.
package clitest

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/seicologia/agenda/internal/cli"
)

// Now is the clock every test context runs on: Wednesday 2024-07-10, noon UTC.
var Now = time.Date(2024, time.July, 10, 12, 0, 0, 0, time.UTC)

// New initializes a store named file in a temp dir (the extension picks the
// backend) and returns a context printing into out. The store is closed when
// the test ends.
func New(t *testing.T, file string) (ctx *cli.Context, out *bytes.Buffer) {
	t.Helper()
	store, err := cli.OpenStore(filepath.Join(t.TempDir(), file), "")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := store.Init(); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	out = &bytes.Buffer{}
	ctx = &cli.Context{
		Store:    store,
		Timezone: "UTC",
		Now:      func() time.Time { return Now },
		Stdout:   out,
		Stdin:    strings.NewReader(""),
	}
	t.Cleanup(func() {
		if err := ctx.Close(); err != nil {
			t.Errorf("failed to close context: %v", err)
		}
	})
	return ctx, out
}
