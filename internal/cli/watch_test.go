package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is written from the event loop and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func ticker(word string) string {
	return "log: { level: error }\nsteps:\n  - every: 5ms\n    say: " + word + "\n"
}

func TestRun_WatchReloadsChangedScript(t *testing.T) {
	script := writeScript(t, ticker("v1"))
	out := &syncBuffer{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := NewRootCmd()
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"run", script, "--watch", "--log-level", "error",
		"--env-file", filepath.Join(t.TempDir(), "none.env")})

	errc := make(chan error, 1)
	go func() { errc <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "v1")
	}, 5*time.Second, 10*time.Millisecond)

	// Rewrite until the watcher is up and the reload lands. The tick is longer
	// than the reload debounce so each write gets its own reload.
	require.Eventually(t, func() bool {
		if err := os.WriteFile(script, []byte(ticker("v2")), 0o644); err != nil {
			return false
		}
		return strings.Contains(out.String(), "v2")
	}, 10*time.Second, 2*reloadDelay)

	got := out.String()
	after := got[strings.Index(got, "v2"):]
	assert.NotContains(t, after, "v1", "the replaced timeline kept running")

	// A broken script is rejected and the v2 timeline keeps going.
	require.NoError(t, os.WriteFile(script, []byte("steps:\n  - after: 2x\n"), 0o644))
	time.Sleep(3 * reloadDelay)

	mark := len(out.String())
	require.Eventually(t, func() bool {
		return strings.Count(out.String()[mark:], "v2") >= 3
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("run --watch did not return after cancellation")
	}
}
