package llm

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/m4xw311/scribe/errors"
	"github.com/m4xw311/scribe/runner"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func scriptClient(t *testing.T, body string) *CLIClient {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake assistant scripts need a POSIX shell")
	}
	exe := filepath.Join(t.TempDir(), "fake-assistant")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return &CLIClient{Driver: runner.NewDriver(nil, nil), Executable: exe}
}

func TestCLIClientComplete(t *testing.T) {
	client := scriptClient(t, `cat > /dev/null
printf 'one '
printf 'two'`)

	var mu sync.Mutex
	var streamed string
	text, err := client.Complete(context.Background(), "prompt", func(s string) {
		mu.Lock()
		streamed += s
		mu.Unlock()
	})
	require.NoError(t, err)
	assert.Equal(t, "one two", text)
	assert.Equal(t, "one two", streamed)
}

func TestCLIClientCancel(t *testing.T) {
	client := scriptClient(t, `printf 'partial'
sleep 5
printf 'late'`)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan struct{})
	var once sync.Once
	go func() {
		<-first
		cancel()
	}()

	start := time.Now()
	_, err := client.Complete(ctx, "prompt", func(string) { once.Do(func() { close(first) }) })
	assert.True(t, errors.Is(err, ErrCancelled))
	assert.True(t, errors.Is(err, runner.ErrKilled))
	assert.Less(t, time.Since(start), 4*time.Second)
	assert.Equal(t, 0, client.Driver.Registry().Len())
}

func TestCLIClientCancelDoesNotWaitForExit(t *testing.T) {
	client := scriptClient(t, `trap '' TERM
printf 'partial'
sleep 4`)
	client.Driver.WithKillGrace(100 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var once sync.Once

	start := time.Now()
	_, err := client.Complete(ctx, "prompt", func(string) { once.Do(cancel) })
	assert.True(t, errors.Is(err, ErrCancelled))
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 0, client.Driver.Registry().Len())
}

func TestCLIClientAlreadyCancelled(t *testing.T) {
	client := &CLIClient{Driver: runner.NewDriver(nil, nil), Executable: "unused"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Complete(ctx, "prompt", nil)
	assert.True(t, errors.Is(err, ErrCancelled))
}

func TestCLIClientSpawnFailure(t *testing.T) {
	client := &CLIClient{Driver: runner.NewDriver(nil, nil), Executable: filepath.Join(t.TempDir(), "missing")}

	_, err := client.Complete(context.Background(), "prompt", nil)
	var spawnErr *runner.SpawnError
	assert.True(t, errors.As(err, &spawnErr))
}

func TestMockClient(t *testing.T) {
	m := &MockClient{Responses: []string{"first", "second"}, Chunk: 2}
	var chunks []string

	got, err := m.Complete(context.Background(), "p1", func(s string) { chunks = append(chunks, s) })
	require.NoError(t, err)
	assert.Equal(t, "first", got)
	assert.Equal(t, []string{"fi", "rs", "t"}, chunks)

	got, _ = m.Complete(context.Background(), "p2", nil)
	assert.Equal(t, "second", got)
	got, _ = m.Complete(context.Background(), "p3", nil)
	assert.Equal(t, "second", got)

	assert.Equal(t, 3, m.Calls())
	assert.Equal(t, []string{"p1", "p2", "p3"}, m.Prompts())
}

func TestMockClientErrors(t *testing.T) {
	boom := errors.New("boom")
	m := &MockClient{Responses: []string{"ok"}, Errors: []error{boom}}

	_, err := m.Complete(context.Background(), "p", nil)
	assert.Equal(t, boom, err)
	got, err := m.Complete(context.Background(), "p", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}
