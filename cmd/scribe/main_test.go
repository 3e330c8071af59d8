package main

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m4xw311/scribe/config"
	"github.com/m4xw311/scribe/workspace"
)

func testCommand(in string) (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(in))
	cmd.SetContext(context.Background())
	return cmd, &out
}

func resetFlags(t *testing.T) {
	t.Cleanup(func() {
		exeFlag, modelFlag, vaultFlag, modeFlag, verboseFlag = "", "", "", "", false
		current.set(nil)
		current.setInterrupt(nil)
	})
}

func TestApplyResponse(t *testing.T) {
	store := workspace.NewMemStore(map[string]string{"log.md": "start"})
	executor := workspace.NewExecutor(store, ".md", nil)
	cmd, out := testCommand("")

	err := applyResponse(cmd, executor,
		`Sure, <vault-action action="append" path="log.md">done</vault-action> ok`+
			`<vault-action action="edit" path="missing.md">x</vault-action>`, nil)
	require.NoError(t, err)
	assert.Equal(t, "Sure, ok\nAppended to: log.md\nFile not found: missing.md\n", out.String())

	got, _ := store.Read(context.Background(), "log.md")
	assert.Equal(t, "start\ndone", got)
}

func TestApplyResponseWithConfirmation(t *testing.T) {
	store := workspace.NewMemStore(nil)
	executor := workspace.NewExecutor(store, ".md", nil)
	cmd, out := testCommand("")
	confirm := promptConfirm(bufio.NewScanner(strings.NewReader("n\ny\n")), out)

	err := applyResponse(cmd, executor,
		`<vault-action action="create" path="a.md">A</vault-action>`+
			`<vault-action action="create" path="b.md">B</vault-action>`, confirm)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Create a.md:\nA\nApply this change? (y/n): Skipped: create a.md\n")
	assert.Contains(t, out.String(), "Created: b.md\n")

	paths, _ := store.ListPaths(context.Background())
	assert.Equal(t, []string{"b.md"}, paths)
}

func TestApplyResponseReportsFailures(t *testing.T) {
	store := workspace.NewMemStore(map[string]string{"locked/a.md": ""})
	guard, err := workspace.NewGuard(store, config.FilesystemAccess{ReadOnly: []string{"locked/**"}})
	require.NoError(t, err)
	cmd, out := testCommand("")

	err = applyResponse(cmd, workspace.NewExecutor(guard, ".md", nil),
		`<vault-action action="delete" path="locked/a.md"></vault-action>`, nil)
	assert.Error(t, err)
	assert.Contains(t, out.String(), "Failed: delete locked/a.md - ")
}

func TestApplyResponseWithoutActions(t *testing.T) {
	cmd, out := testCommand("")
	require.NoError(t, applyResponse(cmd, workspace.NewExecutor(workspace.NewMemStore(nil), ".md", nil), "just text", nil))
	assert.Equal(t, "just text\nNo vault actions found.\n", out.String())
}

func TestNewAppAppliesFlags(t *testing.T) {
	resetFlags(t)
	t.Setenv("HOME", t.TempDir())
	vault := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(vault, config.Dir), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(vault, config.Dir, "config.yaml"), []byte("executable: from-config\nmodel: haiku\n"), 0o644))

	vaultFlag = vault
	exeFlag = "/opt/bin/assistant"
	modeFlag = "auto"
	a, err := newApp()
	require.NoError(t, err)
	defer a.close()

	assert.Equal(t, "/opt/bin/assistant", a.cfg.Executable)
	assert.Equal(t, "haiku", a.cfg.Model)
	assert.Equal(t, config.ModeAuto, a.cfg.Mode)
	assert.Equal(t, vault, a.vaultRoot)

	ag := a.newAgent()
	assert.Equal(t, config.ModeAuto, ag.Mode)
	assert.Equal(t, 0, ag.Conversation.Len())
}

func TestNewAppRejectsBadMode(t *testing.T) {
	resetFlags(t)
	t.Setenv("HOME", t.TempDir())
	vaultFlag = t.TempDir()
	modeFlag = "yolo"

	_, err := newApp()
	assert.Error(t, err)
}

func TestApplyCommandEndToEnd(t *testing.T) {
	resetFlags(t)
	t.Setenv("HOME", t.TempDir())
	vault := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(vault, "log.md"), []byte("start"), 0o644))
	response := filepath.Join(t.TempDir(), "response.txt")
	require.NoError(t, os.WriteFile(response, []byte(`<vault-action action="append" path="log">more</vault-action>`), 0o644))

	vaultFlag = vault
	modeFlag = "auto"
	cmd, out := testCommand("")
	require.NoError(t, runApply(cmd, []string{response}))
	current.shutdown()

	assert.Equal(t, "Appended to: log.md\n", out.String())
	data, err := os.ReadFile(filepath.Join(vault, "log.md"))
	require.NoError(t, err)
	assert.Equal(t, "start\nmore", string(data))
}

func TestApplyFromStdinNeedsAutoMode(t *testing.T) {
	resetFlags(t)
	t.Setenv("HOME", t.TempDir())
	vaultFlag = t.TempDir()
	modeFlag = "prompt"

	cmd, _ := testCommand("")
	assert.Error(t, runApply(cmd, []string{"-"}))
}

func TestInterruptHook(t *testing.T) {
	resetFlags(t)
	assert.False(t, current.interrupt(), "no hook installed")

	handled := false
	current.setInterrupt(func() bool { handled = true; return true })
	assert.True(t, current.interrupt())
	assert.True(t, handled)

	current.setInterrupt(func() bool { return false })
	assert.False(t, current.interrupt())
}
