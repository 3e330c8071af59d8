package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProjectConfig(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, Dir), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, Dir, "config.yaml"), []byte(body), 0o644))
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "claude", cfg.Executable)
	assert.Empty(t, cfg.Model)
	assert.True(t, cfg.IncludeContext)
	assert.Equal(t, 8000, cfg.ContextCharLimit)
	assert.Equal(t, 5, cfg.MaxReadRounds)
	assert.Equal(t, 200, cfg.ListingLimit)
	assert.Equal(t, ModePrompt, cfg.Mode)
	assert.Equal(t, ".md", cfg.DocumentExtension)
	assert.Contains(t, cfg.FilesystemAccess.Hidden, ".scribe/**")
}

func TestLoadConfigProjectOverridesUser(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeProjectConfig(t, home, "executable: /opt/bin/claude\nmodel: sonnet\nmax_read_rounds: 3\n")

	project := t.TempDir()
	writeProjectConfig(t, project, "model: opus\ninclude_context: false\nmode: auto\n")

	cfg, err := LoadConfig(project)
	require.NoError(t, err)

	assert.Equal(t, "/opt/bin/claude", cfg.Executable)
	assert.Equal(t, "opus", cfg.Model)
	assert.False(t, cfg.IncludeContext)
	assert.Equal(t, 3, cfg.MaxReadRounds)
	assert.Equal(t, ModeAuto, cfg.Mode)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	testCases := []struct {
		name string
		body string
	}{
		{"UnknownMode", "mode: yolo\n"},
		{"ZeroRounds", "max_read_rounds: 0\n"},
		{"NegativeContextLimit", "context_char_limit: -1\n"},
		{"EmptyExecutable", "executable: \"\"\n"},
		{"BrokenYAML", "model: [unterminated\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeProjectConfig(t, dir, tc.body)
			_, err := LoadConfig(dir)
			assert.Error(t, err)
		})
	}
}
