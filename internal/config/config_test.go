package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadEmptyFileGivesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverrides(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
checker:
  backend: z3
  time_limit: 5
matcher:
  max_obligations: 50
  depth: 2
cache:
  enabled: false
  max_age: 1h
workers: 3
keep_joined: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendZ3, cfg.Checker.Backend)
	assert.Equal(t, 5, cfg.Checker.TimeLimit)
	assert.Equal(t, "boogie", cfg.Checker.Command, "unset keys keep defaults")
	assert.Equal(t, 50, cfg.Matcher.MaxObligations)
	assert.Equal(t, 2, cfg.Matcher.Depth)
	assert.Equal(t, "h", cfg.Matcher.HavocName)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Hour, cfg.Cache.MaxAge)
	assert.Equal(t, 3, cfg.Workers)
	assert.True(t, cfg.KeepJoined)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
	}{
		{"unknown backend", "checker:\n  backend: cvc5\n"},
		{"zero ceiling", "matcher:\n  max_obligations: 0\n"},
		{"negative depth", "matcher:\n  depth: -1\n"},
		{"unknown key", "matcher:\n  bogus: 1\n"},
		{"not yaml", "checker: [\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestWriteThenLoad(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), DefaultFile)

	cfg := Default()
	cfg.Matcher.Depth = 4
	cfg.Checker.Args = []string{"/trace"}
	require.NoError(t, Write(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
