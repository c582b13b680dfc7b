package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 180*time.Second, cfg.Timeouts.Password)
	assert.Equal(t, 600*time.Second, cfg.Timeouts.Summary)
	assert.Equal(t, 900*time.Second, cfg.Timeouts.Dream)
	assert.Equal(t, 3500, cfg.OpenAI.MaxTokens)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
data_dir: /srv/journal
language: ru
authorized_users: [42, 43]
openai:
  model: gpt-4o-mini
  temperature: 0.2
timeouts:
  summary: 30s
`)

	cfg, err := Load(path, noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, "/srv/journal", cfg.DataDir)
	assert.Equal(t, "ru", cfg.Language)
	assert.Equal(t, []int64{42, 43}, cfg.AuthorizedUsers)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, 0.2, cfg.OpenAI.Temperature)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.Summary)
	assert.Equal(t, 180*time.Second, cfg.Timeouts.Password, "unset keys keep defaults")
}

func TestEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "data_dir: /from/yaml\n")

	t.Setenv("MOODJOURNAL_DATA_DIR", "/from/env")
	t.Setenv("MOODJOURNAL_AUTHORIZED_USERS", "7,8")
	t.Setenv("MOODJOURNAL_TIMEOUT_DREAM", "2m")
	t.Setenv("MOODJOURNAL_OPENAI_MODEL", "local-model")

	cfg, err := Load(path, noEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.DataDir)
	assert.Equal(t, []int64{7, 8}, cfg.AuthorizedUsers)
	assert.Equal(t, 2*time.Minute, cfg.Timeouts.Dream)
	assert.Equal(t, "local-model", cfg.OpenAI.Model)
}

func TestDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := writeFile(t, dir, "test.env", "MOODJOURNAL_LANGUAGE=ru\n")
	t.Cleanup(func() { os.Unsetenv("MOODJOURNAL_LANGUAGE") })

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "ru", cfg.Language)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		yaml string
	}{
		{name: "unknown language", yaml: "language: de\n"},
		{name: "bad temperature", yaml: "openai:\n  temperature: 5\n"},
		{name: "zero timeout", yaml: "timeouts:\n  password: 0s\n"},
		{name: "bad metrics addr", yaml: "metrics_addr: not an address\n"},
		{name: "malformed yaml", yaml: "data_dir: [unterminated\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, "bad.yaml", tt.yaml)
			_, err := Load(path, noEnvFile(t))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(dir, "absent.yaml"), noEnvFile(t))
	assert.Error(t, err)
}

func TestIsAuthorized(t *testing.T) {
	cfg := Default()
	cfg.AuthorizedUsers = []int64{42}

	assert.True(t, cfg.IsAuthorized(42))
	assert.True(t, cfg.IsAuthorized(cfg.ConsoleUserID))
	assert.False(t, cfg.IsAuthorized(99))
}
