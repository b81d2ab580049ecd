package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	v := NewViper()
	v.SetConfigName("does-not-exist-anywhere")
	s, err := Load(v, "")
	require.NoError(t, err)

	assert.Equal(t, "dark", s.Theme)
	assert.Equal(t, 44100, s.Audio.SampleRate)
	assert.Equal(t, 1, s.Audio.Channels)
	assert.Equal(t, 5*time.Minute, s.Feed.CacheTTL)
	assert.Equal(t, "info", s.Log.Level)
	assert.NotEmpty(t, s.DBPath)
	assert.NotEmpty(t, s.AudioDir)
}

func TestExplicitFile(t *testing.T) {
	path := writeConfig(t, `
db_path: /tmp/journal.db
theme: light
audio:
  sample_rate: 16000
feed:
  cache_ttl: 30s
`)
	s, err := Load(NewViper(), path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/journal.db", s.DBPath)
	assert.Equal(t, "light", s.Theme)
	assert.Equal(t, 16000, s.Audio.SampleRate)
	assert.Equal(t, 1, s.Audio.Channels, "unset keys keep defaults")
	assert.Equal(t, 30*time.Second, s.Feed.CacheTTL)
	assert.Equal(t, path, s.ConfigFile)
}

func TestExplicitFileMissing(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("INNERGLOW_THEME", "light")
	t.Setenv("INNERGLOW_LOG_LEVEL", "warn")
	v := NewViper()
	v.SetConfigName("does-not-exist-anywhere")
	s, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, "light", s.Theme)
	assert.Equal(t, "warn", s.Log.Level)
}

func TestDebugForcesDebugLevel(t *testing.T) {
	path := writeConfig(t, "debug: true\nlog:\n  level: error\n")
	s, err := Load(NewViper(), path)
	require.NoError(t, err)
	assert.Equal(t, "debug", s.Log.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad theme", "theme: neon\n"},
		{"bad rate", "audio:\n  sample_rate: 0\n"},
		{"bad channels", "audio:\n  channels: 6\n"},
		{"empty db", "db_path: \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(NewViper(), writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
