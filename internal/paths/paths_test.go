package paths

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// onPlatform swaps the platform lookups for the duration of a test.
func onPlatform(t *testing.T, goos, home, configDir string) {
	t.Helper()
	saved := platformDir
	t.Cleanup(func() { platformDir = saved })
	platformDir.goos = goos
	platformDir.homeDir = func() (string, error) { return home, nil }
	platformDir.userConfigDir = func() (string, error) { return configDir, nil }
}

func TestDefaultDirs(t *testing.T) {
	tests := []struct {
		name       string
		goos       string
		xdgConfig  string
		xdgData    string
		wantConfig string
		wantData   string
	}{
		{"linux xdg", "linux", "/xdg/config", "/xdg/data", "/xdg/config/pantry", "/xdg/data/pantry"},
		{"linux home", "linux", "", "", "/home/u/.config/pantry", "/home/u/.local/share/pantry"},
		{"darwin", "darwin", "/ignored", "/ignored", "/home/u/Library/Application Support/pantry", "/home/u/Library/Application Support/pantry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			onPlatform(t, tt.goos, "/home/u", "/home/u/Library/Application Support")
			t.Setenv("XDG_CONFIG_HOME", tt.xdgConfig)
			t.Setenv("XDG_DATA_HOME", tt.xdgData)

			got, err := DefaultConfigDir()
			require.NoError(t, err)
			assert.Equal(t, tt.wantConfig, got)
			got, err = DefaultDataDir()
			require.NoError(t, err)
			assert.Equal(t, tt.wantData, got)
		})
	}
}

func TestDefaultDirHomeError(t *testing.T) {
	onPlatform(t, "linux", "", "")
	platformDir.homeDir = func() (string, error) { return "", errors.New("no home") }
	t.Setenv("XDG_CONFIG_HOME", "")
	_, err := DefaultConfigDir()
	assert.Error(t, err)
}

func TestResolveConfigDir(t *testing.T) {
	onPlatform(t, "linux", "/home/u", "")
	t.Setenv("XDG_CONFIG_HOME", "")

	tests := []struct {
		name string
		flag string
		env  string
		want string
	}{
		{"flag wins", "/flag/config", "/env/config", "/flag/config"},
		{"env when no flag", "", "/env/config", "/env/config"},
		{"platform default", "", "", "/home/u/.config/pantry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvConfigDir, tt.env)
			got, err := ResolveConfigDir(tt.flag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveDataDir(t *testing.T) {
	onPlatform(t, "linux", "/home/u", "")
	t.Setenv("XDG_DATA_HOME", "")

	tests := []struct {
		name       string
		flag       string
		env        string
		configured string
		want       string
	}{
		{"flag wins", "/flag/data", "/env/data", "/cfg/data", "/flag/data"},
		{"env over config file", "", "/env/data", "/cfg/data", "/env/data"},
		{"config file", "", "", "/cfg/data", "/cfg/data"},
		{"platform default", "", "", "", "/home/u/.local/share/pantry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvDataDir, tt.env)
			got, err := ResolveDataDir(tt.flag, tt.configured)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRelativePathsBecomeAbsolute(t *testing.T) {
	t.Setenv(EnvConfigDir, "relative/env")
	got, err := ResolveConfigDir("")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got), got)

	t.Setenv(EnvDataDir, "")
	got, err = ResolveDataDir("", "relative/config")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got), got)
}
