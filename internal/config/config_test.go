package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultFieldsArePositive(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, 8, cfg.MinFrameIntervalMS)
	require.Equal(t, 1<<20, cfg.ScrollbackBytes)
	require.Equal(t, 16<<20, cfg.ClientOutboundCapBytes)
}

func TestLoadMissingDefaultPathIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"), false)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadMissingExplicitPathIsAnError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"), true)
	require.Error(t, err)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
socket_path: /tmp/custom.sock
script_path: /tmp/script.lua
log_level: debug
min_frame_interval_ms: 16
scrollback_bytes: 2048
client_outbound_cap_bytes: 4096
`), 0644))

	cfg, err := Load(path, true)
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom.sock", cfg.SocketPath)
	require.Equal(t, "/tmp/script.lua", cfg.ScriptPath)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 16, cfg.MinFrameIntervalMS)
	require.Equal(t, 2048, cfg.ScrollbackBytes)
	require.Equal(t, 4096, cfg.ClientOutboundCapBytes)
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: trace\n"), 0644))

	_, err := Load(path, true)
	require.Error(t, err)
}

func TestDefaultConfigPathHonorsXDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	require.Equal(t, "/xdg/prise/config.yaml", DefaultConfigPath())
}

func TestDefaultSocketPathFallsBackToTmp(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")
	old := currentUID
	currentUID = func() int { return 4242 }
	defer func() { currentUID = old }()

	require.Equal(t, filepath.Join(os.TempDir(), "prise-4242.sock"), defaultSocketPath())
}

func TestDefaultSocketPathHonorsXDGRuntimeDir(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/4242")
	old := currentUID
	currentUID = func() int { return 4242 }
	defer func() { currentUID = old }()

	require.Equal(t, "/run/user/4242/prise-4242.sock", defaultSocketPath())
}
