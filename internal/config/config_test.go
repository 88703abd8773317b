package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"CONFIG_FILE", "LISTEN_ADDR", "ALLOWED_ORIGINS", "SIGNALING_URL", "STUN_SERVERS",
	"TURN_SERVER", "TURN_USERNAME", "TURN_PASSWORD", "FORCE_RELAY",
	"MESSAGE_RATE", "MESSAGE_BURST", "LOG_LEVEL",
}

// cleanEnv unsets every variable Load reads and restores them afterwards.
func cleanEnv(t *testing.T) string {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	envFile := cleanEnv(t)

	cfg, err := Load(Options{EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, DefaultSignalingURL, cfg.SignalingURL)
	assert.Equal(t, DefaultSTUNServers, cfg.STUNServers)
	assert.Equal(t, float64(DefaultMessageRate), cfg.MessageRate)
	assert.Equal(t, DefaultMessageBurst, cfg.MessageBurst)
	assert.Nil(t, cfg.GetTURNServers())
}

func TestLoadPriority(t *testing.T) {
	envFile := cleanEnv(t)
	dir := t.TempDir()

	file := filepath.Join(dir, "call.toml")
	require.NoError(t, os.WriteFile(file, []byte(`
listen_addr = ":9000"
signaling_url = "wss://file.example/ws"
turn_server = "turn.file.example"
message_burst = 5
`), 0o600))

	t.Setenv("SIGNALING_URL", "wss://env.example/ws")
	t.Setenv("STUN_SERVERS", "stun:a.example:3478, stun:b.example:3478")

	cfg, err := Load(Options{File: file, EnvFile: envFile, ListenAddr: ":7000"})
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.ListenAddr)
	assert.Equal(t, "wss://env.example/ws", cfg.SignalingURL)
	assert.Equal(t, "turn.file.example", cfg.TURNServer)
	assert.Equal(t, 5, cfg.MessageBurst)
	assert.Equal(t, []string{"stun:a.example:3478", "stun:b.example:3478"}, cfg.STUNServers)
}

func TestLoadEnvFile(t *testing.T) {
	cleanEnv(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TURN_SERVER=turn.dotenv.example\nTURN_USERNAME=user\nTURN_PASSWORD=secret\n"), 0o600))

	cfg, err := Load(Options{EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"turn:turn.dotenv.example:3478?transport=udp",
		"turn:turn.dotenv.example:3478?transport=tcp",
		"turns:turn.dotenv.example:5349?transport=tcp",
	}, cfg.GetTURNServers())
	user, pass := cfg.GetTURNCredentials()
	assert.Equal(t, "user", user)
	assert.Equal(t, "secret", pass)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	envFile := cleanEnv(t)
	_, err := Load(Options{File: filepath.Join(t.TempDir(), "nope.toml"), EnvFile: envFile})
	assert.Error(t, err)
}

func TestLoadBadEnv(t *testing.T) {
	envFile := cleanEnv(t)
	t.Setenv("MESSAGE_RATE", "fast")
	_, err := Load(Options{EnvFile: envFile})
	assert.ErrorContains(t, err, "MESSAGE_RATE")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.ForceRelay = true
	assert.Error(t, cfg.Validate())

	cfg.TURNServer = "turn.example"
	assert.NoError(t, cfg.Validate())

	cfg.MessageBurst = -1
	assert.Error(t, cfg.Validate())
}
