package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRelayServerMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadRelayServer(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultRelayServer(), cfg)
	// Спорные тумблеры по умолчанию выключены.
	assert.False(t, cfg.ForceIntoAnySession)
	assert.False(t, cfg.ValidateEndpoint)
}

func TestLoadRelayServerOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 7000
log_level: debug
matching_policy: ping
force_into_any_session: true
storage:
  backend: postgres
  database:
    host: db.example.com
    dbname: relay
`), 0o644))

	cfg, err := LoadRelayServer(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "ping", cfg.MatchingPolicy)
	assert.True(t, cfg.ForceIntoAnySession)
	assert.Equal(t, "postgres", cfg.Storage.Backend)
	assert.Equal(t, "db.example.com", cfg.Storage.Database.Host)
	// Незатронутые поля остаются дефолтными.
	assert.Equal(t, "0.0.0.0", cfg.BindAddress)
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: 5432, User: "u", Password: "p", DBName: "db", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/db?sslmode=disable", d.DSN())
}

func TestLoadRelayServerRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [not a number"), 0o644))
	_, err := LoadRelayServer(path)
	assert.Error(t, err)
}
