package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RelayServer holds all configuration for the relay server.
type RelayServer struct {
	// Network
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// Admin HTTP API
	AdminEnabled     bool   `yaml:"admin_enabled"`
	AdminBindAddress string `yaml:"admin_bind_address"`
	AdminPort        int    `yaml:"admin_port"`

	// API key gating /serverdb upgrades and the admin API.
	// Stored as a bcrypt hash; empty disables the check.
	ServerDBAPIKeyHash string `yaml:"server_db_api_key_hash"`

	// Storage
	Storage StorageConfig `yaml:"storage"`

	// Symbol cache
	SymbolCachePath string `yaml:"symbol_cache_path"`

	// Logging
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error (default: info)
	LogFormat string `yaml:"log_format"` // text, json (default: text)

	// Login service
	SessionTTLMinutes             int  `yaml:"session_ttl_minutes"`
	SessionDisconnectedTimeoutMin int  `yaml:"session_disconnected_timeout_minutes"`
	AutoCreateAccounts            bool `yaml:"auto_create_accounts"`

	// ServerDB registry
	ValidateEndpoint  bool `yaml:"validate_endpoint"`
	ValidateTimeoutMS int  `yaml:"validate_timeout_ms"`

	// Matching
	MatchingPolicy      string `yaml:"matching_policy"` // population, ping
	ForceIntoAnySession bool   `yaml:"force_into_any_session"`
}

// StorageConfig selects and parameterizes the persistence backend.
type StorageConfig struct {
	Backend string `yaml:"backend"` // filesystem, postgres

	// Filesystem backend
	Root         string `yaml:"root"`
	DisableCache bool   `yaml:"disable_cache"`

	// Postgres backend
	Database DatabaseConfig `yaml:"database"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// DefaultRelayServer returns RelayServer config with sensible defaults.
// Debug-leaning toggles (force_into_any_session, endpoint validation off)
// default to off so a bare config behaves predictably.
func DefaultRelayServer() RelayServer {
	return RelayServer{
		BindAddress:                   "0.0.0.0",
		Port:                          6789,
		AdminEnabled:                  true,
		AdminBindAddress:              "127.0.0.1",
		AdminPort:                     6790,
		SymbolCachePath:               "config/symbols.json",
		LogLevel:                      "info",
		LogFormat:                     "text",
		SessionTTLMinutes:             24 * 60,
		SessionDisconnectedTimeoutMin: 10,
		AutoCreateAccounts:            true,
		ValidateEndpoint:              false,
		ValidateTimeoutMS:             3000,
		MatchingPolicy:                "population",
		ForceIntoAnySession:           false,
		Storage: StorageConfig{
			Backend: "filesystem",
			Root:    "data",
			Database: DatabaseConfig{
				Host:     "127.0.0.1",
				Port:     5432,
				User:     "arenarelay",
				Password: "arenarelay",
				DBName:   "arenarelay",
				SSLMode:  "disable",
			},
		},
	}
}

// LoadRelayServer loads relay server config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadRelayServer(path string) (RelayServer, error) {
	cfg := DefaultRelayServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
