package shared

import (
	_ "embed"
	"fmt"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// DefaultScopes are the permissions requested when the config does not list any.
var DefaultScopes = []string{"user-top-read", "user-read-private", "user-read-email"}

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials for a public (PKCE) client.
//
// Redirect URIs are registered per environment; Environment selects the one in use.
type SpotifyConfig struct {
	ClientID          string            `toml:"client_id"`
	Environment       string            `toml:"environment"`
	RedirectURIs      map[string]string `toml:"redirect_uris"`
	Scopes            []string          `toml:"scopes"`
	RequestsPerSecond float64           `toml:"requests_per_second"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string        `toml:"host"`
	Port            int           `toml:"port"`
	CallbackTimeout time.Duration `toml:"callback_timeout"`
}

// RedirectURI returns the redirect URI registered for the selected environment.
func (s SpotifyConfig) RedirectURI() (string, error) {
	if s.Environment == "" {
		return "", fmt.Errorf("%w: credentials.spotify.environment is empty", ErrInvalidConfig)
	}

	uri, ok := s.RedirectURIs[s.Environment]
	if !ok || uri == "" {
		return "", fmt.Errorf("%w: no redirect URI for environment %q (known: %s)",
			ErrInvalidConfig, s.Environment, strings.Join(s.Environments(), ", "))
	}

	return uri, nil
}

// Environments lists the configured environment names in sorted order.
func (s SpotifyConfig) Environments() []string {
	names := make([]string, 0, len(s.RedirectURIs))
	for name := range s.RedirectURIs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ScopeList returns the configured scopes, falling back to [DefaultScopes].
func (s SpotifyConfig) ScopeList() []string {
	if len(s.Scopes) == 0 {
		return DefaultScopes
	}
	return s.Scopes
}

// Validate reports whether the Spotify settings are complete enough to start an authorization.
func (s SpotifyConfig) Validate() error {
	if s.ClientID == "" {
		return fmt.Errorf("%w: spotify client_id is not set", ErrMissingCredentials)
	}
	if _, err := s.RedirectURI(); err != nil {
		return err
	}
	if s.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: requests_per_second must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Addr returns the host:port the local server listens on.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values from [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// LoadConfigOrDefault loads the config at path when it exists and falls back to [DefaultConfig] otherwise.
func LoadConfigOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
