package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Setlist     SetlistConfig     `toml:"setlist"`
	Database    DatabaseConfig    `toml:"database"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	SetlistFM SetlistFMConfig `toml:"setlistfm"`
	Spotify   SpotifyConfig   `toml:"spotify"`
}

// SetlistFMConfig contains the setlist.fm API key and endpoints.
type SetlistFMConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	SiteURL string `toml:"site_url"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// SetlistConfig tunes aggregation and the HTTP fetcher.
type SetlistConfig struct {
	MaxPages        int `toml:"max_pages"`
	TopN            int `toml:"top_n"`
	MaxRetries      int `toml:"max_retries"`
	CourtesyDelayMS int `toml:"courtesy_delay_ms"`
	TimeoutSeconds  int `toml:"timeout_seconds"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains logger settings. File is optional.
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// CourtesyDelay is the pause between consecutive setlist pages.
func (s SetlistConfig) CourtesyDelay() time.Duration {
	return time.Duration(s.CourtesyDelayMS) * time.Millisecond
}

// Timeout is the per-request HTTP timeout.
func (s SetlistConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// envOverrides maps config fields to the environment variables that override them.
// The first variable found wins.
var envOverrides = []struct {
	keys  []string
	apply func(c *Config, v string)
}{
	{[]string{"SETLIST_API_KEY", "SETLISTFM_API_KEY"}, func(c *Config, v string) { c.Credentials.SetlistFM.APIKey = v }},
	{[]string{"SPOTIFY_CLIENT_ID", "SPOTIPY_CLIENT_ID"}, func(c *Config, v string) { c.Credentials.Spotify.ClientID = v }},
	{[]string{"SPOTIFY_CLIENT_SECRET", "SPOTIPY_CLIENT_SECRET"}, func(c *Config, v string) { c.Credentials.Spotify.ClientSecret = v }},
	{[]string{"SPOTIFY_REDIRECT_URI", "SPOTIPY_REDIRECT_URI"}, func(c *Config, v string) { c.Credentials.Spotify.RedirectURI = v }},
}

// ApplyEnv overrides credentials with values found through lookup (usually [os.LookupEnv]).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	for _, o := range envOverrides {
		for _, k := range o.keys {
			if v, ok := lookup(k); ok && v != "" {
				o.apply(c, v)
				break
			}
		}
	}
}

// Validate checks required credentials for the given services ("setlistfm", "spotify").
func (c *Config) Validate(services ...string) error {
	for _, s := range services {
		switch s {
		case "setlistfm":
			if c.Credentials.SetlistFM.APIKey == "" {
				return fmt.Errorf("%w: setlist.fm api_key (or SETLIST_API_KEY) is not set", ErrMissingCredentials)
			}
		case "spotify":
			sp := c.Credentials.Spotify
			if sp.ClientID == "" || sp.ClientSecret == "" || sp.RedirectURI == "" {
				return fmt.Errorf("%w: Spotify client_id, client_secret and redirect_uri must be set", ErrMissingCredentials)
			}
		default:
			return fmt.Errorf("%w: unknown service %q", ErrInvalidArgument, s)
		}
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
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

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
