package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./setlistify.db" {
			t.Errorf("expected database path ./setlistify.db, got %s", config.Database.Path)
		}

		if config.Credentials.Spotify.RedirectURI != "http://127.0.0.1:3000/callback" {
			t.Errorf("unexpected redirect URI %s", config.Credentials.Spotify.RedirectURI)
		}

		if config.Credentials.SetlistFM.BaseURL != "https://api.setlist.fm/rest/1.0" {
			t.Errorf("unexpected setlist.fm base URL %s", config.Credentials.SetlistFM.BaseURL)
		}

		if config.Setlist.MaxPages != 5 || config.Setlist.TopN != 15 || config.Setlist.MaxRetries != 3 {
			t.Errorf("unexpected setlist defaults %+v", config.Setlist)
		}

		if config.Setlist.CourtesyDelay() != 500*time.Millisecond {
			t.Errorf("expected 500ms courtesy delay, got %v", config.Setlist.CourtesyDelay())
		}

		if config.Setlist.Timeout() != 10*time.Second {
			t.Errorf("expected 10s timeout, got %v", config.Setlist.Timeout())
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[credentials.setlistfm]
api_key = "test_api_key"

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"

[setlist]
max_pages = 2
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Credentials.SetlistFM.APIKey != "test_api_key" {
			t.Errorf("expected api key test_api_key, got %s", config.Credentials.SetlistFM.APIKey)
		}

		if config.Setlist.MaxPages != 2 {
			t.Errorf("expected max_pages 2, got %d", config.Setlist.MaxPages)
		}

		if config.Setlist.TopN != 15 {
			t.Errorf("expected default top_n to survive partial config, got %d", config.Setlist.TopN)
		}

		if config.Credentials.Spotify.RedirectURI != "http://127.0.0.1:3000/callback" {
			t.Errorf("expected default redirect URI, got %s", config.Credentials.Spotify.RedirectURI)
		}
	})

	t.Run("LoadConfig Missing File", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("LoadConfig Invalid TOML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[setlist\nmax_pages ="), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		env := map[string]string{
			"SETLIST_API_KEY":       "env_key",
			"SPOTIPY_CLIENT_ID":     "legacy_id",
			"SPOTIFY_CLIENT_ID":     "new_id",
			"SPOTIPY_CLIENT_SECRET": "legacy_secret",
		}
		lookup := func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		}

		config := DefaultConfig()
		config.ApplyEnv(lookup)

		if config.Credentials.SetlistFM.APIKey != "env_key" {
			t.Errorf("expected env api key, got %s", config.Credentials.SetlistFM.APIKey)
		}
		if config.Credentials.Spotify.ClientID != "new_id" {
			t.Errorf("expected SPOTIFY_CLIENT_ID to take precedence, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Credentials.Spotify.ClientSecret != "legacy_secret" {
			t.Errorf("expected SPOTIPY fallback, got %s", config.Credentials.Spotify.ClientSecret)
		}
		if config.Credentials.Spotify.RedirectURI != "http://127.0.0.1:3000/callback" {
			t.Errorf("expected redirect URI untouched, got %s", config.Credentials.Spotify.RedirectURI)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		config := DefaultConfig()

		if err := config.Validate("setlistfm"); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
		if err := config.Validate("spotify"); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}

		config.Credentials.SetlistFM.APIKey = "key"
		config.Credentials.Spotify.ClientID = "id"
		config.Credentials.Spotify.ClientSecret = "secret"
		if err := config.Validate("setlistfm", "spotify"); err != nil {
			t.Errorf("expected valid config, got %v", err)
		}

		if err := config.Validate("tidal"); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for unknown service, got %v", err)
		}
	})
}
