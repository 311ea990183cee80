package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/setlistify/internal/models"
	"github.com/desertthunder/setlistify/internal/repositories"
	"github.com/desertthunder/setlistify/internal/services"
	"github.com/desertthunder/setlistify/internal/shared"
	"github.com/desertthunder/setlistify/internal/tasks"
	"github.com/desertthunder/setlistify/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// tokenStore persists playlist-service tokens between runs.
type tokenStore interface {
	Get(provider string) (*models.OAuthToken, error)
	SaveToken(provider string, token *oauth2.Token) error
	Delete(provider string) error
}

var _ tokenStore = (*repositories.TokenRepository)(nil)

// promptFunc asks the user for an artist and year.
type promptFunc func(ctx context.Context, defaults ui.PromptValues) (ui.PromptValues, error)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	configPath  string
	loadConfig  bool
	lookupEnv   func(string) (string, bool)
	setlists    services.SetlistSource
	extractor   services.PageExtractor
	spotify     services.OAuthService
	tokens      tokenStore
	db          *sql.DB
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	prompt      promptFunc
	openBrowser func(string) error
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Nil services are built from the configuration in [Runner.Bootstrap].
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	LookupEnv   func(string) (string, bool)
	Setlists    services.SetlistSource
	Extractor   services.PageExtractor
	Spotify     services.OAuthService
	Tokens      tokenStore
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
	Prompt      promptFunc
	OpenBrowser func(string) error
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Prompt == nil {
		opts.Prompt = func(ctx context.Context, defaults ui.PromptValues) (ui.PromptValues, error) {
			return ui.Prompt(ctx, defaults)
		}
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}
	loadConfig := opts.Config == nil
	if loadConfig {
		opts.Config = shared.DefaultConfig()
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		loadConfig:  loadConfig,
		lookupEnv:   opts.LookupEnv,
		setlists:    opts.Setlists,
		extractor:   opts.Extractor,
		spotify:     opts.Spotify,
		tokens:      opts.Tokens,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		prompt:      opts.Prompt,
		openBrowser: opts.OpenBrowser,
	}
}

// Bootstrap loads the configuration named by --config (unless one was passed to [NewRunner]), applies environment overrides
// and log settings, then builds any service the runner was not given.
func (r *Runner) Bootstrap(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if r.loadConfig {
		config, err := readConfig(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
	}
	if r.lookupEnv != nil {
		r.config.ApplyEnv(r.lookupEnv)
	}

	level := r.config.Log.Level
	if cmd.IsSet("log-level") {
		level = cmd.String("log-level")
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(level))
	if r.config.Log.File != "" {
		r.logger.SetOutput(shared.NewLogWriter(r.config.Log))
	}

	r.wire()
	return ctx, nil
}

// readConfig reads path if it exists and falls back to the embedded defaults otherwise.
func readConfig(path string) (*shared.Config, error) {
	if path == "" {
		return shared.DefaultConfig(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return shared.DefaultConfig(), nil
	}
	config, err := shared.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrInvalidConfig, path, err)
	}
	return config, nil
}

// wire builds the setlist.fm and Spotify services from the configuration.
// Spotify is left nil when its credentials are missing; commands that need it say so.
func (r *Runner) wire() {
	cfg := r.config

	if r.setlists == nil || r.extractor == nil {
		client := &http.Client{Timeout: cfg.Setlist.Timeout(), Transport: r.httpClient.Transport}
		fetcher := services.NewFetcher(services.FetcherOpts{
			Client:     client,
			MaxRetries: cfg.Setlist.MaxRetries,
			Logger:     r.logger,
		})
		if r.setlists == nil {
			r.setlists = services.NewSetlistFMService(cfg.Credentials.SetlistFM, fetcher, r.logger)
		}
		if r.extractor == nil {
			r.extractor = services.NewStatsPageScraper(fetcher, r.logger)
		}
	}

	if r.spotify == nil {
		svc, err := services.NewSpotifyService(cfg.Credentials.Spotify, services.SpotifyOpts{Logger: r.logger})
		if err != nil {
			r.logger.Debug("spotify service not configured", "error", err)
		} else {
			r.spotify = svc
		}
	}
}

// store opens the database on first use and builds the token repository over it.
func (r *Runner) store() error {
	if r.tokens != nil {
		return nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	r.db = db
	r.tokens = repositories.NewTokenRepository(db)
	return nil
}

// Close releases the database, if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// engine builds a [tasks.PlaylistEngine] over the runner's services.
func (r *Runner) engine() *tasks.PlaylistEngine {
	opts := tasks.EngineOpts{
		Setlists:      r.setlists,
		Extractor:     r.extractor,
		SiteURL:       r.config.Credentials.SetlistFM.SiteURL,
		CourtesyDelay: r.config.Setlist.CourtesyDelay(),
		Logger:        r.logger,
	}
	if r.spotify != nil {
		opts.Playlists = r.spotify
	}
	return tasks.NewPlaylistEngine(opts)
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		generateCommand, setlistCommand, artistCommand, spotifyCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
