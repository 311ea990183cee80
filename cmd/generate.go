package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/desertthunder/setlistify/internal/formatter"
	"github.com/desertthunder/setlistify/internal/shared"
	"github.com/desertthunder/setlistify/internal/tasks"
	"github.com/desertthunder/setlistify/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// setlistRequest builds a request from the shared setlist flags, prompting for the
// artist and year when --artist is omitted.
func (r *Runner) setlistRequest(ctx context.Context, cmd *cli.Command, source tasks.Source) (tasks.SetlistRequest, error) {
	req := tasks.SetlistRequest{
		Artist:   strings.TrimSpace(cmd.String("artist")),
		Year:     cmd.Int("year"),
		Source:   source,
		MaxPages: r.config.Setlist.MaxPages,
		TopN:     r.config.Setlist.TopN,
	}

	if req.Year < 0 {
		return req, fmt.Errorf("%w: --year must not be negative", shared.ErrInvalidArgument)
	}
	if n := cmd.Int("max-pages"); n > 0 {
		req.MaxPages = n
	}
	switch n := cmd.Int("top"); {
	case cmd.Bool("all"):
		req.TopN = tasks.Unbounded
	case n > 0:
		req.TopN = n
	case n < 0:
		return req, fmt.Errorf("%w: --top must be positive", shared.ErrInvalidArgument)
	}

	if req.Artist == "" {
		values, err := r.prompt(ctx, ui.PromptValues{Year: req.Year})
		if err != nil {
			return req, err
		}
		req.Artist = values.Artist
		req.Year = values.Year
	}

	return req, nil
}

// reportProgress writes progress messages until the channel is closed.
func (r *Runner) reportProgress(progress <-chan tasks.ProgressUpdate, wg *sync.WaitGroup) {
	defer wg.Done()
	for update := range progress {
		if update.Message == "" {
			continue
		}
		if update.Total > 0 {
			r.writePlain("→ [%d/%d] %s\n", update.Step, update.Total, update.Message)
		} else {
			r.writePlain("→ %s\n", update.Message)
		}
	}
}

// withProgress runs fn with a progress channel whose updates are printed as they arrive.
// Updates are suppressed when quiet is set.
func withProgress[T any](r *Runner, quiet bool, fn func(chan<- tasks.ProgressUpdate) (T, error)) (T, error) {
	if quiet {
		return fn(nil)
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go r.reportProgress(progress, &wg)

	result, err := fn(progress)
	close(progress)
	wg.Wait()
	return result, err
}

// authenticateSpotify installs the stored Spotify token and keeps it current on refresh.
func (r *Runner) authenticateSpotify(ctx context.Context) error {
	if err := r.config.Validate("spotify"); err != nil {
		return err
	}
	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}
	if err := r.store(); err != nil {
		return err
	}

	stored, err := r.tokens.Get(spotifyProvider)
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("%w: no Spotify token stored", shared.ErrNotAuthenticated)
	} else if err != nil {
		return fmt.Errorf("failed to load Spotify token: %w", err)
	}

	if refresher, ok := r.spotify.(tokenRefresher); ok {
		refresher.SetTokenRefreshCallback(func(tok *oauth2.Token) {
			if err := r.tokens.SaveToken(spotifyProvider, tok); err != nil {
				r.logger.Warn("failed to save refreshed token", "error", err)
			} else {
				r.logger.Debug("refreshed token saved", "expiry", tok.Expiry)
			}
		})
	}

	if err := r.spotify.Authenticate(ctx, stored.Token); err != nil {
		return fmt.Errorf("failed to authenticate with Spotify: %w", err)
	}
	return nil
}

// Generate builds the average setlist, searches Spotify for every song and creates the playlist.
func (r *Runner) Generate(ctx context.Context, cmd *cli.Command) error {
	source, err := tasks.ParseSource(cmd.String("source"))
	if err != nil {
		return err
	}
	if err := r.config.Validate("setlistfm", "spotify"); err != nil {
		return err
	}

	req, err := r.setlistRequest(ctx, cmd, source)
	if err != nil {
		return err
	}

	if err := r.authenticateSpotify(ctx); err != nil {
		return err
	}

	opts := tasks.GenerateOpts{
		Name:   cmd.String("name"),
		Public: cmd.Bool("public"),
		DryRun: cmd.Bool("dry-run"),
	}
	useJSON := cmd.Bool("json")

	r.logger.Info("generating playlist", "artist", req.Artist, "year", req.Year, "source", req.Source)

	engine := r.engine()
	result, err := withProgress(r, useJSON, func(progress chan<- tasks.ProgressUpdate) (*tasks.GenerateResult, error) {
		return engine.Generate(ctx, req, opts, progress)
	})
	if err != nil {
		if missing := missingSongs(result); len(missing) > 0 {
			r.writePlainln("Songs with no match on Spotify:")
			for _, song := range missing {
				r.writePlain("  ✗ %s\n", song)
			}
		}
		return err
	}

	if useJSON {
		return r.writeJSON(result, true)
	}

	out, err := formatter.GenerateToText(result)
	if err != nil {
		return err
	}
	r.writePlainln("Average setlist source: %s (%s)", result.Setlist.Source, result.Setlist.StatsURL)
	r.writePlain("%s", out)

	if result.Playlist != nil {
		r.writePlainln("%s", ui.Styles.OK("✓ Playlist created: "+result.Playlist.URL))
	}
	return nil
}

func missingSongs(result *tasks.GenerateResult) []string {
	if result == nil {
		return nil
	}
	return result.MissingSongs()
}
