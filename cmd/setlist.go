package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/setlistify/internal/formatter"
	"github.com/desertthunder/setlistify/internal/services"
	"github.com/desertthunder/setlistify/internal/shared"
	"github.com/desertthunder/setlistify/internal/tasks"
	"github.com/desertthunder/setlistify/internal/ui"
	"github.com/urfave/cli/v3"
)

// SetlistAverage ranks songs from the artist's setlists on the setlist.fm API.
func (r *Runner) SetlistAverage(ctx context.Context, cmd *cli.Command) error {
	return r.setlist(ctx, cmd, tasks.SourceAPI)
}

// SetlistScrape reads the setlist.fm statistics page for the artist.
func (r *Runner) SetlistScrape(ctx context.Context, cmd *cli.Command) error {
	return r.setlist(ctx, cmd, tasks.SourcePage)
}

func (r *Runner) setlist(ctx context.Context, cmd *cli.Command, source tasks.Source) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if err := r.config.Validate("setlistfm"); err != nil {
		return err
	}

	req, err := r.setlistRequest(ctx, cmd, source)
	if err != nil {
		return err
	}

	r.logger.Info("building setlist", "artist", req.Artist, "year", req.Year, "source", source)

	engine := r.engine()
	quiet := format != formatter.Text
	result, err := withProgress(r, quiet, func(progress chan<- tasks.ProgressUpdate) (*tasks.SetlistResult, error) {
		return engine.Setlist(ctx, req, progress)
	})
	if err != nil {
		return err
	}

	outputPath := cmd.String("output")
	if outputPath != "" || cmd.Bool("save") {
		path, err := formatter.WriteSetlist(result, format, outputPath)
		if err != nil {
			return err
		}
		r.writePlain("✓ Setlist saved to %s\n", path)
		return nil
	}

	out, err := formatter.Render(result, format)
	if err != nil {
		return err
	}
	if !quiet {
		r.writePlain("\n")
	}
	r.writePlain("%s", out)
	return nil
}

// ArtistResolve prints the MusicBrainz ID and slug for an artist name.
func (r *Runner) ArtistResolve(ctx context.Context, cmd *cli.Command) error {
	name := strings.TrimSpace(cmd.StringArg("name"))
	if name == "" {
		return fmt.Errorf("%w: artist name", shared.ErrMissingArgument)
	}
	if err := r.config.Validate("setlistfm"); err != nil {
		return err
	}

	id, err := r.engine().Resolve(ctx, name, nil)
	if err != nil {
		return err
	}
	statsURL := services.StatsPageURL(r.config.Credentials.SetlistFM.SiteURL, name, id.Slug, cmd.Int("year"))

	if cmd.Bool("json") {
		return r.writeJSON(map[string]string{
			"name":      name,
			"mbid":      id.ID,
			"slug":      id.Slug,
			"stats_url": statsURL,
		}, true)
	}

	r.writePlain("%s\n", ui.Styles.Title(name))
	r.writePlain("MBID:  %s\n", id.ID)
	r.writePlain("Slug:  %s\n", id.Slug)
	r.writePlain("Stats: %s\n", statsURL)
	return nil
}
