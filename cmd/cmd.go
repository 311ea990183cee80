// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setlistFlags are shared by every command that builds a setlist.
func setlistFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "artist",
			Aliases: []string{"a"},
			Usage:   "Artist name (prompted for when omitted)",
		},
		&cli.IntFlag{
			Name:    "year",
			Aliases: []string{"y"},
			Usage:   "Only count setlists from this year (0 for all years)",
		},
		&cli.IntFlag{
			Name:  "top",
			Usage: "Number of songs to keep (default from config)",
		},
		&cli.BoolFlag{
			Name:  "all",
			Usage: "Keep every song instead of the top N",
		},
		&cli.IntFlag{
			Name:  "max-pages",
			Usage: "Maximum setlist pages to fetch (default from config)",
		},
	}
}

// generateCommand runs the whole pipeline and creates a Spotify playlist.
func generateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "generate",
		Aliases: []string{"gen"},
		Usage:   "Build an artist's average setlist and turn it into a Spotify playlist",
		Flags: append(setlistFlags(),
			&cli.StringFlag{
				Name:  "source",
				Usage: "Where the setlist comes from: api, page or auto",
				Value: "auto",
			},
			&cli.StringFlag{
				Name:  "name",
				Usage: "Playlist name (default \"<Artist> - Average Setlist <year>\")",
			},
			&cli.BoolFlag{
				Name:  "public",
				Usage: "Make the playlist public",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Search tracks but do not create a playlist",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		),
		Action: r.Generate,
	}
}

// setlistCommand builds average setlists without touching Spotify.
func setlistCommand(r *Runner) *cli.Command {
	outputFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: text, json, markdown or csv",
			Value:   "text",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write the setlist to a file instead of stdout",
		},
		&cli.BoolFlag{
			Name:  "save",
			Usage: "Write the setlist to <artist>_<year>_setlist.<ext>",
		},
	}

	return &cli.Command{
		Name:  "setlist",
		Usage: "Average setlist operations",
		Commands: []*cli.Command{
			{
				Name:   "average",
				Usage:  "Page through setlist.fm and rank songs by play count",
				Flags:  append(setlistFlags(), outputFlags...),
				Action: r.SetlistAverage,
			},
			{
				Name:   "scrape",
				Usage:  "Read the setlist.fm average setlist statistics page",
				Flags:  append(setlistFlags(), outputFlags...),
				Action: r.SetlistScrape,
			},
		},
	}
}

// artistCommand handles artist lookups
func artistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "artist",
		Usage: "Artist lookups",
		Commands: []*cli.Command{
			{
				Name:  "resolve",
				Usage: "Print an artist's MusicBrainz ID, slug and statistics page URL",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "name",
					},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "year",
						Aliases: []string{"y"},
						Usage:   "Year for the statistics page URL",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.ArtistResolve,
			},
		},
	}
}

// spotifyCommand handles Spotify operations
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify authorization",
		Commands: []*cli.Command{
			{
				Name:   "auth",
				Usage:  "Authenticate with Spotify using OAuth2",
				Action: r.SpotifyAuth,
			},
			{
				Name:   "status",
				Usage:  "Show the Spotify account the stored token belongs to",
				Action: r.SpotifyStatus,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored Spotify token",
				Action: r.SpotifyLogout,
			},
		},
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config file from the bundled template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}
