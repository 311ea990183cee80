package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/setlistify/internal/models"
	"github.com/desertthunder/setlistify/internal/services"
	"github.com/desertthunder/setlistify/internal/shared"
	"golang.org/x/time/rate"
)

// Source selects where the average setlist comes from.
type Source string

const (
	SourceAPI  Source = "api"  // page through setlists and rank them
	SourcePage Source = "page" // read the statistics page
	SourceAuto Source = "auto" // API first, statistics page when the API yields nothing
)

// ParseSource validates a source name. An empty name is [SourceAuto].
func ParseSource(s string) (Source, error) {
	switch src := Source(strings.ToLower(strings.TrimSpace(s))); src {
	case "":
		return SourceAuto, nil
	case SourceAPI, SourcePage, SourceAuto:
		return src, nil
	default:
		return "", fmt.Errorf("%w: unknown source %q (want api, page or auto)", shared.ErrInvalidArgument, s)
	}
}

// SetlistRequest describes the setlist to build.
type SetlistRequest struct {
	Artist   string
	Year     int
	Source   Source
	MaxPages int
	TopN     int
}

// SetlistResult is an average setlist together with where it came from.
type SetlistResult struct {
	Artist   string                 `json:"artist"`
	Year     int                    `json:"year,omitempty"`
	Identity *models.ArtistIdentity `json:"identity"`
	Source   Source                 `json:"source"`
	StatsURL string                 `json:"stats_url"`
	Songs    models.RankedSetlist   `json:"songs"`
}

// GenerateOpts configures the playlist built by [PlaylistEngine.Generate].
type GenerateOpts struct {
	Name        string // defaults to [models.PlaylistName]
	Description string
	Public      bool
	DryRun      bool // search tracks but create nothing
}

// GenerateResult contains all data from a full pipeline run.
type GenerateResult struct {
	Setlist  *SetlistResult      `json:"setlist"`
	Matches  []models.TrackMatch `json:"matches"`
	Playlist *models.Playlist    `json:"playlist,omitempty"`
	Found    int                 `json:"found"`
	Missing  int                 `json:"missing"`
}

// MissingSongs lists the songs no track was found for.
func (r *GenerateResult) MissingSongs() []string {
	var missing []string
	for _, m := range r.Matches {
		if !m.Found() {
			missing = append(missing, m.Song)
		}
	}
	return missing
}

// EngineOpts holds the dependencies of a [PlaylistEngine]. Playlists may be nil for
// engines that only build setlists.
type EngineOpts struct {
	Setlists      services.SetlistSource
	Extractor     services.PageExtractor
	Playlists     services.PlaylistService
	SiteURL       string
	CourtesyDelay time.Duration
	SearchRate    rate.Limit // Spotify searches per second, default 10
	Logger        *log.Logger
}

// PlaylistEngine runs the pipeline stages in order, halting at the first failure.
type PlaylistEngine struct {
	setlists   services.SetlistSource
	extractor  services.PageExtractor
	playlists  services.PlaylistService
	aggregator *Aggregator
	siteURL    string
	search     *rate.Limiter
	logger     *log.Logger
}

// NewPlaylistEngine creates a new PlaylistEngine with the provided services.
func NewPlaylistEngine(opts EngineOpts) *PlaylistEngine {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.SearchRate <= 0 {
		opts.SearchRate = 10
	}

	return &PlaylistEngine{
		setlists:   opts.Setlists,
		extractor:  opts.Extractor,
		playlists:  opts.Playlists,
		aggregator: NewAggregator(opts.Setlists, opts.CourtesyDelay, opts.Logger),
		siteURL:    opts.SiteURL,
		search:     rate.NewLimiter(opts.SearchRate, 1),
		logger:     shared.WithLogger(opts.Logger, "task", "engine"),
	}
}

// Resolve maps an artist name to its setlist.fm identity.
func (e *PlaylistEngine) Resolve(ctx context.Context, name string, progress chan<- ProgressUpdate) (*models.ArtistIdentity, error) {
	if e.setlists == nil {
		return nil, fmt.Errorf("%w: setlist.fm service not initialized", shared.ErrServiceUnavailable)
	}

	sendProgress(progress, resolvingArtistUpdate(name))
	id, err := e.setlists.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	sendProgress(progress, resolvedArtistUpdate(id))
	return id, nil
}

// Setlist resolves the artist and builds the average setlist from the requested source.
//
// With [SourceAuto] the API path runs first; only [shared.ErrNoData] and [shared.ErrNoSongs]
// move on to the statistics page, any other failure is returned as is.
func (e *PlaylistEngine) Setlist(ctx context.Context, req SetlistRequest, progress chan<- ProgressUpdate) (*SetlistResult, error) {
	req.Artist = strings.TrimSpace(req.Artist)
	if req.Artist == "" {
		return nil, fmt.Errorf("%w: artist", shared.ErrMissingArgument)
	}
	if req.Source == "" {
		req.Source = SourceAuto
	}

	id, err := e.Resolve(ctx, req.Artist, progress)
	if err != nil {
		return nil, err
	}

	result := &SetlistResult{
		Artist:   req.Artist,
		Year:     req.Year,
		Identity: id,
		Source:   req.Source,
		StatsURL: services.StatsPageURL(e.siteURL, req.Artist, id.Slug, req.Year),
	}

	switch req.Source {
	case SourceAPI:
		result.Songs, err = e.average(ctx, req, id, progress)
	case SourcePage:
		result.Songs, err = e.scrape(ctx, req, result.StatsURL, progress)
	case SourceAuto:
		result.Source = SourceAPI
		result.Songs, err = e.average(ctx, req, id, progress)
		if errors.Is(err, shared.ErrNoData) || errors.Is(err, shared.ErrNoSongs) {
			e.logger.Warn("API aggregation yielded nothing, reading statistics page", "error", err)
			result.Source = SourcePage
			result.Songs, err = e.scrape(ctx, req, result.StatsURL, progress)
		}
	default:
		return nil, fmt.Errorf("%w: unknown source %q", shared.ErrInvalidArgument, req.Source)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *PlaylistEngine) average(ctx context.Context, req SetlistRequest, id *models.ArtistIdentity, progress chan<- ProgressUpdate) (models.RankedSetlist, error) {
	return e.aggregator.Aggregate(ctx, req.Artist, id, AggregateOpts{
		Year:     req.Year,
		MaxPages: req.MaxPages,
		TopN:     req.TopN,
	}, progress)
}

// scrape reads the statistics page. The page is already ranked, so counts are left at zero.
func (e *PlaylistEngine) scrape(ctx context.Context, req SetlistRequest, pageURL string, progress chan<- ProgressUpdate) (models.RankedSetlist, error) {
	if e.extractor == nil {
		return nil, fmt.Errorf("%w: page extractor not initialized", shared.ErrServiceUnavailable)
	}

	sendProgress(progress, scrapePageUpdate(pageURL))
	titles, err := e.extractor.Extract(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	songs := make(models.RankedSetlist, 0, len(titles))
	for _, title := range titles {
		songs = append(songs, models.SongCount{Title: title})
	}
	if req.TopN > 0 && req.TopN < len(songs) {
		songs = songs[:req.TopN]
	}
	return songs, nil
}

// SearchTracks looks up every song on the playlist service, qualified by artist.
// Songs that are not found are kept in the result with a nil track.
func (e *PlaylistEngine) SearchTracks(ctx context.Context, artist string, songs []string, progress chan<- ProgressUpdate) ([]models.TrackMatch, error) {
	if e.playlists == nil {
		return nil, fmt.Errorf("%w: playlist service not initialized", shared.ErrServiceUnavailable)
	}

	matches := make([]models.TrackMatch, len(songs))
	for i, song := range songs {
		if err := e.search.Wait(ctx); err != nil {
			return nil, err
		}

		track, err := e.playlists.SearchTrack(ctx, song, artist)
		switch {
		case err == nil:
		case errors.Is(err, shared.ErrTrackNotFound):
			e.logger.Warn("track not found", "song", song)
		default:
			return nil, fmt.Errorf("failed to search %q: %w", song, err)
		}

		matches[i] = models.TrackMatch{Song: song, Track: track}
		sendProgress(progress, searchTracksUpdate(i+1, len(songs), song, track))
	}
	return matches, nil
}

// Generate runs the full pipeline: setlist, track search, playlist creation.
// Nothing is created when the setlist fails or no track matches.
func (e *PlaylistEngine) Generate(ctx context.Context, req SetlistRequest, opts GenerateOpts, progress chan<- ProgressUpdate) (*GenerateResult, error) {
	if e.playlists == nil {
		return nil, fmt.Errorf("%w: playlist service not initialized", shared.ErrServiceUnavailable)
	}

	setlist, err := e.Setlist(ctx, req, progress)
	if err != nil {
		return nil, err
	}

	result := &GenerateResult{Setlist: setlist}

	result.Matches, err = e.SearchTracks(ctx, setlist.Artist, setlist.Songs.Titles(), progress)
	if err != nil {
		return result, err
	}

	trackIDs := make([]string, 0, len(result.Matches))
	for _, m := range result.Matches {
		if m.Found() {
			trackIDs = append(trackIDs, m.Track.ID)
		}
	}
	result.Found = len(trackIDs)
	result.Missing = len(result.Matches) - result.Found

	if result.Found == 0 {
		return result, fmt.Errorf("%w: none of %d songs matched on %s", shared.ErrTrackNotFound, len(result.Matches), e.playlists.Name())
	}
	if opts.DryRun {
		return result, nil
	}

	name := opts.Name
	if name == "" {
		name = models.PlaylistName(setlist.Artist, setlist.Year)
	}
	description := opts.Description
	if description == "" {
		description = models.PlaylistDescription(setlist.Artist, setlist.Year, result.Found)
	}

	sendProgress(progress, creatingPlaylistUpdate(name))
	playlist, err := e.playlists.CreatePlaylist(ctx, name, description, opts.Public)
	if err != nil {
		return result, fmt.Errorf("%w: failed to create playlist: %w", shared.ErrAPIRequest, err)
	}

	if err := e.playlists.AddTracks(ctx, playlist.ID, trackIDs); err != nil {
		return result, fmt.Errorf("%w: failed to add tracks: %w", shared.ErrAPIRequest, err)
	}
	playlist.TrackCount = len(trackIDs)
	result.Playlist = playlist

	sendProgress(progress, createPlaylistUpdate(playlist))
	sendProgress(progress, addTracksUpdate(len(trackIDs)))
	return result, nil
}
