package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/setlistify/internal/models"
	"github.com/desertthunder/setlistify/internal/services"
	"github.com/desertthunder/setlistify/internal/shared"
	"golang.org/x/time/rate"
)

const (
	DefaultMaxPages      = 5
	DefaultTopN          = 15
	DefaultCourtesyDelay = 500 * time.Millisecond
)

// AggregateOpts controls a single aggregation run.
type AggregateOpts struct {
	Year     int // 0 means any year
	MaxPages int // default 5
	TopN     int // default 15, [Unbounded] keeps every song
}

// Unbounded is a TopN that keeps every distinct song.
const Unbounded = -1

func (o AggregateOpts) withDefaults() AggregateOpts {
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	if o.TopN == 0 {
		o.TopN = DefaultTopN
	}
	return o
}

// listing fetches one page of whichever setlist listing the probe settled on.
type listing struct {
	name  string
	fetch func(ctx context.Context, page int) (*models.SetlistPage, error)
}

// Aggregator pages through an artist's setlists and ranks songs by how often they were played.
//
// Pages are fetched one at a time, paced by a limiter that allows one page per courtesy delay.
type Aggregator struct {
	source  services.SetlistSource
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewAggregator creates an Aggregator over source. A courtesy delay of zero disables pacing.
func NewAggregator(source services.SetlistSource, courtesyDelay time.Duration, logger *log.Logger) *Aggregator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	limit := rate.Inf
	if courtesyDelay > 0 {
		limit = rate.Every(courtesyDelay)
	}

	return &Aggregator{
		source:  source,
		limiter: rate.NewLimiter(limit, 1),
		logger:  shared.WithLogger(logger, "task", "aggregate"),
	}
}

// Aggregate builds the average setlist for the artist identified by id.
//
// The name is only used for the name-search fallback. Errors:
//   - [shared.ErrNoData] when no listing answers the probe
//   - [shared.ErrNoSongs] when the listings were read but held no named songs
//   - the page error itself when the walk failed before any song was gathered
func (a *Aggregator) Aggregate(
	ctx context.Context,
	name string,
	id *models.ArtistIdentity,
	opts AggregateOpts,
	progress chan<- ProgressUpdate,
) (models.RankedSetlist, error) {
	if a.source == nil {
		return nil, fmt.Errorf("%w: setlist source not initialized", shared.ErrServiceUnavailable)
	}
	if id == nil || id.ID == "" {
		return nil, fmt.Errorf("%w: artist identity is required", shared.ErrMissingArgument)
	}
	opts = opts.withDefaults()

	list, first, err := a.probe(ctx, name, id, opts.Year, progress)
	if err != nil {
		return nil, err
	}

	table, walkErr := a.walk(ctx, list, first, opts.MaxPages, progress)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	if table.Len() == 0 {
		if walkErr != nil {
			return nil, walkErr
		}
		return nil, shared.ErrNoSongs
	}

	ranked := table.Rank(opts.TopN)
	a.logger.Info("setlist ranked", "distinct", table.Len(), "kept", len(ranked))
	sendProgress(progress, rankedUpdate(ranked, table.Len()))
	return ranked, nil
}

// probe settles on the listing to walk: the artist's setlists for the year, then for any year,
// then a search by name. A successful probe response is returned so page 1 is not fetched twice.
//
// A 404 moves on to the next listing, and so does an exhausted retry budget on the
// unfiltered retry. Any other probe failure is logged and the walk proceeds on the current
// listing, which will hit (and report) the same failure.
func (a *Aggregator) probe(
	ctx context.Context,
	name string,
	id *models.ArtistIdentity,
	year int,
	progress chan<- ProgressUpdate,
) (listing, *models.SetlistPage, error) {
	byArtist := func(year int) listing {
		return listing{
			name: fmt.Sprintf("artist %s (year %d)", id.ID, year),
			fetch: func(ctx context.Context, page int) (*models.SetlistPage, error) {
				return a.source.ArtistSetlists(ctx, id.ID, year, page)
			},
		}
	}

	list := byArtist(year)
	first, err := list.fetch(ctx, 1)
	unreachable := errors.Is(err, shared.ErrNotFound)

	if unreachable && year > 0 {
		a.logger.Warn("no setlists for year, retrying without year filter", "year", year)
		sendProgress(progress, probeUpdate(fmt.Sprintf("No setlists in %d, trying all years...", year)))

		list = byArtist(0)
		first, err = list.fetch(ctx, 1)
		unreachable = errors.Is(err, shared.ErrNotFound) || services.IsRetryExhausted(err)
	}

	if unreachable {
		a.logger.Warn("no setlists by MBID, falling back to name search", "name", name)
		sendProgress(progress, probeUpdate("No setlists by MBID, searching by name..."))

		list = listing{
			name: fmt.Sprintf("search %q", name),
			fetch: func(ctx context.Context, page int) (*models.SetlistPage, error) {
				return a.source.SearchSetlists(ctx, name, 0, page)
			},
		}
		first, err = list.fetch(ctx, 1)
		if err != nil {
			return listing{}, nil, fmt.Errorf("%w: name search for %q: %w", shared.ErrNoData, name, err)
		}
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return listing{}, nil, ctxErr
		}
		a.logger.Warn("probe failed, continuing to page walk", "listing", list.name, "error", err)
		return list, nil, nil
	}

	a.logger.Debug("probe succeeded", "listing", list.name)
	return list, first, nil
}

// walk fetches pages 1..min(totalPages, maxPages), tallying every record's songs.
// A failing page stops the walk; the songs gathered so far are kept and the error returned.
func (a *Aggregator) walk(
	ctx context.Context,
	list listing,
	first *models.SetlistPage,
	maxPages int,
	progress chan<- ProgressUpdate,
) (*models.SongFrequencyTable, error) {
	table := models.NewSongFrequencyTable()
	totalPages := 1

	for page := 1; page <= totalPages && page <= maxPages; page++ {
		if err := a.limiter.Wait(ctx); err != nil {
			return table, err
		}

		var err error
		resp := first
		if page > 1 || first == nil {
			resp, err = list.fetch(ctx, page)
		}

		if err != nil {
			a.logger.Error("page failed, stopping", "listing", list.name, "page", page, "error", err)
			sendProgress(progress, pageFailedUpdate(page, err))
			return table, err
		}

		for _, record := range resp.Records() {
			table.Add(record.Songs()...)
		}

		if n := resp.TotalPages(); n > 0 {
			totalPages = n
		}

		sendProgress(progress, fetchPageUpdate(page, min(totalPages, maxPages)))
		a.logger.Debug("page fetched", "page", page, "records", len(resp.Records()), "total_pages", totalPages)
	}

	return table, nil
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
