package tasks

import (
	"fmt"

	"github.com/desertthunder/setlistify/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ResolveArtist Phase = iota
	ProbeListing
	FetchPages
	RankSongs
	ScrapePage
	SearchTracks
	CreatePlaylist
	AddTracks
)

func (p Phase) String() string {
	switch p {
	case ResolveArtist:
		return "resolve_artist"
	case ProbeListing:
		return "probe_listing"
	case FetchPages:
		return "fetch_pages"
	case RankSongs:
		return "rank_songs"
	case ScrapePage:
		return "scrape_page"
	case SearchTracks:
		return "search_tracks"
	case CreatePlaylist:
		return "create_playlist"
	case AddTracks:
		return "add_tracks"
	default:
		return ""
	}
}

func resolvingArtistUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveArtist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Resolving %s on setlist.fm...", name),
	}
}

func resolvedArtistUpdate(id *models.ArtistIdentity) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveArtist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found artist (MBID: %s, code: %s)", id.ID, id.Slug),
		Data:    id,
	}
}

func probeUpdate(message string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ProbeListing,
		Step:    1,
		Total:   1,
		Message: message,
	}
}

func fetchPageUpdate(page, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPages,
		Step:    page,
		Total:   total,
		Message: fmt.Sprintf("Fetching setlists (page %d of %d)...", page, total),
	}
}

func pageFailedUpdate(page int, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPages,
		Step:    page,
		Total:   page,
		Message: fmt.Sprintf("Page %d failed, keeping what was gathered: %v", page, err),
	}
}

func rankedUpdate(songs models.RankedSetlist, distinct int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RankSongs,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Ranked %d of %d distinct songs", len(songs), distinct),
		Data:    songs,
	}
}

func scrapePageUpdate(url string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScrapePage,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Reading statistics page %s", url),
		Data:    url,
	}
}

func searchTracksUpdate(step, total int, song string, tr *models.Track) ProgressUpdate {
	if tr == nil {
		return ProgressUpdate{
			Phase:   SearchTracks,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✗ %s (not found)", step, total, song),
		}
	}
	return ProgressUpdate{
		Phase:   SearchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s - %s", step, total, tr.Artist, tr.Title),
		Data:    tr,
	}
}

func creatingPlaylistUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Creating playlist %q...", name),
	}
}

func createPlaylistUpdate(pl *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", pl.Name, pl.ID),
		Data:    pl,
	}
}

func addTracksUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Added %d tracks", count),
	}
}
