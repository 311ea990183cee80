// package services defines the interfaces the playlist engine needs from setlist.fm and the
// playlist provider, and implements them over HTTP.
package services

import (
	"context"

	"github.com/desertthunder/setlistify/internal/models"
	"golang.org/x/oauth2"
)

// SetlistSource resolves artists and pages through their setlists.
type SetlistSource interface {
	// Resolve maps a performer name to its setlist.fm identity.
	Resolve(ctx context.Context, name string) (*models.ArtistIdentity, error)

	// ArtistSetlists fetches one page of setlists for the artist's MBID. A year of zero means no filter.
	ArtistSetlists(ctx context.Context, mbid string, year, page int) (*models.SetlistPage, error)

	// SearchSetlists fetches one page of setlists matched by artist name.
	SearchSetlists(ctx context.Context, artistName string, year, page int) (*models.SetlistPage, error)
}

// PageExtractor reads a pre-aggregated song list from a rendered page.
type PageExtractor interface {
	Extract(ctx context.Context, pageURL string) ([]string, error)
}

// PlaylistService is a music provider that playlists can be built on.
type PlaylistService interface {
	// Authenticate installs a token obtained earlier (or from [OAuthService.Exchange]).
	Authenticate(ctx context.Context, token *oauth2.Token) error

	// SearchTrack searches for a track by title and artist.
	// Returns the best match or an error if no match is found.
	SearchTrack(ctx context.Context, title, artist string) (*models.Track, error)

	// CreatePlaylist creates an empty playlist for the authenticated user.
	CreatePlaylist(ctx context.Context, name, description string, public bool) (*models.Playlist, error)

	// AddTracks appends tracks to an existing playlist.
	AddTracks(ctx context.Context, playlistID string, trackIDs []string) error

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// OAuthService extends [PlaylistService] with the authorization code flow.
type OAuthService interface {
	PlaylistService
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Token() (*oauth2.Token, error)
}

var (
	_ SetlistSource = (*SetlistFMService)(nil)
	_ PageExtractor = (*StatsPageScraper)(nil)
	_ OAuthService  = (*SpotifyService)(nil)
)
