// Spotify Web API implementation of [PlaylistService]
//
// Requests go through github.com/zmb3/spotify/v2; authorization uses [oauth2] against the
// Spotify accounts service.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/setlistify/internal/models"
	"github.com/desertthunder/setlistify/internal/shared"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

const (
	defaultRedirectURI = "http://127.0.0.1:3000/callback"
	maxTracksPerAdd    = 100
)

// SpotifyOpts are optional overrides, mostly for tests.
type SpotifyOpts struct {
	APIBaseURL string // must end in "/"
	Endpoint   *oauth2.Endpoint
	HTTPClient *http.Client // used for token exchange and refresh
	Logger     *log.Logger
}

// SpotifyService implements [PlaylistService] for the Spotify Web API.
type SpotifyService struct {
	config         *oauth2.Config
	opts           SpotifyOpts
	client         *spotify.Client
	source         oauth2.TokenSource
	onTokenRefresh func(*oauth2.Token)
	logger         *log.Logger
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(cfg shared.SpotifyConfig, opts SpotifyOpts) (*SpotifyService, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: missing Spotify client_id", shared.ErrMissingCredentials)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing Spotify client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := cfg.RedirectURI
	if redirectURI == "" {
		redirectURI = defaultRedirectURI
	}

	endpoint := oauth2.Endpoint{AuthURL: spotifyauth.AuthURL, TokenURL: spotifyauth.TokenURL}
	if opts.Endpoint != nil {
		endpoint = *opts.Endpoint
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &SpotifyService{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  redirectURI,
			Scopes: []string{
				spotifyauth.ScopeUserReadPrivate,
				spotifyauth.ScopePlaylistModifyPublic,
				spotifyauth.ScopePlaylistModifyPrivate,
			},
			Endpoint: endpoint,
		},
		opts:   opts,
		logger: shared.WithLogger(opts.Logger, "service", "spotify"),
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (s *SpotifyService) oauthContext(ctx context.Context) context.Context {
	if s.opts.HTTPClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, s.opts.HTTPClient)
	}
	return ctx
}

// Exchange trades an authorization code for a token and authenticates the service with it.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code is empty", shared.ErrInvalidArgument)
	}

	token, err := s.config.Exchange(s.oauthContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}

	if err := s.Authenticate(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// Authenticate builds the API client around token. Expired tokens are refreshed on use, and
// the refresh callback (if any) is told about every new token.
func (s *SpotifyService) Authenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || (token.AccessToken == "" && token.RefreshToken == "") {
		return fmt.Errorf("%w: missing access or refresh token", shared.ErrNotAuthenticated)
	}

	s.source = &refreshableTokenSource{
		source:   s.config.TokenSource(s.oauthContext(ctx), token),
		callback: s.onTokenRefresh,
		last:     token.AccessToken,
	}

	httpClient := oauth2.NewClient(s.oauthContext(ctx), s.source)

	options := []spotify.ClientOption{spotify.WithRetry(true)}
	if s.opts.APIBaseURL != "" {
		options = append(options, spotify.WithBaseURL(s.opts.APIBaseURL))
	}
	s.client = spotify.New(httpClient, options...)
	return nil
}

// SetTokenRefreshCallback registers fn to receive refreshed tokens so they can be persisted.
// It applies to clients built by later calls to [SpotifyService.Authenticate].
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.onTokenRefresh = fn
}

// Token returns the current (possibly refreshed) token.
func (s *SpotifyService) Token() (*oauth2.Token, error) {
	if s.source == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return s.source.Token()
}

func (s *SpotifyService) api() (*spotify.Client, error) {
	if s.client == nil {
		return nil, fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}
	return s.client, nil
}

// CurrentUser returns the Spotify user ID and display name of the authenticated account.
func (s *SpotifyService) CurrentUser(ctx context.Context) (id, displayName string, err error) {
	client, err := s.api()
	if err != nil {
		return "", "", err
	}

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return "", "", wrapSpotifyError("current user", err)
	}
	return user.ID, user.DisplayName, nil
}

// SearchTrack returns the best match for title by artist.
// It returns [shared.ErrTrackNotFound] when Spotify has no result.
func (s *SpotifyService) SearchTrack(ctx context.Context, title, artist string) (*models.Track, error) {
	client, err := s.api()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("track:%s", strings.TrimSpace(title))
	if artist = strings.TrimSpace(artist); artist != "" {
		query += fmt.Sprintf(" artist:%s", artist)
	}

	results, err := client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(1))
	if err != nil {
		return nil, wrapSpotifyError("search", err)
	}
	if results.Tracks == nil || len(results.Tracks.Tracks) == 0 {
		return nil, fmt.Errorf("%w: %q by %q", shared.ErrTrackNotFound, title, artist)
	}

	return toTrack(results.Tracks.Tracks[0]), nil
}

// CreatePlaylist creates an empty playlist owned by the authenticated user.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, name, description string, public bool) (*models.Playlist, error) {
	client, err := s.api()
	if err != nil {
		return nil, err
	}

	userID, _, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	p, err := client.CreatePlaylistForUser(ctx, userID, name, description, public, false)
	if err != nil {
		return nil, wrapSpotifyError("create playlist", err)
	}

	s.logger.Info("playlist created", "id", p.ID, "name", p.Name)
	return &models.Playlist{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		URL:         p.ExternalURLs["spotify"],
		Public:      p.IsPublic,
	}, nil
}

// AddTracks appends trackIDs to the playlist in batches of at most 100.
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	client, err := s.api()
	if err != nil {
		return err
	}

	for start := 0; start < len(trackIDs); start += maxTracksPerAdd {
		end := min(start+maxTracksPerAdd, len(trackIDs))

		batch := make([]spotify.ID, 0, end-start)
		for _, id := range trackIDs[start:end] {
			batch = append(batch, spotify.ID(id))
		}

		if _, err := client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), batch...); err != nil {
			return wrapSpotifyError("add tracks", err)
		}
		s.logger.Debug("tracks added", "playlist", playlistID, "count", len(batch))
	}
	return nil
}

func toTrack(t spotify.FullTrack) *models.Track {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}
	return &models.Track{
		ID:     t.ID.String(),
		Title:  t.Name,
		Artist: strings.Join(artists, ", "),
		Album:  t.Album.Name,
		URI:    string(t.URI),
	}
}

func wrapSpotifyError(op string, err error) error {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: spotify %s: %s", shared.ErrNotAuthenticated, op, apiErr.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: spotify %s: %s", shared.ErrNotFound, op, apiErr.Message)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: spotify %s: %s", shared.ErrRateLimited, op, apiErr.Message)
		}
	}
	return fmt.Errorf("%w: spotify %s: %v", shared.ErrAPIRequest, op, err)
}

// refreshableTokenSource reports every new access token to callback.
type refreshableTokenSource struct {
	mu       sync.Mutex
	source   oauth2.TokenSource
	callback func(*oauth2.Token)
	last     string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	r.mu.Unlock()

	if changed && r.callback != nil {
		r.notify(token)
	}
	return token, nil
}

func (r *refreshableTokenSource) notify(token *oauth2.Token) {
	defer func() {
		_ = recover()
	}()
	r.callback(token)
}
