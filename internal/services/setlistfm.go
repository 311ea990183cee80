// setlist.fm REST API client
//
// API reference: https://api.setlist.fm/docs/1.0/index.html
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/setlistify/internal/models"
	"github.com/desertthunder/setlistify/internal/shared"
)

const (
	setlistFMBaseURL = "https://api.setlist.fm/rest/1.0"
	userAgent        = "setlistify/0.1 (+https://github.com/desertthunder/setlistify)"
)

// SetlistFMService wraps the setlist.fm endpoints used to resolve artists and page through setlists.
type SetlistFMService struct {
	apiKey  string
	baseURL string
	fetcher *Fetcher
	logger  *log.Logger
}

// NewSetlistFMService creates a client for the configured API key and base URL.
// The key is checked lazily so that a missing credential is reported before the first request.
func NewSetlistFMService(cfg shared.SetlistFMConfig, fetcher *Fetcher, logger *log.Logger) *SetlistFMService {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = setlistFMBaseURL
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if fetcher == nil {
		fetcher = NewFetcher(FetcherOpts{Logger: logger})
	}
	return &SetlistFMService{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		fetcher: fetcher,
		logger:  shared.WithLogger(logger, "service", "setlistfm"),
	}
}

func (s *SetlistFMService) Name() string {
	return "setlist.fm"
}

func (s *SetlistFMService) header() (http.Header, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("%w: setlist.fm API key is not configured", shared.ErrMissingCredentials)
	}
	h := http.Header{}
	h.Set("x-api-key", s.apiKey)
	h.Set("Accept", "application/json")
	h.Set("User-Agent", userAgent)
	return h, nil
}

func (s *SetlistFMService) getJSON(ctx context.Context, endpoint string, params url.Values, result any) error {
	h, err := s.header()
	if err != nil {
		return err
	}

	reqURL := s.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	resp, err := s.fetcher.Get(ctx, reqURL, h)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(resp.Body, result); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", endpoint, err)
	}
	return nil
}

// SearchArtists returns the artist candidates setlist.fm knows for name.
// setlist.fm answers 404 when nothing matches, which is reported as [shared.ErrNotFound].
func (s *SetlistFMService) SearchArtists(ctx context.Context, name string) ([]models.Artist, error) {
	params := url.Values{
		"artistName": {name},
		"sort":       {"relevance"},
	}

	var resp models.ArtistSearchResponse
	if err := s.getJSON(ctx, "/search/artists", params, &resp); err != nil {
		return nil, err
	}
	return resp.Artist, nil
}

// Resolve maps a performer name to its MBID and setlist.fm slug.
//
// Only the first candidate whose name matches exactly is considered; any failure past that point
// is [shared.ErrNotFound] and no partial identity is returned.
func (s *SetlistFMService) Resolve(ctx context.Context, name string) (*models.ArtistIdentity, error) {
	if _, err := s.header(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: artist name is empty", shared.ErrInvalidArgument)
	}

	s.logger.Info("resolving artist", "name", name)

	candidates, err := s.SearchArtists(ctx, name)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%w: no artist named %q on setlist.fm", shared.ErrNotFound, name)
		}
		return nil, err
	}

	for _, c := range candidates {
		if c.Name != name {
			continue
		}

		slug, err := ExtractSlug(c.URL)
		if err != nil || c.MBID == "" || slug == "" {
			return nil, fmt.Errorf("%w: artist %q has no usable MBID or profile URL (%q)", shared.ErrNotFound, name, c.URL)
		}

		s.logger.Info("artist resolved", "mbid", c.MBID, "slug", slug)
		return &models.ArtistIdentity{ID: c.MBID, Slug: slug}, nil
	}

	return nil, fmt.Errorf("%w: none of %d candidates is named exactly %q", shared.ErrNotFound, len(candidates), name)
}

// ExtractSlug pulls the short code out of a setlist.fm profile URL,
// e.g. ".../setlists/interpol-2bd6982e.html" yields "2bd6982e".
func ExtractSlug(profileURL string) (string, error) {
	u, err := url.Parse(profileURL)
	if err != nil {
		return "", fmt.Errorf("invalid profile URL: %w", err)
	}
	if !strings.Contains(u.Path, "/setlists/") {
		return "", fmt.Errorf("not a setlist.fm profile URL: %q", profileURL)
	}

	segment := u.Path[strings.LastIndex(u.Path, "/")+1:]
	segment, _, _ = strings.Cut(segment, ".")
	if i := strings.LastIndex(segment, "-"); i >= 0 {
		segment = segment[i+1:]
	}
	if segment == "" {
		return "", fmt.Errorf("no slug in profile URL: %q", profileURL)
	}
	return segment, nil
}

// ArtistSetlists fetches one page of the artist's setlists, optionally restricted to year.
// A year of zero means no filter.
func (s *SetlistFMService) ArtistSetlists(ctx context.Context, mbid string, year, page int) (*models.SetlistPage, error) {
	params := url.Values{"p": {strconv.Itoa(page)}}
	if year > 0 {
		params.Set("year", strconv.Itoa(year))
	}

	var resp models.SetlistPage
	if err := s.getJSON(ctx, "/artist/"+url.PathEscape(mbid)+"/setlists", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SearchSetlists fetches one page of setlists matched by artist name.
func (s *SetlistFMService) SearchSetlists(ctx context.Context, artistName string, year, page int) (*models.SetlistPage, error) {
	params := url.Values{
		"artistName": {artistName},
		"p":          {strconv.Itoa(page)},
	}
	if year > 0 {
		params.Set("year", strconv.Itoa(year))
	}

	var resp models.SetlistPage
	if err := s.getJSON(ctx, "/search/setlists", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
