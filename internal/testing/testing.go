// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/setlistify/internal/models"
	"github.com/desertthunder/setlistify/internal/shared"
	"golang.org/x/oauth2"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// Reply is one scripted answer of a [SequenceRoundTripper]. A non-nil Err simulates a transport failure.
type Reply struct {
	Status int
	Header http.Header
	Body   string
	Err    error
}

// SequenceRoundTripper answers requests with its replies in order, repeating the last one,
// and records every request URL.
type SequenceRoundTripper struct {
	mu       sync.Mutex
	replies  []Reply
	Requests []string
}

func NewSequenceRoundTripper(replies ...Reply) *SequenceRoundTripper {
	return &SequenceRoundTripper{replies: replies}
}

func (s *SequenceRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := min(len(s.Requests), len(s.replies)-1)
	s.Requests = append(s.Requests, req.URL.String())

	reply := s.replies[i]
	if reply.Err != nil {
		return nil, reply.Err
	}

	header := reply.Header
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: reply.Status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(reply.Body)),
		Request:    req,
	}, nil
}

// Calls returns the number of requests seen so far.
func (s *SequenceRoundTripper) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Requests)
}

// SleepRecorder records requested waits without sleeping.
type SleepRecorder struct {
	mu    sync.Mutex
	Waits []time.Duration
}

func (s *SleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.Waits = append(s.Waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// MockSetlistSource is a test double for services.SetlistSource.
//
// Pages maps "mbid:year" (or "search:year" for name searches) to pages in order; missing
// pages answer with [shared.ErrNotFound] unless PageErrs has an entry for them.
type MockSetlistSource struct {
	mu         sync.Mutex
	Identity   *models.ArtistIdentity
	ResolveErr error
	Pages      map[string][]*models.SetlistPage
	PageErrs   map[string]error // keyed "mbid:year:page"
	Calls      []string
}

func (m *MockSetlistSource) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

func (m *MockSetlistSource) Resolve(ctx context.Context, name string) (*models.ArtistIdentity, error) {
	m.record("resolve:" + name)
	if m.ResolveErr != nil {
		return nil, m.ResolveErr
	}
	return m.Identity, nil
}

func (m *MockSetlistSource) ArtistSetlists(ctx context.Context, mbid string, year, page int) (*models.SetlistPage, error) {
	return m.page(mbid, year, page)
}

func (m *MockSetlistSource) SearchSetlists(ctx context.Context, artistName string, year, page int) (*models.SetlistPage, error) {
	return m.page("search", year, page)
}

func (m *MockSetlistSource) page(key string, year, page int) (*models.SetlistPage, error) {
	call := PageKey(key, year, page)
	m.record(call)
	if err, ok := m.PageErrs[call]; ok {
		return nil, err
	}
	pages := m.Pages[PageKey(key, year, 0)]
	if page < 1 || page > len(pages) {
		return nil, shared.ErrNotFound
	}
	return pages[page-1], nil
}

// PageKey formats a [MockSetlistSource] key. A page of zero leaves the page out.
func PageKey(key string, year, page int) string {
	s := key + ":" + strconv.Itoa(year)
	if page > 0 {
		s += ":" + strconv.Itoa(page)
	}
	return s
}

// MockExtractor is a test double for services.PageExtractor.
type MockExtractor struct {
	Titles []string
	Err    error
	URLs   []string
}

func (m *MockExtractor) Extract(ctx context.Context, pageURL string) ([]string, error) {
	m.URLs = append(m.URLs, pageURL)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Titles, nil
}

// MockPlaylistService is a test double for services.PlaylistService.
//
// Tracks maps song titles to matches; songs not in the map are reported as not found.
type MockPlaylistService struct {
	Tracks    map[string]*models.Track
	CreateErr error
	AddErr    error
	Created   []*models.Playlist
	Added     map[string][]string
	Token     *oauth2.Token
}

func (m *MockPlaylistService) Authenticate(ctx context.Context, token *oauth2.Token) error {
	m.Token = token
	return nil
}

func (m *MockPlaylistService) SearchTrack(ctx context.Context, title, artist string) (*models.Track, error) {
	if t, ok := m.Tracks[title]; ok {
		return t, nil
	}
	return nil, shared.ErrTrackNotFound
}

func (m *MockPlaylistService) CreatePlaylist(ctx context.Context, name, description string, public bool) (*models.Playlist, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	p := &models.Playlist{
		ID:          "playlist-" + strconv.Itoa(len(m.Created)+1),
		Name:        name,
		Description: description,
		URL:         "https://open.spotify.com/playlist/test",
		Public:      public,
	}
	m.Created = append(m.Created, p)
	return p, nil
}

func (m *MockPlaylistService) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if m.AddErr != nil {
		return m.AddErr
	}
	if m.Added == nil {
		m.Added = make(map[string][]string)
	}
	m.Added[playlistID] = append(m.Added[playlistID], trackIDs...)
	return nil
}

func (m *MockPlaylistService) Name() string { return "mock" }

// MockOAuthService is a test double for services.OAuthService.
//
// Exchange hands out ExchangeToken for any code; Refreshed is passed to the refresh callback
// when Authenticate is called with an expired token.
type MockOAuthService struct {
	MockPlaylistService
	ExchangeToken *oauth2.Token
	ExchangeErr   error
	Refreshed     *oauth2.Token
	UserID        string
	UserName      string
	onRefresh     func(*oauth2.Token)
}

func (m *MockOAuthService) AuthURL(state string) string {
	return "https://accounts.example.com/authorize?state=" + state
}

func (m *MockOAuthService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if m.ExchangeErr != nil {
		return nil, m.ExchangeErr
	}
	return m.ExchangeToken, nil
}

func (m *MockOAuthService) Authenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil {
		return shared.ErrNotAuthenticated
	}
	m.MockPlaylistService.Token = token
	if m.Refreshed != nil && m.onRefresh != nil && !token.Expiry.IsZero() && token.Expiry.Before(time.Now()) {
		m.MockPlaylistService.Token = m.Refreshed
		m.onRefresh(m.Refreshed)
	}
	return nil
}

func (m *MockOAuthService) Token() (*oauth2.Token, error) {
	if m.MockPlaylistService.Token == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return m.MockPlaylistService.Token, nil
}

func (m *MockOAuthService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	m.onRefresh = fn
}

func (m *MockOAuthService) CurrentUser(ctx context.Context) (id, displayName string, err error) {
	if m.MockPlaylistService.Token == nil {
		return "", "", shared.ErrNotAuthenticated
	}
	return m.UserID, m.UserName, nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
