package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/setlistify/internal/shared"
	"golang.org/x/oauth2"
)

var testSpotifyConfig = shared.SpotifyConfig{
	ClientID:     "test_client_id",
	ClientSecret: "test_client_secret",
}

// fakeSpotify serves the handful of Web API endpoints the service uses.
type fakeSpotify struct {
	tracks   map[string]string // title -> track id
	added    [][]string
	searches []string
	status   int
}

func (f *fakeSpotify) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 {
		w.WriteHeader(f.status)
		fmt.Fprintf(w, `{"error":{"status":%d,"message":"forced"}}`, f.status)
		return
	}

	switch {
	case r.URL.Path == "/token":
		fmt.Fprint(w, `{"access_token":"exchanged","token_type":"Bearer","refresh_token":"refresh","expires_in":3600}`)
	case r.URL.Path == "/v1/me":
		fmt.Fprint(w, `{"id":"user-1","display_name":"Tester"}`)
	case r.URL.Path == "/v1/search":
		q := r.URL.Query().Get("q")
		f.searches = append(f.searches, q)
		for title, id := range f.tracks {
			if strings.Contains(q, "track:"+title) {
				fmt.Fprintf(w, `{"tracks":{"items":[{"id":%q,"name":%q,"uri":"spotify:track:%s","artists":[{"name":"Interpol"}],"album":{"name":"Antics"}}],"total":1}}`, id, title, id)
				return
			}
		}
		fmt.Fprint(w, `{"tracks":{"items":[],"total":0}}`)
	case r.URL.Path == "/v1/users/user-1/playlists" && r.Method == http.MethodPost:
		var body struct {
			Name   string `json:"name"`
			Public bool   `json:"public"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"id":"pl-1","name":%q,"public":%t,"external_urls":{"spotify":"https://open.spotify.com/playlist/pl-1"}}`, body.Name, body.Public)
	case r.URL.Path == "/v1/playlists/pl-1/tracks" && r.Method == http.MethodPost:
		var body struct {
			URIs []string `json:"uris"`
		}
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &body)
		f.added = append(f.added, body.URIs)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"snapshot_id":"snap"}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"status":404,"message":"no route"}}`)
	}
}

func newTestSpotify(t *testing.T, fake *fakeSpotify) *SpotifyService {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	srv, err := NewSpotifyService(testSpotifyConfig, SpotifyOpts{
		APIBaseURL: server.URL + "/v1/",
		Endpoint:   &oauth2.Endpoint{AuthURL: server.URL + "/authorize", TokenURL: server.URL + "/token"},
		HTTPClient: server.Client(),
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return srv
}

func TestSpotifyService(t *testing.T) {
	ctx := context.Background()

	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			srv, err := NewSpotifyService(testSpotifyConfig, SpotifyOpts{})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.config.ClientID != "test_client_id" {
				t.Errorf("unexpected client id %s", srv.config.ClientID)
			}
			if srv.Name() != "Spotify" {
				t.Errorf("unexpected name %s", srv.Name())
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyService(shared.SpotifyConfig{ClientSecret: "s"}, SpotifyOpts{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewSpotifyService(shared.SpotifyConfig{ClientID: "c"}, SpotifyOpts{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Default Redirect URI", func(t *testing.T) {
			srv, _ := NewSpotifyService(testSpotifyConfig, SpotifyOpts{})
			if srv.config.RedirectURL != defaultRedirectURI {
				t.Errorf("expected %s, got %s", defaultRedirectURI, srv.config.RedirectURL)
			}
		})
	})

	t.Run("AuthURL", func(t *testing.T) {
		srv, _ := NewSpotifyService(testSpotifyConfig, SpotifyOpts{})
		authURL := srv.AuthURL("state-123")

		for _, want := range []string{"accounts.spotify.com/authorize", "state=state-123", "client_id=test_client_id", "playlist-modify-private"} {
			if !strings.Contains(authURL, want) {
				t.Errorf("expected auth URL to contain %q, got %s", want, authURL)
			}
		}
	})

	t.Run("Authenticate", func(t *testing.T) {
		t.Run("Missing Token", func(t *testing.T) {
			srv, _ := NewSpotifyService(testSpotifyConfig, SpotifyOpts{})
			if err := srv.Authenticate(ctx, nil); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
			if err := srv.Authenticate(ctx, &oauth2.Token{}); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("Calls Before Authenticate Fail", func(t *testing.T) {
			srv, _ := NewSpotifyService(testSpotifyConfig, SpotifyOpts{})
			if _, err := srv.SearchTrack(ctx, "Evil", "Interpol"); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
			if _, err := srv.Token(); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("With Access Token", func(t *testing.T) {
			srv := newTestSpotify(t, &fakeSpotify{})
			if err := srv.Authenticate(ctx, &oauth2.Token{AccessToken: "abc"}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			tok, err := srv.Token()
			if err != nil || tok.AccessToken != "abc" {
				t.Errorf("expected token abc, got %v (%v)", tok, err)
			}
		})
	})

	t.Run("Exchange", func(t *testing.T) {
		t.Run("Success", func(t *testing.T) {
			srv := newTestSpotify(t, &fakeSpotify{})
			tok, err := srv.Exchange(ctx, "code")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if tok.AccessToken != "exchanged" || tok.RefreshToken != "refresh" {
				t.Errorf("unexpected token %+v", tok)
			}
			if srv.client == nil {
				t.Error("expected client to be built after exchange")
			}
		})

		t.Run("Empty Code", func(t *testing.T) {
			srv := newTestSpotify(t, &fakeSpotify{})
			if _, err := srv.Exchange(ctx, ""); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})

		t.Run("Rejected Code", func(t *testing.T) {
			srv := newTestSpotify(t, &fakeSpotify{status: http.StatusBadRequest})
			if _, err := srv.Exchange(ctx, "bad"); !errors.Is(err, shared.ErrAuthFailed) {
				t.Errorf("expected ErrAuthFailed, got %v", err)
			}
		})
	})

	t.Run("SearchTrack", func(t *testing.T) {
		t.Run("Found", func(t *testing.T) {
			fake := &fakeSpotify{tracks: map[string]string{"Evil": "t-evil"}}
			srv := newTestSpotify(t, fake)
			srv.Authenticate(ctx, &oauth2.Token{AccessToken: "abc"})

			track, err := srv.SearchTrack(ctx, "Evil", "Interpol")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if track.ID != "t-evil" || track.Artist != "Interpol" || track.Album != "Antics" {
				t.Errorf("unexpected track %+v", track)
			}
			if len(fake.searches) != 1 || fake.searches[0] != "track:Evil artist:Interpol" {
				t.Errorf("unexpected query %v", fake.searches)
			}
		})

		t.Run("Not Found", func(t *testing.T) {
			srv := newTestSpotify(t, &fakeSpotify{})
			srv.Authenticate(ctx, &oauth2.Token{AccessToken: "abc"})

			if _, err := srv.SearchTrack(ctx, "Missing", "Interpol"); !errors.Is(err, shared.ErrTrackNotFound) {
				t.Errorf("expected ErrTrackNotFound, got %v", err)
			}
		})

		t.Run("Unauthorized", func(t *testing.T) {
			srv := newTestSpotify(t, &fakeSpotify{status: http.StatusUnauthorized})
			srv.Authenticate(ctx, &oauth2.Token{AccessToken: "expired"})

			if _, err := srv.SearchTrack(ctx, "Evil", "Interpol"); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})
	})

	t.Run("CreatePlaylist", func(t *testing.T) {
		srv := newTestSpotify(t, &fakeSpotify{})
		srv.Authenticate(ctx, &oauth2.Token{AccessToken: "abc"})

		p, err := srv.CreatePlaylist(ctx, "Interpol - Average Setlist 2023", "desc", true)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if p.ID != "pl-1" || p.Name != "Interpol - Average Setlist 2023" {
			t.Errorf("unexpected playlist %+v", p)
		}
		if p.URL != "https://open.spotify.com/playlist/pl-1" {
			t.Errorf("unexpected URL %s", p.URL)
		}
	})

	t.Run("AddTracks Batches By 100", func(t *testing.T) {
		fake := &fakeSpotify{}
		srv := newTestSpotify(t, fake)
		srv.Authenticate(ctx, &oauth2.Token{AccessToken: "abc"})

		ids := make([]string, 250)
		for i := range ids {
			ids[i] = fmt.Sprintf("t%d", i)
		}

		if err := srv.AddTracks(ctx, "pl-1", ids); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(fake.added) != 3 {
			t.Fatalf("expected 3 batches, got %d", len(fake.added))
		}
		for i, want := range []int{100, 100, 50} {
			if len(fake.added[i]) != want {
				t.Errorf("batch %d: expected %d tracks, got %d", i, want, len(fake.added[i]))
			}
		}
		if fake.added[0][0] != "spotify:track:t0" {
			t.Errorf("expected track URIs, got %s", fake.added[0][0])
		}
	})

	t.Run("SetTokenRefreshCallback", func(t *testing.T) {
		srv, err := NewSpotifyService(testSpotifyConfig, SpotifyOpts{})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		t.Run("sets callback successfully", func(t *testing.T) {
			srv.SetTokenRefreshCallback(func(token *oauth2.Token) {})
			if srv.onTokenRefresh == nil {
				t.Error("expected callback to be set")
			}
		})

		t.Run("can set nil callback", func(t *testing.T) {
			srv.SetTokenRefreshCallback(nil)
			if srv.onTokenRefresh != nil {
				t.Error("expected callback to be nil")
			}
		})

		t.Run("refreshed token reaches callback", func(t *testing.T) {
			srv := newTestSpotify(t, &fakeSpotify{})
			var refreshed *oauth2.Token
			srv.SetTokenRefreshCallback(func(token *oauth2.Token) { refreshed = token })

			// an expired token with a refresh token forces a refresh on first use
			expired := &oauth2.Token{AccessToken: "old", RefreshToken: "refresh", Expiry: time.Now().Add(-time.Hour)}
			if err := srv.Authenticate(ctx, expired); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			tok, err := srv.Token()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if tok.AccessToken != "exchanged" {
				t.Errorf("expected refreshed token, got %s", tok.AccessToken)
			}
			if refreshed == nil || refreshed.AccessToken != "exchanged" {
				t.Errorf("expected callback with refreshed token, got %v", refreshed)
			}
		})
	})

	t.Run("refreshableTokenSource", func(t *testing.T) {
		t.Run("calls callback on first token fetch", func(t *testing.T) {
			var captured *oauth2.Token
			source := &refreshableTokenSource{
				source:   &mockTokenSource{token: &oauth2.Token{AccessToken: "test_token"}},
				callback: func(token *oauth2.Token) { captured = token },
			}

			token, err := source.Token()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if captured == nil || captured.AccessToken != "test_token" {
				t.Errorf("expected captured token, got %v", captured)
			}
			if token.AccessToken != "test_token" {
				t.Errorf("expected returned token to be 'test_token', got %s", token.AccessToken)
			}
		})

		t.Run("calls callback only when token changes", func(t *testing.T) {
			callCount := 0
			mockSource := &mockTokenSource{token: &oauth2.Token{AccessToken: "token1"}}
			source := &refreshableTokenSource{
				source:   mockSource,
				callback: func(token *oauth2.Token) { callCount++ },
			}

			source.Token()
			source.Token()
			if callCount != 1 {
				t.Errorf("expected callback called once, got %d", callCount)
			}

			mockSource.token = &oauth2.Token{AccessToken: "token2"}
			source.Token()
			if callCount != 2 {
				t.Errorf("expected callback called twice, got %d", callCount)
			}
		})

		t.Run("handles nil callback gracefully", func(t *testing.T) {
			source := &refreshableTokenSource{source: &mockTokenSource{token: &oauth2.Token{AccessToken: "t"}}}
			if _, err := source.Token(); err != nil {
				t.Fatalf("expected no error with nil callback, got %v", err)
			}
		})

		t.Run("propagates source errors", func(t *testing.T) {
			source := &refreshableTokenSource{
				source: &mockTokenSource{err: errors.New("token source error")},
				callback: func(token *oauth2.Token) {
					t.Error("callback should not be called on error")
				},
			}

			token, err := source.Token()
			if err == nil || !strings.Contains(err.Error(), "token source error") {
				t.Errorf("expected source error, got %v", err)
			}
			if token != nil {
				t.Error("expected nil token on error")
			}
		})

		t.Run("contains callback panic", func(t *testing.T) {
			source := &refreshableTokenSource{
				source:   &mockTokenSource{token: &oauth2.Token{AccessToken: "t"}},
				callback: func(token *oauth2.Token) { panic("callback panic") },
			}

			token, err := source.Token()
			if err != nil || token == nil {
				t.Errorf("expected token despite panicking callback, got %v (%v)", token, err)
			}
		})
	})
}

// mockTokenSource implements [oauth2.TokenSource] for testing
type mockTokenSource struct {
	token *oauth2.Token
	err   error
}

func (m *mockTokenSource) Token() (*oauth2.Token, error) {
	return m.token, m.err
}
