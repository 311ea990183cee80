// Package services talks to setlist.fm and Spotify.
//
// # Fetcher
//
// [Fetcher] is the only way setlist.fm is reached. It waits out HTTP 429 responses for the
// server's Retry-After, backs off exponentially (2, 4, 8 units) on transport failures, and
// never retries a 404. Sleeping goes through a [SleepFunc] so tests can record waits.
//
// # setlist.fm
//
// [SetlistFMService] implements [SetlistSource]:
//   - Resolve: artist search, first exact name match, MBID plus the slug from the profile URL
//   - ArtistSetlists: one page of /artist/{mbid}/setlists, optionally filtered by year
//   - SearchSetlists: one page of /search/setlists by artist name
//
// [StatsPageScraper] implements [PageExtractor] against the public average-setlist statistics
// page, see [StatsPageURL].
//
// # Spotify
//
// [SpotifyService] implements [OAuthService] on github.com/zmb3/spotify/v2. Tokens refresh
// automatically, and [SpotifyService.SetTokenRefreshCallback] lets the caller persist them.
//
// # Error Handling
//
// Services use sentinel errors from the shared package:
//   - [shared.ErrMissingCredentials] : no API key or client credentials configured
//   - [shared.ErrNotFound] : 404, or no exact artist match
//   - [shared.ErrRateLimited], [shared.ErrNetwork] : retries exhausted
//   - [shared.ErrEmpty] : statistics page has no song list
//   - [shared.ErrNotAuthenticated] : Authenticate() not called, or Spotify rejected the token
//   - [shared.ErrTrackNotFound] : Spotify search returned nothing
package services
