// Package repositories implements SQLite persistence for credentials kept between runs.
//
// Key Implementations:
//   - [TokenRepository] : Playlist-service OAuth tokens, one row per provider, upserted on every refresh
//
// Missing rows are reported as [shared.ErrNotFound] so callers can tell "never authorized" from a database failure.
package repositories
