// Package tasks turns a performer name into an average setlist and a playlist, with real-time progress reporting.
//
// # Aggregation
//
// [Aggregator.Aggregate] runs three stages against a [services.SetlistSource]:
//
//  1. Probe: page 1 of the artist's setlists for the year. A 404 retries without the year,
//     a second 404 (or exhausted retries) falls back to a search by name, and a failing
//     fallback is [shared.ErrNoData]. Other probe failures do not stop the run.
//  2. Page walk: pages 1..min(total pages, max pages), one at a time, paced by a rate limiter.
//     A failing page stops the walk but keeps the songs already gathered. When nothing was
//     gathered the page error is returned.
//  3. Tally and rank: a stable sort by play count, truncated to the top N.
//     No songs at all is [shared.ErrNoSongs].
//
// # Pipeline
//
// [PlaylistEngine] wires the stages together:
//
//  1. [PlaylistEngine.Resolve] : artist name to MBID and slug
//  2. [PlaylistEngine.Setlist] : average setlist from the API ([SourceAPI]), the statistics
//     page ([SourcePage]), or the API with the page as fallback ([SourceAuto])
//  3. [PlaylistEngine.SearchTracks] : one search per song, qualified by artist
//  4. [PlaylistEngine.Generate] : all of the above, then playlist creation
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
