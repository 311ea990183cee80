// Package models defines the domain entities shared by the setlist pipeline and its persistence layer.
//
// The package contains two categories of types:
//
// 1. Setlist data: decoded setlist.fm payloads and the values derived from them
//   - [Artist] : An artist search candidate with its MBID and profile URL
//   - [ArtistIdentity] : The resolved (MBID, slug) pair used by later stages
//   - [SetlistPage] : One page of a paginated setlist listing
//   - [SetlistRecord] : A single concert with its sets and songs
//   - [SongFrequencyTable] : Song tally in first-seen order
//   - [RankedSetlist] : Songs sorted by how often they were played
//
// 2. Persistent entities implementing [Model]
//   - [OAuthToken] : A playlist-service token kept between runs so the user only authorizes once
//
// Upstream fields that may arrive as either a single object or a list are typed as [OneOrMany] and normalized at decode time.
package models
