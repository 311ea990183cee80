package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// OneOrMany decodes a JSON value that may be a single object or a list of objects.
//
// Both shapes decode to the same slice; null decodes to an empty slice.
type OneOrMany[T any] []T

func (o *OneOrMany[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*o = nil
	case data[0] == '[':
		var many []T
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		*o = many
	default:
		var one T
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*o = OneOrMany[T]{one}
	}
	return nil
}

// Artist is a candidate returned by the setlist.fm artist search.
type Artist struct {
	MBID           string `json:"mbid"`
	Name           string `json:"name"`
	SortName       string `json:"sortName"`
	Disambiguation string `json:"disambiguation"`
	URL            string `json:"url"`
}

// ArtistSearchResponse is the payload of /search/artists.
type ArtistSearchResponse struct {
	Artist       OneOrMany[Artist] `json:"artist"`
	Total        int               `json:"total"`
	Page         int               `json:"page"`
	ItemsPerPage int               `json:"itemsPerPage"`
}

// ArtistIdentity is a resolved performer: the stable MBID plus the slug used in setlist.fm page URLs.
type ArtistIdentity struct {
	ID   string `json:"mbid"`
	Slug string `json:"slug"`
}

// Song is one song entry within a set. Name may be absent for tape or encore markers.
type Song struct {
	Name string `json:"name"`
	Info string `json:"info,omitempty"`
	Tape bool   `json:"tape,omitempty"`
}

// Set is one set of a concert (main set, encore...).
type Set struct {
	Name   string          `json:"name,omitempty"`
	Encore int             `json:"encore,omitempty"`
	Song   OneOrMany[Song] `json:"song"`
}

// Sets is the container of sets on a setlist record.
type Sets struct {
	Set OneOrMany[Set] `json:"set"`
}

// UnmarshalJSON tolerates upstream values that are not objects (for example an empty string) as no sets.
func (s *Sets) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		*s = Sets{}
		return nil
	}
	type plain Sets
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Sets(p)
	return nil
}

// SetlistRecord is one historical performance.
type SetlistRecord struct {
	ID        string `json:"id"`
	EventDate string `json:"eventDate"`
	URL       string `json:"url"`
	Sets      Sets   `json:"sets"`
}

// Songs flattens every named song of every set, in order, with surrounding whitespace trimmed.
func (r SetlistRecord) Songs() []string {
	var songs []string
	for _, set := range r.Sets.Set {
		for _, song := range set.Song {
			if name := strings.TrimSpace(song.Name); name != "" {
				songs = append(songs, name)
			}
		}
	}
	return songs
}

// SetlistPage is one page of /artist/{mbid}/setlists or /search/setlists.
type SetlistPage struct {
	Type         string                   `json:"type"`
	ItemsPerPage int                      `json:"itemsPerPage"`
	Page         int                      `json:"page"`
	Total        int                      `json:"total"`
	Setlist      OneOrMany[SetlistRecord] `json:"setlist"`
	Setlists     SetlistBlock             `json:"setlists"`
}

// SetlistBlock is the "setlists" field, which is sometimes a wrapper object holding a
// "setlist" field of its own instead of the records themselves.
type SetlistBlock struct {
	OneOrMany[SetlistRecord]
}

func (b *SetlistBlock) UnmarshalJSON(data []byte) error {
	var wrapper struct {
		Setlist *OneOrMany[SetlistRecord] `json:"setlist"`
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &wrapper); err == nil && wrapper.Setlist != nil {
			b.OneOrMany = *wrapper.Setlist
			return nil
		}
	}
	return b.OneOrMany.UnmarshalJSON(data)
}

// Records returns the page's setlists, whichever key they were sent under.
func (p SetlistPage) Records() []SetlistRecord {
	if len(p.Setlist) > 0 {
		return p.Setlist
	}
	return p.Setlists.OneOrMany
}

// TotalPages is ceil(total / itemsPerPage), or 0 when the page does not declare both.
func (p SetlistPage) TotalPages() int {
	if p.Total <= 0 || p.ItemsPerPage <= 0 {
		return 0
	}
	return (p.Total + p.ItemsPerPage - 1) / p.ItemsPerPage
}
