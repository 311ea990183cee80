package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Track is a playlist-service match for a setlist song.
type Track struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album,omitempty"`
	URI    string `json:"uri,omitempty"`
}

// Playlist is a playlist created on the playlist service.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Public      bool   `json:"public"`
	TrackCount  int    `json:"track_count"`
}

// TrackMatch pairs a setlist song with the track found for it, if any.
type TrackMatch struct {
	Song  string `json:"song"`
	Track *Track `json:"track,omitempty"`
}

// Found reports whether a track was matched.
func (m TrackMatch) Found() bool { return m.Track != nil }

// PlaylistName builds "<Artist> - Average Setlist <year>", using the current year when year is zero.
func PlaylistName(artist string, year int) string {
	if year <= 0 {
		year = time.Now().Year()
	}
	return fmt.Sprintf("%s - Average Setlist %s", strings.TrimSpace(artist), strconv.Itoa(year))
}

// PlaylistDescription describes a generated playlist.
func PlaylistDescription(artist string, year int, songs int) string {
	if year <= 0 {
		return fmt.Sprintf("The %d most played songs of %s, aggregated from setlist.fm", songs, artist)
	}
	return fmt.Sprintf("The %d most played songs of %s in %d, aggregated from setlist.fm", songs, artist, year)
}
