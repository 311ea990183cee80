// package formatter renders average setlists and playlist results as text, JSON, Markdown or CSV
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/setlistify/internal/shared"
	"github.com/desertthunder/setlistify/internal/tasks"
)

// Format is an output format name.
type Format string

const (
	Text     Format = "text"
	JSON     Format = "json"
	Markdown Format = "markdown"
	CSV      Format = "csv"
)

// ParseFormat validates a format name. An empty name is [Text]; "md" is accepted for [Markdown].
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return Text, nil
	case "md":
		return Markdown, nil
	case Text, JSON, Markdown, CSV:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want text, json, markdown or csv)", shared.ErrInvalidArgument, s)
	}
}

// Extension returns the file extension used by [WriteSetlist].
func (f Format) Extension() string {
	switch f {
	case JSON:
		return "json"
	case Markdown:
		return "md"
	case CSV:
		return "csv"
	default:
		return "txt"
	}
}

// Render renders a setlist in the given format.
func Render(res *tasks.SetlistResult, f Format) ([]byte, error) {
	switch f {
	case Text:
		return SetlistToText(res)
	case JSON:
		return shared.MarshalJSON(res, true)
	case Markdown:
		return SetlistToMarkdown(res)
	case CSV:
		return SetlistToCSV(res)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, f)
	}
}

func title(res *tasks.SetlistResult) string {
	if res.Year > 0 {
		return fmt.Sprintf("%s: average setlist %d", res.Artist, res.Year)
	}
	return fmt.Sprintf("%s: average setlist", res.Artist)
}

// plays formats a play count. Songs read from the statistics page carry no count.
func plays(n int) string {
	switch n {
	case 0:
		return ""
	case 1:
		return "1 play"
	default:
		return strconv.Itoa(n) + " plays"
	}
}

// SetlistToText renders a numbered song list.
func SetlistToText(res *tasks.SetlistResult) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n", title(res))
	fmt.Fprintf(&buf, "Source: %s\n", res.Source)
	if res.StatsURL != "" {
		fmt.Fprintf(&buf, "Statistics: %s\n", res.StatsURL)
	}
	fmt.Fprintf(&buf, "Songs: %d\n\n", len(res.Songs))

	for i, s := range res.Songs {
		if p := plays(s.Count); p != "" {
			fmt.Fprintf(&buf, "%2d. %s (%s)\n", i+1, s.Title, p)
		} else {
			fmt.Fprintf(&buf, "%2d. %s\n", i+1, s.Title)
		}
	}

	return buf.Bytes(), nil
}

// SetlistToMarkdown renders a heading, a link to the statistics page and a numbered list.
func SetlistToMarkdown(res *tasks.SetlistResult) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title(res))
	if res.StatsURL != "" {
		fmt.Fprintf(&buf, "**Statistics**: [setlist.fm](%s)\n", res.StatsURL)
	}
	fmt.Fprintf(&buf, "**Source**: %s\n", res.Source)
	fmt.Fprintf(&buf, "**Songs**: %d\n\n", len(res.Songs))

	buf.WriteString("## Songs\n\n")
	for i, s := range res.Songs {
		if p := plays(s.Count); p != "" {
			fmt.Fprintf(&buf, "%d. %s _(%s)_\n", i+1, s.Title, p)
		} else {
			fmt.Fprintf(&buf, "%d. %s\n", i+1, s.Title)
		}
	}

	return buf.Bytes(), nil
}

// SetlistToCSV renders columns Rank, Title, Plays. Plays is empty for statistics page songs.
func SetlistToCSV(res *tasks.SetlistResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Rank", "Title", "Plays"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, s := range res.Songs {
		count := ""
		if s.Count > 0 {
			count = strconv.Itoa(s.Count)
		}
		if err := writer.Write([]string{strconv.Itoa(i + 1), s.Title, count}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// GenerateToText summarizes a playlist run: the playlist, then found and missing songs.
func GenerateToText(res *tasks.GenerateResult) ([]byte, error) {
	var buf bytes.Buffer

	if res.Playlist != nil {
		fmt.Fprintf(&buf, "Playlist: %s\n", res.Playlist.Name)
		if res.Playlist.URL != "" {
			fmt.Fprintf(&buf, "URL: %s\n", res.Playlist.URL)
		}
		fmt.Fprintf(&buf, "Visibility: %s\n", visibility(res.Playlist.Public))
	} else {
		buf.WriteString("Playlist: not created (dry run)\n")
	}
	fmt.Fprintf(&buf, "Tracks: %d found, %d missing\n\n", res.Found, res.Missing)

	for i, m := range res.Matches {
		if m.Found() {
			fmt.Fprintf(&buf, "%2d. ✓ %s - %s\n", i+1, m.Track.Artist, m.Track.Title)
		} else {
			fmt.Fprintf(&buf, "%2d. ✗ %s (not found)\n", i+1, m.Song)
		}
	}

	return buf.Bytes(), nil
}

func visibility(public bool) string {
	if public {
		return "Public"
	}
	return "Private"
}

// DefaultFilename is "<artist>_<year>_setlist.<ext>" with the artist lowercased and spaces replaced by hyphens.
func DefaultFilename(res *tasks.SetlistResult, f Format) string {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(res.Artist)), " ", "-")
	if res.Year > 0 {
		name += "_" + strconv.Itoa(res.Year)
	}
	return name + "_setlist." + f.Extension()
}

// WriteSetlist renders res and writes it to path, defaulting to [DefaultFilename].
func WriteSetlist(res *tasks.SetlistResult, f Format, path string) (string, error) {
	if path == "" {
		path = DefaultFilename(res, f)
	}

	data, err := Render(res, f)
	if err != nil {
		return "", fmt.Errorf("failed to render setlist: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	return path, nil
}
