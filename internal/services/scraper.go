// setlist.fm statistics page scraper
package services

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/setlistify/internal/shared"
)

const (
	setlistFMSiteURL = "https://www.setlist.fm"
	songSelector     = "ol.songsList > li.song"
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// StatsPageURL builds the average-setlist statistics page URL for an artist:
//
//	<site>/stats/average-setlist/<name>-<slug>.html?year=<year>
//
// where name is lowercased with spaces replaced by hyphens. A year of zero omits the query.
func StatsPageURL(siteURL, artistName, slug string, year int) string {
	if siteURL == "" {
		siteURL = setlistFMSiteURL
	}
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(artistName)), " ", "-")
	u := fmt.Sprintf("%s/stats/average-setlist/%s-%s.html", strings.TrimRight(siteURL, "/"), name, slug)
	if year > 0 {
		u += "?" + url.Values{"year": {strconv.Itoa(year)}}.Encode()
	}
	return u
}

// StatsPageScraper recovers an already-aggregated song list from the rendered statistics page.
//
// The page is fetched once with no retries; this path is best effort.
type StatsPageScraper struct {
	fetcher *Fetcher
	logger  *log.Logger
}

// NewStatsPageScraper creates a scraper using fetcher for the single page request.
func NewStatsPageScraper(fetcher *Fetcher, logger *log.Logger) *StatsPageScraper {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if fetcher == nil {
		fetcher = NewFetcher(FetcherOpts{Logger: logger})
	}
	return &StatsPageScraper{fetcher: fetcher, logger: shared.WithLogger(logger, "service", "scraper")}
}

// Extract returns the song titles listed on the page, in page order.
//
// It returns [shared.ErrEmpty] when the page holds no song list, and the fetcher's error
// when the page cannot be retrieved. Titles are never returned together with an error.
func (s *StatsPageScraper) Extract(ctx context.Context, pageURL string) ([]string, error) {
	h := http.Header{}
	h.Set("User-Agent", browserUserAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.9")

	s.logger.Info("scraping statistics page", "url", pageURL)

	resp, err := s.fetcher.GetWithRetries(ctx, pageURL, h, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch statistics page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	titles := ExtractSongTitles(doc)
	if len(titles) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrEmpty, pageURL)
	}

	s.logger.Info("statistics page scraped", "songs", len(titles))
	return titles, nil
}

// ExtractSongTitles reads every song item of the page's song list.
//
// An item's title is the text of its first link; without one, the item's own text up to the
// first line break is used, unless it is purely numeric (a track-number artifact).
func ExtractSongTitles(doc *goquery.Document) []string {
	var titles []string
	doc.Find(songSelector).Each(func(_ int, item *goquery.Selection) {
		if link := item.Find("a[href]").First(); link.Length() > 0 {
			if title := strings.TrimSpace(link.Text()); title != "" {
				titles = append(titles, title)
				return
			}
		}

		text := strings.TrimSpace(item.Text())
		text, _, _ = strings.Cut(text, "\n")
		text = strings.TrimSpace(text)
		if text != "" && !isNumeric(text) {
			titles = append(titles, text)
		}
	})
	return titles
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
