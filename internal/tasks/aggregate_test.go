package tasks

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/desertthunder/setlistify/internal/models"
	"github.com/desertthunder/setlistify/internal/shared"
	tu "github.com/desertthunder/setlistify/internal/testing"
)

var interpol = &models.ArtistIdentity{ID: "mbid-1", Slug: "2bd6982e"}

// setlistPage builds a listing page with one record per song list.
func setlistPage(total, perPage int, records ...[]string) *models.SetlistPage {
	p := &models.SetlistPage{Total: total, ItemsPerPage: perPage}
	for _, songs := range records {
		set := models.Set{}
		for _, s := range songs {
			set.Song = append(set.Song, models.Song{Name: s})
		}
		p.Setlist = append(p.Setlist, models.SetlistRecord{Sets: models.Sets{Set: models.OneOrMany[models.Set]{set}}})
	}
	return p
}

func countCalls(calls []string, call string) int {
	n := 0
	for _, c := range calls {
		if c == call {
			n++
		}
	}
	return n
}

func TestAggregator(t *testing.T) {
	ctx := context.Background()

	t.Run("Year Filter 404 Retries Without Year", func(t *testing.T) {
		src := &tu.MockSetlistSource{
			Pages: map[string][]*models.SetlistPage{
				"mbid-1:0": {setlistPage(3, 20, []string{"A"}, []string{"B"}, []string{"A"})},
			},
		}

		got, err := NewAggregator(src, 0, nil).Aggregate(ctx, "Interpol", interpol, AggregateOpts{Year: 2023}, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		want := models.RankedSetlist{{Title: "A", Count: 2}, {Title: "B", Count: 1}}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}

		wantCalls := []string{"mbid-1:2023:1", "mbid-1:0:1"}
		if !reflect.DeepEqual(src.Calls, wantCalls) {
			t.Errorf("expected calls %v, got %v", wantCalls, src.Calls)
		}
	})

	t.Run("Probe Response Is Reused As Page One", func(t *testing.T) {
		src := &tu.MockSetlistSource{
			Pages: map[string][]*models.SetlistPage{
				"mbid-1:2023": {
					setlistPage(40, 20, []string{"A", "B"}),
					setlistPage(40, 20, []string{"B"}),
				},
			},
		}

		got, err := NewAggregator(src, 0, nil).Aggregate(ctx, "Interpol", interpol, AggregateOpts{Year: 2023}, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if countCalls(src.Calls, "mbid-1:2023:1") != 1 {
			t.Errorf("expected page 1 fetched once, got calls %v", src.Calls)
		}
		if got.Titles()[0] != "B" {
			t.Errorf("expected B first, got %v", got)
		}
	})

	t.Run("Falls Back To Name Search", func(t *testing.T) {
		src := &tu.MockSetlistSource{
			Pages: map[string][]*models.SetlistPage{
				"search:0": {setlistPage(1, 20, []string{"Evil", "NYC"})},
			},
		}

		got, err := NewAggregator(src, 0, nil).Aggregate(ctx, "Interpol", interpol, AggregateOpts{Year: 2023}, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !reflect.DeepEqual(got.Titles(), []string{"Evil", "NYC"}) {
			t.Errorf("unexpected songs %v", got)
		}

		wantCalls := []string{"mbid-1:2023:1", "mbid-1:0:1", "search:0:1"}
		if !reflect.DeepEqual(src.Calls, wantCalls) {
			t.Errorf("expected calls %v, got %v", wantCalls, src.Calls)
		}
	})

	t.Run("No Year 404 Goes Straight To Name Search", func(t *testing.T) {
		src := &tu.MockSetlistSource{
			Pages: map[string][]*models.SetlistPage{
				"search:0": {setlistPage(1, 20, []string{"Evil"})},
			},
		}

		if _, err := NewAggregator(src, 0, nil).Aggregate(ctx, "Interpol", interpol, AggregateOpts{}, nil); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		wantCalls := []string{"mbid-1:0:1", "search:0:1"}
		if !reflect.DeepEqual(src.Calls, wantCalls) {
			t.Errorf("expected calls %v, got %v", wantCalls, src.Calls)
		}
	})

	t.Run("No Listing Is NoData", func(t *testing.T) {
		src := &tu.MockSetlistSource{}

		_, err := NewAggregator(src, 0, nil).Aggregate(ctx, "Nobody", interpol, AggregateOpts{Year: 2023}, nil)
		if !errors.Is(err, shared.ErrNoData) {
			t.Errorf("expected ErrNoData, got %v", err)
		}
	})

	t.Run("Fallback Failure Other Than 404 Is NoData", func(t *testing.T) {
		src := &tu.MockSetlistSource{
			PageErrs: map[string]error{"search:0:1": shared.ErrRateLimited},
		}

		_, err := NewAggregator(src, 0, nil).Aggregate(ctx, "Interpol", interpol, AggregateOpts{}, nil)
		if !errors.Is(err, shared.ErrNoData) || !errors.Is(err, shared.ErrRateLimited) {
			t.Errorf("expected ErrNoData wrapping ErrRateLimited, got %v", err)
		}
	})

	t.Run("Exhausted Retries Without Year Fall Back To Name Search", func(t *testing.T) {
		for _, failure := range []error{shared.ErrNetwork, shared.ErrRateLimited} {
			src := &tu.MockSetlistSource{
				Pages: map[string][]*models.SetlistPage{
					"search:0": {setlistPage(1, 20, []string{"A"})},
				},
				PageErrs: map[string]error{"mbid-1:0:1": failure},
			}

			got, err := NewAggregator(src, 0, nil).Aggregate(ctx, "Interpol", interpol, AggregateOpts{Year: 2023}, nil)
			if err != nil {
				t.Fatalf("expected no error after %v, got %v", failure, err)
			}
			if !reflect.DeepEqual(got.Titles(), []string{"A"}) {
				t.Errorf("unexpected songs %v", got)
			}

			wantCalls := []string{"mbid-1:2023:1", "mbid-1:0:1", "search:0:1"}
			if !reflect.DeepEqual(src.Calls, wantCalls) {
				t.Errorf("expected calls %v, got %v", wantCalls, src.Calls)
			}
		}
	})

	t.Run("Non 404 Probe Failure Continues To Walk", func(t *testing.T) {
		src := &tu.MockSetlistSource{
			PageErrs: map[string]error{"mbid-1:0:1": shared.ErrNetwork},
		}

		_, err := NewAggregator(src, 0, nil).Aggregate(ctx, "Interpol", interpol, AggregateOpts{}, nil)
		if !errors.Is(err, shared.ErrNetwork) {
			t.Errorf("expected ErrNetwork, got %v", err)
		}
		if errors.Is(err, shared.ErrNoSongs) {
			t.Errorf("expected the page error alone, got %v", err)
		}
		if countCalls(src.Calls, "search:0:1") != 0 {
			t.Errorf("expected no name search, got calls %v", src.Calls)
		}
		if countCalls(src.Calls, "mbid-1:0:1") != 2 {
			t.Errorf("expected probe and walk to request page 1, got calls %v", src.Calls)
		}
	})

	t.Run("Walk Stops At MaxPages", func(t *testing.T) {
		pages := make([]*models.SetlistPage, 10)
		for i := range pages {
			pages[i] = setlistPage(200, 20, []string{"A"})
		}
		src := &tu.MockSetlistSource{Pages: map[string][]*models.SetlistPage{"mbid-1:0": pages}}

		got, err := NewAggregator(src, 0, nil).Aggregate(ctx, "Interpol", interpol, AggregateOpts{MaxPages: 3}, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got[0].Count != 3 {
			t.Errorf("expected 3 pages tallied, got count %d", got[0].Count)
		}
		if countCalls(src.Calls, "mbid-1:0:4") != 0 {
			t.Errorf("expected no fetch past max pages, got %v", src.Calls)
		}
	})

	t.Run("Walk Stops At Declared Total", func(t *testing.T) {
		src := &tu.MockSetlistSource{Pages: map[string][]*models.SetlistPage{
			"mbid-1:0": {
				setlistPage(25, 20, []string{"A"}),
				setlistPage(25, 20, []string{"B"}),
				setlistPage(25, 20, []string{"C"}),
			},
		}}

		got, err := NewAggregator(src, 0, nil).Aggregate(ctx, "Interpol", interpol, AggregateOpts{}, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !reflect.DeepEqual(got.Titles(), []string{"A", "B"}) {
			t.Errorf("expected two pages, got %v", got)
		}
	})

	t.Run("Undeclared Total Means One Page", func(t *testing.T) {
		src := &tu.MockSetlistSource{Pages: map[string][]*models.SetlistPage{
			"mbid-1:0": {setlistPage(0, 0, []string{"A"}), setlistPage(0, 0, []string{"B"})},
		}}

		got, err := NewAggregator(src, 0, nil).Aggregate(ctx, "Interpol", interpol, AggregateOpts{}, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 1 {
			t.Errorf("expected a single page, got %v", got)
		}
	})

	t.Run("Partial Pages Are Kept", func(t *testing.T) {
		src := &tu.MockSetlistSource{
			Pages: map[string][]*models.SetlistPage{
				"mbid-1:0": {
					setlistPage(60, 20, []string{"A", "B"}),
					setlistPage(60, 20, []string{"A"}),
					setlistPage(60, 20, []string{"C"}),
				},
			},
			PageErrs: map[string]error{"mbid-1:0:3": shared.ErrRateLimited},
		}

		got, err := NewAggregator(src, 0, nil).Aggregate(ctx, "Interpol", interpol, AggregateOpts{}, nil)
		if err != nil {
			t.Fatalf("expected partial success, got %v", err)
		}
		want := models.RankedSetlist{{Title: "A", Count: 2}, {Title: "B", Count: 1}}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("Records Without Songs Are NoSongs", func(t *testing.T) {
		src := &tu.MockSetlistSource{Pages: map[string][]*models.SetlistPage{
			"mbid-1:0": {setlistPage(2, 20, []string{}, []string{" "})},
		}}

		_, err := NewAggregator(src, 0, nil).Aggregate(ctx, "Interpol", interpol, AggregateOpts{}, nil)
		if !errors.Is(err, shared.ErrNoSongs) {
			t.Errorf("expected ErrNoSongs, got %v", err)
		}
	})

	t.Run("TopN Truncates And Unbounded Keeps All", func(t *testing.T) {
		songs := make([]string, 20)
		for i := range songs {
			songs[i] = string(rune('a' + i))
		}
		src := &tu.MockSetlistSource{Pages: map[string][]*models.SetlistPage{
			"mbid-1:0": {setlistPage(1, 20, songs)},
		}}
		agg := NewAggregator(src, 0, nil)

		for _, tc := range []struct {
			topN, want int
		}{{0, DefaultTopN}, {5, 5}, {30, 20}, {Unbounded, 20}} {
			got, err := agg.Aggregate(ctx, "Interpol", interpol, AggregateOpts{TopN: tc.topN}, nil)
			if err != nil {
				t.Fatalf("TopN %d: unexpected error %v", tc.topN, err)
			}
			if len(got) != tc.want {
				t.Errorf("TopN %d: expected %d songs, got %d", tc.topN, tc.want, len(got))
			}
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		src := &tu.MockSetlistSource{Pages: map[string][]*models.SetlistPage{
			"mbid-1:0": {setlistPage(2, 20, []string{"x", "y", "z"}, []string{"z", "y"})},
		}}
		agg := NewAggregator(src, 0, nil)

		first, err1 := agg.Aggregate(ctx, "Interpol", interpol, AggregateOpts{TopN: 2}, nil)
		second, err2 := agg.Aggregate(ctx, "Interpol", interpol, AggregateOpts{TopN: 2}, nil)
		if err1 != nil || err2 != nil {
			t.Fatalf("unexpected errors %v, %v", err1, err2)
		}
		if !reflect.DeepEqual(first, second) {
			t.Errorf("expected identical results, got %v and %v", first, second)
		}
	})

	t.Run("Missing Identity", func(t *testing.T) {
		_, err := NewAggregator(&tu.MockSetlistSource{}, 0, nil).Aggregate(ctx, "Interpol", nil, AggregateOpts{}, nil)
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		src := &tu.MockSetlistSource{Pages: map[string][]*models.SetlistPage{
			"mbid-1:0": {setlistPage(40, 20, []string{"A"}), setlistPage(40, 20, []string{"B"})},
		}}
		_, err := NewAggregator(src, 0, nil).Aggregate(cctx, "Interpol", interpol, AggregateOpts{}, nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("Progress Updates", func(t *testing.T) {
		src := &tu.MockSetlistSource{Pages: map[string][]*models.SetlistPage{
			"mbid-1:0": {setlistPage(1, 20, []string{"A"})},
		}}
		progress := make(chan ProgressUpdate, 10)

		if _, err := NewAggregator(src, 0, nil).Aggregate(ctx, "Interpol", interpol, AggregateOpts{}, progress); err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		close(progress)

		var phases []Phase
		for u := range progress {
			phases = append(phases, u.Phase)
		}
		if !reflect.DeepEqual(phases, []Phase{FetchPages, RankSongs}) {
			t.Errorf("unexpected phases %v", phases)
		}
	})
}
