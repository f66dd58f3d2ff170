/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package station

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/friendsincode/tournesol/internal/engine"
	"github.com/friendsincode/tournesol/internal/models"
)

type stubStation struct {
	name string
}

func (s *stubStation) Name() string      { return s.name }
func (s *stubStation) Thumbnail() string { return "" }
func (s *stubStation) GetMetadata(ctx context.Context, now time.Time) (models.BroadcastMetadata, error) {
	return models.BroadcastMetadata{}, nil
}
func (s *stubStation) FormatDisplay(meta models.BroadcastMetadata, now time.Time) models.DisplayInfo {
	return models.DisplayInfo{}
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	_, err := NewRegistry(&stubStation{name: "RTL 2"}, &stubStation{name: "RTL 2"})
	if err == nil {
		t.Fatal("expected duplicate name error")
	}
}

func TestRegistryLookup(t *testing.T) {
	reg, err := NewRegistry(&stubStation{name: "RTL 2"}, &stubStation{name: "France Inter"})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if _, ok := reg.Get("RTL 2"); !ok {
		t.Error("RTL 2 not found")
	}
	if _, ok := reg.Get("France Bleu"); ok {
		t.Error("unexpected hit for unregistered station")
	}
	names := reg.Names()
	if len(names) != 2 || names[0] != "RTL 2" || names[1] != "France Inter" {
		t.Errorf("Names() = %v, want registration order", names)
	}
}

const timelinePage = `<html><body><table>
<tr><td>a</td><td>b</td></tr>
<tr><td>c</td><td>d</td></tr>
<tr><td>x</td><td>%s</td></tr>
</table></body></html>`

const rotationPage = `<html><body>
<a href="/1">1</a><a href="/2">2</a><a href="/3">3</a>
<a href="/4">4</a><a href="/5">5</a><a href="/6">6</a>
<a href="/items?page=prev">previous</a>
</body></html>`

func scrapeFixture(t *testing.T, diffusion string, songs string) *ScrapeStation {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/items", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, timelinePage, diffusion)
	})
	mux.HandleFunc("/songs", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, songs)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewScrapeStation(ScrapeConfig{
		Name:       "RTL 2",
		Thumbnail:  "https://example.org/rtl2.svg",
		BaseURL:    srv.URL,
		ItemsPath:  "/items",
		SongsPath:  "/songs",
		MusicLabel: "Musique",
		AdsLabel:   "Pubs",
		Client:     srv.Client(),
	})
}

func TestScrapeStationMusic(t *testing.T) {
	st := scrapeFixture(t, "Musique",
		`[{"singer":"Archive","title":"Again","end":1693561200000,"cover":"https://example.org/again.jpg"}]`)
	meta, err := st.GetMetadata(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if meta.Kind != models.KindMusic {
		t.Fatalf("Kind = %q, want %q", meta.Kind, models.KindMusic)
	}
	if meta.Artist != "Archive" || meta.Title != "Again" {
		t.Errorf("track = %q / %q", meta.Artist, meta.Title)
	}
	if meta.End != 1693561200 {
		t.Errorf("End = %d, want seconds not milliseconds", meta.End)
	}
	if meta.Thumbnail != "https://example.org/again.jpg" {
		t.Errorf("Thumbnail = %q", meta.Thumbnail)
	}
}

func TestScrapeStationAds(t *testing.T) {
	st := scrapeFixture(t, "Pubs", `[]`)
	meta, err := st.GetMetadata(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if meta.Kind != models.KindAds {
		t.Errorf("Kind = %q, want %q", meta.Kind, models.KindAds)
	}
	if meta.End != 0 {
		t.Errorf("End = %d, want 0 for ads", meta.End)
	}
}

func TestScrapeStationNonMusicIsBlank(t *testing.T) {
	st := scrapeFixture(t, "Emission", `[]`)
	meta, err := st.GetMetadata(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if meta.Kind != models.KindBlank {
		t.Errorf("Kind = %q, want %q", meta.Kind, models.KindBlank)
	}
}

func TestScrapeStationRetriesPreviousPage(t *testing.T) {
	mux := http.NewServeMux()
	var hits int
	mux.HandleFunc("/items", func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.URL.RawQuery == "" {
			fmt.Fprint(w, rotationPage)
			return
		}
		fmt.Fprintf(w, timelinePage, "Pubs")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	st := NewScrapeStation(ScrapeConfig{
		Name:       "RTL 2",
		BaseURL:    srv.URL,
		ItemsPath:  "/items",
		SongsPath:  "/songs",
		MusicLabel: "Musique",
		AdsLabel:   "Pubs",
		Client:     srv.Client(),
	})
	meta, err := st.GetMetadata(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if meta.Kind != models.KindAds {
		t.Errorf("Kind = %q, want %q", meta.Kind, models.KindAds)
	}
	if hits != 2 {
		t.Errorf("hits = %d, want one retry through the previous page link", hits)
	}
}

func TestScrapeStationRetryResolvesHrefAgainstOrigin(t *testing.T) {
	// Upstream pages link with origin-absolute hrefs that repeat the
	// station path; the retry must not stack it onto the base URL.
	prevPage := `<html><body>
<a href="/1">1</a><a href="/2">2</a><a href="/3">3</a>
<a href="/4">4</a><a href="/5">5</a><a href="/6">6</a>
<a href="/RTL2/items?page=prev">previous</a>
</body></html>`
	mux := http.NewServeMux()
	mux.HandleFunc("/RTL2/items", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery == "" {
			fmt.Fprint(w, prevPage)
			return
		}
		fmt.Fprintf(w, timelinePage, "Musique")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	st := NewScrapeStation(ScrapeConfig{
		Name:       "RTL 2",
		BaseURL:    srv.URL + "/RTL2",
		ItemsPath:  "/items",
		SongsPath:  "/songs",
		MusicLabel: "Musique",
		AdsLabel:   "Pubs",
		Client:     srv.Client(),
	})
	diffusion, err := st.fetchDiffusionType(context.Background())
	if err != nil {
		t.Fatalf("fetchDiffusionType: %v", err)
	}
	if diffusion != "Musique" {
		t.Errorf("diffusion = %q, want Musique via the previous page", diffusion)
	}
}

func TestScrapeStationUnavailable(t *testing.T) {
	st := NewScrapeStation(ScrapeConfig{
		Name:       "RTL 2",
		BaseURL:    "http://127.0.0.1:1",
		ItemsPath:  "/items",
		SongsPath:  "/songs",
		MusicLabel: "Musique",
		AdsLabel:   "Pubs",
		Client:     &http.Client{Timeout: 100 * time.Millisecond},
	})
	_, err := st.GetMetadata(context.Background(), time.Now())
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("err = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestScrapeStationShowWindow(t *testing.T) {
	st := NewRTL2()
	at := time.Date(2026, 8, 31, 21, 30, 0, 0, time.UTC)
	info := st.FormatDisplay(models.BroadcastMetadata{Kind: models.KindMusic, Artist: "M", Title: "T"}, at)
	if info.ShowTitle != "RTL 2 Made in France" {
		t.Errorf("ShowTitle = %q", info.ShowTitle)
	}
	outside := st.FormatDisplay(models.BroadcastMetadata{Kind: models.KindMusic}, at.Add(2*time.Hour))
	if outside.ShowTitle != "" {
		t.Errorf("ShowTitle outside window = %q, want empty", outside.ShowTitle)
	}
}

const gridBody = `{"data":{"grid":[
  {"start":1693551600,"end":1693555200,
   "diffusion":{"title":"Le 7/9","standFirst":"L'actualité du jour.","show":{"title":"Le 7/9 de France Inter"}}},
  {"start":1693555000,"end":1693558800,"title":"Journal"}
]}}`

func TestStructuredStationDiffusion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Query().Get("x-token") != "secret" {
			t.Errorf("missing token, query = %q", r.URL.RawQuery)
		}
		fmt.Fprint(w, gridBody)
	}))
	defer srv.Close()
	st := NewStructuredAPIStation(StructuredConfig{
		Name:    "France Inter",
		APIName: "FRANCEINTER",
		URL:     srv.URL,
		Token:   "secret",
		Client:  srv.Client(),
	})
	meta, err := st.GetMetadata(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if meta.Kind != models.KindShow {
		t.Errorf("Kind = %q, want %q", meta.Kind, models.KindShow)
	}
	if meta.Title != "Le 7/9" || meta.Show != "Le 7/9 de France Inter" {
		t.Errorf("titles = %q / %q", meta.Title, meta.Show)
	}
	// End is bounded by the next step's start, not the current step's end.
	if meta.End != 1693555000 {
		t.Errorf("End = %d, want next step start", meta.End)
	}

	info := st.FormatDisplay(meta, time.Now())
	if info.BroadcastTitle != "Le 7/9" {
		t.Errorf("BroadcastTitle = %q", info.BroadcastTitle)
	}
	if info.BroadcastEnd != 1693555000000 {
		t.Errorf("BroadcastEnd = %d, want milliseconds", info.BroadcastEnd)
	}
}

func TestStructuredStationShortGrid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"grid":[{"start":1,"end":2,"title":"only"}]}}`)
	}))
	defer srv.Close()
	st := NewStructuredAPIStation(StructuredConfig{
		Name: "France Inter", APIName: "FRANCEINTER", URL: srv.URL, Client: srv.Client(),
	})
	_, err := st.GetMetadata(context.Background(), time.Now())
	if !errors.Is(err, ErrUpstreamFormat) {
		t.Fatalf("err = %v, want ErrUpstreamFormat", err)
	}
}

func TestStructuredStationPlaceholderSummary(t *testing.T) {
	for _, raw := range []string{".", " . ", "…", ""} {
		if got := cleanStandFirst(raw); got != "" {
			t.Errorf("cleanStandFirst(%q) = %q, want empty", raw, got)
		}
	}
	if got := cleanStandFirst(" real summary "); got != "real summary" {
		t.Errorf("cleanStandFirst = %q", got)
	}
}

func TestLocalPlaylistSlugAndLinks(t *testing.T) {
	st := NewLocalPlaylist(engine.New(engine.Config{
		Name:      "Radio Pycolore",
		Slug:      "pycolore",
		Thumbnail: "https://example.org/pycolore.png",
	}))
	if st.Slug() != "pycolore" {
		t.Errorf("Slug = %q, want the configured slug", st.Slug())
	}
	info := st.FormatDisplay(models.BroadcastMetadata{
		Kind: models.KindMusic, Artist: "Archive", Title: "Again",
		Show: "La playlist Pycolore", Link: "https://www.deezer.com/album/1",
	}, time.Now())
	if want := `<a target="_blank" href="/api/stations/pycolore/">La playlist Pycolore</a>`; info.ShowTitle != want {
		t.Errorf("ShowTitle = %q, want %q", info.ShowTitle, want)
	}
	if !strings.Contains(info.BroadcastTitle, "Archive • Again") {
		t.Errorf("BroadcastTitle = %q", info.BroadcastTitle)
	}
}

func TestKindLabel(t *testing.T) {
	cases := map[models.BroadcastKind]string{
		models.KindAds:   "Commercial break",
		models.KindBlank: "Interlude",
	}
	for kind, want := range cases {
		if got := KindLabel(kind); got != want {
			t.Errorf("KindLabel(%q) = %q, want %q", kind, got, want)
		}
	}
}
