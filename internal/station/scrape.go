/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package station

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/friendsincode/tournesol/internal/models"
)

// ShowWindow labels a recurring daily time range with a show title, for
// sources that publish no programme grid of their own.
type ShowWindow struct {
	StartHour int
	EndHour   int
	Title     string
}

// ScrapeStation derives broadcast metadata from an upstream web page plus a
// sibling JSON song feed. The page carries the current diffusion type in a
// known table cell; when a song is airing the feed carries its details.
type ScrapeStation struct {
	name        string
	thumbnail   string
	streamURL   string
	baseURL     string
	itemsPath   string
	songsPath   string
	musicLabel  string
	adsLabel    string
	showWindows []ShowWindow
	client      *http.Client
}

// ScrapeConfig configures a ScrapeStation.
type ScrapeConfig struct {
	Name      string
	Thumbnail string
	// StreamURL is the upstream audio stream the playout script relays.
	StreamURL  string
	BaseURL    string
	ItemsPath  string
	SongsPath  string
	MusicLabel string
	AdsLabel   string
	// ShowWindows optionally names fixed-schedule shows by hour of day.
	ShowWindows []ShowWindow
	// Client overrides the HTTP client; the default enforces the 1 second
	// upstream budget.
	Client *http.Client
}

// NewScrapeStation builds a scrape-backed station.
func NewScrapeStation(cfg ScrapeConfig) *ScrapeStation {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: time.Second}
	}
	return &ScrapeStation{
		name:        cfg.Name,
		thumbnail:   cfg.Thumbnail,
		streamURL:   cfg.StreamURL,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		itemsPath:   cfg.ItemsPath,
		songsPath:   cfg.SongsPath,
		musicLabel:  cfg.MusicLabel,
		adsLabel:    cfg.AdsLabel,
		showWindows: cfg.ShowWindows,
		client:      client,
	}
}

// NewRTL2 builds the RTL 2 preset.
func NewRTL2() *ScrapeStation {
	return NewScrapeStation(ScrapeConfig{
		Name:       "RTL 2",
		Thumbnail:  "https://upload.wikimedia.org/wikipedia/commons/f/fc/RTL2_logo_2015.svg",
		StreamURL:  "http://streaming.radio.rtl2.fr/rtl2-1-44-128",
		BaseURL:    "https://timeline.rtl.fr/RTL2",
		ItemsPath:  "/items",
		SongsPath:  "/songs",
		MusicLabel: "Musique",
		AdsLabel:   "Pubs",
		ShowWindows: []ShowWindow{
			{StartHour: 21, EndHour: 22, Title: "RTL 2 Made in France"},
		},
	})
}

func (s *ScrapeStation) Name() string      { return s.name }
func (s *ScrapeStation) Thumbnail() string { return s.thumbnail }

// StreamURL reports the upstream audio stream for playout relaying.
func (s *ScrapeStation) StreamURL() string { return s.streamURL }

type scrapedSong struct {
	Singer    string `json:"singer"`
	Title     string `json:"title"`
	End       int64  `json:"end"`
	Thumbnail string `json:"cover"`
}

// GetMetadata resolves the current diffusion type from the timeline page,
// then fetches song details from the feed when music is airing.
func (s *ScrapeStation) GetMetadata(ctx context.Context, now time.Time) (models.BroadcastMetadata, error) {
	diffusion, err := s.fetchDiffusionType(ctx)
	if err != nil {
		return models.BroadcastMetadata{}, err
	}
	switch diffusion {
	case s.adsLabel:
		return models.BroadcastMetadata{
			Kind:      models.KindAds,
			Station:   s.name,
			Thumbnail: s.thumbnail,
		}, nil
	case s.musicLabel:
		return s.fetchCurrentSong(ctx)
	default:
		return models.BroadcastMetadata{
			Kind:      models.KindBlank,
			Station:   s.name,
			Thumbnail: s.thumbnail,
		}, nil
	}
}

// fetchDiffusionType reads the timeline page. The current diffusion type
// normally sits in the second cell of the third table row; when the page is
// mid-rotation the rows are absent and the previous-page link (the seventh
// anchor) is followed once instead.
func (s *ScrapeStation) fetchDiffusionType(ctx context.Context) (string, error) {
	pageURL := s.baseURL + s.itemsPath
	doc, err := s.fetchHTML(ctx, pageURL)
	if err != nil {
		return "", err
	}
	if label, ok := diffusionFromDoc(doc); ok {
		return label, nil
	}
	anchors := findAll(doc, "a")
	if len(anchors) < 7 {
		return "", fmt.Errorf("%w: no diffusion rows and no previous page link", ErrUpstreamFormat)
	}
	prev := attrValue(anchors[6], "href")
	if prev == "" {
		return "", fmt.Errorf("%w: previous page link without href", ErrUpstreamFormat)
	}
	// The href is an absolute path on the upstream origin; resolve it
	// against the page URL rather than the station base path.
	prevURL, err := resolveHref(pageURL, prev)
	if err != nil {
		return "", fmt.Errorf("%w: bad previous page link %q", ErrUpstreamFormat, prev)
	}
	doc, err = s.fetchHTML(ctx, prevURL)
	if err != nil {
		return "", err
	}
	if label, ok := diffusionFromDoc(doc); ok {
		return label, nil
	}
	return "", fmt.Errorf("%w: diffusion type cell not found", ErrUpstreamFormat)
}

// resolveHref resolves an anchor href against the page it was scraped from.
func resolveHref(page, href string) (string, error) {
	base, err := url.Parse(page)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

func diffusionFromDoc(doc *html.Node) (string, bool) {
	rows := findAll(doc, "tr")
	if len(rows) < 3 {
		return "", false
	}
	cells := findAll(rows[2], "td")
	if len(cells) < 2 {
		return "", false
	}
	return strings.TrimSpace(textContent(cells[1])), true
}

func (s *ScrapeStation) fetchCurrentSong(ctx context.Context) (models.BroadcastMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+s.songsPath, nil)
	if err != nil {
		return models.BroadcastMetadata{}, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return models.BroadcastMetadata{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	var songs []scrapedSong
	if err := json.NewDecoder(resp.Body).Decode(&songs); err != nil {
		return models.BroadcastMetadata{}, fmt.Errorf("%w: %v", ErrUpstreamFormat, err)
	}
	if len(songs) == 0 {
		// Song feed lags the timeline page briefly between tracks.
		return models.BroadcastMetadata{
			Kind:      models.KindBlank,
			Station:   s.name,
			Thumbnail: s.thumbnail,
		}, nil
	}
	song := songs[0]
	thumbnail := song.Thumbnail
	if thumbnail == "" {
		thumbnail = s.thumbnail
	}
	return models.BroadcastMetadata{
		Kind:      models.KindMusic,
		Station:   s.name,
		Artist:    song.Singer,
		Title:     song.Title,
		End:       song.End / 1000,
		Thumbnail: thumbnail,
	}, nil
}

// FormatDisplay projects metadata into the client form. Music slots show
// "artist • title"; other kinds show their label. The show title comes from
// the configured fixed-schedule windows.
func (s *ScrapeStation) FormatDisplay(meta models.BroadcastMetadata, now time.Time) models.DisplayInfo {
	thumbnail := meta.Thumbnail
	if thumbnail == "" {
		thumbnail = s.thumbnail
	}
	title := KindLabel(meta.Kind)
	if meta.Kind == models.KindMusic {
		title = meta.Artist + " • " + meta.Title
	}
	return models.DisplayInfo{
		Thumbnail:      thumbnail,
		Station:        s.name,
		BroadcastTitle: title,
		ShowTitle:      s.showTitle(now),
		Summary:        "",
		BroadcastEnd:   meta.End * 1000,
	}
}

func (s *ScrapeStation) showTitle(now time.Time) string {
	hour := now.Hour()
	for _, window := range s.showWindows {
		if window.StartHour <= hour && hour < window.EndHour {
			return window.Title
		}
	}
	return ""
}

func (s *ScrapeStation) fetchHTML(ctx context.Context, pageURL string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamFormat, err)
	}
	return doc, nil
}

// findAll collects element nodes with the given tag in document order.
func findAll(node *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return out
}

func textContent(node *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return b.String()
}

func attrValue(node *html.Node, name string) string {
	for _, a := range node.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
