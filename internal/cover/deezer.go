/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cover resolves artwork for a track through an external lookup API.
package cover

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// Lookup finds an artwork image and a link for a track. Implementations must
// degrade gracefully: on any failure they return the fallback image and an
// empty link, never an error, since artwork is cosmetic.
type Lookup interface {
	Cover(ctx context.Context, fallback, artist, album, track string) (imageURL, link string)
}

// DeezerLookup queries the public Deezer search API.
type DeezerLookup struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewDeezerLookup creates a lookup client against the given API base,
// defaulting to the public endpoint.
func NewDeezerLookup(baseURL string, logger zerolog.Logger) *DeezerLookup {
	if baseURL == "" {
		baseURL = "https://api.deezer.com"
	}
	return &DeezerLookup{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 2 * time.Second,
		},
		logger: logger.With().Str("component", "cover").Logger(),
	}
}

type searchResult struct {
	Data []struct {
		CoverBig   string `json:"cover_big"`
		PictureBig string `json:"picture_big"`
		Link       string `json:"link"`
		Album      struct {
			ID       int64  `json:"id"`
			CoverBig string `json:"cover_big"`
		} `json:"album"`
	} `json:"data"`
}

// Cover searches by artist+album when the album is known, otherwise by
// artist+track, otherwise by artist alone. The first non-empty result wins.
func (d *DeezerLookup) Cover(ctx context.Context, fallback, artist, album, track string) (string, string) {
	var queries []string
	switch {
	case album != "":
		queries = []string{
			"/search/album?q=" + url.QueryEscape(fmt.Sprintf("artist:%q album:%q", artist, album)),
			"/search/album?q=" + url.QueryEscape(artist+" "+album),
		}
	case track != "":
		queries = []string{"/search/track?q=" + url.QueryEscape(artist + " " + track)}
	default:
		queries = []string{"/search/artist?q=" + url.QueryEscape(artist)}
	}

	result, ok := d.firstNonEmpty(ctx, queries)
	if !ok {
		return fallback, ""
	}

	entry := result.Data[0]
	var image, link string
	switch {
	case album != "":
		image, link = entry.CoverBig, entry.Link
	case track != "":
		image = entry.Album.CoverBig
		link = fmt.Sprintf("https://www.deezer.com/album/%d", entry.Album.ID)
	default:
		image = entry.PictureBig
	}
	// A hit can still carry no artwork; keep the caller's fallback then.
	if image == "" {
		image = fallback
	}
	return image, link
}

func (d *DeezerLookup) firstNonEmpty(ctx context.Context, paths []string) (searchResult, bool) {
	for _, path := range paths {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
		if err != nil {
			continue
		}
		resp, err := d.httpClient.Do(req)
		if err != nil {
			d.logger.Debug().Err(err).Msg("cover lookup request failed")
			continue
		}
		var result searchResult
		err = json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()
		if err != nil {
			d.logger.Debug().Err(err).Msg("cover lookup decode failed")
			continue
		}
		if len(result.Data) > 0 {
			return result, true
		}
	}
	return searchResult{}, false
}

// Static always answers with the fallback image. Used when lookups are
// disabled and in tests.
type Static struct{}

// Cover returns the fallback image and no link.
func (Static) Cover(_ context.Context, fallback, _, _, _ string) (string, string) {
	return fallback, ""
}
