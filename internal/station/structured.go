/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package station

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/friendsincode/tournesol/internal/models"
)

// gridQuery asks the upstream programme API for every step between two
// instants on one station.
const gridQuery = `query {
  grid(start: %d, end: %d, station: %s) {
    ... on DiffusionStep {
      start
      end
      diffusion {
        title
        standFirst
        show {
          title
        }
      }
    }
    ... on TrackStep {
      start
      end
      track {
        title
        albumTitle
      }
    }
    ... on BlankStep {
      start
      end
      title
    }
  }
}`

// StructuredAPIStation derives broadcast metadata from a programme grid API.
// Each fetch asks for the grid from now to two hours ahead; the first entry
// is the current step and the second one's start bounds it.
type StructuredAPIStation struct {
	name      string
	apiName   string
	thumbnail string
	streamURL string
	url       string
	token     string
	client    *http.Client
}

// StructuredConfig configures a StructuredAPIStation.
type StructuredConfig struct {
	// Name is the display name; APIName is the station identifier the grid
	// query expects.
	Name      string
	APIName   string
	Thumbnail string
	// StreamURL is the upstream audio stream the playout script relays.
	StreamURL string
	URL       string
	Token     string
	Client    *http.Client
}

// NewStructuredAPIStation builds a grid-API-backed station.
func NewStructuredAPIStation(cfg StructuredConfig) *StructuredAPIStation {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 4 * time.Second}
	}
	return &StructuredAPIStation{
		name:      cfg.Name,
		apiName:   cfg.APIName,
		thumbnail: cfg.Thumbnail,
		streamURL: cfg.StreamURL,
		url:       cfg.URL,
		token:     cfg.Token,
		client:    client,
	}
}

const radioFranceAPI = "https://openapi.radiofrance.fr/v1/graphql"

// NewFranceInter builds the France Inter preset.
func NewFranceInter(token string) *StructuredAPIStation {
	return NewStructuredAPIStation(StructuredConfig{
		Name:      "France Inter",
		APIName:   "FRANCEINTER",
		StreamURL: "http://icecast.radiofrance.fr/franceinter-midfi.mp3",
		Thumbnail: "https://upload.wikimedia.org/wikipedia/fr/thumb/8/8d/France_inter_2005_logo.svg/1024px-France_inter_2005_logo.svg.png",
		URL:       radioFranceAPI,
		Token:     token,
	})
}

// NewFranceInfo builds the France Info preset.
func NewFranceInfo(token string) *StructuredAPIStation {
	return NewStructuredAPIStation(StructuredConfig{
		Name:      "France Info",
		APIName:   "FRANCEINFO",
		StreamURL: "http://icecast.radiofrance.fr/franceinfo-midfi.mp3",
		Thumbnail: "https://lh3.googleusercontent.com/VKfyGmJ-gNYvN0J--NYhHEzNhrRBS1AmebMm4LToyXRCKlFBMLFR5jB7DzY0VcHltd8h",
		URL:       radioFranceAPI,
		Token:     token,
	})
}

// NewFranceMusique builds the France Musique preset.
func NewFranceMusique(token string) *StructuredAPIStation {
	return NewStructuredAPIStation(StructuredConfig{
		Name:      "France Musique",
		APIName:   "FRANCEMUSIQUE",
		StreamURL: "http://icecast.radiofrance.fr/francemusique-midfi.mp3",
		Thumbnail: "https://charte.dnm.radiofrance.fr/images/france-musique-numerique.svg",
		URL:       radioFranceAPI,
		Token:     token,
	})
}

// NewFranceCulture builds the France Culture preset.
func NewFranceCulture(token string) *StructuredAPIStation {
	return NewStructuredAPIStation(StructuredConfig{
		Name:      "France Culture",
		APIName:   "FRANCECULTURE",
		StreamURL: "http://icecast.radiofrance.fr/franceculture-midfi.mp3",
		Thumbnail: "https://upload.wikimedia.org/wikipedia/commons/c/c1/France_Culture_-_2008.svg",
		URL:       radioFranceAPI,
		Token:     token,
	})
}

func (s *StructuredAPIStation) Name() string      { return s.name }
func (s *StructuredAPIStation) Thumbnail() string { return s.thumbnail }

// StreamURL reports the upstream audio stream for playout relaying.
func (s *StructuredAPIStation) StreamURL() string { return s.streamURL }

type gridStep struct {
	Start     int64  `json:"start"`
	End       int64  `json:"end"`
	Title     string `json:"title"`
	Diffusion *struct {
		Title      string `json:"title"`
		StandFirst string `json:"standFirst"`
		Show       *struct {
			Title string `json:"title"`
		} `json:"show"`
	} `json:"diffusion"`
	Track *struct {
		Title      string `json:"title"`
		AlbumTitle string `json:"albumTitle"`
	} `json:"track"`
}

type gridResponse struct {
	Data struct {
		Grid []gridStep `json:"grid"`
	} `json:"data"`
}

// GetMetadata queries the grid from now to two hours ahead. The broadcast
// end is the start of the following step, never the current step's own end
// field, which upstream rounds optimistically.
func (s *StructuredAPIStation) GetMetadata(ctx context.Context, now time.Time) (models.BroadcastMetadata, error) {
	query := fmt.Sprintf(gridQuery, now.Unix(), now.Add(2*time.Hour).Unix(), s.apiName)
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return models.BroadcastMetadata{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url+"?x-token="+s.token, bytes.NewReader(body))
	if err != nil {
		return models.BroadcastMetadata{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return models.BroadcastMetadata{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.BroadcastMetadata{}, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}
	var decoded gridResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return models.BroadcastMetadata{}, fmt.Errorf("%w: %v", ErrUpstreamFormat, err)
	}
	grid := decoded.Data.Grid
	if len(grid) < 2 {
		return models.BroadcastMetadata{}, fmt.Errorf("%w: grid returned %d steps", ErrUpstreamFormat, len(grid))
	}
	return s.stepMetadata(grid[0], grid[1].Start), nil
}

func (s *StructuredAPIStation) stepMetadata(step gridStep, end int64) models.BroadcastMetadata {
	meta := models.BroadcastMetadata{
		Kind:      models.KindShow,
		Station:   s.name,
		End:       end,
		Thumbnail: s.thumbnail,
	}
	switch {
	case step.Diffusion != nil:
		meta.Title = strings.TrimSpace(step.Diffusion.Title)
		meta.Summary = cleanStandFirst(step.Diffusion.StandFirst)
		if step.Diffusion.Show != nil {
			meta.Show = strings.TrimSpace(step.Diffusion.Show.Title)
		}
	case step.Track != nil:
		meta.Kind = models.KindMusic
		meta.Title = strings.TrimSpace(step.Track.Title)
		meta.Album = strings.TrimSpace(step.Track.AlbumTitle)
	default:
		meta.Show = strings.TrimSpace(step.Title)
	}
	return meta
}

// cleanStandFirst drops placeholder summaries the upstream grid emits for
// diffusions without one.
func cleanStandFirst(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "." || trimmed == "…" {
		return ""
	}
	return trimmed
}

// FormatDisplay projects metadata into the client form. The diffusion title
// is preferred for the broadcast line; the show title keeps its own line.
func (s *StructuredAPIStation) FormatDisplay(meta models.BroadcastMetadata, now time.Time) models.DisplayInfo {
	thumbnail := meta.Thumbnail
	if thumbnail == "" {
		thumbnail = s.thumbnail
	}
	title := meta.Title
	if title == "" {
		title = meta.Show
	}
	if title == "" {
		title = KindLabel(meta.Kind)
	}
	return models.DisplayInfo{
		Thumbnail:      thumbnail,
		Station:        s.name,
		BroadcastTitle: title,
		ShowTitle:      meta.Show,
		Summary:        meta.Summary,
		BroadcastEnd:   meta.End * 1000,
	}
}
