/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package adbreak substitutes upstream commercial breaks with tracks from
// a local backup library.
package adbreak

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/tournesol/internal/catalog"
	"github.com/friendsincode/tournesol/internal/cover"
	"github.com/friendsincode/tournesol/internal/liquidsoap"
	"github.com/friendsincode/tournesol/internal/models"
	"github.com/friendsincode/tournesol/internal/station"
)

// Handler replaces ad breaks on one channel. Each substitution pops a
// track off the backup queue and pushes it to the channel's interrupting
// custom-songs queue; the queue refills from the library when empty.
//
// Handlers belong to a single channel goroutine and are not safe for
// concurrent use.
type Handler struct {
	endpoint string
	queue    string
	loader   *catalog.Loader
	sink     liquidsoap.Sink
	cover    cover.Lookup
	rng      *rand.Rand
	logger   zerolog.Logger
	backup   []models.Track
}

// Config configures a Handler.
type Config struct {
	// Endpoint is the channel endpoint; the playout queue name derives
	// from it.
	Endpoint string
	Loader   *catalog.Loader
	Sink     liquidsoap.Sink
	Cover    cover.Lookup
	Rand     *rand.Rand
	Logger   zerolog.Logger
}

// New builds a Handler for one channel.
func New(cfg Config) *Handler {
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Handler{
		endpoint: cfg.Endpoint,
		queue:    cfg.Endpoint + "_custom_songs",
		loader:   cfg.Loader,
		sink:     cfg.Sink,
		cover:    cfg.Cover,
		rng:      rng,
		logger:   cfg.Logger.With().Str("channel", cfg.Endpoint).Logger(),
	}
}

// Queue reports the playout queue substitutions are pushed to.
func (h *Handler) Queue() string { return h.queue }

// Process passes non-ad broadcasts through untouched. For an ad break it
// pushes a backup track and rewrites the metadata and display info as if
// the station were airing that track, ending when the track does. A failed
// substitution returns the original pair so the channel keeps publishing
// the upstream state.
func (h *Handler) Process(ctx context.Context, now time.Time, st station.Station,
	meta models.BroadcastMetadata, info models.DisplayInfo) (models.BroadcastMetadata, models.DisplayInfo, error) {
	if meta.Kind != models.KindAds {
		return meta, info, nil
	}
	h.logger.Info().Str("station", meta.Station).Msg("ad break detected")
	if len(h.backup) == 0 {
		tracks, err := h.loader.Load(ctx)
		if err != nil {
			return meta, info, fmt.Errorf("loading backup library: %w", err)
		}
		h.backup = catalog.Shuffle(tracks, h.rng)
	}
	track := h.backup[0]
	if err := h.sink.Enqueue(ctx, h.queue, track.Path); err != nil {
		return meta, info, fmt.Errorf("pushing substitute track: %w", err)
	}
	h.backup = h.backup[1:]

	end := now.Add(track.Duration)
	thumbnail, link := h.cover.Cover(ctx, st.Thumbnail(), track.Artist, track.Album, track.Title)
	newMeta := models.BroadcastMetadata{
		Kind:      models.KindMusic,
		Station:   meta.Station,
		Artist:    track.Artist,
		Title:     track.Title,
		Album:     track.Album,
		End:       end.Unix(),
		Thumbnail: thumbnail,
		Link:      link,
	}
	newInfo := models.DisplayInfo{
		Thumbnail:      thumbnail,
		Station:        meta.Station,
		BroadcastTitle: track.Artist + " • " + track.Title,
		ShowTitle:      info.ShowTitle,
		Summary: fmt.Sprintf("%s is airing a commercial break. In the meantime, here is %s by %s.",
			meta.Station, track.Title, track.Artist),
		BroadcastEnd: end.UnixMilli(),
	}
	h.logger.Info().
		Str("artist", track.Artist).
		Str("title", track.Title).
		Time("until", end).
		Msg("substituted ad break")
	return newMeta, newInfo, nil
}
