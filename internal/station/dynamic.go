/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package station

import (
	"context"
	"time"

	"github.com/friendsincode/tournesol/internal/engine"
	"github.com/friendsincode/tournesol/internal/models"
)

// LocalPlaylistStation exposes a playlist engine through the Station
// contract. Fetching never touches the network, so it never reports the
// upstream as unavailable.
type LocalPlaylistStation struct {
	eng *engine.Engine
}

// NewLocalPlaylist wraps eng as a station.
func NewLocalPlaylist(eng *engine.Engine) *LocalPlaylistStation {
	return &LocalPlaylistStation{eng: eng}
}

func (s *LocalPlaylistStation) Name() string      { return s.eng.Name() }
func (s *LocalPlaylistStation) Thumbnail() string { return s.eng.Thumbnail() }

// Slug is the URL segment the station's playlist snapshot is stored and
// served under. It comes from configuration, not the display name.
func (s *LocalPlaylistStation) Slug() string { return s.eng.Slug() }

// Engine exposes the wrapped engine for the scheduler's advance loop.
func (s *LocalPlaylistStation) Engine() *engine.Engine { return s.eng }

func (s *LocalPlaylistStation) GetMetadata(ctx context.Context, now time.Time) (models.BroadcastMetadata, error) {
	return s.eng.Metadata(ctx, now), nil
}

// FormatDisplay links the broadcast title to the track page when a link is
// known and the show title to the station's playlist page.
func (s *LocalPlaylistStation) FormatDisplay(meta models.BroadcastMetadata, now time.Time) models.DisplayInfo {
	thumbnail := meta.Thumbnail
	if thumbnail == "" {
		thumbnail = s.eng.Thumbnail()
	}
	if meta.Kind != models.KindMusic {
		return models.DisplayInfo{
			Thumbnail:      thumbnail,
			Station:        s.eng.Name(),
			BroadcastTitle: KindLabel(meta.Kind),
			ShowTitle:      meta.Show,
			Summary:        meta.Summary,
			BroadcastEnd:   meta.End * 1000,
		}
	}
	return models.DisplayInfo{
		Thumbnail:      thumbnail,
		Station:        s.eng.Name(),
		BroadcastTitle: htmlAnchor(meta.Link, meta.Artist+" • "+meta.Title),
		ShowTitle:      htmlAnchor("/api/stations/"+s.eng.Slug()+"/", meta.Show),
		Summary:        meta.Summary,
		BroadcastEnd:   meta.End * 1000,
	}
}
