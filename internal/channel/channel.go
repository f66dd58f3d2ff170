/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package channel ties one endpoint's timetable, stations and ad handling
// together and drives its broadcast state through the store.
package channel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/tournesol/internal/adbreak"
	"github.com/friendsincode/tournesol/internal/models"
	"github.com/friendsincode/tournesol/internal/station"
	"github.com/friendsincode/tournesol/internal/telemetry"
	"github.com/friendsincode/tournesol/internal/timetable"
)

// defaultDisplayWindow is how far ahead the display end is set when the
// broadcast's own end is unknown, so clients poll again promptly.
const defaultDisplayWindow = 5 * time.Second

// BroadcastStore persists and publishes a channel's broadcast state.
type BroadcastStore interface {
	PutBroadcast(ctx context.Context, endpoint string, meta models.BroadcastMetadata, info models.DisplayInfo) error
	PublishInfo(ctx context.Context, endpoint string, info models.DisplayInfo) error
}

// Channel is one listener-facing endpoint.
type Channel struct {
	endpoint string
	name     string
	tt       *timetable.Timetable
	stations *station.Registry
	ads      *adbreak.Handler
	store    BroadcastStore
	logger   zerolog.Logger
}

// Config configures a Channel.
type Config struct {
	// Endpoint is the URL path segment; Name is the display name.
	Endpoint string
	Name     string
	Timetable *timetable.Timetable
	Stations  *station.Registry
	// Ads is optional; a channel without a handler passes ad breaks
	// through untouched.
	Ads    *adbreak.Handler
	Store  BroadcastStore
	Logger zerolog.Logger
}

// New builds a Channel.
func New(cfg Config) *Channel {
	return &Channel{
		endpoint: cfg.Endpoint,
		name:     cfg.Name,
		tt:       cfg.Timetable,
		stations: cfg.Stations,
		ads:      cfg.Ads,
		store:    cfg.Store,
		logger:   cfg.Logger.With().Str("channel", cfg.Endpoint).Logger(),
	}
}

func (c *Channel) Endpoint() string { return c.endpoint }
func (c *Channel) Name() string     { return c.name }

// Timetable exposes the channel's timetable for playout script generation.
func (c *Channel) Timetable() *timetable.Timetable { return c.tt }

// StationNames lists every station the timetable can route to.
func (c *Channel) StationNames() []string { return c.tt.Stations() }

// Resolve maps now to the channel's current timetable span.
func (c *Channel) Resolve(now time.Time) (timetable.Span, error) {
	return c.tt.Resolve(now)
}

// IsFatal reports whether a tick error should halt the channel. Schedule
// gaps and malformed schedules cannot heal without a config change.
func IsFatal(err error) bool {
	return errors.Is(err, timetable.ErrScheduleGap) || errors.Is(err, timetable.ErrScheduleConfig)
}

// Tick runs one update cycle: resolve the routed station, fetch what it is
// airing, substitute ad breaks, persist and publish.
//
// An unreachable upstream degrades to fallback state and the tick still
// succeeds; a malformed upstream response fails the tick only. Timetable
// errors are fatal and the caller halts the channel.
func (c *Channel) Tick(ctx context.Context, now time.Time) error {
	ctx, span := telemetry.StartSpan(ctx, "channel", "tick")
	defer span.End()

	err := c.tick(ctx, now)
	telemetry.RecordError(span, err)
	result := "ok"
	if err != nil {
		result = "error"
	}
	telemetry.ChannelTicksTotal.WithLabelValues(c.endpoint, result).Inc()
	return err
}

func (c *Channel) tick(ctx context.Context, now time.Time) error {
	tSpan, err := c.tt.Resolve(now)
	if errors.Is(err, timetable.ErrSlotBoundary) {
		// The next tick lands inside the new slot; keep the last publish.
		c.logger.Debug().Time("at", now).Msg("tick on a slot boundary, skipping")
		return nil
	}
	if err != nil {
		return err
	}
	st, ok := c.stations.Get(tSpan.Station)
	if !ok {
		return fmt.Errorf("%w: station %q not registered", timetable.ErrScheduleConfig, tSpan.Station)
	}

	meta, err := st.GetMetadata(ctx, now)
	switch {
	case err == nil:
	case errors.Is(err, station.ErrUpstreamUnavailable):
		c.logger.Warn().Err(err).Str("station", st.Name()).Msg("upstream unavailable, publishing fallback")
		telemetry.StationFetchErrorsTotal.WithLabelValues(st.Name(), "unavailable").Inc()
		return c.publishFallback(ctx, st, now)
	default:
		telemetry.StationFetchErrorsTotal.WithLabelValues(st.Name(), "format").Inc()
		return fmt.Errorf("fetching %s: %w", st.Name(), err)
	}
	if meta.Station == "" {
		meta.Station = st.Name()
	}

	info := st.FormatDisplay(meta, now)
	if info.BroadcastEnd == 0 {
		info.BroadcastEnd = now.Add(defaultDisplayWindow).UnixMilli()
	}

	if c.ads != nil {
		newMeta, newInfo, adErr := c.ads.Process(ctx, now, st, meta, info)
		if adErr != nil {
			// Keep publishing the upstream state; the break plays as-is.
			c.logger.Warn().Err(adErr).Msg("ad substitution failed")
		} else if newMeta.Kind != meta.Kind {
			telemetry.AdSubstitutionsTotal.WithLabelValues(c.endpoint).Inc()
		}
		meta, info = newMeta, newInfo
	}

	if err := c.store.PutBroadcast(ctx, c.endpoint, meta, info); err != nil {
		return err
	}
	return c.store.PublishInfo(ctx, c.endpoint, info)
}

// publishFallback stores an error-flagged broadcast so clients and
// operators can tell an unreachable upstream from silence.
func (c *Channel) publishFallback(ctx context.Context, st station.Station, now time.Time) error {
	meta := models.BroadcastMetadata{
		Kind:      models.KindBlank,
		Station:   st.Name(),
		Thumbnail: st.Thumbnail(),
		Error:     "metadata temporarily unavailable",
	}
	info := models.DisplayInfo{
		Thumbnail:      st.Thumbnail(),
		Station:        st.Name(),
		BroadcastTitle: "Metadata unavailable",
		BroadcastEnd:   now.Add(defaultDisplayWindow).UnixMilli(),
	}
	if err := c.store.PutBroadcast(ctx, c.endpoint, meta, info); err != nil {
		return err
	}
	return c.store.PublishInfo(ctx, c.endpoint, info)
}
