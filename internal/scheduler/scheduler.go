/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package scheduler runs the periodic update loop: advance local playlist
// engines, then tick every live channel.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/tournesol/internal/channel"
	"github.com/friendsincode/tournesol/internal/engine"
	"github.com/friendsincode/tournesol/internal/telemetry"
)

// DefaultInterval is the tick period. Upstream feeds change on the order
// of seconds; anything faster just burns their rate limits.
const DefaultInterval = 4 * time.Second

// Scheduler drives channels and engines from one loop. A channel whose
// timetable turns out broken is halted and stays halted until restart;
// the rest keep running.
type Scheduler struct {
	channels []*channel.Channel
	engines  []*engine.Engine
	interval time.Duration
	logger   zerolog.Logger

	mu     sync.Mutex
	halted map[string]error
}

// Config configures a Scheduler.
type Config struct {
	Channels []*channel.Channel
	// Engines lists the local playlist engines to advance each tick.
	Engines  []*engine.Engine
	Interval time.Duration
	Logger   zerolog.Logger
}

// New builds a Scheduler.
func New(cfg Config) *Scheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		channels: cfg.Channels,
		engines:  cfg.Engines,
		interval: interval,
		logger:   cfg.Logger.With().Str("component", "scheduler").Logger(),
		halted:   make(map[string]error),
	}
}

// Run ticks until ctx is canceled. The first tick fires immediately so
// state is published as soon as the process is up.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info().
		Dur("interval", s.interval).
		Int("channels", len(s.channels)).
		Int("engines", len(s.engines)).
		Msg("scheduler started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.TickOnce(ctx, time.Now())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return
		case now := <-ticker.C:
			s.TickOnce(ctx, now)
		}
	}
}

// TickOnce runs a single scheduling cycle at the given instant.
func (s *Scheduler) TickOnce(ctx context.Context, now time.Time) {
	// Engines need to know how long their station stays routed, so spans
	// are resolved before any channel publishes.
	spanEnds := make(map[string][]time.Time)
	for _, ch := range s.channels {
		if s.isHalted(ch.Endpoint()) {
			continue
		}
		span, err := ch.Resolve(now)
		if err != nil {
			if channel.IsFatal(err) {
				s.halt(ch.Endpoint(), err)
			}
			continue
		}
		spanEnds[span.Station] = append(spanEnds[span.Station], span.End)
	}

	for _, eng := range s.engines {
		if err := eng.Advance(ctx, now, spanEnds[eng.Name()]); err != nil {
			s.logger.Error().Err(err).Str("station", eng.Name()).Msg("advancing playlist engine")
		}
		telemetry.PlaylistQueueLength.WithLabelValues(eng.Name()).Set(float64(eng.PendingCount()))
	}

	for _, ch := range s.channels {
		if s.isHalted(ch.Endpoint()) {
			continue
		}
		if err := ch.Tick(ctx, now); err != nil {
			if channel.IsFatal(err) {
				s.halt(ch.Endpoint(), err)
				continue
			}
			s.logger.Warn().Err(err).Str("channel", ch.Endpoint()).Msg("tick failed")
		}
	}
}

func (s *Scheduler) halt(endpoint string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, done := s.halted[endpoint]; done {
		return
	}
	s.halted[endpoint] = err
	s.logger.Error().Err(err).Str("channel", endpoint).Msg("channel halted")
}

func (s *Scheduler) isHalted(endpoint string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.halted[endpoint]
	return ok
}

// Halted reports the channels taken out of rotation and why.
func (s *Scheduler) Halted() map[string]error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]error, len(s.halted))
	for k, v := range s.halted {
		out[k] = v
	}
	return out
}
