/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package engine drives a locally hosted playlist: it owns the pending
// track queue, decides when the playout queue needs its next track, and
// reports what is currently airing.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/tournesol/internal/catalog"
	"github.com/friendsincode/tournesol/internal/cover"
	"github.com/friendsincode/tournesol/internal/liquidsoap"
	"github.com/friendsincode/tournesol/internal/models"
	"github.com/friendsincode/tournesol/internal/playlist"
)

// advanceLead is how early the next track is pushed so the playout engine
// can cross-fade instead of going silent.
const advanceLead = 10 * time.Second

// refillThreshold triggers a library reload when the pending queue runs
// this low.
const refillThreshold = 5

// previewArtists is how many upcoming artists the summary names.
const previewArtists = 5

// SnapshotStore persists the shuffled playlist snapshot for external
// consumers.
type SnapshotStore interface {
	SetStationData(ctx context.Context, slug string, data any) error
}

// Config configures an Engine.
type Config struct {
	// Name is the display name; Slug keys persisted snapshots and URLs.
	Name      string
	Slug      string
	Thumbnail string
	ShowName  string
	// Queue is the playout queue tracks are pushed to.
	Queue     string
	Loader    *catalog.Loader
	Sink      liquidsoap.Sink
	Cover     cover.Lookup
	Snapshots SnapshotStore
	Rand      *rand.Rand
	Logger    zerolog.Logger
}

// Engine is safe for concurrent use.
type Engine struct {
	name      string
	slug      string
	thumbnail string
	showName  string
	queue     string
	loader    *catalog.Loader
	sink      liquidsoap.Sink
	cover     cover.Lookup
	snapshots SnapshotStore
	rng       *rand.Rand
	logger    zerolog.Logger

	mu         sync.Mutex
	pending    []models.Track
	current    *models.Track
	currentEnd time.Time
	endOfUse   time.Time
}

// New builds an Engine. The pending queue fills lazily on the first
// advance.
func New(cfg Config) *Engine {
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		name:      cfg.Name,
		slug:      cfg.Slug,
		thumbnail: cfg.Thumbnail,
		showName:  cfg.ShowName,
		queue:     cfg.Queue,
		loader:    cfg.Loader,
		sink:      cfg.Sink,
		cover:     cfg.Cover,
		snapshots: cfg.Snapshots,
		rng:       rng,
		logger:    cfg.Logger.With().Str("station", cfg.Name).Logger(),
	}
}

func (e *Engine) Name() string      { return e.name }
func (e *Engine) Slug() string      { return e.slug }
func (e *Engine) Thumbnail() string { return e.thumbnail }

// Advance is the scheduler hook. spanEnds holds the end instants of every
// timetable span currently routed to this station; empty means no channel
// is listening and the engine stays idle. When the current track is within
// the lead window of ending, the next fitting track is pushed to the
// playout queue.
func (e *Engine) Advance(ctx context.Context, now time.Time, spanEnds []time.Time) error {
	if len(spanEnds) == 0 {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, end := range spanEnds {
		if end.After(e.endOfUse) {
			e.endOfUse = end
		}
	}
	if now.Before(e.currentEnd.Add(-advanceLead)) {
		return nil
	}

	// The pushed track starts when the current one ends, so its length
	// budget is what remains of the span after that delay.
	delay := e.currentEnd.Sub(now)
	if delay < 0 {
		delay = 0
	}
	maxLength := e.endOfUse.Sub(now) - delay
	track, err := e.nextTrack(ctx, maxLength)
	if err != nil {
		return err
	}
	if track == nil {
		// Nothing fits in the remaining span; park until it closes.
		e.current = nil
		e.currentEnd = now.Add(maxLength)
		e.logger.Debug().Dur("remaining", maxLength).Msg("no track fits remaining span")
		return nil
	}
	if err := e.sink.Enqueue(ctx, e.queue, track.Path); err != nil {
		// Leave state untouched so the next tick retries the push.
		e.pending = append([]models.Track{*track}, e.pending...)
		return fmt.Errorf("pushing %s: %w", track.Path, err)
	}
	e.current = track
	e.currentEnd = now.Add(track.Duration + delay)
	e.logger.Info().
		Str("artist", track.Artist).
		Str("title", track.Title).
		Time("until", e.currentEnd).
		Msg("queued next track")
	return nil
}

// nextTrack pops the first pending track no longer than maxLength,
// refilling the queue from the library first when it runs low. A nil track
// with nil error means nothing fits.
func (e *Engine) nextTrack(ctx context.Context, maxLength time.Duration) (*models.Track, error) {
	if len(e.pending) <= refillThreshold {
		if err := e.refill(ctx); err != nil {
			return nil, err
		}
	}
	for i := range e.pending {
		if e.pending[i].Duration <= maxLength {
			track := e.pending[i]
			e.pending = append(e.pending[:i], e.pending[i+1:]...)
			return &track, nil
		}
	}
	return nil, nil
}

// refill reloads the library, appends a fresh shuffle to the pending queue
// and spaces out repeated artists across the whole queue. A library that
// fails to load is unrecoverable and fails loudly.
func (e *Engine) refill(ctx context.Context) error {
	tracks, err := e.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("reloading library: %w", err)
	}
	if e.snapshots != nil {
		if err := e.snapshots.SetStationData(ctx, e.slug, snapshot(tracks)); err != nil {
			e.logger.Warn().Err(err).Msg("persisting playlist snapshot")
		}
	}
	shuffled := catalog.Shuffle(tracks, e.rng)
	e.pending = playlist.AntiRepeat(append(e.pending, shuffled...))
	e.logger.Info().Int("pending", len(e.pending)).Msg("refilled playlist queue")
	return nil
}

type snapshotTrack struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
	Album  string `json:"album"`
}

func snapshot(tracks []models.Track) map[string]any {
	out := make([]snapshotTrack, len(tracks))
	for i, t := range tracks {
		out[i] = snapshotTrack{Artist: t.Artist, Title: t.Title, Album: t.Album}
	}
	return map[string]any{"playlist": out}
}

// Metadata reports what the engine is currently airing. Between tracks it
// reports a waiting slot ending when the parked window closes.
func (e *Engine) Metadata(ctx context.Context, now time.Time) models.BroadcastMetadata {
	e.mu.Lock()
	current := e.current
	currentEnd := e.currentEnd
	upcoming := e.upcomingArtistsLocked()
	e.mu.Unlock()

	if current == nil {
		var end int64
		if !currentEnd.IsZero() {
			end = currentEnd.Unix()
		}
		return models.BroadcastMetadata{
			Kind:    models.KindWaitingForNext,
			Station: e.name,
			End:     end,
		}
	}
	thumbnail, link := e.cover.Cover(ctx, e.thumbnail, current.Artist, current.Album, current.Title)
	return models.BroadcastMetadata{
		Kind:      models.KindMusic,
		Station:   e.name,
		Artist:    current.Artist,
		Title:     current.Title,
		Album:     current.Album,
		End:       currentEnd.Unix(),
		Show:      e.showName,
		Summary:   e.summary(upcoming),
		Thumbnail: thumbnail,
		Link:      link,
	}
}

func (e *Engine) summary(upcoming []string) string {
	if len(upcoming) == 0 {
		return fmt.Sprintf("A random selection of tracks from the %s library.", e.name)
	}
	return fmt.Sprintf("A random selection of tracks from the %s library. Coming up: %s.",
		e.name, joinArtists(upcoming))
}

// UpcomingArtists previews the next distinct artists in queue order.
func (e *Engine) UpcomingArtists() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.upcomingArtistsLocked()
}

func (e *Engine) upcomingArtistsLocked() []string {
	seen := make(map[string]bool, previewArtists)
	var out []string
	for _, t := range e.pending {
		if seen[t.Artist] {
			continue
		}
		seen[t.Artist] = true
		out = append(out, t.Artist)
		if len(out) == previewArtists {
			break
		}
	}
	return out
}

// PendingCount reports the pending queue length.
func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

func joinArtists(artists []string) string {
	switch len(artists) {
	case 0:
		return ""
	case 1:
		return artists[0]
	default:
		return strings.Join(artists[:len(artists)-1], ", ") + " and " + artists[len(artists)-1]
	}
}
