/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the public HTTP surface: channel and station cards,
// stored broadcast state, forced updates and live event streams.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/tournesol/internal/channel"
	"github.com/friendsincode/tournesol/internal/models"
	"github.com/friendsincode/tournesol/internal/station"
)

// StateReader is the slice of the store the API needs.
type StateReader interface {
	GetMetadata(ctx context.Context, endpoint string) (models.BroadcastMetadata, bool, error)
	GetInfo(ctx context.Context, endpoint string) (models.DisplayInfo, bool, error)
	GetStationData(ctx context.Context, slug string) (json.RawMessage, bool, error)
	Subscribe(ctx context.Context, endpoint string) <-chan string
}

// API serves the read-only JSON surface.
type API struct {
	channels map[string]*channel.Channel
	order    []string
	stations *station.Registry
	state    StateReader
	logger   zerolog.Logger
}

// New builds the API over the given channels, stations and state.
func New(channels []*channel.Channel, stations *station.Registry, state StateReader, logger zerolog.Logger) *API {
	a := &API{
		channels: make(map[string]*channel.Channel, len(channels)),
		stations: stations,
		state:    state,
		logger:   logger.With().Str("component", "api").Logger(),
	}
	for _, ch := range channels {
		a.channels[ch.Endpoint()] = ch
		a.order = append(a.order, ch.Endpoint())
	}
	return a
}

// Routes mounts the API under r.
func (a *API) Routes(r chi.Router) {
	r.Get("/", a.handleIndex)
	r.Route("/channels/{channel}", func(r chi.Router) {
		r.Use(a.channelCtx)
		r.Get("/", a.handleChannel)
		r.Get("/metadata/", a.handleChannelMetadata)
		r.Get("/update/", a.handleChannelUpdate)
		r.Get("/events/", a.handleChannelEvents)
	})
	r.Get("/stations/{station}/", a.handleStation)
}

type ctxKey int

const channelKey ctxKey = 0

// channelCtx resolves the {channel} URL parameter once for the subtree.
func (a *API) channelCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ch, ok := a.channels[chi.URLParam(r, "channel")]
		if !ok {
			a.writeError(w, http.StatusNotFound, "unknown channel")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), channelKey, ch)))
	})
}

func requestChannel(r *http.Request) *channel.Channel {
	return r.Context().Value(channelKey).(*channel.Channel)
}

type channelCard struct {
	Endpoint string   `json:"endpoint"`
	Name     string   `json:"name"`
	Stations []string `json:"stations"`
	Links    struct {
		Self     string `json:"self"`
		Metadata string `json:"metadata"`
		Update   string `json:"update"`
		Events   string `json:"events"`
	} `json:"links"`
}

func (a *API) channelCard(ch *channel.Channel) channelCard {
	card := channelCard{
		Endpoint: ch.Endpoint(),
		Name:     ch.Name(),
		Stations: ch.StationNames(),
	}
	base := "/api/channels/" + ch.Endpoint()
	card.Links.Self = base + "/"
	card.Links.Metadata = base + "/metadata/"
	card.Links.Update = base + "/update/"
	card.Links.Events = base + "/events/"
	return card
}

type stationCard struct {
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Thumbnail string `json:"thumbnail_src"`
	Link      string `json:"link"`
}

func (a *API) stationCard(st station.Station) stationCard {
	slug := stationSlug(st)
	return stationCard{
		Name:      st.Name(),
		Slug:      slug,
		Thumbnail: st.Thumbnail(),
		Link:      "/api/stations/" + slug + "/",
	}
}

// stationSlug prefers a station's configured slug, which is also the key its
// snapshot data is stored under, over the name-derived default.
func stationSlug(st station.Station) string {
	if s, ok := st.(interface{ Slug() string }); ok {
		return s.Slug()
	}
	return StationSlug(st.Name())
}

// StationSlug derives the URL segment for a station display name.
func StationSlug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}

func (a *API) handleIndex(w http.ResponseWriter, r *http.Request) {
	channels := make([]channelCard, 0, len(a.order))
	for _, endpoint := range a.order {
		channels = append(channels, a.channelCard(a.channels[endpoint]))
	}
	stations := make([]stationCard, 0)
	for _, st := range a.stations.All() {
		stations = append(stations, a.stationCard(st))
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"channels": channels,
		"stations": stations,
	})
}

func (a *API) handleChannel(w http.ResponseWriter, r *http.Request) {
	ch := requestChannel(r)
	card := a.channelCard(ch)
	info, ok, err := a.state.GetInfo(r.Context(), ch.Endpoint())
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, "reading channel state")
		return
	}
	body := map[string]any{"channel": card}
	if ok {
		body["current_broadcast"] = info
	}
	a.writeJSON(w, http.StatusOK, body)
}

func (a *API) handleChannelMetadata(w http.ResponseWriter, r *http.Request) {
	ch := requestChannel(r)
	meta, ok, err := a.state.GetMetadata(r.Context(), ch.Endpoint())
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, "reading channel metadata")
		return
	}
	if !ok {
		a.writeError(w, http.StatusNotFound, "no metadata stored yet")
		return
	}
	a.writeJSON(w, http.StatusOK, meta)
}

// handleChannelUpdate forces a tick outside the scheduler cadence and
// returns the refreshed display info.
func (a *API) handleChannelUpdate(w http.ResponseWriter, r *http.Request) {
	ch := requestChannel(r)
	if err := ch.Tick(r.Context(), time.Now()); err != nil {
		a.logger.Warn().Err(err).Str("channel", ch.Endpoint()).Msg("forced update failed")
		a.writeError(w, http.StatusBadGateway, "update failed")
		return
	}
	info, ok, err := a.state.GetInfo(r.Context(), ch.Endpoint())
	if err != nil || !ok {
		a.writeError(w, http.StatusInternalServerError, "reading refreshed state")
		return
	}
	a.writeJSON(w, http.StatusOK, info)
}

func (a *API) handleStation(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "station")
	for _, st := range a.stations.All() {
		if stationSlug(st) != slug {
			continue
		}
		body := map[string]any{"station": a.stationCard(st)}
		if data, ok, err := a.state.GetStationData(r.Context(), slug); err == nil && ok {
			body["data"] = data
		}
		a.writeJSON(w, http.StatusOK, body)
		return
	}
	a.writeError(w, http.StatusNotFound, "unknown station")
}

func (a *API) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.logger.Warn().Err(err).Msg("encoding response")
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, message string) {
	a.writeJSON(w, status, map[string]string{"error": message})
}
