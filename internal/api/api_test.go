/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/tournesol/internal/channel"
	"github.com/friendsincode/tournesol/internal/engine"
	"github.com/friendsincode/tournesol/internal/models"
	"github.com/friendsincode/tournesol/internal/station"
	"github.com/friendsincode/tournesol/internal/store"
	"github.com/friendsincode/tournesol/internal/timetable"
)

type fakeState struct {
	meta        map[string]models.BroadcastMetadata
	info        map[string]models.DisplayInfo
	stationData map[string]json.RawMessage
	messages    chan string
}

func (f *fakeState) GetMetadata(ctx context.Context, endpoint string) (models.BroadcastMetadata, bool, error) {
	m, ok := f.meta[endpoint]
	return m, ok, nil
}

func (f *fakeState) GetInfo(ctx context.Context, endpoint string) (models.DisplayInfo, bool, error) {
	i, ok := f.info[endpoint]
	return i, ok, nil
}

func (f *fakeState) GetStationData(ctx context.Context, slug string) (json.RawMessage, bool, error) {
	d, ok := f.stationData[slug]
	return d, ok, nil
}

func (f *fakeState) Subscribe(ctx context.Context, endpoint string) <-chan string {
	return f.messages
}

type fakeStore struct{ fakeState }

func (f *fakeStore) PutBroadcast(ctx context.Context, endpoint string, meta models.BroadcastMetadata, info models.DisplayInfo) error {
	f.meta[endpoint] = meta
	f.info[endpoint] = info
	return nil
}

func (f *fakeStore) PublishInfo(ctx context.Context, endpoint string, info models.DisplayInfo) error {
	return nil
}

type fixedStation struct{ name string }

func (s *fixedStation) Name() string      { return s.name }
func (s *fixedStation) Thumbnail() string { return "https://example.org/logo.png" }
func (s *fixedStation) GetMetadata(ctx context.Context, now time.Time) (models.BroadcastMetadata, error) {
	return models.BroadcastMetadata{
		Kind: models.KindMusic, Station: s.name,
		Artist: "Archive", Title: "Again", End: now.Add(time.Minute).Unix(),
	}, nil
}
func (s *fixedStation) FormatDisplay(meta models.BroadcastMetadata, now time.Time) models.DisplayInfo {
	return models.DisplayInfo{
		Station:        s.name,
		BroadcastTitle: meta.Artist + " • " + meta.Title,
		BroadcastEnd:   meta.End * 1000,
	}
}

func testRouter(t *testing.T, state *fakeState, st station.Station) http.Handler {
	t.Helper()
	tt, err := timetable.New([]timetable.DaySchedule{{
		Days:  []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"},
		Slots: []timetable.Slot{{Start: "00:00", End: "23:59", Station: st.Name()}},
	}})
	if err != nil {
		t.Fatal(err)
	}
	reg, err := station.NewRegistry(st)
	if err != nil {
		t.Fatal(err)
	}
	fs := &fakeStore{fakeState: *state}
	ch := channel.New(channel.Config{
		Endpoint: "tournesol", Name: "Tournesol",
		Timetable: tt, Stations: reg, Store: fs, Logger: zerolog.Nop(),
	})
	a := New([]*channel.Channel{ch}, reg, &fs.fakeState, zerolog.Nop())
	r := chi.NewRouter()
	r.Route("/api", a.Routes)
	return r
}

func newFakeState() *fakeState {
	return &fakeState{
		meta:        make(map[string]models.BroadcastMetadata),
		info:        make(map[string]models.DisplayInfo),
		stationData: make(map[string]json.RawMessage),
		messages:    make(chan string, 4),
	}
}

func TestIndexListsChannelsAndStations(t *testing.T) {
	router := testRouter(t, newFakeState(), &fixedStation{name: "RTL 2"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Channels []struct {
			Endpoint string `json:"endpoint"`
			Links    struct {
				Events string `json:"events"`
			} `json:"links"`
		} `json:"channels"`
		Stations []struct {
			Slug string `json:"slug"`
		} `json:"stations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Channels) != 1 || body.Channels[0].Endpoint != "tournesol" {
		t.Errorf("channels = %+v", body.Channels)
	}
	if body.Channels[0].Links.Events != "/api/channels/tournesol/events/" {
		t.Errorf("events link = %q", body.Channels[0].Links.Events)
	}
	if len(body.Stations) != 1 || body.Stations[0].Slug != "rtl-2" {
		t.Errorf("stations = %+v", body.Stations)
	}
}

func TestChannelMetadata(t *testing.T) {
	state := newFakeState()
	state.meta["tournesol"] = models.BroadcastMetadata{
		Kind: models.KindMusic, Station: "RTL 2", Artist: "Archive", Title: "Again",
	}
	router := testRouter(t, state, &fixedStation{name: "RTL 2"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/channels/tournesol/metadata/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var meta models.BroadcastMetadata
	if err := json.Unmarshal(rec.Body.Bytes(), &meta); err != nil {
		t.Fatal(err)
	}
	if meta.Kind != models.KindMusic || meta.Artist != "Archive" {
		t.Errorf("meta = %+v", meta)
	}
}

func TestChannelMetadataMissing(t *testing.T) {
	router := testRouter(t, newFakeState(), &fixedStation{name: "RTL 2"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/channels/tournesol/metadata/", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestUnknownChannelIs404(t *testing.T) {
	router := testRouter(t, newFakeState(), &fixedStation{name: "RTL 2"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/channels/nope/", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestChannelUpdateTicksAndReturnsInfo(t *testing.T) {
	router := testRouter(t, newFakeState(), &fixedStation{name: "RTL 2"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/channels/tournesol/update/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var info models.DisplayInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info.BroadcastTitle != "Archive • Again" {
		t.Errorf("BroadcastTitle = %q", info.BroadcastTitle)
	}
}

func TestStationCardWithData(t *testing.T) {
	state := newFakeState()
	state.stationData["rtl-2"] = json.RawMessage(`{"playlist":[]}`)
	router := testRouter(t, state, &fixedStation{name: "RTL 2"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stations/rtl-2/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"playlist"`) {
		t.Errorf("body = %s, want station data", rec.Body)
	}
}

func TestStationCardUsesConfiguredSlug(t *testing.T) {
	// Playlist snapshots are stored under the configured slug, not the
	// name-derived one; the station route must serve them from there.
	state := newFakeState()
	state.stationData["pycolore"] = json.RawMessage(`{"playlist":[{"artist":"Archive"}]}`)
	st := station.NewLocalPlaylist(engine.New(engine.Config{
		Name: "Radio Pycolore",
		Slug: "pycolore",
	}))
	router := testRouter(t, state, st)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stations/pycolore/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Station struct {
			Slug string `json:"slug"`
			Link string `json:"link"`
		} `json:"station"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Station.Slug != "pycolore" || body.Station.Link != "/api/stations/pycolore/" {
		t.Errorf("card = %+v", body.Station)
	}
	if !strings.Contains(string(body.Data), "Archive") {
		t.Errorf("data = %s, want stored snapshot", body.Data)
	}
}

func TestEventsStream(t *testing.T) {
	state := newFakeState()
	state.info["tournesol"] = models.DisplayInfo{Station: "RTL 2", BroadcastTitle: "Opening"}
	state.messages <- `{"current_station":"RTL 2","current_broadcast_title":"Next"}`
	state.messages <- store.Unchanged

	router := testRouter(t, state, &fixedStation{name: "RTL 2"})
	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/channels/tournesol/events/", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	var lines []string
	for len(lines) < 3 {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("reading stream after %v: %v", lines, err)
		}
		line = strings.TrimRight(line, "\n")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if !strings.HasPrefix(lines[0], "data: ") || !strings.Contains(lines[0], "Opening") {
		t.Errorf("line 0 = %q, want initial state", lines[0])
	}
	if !strings.Contains(lines[1], "Next") {
		t.Errorf("line 1 = %q, want published update", lines[1])
	}
	if !strings.HasPrefix(lines[2], ":") {
		t.Errorf("line 2 = %q, want comment for unchanged publish", lines[2])
	}
}
