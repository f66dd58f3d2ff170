/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server wires configuration into running services: the Redis
// store, stations, channels, the scheduler loop and the HTTP surface.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/tournesol/internal/adbreak"
	"github.com/friendsincode/tournesol/internal/api"
	"github.com/friendsincode/tournesol/internal/catalog"
	"github.com/friendsincode/tournesol/internal/channel"
	"github.com/friendsincode/tournesol/internal/config"
	"github.com/friendsincode/tournesol/internal/cover"
	"github.com/friendsincode/tournesol/internal/engine"
	"github.com/friendsincode/tournesol/internal/liquidsoap"
	"github.com/friendsincode/tournesol/internal/scheduler"
	"github.com/friendsincode/tournesol/internal/station"
	"github.com/friendsincode/tournesol/internal/store"
	"github.com/friendsincode/tournesol/internal/telemetry"
	"github.com/friendsincode/tournesol/internal/timetable"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg    *config.Config
	logger zerolog.Logger
	router chi.Router

	httpServer    *http.Server
	metricsServer *http.Server

	redis     *redis.Client
	store     *store.Store
	stations  *station.Registry
	engines   []*engine.Engine
	channels  []*channel.Channel
	scheduler *scheduler.Scheduler
	api       *api.API

	closers  []func() error
	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, channelsCfg *config.ChannelsConfig, logger zerolog.Logger) (*Server, error) {
	for _, warn := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warn)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(telemetry.TracingMiddleware("tournesol-api"))
	router.Use(telemetry.MetricsMiddleware)
	// Event streams are long-lived; everything else gets a deadline.
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(30 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(r.URL.Path) > 8 && r.URL.Path[len(r.URL.Path)-8:] == "/events/" {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
	}

	if err := srv.initDependencies(channelsCfg); err != nil {
		return nil, err
	}
	srv.configureRoutes()

	srv.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		// WriteTimeout stays 0 so event streams are not cut off.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", telemetry.Handler())
	srv.metricsServer = &http.Server{
		Addr:              cfg.MetricsBind,
		Handler:           metricsMux,
		ReadHeaderTimeout: 15 * time.Second,
	}
	return srv, nil
}

func (s *Server) initDependencies(channelsCfg *config.ChannelsConfig) error {
	s.redis = redis.NewClient(&redis.Options{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPassword,
		DB:       s.cfg.RedisDB,
	})
	s.DeferClose(s.redis.Close)
	s.store = store.New(s.redis, s.logger)

	sink := liquidsoap.NewTelnetSink(s.cfg.LiquidsoapAddr, s.logger)
	covers := cover.NewDeezerLookup(s.cfg.DeezerAPIURL, s.logger)
	reader := catalog.NewFFProbeReader(s.cfg.FFProbeBin)

	stations := []station.Station{station.NewRTL2()}
	if s.cfg.RadioFranceToken != "" {
		stations = append(stations,
			station.NewFranceInter(s.cfg.RadioFranceToken),
			station.NewFranceInfo(s.cfg.RadioFranceToken),
			station.NewFranceMusique(s.cfg.RadioFranceToken),
			station.NewFranceCulture(s.cfg.RadioFranceToken),
		)
	}
	for _, def := range channelsCfg.Playlists {
		eng := engine.New(engine.Config{
			Name:      def.Name,
			Slug:      def.Slug,
			Thumbnail: def.Thumbnail,
			ShowName:  def.ShowName,
			Queue:     liquidsoap.FormatName(def.Name) + "_station_queue",
			Loader:    catalog.NewLoader(def.Glob, reader),
			Sink:      sink,
			Cover:     covers,
			Snapshots: s.store,
			Logger:    s.logger,
		})
		s.engines = append(s.engines, eng)
		stations = append(stations, station.NewLocalPlaylist(eng))
	}
	registry, err := station.NewRegistry(stations...)
	if err != nil {
		return fmt.Errorf("registering stations: %w", err)
	}
	s.stations = registry

	for _, def := range channelsCfg.Channels {
		tt, err := BuildTimetable(def.Timetable)
		if err != nil {
			return fmt.Errorf("channel %s: %w", def.Endpoint, err)
		}
		for _, name := range tt.Stations() {
			if _, ok := registry.Get(name); !ok {
				return fmt.Errorf("channel %s routes to unknown station %q", def.Endpoint, name)
			}
		}
		var ads *adbreak.Handler
		if def.AdSubstitution {
			if s.cfg.BackupGlob == "" {
				return fmt.Errorf("channel %s wants ad substitution but TOURNESOL_BACKUP_GLOB is unset", def.Endpoint)
			}
			ads = adbreak.New(adbreak.Config{
				Endpoint: def.Endpoint,
				Loader:   catalog.NewLoader(s.cfg.BackupGlob, reader),
				Sink:     sink,
				Cover:    covers,
				Logger:   s.logger,
			})
		}
		s.channels = append(s.channels, channel.New(channel.Config{
			Endpoint:  def.Endpoint,
			Name:      def.Name,
			Timetable: tt,
			Stations:  registry,
			Ads:       ads,
			Store:     s.store,
			Logger:    s.logger,
		}))
	}

	s.scheduler = scheduler.New(scheduler.Config{
		Channels: s.channels,
		Engines:  s.engines,
		Interval: s.cfg.TickInterval,
		Logger:   s.logger,
	})
	s.api = api.New(s.channels, s.stations, s.store, s.logger)
	return nil
}

// BuildTimetable converts timetable definitions from the channels file.
func BuildTimetable(defs []config.TimetableDef) (*timetable.Timetable, error) {
	schedules := make([]timetable.DaySchedule, 0, len(defs))
	for _, def := range defs {
		slots := make([]timetable.Slot, 0, len(def.Slots))
		for _, slot := range def.Slots {
			slots = append(slots, timetable.Slot{
				Start:   slot.Start,
				End:     slot.End,
				Station: slot.Station,
			})
		}
		schedules = append(schedules, timetable.DaySchedule{Days: def.Days, Slots: slots})
	}
	return timetable.New(schedules)
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"degraded","redis":"unreachable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	s.router.Route("/api", s.api.Routes)
}

// Start runs the scheduler and both HTTP listeners. It blocks until the
// main listener stops.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.scheduler.Run(ctx)
	}()

	go func() {
		s.logger.Info().Str("addr", s.metricsServer.Addr).Msg("metrics listener started")
		if err := s.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("metrics listener exited")
		}
	}()

	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("http listener started")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the background loop, drains both listeners and releases
// owned resources in reverse order.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.bgCancel != nil {
		s.bgCancel()
	}
	s.bgWG.Wait()

	var firstErr error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		firstErr = err
	}
	if err := s.metricsServer.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

// Handler exposes the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Stations exposes the registry for script generation.
func (s *Server) Stations() *station.Registry { return s.stations }

// Channels exposes the configured channels for script generation.
func (s *Server) Channels() []*channel.Channel { return s.channels }
