/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry carries the service's Prometheus metrics and
// OpenTelemetry tracing setup.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ChannelTicksTotal counts scheduler ticks per channel and result.
	ChannelTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tournesol_channel_ticks_total",
		Help: "Channel ticks processed, labeled by channel and result.",
	}, []string{"channel", "result"})

	// StationFetchErrorsTotal counts upstream fetch failures per station.
	StationFetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tournesol_station_fetch_errors_total",
		Help: "Upstream metadata fetch failures, labeled by station and kind.",
	}, []string{"station", "kind"})

	// AdSubstitutionsTotal counts ad breaks replaced with backup tracks.
	AdSubstitutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tournesol_ad_substitutions_total",
		Help: "Ad breaks substituted with local tracks, labeled by channel.",
	}, []string{"channel"})

	// InfoPublishesTotal counts pub/sub publishes per channel and whether
	// the payload changed.
	InfoPublishesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tournesol_info_publishes_total",
		Help: "Display info publishes, labeled by channel and change state.",
	}, []string{"channel", "changed"})

	// PlaylistQueueLength tracks the pending queue depth of each local
	// playlist station.
	PlaylistQueueLength = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tournesol_playlist_queue_length",
		Help: "Pending tracks queued per local playlist station.",
	}, []string{"station"})

	// APIRequestsTotal counts HTTP API requests.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tournesol_api_requests_total",
		Help: "HTTP API requests, labeled by method, endpoint and status.",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes HTTP API request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tournesol_api_request_duration_seconds",
		Help:    "HTTP API request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections tracks in-flight HTTP requests, long-lived
	// event streams included.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tournesol_api_active_connections",
		Help: "In-flight HTTP API connections.",
	})

	// EventSubscribers tracks open event stream subscriptions per channel.
	EventSubscribers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tournesol_event_subscribers",
		Help: "Open event stream subscriptions, labeled by channel.",
	}, []string{"channel"})
)

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
