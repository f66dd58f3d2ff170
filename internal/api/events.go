/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/friendsincode/tournesol/internal/store"
	"github.com/friendsincode/tournesol/internal/telemetry"
)

// heartbeatInterval keeps idle event streams alive through proxies that
// close quiet connections.
const heartbeatInterval = 15 * time.Second

// handleChannelEvents streams display info updates as server-sent events.
// Unchanged publishes and timer ticks become comment lines, which clients
// ignore but proxies count as traffic.
func (a *API) handleChannelEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		a.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	ch := requestChannel(r)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	telemetry.EventSubscribers.WithLabelValues(ch.Endpoint()).Inc()
	defer telemetry.EventSubscribers.WithLabelValues(ch.Endpoint()).Dec()

	// Open the stream with the current state so clients render without
	// waiting for the next tick.
	if info, ok, err := a.state.GetInfo(r.Context(), ch.Endpoint()); err == nil && ok {
		if payload, err := json.Marshal(info); err == nil {
			fmt.Fprintf(w, "data: %s\n\n", payload)
		}
	}
	flusher.Flush()

	messages := a.state.Subscribe(r.Context(), ch.Endpoint())
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case msg, open := <-messages:
			if !open {
				return
			}
			if msg == store.Unchanged {
				fmt.Fprint(w, ": unchanged\n\n")
			} else {
				fmt.Fprintf(w, "data: %s\n\n", msg)
			}
			flusher.Flush()
		}
	}
}
